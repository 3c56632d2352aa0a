package utils

import (
	"net/http"
	"strings"
)

// sensitiveKeywords 头部名称中出现即视为敏感的关键字
var sensitiveKeywords = []string{
	"authorization",
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"api-key",
}

// HeaderRedactor 对HTTP头部做脱敏
// 巡检配置校验(--validate-config)和日志输出展示头部时,
// 凭证类值不能以明文出现
type HeaderRedactor struct {
	keywords []string
}

// NewHeaderRedactor 创建头部脱敏器
func NewHeaderRedactor() *HeaderRedactor {
	return &HeaderRedactor{keywords: sensitiveKeywords}
}

// IsSensitiveHeader 按名称关键字判断头部是否敏感
func (hr *HeaderRedactor) IsSensitiveHeader(name string) bool {
	nameLower := strings.ToLower(name)
	for _, keyword := range hr.keywords {
		if strings.Contains(nameLower, keyword) {
			return true
		}
	}
	return false
}

// RedactHeaderValue 脱敏单个头部值
func (hr *HeaderRedactor) RedactHeaderValue(name, value string) string {
	if !hr.IsSensitiveHeader(name) {
		return value
	}

	// Bearer Token只保留前缀
	if strings.HasPrefix(value, "Bearer ") {
		return "Bearer ***"
	}

	// 较长的密钥保留首尾各4位
	if len(value) > 8 {
		return value[:4] + "***" + value[len(value)-4:]
	}

	// 短密钥完全隐藏
	return "***"
}

// Redact 脱敏整个http.Header,返回可安全展示的字符串map
func (hr *HeaderRedactor) Redact(headers http.Header) map[string]string {
	result := make(map[string]string)
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		result[name] = hr.RedactHeaderValue(name, values[0])
	}
	return result
}

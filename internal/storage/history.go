package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite 驱动

	"github.com/haiyousec/linkwatch/internal/models"
)

// HistoryDB 基于 SQLite 保存历次扫描的统计与 404 链接,
// 供 Web 界面展示历史趋势。单文件数据库,单写连接。
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// ScanRecord 是一次完整扫描在历史库中的记录
type ScanRecord struct {
	ID          int64     `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	TotalSites  int       `json:"total_sites"`
	FailedSites int       `json:"failed_sites"`
	TotalLinks  int       `json:"total_links"`
	BrokenCount int       `json:"broken_count"`
}

// OpenHistory 打开或创建历史数据库,启用 WAL 模式
func OpenHistory(dbPath string) (*HistoryDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("创建历史库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("打开历史库失败: %w", err)
	}

	// SQLite 只支持单个写连接
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, dbPath: dbPath}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("启用WAL模式失败: %w", err)
	}
	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("初始化历史库表失败: %w", err)
	}
	return h, nil
}

// Close 关闭数据库连接
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL,
		total_sites INTEGER NOT NULL,
		failed_sites INTEGER NOT NULL,
		total_links INTEGER NOT NULL,
		broken_count INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at);

	CREATE TABLE IF NOT EXISTS broken_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id INTEGER NOT NULL REFERENCES scans(id),
		url TEXT NOT NULL,
		source TEXT NOT NULL,
		text TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_broken_scan ON broken_links(scan_id);
	CREATE INDEX IF NOT EXISTS idx_broken_url ON broken_links(url);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// RecordScan 写入一次扫描的统计及其 404 链接,返回扫描记录 ID
func (h *HistoryDB) RecordScan(ctx context.Context, startedAt time.Time, stats models.ScanStats, broken []models.BrokenLink) (int64, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("开启历史库事务失败: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO scans (started_at, duration_ms, total_sites, failed_sites, total_links, broken_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		startedAt.UTC().Format(time.RFC3339),
		int64(stats.Duration*1000),
		stats.TotalSites,
		stats.FailedSites,
		stats.TotalLinks,
		stats.BrokenLinks,
	)
	if err != nil {
		return 0, fmt.Errorf("写入扫描记录失败: %w", err)
	}
	scanID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("获取扫描记录ID失败: %w", err)
	}

	for _, link := range broken {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO broken_links (scan_id, url, source, text) VALUES (?, ?, ?, ?)`,
			scanID, link.URL, link.Source, link.Text,
		); err != nil {
			return 0, fmt.Errorf("写入404链接记录失败: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("提交历史库事务失败: %w", err)
	}
	return scanID, nil
}

// RecentScans 返回最近 limit 次扫描记录,按时间倒序
func (h *HistoryDB) RecentScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, total_sites, failed_sites, total_links, broken_count
		 FROM scans ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询扫描历史失败: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var r ScanRecord
		var started string
		if err := rows.Scan(&r.ID, &started, &r.DurationMS, &r.TotalSites, &r.FailedSites, &r.TotalLinks, &r.BrokenCount); err != nil {
			return nil, fmt.Errorf("读取扫描历史失败: %w", err)
		}
		r.StartedAt = parseStoredTime(started)
		records = append(records, r)
	}
	return records, rows.Err()
}

// BrokenLinksForScan 返回指定扫描的全部 404 链接
func (h *HistoryDB) BrokenLinksForScan(ctx context.Context, scanID int64) ([]models.BrokenLink, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT url, source, text FROM broken_links WHERE scan_id = ? ORDER BY id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("查询404链接历史失败: %w", err)
	}
	defer rows.Close()

	var links []models.BrokenLink
	for rows.Next() {
		var link models.BrokenLink
		if err := rows.Scan(&link.URL, &link.Source, &link.Text); err != nil {
			return nil, fmt.Errorf("读取404链接历史失败: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// parseStoredTime 兼容 SQLite 可能返回的几种时间格式
func parseStoredTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

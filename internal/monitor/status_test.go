package monitor

import (
	"errors"
	"testing"
)

func TestStatusTracker_Lifecycle(t *testing.T) {
	st := NewStatusTracker()

	if st.IsRunning() {
		t.Error("新建跟踪器不应处于运行状态")
	}

	if !st.Begin(3) {
		t.Fatal("首次Begin()应成功")
	}
	if !st.IsRunning() {
		t.Error("Begin()后应处于运行状态")
	}

	// 运行中拒绝再次开始
	if st.Begin(5) {
		t.Error("运行中的Begin()应被拒绝")
	}

	st.SetCurrent("测试站")
	st.Advance()
	st.Advance()

	status := st.Snapshot()
	if status.CurrentWebsite != "测试站" {
		t.Errorf("当前网站 = %q", status.CurrentWebsite)
	}
	if status.Progress != 2 || status.Total != 3 {
		t.Errorf("进度 = %d/%d, 期望 2/3", status.Progress, status.Total)
	}
	if status.StartedAt == nil {
		t.Error("开始时间不应为空")
	}

	st.Finish(nil)
	status = st.Snapshot()
	if status.IsRunning {
		t.Error("Finish()后不应处于运行状态")
	}
	if !status.Completed {
		t.Error("无错误结束应标记为已完成")
	}
	if status.CurrentWebsite != "" {
		t.Errorf("结束后当前网站应清空: %q", status.CurrentWebsite)
	}

	// 结束后可以开始新一轮
	if !st.Begin(1) {
		t.Error("结束后Begin()应成功")
	}
	st.Finish(errors.New("浏览器启动失败"))

	status = st.Snapshot()
	if status.Completed {
		t.Error("出错结束不应标记为已完成")
	}
	if status.Error != "浏览器启动失败" {
		t.Errorf("错误信息 = %q", status.Error)
	}
}

// 包 refresh：按周调度名称树的后台重新加载，运行在服务进程内
package refresh

import (
	"context"
	"strconv"
	"strings"
	"time"

	"addr-geo/internal/logger"
)

// nextMondayAt：计算 now 之后最近一个周一指定整点（不含当前已过时的当周）
// 约束：基于传入时区 loc 与整点 hour；仅前推至未来时间
func nextMondayAt(now time.Time, loc *time.Location, hour int) time.Time {
	now = now.In(loc)
	for i := 0; i <= 7; i++ {
		d := now.AddDate(0, 0, i)
		if d.Weekday() == time.Monday {
			t := time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc)
			if t.After(now) {
				return t
			}
		}
	}
	d := now.AddDate(0, 0, 7)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc)
}

// DefaultHour：未配置或配置无效时的刷新整点
const DefaultHour = 3

// ParseHour：解析 0..23 的整点；空串、非整数或越界时返回 def
func ParseHour(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !validHour(n) {
		return def
	}
	return n
}

func validHour(h int) bool { return h >= 0 && h <= 23 }

// firstRun：首次执行时间；hour 越界时按 DefaultHour
func firstRun(now time.Time, loc *time.Location, hour int) time.Time {
	if !validHour(hour) {
		hour = DefaultHour
	}
	return nextMondayAt(now, loc, hour)
}

// Location：金边时区；系统缺少时区数据时回退到固定的 UTC+7
func Location() *time.Location {
	if loc, err := time.LoadLocation("Asia/Phnom_Penh"); err == nil {
		return loc
	}
	return time.FixedZone("ICT", 7*60*60)
}

// 文档注释：每周一 hour 点执行 fn
// 背景：上游行政区划数据按周更新，服务端定期从产物或快照重新加载；错误由日志记录，任务继续调度。
// 约束：ctx 取消后停止；运行于后台协程，不阻塞调用方；hour 不在 0..23 时按 DefaultHour 调度并记录告警。
func StartWeekly(ctx context.Context, loc *time.Location, hour int, fn func(context.Context) error) {
	l := logger.L()
	if !validHour(hour) {
		l.Warn("refresh_hour_invalid", "hour", hour, "using", DefaultHour)
	}
	next := firstRun(time.Now(), loc, hour)
	l.Info("refresh_scheduled", "next", next)
	go func() {
		for {
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			l.Info("refresh_start", "at", next)
			if err := fn(ctx); err != nil {
				l.Error("refresh_error", "err", err)
			} else {
				l.Info("refresh_done")
			}
			next = next.AddDate(0, 0, 7)
		}
	}()
}

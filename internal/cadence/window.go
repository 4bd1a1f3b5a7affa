package cadence

// 打卡窗口计算：给定 due date 与窗口配置，求出本期窗口的开启/关闭时刻
// 所有函数都是纯函数，now 必须由调用方传入

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgerrors "CoachCheck/pkg/errors"
)

// Window 打卡窗口配置（持久化在 series / occurrence 上的 JSON 形态）
type Window struct {
	Enabled   bool   `json:"enabled"`
	StartDay  string `json:"start_day"`  // "friday"
	StartTime string `json:"start_time"` // "10:00"
	EndDay    string `json:"end_day"`
	EndTime   string `json:"end_time"`
}

// DefaultWindow 系统默认窗口：周五 10:00 开启，周一 22:00 关闭
func DefaultWindow() Window {
	return Window{
		Enabled:   true,
		StartDay:  "friday",
		StartTime: "10:00",
		EndDay:    "monday",
		EndTime:   "22:00",
	}
}

// Validate 校验窗口配置，禁用的窗口不做校验
func (w Window) Validate() error {
	_, err := resolve(w)
	return err
}

// Config 计算引擎配置，由 config 包构造后显式传入
type Config struct {
	DefaultWindow Window
	// LateGrace 窗口关闭后仍接受（迟交）提交的时长
	LateGrace time.Duration
}

// DefaultConfig 返回内置默认配置
func DefaultConfig() Config {
	return Config{
		DefaultWindow: DefaultWindow(),
		LateGrace:     24 * time.Hour,
	}
}

// Bounds 某一期 occurrence 对应窗口的绝对时刻
type Bounds struct {
	Enabled   bool      `json:"enabled"`
	OpensAt   time.Time `json:"opens_at"`
	ClosesAt  time.Time `json:"closes_at"`
	LateUntil time.Time `json:"late_until"`
}

// WindowStatus 窗口在 now 时刻的状态
type WindowStatus struct {
	Bounds
	Open       bool       `json:"open"`
	Late       bool       `json:"late"`
	Message    string     `json:"message"`
	NextOpenAt *time.Time `json:"next_open_at,omitempty"`
}

// Evaluator 窗口计算器，持有默认窗口等配置，不可变，可并发使用
type Evaluator struct {
	cfg      Config
	def      shape
	geometry shape // 窗口被禁用时用于推算下一期的形状
}

// NewEvaluator 创建计算器，默认窗口非法时返回 ConfigurationError
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if cfg.LateGrace < 0 {
		return nil, fmt.Errorf("%w: late grace must not be negative", pkgerrors.WindowConfigInvalid)
	}

	def, err := resolve(cfg.DefaultWindow)
	if err != nil {
		return nil, fmt.Errorf("default window: %w", err)
	}

	geometry := def
	if !geometry.enabled {
		geometry, _ = resolve(DefaultWindow())
	}

	return &Evaluator{cfg: cfg, def: def, geometry: geometry}, nil
}

// MustEvaluator 用于默认配置等不会出错的场景
func MustEvaluator(cfg Config) *Evaluator {
	ev, err := NewEvaluator(cfg)
	if err != nil {
		panic(err)
	}
	return ev
}

// Config 返回计算器使用的配置
func (e *Evaluator) Config() Config {
	return e.cfg
}

// StartDay 默认窗口的开启日，用于新客户首期对齐
func (e *Evaluator) StartDay() time.Weekday {
	return e.geometry.startDay
}

// Compute 计算 due date 所在期的窗口边界
// w 为 nil 时使用默认窗口；窗口禁用时返回 Enabled=false 的零值边界
func (e *Evaluator) Compute(due time.Time, w *Window) (Bounds, error) {
	s, err := e.shapeFor(w)
	if err != nil {
		return Bounds{}, err
	}
	if !s.enabled {
		return Bounds{}, nil
	}

	opens, closes := s.bounds(due)
	return Bounds{
		Enabled:   true,
		OpensAt:   opens,
		ClosesAt:  closes,
		LateUntil: closes.Add(e.cfg.LateGrace),
	}, nil
}

// CloseFor 返回覆盖该 due date 的窗口的关闭时刻，窗口禁用时 ok=false
func (e *Evaluator) CloseFor(due time.Time, w *Window) (closesAt time.Time, ok bool, err error) {
	b, err := e.Compute(due, w)
	if err != nil || !b.Enabled {
		return time.Time{}, false, err
	}
	return b.ClosesAt, true, nil
}

// Status 判断 now 时刻该期窗口是否接受提交
func (e *Evaluator) Status(due time.Time, w *Window, now time.Time) (WindowStatus, error) {
	b, err := e.Compute(due, w)
	if err != nil {
		return WindowStatus{}, err
	}

	if !b.Enabled {
		return WindowStatus{Open: true, Message: "Check-ins are accepted at any time"}, nil
	}

	st := WindowStatus{Bounds: b}
	switch {
	case now.Before(b.OpensAt):
		next := b.OpensAt
		st.NextOpenAt = &next
		st.Message = "Check-in window opens " + describe(b.OpensAt)
	case !now.After(b.ClosesAt):
		st.Open = true
		st.Message = "Check-in window is open until " + describe(b.ClosesAt)
	case !now.After(b.LateUntil):
		st.Open = true
		st.Late = true
		st.Message = fmt.Sprintf("Check-in window closed %s; late check-ins are accepted until %s",
			describe(b.ClosesAt), describe(b.LateUntil))
	default:
		next := b.OpensAt.AddDate(0, 0, 7)
		st.NextOpenAt = &next
		st.Message = "Check-in window closed. Next window opens " + describe(next)
	}

	return st, nil
}

// StatusNow 没有 due date 时的全局查询：把 now 当作 due date，结果是近似值
func (e *Evaluator) StatusNow(w *Window, now time.Time) (WindowStatus, error) {
	return e.Status(now, w, now)
}

func (e *Evaluator) shapeFor(w *Window) (shape, error) {
	if w == nil {
		return e.def, nil
	}
	return resolve(*w)
}

// ────────────────────── 窗口形状 ──────────────────────

// shape 解析后的窗口，时间以当天秒数表示
type shape struct {
	enabled  bool
	startDay time.Weekday
	endDay   time.Weekday
	startSec int
	endSec   int
}

func resolve(w Window) (shape, error) {
	if !w.Enabled {
		return shape{}, nil
	}

	startDay, err := ParseWeekday(w.StartDay)
	if err != nil {
		return shape{}, err
	}
	endDay, err := ParseWeekday(w.EndDay)
	if err != nil {
		return shape{}, err
	}
	startSec, err := ParseClock(w.StartTime)
	if err != nil {
		return shape{}, err
	}
	endSec, err := ParseClock(w.EndTime)
	if err != nil {
		return shape{}, err
	}

	return shape{
		enabled:  true,
		startDay: startDay,
		endDay:   endDay,
		startSec: startSec,
		endSec:   endSec,
	}, nil
}

// wraps 窗口是否跨越周日/周一边界
// 同一天且结束时间不晚于开始时间时，视为跨整周（下一个同名日关闭）
func (s shape) wraps() bool {
	start, end := isoDay(s.startDay), isoDay(s.endDay)
	if end < start {
		return true
	}
	return start == end && s.endSec <= s.startSec
}

// span 开启日到关闭日的天数
func (s shape) span() int {
	days := (isoDay(s.endDay) - isoDay(s.startDay) + 7) % 7
	if days == 0 && s.endSec <= s.startSec {
		return 7
	}
	return days
}

// openingDay 覆盖 due date 的那一期窗口的开启日（当天 00:00）
// 不跨周：due date 所在 ISO 周内的开启日
// 跨周：due date 当天或之前最近的一个开启日
func (s shape) openingDay(due time.Time) time.Time {
	day := dateOf(due)
	if s.wraps() {
		back := (isoDay(day.Weekday()) - isoDay(s.startDay) + 7) % 7
		return day.AddDate(0, 0, -back)
	}
	return WeekAnchor(due).AddDate(0, 0, isoDay(s.startDay)-1)
}

func (s shape) bounds(due time.Time) (opens, closes time.Time) {
	day := s.openingDay(due)
	opens = atClock(day, s.startSec)
	closes = atClock(day.AddDate(0, 0, s.span()), s.endSec)
	return opens, closes
}

// ────────────────────── 日期工具 ──────────────────────

// WeekAnchor 返回 t 所在 ISO 周的周一 00:00（周日算作上一周的第 7 天）
func WeekAnchor(t time.Time) time.Time {
	day := dateOf(t)
	return day.AddDate(0, 0, -(isoDay(day.Weekday()) - 1))
}

func isoDay(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func atClock(day time.Time, sec int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), sec/3600, sec%3600/60, sec%60, 0, day.Location())
}

func describe(t time.Time) string {
	return t.Weekday().String() + " at " + t.Format("3:04 PM")
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday 解析 "friday" / "Fri" 等星期名，未知名称返回 ConfigurationError
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return time.Sunday, fmt.Errorf("%w: unknown weekday %q", pkgerrors.WindowConfigInvalid, s)
	}
	return wd, nil
}

// ParseClock 解析 "HH:MM"（可带 ":SS"），返回当天秒数
// 缺失的分量按 0 处理，非数字或越界返回 ConfigurationError
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: malformed time %q", pkgerrors.WindowConfigInvalid, s)
	}

	limits := [3]uint64{23, 59, 59}
	var fields [3]int
	for i, p := range parts {
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil || n > limits[i] {
			return 0, fmt.Errorf("%w: malformed time %q", pkgerrors.WindowConfigInvalid, s)
		}
		fields[i] = int(n)
	}

	return fields[0]*3600 + fields[1]*60 + fields[2], nil
}

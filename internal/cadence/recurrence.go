package cadence

import (
	"fmt"
	"strings"
	"time"

	pkgerrors "CoachCheck/pkg/errors"
)

// Frequency 相邻两期 due date 的间隔
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// ParseFrequency 解析频率字符串
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown frequency %q", pkgerrors.ScheduleInvalid, s)
	}
}

// OccurrenceStatus 单期打卡状态
type OccurrenceStatus string

const (
	OccurrenceStatusPending   OccurrenceStatus = "pending"
	OccurrenceStatusCompleted OccurrenceStatus = "completed"
	OccurrenceStatusOverdue   OccurrenceStatus = "overdue"
)

// SeriesKey 一个客户对一份表单只有一组打卡序列
type SeriesKey struct {
	ClientID int64
	FormID   int64
}

// RecurrenceSpec 生成序列的输入，本身不持久化
type RecurrenceSpec struct {
	Key                 SeriesKey
	StartDate           time.Time
	FirstOccurrenceDate time.Time
	Frequency           Frequency
	OccurrenceCount     int
	Window              Window
}

// Occurrence 序列中的一期
type Occurrence struct {
	Key             SeriesKey
	DueDate         time.Time
	Window          *Window
	RecurrenceIndex int
	RecurrenceTotal int
	Status          OccurrenceStatus
}

// Validate 校验排期参数，任何一项不合法都不产生输出
func (s RecurrenceSpec) Validate() error {
	if s.OccurrenceCount < 1 {
		return fmt.Errorf("%w: occurrence count must be at least 1, got %d", pkgerrors.ScheduleInvalid, s.OccurrenceCount)
	}
	if s.FirstOccurrenceDate.IsZero() {
		return fmt.Errorf("%w: first occurrence date is required", pkgerrors.ScheduleInvalid)
	}

	loc := s.FirstOccurrenceDate.Location()
	if !s.StartDate.IsZero() && dateOf(s.FirstOccurrenceDate).Before(dateOf(s.StartDate.In(loc))) {
		return fmt.Errorf("%w: first occurrence %s is before start date %s", pkgerrors.ScheduleInvalid,
			s.FirstOccurrenceDate.Format("2006-01-02"), s.StartDate.In(loc).Format("2006-01-02"))
	}

	if _, err := ParseFrequency(string(s.Frequency)); err != nil {
		return err
	}

	return s.Window.Validate()
}

// Generate 按排期生成全部 occurrence
// 同一 (client, form) 已有序列时原样返回，重复调用不会产生第二组序列
func Generate(spec RecurrenceSpec, existing []Occurrence) ([]Occurrence, error) {
	if current := filterSeries(existing, spec.Key); len(current) > 0 {
		return current, nil
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	out := make([]Occurrence, 0, spec.OccurrenceCount)
	for k := 1; k <= spec.OccurrenceCount; k++ {
		w := spec.Window
		out = append(out, Occurrence{
			Key:             spec.Key,
			DueDate:         DueDateAt(spec.FirstOccurrenceDate, spec.Frequency, k-1),
			Window:          &w,
			RecurrenceIndex: k,
			RecurrenceTotal: spec.OccurrenceCount,
			Status:          OccurrenceStatusPending,
		})
	}

	return out, nil
}

// DueDateAt 第 n 个周期后的 due date（n 从 0 开始）
// 按月时保持首期的日号，遇到较短的月份取当月最后一天
func DueDateAt(first time.Time, freq Frequency, n int) time.Time {
	switch freq {
	case FrequencyBiweekly:
		return first.AddDate(0, 0, 14*n)
	case FrequencyMonthly:
		return addMonthsClamped(first, n)
	default:
		return first.AddDate(0, 0, 7*n)
	}
}

// AlignFirstOccurrence 新客户首期对齐：
// 首期本身落在开启日则不变；否则今天是开启日时排在今天（立刻可打卡）；
// 再否则顺延到下一个开启日
func AlignFirstOccurrence(nominal, today time.Time, startDay time.Weekday) time.Time {
	if nominal.Weekday() == startDay {
		return nominal
	}

	t := today.In(nominal.Location())
	if t.Weekday() == startDay {
		return time.Date(t.Year(), t.Month(), t.Day(),
			nominal.Hour(), nominal.Minute(), nominal.Second(), 0, nominal.Location())
	}

	ahead := (int(startDay) - int(nominal.Weekday()) + 7) % 7
	return nominal.AddDate(0, 0, ahead)
}

func filterSeries(existing []Occurrence, key SeriesKey) []Occurrence {
	var out []Occurrence
	for _, occ := range existing {
		if occ.Key == key {
			out = append(out, occ)
		}
	}
	return out
}

func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

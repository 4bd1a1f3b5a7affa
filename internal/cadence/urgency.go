package cadence

import "time"

// Urgency 时间紧迫度分区（与答题得分的红黄绿无关）
type Urgency string

const (
	UrgencyOnTrack     Urgency = "on_track"
	UrgencyClosingSoon Urgency = "closing_soon"
	UrgencyOverdue     Urgency = "overdue"
)

const (
	// overdueAfter due date 过去这么久之后无条件判定为逾期
	overdueAfter = 24 * time.Hour
	// closingBand 窗口关闭前后这个区间内判定为即将关闭
	closingBand = 24 * time.Hour
)

// Rank 用于比较紧迫度，数值越大越紧急
func (u Urgency) Rank() int {
	switch u {
	case UrgencyOnTrack:
		return 0
	case UrgencyClosingSoon:
		return 1
	case UrgencyOverdue:
		return 2
	default:
		return -1
	}
}

// Classify 按顺序判定紧迫度，先命中先返回：
//  1. due date 已过去 >= 24h：逾期（优先于窗口规则，窗口禁用也一样）
//  2. 没有生效的窗口：due date 已过为即将关闭，否则正常
//  3. 有窗口：关闭前后 24h 内为即将关闭，关闭超过 24h 为逾期
func (e *Evaluator) Classify(due time.Time, w *Window, now time.Time) (Urgency, error) {
	sinceDue := now.Sub(due)
	if sinceDue >= overdueAfter {
		return UrgencyOverdue, nil
	}

	closesAt, ok, err := e.CloseFor(due, w)
	if err != nil {
		return "", err
	}

	if !ok {
		if sinceDue > 0 {
			return UrgencyClosingSoon, nil
		}
		return UrgencyOnTrack, nil
	}

	untilClose := closesAt.Sub(now)
	switch {
	case untilClose < -closingBand:
		return UrgencyOverdue, nil
	case untilClose <= closingBand:
		return UrgencyClosingSoon, nil
	default:
		return UrgencyOnTrack, nil
	}
}

package cadence

import "time"

// NextWindowHasOpened 判断下一期的窗口是否已经开启
// 外部定时任务据此把仍为 pending 的本期标记为逾期
//
// 下一期窗口 = 本期窗口开启时刻 + 7 天；默认窗口下即 week anchor + 4 天 10:00。
// 窗口被禁用时按默认窗口的形状推算。
func (e *Evaluator) NextWindowHasOpened(due time.Time, w *Window, now time.Time) (bool, error) {
	s, err := e.shapeFor(w)
	if err != nil {
		return false, err
	}
	if !s.enabled {
		s = e.geometry
	}

	opens, _ := s.bounds(due)
	return !now.Before(opens.AddDate(0, 0, 7)), nil
}

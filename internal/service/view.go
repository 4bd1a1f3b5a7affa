package service

import (
	"time"

	"CoachCheck/internal/cadence"
	"CoachCheck/internal/model"
	"CoachCheck/internal/model/dto"
)

// buildView 计算某期在 now 时刻的窗口状态与紧迫度
func buildView(ev *cadence.Evaluator, o *model.CheckInOccurrence, loc *time.Location, now time.Time) (dto.OccurrenceView, error) {
	w, err := o.WindowConfig()
	if err != nil {
		return dto.OccurrenceView{}, err
	}

	due := o.DueDate.In(loc)
	status, err := ev.Status(due, w, now)
	if err != nil {
		return dto.OccurrenceView{}, err
	}

	view := dto.OccurrenceView{
		DueDate:         due,
		CompletedAt:     o.CompletedAt,
		Window:          status,
		ID:              o.PublicID,
		Status:          o.Status,
		RecurrenceIndex: o.RecurrenceIndex,
		RecurrenceTotal: o.RecurrenceTotal,
		Late:            o.Late,
	}

	if cadence.OccurrenceStatus(o.Status) == cadence.OccurrenceStatusPending {
		if view.Urgency, err = ev.Classify(due, w, now); err != nil {
			return dto.OccurrenceView{}, err
		}
	}

	return view, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"CoachCheck/internal/cadence"
	"CoachCheck/internal/model"
	pkgerrors "CoachCheck/pkg/errors"
)

// openingSlack 窗口开启时刻与 due date 之间的最大距离
const openingSlack = 7 * 24 * time.Hour

type occurrenceRepository struct {
	db *gorm.DB
}

func (r *occurrenceRepository) ListBySeriesKey(ctx context.Context, key cadence.SeriesKey) ([]*model.CheckInOccurrence, error) {
	var items []*model.CheckInOccurrence
	if err := r.db.WithContext(ctx).
		Where("client_id = ? AND form_id = ?", key.ClientID, key.FormID).
		Order("recurrence_index ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list occurrences by series: %w", err)
	}
	return items, nil
}

func (r *occurrenceRepository) CreateSeries(ctx context.Context, series *model.CheckInSeries, occurrences []*model.CheckInOccurrence) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(series).Error; err != nil {
			return err
		}
		for _, o := range occurrences {
			o.SeriesID = series.ID
		}
		if len(occurrences) == 0 {
			return nil
		}
		return tx.CreateInBatches(occurrences, 100).Error
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: client %d form %d", pkgerrors.SeriesAlreadyAssigned, series.ClientID, series.FormID)
	}
	if err != nil {
		return fmt.Errorf("create check-in series: %w", err)
	}
	return nil
}

func (r *occurrenceRepository) GetByPublicID(ctx context.Context, publicID string) (*model.CheckInOccurrence, error) {
	var o model.CheckInOccurrence
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).Take(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", pkgerrors.CheckInNotFound, publicID)
	}
	if err != nil {
		return nil, fmt.Errorf("query occurrence: %w", err)
	}
	return &o, nil
}

func (r *occurrenceRepository) ListByClient(ctx context.Context, clientID int64) ([]*model.CheckInOccurrence, error) {
	var items []*model.CheckInOccurrence
	if err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("due_date ASC, recurrence_index ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list occurrences by client: %w", err)
	}
	return items, nil
}

func (r *occurrenceRepository) ListPendingByClients(ctx context.Context, clientIDs []int64) ([]*model.CheckInOccurrence, error) {
	if len(clientIDs) == 0 {
		return nil, nil
	}

	var items []*model.CheckInOccurrence
	if err := r.db.WithContext(ctx).
		Where("client_id IN ? AND status = ?", clientIDs, string(cadence.OccurrenceStatusPending)).
		Order("due_date ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list pending occurrences: %w", err)
	}
	return items, nil
}

func (r *occurrenceRepository) ListPendingDueBefore(ctx context.Context, before time.Time, afterID int64, limit int) ([]*model.CheckInOccurrence, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ? AND id > ?", string(cadence.OccurrenceStatusPending), before, afterID).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var items []*model.CheckInOccurrence
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list pending occurrences due before %s: %w", before.Format(time.RFC3339), err)
	}
	return items, nil
}

func (r *occurrenceRepository) ListOpeningBetween(ctx context.Context, from, to time.Time) ([]*model.CheckInOccurrence, error) {
	var items []*model.CheckInOccurrence
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due_date >= ? AND due_date < ?",
			string(cadence.OccurrenceStatusPending), from.Add(-openingSlack), to.Add(openingSlack)).
		Order("due_date ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list occurrences opening soon: %w", err)
	}
	return items, nil
}

func (r *occurrenceRepository) MarkOverdue(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.transition(ctx, id, map[string]interface{}{
		"status":    string(cadence.OccurrenceStatusOverdue),
		"missed_at": at,
	})
}

func (r *occurrenceRepository) MarkCompleted(ctx context.Context, id int64, at time.Time, late bool) (bool, error) {
	return r.transition(ctx, id, map[string]interface{}{
		"status":       string(cadence.OccurrenceStatusCompleted),
		"completed_at": at,
		"late":         late,
	})
}

// transition 以 status = pending 作为条件更新，避免提交与漏打扫描互相覆盖
func (r *occurrenceRepository) transition(ctx context.Context, id int64, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.CheckInOccurrence{}).
		Where("id = ? AND status = ?", id, string(cadence.OccurrenceStatusPending)).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("update occurrence %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

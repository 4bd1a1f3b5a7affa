package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"CoachCheck/internal/cache"
	"CoachCheck/internal/cadence"
	"CoachCheck/internal/model"
	"CoachCheck/internal/model/dto"
	"CoachCheck/internal/repository"
	"CoachCheck/pkg/errors"
	"CoachCheck/pkg/metrics"
	"CoachCheck/pkg/snowflake"
)

const allocationLockTTL = 30 * time.Second

// AllocationService 教练为客户分配打卡序列
type AllocationService struct {
	repo    *repository.Repository
	ev      *cadence.Evaluator
	locker  Locker
	ids     snowflake.IDGenerator
	metrics *metrics.CheckInMetrics
	loc     *time.Location
	logger  *zap.Logger
}

func NewAllocationService(
	repo *repository.Repository,
	ev *cadence.Evaluator,
	locker Locker,
	ids snowflake.IDGenerator,
	m *metrics.CheckInMetrics,
	loc *time.Location,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{repo: repo, ev: ev, locker: locker, ids: ids, metrics: m, loc: loc, logger: logger}
}

// Allocate 为 (client, form) 生成整组打卡
// 表单或客户不存在时在写入前失败；同一 key 已有序列时原样返回
func (s *AllocationService) Allocate(ctx context.Context, coachPublicID string, req dto.AllocateRequest, now time.Time) (*dto.AllocateResponse, error) {
	coach, err := s.repo.Coaches.GetByPublicID(ctx, coachPublicID)
	if err != nil {
		return nil, err
	}

	client, err := s.repo.Clients.GetByPublicID(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if client.CoachID != coach.ID {
		return nil, fmt.Errorf("%w: client %s belongs to another coach", errors.Forbidden, req.ClientID)
	}

	form, err := s.repo.Forms.GetByPublicID(ctx, req.FormID)
	if err != nil {
		return nil, err
	}
	if form.CoachID != coach.ID {
		return nil, fmt.Errorf("%w: form %s belongs to another coach", errors.Forbidden, req.FormID)
	}

	loc := client.Location(s.loc)
	spec, err := s.buildSpec(client, form, req, loc, now)
	if err != nil {
		return nil, err
	}

	lock, err := s.locker.TryLock(ctx, cache.AllocationLockName(spec.Key), allocationLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire allocation lock: %w", err)
	}
	if lock == nil {
		return nil, fmt.Errorf("%w: client %s form %s", errors.AllocationInProgress, req.ClientID, req.FormID)
	}
	defer func() {
		if err := s.locker.Unlock(ctx, lock); err != nil {
			s.logger.Warn("Failed to release allocation lock", zap.Error(err))
		}
	}()

	existing, err := s.repo.Occurrences.ListBySeriesKey(ctx, spec.Key)
	if err != nil {
		return nil, err
	}

	if len(existing) > 0 {
		s.logger.Info("Series already allocated, returning existing occurrences",
			zap.Int64("client_id", client.ID),
			zap.Int64("form_id", form.ID),
			zap.Int("count", len(existing)),
		)
		return s.respond("", existing, loc, now, false)
	}

	occurrences, err := cadence.Generate(spec, nil)
	if err != nil {
		return nil, err
	}

	series, rows, err := s.toModels(spec, occurrences, req.Window == nil)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Occurrences.CreateSeries(ctx, series, rows); err != nil {
		return nil, err
	}

	if req.Onboarding {
		if err := s.repo.Clients.MarkOnboarded(ctx, client.ID, now); err != nil {
			s.logger.Warn("Failed to mark client onboarded", zap.Int64("client_id", client.ID), zap.Error(err))
		}
	}

	s.metrics.RecordGenerated(ctx, string(spec.Frequency), len(rows))
	s.logger.Info("Allocated check-in series",
		zap.String("series_id", series.PublicID),
		zap.Int64("client_id", client.ID),
		zap.Int64("form_id", form.ID),
		zap.String("frequency", string(spec.Frequency)),
		zap.Int("count", len(rows)),
		zap.Time("first_due", spec.FirstOccurrenceDate),
	)

	return s.respond(series.PublicID, rows, loc, now, true)
}

// AllocateOnboarding 新客户首期对齐到窗口开启日后再分配
func (s *AllocationService) AllocateOnboarding(ctx context.Context, coachPublicID string, req dto.AllocateRequest, now time.Time) (*dto.AllocateResponse, error) {
	req.Onboarding = true
	return s.Allocate(ctx, coachPublicID, req, now)
}

func (s *AllocationService) buildSpec(client *model.Client, form *model.Form, req dto.AllocateRequest, loc *time.Location, now time.Time) (cadence.RecurrenceSpec, error) {
	start, err := cadence.NormalizeTimeIn(req.StartDate, loc)
	if err != nil {
		return cadence.RecurrenceSpec{}, fmt.Errorf("start_date: %w", err)
	}

	first := start
	if req.FirstOccurrenceDate != nil {
		if first, err = cadence.NormalizeTimeIn(req.FirstOccurrenceDate, loc); err != nil {
			return cadence.RecurrenceSpec{}, fmt.Errorf("first_occurrence_date: %w", err)
		}
	}

	freq, err := cadence.ParseFrequency(req.Frequency)
	if err != nil {
		return cadence.RecurrenceSpec{}, err
	}

	window := s.ev.Config().DefaultWindow
	if req.Window != nil {
		window = *req.Window
	}

	if req.Onboarding {
		startDay, err := s.alignmentDay(window)
		if err != nil {
			return cadence.RecurrenceSpec{}, err
		}
		// 今天早于开始日期时以开始日期为准，避免首期落在开始日期之前
		today := now.In(loc)
		if today.Before(start) {
			today = start
		}
		first = cadence.AlignFirstOccurrence(first, today, startDay)
	}

	return cadence.RecurrenceSpec{
		Key:                 cadence.SeriesKey{ClientID: client.ID, FormID: form.ID},
		StartDate:           start,
		FirstOccurrenceDate: first,
		Frequency:           freq,
		OccurrenceCount:     req.OccurrenceCount,
		Window:              window,
	}, nil
}

// alignmentDay 启用的自定义窗口按它的开启日对齐，否则按默认窗口
func (s *AllocationService) alignmentDay(w cadence.Window) (time.Weekday, error) {
	if !w.Enabled {
		return s.ev.StartDay(), nil
	}
	return cadence.ParseWeekday(w.StartDay)
}

func (s *AllocationService) toModels(spec cadence.RecurrenceSpec, occurrences []cadence.Occurrence, useDefaultWindow bool) (*model.CheckInSeries, []*model.CheckInOccurrence, error) {
	seriesID, err := s.ids.NextID()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate series ID: %w", err)
	}
	seriesPublicID, err := s.ids.NextPublicID()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate series public ID: %w", err)
	}

	series := &model.CheckInSeries{
		BaseModel:           model.BaseModel{ID: seriesID},
		StartDate:           spec.StartDate,
		FirstOccurrenceDate: spec.FirstOccurrenceDate,
		Window:              datatypes.NewJSONType(spec.Window),
		PublicID:            seriesPublicID,
		Frequency:           string(spec.Frequency),
		ClientID:            spec.Key.ClientID,
		FormID:              spec.Key.FormID,
		OccurrenceCount:     spec.OccurrenceCount,
	}

	rows := make([]*model.CheckInOccurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		id, err := s.ids.NextID()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate occurrence ID: %w", err)
		}
		publicID, err := s.ids.NextPublicID()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate occurrence public ID: %w", err)
		}

		row := &model.CheckInOccurrence{
			BaseModel:       model.BaseModel{ID: id},
			DueDate:         occ.DueDate,
			PublicID:        publicID,
			Status:          string(occ.Status),
			SeriesID:        seriesID,
			ClientID:        occ.Key.ClientID,
			FormID:          occ.Key.FormID,
			RecurrenceIndex: occ.RecurrenceIndex,
			RecurrenceTotal: occ.RecurrenceTotal,
		}
		// 未指定窗口的序列不落库窗口，默认窗口调整后自动生效
		if !useDefaultWindow {
			if err := row.SetWindow(occ.Window); err != nil {
				return nil, nil, err
			}
		}
		rows = append(rows, row)
	}

	return series, rows, nil
}

func (s *AllocationService) respond(seriesID string, rows []*model.CheckInOccurrence, loc *time.Location, now time.Time, created bool) (*dto.AllocateResponse, error) {
	resp := &dto.AllocateResponse{
		SeriesID:    seriesID,
		Occurrences: make([]dto.OccurrenceView, 0, len(rows)),
		Created:     created,
	}
	for _, row := range rows {
		view, err := buildView(s.ev, row, loc, now)
		if err != nil {
			return nil, err
		}
		resp.Occurrences = append(resp.Occurrences, view)
	}
	return resp, nil
}

package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"CoachCheck/internal/cadence"
	"CoachCheck/internal/model"
	"CoachCheck/internal/model/dto"
	"CoachCheck/internal/repository"
	"CoachCheck/pkg/errors"
	"CoachCheck/pkg/metrics"
)

// CheckInService 客户打卡：列表、窗口状态、提交，以及教练总览
type CheckInService struct {
	repo    *repository.Repository
	ev      *cadence.Evaluator
	metrics *metrics.CheckInMetrics
	loc     *time.Location
	logger  *zap.Logger
}

func NewCheckInService(
	repo *repository.Repository,
	ev *cadence.Evaluator,
	m *metrics.CheckInMetrics,
	loc *time.Location,
	logger *zap.Logger,
) *CheckInService {
	return &CheckInService{repo: repo, ev: ev, metrics: m, loc: loc, logger: logger}
}

// ListForClient 客户的全部打卡期，附带窗口状态与紧迫度
func (s *CheckInService) ListForClient(ctx context.Context, clientPublicID string, now time.Time) (*dto.ListCheckInsResponse, error) {
	client, err := s.repo.Clients.GetByPublicID(ctx, clientPublicID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Occurrences.ListByClient(ctx, client.ID)
	if err != nil {
		return nil, err
	}

	loc := client.Location(s.loc)
	resp := &dto.ListCheckInsResponse{Items: make([]dto.OccurrenceView, 0, len(rows))}
	for _, row := range rows {
		view, err := buildView(s.ev, row, loc, now)
		if err != nil {
			return nil, err
		}
		resp.Items = append(resp.Items, view)
	}

	return resp, nil
}

// GetWindowStatus 单期的窗口状态
func (s *CheckInService) GetWindowStatus(ctx context.Context, clientPublicID, occurrencePublicID string, now time.Time) (*dto.OccurrenceView, error) {
	client, occ, err := s.loadOwned(ctx, clientPublicID, occurrencePublicID)
	if err != nil {
		return nil, err
	}

	view, err := buildView(s.ev, occ, client.Location(s.loc), now)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Complete 提交打卡
// 窗口未开启或已过迟交期限返回 CHECK_IN_WINDOW_CLOSED，已提交返回 CHECK_IN_ALREADY_DONE
func (s *CheckInService) Complete(ctx context.Context, clientPublicID, occurrencePublicID string, now time.Time) (*dto.CompleteCheckInResponse, error) {
	client, occ, err := s.loadOwned(ctx, clientPublicID, occurrencePublicID)
	if err != nil {
		return nil, err
	}

	switch cadence.OccurrenceStatus(occ.Status) {
	case cadence.OccurrenceStatusCompleted:
		return nil, fmt.Errorf("%w: %s", errors.CheckInAlreadyDone, occ.PublicID)
	case cadence.OccurrenceStatusOverdue:
		return nil, fmt.Errorf("%w: check-in %s was missed", errors.CheckInWindowClosed, occ.PublicID)
	}

	w, err := occ.WindowConfig()
	if err != nil {
		return nil, err
	}

	status, err := s.ev.Status(occ.DueDate.In(client.Location(s.loc)), w, now)
	if err != nil {
		return nil, err
	}
	if !status.Open {
		return nil, fmt.Errorf("%w: %s", errors.CheckInWindowClosed, status.Message)
	}

	ok, err := s.repo.Occurrences.MarkCompleted(ctx, occ.ID, now, status.Late)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 并发提交或漏打扫描先一步修改了状态
		return nil, fmt.Errorf("%w: %s", errors.CheckInAlreadyDone, occ.PublicID)
	}

	s.metrics.RecordSubmission(ctx, status.Late)
	s.logger.Info("Check-in completed",
		zap.String("occurrence_id", occ.PublicID),
		zap.Int64("client_id", client.ID),
		zap.Bool("late", status.Late),
	)

	return &dto.CompleteCheckInResponse{
		CompletedAt: now,
		ID:          occ.PublicID,
		Status:      string(cadence.OccurrenceStatusCompleted),
		Late:        status.Late,
	}, nil
}

// CoachOverview 教练名下每个客户 pending 期的紧迫度分布
func (s *CheckInService) CoachOverview(ctx context.Context, coachPublicID string, now time.Time) (*dto.CoachOverviewResponse, error) {
	coach, err := s.repo.Coaches.GetByPublicID(ctx, coachPublicID)
	if err != nil {
		return nil, err
	}

	clients, err := s.repo.Clients.ListByCoach(ctx, coach.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(clients))
	byID := make(map[int64]*dto.ClientOverview, len(clients))
	locs := make(map[int64]*time.Location, len(clients))
	overview := make([]*dto.ClientOverview, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, c.ID)
		item := &dto.ClientOverview{ClientID: c.PublicID, DisplayName: c.DisplayName}
		byID[c.ID] = item
		locs[c.ID] = c.Location(s.loc)
		overview = append(overview, item)
	}

	pending, err := s.repo.Occurrences.ListPendingByClients(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, occ := range pending {
		item, ok := byID[occ.ClientID]
		if !ok {
			continue
		}

		urgency, err := s.classify(occ, locs[occ.ClientID], now)
		if err != nil {
			s.logger.Warn("Skipping occurrence with invalid window",
				zap.String("occurrence_id", occ.PublicID),
				zap.Error(err),
			)
			continue
		}
		s.metrics.RecordUrgency(ctx, string(urgency))

		switch urgency {
		case cadence.UrgencyOnTrack:
			item.OnTrack++
		case cadence.UrgencyClosingSoon:
			item.ClosingSoon++
		case cadence.UrgencyOverdue:
			item.Overdue++
		}
		if urgency.Rank() > item.Worst.Rank() {
			item.Worst = urgency
		}
	}

	// 最紧急的客户排在前面
	sort.SliceStable(overview, func(i, j int) bool {
		return overview[i].Worst.Rank() > overview[j].Worst.Rank()
	})

	resp := &dto.CoachOverviewResponse{GeneratedAt: now, Clients: make([]dto.ClientOverview, 0, len(overview))}
	for _, item := range overview {
		resp.Clients = append(resp.Clients, *item)
	}
	return resp, nil
}

// CurrentWindow 不针对具体某期的默认窗口状态，按当前时刻近似计算
func (s *CheckInService) CurrentWindow(now time.Time) (cadence.WindowStatus, error) {
	return s.ev.StatusNow(nil, now.In(s.loc))
}

func (s *CheckInService) classify(occ *model.CheckInOccurrence, loc *time.Location, now time.Time) (cadence.Urgency, error) {
	w, err := occ.WindowConfig()
	if err != nil {
		return "", err
	}
	return s.ev.Classify(occ.DueDate.In(loc), w, now)
}

// loadOwned 只允许客户访问自己的打卡期，别人的按不存在处理
func (s *CheckInService) loadOwned(ctx context.Context, clientPublicID, occurrencePublicID string) (*model.Client, *model.CheckInOccurrence, error) {
	client, err := s.repo.Clients.GetByPublicID(ctx, clientPublicID)
	if err != nil {
		return nil, nil, err
	}

	occ, err := s.repo.Occurrences.GetByPublicID(ctx, occurrencePublicID)
	if err != nil {
		return nil, nil, err
	}
	if occ.ClientID != client.ID {
		return nil, nil, fmt.Errorf("%w: %s", errors.CheckInNotFound, occurrencePublicID)
	}

	return client, occ, nil
}

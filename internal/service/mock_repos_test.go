package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"CoachCheck/internal/cache"
	"CoachCheck/internal/cadence"
	"CoachCheck/internal/model"
	"CoachCheck/internal/repository"
	"CoachCheck/pkg/errors"
)

// 内存版仓储，行为与 gorm 实现保持一致（状态条件更新、事务写入）

type memStore struct {
	mu          sync.Mutex
	coaches     map[string]*model.Coach
	clients     map[int64]*model.Client
	forms       map[string]*model.Form
	series      []*model.CheckInSeries
	occurrences []*model.CheckInOccurrence
	createErr   error
	sweepPages  int
}

func newMemStore() *memStore {
	return &memStore{
		coaches: map[string]*model.Coach{},
		clients: map[int64]*model.Client{},
		forms:   map[string]*model.Form{},
	}
}

func (m *memStore) repository() *repository.Repository {
	return &repository.Repository{
		Coaches:     memCoaches{m},
		Clients:     memClients{m},
		Forms:       memForms{m},
		Occurrences: memOccurrences{m},
	}
}

func (m *memStore) addCoach(id int64, publicID string) *model.Coach {
	c := &model.Coach{BaseModel: model.BaseModel{ID: id}, PublicID: publicID, DisplayName: publicID}
	m.coaches[publicID] = c
	return c
}

func (m *memStore) addClient(id, coachID int64, publicID, tz string) *model.Client {
	c := &model.Client{BaseModel: model.BaseModel{ID: id}, PublicID: publicID, DisplayName: publicID, Timezone: tz, CoachID: coachID}
	m.clients[id] = c
	return c
}

func (m *memStore) addForm(id, coachID int64, publicID string) *model.Form {
	f := &model.Form{BaseModel: model.BaseModel{ID: id}, PublicID: publicID, Title: publicID, CoachID: coachID}
	m.forms[publicID] = f
	return f
}

func (m *memStore) addOccurrence(o *model.CheckInOccurrence) *model.CheckInOccurrence {
	if o.Status == "" {
		o.Status = string(cadence.OccurrenceStatusPending)
	}
	m.occurrences = append(m.occurrences, o)
	return o
}

func (m *memStore) occurrence(publicID string) *model.CheckInOccurrence {
	for _, o := range m.occurrences {
		if o.PublicID == publicID {
			return o
		}
	}
	return nil
}

type memCoaches struct{ m *memStore }

func (r memCoaches) GetByPublicID(_ context.Context, publicID string) (*model.Coach, error) {
	if c, ok := r.m.coaches[publicID]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: coach %s", errors.Unauthorized, publicID)
}

type memClients struct{ m *memStore }

func (r memClients) GetByID(_ context.Context, id int64) (*model.Client, error) {
	if c, ok := r.m.clients[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %d", errors.ClientNotFound, id)
}

func (r memClients) GetByPublicID(_ context.Context, publicID string) (*model.Client, error) {
	for _, c := range r.m.clients {
		if c.PublicID == publicID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", errors.ClientNotFound, publicID)
}

func (r memClients) ListByCoach(_ context.Context, coachID int64) ([]*model.Client, error) {
	var out []*model.Client
	for _, c := range r.m.clients {
		if c.CoachID == coachID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

func (r memClients) MarkOnboarded(_ context.Context, id int64, at time.Time) error {
	if c, ok := r.m.clients[id]; ok && c.OnboardedAt == nil {
		c.OnboardedAt = &at
	}
	return nil
}

type memForms struct{ m *memStore }

func (r memForms) GetByPublicID(_ context.Context, publicID string) (*model.Form, error) {
	if f, ok := r.m.forms[publicID]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", errors.FormNotFound, publicID)
}

type memOccurrences struct{ m *memStore }

func (r memOccurrences) ListBySeriesKey(_ context.Context, key cadence.SeriesKey) ([]*model.CheckInOccurrence, error) {
	var out []*model.CheckInOccurrence
	for _, o := range r.m.occurrences {
		if o.ClientID == key.ClientID && o.FormID == key.FormID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r memOccurrences) CreateSeries(_ context.Context, series *model.CheckInSeries, occurrences []*model.CheckInOccurrence) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.createErr != nil {
		return r.m.createErr
	}
	for _, s := range r.m.series {
		if s.ClientID == series.ClientID && s.FormID == series.FormID {
			return fmt.Errorf("%w: client %d form %d", errors.SeriesAlreadyAssigned, series.ClientID, series.FormID)
		}
	}
	r.m.series = append(r.m.series, series)
	r.m.occurrences = append(r.m.occurrences, occurrences...)
	return nil
}

func (r memOccurrences) GetByPublicID(_ context.Context, publicID string) (*model.CheckInOccurrence, error) {
	if o := r.m.occurrence(publicID); o != nil {
		return o, nil
	}
	return nil, fmt.Errorf("%w: %s", errors.CheckInNotFound, publicID)
}

func (r memOccurrences) ListByClient(_ context.Context, clientID int64) ([]*model.CheckInOccurrence, error) {
	var out []*model.CheckInOccurrence
	for _, o := range r.m.occurrences {
		if o.ClientID == clientID {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (r memOccurrences) ListPendingByClients(_ context.Context, clientIDs []int64) ([]*model.CheckInOccurrence, error) {
	want := map[int64]bool{}
	for _, id := range clientIDs {
		want[id] = true
	}
	var out []*model.CheckInOccurrence
	for _, o := range r.m.occurrences {
		if want[o.ClientID] && o.Status == string(cadence.OccurrenceStatusPending) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r memOccurrences) ListPendingDueBefore(_ context.Context, before time.Time, afterID int64, limit int) ([]*model.CheckInOccurrence, error) {
	r.m.sweepPages++
	var out []*model.CheckInOccurrence
	for _, o := range r.m.occurrences {
		if o.Status == string(cadence.OccurrenceStatusPending) && o.DueDate.Before(before) && o.ID > afterID {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memOccurrences) ListOpeningBetween(_ context.Context, from, to time.Time) ([]*model.CheckInOccurrence, error) {
	slack := 7 * 24 * time.Hour
	var out []*model.CheckInOccurrence
	for _, o := range r.m.occurrences {
		if o.Status == string(cadence.OccurrenceStatusPending) &&
			!o.DueDate.Before(from.Add(-slack)) && o.DueDate.Before(to.Add(slack)) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r memOccurrences) MarkOverdue(_ context.Context, id int64, at time.Time) (bool, error) {
	return r.transition(id, func(o *model.CheckInOccurrence) {
		o.Status = string(cadence.OccurrenceStatusOverdue)
		o.MissedAt = &at
	})
}

func (r memOccurrences) MarkCompleted(_ context.Context, id int64, at time.Time, late bool) (bool, error) {
	return r.transition(id, func(o *model.CheckInOccurrence) {
		o.Status = string(cadence.OccurrenceStatusCompleted)
		o.CompletedAt = &at
		o.Late = late
	})
}

func (r memOccurrences) transition(id int64, apply func(*model.CheckInOccurrence)) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, o := range r.m.occurrences {
		if o.ID == id {
			if o.Status != string(cadence.OccurrenceStatusPending) {
				return false, nil
			}
			apply(o)
			return true, nil
		}
	}
	return false, nil
}

// ────────────────────── 其他依赖 ──────────────────────

type fakeLocker struct {
	held map[string]bool
	busy bool
}

func (l *fakeLocker) TryLock(_ context.Context, name string, _ time.Duration) (*cache.Lock, error) {
	if l.busy || l.held[name] {
		return nil, nil
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	l.held[name] = true
	return &cache.Lock{}, nil
}

func (l *fakeLocker) Unlock(_ context.Context, _ *cache.Lock) error {
	l.held = nil
	return nil
}

type fakePublisher struct {
	reminders []model.WindowOpenReminderMessage
	missed    []model.OccurrenceMissedMessage
	err       error
}

func (p *fakePublisher) PublishWindowReminder(_ context.Context, msg model.WindowOpenReminderMessage) error {
	if p.err != nil {
		return p.err
	}
	p.reminders = append(p.reminders, msg)
	return nil
}

func (p *fakePublisher) PublishOccurrenceMissed(_ context.Context, msg model.OccurrenceMissedMessage) error {
	if p.err != nil {
		return p.err
	}
	p.missed = append(p.missed, msg)
	return nil
}

type fakeMarker struct {
	marked map[string]bool
}

func (f *fakeMarker) TryMarkReminderScheduled(_ context.Context, id string, _, _ time.Time) (bool, error) {
	if f.marked == nil {
		f.marked = map[string]bool{}
	}
	if f.marked[id] {
		return false, nil
	}
	f.marked[id] = true
	return true, nil
}

func (f *fakeMarker) UnmarkReminderScheduled(_ context.Context, id string) error {
	delete(f.marked, id)
	return nil
}

// seqIDs 递增 ID，便于断言
type seqIDs struct{ n int64 }

func (s *seqIDs) NextID() (int64, error) {
	s.n++
	return 1000 + s.n, nil
}

func (s *seqIDs) NextPublicID() (string, error) {
	s.n++
	return fmt.Sprintf("pub-%d", s.n), nil
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func testEvaluator(t *testing.T) *cadence.Evaluator {
	t.Helper()
	ev, err := cadence.NewEvaluator(cadence.DefaultConfig())
	if err != nil {
		t.Fatalf("evaluator: %v", err)
	}
	return ev
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}

func ctx() context.Context {
	return context.Background()
}

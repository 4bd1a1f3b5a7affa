package service

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoachCheck/internal/cadence"
	"CoachCheck/internal/model/dto"
	"CoachCheck/pkg/errors"
)

type allocationFixture struct {
	store  *memStore
	locker *fakeLocker
	svc    *AllocationService
}

func setupAllocation(t *testing.T) *allocationFixture {
	t.Helper()

	store := newMemStore()
	store.addCoach(1, "coach-1")
	store.addCoach(2, "coach-2")
	store.addClient(11, 1, "client-1", "UTC")
	store.addForm(22, 1, "form-1")
	store.addForm(23, 2, "form-other")

	locker := &fakeLocker{}
	svc := NewAllocationService(store.repository(), testEvaluator(t), locker, &seqIDs{}, nil, time.UTC, nopLogger())
	return &allocationFixture{store: store, locker: locker, svc: svc}
}

func weeklyRequest() dto.AllocateRequest {
	return dto.AllocateRequest{
		StartDate:           "2024-06-03",
		FirstOccurrenceDate: "2024-06-05",
		ClientID:            "client-1",
		FormID:              "form-1",
		Frequency:           "weekly",
		OccurrenceCount:     4,
	}
}

func TestAllocate_CreatesSeries(t *testing.T) {
	f := setupAllocation(t)
	now := at(2024, time.June, 1, 9, 0)

	resp, err := f.svc.Allocate(ctx(), "coach-1", weeklyRequest(), now)
	require.NoError(t, err)

	assert.True(t, resp.Created)
	assert.NotEmpty(t, resp.SeriesID)
	require.Len(t, resp.Occurrences, 4)
	require.Len(t, f.store.series, 1)
	assert.Equal(t, "weekly", f.store.series[0].Frequency)
	assert.Equal(t, cadence.DefaultWindow(), f.store.series[0].Window.Data())

	for i, view := range resp.Occurrences {
		assert.Equal(t, at(2024, time.June, 5+7*i, 0, 0), view.DueDate.UTC())
		assert.Equal(t, i+1, view.RecurrenceIndex)
		assert.Equal(t, 4, view.RecurrenceTotal)
		assert.Equal(t, "pending", view.Status)
		assert.NotEmpty(t, view.Urgency)
	}

	for _, row := range f.store.occurrences {
		w, err := row.WindowConfig()
		require.NoError(t, err)
		assert.Nil(t, w, "series without a custom window keeps following the default")
		assert.Equal(t, f.store.series[0].ID, row.SeriesID)
	}
}

func TestAllocate_SecondCallReturnsExisting(t *testing.T) {
	f := setupAllocation(t)
	now := at(2024, time.June, 1, 9, 0)

	first, err := f.svc.Allocate(ctx(), "coach-1", weeklyRequest(), now)
	require.NoError(t, err)

	req := weeklyRequest()
	req.OccurrenceCount = 10
	second, err := f.svc.Allocate(ctx(), "coach-1", req, now)
	require.NoError(t, err)

	assert.False(t, second.Created)
	require.Len(t, second.Occurrences, 4)
	for i := range first.Occurrences {
		assert.Equal(t, first.Occurrences[i].ID, second.Occurrences[i].ID)
	}
	assert.Len(t, f.store.series, 1)
	assert.Len(t, f.store.occurrences, 4)
}

func TestAllocate_CustomWindowIsStoredOnEveryOccurrence(t *testing.T) {
	f := setupAllocation(t)
	custom := cadence.Window{Enabled: true, StartDay: "monday", StartTime: "08:00", EndDay: "wednesday", EndTime: "20:00"}

	req := weeklyRequest()
	req.Window = &custom
	_, err := f.svc.Allocate(ctx(), "coach-1", req, at(2024, time.June, 1, 9, 0))
	require.NoError(t, err)

	for _, row := range f.store.occurrences {
		w, err := row.WindowConfig()
		require.NoError(t, err)
		require.NotNil(t, w)
		assert.Equal(t, custom, *w)
	}
}

func TestAllocate_MonthlyClampsToMonthEnd(t *testing.T) {
	f := setupAllocation(t)

	req := weeklyRequest()
	req.StartDate = "2024-01-31"
	req.FirstOccurrenceDate = "2024-01-31"
	req.Frequency = "monthly"
	req.OccurrenceCount = 3

	resp, err := f.svc.Allocate(ctx(), "coach-1", req, at(2024, time.January, 1, 0, 0))
	require.NoError(t, err)
	require.Len(t, resp.Occurrences, 3)

	assert.Equal(t, at(2024, time.January, 31, 0, 0), resp.Occurrences[0].DueDate.UTC())
	assert.Equal(t, at(2024, time.February, 29, 0, 0), resp.Occurrences[1].DueDate.UTC())
	assert.Equal(t, at(2024, time.March, 31, 0, 0), resp.Occurrences[2].DueDate.UTC())
}

func TestAllocate_ClientTimezone(t *testing.T) {
	f := setupAllocation(t)
	f.store.addClient(12, 1, "client-ny", "America/New_York")
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	req := weeklyRequest()
	req.ClientID = "client-ny"
	req.OccurrenceCount = 1

	_, err = f.svc.Allocate(ctx(), "coach-1", req, at(2024, time.June, 1, 9, 0))
	require.NoError(t, err)

	require.Len(t, f.store.occurrences, 1)
	assert.True(t, f.store.occurrences[0].DueDate.Equal(time.Date(2024, time.June, 5, 0, 0, 0, 0, ny)))
}

func TestAllocate_ClientTimezoneInputs(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	// 周三 00:00 JST，即 UTC 周二 15:00
	due := time.Date(2024, time.June, 5, 0, 0, 0, 0, tokyo)

	tests := []struct {
		name  string
		start interface{}
		first interface{}
	}{
		{name: "naive date", start: "2024-06-03", first: "2024-06-05"},
		{name: "naive datetime", start: "2024-06-03", first: "2024-06-05T00:00:00"},
		{name: "rfc3339 utc", start: "2024-06-03", first: "2024-06-04T15:00:00Z"},
		{name: "rfc3339 offset", start: "2024-06-03", first: "2024-06-05T00:00:00+09:00"},
		{name: "epoch seconds", start: "2024-06-03", first: due.Unix()},
		{name: "epoch from json", start: "2024-06-03", first: float64(due.Unix())},
		{name: "json number", start: "2024-06-03", first: json.Number(strconv.FormatInt(due.Unix(), 10))},
		{name: "seconds map", start: "2024-06-03", first: map[string]any{"seconds": float64(due.Unix()), "nanoseconds": float64(0)}},
		{name: "timestamp", start: "2024-06-03", first: cadence.Timestamp{Seconds: due.Unix()}},
		{name: "epoch start", start: time.Date(2024, time.June, 3, 0, 0, 0, 0, tokyo).Unix(), first: due.Unix()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupAllocation(t)
			f.store.addClient(13, 1, "client-tokyo", "Asia/Tokyo")

			req := weeklyRequest()
			req.ClientID = "client-tokyo"
			req.OccurrenceCount = 1
			req.StartDate = tt.start
			req.FirstOccurrenceDate = tt.first

			_, err := f.svc.Allocate(ctx(), "coach-1", req, at(2024, time.June, 1, 9, 0))
			require.NoError(t, err)

			require.Len(t, f.store.occurrences, 1)
			stored := f.store.occurrences[0].DueDate
			assert.True(t, stored.Equal(due), "want %s got %s", due, stored)
			assert.Equal(t, time.Wednesday, stored.In(tokyo).Weekday())
		})
	}
}

func TestAllocate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		coach  string
		mutate func(*dto.AllocateRequest)
		want   errors.Definition
	}{
		{
			name:   "unknown form",
			coach:  "coach-1",
			mutate: func(r *dto.AllocateRequest) { r.FormID = "missing" },
			want:   errors.FormNotFound,
		},
		{
			name:   "unknown client",
			coach:  "coach-1",
			mutate: func(r *dto.AllocateRequest) { r.ClientID = "missing" },
			want:   errors.ClientNotFound,
		},
		{
			name:   "client of another coach",
			coach:  "coach-2",
			mutate: func(r *dto.AllocateRequest) { r.FormID = "form-other" },
			want:   errors.Forbidden,
		},
		{
			name:   "form of another coach",
			coach:  "coach-1",
			mutate: func(r *dto.AllocateRequest) { r.FormID = "form-other" },
			want:   errors.Forbidden,
		},
		{
			name:   "zero occurrences",
			coach:  "coach-1",
			mutate: func(r *dto.AllocateRequest) { r.OccurrenceCount = 0 },
			want:   errors.ScheduleInvalid,
		},
		{
			name:   "first occurrence before start",
			coach:  "coach-1",
			mutate: func(r *dto.AllocateRequest) { r.FirstOccurrenceDate = "2024-06-01" },
			want:   errors.ScheduleInvalid,
		},
		{
			name:   "unknown frequency",
			coach:  "coach-1",
			mutate: func(r *dto.AllocateRequest) { r.Frequency = "daily" },
			want:   errors.ScheduleInvalid,
		},
		{
			name: "invalid window",
			coach: "coach-1",
			mutate: func(r *dto.AllocateRequest) {
				r.Window = &cadence.Window{Enabled: true, StartDay: "funday", StartTime: "10:00", EndDay: "monday", EndTime: "22:00"}
			},
			want: errors.WindowConfigInvalid,
		},
		{
			name:   "unparseable start date",
			coach:  "coach-1",
			mutate: func(r *dto.AllocateRequest) { r.StartDate = true },
			want:   errors.TimestampInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupAllocation(t)
			req := weeklyRequest()
			tt.mutate(&req)

			_, err := f.svc.Allocate(ctx(), tt.coach, req, at(2024, time.June, 1, 9, 0))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.store.series)
			assert.Empty(t, f.store.occurrences)
		})
	}
}

func TestAllocate_LockHeldElsewhere(t *testing.T) {
	f := setupAllocation(t)
	f.locker.busy = true

	_, err := f.svc.Allocate(ctx(), "coach-1", weeklyRequest(), at(2024, time.June, 1, 9, 0))
	assert.ErrorIs(t, err, errors.AllocationInProgress)
	assert.Empty(t, f.store.occurrences)
}

func TestAllocate_PersistFailureWritesNothing(t *testing.T) {
	f := setupAllocation(t)
	f.store.createErr = assert.AnError

	_, err := f.svc.Allocate(ctx(), "coach-1", weeklyRequest(), at(2024, time.June, 1, 9, 0))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, f.store.series)
	assert.Empty(t, f.store.occurrences)
}

func TestAllocateOnboarding(t *testing.T) {
	tests := []struct {
		name  string
		start string
		first string
		now   time.Time
		want  time.Time
	}{
		{
			name:  "nominal already on the start day",
			start: "2024-06-03",
			first: "2024-06-07",
			now:   at(2024, time.June, 3, 9, 0),
			want:  at(2024, time.June, 7, 0, 0),
		},
		{
			name:  "today is the start day",
			start: "2024-05-31",
			first: "2024-06-05",
			now:   at(2024, time.May, 31, 12, 0),
			want:  at(2024, time.May, 31, 0, 0),
		},
		{
			name:  "advance to next start day",
			start: "2024-06-03",
			first: "2024-06-05",
			now:   at(2024, time.June, 3, 9, 0),
			want:  at(2024, time.June, 7, 0, 0),
		},
		{
			name:  "future start date ignores today",
			start: "2024-06-10",
			first: "2024-06-10",
			now:   at(2024, time.May, 31, 12, 0),
			want:  at(2024, time.June, 14, 0, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupAllocation(t)
			req := weeklyRequest()
			req.StartDate = tt.start
			req.FirstOccurrenceDate = tt.first

			resp, err := f.svc.AllocateOnboarding(ctx(), "coach-1", req, tt.now)
			require.NoError(t, err)
			require.NotEmpty(t, resp.Occurrences)
			assert.Equal(t, tt.want, resp.Occurrences[0].DueDate.UTC())
			assert.Equal(t, time.Friday, resp.Occurrences[0].DueDate.Weekday())
			assert.NotNil(t, f.store.clients[11].OnboardedAt)
		})
	}
}

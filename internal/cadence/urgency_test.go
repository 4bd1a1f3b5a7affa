package cadence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	ev := setupEvaluator(t)
	disabled := &Window{Enabled: false}

	tests := []struct {
		name   string
		due    time.Time
		window *Window
		now    time.Time
		want   Urgency
	}{
		{
			name: "well before close",
			due:  at(2024, time.June, 3, 0, 0),
			now:  at(2024, time.May, 30, 12, 0),
			want: UrgencyOnTrack,
		},
		{
			name: "within a day of close",
			due:  at(2024, time.June, 3, 0, 0),
			now:  at(2024, time.June, 2, 23, 0),
			want: UrgencyClosingSoon,
		},
		{
			// 截止日在窗口关闭之后，只能由窗口规则判定
			name: "twelve hours past close",
			due:  at(2024, time.June, 6, 0, 0),
			now:  at(2024, time.June, 4, 10, 0),
			want: UrgencyClosingSoon,
		},
		{
			name: "thirty six hours past close",
			due:  at(2024, time.June, 6, 0, 0),
			now:  at(2024, time.June, 5, 10, 0),
			want: UrgencyOverdue,
		},
		{
			name: "due date a full day ago dominates",
			due:  at(2024, time.June, 3, 0, 0),
			now:  at(2024, time.June, 4, 0, 0),
			want: UrgencyOverdue,
		},
		{
			name:   "disabled window before due",
			due:    at(2024, time.June, 3, 0, 0),
			window: disabled,
			now:    at(2024, time.June, 2, 12, 0),
			want:   UrgencyOnTrack,
		},
		{
			name:   "disabled window just past due",
			due:    at(2024, time.June, 3, 0, 0),
			window: disabled,
			now:    at(2024, time.June, 3, 12, 0),
			want:   UrgencyClosingSoon,
		},
		{
			name:   "disabled window a day past due",
			due:    at(2024, time.June, 3, 0, 0),
			window: disabled,
			now:    at(2024, time.June, 4, 0, 0),
			want:   UrgencyOverdue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Classify(tt.due, tt.window, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_DueDateDominatesEvenWithBadWindow(t *testing.T) {
	ev := setupEvaluator(t)
	bad := &Window{Enabled: true, StartDay: "funday"}

	got, err := ev.Classify(at(2024, time.June, 3, 0, 0), bad, at(2024, time.June, 10, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, UrgencyOverdue, got)

	_, err = ev.Classify(at(2024, time.June, 3, 0, 0), bad, at(2024, time.June, 1, 0, 0))
	assert.Error(t, err)
}

func TestClassify_MonotoneInNow(t *testing.T) {
	ev := setupEvaluator(t)

	windows := map[string]*Window{
		"default":   nil,
		"disabled":  {Enabled: false},
		"weekday":   {Enabled: true, StartDay: "monday", StartTime: "09:00", EndDay: "wednesday", EndTime: "17:00"},
		"full week": {Enabled: true, StartDay: "sunday", StartTime: "12:00", EndDay: "sunday", EndTime: "12:00"},
	}
	dues := []time.Time{
		at(2024, time.June, 3, 0, 0),
		at(2024, time.June, 5, 18, 0),
		at(2024, time.June, 7, 9, 0),
		at(2024, time.June, 9, 23, 0),
	}

	for name, w := range windows {
		for _, due := range dues {
			prev := -1
			for now := due.AddDate(0, 0, -14); now.Before(due.AddDate(0, 0, 14)); now = now.Add(time.Hour) {
				u, err := ev.Classify(due, w, now)
				require.NoError(t, err)
				require.GreaterOrEqual(t, u.Rank(), prev, "%s: due %s now %s regressed to %s", name, due, now, u)
				prev = u.Rank()
			}
			assert.Equal(t, UrgencyOverdue.Rank(), prev, "%s: due %s never became overdue", name, due)
		}
	}
}

func TestUrgencyRank(t *testing.T) {
	assert.Less(t, UrgencyOnTrack.Rank(), UrgencyClosingSoon.Rank())
	assert.Less(t, UrgencyClosingSoon.Rank(), UrgencyOverdue.Rank())
	assert.Equal(t, -1, Urgency("unknown").Rank())
}

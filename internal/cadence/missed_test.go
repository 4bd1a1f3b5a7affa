package cadence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextWindowHasOpened(t *testing.T) {
	ev := setupEvaluator(t)

	tests := []struct {
		name   string
		due    time.Time
		window *Window
		now    time.Time
		want   bool
	}{
		{
			name: "monday due before next friday",
			due:  at(2024, time.June, 3, 0, 0),
			now:  at(2024, time.June, 7, 9, 59),
			want: false,
		},
		{
			name: "monday due at next friday opening",
			due:  at(2024, time.June, 3, 0, 0),
			now:  at(2024, time.June, 7, 10, 0),
			want: true,
		},
		{
			name: "thursday due shares the same successor",
			due:  at(2024, time.June, 6, 12, 0),
			now:  at(2024, time.June, 7, 10, 0),
			want: true,
		},
		{
			name: "friday due waits for the following week",
			due:  at(2024, time.June, 7, 0, 0),
			now:  at(2024, time.June, 10, 0, 0),
			want: false,
		},
		{
			name:   "disabled window uses default geometry",
			due:    at(2024, time.June, 3, 0, 0),
			window: &Window{Enabled: false},
			now:    at(2024, time.June, 7, 10, 0),
			want:   true,
		},
		{
			name:   "custom window",
			due:    at(2024, time.June, 4, 0, 0),
			window: &Window{Enabled: true, StartDay: "monday", StartTime: "09:00", EndDay: "wednesday", EndTime: "17:00"},
			now:    at(2024, time.June, 10, 9, 0),
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.NextWindowHasOpened(tt.due, tt.window, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextWindowHasOpened_MatchesWeekAnchorRule(t *testing.T) {
	ev := setupEvaluator(t)

	// 周一到周四的截止日：下一期窗口 = week anchor + 4 天 10:00
	for d := 3; d <= 6; d++ {
		due := at(2024, time.June, d, 8, 0)
		boundary := WeekAnchor(due).AddDate(0, 0, 4).Add(10 * time.Hour)

		before, err := ev.NextWindowHasOpened(due, nil, boundary.Add(-time.Second))
		require.NoError(t, err)
		assert.False(t, before)

		after, err := ev.NextWindowHasOpened(due, nil, boundary)
		require.NoError(t, err)
		assert.True(t, after)
	}
}

package cadence

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "CoachCheck/pkg/errors"
)

func TestNormalizeTime(t *testing.T) {
	want := time.Date(2024, time.June, 3, 10, 30, 0, 0, time.UTC)
	native := want

	tests := []struct {
		name string
		in   any
		want time.Time
	}{
		{name: "time", in: want, want: want},
		{name: "pointer", in: &native, want: want},
		{name: "rfc3339", in: "2024-06-03T10:30:00Z", want: want},
		{name: "rfc3339 nano", in: "2024-06-03T10:30:00.000000000Z", want: want},
		{name: "local layout", in: "2024-06-03T10:30:00", want: want},
		{name: "date only", in: "2024-06-03", want: time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)},
		{name: "epoch int64", in: want.Unix(), want: want},
		{name: "epoch float", in: float64(want.Unix()) + 0.5, want: want.Add(500 * time.Millisecond)},
		{name: "json number", in: json.Number("1717410600"), want: want},
		{name: "timestamp", in: Timestamp{Seconds: want.Unix(), Nanos: 7}, want: want.Add(7)},
		{name: "firestore map", in: map[string]any{"_seconds": float64(want.Unix()), "_nanoseconds": float64(0)}, want: want},
		{name: "seconds map", in: map[string]any{"seconds": want.Unix()}, want: want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTime(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestNormalizeTime_Invalid(t *testing.T) {
	var nilTime *time.Time

	for _, in := range []any{
		"yesterday",
		nil,
		nilTime,
		true,
		map[string]any{"nanoseconds": 1},
		map[string]any{"seconds": "soon"},
		map[string]any{"seconds": math.NaN()},
		map[string]any{"seconds": math.Inf(1)},
		map[string]any{"seconds": float64(1), "nanoseconds": math.NaN()},
		map[string]any{"seconds": 1e300},
	} {
		_, err := NormalizeTime(in)
		require.Error(t, err, "%v", in)
		assert.True(t, errors.Is(err, pkgerrors.TimestampInvalid))
	}
}

func TestNormalizeTimeIn(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	instant := time.Date(2024, time.June, 5, 0, 0, 0, 0, tokyo)

	tests := []struct {
		name string
		in   any
		want time.Time
	}{
		{name: "naive date is wall clock", in: "2024-06-05", want: instant},
		{name: "naive datetime is wall clock", in: "2024-06-05T00:00:00", want: instant},
		{name: "utc string is absolute", in: "2024-06-04T15:00:00Z", want: instant},
		{name: "offset string is absolute", in: "2024-06-05T00:00:00+09:00", want: instant},
		{name: "epoch is absolute", in: instant.Unix(), want: instant},
		{name: "seconds map is absolute", in: map[string]any{"seconds": instant.Unix()}, want: instant},
		{name: "utc time is absolute", in: instant.UTC(), want: instant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTimeIn(tt.in, tokyo)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
			assert.Equal(t, tokyo, got.Location())
			assert.Equal(t, time.Wednesday, got.Weekday())
		})
	}
}

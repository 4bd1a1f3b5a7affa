package cadence

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	pkgerrors "CoachCheck/pkg/errors"
)

// Timestamp 文档库风格的时间戳（seconds + nanos）
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

// Time 转成 time.Time（UTC）
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanos)).UTC()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// NormalizeTime 把各种外部时间表示统一成 time.Time
// 支持 time.Time、字符串、epoch 秒、seconds/nanoseconds 结构；不带偏移的字符串按 UTC 解释
func NormalizeTime(v any) (time.Time, error) {
	return NormalizeTimeIn(v, time.UTC)
}

// NormalizeTimeIn 同 NormalizeTime，结果换算到 loc
// 只有不带偏移的字符串（2006-01-02T15:04:05、2006-01-02）按 loc 的墙上时间解释，
// epoch、Timestamp 和带偏移的字符串都是绝对时刻，只做时区换算
func NormalizeTimeIn(v any, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := normalize(v, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

func normalize(v any, loc *time.Location) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x == nil {
			return time.Time{}, invalidTimestamp(v)
		}
		return *x, nil
	case Timestamp:
		return x.Time(), nil
	case *Timestamp:
		if x == nil {
			return time.Time{}, invalidTimestamp(v)
		}
		return x.Time(), nil
	case string:
		return parseTimeString(x, loc)
	case int64:
		return time.Unix(x, 0).UTC(), nil
	case int:
		return time.Unix(int64(x), 0).UTC(), nil
	case float64:
		return fromFloat(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return time.Unix(n, 0).UTC(), nil
		}
		f, err := x.Float64()
		if err != nil {
			return time.Time{}, invalidTimestamp(v)
		}
		return fromFloat(f)
	case map[string]any:
		return fromMap(x)
	default:
		return time.Time{}, invalidTimestamp(v)
	}
}

func parseTimeString(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalidTimestamp(s)
}

func fromFloat(f float64) (time.Time, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, invalidTimestamp(f)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

func fromMap(m map[string]any) (time.Time, error) {
	secRaw, ok := lookup(m, "seconds", "_seconds")
	if !ok {
		return time.Time{}, invalidTimestamp(m)
	}
	sec, ok := toInt64(secRaw)
	if !ok {
		return time.Time{}, invalidTimestamp(m)
	}

	var nanos int64
	if nsRaw, ok := lookup(m, "nanoseconds", "_nanoseconds", "nanos"); ok {
		if nanos, ok = toInt64(nsRaw); !ok {
			return time.Time{}, invalidTimestamp(m)
		}
	}

	return time.Unix(sec, nanos).UTC(), nil
}

func lookup(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func invalidTimestamp(v any) error {
	return fmt.Errorf("%w: unsupported value %v (%T)", pkgerrors.TimestampInvalid, v, v)
}

package metrics

import (
	"context"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CheckInMetrics 打卡领域指标
// 方法对 nil 接收者安全，未初始化时等同于不记录
type CheckInMetrics struct {
	occurrencesGenerated metric.Int64Counter
	occurrencesMissed    metric.Int64Counter
	urgencyClassified    metric.Int64Counter
	submissions          metric.Int64Counter
	sweepDuration        metric.Float64Histogram
}

var (
	global     *CheckInMetrics
	globalOnce sync.Once
	globalErr  error
)

// New 在给定 meter 上注册全部指标
func New(meter metric.Meter) (*CheckInMetrics, error) {
	m := &CheckInMetrics{}
	var err error

	if m.occurrencesGenerated, err = meter.Int64Counter(
		"checkin_occurrences_generated_total",
		metric.WithDescription("Check-in occurrences created by allocation"),
		metric.WithUnit("{occurrence}"),
	); err != nil {
		return nil, err
	}

	if m.occurrencesMissed, err = meter.Int64Counter(
		"checkin_occurrences_missed_total",
		metric.WithDescription("Pending occurrences closed as overdue by the missed sweep"),
		metric.WithUnit("{occurrence}"),
	); err != nil {
		return nil, err
	}

	if m.urgencyClassified, err = meter.Int64Counter(
		"checkin_urgency_classified_total",
		metric.WithDescription("Urgency classifications by zone"),
		metric.WithUnit("{classification}"),
	); err != nil {
		return nil, err
	}

	if m.submissions, err = meter.Int64Counter(
		"checkin_submissions_total",
		metric.WithDescription("Accepted check-in submissions"),
		metric.WithUnit("{submission}"),
	); err != nil {
		return nil, err
	}

	if m.sweepDuration, err = meter.Float64Histogram(
		"checkin_missed_sweep_duration_seconds",
		metric.WithDescription("Duration of one missed-occurrence sweep"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// Init 在全局 MeterProvider 上注册，须在 otel.Init 之后调用
func Init() error {
	globalOnce.Do(func() {
		global, globalErr = New(otel.Meter("coachcheck.checkin"))
	})
	return globalErr
}

// Get 获取全局指标实例，可能为 nil
func Get() *CheckInMetrics {
	return global
}

func (m *CheckInMetrics) RecordGenerated(ctx context.Context, frequency string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.occurrencesGenerated.Add(ctx, int64(n), metric.WithAttributes(attribute.String("frequency", frequency)))
}

func (m *CheckInMetrics) RecordMissed(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.occurrencesMissed.Add(ctx, int64(n))
}

func (m *CheckInMetrics) RecordUrgency(ctx context.Context, zone string) {
	if m == nil {
		return
	}
	m.urgencyClassified.Add(ctx, 1, metric.WithAttributes(attribute.String("zone", zone)))
}

func (m *CheckInMetrics) RecordSubmission(ctx context.Context, late bool) {
	if m == nil {
		return
	}
	m.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("late", strconv.FormatBool(late))))
}

func (m *CheckInMetrics) RecordSweep(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.sweepDuration.Record(ctx, seconds)
}

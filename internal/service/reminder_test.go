package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// due 周一 06-10 的期窗口在周五 06-07 10:00 开启
func setupReminder(t *testing.T) (*fakeMarker, *fakePublisher, *ReminderService) {
	t.Helper()

	store := newMemStore()
	store.addClient(11, 1, "client-1", "UTC")
	store.addOccurrence(pendingOccurrence(101, 11, "occ-1", at(2024, time.June, 10, 0, 0)))
	done := pendingOccurrence(102, 11, "occ-done", at(2024, time.June, 10, 0, 0))
	done.Status = "completed"
	store.addOccurrence(done)

	marker := &fakeMarker{}
	pub := &fakePublisher{}
	return marker, pub, NewReminderService(store.repository(), testEvaluator(t), marker, pub, time.UTC, nopLogger())
}

func TestPlanWindowReminders(t *testing.T) {
	_, pub, svc := setupReminder(t)
	now := at(2024, time.June, 6, 12, 0)

	n, err := svc.PlanWindowReminders(ctx(), now, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, pub.reminders, 1)
	msg := pub.reminders[0]
	assert.Equal(t, "occ-1", msg.OccurrenceID)
	assert.Equal(t, at(2024, time.June, 7, 10, 0), msg.OpensAt)
	assert.Equal(t, at(2024, time.June, 10, 22, 0), msg.ClosesAt)
	assert.Equal(t, 22*3600, msg.DelaySeconds)

	n, err = svc.PlanWindowReminders(ctx(), now.Add(time.Hour), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "a reminder is planned once per occurrence")
	assert.Len(t, pub.reminders, 1)
}

func TestPlanWindowReminders_OutsideLookahead(t *testing.T) {
	_, pub, svc := setupReminder(t)

	n, err := svc.PlanWindowReminders(ctx(), at(2024, time.June, 6, 12, 0), 12*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	// 窗口已经开启的不再提醒
	n, err = svc.PlanWindowReminders(ctx(), at(2024, time.June, 7, 11, 0), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, pub.reminders)
}

func TestPlanWindowReminders_RetriesAfterPublishFailure(t *testing.T) {
	marker, pub, svc := setupReminder(t)
	now := at(2024, time.June, 6, 12, 0)

	pub.err = assert.AnError
	n, err := svc.PlanWindowReminders(ctx(), now, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, marker.marked["occ-1"])

	pub.err = nil
	n, err = svc.PlanWindowReminders(ctx(), now, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

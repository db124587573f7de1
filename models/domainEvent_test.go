package models

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainEventBackoff(t *testing.T) {
	assert.Equal(t, 5*time.Second, DomainEventBackoff(1))
	assert.Equal(t, 10*time.Second, DomainEventBackoff(2))
	assert.Equal(t, 40*time.Second, DomainEventBackoff(4))
	assert.Equal(t, DomainEventMaxBackoff, DomainEventBackoff(8))
	assert.Equal(t, DomainEventMaxBackoff, DomainEventBackoff(DomainEventMaxAttempts))
}

func TestMarkDomainEventFailedThenDead(t *testing.T) {
	db, ctx := setupModels(t)
	rec, err := EmitDomainEvent(ctx, db, testOrg, DomainEventActivityRecorded, "ref-1", ActivityPayload{ActivityType: ActivityTypeNewVisitorCreated})
	require.NoError(t, err)

	rec.Attempts = 1
	status, err := MarkDomainEventFailed(ctx, db, rec, errors.New("boom"))
	require.NoError(t, err)
	assert.Equal(t, DomainEventStatusFailed, status)

	var stored DomainEventRecord
	require.NoError(t, db.Where("event_id = ?", rec.EventId).Take(&stored).Error)
	require.NotNil(t, stored.NextAttemptAt)
	assert.True(t, stored.NextAttemptAt.After(time.Now().Add(-time.Second)))
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "boom", *stored.LastError)

	rec.Attempts = DomainEventMaxAttempts
	status, err = MarkDomainEventFailed(ctx, db, rec, errors.New("still broken"))
	require.NoError(t, err)
	assert.Equal(t, DomainEventStatusDead, status)

	var dead DomainEventRecord
	require.NoError(t, db.Where("event_id = ?", rec.EventId).Take(&dead).Error)
	assert.Equal(t, DomainEventStatusDead, dead.Status)
	assert.Nil(t, dead.NextAttemptAt)
	assert.Nil(t, dead.LockedAt)
	require.NotNil(t, dead.LastError)
	assert.Equal(t, "still broken", *dead.LastError)
}

func TestReplayDeadDomainEvent(t *testing.T) {
	db, ctx := setupModels(t)
	rec, err := EmitDomainEvent(ctx, db, testOrg, DomainEventActivityRecorded, "ref-1", ActivityPayload{ActivityType: ActivityTypeNewVisitorCreated})
	require.NoError(t, err)

	_, err = ReplayDeadDomainEvent(ctx, db, rec.EventId)
	requireKind(t, err, utils.ErrorKindConflict)

	require.NoError(t, db.Model(&DomainEventRecord{}).Where("id = ?", rec.ID).
		Updates(map[string]interface{}{"status": DomainEventStatusDead, "attempts": DomainEventMaxAttempts}).Error)

	replayed, err := ReplayDeadDomainEvent(ctx, db, rec.EventId)
	require.NoError(t, err)
	assert.Equal(t, DomainEventStatusFailed, replayed.Status)
	assert.Equal(t, 0, replayed.Attempts)
	assert.NotNil(t, replayed.NextAttemptAt)

	_, err = ReplayDeadDomainEvent(ctx, db, "missing")
	requireKind(t, err, utils.ErrorKindNotFound)
	_, err = ReplayDeadDomainEvent(ctx, db, "")
	requireKind(t, err, utils.ErrorKindValidation)
}

func TestProcessEventsNowSkipsClaimedEvents(t *testing.T) {
	db, ctx := setupModels(t)
	rec, err := EmitDomainEvent(ctx, db, testOrg, DomainEventActivityRecorded, "ref-1", ActivityPayload{
		ActivityType: ActivityTypeNewVisitorCreated,
		Message:      "Visitor \"Bob Smith\" created",
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&DomainEventRecord{}).Where("id = ?", rec.ID).Update("status", DomainEventStatusProcessing).Error)

	ProcessEventsNow(ctx, []string{rec.EventId})
	assert.Equal(t, int64(0), countActivities(t, db, ActivityTypeNewVisitorCreated))

	require.NoError(t, db.Model(&DomainEventRecord{}).Where("id = ?", rec.ID).Update("status", DomainEventStatusPending).Error)
	ProcessEventsNow(ctx, []string{rec.EventId})
	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypeNewVisitorCreated))

	var stored DomainEventRecord
	require.NoError(t, db.Where("id = ?", rec.ID).Take(&stored).Error)
	assert.Equal(t, DomainEventStatusSucceeded, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestProcessEventsNowMarksUnknownEventFailed(t *testing.T) {
	db, ctx := setupModels(t)
	rec, err := EmitDomainEvent(ctx, db, testOrg, DomainEventType("UNKNOWN"), "ref-1", map[string]string{})
	require.NoError(t, err)

	ProcessEventsNow(ctx, []string{rec.EventId})

	var stored DomainEventRecord
	require.NoError(t, db.Where("id = ?", rec.ID).Take(&stored).Error)
	assert.Equal(t, DomainEventStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "unknown domain event type")
}

package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/metrics"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DomainEventRecord is the transactional outbox row. It is written in the same transaction
// as the change it describes and handled after commit, inline or by the dispatcher.
type DomainEventRecord struct {
	ID             int             `gorm:"primary_key;index:idx_domain_event_dispatch,priority:3" json:"id"`
	EventId        string          `gorm:"size:36;not null;uniqueIndex" json:"eventId"`
	OrganizationId string          `gorm:"size:36;not null;index" json:"organizationId"`
	EventType      DomainEventType `gorm:"size:50;not null;index" json:"eventType"`
	AggregateId    string          `gorm:"size:36;index" json:"aggregateId"`
	Payload        string          `gorm:"type:text;not null" json:"payload"`
	CorrelationId  string          `gorm:"size:64;index" json:"correlationId"`
	Status         string          `gorm:"size:20;not null;default:'PENDING';index:idx_domain_event_dispatch,priority:1" json:"status"` // PENDING|PROCESSING|SUCCEEDED|FAILED|DEAD
	Attempts       int             `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt  *time.Time      `gorm:"index:idx_domain_event_dispatch,priority:2" json:"nextAttemptAt"`
	LockedAt       *time.Time      `gorm:"index" json:"lockedAt"`
	LockedBy       *string         `gorm:"size:100" json:"lockedBy"`
	LastError      *string         `gorm:"type:text" json:"lastError"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	ProcessedAt    *time.Time      `gorm:"index" json:"processedAt"`
}

const (
	DomainEventMaxAttempts    = 20
	DomainEventInitialBackoff = 5 * time.Second
	DomainEventMaxBackoff     = 10 * time.Minute
)

// ActivityPayload is carried by ACTIVITY_RECORDED events.
type ActivityPayload struct {
	ActivityType  ActivityType  `json:"activityType"`
	Message       string        `json:"message"`
	CreatedByName string        `json:"createdByName"`
	EmployeeId    string        `json:"employeeId"`
	ReferenceId   string        `json:"referenceId"`
	ReferenceType ReferenceType `json:"referenceType"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// IncidentPayload is carried by INCIDENT_CREATED events.
type IncidentPayload struct {
	IncidentId     string    `json:"incidentId"`
	OrganizationId string    `json:"organizationId"`
	TenantId       string    `json:"tenantId"`
	IncidentType   string    `json:"incidentType"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"createdAt"`
	CreatedByName  string    `json:"createdByName"`
	EmployeeId     string    `json:"employeeId"`
}

// EmitDomainEvent appends an outbox row using tx. It must run inside the caller's transaction.
func EmitDomainEvent(ctx context.Context, tx *gorm.DB, organizationId string, eventType DomainEventType, aggregateId string, payload any) (*DomainEventRecord, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	rec := DomainEventRecord{
		EventId:        uuid.NewString(),
		OrganizationId: organizationId,
		EventType:      eventType,
		AggregateId:    aggregateId,
		Payload:        string(data),
		CorrelationId:  correlationIdFromContextOrNew(ctx),
		Status:         DomainEventStatusPending,
	}
	if err := tx.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// emitActivity records the audit fact for an operation as an ACTIVITY_RECORDED event.
func emitActivity(ctx context.Context, tx *gorm.DB, actor *utils.Actor, activityType ActivityType, message string, refType ReferenceType, refId string) (string, error) {
	rec, err := EmitDomainEvent(ctx, tx, actor.OrganizationId, DomainEventActivityRecorded, refId, ActivityPayload{
		ActivityType:  activityType,
		Message:       message,
		CreatedByName: actorDisplayName(actor),
		EmployeeId:    actor.EmployeeId,
		ReferenceId:   refId,
		ReferenceType: refType,
		CreatedAt:     now(),
	})
	if err != nil {
		return "", err
	}
	return rec.EventId, nil
}

// DeliverDomainEvent runs the local consumer for the event and, when DOMAIN_EVENT_TOPIC is set,
// publishes it to Pub/Sub. Consumers are idempotent on the event, so redelivery is safe.
func DeliverDomainEvent(ctx context.Context, db *gorm.DB, rec *DomainEventRecord) error {
	switch rec.EventType {
	case DomainEventActivityRecorded:
		var payload ActivityPayload
		if err := json.Unmarshal([]byte(rec.Payload), &payload); err != nil {
			return fmt.Errorf("decode activity payload: %w", err)
		}
		if _, err := RecordActivity(ctx, db, NewActivity{
			EventId:        rec.EventId,
			OrganizationId: rec.OrganizationId,
			ActivityType:   payload.ActivityType,
			CreatedByName:  payload.CreatedByName,
			CreatedAt:      payload.CreatedAt,
			EmployeeId:     payload.EmployeeId,
			Message:        payload.Message,
			ReferenceId:    payload.ReferenceId,
			ReferenceType:  payload.ReferenceType,
		}); err != nil {
			return err
		}
	case DomainEventIncidentCreated:
		var payload IncidentPayload
		if err := json.Unmarshal([]byte(rec.Payload), &payload); err != nil {
			return fmt.Errorf("decode incident payload: %w", err)
		}
		if err := PropagateIncident(ctx, db, payload); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown domain event type %q", rec.EventType)
	}

	if topic := config.DomainEventTopic(); topic != "" {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := config.PublishDomainEvent(ctx, topic, data, map[string]string{
			"event_id":        rec.EventId,
			"event_type":      string(rec.EventType),
			"organization_id": rec.OrganizationId,
			"correlation_id":  rec.CorrelationId,
		}); err != nil {
			return fmt.Errorf("publish domain event: %w", err)
		}
	}
	return nil
}

// ProcessEventsNow handles freshly committed events in the request path. It never fails the caller:
// anything that does not go through stays PENDING or FAILED for the dispatcher.
func ProcessEventsNow(ctx context.Context, eventIds []string) {
	if len(eventIds) == 0 || !config.InlineEventProcessing() {
		return
	}
	db := config.GetDB()
	if db == nil {
		return
	}
	logger := config.GetLogger()
	const owner = "inline"

	for _, eventId := range eventIds {
		lockedAt := now()
		lockedBy := owner
		res := db.WithContext(ctx).Model(&DomainEventRecord{}).
			Where("event_id = ? AND status = ?", eventId, DomainEventStatusPending).
			Updates(map[string]interface{}{
				"status":          DomainEventStatusProcessing,
				"locked_at":       &lockedAt,
				"locked_by":       &lockedBy,
				"attempts":        gorm.Expr("attempts + 1"),
				"next_attempt_at": nil,
			})
		if res.Error != nil {
			logger.WithFields(logrus.Fields{"field": "ProcessEventsNow", "event_id": eventId}).
				Warn("could not claim domain event: " + res.Error.Error())
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}

		var rec DomainEventRecord
		if err := db.WithContext(ctx).Where("event_id = ?", eventId).Take(&rec).Error; err != nil {
			logger.WithFields(logrus.Fields{"field": "ProcessEventsNow", "event_id": eventId}).
				Warn("could not load claimed domain event: " + err.Error())
			continue
		}
		if err := DeliverDomainEvent(ctx, db, &rec); err != nil {
			next, _ := MarkDomainEventFailed(ctx, db, &rec, err)
			logger.WithFields(logrus.Fields{
				"field":      "ProcessEventsNow",
				"event_id":   eventId,
				"event_type": rec.EventType,
				"status":     next,
			}).Warn("inline domain event processing failed; left for dispatcher: " + err.Error())
			continue
		}
		if err := MarkDomainEventSucceeded(ctx, db, &rec); err != nil {
			logger.WithFields(logrus.Fields{"field": "ProcessEventsNow", "event_id": eventId}).
				Warn("could not mark domain event succeeded: " + err.Error())
		}
	}
}

func MarkDomainEventSucceeded(ctx context.Context, db *gorm.DB, rec *DomainEventRecord) error {
	processedAt := now()
	err := db.WithContext(ctx).Model(&DomainEventRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"status":          DomainEventStatusSucceeded,
			"processed_at":    &processedAt,
			"locked_at":       nil,
			"locked_by":       nil,
			"next_attempt_at": nil,
			"last_error":      nil,
		}).Error
	if err == nil {
		metrics.IncDomainEvent(string(rec.EventType), "succeeded")
	}
	return err
}

// MarkDomainEventFailed schedules a retry with exponential backoff, or moves the event
// to DEAD once it has used DomainEventMaxAttempts. rec.Attempts must include the current attempt.
func MarkDomainEventFailed(ctx context.Context, db *gorm.DB, rec *DomainEventRecord, cause error) (string, error) {
	msg := cause.Error()
	if rec.Attempts >= DomainEventMaxAttempts {
		err := db.WithContext(ctx).Model(&DomainEventRecord{}).
			Where("id = ?", rec.ID).
			Updates(map[string]interface{}{
				"status":          DomainEventStatusDead,
				"last_error":      &msg,
				"next_attempt_at": nil,
				"locked_at":       nil,
				"locked_by":       nil,
			}).Error
		metrics.IncDomainEvent(string(rec.EventType), "dead")
		return DomainEventStatusDead, err
	}

	next := now().Add(DomainEventBackoff(rec.Attempts))
	err := db.WithContext(ctx).Model(&DomainEventRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"status":          DomainEventStatusFailed,
			"last_error":      &msg,
			"next_attempt_at": &next,
			"locked_at":       nil,
			"locked_by":       nil,
		}).Error
	metrics.IncDomainEvent(string(rec.EventType), "failed")
	return DomainEventStatusFailed, err
}

// DomainEventBackoff doubles from DomainEventInitialBackoff per attempt, capped at DomainEventMaxBackoff.
func DomainEventBackoff(attempt int) time.Duration {
	backoff := DomainEventInitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= DomainEventMaxBackoff {
			return DomainEventMaxBackoff
		}
	}
	return backoff
}

// ReplayDeadDomainEvent moves a DEAD event back to FAILED so the dispatcher retries it now.
// Attempts are reset so the event gets a fresh budget.
func ReplayDeadDomainEvent(ctx context.Context, db *gorm.DB, eventId string) (*DomainEventRecord, error) {
	if err := utils.RequiredFields(map[string]string{"eventId": eventId}); err != nil {
		return nil, err
	}
	retryAt := now()
	res := db.WithContext(ctx).Model(&DomainEventRecord{}).
		Where("event_id = ? AND status = ?", eventId, DomainEventStatusDead).
		Updates(map[string]interface{}{
			"status":          DomainEventStatusFailed,
			"attempts":        0,
			"next_attempt_at": &retryAt,
			"locked_at":       nil,
			"locked_by":       nil,
		})
	if res.Error != nil {
		return nil, utils.WrapInternal(res.Error, "replay domain event")
	}
	var rec DomainEventRecord
	if err := db.WithContext(ctx).Where("event_id = ?", eventId).Take(&rec).Error; err != nil {
		return nil, notFoundOr(err, "domain event not found")
	}
	if res.RowsAffected == 0 {
		return nil, utils.NewConflictError(fmt.Sprintf("domain event is %s, only DEAD events can be replayed", rec.Status))
	}
	return &rec, nil
}

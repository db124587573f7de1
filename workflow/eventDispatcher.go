package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventDispatcher drains the domain event outbox. It picks up whatever inline processing
// did not finish: events written with inline processing disabled, failed deliveries that
// are due for a retry, and PROCESSING rows whose owner went away.
type EventDispatcher struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	DispatcherID string

	BatchSize    int
	PollInterval time.Duration
	LockTimeout  time.Duration
	MaxAttempts  int
}

func NewEventDispatcher(db *gorm.DB, logger *logrus.Logger) *EventDispatcher {
	return &EventDispatcher{
		DB:           db,
		Logger:       logger,
		DispatcherID: uuid.NewString(),
		BatchSize:    50,
		PollInterval: 500 * time.Millisecond,
		LockTimeout:  30 * time.Second,
		MaxAttempts:  models.DomainEventMaxAttempts,
	}
}

func (d *EventDispatcher) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.dispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

// dispatchOnce claims one batch and delivers it. Returns the number of events delivered.
func (d *EventDispatcher) dispatchOnce(ctx context.Context) int {
	db := d.DB
	if db == nil {
		return 0
	}
	now := time.Now().UTC()
	staleBefore := now.Add(-d.LockTimeout)

	var claimed []models.DomainEventRecord
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Eligible:
		// - PENDING / FAILED and due
		// - PROCESSING with a stale lock
		q := tx.
			Where(`
				(
					status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
				)
				OR
				(
					status = ? AND locked_at IS NOT NULL AND locked_at <= ?
				)
			`, []string{models.DomainEventStatusPending, models.DomainEventStatusFailed}, now, models.DomainEventStatusProcessing, staleBefore).
			Order("id ASC").
			Limit(d.BatchSize)
		if config.IsMySQL(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}

		for i := range claimed {
			if d.MaxAttempts > 0 && claimed[i].Attempts >= d.MaxAttempts {
				msg := fmt.Sprintf("max delivery attempts exceeded (%d)", d.MaxAttempts)
				claimed[i].Status = models.DomainEventStatusDead
				if err := tx.Model(&models.DomainEventRecord{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
					"status":          models.DomainEventStatusDead,
					"last_error":      &msg,
					"next_attempt_at": nil,
					"locked_at":       nil,
					"locked_by":       nil,
				}).Error; err != nil {
					return err
				}
				continue
			}

			claimed[i].Status = models.DomainEventStatusProcessing
			claimed[i].LockedAt = &now
			claimed[i].LockedBy = &d.DispatcherID
			claimed[i].Attempts++
			if err := tx.Model(&models.DomainEventRecord{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
				"status":          claimed[i].Status,
				"locked_at":       claimed[i].LockedAt,
				"locked_by":       claimed[i].LockedBy,
				"attempts":        gorm.Expr("attempts + 1"),
				"last_error":      nil,
				"next_attempt_at": nil,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(d.logger(), "eventDispatcher.go", "dispatchOnce", "claiming domain events", d.DispatcherID, err)
		return 0
	}

	delivered := 0
	for i := range claimed {
		rec := &claimed[i]
		if rec.Status == models.DomainEventStatusDead {
			continue
		}
		if err := models.DeliverDomainEvent(ctx, db, rec); err != nil {
			status, markErr := models.MarkDomainEventFailed(ctx, db, rec, err)
			fields := logrus.Fields{
				"field":      "EventDispatcher",
				"event_id":   rec.EventId,
				"event_type": rec.EventType,
				"attempt":    rec.Attempts,
				"status":     status,
			}
			if markErr != nil {
				fields["mark_error"] = markErr.Error()
			}
			d.logger().WithFields(fields).Error("domain event delivery failed: " + err.Error())
			continue
		}
		if err := models.MarkDomainEventSucceeded(ctx, db, rec); err != nil {
			config.LogError(d.logger(), "eventDispatcher.go", "dispatchOnce", "marking domain event succeeded", rec.EventId, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (d *EventDispatcher) logger() *logrus.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return config.GetLogger()
}

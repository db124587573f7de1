package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/metrics"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// VisitorAccess holds the access status of one visitor for one tenant.
// A single row per pair makes banned and permanent mutually exclusive.
type VisitorAccess struct {
	ID                  int                 `gorm:"primary_key" json:"-"`
	OrganizationId      string              `gorm:"size:36;not null;index" json:"organizationId"`
	TenantId            string              `gorm:"size:36;not null;uniqueIndex:idx_visitor_access_pair,priority:1" json:"tenantId"`
	VisitorId           string              `gorm:"size:36;not null;uniqueIndex:idx_visitor_access_pair,priority:2" json:"visitorId"`
	Status              VisitorAccessStatus `gorm:"size:20;not null;default:'UNRESTRICTED';index" json:"status"`
	VisitorName         string              `gorm:"size:200" json:"visitorName"`
	ChangedDate         time.Time           `gorm:"not null" json:"changedDate"`
	ChangedByEmployeeId string              `gorm:"size:36" json:"changedBy"`
	Version             int                 `gorm:"not null;default:0" json:"version"`
}

// VisitorAccessHistory is an append-only log of status changes.
type VisitorAccessHistory struct {
	ID                  int                 `gorm:"primary_key" json:"id"`
	OrganizationId      string              `gorm:"size:36;not null;index" json:"organizationId"`
	TenantId            string              `gorm:"size:36;not null;index:idx_visitor_access_history_pair,priority:1" json:"tenantId"`
	VisitorId           string              `gorm:"size:36;not null;index:idx_visitor_access_history_pair,priority:2" json:"visitorId"`
	FromStatus          VisitorAccessStatus `gorm:"size:20;not null" json:"fromStatus"`
	ToStatus            VisitorAccessStatus `gorm:"size:20;not null" json:"toStatus"`
	ChangedByEmployeeId string              `gorm:"size:36" json:"changedByEmployeeId"`
	ChangedByName       string              `gorm:"size:200" json:"changedBy"`
	ChangedAt           time.Time           `gorm:"not null" json:"changedAt"`
}

func (a VisitorAccess) Ref() *VisitorRef {
	return &VisitorRef{
		VisitorId:   a.VisitorId,
		VisitorName: a.VisitorName,
		ChangedDate: a.ChangedDate,
		ChangedBy:   a.ChangedByEmployeeId,
	}
}

const visitorAccessMaxAttempts = 3

var errVersionConflict = errors.New("visitor access version conflict")

// accessTransition describes one of the four list operations.
type accessTransition struct {
	name     string
	activity ActivityType
	// next returns the target status; changed=false means a no-op.
	next    func(from VisitorAccessStatus) (to VisitorAccessStatus, changed bool, err error)
	message func(visitor *VisitorProfile, tenant *Tenant) string
}

var (
	banTransition = accessTransition{
		name:     "banVisitor",
		activity: ActivityTypeVisitorBanned,
		next: func(from VisitorAccessStatus) (VisitorAccessStatus, bool, error) {
			if from == VisitorAccessBanned {
				return from, false, utils.NewConflictError("visitor is already banned for this tenant")
			}
			return VisitorAccessBanned, true, nil
		},
		message: func(v *VisitorProfile, t *Tenant) string {
			return fmt.Sprintf("Visitor %q was just banned for resident %s", v.FullName(), t.TenantFirstName)
		},
	}
	permanentTransition = accessTransition{
		name:     "makeVisitorPermanent",
		activity: ActivityTypeVisitorTurnedPermanent,
		next: func(from VisitorAccessStatus) (VisitorAccessStatus, bool, error) {
			if from == VisitorAccessPermanent {
				return from, false, utils.NewConflictError("visitor is already permanent for this tenant")
			}
			return VisitorAccessPermanent, true, nil
		},
		message: func(v *VisitorProfile, t *Tenant) string {
			return fmt.Sprintf("Visitor %q is now permanent for resident %s", v.FullName(), t.TenantFirstName)
		},
	}
	removeBannedTransition = accessTransition{
		name:     "removeBannedVisitor",
		activity: ActivityTypeBannedVisitorRemoved,
		next: func(from VisitorAccessStatus) (VisitorAccessStatus, bool, error) {
			if from != VisitorAccessBanned {
				return from, false, nil
			}
			return VisitorAccessUnrestricted, true, nil
		},
		message: func(v *VisitorProfile, t *Tenant) string {
			return fmt.Sprintf("Visitor %q is NOT banned by resident %s anymore", v.FullName(), t.TenantFirstName)
		},
	}
	removePermanentTransition = accessTransition{
		name:     "removePermanentVisitor",
		activity: ActivityTypePermanentVisitorRemoved,
		next: func(from VisitorAccessStatus) (VisitorAccessStatus, bool, error) {
			if from != VisitorAccessPermanent {
				return from, false, nil
			}
			return VisitorAccessUnrestricted, true, nil
		},
		message: func(v *VisitorProfile, t *Tenant) string {
			return fmt.Sprintf("Visitor %q is NOT a permanent visitor for resident %s", v.FullName(), t.TenantFirstName)
		},
	}
)

// BanVisitor moves the pair to BANNED, leaving PERMANENT if needed. Already banned is a CONFLICT.
func BanVisitor(ctx context.Context, tenantId string, visitorId string) (*Tenant, error) {
	return changeVisitorAccess(ctx, tenantId, visitorId, banTransition)
}

// MakeVisitorPermanent moves the pair to PERMANENT, leaving BANNED if needed. Already permanent is a CONFLICT.
func MakeVisitorPermanent(ctx context.Context, tenantId string, visitorId string) (*Tenant, error) {
	return changeVisitorAccess(ctx, tenantId, visitorId, permanentTransition)
}

// RemoveBannedVisitor is idempotent; the attempt is always audited.
func RemoveBannedVisitor(ctx context.Context, tenantId string, visitorId string) (*Tenant, error) {
	return changeVisitorAccess(ctx, tenantId, visitorId, removeBannedTransition)
}

// RemovePermanentVisitor is idempotent; the attempt is always audited.
func RemovePermanentVisitor(ctx context.Context, tenantId string, visitorId string) (*Tenant, error) {
	return changeVisitorAccess(ctx, tenantId, visitorId, removePermanentTransition)
}

func changeVisitorAccess(ctx context.Context, tenantId string, visitorId string, tr accessTransition) (*Tenant, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.RequiredFields(map[string]string{"tenantId": tenantId, "visitorId": visitorId}); err != nil {
		return nil, err
	}
	db, err := getDB()
	if err != nil {
		return nil, err
	}

	release := config.ObtainLock(ctx, fmt.Sprintf("lock:visitor-access:%s:%s", tenantId, visitorId), 10*time.Second)
	defer release()

	var eventIds []string
	var applied VisitorAccessStatus
	var changed bool
	for attempt := 1; ; attempt++ {
		eventIds = nil
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			tenant, err := fetchTenant(ctx, tx, tenantId)
			if err != nil {
				return err
			}
			visitor, err := fetchVisitor(ctx, tx, visitorId)
			if err != nil {
				return err
			}

			access, exists, err := loadVisitorAccess(ctx, tx, tenantId, visitorId)
			if err != nil {
				return err
			}
			from := access.Status
			to, ok, err := tr.next(from)
			if err != nil {
				return err
			}
			changed, applied = ok, to
			if ok {
				if err := writeVisitorAccess(ctx, tx, access, exists, to, visitor, actor); err != nil {
					return err
				}
				history := VisitorAccessHistory{
					OrganizationId:      tenant.OrganizationId,
					TenantId:            tenantId,
					VisitorId:           visitorId,
					FromStatus:          from,
					ToStatus:            to,
					ChangedByEmployeeId: actor.EmployeeId,
					ChangedByName:       actorDisplayName(actor),
					ChangedAt:           access.ChangedDate,
				}
				if err := tx.WithContext(ctx).Create(&history).Error; err != nil {
					return err
				}
			}

			eventId, err := emitActivity(ctx, tx, actor, tr.activity, tr.message(visitor, tenant), ReferenceTypeTenant, tenantId)
			if err != nil {
				return err
			}
			eventIds = append(eventIds, eventId)
			return nil
		})
		if !errors.Is(err, errVersionConflict) {
			break
		}
		metrics.IncVisitorAccessRetry()
		if attempt >= visitorAccessMaxAttempts {
			config.GetLogger().WithFields(logrus.Fields{
				"field":      tr.name,
				"tenant_id":  tenantId,
				"visitor_id": visitorId,
				"attempts":   attempt,
			}).Warn("visitor access update kept losing the version check")
			return nil, utils.NewConflictError("visitor access was changed concurrently, please retry")
		}
	}
	if err != nil {
		return nil, utils.WrapInternal(err, tr.name)
	}
	if changed {
		metrics.IncVisitorAccessTransition(string(applied))
	}

	ProcessEventsNow(ctx, eventIds)
	return GetTenant(ctx, tenantId)
}

// loadVisitorAccess returns the pair's row, or an unsaved UNRESTRICTED row when none exists yet.
func loadVisitorAccess(ctx context.Context, tx *gorm.DB, tenantId string, visitorId string) (*VisitorAccess, bool, error) {
	var access VisitorAccess
	err := tx.WithContext(ctx).Where("tenant_id = ? AND visitor_id = ?", tenantId, visitorId).Take(&access).Error
	if err == nil {
		return &access, true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &VisitorAccess{
			TenantId:  tenantId,
			VisitorId: visitorId,
			Status:    VisitorAccessUnrestricted,
		}, false, nil
	}
	return nil, false, err
}

// writeVisitorAccess applies the status with an optimistic version check.
// A lost race (row changed or created concurrently) returns errVersionConflict.
func writeVisitorAccess(ctx context.Context, tx *gorm.DB, access *VisitorAccess, exists bool, to VisitorAccessStatus, visitor *VisitorProfile, actor *utils.Actor) error {
	changedAt := now()
	if !exists {
		access.OrganizationId = visitor.OrganizationId
		access.Status = to
		access.VisitorName = visitor.FullName()
		access.ChangedDate = changedAt
		access.ChangedByEmployeeId = actor.EmployeeId
		access.Version = 1
		if err := tx.WithContext(ctx).Create(access).Error; err != nil {
			if isDuplicateKeyError(err) {
				return errVersionConflict
			}
			return err
		}
		return nil
	}

	res := tx.WithContext(ctx).Model(&VisitorAccess{}).
		Where("id = ? AND version = ?", access.ID, access.Version).
		Updates(map[string]interface{}{
			"status":                 to,
			"visitor_name":           visitor.FullName(),
			"changed_date":           changedAt,
			"changed_by_employee_id": actor.EmployeeId,
			"version":                gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errVersionConflict
	}
	access.Status = to
	access.ChangedDate = changedAt
	access.Version++
	return nil
}

// GetVisitorAccessStatus returns UNRESTRICTED when the pair has no row.
func GetVisitorAccessStatus(ctx context.Context, db *gorm.DB, tenantId string, visitorId string) (VisitorAccessStatus, error) {
	access, _, err := loadVisitorAccess(ctx, db, tenantId, visitorId)
	if err != nil {
		return "", utils.WrapInternal(err, "load visitor access")
	}
	return access.Status, nil
}

// GetVisitorAccessHistory lists status changes for the pair, oldest first.
func GetVisitorAccessHistory(ctx context.Context, tenantId string, visitorId string) ([]*VisitorAccessHistory, error) {
	if err := utils.RequiredFields(map[string]string{"tenantId": tenantId, "visitorId": visitorId}); err != nil {
		return nil, err
	}
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	if _, err := fetchTenant(ctx, db, tenantId); err != nil {
		return nil, err
	}
	if _, err := fetchVisitor(ctx, db, visitorId); err != nil {
		return nil, err
	}
	var rows []*VisitorAccessHistory
	if err := db.WithContext(ctx).
		Where("tenant_id = ? AND visitor_id = ?", tenantId, visitorId).
		Order("changed_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, utils.WrapInternal(err, "load visitor access history")
	}
	return rows, nil
}

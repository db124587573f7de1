package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantIncident is the incident as recorded on the tenant. It is the source of truth;
// IncidentLog rows are derived from it.
type TenantIncident struct {
	ID             string    `gorm:"primary_key;size:36" json:"id"`
	OrganizationId string    `gorm:"size:36;not null;index" json:"-"`
	TenantId       string    `gorm:"size:36;not null;index:idx_tenant_incident_tenant,priority:1" json:"tenantId"`
	IncidentType   string    `gorm:"size:100;not null" json:"incidentType"`
	Notes          string    `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time `gorm:"not null;index:idx_tenant_incident_tenant,priority:2" json:"createdAt"`
	CreatedByName  string    `gorm:"size:200" json:"createdBy"`
	EmployeeId     string    `gorm:"size:36" json:"employeeId"`
}

// IncidentLog is the organization-wide incident index. One row per incident id.
type IncidentLog struct {
	ID             string    `gorm:"primary_key;size:36" json:"id"`
	OrganizationId string    `gorm:"size:36;not null;index" json:"-"`
	IncidentId     string    `gorm:"size:36;not null;uniqueIndex" json:"incidentId"`
	TenantId       string    `gorm:"size:36;not null;index" json:"tenantId"`
	IncidentType   string    `gorm:"size:100;not null" json:"incidentType"`
	Notes          string    `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time `gorm:"not null;index" json:"createdAt"`
	CreatedByName  string    `gorm:"size:200" json:"createdBy"`
	EmployeeId     string    `gorm:"size:36" json:"employeeId"`
	PropagatedAt   time.Time `gorm:"not null" json:"propagatedAt"`
}

type NewIncidentInput struct {
	TenantId     string `json:"tenantId" validate:"required"`
	IncidentType string `json:"incidentType" validate:"required,max=100"`
	Notes        string `json:"notes"`
}

func (i *TenantIncident) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = utils.NewId()
	}
	return nil
}

func (l *IncidentLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = utils.NewId()
	}
	return nil
}

func (i TenantIncident) Payload() IncidentPayload {
	return IncidentPayload{
		IncidentId:     i.ID,
		OrganizationId: i.OrganizationId,
		TenantId:       i.TenantId,
		IncidentType:   i.IncidentType,
		Notes:          i.Notes,
		CreatedAt:      i.CreatedAt,
		CreatedByName:  i.CreatedByName,
		EmployeeId:     i.EmployeeId,
	}
}

func tenantIncidents(ctx context.Context, db *gorm.DB, tenantId string) ([]*TenantIncident, error) {
	incidents := []*TenantIncident{}
	if err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantId).
		Order("created_at DESC, id DESC").
		Find(&incidents).Error; err != nil {
		return nil, utils.WrapInternal(err, "load tenant incidents")
	}
	return incidents, nil
}

// CreateIncidentLog records the incident on the tenant and queues its propagation to the
// standalone log in the same transaction. Returns the tenant's incidents, newest first.
func CreateIncidentLog(ctx context.Context, input NewIncidentInput) ([]*TenantIncident, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	utils.TrimAll(&input)
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	db, err := getDB()
	if err != nil {
		return nil, err
	}

	var eventIds []string
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := fetchTenant(ctx, tx, input.TenantId)
		if err != nil {
			return err
		}
		incident := TenantIncident{
			OrganizationId: tenant.OrganizationId,
			TenantId:       tenant.ID,
			IncidentType:   input.IncidentType,
			Notes:          input.Notes,
			CreatedAt:      now(),
			CreatedByName:  actorDisplayName(actor),
			EmployeeId:     actor.EmployeeId,
		}
		if err := tx.WithContext(ctx).Create(&incident).Error; err != nil {
			return err
		}

		rec, err := EmitDomainEvent(ctx, tx, incident.OrganizationId, DomainEventIncidentCreated, incident.ID, incident.Payload())
		if err != nil {
			return err
		}
		eventIds = append(eventIds, rec.EventId)

		eventId, err := emitActivity(ctx, tx, actor, ActivityTypeNewIncidentCreated,
			fmt.Sprintf("New incident of type %q created", incident.IncidentType), ReferenceTypeIncident, incident.ID)
		if err != nil {
			return err
		}
		eventIds = append(eventIds, eventId)
		return nil
	})
	if err != nil {
		return nil, utils.WrapInternal(err, "create incident log")
	}

	ProcessEventsNow(ctx, eventIds)
	return tenantIncidents(ctx, db, input.TenantId)
}

// PropagateIncident writes the standalone copy. Running it again for the same incident is a no-op.
func PropagateIncident(ctx context.Context, db *gorm.DB, payload IncidentPayload) error {
	if err := utils.RequiredFields(map[string]string{"incidentId": payload.IncidentId, "tenantId": payload.TenantId}); err != nil {
		return err
	}
	row := IncidentLog{
		OrganizationId: payload.OrganizationId,
		IncidentId:     payload.IncidentId,
		TenantId:       payload.TenantId,
		IncidentType:   payload.IncidentType,
		Notes:          payload.Notes,
		CreatedAt:      payload.CreatedAt,
		CreatedByName:  payload.CreatedByName,
		EmployeeId:     payload.EmployeeId,
		PropagatedAt:   now(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "incident_id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return utils.WrapInternal(err, "propagate incident")
	}
	return nil
}

// FindUnpropagatedIncidents returns embedded incidents that have no standalone copy, oldest first.
func FindUnpropagatedIncidents(ctx context.Context, db *gorm.DB, limit int) ([]*TenantIncident, error) {
	var rows []*TenantIncident
	q := db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM incident_logs WHERE incident_logs.incident_id = tenant_incidents.id)").
		Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, utils.WrapInternal(err, "find unpropagated incidents")
	}
	return rows, nil
}

// GetIncidentLogs lists the standalone incident log, newest first.
func GetIncidentLogs(ctx context.Context) ([]*IncidentLog, error) {
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	var logs []*IncidentLog
	if err := db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, utils.WrapInternal(err, "list incident logs")
	}
	return logs, nil
}

func GetIncidentLog(ctx context.Context, tenantId string, incidentLogId string) (*IncidentLog, error) {
	if err := utils.RequiredFields(map[string]string{"tenantId": tenantId, "incidentLogId": incidentLogId}); err != nil {
		return nil, err
	}
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	if _, err := fetchTenant(ctx, db, tenantId); err != nil {
		return nil, err
	}
	var incidentLog IncidentLog
	if err := db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", incidentLogId, tenantId).
		Take(&incidentLog).Error; err != nil {
		return nil, notFoundOr(err, "log not found")
	}
	return &incidentLog, nil
}

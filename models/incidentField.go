package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultIncidentFieldName is seeded the first time an organization reads an empty catalog.
const DefaultIncidentFieldName = "Repairs"

// IncidentField is one entry of the organization's incident type catalog.
type IncidentField struct {
	ID             string    `gorm:"primary_key;size:36" json:"id"`
	OrganizationId string    `gorm:"size:36;not null;uniqueIndex:idx_incident_field_name,priority:1" json:"-"`
	FieldName      string    `gorm:"size:100;not null;uniqueIndex:idx_incident_field_name,priority:2" json:"fieldName"`
	CreatedByName  string    `gorm:"size:200" json:"createdBy"`
	EmployeeId     *string   `gorm:"size:36" json:"employeeId"`
	CreatedAt      time.Time `gorm:"not null" json:"createdAt"`
}

type NewIncidentFieldInput struct {
	FieldName string `json:"fieldName" validate:"required,max=100"`
}

func (f *IncidentField) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = utils.NewId()
	}
	return nil
}

func incidentFieldsOf(ctx context.Context, db *gorm.DB, organizationId string) ([]*IncidentField, error) {
	fields := []*IncidentField{}
	if err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Order("created_at ASC, id ASC").
		Find(&fields).Error; err != nil {
		return nil, utils.WrapInternal(err, "list incident fields")
	}
	return fields, nil
}

// GetIncidentFields lists the actor organization's catalog, oldest first.
// An empty catalog is seeded with DefaultIncidentFieldName.
func GetIncidentFields(ctx context.Context) ([]*IncidentField, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	fields, err := incidentFieldsOf(ctx, db, actor.OrganizationId)
	if err != nil || len(fields) > 0 {
		return fields, err
	}

	seed := IncidentField{
		OrganizationId: actor.OrganizationId,
		FieldName:      DefaultIncidentFieldName,
		CreatedByName:  "Default",
		CreatedAt:      now(),
	}
	// a concurrent reader may seed first
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, utils.WrapInternal(err, "seed incident fields")
	}
	return incidentFieldsOf(ctx, db, actor.OrganizationId)
}

// CreateIncidentField adds a type to the catalog. Names are unique per organization, ignoring case.
func CreateIncidentField(ctx context.Context, input NewIncidentFieldInput) (*IncidentField, error) {
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

	var existing int64
	if err := db.WithContext(ctx).Model(&IncidentField{}).
		Where("organization_id = ? AND LOWER(field_name) = ?", actor.OrganizationId, strings.ToLower(input.FieldName)).
		Count(&existing).Error; err != nil {
		return nil, utils.WrapInternal(err, "check incident field")
	}
	if existing > 0 {
		return nil, utils.NewConflictError("a field with that name already exists")
	}

	employeeId := actor.EmployeeId
	field := IncidentField{
		OrganizationId: actor.OrganizationId,
		FieldName:      input.FieldName,
		CreatedByName:  actorDisplayName(actor),
		EmployeeId:     &employeeId,
		CreatedAt:      now(),
	}
	if err := db.WithContext(ctx).Create(&field).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, utils.NewConflictError("a field with that name already exists")
		}
		return nil, utils.WrapInternal(err, "create incident field")
	}
	return &field, nil
}

// DeleteIncidentField removes one catalog entry. Incidents already recorded keep their type.
func DeleteIncidentField(ctx context.Context, fieldId string) (string, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return "", err
	}
	fieldId = strings.TrimSpace(fieldId)
	if err := utils.RequiredFields(map[string]string{"fieldId": fieldId}); err != nil {
		return "", err
	}
	db, err := getDB()
	if err != nil {
		return "", err
	}

	res := db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", fieldId, actor.OrganizationId).
		Delete(&IncidentField{})
	if res.Error != nil {
		return "", utils.WrapInternal(res.Error, "delete incident field")
	}
	if res.RowsAffected == 0 {
		return "", utils.NewNotFoundError("field not found")
	}

	config.GetLogger().WithFields(logrus.Fields{
		"field":       "DeleteIncidentField",
		"field_id":    fieldId,
		"employee_id": actor.EmployeeId,
	}).Info("incident field deleted")
	return "Field deleted successfully", nil
}

package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"gorm.io/gorm"
)

// Tenant is a resident. BannedVisitors and PermanentVisitors are read projections of VisitorAccess.
type Tenant struct {
	ID                    string     `gorm:"primary_key;size:36" json:"id"`
	OrganizationId        string     `gorm:"size:36;not null;index" json:"organizationId"`
	TenantFirstName       string     `gorm:"size:100;not null" json:"tenantFirstName"`
	TenantLastName        string     `gorm:"size:100;not null" json:"tenantLastName"`
	TenantNumber          int        `json:"tenantNumber"`
	DateOfBirth           *time.Time `json:"tenantDateOfBirth"`
	Apartment             string     `gorm:"size:50;index" json:"apartment"`
	MoveinDate            *time.Time `json:"moveinDate"`
	Phone                 string     `gorm:"size:30" json:"tenantPhone"`
	Email                 string     `gorm:"size:100" json:"tenantEmail"`
	CreatedByName         string     `gorm:"size:200" json:"createdBy"`
	EmployeeId            string     `gorm:"size:36" json:"employeeId"`
	ProfilePhoto          string     `gorm:"size:500" json:"tenantProfilePhoto"`
	AssignedParkingSpaces string     `gorm:"size:100" json:"assignedParkingSpaces"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"-"`

	BannedVisitors    []*VisitorRef     `gorm:"-" json:"bannedVisitors"`
	PermanentVisitors []*VisitorRef     `gorm:"-" json:"permanentVisitors"`
	IncidentLogs      []*TenantIncident `gorm:"foreignKey:TenantId" json:"incidentLogs"`
}

// VisitorRef is the snapshot shown in a tenant's banned/permanent lists.
type VisitorRef struct {
	VisitorId   string    `json:"visitorId"`
	VisitorName string    `json:"visitorName"`
	ChangedDate time.Time `json:"changedDate"`
	ChangedBy   string    `json:"changedBy"`
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = utils.NewId()
	}
	return nil
}

func (t Tenant) FullName() string {
	return fullName(t.TenantFirstName, t.TenantLastName)
}

// HasBanned reports whether the visitor is in the banned projection.
func (t Tenant) HasBanned(visitorId string) bool {
	return containsVisitor(t.BannedVisitors, visitorId)
}

func (t Tenant) HasPermanent(visitorId string) bool {
	return containsVisitor(t.PermanentVisitors, visitorId)
}

func containsVisitor(refs []*VisitorRef, visitorId string) bool {
	for _, ref := range refs {
		if ref.VisitorId == visitorId {
			return true
		}
	}
	return false
}

func fetchTenant(ctx context.Context, db *gorm.DB, tenantId string) (*Tenant, error) {
	tenant, err := utils.FetchModel[Tenant](ctx, db, tenantId)
	if err != nil {
		return nil, notFoundOr(err, "tenant not found")
	}
	return tenant, nil
}

// hydrateTenant fills the visitor projections (oldest change first) and the embedded
// incidents (newest first).
func hydrateTenant(ctx context.Context, db *gorm.DB, tenant *Tenant) error {
	var rows []*VisitorAccess
	if err := db.WithContext(ctx).
		Where("tenant_id = ? AND status <> ?", tenant.ID, VisitorAccessUnrestricted).
		Order("changed_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return utils.WrapInternal(err, "load visitor access")
	}
	tenant.BannedVisitors = []*VisitorRef{}
	tenant.PermanentVisitors = []*VisitorRef{}
	for _, row := range rows {
		switch row.Status {
		case VisitorAccessBanned:
			tenant.BannedVisitors = append(tenant.BannedVisitors, row.Ref())
		case VisitorAccessPermanent:
			tenant.PermanentVisitors = append(tenant.PermanentVisitors, row.Ref())
		}
	}

	incidents, err := tenantIncidents(ctx, db, tenant.ID)
	if err != nil {
		return err
	}
	tenant.IncidentLogs = incidents
	return nil
}

func GetTenant(ctx context.Context, tenantId string) (*Tenant, error) {
	if err := utils.RequiredFields(map[string]string{"tenantId": tenantId}); err != nil {
		return nil, err
	}
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	tenant, err := fetchTenant(ctx, db, tenantId)
	if err != nil {
		return nil, err
	}
	if err := hydrateTenant(ctx, db, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// GetTenants lists tenants by name. Projections are left empty; use GetTenant for the detail view.
func GetTenants(ctx context.Context) ([]*Tenant, error) {
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	tenants := []*Tenant{}
	if err := db.WithContext(ctx).
		Order("tenant_first_name ASC, tenant_last_name ASC, id ASC").
		Find(&tenants).Error; err != nil {
		return nil, utils.WrapInternal(err, "list tenants")
	}
	for _, tenant := range tenants {
		tenant.BannedVisitors = []*VisitorRef{}
		tenant.PermanentVisitors = []*VisitorRef{}
		tenant.IncidentLogs = []*TenantIncident{}
	}
	return tenants, nil
}

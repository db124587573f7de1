package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"gorm.io/gorm"
)

// Package is a parcel held at the front desk. Delivery is a one-way latch.
type Package struct {
	ID                   string    `gorm:"primary_key;size:36" json:"id"`
	OrganizationId       string    `gorm:"size:36;not null;index" json:"organizationId"`
	ReceivedDate         time.Time `gorm:"not null;index" json:"receivedDate"`
	ReceivedByEmployeeId string    `gorm:"size:36" json:"receivedByEmployeeId"`
	ReceivedByEmployee   string    `gorm:"size:200" json:"receivedByEmployee"`
	RecipientId          string    `gorm:"size:36;not null;index" json:"recipientId"`
	RecipientName        string    `gorm:"size:200" json:"recipientName"`
	Notes                string    `gorm:"type:text" json:"notes"`
	IsDelivered          bool      `gorm:"not null;default:false;index" json:"isDelivered"`

	DeliveredByEmployeeId *string    `gorm:"size:36" json:"-"`
	DeliveredByEmployee   *string    `gorm:"size:200" json:"-"`
	ReceivedByTenantId    *string    `gorm:"size:36" json:"-"`
	ReceivedByTenant      *string    `gorm:"size:200" json:"-"`
	DeliveryDate          *time.Time `json:"-"`
	DeliveryNotes         *string    `gorm:"type:text" json:"-"`

	Delivery *DeliveryRecord `gorm:"-" json:"delivery"`
}

// DeliveryRecord is present iff the package is delivered.
type DeliveryRecord struct {
	DeliveredByEmployeeId string    `json:"deliveredByEmployeeId"`
	DeliveredByEmployee   string    `json:"receivedByEmployee"`
	ReceivedByTenantId    string    `json:"receivedByTenantId"`
	ReceivedByTenant      string    `json:"receivedByTenant"`
	DeliveryDate          time.Time `json:"deliveryDate"`
	Notes                 string    `json:"notes"`
}

type NewPackageInput struct {
	TenantId    string `json:"tenantId" validate:"required"`
	IsDelivered *bool  `json:"isDelivered"`
	Notes       string `json:"notes"`
}

type DeliverPackageInput struct {
	PackageId string `json:"packageId" validate:"required"`
	TenantId  string `json:"tenantId" validate:"required"`
	Notes     string `json:"notes"`
}

func (p *Package) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.NewId()
	}
	return nil
}

func (p *Package) AfterFind(tx *gorm.DB) error {
	p.buildDelivery()
	return nil
}

func (p *Package) buildDelivery() {
	if !p.IsDelivered {
		p.Delivery = nil
		return
	}
	p.Delivery = &DeliveryRecord{
		DeliveredByEmployeeId: utils.DereferencePtr(p.DeliveredByEmployeeId),
		DeliveredByEmployee:   utils.DereferencePtr(p.DeliveredByEmployee),
		ReceivedByTenantId:    utils.DereferencePtr(p.ReceivedByTenantId),
		ReceivedByTenant:      utils.DereferencePtr(p.ReceivedByTenant),
		DeliveryDate:          utils.DereferencePtr(p.DeliveryDate),
		Notes:                 utils.DereferencePtr(p.DeliveryNotes),
	}
}

func fetchPackage(ctx context.Context, db *gorm.DB, packageId string) (*Package, error) {
	pkg, err := utils.FetchModel[Package](ctx, db, packageId)
	if err != nil {
		return nil, notFoundOr(err, "package not found")
	}
	return pkg, nil
}

// CreatePackage records a received package. With isDelivered it is handed over at intake,
// the creating employee delivering to the recipient tenant.
func CreatePackage(ctx context.Context, input NewPackageInput) (*Package, error) {
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

	var pkg Package
	var eventIds []string
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := fetchTenant(ctx, tx, input.TenantId)
		if err != nil {
			return err
		}
		receivedAt := now()
		pkg = Package{
			OrganizationId:       tenant.OrganizationId,
			ReceivedDate:         receivedAt,
			ReceivedByEmployeeId: actor.EmployeeId,
			ReceivedByEmployee:   actorDisplayName(actor),
			RecipientId:          tenant.ID,
			RecipientName:        tenant.FullName(),
			Notes:                input.Notes,
		}
		if utils.DereferencePtr(input.IsDelivered) {
			name := actorDisplayName(actor)
			tenantName := tenant.FullName()
			pkg.IsDelivered = true
			pkg.DeliveredByEmployeeId = &actor.EmployeeId
			pkg.DeliveredByEmployee = &name
			pkg.ReceivedByTenantId = &tenant.ID
			pkg.ReceivedByTenant = &tenantName
			pkg.DeliveryDate = &receivedAt
			pkg.DeliveryNotes = &input.Notes
		}
		if err := tx.WithContext(ctx).Create(&pkg).Error; err != nil {
			return err
		}
		eventId, err := emitActivity(ctx, tx, actor, ActivityTypeNewPackageReceived, "New package received", ReferenceTypePackage, pkg.ID)
		if err != nil {
			return err
		}
		eventIds = append(eventIds, eventId)
		return nil
	})
	if err != nil {
		return nil, utils.WrapInternal(err, "create package")
	}

	ProcessEventsNow(ctx, eventIds)
	pkg.buildDelivery()
	return &pkg, nil
}

// DeliverPackage hands the package to its recipient. The write is conditional on the package
// still being undelivered, so of two concurrent calls exactly one succeeds and the other gets CONFLICT.
func DeliverPackage(ctx context.Context, input DeliverPackageInput) (*Package, error) {
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

	release := config.ObtainLock(ctx, "lock:package-delivery:"+input.PackageId, 10*time.Second)
	defer release()

	var eventIds []string
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := fetchTenant(ctx, tx, input.TenantId)
		if err != nil {
			return err
		}
		pkg, err := fetchPackage(ctx, tx, input.PackageId)
		if err != nil {
			return err
		}
		if pkg.RecipientId != tenant.ID {
			return utils.NewValidationError("cannot deliver a package that does not belong to the provided tenant", map[string]string{
				"tenantId": "tenantId is not the package recipient",
			})
		}
		if pkg.IsDelivered {
			return utils.NewConflictError("package already delivered")
		}

		deliveredAt := now()
		res := tx.WithContext(ctx).Model(&Package{}).
			Where("id = ? AND is_delivered = ?", pkg.ID, false).
			Updates(map[string]interface{}{
				"is_delivered":             true,
				"delivered_by_employee_id": actor.EmployeeId,
				"delivered_by_employee":    actorDisplayName(actor),
				"received_by_tenant_id":    tenant.ID,
				"received_by_tenant":       tenant.FullName(),
				"delivery_date":            deliveredAt,
				"delivery_notes":           input.Notes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.NewConflictError("package already delivered")
		}

		eventId, err := emitActivity(ctx, tx, actor, ActivityTypePackageDelivered, "Package Delivered", ReferenceTypePackage, pkg.ID)
		if err != nil {
			return err
		}
		eventIds = append(eventIds, eventId)
		return nil
	})
	if err != nil {
		return nil, utils.WrapInternal(err, "deliver package")
	}

	ProcessEventsNow(ctx, eventIds)
	return fetchPackage(ctx, db, input.PackageId)
}

// GetPackages lists packages, most recently received first.
func GetPackages(ctx context.Context) ([]*Package, error) {
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	var packages []*Package
	if err := db.WithContext(ctx).Order("received_date DESC, id DESC").Find(&packages).Error; err != nil {
		return nil, utils.WrapInternal(err, "list packages")
	}
	return packages, nil
}

func GetPackagesByTenantId(ctx context.Context, tenantId string) ([]*Package, error) {
	if err := utils.RequiredFields(map[string]string{"tenantId": tenantId}); err != nil {
		return nil, err
	}
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	if _, err := fetchTenant(ctx, db, tenantId); err != nil {
		return nil, err
	}
	var packages []*Package
	if err := db.WithContext(ctx).
		Where("recipient_id = ?", tenantId).
		Order("received_date DESC, id DESC").
		Find(&packages).Error; err != nil {
		return nil, utils.WrapInternal(err, fmt.Sprintf("list packages of tenant %s", tenantId))
	}
	return packages, nil
}

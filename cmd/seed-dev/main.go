// seed-dev creates a local organization with an admin, a front desk clerk and a few tenants.
// Rerunning it resets the employee passwords and leaves existing tenants alone.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-dev
//
// SEED_ORGANIZATION_ID overrides the organization (default "dev-org").
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/models"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"gorm.io/gorm"
)

const (
	adminUsername = "frontdeskAdmin"
	adminPassword = "Fr0ntDesk@dmin"
	clerkUsername = "frontdesk"
	clerkPassword = "Fr0ntDesk"
)

type seedEmployee struct {
	username  string
	password  string
	firstName string
	lastName  string
	isAdmin   bool
}

var seedTenants = []models.Tenant{
	{TenantFirstName: "Ada", TenantLastName: "Lovelace", Apartment: "1A", TenantNumber: 101, Phone: "555-0101"},
	{TenantFirstName: "Grace", TenantLastName: "Hopper", Apartment: "2B", TenantNumber: 202, Phone: "555-0202"},
	{TenantFirstName: "Alan", TenantLastName: "Turing", Apartment: "3C", TenantNumber: 303, Phone: "555-0303"},
}

func main() {
	orgId := strings.TrimSpace(os.Getenv("SEED_ORGANIZATION_ID"))
	if orgId == "" {
		orgId = "dev-org"
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx := utils.SetOrganizationIdInContext(context.Background(), orgId)
	ctx = utils.SetSkipOrganizationScopeInContext(ctx, true)

	employees := []seedEmployee{
		{username: adminUsername, password: adminPassword, firstName: "Front", lastName: "Desk Admin", isAdmin: true},
		{username: clerkUsername, password: clerkPassword, firstName: "Front", lastName: "Desk"},
	}
	var adminId string
	for _, e := range employees {
		id, err := upsertEmployee(ctx, db, orgId, e)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed employee %q: %v\n", e.username, err)
			os.Exit(1)
		}
		if e.isAdmin {
			adminId = id
		}
	}

	created := 0
	for _, t := range seedTenants {
		t := t
		var existing models.Tenant
		err := db.WithContext(ctx).Where("organization_id = ? AND apartment = ?", orgId, t.Apartment).Take(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Fprintf(os.Stderr, "failed to lookup tenant %s: %v\n", t.Apartment, err)
			os.Exit(1)
		}
		t.OrganizationId = orgId
		t.EmployeeId = adminId
		t.CreatedByName = "Seed"
		if err := db.WithContext(ctx).Create(&t).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create tenant %s: %v\n", t.Apartment, err)
			os.Exit(1)
		}
		created++
	}
	fmt.Printf("Seeded organization %q: employees=%q,%q tenants created=%d\n", orgId, adminUsername, clerkUsername, created)
}

func upsertEmployee(ctx context.Context, db *gorm.DB, orgId string, e seedEmployee) (string, error) {
	hashed, err := utils.HashPassword(e.password)
	if err != nil {
		return "", err
	}

	var existing models.Employee
	err = db.WithContext(ctx).Where("username = ?", e.username).Take(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
		employee := models.Employee{
			OrganizationId: orgId,
			Username:       e.username,
			FirstName:      e.firstName,
			LastName:       e.lastName,
			Password:       hashed,
			IsAdmin:        e.isAdmin,
			IsActive:       utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&employee).Error; err != nil {
			return "", err
		}
		fmt.Printf("Created employee: username=%q admin=%v\n", e.username, e.isAdmin)
		return employee.ID, nil
	}

	if err := db.WithContext(ctx).Model(&models.Employee{}).Where("id = ?", existing.ID).Updates(map[string]any{
		"password":   hashed,
		"first_name": e.firstName,
		"last_name":  e.lastName,
		"is_admin":   e.isAdmin,
		"is_active":  true,
	}).Error; err != nil {
		return "", err
	}
	_ = existing.RemoveInstanceRedis()
	fmt.Printf("Updated employee: username=%q admin=%v\n", e.username, e.isAdmin)
	return existing.ID, nil
}

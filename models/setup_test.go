package models

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/frontdesk_backend/testutil"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testOrg = "org-1"

func setupModels(t *testing.T) (*gorm.DB, context.Context) {
	t.Helper()
	t.Setenv("INLINE_EVENT_PROCESSING", "true")
	t.Setenv("DOMAIN_EVENT_TOPIC", "")
	db := testutil.OpenDB(t, Migrate)
	return db, actorContext("emp-1", "Front Desk", testOrg)
}

func actorContext(employeeId string, name string, organizationId string) context.Context {
	return utils.SetActorInContext(context.Background(), utils.Actor{
		EmployeeId:     employeeId,
		Name:           name,
		OrganizationId: organizationId,
	})
}

func seedTenant(t *testing.T, db *gorm.DB, organizationId string, first string, last string) *Tenant {
	t.Helper()
	tenant := Tenant{
		OrganizationId:  organizationId,
		TenantFirstName: first,
		TenantLastName:  last,
		Apartment:       "4B",
	}
	require.NoError(t, db.Create(&tenant).Error)
	return &tenant
}

func seedVisitor(t *testing.T, ctx context.Context, name string, last string) *VisitorProfile {
	t.Helper()
	visitor, err := RegisterVisitor(ctx, NewVisitorInput{VisitorName: name, VisitorLastName: last})
	require.NoError(t, err)
	return visitor
}

func countActivities(t *testing.T, db *gorm.DB, activityType ActivityType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&Activity{}).Where("activity_type = ?", activityType).Count(&n).Error)
	return n
}

func requireKind(t *testing.T, err error, kind utils.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, utils.ErrorKindOf(err), "unexpected error: %v", err)
}

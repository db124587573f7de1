package models

import (
	"sync"
	"testing"

	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageDeliveryScenario(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	other := seedTenant(t, db, testOrg, "Grace", "Hopper")

	pkg, err := CreatePackage(ctx, NewPackageInput{TenantId: tenant.ID, Notes: "box"})
	require.NoError(t, err)
	assert.False(t, pkg.IsDelivered)
	assert.Nil(t, pkg.Delivery)
	assert.Equal(t, "Ada Lovelace", pkg.RecipientName)
	assert.Equal(t, "Front Desk", pkg.ReceivedByEmployee)

	_, err = DeliverPackage(ctx, DeliverPackageInput{PackageId: pkg.ID, TenantId: other.ID})
	requireKind(t, err, utils.ErrorKindValidation)
	assert.Contains(t, utils.ErrorFields(err), "tenantId")

	delivered, err := DeliverPackage(ctx, DeliverPackageInput{PackageId: pkg.ID, TenantId: tenant.ID, Notes: "front door"})
	require.NoError(t, err)
	assert.True(t, delivered.IsDelivered)
	require.NotNil(t, delivered.Delivery)
	assert.Equal(t, tenant.ID, delivered.Delivery.ReceivedByTenantId)
	assert.Equal(t, "Ada Lovelace", delivered.Delivery.ReceivedByTenant)
	assert.Equal(t, "emp-1", delivered.Delivery.DeliveredByEmployeeId)
	assert.Equal(t, "front door", delivered.Delivery.Notes)

	_, err = DeliverPackage(ctx, DeliverPackageInput{PackageId: pkg.ID, TenantId: tenant.ID})
	requireKind(t, err, utils.ErrorKindConflict)

	// mismatch is reported before the delivered state
	_, err = DeliverPackage(ctx, DeliverPackageInput{PackageId: pkg.ID, TenantId: other.ID})
	requireKind(t, err, utils.ErrorKindValidation)

	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypeNewPackageReceived))
	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypePackageDelivered))
}

func TestCreatePackageDeliveredAtIntake(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")

	pkg, err := CreatePackage(ctx, NewPackageInput{TenantId: tenant.ID, IsDelivered: utils.NewTrue(), Notes: "handed over"})
	require.NoError(t, err)
	require.NotNil(t, pkg.Delivery)
	assert.Equal(t, "emp-1", pkg.Delivery.DeliveredByEmployeeId)
	assert.Equal(t, tenant.ID, pkg.Delivery.ReceivedByTenantId)
	assert.Equal(t, pkg.ReceivedDate, pkg.Delivery.DeliveryDate)

	loaded, err := fetchPackage(ctx, db, pkg.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Delivery)
	assert.Equal(t, "handed over", loaded.Delivery.Notes)

	_, err = DeliverPackage(ctx, DeliverPackageInput{PackageId: pkg.ID, TenantId: tenant.ID})
	requireKind(t, err, utils.ErrorKindConflict)
}

func TestCreatePackageValidation(t *testing.T) {
	db, ctx := setupModels(t)

	_, err := CreatePackage(ctx, NewPackageInput{})
	requireKind(t, err, utils.ErrorKindValidation)
	assert.Equal(t, "tenantId is required", utils.ErrorFields(err)["tenantId"])

	_, err = CreatePackage(ctx, NewPackageInput{TenantId: "missing"})
	requireKind(t, err, utils.ErrorKindNotFound)

	_, err = DeliverPackage(ctx, DeliverPackageInput{PackageId: "missing", TenantId: seedTenant(t, db, testOrg, "Ada", "Lovelace").ID})
	requireKind(t, err, utils.ErrorKindNotFound)

	assert.Equal(t, int64(0), countActivities(t, db, ActivityTypeNewPackageReceived))
}

func TestConcurrentDeliveriesHaveOneWinner(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	pkg, err := CreatePackage(ctx, NewPackageInput{TenantId: tenant.ID})
	require.NoError(t, err)

	const callers = 4
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = DeliverPackage(ctx, DeliverPackageInput{PackageId: pkg.ID, TenantId: tenant.ID})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		requireKind(t, err, utils.ErrorKindConflict)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypePackageDelivered))
}

func TestPackagesByTenant(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	other := seedTenant(t, db, testOrg, "Grace", "Hopper")

	first, err := CreatePackage(ctx, NewPackageInput{TenantId: tenant.ID})
	require.NoError(t, err)
	second, err := CreatePackage(ctx, NewPackageInput{TenantId: tenant.ID})
	require.NoError(t, err)
	_, err = CreatePackage(ctx, NewPackageInput{TenantId: other.ID})
	require.NoError(t, err)

	packages, err := GetPackagesByTenantId(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, packages, 2)
	ids := []string{packages[0].ID, packages[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)

	all, err := GetPackages(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = GetPackagesByTenantId(ctx, "missing")
	requireKind(t, err, utils.ErrorKindNotFound)
}

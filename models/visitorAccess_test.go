package models

import (
	"sync"
	"testing"

	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBannedVisitorCheckInScenario(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	visitor := seedVisitor(t, ctx, "Bob", "Smith")

	updated, err := BanVisitor(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)
	require.Len(t, updated.BannedVisitors, 1)
	assert.Equal(t, visitor.ID, updated.BannedVisitors[0].VisitorId)
	assert.Equal(t, "Bob Smith", updated.BannedVisitors[0].VisitorName)
	assert.Equal(t, "emp-1", updated.BannedVisitors[0].ChangedBy)
	assert.Empty(t, updated.PermanentVisitors)

	_, err = LogVisit(ctx, tenant.ID, visitor.ID)
	requireKind(t, err, utils.ErrorKindForbidden)
	assert.Equal(t, "visitor is banned", err.Error())

	updated, err = MakeVisitorPermanent(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.BannedVisitors)
	require.Len(t, updated.PermanentVisitors, 1)
	assert.Equal(t, visitor.ID, updated.PermanentVisitors[0].VisitorId)

	profile, err := LogVisit(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)
	require.Len(t, profile.VisitsLogs, 1)
	assert.Equal(t, tenant.ID, profile.VisitsLogs[0].TenantId)
	assert.Equal(t, "Front Desk", profile.VisitsLogs[0].CreatedByName)

	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypeVisitorBanned))
	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypeVisitorTurnedPermanent))
	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypeNewVisitorLogged))
}

func TestBanThenRemoveRestoresUnrestricted(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	visitor := seedVisitor(t, ctx, "Bob", "Smith")

	_, err := BanVisitor(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)

	updated, err := RemoveBannedVisitor(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.BannedVisitors)

	status, err := GetVisitorAccessStatus(ctx, db, tenant.ID, visitor.ID)
	require.NoError(t, err)
	assert.Equal(t, VisitorAccessUnrestricted, status)

	_, err = LogVisit(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)
}

func TestSameStateTransitionsConflict(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	visitor := seedVisitor(t, ctx, "Bob", "Smith")

	_, err := BanVisitor(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)
	_, err = BanVisitor(ctx, tenant.ID, visitor.ID)
	requireKind(t, err, utils.ErrorKindConflict)

	_, err = MakeVisitorPermanent(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)
	_, err = MakeVisitorPermanent(ctx, tenant.ID, visitor.ID)
	requireKind(t, err, utils.ErrorKindConflict)

	// a rejected transition is not audited
	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypeVisitorBanned))
	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypeVisitorTurnedPermanent))
}

func TestRemovalsAreIdempotentButAlwaysAudited(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	visitor := seedVisitor(t, ctx, "Bob", "Smith")

	_, err := MakeVisitorPermanent(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)

	// not banned: no-op, still audited, permanent status untouched
	updated, err := RemoveBannedVisitor(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)
	assert.Len(t, updated.PermanentVisitors, 1)

	for i := 0; i < 2; i++ {
		updated, err = RemovePermanentVisitor(ctx, tenant.ID, visitor.ID)
		require.NoError(t, err)
		assert.Empty(t, updated.PermanentVisitors)
	}

	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypeBannedVisitorRemoved))
	assert.Equal(t, int64(2), countActivities(t, db, ActivityTypePermanentVisitorRemoved))

	history, err := GetVisitorAccessHistory(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, VisitorAccessUnrestricted, history[0].FromStatus)
	assert.Equal(t, VisitorAccessPermanent, history[0].ToStatus)
	assert.Equal(t, VisitorAccessPermanent, history[1].FromStatus)
	assert.Equal(t, VisitorAccessUnrestricted, history[1].ToStatus)
}

func TestAccessActivitiesNameTheVisitor(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	visitor := seedVisitor(t, ctx, "Bob", "Smith")

	_, err := BanVisitor(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)
	_, err = RemoveBannedVisitor(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)
	_, err = MakeVisitorPermanent(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)
	_, err = RemovePermanentVisitor(ctx, tenant.ID, visitor.ID)
	require.NoError(t, err)

	var activities []Activity
	require.NoError(t, db.Where("reference_id = ?", tenant.ID).Order("id ASC").Find(&activities).Error)
	require.Len(t, activities, 4)
	assert.Equal(t, `Visitor "Bob Smith" was just banned for resident Ada`, activities[0].Message)
	assert.Equal(t, `Visitor "Bob Smith" is NOT banned by resident Ada anymore`, activities[1].Message)
	assert.Equal(t, `Visitor "Bob Smith" is now permanent for resident Ada`, activities[2].Message)
	assert.Equal(t, `Visitor "Bob Smith" is NOT a permanent visitor for resident Ada`, activities[3].Message)
}

func TestVisitorNeverBothBannedAndPermanent(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	visitors := []*VisitorProfile{
		seedVisitor(t, ctx, "Bob", "Smith"),
		seedVisitor(t, ctx, "Carol", "Jones"),
	}

	ops := []func(string, string) error{
		func(tid, vid string) error { _, err := BanVisitor(ctx, tid, vid); return err },
		func(tid, vid string) error { _, err := MakeVisitorPermanent(ctx, tid, vid); return err },
		func(tid, vid string) error { _, err := RemoveBannedVisitor(ctx, tid, vid); return err },
		func(tid, vid string) error { _, err := RemovePermanentVisitor(ctx, tid, vid); return err },
	}
	sequence := []int{0, 1, 0, 2, 1, 1, 3, 0, 0, 1, 2, 3, 1, 0}
	for step, op := range sequence {
		for _, v := range visitors {
			err := ops[op](tenant.ID, v.ID)
			if err != nil {
				requireKind(t, err, utils.ErrorKindConflict)
			}
		}
		view, err := GetTenant(ctx, tenant.ID)
		require.NoError(t, err)
		for _, v := range visitors {
			assert.False(t, view.HasBanned(v.ID) && view.HasPermanent(v.ID), "step %d: visitor %s in both lists", step, v.ID)
		}
	}

	var rows int64
	require.NoError(t, db.Model(&VisitorAccess{}).Where("tenant_id = ?", tenant.ID).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)
}

func TestConcurrentBansProduceOneWinner(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	visitor := seedVisitor(t, ctx, "Bob", "Smith")

	const callers = 5
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = BanVisitor(ctx, tenant.ID, visitor.ID)
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
	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypeVisitorBanned))
}

func TestVisitorAccessPreconditions(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	visitor := seedVisitor(t, ctx, "Bob", "Smith")

	_, err := BanVisitor(ctx, "", visitor.ID)
	requireKind(t, err, utils.ErrorKindValidation)
	assert.Contains(t, utils.ErrorFields(err), "tenantId")

	_, err = BanVisitor(ctx, "missing", visitor.ID)
	requireKind(t, err, utils.ErrorKindNotFound)

	_, err = RemoveBannedVisitor(ctx, tenant.ID, "missing")
	requireKind(t, err, utils.ErrorKindNotFound)

	_, err = BanVisitor(actorContext("", "", testOrg), tenant.ID, visitor.ID)
	requireKind(t, err, utils.ErrorKindAuthentication)

	assert.Equal(t, int64(0), countActivities(t, db, ActivityTypeVisitorBanned))
	assert.Equal(t, int64(0), countActivities(t, db, ActivityTypeBannedVisitorRemoved))
}

func TestTenantListsKeepChangeOrder(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	first := seedVisitor(t, ctx, "Bob", "Smith")
	second := seedVisitor(t, ctx, "Carol", "Jones")

	_, err := BanVisitor(ctx, tenant.ID, first.ID)
	require.NoError(t, err)
	view, err := BanVisitor(ctx, tenant.ID, second.ID)
	require.NoError(t, err)

	require.Len(t, view.BannedVisitors, 2)
	assert.Equal(t, first.ID, view.BannedVisitors[0].VisitorId)
	assert.Equal(t, second.ID, view.BannedVisitors[1].VisitorId)
}

func TestOrganizationScopeHidesOtherTenants(t *testing.T) {
	db, ctx := setupModels(t)
	other := seedTenant(t, db, "org-2", "Grace", "Hopper")

	_, err := GetTenant(ctx, other.ID)
	requireKind(t, err, utils.ErrorKindNotFound)

	superCtx := utils.SetIsSuperAdminInContext(ctx, true)
	found, err := GetTenant(superCtx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "org-2", found.OrganizationId)

	own := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	tenants, err := GetTenants(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, own.ID, tenants[0].ID)
	assert.NotNil(t, tenants[0].BannedVisitors)
	assert.NotNil(t, tenants[0].PermanentVisitors)
	assert.Empty(t, tenants[0].BannedVisitors)

	all, err := GetTenants(superCtx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

package models

import (
	"strconv"
	"testing"

	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordActivityOncePerEvent(t *testing.T) {
	db, ctx := setupModels(t)

	input := NewActivity{
		EventId:        "evt-1",
		OrganizationId: testOrg,
		ActivityType:   ActivityTypeNewVisitorCreated,
		CreatedByName:  "Front Desk",
		EmployeeId:     "emp-1",
		Message:        "Visitor \"Bob Smith\" created",
		ReferenceId:    "visitor-1",
		ReferenceType:  ReferenceTypeVisitor,
	}
	first, err := RecordActivity(ctx, db, input)
	require.NoError(t, err)
	second, err := RecordActivity(ctx, db, input)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypeNewVisitorCreated))

	_, err = RecordActivity(ctx, db, NewActivity{EventId: "evt-2", ActivityType: "SOMETHING_ELSE"})
	requireKind(t, err, utils.ErrorKindValidation)
}

func TestRedeliveredEventsDoNotDuplicate(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")

	_, err := CreateIncidentLog(ctx, NewIncidentInput{TenantId: tenant.ID, IncidentType: "Noise"})
	require.NoError(t, err)

	var events []*DomainEventRecord
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 2)
	for _, rec := range events {
		assert.Equal(t, DomainEventStatusSucceeded, rec.Status)
		require.NoError(t, DeliverDomainEvent(ctx, db, rec))
	}

	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypeNewIncidentCreated))
	var logs int64
	require.NoError(t, db.Model(&IncidentLog{}).Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}

func TestSystemActivitiesPagination(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")
	for i := 0; i < 5; i++ {
		_, err := CreatePackage(ctx, NewPackageInput{TenantId: tenant.ID})
		require.NoError(t, err)
	}
	seedVisitor(t, ctx, "Bob", "Smith")

	limit := 4
	page, err := GetSystemActivities(ctx, &limit, nil, nil)
	require.NoError(t, err)
	require.Len(t, page.Edges, 4)
	assert.True(t, page.PageInfo.HasNextPage)
	assert.Equal(t, ActivityTypeNewVisitorCreated, page.Edges[0].Node.ActivityType)
	for i := 1; i < len(page.Edges); i++ {
		assert.Greater(t, page.Edges[i-1].Node.ID, page.Edges[i].Node.ID)
	}

	next, err := GetSystemActivities(ctx, &limit, &page.PageInfo.EndCursor, nil)
	require.NoError(t, err)
	require.Len(t, next.Edges, 2)
	assert.False(t, next.PageInfo.HasNextPage)
	assert.Less(t, next.Edges[0].Node.ID, page.Edges[3].Node.ID)

	packagesOnly := ActivityTypeNewPackageReceived
	filtered, err := GetSystemActivities(ctx, nil, nil, &packagesOnly)
	require.NoError(t, err)
	assert.Len(t, filtered.Edges, 5)

	bad := "not-a-cursor"
	_, err = GetSystemActivities(ctx, nil, &bad, nil)
	requireKind(t, err, utils.ErrorKindValidation)
}

func TestGetSystemActivity(t *testing.T) {
	db, ctx := setupModels(t)
	seedVisitor(t, ctx, "Bob", "Smith")

	var stored Activity
	require.NoError(t, db.Take(&stored).Error)

	found, err := GetSystemActivity(ctx, strconv.Itoa(stored.ID))
	require.NoError(t, err)
	assert.Equal(t, stored.EventId, found.EventId)
	assert.Equal(t, "Front Desk", found.CreatedByName)

	_, err = GetSystemActivity(ctx, "abc")
	requireKind(t, err, utils.ErrorKindNotFound)
	_, err = GetSystemActivity(ctx, "9999")
	requireKind(t, err, utils.ErrorKindNotFound)
}

package models

import (
	"testing"

	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIncidentWritesBothViews(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")

	incidents, err := CreateIncidentLog(ctx, NewIncidentInput{TenantId: tenant.ID, IncidentType: "Noise", Notes: "loud music"})
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	embedded := incidents[0]

	logs, err := GetIncidentLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	standalone := logs[0]

	assert.Equal(t, embedded.ID, standalone.IncidentId)
	assert.Equal(t, embedded.TenantId, standalone.TenantId)
	assert.Equal(t, embedded.IncidentType, standalone.IncidentType)
	assert.Equal(t, embedded.Notes, standalone.Notes)
	assert.Equal(t, embedded.CreatedByName, standalone.CreatedByName)
	assert.Equal(t, embedded.EmployeeId, standalone.EmployeeId)
	assert.True(t, embedded.CreatedAt.Equal(standalone.CreatedAt))

	found, err := GetIncidentLog(ctx, tenant.ID, standalone.ID)
	require.NoError(t, err)
	assert.Equal(t, standalone.IncidentId, found.IncidentId)

	view, err := GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, view.IncidentLogs, 1)
	assert.Equal(t, embedded.ID, view.IncidentLogs[0].ID)

	assert.Equal(t, int64(1), countActivities(t, db, ActivityTypeNewIncidentCreated))
}

func TestIncidentsNewestFirst(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")

	_, err := CreateIncidentLog(ctx, NewIncidentInput{TenantId: tenant.ID, IncidentType: "Noise"})
	require.NoError(t, err)
	incidents, err := CreateIncidentLog(ctx, NewIncidentInput{TenantId: tenant.ID, IncidentType: "Leak"})
	require.NoError(t, err)

	require.Len(t, incidents, 2)
	assert.Equal(t, "Leak", incidents[0].IncidentType)
	assert.Equal(t, "Noise", incidents[1].IncidentType)
}

func TestPropagateIncidentIsIdempotent(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")

	incidents, err := CreateIncidentLog(ctx, NewIncidentInput{TenantId: tenant.ID, IncidentType: "Noise"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, PropagateIncident(ctx, db, incidents[0].Payload()))
	}

	var n int64
	require.NoError(t, db.Model(&IncidentLog{}).Where("incident_id = ?", incidents[0].ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestIncidentLeftForDispatcherWhenInlineDisabled(t *testing.T) {
	db, ctx := setupModels(t)
	t.Setenv("INLINE_EVENT_PROCESSING", "false")
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")

	incidents, err := CreateIncidentLog(ctx, NewIncidentInput{TenantId: tenant.ID, IncidentType: "Noise"})
	require.NoError(t, err)
	require.Len(t, incidents, 1)

	logs, err := GetIncidentLogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)

	pending, err := FindUnpropagatedIncidents(ctx, db, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, incidents[0].ID, pending[0].ID)

	var events []DomainEventRecord
	require.NoError(t, db.Where("status = ?", DomainEventStatusPending).Find(&events).Error)
	assert.Len(t, events, 2)
}

func TestIncidentValidation(t *testing.T) {
	db, ctx := setupModels(t)
	tenant := seedTenant(t, db, testOrg, "Ada", "Lovelace")

	_, err := CreateIncidentLog(ctx, NewIncidentInput{TenantId: tenant.ID})
	requireKind(t, err, utils.ErrorKindValidation)
	assert.Equal(t, "incidentType is required", utils.ErrorFields(err)["incidentType"])

	_, err = CreateIncidentLog(ctx, NewIncidentInput{TenantId: "missing", IncidentType: "Noise"})
	requireKind(t, err, utils.ErrorKindNotFound)

	_, err = GetIncidentLog(ctx, tenant.ID, "missing")
	requireKind(t, err, utils.ErrorKindNotFound)

	logs, err := GetIncidentLogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

package models

import (
	"testing"

	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIncidentFieldsSeedsDefault(t *testing.T) {
	db, ctx := setupModels(t)

	fields, err := GetIncidentFields(ctx)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, DefaultIncidentFieldName, fields[0].FieldName)
	assert.Equal(t, "Default", fields[0].CreatedByName)
	assert.Nil(t, fields[0].EmployeeId)

	// second read does not seed again
	fields, err = GetIncidentFields(ctx)
	require.NoError(t, err)
	assert.Len(t, fields, 1)

	var n int64
	require.NoError(t, db.Model(&IncidentField{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCreateIncidentField(t *testing.T) {
	_, ctx := setupModels(t)

	field, err := CreateIncidentField(ctx, NewIncidentFieldInput{FieldName: "  Noise complaint "})
	require.NoError(t, err)
	assert.Equal(t, "Noise complaint", field.FieldName)
	assert.Equal(t, "Front Desk", field.CreatedByName)
	require.NotNil(t, field.EmployeeId)
	assert.Equal(t, "emp-1", *field.EmployeeId)

	_, err = CreateIncidentField(ctx, NewIncidentFieldInput{FieldName: "noise COMPLAINT"})
	requireKind(t, err, utils.ErrorKindConflict)

	_, err = CreateIncidentField(ctx, NewIncidentFieldInput{FieldName: "   "})
	requireKind(t, err, utils.ErrorKindValidation)
	assert.Equal(t, "fieldName is required", utils.ErrorFields(err)["fieldName"])

	// a non-empty catalog is not seeded
	fields, err := GetIncidentFields(ctx)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, field.ID, fields[0].ID)
}

func TestIncidentFieldsArePerOrganization(t *testing.T) {
	_, ctx := setupModels(t)
	otherCtx := actorContext("emp-2", "Other Desk", "org-2")

	_, err := CreateIncidentField(ctx, NewIncidentFieldInput{FieldName: "Leak"})
	require.NoError(t, err)
	_, err = CreateIncidentField(otherCtx, NewIncidentFieldInput{FieldName: "Leak"})
	require.NoError(t, err)

	fields, err := GetIncidentFields(otherCtx)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "Other Desk", fields[0].CreatedByName)
}

func TestDeleteIncidentField(t *testing.T) {
	db, ctx := setupModels(t)
	keep, err := CreateIncidentField(ctx, NewIncidentFieldInput{FieldName: "Leak"})
	require.NoError(t, err)
	drop, err := CreateIncidentField(ctx, NewIncidentFieldInput{FieldName: "Lockout"})
	require.NoError(t, err)

	msg, err := DeleteIncidentField(ctx, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, "Field deleted successfully", msg)

	var remaining []IncidentField
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep.ID, remaining[0].ID)

	_, err = DeleteIncidentField(ctx, drop.ID)
	requireKind(t, err, utils.ErrorKindNotFound)
	_, err = DeleteIncidentField(actorContext("emp-2", "Other Desk", "org-2"), keep.ID)
	requireKind(t, err, utils.ErrorKindNotFound)
	_, err = DeleteIncidentField(ctx, "")
	requireKind(t, err, utils.ErrorKindValidation)
}

package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	TenantId    string  `json:"tenantId" validate:"required"`
	VisitorName string  `json:"visitorName" validate:"required,max=5"`
	Notes       *string `json:"notes"`
}

func TestValidateInputUsesJsonNames(t *testing.T) {
	err := ValidateInput(sampleInput{VisitorName: "toolongname"})
	require.Error(t, err)
	assert.True(t, IsErrorKind(err, ErrorKindValidation))

	fields := ErrorFields(err)
	assert.Equal(t, "tenantId is required", fields["tenantId"])
	assert.Equal(t, "visitorName must be at most 5 characters", fields["visitorName"])

	require.NoError(t, ValidateInput(sampleInput{TenantId: "t1", VisitorName: "Ann"}))
}

func TestRequiredFields(t *testing.T) {
	err := RequiredFields(map[string]string{"tenantId": " ", "visitorId": "v1", "packageId": ""})
	require.Error(t, err)
	assert.True(t, IsErrorKind(err, ErrorKindValidation))
	assert.Equal(t, map[string]string{
		"tenantId":  "tenantId is required",
		"packageId": "packageId is required",
	}, ErrorFields(err))

	assert.NoError(t, RequiredFields(map[string]string{"tenantId": "t1"}))
	assert.NoError(t, RequiredFields(nil))
}

func TestTrimAll(t *testing.T) {
	notes := "  left at door \n"
	in := sampleInput{TenantId: " t1 ", VisitorName: "\tAnn ", Notes: &notes}
	TrimAll(&in)
	assert.Equal(t, "t1", in.TenantId)
	assert.Equal(t, "Ann", in.VisitorName)
	assert.Equal(t, "left at door", *in.Notes)

	// non-pointer input is ignored
	TrimAll(in)
}

func TestUniqueSlice(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, UniqueSlice([]string{"a", "b", "a"}))
	assert.Empty(t, UniqueSlice([]int{}))
}

func TestDereferencePtr(t *testing.T) {
	assert.Equal(t, "", DereferencePtr[string](nil))
	assert.Equal(t, "x", DereferencePtr[string](nil, "x"))
	assert.True(t, DereferencePtr(NewTrue()))
	assert.Nil(t, NilIfEmpty(""))
}

func TestActorContextRoundTrip(t *testing.T) {
	_, err := GetActorFromContext(context.Background())
	assert.True(t, IsErrorKind(err, ErrorKindAuthentication))

	ctx := SetActorInContext(context.Background(), Actor{
		EmployeeId:     "emp-1",
		Name:           "Front Desk",
		OrganizationId: "org-1",
		IsAdmin:        true,
	})
	actor, err := GetActorFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "emp-1", actor.EmployeeId)
	assert.Equal(t, "org-1", actor.OrganizationId)
	assert.True(t, actor.IsAdmin)
	assert.False(t, actor.IsSuperAdmin)
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJwtRoundTrip(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")
	t.Setenv("TOKEN_HOUR_LIFESPAN", "1")

	token, err := JwtGenerate("emp-42", "admin")
	require.NoError(t, err)

	claims, err := ClaimsFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "emp-42", claims.EmployeeId)
	assert.Equal(t, "admin", claims.Role)
}

func TestClaimsFromTokenRejectsGarbage(t *testing.T) {
	_, err := ClaimsFromToken("not-a-jwt")
	assert.True(t, IsErrorKind(err, ErrorKindAuthentication))
}

func TestClaimsFromTokenRejectsOtherSecret(t *testing.T) {
	t.Setenv("API_SECRET", "one")
	token, err := JwtGenerate("emp-1", "")
	require.NoError(t, err)

	t.Setenv("API_SECRET", "two")
	_, err = ClaimsFromToken(token)
	assert.True(t, IsErrorKind(err, ErrorKindAuthentication))
}

func TestPasswordHash(t *testing.T) {
	hashed, err := HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, ComparePassword(hashed, "s3cret"))
	assert.Error(t, ComparePassword(hashed, "wrong"))
}

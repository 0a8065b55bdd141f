package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse(t *testing.T) {
	tok, err := Generate("s3cret", "u1", "c1", RoleWarehouse, "ledger", 5)
	require.NoError(t, err)

	claims, err := Parse("s3cret", "ledger", tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "c1", claims.CompanyID)
	assert.Equal(t, RoleWarehouse, claims.Role)
}

func TestParse_Rechazos(t *testing.T) {
	tok, err := Generate("s3cret", "u1", "c1", RoleSeller, "ledger", 5)
	require.NoError(t, err)

	_, err = Parse("otro", "ledger", tok)
	assert.Error(t, err, "firma incorrecta")

	_, err = Parse("s3cret", "otro-emisor", tok)
	assert.Error(t, err, "emisor distinto")

	expired, err := Generate("s3cret", "u1", "c1", RoleSeller, "ledger", -1)
	require.NoError(t, err)
	_, err = Parse("s3cret", "ledger", expired)
	assert.Error(t, err, "expirado")

	_, err = Parse("", "ledger", tok)
	assert.Error(t, err)
}

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndVerify(t *testing.T) {
	tok, err := CreateToken("s3cret", "iss", "aud", "auth0|42", "trader", "t@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := VerifyToken("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, "auth0|42", claims.Subject)
	assert.Equal(t, "trader", claims.Nickname)
	assert.Equal(t, "t@example.com", claims.Email)
	assert.Equal(t, "iss", claims.Issuer)

	_, err = VerifyToken("other", tok)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	tok, err := CreateToken("s3cret", "iss", "aud", "auth0|42", "", "", -time.Minute)
	require.NoError(t, err)
	_, err = VerifyToken("s3cret", tok)
	assert.Error(t, err)
}

func TestMissingSecret(t *testing.T) {
	_, err := CreateToken("", "iss", "aud", "sub", "", "", time.Hour)
	assert.Error(t, err)
	_, err = VerifyToken("", "x")
	assert.Error(t, err)
}

package config

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "DB_URL", "AUTH0_DOMAIN", "AUTH0_AUDIENCE", "JWT_SECRET_KEY", "ALLOWED_ORIGINS",
		"ADMIN_SUBJECTS", "VAULT_KEY", "LOG_LEVEL", "MAX_LIVE_QUANTITY", "QUIZ_PASS_PERCENT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDevelopmentDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET_KEY", "local-secret")
	t.Setenv("ADMIN_SUBJECTS", "auth0|admin, auth0|other ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, devIssuer, cfg.Issuer())
	assert.Equal(t, devAudience, cfg.Auth0Audience)
	assert.Equal(t, []string{"auth0|admin", "auth0|other"}, cfg.AdminSubjects)
	assert.True(t, cfg.IsAdmin("auth0|admin"))
	assert.False(t, cfg.IsAdmin("auth0|user"))
	assert.NotEmpty(t, cfg.VaultKey)
	assert.Equal(t, 50, cfg.MaxLiveQuantity)
}

func TestLoadRequiresSecretInDevelopment(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH0_DOMAIN", "tenant.eu.auth0.com")
	t.Setenv("AUTH0_AUDIENCE", "https://api.example.com")

	_, err := Load()
	require.Error(t, err, "vault key is mandatory in production")

	t.Setenv("VAULT_KEY", base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32))))
	t.Setenv("MAX_LIVE_QUANTITY", "20")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment)
	assert.Equal(t, "https://tenant.eu.auth0.com/", cfg.Issuer())
	assert.Equal(t, 20, cfg.MaxLiveQuantity)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET_KEY", "local-secret")
	t.Setenv("QUIZ_PASS_PERCENT", "150")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("QUIZ_PASS_PERCENT", "abc")
	_, err = Load()
	assert.Error(t, err)
}

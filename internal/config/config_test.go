package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 3, cfg.ProviderRetryAttempts)
	assert.Equal(t, "открыт", cfg.ActiveTitleMarker)
	assert.Equal(t, []string{"решен", "закрыт"}, cfg.ResolutionKeywords)
	assert.Equal(t, "Гость", cfg.GuestLabel)
	assert.Equal(t, OwnerPolicyFirst, cfg.OwnerPolicy)
	assert.Equal(t, 4, cfg.SyncWorkers)
	assert.Equal(t, 100, cfg.MessageFetchLimit)
	assert.Zero(t, cfg.SyncInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PROVIDER_RETRY_ATTEMPTS", "5")
	t.Setenv("CHAT_RESOLUTION_KEYWORDS", "done, closed ,resolved")
	t.Setenv("OWNER_POLICY", OwnerPolicyFanout)
	t.Setenv("SYNC_INTERVAL", "15m")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 5, cfg.ProviderRetryAttempts)
	assert.Equal(t, []string{"done", "closed", "resolved"}, cfg.ResolutionKeywords)
	assert.Equal(t, OwnerPolicyFanout, cfg.OwnerPolicy)
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
}

func TestDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/helpdesk")
	assert.Equal(t, "postgres://u:p@localhost:5432/helpdesk", Load().DatabaseURL)
}

func TestDatabaseURLFromPieces(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "svc")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_DB", "helpdesk")

	assert.Equal(t, "postgres://svc:pw@localhost:5433/helpdesk", Load().DatabaseURL)
}

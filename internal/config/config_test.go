package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Storage)
	assert.Equal(t, "intake.db", cfg.DBPath)
	assert.Equal(t, "operators", cfg.OperatorChannel)
	assert.Equal(t, "telegram", cfg.Source)
	assert.Equal(t, "last_answer", cfg.BackPolicy)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Empty(t, cfg.ScriptPath)
	assert.False(t, cfg.AuditLog)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("INTAKE_STORAGE", "redis")
	t.Setenv("INTAKE_REDIS_ADDR", "cache:6380")
	t.Setenv("INTAKE_REDIS_DB", "2")
	t.Setenv("INTAKE_BACK_POLICY", "decrement")
	t.Setenv("INTAKE_ESCALATION_NODE", "-2")
	t.Setenv("INTAKE_LOCK_TTL", "5s")
	t.Setenv("INTAKE_AUDIT_LOG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverRedis, cfg.Storage)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "decrement", cfg.BackPolicy)
	assert.Equal(t, -2, cfg.EscalationNode)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
	assert.True(t, cfg.AuditLog)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("Parse", func(t *testing.T) {
		t.Setenv("INTAKE_REDIS_DB", "zero")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})
	t.Run("Unknown Driver", func(t *testing.T) {
		t.Setenv("INTAKE_STORAGE", "postgres")
		_, err := Load()
		assert.ErrorContains(t, err, "unknown storage driver")
	})
}

func TestValidate(t *testing.T) {
	cfg := Config{Storage: DriverMemory, OperatorChannel: "ops", LockTTL: time.Second}
	require.NoError(t, cfg.Validate())

	cfg.OperatorChannel = ""
	assert.ErrorContains(t, cfg.Validate(), "operator channel")

	cfg = Config{Storage: DriverSQLite, OperatorChannel: "ops", LockTTL: time.Second}
	assert.ErrorContains(t, cfg.Validate(), "db path")

	cfg = Config{Storage: DriverMemory, OperatorChannel: "ops"}
	assert.ErrorContains(t, cfg.Validate(), "lock ttl")

	cfg = Config{Storage: DriverMemory, OperatorChannel: "ops", LockTTL: time.Second, EscalationNode: 3}
	assert.ErrorContains(t, cfg.Validate(), "escalation node 3 must be terminal")

	cfg.EscalationNode = -2
	assert.NoError(t, cfg.Validate())
}

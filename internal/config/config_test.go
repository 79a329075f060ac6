package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", " SQLite ")

	cfg, _, err := Load("does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "pos.db", cfg.SQLitePath)
	assert.Equal(t, 20, cfg.LoginRateLimit)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLocation_FallsBackToUTCPlus7(t *testing.T) {
	cfg := &Configuration{Timezone: "Nowhere/Invalid"}
	loc := cfg.Location()

	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).In(loc).Zone()
	assert.Equal(t, 7*60*60, offset)
}

func TestOrigins(t *testing.T) {
	cfg := &Configuration{CORSOrigins: " https://a.example , ,https://b.example"}
	assert.Equal(t, "https://a.example,https://b.example", cfg.Origins())

	cfg.CORSOrigins = " , "
	assert.Equal(t, "*", cfg.Origins())
}

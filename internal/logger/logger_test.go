package logger

import (
	"os"
	"path/filepath"
	"testing"

	"go-pos-ledger/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.log")
	log := New(&config.Configuration{LogLevel: "warn", LogFile: path, LogMaxSizeMB: 1, LogMaxBackups: 1})

	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log.Info("dropped")
	log.WithField("product", "p1").Warn("Stock drift detected")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Stock drift detected")
	assert.Contains(t, string(raw), "product=p1")
	assert.NotContains(t, string(raw), "dropped")
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	log := New(&config.Configuration{LogLevel: "chatty"})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

package database

import (
	"path/filepath"
	"testing"

	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/model"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialector(t *testing.T) {
	d, err := Dialector(&config.Configuration{DBDriver: "postgres", DBHost: "db", DBName: "pos"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = Dialector(&config.Configuration{DBDriver: "mysql", DatabaseURL: "u:p@tcp(db:3306)/pos"})
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	_, err = Dialector(&config.Configuration{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestConnectDB_SQLiteCreatesDocumentTable(t *testing.T) {
	logs, _ := test.NewNullLogger()
	cfg := &config.Configuration{DBDriver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "pos.db")}

	db, err := ConnectDB(cfg, logs)
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&model.AppState{}))
}

package model

import "time"

// Document keys in the app_states table.
const (
	PosDocumentKey     = "posData"
	TrackerDocumentKey = "moneyTracker"
)

// AppState is one persisted JSON document. Each application keeps its whole
// state in a single row and overwrites it on every save.
type AppState struct {
	Key           string    `gorm:"column:doc_key;type:varchar(64);primaryKey" json:"key"`
	SchemaVersion int       `gorm:"not null;default:0" json:"schema_version"`
	Payload       []byte    `gorm:"not null" json:"-"`
	UpdatedAt     time.Time `json:"updated_at"`
}

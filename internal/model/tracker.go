package model

import (
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const TrackerSchemaVersion = 1

// DefaultAccountName is created whenever the tracker would otherwise have no
// account.
const DefaultAccountName = "บัญชีหลัก"

// FallbackEntryType is used for imported rows without a type.
const FallbackEntryType = "อื่นๆ"

// DefaultEntryTypes seeds a fresh tracker.
var DefaultEntryTypes = []string{"อาหาร", "เดินทาง", "ค่าใช้จ่ายบ้าน", "เสื้อผ้า", "บันเทิง", "สุขภาพ", "การศึกษา", FallbackEntryType}

// Entry is one money-tracker record. A negative amount is an expense.
type Entry struct {
	Date        string          `json:"date"`
	Time        string          `json:"time"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
}

// SameRecord reports whether two entries describe the same transaction,
// ignoring when they were recorded.
func (e Entry) SameRecord(o Entry) bool {
	return e.Date == o.Date && e.Time == o.Time && e.Type == o.Type &&
		e.Description == o.Description && e.Amount.Equal(o.Amount)
}

// Tracker is the money-tracker document.
type Tracker struct {
	SchemaVersion  int                `json:"schemaVersion"`
	Accounts       map[string][]Entry `json:"accounts"`
	DefaultTypes   []string           `json:"defaultTypes"`
	BackupPassword *string            `json:"backupPassword"`
}

func NewTracker() *Tracker {
	return &Tracker{
		SchemaVersion: TrackerSchemaVersion,
		Accounts:      map[string][]Entry{DefaultAccountName: {}},
		DefaultTypes:  slices.Clone(DefaultEntryTypes),
	}
}

// AccountNames returns the account names in sorted order.
func (t *Tracker) AccountNames() []string {
	return slices.Sorted(maps.Keys(t.Accounts))
}

func (t *Tracker) HasType(name string) bool {
	return slices.Contains(t.DefaultTypes, name)
}

func (t *Tracker) HasBackupPassword() bool {
	return t.BackupPassword != nil && *t.BackupPassword != ""
}

func (t *Tracker) Clone() *Tracker {
	c := *t
	c.Accounts = make(map[string][]Entry, len(t.Accounts))
	for name, entries := range t.Accounts {
		c.Accounts[name] = append([]Entry{}, entries...)
	}
	c.DefaultTypes = slices.Clone(t.DefaultTypes)
	if t.BackupPassword != nil {
		pw := *t.BackupPassword
		c.BackupPassword = &pw
	}
	return &c
}

package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"go-pos-ledger/internal/model"
)

// A migration upgrades a raw document to its version. Steps only fill keys
// that are absent, so re-running one never alters existing data.
type migration struct {
	version int
	name    string
	apply   func(doc map[string]any)
}

var posMigrations = []migration{
	{version: 1, name: "default fields added after first release", apply: migratePosV1},
}

var trackerMigrations = []migration{
	{version: 1, name: "merge tracker keys into one document", apply: migrateTrackerV1},
}

// decodeDocument parses raw JSON keeping numbers exact, so legacy integer ids
// survive the round trip.
func decodeDocument(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document is not a JSON object")
	}
	return doc, nil
}

func documentVersion(doc map[string]any) int {
	switch v := doc["schemaVersion"].(type) {
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err == nil {
			return n
		}
	case float64:
		return int(v)
	}
	return 0
}

// migrate applies every step newer than the document's version, in order.
// It reports whether anything ran.
func migrate(raw []byte, steps []migration) ([]byte, bool, error) {
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, false, err
	}

	current := documentVersion(doc)
	ran := false
	for _, m := range steps {
		if m.version <= current {
			continue
		}
		m.apply(doc)
		doc["schemaVersion"] = m.version
		current = m.version
		ran = true
	}
	if !ran {
		return raw, false, nil
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// MigratePos upgrades and decodes a point-of-sale document.
func MigratePos(raw []byte) (*model.PosState, bool, error) {
	out, changed, err := migrate(raw, posMigrations)
	if err != nil {
		return nil, false, fmt.Errorf("migrate pos document: %w", err)
	}
	var state model.PosState
	if err := json.Unmarshal(out, &state); err != nil {
		return nil, false, fmt.Errorf("decode pos document: %w", err)
	}
	state.Normalize()
	return &state, changed, nil
}

// MigrateTracker upgrades and decodes a money-tracker document.
func MigrateTracker(raw []byte) (*model.Tracker, bool, error) {
	out, changed, err := migrate(raw, trackerMigrations)
	if err != nil {
		return nil, false, fmt.Errorf("migrate tracker document: %w", err)
	}
	var tracker model.Tracker
	if err := json.Unmarshal(out, &tracker); err != nil {
		return nil, false, fmt.Errorf("decode tracker document: %w", err)
	}
	for name, entries := range tracker.Accounts {
		if entries == nil {
			tracker.Accounts[name] = []model.Entry{}
		}
	}
	return &tracker, changed, nil
}

func setDefault(obj map[string]any, key string, value any) {
	if _, ok := obj[key]; !ok {
		obj[key] = value
	}
}

func objects(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func migratePosV1(doc map[string]any) {
	setDefault(doc, "backupPassword", nil)
	setDefault(doc, "stores", []any{})
	setDefault(doc, "stockOuts", []any{})

	for _, sale := range objects(doc["sales"]) {
		for _, item := range objects(sale["items"]) {
			setDefault(item, "isSpecialPrice", false)
			setDefault(item, "originalPrice", item["price"])
		}
		if sale["paymentMethod"] == string(model.PaymentCredit) {
			setDefault(sale, "creditDueDate", nil)
		}
		setDefault(sale, "transferorName", nil)
	}

	for _, user := range objects(doc["users"]) {
		setDefault(user, "storeId", nil)
		if user["role"] != string(model.RoleSeller) {
			continue
		}
		setDefault(user, "assignedProductIds", []any{})
		setDefault(user, "salesStartDate", nil)
		setDefault(user, "salesEndDate", nil)
		setDefault(user, "commissionRate", 0)
		setDefault(user, "commissionOnCash", false)
		setDefault(user, "commissionOnTransfer", false)
		setDefault(user, "commissionOnCredit", false)
		setDefault(user, "visibleSalesDays", nil)
	}
}

func migrateTrackerV1(doc map[string]any) {
	accounts, _ := doc["accounts"].(map[string]any)
	if len(accounts) == 0 {
		doc["accounts"] = map[string]any{model.DefaultAccountName: []any{}}
	}
	if _, ok := doc["defaultTypes"].([]any); !ok {
		types := make([]any, len(model.DefaultEntryTypes))
		for i, t := range model.DefaultEntryTypes {
			types[i] = t
		}
		doc["defaultTypes"] = types
	}
	setDefault(doc, "backupPassword", nil)
}

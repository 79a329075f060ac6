package model

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Snapshots written by older clients carry money as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ID identifies a record inside a state document. New records get a UUID;
// documents written before that carry time-derived integers, which are kept
// as-is and re-encoded as JSON numbers.
type ID string

// NewID generates a fresh unique record id.
func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) IsZero() bool { return id == "" }

func (id ID) String() string { return string(id) }

func (id ID) legacyNumeric() bool {
	if len(id) == 0 || len(id) > 16 || (len(id) > 1 && id[0] == '0') {
		return false
	}
	_, err := strconv.ParseUint(string(id), 10, 64)
	return err == nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.legacyNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

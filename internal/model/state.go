package model

import "slices"

// PosSchemaVersion is the schema version written by this build.
const PosSchemaVersion = 1

// Default credentials seeded on first run.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "123"
)

// PosState is the whole point-of-sale document, persisted as one blob.
type PosState struct {
	SchemaVersion  int        `json:"schemaVersion"`
	Products       []Product  `json:"products"`
	StockIns       []StockIn  `json:"stockIns"`
	StockOuts      []StockOut `json:"stockOuts"`
	Sales          []Sale     `json:"sales"`
	Users          []User     `json:"users"`
	Stores         []Store    `json:"stores"`
	BackupPassword *string    `json:"backupPassword"`
}

// NewPosState returns an empty document with a single admin account.
func NewPosState() (*PosState, error) {
	admin := User{ID: NewID(), Username: DefaultAdminUsername, Role: RoleAdmin}
	if err := admin.SetPassword(DefaultAdminPassword); err != nil {
		return nil, err
	}
	s := &PosState{SchemaVersion: PosSchemaVersion, Users: []User{admin}}
	s.Normalize()
	return s, nil
}

// Normalize replaces nil collections so they encode as [] rather than null.
func (s *PosState) Normalize() {
	if s.Products == nil {
		s.Products = []Product{}
	}
	if s.StockIns == nil {
		s.StockIns = []StockIn{}
	}
	if s.StockOuts == nil {
		s.StockOuts = []StockOut{}
	}
	if s.Sales == nil {
		s.Sales = []Sale{}
	}
	if s.Users == nil {
		s.Users = []User{}
	}
	if s.Stores == nil {
		s.Stores = []Store{}
	}
}

// Clone returns a deep copy that shares no slices with s.
func (s *PosState) Clone() *PosState {
	c := *s
	c.Products = slices.Clone(s.Products)
	c.StockIns = slices.Clone(s.StockIns)
	c.StockOuts = slices.Clone(s.StockOuts)
	c.Stores = slices.Clone(s.Stores)
	c.Sales = make([]Sale, len(s.Sales))
	for i := range s.Sales {
		c.Sales[i] = s.Sales[i].clone()
	}
	c.Users = make([]User, len(s.Users))
	for i := range s.Users {
		c.Users[i] = s.Users[i].clone()
	}
	if s.BackupPassword != nil {
		pw := *s.BackupPassword
		c.BackupPassword = &pw
	}
	c.Normalize()
	return &c
}

// HasBackupPassword reports whether exports must be encrypted.
func (s *PosState) HasBackupPassword() bool {
	return s.BackupPassword != nil && *s.BackupPassword != ""
}

// Lookups return pointers into the backing slices; they are invalidated by
// appends and deletes.

func (s *PosState) Product(id ID) *Product {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return &s.Products[i]
		}
	}
	return nil
}

func (s *PosState) StockIn(id ID) *StockIn {
	for i := range s.StockIns {
		if s.StockIns[i].ID == id {
			return &s.StockIns[i]
		}
	}
	return nil
}

func (s *PosState) StockOut(id ID) *StockOut {
	for i := range s.StockOuts {
		if s.StockOuts[i].ID == id {
			return &s.StockOuts[i]
		}
	}
	return nil
}

func (s *PosState) Sale(id ID) *Sale {
	for i := range s.Sales {
		if s.Sales[i].ID == id {
			return &s.Sales[i]
		}
	}
	return nil
}

func (s *PosState) User(id ID) *User {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i]
		}
	}
	return nil
}

func (s *PosState) UserByUsername(username string) *User {
	for i := range s.Users {
		if s.Users[i].Username == username {
			return &s.Users[i]
		}
	}
	return nil
}

// Admin returns the administrator account, or nil if the document has none.
func (s *PosState) Admin() *User {
	for i := range s.Users {
		if s.Users[i].IsAdmin() {
			return &s.Users[i]
		}
	}
	return nil
}

func (s *PosState) Store(id ID) *Store {
	for i := range s.Stores {
		if s.Stores[i].ID == id {
			return &s.Stores[i]
		}
	}
	return nil
}

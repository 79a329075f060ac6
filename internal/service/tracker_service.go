package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/ws"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrAccountNotFound   = fmt.Errorf("account %w", ErrNotFound)
	ErrAccountExists     = fmt.Errorf("%w: account already exists", ErrValidation)
	ErrLastAccount       = fmt.Errorf("%w: at least one account must remain", ErrValidation)
	ErrTypeNotFound      = fmt.Errorf("entry type %w", ErrNotFound)
	ErrTypeExists        = fmt.Errorf("%w: entry type already exists", ErrValidation)
	ErrEntryNotFound     = fmt.Errorf("entry %w", ErrNotFound)
	ErrAmountRequired    = fmt.Errorf("%w: amount is required", ErrValidation)
	ErrNameRequired      = fmt.Errorf("%w: name is required", ErrValidation)
	ErrMixedDates        = fmt.Errorf("%w: imported records must all share one date", ErrValidation)
	ErrNoEntriesToImport = fmt.Errorf("%w: file contains no records", ErrValidation)
)

// EntryRequest is a new or edited tracker record. CopyTo names extra
// accounts that receive a copy of a new entry.
type EntryRequest struct {
	Date        string           `json:"date" validate:"required,day"`
	Time        string           `json:"time" validate:"required,clock"`
	Amount      *decimal.Decimal `json:"amount"`
	Type        string           `json:"type" validate:"required"`
	Description string           `json:"description" validate:"required"`
	CopyTo      []string         `json:"copyTo"`
}

// IndexedEntry carries an entry's position in its account, which is how
// edits and deletes address it.
type IndexedEntry struct {
	Index int `json:"index"`
	model.Entry
}

type AccountInfo struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// TypeSummary is one entry type's income and expense over a period.
type TypeSummary struct {
	Type    string          `json:"type"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

type TrackerSummary struct {
	Account      string          `json:"account"`
	Start        string          `json:"start"`
	End          string          `json:"end"`
	Types        []TypeSummary   `json:"types"`
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	NetBalance   decimal.Decimal `json:"netBalance"`
	RecordCount  int             `json:"recordCount"`
}

// DayMergeResult reports how many records a day merge added and how many it
// skipped as duplicates.
type DayMergeResult struct {
	Date    string `json:"date"`
	Added   int    `json:"added"`
	Skipped int    `json:"skipped"`
}

type TrackerService interface {
	Accounts() []AccountInfo
	AddAccount(ctx context.Context, name string) error
	RenameAccount(ctx context.Context, oldName, newName string) error
	DeleteAccount(ctx context.Context, name string) error

	Types() []string
	AddType(ctx context.Context, name string) error
	RenameType(ctx context.Context, oldName, newName string) error
	DeleteType(ctx context.Context, name string) error

	Entries(account, day string) ([]IndexedEntry, error)
	AddEntry(ctx context.Context, account string, req *EntryRequest) error
	UpdateEntry(ctx context.Context, account string, index int, req *EntryRequest) error
	DeleteEntry(ctx context.Context, account string, index int) error
	DeleteEntriesOnDate(ctx context.Context, account, day string) (int, error)
	CopyDayFromAccount(ctx context.Context, src, dst, day string) (*DayMergeResult, error)

	Summarize(account, start, end string) (*TrackerSummary, error)

	Import(ctx context.Context, raw []byte, format string) (*TrackerImportResult, error)
	MergeDay(ctx context.Context, account string, raw []byte, format string) (*DayMergeResult, error)
	Export(format string) (*TrackerFile, error)
	ExportAccount(account, day, format string) (*TrackerFile, error)
	SummaryWorkbook(s *TrackerSummary) (*TrackerFile, error)

	SetBackupPassword(ctx context.Context, password string) error
	HasBackupPassword() bool
}

type trackerService struct {
	ws     *TrackerWorkspace
	events Publisher
	log    logrus.FieldLogger
}

func NewTrackerService(w *TrackerWorkspace, events Publisher, log logrus.FieldLogger) TrackerService {
	return &trackerService{ws: w, events: events, log: log}
}

func (s *trackerService) publish(action string, data any) {
	s.events.Publish(ws.Event{Type: ws.TypeTrackerUpdate, Action: action, Data: data})
}

func (s *trackerService) Accounts() []AccountInfo {
	var out []AccountInfo
	s.ws.View(func(t *model.Tracker) error {
		for _, name := range t.AccountNames() {
			out = append(out, AccountInfo{Name: name, Entries: len(t.Accounts[name])})
		}
		return nil
	})
	return out
}

func (s *trackerService) AddAccount(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	err := s.ws.Mutate(ctx, func(t *model.Tracker) error {
		if _, ok := t.Accounts[name]; ok {
			return ErrAccountExists
		}
		t.Accounts[name] = []model.Entry{}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish("account_created", map[string]string{"name": name})
	return nil
}

func (s *trackerService) RenameAccount(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrNameRequired
	}
	if newName == oldName {
		return nil
	}
	err := s.ws.Mutate(ctx, func(t *model.Tracker) error {
		entries, ok := t.Accounts[oldName]
		if !ok {
			return ErrAccountNotFound
		}
		if _, taken := t.Accounts[newName]; taken {
			return ErrAccountExists
		}
		t.Accounts[newName] = entries
		delete(t.Accounts, oldName)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish("account_renamed", map[string]string{"from": oldName, "to": newName})
	return nil
}

func (s *trackerService) DeleteAccount(ctx context.Context, name string) error {
	err := s.ws.Mutate(ctx, func(t *model.Tracker) error {
		if _, ok := t.Accounts[name]; !ok {
			return ErrAccountNotFound
		}
		if len(t.Accounts) <= 1 {
			return ErrLastAccount
		}
		delete(t.Accounts, name)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish("account_deleted", map[string]string{"name": name})
	return nil
}

func (s *trackerService) Types() []string {
	return s.ws.Snapshot().DefaultTypes
}

func (s *trackerService) AddType(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	err := s.ws.Mutate(ctx, func(t *model.Tracker) error {
		if t.HasType(name) {
			return ErrTypeExists
		}
		t.DefaultTypes = append(t.DefaultTypes, name)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish("type_created", map[string]string{"name": name})
	return nil
}

// RenameType renames a type and every entry that uses it, in all accounts.
func (s *trackerService) RenameType(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrNameRequired
	}
	if newName == oldName {
		return nil
	}
	err := s.ws.Mutate(ctx, func(t *model.Tracker) error {
		idx := slices.Index(t.DefaultTypes, oldName)
		if idx < 0 {
			return ErrTypeNotFound
		}
		if t.HasType(newName) {
			return ErrTypeExists
		}
		t.DefaultTypes[idx] = newName
		for _, entries := range t.Accounts {
			for i := range entries {
				if entries[i].Type == oldName {
					entries[i].Type = newName
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish("type_renamed", map[string]string{"from": oldName, "to": newName})
	return nil
}

// DeleteType removes a type from the suggestion list. Entries keep it.
func (s *trackerService) DeleteType(ctx context.Context, name string) error {
	err := s.ws.Mutate(ctx, func(t *model.Tracker) error {
		if !t.HasType(name) {
			return ErrTypeNotFound
		}
		t.DefaultTypes = slices.DeleteFunc(t.DefaultTypes, func(n string) bool { return n == name })
		return nil
	})
	if err != nil {
		return err
	}
	s.publish("type_deleted", map[string]string{"name": name})
	return nil
}

// Entries lists an account's records, optionally limited to one day, newest
// first by date and time.
func (s *trackerService) Entries(account, day string) ([]IndexedEntry, error) {
	var out []IndexedEntry
	err := s.ws.View(func(t *model.Tracker) error {
		entries, ok := t.Accounts[account]
		if !ok {
			return ErrAccountNotFound
		}
		for i, e := range entries {
			if day != "" && e.Date != day {
				continue
			}
			out = append(out, IndexedEntry{Index: i, Entry: e})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b IndexedEntry) int {
		return strings.Compare(b.Date+"T"+b.Time, a.Date+"T"+a.Time)
	})
	return out, nil
}

func (s *trackerService) entryFrom(req *EntryRequest) (model.Entry, error) {
	if err := validate(req); err != nil {
		return model.Entry{}, err
	}
	if req.Amount == nil {
		return model.Entry{}, ErrAmountRequired
	}
	return model.Entry{
		Date:        req.Date,
		Time:        req.Time,
		Amount:      *req.Amount,
		Type:        strings.TrimSpace(req.Type),
		Description: strings.TrimSpace(req.Description),
		Timestamp:   s.ws.Now(),
	}, nil
}

// AddEntry appends a record to account and to each CopyTo account.
func (s *trackerService) AddEntry(ctx context.Context, account string, req *EntryRequest) error {
	entry, err := s.entryFrom(req)
	if err != nil {
		return err
	}
	err = s.ws.Mutate(ctx, func(t *model.Tracker) error {
		targets := []string{account}
		for _, name := range req.CopyTo {
			if name != account && !slices.Contains(targets, name) {
				targets = append(targets, name)
			}
		}
		for _, name := range targets {
			if _, ok := t.Accounts[name]; !ok {
				return fmt.Errorf("%w: %s", ErrAccountNotFound, name)
			}
			t.Accounts[name] = append(t.Accounts[name], entry)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish("entry_created", map[string]any{"account": account, "entry": entry})
	return nil
}

func (s *trackerService) UpdateEntry(ctx context.Context, account string, index int, req *EntryRequest) error {
	entry, err := s.entryFrom(req)
	if err != nil {
		return err
	}
	err = s.ws.Mutate(ctx, func(t *model.Tracker) error {
		entries, ok := t.Accounts[account]
		if !ok {
			return ErrAccountNotFound
		}
		if index < 0 || index >= len(entries) {
			return ErrEntryNotFound
		}
		entries[index] = entry
		return nil
	})
	if err != nil {
		return err
	}
	s.publish("entry_updated", map[string]any{"account": account, "index": index})
	return nil
}

func (s *trackerService) DeleteEntry(ctx context.Context, account string, index int) error {
	err := s.ws.Mutate(ctx, func(t *model.Tracker) error {
		entries, ok := t.Accounts[account]
		if !ok {
			return ErrAccountNotFound
		}
		if index < 0 || index >= len(entries) {
			return ErrEntryNotFound
		}
		t.Accounts[account] = slices.Delete(entries, index, index+1)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish("entry_deleted", map[string]any{"account": account, "index": index})
	return nil
}

// DeleteEntriesOnDate removes every record of one day and returns how many
// were removed.
func (s *trackerService) DeleteEntriesOnDate(ctx context.Context, account, day string) (int, error) {
	if _, err := model.ParseDay(day, s.ws.Location()); err != nil {
		return 0, invalid("date must be YYYY-MM-DD")
	}
	removed := 0
	err := s.ws.Mutate(ctx, func(t *model.Tracker) error {
		entries, ok := t.Accounts[account]
		if !ok {
			return ErrAccountNotFound
		}
		before := len(entries)
		t.Accounts[account] = slices.DeleteFunc(entries, func(e model.Entry) bool { return e.Date == day })
		removed = before - len(t.Accounts[account])
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.publish("entries_deleted", map[string]any{"account": account, "date": day, "count": removed})
	return removed, nil
}

// CopyDayFromAccount copies one day's records from src into dst, skipping
// records dst already holds.
func (s *trackerService) CopyDayFromAccount(ctx context.Context, src, dst, day string) (*DayMergeResult, error) {
	var res *DayMergeResult
	err := s.ws.Mutate(ctx, func(t *model.Tracker) error {
		from, ok := t.Accounts[src]
		if !ok {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, src)
		}
		if _, ok := t.Accounts[dst]; !ok {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, dst)
		}
		var records []model.Entry
		for _, e := range from {
			if e.Date == day {
				records = append(records, e)
			}
		}
		if len(records) == 0 {
			return ErrNoMatchingRecords
		}
		res = mergeRecords(t, dst, records, s.ws.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish("day_copied", res)
	return res, nil
}

// Summarize groups an account's records between two inclusive days by type.
// Non-negative amounts count as income, negative ones as expense.
func (s *trackerService) Summarize(account, start, end string) (*TrackerSummary, error) {
	loc := s.ws.Location()
	if _, err := model.ParseDay(start, loc); err != nil {
		return nil, invalid("start must be YYYY-MM-DD")
	}
	if _, err := model.ParseDay(end, loc); err != nil {
		return nil, invalid("end must be YYYY-MM-DD")
	}
	if start > end {
		return nil, ErrInvalidDateRange
	}

	sum := &TrackerSummary{
		Account:      account,
		Start:        start,
		End:          end,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	err := s.ws.View(func(t *model.Tracker) error {
		entries, ok := t.Accounts[account]
		if !ok {
			return ErrAccountNotFound
		}
		idx := map[string]int{}
		for _, e := range entries {
			if e.Date < start || e.Date > end {
				continue
			}
			i, ok := idx[e.Type]
			if !ok {
				i = len(sum.Types)
				idx[e.Type] = i
				sum.Types = append(sum.Types, TypeSummary{Type: e.Type, Income: decimal.Zero, Expense: decimal.Zero})
			}
			ts := &sum.Types[i]
			if e.Amount.IsNegative() {
				ts.Expense = ts.Expense.Add(e.Amount.Abs())
				sum.TotalExpense = sum.TotalExpense.Add(e.Amount.Abs())
			} else {
				ts.Income = ts.Income.Add(e.Amount)
				sum.TotalIncome = sum.TotalIncome.Add(e.Amount)
			}
			sum.RecordCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if sum.RecordCount == 0 {
		return nil, ErrNoMatchingRecords
	}
	for i := range sum.Types {
		sum.Types[i].Balance = sum.Types[i].Income.Sub(sum.Types[i].Expense)
	}
	sum.NetBalance = sum.TotalIncome.Sub(sum.TotalExpense)
	return sum, nil
}

func (s *trackerService) SetBackupPassword(ctx context.Context, password string) error {
	password = strings.TrimSpace(password)
	err := s.ws.Mutate(ctx, func(t *model.Tracker) error {
		if password == "" {
			t.BackupPassword = nil
			return nil
		}
		pw := password
		t.BackupPassword = &pw
		return nil
	})
	if err != nil {
		return err
	}
	s.log.WithField("set", password != "").Info("Tracker backup password changed")
	return nil
}

func (s *trackerService) HasBackupPassword() bool {
	set := false
	s.ws.View(func(t *model.Tracker) error {
		set = t.HasBackupPassword()
		return nil
	})
	return set
}

var errSkipRow = errors.New("skip row")

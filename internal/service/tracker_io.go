package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go-pos-ledger/internal/export"
	"go-pos-ledger/internal/model"

	"github.com/shopspring/decimal"
)

// File formats accepted by tracker import and export.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var ErrUnsupportedFormat = fmt.Errorf("%w: unsupported file format", ErrValidation)

// Column headers of the tracker spreadsheet exports.
var (
	trackerHeaders = []string{"บัญชี", "วันที่", "เวลา", "ประเภท", "รายละเอียด", "จำนวนเงิน"}
	accountHeaders = trackerHeaders[1:]
)

// TrackerFile is a rendered download.
type TrackerFile struct {
	Name        string
	ContentType string
	Body        []byte
}

// TrackerImportResult summarizes a full-file import.
type TrackerImportResult struct {
	Accounts int      `json:"accounts"`
	Entries  int      `json:"entries"`
	Skipped  int      `json:"skipped"`
	NewTypes []string `json:"newTypes"`
}

type trackerBackup struct {
	Accounts     map[string][]model.Entry `json:"accounts"`
	DefaultTypes []string                 `json:"defaultTypes"`
}

// Import replaces the tracker's accounts from a JSON backup, a CSV export or
// an XLSX export. A JSON file without accounts or types keeps the current
// ones. If nothing remains, the default account is recreated.
func (s *trackerService) Import(ctx context.Context, raw []byte, format string) (*TrackerImportResult, error) {
	var res TrackerImportResult
	err := s.ws.Mutate(ctx, func(t *model.Tracker) error {
		var (
			accounts map[string][]model.Entry
			types    []string
			err      error
		)
		switch format {
		case FormatJSON:
			accounts, types, err = s.decodeTrackerJSON(raw, t.BackupPassword)
		case FormatCSV:
			accounts, res.Skipped, err = s.decodeTrackerCSV(raw)
		case FormatXLSX:
			accounts, res.Skipped, err = s.decodeTrackerXLSX(raw)
		default:
			return ErrUnsupportedFormat
		}
		if err != nil {
			return err
		}

		if accounts != nil || format != FormatJSON {
			t.Accounts = accounts
		}
		if types != nil {
			t.DefaultTypes = types
		}
		if len(t.Accounts) == 0 {
			t.Accounts = map[string][]model.Entry{model.DefaultAccountName: {}}
		}
		for _, entries := range t.Accounts {
			res.Entries += len(entries)
			for _, e := range entries {
				if e.Type != "" && !t.HasType(e.Type) {
					t.DefaultTypes = append(t.DefaultTypes, e.Type)
					res.NewTypes = append(res.NewTypes, e.Type)
				}
			}
		}
		res.Accounts = len(t.Accounts)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("format", format).WithField("entries", res.Entries).Info("Tracker imported")
	s.publish("imported", res)
	return &res, nil
}

func (s *trackerService) decodeTrackerJSON(raw []byte, password *string) (map[string][]model.Entry, []string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}

	payload := raw
	switch {
	case top["isEncrypted"] != nil:
		plain, err := decryptIfNeeded(raw, password)
		if err != nil {
			return nil, nil, err
		}
		payload = plain
	case top["encrypted"] != nil:
		// Older clients only base64-wrapped the document.
		if password == nil || *password == "" {
			return nil, nil, ErrBackupPasswordNotSet
		}
		var wrapped string
		if err := json.Unmarshal(top["encrypted"], &wrapped); err != nil {
			return nil, nil, ErrDecryptFailed
		}
		plain, err := base64.StdEncoding.DecodeString(wrapped)
		if err != nil {
			return nil, nil, ErrDecryptFailed
		}
		payload = plain
	}

	var doc trackerBackup
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	for name, entries := range doc.Accounts {
		if entries == nil {
			doc.Accounts[name] = []model.Entry{}
		}
	}
	return doc.Accounts, doc.DefaultTypes, nil
}

// parseTrackerRow converts one spreadsheet row. Rows without a date or an
// amount return errSkipRow.
func (s *trackerService) parseTrackerRow(date, clock, typ, desc, amount string, now time.Time) (model.Entry, error) {
	date, amount = strings.TrimSpace(date), strings.TrimSpace(amount)
	if date == "" || amount == "" {
		return model.Entry{}, errSkipRow
	}
	day, err := export.ParseThaiDate(date)
	if err != nil {
		return model.Entry{}, err
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return model.Entry{}, fmt.Errorf("invalid amount %q", amount)
	}
	e := model.Entry{
		Date:        day,
		Time:        strings.TrimSpace(clock),
		Amount:      value,
		Type:        strings.TrimSpace(typ),
		Description: desc,
		Timestamp:   now,
	}
	if e.Time == "" {
		e.Time = "00:00"
	}
	if e.Type == "" {
		e.Type = model.FallbackEntryType
	}
	return e, nil
}

// readCSVRecords reads a header-keyed CSV file into one map per data row.
func readCSVRecords(raw []byte) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(export.StripBOM(raw)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	var rows []map[string]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[strings.TrimSpace(h)] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *trackerService) decodeTrackerCSV(raw []byte) (map[string][]model.Entry, int, error) {
	rows, err := readCSVRecords(raw)
	if err != nil {
		return nil, 0, err
	}
	now := s.ws.Now()
	accounts := map[string][]model.Entry{}
	skipped := 0
	for i, row := range rows {
		account := strings.TrimSpace(row["บัญชี"])
		e, err := s.parseTrackerRow(row["วันที่"], row["เวลา"], row["ประเภท"], row["รายละเอียด"], row["จำนวนเงิน"], now)
		if err == nil && account == "" {
			err = errSkipRow
		}
		if err != nil {
			skipped++
			s.log.WithField("row", i+2).WithError(err).Warn("Skipping tracker import row")
			continue
		}
		accounts[account] = append(accounts[account], e)
	}
	return accounts, skipped, nil
}

func (s *trackerService) decodeTrackerXLSX(raw []byte) (map[string][]model.Entry, int, error) {
	rows, err := export.ReadXLSX(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	now := s.ws.Now()
	accounts := map[string][]model.Entry{}
	skipped := 0
	for i := 1; i < len(rows); i++ {
		row := append(rows[i], make([]string, 6)...)[:6]
		account := strings.TrimSpace(row[0])
		e, err := s.parseTrackerRow(row[1], row[2], row[3], row[4], row[5], now)
		if err == nil && account == "" {
			err = errSkipRow
		}
		if err != nil {
			skipped++
			s.log.WithField("row", i+1).WithError(err).Warn("Skipping tracker import row")
			continue
		}
		accounts[account] = append(accounts[account], e)
	}
	return accounts, skipped, nil
}

// MergeDay adds one day's records from a single-account JSON or CSV export
// into account. Records already present are skipped.
func (s *trackerService) MergeDay(ctx context.Context, account string, raw []byte, format string) (*DayMergeResult, error) {
	var records []model.Entry
	switch format {
	case FormatJSON:
		var err error
		records, err = firstAccountRecords(raw)
		if err != nil {
			return nil, err
		}
	case FormatCSV:
		rows, err := readCSVRecords(raw)
		if err != nil {
			return nil, err
		}
		now := s.ws.Now()
		for i, row := range rows {
			e, err := s.parseTrackerRow(row["วันที่"], row["เวลา"], row["ประเภท"], row["รายละเอียด"], row["จำนวนเงิน"], now)
			if err != nil {
				s.log.WithField("row", i+2).WithError(err).Warn("Skipping tracker merge row")
				continue
			}
			records = append(records, e)
		}
	default:
		return nil, ErrUnsupportedFormat
	}

	if len(records) == 0 {
		return nil, ErrNoEntriesToImport
	}
	for _, r := range records[1:] {
		if r.Date != records[0].Date {
			return nil, ErrMixedDates
		}
	}

	var res *DayMergeResult
	err := s.ws.Mutate(ctx, func(t *model.Tracker) error {
		if _, ok := t.Accounts[account]; !ok {
			return ErrAccountNotFound
		}
		res = mergeRecords(t, account, records, s.ws.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish("day_merged", res)
	return res, nil
}

// firstAccountRecords reads the records of the first key of an
// {account: [records]} document.
func firstAccountRecords(raw []byte) ([]model.Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, ErrUnrecognizedFormat
	}
	if _, err := dec.Token(); err != nil {
		return nil, ErrNoEntriesToImport
	}
	var records []model.Entry
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	return records, nil
}

// mergeRecords appends records to account, skipping any that match an
// existing record or one appended earlier in the same batch.
func mergeRecords(t *model.Tracker, account string, records []model.Entry, now time.Time) *DayMergeResult {
	res := &DayMergeResult{}
	if len(records) > 0 {
		res.Date = records[0].Date
	}
	for _, r := range records {
		dup := false
		for _, e := range t.Accounts[account] {
			if e.SameRecord(r) {
				dup = true
				break
			}
		}
		if dup {
			res.Skipped++
			continue
		}
		r.Timestamp = now
		t.Accounts[account] = append(t.Accounts[account], r)
		res.Added++
	}
	return res
}

// Export renders every account. JSON is encrypted when a backup password is
// set.
func (s *trackerService) Export(format string) (*TrackerFile, error) {
	t := s.ws.Snapshot()
	stamp := s.ws.Now().Format(model.DateLayout)
	name := fmt.Sprintf("บันทึกข้อมูลบัญชี_%s.%s", stamp, format)

	switch format {
	case FormatJSON:
		plain, err := json.MarshalIndent(trackerBackup{Accounts: t.Accounts, DefaultTypes: t.DefaultTypes}, "", "  ")
		if err != nil {
			return nil, err
		}
		if t.HasBackupPassword() {
			if plain, err = encryptDocument(plain, *t.BackupPassword); err != nil {
				return nil, err
			}
		}
		return &TrackerFile{Name: name, ContentType: "application/json", Body: plain}, nil
	case FormatCSV:
		var tbl export.Table
		tbl.Row(trackerHeaders...)
		for _, account := range t.AccountNames() {
			for _, e := range t.Accounts[account] {
				tbl.Row(account, export.DisplayDay(e.Date), e.Time, e.Type, e.Description, e.Amount.String())
			}
		}
		return &TrackerFile{Name: name, ContentType: "text/csv; charset=utf-8", Body: tbl.Bytes()}, nil
	case FormatXLSX:
		rows := [][]any{toAny(trackerHeaders)}
		for _, account := range t.AccountNames() {
			for _, e := range t.Accounts[account] {
				rows = append(rows, []any{account, export.DisplayDay(e.Date), e.Time, e.Type, e.Description, e.Amount.String()})
			}
		}
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, "ข้อมูลบัญชี", rows); err != nil {
			return nil, err
		}
		return &TrackerFile{Name: name, ContentType: xlsxContentType, Body: buf.Bytes()}, nil
	}
	return nil, ErrUnsupportedFormat
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportAccount renders one account, or one day of it, in the format
// MergeDay reads back.
func (s *trackerService) ExportAccount(account, day, format string) (*TrackerFile, error) {
	t := s.ws.Snapshot()
	entries, ok := t.Accounts[account]
	if !ok {
		return nil, ErrAccountNotFound
	}
	name := fmt.Sprintf("บัญชี_%s_%s", account, s.ws.Now().Format(model.DateLayout))
	if day != "" {
		var only []model.Entry
		for _, e := range entries {
			if e.Date == day {
				only = append(only, e)
			}
		}
		if len(only) == 0 {
			return nil, ErrNoMatchingRecords
		}
		entries = only
		name = fmt.Sprintf("บัญชี_%s_วันที่_%s", account, strings.ReplaceAll(export.DisplayDay(day), "/", "-"))
	}

	switch format {
	case FormatJSON:
		body, err := json.MarshalIndent(map[string][]model.Entry{account: entries}, "", "  ")
		if err != nil {
			return nil, err
		}
		return &TrackerFile{Name: name + ".json", ContentType: "application/json", Body: body}, nil
	case FormatCSV:
		var tbl export.Table
		tbl.Row(accountHeaders...)
		for _, e := range entries {
			tbl.Row(export.DisplayDay(e.Date), e.Time, e.Type, e.Description, e.Amount.String())
		}
		return &TrackerFile{Name: name + ".csv", ContentType: "text/csv; charset=utf-8", Body: tbl.Bytes()}, nil
	}
	return nil, ErrUnsupportedFormat
}

// SummaryWorkbook renders a tracker summary as a one-sheet workbook.
func (s *trackerService) SummaryWorkbook(sum *TrackerSummary) (*TrackerFile, error) {
	from, to := export.DisplayDay(sum.Start), export.DisplayDay(sum.End)
	rows := [][]any{
		{fmt.Sprintf("สรุปข้อมูลจากวันที่ %s ถึง %s", from, to)},
		{fmt.Sprintf("วันที่ %s ถึง %s", from, to)},
		{fmt.Sprintf("จำนวนรายการทั้งหมด: %d รายการ", sum.RecordCount)},
		nil,
		{"ประเภท", "รายรับ", "รายจ่าย", "ยอดคงเหลือ"},
	}
	for _, ts := range sum.Types {
		rows = append(rows, []any{ts.Type, ts.Income.InexactFloat64(), ts.Expense.InexactFloat64(), ts.Balance.InexactFloat64()})
	}
	rows = append(rows, nil, []any{"รวมทั้งหมด", sum.TotalIncome.InexactFloat64(), sum.TotalExpense.InexactFloat64(), sum.NetBalance.InexactFloat64()})

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, "สรุปข้อมูล", rows); err != nil {
		return nil, err
	}
	return &TrackerFile{
		Name:        fmt.Sprintf("สรุปข้อมูล_%s.xlsx", s.ws.Now().Format(model.DateLayout)),
		ContentType: xlsxContentType,
		Body:        buf.Bytes(),
	}, nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Package export renders report data the way the Thai-language clients
// expect it: th-TH number grouping, Buddhist-era dates, BOM-prefixed CSV
// with every field quoted, and XLSX workbooks.
package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BuddhistEraOffset converts a Gregorian year to the Thai calendar.
const BuddhistEraOffset = 543

// Placeholder shown for empty dates and names.
const Dash = "-"

var printer = message.NewPrinter(language.Thai)

// Number renders an amount with th-TH grouping: whole values without
// decimals, everything else with exactly two.
func Number(d decimal.Decimal) string {
	if d.IsInteger() {
		return printer.Sprintf("%d", d.IntPart())
	}
	return printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// Int renders a quantity with th-TH grouping.
func Int(n int) string {
	return printer.Sprintf("%d", n)
}

// ShortDate renders dd/mm/yy with the last two digits of the Buddhist-era
// year.
func ShortDate(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%02d/%02d/%02d", t.Day(), int(t.Month()), (t.Year()+BuddhistEraOffset)%100)
}

// ShortDatePtr is ShortDate with "-" for nil.
func ShortDatePtr(t *time.Time, loc *time.Location) string {
	if t == nil {
		return Dash
	}
	return ShortDate(*t, loc)
}

// FullDate renders dd/mm/yyyy in the Buddhist era.
func FullDate(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%02d/%02d/%d", t.Day(), int(t.Month()), t.Year()+BuddhistEraOffset)
}

// Clock renders HH:MM.
func Clock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// Timestamp renders "วันที่ dd/mm/yyyy เวลา HH:MM น.".
func Timestamp(t time.Time, loc *time.Location) string {
	return fmt.Sprintf("วันที่ %s เวลา %s น.", FullDate(t, loc), Clock(t, loc))
}

// ParseThaiDate converts a Buddhist-era dd/mm/yyyy date into a Gregorian
// YYYY-MM-DD calendar day.
func ParseThaiDate(s string) (string, error) {
	var d, m, y int
	if _, err := fmt.Sscanf(s, "%d/%d/%d", &d, &m, &y); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	day := time.Date(y-BuddhistEraOffset, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if day.Day() != d || int(day.Month()) != m {
		return "", fmt.Errorf("invalid date %q", s)
	}
	return day.Format("2006-01-02"), nil
}

// DisplayDay renders a YYYY-MM-DD calendar day as dd/mm/yyyy in the
// Buddhist era. Unparsable input is returned as is.
func DisplayDay(day string) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return day
	}
	return FullDate(t, time.UTC)
}

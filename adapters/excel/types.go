package excel

import (
	"strconv"
	"strings"
	"time"

	"allday/domain/market"
)

// RawRowData represents one row of a sheet as header/value pairs
type RawRowData map[string]string

// ExcelData represents a complete sheet
type ExcelData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// HasColumn reports whether the sheet carries a header
func (d *ExcelData) HasColumn(name string) bool {
	for _, h := range d.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// String returns the trimmed cell value, empty when absent
func (r RawRowData) String(col string) string {
	return strings.TrimSpace(r[col])
}

// Float parses a numeric cell. Empty and "nan" cells are not ok.
func (r RawRowData) Float(col string) (float64, bool) {
	v := r.String(col)
	if v == "" || strings.EqualFold(v, "nan") {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimPrefix(v, "$"), ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int parses an integer cell; exported tables often write ints as "3.0"
func (r RawRowData) Int(col string) int {
	f, ok := r.Float(col)
	if !ok {
		return 0
	}
	return int(f)
}

// Flag parses a nullable boolean cell
func (r RawRowData) Flag(col string) market.Flag {
	return market.ParseFlag(r[col])
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Time parses a timestamp cell. Values without an offset are read in loc.
func (r RawRowData) Time(col string, loc *time.Location) (time.Time, bool) {
	v := r.String(col)
	if v == "" || strings.EqualFold(v, "nan") || strings.EqualFold(v, "nat") {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, v, loc); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

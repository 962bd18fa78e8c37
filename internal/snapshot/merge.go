package snapshot

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMissingMarker = "NaN"
	DefaultTimeLayout    = "2006-01-02 15:04:05"
)

// Merger reconciles snapshots against a table. It never touches storage.
type Merger struct {
	MissingMarker string
	TimeLayout    string
	Location      *time.Location
}

func NewMerger() Merger {
	return Merger{
		MissingMarker: DefaultMissingMarker,
		TimeLayout:    DefaultTimeLayout,
		Location:      time.Local,
	}
}

// Merge returns a new table holding every row of t plus one row for s.
// Columns are t's columns followed by symbols first seen in s; earlier rows
// get the missing marker for those new columns.
func (m Merger) Merge(t Table, s PriceSnapshot) Table {
	out := t.Clone()

	known := make(map[string]struct{}, len(out.Symbols))
	for _, sym := range out.Symbols {
		known[sym] = struct{}{}
	}

	var added []string
	for _, sym := range orderedSymbols(s) {
		if _, ok := known[sym]; ok {
			continue
		}
		known[sym] = struct{}{}
		added = append(added, sym)
	}

	if len(added) > 0 {
		out.Symbols = append(out.Symbols, added...)
		for i := range out.Rows {
			for range added {
				out.Rows[i] = append(out.Rows[i], m.MissingMarker)
			}
		}
	}

	row := make([]string, 0, len(out.Symbols)+1)
	row = append(row, m.formatTime(s.Captured))
	for _, sym := range out.Symbols {
		if p, ok := s.Prices[sym]; ok {
			row = append(row, FormatPrice(p))
		} else {
			row = append(row, m.MissingMarker)
		}
	}
	out.Rows = append(out.Rows, row)

	return out
}

func (m Merger) formatTime(ts time.Time) string {
	layout := m.TimeLayout
	if layout == "" {
		layout = DefaultTimeLayout
	}
	if m.Location != nil {
		ts = ts.In(m.Location)
	}
	return ts.Format(layout)
}

// orderedSymbols lists the priced symbols of s: request order first, then
// any remaining priced symbols sorted, so Merge stays deterministic.
func orderedSymbols(s PriceSnapshot) []string {
	out := make([]string, 0, len(s.Prices))
	seen := make(map[string]struct{}, len(s.Prices))
	for _, sym := range s.Order {
		if _, ok := s.Prices[sym]; !ok {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}

	var rest []string
	for sym := range s.Prices {
		if _, ok := seen[sym]; !ok {
			rest = append(rest, sym)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// FormatPrice renders p in shortest round-trip form, always with a decimal point.
func FormatPrice(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

package snapshot

import (
	"time"
)

// TimeColumn is the mandatory first column of every table.
const TimeColumn = "Time"

// PriceSnapshot is one point-in-time capture of prices across symbols.
// Symbols absent from Prices had no data in this capture.
type PriceSnapshot struct {
	Captured time.Time          `json:"captured"` // Capture time, one per run
	Prices   map[string]float64 `json:"prices"`   // Latest price per symbol
	Order    []string           `json:"order"`    // Requested symbols, in request order
}

// Missing returns the requested symbols that have no price, in request order.
func (s PriceSnapshot) Missing() []string {
	var out []string
	for _, sym := range s.Order {
		if _, ok := s.Prices[sym]; !ok {
			out = append(out, sym)
		}
	}
	return out
}

// Table is the in-memory form of the persisted snapshot history.
// Every row holds len(Symbols)+1 cells, the first being the Time value.
type Table struct {
	Symbols []string
	Rows    [][]string
}

// Header returns the column names, Time first.
func (t Table) Header() []string {
	h := make([]string, 0, len(t.Symbols)+1)
	h = append(h, TimeColumn)
	return append(h, t.Symbols...)
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := Table{
		Symbols: append([]string(nil), t.Symbols...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// Column returns the values of symbol's column, or false if the table has no such column.
func (t Table) Column(symbol string) ([]string, bool) {
	idx := -1
	for i, s := range t.Symbols {
		if s == symbol {
			idx = i + 1
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

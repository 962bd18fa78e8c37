package sqlstore

import (
	"context"
	"time"

	"pricecollector/internal/snapshot"

	"gorm.io/gorm/clause"
)

// SaveSnapshot stores every priced symbol of snap under runID. Re-saving the
// same run is a no-op.
func (p *Client) SaveSnapshot(ctx context.Context, runID string, snap snapshot.PriceSnapshot) error {
	records := ToPriceRecords(runID, snap)
	if len(records) == 0 {
		return nil
	}

	return p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "run_id"},
			{Name: "symbol"},
		},
		DoNothing: true,
	}).CreateInBatches(records, 500).Error
}

// ListSymbolPrices returns symbol's recorded prices captured in [from, to], oldest first.
func (p *Client) ListSymbolPrices(ctx context.Context, symbol string, from, to time.Time) ([]PriceRecord, error) {
	var out []PriceRecord
	err := p.DB.WithContext(ctx).
		Where("symbol = ? AND captured_at BETWEEN ? AND ?", symbol, from, to).
		Order("captured_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ToPriceRecords flattens snap into records, in request order.
func ToPriceRecords(runID string, snap snapshot.PriceSnapshot) []PriceRecord {
	out := make([]PriceRecord, 0, len(snap.Prices))
	seen := make(map[string]struct{}, len(snap.Prices))

	add := func(sym string) {
		price, ok := snap.Prices[sym]
		if !ok {
			return
		}
		if _, dup := seen[sym]; dup {
			return
		}
		seen[sym] = struct{}{}
		out = append(out, PriceRecord{
			RunID:      runID,
			Symbol:     sym,
			Price:      price,
			CapturedAt: snap.Captured,
		})
	}

	for _, sym := range snap.Order {
		add(sym)
	}
	for sym := range snap.Prices {
		add(sym)
	}
	return out
}

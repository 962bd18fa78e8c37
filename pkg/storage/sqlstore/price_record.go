package sqlstore

import "time"

// PriceRecord is one symbol's price from one committed snapshot.
type PriceRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	RunID  string `gorm:"type:varchar(36);not null;index:idx_run_symbol,unique"`
	Symbol string `gorm:"type:text;not null;index:idx_price_symbol;index:idx_run_symbol,unique"`

	Price      float64   `gorm:"type:numeric;not null"`
	CapturedAt time.Time `gorm:"not null;index:idx_price_captured_at"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (PriceRecord) TableName() string {
	return "price_snapshot"
}

package state

import (
	"time"

	"github.com/uptrace/bun"
)

// OrderRecord is one placed vehicle order. Records are immutable once stored.
type OrderRecord struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	CustomerName string    `bun:"customer_name,notnull" json:"customer_name"`
	VehicleType  string    `bun:"vehicle_type,notnull" json:"vehicle_type"`
	BrandCode    string    `bun:"brand_code,notnull" json:"brand_code"`
	ModelCode    string    `bun:"model_code,notnull" json:"model_code"`
	YearCode     string    `bun:"year_code,notnull" json:"year_code"`
	OrderDate    time.Time `bun:"order_date,notnull" json:"order_date"`
	DeliveryDate time.Time `bun:"delivery_date,notnull" json:"delivery_date"`
}

// normalizeTimestamp keeps what both SQLite and Postgres round-trip exactly.
func normalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

type Product struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Description   *string         `json:"description" db:"description"`
	SKU           *string         `json:"sku" db:"sku"`
	HSNCode       *string         `json:"hsn_code" db:"hsn_code"`
	Category      *string         `json:"category" db:"category"`
	Unit          string          `json:"unit" db:"unit"`
	PurchasePrice decimal.Decimal `json:"purchase_price" db:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price" db:"selling_price"`
	TaxRate       decimal.Decimal `json:"tax_rate" db:"tax_rate"`
	StockQuantity decimal.Decimal `json:"stock_quantity" db:"stock_quantity"`
	MinStockLevel decimal.Decimal `json:"min_stock_level" db:"min_stock_level"`
	Barcode       *string         `json:"barcode" db:"barcode"`
	Status        string          `json:"status" db:"status"`
	CreatedBy     uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// BelowMinStock reports whether the product has fallen to or under its
// configured minimum stock level.
func (p *Product) BelowMinStock() bool {
	return p.StockQuantity.LessThanOrEqual(p.MinStockLevel)
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusPending   = "pending"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCompleted = "completed"
	InvoiceStatusCancelled = "cancelled"
)

type Invoice struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	InvoiceNumber string          `json:"invoice_number" db:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id" db:"customer_id"`
	InvoiceDate   time.Time       `json:"invoice_date" db:"invoice_date"`
	DueDate       time.Time       `json:"due_date" db:"due_date"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	CGST          decimal.Decimal `json:"cgst" db:"cgst"`
	SGST          decimal.Decimal `json:"sgst" db:"sgst"`
	IGST          decimal.Decimal `json:"igst" db:"igst"`
	TotalTax      decimal.Decimal `json:"total_tax" db:"total_tax"`
	Discount      decimal.Decimal `json:"discount" db:"discount"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	Status        string          `json:"status" db:"status"`
	Notes         *string         `json:"notes" db:"notes"`
	Terms         *string         `json:"terms" db:"terms"`
	CreatedBy     uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`

	// Populated on reads, never persisted on the invoice row itself.
	Items        []*InvoiceItem `json:"items,omitempty" db:"-"`
	CompanyName  string         `json:"company_name,omitempty" db:"-"`
	CustomerGSTIN *string       `json:"customer_gstin,omitempty" db:"-"`
}

type InvoiceItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id" db:"invoice_id"`
	ProductID   *uuid.UUID      `json:"product_id" db:"product_id"`
	Description string          `json:"description" db:"description"`
	HSNCode     *string         `json:"hsn_code" db:"hsn_code"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	Unit        string          `json:"unit" db:"unit"`
	Rate        decimal.Decimal `json:"rate" db:"rate"`
	Discount    decimal.Decimal `json:"discount" db:"discount"`
	TaxRate     decimal.Decimal `json:"tax_rate" db:"tax_rate"`
	TaxAmount   decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	Status     string     `json:"status,omitempty"`
	Search     string     `json:"search,omitempty"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
	Page       int        `json:"page,omitempty"`
	PerPage    int        `json:"per_page,omitempty"`
}

// InvoiceList is a page of invoices with the totals callers need to paginate.
type InvoiceList struct {
	Invoices []*Invoice `json:"invoices"`
	Total    int        `json:"total"`
	Pages    int        `json:"pages"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CouponStatusActive   = "active"
	CouponStatusInactive = "inactive"

	DiscountTypePercentage   = "percentage"
	DiscountTypeFixed        = "fixed"
	DiscountTypeFreeShipping = "free_shipping"
)

type Coupon struct {
	ID                  uuid.UUID        `json:"id" db:"id"`
	Code                string           `json:"code" db:"code"`
	Description         *string          `json:"description" db:"description"`
	DiscountType        string           `json:"discount_type" db:"discount_type"`
	DiscountValue       decimal.Decimal  `json:"discount_value" db:"discount_value"`
	MinimumAmount       decimal.Decimal  `json:"minimum_amount" db:"minimum_amount"`
	MaximumDiscount     *decimal.Decimal `json:"maximum_discount" db:"maximum_discount"`
	UsageLimit          *int             `json:"usage_limit" db:"usage_limit"`
	UsedCount           int              `json:"used_count" db:"used_count"`
	StartDate           *time.Time       `json:"start_date" db:"start_date"`
	EndDate             *time.Time       `json:"end_date" db:"end_date"`
	ApplicableProducts  []uuid.UUID      `json:"applicable_products,omitempty" db:"applicable_products"`
	ApplicableCustomers []uuid.UUID      `json:"applicable_customers,omitempty" db:"applicable_customers"`
	Status              string           `json:"status" db:"status"`
	CreatedBy           uuid.UUID        `json:"created_by" db:"created_by"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" db:"updated_at"`
}

// CouponUsage is an append-only redemption record. Rows are only ever
// inserted, one per successful redemption.
type CouponUsage struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CouponID  uuid.UUID  `json:"coupon_id" db:"coupon_id"`
	InvoiceID *uuid.UUID `json:"invoice_id" db:"invoice_id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	UsedAt    time.Time  `json:"used_at" db:"used_at"`
}

// CouponDiscount is the result of applying a coupon to an order total.
type CouponDiscount struct {
	Coupon         *Coupon         `json:"coupon"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

// CouponStats aggregates redemption activity for one coupon.
type CouponStats struct {
	Coupon       *Coupon         `json:"coupon"`
	TotalUsage   int             `json:"total_usage"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// BulkCouponSpec describes a bulk generation run.
type BulkCouponSpec struct {
	Count         int             `json:"count"`
	Prefix        string          `json:"prefix"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	ExpiryDays    int             `json:"expiry_days"`
}

// BulkCouponResult reports only what was actually created; collided codes
// are skipped, not retried.
type BulkCouponResult struct {
	GeneratedCount int      `json:"generated_count"`
	Coupons        []string `json:"coupons"`
}

// CouponFilter narrows coupon listings.
type CouponFilter struct {
	Status  string `json:"status,omitempty"`
	Page    int    `json:"page,omitempty"`
	PerPage int    `json:"per_page,omitempty"`
}

// CouponList is a page of coupons.
type CouponList struct {
	Coupons []*Coupon `json:"coupons"`
	Total   int       `json:"total"`
	Pages   int       `json:"pages"`
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gstbill/internal/caching"
	"gstbill/internal/common"
	"gstbill/internal/config"
	"gstbill/internal/models"
	"gstbill/internal/repositories"

	"github.com/google/uuid"
	"github.com/labstack/gommon/random"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CouponServiceInterface validates, applies and redeems discount coupons.
// Validation and apply are pure reads; redemption is the only mutation and
// is atomic with respect to the usage limit.
type CouponServiceInterface interface {
	CreateCoupon(ctx context.Context, coupon *models.Coupon) error
	DeleteCoupon(ctx context.Context, id uuid.UUID) error
	ListCoupons(ctx context.Context, filter *models.CouponFilter) (*models.CouponList, error)
	GetCouponStats(ctx context.Context, id uuid.UUID) (*models.CouponStats, error)

	ValidateCoupon(ctx context.Context, code string, customerID *uuid.UUID, totalAmount decimal.Decimal, productIDs []uuid.UUID) (*models.Coupon, error)
	ApplyCoupon(ctx context.Context, code string, totalAmount decimal.Decimal, customerID *uuid.UUID, productIDs []uuid.UUID) (*models.CouponDiscount, error)
	UseCoupon(ctx context.Context, couponID uuid.UUID, invoiceID *uuid.UUID) error
	BulkGenerateCoupons(ctx context.Context, spec *models.BulkCouponSpec) (*models.BulkCouponResult, error)
}

type couponService struct {
	db         TxBeginner
	couponRepo repositories.CouponRepository
	cache      caching.CacheService
	cfg        *config.Config
}

// couponCacheTTL is short: a cached coupon may miss very recent redemptions,
// so redemption itself never trusts the cache.
const couponCacheTTL = 30 * time.Second

// NewCouponService creates the coupon engine. The cache may be nil.
func NewCouponService(db TxBeginner, couponRepo repositories.CouponRepository, cache caching.CacheService, cfg *config.Config) CouponServiceInterface {
	return &couponService{db: db, couponRepo: couponRepo, cache: cache, cfg: cfg}
}

func (s *couponService) CreateCoupon(ctx context.Context, coupon *models.Coupon) error {
	if coupon.Code == "" {
		return common.ValidationError("code is required")
	}
	switch coupon.DiscountType {
	case models.DiscountTypePercentage, models.DiscountTypeFixed, models.DiscountTypeFreeShipping:
	default:
		return common.ValidationError("invalid discount type %q", coupon.DiscountType)
	}
	if coupon.DiscountType != models.DiscountTypeFreeShipping && !coupon.DiscountValue.IsPositive() {
		return common.ValidationError("discount value must be positive")
	}

	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	coupon.Code = strings.ToUpper(strings.TrimSpace(coupon.Code))
	if coupon.Status == "" {
		coupon.Status = models.CouponStatusActive
	}

	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		if repositories.IsUniqueViolation(err) {
			return fmt.Errorf("coupon code already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("create coupon: %w", err)
	}
	return nil
}

func (s *couponService) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	coupon, err := s.couponRepo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNoRows(err) {
			return common.NotFoundError("coupon")
		}
		return fmt.Errorf("load coupon: %w", err)
	}
	if err := s.couponRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	s.invalidateCoupon(ctx, coupon.Code)
	return nil
}

func (s *couponService) ListCoupons(ctx context.Context, filter *models.CouponFilter) (*models.CouponList, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 || filter.PerPage > 100 {
		filter.PerPage = 20
	}

	coupons, total, err := s.couponRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	pages := (total + filter.PerPage - 1) / filter.PerPage
	return &models.CouponList{Coupons: coupons, Total: total, Pages: pages}, nil
}

func (s *couponService) GetCouponStats(ctx context.Context, id uuid.UUID) (*models.CouponStats, error) {
	coupon, err := s.couponRepo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNoRows(err) {
			return nil, common.NotFoundError("coupon")
		}
		return nil, fmt.Errorf("load coupon: %w", err)
	}

	usage, revenue, err := s.couponRepo.Stats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load coupon stats: %w", err)
	}
	return &models.CouponStats{Coupon: coupon, TotalUsage: usage, TotalRevenue: revenue}, nil
}

// loadActiveByCode reads through the cache. Cached entries may lag recent
// redemptions by up to the TTL; redemption itself re-checks in the database.
func (s *couponService) loadActiveByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetCoupon(ctx, code); err == nil && cached != nil {
			return cached, nil
		}
	}

	coupon, err := s.couponRepo.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetCoupon(ctx, coupon, couponCacheTTL); err != nil {
			log.Debug().Err(err).Str("code", coupon.Code).Msg("coupon cache set failed")
		}
	}
	return coupon, nil
}

func (s *couponService) invalidateCoupon(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteCoupon(ctx, code); err != nil {
		log.Debug().Err(err).Str("code", code).Msg("coupon cache invalidation failed")
	}
}

// ValidateCoupon runs the full eligibility check for a code against an order
// context. Failures surface as the coupon error taxonomy; no side effects.
func (s *couponService) ValidateCoupon(ctx context.Context, code string, customerID *uuid.UUID, totalAmount decimal.Decimal, productIDs []uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.loadActiveByCode(ctx, code)
	if err != nil {
		if repositories.IsNoRows(err) {
			return nil, common.ErrInvalidCode
		}
		return nil, fmt.Errorf("load coupon: %w", err)
	}

	now := time.Now()
	if coupon.EndDate != nil && coupon.EndDate.Before(now) {
		return nil, common.ErrCouponExpired
	}
	if coupon.StartDate != nil && coupon.StartDate.After(now) {
		return nil, common.ErrCouponNotYetActive
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return nil, common.ErrUsageLimitExceeded
	}
	if coupon.MinimumAmount.IsPositive() && totalAmount.LessThan(coupon.MinimumAmount) {
		return nil, fmt.Errorf("%w: minimum order amount of %s%s required",
			common.ErrMinimumNotMet, s.cfg.CurrencySymbol, coupon.MinimumAmount.StringFixed(2))
	}

	if len(coupon.ApplicableCustomers) > 0 && customerID != nil {
		if !containsID(coupon.ApplicableCustomers, *customerID) {
			return nil, common.ErrCustomerNotEligible
		}
	}

	if len(coupon.ApplicableProducts) > 0 && len(productIDs) > 0 {
		eligible := false
		for _, pid := range productIDs {
			if containsID(coupon.ApplicableProducts, pid) {
				eligible = true
				break
			}
		}
		if !eligible {
			return nil, common.ErrProductNotEligible
		}
	}

	return coupon, nil
}

// ComputeDiscount is the pure discount function of coupon type and order
// total: percentage is capped at maximum_discount when set, fixed never
// exceeds the order total, free shipping contributes nothing here (the
// shipping calculator owns that adjustment).
func ComputeDiscount(coupon *models.Coupon, totalAmount decimal.Decimal) decimal.Decimal {
	switch coupon.DiscountType {
	case models.DiscountTypePercentage:
		discount := totalAmount.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100))
		if coupon.MaximumDiscount != nil && discount.GreaterThan(*coupon.MaximumDiscount) {
			discount = *coupon.MaximumDiscount
		}
		return discount
	case models.DiscountTypeFixed:
		if coupon.DiscountValue.GreaterThan(totalAmount) {
			return totalAmount
		}
		return coupon.DiscountValue
	default: // free_shipping
		return decimal.Zero
	}
}

func (s *couponService) ApplyCoupon(ctx context.Context, code string, totalAmount decimal.Decimal, customerID *uuid.UUID, productIDs []uuid.UUID) (*models.CouponDiscount, error) {
	coupon, err := s.ValidateCoupon(ctx, code, customerID, totalAmount, productIDs)
	if err != nil {
		return nil, err
	}

	discount := ComputeDiscount(coupon, totalAmount)
	return &models.CouponDiscount{
		Coupon:         coupon,
		DiscountAmount: discount,
		FinalAmount:    totalAmount.Sub(discount),
	}, nil
}

// UseCoupon redeems a coupon: one conditional used_count increment plus one
// usage-log row, committed together. Losing the increment race surfaces as
// a usage-limit failure.
func (s *couponService) UseCoupon(ctx context.Context, couponID uuid.UUID, invoiceID *uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin coupon redemption: %w", err)
	}
	defer tx.Rollback(ctx)

	couponRepo := s.couponRepo.WithTx(tx)

	ok, err := couponRepo.Redeem(ctx, couponID)
	if err != nil {
		return fmt.Errorf("redeem coupon: %w", err)
	}
	if !ok {
		// Either the coupon is gone/inactive or the limit is exhausted;
		// distinguish for the caller.
		if _, err := couponRepo.GetByID(ctx, couponID); err != nil {
			if repositories.IsNoRows(err) {
				return common.ErrInvalidCode
			}
			return fmt.Errorf("load coupon: %w", err)
		}
		return common.ErrUsageLimitExceeded
	}

	userID, _ := common.GetUserIDFromContext(ctx)
	usage := &models.CouponUsage{
		ID:        uuid.New(),
		CouponID:  couponID,
		InvoiceID: invoiceID,
		UserID:    userID,
		UsedAt:    time.Now(),
	}
	if err := couponRepo.InsertUsage(ctx, usage); err != nil {
		return fmt.Errorf("log coupon usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit coupon redemption: %w", err)
	}

	if s.cache != nil {
		if coupon, err := s.couponRepo.GetByID(ctx, couponID); err == nil {
			s.invalidateCoupon(ctx, coupon.Code)
		}
	}
	return nil
}

// BulkGenerateCoupons creates count single-use coupons with random code
// suffixes. Each insert is independent; collided codes are skipped and the
// result reports only what was actually created.
func (s *couponService) BulkGenerateCoupons(ctx context.Context, spec *models.BulkCouponSpec) (*models.BulkCouponResult, error) {
	if spec.Count < 1 {
		return nil, common.ValidationError("count must be at least 1")
	}
	switch spec.DiscountType {
	case models.DiscountTypePercentage, models.DiscountTypeFixed, models.DiscountTypeFreeShipping:
	default:
		return nil, common.ValidationError("invalid discount type %q", spec.DiscountType)
	}
	prefix := strings.ToUpper(strings.TrimSpace(spec.Prefix))
	if prefix == "" {
		prefix = "BULK"
	}
	expiryDays := spec.ExpiryDays
	if expiryDays <= 0 {
		expiryDays = 30
	}

	userID, _ := common.GetUserIDFromContext(ctx)
	endDate := time.Now().AddDate(0, 0, expiryDays)
	usageLimit := 1

	result := &models.BulkCouponResult{}
	for i := 1; i <= spec.Count; i++ {
		code := prefix + "-" + strings.ToUpper(random.String(8))
		description := fmt.Sprintf("Bulk generated coupon #%d", i)

		coupon := &models.Coupon{
			ID:            uuid.New(),
			Code:          code,
			Description:   &description,
			DiscountType:  spec.DiscountType,
			DiscountValue: spec.DiscountValue,
			MinimumAmount: decimal.Zero,
			UsageLimit:    &usageLimit,
			EndDate:       &endDate,
			Status:        models.CouponStatusActive,
			CreatedBy:     userID,
		}

		if err := s.couponRepo.Create(ctx, coupon); err != nil {
			log.Warn().Err(err).Str("code", code).Msg("bulk coupon skipped")
			continue
		}
		result.Coupons = append(result.Coupons, code)
	}
	result.GeneratedCount = len(result.Coupons)
	return result, nil
}

func containsID(ids []uuid.UUID, target uuid.UUID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

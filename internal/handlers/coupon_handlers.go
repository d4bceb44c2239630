package handlers

import (
	"net/http"
	"strconv"
	"time"

	"gstbill/internal/common"
	"gstbill/internal/models"
	"gstbill/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// CouponHandlers handles HTTP requests for coupons
type CouponHandlers struct {
	couponService services.CouponServiceInterface
}

func NewCouponHandlers(couponService services.CouponServiceInterface) *CouponHandlers {
	return &CouponHandlers{couponService: couponService}
}

type couponRequest struct {
	Code                string           `json:"code" validate:"required"`
	Description         *string          `json:"description"`
	DiscountType        string           `json:"discount_type" validate:"required,oneof=percentage fixed free_shipping"`
	DiscountValue       decimal.Decimal  `json:"discount_value"`
	MinimumAmount       decimal.Decimal  `json:"minimum_amount"`
	MaximumDiscount     *decimal.Decimal `json:"maximum_discount"`
	UsageLimit          *int             `json:"usage_limit"`
	StartDate           *time.Time       `json:"start_date"`
	EndDate             *time.Time       `json:"end_date"`
	ApplicableProducts  []string         `json:"applicable_products"`
	ApplicableCustomers []string         `json:"applicable_customers"`
}

func parseIDList(raw []string, fieldName string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := common.ValidateUUID(s, fieldName)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// CreateCoupon handles POST /coupons
func (h *CouponHandlers) CreateCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	var req couponRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return common.SendClientError(c, err.Error())
	}

	products, err := parseIDList(req.ApplicableProducts, "applicable_products")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	customers, err := parseIDList(req.ApplicableCustomers, "applicable_customers")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	coupon := &models.Coupon{
		Code:                req.Code,
		Description:         req.Description,
		DiscountType:        req.DiscountType,
		DiscountValue:       req.DiscountValue,
		MinimumAmount:       req.MinimumAmount,
		MaximumDiscount:     req.MaximumDiscount,
		UsageLimit:          req.UsageLimit,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		ApplicableProducts:  products,
		ApplicableCustomers: customers,
	}
	if userID, ok := common.GetUserIDFromContext(ctx); ok {
		coupon.CreatedBy = userID
	}

	if err := h.couponService.CreateCoupon(ctx, coupon); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, coupon)
}

// ListCoupons handles GET /coupons
func (h *CouponHandlers) ListCoupons(c echo.Context) error {
	filter := &models.CouponFilter{
		Status: c.QueryParam("status"),
	}
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		filter.Page = page
	}
	if perPage, err := strconv.Atoi(c.QueryParam("per_page")); err == nil {
		filter.PerPage = perPage
	}

	list, err := h.couponService.ListCoupons(c.Request().Context(), filter)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// DeleteCoupon handles DELETE /coupons/:id
func (h *CouponHandlers) DeleteCoupon(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.couponService.DeleteCoupon(c.Request().Context(), id); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type couponCheckRequest struct {
	Code        string          `json:"code" validate:"required"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CustomerID  *string         `json:"customer_id"`
	ProductIDs  []string        `json:"product_ids"`
}

func (r *couponCheckRequest) parse() (*uuid.UUID, []uuid.UUID, error) {
	var customerID *uuid.UUID
	if r.CustomerID != nil && *r.CustomerID != "" {
		id, err := common.ValidateUUID(*r.CustomerID, "customer_id")
		if err != nil {
			return nil, nil, err
		}
		customerID = &id
	}
	productIDs, err := parseIDList(r.ProductIDs, "product_ids")
	if err != nil {
		return nil, nil, err
	}
	return customerID, productIDs, nil
}

// ValidateCoupon handles POST /coupons/validate
func (h *CouponHandlers) ValidateCoupon(c echo.Context) error {
	var req couponCheckRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return common.SendClientError(c, err.Error())
	}

	customerID, productIDs, err := req.parse()
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	coupon, err := h.couponService.ValidateCoupon(c.Request().Context(), req.Code, customerID, req.TotalAmount, productIDs)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"valid": true, "coupon": coupon})
}

// ApplyCoupon handles POST /coupons/apply
func (h *CouponHandlers) ApplyCoupon(c echo.Context) error {
	var req couponCheckRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return common.SendClientError(c, err.Error())
	}

	customerID, productIDs, err := req.parse()
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	discount, err := h.couponService.ApplyCoupon(c.Request().Context(), req.Code, req.TotalAmount, customerID, productIDs)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, discount)
}

// RedeemCoupon handles POST /coupons/:id/redeem
func (h *CouponHandlers) RedeemCoupon(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		InvoiceID *string `json:"invoice_id"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	var invoiceID *uuid.UUID
	if req.InvoiceID != nil && *req.InvoiceID != "" {
		parsed, err := common.ValidateUUID(*req.InvoiceID, "invoice_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		invoiceID = &parsed
	}

	if err := h.couponService.UseCoupon(c.Request().Context(), id, invoiceID); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "redeemed"})
}

// BulkGenerateCoupons handles POST /coupons/bulk
func (h *CouponHandlers) BulkGenerateCoupons(c echo.Context) error {
	var spec models.BulkCouponSpec
	if err := c.Bind(&spec); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	result, err := h.couponService.BulkGenerateCoupons(c.Request().Context(), &spec)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

// GetCouponStats handles GET /coupons/:id/stats
func (h *CouponHandlers) GetCouponStats(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	stats, err := h.couponService.GetCouponStats(c.Request().Context(), id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

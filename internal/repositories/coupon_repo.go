package repositories

import (
	"context"
	"encoding/json"
	"strings"

	"gstbill/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type CouponRepository interface {
	WithTx(tx pgx.Tx) CouponRepository
	Create(ctx context.Context, coupon *models.Coupon) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	GetActiveByCode(ctx context.Context, code string) (*models.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter *models.CouponFilter) ([]*models.Coupon, int, error)
	DeactivateExpired(ctx context.Context) (int64, error)

	// Redeem increments used_count only while the usage limit is not
	// exhausted. The check and increment are one conditional UPDATE, so
	// concurrent redemptions cannot overshoot the limit; a false return
	// means the caller lost the race or the coupon is no longer active.
	Redeem(ctx context.Context, id uuid.UUID) (bool, error)
	InsertUsage(ctx context.Context, usage *models.CouponUsage) error
	Stats(ctx context.Context, id uuid.UUID) (int, decimal.Decimal, error)
}

type couponRepo struct {
	db DB
}

func NewCouponRepo(db DB) CouponRepository {
	return &couponRepo{db: db}
}

func (r *couponRepo) WithTx(tx pgx.Tx) CouponRepository {
	return &couponRepo{db: tx}
}

const couponColumns = `id, code, description, discount_type, discount_value, minimum_amount, maximum_discount, usage_limit, used_count, start_date, end_date, applicable_products, applicable_customers, status, created_by, created_at, updated_at`

// Allow-lists persist as JSONB uuid arrays; NULL means no restriction.
func marshalIDList(ids []uuid.UUID) (any, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return json.Marshal(ids)
}

func scanCoupon(row pgx.Row) (*models.Coupon, error) {
	c := &models.Coupon{}
	var products, customers []byte
	err := row.Scan(&c.ID, &c.Code, &c.Description, &c.DiscountType, &c.DiscountValue, &c.MinimumAmount, &c.MaximumDiscount, &c.UsageLimit, &c.UsedCount, &c.StartDate, &c.EndDate, &products, &customers, &c.Status, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if products != nil {
		if err := json.Unmarshal(products, &c.ApplicableProducts); err != nil {
			return nil, err
		}
	}
	if customers != nil {
		if err := json.Unmarshal(customers, &c.ApplicableCustomers); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (r *couponRepo) Create(ctx context.Context, coupon *models.Coupon) error {
	products, err := marshalIDList(coupon.ApplicableProducts)
	if err != nil {
		return err
	}
	customers, err := marshalIDList(coupon.ApplicableCustomers)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO coupons (id, code, description, discount_type, discount_value, minimum_amount, maximum_discount, usage_limit, used_count, start_date, end_date, applicable_products, applicable_customers, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
	`
	_, err = r.db.Exec(ctx, query, coupon.ID, strings.ToUpper(coupon.Code), coupon.Description, coupon.DiscountType, coupon.DiscountValue, coupon.MinimumAmount, coupon.MaximumDiscount, coupon.UsageLimit, coupon.UsedCount, coupon.StartDate, coupon.EndDate, products, customers, coupon.Status, coupon.CreatedBy)
	return err
}

func (r *couponRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	return scanCoupon(r.db.QueryRow(ctx, query, id))
}

// GetActiveByCode looks up an active coupon by its upper-cased code. Inactive
// coupons are indistinguishable from absent ones, matching the validation
// taxonomy where both fail as an invalid code.
func (r *couponRepo) GetActiveByCode(ctx context.Context, code string) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 AND status = 'active'`
	return scanCoupon(r.db.QueryRow(ctx, query, strings.ToUpper(code)))
}

func (r *couponRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	return err
}

func (r *couponRepo) List(ctx context.Context, filter *models.CouponFilter) ([]*models.Coupon, int, error) {
	where := ``
	var args []any
	if filter.Status != "" && filter.Status != "all" {
		where = ` WHERE status = $1`
		args = append(args, filter.Status)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM coupons`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PerPage
	args = append(args, filter.PerPage, offset)
	query := `SELECT ` + couponColumns + ` FROM coupons` + where
	if where == "" {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var coupons []*models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, 0, err
		}
		coupons = append(coupons, c)
	}
	return coupons, total, rows.Err()
}

func (r *couponRepo) DeactivateExpired(ctx context.Context) (int64, error) {
	query := `
		UPDATE coupons
		SET status = 'inactive', updated_at = NOW()
		WHERE status = 'active' AND end_date IS NOT NULL AND end_date < NOW()
	`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *couponRepo) Redeem(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1
		  AND status = 'active'
		  AND (usage_limit IS NULL OR used_count < usage_limit)
	`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *couponRepo) InsertUsage(ctx context.Context, usage *models.CouponUsage) error {
	query := `
		INSERT INTO coupon_usage (id, coupon_id, invoice_id, user_id, used_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, usage.ID, usage.CouponID, usage.InvoiceID, usage.UserID, usage.UsedAt)
	return err
}

func (r *couponRepo) Stats(ctx context.Context, id uuid.UUID) (int, decimal.Decimal, error) {
	query := `
		SELECT COUNT(cu.id), COALESCE(SUM(i.total_amount), 0)
		FROM coupon_usage cu
		LEFT JOIN invoices i ON cu.invoice_id = i.id
		WHERE cu.coupon_id = $1
	`
	var usage int
	var revenue decimal.Decimal
	if err := r.db.QueryRow(ctx, query, id).Scan(&usage, &revenue); err != nil {
		return 0, decimal.Zero, err
	}
	return usage, revenue, nil
}

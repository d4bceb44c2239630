package repositories

import (
	"context"

	"gstbill/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type ProductRepository interface {
	WithTx(tx pgx.Tx) ProductRepository
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, status string, limit, offset int) ([]*models.Product, error)
	ListBelowMinStock(ctx context.Context) ([]*models.Product, error)

	// AdjustStock applies a signed stock delta unconditionally; stock may go
	// negative.
	AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
	// TryAdjustStock applies the delta only if the resulting quantity stays
	// non-negative, reporting whether a row was updated.
	TryAdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (bool, error)
}

type productRepo struct {
	db DB
}

func NewProductRepo(db DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) WithTx(tx pgx.Tx) ProductRepository {
	return &productRepo{db: tx}
}

const productColumns = `id, name, description, sku, hsn_code, category, unit, purchase_price, selling_price, tax_rate, stock_quantity, min_stock_level, barcode, status, created_by, created_at, updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.SKU, &p.HSNCode, &p.Category, &p.Unit, &p.PurchasePrice, &p.SellingPrice, &p.TaxRate, &p.StockQuantity, &p.MinStockLevel, &p.Barcode, &p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, name, description, sku, hsn_code, category, unit, purchase_price, selling_price, tax_rate, stock_quantity, min_stock_level, barcode, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, product.ID, product.Name, product.Description, product.SKU, product.HSNCode, product.Category, product.Unit, product.PurchasePrice, product.SellingPrice, product.TaxRate, product.StockQuantity, product.MinStockLevel, product.Barcode, product.Status, product.CreatedBy)
	return err
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(r.db.QueryRow(ctx, query, id))
}

func (r *productRepo) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, sku = $3, hsn_code = $4, category = $5, unit = $6, purchase_price = $7, selling_price = $8, tax_rate = $9, stock_quantity = $10, min_stock_level = $11, barcode = $12, status = $13, updated_at = NOW()
		WHERE id = $14
	`
	_, err := r.db.Exec(ctx, query, product.Name, product.Description, product.SKU, product.HSNCode, product.Category, product.Unit, product.PurchasePrice, product.SellingPrice, product.TaxRate, product.StockQuantity, product.MinStockLevel, product.Barcode, product.Status, product.ID)
	return err
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (r *productRepo) List(ctx context.Context, status string, limit, offset int) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if status != "" && status != "all" {
		query += ` WHERE status = $1 ORDER BY name LIMIT $2 OFFSET $3`
		args = []any{status, limit, offset}
	} else {
		query += ` ORDER BY name LIMIT $1 OFFSET $2`
		args = []any{limit, offset}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepo) ListBelowMinStock(ctx context.Context) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE status = 'active' AND stock_quantity <= min_stock_level ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, delta, id)
	return err
}

func (r *productRepo) TryAdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (bool, error) {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		WHERE id = $2 AND stock_quantity + $1 >= 0
	`
	tag, err := r.db.Exec(ctx, query, delta, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

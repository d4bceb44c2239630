package repositories

import (
	"context"
	"fmt"

	"gstbill/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type InvoiceRepository interface {
	WithTx(tx pgx.Tx) InvoiceRepository
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	Update(ctx context.Context, invoice *models.Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter *models.InvoiceFilter) ([]*models.Invoice, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdatePaidAmount(ctx context.Context, id uuid.UUID, paidAmount decimal.Decimal, status string) error

	InsertItems(ctx context.Context, invoiceID uuid.UUID, items []*models.InvoiceItem) error
	ListItems(ctx context.Context, invoiceID uuid.UUID) ([]*models.InvoiceItem, error)
	DeleteItems(ctx context.Context, invoiceID uuid.UUID) error

	// NextInvoiceNumber advances the per-prefix sequence atomically and
	// returns the formatted number. Safe under concurrent invoice creation:
	// the upsert is a single statement, so two transactions can never
	// observe the same sequence value.
	NextInvoiceNumber(ctx context.Context, prefix string, startNumber int) (string, error)
}

type invoiceRepo struct {
	db DB
}

func NewInvoiceRepo(db DB) InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) WithTx(tx pgx.Tx) InvoiceRepository {
	return &invoiceRepo{db: tx}
}

const invoiceColumns = `i.id, i.invoice_number, i.customer_id, i.invoice_date, i.due_date, i.subtotal, i.cgst, i.sgst, i.igst, i.total_tax, i.discount, i.total_amount, i.paid_amount, i.status, i.notes, i.terms, i.created_by, i.created_at, i.updated_at`

func scanInvoice(row pgx.Row, withCustomer bool) (*models.Invoice, error) {
	inv := &models.Invoice{}
	dest := []any{&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.InvoiceDate, &inv.DueDate, &inv.Subtotal, &inv.CGST, &inv.SGST, &inv.IGST, &inv.TotalTax, &inv.Discount, &inv.TotalAmount, &inv.PaidAmount, &inv.Status, &inv.Notes, &inv.Terms, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt}
	if withCustomer {
		dest = append(dest, &inv.CompanyName, &inv.CustomerGSTIN)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (id, invoice_number, customer_id, invoice_date, due_date, subtotal, cgst, sgst, igst, total_tax, discount, total_amount, paid_amount, status, notes, terms, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, invoice.ID, invoice.InvoiceNumber, invoice.CustomerID, invoice.InvoiceDate, invoice.DueDate, invoice.Subtotal, invoice.CGST, invoice.SGST, invoice.IGST, invoice.TotalTax, invoice.Discount, invoice.TotalAmount, invoice.PaidAmount, invoice.Status, invoice.Notes, invoice.Terms, invoice.CreatedBy)
	return err
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `, c.company_name, c.gstin
		FROM invoices i
		LEFT JOIN customers c ON i.customer_id = c.id
		WHERE i.id = $1
	`
	return scanInvoice(r.db.QueryRow(ctx, query, id), true)
}

func (r *invoiceRepo) Update(ctx context.Context, invoice *models.Invoice) error {
	query := `
		UPDATE invoices
		SET customer_id = $1, invoice_date = $2, due_date = $3, subtotal = $4, cgst = $5, sgst = $6, igst = $7, total_tax = $8, discount = $9, total_amount = $10, notes = $11, terms = $12, updated_at = NOW()
		WHERE id = $13
	`
	_, err := r.db.Exec(ctx, query, invoice.CustomerID, invoice.InvoiceDate, invoice.DueDate, invoice.Subtotal, invoice.CGST, invoice.SGST, invoice.IGST, invoice.TotalTax, invoice.Discount, invoice.TotalAmount, invoice.Notes, invoice.Terms, invoice.ID)
	return err
}

func (r *invoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	return err
}

func (r *invoiceRepo) List(ctx context.Context, filter *models.InvoiceFilter) ([]*models.Invoice, int, error) {
	where := ` WHERE 1=1`
	var args []any

	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND i.status = $%d", len(args))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		where += fmt.Sprintf(" AND i.customer_id = $%d", len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		where += fmt.Sprintf(" AND i.invoice_date >= $%d", len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		where += fmt.Sprintf(" AND i.invoice_date <= $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND (i.invoice_number ILIKE $%d OR c.company_name ILIKE $%d)", len(args), len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM invoices i LEFT JOIN customers c ON i.customer_id = c.id` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PerPage
	args = append(args, filter.PerPage, offset)
	query := `
		SELECT ` + invoiceColumns + `, c.company_name, c.gstin
		FROM invoices i
		LEFT JOIN customers c ON i.customer_id = c.id` + where +
		fmt.Sprintf(` ORDER BY i.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows, true)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, status, id)
	return err
}

func (r *invoiceRepo) UpdatePaidAmount(ctx context.Context, id uuid.UUID, paidAmount decimal.Decimal, status string) error {
	query := `UPDATE invoices SET paid_amount = $1, status = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.Exec(ctx, query, paidAmount, status, id)
	return err
}

func (r *invoiceRepo) InsertItems(ctx context.Context, invoiceID uuid.UUID, items []*models.InvoiceItem) error {
	query := `
		INSERT INTO invoice_items (id, invoice_id, product_id, description, hsn_code, quantity, unit, rate, discount, tax_rate, tax_amount, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for _, item := range items {
		item.InvoiceID = invoiceID
		if _, err := r.db.Exec(ctx, query, item.ID, item.InvoiceID, item.ProductID, item.Description, item.HSNCode, item.Quantity, item.Unit, item.Rate, item.Discount, item.TaxRate, item.TaxAmount, item.Amount); err != nil {
			return err
		}
	}
	return nil
}

func (r *invoiceRepo) ListItems(ctx context.Context, invoiceID uuid.UUID) ([]*models.InvoiceItem, error) {
	query := `
		SELECT id, invoice_id, product_id, description, hsn_code, quantity, unit, rate, discount, tax_rate, tax_amount, amount
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.InvoiceItem
	for rows.Next() {
		item := &models.InvoiceItem{}
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.Description, &item.HSNCode, &item.Quantity, &item.Unit, &item.Rate, &item.Discount, &item.TaxRate, &item.TaxAmount, &item.Amount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *invoiceRepo) DeleteItems(ctx context.Context, invoiceID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID)
	return err
}

func (r *invoiceRepo) NextInvoiceNumber(ctx context.Context, prefix string, startNumber int) (string, error) {
	query := `
		INSERT INTO invoice_sequences (prefix, last_number, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (prefix)
		DO UPDATE SET
			last_number = GREATEST(invoice_sequences.last_number + 1, $2),
			updated_at = NOW()
		RETURNING last_number
	`
	var sequenceNum int
	if err := r.db.QueryRow(ctx, query, prefix, startNumber).Scan(&sequenceNum); err != nil {
		return "", fmt.Errorf("failed to advance invoice sequence: %w", err)
	}

	return fmt.Sprintf("%s%04d", prefix, sequenceNum), nil
}

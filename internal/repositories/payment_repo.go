package repositories

import (
	"context"

	"gstbill/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type PaymentRepository interface {
	WithTx(tx pgx.Tx) PaymentRepository
	Create(ctx context.Context, payment *models.Payment) error
	ListByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*models.Payment, error)
	DeleteByInvoiceID(ctx context.Context, invoiceID uuid.UUID) error
	SumByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
}

type paymentRepo struct {
	db DB
}

func NewPaymentRepo(db DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) WithTx(tx pgx.Tx) PaymentRepository {
	return &paymentRepo{db: tx}
}

func (r *paymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, invoice_id, customer_id, payment_method, transaction_id, amount, payment_date, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`
	_, err := r.db.Exec(ctx, query, payment.ID, payment.InvoiceID, payment.CustomerID, payment.PaymentMethod, payment.TransactionID, payment.Amount, payment.PaymentDate, payment.Status, payment.Notes)
	return err
}

func (r *paymentRepo) ListByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*models.Payment, error) {
	query := `
		SELECT id, invoice_id, customer_id, payment_method, transaction_id, amount, payment_date, status, notes, created_at
		FROM payments
		WHERE invoice_id = $1
		ORDER BY payment_date
	`
	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p := &models.Payment{}
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.CustomerID, &p.PaymentMethod, &p.TransactionID, &p.Amount, &p.PaymentDate, &p.Status, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *paymentRepo) DeleteByInvoiceID(ctx context.Context, invoiceID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM payments WHERE invoice_id = $1`, invoiceID)
	return err
}

func (r *paymentRepo) SumByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1 AND status = 'completed'`
	if err := r.db.QueryRow(ctx, query, invoiceID).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"gstbill/internal/common"
	"gstbill/internal/config"
	"gstbill/internal/events"
	"gstbill/internal/gst"
	"gstbill/internal/models"
	"gstbill/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TxBeginner starts database transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InvoiceServiceInterface is the invoice ledger: every mutation runs as one
// transaction covering the invoice row, its items, and product stock.
type InvoiceServiceInterface interface {
	CreateInvoice(ctx context.Context, invoice *models.Invoice, items []*models.InvoiceItem) error
	GetInvoiceByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, filter *models.InvoiceFilter) (*models.InvoiceList, error)
	UpdateInvoice(ctx context.Context, invoice *models.Invoice, items []*models.InvoiceItem) error
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
	UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, status string) error
	RecordPayment(ctx context.Context, payment *models.Payment) error
}

type invoiceService struct {
	db          TxBeginner
	invoiceRepo repositories.InvoiceRepository
	customerRepo repositories.CustomerRepository
	productRepo repositories.ProductRepository
	paymentRepo repositories.PaymentRepository
	calc        *gst.Calculator
	cfg         *config.Config
	publisher   *events.Publisher
}

// NewInvoiceService creates the invoice ledger service.
func NewInvoiceService(
	db TxBeginner,
	invoiceRepo repositories.InvoiceRepository,
	customerRepo repositories.CustomerRepository,
	productRepo repositories.ProductRepository,
	paymentRepo repositories.PaymentRepository,
	calc *gst.Calculator,
	cfg *config.Config,
	publisher *events.Publisher,
) InvoiceServiceInterface {
	return &invoiceService{
		db:           db,
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		paymentRepo:  paymentRepo,
		calc:         calc,
		cfg:          cfg,
		publisher:    publisher,
	}
}

func (s *invoiceService) validateInvoiceInput(invoice *models.Invoice, items []*models.InvoiceItem) error {
	if invoice.CustomerID == uuid.Nil {
		return common.ValidationError("customer_id is required")
	}
	if len(items) == 0 {
		return common.ValidationError("invoice must have at least one item")
	}
	for i, item := range items {
		if item.Description == "" {
			return common.ValidationError("item %d: description is required", i+1)
		}
		if !item.Quantity.IsPositive() {
			return common.ValidationError("item %d: quantity must be positive", i+1)
		}
		if item.Rate.IsNegative() {
			return common.ValidationError("item %d: rate cannot be negative", i+1)
		}
		if item.TaxRate.IsNegative() || item.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
			return common.ValidationError("item %d: tax rate must be between 0 and 100", i+1)
		}
	}
	if invoice.Discount.IsNegative() {
		return common.ValidationError("discount cannot be negative")
	}
	return nil
}

// applyTotals runs the tax calculator over the items and writes the derived
// figures onto the invoice and items, rounded for storage.
func (s *invoiceService) applyTotals(invoice *models.Invoice, items []*models.InvoiceItem, customerState string) {
	lines := make([]gst.Line, len(items))
	for i, item := range items {
		lines[i] = gst.Line{
			Quantity: item.Quantity,
			Rate:     item.Rate,
			Discount: item.Discount,
			TaxRate:  item.TaxRate,
		}
	}

	interstate := s.calc.IsInterstate(customerState)
	results, totals := s.calc.Calculate(lines, invoice.Discount, interstate)
	totals = gst.RoundTotals(totals)

	for i, res := range results {
		items[i].Amount = gst.Round(res.Amount)
		items[i].TaxAmount = gst.Round(res.TaxAmount)
	}

	invoice.Subtotal = totals.Subtotal
	invoice.CGST = totals.CGST
	invoice.SGST = totals.SGST
	invoice.IGST = totals.IGST
	invoice.TotalTax = totals.TotalTax
	invoice.Discount = totals.Discount
	invoice.TotalAmount = totals.TotalAmount
}

// deductStock removes each item's quantity from its product. With the
// negative-stock guard enabled a failed deduction aborts the transaction.
func (s *invoiceService) deductStock(ctx context.Context, productRepo repositories.ProductRepository, items []*models.InvoiceItem) error {
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		if s.cfg.AllowNegativeStock {
			if err := productRepo.AdjustStock(ctx, *item.ProductID, item.Quantity.Neg()); err != nil {
				return err
			}
			continue
		}
		ok, err := productRepo.TryAdjustStock(ctx, *item.ProductID, item.Quantity.Neg())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("product %s: %w", item.ProductID, common.ErrInsufficientStock)
		}
	}
	return nil
}

// restoreStock adds each item's quantity back to its product.
func (s *invoiceService) restoreStock(ctx context.Context, productRepo repositories.ProductRepository, items []*models.InvoiceItem) error {
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		if err := productRepo.AdjustStock(ctx, *item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *invoiceService) CreateInvoice(ctx context.Context, invoice *models.Invoice, items []*models.InvoiceItem) error {
	if err := s.validateInvoiceInput(invoice, items); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create invoice: %w", err)
	}
	defer tx.Rollback(ctx)

	invoiceRepo := s.invoiceRepo.WithTx(tx)
	customerRepo := s.customerRepo.WithTx(tx)
	productRepo := s.productRepo.WithTx(tx)

	customer, err := customerRepo.GetByID(ctx, invoice.CustomerID)
	if err != nil {
		if repositories.IsNoRows(err) {
			return common.NotFoundError("customer")
		}
		return fmt.Errorf("load customer: %w", err)
	}

	s.applyTotals(invoice, items, customer.State)

	number, err := invoiceRepo.NextInvoiceNumber(ctx, s.cfg.InvoicePrefix, s.cfg.InvoiceStartNumber)
	if err != nil {
		return err
	}

	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	invoice.InvoiceNumber = number
	invoice.Status = models.InvoiceStatusDraft
	invoice.PaidAmount = decimal.Zero
	if invoice.DueDate.IsZero() {
		invoice.DueDate = invoice.InvoiceDate.AddDate(0, 0, s.cfg.DueDays)
	}

	if err := invoiceRepo.Create(ctx, invoice); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
	}
	if err := invoiceRepo.InsertItems(ctx, invoice.ID, items); err != nil {
		return fmt.Errorf("insert invoice items: %w", err)
	}

	if err := s.deductStock(ctx, productRepo, items); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create invoice: %w", err)
	}

	invoice.Items = items
	s.publisher.Publish(ctx, events.Event{Type: events.InvoiceCreated, InvoiceID: invoice.ID})
	return nil
}

func (s *invoiceService) GetInvoiceByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNoRows(err) {
			return nil, common.NotFoundError("invoice")
		}
		return nil, fmt.Errorf("load invoice: %w", err)
	}

	items, err := s.invoiceRepo.ListItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load invoice items: %w", err)
	}
	invoice.Items = items
	return invoice, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *models.InvoiceFilter) (*models.InvoiceList, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 || filter.PerPage > 100 {
		filter.PerPage = 20
	}

	invoices, total, err := s.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	pages := (total + filter.PerPage - 1) / filter.PerPage
	return &models.InvoiceList{Invoices: invoices, Total: total, Pages: pages}, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, invoice *models.Invoice, items []*models.InvoiceItem) error {
	if err := s.validateInvoiceInput(invoice, items); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update invoice: %w", err)
	}
	defer tx.Rollback(ctx)

	invoiceRepo := s.invoiceRepo.WithTx(tx)
	customerRepo := s.customerRepo.WithTx(tx)
	productRepo := s.productRepo.WithTx(tx)

	existing, err := invoiceRepo.GetByID(ctx, invoice.ID)
	if err != nil {
		if repositories.IsNoRows(err) {
			return common.NotFoundError("invoice")
		}
		return fmt.Errorf("load invoice: %w", err)
	}

	customer, err := customerRepo.GetByID(ctx, invoice.CustomerID)
	if err != nil {
		if repositories.IsNoRows(err) {
			return common.NotFoundError("customer")
		}
		return fmt.Errorf("load customer: %w", err)
	}

	// Give back what the old items took before the new items take theirs.
	existingItems, err := invoiceRepo.ListItems(ctx, invoice.ID)
	if err != nil {
		return fmt.Errorf("load existing items: %w", err)
	}
	if err := s.restoreStock(ctx, productRepo, existingItems); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	if err := invoiceRepo.DeleteItems(ctx, invoice.ID); err != nil {
		return fmt.Errorf("delete existing items: %w", err)
	}

	s.applyTotals(invoice, items, customer.State)
	invoice.InvoiceNumber = existing.InvoiceNumber

	if err := invoiceRepo.Update(ctx, invoice); err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}

	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
	}
	if err := invoiceRepo.InsertItems(ctx, invoice.ID, items); err != nil {
		return fmt.Errorf("insert invoice items: %w", err)
	}

	if err := s.deductStock(ctx, productRepo, items); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update invoice: %w", err)
	}

	invoice.Items = items
	s.publisher.Publish(ctx, events.Event{Type: events.InvoiceUpdated, InvoiceID: invoice.ID})
	return nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete invoice: %w", err)
	}
	defer tx.Rollback(ctx)

	invoiceRepo := s.invoiceRepo.WithTx(tx)
	productRepo := s.productRepo.WithTx(tx)
	paymentRepo := s.paymentRepo.WithTx(tx)

	if _, err := invoiceRepo.GetByID(ctx, id); err != nil {
		if repositories.IsNoRows(err) {
			return common.NotFoundError("invoice")
		}
		return fmt.Errorf("load invoice: %w", err)
	}

	items, err := invoiceRepo.ListItems(ctx, id)
	if err != nil {
		return fmt.Errorf("load invoice items: %w", err)
	}
	if err := s.restoreStock(ctx, productRepo, items); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}

	if err := invoiceRepo.DeleteItems(ctx, id); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	if err := paymentRepo.DeleteByInvoiceID(ctx, id); err != nil {
		return fmt.Errorf("delete payments: %w", err)
	}
	if err := invoiceRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete invoice: %w", err)
	}

	s.publisher.Publish(ctx, events.Event{Type: events.InvoiceDeleted, InvoiceID: id})
	return nil
}

// validStatusTransitions is the enforced invoice lifecycle.
var validStatusTransitions = map[string][]string{
	models.InvoiceStatusDraft:     {models.InvoiceStatusPending, models.InvoiceStatusCancelled},
	models.InvoiceStatusPending:   {models.InvoiceStatusPaid, models.InvoiceStatusCompleted, models.InvoiceStatusCancelled},
	models.InvoiceStatusPaid:      {models.InvoiceStatusCompleted},
	models.InvoiceStatusCompleted: {},
	models.InvoiceStatusCancelled: {},
}

func isValidStatusTransition(current, next string) bool {
	for _, allowed := range validStatusTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s *invoiceService) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, status string) error {
	if _, known := validStatusTransitions[status]; !known {
		return common.ValidationError("invalid status %q", status)
	}

	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNoRows(err) {
			return common.NotFoundError("invoice")
		}
		return fmt.Errorf("load invoice: %w", err)
	}

	if !isValidStatusTransition(invoice.Status, status) {
		return common.ValidationError("cannot transition invoice from %s to %s", invoice.Status, status)
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}

	log.Info().Str("invoice_id", id.String()).Str("status", status).Msg("invoice status changed")
	return nil
}

func (s *invoiceService) RecordPayment(ctx context.Context, payment *models.Payment) error {
	if !payment.Amount.IsPositive() {
		return common.ValidationError("payment amount must be positive")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record payment: %w", err)
	}
	defer tx.Rollback(ctx)

	invoiceRepo := s.invoiceRepo.WithTx(tx)
	paymentRepo := s.paymentRepo.WithTx(tx)

	invoice, err := invoiceRepo.GetByID(ctx, payment.InvoiceID)
	if err != nil {
		if repositories.IsNoRows(err) {
			return common.NotFoundError("invoice")
		}
		return fmt.Errorf("load invoice: %w", err)
	}

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CustomerID = invoice.CustomerID
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now()
	}
	if payment.Status == "" {
		payment.Status = "completed"
	}

	if err := paymentRepo.Create(ctx, payment); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	paid := invoice.PaidAmount.Add(payment.Amount)
	status := invoice.Status
	if paid.GreaterThanOrEqual(invoice.TotalAmount) && isValidStatusTransition(invoice.Status, models.InvoiceStatusPaid) {
		status = models.InvoiceStatusPaid
	}

	if err := invoiceRepo.UpdatePaidAmount(ctx, invoice.ID, paid, status); err != nil {
		return fmt.Errorf("update paid amount: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit record payment: %w", err)
	}
	return nil
}

package delivery

import (
	"context"
	"fmt"
	"time"

	"gstbill/internal/caching"
	"gstbill/internal/common"
	"gstbill/internal/config"
	"gstbill/internal/events"
	"gstbill/internal/models"
	"gstbill/internal/repositories"
	"gstbill/internal/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const documentURLTTL = 24 * time.Hour

// Service renders invoice documents and delivers them. It runs after the
// owning transaction has committed; a rendering or delivery failure never
// rolls back invoice state, it only logs.
type Service struct {
	invoices  services.InvoiceServiceInterface
	customers repositories.CustomerRepository
	store     DocumentStore
	mailer    *Mailer
	cache     caching.CacheService
	cfg       *config.Config
}

func NewService(
	invoices services.InvoiceServiceInterface,
	customers repositories.CustomerRepository,
	store DocumentStore,
	mailer *Mailer,
	cache caching.CacheService,
	cfg *config.Config,
) *Service {
	return &Service{
		invoices:  invoices,
		customers: customers,
		store:     store,
		mailer:    mailer,
		cache:     cache,
		cfg:       cfg,
	}
}

// HandleEvent reacts to committed invoice mutations.
func (s *Service) HandleEvent(ctx context.Context, evt events.Event) {
	switch evt.Type {
	case events.InvoiceCreated, events.InvoiceUpdated:
		if _, err := s.RenderAndStore(ctx, evt.InvoiceID); err != nil {
			log.Warn().Err(err).Str("invoice_id", evt.InvoiceID.String()).Msg("invoice document rendering failed")
		}
	case events.InvoiceDeleted:
		if err := s.store.DeleteInvoicePDF(ctx, evt.InvoiceID); err != nil {
			log.Warn().Err(err).Str("invoice_id", evt.InvoiceID.String()).Msg("invoice document removal failed")
		}
		if s.cache != nil {
			_ = s.cache.DeleteInvoiceDocumentURL(ctx, evt.InvoiceID)
		}
	}
}

func (s *Service) loadInvoiceWithCustomer(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, *models.Customer, error) {
	invoice, err := s.invoices.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	customer, err := s.customers.GetByID(ctx, invoice.CustomerID)
	if err != nil {
		return nil, nil, fmt.Errorf("load customer: %w", err)
	}
	return invoice, customer, nil
}

// RenderAndStore renders the invoice PDF, uploads it, and returns a
// presigned download URL.
func (s *Service) RenderAndStore(ctx context.Context, invoiceID uuid.UUID) (string, error) {
	invoice, customer, err := s.loadInvoiceWithCustomer(ctx, invoiceID)
	if err != nil {
		return "", err
	}

	data, err := GenerateInvoicePDF(invoice, customer, s.cfg)
	if err != nil {
		return "", err
	}
	if err := s.store.UploadInvoicePDF(ctx, invoiceID, data); err != nil {
		return "", fmt.Errorf("upload invoice pdf: %w", err)
	}

	url, err := s.store.GetPresignedURL(ctx, invoiceID, documentURLTTL)
	if err != nil {
		return "", fmt.Errorf("presign invoice pdf: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetInvoiceDocumentURL(ctx, invoiceID, url, documentURLTTL); err != nil {
			log.Debug().Err(err).Str("invoice_id", invoiceID.String()).Msg("document url cache set failed")
		}
	}
	return url, nil
}

// DocumentURL returns a download URL for the invoice PDF, rendering it on
// demand when no stored copy exists.
func (s *Service) DocumentURL(ctx context.Context, invoiceID uuid.UUID) (string, error) {
	if s.cache != nil {
		if url, err := s.cache.GetInvoiceDocumentURL(ctx, invoiceID); err == nil && url != "" {
			return url, nil
		}
	}
	return s.RenderAndStore(ctx, invoiceID)
}

// EmailInvoice renders the invoice and mails it to the customer's address.
func (s *Service) EmailInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	invoice, customer, err := s.loadInvoiceWithCustomer(ctx, invoiceID)
	if err != nil {
		return err
	}
	if customer.Email == nil || *customer.Email == "" {
		return common.ValidationError("customer has no email address")
	}

	data, err := GenerateInvoicePDF(invoice, customer, s.cfg)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Invoice %s from %s", invoice.InvoiceNumber, s.cfg.CompanyName)
	body := fmt.Sprintf(
		"Dear %s,\n\nPlease find attached invoice %s for %s%s, due on %s.\n\nRegards,\n%s",
		customer.CompanyName,
		invoice.InvoiceNumber,
		s.cfg.CurrencySymbol,
		invoice.TotalAmount.StringFixed(2),
		invoice.DueDate.Format("02 Jan 2006"),
		s.cfg.CompanyName,
	)
	filename := fmt.Sprintf("%s.pdf", invoice.InvoiceNumber)

	if err := s.mailer.SendInvoice(*customer.Email, subject, body, filename, data); err != nil {
		return fmt.Errorf("send invoice email: %w", err)
	}
	log.Info().Str("invoice_id", invoiceID.String()).Str("to", *customer.Email).Msg("invoice emailed")
	return nil
}

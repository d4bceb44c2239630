package handlers

import (
	"net/http"
	"strconv"
	"time"

	"gstbill/internal/common"
	"gstbill/internal/delivery"
	"gstbill/internal/models"
	"gstbill/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// InvoiceHandlers handles HTTP requests for invoices
type InvoiceHandlers struct {
	invoiceService services.InvoiceServiceInterface
	deliverySvc    *delivery.Service
}

func NewInvoiceHandlers(invoiceService services.InvoiceServiceInterface, deliverySvc *delivery.Service) *InvoiceHandlers {
	return &InvoiceHandlers{
		invoiceService: invoiceService,
		deliverySvc:    deliverySvc,
	}
}

type invoiceItemRequest struct {
	ProductID   *string         `json:"product_id"`
	Description string          `json:"description" validate:"required"`
	HSNCode     *string         `json:"hsn_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	Rate        decimal.Decimal `json:"rate"`
	Discount    decimal.Decimal `json:"discount"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

type invoiceRequest struct {
	CustomerID  string               `json:"customer_id" validate:"required"`
	InvoiceDate *time.Time           `json:"invoice_date"`
	DueDate     *time.Time           `json:"due_date"`
	Discount    decimal.Decimal      `json:"discount"`
	Notes       *string              `json:"notes"`
	Terms       *string              `json:"terms"`
	Items       []invoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r *invoiceRequest) toModel() (*models.Invoice, []*models.InvoiceItem, error) {
	customerID, err := common.ValidateUUID(r.CustomerID, "customer_id")
	if err != nil {
		return nil, nil, err
	}

	invoice := &models.Invoice{
		CustomerID: customerID,
		Discount:   r.Discount,
		Notes:      r.Notes,
		Terms:      r.Terms,
	}
	if r.InvoiceDate != nil {
		invoice.InvoiceDate = *r.InvoiceDate
	} else {
		invoice.InvoiceDate = time.Now()
	}
	if r.DueDate != nil {
		invoice.DueDate = *r.DueDate
	}

	items := make([]*models.InvoiceItem, len(r.Items))
	for i, it := range r.Items {
		item := &models.InvoiceItem{
			Description: it.Description,
			HSNCode:     it.HSNCode,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			Rate:        it.Rate,
			Discount:    it.Discount,
			TaxRate:     it.TaxRate,
		}
		if it.ProductID != nil && *it.ProductID != "" {
			productID, err := common.ValidateUUID(*it.ProductID, "product_id")
			if err != nil {
				return nil, nil, err
			}
			item.ProductID = &productID
		}
		items[i] = item
	}
	return invoice, items, nil
}

// CreateInvoice handles POST /invoices
func (h *InvoiceHandlers) CreateInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	var req invoiceRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, items, err := req.toModel()
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	if userID, ok := common.GetUserIDFromContext(ctx); ok {
		invoice.CreatedBy = userID
	}

	if err := h.invoiceService.CreateInvoice(ctx, invoice, items); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, invoice)
}

// GetInvoice handles GET /invoices/:id
func (h *InvoiceHandlers) GetInvoice(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceService.GetInvoiceByID(c.Request().Context(), id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// ListInvoices handles GET /invoices
func (h *InvoiceHandlers) ListInvoices(c echo.Context) error {
	filter := &models.InvoiceFilter{
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
	}
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		filter.Page = page
	}
	if perPage, err := strconv.Atoi(c.QueryParam("per_page")); err == nil {
		filter.PerPage = perPage
	}
	if customerID := c.QueryParam("customer_id"); customerID != "" {
		id, err := common.ValidateUUID(customerID, "customer_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter.CustomerID = &id
	}
	if from := c.QueryParam("date_from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return common.SendClientError(c, "date_from must be YYYY-MM-DD")
		}
		filter.DateFrom = &t
	}
	if to := c.QueryParam("date_to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return common.SendClientError(c, "date_to must be YYYY-MM-DD")
		}
		filter.DateTo = &t
	}

	list, err := h.invoiceService.ListInvoices(c.Request().Context(), filter)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// UpdateInvoice handles PUT /invoices/:id
func (h *InvoiceHandlers) UpdateInvoice(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req invoiceRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, items, err := req.toModel()
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	invoice.ID = id

	if err := h.invoiceService.UpdateInvoice(c.Request().Context(), invoice, items); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// DeleteInvoice handles DELETE /invoices/:id
func (h *InvoiceHandlers) DeleteInvoice(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.invoiceService.DeleteInvoice(c.Request().Context(), id); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateInvoiceStatus handles PATCH /invoices/:id/status
func (h *InvoiceHandlers) UpdateInvoiceStatus(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.invoiceService.UpdateInvoiceStatus(c.Request().Context(), id, req.Status); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"id": id.String(), "status": req.Status})
}

// RecordPayment handles POST /invoices/:id/payments
func (h *InvoiceHandlers) RecordPayment(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		Amount        decimal.Decimal `json:"amount"`
		PaymentMethod string          `json:"payment_method" validate:"required"`
		TransactionID *string         `json:"transaction_id"`
		PaymentDate   *time.Time      `json:"payment_date"`
		Notes         *string         `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return common.SendClientError(c, err.Error())
	}

	payment := &models.Payment{
		InvoiceID:     id,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
		Notes:         req.Notes,
	}
	if req.PaymentDate != nil {
		payment.PaymentDate = *req.PaymentDate
	}

	if err := h.invoiceService.RecordPayment(c.Request().Context(), payment); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, payment)
}

// SendInvoice handles POST /invoices/:id/send
func (h *InvoiceHandlers) SendInvoice(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.deliverySvc.EmailInvoice(c.Request().Context(), id); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "sent"})
}

// GetInvoiceDocument handles GET /invoices/:id/document
func (h *InvoiceHandlers) GetInvoiceDocument(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	url, err := h.deliverySvc.DocumentURL(c.Request().Context(), id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

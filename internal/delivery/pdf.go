package delivery

import (
	"bytes"
	"fmt"

	"gstbill/internal/config"
	"gstbill/internal/models"

	"github.com/go-pdf/fpdf"
)

// GenerateInvoicePDF renders a GST tax invoice as an A4 PDF. Amounts are
// printed without the currency symbol; core PDF fonts cannot encode the
// rupee sign, so the header carries the currency instead.
func GenerateInvoicePDF(invoice *models.Invoice, customer *models.Customer, cfg *config.Config) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// Header
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, cfg.CompanyName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if cfg.CompanyGSTIN != "" {
		pdf.CellFormat(contentW, 5, "GSTIN: "+cfg.CompanyGSTIN, "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(contentW, 5, "TAX INVOICE (amounts in INR)", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Invoice and customer block
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW/2, 6, "Invoice "+invoice.InvoiceNumber, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW/2, 6, "Date: "+invoice.InvoiceDate.Format("02/01/2006"), "", 1, "R", false, 0, "")
	pdf.CellFormat(contentW/2, 5, "Status: "+invoice.Status, "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 5, "Due: "+invoice.DueDate.Format("02/01/2006"), "", 1, "R", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW, 5, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, customer.CompanyName, "", 1, "L", false, 0, "")
	if customer.GSTIN != nil {
		pdf.CellFormat(contentW, 5, "GSTIN: "+*customer.GSTIN, "", 1, "L", false, 0, "")
	}
	if customer.Address != nil {
		pdf.CellFormat(contentW, 5, *customer.Address, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(contentW, 5, customer.State, "", 1, "L", false, 0, "")
	pdf.Ln(3)

	// Items table
	colDesc := contentW * 0.34
	colHSN := contentW * 0.11
	colQty := contentW * 0.09
	colRate := contentW * 0.12
	colTax := contentW * 0.10
	colAmt := contentW * 0.24

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(colDesc, 6, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colHSN, 6, "HSN", "B", 0, "C", false, 0, "")
	pdf.CellFormat(colQty, 6, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(colRate, 6, "Rate", "B", 0, "R", false, 0, "")
	pdf.CellFormat(colTax, 6, "Tax %", "B", 0, "R", false, 0, "")
	pdf.CellFormat(colAmt, 6, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, item := range invoice.Items {
		desc := item.Description
		if len(desc) > 40 {
			desc = desc[:39] + "..."
		}
		hsn := ""
		if item.HSNCode != nil {
			hsn = *item.HSNCode
		}
		pdf.CellFormat(colDesc, 6, desc, "", 0, "L", false, 0, "")
		pdf.CellFormat(colHSN, 6, hsn, "", 0, "C", false, 0, "")
		pdf.CellFormat(colQty, 6, item.Quantity.String(), "", 0, "C", false, 0, "")
		pdf.CellFormat(colRate, 6, item.Rate.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(colTax, 6, item.TaxRate.StringFixed(0), "", 0, "R", false, 0, "")
		pdf.CellFormat(colAmt, 6, item.Amount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// Totals with the tax split
	labelW := contentW - colAmt
	totalsRow := func(label, value string, bold bool) {
		if bold {
			pdf.SetFont("Helvetica", "B", 9)
		} else {
			pdf.SetFont("Helvetica", "", 9)
		}
		pdf.CellFormat(labelW, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(colAmt, 6, value, "", 1, "R", false, 0, "")
	}

	totalsRow("Subtotal", invoice.Subtotal.StringFixed(2), false)
	if !invoice.Discount.IsZero() {
		totalsRow("Discount", "-"+invoice.Discount.StringFixed(2), false)
	}
	if invoice.IGST.IsZero() {
		totalsRow("CGST", invoice.CGST.StringFixed(2), false)
		totalsRow("SGST", invoice.SGST.StringFixed(2), false)
	} else {
		totalsRow("IGST", invoice.IGST.StringFixed(2), false)
	}
	totalsRow("TOTAL", invoice.TotalAmount.StringFixed(2), true)
	if !invoice.PaidAmount.IsZero() {
		totalsRow("Paid", invoice.PaidAmount.StringFixed(2), false)
		totalsRow("Balance Due", invoice.TotalAmount.Sub(invoice.PaidAmount).StringFixed(2), false)
	}

	// Notes and terms
	if invoice.Notes != nil && *invoice.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(contentW, 5, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.MultiCell(contentW, 4, *invoice.Notes, "", "L", false)
	}
	if invoice.Terms != nil && *invoice.Terms != "" {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(contentW, 5, "Terms", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.MultiCell(contentW, 4, *invoice.Terms, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

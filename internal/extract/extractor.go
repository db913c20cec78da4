package extract

import (
	"fmt"
	"log/slog"
	"time"
)

// Extractor turns raw document text into an ExtractedDocument. It holds no
// per-document state and is safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used to report field failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the clock used for the default date.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExtractor returns an Extractor with the given options applied.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs every field extractor against text and assembles the record.
// It never fails: a field whose extraction panics is logged and defaulted.
func (e *Extractor) Extract(text string) ExtractedDocument {
	today := e.now().Format(DateLayout)

	doc := ExtractedDocument{
		SupplierName:        field(e, "supplier_name", "", func() string { return extractSupplierName(text) }),
		SupplierAddress:     field(e, "supplier_address", "", func() string { return extractSupplierAddress(text) }),
		SupplierEmail:       field(e, "supplier_email", "", func() string { return extractSupplierEmail(text) }),
		SupplierBankDetails: field(e, "supplier_bank_details", "", func() string { return extractBankDetails(text) }),

		BuyerName:    field(e, "buyer_name", "", func() string { return extractBuyerName(text) }),
		BuyerAddress: field(e, "buyer_address", "", func() string { return extractBuyerAddress(text) }),

		DocumentTitle:       field(e, "document_title", DefaultTitle, func() string { return extractDocumentTitle(text) }),
		InvoiceNumber:       field(e, "invoice_number", "", func() string { return extractInvoiceNumber(text) }),
		Date:                field(e, "date", today, func() string { return extractDate(text, e.now()) }),
		WorkOrderNumber:     field(e, "work_order_number", "", func() string { return extractWorkOrder(text) }),
		PurchaseOrderNumber: field(e, "purchase_order_number", "", func() string { return extractPurchaseOrder(text) }),

		NEPCSCompanyName: field(e, "nepcs_company_name", "", func() string { return extractNEPCSCompany(text) }),
		NEPCSAddress:     field(e, "nepcs_address", "", func() string { return extractNEPCSAddress(text) }),
		ProjectName:      field(e, "project_name", "", func() string { return extractProjectName(text) }),

		Items:       field(e, "items", []LineItem{}, func() []LineItem { return extractItems(text) }),
		Subtotal:    field(e, "subtotal", 0.0, func() float64 { return extractSubtotal(text) }),
		TaxAmount:   field(e, "tax_amount", 0.0, func() float64 { return extractTax(text) }),
		VATAmount:   field(e, "vat_amount", 0.0, func() float64 { return extractVAT(text) }),
		TotalAmount: field(e, "total_amount", 0.0, func() float64 { return extractTotal(text) }),
		Currency:    field(e, "currency", DefaultCurrency, func() string { return extractCurrency(text) }),
	}
	doc.Confidence = Score(doc)
	return doc
}

// Extract runs a default Extractor over text.
func Extract(text string) ExtractedDocument {
	return NewExtractor().Extract(text)
}

// field runs fn and substitutes def if it panics.
func field[T any](e *Extractor, name string, def T, fn func() T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("extract.field.failed",
				"field", name,
				"error", fmt.Sprint(r),
			)
			out = def
		}
	}()
	return fn()
}

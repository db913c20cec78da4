package extract

// LineItem is one row of a document's itemized charge table.
type LineItem struct {
	SlNo      int     `json:"sl_no"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Amount    float64 `json:"amount"` // printed amount, not recomputed
}

// ExtractedDocument is the structured record produced from one document text.
// Absent values are represented by defaults, never by nil.
type ExtractedDocument struct {
	// Supplier
	SupplierName        string `json:"supplier_name"`
	SupplierAddress     string `json:"supplier_address"`
	SupplierEmail       string `json:"supplier_email"`
	SupplierBankDetails string `json:"supplier_bank_details"`

	// Buyer
	BuyerName    string `json:"buyer_name"`
	BuyerAddress string `json:"buyer_address"`

	// Document identity
	DocumentTitle       string `json:"document_title"`
	InvoiceNumber       string `json:"invoice_number"`
	Date                string `json:"date"` // dd-mm-yyyy
	WorkOrderNumber     string `json:"work_order_number"`
	PurchaseOrderNumber string `json:"purchase_order_number"`

	// Secondary party
	NEPCSCompanyName string `json:"nepcs_company_name"`
	NEPCSAddress     string `json:"nepcs_address"`
	ProjectName      string `json:"project_name"`

	// Financials
	Items       []LineItem `json:"items"`
	Subtotal    float64    `json:"subtotal"`
	TaxAmount   float64    `json:"tax_amount"`
	VATAmount   float64    `json:"vat_amount"`
	TotalAmount float64    `json:"total_amount"`
	Currency    string     `json:"currency"`

	Confidence Confidence `json:"confidence"`
}

const (
	DefaultCurrency = "USD"
	DefaultTitle    = "Invoice"
	DateLayout      = "02-01-2006"
)

package extract

// Confidence maps a field name to a fixed display score. The values are a lookup
// on "did this field produce a value", not a statistical estimate.
type Confidence map[string]int

// Scored field keys.
const (
	FieldSupplierName    = "supplier_name"
	FieldSupplierAddress = "supplier_address"
	FieldInvoiceNumber   = "invoice_number"
	FieldDate            = "date"
	FieldTotal           = "total"
	FieldItems           = "items"
)

const (
	scoreSupplierName    = 90
	scoreSupplierAddress = 85
	scoreInvoiceNumber   = 90
	scoreDate            = 95
	scoreTotal           = 95
	scoreItems           = 80
)

// Score returns the confidence table for doc. Every scored key is present.
// The date field always carries a value (today when nothing matched), so its
// score is always scoreDate.
func Score(doc ExtractedDocument) Confidence {
	return Confidence{
		FieldSupplierName:    gate(doc.SupplierName != "", scoreSupplierName),
		FieldSupplierAddress: gate(doc.SupplierAddress != "", scoreSupplierAddress),
		FieldInvoiceNumber:   gate(doc.InvoiceNumber != "", scoreInvoiceNumber),
		FieldDate:            gate(doc.Date != "", scoreDate),
		FieldTotal:           gate(doc.TotalAmount > 0, scoreTotal),
		FieldItems:           gate(len(doc.Items) > 0, scoreItems),
	}
}

func gate(present bool, score int) int {
	if present {
		return score
	}
	return 0
}

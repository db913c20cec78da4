package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extract/internal/extract"
)

// BuildDocumentJSONSchema returns the JSON-Schema (draft 2020-12 subset) of an
// extracted document as a generic map.
func BuildDocumentJSONSchema() map[string]any {
	str := func() map[string]any { return map[string]any{"type": "string"} }
	money := func() map[string]any { return map[string]any{"type": "number", "minimum": 0} }
	score := map[string]any{"type": "integer", "minimum": 0, "maximum": 100}

	props := map[string]any{
		"supplier_name":         str(),
		"supplier_address":      str(),
		"supplier_email":        str(),
		"supplier_bank_details": str(),
		"buyer_name":            str(),
		"buyer_address":         str(),
		"document_title":        map[string]any{"type": "string", "minLength": 1},
		"invoice_number":        str(),
		"date":                  map[string]any{"type": "string", "pattern": `^\d{1,4}-\d{1,2}-\d{1,4}$`},
		"work_order_number":     str(),
		"purchase_order_number": str(),
		"nepcs_company_name":    str(),
		"nepcs_address":         str(),
		"project_name":          str(),
		"items": map[string]any{
			"type":  "array",
			"items": lineItemSchema(),
		},
		"subtotal":     money(),
		"tax_amount":   money(),
		"vat_amount":   money(),
		"total_amount": money(),
		"currency":     map[string]any{"type": "string", "minLength": 3, "maxLength": 3},
		"confidence": map[string]any{
			"type": "object",
			"properties": map[string]any{
				extract.FieldSupplierName:    score,
				extract.FieldSupplierAddress: score,
				extract.FieldInvoiceNumber:   score,
				extract.FieldDate:            score,
				extract.FieldTotal:           score,
				extract.FieldItems:           score,
			},
			"required": []string{
				extract.FieldSupplierName,
				extract.FieldSupplierAddress,
				extract.FieldInvoiceNumber,
				extract.FieldDate,
				extract.FieldTotal,
				extract.FieldItems,
			},
			"additionalProperties": false,
		},
	}

	required := make([]string, 0, len(props))
	for k := range props {
		required = append(required, k)
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func lineItemSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"sl_no":      map[string]any{"type": "integer", "minimum": 0},
			"name":       map[string]any{"type": "string", "minLength": 1},
			"quantity":   map[string]any{"type": "integer", "minimum": 0},
			"unit_price": map[string]any{"type": "number", "minimum": 0},
			"amount":     map[string]any{"type": "number", "minimum": 0},
		},
		"required": []string{"sl_no", "name", "quantity", "unit_price", "amount"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compile(schemaMap)
	if err != nil {
		return err
	}
	return validate(schema, data)
}

func compile(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validate(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

var documentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compile(BuildDocumentJSONSchema())
})

// ValidateDocument checks an extracted document against the document schema.
// The compiled schema is cached after first use.
func ValidateDocument(doc extract.ExtractedDocument) error {
	schema, err := documentSchema()
	if err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return validate(schema, b)
}

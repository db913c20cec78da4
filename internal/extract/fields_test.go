package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBankDetails(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "label line with following number",
			text: "Bank Details : A/C Name: EQMS Consulting Limited\nA/C Number: 0201220001299\n",
			want: "A/C Name: EQMS Consulting Limited | A/C Number: 0201220001299",
		},
		{
			name: "single line with inline keys",
			text: "Bank Details: A/C Name: EQMS Consulting Limited A/C Number: 0201220001299 Routing Number: 090261725",
			want: "A/C Name: EQMS Consulting Limited | A/C Number: 0201220001299 | Routing Number: 090261725",
		},
		{
			name: "stops at blank line",
			text: "Bank Details:\nA/C Name: Northwind Ltd\n\nA/C Number: 12345\n",
			want: "A/C Name: Northwind Ltd",
		},
		{
			name: "stops at heading",
			text: "Bank Details:\nA/C Number: 777-100\n## Terms\nRouting Number: 999\n",
			want: "A/C Number: 777-100",
		},
		{
			name: "no label",
			text: "A/C Name: Somebody\nA/C Number: 12345\n",
			want: "",
		},
		{
			name: "label without recognised parts",
			text: "Bank Details: pay in cash\n",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractBankDetails(tt.text))
		})
	}
}

func TestExtractItems(t *testing.T) {
	t.Run("whitespace rows", func(t *testing.T) {
		text := "1 Site Survey 2 1500 3000\n2 Report Writing 1 2,000.50 2,000.50\n"
		items := extractItems(text)
		require.Len(t, items, 2)
		assert.Equal(t, LineItem{SlNo: 1, Name: "Site Survey", Quantity: 2, UnitPrice: 1500, Amount: 3000}, items[0])
		assert.Equal(t, 2000.5, items[1].UnitPrice)
	})

	t.Run("html rows", func(t *testing.T) {
		text := "<table><tr><td>1</td><td>Calibration</td><td>3</td><td>250.00</td><td>750.00</td></tr></table>"
		items := extractItems(text)
		require.Len(t, items, 1)
		assert.Equal(t, "Calibration", items[0].Name)
		assert.Equal(t, 750.0, items[0].Amount)
	})

	t.Run("pipe rows win over other layouts", func(t *testing.T) {
		text := "| 1 | Calibration | 3 | 250 | 750 |\n2 Site Survey 2 1500 3000\n"
		items := extractItems(text)
		require.Len(t, items, 1)
		assert.Equal(t, "Calibration", items[0].Name)
	})

	t.Run("summary rows dropped", func(t *testing.T) {
		text := "| 1 | Calibration | 3 | 250 | 750 |\n" +
			"| 2 | Subtotal | 1 | 750 | 750 |\n" +
			"| 3 | VAT Charge | 1 | 75 | 75 |\n" +
			"| 4 | Grand Sum | 1 | 825 | 825 |\n" +
			"| 5 | Item Name | 1 | 1 | 1 |\n"
		items := extractItems(text)
		require.Len(t, items, 1)
		assert.Equal(t, 1, items[0].SlNo)
	})

	t.Run("printed amount kept", func(t *testing.T) {
		items := extractItems("| 1 | Calibration | 3 | 250 | 700 |\n")
		require.Len(t, items, 1)
		assert.Equal(t, 700.0, items[0].Amount)
	})

	t.Run("none", func(t *testing.T) {
		items := extractItems("no table here")
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})
}

func TestExtractDate(t *testing.T) {
	now := time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		text string
		want string
	}{
		{"Date: 2024-03-15", "15-03-2024"},
		{"Invoice Date: 15/03/2024", "15-03-2024"},
		{"Dated 03/15/2024", "03-15-2024"},
		{"issued 2024/1/5 at noon", "5-1-2024"},
		{"shipped 7-8-2025", "7-8-2025"},
		{"no date at all", "14-10-2026"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, extractDate(tt.text, now))
		})
	}
}

func TestExtractInvoiceNumber(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Invoice No: EQMS-2024-118", "EQMS-2024-118"},
		{"Bill # 5521", "5521"},
		{"#INVOICE\nRef #A-1002", "A-1002"},
		{"ref INV-7781", "7781"},
		{"Invoice Notes: pay soon", ""},
		{"Invoice Number: ABCDEF", "ABCDEF"},
		{"Invoice No. 2024/7", "2024"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, extractInvoiceNumber(tt.text))
		})
	}
}

func TestExtractDocumentTitle(t *testing.T) {
	assert.Equal(t, "Receipt", extractDocumentTitle("## RECEIPT\nthanks"))
	assert.Equal(t, "Bill", extractDocumentTitle("Your bill for March"))
	assert.Equal(t, DefaultTitle, extractDocumentTitle("quotation"))
}

func TestExtractCurrency(t *testing.T) {
	assert.Equal(t, "EUR", extractCurrency("Total € 120,00"))
	assert.Equal(t, "USD", extractCurrency("$5 or €5"))
	assert.Equal(t, "GBP", extractCurrency("£40.00"))
	assert.Equal(t, "JPY", extractCurrency("¥4000"))
	assert.Equal(t, "USD", extractCurrency("BDT 4000"))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"1,64,300", 164300, true},
		{"2,000.50", 2000.5, true},
		{"500.", 500, true},
		{"0", 0, true},
		{",", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseAmount(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSupplierAndBuyer_CompanyNameDisambiguation(t *testing.T) {
	t.Run("without bill-to marker", func(t *testing.T) {
		text := "Company Name: EQMS Consulting Limited\nAddress: House 12, Road 5, Dhaka\n\n" +
			"Company Name: Northwind Traders Ltd\nAddress: 40 Harbour Street, Chittagong\n"
		assert.Equal(t, "EQMS Consulting Limited", extractSupplierName(text))
		assert.Equal(t, "Northwind Traders Ltd", extractBuyerName(text))
		assert.Equal(t, "40 Harbour Street, Chittagong", extractBuyerAddress(text))
	})

	t.Run("single company name is supplier only", func(t *testing.T) {
		text := "Company Name: EQMS Consulting Limited\n"
		assert.Equal(t, "EQMS Consulting Limited", extractSupplierName(text))
		assert.Equal(t, "", extractBuyerName(text))
	})
}

func TestExtractBuyerName(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Billed To: Contoso Pharma", "Contoso Pharma"},
		{"Invoice To:\nAcme Corp\n", "Acme Corp"},
		{"Customer Name: Globex", "Globex"},
		{"To: 12/05", ""},
		{"Client: AB", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, extractBuyerName(tt.text))
		})
	}
}

func TestExtractSupplierName_LineFallback(t *testing.T) {
	assert.Equal(t, "ACME TRADING LTD", extractSupplierName("** ACME TRADING LTD\nquote follows"))
	assert.Equal(t, "", extractSupplierName("short\nlines\nonly"))
	assert.Equal(t, "", extractSupplierName("12345678 Inc\nshort"))
	assert.Equal(t, "Northwind Traders Inc", extractSupplierName("12345678 Inc\nNorthwind Traders Inc"))
}

func TestExtractOrders(t *testing.T) {
	assert.Equal(t, "WO-5521", extractWorkOrder("Work Order No: WO-5521"))
	assert.Equal(t, "8830", extractPurchaseOrder("ref PO#8830"))
	assert.Equal(t, "", extractPurchaseOrder("Please pay by Monday"))
}

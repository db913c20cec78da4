package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	subtotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Sub\s*Total\s*\|\s*([0-9,]+(?:\.[0-9]+)?)`),
		regexp.MustCompile(`(?i)(?:sub\s*total|subtotal)\s*:?\s*\$?([0-9,]+\.?[0-9]*)`),
		regexp.MustCompile(`(?i)\|\s*(?:sub\s*total|subtotal)\s*\|[^|\n]*\|\s*\$?([0-9,]+\.[0-9]{2})\s*\|`),
	}

	taxPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Tax\s*\d+(?:\.\d+)?\s*%\s*\|\s*([0-9,]+(?:\.[0-9]+)?)`),
		regexp.MustCompile(`(?i)\b(?:tax|gst)\s*:?\s*\$?([0-9,]+\.?[0-9]*)`),
		regexp.MustCompile(`(?i)\|\s*(?:tax|gst)\s*\|[^|\n]*\|\s*\$?([0-9,]+\.[0-9]{2})\s*\|`),
	}

	vatPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Vat\s*\d+(?:\.\d+)?\s*%\s*\|\s*([0-9,]+(?:\.[0-9]+)?)`),
		regexp.MustCompile(`(?i)\b(?:vat|value\s*added\s*tax)\s*:?\s*\$?([0-9,]+\.?[0-9]*)`),
		regexp.MustCompile(`(?i)\|\s*(?:vat|value\s*added\s*tax)\s*\|[^|\n]*\|\s*\$?([0-9,]+\.[0-9]{2})\s*\|`),
	}

	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Gross\s*Grand\s*Total\s*\|\s*([0-9,]+(?:\.[0-9]+)?)`),
		regexp.MustCompile(`(?i)(?:grand\s*total|total)\s*\|\s*([0-9,]+(?:\.[0-9]+)?)`),
		regexp.MustCompile(`(?i)\|\s*total\s*\|[^|\n]*\|\s*\$?([0-9,]+\.?[0-9]*)\s*\|`),
		regexp.MustCompile(`(?is)<td[^>]*>\s*total\s*</td>.*?<td[^>]*>\s*\$?([0-9,]+\.[0-9]{2})\s*</td>`),
		regexp.MustCompile(`(?i)(?:grand\s*total|total|amount\s*due)\s*:?\s*\$?([0-9,]+\.?[0-9]*)`),
		regexp.MustCompile(`(?is)total.*?\$([0-9,]+\.[0-9]{2})`),
	}

	reCurrencyAmount = regexp.MustCompile(`[$€£¥]\s?([0-9,]+\.[0-9]{2})`)
)

// currencySymbols is checked in order; the first symbol present wins.
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
}

// parseAmount strips thousands separators and parses the rest as a decimal.
// Indian-style grouping ("1,64,300") parses the same as western grouping.
func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// firstAmount returns the value of the first pattern whose capture parses to a
// positive amount. A zero or unparsable capture does not stop the chain.
func firstAmount(text string, patterns []*regexp.Regexp) float64 {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, ok := parseAmount(m[1]); ok && v > 0 {
			return v
		}
	}
	return 0
}

func extractSubtotal(text string) float64 { return firstAmount(text, subtotalPatterns) }

func extractTax(text string) float64 { return firstAmount(text, taxPatterns) }

func extractVAT(text string) float64 { return firstAmount(text, vatPatterns) }

// extractTotal falls back to the largest currency-prefixed amount when no
// labeled total is found.
func extractTotal(text string) float64 {
	if v := firstAmount(text, totalPatterns); v > 0 {
		return v
	}
	var max decimal.Decimal
	for _, m := range reCurrencyAmount.FindAllStringSubmatch(text, -1) {
		d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		if d.GreaterThan(max) {
			max = d
		}
	}
	f, _ := max.Float64()
	return f
}

func extractCurrency(text string) string {
	for _, c := range currencySymbols {
		if strings.Contains(text, c.symbol) {
			return c.code
		}
	}
	return DefaultCurrency
}

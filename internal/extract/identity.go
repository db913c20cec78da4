package extract

import (
	"regexp"
	"strings"
	"time"
)

var (
	titlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^[ \t#*]*(invoice|bill|receipt|statement)\b`),
		regexp.MustCompile(`(?i)\b(invoice|bill|receipt|statement)\b`),
	}

	// needDigit keeps markdown headings like "#INVOICE" from being read as numbers.
	invoiceNumberPatterns = []struct {
		re        *regexp.Regexp
		needDigit bool
	}{
		{regexp.MustCompile(`(?i)(?:invoice|bill)\s*(?:#|no\b\.?|number\b)\s*:?\s*([A-Z0-9][A-Z0-9-]*)`), false},
		{regexp.MustCompile(`(?i)#([A-Z0-9-]{3,20})\b`), true},
		{regexp.MustCompile(`(?i)\bINV[-#]?(\d[0-9A-Z-]*)`), false},
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:date|dated)\s*:?\s*(\d{1,2}[-/]\d{1,2}[-/]\d{4}|\d{4}[-/]\d{1,2}[-/]\d{1,2})`),
		regexp.MustCompile(`\b(\d{1,2}[-/]\d{1,2}[-/]\d{4})\b`),
		regexp.MustCompile(`\b(\d{4}[-/]\d{1,2}[-/]\d{1,2})\b`),
	}
	reDateSep = regexp.MustCompile(`[-/]`)

	workOrderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:work\s*order|wo)\b\s*(?:#|no\.?|number)?\s*:?\s*([A-Z0-9-]*\d[A-Z0-9-]*)`),
		regexp.MustCompile(`(?i)\bWO[-#]?(\d[0-9A-Z-]*)`),
	}

	purchaseOrderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:purchase\s*order|po)\b\s*(?:#|no\.?|number)?\s*:?\s*([A-Z0-9-]*\d[A-Z0-9-]*)`),
		regexp.MustCompile(`(?i)\bPO[-#]?(\d[0-9A-Z-]*)`),
	}
)

// firstCapture returns the trimmed first group of the first matching pattern.
func firstCapture(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

func extractDocumentTitle(text string) string {
	t := firstCapture(text, titlePatterns)
	if t == "" {
		return DefaultTitle
	}
	return strings.ToUpper(t[:1]) + strings.ToLower(t[1:])
}

func extractInvoiceNumber(text string) string {
	for _, p := range invoiceNumberPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			if !p.needDigit || strings.ContainsAny(m[1], "0123456789") {
				return strings.TrimSpace(m[1])
			}
		}
	}
	return ""
}

func extractWorkOrder(text string) string {
	return firstCapture(text, workOrderPatterns)
}

func extractPurchaseOrder(text string) string {
	return firstCapture(text, purchaseOrderPatterns)
}

// normalizeDate rewrites a year-first token as dd-mm-yyyy. Any other token keeps
// its field order, so month-first input is passed through untransposed.
func normalizeDate(token string) string {
	parts := reDateSep.Split(token, -1)
	if len(parts) != 3 {
		return token
	}
	if len(parts[0]) == 4 {
		return parts[2] + "-" + parts[1] + "-" + parts[0]
	}
	return parts[0] + "-" + parts[1] + "-" + parts[2]
}

// extractDate falls back to today when the text carries no date-shaped token.
func extractDate(text string, now time.Time) string {
	if tok := firstCapture(text, datePatterns); tok != "" {
		return normalizeDate(tok)
	}
	return now.Format(DateLayout)
}

package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Item row layouts, tried in order. Only the first layout that matches at least
// one row is used.
var itemPatterns = []*regexp.Regexp{
	// | 1 | Noise Level Monitoring | 6 | 3,500 | 21,000 |
	regexp.MustCompile(`\|[ \t]*(\d+)[ \t]*\|[ \t]*([^|\n]+?)[ \t]*\|[ \t]*(\d+)[ \t]*\|[ \t]*([\d,]+(?:\.\d+)?)[ \t]*\|[ \t]*([\d,]+(?:\.\d+)?)[ \t]*\|`),
	// 1  Noise Level Monitoring  6  3,500  21,000
	regexp.MustCompile(`(?m)^[ \t]*(\d+)[ \t]+([A-Za-z][^\d\n]*?)[ \t]+(\d+)[ \t]+([\d,]+(?:\.\d+)?)[ \t]+([\d,]+(?:\.\d+)?)[ \t]*$`),
	// <tr><td>1</td><td>Noise Level Monitoring</td>...</tr>
	regexp.MustCompile(`(?i)<tr[^>]*>\s*<td[^>]*>\s*(\d+)\s*</td>\s*<td[^>]*>([^<]+)</td>\s*<td[^>]*>\s*(\d+)\s*</td>\s*<td[^>]*>\s*([\d,]+(?:\.\d+)?)\s*</td>\s*<td[^>]*>\s*([\d,]+(?:\.\d+)?)\s*</td>\s*</tr>`),
}

// summaryRowTerms marks rows that are headers or totals rather than charges.
// Matching is a case-insensitive substring test, so "Subscription" is dropped too.
var summaryRowTerms = []string{"name", "item", "total", "sub", "tax", "vat", "grand"}

func isSummaryRow(name string) bool {
	lower := strings.ToLower(name)
	for _, t := range summaryRowTerms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// extractItems returns rows in the order they appear. The result is never nil.
func extractItems(text string) []LineItem {
	for _, re := range itemPatterns {
		matches := re.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		items := make([]LineItem, 0, len(matches))
		for _, m := range matches {
			if item, ok := parseItemRow(m); ok {
				items = append(items, item)
			}
		}
		return items
	}
	return []LineItem{}
}

func parseItemRow(m []string) (LineItem, bool) {
	name := strings.TrimSpace(m[2])
	if name == "" || isSummaryRow(name) {
		return LineItem{}, false
	}
	slNo, err := strconv.Atoi(m[1])
	if err != nil {
		return LineItem{}, false
	}
	qty, err := strconv.Atoi(m[3])
	if err != nil {
		return LineItem{}, false
	}
	unit, ok := parseAmount(m[4])
	if !ok {
		return LineItem{}, false
	}
	amount, ok := parseAmount(m[5])
	if !ok {
		return LineItem{}, false
	}
	return LineItem{
		SlNo:      slNo,
		Name:      name,
		Quantity:  qty,
		UnitPrice: unit,
		Amount:    amount,
	}, true
}

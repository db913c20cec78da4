package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate   = regexp.MustCompile(`\b\d{1,4}[-/]\d{1,2}[-/]\d{2,4}\b`)
	reCurr   = regexp.MustCompile(`\b(usd|eur|gbp|bdt|inr|jpy)\b|[$£€¥]`)
	reAmount = regexp.MustCompile(`\b\d{1,3}(,\d{2,3})+(\.\d{2})?\b|\b\d+\.\d{2}\b`)
	reLabels = regexp.MustCompile(`\b(invoice|bill to|total|sub ?total|tax|vat)\b`)
)

// HeuristicConfidence scores decoded text by the invoice artifacts it carries
// (date, currency, amount, labels). It describes the text source, not the fields.
func HeuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2)
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reCurr.MatchString(txtL) {
		score += 0.1
	}
	if reAmount.MatchString(txtL) {
		score += 0.15
	}
	if reLabels.MatchString(txtL) {
		score += 0.2
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

package extract

import (
	"regexp"
	"strings"
)

var (
	reBuyerMarker = regexp.MustCompile(`(?i)\b(?:bill(?:ed)?\s*to|invoice\s*to)\b`)

	reCompanyNameLabel  = regexp.MustCompile(`(?i)Company\s*Name\.?\s*:?\s*([^\n]+)`)
	reCompanyLabel      = regexp.MustCompile(`(?i)(?:company|firm|organization)\s*:?\s*([^\n]+)`)
	reLegalEntity       = regexp.MustCompile(`([A-Z][a-zA-Z \t&]+(?:Ltd|Limited|Corp|Inc|Co\.|Company)[^\n]*)`)
	reLeadingNonLetters = regexp.MustCompile(`^[^a-zA-Z]+`)

	legalEntityKeywords = []string{"company", "ltd", "limited", "corp", "inc"}

	supplierAddressPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Address\s*:\s*([^\n]+)`),
		regexp.MustCompile(`(?im)(?:address|addr):\s*([^\n]+(?:\n[^\n]+)*?)(?:\n\n|\nPhone|\nEmail|$)`),
		regexp.MustCompile(`(?i)([^\n]*\d+[^\n]*\b(?:street|st|avenue|ave|road|rd|lane|ln|drive|dr|blvd|boulevard|floor|plot)\b[^\n]*)`),
		regexp.MustCompile(`(?i)([^\n]*\b(?:street|st|avenue|ave|road|rd|lane|ln|drive|dr|blvd|boulevard|floor|plot)\b[^\n]*\d+[^\n]*)`),
		regexp.MustCompile(`([^\n]*\d{5,6}[^\n]*)`),
	}

	emailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:email|e-mail|mail)\s*:?\s*([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		regexp.MustCompile(`(?i)contact\s*:?\s*([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
	}

	buyerNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:bill(?:ed)?\s*to|invoice\s*to|customer|buyer|client)(?:\s*name)?\s*:?\s*([^\n]+)`),
		regexp.MustCompile(`(?i)\b(?:to|for)\s*:\s*([^\n]+)`),
	}
	reNumericOnly = regexp.MustCompile(`^[0-9/-]+$`)
	reNameLabel   = regexp.MustCompile(`(?i)^(?:company\s*)?name\.?\s*:\s*`)
	reAddrLabel   = regexp.MustCompile(`(?i)^(?:address|addr)\.?\s*:?\s*`)

	buyerAddressPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:bill(?:ed)?\s*to|invoice\s*to|customer|buyer|client)\s*:?\s*[^\n]+\n\s*([^\n]+(?:\n[^\n]*){0,3})`),
		regexp.MustCompile(`(?i)\b(?:to|for)\s*:\s*[^\n]+\n\s*([^\n]+(?:\n[^\n]*){0,3})`),
	}
	reCompanyThenAddress = regexp.MustCompile(`(?i)Company\s*Name\.?\s*:?\s*[^\n]+\n\s*Address\s*:?\s*([^\n]+)`)

	nepcsCompanyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(China\s+Northeast\s+Electric\s+Power\s+Engineering\s+&\s+Services\s+Co\.?,?\s*Ltd\.?)`),
		regexp.MustCompile(`(?i)(NEPCS)`),
		regexp.MustCompile(`(?i)(?:bill\s+to|client|customer):\s*([^\n]*(?:NEPCS|Northeast\s+Electric)[^\n]*)`),
	}
	reNEPCSSection  = regexp.MustCompile(`(?i)(?:NEPCS|Northeast\s+Electric)([^\n]*(?:\n[^\n]*){0,5})`)
	reLineWithDigit = regexp.MustCompile(`([^\n]*\d+[^\n]*)`)

	projectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:project|job)\b\s*(?:name|title)?\s*:?\s*([^\n]+)`),
		regexp.MustCompile(`(?i)\b(?:for|regarding)\s*:\s*([^\n]+)`),
	}
)

// cleanValue trims whitespace and stray table pipes from a single-line capture.
func cleanValue(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "|"))
}

// supplierRegion is the part of text that can name the issuing party: everything
// before the first bill-to style marker.
func supplierRegion(text string) string {
	if loc := reBuyerMarker.FindStringIndex(text); loc != nil {
		return text[:loc[0]]
	}
	return text
}

// buyerRegion is the part of text that can name the billed party. Without a
// bill-to marker, a repeated "Company Name" label is read as supplier first,
// buyer last.
func buyerRegion(text string) (string, bool) {
	if loc := reBuyerMarker.FindStringIndex(text); loc != nil {
		return text[loc[0]:], true
	}
	all := reCompanyNameLabel.FindAllStringIndex(text, -1)
	if len(all) >= 2 {
		return text[all[len(all)-1][0]:], true
	}
	return "", false
}

func extractSupplierName(text string) string {
	region := supplierRegion(text)
	for _, c := range []struct {
		re   *regexp.Regexp
		text string
	}{
		{reCompanyNameLabel, region},
		{reCompanyLabel, region},
		{reLegalEntity, text},
	} {
		m := c.re.FindStringSubmatch(c.text)
		if m == nil {
			continue
		}
		name := cleanValue(reLeadingNonLetters.ReplaceAllString(m[1], ""))
		if len(name) > 5 {
			return name
		}
	}

	lines := strings.Split(text, "\n")
	if len(lines) > 8 {
		lines = lines[:8]
	}
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if len(ln) <= 10 {
			continue
		}
		lower := strings.ToLower(ln)
		for _, kw := range legalEntityKeywords {
			if !strings.Contains(lower, kw) {
				continue
			}
			if name := cleanValue(reLeadingNonLetters.ReplaceAllString(ln, "")); len(name) > 5 {
				return name
			}
			break
		}
	}
	return ""
}

func extractSupplierAddress(text string) string {
	for _, re := range supplierAddressPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		addr := cleanValue(strings.ReplaceAll(strings.TrimSpace(m[1]), "\n", ", "))
		if len(addr) > 10 {
			return addr
		}
	}
	return ""
}

func extractSupplierEmail(text string) string {
	for _, re := range emailPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func validBuyerName(name string) bool {
	return len(name) >= 3 && !reNumericOnly.MatchString(name)
}

func extractBuyerName(text string) string {
	for _, re := range buyerNamePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			name := cleanValue(reNameLabel.ReplaceAllString(cleanValue(m[1]), ""))
			if validBuyerName(name) {
				return name
			}
		}
	}
	if region, ok := buyerRegion(text); ok {
		if m := reCompanyNameLabel.FindStringSubmatch(region); m != nil {
			if name := cleanValue(m[1]); validBuyerName(name) {
				return name
			}
		}
	}
	return ""
}

// joinAddressLines keeps lines up to the first blank one.
func joinAddressLines(block string) string {
	var parts []string
	for i, ln := range strings.Split(block, "\n") {
		ln = cleanValue(ln)
		if i == 0 {
			ln = reAddrLabel.ReplaceAllString(ln, "")
		}
		if ln == "" {
			break
		}
		parts = append(parts, ln)
	}
	return strings.Join(parts, ", ")
}

func extractBuyerAddress(text string) string {
	for _, re := range buyerAddressPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if addr := joinAddressLines(m[1]); len(addr) > 10 {
				return addr
			}
		}
	}
	if region, ok := buyerRegion(text); ok {
		if m := reCompanyThenAddress.FindStringSubmatch(region); m != nil {
			if addr := cleanValue(m[1]); len(addr) > 10 {
				return addr
			}
		}
	}
	return ""
}

func extractNEPCSCompany(text string) string {
	for _, re := range nepcsCompanyPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return cleanValue(m[1])
		}
	}
	return ""
}

// extractNEPCSAddress returns the first digit-bearing line near the NEPCS mention.
func extractNEPCSAddress(text string) string {
	sec := reNEPCSSection.FindStringSubmatch(text)
	if sec == nil {
		return ""
	}
	if m := reLineWithDigit.FindStringSubmatch(sec[1]); m != nil {
		return cleanValue(m[1])
	}
	return ""
}

func extractProjectName(text string) string {
	for _, re := range projectPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if name := cleanValue(m[1]); name != "" {
				return name
			}
		}
	}
	return ""
}

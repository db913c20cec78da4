package extract

import (
	"regexp"
	"strings"
)

var (
	reBankLabel      = regexp.MustCompile(`(?i)bank\s*details?\s*:`)
	reSectionBreak   = regexp.MustCompile(`^\s*(?:#{1,6}\s|[A-Z][A-Za-z &/]{2,}:\s*$)`)
	reAccountName    = regexp.MustCompile(`(?i)A/C\s*Name\s*:\s*([^\n|]+)`)
	reAccountNumber  = regexp.MustCompile(`(?i)A/C\s*(?:Number|No\.?)\s*:\s*([A-Z0-9-]+)`)
	reRoutingNumber  = regexp.MustCompile(`(?i)Routing\s*(?:Number|No\.?)\s*:\s*([A-Z0-9-]+)`)
	reBankName       = regexp.MustCompile(`\b((?:[A-Z][A-Za-z&.'-]*[ \t]+)+Bank\b(?:[ \t]+(?:Limited|Ltd\.?|PLC|Plc))?)`)
	reNextInlineKey  = regexp.MustCompile(`(?i)\s+(?:A/C\b|Routing\b|Branch\b|Swift\b)`)
	bankDetailsDelim = " | "
)

// bankSection returns the text following a "Bank Details:" label up to the next
// blank line or heading.
func bankSection(text string) (string, bool) {
	loc := reBankLabel.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	lines := strings.Split(text[loc[1]:], "\n")
	var kept []string
	started := strings.TrimSpace(lines[0]) != ""
	if started {
		kept = append(kept, lines[0])
	}
	for _, ln := range lines[1:] {
		if strings.TrimSpace(ln) == "" {
			if started {
				break
			}
			continue
		}
		if reSectionBreak.MatchString(ln) {
			break
		}
		started = true
		kept = append(kept, ln)
	}
	return strings.Join(kept, "\n"), true
}

// extractBankDetails joins the recognized parts of the bank section in a fixed
// order, omitting parts that are missing.
func extractBankDetails(text string) string {
	section, ok := bankSection(text)
	if !ok {
		return ""
	}

	var parts []string
	if m := reAccountName.FindStringSubmatch(section); m != nil {
		name := m[1]
		if loc := reNextInlineKey.FindStringIndex(name); loc != nil {
			name = name[:loc[0]]
		}
		if name = strings.TrimSpace(name); name != "" {
			parts = append(parts, "A/C Name: "+name)
		}
	}
	if m := reAccountNumber.FindStringSubmatch(section); m != nil {
		parts = append(parts, "A/C Number: "+m[1])
	}
	if m := reBankName.FindStringSubmatch(section); m != nil {
		parts = append(parts, strings.TrimSpace(m[1]))
	}
	if m := reRoutingNumber.FindStringSubmatch(section); m != nil {
		parts = append(parts, "Routing Number: "+m[1])
	}
	return strings.Join(parts, bankDetailsDelim)
}

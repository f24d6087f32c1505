package quality

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/forkful/backoffice/internal/registry"
)

// applyRule computes what one cleanup rule would do to the stored value.
// Rules never compose: every rule works from the stored value, and a rule
// whose output equals its input reports changed=false.
func applyRule(rule registry.CleanupRule, value string) (proposed, reason string, changed bool) {
	switch rule.Kind {
	case registry.CleanupTrim:
		proposed = strings.TrimSpace(value)
		reason = "remove surrounding whitespace"
	case registry.CleanupTitleCase:
		proposed = titleCase(value)
		reason = "title-case the value"
	case registry.CleanupTruncate:
		proposed = truncate(value, rule.MaxLen)
		reason = fmt.Sprintf("shorten to %d characters", rule.MaxLen)
	case registry.CleanupFormatPhone:
		proposed = formatUSPhone(value)
		reason = "format as a US phone number"
	case registry.CleanupEnsureHTTPS:
		proposed = ensureHTTPS(value)
		reason = "serve the link over https"
	case registry.CleanupLowercase:
		proposed = strings.ToLower(value)
		reason = "lowercase the value"
	default:
		return value, "", false
	}
	return proposed, reason, proposed != value
}

// titleCase builds its caser per call: cases.Caser is stateful and the
// analyzer runs concurrently with the sweep.
func titleCase(v string) string {
	return cases.Title(language.English).String(v)
}

// truncate cuts to max runes including the ellipsis, never mid-rune.
func truncate(v string, max int) string {
	if max <= 0 {
		return v
	}
	runes := []rune(v)
	if len(runes) <= max {
		return v
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// formatUSPhone renders ten US digits as (XXX) XXX-XXXX, tolerating a
// leading country 1. Anything else is left alone.
func formatUSPhone(v string) string {
	var digits []rune
	for _, r := range v {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return v
	}
	return fmt.Sprintf("(%s) %s-%s", string(digits[:3]), string(digits[3:6]), string(digits[6:]))
}

// ensureHTTPS upgrades http links and prefixes bare hosts.
func ensureHTTPS(v string) string {
	trimmed := strings.TrimSpace(v)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "https://"):
		return trimmed
	case strings.HasPrefix(lower, "http://"):
		return "https://" + trimmed[len("http://"):]
	default:
		return "https://" + trimmed
	}
}

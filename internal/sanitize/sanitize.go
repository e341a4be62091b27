// Package sanitize filters instruction-override attempts out of user text
// before it is placed into model context.
//
// Matching happens against the NFC-normalized form of the input so combining
// characters cannot be used to slip a pattern past the filter. Text that
// matches no pattern is returned byte-for-byte unchanged. Sanitize is pure
// and side-effect free.
package sanitize

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// Marker replaces each matched span in filtered output.
const Marker = "[filtered]"

// Result is the outcome of sanitizing one piece of text.
type Result struct {
	Clean    string
	Filtered bool
}

// patterns is the fixed list of instruction-override shapes. Every pattern
// anchors at least two tokens: a single bare keyword would produce false
// positives against legitimate business text (a pattern matching just
// "forget" or "disregard" would corrupt a business name containing the word).
var patterns = []*regexp.Regexp{
	// "disregard all/any/previous/..." override attempts.
	regexp.MustCompile(`(?i)\bdisregard\s+(?:all|any|everything|previous|prior|earlier|the\s+above)\b`),
	// "ignore ... instructions/rules/prompts" in any common phrasing.
	regexp.MustCompile(`(?i)\bignore\s+(?:all\s+|any\s+)?(?:your\s+|the\s+|these\s+|previous\s+|prior\s+|earlier\s+|above\s+|my\s+)*(?:instructions?|prompts?|rules?|directives?|guidelines?)\b`),
	// "forget everything / forget all previous ..." context resets.
	regexp.MustCompile(`(?i)\bforget\s+(?:everything|all\s+(?:previous|prior|your)|your\s+(?:instructions?|training|rules?))\b`),
	// Privilege-escalation phrasing.
	regexp.MustCompile(`(?i)\badmin\s+mode\s+(?:on|enabled?|activated?)\b`),
	regexp.MustCompile(`(?i)\byou\s+are\s+now\s+(?:in\s+)?(?:admin|developer|debug|god|jailbreak)\s*mode\b`),
	// Attempts to open a fresh instruction block.
	regexp.MustCompile(`(?i)\bnew\s+instructions?\s*:`),
	regexp.MustCompile(`(?i)\boverride\s+(?:all\s+)?(?:safety|security|previous)\s+(?:protocols?|instructions?|settings?|rules?)\b`),
	// Role markers at line starts and chat-template delimiters.
	regexp.MustCompile(`(?im)^\s*(?:system|assistant)\s*:`),
	regexp.MustCompile(`(?i)<\|?(?:im_start|system|assistant)\|?>`),
}

// Sanitize normalizes text (canonical composition), replaces any matched
// instruction-override span with Marker, and reports whether anything was
// filtered. When nothing matches, the original text is returned unchanged.
func Sanitize(text string) Result {
	normalized := norm.NFC.String(text)

	matched := false
	for _, re := range patterns {
		if re.MatchString(normalized) {
			matched = true
			break
		}
	}
	if !matched {
		return Result{Clean: text}
	}

	clean := normalized
	for _, re := range patterns {
		clean = re.ReplaceAllString(clean, Marker)
	}
	return Result{Clean: clean, Filtered: true}
}

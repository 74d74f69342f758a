package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)
var punctuationRegex = regexp.MustCompile(`[^a-z0-9 ]+`)

// NormalizeHeading lowercases s, strips punctuation and collapses whitespace
// so headings can be compared across markup revisions.
func NormalizeHeading(s string) string {
	s = strings.ToLower(s)
	s = punctuationRegex.ReplaceAllString(s, " ")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.Trim(s, " ")
}

// MatchHeading reports whether heading refers to target, either because it
// contains it or because it is within threshold Jaro-Winkler similarity.
func MatchHeading(heading, target string, threshold float64) bool {
	heading = NormalizeHeading(heading)
	target = NormalizeHeading(target)
	if heading == "" || target == "" {
		return false
	}
	if strings.Contains(heading, target) {
		return true
	}
	return matchr.JaroWinkler(heading, target, false) >= threshold
}

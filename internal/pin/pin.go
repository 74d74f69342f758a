// Package pin implements the Cook County property index number, a 14 digit
// identifier written as XX-XX-XXX-XXX-XXXX.
package pin

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
)

var dashedRegex = regexp.MustCompile(`^\d{2}-\d{2}-\d{3}-\d{3}-\d{4}$`)
var digitsRegex = regexp.MustCompile(`^\d{14}$`)

// group sizes of the dashed form
var groups = [5]int{2, 2, 3, 3, 4}

// PIN is an immutable, validated property index number.
type PIN struct {
	digits string
}

// Parse validates the canonical dashed form exactly, surrounding whitespace
// included.
func Parse(s string) (PIN, error) {
	if !dashedRegex.MatchString(s) {
		return PIN{}, property.Errorf(
			property.CodeInvalidPin, "",
			"invalid PIN '%s', expected format XX-XX-XXX-XXX-XXXX", s,
		)
	}
	return PIN{digits: strings.ReplaceAll(s, "-", "")}, nil
}

// FromDigits accepts 14 bare digits.
func FromDigits(s string) (PIN, error) {
	if !digitsRegex.MatchString(s) {
		return PIN{}, property.Errorf(
			property.CodeInvalidPin, "",
			"invalid PIN '%s', expected 14 digits", s,
		)
	}
	return PIN{digits: s}, nil
}

// ParseLoose accepts either the dashed form or 14 bare digits, ignoring
// surrounding whitespace.
func ParseLoose(s string) (PIN, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "-") {
		return Parse(s)
	}
	return FromDigits(s)
}

// MustParse is Parse that panics, for tests and constants.
func MustParse(s string) PIN {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Digits returns the 14 digits without dashes.
func (p PIN) Digits() string {
	return p.digits
}

// Parts splits the PIN into its 2-2-3-3-4 groups.
func (p PIN) Parts() [5]string {
	var parts [5]string
	if p.IsZero() {
		return parts
	}
	offset := 0
	for i, size := range groups {
		parts[i] = p.digits[offset : offset+size]
		offset += size
	}
	return parts
}

func (p PIN) String() string {
	if p.IsZero() {
		return ""
	}
	parts := p.Parts()
	return strings.Join(parts[:], "-")
}

func (p PIN) IsZero() bool {
	return p.digits == ""
}

func (p PIN) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PIN) UnmarshalText(text []byte) error {
	parsed, err := ParseLoose(string(text))
	if err != nil {
		return fmt.Errorf("unmarshal pin: %w", err)
	}
	*p = parsed
	return nil
}

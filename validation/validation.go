// Package validation provides user-code hygiene for the device
// authorization grant: charset rules, format checks, and the canonical form
// used by lookup indexes.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// GroupSize is the number of characters in each half of a user code.
	GroupSize = 4

	// codeLength is the total length of a user code without its separator.
	codeLength = 2 * GroupSize
)

// Charset contains the characters allowed in user codes per RFC 8628
// section 6.1. Vowels and easily confused characters are excluded.
const Charset = "BCDFGHJKLMNPQRSTVWXZ"

var codeRegex = regexp.MustCompile(fmt.Sprintf("^[%s]{%d}-[%s]{%d}$",
	Charset, GroupSize, Charset, GroupSize))

// Error describes why a user code was rejected.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid user code %q: %s", e.Code, e.Message)
}

// ValidateUserCode checks that a user code has the expected length, format,
// charset, and character distribution. Input is normalized for case and
// whitespace first, so user-typed codes validate the same as generated ones.
func ValidateUserCode(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	base := strings.ReplaceAll(code, "-", "")
	if len(base) != codeLength {
		return &Error{
			Code:    code,
			Message: fmt.Sprintf("length must be %d characters", codeLength),
		}
	}

	if !codeRegex.MatchString(code) {
		return &Error{
			Code:    code,
			Message: "code must be in format XXXX-XXXX using only allowed characters",
		}
	}

	// No character may dominate the code; generation caps repeats at two.
	counts := make(map[rune]int)
	for _, char := range base {
		counts[char]++
		if counts[char] > 2 {
			return &Error{
				Code:    code,
				Message: "too many repeated characters",
			}
		}
	}

	return nil
}

// NormalizeCode converts a user code to the canonical form used by lookup
// indexes: upper-cased, trimmed, separator removed.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "-", ""))
}

// FormatCode converts a normalized code back to XXXX-XXXX display format.
func FormatCode(code string) string {
	if len(code) < codeLength {
		return code
	}
	mid := len(code) / 2
	return code[:mid] + "-" + code[mid:]
}

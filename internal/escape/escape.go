// Package escape implements the transport encoding for annotation text.
//
// Annotation records carry highlighted text as a plain ASCII string so it
// survives JSON transport, spreadsheets, and shell pipelines untouched.
// The encoding is Go's backslash escape syntax (the body of a double-quoted
// string literal): printable ASCII characters other than '"' and '\' pass
// through unchanged, everything else becomes \n, \t, \xNN, \uNNNN, or
// \UNNNNNNNN.
//
// The only property the aggregation core relies on is exact round-trip:
// Decode(Encode(s)) == s for every string s. The concrete escape syntax is
// an implementation detail of the transport, not of the consensus logic.
package escape

import (
	"fmt"
	"strconv"
)

// Encode returns the escaped transport form of s.
// The result contains only printable ASCII characters.
func Encode(s string) string {
	q := strconv.QuoteToASCII(s)
	// Strip the surrounding quotes; the field is self-delimiting already.
	return q[1 : len(q)-1]
}

// Decode reverses Encode. It returns an error if s is not a well-formed
// escaped string, which indicates a corrupted or foreign-encoded record.
func Decode(s string) (string, error) {
	u, err := strconv.Unquote(`"` + s + `"`)
	if err != nil {
		return "", fmt.Errorf("malformed escaped text %q: %w", s, err)
	}
	return u, nil
}

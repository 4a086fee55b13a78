// Charset decoding with a fallback chain that never fails.
package main

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText converts raw response bytes to a string using the declared
// charset. If the charset name is unknown or decoding fails, it falls
// back to UTF-8 with replacement, and finally to ISO-8859-1 (which maps
// every byte). Decoding is total: callers never see an error.
func decodeText(content []byte, charset string) string {
	if charset != "" {
		if enc, err := htmlindex.Get(charset); err == nil {
			if decoded, _, err := transform.Bytes(enc.NewDecoder(), content); err == nil {
				return string(decoded)
			}
		}
	}

	// The x/text UTF-8 decoder substitutes U+FFFD for invalid sequences
	// instead of erroring.
	if decoded, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), content); err == nil {
		return string(decoded)
	}

	decoded, _, _ := transform.Bytes(charmap.ISO8859_1.NewDecoder(), content)
	return string(decoded)
}

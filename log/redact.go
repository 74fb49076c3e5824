package log

import "strings"

const redactedKeep = 4

// RedactString keeps only a short prefix of secrets such as access tokens.
func RedactString(s string) string {
	if len(s) <= redactedKeep*2 {
		return strings.Repeat("*", len(s))
	}
	return s[:redactedKeep] + strings.Repeat("*", 8)
}

package security

import "strings"

const mailtoPrefix = "mailto:"

// Normalize canonicalizes a raw contact string so two contacts can be compared
// byte for byte. The steps repeat until nothing changes, which keeps the result
// stable when fed back in.
func Normalize(raw string) string {
	out := strings.ToLower(raw)
	for {
		next := strings.TrimSpace(out)
		next = strings.TrimPrefix(next, mailtoPrefix)
		next = strings.TrimSuffix(next, "/")
		if next == out {
			return out
		}
		out = next
	}
}

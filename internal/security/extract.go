package security

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	urlPattern        = regexp.MustCompile(`https?://[^\s<>"'\x60\]]+`)
	contactLine       = regexp.MustCompile(`(?im)^[ \t]*contact:[ \t]*(.+?)[ \t]*$`)
	securityPathWords = []string{"security", "report", "vulnerability"}
)

// contactStrategy looks for one kind of contact in free text.
type contactStrategy struct {
	name  string
	match func(text string) (string, bool)
}

// freeTextStrategies run in order; the first one that matches wins.
var freeTextStrategies = []contactStrategy{
	{name: "email", match: matchEmail},
	{name: "security-url", match: matchSecurityURL},
	{name: "url", match: matchAnyURL},
}

// ExtractContact returns the most likely security contact in text: an email
// address, else a URL whose path mentions security, reporting or
// vulnerabilities, else any URL.
func ExtractContact(text string) (string, bool) {
	for _, strategy := range freeTextStrategies {
		if contact, ok := strategy.match(text); ok {
			return contact, true
		}
	}
	return "", false
}

// ExtractSecurityTxtContact returns the value of the first Contact: field of a
// security.txt document (RFC 9116).
func ExtractSecurityTxtContact(text string) (string, bool) {
	for _, m := range contactLine.FindAllStringSubmatch(text, -1) {
		if value := strings.TrimSpace(m[1]); value != "" {
			return value, true
		}
	}
	return "", false
}

func matchEmail(text string) (string, bool) {
	found := emailPattern.FindString(text)
	return found, found != ""
}

func matchSecurityURL(text string) (string, bool) {
	for _, candidate := range findURLs(text) {
		u, err := url.Parse(candidate)
		if err != nil {
			continue
		}
		path := strings.ToLower(u.Path)
		for _, word := range securityPathWords {
			if strings.Contains(path, word) {
				return candidate, true
			}
		}
	}
	return "", false
}

func matchAnyURL(text string) (string, bool) {
	urls := findURLs(text)
	if len(urls) == 0 {
		return "", false
	}
	return urls[0], true
}

func findURLs(text string) []string {
	var out []string
	for _, raw := range urlPattern.FindAllString(text, -1) {
		trimmed := strings.TrimRight(raw, ".,;:!?)")
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package logger

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// RedactEmail masks the local part of an address, keeping its first two
// characters: "ming@example.com" → "mi***@example.com". Local parts of two
// characters or fewer are fully masked.
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}

// redactEmbedded masks every address that appears inside s.
func redactEmbedded(s string) string {
	return emailPattern.ReplaceAllStringFunc(s, RedactEmail)
}

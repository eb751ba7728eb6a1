// Package redact removes sensitive information from strings before they are
// logged. It masks card numbers (PANs) and strips SQL statements,
// credentials, tokens, e-mail addresses and stack traces that can end up
// inside error messages.
package redact

import (
	"regexp"
	"strings"

	"github.com/phrazzld/card-service/internal/domain"
)

// Constants for redaction placeholders
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	RedactedStackPlaceholder      = "[STACK_TRACE_REDACTED]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
)

type rule struct {
	pattern *regexp.Regexp
	replace func(string) string
}

func literal(s string) func(string) string {
	return func(string) string { return s }
}

// Rules are applied in order.
var rules = []rule{
	{
		pattern: regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`),
		replace: literal(RedactedStackPlaceholder),
	},
	{
		// Upper-case statements only, so "failed to update card" survives.
		pattern: regexp.MustCompile(`\b(?:SELECT|INSERT INTO|UPDATE|DELETE FROM)\b[^;\n]*`),
		replace: literal(RedactedSQLPlaceholder),
	},
	{
		// Any 13-19 digit run is treated as a card number.
		pattern: regexp.MustCompile(`\b\d{13,19}\b`),
		replace: domain.MaskCardNumber,
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(postgres(?:ql)?|rediss?)://[^@\s]+@`),
		replace: func(m string) string {
			return m[:strings.Index(m, "://")+3] + RedactedCredentialPlaceholder + "@"
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(password|passwd|pwd)\s*[=:]\s*\S+`),
		replace: literal(RedactedCredentialPlaceholder),
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(api[_-]?key|token|secret)\s*[=:]\s*\S+`),
		replace: literal(RedactedKeyPlaceholder),
	},
	{
		pattern: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		replace: literal(RedactedEmailPlaceholder),
	},
}

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllStringFunc(result, r.replace)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}

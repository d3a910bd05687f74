package logging

import (
	"net/http"
	"strings"
)

// RedactedValue replaces sensitive header values in logged metadata.
const RedactedValue = "***REDACTED***"

// RedactionPolicy controls what request/response material may reach a log
// sink. It is stateless and evaluated per request.
type RedactionPolicy struct {
	// SensitiveHeaders are matched case-insensitively; their values are
	// replaced with RedactedValue.
	SensitiveHeaders []string
	// BodyExcludeSubstring omits the body entirely when present
	// (case-insensitive).
	BodyExcludeSubstring string
	// MaxBodyChars truncates logged bodies to this many characters.
	MaxBodyChars int
}

// DefaultRedactionPolicy returns the policy applied when none is
// configured.
func DefaultRedactionPolicy() RedactionPolicy {
	return RedactionPolicy{
		SensitiveHeaders:     []string{"authorization", "cookie", "x-api-key"},
		BodyExcludeSubstring: "password",
		MaxBodyChars:         1000,
	}
}

// Headers returns a loggable copy of h with sensitive values redacted.
// Multi-valued headers are joined the way they appear on the wire.
func (p RedactionPolicy) Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if p.sensitive(name) {
			out[name] = RedactedValue
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func (p RedactionPolicy) sensitive(name string) bool {
	for _, s := range p.SensitiveHeaders {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

// Body returns the loggable form of a request body and whether it may be
// logged at all. Only POST, PUT and PATCH bodies are considered; a body
// containing the exclusion substring is omitted entirely; anything longer
// than MaxBodyChars is truncated to exactly that many characters.
func (p RedactionPolicy) Body(method string, body []byte) (string, bool) {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return "", false
	}
	if len(body) == 0 {
		return "", false
	}
	if p.BodyExcludeSubstring != "" &&
		strings.Contains(strings.ToLower(string(body)), p.BodyExcludeSubstring) {
		return "", false
	}
	runes := []rune(string(body))
	if len(runes) > p.MaxBodyChars {
		runes = runes[:p.MaxBodyChars]
	}
	return string(runes), true
}

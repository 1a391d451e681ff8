package ensembl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// errorEnvelope is the error body shape returned by the Ensembl REST API.
type errorEnvelope struct {
	Error string `json:"error"`
}

// HTTPError is a sanitized summary of a non-2xx response.
type HTTPError struct {
	StatusCode int
	Status     string
	// Message is the service-provided error text when the body carried one.
	Message string
	// Snippet is a truncated hint for bodies without an error envelope.
	Snippet string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "ensembl http error"
	}
	parts := []string{fmt.Sprintf("ensembl api error: status=%s", strings.TrimSpace(e.Status))}
	if strings.TrimSpace(e.Message) != "" {
		parts = append(parts, "error="+strings.TrimSpace(e.Message))
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

func newHTTPError(resp *http.Response, body []byte) *HTTPError {
	h := &HTTPError{}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}

	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil && strings.TrimSpace(env.Error) != "" {
		h.Message = truncate(env.Error)
		return h
	}
	h.Snippet = truncate(string(body))
	return h
}

func truncate(s string) string {
	const max = 256
	long := len(s) > max
	if long {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if long {
		return s + "..."
	}
	return s
}

package logging

import (
	"net/http"
	"strings"
	"testing"
)

func TestHeadersRedaction(t *testing.T) {
	p := DefaultRedactionPolicy()
	h := http.Header{}
	h.Set("Authorization", "Bearer xyz")
	h.Set("Cookie", "session=abc")
	h.Set("X-Api-Key", "key-123")
	h.Set("Content-Type", "application/json")

	out := p.Headers(h)
	if out["Authorization"] != RedactedValue {
		t.Errorf("Authorization: got %q", out["Authorization"])
	}
	if out["Cookie"] != RedactedValue {
		t.Errorf("Cookie: got %q", out["Cookie"])
	}
	if out["X-Api-Key"] != RedactedValue {
		t.Errorf("X-Api-Key: got %q", out["X-Api-Key"])
	}
	if out["Content-Type"] != "application/json" {
		t.Errorf("Content-Type: got %q", out["Content-Type"])
	}
	for _, v := range out {
		if strings.Contains(v, "xyz") || strings.Contains(v, "session=abc") {
			t.Errorf("sensitive value leaked: %q", v)
		}
	}
}

func TestBodyOmittedForPassword(t *testing.T) {
	p := DefaultRedactionPolicy()
	for _, body := range []string{
		`{"password": "hunter2"}`,
		`{"PASSWORD": "hunter2"}`,
		`{"user_Password": "hunter2"}`,
	} {
		if _, ok := p.Body(http.MethodPost, []byte(body)); ok {
			t.Errorf("body %q should be omitted", body)
		}
	}
}

func TestBodyTruncation(t *testing.T) {
	p := DefaultRedactionPolicy()
	body := strings.Repeat("a", 1500)
	got, ok := p.Body(http.MethodPost, []byte(body))
	if !ok {
		t.Fatal("body should be loggable")
	}
	if len(got) != 1000 {
		t.Errorf("truncated length: got %d, want 1000", len(got))
	}

	short := "short body"
	got, ok = p.Body(http.MethodPut, []byte(short))
	if !ok || got != short {
		t.Errorf("short body: got %q, ok=%v", got, ok)
	}
}

func TestBodySkippedForNonMutatingMethods(t *testing.T) {
	p := DefaultRedactionPolicy()
	if _, ok := p.Body(http.MethodGet, []byte("data")); ok {
		t.Error("GET body should not be captured")
	}
	if _, ok := p.Body(http.MethodDelete, []byte("data")); ok {
		t.Error("DELETE body should not be captured")
	}
	if _, ok := p.Body(http.MethodPost, nil); ok {
		t.Error("empty body should not be captured")
	}
}

package errors

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, NewValidationError("req-9", "toolSlug is required", map[string]interface{}{
		"field": "toolSlug",
	}))

	if rec.Code != 400 {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Type != ValidationError {
		t.Errorf("type = %v, want %v", resp.Type, ValidationError)
	}
	if resp.RequestID != "req-9" {
		t.Errorf("request_id = %q, want req-9", resp.RequestID)
	}
	if resp.Details["field"] != "toolSlug" {
		t.Errorf("details.field = %v, want toolSlug", resp.Details["field"])
	}
}

func TestErrorWithType(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-ID", "req-5")
	ErrorWithType(rec, "nope", AuthError, 401)

	if rec.Code != 401 {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Type != AuthError {
		t.Errorf("type = %v, want %v", resp.Type, AuthError)
	}
	if resp.RequestID != "req-5" {
		t.Errorf("request_id = %q, want req-5", resp.RequestID)
	}
}

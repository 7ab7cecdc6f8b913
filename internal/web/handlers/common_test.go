package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		data       any
		wantBody   string
	}{
		{"created with body", http.StatusCreated, map[string]int{"user_id": 1}, "{\"user_id\":1}\n"},
		{"nil data", http.StatusOK, nil, ""},
		{"empty map", http.StatusOK, map[string]string{}, "{}\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, tc.data)

			if recorder.Code != tc.statusCode {
				t.Errorf("expected status %d, got %d", tc.statusCode, recorder.Code)
			}
			if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
			}
			if recorder.Body.String() != tc.wantBody {
				t.Errorf("expected body %q, got %q", tc.wantBody, recorder.Body.String())
			}
		})
	}
}

func TestRespondError_ContainsErrorKey(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondError(recorder, http.StatusConflict, errUserExists)

	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if recorder.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", recorder.Code)
	}
	if result["error"] != errUserExists {
		t.Errorf("expected error '%s', got '%s'", errUserExists, result["error"])
	}
}


func TestTooLargeMessage(t *testing.T) {
	if got := tooLargeMessage(16 << 20); got != "File size too large (max 16MB)" {
		t.Errorf("tooLargeMessage = %q", got)
	}
}

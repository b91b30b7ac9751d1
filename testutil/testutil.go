// Package testutil provides assertion helpers for testing httpbind
// handlers and other HTTP surfaces built on opcall envelopes.
package testutil

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

// AssertStatus checks that the response has the expected status code.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	if w.Code != expectedStatus {
		t.Errorf("expected status %d, got %d\nBody: %s", expectedStatus, w.Code, w.Body.String())
	}
}

// AssertResult decodes the {"result": ...} envelope and compares the result
// with expected, as JSON to ignore formatting and type differences.
func AssertResult(t *testing.T, w *httptest.ResponseRecorder, expected any) {
	t.Helper()

	contentType := w.Header().Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		t.Errorf("expected Content-Type to contain application/json, got %s", contentType)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode response envelope: %v\nBody: %s", err, w.Body.String())
	}

	expectedJSON, _ := json.Marshal(expected)

	var expectedData, actualData any
	json.Unmarshal(expectedJSON, &expectedData)
	json.Unmarshal(envelope.Result, &actualData)

	expectedStr, _ := json.MarshalIndent(expectedData, "", "  ")
	actualStr, _ := json.MarshalIndent(actualData, "", "  ")

	if string(expectedStr) != string(actualStr) {
		t.Errorf("result mismatch:\nExpected:\n%s\nActual:\n%s", expectedStr, actualStr)
	}
}

// FailureBody is the decoded {"error": ...} envelope.
type FailureBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AssertFailure checks that the response contains a failure with the
// expected kind and returns it for further message checks.
func AssertFailure(t *testing.T, w *httptest.ResponseRecorder, expectedKind string) *FailureBody {
	t.Helper()

	var envelope struct {
		Error FailureBody `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode error response: %v\nBody: %s", err, w.Body.String())
	}

	if envelope.Error.Kind != expectedKind {
		t.Errorf("expected failure kind %s, got %s (message: %s)",
			expectedKind, envelope.Error.Kind, envelope.Error.Message)
	}

	return &envelope.Error
}

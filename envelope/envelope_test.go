package envelope

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWrite_FailureShapeIsStable(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, New(http.StatusUnauthorized, CodeUnauthorized, "missing bearer token"))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}

	// o shape na wire é contrato: comparação byte a byte
	want := `{"success":false,"error":{"code":"BFF_UNAUTHORIZED","message":"missing bearer token"}}` + "\n"
	if got := w.Body.String(); got != want {
		t.Fatalf("unexpected body:\n got: %s\nwant: %s", got, want)
	}
}

func TestWrite_RetryAfterOnlyWhenSet(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, RateLimited(60))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	want := `{"success":false,"error":{"code":"RATE_LIMIT_EXCEEDED","message":"rate limit exceeded","retryAfter":60}}` + "\n"
	if got := w.Body.String(); got != want {
		t.Fatalf("unexpected body:\n got: %s\nwant: %s", got, want)
	}
}

func TestWrite_UnknownErrorBecomesInternal(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, errors.New("boom"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), CodeInternal) {
		t.Fatalf("expected %s in body, got %s", CodeInternal, w.Body.String())
	}
}

func TestWriteData_NilDataBecomesNull(t *testing.T) {
	w := httptest.NewRecorder()
	WriteData(w, http.StatusOK, nil)

	want := `{"success":true,"data":null}` + "\n"
	if got := w.Body.String(); got != want {
		t.Fatalf("unexpected body:\n got: %s\nwant: %s", got, want)
	}
}

func TestFrom_PreservesTypedError(t *testing.T) {
	orig := New(http.StatusServiceUnavailable, CodeCoreUnavailable, "core api unreachable")
	wrapped := fmt.Errorf("pipeline: %w", orig)

	e := From(wrapped)
	if e.Code != CodeCoreUnavailable || e.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected typed error to survive wrapping, got %+v", e)
	}
}

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection refused")
	e := Wrap(http.StatusServiceUnavailable, CodeCoreUnavailable, "core api unreachable", cause)

	if !errors.Is(e, cause) {
		t.Fatalf("expected errors.Is to find the cause")
	}
	if !strings.Contains(e.Error(), "connection refused") {
		t.Fatalf("expected cause in message, got %q", e.Error())
	}
}

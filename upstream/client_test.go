package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bff-gateway/envelope"
)

func TestClient_GetDecodesSuccessPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer bo-token" {
			t.Errorf("expected bearer header, got %q", got)
		}
		if got := r.Header.Get(HeaderCorrelationID); got != "corr-1" {
			t.Errorf("expected correlation id, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":7}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithLogger(nil))

	type me struct {
		ID int64 `json:"id"`
	}
	got, err := Get[me](context.Background(), c, "/auth/me", WithBearer("bo-token"), WithCorrelationID("corr-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 7 {
		t.Fatalf("expected id 7, got %d", got.ID)
	}
}

func TestClient_StructuredCoreErrorPassesThroughVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"EMAIL_ALREADY_EXISTS","message":"email ja cadastrado"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithLogger(nil))

	_, _, err := c.Do(context.Background(), http.MethodPost, "/auth/register", []byte(`{"email":"bo@example.com"}`))
	var e *envelope.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if e.Status != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", e.Status)
	}
	if e.Code != "EMAIL_ALREADY_EXISTS" {
		t.Fatalf("expected business code preserved, got %q", e.Code)
	}
	if e.Message != "email ja cadastrado" {
		t.Fatalf("expected message preserved, got %q", e.Message)
	}
}

func TestClient_UnstructuredErrorBecomesCoreAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream blew up", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, WithLogger(nil))

	_, err := c.Get(context.Background(), "/orders")
	var e *envelope.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if e.Code != envelope.CodeCoreError {
		t.Fatalf("expected %s, got %q", envelope.CodeCoreError, e.Code)
	}
	if e.Status != http.StatusBadGateway {
		t.Fatalf("expected upstream status preserved, got %d", e.Status)
	}
}

func TestClient_TimeoutBecomesCoreAPITimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.URL, WithTimeout(50*time.Millisecond), WithLogger(nil))

	start := time.Now()
	_, err := c.Post(context.Background(), "/orders", []byte(`{}`))
	var e *envelope.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if e.Code != envelope.CodeCoreTimeout {
		t.Fatalf("expected %s, got %q", envelope.CodeCoreTimeout, e.Code)
	}
	if e.Status != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", e.Status)
	}
	// o deadline cancela a chamada em andamento, não espera os 2s do servidor
	if elapsed := time.Since(start); elapsed > 1*time.Second {
		t.Fatalf("expected call to be canceled by deadline, took %s", elapsed)
	}
}

func TestClient_GetRetriesTransportErrorThenUnavailable(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		// derruba a conexão sem resposta para forçar erro de transporte
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Errorf("server does not support hijack")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack failed: %v", err)
			return
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetries(2, 5*time.Millisecond), WithLogger(nil))

	_, err := c.Get(context.Background(), "/products")
	var e *envelope.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if e.Code != envelope.CodeCoreUnavailable {
		t.Fatalf("expected %s, got %q", envelope.CodeCoreUnavailable, e.Code)
	}
	if e.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", e.Status)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", got)
	}
}

func TestClient_PostIsNeverRetried(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		hj := w.(http.Hijacker)
		conn, _, _ := hj.Hijack()
		_ = conn.Close()
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetries(3, 5*time.Millisecond), WithLogger(nil))

	_, err := c.Post(context.Background(), "/orders", []byte(`{}`))
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("expected exactly 1 attempt for POST, got %d", got)
	}
}

func TestClient_EmptyBodyResponseIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, WithLogger(nil))

	data, err := c.Delete(context.Background(), "/cart/items/3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data != nil {
		t.Fatalf("expected nil data, got %s", data)
	}
}

func TestClient_ConcurrentCallsDoNotShareHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// devolve o Authorization recebido para inspeção
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":"` + r.Header.Get("Authorization") + `"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithLogger(nil))

	var wg sync.WaitGroup
	tokens := []string{"token-a", "token-b", "token-c", "token-d"}
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			got, err := Get[string](context.Background(), c, "/echo", WithBearer(token))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if got != "Bearer "+token {
				t.Errorf("header leaked between calls: sent %q, server saw %q", token, got)
			}
		}(token)
	}
	wg.Wait()
}

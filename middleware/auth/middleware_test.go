package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bff-gateway/envelope"
	"bff-gateway/middleware/auth/application"
	"bff-gateway/middleware/auth/domain"
	"bff-gateway/middleware/auth/infra"
)

type staticIdentityClient struct {
	calls     int
	principal domain.Principal
	err       error
}

func (c *staticIdentityClient) Identity(_ context.Context, token string) (domain.Principal, error) {
	c.calls++
	if c.err != nil {
		return domain.Principal{}, c.err
	}
	return c.principal, nil
}

func testVerifier(client domain.IdentityClient) application.Verifier {
	return application.Verifier{
		Cache:   infra.NewMemoryTokenCache(),
		Client:  client,
		Surface: domain.SurfaceCustomer,
		TTL:     time.Minute,
	}
}

func TestMiddleware_InjectsPrincipal(t *testing.T) {
	client := &staticIdentityClient{principal: domain.Principal{ID: 7, Name: "Bo"}}

	var got domain.Principal
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r)
		w.WriteHeader(http.StatusOK)
	})

	h := Middleware(Options{Verifier: testVerifier(client)})(next)

	r := httptest.NewRequest(http.MethodGet, "http://bff/api/orders", nil)
	r.Header.Set("Authorization", "Bearer bo-token")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !ok || got.ID != 7 || got.Name != "Bo" {
		t.Fatalf("expected principal in context, got %+v (ok=%v)", got, ok)
	}
}

func TestMiddleware_MissingTokenIs401(t *testing.T) {
	client := &staticIdentityClient{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	})

	h := Middleware(Options{Verifier: testVerifier(client)})(next)

	r := httptest.NewRequest(http.MethodGet, "http://bff/api/orders", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	want := `{"success":false,"error":{"code":"BFF_UNAUTHORIZED","message":"missing bearer token"}}`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Fatalf("unexpected body:\n got %s\nwant %s", got, want)
	}
}

func TestMiddleware_InvalidTokenIs401InvalidToken(t *testing.T) {
	client := &staticIdentityClient{err: envelope.New(http.StatusUnauthorized, envelope.CodeUnauthorized, "nope")}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an invalid token")
	})

	h := Middleware(Options{Verifier: testVerifier(client)})(next)

	r := httptest.NewRequest(http.MethodGet, "http://bff/api/orders", nil)
	r.Header.Set("Authorization", "Bearer bad-token")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"BFF_INVALID_TOKEN"`) {
		t.Fatalf("expected BFF_INVALID_TOKEN, got %s", w.Body.String())
	}
}

func TestMiddleware_CoreOutageIs503NotLogout(t *testing.T) {
	client := &staticIdentityClient{err: envelope.New(http.StatusServiceUnavailable, envelope.CodeCoreUnavailable, "core api unreachable")}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when verification fails")
	})

	h := Middleware(Options{Verifier: testVerifier(client)})(next)

	r := httptest.NewRequest(http.MethodGet, "http://bff/api/orders", nil)
	r.Header.Set("Authorization", "Bearer bo-token")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"BFF_CORE_API_UNAVAILABLE"`) {
		t.Fatalf("expected BFF_CORE_API_UNAVAILABLE, got %s", w.Body.String())
	}
}

func TestMiddleware_OptionalAllowsAnonymous(t *testing.T) {
	client := &staticIdentityClient{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r); ok {
			t.Fatal("anonymous request must not carry a principal")
		}
		w.WriteHeader(http.StatusOK)
	})

	h := Middleware(Options{Verifier: testVerifier(client), Optional: true})(next)

	r := httptest.NewRequest(http.MethodGet, "http://bff/api/orders", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if client.calls != 0 {
		t.Fatalf("core must not be called for anonymous optional request")
	}
}

func TestMiddleware_OptionalStillRejectsBadToken(t *testing.T) {
	client := &staticIdentityClient{err: envelope.New(http.StatusUnauthorized, envelope.CodeUnauthorized, "nope")}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an invalid token, even when auth is optional")
	})

	h := Middleware(Options{Verifier: testVerifier(client), Optional: true})(next)

	r := httptest.NewRequest(http.MethodGet, "http://bff/api/orders", nil)
	r.Header.Set("Authorization", "Bearer bad-token")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

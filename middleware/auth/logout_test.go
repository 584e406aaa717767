package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bff-gateway/middleware/auth/application"
	"bff-gateway/middleware/auth/domain"
	"bff-gateway/middleware/auth/infra"
)

func TestInvalidateOnLogout_DeletesCacheEntryBeforeForwarding(t *testing.T) {
	client := &staticIdentityClient{principal: domain.Principal{ID: 7, Name: "Bo"}}
	cache := infra.NewMemoryTokenCache()
	v := application.Verifier{
		Cache:   cache,
		Client:  client,
		Surface: domain.SurfaceCustomer,
		TTL:     time.Minute,
	}

	// povoa o cache
	if _, err := v.Verify(context.Background(), "bo-token"); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if _, ok, _ := cache.Get(context.Background(), v.CacheKey("bo-token")); !ok {
		t.Fatal("expected cache entry after verification")
	}

	var entryAliveInHandler bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, entryAliveInHandler, _ = cache.Get(r.Context(), v.CacheKey("bo-token"))
		w.WriteHeader(http.StatusOK)
	})

	h := InvalidateOnLogout(v, nil)(next)

	r := httptest.NewRequest(http.MethodPost, "http://bff/api/auth/logout", nil)
	r.Header.Set("Authorization", "Bearer bo-token")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	// a invalidação é síncrona: quando o repasse roda, a entrada já se foi
	if entryAliveInHandler {
		t.Fatal("cache entry must be gone before the logout is forwarded")
	}

	// próxima verificação força ida ao core
	if _, err := v.Verify(context.Background(), "bo-token"); err != nil {
		t.Fatalf("verify after logout failed: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected fresh core call after logout, got %d", client.calls)
	}
}

func TestInvalidateOnLogout_CacheFailureDoesNotAbortLogout(t *testing.T) {
	v := application.Verifier{
		Cache:   failingCache{},
		Surface: domain.SurfaceCustomer,
	}

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	h := InvalidateOnLogout(v, nil)(next)

	r := httptest.NewRequest(http.MethodPost, "http://bff/api/auth/logout", nil)
	r.Header.Set("Authorization", "Bearer bo-token")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if !called || w.Code != http.StatusOK {
		t.Fatalf("logout must proceed despite cache failure (called=%v, code=%d)", called, w.Code)
	}
}

func TestInvalidateOnLogout_NoTokenIsPassThrough(t *testing.T) {
	v := application.Verifier{
		Cache:   infra.NewMemoryTokenCache(),
		Surface: domain.SurfaceCustomer,
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := InvalidateOnLogout(v, nil)(next)

	r := httptest.NewRequest(http.MethodPost, "http://bff/api/auth/logout", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, context.DeadlineExceeded
}
func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return context.DeadlineExceeded
}
func (failingCache) Del(context.Context, string) error {
	return context.DeadlineExceeded
}

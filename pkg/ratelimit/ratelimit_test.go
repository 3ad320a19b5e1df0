package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kestrel-run/modelmesh/pkg/cache"
)

func TestCheckAllowsUnderLimit(t *testing.T) {
	l := New(cache.NewMemory(), "rl")
	ctx := context.Background()
	limits := Limits{MaxRequests: 3, WindowSeconds: 60}

	for i := 0; i < 3; i++ {
		res := l.Check(ctx, "client-a", limits)
		if !res.Allowed {
			t.Fatalf("request %d expected allowed, got blocked", i)
		}
	}
}

func TestCheckBlocksFourthRequest(t *testing.T) {
	// Mirrors the documented boundary scenario: max=3 window=60s, four
	// requests from the same client, the fourth is blocked.
	l := New(cache.NewMemory(), "rl")
	ctx := context.Background()
	limits := Limits{MaxRequests: 3, WindowSeconds: 60}

	for i := 0; i < 3; i++ {
		if res := l.Check(ctx, "client-a", limits); !res.Allowed {
			t.Fatalf("request %d expected allowed", i)
		}
	}
	res := l.Check(ctx, "client-a", limits)
	if res.Allowed {
		t.Fatal("expected fourth request to be blocked")
	}
	if res.Remaining != 0 {
		t.Fatalf("expected remaining=0, got %d", res.Remaining)
	}
}

func TestCheckIsolatesClients(t *testing.T) {
	l := New(cache.NewMemory(), "rl")
	ctx := context.Background()
	limits := Limits{MaxRequests: 1, WindowSeconds: 60}

	if res := l.Check(ctx, "client-a", limits); !res.Allowed {
		t.Fatal("client-a first request should be allowed")
	}
	if res := l.Check(ctx, "client-a", limits); res.Allowed {
		t.Fatal("client-a second request should be blocked")
	}
	if res := l.Check(ctx, "client-b", limits); !res.Allowed {
		t.Fatal("client-b should be unaffected by client-a's window")
	}
}

func TestCheckFailsOpenOnCacheFailure(t *testing.T) {
	l := New(cache.NewRemote("http://127.0.0.1:1", "tok"), "rl")
	ctx := context.Background()
	limits := Limits{MaxRequests: 3, WindowSeconds: 60}

	for i := 0; i < 10; i++ {
		if res := l.Check(ctx, "client-a", limits); !res.Allowed {
			t.Fatalf("request %d expected fail-open allowed, got blocked", i)
		}
	}
}

func TestClientIDPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	r.RemoteAddr = "10.0.0.2:1234"

	if got := ClientID(r); got != "203.0.113.5" {
		t.Fatalf("expected first forwarded-for token, got %q", got)
	}
}

func TestClientIDFallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:1234"

	if got := ClientID(r); got != "10.0.0.2" {
		t.Fatalf("expected remote addr host, got %q", got)
	}
}

func TestMiddlewareSetsHeadersAndBlocks(t *testing.T) {
	l := New(cache.NewMemory(), "rl")
	limits := Limits{MaxRequests: 1, WindowSeconds: 60}
	handler := Middleware(l, limits)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/", nil)
	req1.RemoteAddr = "10.0.0.5:555"
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec1.Code)
	}
	if rec1.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected remaining=0 after first request, got %q", rec1.Header().Get("X-RateLimit-Remaining"))
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "10.0.0.5:555"
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request blocked, got %d", rec2.Code)
	}
	if rec2.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on block")
	}
	if ct := rec2.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}
	var body blockedBody
	if err := json.Unmarshal(rec2.Body.Bytes(), &body); err != nil {
		t.Fatalf("block body is not valid JSON: %v", err)
	}
	if body.Error == "" || body.Message == "" {
		t.Fatalf("body = %+v, want non-empty error and message", body)
	}
}

package cache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMemoryGetSetDel(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("expected v, got %q err=%v", got, err)
	}

	if err := m.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after del, got %v", err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), -time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired entry to read as ErrNotFound, got %v", err)
	}
}

func TestSelectPicksRemoteOnlyWithBothCredentials(t *testing.T) {
	if _, ok := Select("", "").(*Memory); !ok {
		t.Fatal("expected Memory when no credentials set")
	}
	if _, ok := Select("https://x", "").(*Memory); !ok {
		t.Fatal("expected Memory when only URL set")
	}
	if _, ok := Select("https://x", "tok").(*Remote); !ok {
		t.Fatal("expected Remote when both credentials set")
	}
}

func TestRemoteGetSetDel(t *testing.T) {
	store := map[string][]byte{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		key := req.URL.Path[1:]
		switch req.Method {
		case http.MethodGet:
			v, ok := store[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(v)
		case http.MethodPut:
			body, _ := io.ReadAll(req.Body)
			store[key] = body
		case http.MethodDelete:
			delete(store, key)
		}
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, "tok")
	ctx := context.Background()

	if _, err := r.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before set, got %v", err)
	}
	if err := r.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := r.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("expected v, got %q err=%v", got, err)
	}
	if err := r.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := r.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after del, got %v", err)
	}
}

func TestRemoteFailsOpenOnUnreachableHost(t *testing.T) {
	r := NewRemote("http://127.0.0.1:1", "tok")
	ctx := context.Background()

	if _, err := r.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected Get to fail-closed as ErrNotFound, got %v", err)
	}
	if err := r.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("expected Set to fail open with nil error, got %v", err)
	}
	if err := r.Del(ctx, "k"); err != nil {
		t.Fatalf("expected Del to fail open with nil error, got %v", err)
	}
}

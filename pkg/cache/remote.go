package cache

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Remote is a JSON-over-HTTP CacheAdapter: GET/PUT/DELETE against
// {baseURL}/{key} with a bearer token, in the style of DeepSeekAdapter's
// raw-HTTP client (pkg/adapter/deepseek.go). There is no concrete KV-store
// SDK wired elsewhere, so this stays deliberately transport-agnostic: any
// store that speaks this tiny GET/PUT/DELETE contract behind
// REMOTE_CACHE_URL works.
//
// Per the fail-open-except-get-NotFound rule: any transport failure on Set
// or Del is swallowed and not logged (the caller receives nil); Get returns
// ErrNotFound on transport failure too, never propagating the underlying
// error, so a flaky remote cache degrades to "always a cache miss" rather
// than breaking the caller.
type Remote struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRemote creates a Remote cache client.
func NewRemote(baseURL, token string) *Remote {
	return &Remote{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (r *Remote) request(ctx context.Context, method, key string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+"/"+key, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	return r.httpClient.Do(req)
}

// Get fetches key. Any failure — transport error, non-200 status, or a
// genuine 404 — is reported as ErrNotFound.
func (r *Remote) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := r.request(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, ErrNotFound
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrNotFound
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrNotFound
	}
	return body, nil
}

// Set writes key with a TTL expressed in seconds via a query-adjacent
// header the remote store is expected to honor.
func (r *Remote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.baseURL+"/"+key, bytes.NewReader(value))
	if err != nil {
		return nil // fail-open
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-TTL-Seconds", strconv.FormatInt(int64(ttl.Seconds()), 10))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil // fail-open
	}
	defer resp.Body.Close()
	return nil
}

// Del removes key. Fails open on any transport error.
func (r *Remote) Del(ctx context.Context, key string) error {
	resp, err := r.request(ctx, http.MethodDelete, key, nil)
	if err != nil {
		return nil // fail-open
	}
	defer resp.Body.Close()
	return nil
}

// Package testutil provides a mock paginated JSON API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// ItemsPath is the path of the paginated collection.
const ItemsPath = "/items"

// Item is a list element served by MockAPI.
type Item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// NewItems returns n items with IDs 1..n.
func NewItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{ID: i + 1, Name: fmt.Sprintf("item-%d", i+1)}
	}
	return items
}

// MockResponse defines a canned response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable paginated API server. The collection at
// ItemsPath answers with {"items": [...], "links": {"next": "..."}} and
// relative next links; the last page has no next link.
type MockAPI struct {
	server *httptest.Server

	mu       sync.RWMutex
	items    []Item
	limit    int
	delay    time.Duration
	failures []MockResponse
	headers  map[string]string
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	NoCacheCount      int
	LastRequestHeader http.Header
	Offsets           []int
}

// NewMockAPI starts a server paging through items, limit items per page.
func NewMockAPI(items []Item, limit int) *MockAPI {
	if limit <= 0 {
		limit = 10
	}

	mock := &MockAPI{
		items:    items,
		limit:    limit,
		headers:  map[string]string{},
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("Cache-Control") == "no-cache" {
			mock.NoCacheCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.itemsHandler(w, r)
	}))

	return mock
}

// URL returns the URL of the first page.
func (m *MockAPI) URL() string {
	return m.server.URL + ItemsPath
}

// BaseURL returns the server root URL.
func (m *MockAPI) BaseURL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.NoCacheCount = 0
	m.LastRequestHeader = nil
	m.Offsets = nil
}

// SetItems replaces the collection.
func (m *MockAPI) SetItems(items []Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
}

// SetDelay delays every page response.
func (m *MockAPI) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetHeader adds a header to every page response.
func (m *MockAPI) SetHeader(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers[key] = value
}

// FailNext makes the next page requests answer with the given responses,
// in order.
func (m *MockAPI) FailNext(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, responses...)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetNoCacheCount returns the number of requests sent with
// Cache-Control: no-cache.
func (m *MockAPI) GetNoCacheCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.NoCacheCount
}

// GetLastRequestHeader returns the headers of the latest request.
func (m *MockAPI) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

// GetOffsets returns the offsets of the pages served, in order.
func (m *MockAPI) GetOffsets() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.Offsets...)
}

func (m *MockAPI) itemsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != ItemsPath {
		http.NotFound(w, r)
		return
	}

	m.mu.Lock()
	delay := m.delay
	var failure *MockResponse
	if len(m.failures) > 0 {
		f := m.failures[0]
		m.failures = m.failures[1:]
		failure = &f
	}
	headers := make(map[string]string, len(m.headers))
	for k, v := range m.headers {
		headers[k] = v
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if failure != nil {
		writeResponse(w, *failure)
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))

	m.mu.Lock()
	if err != nil || limit <= 0 {
		limit = m.limit
	}
	m.Offsets = append(m.Offsets, offset)
	total := len(m.items)
	start := min(max(offset, 0), total)
	end := min(start+limit, total)
	page := append([]Item{}, m.items[start:end]...)
	m.mu.Unlock()

	body := map[string]any{"items": page}
	if end < total {
		body["links"] = map[string]string{
			"next": fmt.Sprintf("%s?offset=%d&limit=%d", ItemsPath, end, limit),
		}
	}

	for k, v := range headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":           strconv.Itoa(retryAfter),
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.Itoa(retryAfter),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "Not found"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewMalformedResponse creates a 200 OK response with an invalid body.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"items": [`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

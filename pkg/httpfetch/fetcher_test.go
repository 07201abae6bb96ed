package httpfetch

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/pagetracker/internal/testutil"
	"github.com/Sternrassler/pagetracker/pkg/grid"
	"github.com/Sternrassler/pagetracker/pkg/pagination"
	"github.com/Sternrassler/pagetracker/pkg/tracker"
)

func newTestFetcher(t *testing.T, rawURL string) *Fetcher[testutil.Item] {
	t.Helper()

	cfg := DefaultConfig(rawURL)
	cfg.Retry = fastRetry(3)
	cfg.Logger = &discard

	f, err := New[testutil.Item](cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https", "https://api.example.com/items", false},
		{"valid http", "http://localhost:8080/items", false},
		{"empty", "", true},
		{"relative", "/items", true},
		{"unsupported scheme", "ftp://example.com/items", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New[testutil.Item](Config{URL: tt.url})
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFetcher_URLFor(t *testing.T) {
	f := newTestFetcher(t, "https://api.example.com/v1/items?sort=asc")

	tests := []struct {
		cursor string
		want   string
	}{
		{"", "https://api.example.com/v1/items?sort=asc"},
		{"/v1/items?offset=10", "https://api.example.com/v1/items?offset=10"},
		{"?offset=20", "https://api.example.com/v1/items?offset=20"},
		{"https://cdn.example.com/page/3", "https://cdn.example.com/page/3"},
	}

	for _, tt := range tests {
		t.Run(tt.cursor, func(t *testing.T) {
			got, err := f.URLFor(tt.cursor)
			if err != nil {
				t.Fatalf("URLFor() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("URLFor(%q) = %q, want %q", tt.cursor, got, tt.want)
			}
		})
	}
}

func TestFetcher_Page_FollowsNextLinks(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.NewItems(25), 10)
	defer mock.Close()

	f := newTestFetcher(t, mock.URL())
	ctx := context.Background()

	var (
		cursor string
		ids    []int
		pages  int
	)
	for {
		page, err := f.Page(ctx, cursor, false)
		if err != nil {
			t.Fatalf("Page(%q) error = %v", cursor, err)
		}
		pages++
		for _, item := range page.Items() {
			ids = append(ids, item.ID)
		}
		if !page.HasNext() {
			break
		}
		cursor = page.Cursor()
	}

	if pages != 3 {
		t.Errorf("Expected 3 pages, got %d", pages)
	}
	if len(ids) != 25 || ids[0] != 1 || ids[24] != 25 {
		t.Errorf("Unexpected items: %v", ids)
	}
	if offsets := mock.GetOffsets(); len(offsets) != 3 || offsets[1] != 10 || offsets[2] != 20 {
		t.Errorf("Unexpected offsets requested: %v", offsets)
	}
}

func TestFetcher_Page_Headers(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.NewItems(3), 10)
	defer mock.Close()

	cfg := DefaultConfig(mock.URL())
	cfg.UserAgent = "pagetracker-test/1.0"
	cfg.Headers = map[string]string{"Authorization": "Bearer token"}
	cfg.Logger = &discard
	f, err := New[testutil.Item](cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := f.Page(context.Background(), "", true); err != nil {
		t.Fatalf("Page() error = %v", err)
	}

	header := mock.GetLastRequestHeader()
	if got := header.Get("User-Agent"); got != "pagetracker-test/1.0" {
		t.Errorf("User-Agent = %q", got)
	}
	if got := header.Get("Authorization"); got != "Bearer token" {
		t.Errorf("Authorization = %q", got)
	}
	if header.Get("X-Request-ID") == "" {
		t.Error("Expected an X-Request-ID header")
	}
	if mock.GetNoCacheCount() != 1 {
		t.Errorf("Expected forced refresh to send Cache-Control: no-cache")
	}

	if _, err := f.Page(context.Background(), "", false); err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	if mock.GetNoCacheCount() != 1 {
		t.Errorf("Expected regular loads not to send no-cache, count=%d", mock.GetNoCacheCount())
	}
}

func TestFetcher_Page_RetriesServerErrors(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.NewItems(5), 10)
	defer mock.Close()
	mock.FailNext(testutil.NewServerErrorResponse(), testutil.NewServerErrorResponse())

	f := newTestFetcher(t, mock.URL())

	page, err := f.Page(context.Background(), "", false)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if page.Len() != 5 {
		t.Errorf("Expected 5 items, got %d", page.Len())
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("Expected 3 requests, got %d", mock.GetRequestCount())
	}
}

func TestFetcher_Page_Errors(t *testing.T) {
	tests := []struct {
		name          string
		failures      []testutil.MockResponse
		wantClass     ErrorClass
		wantStatus    int
		wantRequests  int
		wantExhausted bool
	}{
		{
			name:         "not found is not retried",
			failures:     []testutil.MockResponse{testutil.NewNotFoundResponse()},
			wantClass:    ErrorClassClient,
			wantStatus:   http.StatusNotFound,
			wantRequests: 1,
		},
		{
			name:         "malformed body is not retried",
			failures:     []testutil.MockResponse{testutil.NewMalformedResponse()},
			wantClass:    ErrorClassDecode,
			wantStatus:   http.StatusOK,
			wantRequests: 1,
		},
		{
			name: "server errors exhaust retries",
			failures: []testutil.MockResponse{
				testutil.NewServerErrorResponse(),
				testutil.NewServerErrorResponse(),
				testutil.NewServerErrorResponse(),
			},
			wantClass:     ErrorClassServer,
			wantStatus:    http.StatusInternalServerError,
			wantRequests:  3,
			wantExhausted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockAPI(testutil.NewItems(5), 10)
			defer mock.Close()
			mock.FailNext(tt.failures...)

			f := newTestFetcher(t, mock.URL())
			_, err := f.Page(context.Background(), "", false)

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("Expected *HTTPError, got %v", err)
			}
			if httpErr.ErrorClass != tt.wantClass {
				t.Errorf("ErrorClass = %v, want %v", httpErr.ErrorClass, tt.wantClass)
			}
			if httpErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", httpErr.StatusCode, tt.wantStatus)
			}
			if errors.Is(err, ErrRetryExhausted) != tt.wantExhausted {
				t.Errorf("ErrRetryExhausted = %v, want %v", errors.Is(err, ErrRetryExhausted), tt.wantExhausted)
			}
			if got := mock.GetRequestCount(); got != tt.wantRequests {
				t.Errorf("Requests = %d, want %d", got, tt.wantRequests)
			}
		})
	}
}

func TestFetcher_Page_RateLimitRetryAfter(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.NewItems(2), 10)
	defer mock.Close()
	mock.FailNext(testutil.NewRateLimitResponse(0))

	f := newTestFetcher(t, mock.URL())

	page, err := f.Page(context.Background(), "", false)
	if err != nil {
		t.Fatalf("Expected success after 429, got %v", err)
	}
	if page.Len() != 2 || mock.GetRequestCount() != 2 {
		t.Errorf("Expected 2 items after 2 requests, got %d items / %d requests", page.Len(), mock.GetRequestCount())
	}
}

func TestFetcher_Page_Cancellation(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.NewItems(5), 10)
	defer mock.Close()
	mock.SetDelay(2 * time.Second)

	f := newTestFetcher(t, mock.URL())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.Page(ctx, "", false)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Cancellation must not be retried")
	}
}

func TestFunc_DrivesTracker(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.NewItems(23), 10)
	defer mock.Close()

	f := newTestFetcher(t, mock.URL())
	tr := tracker.New(Func[testutil.Item, struct{}](f), struct{}{}, nil, tracker.Config{PageSize: 5, Logger: &discard})
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := tr.StartPaging(ctx); err != nil {
		t.Fatalf("StartPaging failed: %v", err)
	}

	// scroll row by row until the end of the list
	for row := 0; row < 30; row++ {
		total := tr.TotalItemCount()
		if row >= total {
			break
		}
		tr.Track(grid.At(0, row), grid.Static{total})
		if err := tr.Wait(ctx); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}

	if tr.TotalItemCount() != 23 {
		t.Errorf("Expected all 23 items loaded, got %d", tr.TotalItemCount())
	}
	if tr.HasMore() {
		t.Error("Expected end of data")
	}
	if got := pagination.TotalItems(tr.Pages()); got != 23 {
		t.Errorf("Expected pages to sum to 23, got %d", got)
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("Expected 3 page requests, got %d", mock.GetRequestCount())
	}
}

func TestFunc_LoadNextPageAfterEndOfData(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.NewItems(3), 10)
	defer mock.Close()

	f := newTestFetcher(t, mock.URL())
	tr := tracker.New(Func[testutil.Item, struct{}](f), struct{}{}, nil, tracker.Config{Logger: &discard})
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := tr.StartPaging(ctx); err != nil {
		t.Fatalf("StartPaging failed: %v", err)
	}

	page, err := tr.LoadNextPage(ctx)
	if err != nil {
		t.Fatalf("LoadNextPage after end of data failed: %v", err)
	}
	if page.Len() != 0 || page.HasNext() {
		t.Errorf("Expected an empty final page, got len=%d cursor=%q", page.Len(), page.Cursor())
	}
	if tr.TotalItemCount() != 3 {
		t.Errorf("Expected the first page not to be appended twice, total=%d", tr.TotalItemCount())
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Expected no request for an exhausted list, got %d requests", mock.GetRequestCount())
	}
}

package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Clark-Hu/popcorn/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(server.URL, "key", 2*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return client
}

func TestNewHTTPClientValidation(t *testing.T) {
	if _, err := NewHTTPClient("https://example.com", " ", time.Second, nil); err == nil {
		t.Fatal("expected error when api key missing")
	}
	if _, err := NewHTTPClient("not-a-url", "key", time.Second, nil); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestSearchSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("apikey"); got != "key" {
			t.Errorf("apikey = %q, want key", got)
		}
		if got := r.URL.Query().Get("s"); got != "bat" {
			t.Errorf("s = %q, want bat", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Search":[
			{"Title":"Batman","Year":"1989","imdbID":"tt0096895","Poster":"https://img/1.jpg"},
			{"Title":"Batman Begins","Year":"2005","imdbID":"tt0372784","Poster":"N/A"}
		],"totalResults":"2","Response":"True"}`))
	})

	results, err := client.Search(context.Background(), "bat")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ID != "tt0096895" || results[1].Title != "Batman Begins" {
		t.Fatalf("results out of order: %+v", results)
	}
	if results[1].PosterURL != "" {
		t.Fatalf("N/A poster should be cleared, got %q", results[1].PosterURL)
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"response false", http.StatusOK, `{"Response":"False","Error":"Movie not found!"}`, ErrNotFound},
		{"server error", http.StatusInternalServerError, `{}`, ErrNetwork},
		{"upstream 404", http.StatusNotFound, `{}`, ErrNetwork},
		{"invalid json", http.StatusOK, `{"Search":`, ErrMalformed},
		{"wrong type", http.StatusOK, `{"Search":[{"Title":7,"imdbID":"tt1"}],"Response":"True"}`, ErrMalformed},
		{"missing id", http.StatusOK, `{"Search":[{"Title":"X"}],"Response":"True"}`, ErrMalformed},
		{"missing results", http.StatusOK, `{"Response":"True"}`, ErrMalformed},
		{"unknown response flag", http.StatusOK, `{"Search":[],"Response":"maybe"}`, ErrNotFound},
		{"missing response flag", http.StatusOK, `{"Search":[{"Title":"X","imdbID":"tt1"}]}`, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.Search(context.Background(), "anything")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Search error = %v, want %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrCanceled) {
				t.Fatalf("failure must not be reported as cancellation")
			}
		})
	}
}

func TestSearchCanceled(t *testing.T) {
	started := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.Search(ctx, "slow")
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("Search error = %v, want ErrCanceled", err)
	}
	var catalogErr *Error
	if errors.As(err, &catalogErr) {
		t.Fatalf("cancellation must not be a catalog *Error, got %v", catalogErr)
	}
}

func TestLookupSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("i"); got != "tt0100" {
			t.Errorf("i = %q, want tt0100", got)
		}
		_, _ = w.Write([]byte(`{"Title":"Example","Year":"1990","Released":"01 Jan 1990","Runtime":"142 min",
			"Genre":"Drama","Director":"Someone","Actors":"A, B","Plot":"Things happen.",
			"Poster":"https://img/p.jpg","imdbRating":"7.5","imdbID":"tt0100","Response":"True"}`))
	})

	detail, err := client.Lookup(context.Background(), "tt0100")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if detail.ID != "tt0100" || detail.Title != "Example" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if !detail.HasRuntime || detail.RuntimeMinutes != 142 {
		t.Fatalf("runtime = %d (%v), want 142", detail.RuntimeMinutes, detail.HasRuntime)
	}
	if !detail.HasCatalogRating || detail.CatalogRating != 7.5 {
		t.Fatalf("rating = %v (%v), want 7.5", detail.CatalogRating, detail.HasCatalogRating)
	}
}

func TestLookupNotAvailableFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Title":"Obscure","Runtime":"N/A","imdbRating":"N/A","imdbID":"tt9","Response":"True"}`))
	})

	detail, err := client.Lookup(context.Background(), "tt9")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if detail.HasRuntime || detail.HasCatalogRating {
		t.Fatalf("N/A values should be flagged as missing: %+v", detail)
	}
}

func TestLookupNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Response":"False","Error":"Incorrect IMDb ID."}`))
	})

	_, err := client.Lookup(context.Background(), "bogus")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup error = %v, want ErrNotFound", err)
	}
}

func TestLookupSharesConcurrentRequests(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"Title":"Shared","imdbID":"tt1","Response":"True"}`))
	})

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := client.Lookup(context.Background(), "tt1")
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Lookup: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("upstream calls = %d, want 1", got)
	}
}

func TestLookupSharedCallOutlivesFirstCaller(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		_, _ = w.Write([]byte(`{"Title":"Shared","imdbID":"tt1","Response":"True"}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Lookup(ctx, "tt1")
		firstErr <- err
	}()
	<-started

	type result struct {
		detail domain.MovieDetail
		err    error
	}
	second := make(chan result, 1)
	go func() {
		d, err := client.Lookup(context.Background(), "tt1")
		second <- result{d, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, ErrCanceled) {
		t.Fatalf("first caller error = %v, want ErrCanceled", err)
	}

	close(release)
	got := <-second
	if got.err != nil {
		t.Fatalf("joined caller inherited cancellation: %v", got.err)
	}
	if got.detail.Title != "Shared" {
		t.Fatalf("Title = %q, want Shared", got.detail.Title)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("upstream calls = %d, want 1", n)
	}
}

func TestRateLimitWaitHonoursCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Search":[],"Response":"True"}`))
	}, WithRateLimit(0.001, 1))

	if _, err := client.Search(context.Background(), "first"); err != nil {
		t.Fatalf("first search: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Search(ctx, "second"); !errors.Is(err, ErrCanceled) {
		t.Fatalf("throttled search error = %v, want ErrCanceled", err)
	}
}

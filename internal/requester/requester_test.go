// =============================================================================
// FILE: internal/requester/requester_test.go
// PURPOSE: Exercises priority ordering and the rate-limit floor.
// =============================================================================

package requester

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newTestRequester(t *testing.T, handler http.HandlerFunc) (*Requester, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	r := New(srv.Client(), "gbmm-test/1.0", nil)
	return r, srv
}

func TestRequestDecodesEnvelope(t *testing.T) {
	r, srv := newTestRequester(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><response><error>OK</error><limit>100</limit><offset>0</offset>` +
			`<number_of_page_results>1</number_of_page_results><number_of_total_results>1</number_of_total_results>` +
			`<status_code>1</status_code><version>1.0</version><results><video><id>7</id></video></results></response>`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	env, err := r.Request(ctx, srv.URL, Normal)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if env.Error != "OK" {
		t.Fatalf("Error = %q, want OK", env.Error)
	}
	if env.NumberOfTotalResults != 1 {
		t.Fatalf("NumberOfTotalResults = %d, want 1", env.NumberOfTotalResults)
	}
	if len(env.Results) == 0 {
		t.Fatalf("expected non-empty raw results body")
	}
}

// TestHighPriorityDispatchesBeforeNormal enqueues a normal-priority request
// first (while the worker is still sleeping out the rate-limit floor after
// a warmup dispatch), then a high-priority request right behind it, and
// asserts the high-priority one is dispatched first once both are queued
// simultaneously.
func TestHighPriorityDispatchesBeforeNormal(t *testing.T) {
	var mu sync.Mutex
	var order []string

	r, srv := newTestRequester(t, func(w http.ResponseWriter, req *http.Request) {
		mu.Lock()
		order = append(order, req.URL.Query().Get("tag"))
		mu.Unlock()
		w.Write([]byte(`<?xml version="1.0"?><response><results></results></response>`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Complete a warmup request first: the worker then sleeps out the
	// 1.1s floor before popping again, so both subsequent enqueues land in
	// the queues before either is popped.
	block := make(chan struct{})
	go func() {
		r.Request(ctx, srv.URL+"?tag=warmup", Low)
		close(block)
	}()
	<-block

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.Request(ctx, srv.URL+"?tag=normal", Normal)
	}()
	time.Sleep(20 * time.Millisecond)
	go func() {
		defer wg.Done()
		r.Request(ctx, srv.URL+"?tag=high", High)
	}()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) < 3 {
		t.Fatalf("expected 3 dispatches, got %d: %v", len(order), order)
	}
	foundHigh, foundNormal := -1, -1
	for i, tag := range order {
		if tag == "high" && foundHigh == -1 {
			foundHigh = i
		}
		if tag == "normal" && foundNormal == -1 {
			foundNormal = i
		}
	}
	if foundHigh == -1 || foundNormal == -1 {
		t.Fatalf("missing expected tags in order: %v", order)
	}
	if foundHigh > foundNormal {
		t.Fatalf("expected high priority dispatched before normal, order = %v", order)
	}
}

func TestDispatchFloorEnforced(t *testing.T) {
	r, srv := newTestRequester(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><response><results></results></response>`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	if _, err := r.Request(ctx, srv.URL, Normal); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := r.Request(ctx, srv.URL, Normal); err != nil {
		t.Fatalf("second request: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < minDispatchInterval {
		t.Fatalf("expected at least %v between two dispatches, got %v", minDispatchInterval, elapsed)
	}
}

// =============================================================================
// FILE: internal/resource/resource_test.go
// PURPOSE: Exercises pagination edge cases from spec.md §4.C/§8: zero-limit
//          never divides by zero, out-of-range Page is rejected, and
//          session-data round trips preserve cursor position.
// =============================================================================

package resource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"gbmm/internal/cache"
	"gbmm/internal/requester"
)

func envelopeXML(limit, offset, pageResults, totalResults int) string {
	return `<?xml version="1.0"?><response><error>OK</error>` +
		`<limit>` + strconv.Itoa(limit) + `</limit>` +
		`<offset>` + strconv.Itoa(offset) + `</offset>` +
		`<number_of_page_results>` + strconv.Itoa(pageResults) + `</number_of_page_results>` +
		`<number_of_total_results>` + strconv.Itoa(totalResults) + `</number_of_total_results>` +
		`<status_code>1</status_code><version>1.0</version><results></results></response>`
}

func newTestResource(t *testing.T, handler http.HandlerFunc) *ResourceSelect {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	req := requester.New(srv.Client(), "gbmm-test/1.0", nil)
	return New(req, srv.URL, "api_key", "testkey", "video", "/videos")
}

func TestTotalPagesNeverDividesByZero(t *testing.T) {
	r := newTestResource(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(envelopeXML(0, 0, 0, 42)))
	})
	ctx := context.Background()
	r.Limit(0)
	if _, err := r.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got := r.TotalPages(); got != 0 {
		t.Fatalf("TotalPages = %d, want 0 for limit=0", got)
	}
}

func TestPageOutOfRangeRejected(t *testing.T) {
	r := newTestResource(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(envelopeXML(10, 0, 0, 30)))
	})
	ctx := context.Background()

	if _, err := r.Page(ctx, 0); err == nil {
		t.Fatalf("expected error for page 0")
	}
	if _, err := r.Page(ctx, 99); err == nil {
		t.Fatalf("expected error for out-of-range page 99")
	}
}

func TestNextStopsAtEndOfResults(t *testing.T) {
	calls := 0
	r := newTestResource(t, func(w http.ResponseWriter, req *http.Request) {
		calls++
		w.Write([]byte(envelopeXML(10, 0, 10, 10)))
	})
	ctx := context.Background()
	r.Limit(10)

	if _, err := r.Next(ctx); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if _, err := r.Next(ctx); err != ErrEndOfResults {
		t.Fatalf("expected ErrEndOfResults on second Next, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 HTTP call, got %d", calls)
	}
}

func TestWithCacheAvoidsDuplicateRequest(t *testing.T) {
	calls := 0
	r := newTestResource(t, func(w http.ResponseWriter, req *http.Request) {
		calls++
		w.Write([]byte(envelopeXML(10, 0, 10, 100)))
	})
	c, err := cache.New(cache.ModeMemory, "")
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	r.WithCache(c).Limit(10)

	ctx := context.Background()
	if err := r.fetch(ctx); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if err := r.fetch(ctx); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected cache to absorb the second fetch, server saw %d calls", calls)
	}
}

func TestSessionDataRoundTrip(t *testing.T) {
	r := newTestResource(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(envelopeXML(10, 0, 10, 100)))
	})
	ctx := context.Background()
	r.Limit(10).Filter("filter", "id:1|2")

	if _, err := r.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}

	raw, err := r.ToSessionJSON()
	if err != nil {
		t.Fatalf("ToSessionJSON: %v", err)
	}

	restored, err := FromSessionJSON(r.req, "", "api_key", "testkey", "/videos", raw)
	if err != nil {
		t.Fatalf("FromSessionJSON: %v", err)
	}
	if restored.TotalResults() != 100 {
		t.Fatalf("TotalResults after restore = %d, want 100", restored.TotalResults())
	}
	if restored.filters["filter"] != "id:1|2" {
		t.Fatalf("filter not preserved across session round trip: %q", restored.filters["filter"])
	}
}

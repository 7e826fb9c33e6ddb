// =============================================================================
// FILE: internal/cache/cache_test.go
// PURPOSE: Exercises the New factory's mode dispatch (including the
//          disabled-means-nil-Cache contract) and ResourceKey's
//          filter-set-to-key shaping used by internal/resource's opt-in
//          GET cache.
// =============================================================================

package cache

import "testing"

func TestNewDisabledReturnsNilCache(t *testing.T) {
	for _, mode := range []Mode{ModeDisable, ""} {
		c, err := New(mode, t.TempDir())
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		if c != nil {
			t.Fatalf("New(%q) = %v, want nil Cache", mode, c)
		}
	}
}

func TestNewMemoryIsUsable(t *testing.T) {
	c, err := New(ModeMemory, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c == nil {
		t.Fatal("New(ModeMemory) returned a nil Cache")
	}
	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, ok := c.Get("k"); !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v, want \"v\", true", got, ok)
	}
}

func TestNewUnknownModeErrors(t *testing.T) {
	if _, err := New(Mode("bogus"), ""); err == nil {
		t.Fatal("expected an error for an unrecognised cache mode")
	}
}

func TestResourceKeyExcludesAPIKeyField(t *testing.T) {
	filters := map[string]string{"id": "42", "api_key": "super-secret"}
	key := ResourceKey("video", filters, "api_key")

	if key != "video?id=42" {
		t.Fatalf("ResourceKey = %q, want %q", key, "video?id=42")
	}
}

func TestResourceKeyStableRegardlessOfMapOrder(t *testing.T) {
	a := ResourceKey("video", map[string]string{"sort": "asc", "id": "1", "limit": "10"}, "api_key")
	b := ResourceKey("video", map[string]string{"limit": "10", "sort": "asc", "id": "1"}, "api_key")

	if a != b {
		t.Fatalf("ResourceKey not stable: %q != %q", a, b)
	}
	if a != "video?id=1&limit=10&sort=asc" {
		t.Fatalf("ResourceKey = %q, want sorted filter pairs", a)
	}
}

func TestResourceKeyDistinguishesResourceAndFilters(t *testing.T) {
	a := ResourceKey("video", map[string]string{"id": "1"}, "api_key")
	b := ResourceKey("image", map[string]string{"id": "1"}, "api_key")
	c := ResourceKey("video", map[string]string{"id": "2"}, "api_key")

	if a == b || a == c || b == c {
		t.Fatalf("expected distinct keys, got %q, %q, %q", a, b, c)
	}
}

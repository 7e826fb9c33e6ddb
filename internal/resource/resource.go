// =============================================================================
// FILE: internal/resource/resource.go
// PURPOSE: Stateful, filterable, paginated cursor over a single catalog
//          collection endpoint ("videos"). Implements spec.md §4.C as
//          ResourceSelect, grounded on original_source's
//          server/gb_api/resources/resource.py (MultipleResultResource)
//          and server/gb_api/__init__.py's ResourceSelect wrapper.
// =============================================================================

package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gbmm/internal/cache"
	"gbmm/internal/requester"
)

// cacheTTL bounds how long a single GET response may be served from
// cache before a fresh request is required. Short enough that a paused
// and quickly-resumed indexer job still observes near-live pagination
// state; long enough to absorb duplicate fetches during a retried page.
const cacheTTL = 30 * time.Second

// SortDirection mirrors the original's SortDirection enum.
type SortDirection int

const (
	Descending SortDirection = iota
	Ascending
)

// ErrInvalidPage is returned by Page for an out-of-range page number.
var ErrInvalidPage = errors.New("resource: invalid page number")

// ErrEndOfResults is returned by Next once the last page has been read.
var ErrEndOfResults = errors.New("resource: end of results")

// workingMetadata tracks the paging state derived from the most recent
// response envelope, matching original_source's ResponseMetadata.
type workingMetadata struct {
	Limit                int `json:"limit"`
	Offset               int `json:"offset"`
	NumberOfPageResults  int `json:"number_of_page_results"`
	NumberOfTotalResults int `json:"number_of_total_results"`
}

// SessionData is the JSON-serializable checkpoint of a ResourceSelect,
// consumed by the stateless /api/videos/browse handler and by indexer
// jobs to persist pagination progress across pause/resume (§4.F).
// Mirrors original_source's ResourceSessionData/ResourceSessionDataSchema.
type SessionData struct {
	ResourceName string           `json:"resource_name"`
	Metadata     *workingMetadata `json:"metadata"`
	Filters      map[string]string `json:"filters"`
}

// ResourceSelect is a chainable, paginated query against one catalog
// collection endpoint (spec.md §4.C). Not safe for concurrent use by
// multiple goroutines; a single indexer job owns one at a time.
type ResourceSelect struct {
	req          *requester.Requester
	baseURL      string
	apiKeyField  string
	apiKey       string
	resourceName string
	path         string
	priority     requester.Priority

	filters map[string]string
	meta    *workingMetadata
	started bool

	lastResults []byte
	respCache   cache.Cache
}

// New constructs a ResourceSelect for the collection at path (e.g.
// "/videos"), identified by resourceName for session-data round trips.
func New(req *requester.Requester, baseURL, apiKeyField, apiKey, resourceName, path string) *ResourceSelect {
	return &ResourceSelect{
		req:          req,
		baseURL:      baseURL,
		apiKeyField:  apiKeyField,
		apiKey:       apiKey,
		resourceName: resourceName,
		path:         path,
		priority:     requester.Normal,
		filters:      map[string]string{},
	}
}

// WithCache enables an opt-in short-TTL cache for GET responses, keyed on
// cache.ResourceKey (the resource name plus the filter set, without the
// API key). Disabled by default (c may be nil, which
// is a no-op). Useful for the stateless /api/videos/browse HTTP handler,
// where a page may be re-fetched across several requests in quick
// succession while a user paginates.
func (r *ResourceSelect) WithCache(c cache.Cache) *ResourceSelect {
	r.respCache = c
	return r
}

// Priority sets the dispatch priority used for subsequent requests.
func (r *ResourceSelect) Priority(p requester.Priority) *ResourceSelect {
	r.priority = p
	return r
}

// Filter sets one named filter value, matching
// ResourceFilterList.set's by-name lookup (any unknown name is accepted
// here since the catalog, not this client, validates filter names).
func (r *ResourceSelect) Filter(name, value string) *ResourceSelect {
	r.filters[name] = value
	return r
}

// ClearFilter removes a previously set filter.
func (r *ResourceSelect) ClearFilter(name string) *ResourceSelect {
	delete(r.filters, name)
	return r
}

// FieldList restricts the response to the given fields, matching the
// original's field_list(*args) flattening of str/list args into one
// comma-joined filter value.
func (r *ResourceSelect) FieldList(fields ...string) *ResourceSelect {
	return r.Filter("field_list", strings.Join(fields, ","))
}

// Sort sets the sort filter as "<field>:<asc|desc>".
func (r *ResourceSelect) Sort(field string, direction SortDirection) *ResourceSelect {
	dir := "desc"
	if direction == Ascending {
		dir = "asc"
	}
	return r.Filter("sort", field+":"+dir)
}

// Limit sets the page size.
func (r *ResourceSelect) Limit(n int) *ResourceSelect {
	return r.Filter("limit", strconv.Itoa(n))
}

// TotalResults is the total result count reported by the most recent
// response, or 0 before any request has been made.
func (r *ResourceSelect) TotalResults() int {
	if r.meta == nil {
		return 0
	}
	return r.meta.NumberOfTotalResults
}

// PageResults is the number of results on the current page.
func (r *ResourceSelect) PageResults() int {
	if r.meta == nil {
		return 0
	}
	return r.meta.NumberOfPageResults
}

// countFromBeginning mirrors count_from_beginning: offset + page results.
func (r *ResourceSelect) countFromBeginning() int {
	if r.meta == nil {
		return 0
	}
	return r.meta.Offset + r.meta.NumberOfPageResults
}

// CurrentPage returns the 1-based page number implied by the working
// metadata, or 0 before any request. Ceiling division, matching the
// original's `-(-a // b)` idiom.
func (r *ResourceSelect) CurrentPage() int {
	if r.meta == nil || r.meta.Limit <= 0 {
		return 0
	}
	return ceilDiv(r.countFromBeginning(), r.meta.Limit)
}

// TotalPages returns the total number of pages at the current limit, or
// 0 if limit is unset or zero — callers must never divide by limit
// directly (spec.md §4.C edge case: limit=0 means zero pages, not a
// divide-by-zero panic).
func (r *ResourceSelect) TotalPages() int {
	if r.meta == nil || r.meta.Limit <= 0 {
		return 0
	}
	return ceilDiv(r.meta.NumberOfTotalResults, r.meta.Limit)
}

// IsLastPage reports whether the working cursor has consumed all results.
func (r *ResourceSelect) IsLastPage() bool {
	if r.meta == nil {
		return false
	}
	return r.countFromBeginning() >= r.meta.NumberOfTotalResults
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return -(-a / b)
}

// Next fetches the next page using the current offset and limit, then
// advances the offset by limit. Returns ErrEndOfResults once IsLastPage
// is already true before the call.
func (r *ResourceSelect) Next(ctx context.Context) ([]byte, error) {
	if r.started && r.IsLastPage() {
		return nil, ErrEndOfResults
	}
	if err := r.fetch(ctx); err != nil {
		return nil, err
	}

	offset, limit := 0, 0
	if r.meta != nil {
		offset, limit = r.meta.Offset, r.meta.Limit
	}
	r.filters["offset"] = strconv.Itoa(offset + limit)
	return r.lastResults, nil
}

// Page retrieves a specific 1-based page number. If no request has been
// made yet, a zero-field metadata-only request is issued first to learn
// the limit/total so page bounds can be validated.
func (r *ResourceSelect) Page(ctx context.Context, pageNum int) ([]byte, error) {
	if !r.started {
		if err := r.queryMetadata(ctx); err != nil {
			return nil, err
		}
	}
	if pageNum < 1 {
		return nil, fmt.Errorf("%w: %d (minimum is 1)", ErrInvalidPage, pageNum)
	}
	totalPages := r.TotalPages()
	if totalPages > 0 && pageNum > totalPages {
		return nil, fmt.Errorf("%w: %d (larger than total page count %d)", ErrInvalidPage, pageNum, totalPages)
	}

	limit := 0
	if r.meta != nil {
		limit = r.meta.Limit
	}
	r.filters["offset"] = strconv.Itoa(limit*pageNum - limit)
	if r.meta != nil {
		r.meta.Offset = 0
		r.meta.NumberOfPageResults = 0
	}
	return r.Next(ctx)
}

// queryMetadata issues a field_list=None request purely to learn paging
// metadata, matching the original's query_metadata.
func (r *ResourceSelect) queryMetadata(ctx context.Context) error {
	saved, hadFieldList := r.filters["field_list"]
	if hadFieldList {
		r.filters["field_list"] = "None"
	}
	if err := r.fetch(ctx); err != nil {
		return err
	}
	if hadFieldList {
		r.filters["field_list"] = saved
	} else {
		delete(r.filters, "field_list")
	}
	return nil
}

// cachedEnvelope is the subset of requester.Envelope persisted in the
// opt-in response cache.
type cachedEnvelope struct {
	Limit                int    `json:"limit"`
	Offset               int    `json:"offset"`
	NumberOfPageResults  int    `json:"number_of_page_results"`
	NumberOfTotalResults int    `json:"number_of_total_results"`
	Results              []byte `json:"results"`
}

// fetch performs one HTTP round trip through the Requester and updates
// the working metadata and last results from the response envelope,
// consulting and populating the opt-in response cache around the call.
func (r *ResourceSelect) fetch(ctx context.Context) error {
	reqURL := r.buildURL()
	cacheKey := cache.ResourceKey(r.resourceName, r.filters, r.apiKeyField)

	if r.respCache != nil {
		if raw, ok := r.respCache.Get(cacheKey); ok {
			var ce cachedEnvelope
			if err := json.Unmarshal(raw, &ce); err == nil {
				r.meta = &workingMetadata{
					Limit:                ce.Limit,
					Offset:               ce.Offset,
					NumberOfPageResults:  ce.NumberOfPageResults,
					NumberOfTotalResults: ce.NumberOfTotalResults,
				}
				r.lastResults = ce.Results
				r.started = true
				return nil
			}
		}
	}

	env, err := r.req.Request(ctx, reqURL, r.priority)
	if err != nil {
		return fmt.Errorf("resource: request: %w", err)
	}
	r.meta = &workingMetadata{
		Limit:                env.Limit,
		Offset:               env.Offset,
		NumberOfPageResults:  env.NumberOfPageResults,
		NumberOfTotalResults: env.NumberOfTotalResults,
	}
	r.lastResults = env.Results
	r.started = true

	if r.respCache != nil {
		if raw, err := json.Marshal(cachedEnvelope{
			Limit:                env.Limit,
			Offset:               env.Offset,
			NumberOfPageResults:  env.NumberOfPageResults,
			NumberOfTotalResults: env.NumberOfTotalResults,
			Results:              env.Results,
		}); err == nil {
			_ = r.respCache.Set(cacheKey, raw, cacheTTL)
		}
	}
	return nil
}

func (r *ResourceSelect) buildURL() string {
	var b strings.Builder
	b.WriteString(r.baseURL)
	b.WriteString(r.path)
	b.WriteString("/?")
	for k, v := range r.filters {
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
		b.WriteByte('&')
	}
	b.WriteString(url.QueryEscape(r.apiKeyField))
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(r.apiKey))
	return b.String()
}

// ToSessionData captures the resource name, working metadata, and filter
// state for later reconstruction via FromSessionData.
func (r *ResourceSelect) ToSessionData() SessionData {
	filtersCopy := make(map[string]string, len(r.filters))
	for k, v := range r.filters {
		filtersCopy[k] = v
	}
	return SessionData{ResourceName: r.resourceName, Metadata: r.meta, Filters: filtersCopy}
}

// ToSessionJSON serializes ToSessionData for storage in a job record's
// opaque data column.
func (r *ResourceSelect) ToSessionJSON() (string, error) {
	b, err := json.Marshal(r.ToSessionData())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FromSessionData reconstructs a ResourceSelect's working state from a
// previously captured SessionData, for resuming a paused/recovered
// indexer job mid-pagination.
func FromSessionData(req *requester.Requester, baseURL, apiKeyField, apiKey, path string, data SessionData) *ResourceSelect {
	r := New(req, baseURL, apiKeyField, apiKey, data.ResourceName, path)
	r.meta = data.Metadata
	if data.Filters != nil {
		r.filters = data.Filters
	}
	r.started = r.meta != nil
	return r
}

// FromSessionJSON is the JSON-string counterpart of FromSessionData.
func FromSessionJSON(req *requester.Requester, baseURL, apiKeyField, apiKey, path, raw string) (*ResourceSelect, error) {
	var data SessionData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("resource: decode session data: %w", err)
	}
	return FromSessionData(req, baseURL, apiKeyField, apiKey, path, data), nil
}

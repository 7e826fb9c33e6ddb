// =============================================================================
// FILE: internal/requester/requester.go
// PURPOSE: Single-worker, rate-limited, priority-queued HTTP requester for
//          the upstream catalog API. Implements spec.md §4.B exactly:
//          three FIFO queues keyed by priority, strict priority pop, a
//          1.1s minimum inter-dispatch floor applied regardless of
//          outcome. Grounded directly on original_source's
//          server/requester.py; the caller supplies the *http.Client
//          (net/http) and the floor is a plain sleep in the worker loop.
// =============================================================================

package requester

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Priority selects which of the three FIFO queues a request lands on.
// Across levels, strict priority applies with no starvation protection:
// High may block Normal and Low indefinitely under heavy load, an
// accepted trade-off per spec.md §4.B.
type Priority int

const (
	Low Priority = iota
	Normal
	High
)

// minDispatchInterval is the global rate-limit floor (spec.md §4.B, §5).
const minDispatchInterval = 1100 * time.Millisecond

// Envelope is the upstream response envelope (spec.md §6): error/limit/
// offset/paging metadata plus the raw, not-yet-decoded <results> body.
// Per-kind decoding of Results happens in internal/store, which knows the
// entity shape statically (the §9 tagged-variant redesign).
type Envelope struct {
	Error                string `xml:"error"`
	Limit                int    `xml:"limit"`
	Offset               int    `xml:"offset"`
	NumberOfPageResults  int    `xml:"number_of_page_results"`
	NumberOfTotalResults int    `xml:"number_of_total_results"`
	StatusCode           int    `xml:"status_code"`
	Version              string `xml:"version"`
	Results              []byte `xml:"-"`
}

type rawEnvelope struct {
	XMLName              xml.Name `xml:"response"`
	Error                string   `xml:"error"`
	Limit                int      `xml:"limit"`
	Offset               int      `xml:"offset"`
	NumberOfPageResults  int      `xml:"number_of_page_results"`
	NumberOfTotalResults int      `xml:"number_of_total_results"`
	StatusCode           int      `xml:"status_code"`
	Version              string   `xml:"version"`
	Results              struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"results"`
}

// request is one enqueued unit of work, analogous to original_source's
// Request class: created/enqueued/requested/response timestamps plus a
// completion channel standing in for Python's threading.Condition. A
// channel is the right Go idiom here (not a mutex+condvar, unlike
// Messenger's broadcast case) because each request has exactly one
// producer and one consumer.
type request struct {
	url      string
	priority Priority
	done     chan struct{}
	envelope *Envelope
	err      error

	createdTime  time.Time
	enqueuedTime time.Time
}

// Requester is the single-flight, rate-limited, priority-queued HTTP
// fetcher described in spec.md §4.B.
type Requester struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	low       []*request
	normal    []*request
	high      []*request
	lastDispatch time.Time

	startOnce sync.Once
}

// New constructs a Requester bound to client, using userAgent on every
// outbound GET. The worker goroutine is started lazily on first use.
func New(client *http.Client, userAgent string, logger *slog.Logger) *Requester {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Requester{client: client, userAgent: userAgent, logger: logger.With("component", "requester")}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Start launches the worker goroutine. Safe to call multiple times; only
// the first call has effect. Request will also auto-start the worker, so
// calling Start explicitly is optional but makes startup ordering visible
// at the call site (e.g. in app wiring).
func (r *Requester) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		go r.run(ctx)
	})
}

// Request enqueues url at the given priority and blocks until the
// response is parsed or an error occurs.
func (r *Requester) Request(ctx context.Context, url string, priority Priority) (*Envelope, error) {
	r.Start(ctx)

	req := &request{url: url, priority: priority, done: make(chan struct{}), createdTime: time.Now()}

	r.mu.Lock()
	switch priority {
	case High:
		r.high = append(r.high, req)
	case Low:
		r.low = append(r.low, req)
	default:
		r.normal = append(r.normal, req)
	}
	req.enqueuedTime = time.Now()
	r.cond.Signal()
	r.mu.Unlock()

	select {
	case <-req.done:
		return req.envelope, req.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run is the single worker loop: pop highest-priority request, dispatch,
// enforce the rate-limit floor, repeat. Mirrors original_source's
// Requester.__processor exactly in control flow, except its FIFO queues
// are true FIFO (pop the head), not the source's list.pop()-from-the-end
// LIFO quirk — spec.md §4.B calls for FIFO within a priority level.
func (r *Requester) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		r.waitForDispatchFloor()

		r.mu.Lock()
		for len(r.high) == 0 && len(r.normal) == 0 && len(r.low) == 0 {
			r.cond.Wait()
			if ctx.Err() != nil {
				r.mu.Unlock()
				return
			}
		}

		var req *request
		switch {
		case len(r.high) > 0:
			req, r.high = r.high[0], r.high[1:]
		case len(r.normal) > 0:
			req, r.normal = r.normal[0], r.normal[1:]
		default:
			req, r.low = r.low[0], r.low[1:]
		}
		r.mu.Unlock()

		r.dispatch(ctx, req)
	}
}

// waitForDispatchFloor blocks until at least minDispatchInterval has
// elapsed since the previous dispatch, unconditionally of that dispatch's
// outcome (spec.md §4.B: "The 1.1-second floor is the rate-limit; it
// applies regardless of outcome").
func (r *Requester) waitForDispatchFloor() {
	r.mu.Lock()
	last := r.lastDispatch
	r.mu.Unlock()

	if last.IsZero() {
		return
	}
	elapsed := time.Since(last)
	if elapsed < minDispatchInterval {
		time.Sleep(minDispatchInterval - elapsed)
	}
}

func (r *Requester) dispatch(ctx context.Context, req *request) {
	defer func() {
		r.mu.Lock()
		r.lastDispatch = time.Now()
		r.mu.Unlock()
		close(req.done)
	}()

	req.envelope, req.err = r.do(ctx, req.url)
	if req.err != nil {
		r.logger.Debug("requester: request failed", "url", req.url, "error", req.err)
	}
}

func (r *Requester) do(ctx context.Context, url string) (*Envelope, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("requester: build request: %w", err)
	}
	httpReq.Header.Set("user-agent", r.userAgent)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("requester: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("requester: read body: %w", err)
	}

	var raw rawEnvelope
	if err := xml.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("requester: decode xml: %w", err)
	}

	return &Envelope{
		Error:                raw.Error,
		Limit:                raw.Limit,
		Offset:               raw.Offset,
		NumberOfPageResults:  raw.NumberOfPageResults,
		NumberOfTotalResults: raw.NumberOfTotalResults,
		StatusCode:           raw.StatusCode,
		Version:              raw.Version,
		Results:              raw.Results.Inner,
	}, nil
}

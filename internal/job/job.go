// =============================================================================
// FILE: internal/job/job.go
// PURPOSE: Process-local scheduler for durable, interruptible tasks
//          (spec.md §4.E). This is the systems-language redesign point
//          called for by the spec: Python's class-hierarchy-with-
//          overridden-methods registry becomes explicit Register() at
//          app-wiring time plus optional-interface capability
//          detection; mutable pause/stop booleans become a Token pulled
//          by the running goroutine. Grounded on
//          original_source/server/background_job.py for the state
//          machine semantics and the teacher's internal/worker/pool.go
//          for the Go concurrency idiom (goroutine-per-unit-of-work,
//          context-based cancellation).
// =============================================================================

package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"gbmm/internal/store"
	"gbmm/internal/worker"
)

// State mirrors store.JobState's values (NotStarted/Running/Paused/
// Stopped/Complete/Failed).
type State = store.JobState

const (
	NotStarted = store.JobNotStarted
	Running    = store.JobRunning
	Paused     = store.JobPaused
	Stopped    = store.JobStopped
	Complete   = store.JobComplete
	Failed     = store.JobFailed
)

// ErrIllegalTransition is raised for any state transition not in the
// table in spec.md §4.E, matching original_source's
// BackgroundJobException.
var ErrIllegalTransition = errors.New("job: illegal state transition")

// ErrAlreadyArchived is raised for any operation against a uuid whose
// record has already moved to the archive table.
var ErrAlreadyArchived = errors.New("job: already archived")

// ErrUnknownTag is raised by Start for a tag with no registered Factory.
var ErrUnknownTag = errors.New("job: unknown tag")

// ErrExclusivityConflict is raised by Start when another job in the same
// exclusivity group is Running or Paused (spec.md §4.F's per-indexer
// cross-job invariant, generalized here so internal/job stays agnostic
// of what "indexer" means).
var ErrExclusivityConflict = errors.New("job: another job in this group is already active")

// Token is pulled by a running job's goroutine to discover pause/stop
// requests and to acknowledge them at a safe point. One Token exists per
// in-flight job goroutine; it replaces the original's mutable
// __pause_requested/__stop_requested booleans with explicit methods.
type Token struct {
	uuid           string
	pauseRequested atomic.Bool
	stopRequested  atomic.Bool
	paused         chan struct{}
	stopped        chan struct{}
}

func newToken(uuid string) *Token {
	return &Token{uuid: uuid, paused: make(chan struct{}), stopped: make(chan struct{})}
}

// UUID returns the owning job record's uuid, for jobs that need to call
// back into the Manager (e.g. SetProgress, SetData) from within Run.
func (t *Token) UUID() string { return t.uuid }

// ShouldPause reports whether a pause has been requested and not yet
// acknowledged via CompletePause.
func (t *Token) ShouldPause() bool { return t.pauseRequested.Load() }

// ShouldStop reports whether a stop has been requested and not yet
// acknowledged via CompleteStop.
func (t *Token) ShouldStop() bool { return t.stopRequested.Load() }

// CompletePause acknowledges a pause request was honored at a safe
// checkpoint; the job's Run should return nil promptly afterward.
func (t *Token) CompletePause() {
	if t.pauseRequested.CompareAndSwap(true, false) {
		close(t.paused)
	}
}

// CompleteStop acknowledges a stop request was honored; the job's Run
// should return nil promptly afterward.
func (t *Token) CompleteStop() {
	if t.stopRequested.CompareAndSwap(true, false) {
		close(t.stopped)
	}
}

// Job is the required interface every registered job type implements.
type Job interface {
	// Run executes a fresh start of the job (state NotStarted → Running).
	Run(ctx context.Context, tok *Token) error
}

// Resumer is implemented by jobs that support resuming from Paused.
// Presence of this interface marks a registration Pauseable, mirroring
// the original's "presence of resume() ⇒ pauseable".
type Resumer interface {
	Resume(ctx context.Context, tok *Token, record *store.JobRecord) error
}

// Recoverer is implemented by jobs that support recovering a live record
// found at process startup. Presence of this interface marks a
// registration Recoverable, mirroring "presence of recover() ⇒
// recoverable".
type Recoverer interface {
	Recover(ctx context.Context, tok *Token, record *store.JobRecord) error
}

// Capabilities records which optional behaviors a registered job type
// supports, derived at Register time from which optional interfaces its
// Factory's product implements.
type Capabilities struct {
	Pauseable   bool
	Recoverable bool
}

// Factory constructs a fresh instance of a registered job type. Each
// Start/Resume/Recover call gets its own instance so job types may hold
// per-run state (e.g. a resource.ResourceSelect cursor) without locking.
type Factory func() Job

type registration struct {
	tag          string
	factory      Factory
	capabilities Capabilities
	group        string
}

var (
	registryMu sync.Mutex
	registry   = map[string]registration{}
)

// Register adds tag to the package-level registry, deriving Capabilities
// from a throwaway instance produced by factory. group is an
// exclusivity group name: Manager.Start refuses to start tag if any
// other job sharing the same non-empty group is Running or Paused
// (spec.md §4.F's cross-job invariant, generalized beyond the indexer
// pair). Pass an empty group for jobs with no such constraint.
//
// Called during app wiring (indexer.Register registers the two indexer
// jobs), before Manager.Startup runs its recovery scan.
func Register(tag string, factory Factory, group string) {
	sample := factory()
	_, canResume := sample.(Resumer)
	_, canRecover := sample.(Recoverer)

	registryMu.Lock()
	defer registryMu.Unlock()
	registry[tag] = registration{
		tag:     tag,
		factory: factory,
		capabilities: Capabilities{
			Pauseable:   canResume,
			Recoverable: canRecover,
		},
		group: group,
	}
}

func lookup(tag string) (registration, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	reg, ok := registry[tag]
	return reg, ok
}

// runningJob tracks one in-flight job instance.
type runningJob struct {
	mu    sync.Mutex
	uuid  string
	tag   string
	group string
	job   Job
	tok   *Token
	state State
	done  chan struct{}
}

// Manager owns the registry lookups, the live in-flight job table, and
// drives every persisted state transition through internal/store.
type Manager struct {
	db     *store.DB
	logger *slog.Logger

	mu      sync.Mutex
	running map[string]*runningJob
}

// NewManager constructs a Manager backed by db.
func NewManager(db *store.DB, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{db: db, logger: logger.With("component", "job_manager"), running: map[string]*runningJob{}}
}

// Start creates a fresh job record for tag and launches Run on its own
// goroutine. Returns the new job's uuid.
func (m *Manager) Start(ctx context.Context, tag string) (string, error) {
	reg, ok := lookup(tag)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}

	m.mu.Lock()
	if reg.group != "" {
		for _, rj := range m.running {
			if rj.group == reg.group && (rj.state == Running || rj.state == Paused) {
				m.mu.Unlock()
				return "", fmt.Errorf("%w: group %q already active (uuid %s)", ErrExclusivityConflict, reg.group, rj.uuid)
			}
		}
	}
	m.mu.Unlock()

	id := uuid.New().String()
	if err := m.db.WithSession(ctx, func(s *store.Session) error {
		return store.CreateJobRecord(ctx, s, id, tag, reg.capabilities.Pauseable, reg.capabilities.Recoverable)
	}); err != nil {
		return "", fmt.Errorf("job: create record: %w", err)
	}

	jobInstance := reg.factory()
	rj := &runningJob{uuid: id, tag: tag, group: reg.group, job: jobInstance, tok: newToken(id), state: Running, done: make(chan struct{})}

	m.mu.Lock()
	m.running[id] = rj
	m.mu.Unlock()

	if err := m.setState(ctx, id, Running); err != nil {
		return "", err
	}

	go m.drive(ctx, rj, func(ctx context.Context) error {
		return jobInstance.Run(ctx, rj.tok)
	})

	return id, nil
}

// Pause requests a cooperative pause of the Running job uuid. The
// request is acknowledged asynchronously when the job's goroutine calls
// Token.CompletePause at its next safe checkpoint.
func (m *Manager) Pause(uuid string) error {
	rj, err := m.get(uuid)
	if err != nil {
		return err
	}
	reg, _ := lookup(rj.tag)

	rj.mu.Lock()
	defer rj.mu.Unlock()
	if rj.state != Running {
		return fmt.Errorf("%w: job %s is not running", ErrIllegalTransition, uuid)
	}
	if !reg.capabilities.Pauseable {
		return fmt.Errorf("%w: job %s does not support pausing", ErrIllegalTransition, uuid)
	}
	if rj.tok.pauseRequested.Load() || rj.tok.stopRequested.Load() {
		return fmt.Errorf("%w: job %s is already pausing or stopping", ErrIllegalTransition, uuid)
	}
	rj.tok.pauseRequested.Store(true)
	return nil
}

// Stop requests a cooperative stop of a Running or Paused job. A pending
// pause is overridden, matching the original's stop()-overrides-pause
// rule. If the job is already Paused, the stop is applied immediately
// since there is no running goroutine left to drive it to completion.
func (m *Manager) Stop(ctx context.Context, uuid string) error {
	rj, err := m.get(uuid)
	if err != nil {
		return err
	}

	rj.mu.Lock()
	if rj.state != Running && rj.state != Paused {
		rj.mu.Unlock()
		return fmt.Errorf("%w: job %s was never started or already stopped", ErrIllegalTransition, uuid)
	}
	if rj.tok.stopRequested.Load() {
		rj.mu.Unlock()
		return fmt.Errorf("%w: job %s was already stopped", ErrIllegalTransition, uuid)
	}
	rj.tok.pauseRequested.Store(false)
	wasPaused := rj.state == Paused
	rj.tok.stopRequested.Store(true)
	rj.mu.Unlock()

	if wasPaused {
		return m.finish(ctx, rj, Stopped, nil)
	}
	return nil
}

// Resume restarts a Paused job from its checkpoint via the job type's
// Resume method, reconstructing state from the persisted record.
func (m *Manager) Resume(ctx context.Context, uuid string) error {
	rj, err := m.get(uuid)
	if err != nil {
		return err
	}
	reg, _ := lookup(rj.tag)
	if !reg.capabilities.Pauseable {
		return fmt.Errorf("%w: job %s is not pauseable", ErrIllegalTransition, uuid)
	}

	rj.mu.Lock()
	if rj.state != Paused {
		rj.mu.Unlock()
		return fmt.Errorf("%w: job %s is not paused", ErrIllegalTransition, uuid)
	}
	rj.job = reg.factory()
	rj.tok = newToken(uuid)
	rj.state = Running
	rj.mu.Unlock()

	if err := m.setState(ctx, uuid, Running); err != nil {
		return err
	}

	resumer, ok := rj.job.(Resumer)
	if !ok {
		return fmt.Errorf("%w: job %s's type does not implement Resume", ErrIllegalTransition, uuid)
	}
	var record *store.JobRecord
	if err := m.db.WithSession(ctx, func(s *store.Session) error {
		var err error
		record, err = store.GetJobRecord(ctx, s, uuid)
		return err
	}); err != nil {
		return fmt.Errorf("job: load record for resume: %w", err)
	}

	go m.drive(ctx, rj, func(ctx context.Context) error {
		return resumer.Resume(ctx, rj.tok, record)
	})
	return nil
}

// Fail marks uuid Failed and archives it. Used directly by Startup for
// non-recoverable live records found at process start.
func (m *Manager) Fail(ctx context.Context, uuid string, cause error) error {
	rj, err := m.get(uuid)
	if err != nil {
		return err
	}
	return m.finish(ctx, rj, Failed, cause)
}

// Recover spawns the job type's Recover method for a recoverable live
// record found at process startup, reconstructing the in-flight table
// entry since no goroutine was running for it before this process
// began.
func (m *Manager) Recover(ctx context.Context, record *store.JobRecord) error {
	reg, ok := lookup(record.Name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTag, record.Name)
	}
	jobInstance := reg.factory()
	recoverer, ok := jobInstance.(Recoverer)
	if !ok {
		return fmt.Errorf("job: registered tag %q is not Recoverable", record.Name)
	}

	rj := &runningJob{uuid: record.UUID, tag: record.Name, group: reg.group, job: jobInstance, tok: newToken(record.UUID), state: Running, done: make(chan struct{})}
	m.mu.Lock()
	m.running[record.UUID] = rj
	m.mu.Unlock()

	if err := m.setState(ctx, record.UUID, Running); err != nil {
		return err
	}

	go m.drive(ctx, rj, func(ctx context.Context) error {
		return recoverer.Recover(ctx, rj.tok, record)
	})
	return nil
}

// Startup performs the recovery scan described in spec.md §4.E: every
// live record is either recovered (if recoverable) or failed-and-
// archived (if not). Called once before the HTTP server begins
// accepting connections.
func (m *Manager) Startup(ctx context.Context) error {
	var live []*store.JobRecord
	if err := m.db.WithSession(ctx, func(s *store.Session) error {
		var err error
		live, err = store.ListJobRecords(ctx, s, "")
		return err
	}); err != nil {
		return fmt.Errorf("job: startup: list live records: %w", err)
	}

	var tasks []func(context.Context) error
	for _, rec := range live {
		if rec.State != Running && rec.State != Paused {
			continue
		}
		rec := rec
		if rec.Recoverable {
			tasks = append(tasks, func(ctx context.Context) error {
				if err := m.Recover(ctx, rec); err != nil {
					m.logger.Error("job: startup recovery failed", "uuid", rec.UUID, "name", rec.Name, "error", err)
				}
				return nil
			})
			continue
		}
		tasks = append(tasks, func(ctx context.Context) error {
			if err := m.db.WithSession(ctx, func(s *store.Session) error {
				return store.ArchiveJobRecord(ctx, s, rec.UUID, Failed)
			}); err != nil {
				m.logger.Error("job: startup archival of non-recoverable job failed", "uuid", rec.UUID, "error", err)
			}
			return nil
		})
	}

	// Recovery and archival of independent live records have no
	// ordering dependency on one another, so they run concurrently
	// through the same bounded worker pool the teacher uses elsewhere.
	worker.NewSimplePool(4).Run(ctx, tasks)
	return nil
}

// SetProgress writes a running job's progress counters to its record,
// holding the job's mutex while it does so.
func (m *Manager) SetProgress(ctx context.Context, uuid string, current, denominator int64) error {
	rj, err := m.get(uuid)
	if err != nil {
		return err
	}
	rj.mu.Lock()
	defer rj.mu.Unlock()
	return m.db.WithSession(ctx, func(s *store.Session) error {
		return store.SetJobProgress(ctx, s, uuid, current, denominator)
	})
}

// SetData persists a job's opaque checkpoint data, e.g. the JSON form of
// a resource.ResourceSelect's session data.
func (m *Manager) SetData(ctx context.Context, uuid, data string) error {
	return m.db.WithSession(ctx, func(s *store.Session) error {
		return store.SetJobData(ctx, s, uuid, data)
	})
}

// ActiveByTag returns the uuid of the in-flight job registered under tag,
// if one is Running or Paused. Used by the HTTP surface's
// get-indexer-state route to report the active indexer, if any, without
// the caller needing to track uuids itself.
func (m *Manager) ActiveByTag(tag string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rj := range m.running {
		if rj.tag == tag && (rj.state == Running || rj.state == Paused) {
			return rj.uuid, true
		}
	}
	return "", false
}

// Get returns the persisted record for uuid: the live record while the
// job is in flight, otherwise its archived record with the final state.
func (m *Manager) Get(ctx context.Context, uuid string) (*store.JobRecord, error) {
	var rec *store.JobRecord
	err := m.db.WithSession(ctx, func(s *store.Session) error {
		var err error
		rec, err = store.GetJobRecord(ctx, s, uuid)
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		var r store.JobRecord
		var pauseable, recoverable, state int
		if err := s.QueryRow(ctx, `SELECT uuid, name, pauseable, recoverable, state, progress_current, progress_denominator, data
			FROM background_job_archives WHERE uuid = ?`, uuid).Scan(&r.UUID, &r.Name, &pauseable, &recoverable, &state,
			&r.ProgressCurrent, &r.ProgressDenominator, &r.Data); err != nil {
			return err
		}
		r.Pauseable, r.Recoverable, r.State = pauseable != 0, recoverable != 0, store.JobState(state)
		rec = &r
		return nil
	})
	return rec, err
}

func (m *Manager) get(uuid string) (*runningJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rj, ok := m.running[uuid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyArchived, uuid)
	}
	return rj, nil
}

func (m *Manager) setState(ctx context.Context, uuid string, state State) error {
	return m.db.WithSession(ctx, func(s *store.Session) error {
		return store.SetJobState(ctx, s, uuid, state)
	})
}

// drive runs body to completion, observing pause/stop acknowledgements
// signaled via the job's Token, and finalizes the persisted state
// accordingly. This is the single place that interprets a job's return
// value against its Token to decide Complete vs Paused vs Stopped vs
// Failed.
func (m *Manager) drive(ctx context.Context, rj *runningJob, body func(context.Context) error) {
	defer close(rj.done)

	err := body(ctx)

	pauseAcked := pauseWasRequestedAndCleared(rj.tok)
	stopAcked := stopWasRequestedAndCleared(rj.tok)

	switch {
	case err != nil:
		if finishErr := m.finish(ctx, rj, Failed, err); finishErr != nil {
			m.logger.Error("job: failed to archive failed job", "uuid", rj.uuid, "error", finishErr)
		}
	case stopAcked:
		if finishErr := m.finish(ctx, rj, Stopped, nil); finishErr != nil {
			m.logger.Error("job: failed to archive stopped job", "uuid", rj.uuid, "error", finishErr)
		}
	case pauseAcked:
		rj.mu.Lock()
		rj.state = Paused
		rj.mu.Unlock()
		if err := m.setState(ctx, rj.uuid, Paused); err != nil {
			m.logger.Error("job: failed to persist paused state", "uuid", rj.uuid, "error", err)
		}
	default:
		if finishErr := m.finish(ctx, rj, Complete, nil); finishErr != nil {
			m.logger.Error("job: failed to archive completed job", "uuid", rj.uuid, "error", finishErr)
		}
	}
}

// pauseWasRequestedAndCleared/stopWasRequestedAndCleared detect that a
// CompletePause/CompleteStop call already closed the corresponding
// channel, distinguishing "the job returned because it honored a pause/
// stop request" from "the job returned because its work was done".
func pauseWasRequestedAndCleared(tok *Token) bool {
	select {
	case <-tok.paused:
		return true
	default:
		return false
	}
}

func stopWasRequestedAndCleared(tok *Token) bool {
	select {
	case <-tok.stopped:
		return true
	default:
		return false
	}
}

// finish moves uuid's record to Failed/Stopped/Complete and archives it
// atomically, then removes it from the in-flight table. Safe to call at
// most once per job lifetime; a second call fails with sql.ErrNoRows
// because the live record is already gone.
func (m *Manager) finish(ctx context.Context, rj *runningJob, final State, cause error) error {
	rj.mu.Lock()
	rj.state = final
	rj.mu.Unlock()

	if cause != nil {
		m.logger.Warn("job: finished with error", "uuid", rj.uuid, "tag", rj.tag, "error", cause)
	}

	err := m.db.WithSession(ctx, func(s *store.Session) error {
		return store.ArchiveJobRecord(ctx, s, rj.uuid, final)
	})

	m.mu.Lock()
	delete(m.running, rj.uuid)
	m.mu.Unlock()

	return err
}

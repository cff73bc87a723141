package http

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

const (
	defaultRunHistory = 100
	defaultMaxRunning = 4
)

var errTooManyRuns = errors.New("too many batch runs in progress, retry later")

// Batch run states reported by GET /api/ingest/runs/{runID}.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// batchRun is the status of one triggered batch.
type batchRun struct {
	RunID      string              `json:"run_id"`
	Status     string              `json:"status"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	Result     *domain.BatchResult `json:"result,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// runRegistry tracks background batch runs and lets shutdown wait for
// in-flight runs. At most maxRunning runs execute at once; finished runs are
// kept until the registry holds more than limit entries, oldest evicted first.
// Running entries are never evicted.
type runRegistry struct {
	mu         sync.Mutex
	runs       map[string]*batchRun
	order      []string
	limit      int
	maxRunning int
	running    int
	wg         sync.WaitGroup
}

func newRunRegistry(limit, maxRunning int) *runRegistry {
	if maxRunning > limit {
		maxRunning = limit
	}
	return &runRegistry{runs: make(map[string]*batchRun), limit: limit, maxRunning: maxRunning}
}

// start records a running batch and launches fn in a goroutine. It returns
// errTooManyRuns without starting fn when maxRunning runs are in flight.
func (r *runRegistry) start(runID string, fn func() (domain.BatchResult, error)) error {
	r.mu.Lock()
	if r.running >= r.maxRunning {
		r.mu.Unlock()
		return errTooManyRuns
	}
	r.running++
	r.runs[runID] = &batchRun{RunID: runID, Status: RunRunning, StartedAt: time.Now().UTC()}
	r.order = append(r.order, runID)
	r.evictFinished()
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		result, err := fn()
		r.finish(runID, result, err)
	}()
	return nil
}

// evictFinished drops the oldest finished runs until at most limit remain.
// Callers hold mu.
func (r *runRegistry) evictFinished() {
	excess := len(r.order) - r.limit
	if excess <= 0 {
		return
	}
	kept := r.order[:0]
	for _, id := range r.order {
		if excess > 0 && r.runs[id].Status != RunRunning {
			delete(r.runs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

func (r *runRegistry) finish(runID string, result domain.BatchResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running--
	run, ok := r.runs[runID]
	if !ok {
		return
	}
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Result = &result
	run.Status = RunCompleted
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
	}
}

// get returns a copy of the run's current state.
func (r *runRegistry) get(runID string) (batchRun, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return batchRun{}, false
	}
	return *run, true
}

// wait blocks until every started run finishes or ctx is done.
func (r *runRegistry) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

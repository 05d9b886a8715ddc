// Package batch runs many recommendation keys with bounded concurrency.
// Jobs share nothing but read-only inputs, so one failing key never affects
// another.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ghostbuild/internal/pipeline"
	"ghostbuild/internal/render"
)

// DefaultConcurrency is used when Runner.Concurrency is not positive
const DefaultConcurrency = 4

// Status is a job lifecycle stage
type Status string

const (
	StatusStarted Status = "started"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Event reports a job state change
type Event struct {
	JobID  string           `json:"job_id"`
	Key    pipeline.Key     `json:"key"`
	Status Status           `json:"status"`
	Record *pipeline.Record `json:"record,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Result is the outcome of one key
type Result struct {
	JobID  string
	Key    pipeline.Key
	Record *pipeline.Record
	Err    error
}

// Summary collects every result in the order the keys were given
type Summary struct {
	Results []Result
	Done    int
	Failed  int
	Elapsed time.Duration
}

// JobRecorder counts finished jobs
type JobRecorder interface {
	RecordBatchJob(failed bool)
}

// Runner executes pipeline.Run for each key
type Runner struct {
	Source      pipeline.Source
	Options     pipeline.Options
	Concurrency int
	// OutDir, when set, receives <key>_build.json and <key>_build.md per success
	OutDir   string
	Logger   zerolog.Logger
	Recorder JobRecorder
}

// Run processes keys and blocks until every job has finished. emit may be nil;
// calls to it are serialized.
func (r *Runner) Run(ctx context.Context, keys []pipeline.Key, emit func(Event)) Summary {
	start := time.Now()
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var mu sync.Mutex
	send := func(ev Event) {
		if emit == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		emit(ev)
	}

	results := make([]Result, len(keys))
	g := errgroup.Group{}
	g.SetLimit(limit)

	for i, key := range keys {
		g.Go(func() error {
			id := uuid.NewString()
			send(Event{JobID: id, Key: key, Status: StatusStarted})

			rec, err := r.runOne(ctx, key)
			results[i] = Result{JobID: id, Key: key, Record: rec, Err: err}

			if r.Recorder != nil {
				r.Recorder.RecordBatchJob(err != nil)
			}
			if err != nil {
				r.Logger.Warn().Err(err).Str("job", id).Str("key", key.Base()).Msg("batch job failed")
				send(Event{JobID: id, Key: key, Status: StatusFailed, Error: err.Error()})
				return nil
			}
			send(Event{JobID: id, Key: key, Status: StatusDone, Record: rec})
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Results: results, Elapsed: time.Since(start)}
	for _, res := range results {
		if res.Err != nil {
			sum.Failed++
		} else {
			sum.Done++
		}
	}
	r.Logger.Info().
		Int("jobs", len(keys)).
		Int("done", sum.Done).
		Int("failed", sum.Failed).
		Dur("elapsed", sum.Elapsed).
		Msg("batch finished")
	return sum
}

func (r *Runner) runOne(ctx context.Context, key pipeline.Key) (*pipeline.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := pipeline.Run(ctx, r.Source, key, r.Options)
	if err != nil {
		return nil, err
	}
	if r.OutDir == "" {
		return rec, nil
	}

	if _, err := pipeline.SaveRecord(pipeline.RecordPath(r.OutDir, key), rec); err != nil {
		return nil, fmt.Errorf("failed to save record: %w", err)
	}
	if err := render.WriteFile(render.CardPath(r.OutDir, key), render.BuildCard(rec)); err != nil {
		return nil, fmt.Errorf("failed to save card: %w", err)
	}
	return rec, nil
}

// Keys expands champions into keys sharing mode, tier and window
func Keys(champions []string, mode, tier, window string) []pipeline.Key {
	keys := make([]pipeline.Key, 0, len(champions))
	for _, c := range champions {
		if c == "" {
			continue
		}
		keys = append(keys, pipeline.Key{Champion: c, Mode: mode, Tier: tier, Window: window})
	}
	return keys
}

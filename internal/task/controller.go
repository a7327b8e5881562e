// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"twinscan/internal/aggregate"
	"twinscan/internal/document"
	"twinscan/internal/filter"
	"twinscan/internal/matcher"
	"twinscan/internal/observability"
	"twinscan/internal/progress"
	"twinscan/internal/sequence"
)

// ControllerConfig sizes the worker pool and the retention window.
type ControllerConfig struct {
	// Workers is the number of concurrent comparisons. Tasks beyond
	// capacity queue as Pending.
	Workers int

	// QueueSize bounds the pending queue.
	QueueSize int

	// Retention is how long terminal tasks stay queryable.
	Retention time.Duration

	// SweepInterval is how often eviction runs.
	SweepInterval time.Duration
}

func (c *ControllerConfig) applyDefaults() {
	if c.Workers < 1 {
		c.Workers = 2
	}
	if c.QueueSize < 1 {
		c.QueueSize = 256
	}
	if c.Retention <= 0 {
		c.Retention = time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
}

// Controller owns the task registry and the bounded worker pool. It is the
// only component that starts, observes or cancels a comparison.
type Controller struct {
	registry    *Registry
	broadcaster *progress.Broadcaster
	extractor   document.Extractor
	observer    *observability.Observer
	cfg         ControllerConfig

	jobs chan *Task
	wg   sync.WaitGroup
	stop chan struct{}

	mu      sync.Mutex
	stopped bool
}

// NewController wires the controller. Start must be called before Submit.
func NewController(reg *Registry, bc *progress.Broadcaster, ext document.Extractor, obs *observability.Observer, cfg ControllerConfig) *Controller {
	cfg.applyDefaults()
	return &Controller{
		registry:    reg,
		broadcaster: bc,
		extractor:   ext,
		observer:    obs,
		cfg:         cfg,
		jobs:        make(chan *Task, cfg.QueueSize),
		stop:        make(chan struct{}),
	}
}

// Start launches the worker pool and the retention sweeper.
func (c *Controller) Start() {
	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	c.wg.Add(1)
	go c.sweeper()
}

// Stop drains the pool. Queued tasks still run; new submissions are rejected.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()
	close(c.stop)
	close(c.jobs)
	c.wg.Wait()
}

// Submit validates the request, registers a Pending task and queues it.
// Invalid parameters are rejected synchronously and never produce a task.
func (c *Controller) Submit(params Params, path1, path2 string) (string, error) {
	normalizeParams(&params)
	if err := params.Validate(); err != nil {
		return "", err
	}

	t := newTask(uuid.NewString(), params, path1, path2)
	c.registry.add(t)
	c.broadcaster.Track(t.ID)
	c.broadcaster.Publish(progress.Update{
		TaskID:      t.ID,
		Progress:    0,
		Message:     "task queued",
		CurrentStep: "queued",
		Status:      string(StatusPending),
	})

	// The enqueue happens under the same lock Stop uses to flip stopped, so
	// a concurrent shutdown can never close jobs out from under the send.
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		c.rollback(t.ID)
		return "", errors.New("controller stopped")
	}
	select {
	case c.jobs <- t:
		c.mu.Unlock()
		return t.ID, nil
	default:
		c.mu.Unlock()
		c.rollback(t.ID)
		return "", errors.New("task queue full")
	}
}

func (c *Controller) rollback(id string) {
	c.registry.Remove(id)
	c.broadcaster.Forget(id)
}

// Status returns a task snapshot.
func (c *Controller) Status(id string) (Snapshot, error) {
	t, err := c.registry.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return t.Snapshot(), nil
}

// Result returns the comparison result of a completed task.
func (c *Controller) Result(id string) (*Result, error) {
	t, err := c.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return t.Result()
}

// Cancel requests cooperative cancellation. A no-op on terminal tasks.
func (c *Controller) Cancel(id string) error {
	t, err := c.registry.Get(id)
	if err != nil {
		return err
	}
	t.Cancel()
	return nil
}

// Delete removes a task and its result. Idempotent: deleting an unknown id
// succeeds silently.
func (c *Controller) Delete(id string) {
	if t, err := c.registry.Get(id); err == nil {
		t.Cancel()
	}
	c.registry.Remove(id)
	c.broadcaster.Forget(id)
}

// Subscribe attaches a push subscriber to a task's progress stream.
func (c *Controller) Subscribe(id string) (<-chan progress.Update, func(), error) {
	if _, err := c.registry.Get(id); err != nil {
		return nil, nil, err
	}
	ch, cancel := c.broadcaster.Subscribe(id)
	return ch, cancel, nil
}

func (c *Controller) worker() {
	defer c.wg.Done()
	for t := range c.jobs {
		c.run(t)
	}
}

func (c *Controller) sweeper() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			for _, id := range c.registry.sweep(c.cfg.Retention, now) {
				c.broadcaster.Forget(id)
			}
		}
	}
}

// run drives one task through the pipeline. A panic anywhere in the pipeline
// becomes a task Error; it never takes a worker down.
func (c *Controller) run(t *Task) {
	finish := c.observer.StartTiming("controller", "run_task", t.ID)

	if t.ctx.Err() != nil {
		// Cancelled while still queued.
		t.finish(StatusCancelled, "", nil)
		c.publishTerminal(t)
		finish(false, nil)
		return
	}
	if err := t.claim(); err != nil {
		finish(false, map[string]interface{}{"conflict": true})
		return
	}

	start := time.Now()
	res, err := c.runPipeline(t)
	switch {
	case err == nil:
		res.ProcessingSeconds = time.Since(start).Seconds()
		t.finish(StatusCompleted, "", res)
	case errors.Is(err, context.Canceled):
		t.finish(StatusCancelled, "", nil)
	default:
		t.finish(StatusError, err.Error(), nil)
	}
	c.publishTerminal(t)

	snap := t.Snapshot()
	finish(snap.Status == StatusCompleted, map[string]interface{}{"status": string(snap.Status)})
}

func (c *Controller) runPipeline(t *Task) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &document.ComputationError{Stage: "pipeline", Err: fmt.Errorf("%v", r)}
		}
	}()

	stream1, seqs1, stats1, err := c.prepare(t, t.Path1, t.Params.PageRange1, 2, "extracting first document")
	if err != nil {
		return nil, err
	}
	c.publishProgress(t, 15, "first document indexed", "indexing")

	stream2, seqs2, stats2, err := c.prepare(t, t.Path2, t.Params.PageRange2, 15, "extracting second document")
	if err != nil {
		return nil, err
	}
	c.publishProgress(t, 30, "detecting similarities", "matching")

	mp := matcher.Params{
		Threshold:  t.Params.SimilarityThreshold,
		Mode:       t.Params.ProcessingMode,
		MaxMatches: t.Params.MaxMatches,
	}
	onProgress := func(evaluated, total int64) {
		pct := 30
		if total > 0 {
			pct += int(float64(evaluated) / float64(total) * 65)
		}
		c.publishProgress(t, pct, "comparing sequences", "matching")
	}
	candidates, evaluated, err := matcher.Find(t.ctx, seqs1, seqs2, mp, onProgress)
	if err != nil {
		return nil, err
	}

	c.publishProgress(t, 96, "aggregating matches", "aggregation")
	kept, stats := aggregate.Reduce(candidates, t.Params.MaxMatches, t.Params.SequenceLength, evaluated)

	matches := make([]Match, 0, len(kept))
	for _, cand := range kept {
		matches = append(matches, buildMatch(cand, stream1, stream2, t.Params))
	}

	return &Result{
		TaskID:     t.ID,
		Params:     t.Params,
		File1Stats: stats1,
		File2Stats: stats2,
		Statistics: stats,
		Matches:    matches,
	}, nil
}

// prepare runs extraction, filtering and indexing for one document.
func (c *Controller) prepare(t *Task, path string, pr *document.PageRange, base int, msg string) (*sequence.Stream, []sequence.Sequence, document.Stats, error) {
	c.publishProgress(t, base, msg, "extraction")
	finish := c.observer.StartTiming("pipeline", "prepare_document", t.ID)
	start := time.Now()

	var stats document.Stats
	doc, err := c.extractor.Extract(path)
	if err != nil {
		finish(false, nil)
		return nil, nil, stats, err
	}
	if err := t.ctx.Err(); err != nil {
		finish(false, nil)
		return nil, nil, stats, err
	}

	filtered := filter.Apply(doc, filter.Options{
		Policy:               t.Params.FilterPolicy,
		MinLineLength:        t.Params.MinLineLength,
		RemoveDuplicateLines: true,
	})

	stream, err := sequence.Tokenize(filtered, pr)
	if err != nil {
		finish(false, nil)
		return nil, nil, stats, err
	}
	seqs, err := sequence.Index(stream, t.Params.SequenceLength, t.Params.ProcessingMode.Stride())
	if err != nil {
		finish(false, nil)
		return nil, nil, stats, err
	}

	stats = document.Stats{
		Path:           path,
		FileSizeMB:     fileSizeMB(path),
		TotalPages:     doc.Pages,
		TotalLines:     len(doc.Lines),
		KeptLines:      len(filtered.Lines),
		FilteredLines:  len(doc.Lines) - len(filtered.Lines),
		TotalUnits:     stream.Len(),
		ProcessSeconds: time.Since(start).Seconds(),
	}
	finish(true, map[string]interface{}{"units": stream.Len(), "sequences": len(seqs)})
	return stream, seqs, stats, nil
}

func buildMatch(cand matcher.Candidate, stream1, stream2 *sequence.Stream, params Params) Match {
	l := params.SequenceLength
	before1, after1 := stream1.Context(cand.Seq1.Offset, cand.Seq1.Offset+l, params.ContextChars)
	before2, after2 := stream2.Context(cand.Seq2.Offset, cand.Seq2.Offset+l, params.ContextChars)
	return Match{
		Sequence1:  cand.Seq1.Text,
		Sequence2:  cand.Seq2.Text,
		Similarity: cand.Similarity,
		Position1: document.Position{
			Page: cand.Seq1.Page, Line: cand.Seq1.Line, Offset: cand.Seq1.Offset,
		},
		Position2: document.Position{
			Page: cand.Seq2.Page, Line: cand.Seq2.Line, Offset: cand.Seq2.Offset,
		},
		Context1:    Context{Before: before1, After: after1},
		Context2:    Context{Before: before2, After: after2},
		Differences: matcher.Differences(cand.Seq1.Text, cand.Seq2.Text),
	}
}

func (c *Controller) publishProgress(t *Task, p int, msg, step string) {
	pct, ok := t.setProgress(p, msg, step)
	if !ok {
		return
	}
	c.broadcaster.Publish(progress.Update{
		TaskID:      t.ID,
		Progress:    pct,
		Message:     msg,
		CurrentStep: step,
		Status:      string(StatusProcessing),
	})
}

func (c *Controller) publishTerminal(t *Task) {
	snap := t.Snapshot()
	c.broadcaster.Publish(progress.Update{
		TaskID:      t.ID,
		Progress:    snap.Progress,
		Message:     snap.Message,
		CurrentStep: "done",
		Status:      string(snap.Status),
		Terminal:    true,
	})
}

func normalizeParams(p *Params) {
	d := DefaultParams()
	if p.SimilarityThreshold == 0 {
		p.SimilarityThreshold = d.SimilarityThreshold
	}
	if p.SequenceLength == 0 {
		p.SequenceLength = d.SequenceLength
	}
	if p.FilterPolicy == "" {
		p.FilterPolicy = d.FilterPolicy
	}
	if p.ProcessingMode == "" {
		p.ProcessingMode = d.ProcessingMode
	}
	if p.MaxMatches == 0 {
		p.MaxMatches = d.MaxMatches
	}
	// ContextChars and MinLineLength stay as given: zero is a valid request
	// (no context, keep every line), not an absent field.
}

func fileSizeMB(path string) float64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return float64(info.Size()) / (1024 * 1024)
}

// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"twinscan/internal/document"
	"twinscan/internal/filter"
	"twinscan/internal/matcher"
	"twinscan/internal/observability"
	"twinscan/internal/progress"
)

// fakeExtractor serves canned documents keyed by path. A non-nil gate blocks
// every Extract call until the gate is closed.
type fakeExtractor struct {
	docs map[string]*document.Document
	errs map[string]error
	gate chan struct{}
}

func (f *fakeExtractor) Extract(path string) (*document.Document, error) {
	if f.gate != nil {
		<-f.gate
	}
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	doc, ok := f.docs[path]
	if !ok {
		return nil, &document.ExtractionError{Path: path, Err: errors.New("no such document")}
	}
	return doc, nil
}

func textDoc(path string, lines ...string) *document.Document {
	doc := &document.Document{Path: path, Pages: 1}
	for i, text := range lines {
		doc.Lines = append(doc.Lines, document.Line{Page: 1, Line: i + 1, Text: text})
	}
	return doc
}

func newTestController(t *testing.T, ext document.Extractor) (*Controller, *progress.Broadcaster) {
	t.Helper()
	bc := progress.NewBroadcaster()
	c := NewController(NewRegistry(), bc, ext, observability.NewObserver(observability.LevelOff, nil), ControllerConfig{
		Workers:       1,
		QueueSize:     8,
		Retention:     time.Hour,
		SweepInterval: time.Hour,
	})
	c.Start()
	t.Cleanup(c.Stop)
	return c, bc
}

// awaitTerminal drains the subscription until the task reaches a terminal
// state, checking progress monotonicity along the way.
func awaitTerminal(t *testing.T, updates <-chan progress.Update) progress.Update {
	t.Helper()
	last := -1
	deadline := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				t.Fatal("progress stream closed before a terminal update")
			}
			if u.Progress < last {
				t.Errorf("progress went backwards: %d after %d", u.Progress, last)
			}
			last = u.Progress
			if u.Terminal {
				return u
			}
		case <-deadline:
			t.Fatal("task never reached a terminal state")
		}
	}
}

func sharedParams() Params {
	p := DefaultParams()
	p.SimilarityThreshold = 0.75
	p.SequenceLength = 4
	p.ProcessingMode = matcher.Standard
	p.FilterPolicy = filter.AllContent
	return p
}

func TestControllerCompletedFlow(t *testing.T) {
	shared := "the quick brown fox jumps over the lazy dog tonight"
	ext := &fakeExtractor{docs: map[string]*document.Document{
		"a.txt": textDoc("a.txt", shared, "some filler content unique to the first document"),
		"b.txt": textDoc("b.txt", "entirely different opening line for the second file", shared),
	}}
	c, _ := newTestController(t, ext)

	id, err := c.Submit(sharedParams(), "a.txt", "b.txt")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	updates, cancelSub, err := c.Subscribe(id)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancelSub()

	final := awaitTerminal(t, updates)
	if final.Status != string(StatusCompleted) {
		t.Fatalf("terminal status = %s, want completed", final.Status)
	}
	if final.Progress != 100 {
		t.Errorf("terminal progress = %d, want 100", final.Progress)
	}

	result, err := c.Result(id)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if len(result.Matches) == 0 {
		t.Fatal("documents with a shared sentence produced no matches")
	}
	for i := 1; i < len(result.Matches); i++ {
		if result.Matches[i].Similarity > result.Matches[i-1].Similarity {
			t.Errorf("matches not ranked: %v after %v",
				result.Matches[i].Similarity, result.Matches[i-1].Similarity)
		}
	}
	best := result.Matches[0]
	if best.Similarity != 1.0 {
		t.Errorf("best similarity = %v, want 1.0 for identical sentence", best.Similarity)
	}
	if best.Position1.Page != 1 || best.Position2.Page != 1 {
		t.Errorf("match positions = %+v / %+v", best.Position1, best.Position2)
	}
	if result.Statistics.MatchesFound != len(result.Matches) {
		t.Errorf("statistics count %d != %d reported matches",
			result.Statistics.MatchesFound, len(result.Matches))
	}
	if result.ProcessingSeconds < 0 {
		t.Errorf("processing time = %v", result.ProcessingSeconds)
	}
	if result.File1Stats.TotalLines != 2 || result.File2Stats.TotalLines != 2 {
		t.Errorf("file stats lines = %d / %d, want 2 / 2",
			result.File1Stats.TotalLines, result.File2Stats.TotalLines)
	}
}

func TestControllerExtractionError(t *testing.T) {
	ext := &fakeExtractor{
		docs: map[string]*document.Document{
			"good.txt": textDoc("good.txt", "a perfectly readable document line here"),
		},
		errs: map[string]error{
			"broken.pdf": &document.ExtractionError{Path: "broken.pdf", Err: errors.New("corrupt xref table")},
		},
	}
	c, _ := newTestController(t, ext)

	id, err := c.Submit(sharedParams(), "broken.pdf", "good.txt")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	updates, cancelSub, _ := c.Subscribe(id)
	defer cancelSub()

	final := awaitTerminal(t, updates)
	if final.Status != string(StatusError) {
		t.Fatalf("terminal status = %s, want error", final.Status)
	}

	snap, err := c.Status(id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !strings.Contains(snap.Error, "extraction failed") {
		t.Errorf("error detail = %q, want extraction failure", snap.Error)
	}
	if _, err := c.Result(id); !errors.Is(err, document.ErrNotReady) {
		t.Errorf("Result on failed task = %v, want ErrNotReady", err)
	}
}

func TestControllerCancellation(t *testing.T) {
	gate := make(chan struct{})
	ext := &fakeExtractor{
		docs: map[string]*document.Document{
			"a.txt": textDoc("a.txt", "first document content that is long enough"),
			"b.txt": textDoc("b.txt", "second document content that is long enough"),
		},
		gate: gate,
	}
	c, _ := newTestController(t, ext)

	id, err := c.Submit(sharedParams(), "a.txt", "b.txt")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	updates, cancelSub, _ := c.Subscribe(id)
	defer cancelSub()

	// Wait until the worker picked the task up, then cancel mid-extraction.
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := c.Status(id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if snap.Status == StatusProcessing {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("task never started processing")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := c.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	close(gate)

	final := awaitTerminal(t, updates)
	if final.Status != string(StatusCancelled) {
		t.Fatalf("terminal status = %s, want cancelled", final.Status)
	}
	if _, err := c.Result(id); !errors.Is(err, document.ErrNotReady) {
		t.Errorf("Result on cancelled task = %v, want ErrNotReady", err)
	}
}

func TestControllerRejectsInvalidParams(t *testing.T) {
	c, _ := newTestController(t, &fakeExtractor{})
	p := DefaultParams()
	p.SimilarityThreshold = 2.0
	if _, err := c.Submit(p, "a.txt", "b.txt"); !document.IsUsageError(err) {
		t.Errorf("Submit with bad threshold = %v, want usage error", err)
	}
}

func TestControllerPageRangePastDocument(t *testing.T) {
	ext := &fakeExtractor{docs: map[string]*document.Document{
		"a.txt": textDoc("a.txt", "only one page exists in this document"),
		"b.txt": textDoc("b.txt", "and the same is true over here as well"),
	}}
	c, _ := newTestController(t, ext)

	p := sharedParams()
	p.PageRange1 = &document.PageRange{Start: 99, End: 120}
	id, err := c.Submit(p, "a.txt", "b.txt")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	updates, cancelSub, _ := c.Subscribe(id)
	defer cancelSub()

	final := awaitTerminal(t, updates)
	if final.Status != string(StatusError) {
		t.Fatalf("terminal status = %s, want error for out-of-document range", final.Status)
	}
}

func TestControllerStatusUnknownTask(t *testing.T) {
	c, _ := newTestController(t, &fakeExtractor{})
	if _, err := c.Status("nope"); !errors.Is(err, document.ErrNotFound) {
		t.Errorf("Status(nope) = %v, want ErrNotFound", err)
	}
	if err := c.Cancel("nope"); !errors.Is(err, document.ErrNotFound) {
		t.Errorf("Cancel(nope) = %v, want ErrNotFound", err)
	}
}

func TestControllerDeleteIdempotent(t *testing.T) {
	ext := &fakeExtractor{docs: map[string]*document.Document{
		"a.txt": textDoc("a.txt", "a document that will be compared and deleted"),
		"b.txt": textDoc("b.txt", "a document that will be compared and deleted"),
	}}
	c, _ := newTestController(t, ext)

	id, err := c.Submit(sharedParams(), "a.txt", "b.txt")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	updates, cancelSub, _ := c.Subscribe(id)
	awaitTerminal(t, updates)
	cancelSub()

	c.Delete(id)
	if _, err := c.Status(id); !errors.Is(err, document.ErrNotFound) {
		t.Errorf("Status after delete = %v, want ErrNotFound", err)
	}
	// Deleting again, or deleting garbage, is silent.
	c.Delete(id)
	c.Delete("never-existed")
}

func TestControllerDeleteDuringProcessing(t *testing.T) {
	gate := make(chan struct{})
	ext := &fakeExtractor{
		docs: map[string]*document.Document{
			"a.txt": textDoc("a.txt", "first document content that is long enough"),
			"b.txt": textDoc("b.txt", "second document content that is long enough"),
		},
		gate: gate,
	}
	c, bc := newTestController(t, ext)

	id, err := c.Submit(sharedParams(), "a.txt", "b.txt")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := c.Status(id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if snap.Status == StatusProcessing {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("task never started processing")
		}
		time.Sleep(5 * time.Millisecond)
	}

	c.Delete(id)
	if _, ok := bc.Latest(id); ok {
		t.Fatal("deleted task still has progress state")
	}

	// Let the worker run to its terminal publish. Stop joins the pool, so
	// after it returns the publish has happened.
	close(gate)
	c.Stop()
	if u, ok := bc.Latest(id); ok {
		t.Errorf("worker finishing after delete recreated progress state: %+v", u)
	}
}

func TestControllerSubmitDuringStop(t *testing.T) {
	ext := &fakeExtractor{docs: map[string]*document.Document{
		"a.txt": textDoc("a.txt", "a short line shared by both documents"),
		"b.txt": textDoc("b.txt", "a short line shared by both documents"),
	}}
	// Race submitters against shutdown. Submits either queue or are turned
	// away; none may crash into a closed queue.
	for i := 0; i < 25; i++ {
		c, _ := newTestController(t, ext)
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					if _, err := c.Submit(sharedParams(), "a.txt", "b.txt"); err != nil {
						return
					}
				}
			}()
		}
		c.Stop()
		wg.Wait()
	}
}

func TestControllerZeroContextChars(t *testing.T) {
	shared := "the quick brown fox jumps over the lazy dog tonight"
	ext := &fakeExtractor{docs: map[string]*document.Document{
		"a.txt": textDoc("a.txt", shared),
		"b.txt": textDoc("b.txt", shared),
	}}
	c, _ := newTestController(t, ext)

	p := sharedParams()
	p.ContextChars = 0
	id, err := c.Submit(p, "a.txt", "b.txt")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	updates, cancelSub, _ := c.Subscribe(id)
	defer cancelSub()
	awaitTerminal(t, updates)

	result, err := c.Result(id)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.Params.ContextChars != 0 {
		t.Fatalf("ContextChars = %d, want explicit zero preserved", result.Params.ContextChars)
	}
	if len(result.Matches) == 0 {
		t.Fatal("identical documents produced no matches")
	}
	for _, m := range result.Matches {
		if m.Context1.Before != "" || m.Context1.After != "" ||
			m.Context2.Before != "" || m.Context2.After != "" {
			t.Errorf("zero context request still produced context: %+v", m.Context1)
		}
	}
}

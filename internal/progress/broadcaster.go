// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package progress fans task progress out to any number of subscribers. The
// broadcaster is the single source of truth for live task state: polling reads
// the latest snapshot, push subscribers receive the same updates as a stream.
package progress

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Update is one progress event of a task.
type Update struct {
	TaskID      string    `json:"taskId"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message"`
	CurrentStep string    `json:"currentStep"`
	Status      string    `json:"status"`
	Terminal    bool      `json:"terminal"`
	Timestamp   time.Time `json:"timestamp"`
}

// subscriber buffers a bounded number of updates. Delivery is best-effort: a
// slow consumer loses intermediate updates rather than stalling the publisher.
const subscriberBuffer = 16

// Publish rate cap for non-terminal updates, per task.
const (
	publishRate  = 20 // events per second
	publishBurst = 5
)

type taskState struct {
	subs    map[int]chan Update
	latest  *Update
	limiter *rate.Limiter
	nextID  int
}

// Broadcaster delivers per-task progress updates. The zero value is not
// usable; create one with NewBroadcaster.
type Broadcaster struct {
	mu    sync.Mutex
	tasks map[string]*taskState
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{tasks: make(map[string]*taskState)}
}

// Track registers a task with the broadcaster. Publish and Subscribe only
// act on tracked tasks, so a Forget is final: late publishes from a worker
// cannot resurrect state for a deleted task.
func (b *Broadcaster) Track(taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tasks[taskID]; !ok {
		b.tasks[taskID] = &taskState{
			subs:    make(map[int]chan Update),
			limiter: rate.NewLimiter(publishRate, publishBurst),
		}
	}
}

// Subscribe registers for updates of one task. A late subscriber immediately
// receives the latest known update, then subsequent ones; there is no history
// replay. The returned cancel function must be called to release the channel.
// Subscribing to an untracked task yields a closed channel.
func (b *Broadcaster) Subscribe(taskID string) (<-chan Update, func()) {
	b.mu.Lock()
	st, ok := b.tasks[taskID]
	if !ok {
		b.mu.Unlock()
		ch := make(chan Update)
		close(ch)
		return ch, func() {}
	}
	id := st.nextID
	st.nextID++
	ch := make(chan Update, subscriberBuffer)
	st.subs[id] = ch
	if st.latest != nil {
		ch <- *st.latest
	}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if st, ok := b.tasks[taskID]; ok {
			if _, ok := st.subs[id]; ok {
				delete(st.subs, id)
				close(ch)
			}
		}
	}
	return ch, cancel
}

// Publish records the update as the task's latest state and fans it out.
// Non-terminal updates are rate-limited per task; terminal updates always go
// through. A full subscriber buffer drops the update for that subscriber only.
// Updates for untracked tasks are dropped.
func (b *Broadcaster) Publish(u Update) {
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.tasks[u.TaskID]
	if !ok {
		return
	}
	st.latest = &u

	if !u.Terminal && !st.limiter.Allow() {
		return
	}
	for _, ch := range st.subs {
		select {
		case ch <- u:
		default:
			if u.Terminal {
				// Make room so the terminal update is never lost.
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- u:
				default:
				}
			}
		}
	}
}

// Latest returns the most recent update of a task, if any was published.
func (b *Broadcaster) Latest(taskID string) (Update, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.tasks[taskID]
	if !ok || st.latest == nil {
		return Update{}, false
	}
	return *st.latest, true
}

// Forget closes all subscriptions of a task and drops its state. Used when a
// task is deleted or evicted.
func (b *Broadcaster) Forget(taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.tasks[taskID]
	if !ok {
		return
	}
	for id, ch := range st.subs {
		delete(st.subs, id)
		close(ch)
	}
	delete(b.tasks, taskID)
}

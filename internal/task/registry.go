// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"sync"
	"time"

	"twinscan/internal/document"
)

// Registry is the owned id-to-task map. No package-global state: the registry
// is held by the controller and synchronizes its own access.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

func (r *Registry) add(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
}

// Get looks a task up by id.
func (r *Registry) Get(id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, document.ErrNotFound
	}
	return t, nil
}

// Remove deletes a task. Idempotent; reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[id]
	delete(r.tasks, id)
	return ok
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// sweep evicts terminal tasks whose completion is older than the retention
// window, returning their ids so fan-out state can be released too.
func (r *Registry) sweep(retention time.Duration, now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []string
	for id, t := range r.tasks {
		snap := t.Snapshot()
		if snap.Status.Terminal() && snap.CompletedAt != nil &&
			now.Sub(*snap.CompletedAt) > retention {
			delete(r.tasks, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

package jobs

import (
	"slices"
	"strings"
	"sync"
)

// Registry keeps submitted jobs for later lookup. Entries are pointers owned
// by the Processor while a batch runs, so callers get copies.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	max  int
}

// NewRegistry returns a Registry that keeps at most max jobs, oldest evicted first.
func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = 1000
	}
	return &Registry{jobs: make(map[string]*Job), max: max}
}

// Add records jobs.
func (r *Registry) Add(jobs ...*Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	if over := len(r.jobs) - r.max; over > 0 {
		all := r.sortedLocked()
		for _, j := range all[:over] {
			delete(r.jobs, j.ID)
		}
	}
}

// Get returns a copy of the job with id.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// List returns copies of all jobs, oldest first.
func (r *Registry) List() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.sortedLocked()
	out := make([]Job, len(all))
	for i, j := range all {
		out[i] = *j
	}
	return out
}

func (r *Registry) sortedLocked() []*Job {
	all := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		all = append(all, j)
	}
	slices.SortFunc(all, func(a, b *Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return all
}

// Package jobs runs per-block background work in small concurrent groups.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Type is the kind of work a job performs.
type Type string

const (
	Summarize Type = "summarize"
	Embed     Type = "embed"
	Reorder   Type = "reorder"
	Extract   Type = "extract"
)

// ParseType validates a job type name.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case Summarize, Embed, Reorder, Extract:
		return t, nil
	default:
		return "", fmt.Errorf("jobs: unknown job type %q", s)
	}
}

// Status is a job's lifecycle state. Completed and Failed are terminal.
type Status string

const (
	Pending    Status = "pending"
	Processing Status = "processing"
	Completed  Status = "completed"
	Failed     Status = "failed"
)

// GroupSize is the number of jobs run concurrently.
const GroupSize = 5

// ErrNoHandler fails jobs whose type has no registered handler.
var ErrNoHandler = errors.New("jobs: no handler registered")

// Job is one unit of work against one block.
type Job struct {
	ID        string    `json:"id"`
	Document  string    `json:"document"`
	BlockID   string    `json:"block_id"`
	Type      Type      `json:"type"`
	Status    Status    `json:"status"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJobs creates one pending job per block id.
func NewJobs(doc string, blockIDs []string, t Type) []*Job {
	now := time.Now().UTC()
	out := make([]*Job, len(blockIDs))
	for i, id := range blockIDs {
		out[i] = &Job{
			ID:        uuid.NewString(),
			Document:  doc,
			BlockID:   id,
			Type:      t,
			Status:    Pending,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return out
}

// Handler performs one job and returns its result.
type Handler func(ctx context.Context, job *Job) (any, error)

// Processor dispatches jobs to handlers by type.
type Processor struct {
	mu        sync.RWMutex
	handlers  map[Type]Handler
	groupSize int
	onSettled func(*Job)
	now       func() time.Time
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithGroupSize overrides GroupSize.
func WithGroupSize(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.groupSize = n
		}
	}
}

// OnSettled registers fn to run after each job reaches a terminal state.
// fn may be called from several goroutines at once.
func OnSettled(fn func(*Job)) ProcessorOption {
	return func(p *Processor) { p.onSettled = fn }
}

// NewProcessor returns a Processor with no handlers.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{
		handlers:  make(map[Type]Handler),
		groupSize: GroupSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle registers h for t, replacing any previous handler.
func (p *Processor) Handle(t Type, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[t] = h
}

// Process runs jobs in groups. All jobs of a group settle before the next
// group starts. Failures are recorded on the job and never abort the batch;
// there is no retry. The jobs are updated in place.
func (p *Processor) Process(ctx context.Context, jobs []*Job) {
	for start := 0; start < len(jobs); start += p.groupSize {
		end := min(start+p.groupSize, len(jobs))
		var g errgroup.Group
		for _, job := range jobs[start:end] {
			g.Go(func() error {
				p.run(ctx, job)
				return nil
			})
		}
		_ = g.Wait()
	}
}

func (p *Processor) run(ctx context.Context, job *Job) {
	p.mu.RLock()
	h, ok := p.handlers[job.Type]
	p.mu.RUnlock()

	job.Status = Processing
	job.UpdatedAt = p.now()

	var (
		res any
		err error
	)
	if !ok {
		err = fmt.Errorf("%w for %q", ErrNoHandler, job.Type)
	} else {
		res, err = safeCall(ctx, h, job)
	}

	job.UpdatedAt = p.now()
	if err != nil {
		job.Status = Failed
		job.Error = err.Error()
	} else {
		job.Status = Completed
		job.Result = res
	}
	if p.onSettled != nil {
		p.onSettled(job)
	}
}

func safeCall(ctx context.Context, h Handler, job *Job) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("jobs: handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}

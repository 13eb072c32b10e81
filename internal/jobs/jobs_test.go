package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobs(t *testing.T) {
	jobs := NewJobs("doc.md", []string{"a", "b"}, Summarize)
	require.Len(t, jobs, 2)
	assert.NotEqual(t, jobs[0].ID, jobs[1].ID)
	for _, j := range jobs {
		assert.Equal(t, Pending, j.Status)
		assert.Equal(t, "doc.md", j.Document)
		assert.False(t, j.CreatedAt.IsZero())
	}
}

func TestProcess_GroupsRunSequentially(t *testing.T) {
	var (
		mu       sync.Mutex
		seq      int
		starts   = map[string]int{}
		ends     = map[string]int{}
		inflight atomic.Int32
		peak     atomic.Int32
	)
	p := NewProcessor()
	p.Handle(Embed, func(_ context.Context, j *Job) (any, error) {
		n := inflight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		mu.Lock()
		seq++
		starts[j.BlockID] = seq
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		seq++
		ends[j.BlockID] = seq
		mu.Unlock()
		inflight.Add(-1)
		return nil, nil
	})

	ids := make([]string, 12)
	for i := range ids {
		ids[i] = fmt.Sprintf("b%02d", i)
	}
	jobs := NewJobs("d.md", ids, Embed)
	p.Process(context.Background(), jobs)

	assert.LessOrEqual(t, peak.Load(), int32(GroupSize))
	for g := 1; g*GroupSize < len(ids); g++ {
		lastEnd := 0
		for _, id := range ids[(g-1)*GroupSize : g*GroupSize] {
			lastEnd = max(lastEnd, ends[id])
		}
		for _, id := range ids[g*GroupSize : min((g+1)*GroupSize, len(ids))] {
			assert.Greater(t, starts[id], lastEnd, "job %s started before previous group settled", id)
		}
	}
	for _, j := range jobs {
		assert.Equal(t, Completed, j.Status)
	}
}

func TestProcess_FailuresAreRecorded(t *testing.T) {
	var settled atomic.Int32
	p := NewProcessor(OnSettled(func(*Job) { settled.Add(1) }))
	p.Handle(Summarize, func(_ context.Context, j *Job) (any, error) {
		switch j.BlockID {
		case "bad":
			return nil, errors.New("model unavailable")
		case "panics":
			panic("boom")
		}
		return "summary of " + j.BlockID, nil
	})

	jobs := NewJobs("d.md", []string{"ok", "bad", "panics"}, Summarize)
	jobs = append(jobs, NewJobs("d.md", []string{"orphan"}, Reorder)...)
	p.Process(context.Background(), jobs)

	assert.Equal(t, Completed, jobs[0].Status)
	assert.Equal(t, "summary of ok", jobs[0].Result)
	assert.Equal(t, Failed, jobs[1].Status)
	assert.Equal(t, "model unavailable", jobs[1].Error)
	assert.Equal(t, Failed, jobs[2].Status)
	assert.Contains(t, jobs[2].Error, "panic")
	assert.Equal(t, Failed, jobs[3].Status)
	assert.Contains(t, jobs[3].Error, ErrNoHandler.Error())
	assert.EqualValues(t, 4, settled.Load())
}

func TestParseType(t *testing.T) {
	for _, s := range []string{"summarize", "embed", "reorder", "extract"} {
		_, err := ParseType(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseType("translate")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(2)
	jobs := NewJobs("d.md", []string{"a", "b", "c"}, Extract)
	for i, j := range jobs {
		j.CreatedAt = j.CreatedAt.Add(time.Duration(i) * time.Second)
	}
	r.Add(jobs...)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].BlockID)
	assert.Equal(t, "c", list[1].BlockID)

	_, ok := r.Get(jobs[0].ID)
	assert.False(t, ok, "oldest job evicted")
	got, ok := r.Get(jobs[2].ID)
	require.True(t, ok)
	assert.Equal(t, "c", got.BlockID)
}

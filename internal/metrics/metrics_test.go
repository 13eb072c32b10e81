package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveParse(3, []string{"orphaned", "nested", "orphaned"}, time.Millisecond)
	m.JobSettled("summarize", "completed")
	m.JobSettled("summarize", "completed")
	m.JobSettled("embed", "failed")
	m.Event("block.created")
	m.SetIndexedBlocks(42)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.documentsParsed))
	assert.Equal(t, 3.0, promtest.ToFloat64(m.blocksParsed))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.parseWarnings.WithLabelValues("orphaned")))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.jobs.WithLabelValues("summarize", "completed")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.jobs.WithLabelValues("embed", "failed")))
	assert.Equal(t, 42.0, promtest.ToFloat64(m.indexedBlocks))
}

func TestNilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveParse(1, nil, 0)
		m.JobSettled("x", "y")
		m.Event("z")
		m.SetIndexedBlocks(1)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.Event("block.updated")
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `smartblock_events_total{type="block.updated"} 1`)
}

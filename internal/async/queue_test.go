package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extract/internal/metrics"
)

func TestQueue_ProcessesAllJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	q := NewQueue(func(_ context.Context, job Job) error {
		mu.Lock()
		seen[job.Path] = true
		mu.Unlock()
		return nil
	}, nil, WithWorkers(3), WithQueueSize(2))

	paths := []string{"a.md", "b.md", "c.md", "d.md", "e.md", "f.md"}
	for _, p := range paths {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	q.Shutdown(context.Background())

	assert.Len(t, seen, len(paths))
}

func TestQueue_HandlerErrorsAndPanicsDoNotStopWorkers(t *testing.T) {
	var n atomic.Int32
	q := NewQueue(func(_ context.Context, job Job) error {
		n.Add(1)
		switch job.Path {
		case "panic":
			panic("boom")
		case "fail":
			return errors.New("bad file")
		}
		return nil
	}, nil, WithWorkers(1))

	for _, p := range []string{"panic", "fail", "ok"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	q.Shutdown(context.Background())

	assert.Equal(t, int32(3), n.Load())
}

func TestQueue_TimeoutReachesHandler(t *testing.T) {
	got := make(chan error, 1)
	q := NewQueue(func(ctx context.Context, _ Job) error {
		<-ctx.Done()
		got <- ctx.Err()
		return ctx.Err()
	}, nil, WithWorkers(1), WithProcessTimeout(10*time.Millisecond))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow"}))
	q.Shutdown(context.Background())

	assert.ErrorIs(t, <-got, context.DeadlineExceeded)
}

func TestQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewQueue(func(context.Context, Job) error { return nil }, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Path: "late"}), ErrQueueClosed)
}

func TestQueue_EnqueueRespectsContextWhenFull(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue(func(context.Context, Job) error {
		<-release
		return nil
	}, nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "busy"}))
	// wait for the worker to pick up the first job so the buffer is empty
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "buffered"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "blocked"}), context.DeadlineExceeded)

	close(release)
	q.Shutdown(context.Background())
}

func TestQueue_RecordsJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	q := NewQueue(func(_ context.Context, job Job) error {
		if job.Path == "bad" {
			return errors.New("fail")
		}
		return nil
	}, nil, WithWorkers(2), WithMetrics(metrics.New(reg)))

	for _, p := range []string{"a", "bad", "b"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	q.Shutdown(context.Background())

	families, err := reg.Gather()
	require.NoError(t, err)
	results := map[string]float64{}
	var active float64 = -1
	for _, f := range families {
		switch f.GetName() {
		case "invoice_extract_queue_jobs_total":
			for _, m := range f.GetMetric() {
				results[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
			}
		case "invoice_extract_queue_active_workers":
			active = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"ok": 2, "error": 1}, results)
	assert.Equal(t, 0.0, active)
}

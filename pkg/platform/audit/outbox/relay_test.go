package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu        sync.Mutex
	pending   []Entry
	published []int64
	fetchErr  error
}

func (f *fakeSource) FetchPending(_ context.Context, limit int) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.pending) > limit {
		return append([]Entry{}, f.pending[:limit]...), nil
	}
	return append([]Entry{}, f.pending...), nil
}

func (f *fakeSource) MarkPublished(_ context.Context, seqs []int64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, seqs...)
	done := make(map[int64]bool, len(seqs))
	for _, s := range seqs {
		done[s] = true
	}
	var rest []Entry
	for _, e := range f.pending {
		if !done[e.Seq] {
			rest = append(rest, e)
		}
	}
	f.pending = rest
	return nil
}

type fakeSink struct {
	failAt int
	got    []Entry
}

func (f *fakeSink) Publish(_ context.Context, entries []Entry) (int, error) {
	for i, e := range entries {
		if f.failAt >= 0 && e.Seq == int64(f.failAt) {
			return i, errors.New("broker unavailable")
		}
		f.got = append(f.got, e)
	}
	return len(entries), nil
}

func entries(n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{Seq: int64(i + 1), EventType: "access_granted", AggregateID: "owner"}
	}
	return out
}

func TestRelay_RunOnce(t *testing.T) {
	t.Run("marks everything after a clean publish", func(t *testing.T) {
		src := &fakeSource{pending: entries(3)}
		sink := &fakeSink{failAt: -1}
		m := NewMetrics(prometheus.NewRegistry())
		r := NewRelay(src, sink, WithMetrics(m))

		n, err := r.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, []int64{1, 2, 3}, src.published)
		assert.Equal(t, float64(3), testutil.ToFloat64(m.Published))
	})

	t.Run("marks only the delivered prefix on failure", func(t *testing.T) {
		src := &fakeSource{pending: entries(3)}
		sink := &fakeSink{failAt: 3}
		r := NewRelay(src, sink)

		n, err := r.RunOnce(context.Background())
		require.Error(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []int64{1, 2}, src.published)
		require.Len(t, src.pending, 1)
		assert.Equal(t, int64(3), src.pending[0].Seq)
	})

	t.Run("respects batch size", func(t *testing.T) {
		src := &fakeSource{pending: entries(5)}
		r := NewRelay(src, &fakeSink{failAt: -1}, WithBatchSize(2))

		n, err := r.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Len(t, src.pending, 3)
	})

	t.Run("fetch errors are returned", func(t *testing.T) {
		src := &fakeSource{fetchErr: errors.New("db down")}
		_, err := NewRelay(src, &fakeSink{failAt: -1}).RunOnce(context.Background())
		require.Error(t, err)
	})
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	src := &fakeSource{pending: entries(1)}
	r := NewRelay(src, &fakeSink{failAt: -1}, WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return len(src.pending) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

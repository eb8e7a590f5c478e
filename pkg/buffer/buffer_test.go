package buffer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
)

func TestCircularBuffer_InitialState(t *testing.T) {
	buf := NewCircularBuffer[int](5)
	defer buf.Close()

	assert.Equal(t, 0, buf.Size())
	assert.Equal(t, 5, buf.Capacity())
	assert.Empty(t, buf.Items())

	_, ok := buf.Read()
	assert.False(t, ok)
}

func TestCircularBuffer_MinimumCapacity(t *testing.T) {
	buf := NewCircularBuffer[int](0)
	assert.Equal(t, 1, buf.Capacity())
}

func TestCircularBuffer_FIFO(t *testing.T) {
	buf := NewCircularBuffer[string](3)

	require.NoError(t, buf.Write("first"))
	require.NoError(t, buf.Write("second"))
	assert.Equal(t, 2, buf.Size())

	v, ok := buf.Read()
	require.True(t, ok)
	assert.Equal(t, "first", v)

	v, ok = buf.Read()
	require.True(t, ok)
	assert.Equal(t, "second", v)
	assert.Equal(t, 0, buf.Size())
}

func TestCircularBuffer_EvictsOldest(t *testing.T) {
	var dropped []int
	buf := NewCircularBuffer[int](3,
		WithDropCallback(func(item int) { dropped = append(dropped, item) }),
	)

	for i := 1; i <= 5; i++ {
		require.NoError(t, buf.Write(i))
	}

	assert.Equal(t, 3, buf.Size())
	assert.Equal(t, []int{3, 4, 5}, buf.Items())
	assert.Equal(t, []int{1, 2}, dropped)
	assert.Equal(t, int64(2), buf.Stats().Drops())
	assert.Equal(t, int64(5), buf.Stats().Writes())

	v, ok := buf.Read()
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestCircularBuffer_DropCallbackMayReenter(t *testing.T) {
	var buf Buffer[int]
	var size int
	buf = NewCircularBuffer[int](1, WithDropCallback(func(int) { size = buf.Size() }))

	require.NoError(t, buf.Write(1))
	require.NoError(t, buf.Write(2))
	assert.Equal(t, 1, size)
}

func TestCircularBuffer_ItemsWrapAround(t *testing.T) {
	buf := NewCircularBuffer[int](3)
	for i := 1; i <= 7; i++ {
		require.NoError(t, buf.Write(i))
	}
	assert.Equal(t, []int{5, 6, 7}, buf.Items())

	items := buf.Items()
	items[0] = 99
	assert.Equal(t, []int{5, 6, 7}, buf.Items(), "Items must return a copy")
}

func TestCircularBuffer_WriteAfterClose(t *testing.T) {
	buf := NewCircularBuffer[int](2)
	require.NoError(t, buf.Close())
	require.NoError(t, buf.Close())

	err := buf.Write(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrShuttingDown)
}

func TestCircularBuffer_ReadContextReturnsQueued(t *testing.T) {
	buf := NewCircularBuffer[int](2)
	require.NoError(t, buf.Write(7))

	v, err := buf.ReadContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestCircularBuffer_ReadContextWakesOnWrite(t *testing.T) {
	buf := NewCircularBuffer[int](2)

	got := make(chan int, 1)
	go func() {
		v, err := buf.ReadContext(context.Background())
		if err == nil {
			got <- v
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, buf.Write(42))

	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("reader was not woken by write")
	}
}

func TestCircularBuffer_ReadContextCancel(t *testing.T) {
	buf := NewCircularBuffer[int](2)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := buf.ReadContext(ctx)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reader was not woken by cancellation")
	}
}

func TestCircularBuffer_ReadContextClose(t *testing.T) {
	buf := NewCircularBuffer[int](2)

	errCh := make(chan error, 1)
	go func() {
		_, err := buf.ReadContext(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, buf.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, cerrors.ErrShuttingDown)
	case <-time.After(time.Second):
		t.Fatal("reader was not woken by close")
	}
}

func TestCircularBuffer_ConcurrentWritersSingleReader(t *testing.T) {
	const writers, perWriter = 4, 250
	buf := NewCircularBuffer[int](writers * perWriter)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_ = buf.Write(i)
			}
		}()
	}

	var read atomic.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for read.Load() < writers*perWriter {
			if _, err := buf.ReadContext(ctx); err != nil {
				return
			}
			read.Add(1)
		}
	}()

	wg.Wait()
	<-done
	assert.Equal(t, int64(writers*perWriter), read.Load())
	assert.Equal(t, int64(0), buf.Stats().Drops())
}

func TestCircularBuffer_SharedMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	m, err := NewMetrics(registry, "test_bus")
	require.NoError(t, err)

	a := NewCircularBuffer[int](2, WithMetrics[int](m))
	b := NewCircularBuffer[int](2, WithMetrics[int](m))

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Write(i))
	}
	require.NoError(t, b.Write(1))
	_, _ = b.Read()

	assert.Equal(t, 4.0, testutil.ToFloat64(m.writes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reads))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.drops))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.queued))

	require.NoError(t, a.Close())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.queued))

	_, err = NewMetrics(registry, "test_bus")
	assert.Error(t, err, "duplicate component registration")
}

func TestNewMetrics_NilRegistry(t *testing.T) {
	m, err := NewMetrics(nil, "x")
	require.NoError(t, err)
	assert.Nil(t, m)

	buf := NewCircularBuffer[int](1, WithMetrics[int](m))
	assert.NotPanics(t, func() {
		_ = buf.Write(1)
		_ = buf.Write(2)
		_, _ = buf.Read()
	})
}

func TestStatistics_Summary(t *testing.T) {
	buf := NewCircularBuffer[int](2)
	for i := 0; i < 4; i++ {
		_ = buf.Write(i)
	}
	_, _ = buf.Read()

	s := buf.Stats().Summary()
	assert.Equal(t, int64(4), s.Writes)
	assert.Equal(t, int64(1), s.Reads)
	assert.Equal(t, int64(2), s.Drops)
	assert.Equal(t, int64(1), s.CurrentSize)
	assert.Equal(t, int64(2), s.MaxSize)
	assert.InDelta(t, 0.5, s.DropRate, 1e-9)
}

func BenchmarkCircularBuffer_WriteFull(b *testing.B) {
	buf := NewCircularBuffer[int](100)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = buf.Write(i)
	}
}

package coro

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorLazinessAndBound(t *testing.T) {
	// An unbounded generator yielding 0,1,2,... iterated and stopped at
	// val>=100 produces exactly 101 values.
	gen := NewGenerator(func(yield func(int) bool) {
		for i := 0; ; i++ {
			if !yield(i) {
				return
			}
		}
	})
	defer gen.Close()

	var values []int
	for {
		v, ok, err := gen.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			t.Fatal("generator exhausted before reaching bound")
		}
		values = append(values, v)
		if v >= 100 {
			break
		}
	}

	assert.Len(t, values, 101)
	for i, v := range values {
		assert.Equal(t, i, v)
	}
}

func TestGeneratorFiniteExhaustion(t *testing.T) {
	gen := NewGenerator(func(yield func(int) bool) {
		for i := 0; i < 3; i++ {
			if !yield(i) {
				return
			}
		}
	})
	defer gen.Close()

	var got []int
	for {
		v, ok, err := gen.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{0, 1, 2}, got)

	// Not restartable: once exhausted, Next keeps reporting !ok.
	_, ok, err := gen.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGeneratorCloseStopsProducerEarly(t *testing.T) {
	gen := NewGenerator(func(yield func(int) bool) {
		for i := 0; ; i++ {
			if !yield(i) {
				return
			}
		}
	})

	v, ok, err := gen.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, v)

	done := make(chan struct{})
	go func() {
		gen.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return: producer goroutine leaked")
	}
}

func TestGeneratorPanicCapturedAsError(t *testing.T) {
	gen := NewGenerator(func(yield func(int) bool) {
		yield(1)
		panic("generator exploded")
	})
	defer gen.Close()

	v, ok, err := gen.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok, err = gen.Next(context.Background())
	assert.False(t, ok)
	require.Error(t, err)
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
}

func TestGeneratorNextRespectsContextCancellation(t *testing.T) {
	gen := NewGenerator(func(yield func(int) bool) {
		yield(1)
		// Block forever waiting for a second pull that never comes within
		// the canceled context's lifetime. Not closed: the producer
		// goroutine is intentionally leaked until process exit, since
		// nothing observes g.stopped from inside a bare blocking select.
		select {}
	})

	_, ok, err := gen.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, ok, err = gen.Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

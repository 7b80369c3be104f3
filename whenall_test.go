package coro

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhenAllSliceAggregation(t *testing.T) {
	// 10 children each return an independent value; joined result's i-th
	// slot equals the i-th child's value.
	const n = 10
	tasks := make([]Awaitable[int], n)
	for i := 0; i < n; i++ {
		i := i
		tasks[i] = NewTask(func(context.Context) (int, error) {
			return i * i, nil
		})
	}

	result := WhenAllSlice(tasks...)
	values, err := result.Await(context.Background())
	require.NoError(t, err)

	require.Len(t, values, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, i*i, values[i])
	}
}

func TestWhenAllSliceSumsIndependentChildren(t *testing.T) {
	const n = 10
	const perTask = 7
	tasks := make([]Awaitable[int], n)
	for i := 0; i < n; i++ {
		tasks[i] = NewTask(func(context.Context) (int, error) {
			sum := 0
			for j := 0; j < perTask; j++ {
				sum += j
			}
			return sum, nil
		})
	}
	result := WhenAllSlice(tasks...)
	values, err := result.Await(context.Background())
	require.NoError(t, err)

	total := 0
	for _, v := range values {
		total += v
	}
	expectedPerTask := 0
	for j := 0; j < perTask; j++ {
		expectedPerTask += j
	}
	assert.Equal(t, expectedPerTask*n, total)
}

func TestWhenAllDoesNotShortCircuitOnFailure(t *testing.T) {
	wantErr := errors.New("child failed")
	var ranAfterFailure bool

	failing := NewTask(func(context.Context) (int, error) {
		return 0, wantErr
	})
	slowOK := NewTask(func(context.Context) (int, error) {
		ranAfterFailure = true
		return 9, nil
	})

	result := WhenAllSlice[int](failing, slowOK)
	values, err := result.Await(context.Background())

	require.Error(t, err)
	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Errors, 1)
	assert.True(t, ranAfterFailure)
	assert.Equal(t, 9, values[1])

	// The per-child view preserves the failure on its own slot without
	// raising.
	assert.ErrorIs(t, result.Errors()[0], wantErr)
	assert.NoError(t, result.Errors()[1])
}

func TestWhenAllSliceEmpty(t *testing.T) {
	result := WhenAllSlice[int]()
	values, err := result.Await(context.Background())
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestWhenAll2HeterogeneousTuple(t *testing.T) {
	a := NewTask(func(context.Context) (int, error) { return 1, nil })
	b := NewTask(func(context.Context) (string, error) { return "two", nil })

	av, bv, err := WhenAll2[int, string](a, b).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, av)
	assert.Equal(t, "two", bv)
}

func TestWhenAll3HeterogeneousTuple(t *testing.T) {
	a := NewTask(func(context.Context) (int, error) { return 1, nil })
	b := NewTask(func(context.Context) (string, error) { return "two", nil })
	c := NewTask(func(context.Context) (bool, error) { return true, nil })

	av, bv, cv, err := WhenAll3[int, string, bool](a, b, c).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, av)
	assert.Equal(t, "two", bv)
	assert.True(t, cv)
}

func TestWhenAll2FailurePolicy(t *testing.T) {
	wantErr := errors.New("b failed")
	a := NewTask(func(context.Context) (int, error) { return 1, nil })
	b := NewTask(func(context.Context) (string, error) { return "", wantErr })

	_, _, err := WhenAll2[int, string](a, b).Await(context.Background())
	require.Error(t, err)
	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	assert.ErrorIs(t, agg.Cause(), wantErr)
}

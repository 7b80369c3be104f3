package coro

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithGrowthFactorRejectsOutOfRange(t *testing.T) {
	_, err := resolveTaskContainerOptions([]TaskContainerOption{WithGrowthFactor(1.0)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = resolveTaskContainerOptions([]TaskContainerOption{WithGrowthFactor(0.5)})
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestWithInitialCapacityRejectsNegative(t *testing.T) {
	_, err := resolveTaskContainerOptions([]TaskContainerOption{WithInitialCapacity(-1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestTaskContainerOptionDefaults(t *testing.T) {
	cfg, err := resolveTaskContainerOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.growthFactor)
	assert.Equal(t, 16, cfg.initialCapacity)
}

func TestResolveTaskContainerOptionsIgnoresNil(t *testing.T) {
	cfg, err := resolveTaskContainerOptions([]TaskContainerOption{nil, WithInitialCapacity(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.initialCapacity)
}

func TestThreadPoolOptionsDefaults(t *testing.T) {
	cfg, err := resolveThreadPoolOptions(nil)
	require.NoError(t, err)
	assert.False(t, cfg.metricsEnabled)
	assert.Nil(t, cfg.onWorkerStart)
	assert.Nil(t, cfg.onWorkerStop)
}

func TestInvalidThreadPoolOptionPanicsAtConstruction(t *testing.T) {
	badOpt := &threadPoolOptionImpl{apply: func(*threadPoolOptions) error {
		return ErrInvalidOption
	}}
	assert.Panics(t, func() {
		NewThreadPool(1, badOpt)
	})
}

func TestInvalidTaskContainerOptionPanicsAtConstruction(t *testing.T) {
	pool := NewThreadPool(1)
	defer pool.Shutdown(context.Background())
	assert.Panics(t, func() {
		NewTaskContainer(pool, WithGrowthFactor(1.0))
	})
}

package coro

import (
	"context"
	"sync"

	"golang.org/x/exp/slices"
)

// TaskContainer owns a growable table of detached, fire-and-forget tasks.
// Each Start call places the task in a free slot (growing the table by the
// configured growth factor if none is free), wraps it in a panic-safe
// cleanup closure, and schedules that wrapper on the owning Executor. A
// completed slot is not reclaimed immediately; it is pushed onto a
// pending-delete list and only spliced back onto the free list by
// GarbageCollect, mirroring a ring-buffer scavenger's batched reclamation
// rather than an immediate free-on-complete.
type TaskContainer struct {
	exec         Executor
	growthFactor float64

	mu            sync.Mutex
	slots         []Awaitable[any]
	free          []int
	pendingDelete []int
	size          int
	metrics       *Metrics
}

// NewTaskContainer constructs an empty TaskContainer bound to exec, which
// every started task's cleanup wrapper is scheduled on.
func NewTaskContainer(exec Executor, opts ...TaskContainerOption) *TaskContainer {
	cfg, err := resolveTaskContainerOptions(opts)
	if err != nil {
		panic(err)
	}
	c := &TaskContainer{
		exec:         exec,
		growthFactor: cfg.growthFactor,
		slots:        make([]Awaitable[any], cfg.initialCapacity),
	}
	c.free = make([]int, cfg.initialCapacity)
	for i := range c.free {
		c.free[i] = cfg.initialCapacity - 1 - i
	}
	return c
}

// WithContainerMetrics enables occupancy metrics on a TaskContainer.
func (c *TaskContainer) WithContainerMetrics() *TaskContainer {
	c.metrics = &Metrics{}
	return c
}

// Start places t in a free slot (growing the table if necessary) and
// schedules its panic-safe cleanup wrapper on the container's Executor.
func (c *TaskContainer) Start(ctx context.Context, t Awaitable[any]) error {
	c.mu.Lock()
	if c.slots == nil {
		c.mu.Unlock()
		return ErrContainerClosed
	}
	if len(c.free) == 0 {
		c.grow()
	}
	slot := c.free[len(c.free)-1]
	c.free = c.free[:len(c.free)-1]
	c.slots[slot] = t
	c.size++
	if c.metrics != nil {
		c.metrics.Queue.UpdateContainer(c.size)
	}
	c.mu.Unlock()

	c.exec.Resume(func() {
		c.runSlot(ctx, slot)
	})
	return nil
}

// grow extends the slot table by growthFactor (minimum +1), appending the
// new indices to the free list. Caller must hold c.mu.
func (c *TaskContainer) grow() {
	old := len(c.slots)
	newCap := int(float64(old) * c.growthFactor)
	if newCap <= old {
		newCap = old + 1
	}
	grown := make([]Awaitable[any], newCap)
	copy(grown, c.slots)
	c.slots = grown
	c.free = slices.Grow(c.free, newCap-old)
	for i := newCap - 1; i >= old; i-- {
		c.free = append(c.free, i)
	}
}

func (c *TaskContainer) runSlot(ctx context.Context, slot int) {
	defer func() {
		if r := recover(); r != nil {
			logError("container", "task cleanup wrapper panicked", &PanicError{Value: r, Stack: capturedStack()})
		}
		c.mu.Lock()
		c.pendingDelete = append(c.pendingDelete, slot)
		c.mu.Unlock()
	}()

	c.mu.Lock()
	t := c.slots[slot]
	c.mu.Unlock()

	if _, err := t.Await(ctx); err != nil {
		logError("container", "detached task failed", err)
	}
}

// GarbageCollect splices every pending-delete slot back onto the free list
// and returns the number reclaimed.
func (c *TaskContainer) GarbageCollect() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.pendingDelete)
	for _, slot := range c.pendingDelete {
		c.slots[slot] = nil
		c.free = append(c.free, slot)
		c.size--
	}
	c.pendingDelete = slices.Delete(c.pendingDelete, 0, n)
	if c.metrics != nil {
		c.metrics.Queue.UpdateContainer(c.size)
	}
	return n
}

// GarbageCollectAndYieldUntilEmpty repeatedly garbage-collects and yields on
// exec until the container holds no in-flight tasks, used to drain a
// container before shutting down its owning executor.
func (c *TaskContainer) GarbageCollectAndYieldUntilEmpty(ctx context.Context) error {
	for {
		c.GarbageCollect()
		if c.Empty() {
			return nil
		}
		if err := c.exec.Yield(ctx); err != nil {
			return err
		}
	}
}

// Size returns the number of tasks currently occupying a slot (including
// ones awaiting garbage collection after completion).
func (c *TaskContainer) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Empty reports whether the container currently holds no tasks.
func (c *TaskContainer) Empty() bool {
	return c.Size() == 0
}

// Capacity returns the current slot table length.
func (c *TaskContainer) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

package ioscheduler

import (
	"sync/atomic"
	"time"
)

// pollInfo is the per-wait record backing one Poll/YieldFor/YieldUntil/
// ScheduleAfter/ScheduleAt call. fd is -1 for a pure timer wait (no
// readiness side to race against). heapIndex tracks its position in the
// scheduler's timer min-heap, -1 when not (or no longer) queued there.
//
// processed is the at-most-once gate: both the readiness path and the
// timeout path attempt to flip it false->true; only the winner removes the
// entry from the timer heap/fd registration and resumes the waiter.
type pollInfo struct {
	fd         int
	op         PollOp
	deadline   time.Time
	hasTimeout bool
	heapIndex  int

	processed atomic.Bool
	status    PollStatus
	err       error
	resume    func()
	done      chan struct{}
}

// timerHeap is a container/heap min-heap of *pollInfo ordered by deadline.
type timerHeap []*pollInfo

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *timerHeap) Push(x any) {
	pi := x.(*pollInfo)
	pi.heapIndex = len(*h)
	*h = append(*h, pi)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	pi := old[n-1]
	old[n-1] = nil
	pi.heapIndex = -1
	*h = old[:n-1]
	return pi
}

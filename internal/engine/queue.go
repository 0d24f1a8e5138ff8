package engine

import (
	"container/heap"
	"time"
)

// Action is the callback run when an event fires. A non-nil error aborts the run.
type Action func() error

type event struct {
	at     time.Duration
	seq    uint64
	action Action
}

// eventQueue is a min-heap ordered by time, then insertion sequence.
type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}

func (q *eventQueue) push(ev *event) { heap.Push(q, ev) }

func (q *eventQueue) pop() *event { return heap.Pop(q).(*event) }

func (q eventQueue) peek() *event { return q[0] }

package timing

import "container/heap"

// queuedEvent carries the insertion sequence that breaks ties between events
// at the same time.
type queuedEvent struct {
	ScheduledEvent
	seq uint64
}

type futureEventQueue struct {
	events  futureEventHeap
	nextSeq uint64
}

func newFutureEventQueue() *futureEventQueue {
	q := &futureEventQueue{}
	q.events = make([]*queuedEvent, 0)
	heap.Init(&q.events)

	return q
}

func (q *futureEventQueue) Push(evt ScheduledEvent) {
	heap.Push(&q.events, &queuedEvent{ScheduledEvent: evt, seq: q.nextSeq})
	q.nextSeq++
}

func (q *futureEventQueue) Pop() *queuedEvent {
	if q.events.Len() == 0 {
		return nil
	}

	return heap.Pop(&q.events).(*queuedEvent)
}

func (q *futureEventQueue) Peek() *queuedEvent {
	if q.events.Len() == 0 {
		return nil
	}

	return q.events[0]
}

func (q *futureEventQueue) Len() int {
	return q.events.Len()
}

type futureEventHeap []*queuedEvent

func (h futureEventHeap) Len() int { return len(h) }

func (h futureEventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}

	return h[i].seq < h[j].seq
}

func (h futureEventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *futureEventHeap) Push(x any) {
	*h = append(*h, x.(*queuedEvent))
}

func (h *futureEventHeap) Pop() any {
	old := *h
	n := len(old)
	evt := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]

	return evt
}

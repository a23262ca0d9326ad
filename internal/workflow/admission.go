package workflow

import (
	"container/list"
	"sync"
	"time"
)

type queuedEntry struct {
	id        string
	notBefore time.Time
}

// admissionQueue is the FIFO of jobs waiting for a worker slot. Entries with
// a future notBefore are skipped without blocking entries behind them.
type admissionQueue struct {
	mu       sync.Mutex
	order    *list.List
	index    map[string]*list.Element
	limit    int
	reserved int
	wake     chan struct{}
}

func newAdmissionQueue(limit int) *admissionQueue {
	return &admissionQueue{
		order: list.New(),
		index: make(map[string]*list.Element),
		limit: limit,
		wake:  make(chan struct{}, 1),
	}
}

// reserve claims room for one entry. It fails when the bound is reached.
func (q *admissionQueue) reserve() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && q.order.Len()+q.reserved >= q.limit {
		return false
	}
	q.reserved++
	return true
}

// release drops a reservation that was not used.
func (q *admissionQueue) release() {
	q.mu.Lock()
	if q.reserved > 0 {
		q.reserved--
	}
	q.mu.Unlock()
}

// pushReserved converts a reservation into an entry.
func (q *admissionQueue) pushReserved(id string, notBefore time.Time) {
	q.mu.Lock()
	if q.reserved > 0 {
		q.reserved--
	}
	q.pushLocked(id, notBefore)
	q.mu.Unlock()
	q.signal()
}

// push appends id regardless of the bound. Automatic requeues and recovery
// use it so a full queue never strands a job that was already admitted once.
func (q *admissionQueue) push(id string, notBefore time.Time) {
	q.mu.Lock()
	q.pushLocked(id, notBefore)
	q.mu.Unlock()
	q.signal()
}

func (q *admissionQueue) pushLocked(id string, notBefore time.Time) {
	if elem, ok := q.index[id]; ok {
		elem.Value.(*queuedEntry).notBefore = notBefore
		return
	}
	q.index[id] = q.order.PushBack(&queuedEntry{id: id, notBefore: notBefore})
}

func (q *admissionQueue) remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	elem, ok := q.index[id]
	if !ok {
		return false
	}
	q.order.Remove(elem)
	delete(q.index, id)
	return true
}

// admitNext hands the first entry due at now to start and removes it only
// when start accepts it, so a refused entry keeps its place at the head.
// When nothing is due, nextDue reports the earliest pending notBefore (zero
// when empty).
func (q *admissionQueue) admitNext(now time.Time, start func(id string) bool) (admitted, refused bool, nextDue time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for elem := q.order.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*queuedEntry)
		if entry.notBefore.IsZero() || !entry.notBefore.After(now) {
			if !start(entry.id) {
				return false, true, time.Time{}
			}
			q.order.Remove(elem)
			delete(q.index, entry.id)
			return true, false, time.Time{}
		}
		if nextDue.IsZero() || entry.notBefore.Before(nextDue) {
			nextDue = entry.notBefore
		}
	}
	return false, false, nextDue
}

func (q *admissionQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.order.Len()
}

func (q *admissionQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

package matcher

import (
	"slices"
	"sync"

	"github.com/mcoot/gobang-online/internal/model"
)

// queue is a FIFO of waiting user ids for one tier. Waiters block on cond
// until a pair is available or the queue is closed.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ids    []model.UserID
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends uid unless it is already waiting
func (q *queue) push(uid model.UserID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if slices.Contains(q.ids, uid) {
		return false
	}
	q.ids = append(q.ids, uid)
	q.cond.Signal()
	return true
}

// remove drops uid if present
func (q *queue) remove(uid model.UserID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := slices.Index(q.ids, uid)
	if i < 0 {
		return false
	}
	q.ids = slices.Delete(q.ids, i, i+1)
	return true
}

func (q *queue) contains(uid model.UserID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Contains(q.ids, uid)
}

// waitPair blocks until at least two ids are queued, then pops the two
// oldest. It returns false once the queue is closed.
func (q *queue) waitPair() (model.UserID, model.UserID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.ids) < 2 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return 0, 0, false
	}
	a, b := q.ids[0], q.ids[1]
	q.ids = q.ids[2:]
	return a, b, true
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

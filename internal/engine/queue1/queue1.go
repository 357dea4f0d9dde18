// Package queue1 implements one agent's internal queue (spec §4.6): the
// holding area a transaction sits in before its sender's payment_tree
// releases, holds, drops, or splits it.
package queue1

import "sort"

// Ordering is the queue's fixed-at-init discipline (spec §4.6).
type Ordering int

const (
	OrderingFIFO Ordering = iota
	OrderingPriorityDeadline
)

// Entry is one queued transaction's ordering key plus its ID. The queue
// itself holds no transaction state beyond what it needs to order and
// locate entries; txstore remains the sole owner of the record.
type Entry struct {
	TransactionID string
	Priority      int
	DeadlineTick  uint64
	ArrivalTick   uint64
}

// Queue holds one agent's pending transaction IDs in the configured order.
type Queue struct {
	ordering Ordering
	entries  []Entry
}

// New constructs an empty queue with a fixed ordering discipline.
func New(ordering Ordering) *Queue {
	return &Queue{ordering: ordering}
}

// Push appends an entry at the tail, then re-sorts if priority-deadline
// ordering is configured.
func (q *Queue) Push(e Entry) {
	q.entries = append(q.entries, e)
	q.sortIfNeeded()
}

// PushFront inserts entries at the head in order, used when a Split
// replaces its parent with children (spec §4.6). Under priority-deadline
// ordering the subsequent sort determines their final position; under
// FIFO they keep the head position they were inserted at.
func (q *Queue) PushFront(es []Entry) {
	q.entries = append(append([]Entry(nil), es...), q.entries...)
	q.sortIfNeeded()
}

// Head returns the entry at the front without removing it.
func (q *Queue) Head() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	return q.entries[0], true
}

// PopHead removes and returns the front entry.
func (q *Queue) PopHead() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

// Len reports the number of queued entries.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Ordering returns the queue's fixed ordering discipline, for snapshotting.
func (q *Queue) Ordering() Ordering {
	return q.ordering
}

// All returns a copy of the queue contents in current order.
func (q *Queue) All() []Entry {
	return append([]Entry(nil), q.entries...)
}

// Remove drops the named transaction from the queue if present, returning
// whether it was found. The orchestrator's Drop action pops the head
// instead, and the LSM pass only removes from Q2.
func (q *Queue) Remove(transactionID string) bool {
	for i, e := range q.entries {
		if e.TransactionID == transactionID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// UpdatePriority updates a queued entry's priority (called after a C10
// escalation) and reorders if priority-deadline discipline is configured.
// Reports whether the entry was found.
func (q *Queue) UpdatePriority(transactionID string, newPriority int) bool {
	for i := range q.entries {
		if q.entries[i].TransactionID == transactionID {
			q.entries[i].Priority = newPriority
			q.sortIfNeeded()
			return true
		}
	}
	return false
}

// sortIfNeeded stably re-sorts by priority (descending), then deadline
// (ascending), then arrival_tick (ascending) under priority-deadline
// ordering (spec §4.6). FIFO ordering never reorders.
func (q *Queue) sortIfNeeded() {
	if q.ordering != OrderingPriorityDeadline {
		return
	}
	sort.SliceStable(q.entries, func(i, j int) bool {
		a, b := q.entries[i], q.entries[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.DeadlineTick != b.DeadlineTick {
			return a.DeadlineTick < b.DeadlineTick
		}
		return a.ArrivalTick < b.ArrivalTick
	})
}

// Package txstore is the sole owner of Transaction records (spec §4.5):
// creation, status transitions, splits, and the query helpers the
// programmatic surface exposes.
package txstore

import (
	"fmt"
	"sort"

	kyderrors "kyd/pkg/errors"
	"kyd/pkg/money"

	"github.com/google/uuid"
)

// Status is a Transaction's lifecycle state.
type Status int

const (
	StatusPending Status = iota
	StatusQueued1
	StatusQueued2
	StatusSettled
	StatusOverdue
	StatusDropped
	StatusSplit
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusQueued1:
		return "Queued1"
	case StatusQueued2:
		return "Queued2"
	case StatusSettled:
		return "Settled"
	case StatusOverdue:
		return "Overdue"
	case StatusDropped:
		return "Dropped"
	case StatusSplit:
		return "Split"
	default:
		return "Unknown"
	}
}

// Transaction is the full record owned by the store. External code gets
// read-only views via the store's query methods, never a live pointer
// into another component's state.
type Transaction struct {
	ID               string
	Sender           string
	Receiver         string
	Amount           money.Money
	RemainingAmount  money.Money
	ArrivalTick      uint64
	DeadlineTick     uint64
	Priority         int
	OriginalPriority int
	Divisible        bool
	Status           Status
	ParentID         string
	HasParent        bool
	SplitIndex       int
	Children         []string

	TicksInQ1      uint64
	TicksInQ2      uint64
	OverdueSince   uint64
	IsOverdue      bool
	AccruedPenalty money.Money
}

// View is the read-only projection returned by GetByID / query helpers.
type View struct {
	Transaction
}

// Store owns every Transaction record.
type Store struct {
	byID  map[string]*Transaction
	order []string // insertion order, for deterministic iteration
}

// New constructs an empty store.
func New() *Store {
	return &Store{byID: make(map[string]*Transaction)}
}

// Create mints a new Transaction with a fresh TransactionId and records it
// as Pending.
func (s *Store) Create(sender, receiver string, amount money.Money, arrivalTick, deadlineTick uint64, priority int, divisible bool) (*Transaction, error) {
	if amount <= 0 {
		return nil, &kyderrors.SubmissionError{Err: kyderrors.ErrInvalidAmount}
	}
	if deadlineTick < arrivalTick {
		return nil, &kyderrors.SubmissionError{Err: kyderrors.ErrDeadlineInPast}
	}
	tx := &Transaction{
		ID:               uuid.New().String(),
		Sender:           sender,
		Receiver:         receiver,
		Amount:           amount,
		RemainingAmount:  amount,
		ArrivalTick:      arrivalTick,
		DeadlineTick:     deadlineTick,
		Priority:         priority,
		OriginalPriority: priority,
		Divisible:        divisible,
		Status:           StatusPending,
	}
	s.byID[tx.ID] = tx
	s.order = append(s.order, tx.ID)
	return tx, nil
}

// Get returns the live record for internal engine use. Callers outside
// txstore must not retain this pointer across a tick boundary.
func (s *Store) Get(id string) (*Transaction, bool) {
	tx, ok := s.byID[id]
	return tx, ok
}

// GetByID returns a read-only snapshot for external callers.
func (s *Store) GetByID(id string) (View, bool) {
	tx, ok := s.byID[id]
	if !ok {
		return View{}, false
	}
	return View{Transaction: *tx}, true
}

var validTransitions = map[Status]map[Status]bool{
	StatusPending: {StatusQueued1: true, StatusSplit: true},
	StatusQueued1: {StatusQueued2: true, StatusDropped: true, StatusOverdue: true, StatusSplit: true},
	StatusQueued2: {StatusSettled: true, StatusOverdue: true},
	// A transaction moves from Queued1 or Queued2 to Overdue the tick it
	// crosses its deadline (IsOverdue and OverdueSince record that); from
	// Overdue it can still resume the ordinary pipeline or terminate.
	StatusOverdue: {StatusQueued2: true, StatusSettled: true, StatusDropped: true, StatusSplit: true},
}

// Transition validates and applies a status change (spec §4.5). Any
// invalid transition is a ConsistencyBug: the orchestrator must never
// attempt one.
func (s *Store) Transition(id string, to Status) error {
	tx, ok := s.byID[id]
	if !ok {
		return kyderrors.NewConsistencyBug("txstore.Transition", fmt.Errorf("%w: %s", kyderrors.ErrUnknownTransaction, id))
	}
	allowed := validTransitions[tx.Status]
	if !allowed[to] {
		return kyderrors.NewConsistencyBug("txstore.Transition",
			fmt.Errorf("%w: %s -> %s for tx %s", kyderrors.ErrInvalidTransition, tx.Status, to, id))
	}
	tx.Status = to
	return nil
}

// Split marks the parent Split and creates len(amounts) children that
// inherit deadline and original_priority (spec §4.5). The caller
// (the tick orchestrator) is responsible for enqueueing the children.
func (s *Store) Split(parentID string, amounts []money.Money) ([]*Transaction, error) {
	parent, ok := s.byID[parentID]
	if !ok {
		return nil, kyderrors.NewConsistencyBug("txstore.Split", fmt.Errorf("%w: %s", kyderrors.ErrUnknownTransaction, parentID))
	}
	var sum money.Money
	for _, a := range amounts {
		var ok bool
		sum, ok = sum.Add(a)
		if !ok {
			return nil, kyderrors.NewConsistencyBug("txstore.Split", fmt.Errorf("split amounts overflow"))
		}
	}
	if sum != parent.RemainingAmount {
		return nil, kyderrors.NewConsistencyBug("txstore.Split",
			fmt.Errorf("split amounts sum %d != remaining %d", sum, parent.RemainingAmount))
	}

	children := make([]*Transaction, 0, len(amounts))
	for i, amt := range amounts {
		child := &Transaction{
			ID:               uuid.New().String(),
			Sender:           parent.Sender,
			Receiver:         parent.Receiver,
			Amount:           amt,
			RemainingAmount:  amt,
			ArrivalTick:      parent.ArrivalTick,
			DeadlineTick:     parent.DeadlineTick,
			Priority:         parent.Priority,
			OriginalPriority: parent.OriginalPriority,
			Divisible:        parent.Divisible,
			Status:           StatusPending,
			ParentID:         parent.ID,
			HasParent:        true,
			SplitIndex:       i,
		}
		s.byID[child.ID] = child
		s.order = append(s.order, child.ID)
		children = append(children, child)
		parent.Children = append(parent.Children, child.ID)
	}

	if err := s.Transition(parentID, StatusSplit); err != nil {
		return nil, err
	}
	return children, nil
}

// MarkSettled zeroes RemainingAmount and transitions the record to Settled.
func (s *Store) MarkSettled(id string) error {
	tx, ok := s.byID[id]
	if !ok {
		return kyderrors.NewConsistencyBug("txstore.MarkSettled", fmt.Errorf("%w: %s", kyderrors.ErrUnknownTransaction, id))
	}
	tx.RemainingAmount = 0
	return s.Transition(id, StatusSettled)
}

// NearDeadline returns pending transactions whose ticks-to-deadline is
// within the given window, ordered by deadline then arrival.
func (s *Store) NearDeadline(currentTick uint64, within uint64) []View {
	var out []View
	for _, id := range s.order {
		tx := s.byID[id]
		if !isOpen(tx.Status) {
			continue
		}
		if tx.DeadlineTick < currentTick {
			continue
		}
		if tx.DeadlineTick-currentTick <= within {
			out = append(out, View{Transaction: *tx})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeadlineTick != out[j].DeadlineTick {
			return out[i].DeadlineTick < out[j].DeadlineTick
		}
		return out[i].ArrivalTick < out[j].ArrivalTick
	})
	return out
}

// Overdue returns every transaction currently in Overdue status.
func (s *Store) Overdue() []View {
	var out []View
	for _, id := range s.order {
		tx := s.byID[id]
		if tx.Status == StatusOverdue {
			out = append(out, View{Transaction: *tx})
		}
	}
	return out
}

// ByDay returns every transaction whose arrival tick falls in
// [dayStart, dayEnd).
func (s *Store) ByDay(dayStart, dayEnd uint64) []View {
	var out []View
	for _, id := range s.order {
		tx := s.byID[id]
		if tx.ArrivalTick >= dayStart && tx.ArrivalTick < dayEnd {
			out = append(out, View{Transaction: *tx})
		}
	}
	return out
}

// OpenIDs returns the IDs of every transaction still open (Pending,
// Queued1, Queued2, or Overdue), in creation order.
func (s *Store) OpenIDs() []string {
	var out []string
	for _, id := range s.order {
		if isOpen(s.byID[id].Status) {
			out = append(out, id)
		}
	}
	return out
}

// Export returns a deep copy of every transaction record in creation
// order, for snapshotting.
func (s *Store) Export() []*Transaction {
	out := make([]*Transaction, len(s.order))
	for i, id := range s.order {
		cp := *s.byID[id]
		out[i] = &cp
	}
	return out
}

// Restore rebuilds a Store from records previously returned by Export,
// preserving their original creation order.
func Restore(transactions []*Transaction) *Store {
	s := New()
	for _, t := range transactions {
		cp := *t
		s.byID[cp.ID] = &cp
		s.order = append(s.order, cp.ID)
	}
	return s
}

func isOpen(s Status) bool {
	return s == StatusPending || s == StatusQueued1 || s == StatusQueued2 || s == StatusOverdue
}

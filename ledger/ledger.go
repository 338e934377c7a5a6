// Package ledger derives stock levels from an item's movement history.
//
// Stock is never stored. The current level of an item is the signed sum of
// its movements, and the per-entry history is a running balance over the
// movements ordered by creation time.
package ledger

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"time"
)

type MovementType string

const (
	In     MovementType = "IN"
	Out    MovementType = "OUT"
	Adjust MovementType = "ADJUST"
)

// Types lists the recognised movement types in display order.
var Types = []MovementType{In, Out, Adjust}

func (t MovementType) Valid() bool {
	switch t {
	case In, Out, Adjust:
		return true
	}
	return false
}

// ParseMovementType accepts only the recognised tags. It is the input-time
// check; stored rows with other values are tolerated by Delta instead.
func ParseMovementType(s string) (MovementType, error) {
	t := MovementType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown movement type %q", s)
	}
	return t, nil
}

// Delta is the signed contribution of one movement. ADJUST is additive
// only. Unrecognised types contribute zero.
func Delta(t MovementType, quantity int64) int64 {
	switch t {
	case In, Adjust:
		return quantity
	case Out:
		return -quantity
	default:
		return 0
	}
}

// Movement is the part of a stored movement the ledger needs.
type Movement struct {
	ID        int64
	Type      MovementType
	Quantity  int64
	CreatedAt time.Time
}

// Sum is the aggregate signed total of ms. Order does not matter.
func Sum(ms []Movement) int64 {
	var total int64
	for _, m := range ms {
		total += Delta(m.Type, m.Quantity)
	}
	return total
}

func compare(a, b Movement) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Order returns a copy of ms sorted by creation time, ties broken by ID.
func Order(ms []Movement) []Movement {
	out := slices.Clone(ms)
	slices.SortStableFunc(out, compare)
	return out
}

// Entry is one line of an item's history.
type Entry[T any] struct {
	Row     T
	Delta   int64
	Balance int64
}

// Ledger is the ordered history of a single item. Rows are kept in ledger
// order; the zero Ledger is empty.
type Ledger[T any] struct {
	rows []T
	keys []Movement
}

// New orders a copy of rows using key to extract the ledger fields.
func New[T any](rows []T, key func(T) Movement) *Ledger[T] {
	idx := make([]int, len(rows))
	keys := make([]Movement, len(rows))
	for i, r := range rows {
		idx[i] = i
		keys[i] = key(r)
	}
	slices.SortStableFunc(idx, func(a, b int) int { return compare(keys[a], keys[b]) })

	l := &Ledger[T]{rows: make([]T, len(rows)), keys: make([]Movement, len(rows))}
	for i, j := range idx {
		l.rows[i] = rows[j]
		l.keys[i] = keys[j]
	}
	return l
}

// Of builds a ledger directly over movements.
func Of(ms []Movement) *Ledger[Movement] {
	return New(ms, func(m Movement) Movement { return m })
}

// Entries yields the history lazily. Each call starts a fresh walk from a
// zero balance.
func (l *Ledger[T]) Entries() iter.Seq[Entry[T]] {
	return func(yield func(Entry[T]) bool) {
		var balance int64
		for i, k := range l.keys {
			d := Delta(k.Type, k.Quantity)
			balance += d
			if !yield(Entry[T]{Row: l.rows[i], Delta: d, Balance: balance}) {
				return
			}
		}
	}
}

// Collect materialises the history.
func (l *Ledger[T]) Collect() []Entry[T] {
	out := make([]Entry[T], 0, len(l.keys))
	for e := range l.Entries() {
		out = append(out, e)
	}
	return out
}

// Balance is the balance after the last entry, i.e. current stock.
func (l *Ledger[T]) Balance() int64 {
	var balance int64
	for e := range l.Entries() {
		balance = e.Balance
	}
	return balance
}

func (l *Ledger[T]) Len() int { return len(l.keys) }

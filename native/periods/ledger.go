// Package periods records how many checkers were active as of each
// settlement period in a fixed sixteen slot ring.
package periods

import (
	"fmt"

	coreerrors "depinledger/core/errors"
)

// Capacity is the number of retained period entries.
const Capacity = 16

var (
	ErrPeriodNotIncreasing = coreerrors.New(coreerrors.KindPrecondition, "periods: period must be greater than the last recorded period")
	ErrCorruptCursor       = coreerrors.New(coreerrors.KindDataCorruption, "periods: write cursor out of range")
)

// Entry is a (period, active checker count) pair.
type Entry struct {
	Period uint16
	Count  uint32
}

// Pack encodes the entry with the period in bits 48..63 and the count in the
// low 32 bits. The zero word marks an unused slot.
func (e Entry) Pack() uint64 {
	return uint64(e.Period)<<48 | uint64(e.Count)
}

// Unpack decodes a packed entry.
func Unpack(word uint64) Entry {
	return Entry{Period: uint16(word >> 48), Count: uint32(word & 0xFFFF_FFFF)}
}

// Ledger is the period ring. The zero value is an empty ledger.
type Ledger struct {
	Entries [Capacity]uint64
	Cursor  uint8
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Validate checks the cursor read back from storage.
func (l *Ledger) Validate() error {
	if l.Cursor >= Capacity {
		return fmt.Errorf("%w: %d", ErrCorruptCursor, l.Cursor)
	}
	return nil
}

// Append records count for period, overwriting the oldest entry once every
// slot has been used. The period must exceed the last recorded one.
func (l *Ledger) Append(period uint16, count uint32) error {
	if last, ok := l.Last(); ok && period <= last.Period {
		return fmt.Errorf("%w: %d <= %d", ErrPeriodNotIncreasing, period, last.Period)
	}
	l.push(Entry{Period: period, Count: count}.Pack())
	return nil
}

func (l *Ledger) push(word uint64) {
	l.Entries[l.Cursor] = word
	l.Cursor = (l.Cursor + 1) % Capacity
}

// CountAsOf returns the count of the most recent entry whose period is at or
// before target.
func (l *Ledger) CountAsOf(target uint16) (uint32, bool) {
	for i := 1; i <= Capacity; i++ {
		word := l.Entries[l.slotBack(i)]
		if word == 0 {
			continue
		}
		entry := Unpack(word)
		// Entries grow in insertion order, so the first hit walking back is
		// the latest qualifying one.
		if entry.Period <= target {
			return entry.Count, true
		}
	}
	return 0, false
}

// Last returns the most recently appended entry.
func (l *Ledger) Last() (Entry, bool) {
	word := l.Entries[l.slotBack(1)]
	if word == 0 {
		return Entry{}, false
	}
	return Unpack(word), true
}

// Retained lists the stored entries oldest first.
func (l *Ledger) Retained() []Entry {
	out := make([]Entry, 0, Capacity)
	for i := Capacity; i >= 1; i-- {
		word := l.Entries[l.slotBack(i)]
		if word == 0 {
			continue
		}
		out = append(out, Unpack(word))
	}
	return out
}

// slotBack returns the slot written n appends ago, n in [1, Capacity].
func (l *Ledger) slotBack(n int) int {
	return (int(l.Cursor) - n + Capacity) % Capacity
}

// Clone returns a copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return New()
	}
	clone := *l
	return &clone
}

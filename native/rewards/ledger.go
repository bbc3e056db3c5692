package rewards

import (
	"encoding/binary"
	"fmt"
	"math"

	coreerrors "depinledger/core/errors"
)

const (
	// Capacity is the number of checker slots in the global ledger.
	Capacity = 100_000

	elemSize = 4
	// PayloadSize is the size of the dense little-endian balance array.
	PayloadSize = Capacity * elemSize
)

var (
	ErrIndexOutOfRange = coreerrors.New(coreerrors.KindResourceExhaustion, "rewards: checker index out of range")
	ErrPayloadSize     = coreerrors.New(coreerrors.KindDataCorruption, "rewards: malformed ledger payload")
)

// Ledger holds the accrued balance of every checker slot as a contiguous
// little-endian u32 array. Slots are independent; no operation touches more
// than the addressed slot.
type Ledger struct {
	data []byte
}

// NewLedger returns a ledger with every balance at zero.
func NewLedger() *Ledger {
	return &Ledger{data: make([]byte, PayloadSize)}
}

// LedgerFromBytes wraps a stored payload. The slice is copied.
func LedgerFromBytes(payload []byte) (*Ledger, error) {
	if len(payload) != PayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadSize, len(payload))
	}
	return &Ledger{data: append([]byte(nil), payload...)}, nil
}

// Bytes returns the encoded payload. Callers must not modify it.
func (l *Ledger) Bytes() []byte {
	return l.data
}

func (l *Ledger) offset(index uint32) (int, error) {
	if index >= Capacity {
		return 0, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return int(index) * elemSize, nil
}

// Read returns the balance of checker index.
func (l *Ledger) Read(index uint32) (uint32, error) {
	off, err := l.offset(index)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(l.data[off:]), nil
}

// Credit adds amount to checker index, saturating at the u32 maximum.
func (l *Ledger) Credit(index uint32, amount uint32) error {
	off, err := l.offset(index)
	if err != nil {
		return err
	}
	current := binary.LittleEndian.Uint32(l.data[off:])
	binary.LittleEndian.PutUint32(l.data[off:], saturatingAdd(current, amount))
	return nil
}

// Reset zeroes checker index.
func (l *Ledger) Reset(index uint32) error {
	off, err := l.offset(index)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(l.data[off:], 0)
	return nil
}

func saturatingAdd(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}

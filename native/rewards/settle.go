package rewards

import (
	"fmt"
	"math/bits"

	coreerrors "depinledger/core/errors"
	"depinledger/native/brand"
)

const (
	// BitmapWords is the number of 64-bit words in a submission bitmap.
	BitmapWords = 8
	// MaxSlots is the number of checker slots a single worker submission
	// can attest.
	MaxSlots = BitmapWords * 64
)

var (
	ErrNoCheckers    = coreerrors.New(coreerrors.KindPrecondition, "rewards: no active checkers for period")
	ErrBitOutOfRange = coreerrors.New(coreerrors.KindPrecondition, "rewards: bitmap references an unassigned slot")
)

// Bitmap marks which of a worker's assigned checker slots qualified.
type Bitmap [BitmapWords]uint64

// ForEach visits every set bit, words ascending and bits low to high.
func (b Bitmap) ForEach(fn func(bit int)) {
	for word, value := range b {
		for value != 0 {
			fn(word*64 + bits.TrailingZeros64(value))
			value &= value - 1
		}
	}
}

// Count returns the number of set bits.
func (b Bitmap) Count() int {
	n := 0
	for _, value := range b {
		n += bits.OnesCount64(value)
	}
	return n
}

// HighestBit returns the largest set bit position, or -1 for an empty bitmap.
func (b Bitmap) HighestBit() int {
	for word := BitmapWords - 1; word >= 0; word-- {
		if b[word] != 0 {
			return word*64 + 63 - bits.LeadingZeros64(b[word])
		}
	}
	return -1
}

// AssignedSlots returns how many slots a submission can attest for a period
// with checkerCount active checkers.
func AssignedSlots(checkerCount uint32) int {
	if uint64(checkerCount) < MaxSlots {
		return int(checkerCount)
	}
	return MaxSlots
}

// Assignment returns the checker index behind each slot position for the
// submission identified by key in period p.
func Assignment(key []byte, p uint16, checkerCount uint32) ([]uint32, error) {
	if checkerCount == 0 {
		return nil, fmt.Errorf("%w: period %d", ErrNoCheckers, p)
	}
	return brand.SampleDistinct(key, p, AssignedSlots(checkerCount), uint64(checkerCount))
}

// Settlement describes the credits applied for one submission.
type Settlement struct {
	Period   uint16
	Reward   uint16
	Credited []uint32
}

// Total is the sum credited across all checkers.
func (s *Settlement) Total() uint64 {
	if s == nil {
		return 0
	}
	return uint64(s.Reward) * uint64(len(s.Credited))
}

// Plan resolves the checker indices credited by bitmap without touching any
// ledger. Every index is bounds checked.
func Plan(key []byte, p uint16, checkerCount uint32, bitmap Bitmap) (*Settlement, error) {
	slots, err := Assignment(key, p, checkerCount)
	if err != nil {
		return nil, err
	}
	if high := bitmap.HighestBit(); high >= len(slots) {
		return nil, fmt.Errorf("%w: bit %d with %d slots", ErrBitOutOfRange, high, len(slots))
	}
	credited := make([]uint32, 0, bitmap.Count())
	var bad error
	bitmap.ForEach(func(bit int) {
		index := slots[bit]
		if index >= Capacity && bad == nil {
			bad = fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		credited = append(credited, index)
	})
	if bad != nil {
		return nil, bad
	}
	return &Settlement{Period: p, Reward: RewardPerChecker(p), Credited: credited}, nil
}

// Settle plans the submission and then credits every selected checker. The
// ledger is untouched when planning fails.
func Settle(l *Ledger, key []byte, p uint16, checkerCount uint32, bitmap Bitmap) (*Settlement, error) {
	plan, err := Plan(key, p, checkerCount, bitmap)
	if err != nil {
		return nil, err
	}
	for _, index := range plan.Credited {
		if err := l.Credit(index, uint32(plan.Reward)); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

package vesting

import (
	"github.com/gagliardetto/solana-go"
)

const (
	// BpsDenominator is 100% in basis points.
	BpsDenominator = 10_000
	// MaxPenaltyBps is the forfeiture applied when unlocking at grant time.
	MaxPenaltyBps = 9_000
	// DefaultCheckerRewardsLockDays is the lock applied to checker payouts.
	DefaultCheckerRewardsLockDays uint16 = 365
)

// Lock is the accumulation bucket for one owner and lock schedule.
type Lock struct {
	Owner        solana.PublicKey
	TotalLocked  uint64
	LockPeriod   uint16
	UnlockPeriod uint16
	// UnlockedAt is the unix time of the one-way unlock, nil while locked.
	UnlockedAt *int64
}

// Unlocked reports whether the lock reached its terminal state.
func (l *Lock) Unlocked() bool {
	return l != nil && l.UnlockedAt != nil
}

// Clone returns a deep copy.
func (l *Lock) Clone() *Lock {
	if l == nil {
		return nil
	}
	clone := *l
	if l.UnlockedAt != nil {
		ts := *l.UnlockedAt
		clone.UnlockedAt = &ts
	}
	return &clone
}

// TreasuryState tracks the sum of TotalLocked over every lock that has not
// been unlocked.
type TreasuryState struct {
	LockedBalance uint64
}

// TreasuryConfig holds the treasury parameters set at network init.
type TreasuryConfig struct {
	CheckerRewardsLockDays uint16
}

// DefaultTreasuryConfig returns the production lock duration.
func DefaultTreasuryConfig() TreasuryConfig {
	return TreasuryConfig{CheckerRewardsLockDays: DefaultCheckerRewardsLockDays}
}

// Grant reports the outcome of a successful grant.
type Grant struct {
	Address solana.PublicKey
	Lock    *Lock
	Amount  uint64
	Created bool
}

// Release reports the outcome of a successful unlock.
type Release struct {
	Address    solana.PublicKey
	Owner      solana.PublicKey
	Total      uint64
	PenaltyBps uint16
	Penalty    uint64
	Payout     uint64
	UnlockedAt int64
}

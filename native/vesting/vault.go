// Package vesting locks granted rewards for a fixed number of periods and
// releases them early only against a linearly decaying penalty.
package vesting

import (
	"fmt"
	"math"
	"math/bits"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"depinledger/core/address"
	coreerrors "depinledger/core/errors"
)

var (
	ErrZeroAmount           = coreerrors.New(coreerrors.KindPrecondition, "vesting: amount must be positive")
	ErrScheduleOverflow     = coreerrors.New(coreerrors.KindPrecondition, "vesting: unlock period exceeds u16")
	ErrLockNotFound         = coreerrors.New(coreerrors.KindPrecondition, "vesting: lock not found")
	ErrLockIdentity         = coreerrors.New(coreerrors.KindPrecondition, "vesting: lock record does not match derived address")
	ErrNotOwner             = coreerrors.New(coreerrors.KindAuthorization, "vesting: only the lock owner can unlock")
	ErrAlreadyUnlocked      = coreerrors.New(coreerrors.KindStateConflict, "vesting: lock already unlocked")
	ErrInsufficientTreasury = coreerrors.New(coreerrors.KindResourceExhaustion, "vesting: insufficient available treasury balance")
	ErrLockedOverflow       = coreerrors.New(coreerrors.KindResourceExhaustion, "vesting: locked amount overflows")
	ErrTreasuryUnderflow    = coreerrors.New(coreerrors.KindDataCorruption, "vesting: treasury locked balance below lock total")
	ErrTreasuryMissing      = coreerrors.New(coreerrors.KindStateConflict, "vesting: treasury not initialised")
)

// State describes the records the vault reads and writes. VestingLock
// returns nil when no record exists at addr.
type State interface {
	VestingLock(addr solana.PublicKey) (*Lock, error)
	PutVestingLock(addr solana.PublicKey, lock *Lock) error
	TreasuryState() (*TreasuryState, error)
	PutTreasuryState(ts *TreasuryState) error
	// TreasuryTokenBalance is the spendable token balance held by the
	// treasury authority.
	TreasuryTokenBalance() (uint64, error)
}

// Vault applies grants and unlocks for one program.
type Vault struct {
	program solana.PublicKey
}

// NewVault binds a vault to the program that owns its records.
func NewVault(program solana.PublicKey) *Vault {
	return &Vault{program: program}
}

// LockAddress returns the bucket address for owner and schedule.
func (v *Vault) LockAddress(owner solana.PublicKey, lockPeriod, unlockPeriod uint16) (solana.PublicKey, error) {
	return address.Lock(v.program, owner, lockPeriod, unlockPeriod)
}

// Grant locks amount for owner from current for lockDays periods. Grants with
// the same owner and schedule accumulate into one record. The treasury must
// hold at least amount beyond what is already locked.
func (v *Vault) Grant(st State, owner solana.PublicKey, current, lockDays uint16, amount uint64) (*Grant, error) {
	if amount == 0 {
		return nil, ErrZeroAmount
	}
	if uint32(current)+uint32(lockDays) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d + %d", ErrScheduleOverflow, current, lockDays)
	}
	unlock := current + lockDays
	addr, err := v.LockAddress(owner, current, unlock)
	if err != nil {
		return nil, err
	}

	existing, err := st.VestingLock(addr)
	if err != nil {
		return nil, err
	}
	created := existing == nil
	lock := existing
	if created {
		lock = &Lock{Owner: owner, TotalLocked: amount, LockPeriod: current, UnlockPeriod: unlock}
	} else {
		if lock.Owner != owner || lock.LockPeriod != current || lock.UnlockPeriod != unlock {
			return nil, fmt.Errorf("%w: %s", ErrLockIdentity, addr)
		}
		if lock.Unlocked() {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyUnlocked, addr)
		}
		total, carry := bits.Add64(lock.TotalLocked, amount, 0)
		if carry != 0 {
			return nil, ErrLockedOverflow
		}
		lock = lock.Clone()
		lock.TotalLocked = total
	}

	treasury, err := st.TreasuryState()
	if err != nil {
		return nil, err
	}
	if treasury == nil {
		return nil, ErrTreasuryMissing
	}
	balance, err := st.TreasuryTokenBalance()
	if err != nil {
		return nil, err
	}
	var available uint64
	if balance > treasury.LockedBalance {
		available = balance - treasury.LockedBalance
	}
	if available < amount {
		return nil, fmt.Errorf("%w: available %d, required %d", ErrInsufficientTreasury, available, amount)
	}
	lockedBalance, carry := bits.Add64(treasury.LockedBalance, amount, 0)
	if carry != 0 {
		return nil, ErrLockedOverflow
	}

	if err := st.PutVestingLock(addr, lock); err != nil {
		return nil, err
	}
	if err := st.PutTreasuryState(&TreasuryState{LockedBalance: lockedBalance}); err != nil {
		return nil, err
	}
	return &Grant{Address: addr, Lock: lock.Clone(), Amount: amount, Created: created}, nil
}

// Unlock releases the lock at addr for its owner. The penalty stays with the
// treasury; the caller transfers Payout.
func (v *Vault) Unlock(st State, caller, addr solana.PublicKey, current uint16, now time.Time) (*Release, error) {
	lock, err := st.VestingLock(addr)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, fmt.Errorf("%w: %s", ErrLockNotFound, addr)
	}
	derived, err := v.LockAddress(lock.Owner, lock.LockPeriod, lock.UnlockPeriod)
	if err != nil {
		return nil, err
	}
	if derived != addr {
		return nil, fmt.Errorf("%w: %s", ErrLockIdentity, addr)
	}
	if lock.Unlocked() {
		return nil, fmt.Errorf("%w: at %d", ErrAlreadyUnlocked, *lock.UnlockedAt)
	}
	if caller != lock.Owner {
		return nil, ErrNotOwner
	}

	treasury, err := st.TreasuryState()
	if err != nil {
		return nil, err
	}
	if treasury == nil {
		return nil, ErrTreasuryMissing
	}
	if treasury.LockedBalance < lock.TotalLocked {
		return nil, fmt.Errorf("%w: %d < %d", ErrTreasuryUnderflow, treasury.LockedBalance, lock.TotalLocked)
	}

	rate := PenaltyRateBps(lock.LockPeriod, current, lock.UnlockPeriod)
	penalty := PenaltyAmount(lock.TotalLocked, rate)
	ts := now.Unix()

	updated := lock.Clone()
	updated.UnlockedAt = &ts
	if err := st.PutVestingLock(addr, updated); err != nil {
		return nil, err
	}
	if err := st.PutTreasuryState(&TreasuryState{LockedBalance: treasury.LockedBalance - lock.TotalLocked}); err != nil {
		return nil, err
	}
	return &Release{
		Address:    addr,
		Owner:      lock.Owner,
		Total:      lock.TotalLocked,
		PenaltyBps: rate,
		Penalty:    penalty,
		Payout:     lock.TotalLocked - penalty,
		UnlockedAt: ts,
	}, nil
}

// PenaltyRateBps decays linearly from MaxPenaltyBps when the whole lock
// window remains to zero at the unlock period.
func PenaltyRateBps(lockPeriod, current, unlockPeriod uint16) uint16 {
	if unlockPeriod <= lockPeriod {
		return 0
	}
	duration := uint32(unlockPeriod - lockPeriod)
	var remaining uint32
	if current < unlockPeriod {
		remaining = uint32(unlockPeriod - current)
	}
	if remaining > duration {
		remaining = duration
	}
	return uint16(MaxPenaltyBps * remaining / duration)
}

// PenaltyAmount returns floor(total * rateBps / 10000) without overflowing.
func PenaltyAmount(total uint64, rateBps uint16) uint64 {
	if rateBps > BpsDenominator {
		rateBps = BpsDenominator
	}
	product := new(uint256.Int).Mul(uint256.NewInt(total), uint256.NewInt(uint64(rateBps)))
	return product.Div(product, uint256.NewInt(BpsDenominator)).Uint64()
}

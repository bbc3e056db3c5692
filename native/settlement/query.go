package settlement

import (
	"github.com/gagliardetto/solana-go"

	"depinledger/core/state"
	"depinledger/native/periods"
	"depinledger/native/registry"
	"depinledger/native/rewards"
	"depinledger/native/vesting"
)

// PeriodView is the retained period ledger together with the current period.
type PeriodView struct {
	Current uint16
	Entries []periods.Entry
}

// Periods returns the retained (period, checker count) entries, oldest first.
func (e *Engine) Periods() (*PeriodView, error) {
	current, err := e.CurrentPeriod()
	if err != nil {
		return nil, err
	}
	view := &PeriodView{Current: current}
	err = e.state.View(func(tx *state.Tx) error {
		ledger, err := tx.PeriodLedger()
		if err != nil {
			return err
		}
		if ledger == nil {
			return ErrNotInitialized
		}
		view.Entries = ledger.Retained()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// CheckerCount returns the count in effect for period p.
func (e *Engine) CheckerCount(p uint16) (uint32, bool, error) {
	var (
		count uint32
		found bool
	)
	err := e.state.View(func(tx *state.Tx) error {
		ledger, err := tx.PeriodLedger()
		if err != nil {
			return err
		}
		if ledger == nil {
			return ErrNotInitialized
		}
		count, found = ledger.CountAsOf(p)
		return nil
	})
	return count, found, err
}

// CheckerBalance returns the accrued balance at index.
func (e *Engine) CheckerBalance(index uint32) (uint32, error) {
	var balance uint32
	err := e.state.View(func(tx *state.Tx) error {
		ledger, err := tx.RewardsLedger()
		if err != nil {
			return err
		}
		if ledger == nil {
			return ErrNotInitialized
		}
		balance, err = ledger.Read(index)
		return err
	})
	return balance, err
}

// TreasuryView summarises the treasury records.
type TreasuryView struct {
	Authority              solana.PublicKey
	TokenBalance           uint64
	LockedBalance          uint64
	CheckerRewardsLockDays uint16
}

// Available is the balance not backing any lock.
func (v *TreasuryView) Available() uint64 {
	if v.TokenBalance < v.LockedBalance {
		return 0
	}
	return v.TokenBalance - v.LockedBalance
}

func (e *Engine) Treasury() (*TreasuryView, error) {
	view := &TreasuryView{}
	err := e.state.View(func(tx *state.Tx) error {
		ts, err := tx.TreasuryState()
		if err != nil {
			return err
		}
		cfg, err := tx.TreasuryConfig()
		if err != nil {
			return err
		}
		if ts == nil || cfg == nil {
			return ErrNotInitialized
		}
		authority, err := tx.TreasuryAuthority()
		if err != nil {
			return err
		}
		balance, err := tx.TokenBalance(authority)
		if err != nil {
			return err
		}
		view.Authority = authority
		view.TokenBalance = balance
		view.LockedBalance = ts.LockedBalance
		view.CheckerRewardsLockDays = cfg.CheckerRewardsLockDays
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Lock returns the lock at addr, nil when none exists.
func (e *Engine) Lock(addr solana.PublicKey) (*vesting.Lock, error) {
	var lock *vesting.Lock
	err := e.state.View(func(tx *state.Tx) error {
		var err error
		lock, err = tx.VestingLock(addr)
		return err
	})
	return lock, err
}

// LockAddress derives the lock bucket for owner and schedule.
func (e *Engine) LockAddress(owner solana.PublicKey, lockPeriod, unlockPeriod uint16) (solana.PublicKey, error) {
	return e.vault.LockAddress(owner, lockPeriod, unlockPeriod)
}

// PenaltyPreview returns the penalty rate and payout an unlock of lock would
// yield right now.
func (e *Engine) PenaltyPreview(lock *vesting.Lock) (uint16, uint64, error) {
	current, err := e.CurrentPeriod()
	if err != nil {
		return 0, 0, err
	}
	rate := vesting.PenaltyRateBps(lock.LockPeriod, current, lock.UnlockPeriod)
	return rate, lock.TotalLocked - vesting.PenaltyAmount(lock.TotalLocked, rate), nil
}

// WorkerProof returns the proof stored for (license, period), nil if none.
func (e *Engine) WorkerProof(license solana.PublicKey, p uint16) (*rewards.Proof, error) {
	var proof *rewards.Proof
	err := e.state.View(func(tx *state.Tx) error {
		var err error
		proof, err = tx.WorkerProof(license, p)
		return err
	})
	return proof, err
}

// Participant returns the participant record, nil if never activated.
func (e *Engine) Participant(role registry.Role, license, owner solana.PublicKey) (*registry.Participant, error) {
	var p *registry.Participant
	err := e.state.View(func(tx *state.Tx) error {
		var err error
		p, err = tx.Participant(role, license, owner)
		return err
	})
	return p, err
}

// TokenBalance returns the token balance held by owner.
func (e *Engine) TokenBalance(owner solana.PublicKey) (uint64, error) {
	var balance uint64
	err := e.state.View(func(tx *state.Tx) error {
		var err error
		balance, err = tx.TokenBalance(owner)
		return err
	})
	return balance, err
}

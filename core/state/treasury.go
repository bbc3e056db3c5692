package state

import (
	"github.com/gagliardetto/solana-go"

	"depinledger/core/address"
	"depinledger/native/bank"
	"depinledger/native/vesting"
)

var (
	_ vesting.State = (*Tx)(nil)
	_ bank.State    = (*Tx)(nil)
)

// VestingLock implements vesting.State.
func (tx *Tx) VestingLock(addr solana.PublicKey) (*vesting.Lock, error) {
	data, err := tx.get(addr)
	if err != nil || data == nil {
		return nil, err
	}
	var stored storedLock
	if err := decodeRecord(RecordVestingLock, data, &stored); err != nil {
		return nil, err
	}
	return &vesting.Lock{
		Owner:        stored.Owner,
		TotalLocked:  stored.TotalLocked,
		LockPeriod:   stored.LockPeriod,
		UnlockPeriod: stored.UnlockPeriod,
		UnlockedAt:   stored.UnlockedAt.pointer(),
	}, nil
}

func (tx *Tx) PutVestingLock(addr solana.PublicKey, lock *vesting.Lock) error {
	data, err := encodeRecord(RecordVestingLock, &storedLock{
		Owner:        lock.Owner,
		TotalLocked:  lock.TotalLocked,
		LockPeriod:   lock.LockPeriod,
		UnlockPeriod: lock.UnlockPeriod,
		UnlockedAt:   toOptional(lock.UnlockedAt),
	})
	if err != nil {
		return err
	}
	return tx.put(addr, data)
}

// TreasuryState implements vesting.State; nil before network init.
func (tx *Tx) TreasuryState() (*vesting.TreasuryState, error) {
	addr, err := address.TreasuryState(tx.Program())
	if err != nil {
		return nil, err
	}
	data, err := tx.get(addr)
	if err != nil || data == nil {
		return nil, err
	}
	var stored storedTreasuryState
	if err := decodeRecord(RecordTreasuryState, data, &stored); err != nil {
		return nil, err
	}
	return &vesting.TreasuryState{LockedBalance: stored.LockedBalance}, nil
}

func (tx *Tx) PutTreasuryState(ts *vesting.TreasuryState) error {
	addr, err := address.TreasuryState(tx.Program())
	if err != nil {
		return err
	}
	data, err := encodeRecord(RecordTreasuryState, &storedTreasuryState{LockedBalance: ts.LockedBalance})
	if err != nil {
		return err
	}
	return tx.put(addr, data)
}

// TreasuryConfig loads the treasury parameters, nil before network init.
func (tx *Tx) TreasuryConfig() (*vesting.TreasuryConfig, error) {
	addr, err := address.TreasuryConfig(tx.Program())
	if err != nil {
		return nil, err
	}
	data, err := tx.get(addr)
	if err != nil || data == nil {
		return nil, err
	}
	var stored storedTreasuryConfig
	if err := decodeRecord(RecordTreasuryConfig, data, &stored); err != nil {
		return nil, err
	}
	return &vesting.TreasuryConfig{CheckerRewardsLockDays: stored.CheckerRewardsLockDays}, nil
}

func (tx *Tx) PutTreasuryConfig(cfg *vesting.TreasuryConfig) error {
	addr, err := address.TreasuryConfig(tx.Program())
	if err != nil {
		return err
	}
	data, err := encodeRecord(RecordTreasuryConfig, &storedTreasuryConfig{CheckerRewardsLockDays: cfg.CheckerRewardsLockDays})
	if err != nil {
		return err
	}
	return tx.put(addr, data)
}

// TreasuryAuthority is the owner of the treasury token account.
func (tx *Tx) TreasuryAuthority() (solana.PublicKey, error) {
	return address.TreasuryAuthority(tx.Program())
}

// TreasuryTokenBalance implements vesting.State.
func (tx *Tx) TreasuryTokenBalance() (uint64, error) {
	authority, err := tx.TreasuryAuthority()
	if err != nil {
		return 0, err
	}
	return tx.TokenBalance(authority)
}

// TokenBalance implements bank.State. Missing accounts hold zero.
func (tx *Tx) TokenBalance(owner solana.PublicKey) (uint64, error) {
	addr, err := address.TokenAccount(tx.Program(), owner)
	if err != nil {
		return 0, err
	}
	data, err := tx.get(addr)
	if err != nil || data == nil {
		return 0, err
	}
	var stored storedTokenAccount
	if err := decodeRecord(RecordTokenAccount, data, &stored); err != nil {
		return 0, err
	}
	return stored.Amount, nil
}

func (tx *Tx) PutTokenBalance(owner solana.PublicKey, amount uint64) error {
	addr, err := address.TokenAccount(tx.Program(), owner)
	if err != nil {
		return err
	}
	data, err := encodeRecord(RecordTokenAccount, &storedTokenAccount{Owner: owner, Amount: amount})
	if err != nil {
		return err
	}
	return tx.put(addr, data)
}

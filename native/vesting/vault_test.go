package vesting

import (
	"math"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	coreerrors "depinledger/core/errors"
)

type mockState struct {
	locks    map[solana.PublicKey]*Lock
	treasury *TreasuryState
	balance  uint64
	writes   int
}

func newMockState(balance uint64) *mockState {
	return &mockState{
		locks:    make(map[solana.PublicKey]*Lock),
		treasury: &TreasuryState{},
		balance:  balance,
	}
}

func (m *mockState) VestingLock(addr solana.PublicKey) (*Lock, error) {
	return m.locks[addr].Clone(), nil
}

func (m *mockState) PutVestingLock(addr solana.PublicKey, lock *Lock) error {
	m.writes++
	m.locks[addr] = lock.Clone()
	return nil
}

func (m *mockState) TreasuryState() (*TreasuryState, error) {
	if m.treasury == nil {
		return nil, nil
	}
	clone := *m.treasury
	return &clone, nil
}

func (m *mockState) PutTreasuryState(ts *TreasuryState) error {
	m.writes++
	clone := *ts
	m.treasury = &clone
	return nil
}

func (m *mockState) TreasuryTokenBalance() (uint64, error) {
	return m.balance, nil
}

func newTestVault() *Vault {
	return NewVault(solana.NewWallet().PublicKey())
}

func TestPenaltyRate(t *testing.T) {
	require.Equal(t, uint16(9000), PenaltyRateBps(100, 100, 465))
	require.Equal(t, uint16(0), PenaltyRateBps(100, 465, 465))
	require.Equal(t, uint16(4512), PenaltyRateBps(100, 282, 465))
	require.Equal(t, uint16(0), PenaltyRateBps(100, 600, 465))
	require.Equal(t, uint16(9000), PenaltyRateBps(100, 50, 465), "before lock clamps to duration")
	require.Equal(t, uint16(0), PenaltyRateBps(100, 100, 100))
	require.Equal(t, uint16(0), PenaltyRateBps(200, 100, 100))

	prev := PenaltyRateBps(0, 0, 365)
	for current := uint16(1); current <= 365; current++ {
		rate := PenaltyRateBps(0, current, 365)
		require.LessOrEqual(t, rate, prev)
		prev = rate
	}
}

func TestPenaltyAmount(t *testing.T) {
	require.Equal(t, uint64(900), PenaltyAmount(1000, 9000))
	require.Equal(t, uint64(0), PenaltyAmount(1000, 0))
	require.Equal(t, uint64(451), PenaltyAmount(1000, 4512))
	require.Equal(t, uint64(math.MaxUint64/10_000*9_000+(math.MaxUint64%10_000)*9_000/10_000), PenaltyAmount(math.MaxUint64, 9000))
	require.Equal(t, uint64(5), PenaltyAmount(5, 20_000), "rate clamps to 100%")
}

func TestGrantAccumulates(t *testing.T) {
	vault := newTestVault()
	st := newMockState(10_000)
	owner := solana.NewWallet().PublicKey()

	first, err := vault.Grant(st, owner, 100, 365, 400)
	require.NoError(t, err)
	require.True(t, first.Created)
	require.Equal(t, uint16(465), first.Lock.UnlockPeriod)

	second, err := vault.Grant(st, owner, 100, 365, 600)
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.Address, second.Address)
	require.Equal(t, uint64(1000), second.Lock.TotalLocked)
	require.Equal(t, uint64(1000), st.treasury.LockedBalance)

	// A different current period opens a new bucket.
	third, err := vault.Grant(st, owner, 101, 365, 50)
	require.NoError(t, err)
	require.True(t, third.Created)
	require.NotEqual(t, first.Address, third.Address)
	require.Equal(t, uint64(1050), st.treasury.LockedBalance)
	require.Len(t, st.locks, 2)
}

func TestGrantRequiresAvailableTreasury(t *testing.T) {
	vault := newTestVault()
	st := newMockState(1000)
	owner := solana.NewWallet().PublicKey()

	_, err := vault.Grant(st, owner, 10, 365, 800)
	require.NoError(t, err)

	writes := st.writes
	_, err = vault.Grant(st, owner, 10, 365, 201)
	require.ErrorIs(t, err, ErrInsufficientTreasury)
	require.True(t, coreerrors.Retryable(err))
	require.Equal(t, writes, st.writes)
	require.Equal(t, uint64(800), st.treasury.LockedBalance)

	_, err = vault.Grant(st, owner, 10, 365, 200)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), st.treasury.LockedBalance)
}

func TestGrantValidation(t *testing.T) {
	vault := newTestVault()
	owner := solana.NewWallet().PublicKey()

	_, err := vault.Grant(newMockState(10), owner, 10, 365, 0)
	require.ErrorIs(t, err, ErrZeroAmount)

	_, err = vault.Grant(newMockState(10), owner, math.MaxUint16-10, 365, 1)
	require.ErrorIs(t, err, ErrScheduleOverflow)

	missing := newMockState(10)
	missing.treasury = nil
	_, err = vault.Grant(missing, owner, 10, 365, 1)
	require.ErrorIs(t, err, ErrTreasuryMissing)
}

func TestUnlockLifecycle(t *testing.T) {
	vault := newTestVault()
	st := newMockState(10_000)
	owner := solana.NewWallet().PublicKey()

	grant, err := vault.Grant(st, owner, 100, 365, 1000)
	require.NoError(t, err)
	_, err = vault.Grant(st, owner, 100, 365, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(2000), st.treasury.LockedBalance)

	_, err = vault.Unlock(st, solana.NewWallet().PublicKey(), grant.Address, 282, time.Unix(1_800_000_000, 0))
	require.ErrorIs(t, err, ErrNotOwner)
	require.Equal(t, coreerrors.KindAuthorization, coreerrors.KindOf(err))

	release, err := vault.Unlock(st, owner, grant.Address, 282, time.Unix(1_800_000_000, 0))
	require.NoError(t, err)
	require.Equal(t, uint16(4512), release.PenaltyBps)
	require.Equal(t, uint64(902), release.Penalty)
	require.Equal(t, uint64(1098), release.Payout)
	require.Equal(t, uint64(2000), release.Total)
	require.Equal(t, uint64(0), st.treasury.LockedBalance, "the full lock total leaves the locked balance")
	require.True(t, st.locks[grant.Address].Unlocked())
	require.Equal(t, int64(1_800_000_000), *st.locks[grant.Address].UnlockedAt)

	_, err = vault.Unlock(st, owner, grant.Address, 300, time.Unix(1_800_000_100, 0))
	require.ErrorIs(t, err, ErrAlreadyUnlocked)
	require.Equal(t, coreerrors.KindStateConflict, coreerrors.KindOf(err))

	_, err = vault.Grant(st, owner, 100, 365, 5)
	require.ErrorIs(t, err, ErrAlreadyUnlocked)
	require.Equal(t, uint64(2000), st.locks[grant.Address].TotalLocked)
}

func TestUnlockAfterScheduleHasNoPenalty(t *testing.T) {
	vault := newTestVault()
	st := newMockState(500)
	owner := solana.NewWallet().PublicKey()
	grant, err := vault.Grant(st, owner, 10, 30, 500)
	require.NoError(t, err)

	release, err := vault.Unlock(st, owner, grant.Address, 40, time.Unix(0, 0))
	require.NoError(t, err)
	require.Zero(t, release.Penalty)
	require.Equal(t, uint64(500), release.Payout)
}

func TestUnlockRejectsUnknownAndMismatchedRecords(t *testing.T) {
	vault := newTestVault()
	st := newMockState(500)
	owner := solana.NewWallet().PublicKey()

	_, err := vault.Unlock(st, owner, solana.NewWallet().PublicKey(), 10, time.Unix(0, 0))
	require.ErrorIs(t, err, ErrLockNotFound)

	grant, err := vault.Grant(st, owner, 10, 30, 100)
	require.NoError(t, err)
	stray := solana.NewWallet().PublicKey()
	st.locks[stray] = st.locks[grant.Address].Clone()
	_, err = vault.Unlock(st, owner, stray, 10, time.Unix(0, 0))
	require.ErrorIs(t, err, ErrLockIdentity)

	st.treasury.LockedBalance = 10
	_, err = vault.Unlock(st, owner, grant.Address, 10, time.Unix(0, 0))
	require.ErrorIs(t, err, ErrTreasuryUnderflow)
	require.Equal(t, coreerrors.KindDataCorruption, coreerrors.KindOf(err))
	require.False(t, st.locks[grant.Address].Unlocked())
}

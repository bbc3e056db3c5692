package state

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"depinledger/core/address"
	coreerrors "depinledger/core/errors"
	"depinledger/native/periods"
	"depinledger/native/registry"
	"depinledger/native/rewards"
	"depinledger/native/vesting"
	"depinledger/storage"
)

func newTestManager(t *testing.T) (*Manager, *storage.MemDB) {
	t.Helper()
	db := storage.NewMemDB()
	return NewManager(db, solana.NewWallet().PublicKey()), db
}

func TestTxReadsOwnWritesAndCommits(t *testing.T) {
	m, _ := newTestManager(t)

	tx := m.Begin()
	require.NoError(t, tx.PutTreasuryState(&vesting.TreasuryState{LockedBalance: 42}))
	ts, err := tx.TreasuryState()
	require.NoError(t, err)
	require.Equal(t, uint64(42), ts.LockedBalance)

	require.NoError(t, m.View(func(view *Tx) error {
		got, err := view.TreasuryState()
		require.NoError(t, err)
		require.Nil(t, got, "uncommitted writes are invisible")
		return nil
	}))

	require.NoError(t, tx.Commit())
	require.ErrorIs(t, tx.Commit(), errTxClosed)

	require.NoError(t, m.View(func(view *Tx) error {
		got, err := view.TreasuryState()
		require.NoError(t, err)
		require.Equal(t, uint64(42), got.LockedBalance)
		return nil
	}))
}

func TestUpdateDiscardsOnError(t *testing.T) {
	m, _ := newTestManager(t)
	owner := solana.NewWallet().PublicKey()

	err := m.Update(func(tx *Tx) error {
		require.NoError(t, tx.PutTokenBalance(owner, 10))
		return periods.ErrPeriodNotIncreasing
	})
	require.ErrorIs(t, err, periods.ErrPeriodNotIncreasing)

	require.NoError(t, m.View(func(tx *Tx) error {
		bal, err := tx.TokenBalance(owner)
		require.NoError(t, err)
		require.Zero(t, bal)
		return nil
	}))
}

func TestRecordsRoundTripThroughStorage(t *testing.T) {
	m, _ := newTestManager(t)
	owner := solana.NewWallet().PublicKey()
	license := solana.NewWallet().PublicKey()
	ts := int64(1_760_000_000)

	ledger := periods.New()
	require.NoError(t, ledger.Append(3, 7))
	require.NoError(t, ledger.Append(9, 11))
	rl := rewards.NewLedger()
	require.NoError(t, rl.Credit(99_999, 5))
	proof := &rewards.Proof{License: license, Period: 4, ProofRoot: [32]byte{1, 2}, Checkers: rewards.Bitmap{0b101}, Uptime: 99, Latency: 12}
	lockAddr, err := address.Lock(m.Program(), owner, 10, 375)
	require.NoError(t, err)

	require.NoError(t, m.Update(func(tx *Tx) error {
		require.NoError(t, tx.PutPeriodLedger(ledger))
		require.NoError(t, tx.PutRewardsLedger(rl))
		require.NoError(t, tx.PutWorkerProof(proof))
		require.NoError(t, tx.PutVestingLock(lockAddr, &vesting.Lock{Owner: owner, TotalLocked: 8, LockPeriod: 10, UnlockPeriod: 375, UnlockedAt: &ts}))
		require.NoError(t, tx.PutTreasuryConfig(&vesting.TreasuryConfig{CheckerRewardsLockDays: 30}))
		require.NoError(t, tx.PutParticipant(&registry.Participant{Role: registry.RoleWorker, License: license, Owner: owner, Delegate: owner, DiscoveryURI: "https://w.example"}))
		require.NoError(t, tx.PutLicenseFlags(registry.RoleChecker, license, &registry.LicenseFlags{SuspendedAt: &ts}))
		require.Equal(t, 7, tx.Dirty())
		return nil
	}))

	require.NoError(t, m.View(func(tx *Tx) error {
		gotLedger, err := tx.PeriodLedger()
		require.NoError(t, err)
		require.Equal(t, ledger, gotLedger)
		count, ok := gotLedger.CountAsOf(10)
		require.True(t, ok)
		require.Equal(t, uint32(11), count)

		gotRewards, err := tx.RewardsLedger()
		require.NoError(t, err)
		bal, err := gotRewards.Read(99_999)
		require.NoError(t, err)
		require.Equal(t, uint32(5), bal)

		gotProof, err := tx.WorkerProof(license, 4)
		require.NoError(t, err)
		require.Equal(t, proof, gotProof)
		missing, err := tx.WorkerProof(license, 5)
		require.NoError(t, err)
		require.Nil(t, missing)

		lock, err := tx.VestingLock(lockAddr)
		require.NoError(t, err)
		require.True(t, lock.Unlocked())
		require.Equal(t, ts, *lock.UnlockedAt)
		require.Equal(t, owner, lock.Owner)

		cfg, err := tx.TreasuryConfig()
		require.NoError(t, err)
		require.Equal(t, uint16(30), cfg.CheckerRewardsLockDays)

		worker, err := tx.Participant(registry.RoleWorker, license, owner)
		require.NoError(t, err)
		require.Equal(t, registry.StatusActive, worker.Status())
		require.Equal(t, "https://w.example", worker.DiscoveryURI)
		checker, err := tx.Participant(registry.RoleChecker, license, owner)
		require.NoError(t, err)
		require.Nil(t, checker)

		flags, err := tx.LicenseFlags(registry.RoleChecker, license)
		require.NoError(t, err)
		require.True(t, flags.Suspended())
		workerFlags, err := tx.LicenseFlags(registry.RoleWorker, license)
		require.NoError(t, err)
		require.False(t, workerFlags.Suspended())
		return nil
	}))
}

func TestDiscriminatorMismatchIsCorruption(t *testing.T) {
	m, db := newTestManager(t)
	addr, err := address.TreasuryState(m.Program())
	require.NoError(t, err)

	payload, err := encodeRecord(RecordTreasuryConfig, &storedTreasuryConfig{CheckerRewardsLockDays: 1})
	require.NoError(t, err)
	require.NoError(t, db.Put(recordKey(addr), payload))

	err = m.View(func(tx *Tx) error {
		_, err := tx.TreasuryState()
		return err
	})
	require.ErrorIs(t, err, ErrRecordType)
	require.Equal(t, coreerrors.KindDataCorruption, coreerrors.KindOf(err))
}

func TestMalformedPayloadsAreCorruption(t *testing.T) {
	m, db := newTestManager(t)

	rewardsAddr, err := address.GlobalRewards(m.Program())
	require.NoError(t, err)
	require.NoError(t, db.Put(recordKey(rewardsAddr), frame(RecordGlobalRewards, make([]byte, 16))))

	periodsAddr, err := address.PeriodLedger(m.Program())
	require.NoError(t, err)
	short, err := encodeRecord(RecordPeriodLedger, &storedPeriodLedger{Entries: make([]uint64, 3)})
	require.NoError(t, err)
	require.NoError(t, db.Put(recordKey(periodsAddr), short))

	configAddr, err := address.TreasuryConfig(m.Program())
	require.NoError(t, err)
	require.NoError(t, db.Put(recordKey(configAddr), []byte{byte(RecordTreasuryConfig), 0xff, 0xff}))

	require.NoError(t, m.View(func(tx *Tx) error {
		_, err := tx.RewardsLedger()
		require.ErrorIs(t, err, rewards.ErrPayloadSize)
		require.Equal(t, coreerrors.KindDataCorruption, coreerrors.KindOf(err))

		_, err = tx.PeriodLedger()
		require.ErrorIs(t, err, ErrMalformedRecord)

		_, err = tx.TreasuryConfig()
		require.ErrorIs(t, err, ErrMalformedRecord)
		return nil
	}))
}

func TestCorruptCursorRejected(t *testing.T) {
	m, db := newTestManager(t)
	addr, err := address.PeriodLedger(m.Program())
	require.NoError(t, err)
	payload, err := encodeRecord(RecordPeriodLedger, &storedPeriodLedger{Entries: make([]uint64, periods.Capacity), Cursor: periods.Capacity})
	require.NoError(t, err)
	require.NoError(t, db.Put(recordKey(addr), payload))

	err = m.View(func(tx *Tx) error {
		_, err := tx.PeriodLedger()
		return err
	})
	require.ErrorIs(t, err, periods.ErrCorruptCursor)
}

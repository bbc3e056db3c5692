package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"depinledger/core/events"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := Open(DriverSQLite, dsn)
	require.NoError(t, err)
	return db
}

func TestAppendAndList(t *testing.T) {
	db := setupTestDB(t)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	store, err := New(db, clock, nil)
	require.NoError(t, err)

	license := solana.NewWallet().PublicKey()
	store.Emit(events.PeriodAdvanced{Period: 30, CheckerCount: 1200})
	store.Emit(events.ProofSubmitted{License: license, Period: 29, Credited: 3})
	store.Emit(events.CheckerCredited{License: license, Period: 29, Reward: 1000, Indices: []uint32{1, 2, 3}})

	all, err := store.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, entry := range all {
		require.Equal(t, uint64(i+1), entry.Seq)
	}
	require.Equal(t, events.TypePeriodAdvanced, all[0].Type)
	require.True(t, all[0].RecordedAt.Equal(clock.Now()))

	byLicense, err := store.List(context.Background(), Filter{Subject: license.String()})
	require.NoError(t, err)
	require.Len(t, byLicense, 2)

	credited, err := store.List(context.Background(), Filter{Type: events.TypeCheckerCredited})
	require.NoError(t, err)
	require.Len(t, credited, 1)
	evt, err := credited[0].Event()
	require.NoError(t, err)
	require.Equal(t, "1,2,3", evt.Attributes["indices"])

	after, err := store.List(context.Background(), Filter{AfterSeq: 2})
	require.NoError(t, err)
	require.Len(t, after, 1)
}

func TestSequenceResumes(t *testing.T) {
	db := setupTestDB(t)
	first, err := New(db, clockwork.NewFakeClock(), nil)
	require.NoError(t, err)
	first.Emit(events.PeriodAdvanced{Period: 1, CheckerCount: 1})
	first.Emit(events.PeriodAdvanced{Period: 2, CheckerCount: 1})

	second, err := New(db, clockwork.NewFakeClock(), nil)
	require.NoError(t, err)
	entry, err := second.Append(context.Background(), events.PeriodAdvanced{Period: 3, CheckerCount: 1}.Event())
	require.NoError(t, err)
	require.Equal(t, uint64(3), entry.Seq)
}

func TestCloseReleasesDatabase(t *testing.T) {
	store, err := New(setupTestDB(t), clockwork.NewFakeClock(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Append(context.Background(), events.PeriodAdvanced{Period: 1, CheckerCount: 1}.Event())
	require.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	require.Error(t, err)
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSettlementCollectors(t *testing.T) {
	m := Settlement()
	require.Same(t, m, Settlement())

	before := testutil.ToFloat64(m.creditedUnits)
	m.ObserveCredits(3, 950)
	require.Equal(t, before+2850, testutil.ToFloat64(m.creditedUnits))

	m.ObserveCredits(0, 950)
	require.Equal(t, before+2850, testutil.ToFloat64(m.creditedUnits))

	m.ObservePeriod(42)
	require.Equal(t, float64(42), testutil.ToFloat64(m.checkerCount))

	m.ObserveGrant(true)
	m.ObserveGrant(false)
	require.Equal(t, float64(1), testutil.ToFloat64(m.grants.WithLabelValues("new")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.grants.WithLabelValues("topup")))

	m.ObserveUnlock(902, 1098)
	require.Equal(t, float64(902), testutil.ToFloat64(m.penaltyUnits))
	require.Equal(t, float64(1098), testutil.ToFloat64(m.releasedUnits))

	m.ObserveRequest("unlock", "", time.Millisecond)
	require.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("unlock", "unknown")))

	m.SetLockedBalance(1000)
	require.Equal(t, float64(1000), testutil.ToFloat64(m.lockedBalance))
}

func TestNilSettlementMetrics(t *testing.T) {
	var m *SettlementMetrics
	require.NotPanics(t, func() {
		m.ObserveRequest("payout", "ok", time.Second)
		m.ObservePeriod(1)
		m.ObserveCredits(1, 1)
		m.ObservePayout(1)
		m.ObserveGrant(true)
		m.ObserveUnlock(1, 1)
		m.SetLockedBalance(1)
		m.SetJournalSequence(1)
	})
}

package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromTime(t *testing.T) {
	p, err := FromTime(time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, uint16(0), p)

	p, err = FromTime(Zero)
	require.NoError(t, err)
	require.Equal(t, uint16(0), p)

	p, err = FromTime(Zero.Add(24*time.Hour - time.Second))
	require.NoError(t, err)
	require.Equal(t, uint16(0), p)

	p, err = FromTime(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, uint16(1), p)

	require.Equal(t, Zero.Add(365*24*time.Hour), Start(365))
}

func TestFromUnixOverflow(t *testing.T) {
	_, err := FromUnix(ZeroUnix + (1<<16)*SecondsPerPeriod)
	require.Error(t, err)

	p, err := FromUnix(ZeroUnix + (1<<16-1)*SecondsPerPeriod)
	require.NoError(t, err)
	require.Equal(t, uint16(1<<16-1), p)
}

func TestMonthIndex(t *testing.T) {
	cases := []struct {
		date  time.Time
		month uint16
	}{
		{time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), 6},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 7},
		{time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), 8},
		{time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 9},
		{time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC), 11},
		{time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), 12},
		{time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC), 32},
		{time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC), 60},
	}
	for _, tc := range cases {
		p, err := FromTime(tc.date)
		require.NoError(t, err)
		require.Equal(t, tc.month, MonthIndex(p), tc.date.Format("2006-01-02"))
	}
}

package brand

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "depinledger/core/errors"
)

func TestNextKnownValue(t *testing.T) {
	require.Equal(t, uint64(0xE220A8397B1DCDAF), Next(0))
	require.Equal(t, Next(42), Next(42))
	require.NotEqual(t, Next(1), Next(2))
}

func TestSeedDependsOnKeyAndEpoch(t *testing.T) {
	zero := make([]byte, KeySize)
	a, err := Seed(zero, 1)
	require.NoError(t, err)
	b, err := Seed(zero, 1)
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := Seed(zero, 2)
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	d, err := Seed(bytes.Repeat([]byte{0x01}, KeySize), 1)
	require.NoError(t, err)
	require.NotEqual(t, a, d)

	_, err = Seed(zero[:31], 1)
	require.ErrorIs(t, err, ErrKeyLength)
	require.Equal(t, coreerrors.KindPrecondition, coreerrors.KindOf(err))
}

func TestSampleDistinctDeterministic(t *testing.T) {
	key := make([]byte, KeySize)
	first, err := SampleDistinct(key, 1, 5, 10)
	require.NoError(t, err)
	second, err := SampleDistinct(key, 1, 5, 10)
	require.NoError(t, err)
	require.Equal(t, first, second)
	requireDistinctBelow(t, first, 5, 10)
}

func TestSampleDistinctProperties(t *testing.T) {
	key := bytes.Repeat([]byte{0xAB}, KeySize)
	for _, tc := range []struct {
		count   int
		modulus uint64
	}{
		{0, 0},
		{0, 7},
		{1, 1},
		{16, 16},
		{64, 65},
		{512, 100_000},
		{512, 512},
	} {
		out, err := SampleDistinct(key, 77, tc.count, tc.modulus)
		require.NoError(t, err)
		requireDistinctBelow(t, out, tc.count, tc.modulus)
	}
}

func TestSampleDistinctPrefixStable(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeySize)
	short, err := SampleDistinct(key, 9, 8, 1000)
	require.NoError(t, err)
	long, err := SampleDistinct(key, 9, 64, 1000)
	require.NoError(t, err)
	require.Equal(t, short, long[:8])
}

func TestSampleDistinctRejectsImpossibleCount(t *testing.T) {
	key := make([]byte, KeySize)
	_, err := SampleDistinct(key, 1, 11, 10)
	require.ErrorIs(t, err, ErrCountExceedsMod)
	_, err = SampleDistinct(key, 1, -1, 10)
	require.ErrorIs(t, err, ErrCountExceedsMod)
	_, err = SampleDistinct(key[:4], 1, 1, 10)
	require.ErrorIs(t, err, ErrKeyLength)
}

func requireDistinctBelow(t *testing.T, values []uint32, count int, modulus uint64) {
	t.Helper()
	require.Len(t, values, count)
	seen := make(map[uint32]struct{}, len(values))
	for _, v := range values {
		require.Less(t, uint64(v), modulus)
		_, dup := seen[v]
		require.False(t, dup, "duplicate value %d", v)
		seen[v] = struct{}{}
	}
}

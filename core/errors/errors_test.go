package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfWrapped(t *testing.T) {
	sentinel := New(KindStateConflict, "vesting: lock already unlocked")
	wrapped := fmt.Errorf("unlock %s: %w", "abc", sentinel)

	require.True(t, stderrors.Is(wrapped, sentinel))
	require.Equal(t, KindStateConflict, KindOf(wrapped))
	require.Equal(t, "state_conflict", KindOf(wrapped).String())
	require.False(t, Retryable(wrapped))
}

func TestKindOfUnclassified(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(stderrors.New("boom")))
	require.Equal(t, KindUnknown, KindOf(nil))
}

func TestRetryable(t *testing.T) {
	require.True(t, Retryable(New(KindResourceExhaustion, "treasury: insufficient")))
	require.False(t, Retryable(New(KindDataCorruption, "state: bad discriminator")))
}

package bank

import (
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

type mapState map[solana.PublicKey]uint64

func (m mapState) TokenBalance(owner solana.PublicKey) (uint64, error) {
	return m[owner], nil
}

func (m mapState) PutTokenBalance(owner solana.PublicKey, amount uint64) error {
	m[owner] = amount
	return nil
}

func TestTransfer(t *testing.T) {
	st := mapState{}
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	require.NoError(t, Mint(st, a, 100))
	require.NoError(t, Transfer(st, a, b, 40))

	bal, err := Balance(st, a)
	require.NoError(t, err)
	require.Equal(t, uint64(60), bal)
	bal, err = Balance(st, b)
	require.NoError(t, err)
	require.Equal(t, uint64(40), bal)

	require.ErrorIs(t, Transfer(st, a, b, 61), ErrInsufficientFunds)
	require.Equal(t, uint64(60), st[a])
	require.ErrorIs(t, Transfer(st, a, b, 0), ErrZeroAmount)
	require.ErrorIs(t, Transfer(st, a, a, 1), ErrSelfTransfer)
}

func TestMintOverflow(t *testing.T) {
	st := mapState{}
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	require.NoError(t, Mint(st, a, math.MaxUint64))
	require.ErrorIs(t, Mint(st, a, 1), ErrBalanceOverflow)

	require.NoError(t, Mint(st, b, 1))
	require.ErrorIs(t, Transfer(st, b, a, 1), ErrBalanceOverflow)
	require.Equal(t, uint64(1), st[b])
}

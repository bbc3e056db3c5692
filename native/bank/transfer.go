// Package bank moves the reward token between token accounts. It is the
// minimal transfer facility the treasury needs to pay out unlocks.
package bank

import (
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"

	coreerrors "depinledger/core/errors"
)

var (
	ErrZeroAmount        = coreerrors.New(coreerrors.KindPrecondition, "bank: amount must be positive")
	ErrSelfTransfer      = coreerrors.New(coreerrors.KindPrecondition, "bank: source and destination match")
	ErrInsufficientFunds = coreerrors.New(coreerrors.KindResourceExhaustion, "bank: insufficient funds")
	ErrBalanceOverflow   = coreerrors.New(coreerrors.KindResourceExhaustion, "bank: balance overflows")
)

// State stores one balance per owner. Missing accounts read as zero.
type State interface {
	TokenBalance(owner solana.PublicKey) (uint64, error)
	PutTokenBalance(owner solana.PublicKey, amount uint64) error
}

// Balance returns the token balance held by owner.
func Balance(st State, owner solana.PublicKey) (uint64, error) {
	return st.TokenBalance(owner)
}

// Transfer moves amount from one owner to another. Both balances are checked
// before either is written.
func Transfer(st State, from, to solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if from == to {
		return ErrSelfTransfer
	}
	src, err := st.TokenBalance(from)
	if err != nil {
		return err
	}
	if src < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, src, amount)
	}
	dst, err := st.TokenBalance(to)
	if err != nil {
		return err
	}
	next, carry := bits.Add64(dst, amount, 0)
	if carry != 0 {
		return ErrBalanceOverflow
	}
	if err := st.PutTokenBalance(from, src-amount); err != nil {
		return err
	}
	return st.PutTokenBalance(to, next)
}

// Mint credits amount to owner. Used to fund the treasury at network setup.
func Mint(st State, owner solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	bal, err := st.TokenBalance(owner)
	if err != nil {
		return err
	}
	next, carry := bits.Add64(bal, amount, 0)
	if carry != 0 {
		return ErrBalanceOverflow
	}
	return st.PutTokenBalance(owner, next)
}

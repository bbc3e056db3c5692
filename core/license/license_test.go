package license

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

type recordingVerifier struct {
	calls int
	leaf  [32]byte
	index uint32
	err   error
}

func (v *recordingVerifier) VerifyLeaf(_ context.Context, _ solana.PublicKey, _, leaf [32]byte, index uint32) error {
	v.calls++
	v.leaf = leaf
	v.index = index
	return v.err
}

func sampleContext() Context {
	return Context{
		Owner:    solana.NewWallet().PublicKey(),
		Delegate: solana.NewWallet().PublicKey(),
		Nonce:    7,
		Index:    7,
		DataHash: [32]byte{1},
		Flags:    1,
	}
}

func TestLeafHashCoversEveryField(t *testing.T) {
	asset := solana.NewWallet().PublicKey()
	base := sampleContext()
	h := base.LeafHash(asset)
	require.Equal(t, h, base.LeafHash(asset))

	mutated := base
	mutated.Flags = 0
	require.NotEqual(t, h, mutated.LeafHash(asset))

	mutated = base
	mutated.Nonce++
	require.NotEqual(t, h, mutated.LeafHash(asset))

	mutated = base
	mutated.AssetDataHash[31] = 1
	require.NotEqual(t, h, mutated.LeafHash(asset))

	require.NotEqual(t, h, base.LeafHash(solana.NewWallet().PublicKey()))

	// Index and root identify the position, not the leaf.
	mutated = base
	mutated.Index = 99
	mutated.Root = [32]byte{9}
	require.Equal(t, h, mutated.LeafHash(asset))
}

func TestResolve(t *testing.T) {
	tree := solana.NewWallet().PublicKey()
	lic := sampleContext()
	v := &recordingVerifier{}

	_, err := Resolve(context.Background(), v, solana.NewWallet().PublicKey(), tree, lic)
	require.ErrorIs(t, err, ErrWrongTree)
	require.Zero(t, v.calls)

	resolved, err := Resolve(context.Background(), v, tree, tree, lic)
	require.NoError(t, err)
	asset, err := AssetID(tree, lic.Nonce)
	require.NoError(t, err)
	require.Equal(t, asset, resolved.Asset)
	require.Equal(t, lic.LeafHash(asset), v.leaf)
	require.Equal(t, lic.Index, v.index)

	_, err = ResolveOwned(context.Background(), v, tree, tree, solana.NewWallet().PublicKey(), lic)
	require.ErrorIs(t, err, ErrOwnerMismatch)

	v.err = ErrInvalidProof
	_, err = ResolveOwned(context.Background(), v, tree, tree, lic.Owner, lic)
	require.ErrorIs(t, err, ErrInvalidProof)
}

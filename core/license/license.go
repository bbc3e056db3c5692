// Package license describes a compressed license record and the external
// service that proves it is part of a published tree.
package license

import (
	"context"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"

	"depinledger/core/address"
	coreerrors "depinledger/core/errors"
)

// leafVersion is the schema version byte hashed into every leaf.
const leafVersion = 2

var (
	ErrWrongTree      = coreerrors.New(coreerrors.KindPrecondition, "license: tree is not the expected collection")
	ErrInvalidProof   = coreerrors.New(coreerrors.KindPrecondition, "license: leaf is not in the tree")
	ErrOwnerMismatch  = coreerrors.New(coreerrors.KindAuthorization, "license: signer does not own the license")
	ErrVerifierFailed = coreerrors.New(coreerrors.KindResourceExhaustion, "license: verifier unavailable")
)

// Context is the caller-supplied description of a license leaf.
type Context struct {
	Owner          solana.PublicKey
	Delegate       solana.PublicKey
	Nonce          uint64
	Index          uint32
	Root           [32]byte
	DataHash       [32]byte
	CreatorHash    [32]byte
	CollectionHash [32]byte
	AssetDataHash  [32]byte
	Flags          uint8
}

// AssetID is the id of the license at nonce in tree.
func AssetID(tree solana.PublicKey, nonce uint64) (solana.PublicKey, error) {
	return address.Asset(tree, nonce)
}

// LeafHash hashes the v2 leaf schema for asset.
func (c Context) LeafHash(asset solana.PublicKey) [32]byte {
	var nonce [8]byte
	binary.LittleEndian.PutUint64(nonce[:], c.Nonce)
	hash := crypto.Keccak256(
		[]byte{leafVersion},
		asset[:],
		c.Owner[:],
		c.Delegate[:],
		nonce[:],
		c.DataHash[:],
		c.CreatorHash[:],
		c.CollectionHash[:],
		c.AssetDataHash[:],
		[]byte{c.Flags},
	)
	var out [32]byte
	copy(out[:], hash)
	return out
}

// Verifier checks that leaf sits at index under root in tree. It returns
// ErrInvalidProof when the proof does not hold and ErrVerifierFailed when
// the answer could not be obtained.
type Verifier interface {
	VerifyLeaf(ctx context.Context, tree solana.PublicKey, root, leaf [32]byte, index uint32) error
}

// Resolved is a verified license.
type Resolved struct {
	Asset   solana.PublicKey
	Leaf    [32]byte
	Context Context
}

// Resolve checks tree against expected, derives the asset id and verifies the
// leaf.
func Resolve(ctx context.Context, v Verifier, expected, tree solana.PublicKey, lic Context) (*Resolved, error) {
	if tree != expected {
		return nil, ErrWrongTree
	}
	asset, err := AssetID(tree, lic.Nonce)
	if err != nil {
		return nil, err
	}
	leaf := lic.LeafHash(asset)
	if err := v.VerifyLeaf(ctx, tree, lic.Root, leaf, lic.Index); err != nil {
		return nil, err
	}
	return &Resolved{Asset: asset, Leaf: leaf, Context: lic}, nil
}

// ResolveOwned is Resolve plus a check that signer owns the license.
func ResolveOwned(ctx context.Context, v Verifier, expected, tree, signer solana.PublicKey, lic Context) (*Resolved, error) {
	if signer != lic.Owner {
		return nil, ErrOwnerMismatch
	}
	return Resolve(ctx, v, expected, tree, lic)
}

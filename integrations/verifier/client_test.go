package verifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	coreerrors "depinledger/core/errors"
	"depinledger/core/license"
)

func TestVerifyLeaf(t *testing.T) {
	tree := solana.NewWallet().PublicKey()
	root := [32]byte{1}
	leaf := [32]byte{2}
	var seen Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, verifyPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		_ = json.NewEncoder(w).Encode(Response{Valid: seen.Index == 3})
	}))
	defer srv.Close()

	client, err := New(srv.URL + "/")
	require.NoError(t, err)

	require.NoError(t, client.VerifyLeaf(context.Background(), tree, root, leaf, 3))
	require.Equal(t, tree.String(), seen.Tree)
	require.Equal(t, base58.Encode(leaf[:]), seen.Leaf)

	err = client.VerifyLeaf(context.Background(), tree, root, leaf, 4)
	require.ErrorIs(t, err, license.ErrInvalidProof)
	require.Equal(t, coreerrors.KindPrecondition, coreerrors.KindOf(err))
}

func TestVerifyLeafStatusMapping(t *testing.T) {
	var status atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", int(status.Load()))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)
	tree := solana.NewWallet().PublicKey()

	status.Store(http.StatusUnprocessableEntity)
	err = client.VerifyLeaf(context.Background(), tree, [32]byte{}, [32]byte{}, 0)
	require.ErrorIs(t, err, license.ErrInvalidProof)

	status.Store(http.StatusBadGateway)
	err = client.VerifyLeaf(context.Background(), tree, [32]byte{}, [32]byte{}, 0)
	require.ErrorIs(t, err, license.ErrVerifierFailed)
	require.True(t, coreerrors.Retryable(err))
}

func TestVerifyLeafTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := New(url, WithTimeout(time.Second))
	require.NoError(t, err)
	err = client.VerifyLeaf(context.Background(), solana.NewWallet().PublicKey(), [32]byte{}, [32]byte{}, 0)
	require.ErrorIs(t, err, license.ErrVerifierFailed)
}

func TestVerifyLeafRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Response{Valid: true})
	}))
	defer srv.Close()

	client, err := New(srv.URL, WithRateLimit(0.001, 1))
	require.NoError(t, err)
	tree := solana.NewWallet().PublicKey()
	require.NoError(t, client.VerifyLeaf(context.Background(), tree, [32]byte{}, [32]byte{}, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = client.VerifyLeaf(ctx, tree, [32]byte{}, [32]byte{}, 0)
	require.ErrorIs(t, err, license.ErrVerifierFailed)
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
}

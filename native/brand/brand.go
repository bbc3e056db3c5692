// Package brand implements the deterministic sampler that expands a compact
// per-submission seed into distinct checker indices. Every function is pure,
// so any auditor can recompute a settlement from public data.
package brand

import (
	"encoding/binary"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	coreerrors "depinledger/core/errors"
)

// KeySize is the length of a domain key.
const KeySize = 32

var (
	ErrKeyLength       = coreerrors.New(coreerrors.KindPrecondition, "brand: domain key must be 32 bytes")
	ErrCountExceedsMod = coreerrors.New(coreerrors.KindPrecondition, "brand: count exceeds modulus")
)

// Seed hashes key ‖ big-endian epoch with keccak-256 and returns the first
// eight digest bytes as a big-endian integer.
func Seed(key []byte, epoch uint16) (uint64, error) {
	if len(key) != KeySize {
		return 0, fmt.Errorf("%w: got %d", ErrKeyLength, len(key))
	}
	var buf [KeySize + 2]byte
	copy(buf[:KeySize], key)
	binary.BigEndian.PutUint16(buf[KeySize:], epoch)
	digest := ethcrypto.Keccak256(buf[:])
	return binary.BigEndian.Uint64(digest[:8]), nil
}

// Next is the splitmix64 step.
func Next(state uint64) uint64 {
	z := state + 0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// SampleDistinct returns count distinct values in [0, modulus) by rejection
// sampling the splitmix64 stream seeded from (key, epoch).
func SampleDistinct(key []byte, epoch uint16, count int, modulus uint64) ([]uint32, error) {
	if count < 0 || uint64(count) > modulus {
		return nil, fmt.Errorf("%w: %d > %d", ErrCountExceedsMod, count, modulus)
	}
	if modulus > 1<<32 {
		return nil, fmt.Errorf("brand: modulus %d exceeds u32 index space", modulus)
	}
	state, err := Seed(key, epoch)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, 0, count)
	seen := make([]uint64, (modulus+63)>>6)
	for len(out) < count {
		state = Next(state)
		v := state % modulus
		word, mask := v>>6, uint64(1)<<(v&63)
		if seen[word]&mask != 0 {
			continue
		}
		seen[word] |= mask
		out = append(out, uint32(v))
	}
	return out, nil
}

package rewards

import (
	"github.com/gagliardetto/solana-go"
)

// Proof is the record a worker leaves behind for one settled period. At most
// one exists per (license, period).
type Proof struct {
	License   solana.PublicKey
	Period    uint16
	ProofRoot [32]byte
	Checkers  Bitmap
	Uptime    uint32
	Latency   uint32
}

// Package address derives the deterministic storage address of every record
// from fixed domain tags and identity bytes.
package address

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	SeedGlobal   = []byte("global")
	SeedState    = []byte("state")
	SeedRewards  = []byte("rewards")
	SeedMetadata = []byte("meta")
	SeedTreasury = []byte("treasury")
	SeedLock     = []byte("lock")
	SeedConfig   = []byte("config")
	SeedProof    = []byte("proof")
	SeedWorker   = []byte("worker")
	SeedChecker  = []byte("checker")
	SeedLicense  = []byte("license")
	SeedToken    = []byte("token")
	SeedAsset    = []byte("asset")
)

// BubblegumProgramID owns compressed license assets.
var BubblegumProgramID = solana.MustPublicKeyFromBase58("BGUMAp9Gq7iTEuizy4pqaxsTyUCBK68MDfK752saRPUY")

func le16(v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return b[:]
}

func le64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// Derive returns the program address for seeds under program.
func Derive(program solana.PublicKey, seeds ...[]byte) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("address: derive: %w", err)
	}
	return addr, nil
}

func PeriodLedger(program solana.PublicKey) (solana.PublicKey, error) {
	return Derive(program, SeedGlobal, SeedState)
}

func GlobalRewards(program solana.PublicKey) (solana.PublicKey, error) {
	return Derive(program, SeedGlobal, SeedRewards)
}

func TreasuryAuthority(program solana.PublicKey) (solana.PublicKey, error) {
	return Derive(program, SeedTreasury)
}

func TreasuryState(program solana.PublicKey) (solana.PublicKey, error) {
	return Derive(program, SeedTreasury, SeedState)
}

func TreasuryConfig(program solana.PublicKey) (solana.PublicKey, error) {
	return Derive(program, SeedTreasury, SeedConfig)
}

// Lock is the address of the vesting bucket for owner and schedule.
func Lock(program, owner solana.PublicKey, lockPeriod, unlockPeriod uint16) (solana.PublicKey, error) {
	return Derive(program, SeedTreasury, SeedLock, owner.Bytes(), le16(lockPeriod), le16(unlockPeriod))
}

func WorkerProof(program, license solana.PublicKey, period uint16) (solana.PublicKey, error) {
	return Derive(program, SeedProof, le16(period), license.Bytes())
}

func CheckerMetadata(program, license, owner solana.PublicKey) (solana.PublicKey, error) {
	return Derive(program, SeedChecker, SeedMetadata, license.Bytes(), owner.Bytes())
}

func CheckerLicenseMetadata(program, license solana.PublicKey) (solana.PublicKey, error) {
	return Derive(program, SeedChecker, SeedLicense, SeedMetadata, license.Bytes())
}

func WorkerMetadata(program, license, owner solana.PublicKey) (solana.PublicKey, error) {
	return Derive(program, SeedWorker, SeedMetadata, license.Bytes(), owner.Bytes())
}

func WorkerLicenseMetadata(program, license solana.PublicKey) (solana.PublicKey, error) {
	return Derive(program, SeedWorker, SeedLicense, license.Bytes())
}

func TokenAccount(program, owner solana.PublicKey) (solana.PublicKey, error) {
	return Derive(program, SeedToken, owner.Bytes())
}

// Asset is the id of the compressed license at nonce in tree.
func Asset(tree solana.PublicKey, nonce uint64) (solana.PublicKey, error) {
	return Derive(BubblegumProgramID, SeedAsset, tree.Bytes(), le64(nonce))
}

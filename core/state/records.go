package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	coreerrors "depinledger/core/errors"
)

// RecordType is the one byte discriminator stored in front of every record
// payload.
type RecordType byte

const (
	RecordWorkerMetadata         RecordType = 1
	RecordWorkerLicenseMetadata  RecordType = 2
	RecordGlobalRewards          RecordType = 3
	RecordWorkerProof            RecordType = 4
	RecordPeriodLedger           RecordType = 5
	RecordCheckerMetadata        RecordType = 6
	RecordCheckerLicenseMetadata RecordType = 7
	RecordTreasuryState          RecordType = 8
	RecordVestingLock            RecordType = 9
	RecordTreasuryConfig         RecordType = 10
	RecordTokenAccount           RecordType = 11
)

func (t RecordType) String() string {
	switch t {
	case RecordWorkerMetadata:
		return "worker_metadata"
	case RecordWorkerLicenseMetadata:
		return "worker_license_metadata"
	case RecordGlobalRewards:
		return "global_rewards"
	case RecordWorkerProof:
		return "worker_proof"
	case RecordPeriodLedger:
		return "period_ledger"
	case RecordCheckerMetadata:
		return "checker_metadata"
	case RecordCheckerLicenseMetadata:
		return "checker_license_metadata"
	case RecordTreasuryState:
		return "treasury_state"
	case RecordVestingLock:
		return "vesting_lock"
	case RecordTreasuryConfig:
		return "treasury_config"
	case RecordTokenAccount:
		return "token_account"
	default:
		return fmt.Sprintf("record(%d)", byte(t))
	}
}

var (
	ErrRecordType      = coreerrors.New(coreerrors.KindDataCorruption, "state: record type mismatch")
	ErrMalformedRecord = coreerrors.New(coreerrors.KindDataCorruption, "state: malformed record payload")
)

// frame prefixes body with the record discriminator.
func frame(t RecordType, body []byte) []byte {
	out := make([]byte, 1+len(body))
	out[0] = byte(t)
	copy(out[1:], body)
	return out
}

// unframe checks the discriminator and returns the body.
func unframe(t RecordType, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty %s", ErrMalformedRecord, t)
	}
	if RecordType(data[0]) != t {
		return nil, fmt.Errorf("%w: expected %s, found %s", ErrRecordType, t, RecordType(data[0]))
	}
	return data[1:], nil
}

func encodeRecord(t RecordType, v interface{}) ([]byte, error) {
	body, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, err
	}
	return frame(t, body), nil
}

func decodeRecord(t RecordType, data []byte, v interface{}) error {
	body, err := unframe(t, data)
	if err != nil {
		return err
	}
	if err := rlp.DecodeBytes(body, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedRecord, t, err)
	}
	return nil
}

// optionalTime is the stored form of a nullable unix timestamp.
type optionalTime struct {
	Set   bool
	Value uint64
}

func toOptional(ts *int64) optionalTime {
	if ts == nil {
		return optionalTime{}
	}
	return optionalTime{Set: true, Value: uint64(*ts)}
}

func (o optionalTime) pointer() *int64 {
	if !o.Set {
		return nil
	}
	v := int64(o.Value)
	return &v
}

type storedPeriodLedger struct {
	Entries []uint64
	Cursor  uint8
}

type storedProof struct {
	License   [32]byte
	Period    uint16
	ProofRoot [32]byte
	Checkers  []uint64
	Uptime    uint32
	Latency   uint32
}

type storedParticipant struct {
	License      [32]byte
	Owner        [32]byte
	Delegate     [32]byte
	DiscoveryURI string
	SuspendedAt  optionalTime
}

type storedLicenseFlags struct {
	SuspendedAt optionalTime
}

type storedLock struct {
	Owner        [32]byte
	TotalLocked  uint64
	LockPeriod   uint16
	UnlockPeriod uint16
	UnlockedAt   optionalTime
}

type storedTreasuryState struct {
	LockedBalance uint64
}

type storedTreasuryConfig struct {
	CheckerRewardsLockDays uint16
}

type storedTokenAccount struct {
	Owner  [32]byte
	Amount uint64
}

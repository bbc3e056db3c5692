package events

import (
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"depinledger/core/types"
)

const (
	// TypeNetworkInitialized is emitted once when the global records are created.
	TypeNetworkInitialized = "network.initialized"
	// TypePeriodAdvanced records a new (period, checker count) entry.
	TypePeriodAdvanced = "period.advanced"
	// TypeProofSubmitted is emitted for every accepted worker submission.
	TypeProofSubmitted = "proof.submitted"
	// TypeCheckerCredited lists the checker slots a submission credited.
	TypeCheckerCredited = "rewards.credited"
	// TypeRewardsPaidOut is emitted when a checker balance moves into a lock.
	TypeRewardsPaidOut = "rewards.paidOut"
	// TypeTokensLocked is emitted for every vesting grant.
	TypeTokensLocked = "treasury.locked"
	// TypeTokensUnlocked is emitted when a lock is released.
	TypeTokensUnlocked = "treasury.unlocked"
)

// NetworkInitialized captures the one-time creation of the global records.
type NetworkInitialized struct {
	Admin    solana.PublicKey
	LockDays uint16
}

func (NetworkInitialized) EventType() string { return TypeNetworkInitialized }

func (e NetworkInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeNetworkInitialized,
		Attributes: map[string]string{
			"admin":    e.Admin.String(),
			"lockDays": strconv.FormatUint(uint64(e.LockDays), 10),
		},
	}
}

// PeriodAdvanced captures a new checker count entry.
type PeriodAdvanced struct {
	Period       uint16
	CheckerCount uint32
}

func (PeriodAdvanced) EventType() string { return TypePeriodAdvanced }

func (e PeriodAdvanced) Event() *types.Event {
	return &types.Event{
		Type: TypePeriodAdvanced,
		Attributes: map[string]string{
			"period":       strconv.FormatUint(uint64(e.Period), 10),
			"checkerCount": strconv.FormatUint(uint64(e.CheckerCount), 10),
		},
	}
}

// ProofSubmitted captures an accepted worker proof.
type ProofSubmitted struct {
	License   solana.PublicKey
	Period    uint16
	ProofRoot [32]byte
	Uptime    uint32
	Latency   uint32
	Credited  int
}

func (ProofSubmitted) EventType() string { return TypeProofSubmitted }

func (e ProofSubmitted) Event() *types.Event {
	return &types.Event{
		Type: TypeProofSubmitted,
		Attributes: map[string]string{
			"license":   e.License.String(),
			"period":    strconv.FormatUint(uint64(e.Period), 10),
			"proofRoot": base58.Encode(e.ProofRoot[:]),
			"uptime":    strconv.FormatUint(uint64(e.Uptime), 10),
			"latency":   strconv.FormatUint(uint64(e.Latency), 10),
			"credited":  strconv.Itoa(e.Credited),
		},
	}
}

// CheckerCredited lists the checker indices credited by one submission. An
// index appears once per credit.
type CheckerCredited struct {
	License solana.PublicKey
	Period  uint16
	Reward  uint16
	Indices []uint32
}

func (CheckerCredited) EventType() string { return TypeCheckerCredited }

func (e CheckerCredited) Event() *types.Event {
	parts := make([]string, len(e.Indices))
	for i, idx := range e.Indices {
		parts[i] = strconv.FormatUint(uint64(idx), 10)
	}
	return &types.Event{
		Type: TypeCheckerCredited,
		Attributes: map[string]string{
			"license": e.License.String(),
			"period":  strconv.FormatUint(uint64(e.Period), 10),
			"reward":  strconv.FormatUint(uint64(e.Reward), 10),
			"indices": strings.Join(parts, ","),
		},
	}
}

// RewardsPaidOut captures a checker balance converted into a lock.
type RewardsPaidOut struct {
	License solana.PublicKey
	Index   uint32
	Owner   solana.PublicKey
	Amount  uint64
	Lock    solana.PublicKey
}

func (RewardsPaidOut) EventType() string { return TypeRewardsPaidOut }

func (e RewardsPaidOut) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardsPaidOut,
		Attributes: map[string]string{
			"license": e.License.String(),
			"index":   strconv.FormatUint(uint64(e.Index), 10),
			"owner":   e.Owner.String(),
			"amount":  strconv.FormatUint(e.Amount, 10),
			"lock":    e.Lock.String(),
		},
	}
}

// TokensLocked captures a vesting grant.
type TokensLocked struct {
	Lock         solana.PublicKey
	Owner        solana.PublicKey
	Amount       uint64
	TotalLocked  uint64
	LockPeriod   uint16
	UnlockPeriod uint16
	Created      bool
}

func (TokensLocked) EventType() string { return TypeTokensLocked }

func (e TokensLocked) Event() *types.Event {
	return &types.Event{
		Type: TypeTokensLocked,
		Attributes: map[string]string{
			"lock":         e.Lock.String(),
			"owner":        e.Owner.String(),
			"amount":       strconv.FormatUint(e.Amount, 10),
			"totalLocked":  strconv.FormatUint(e.TotalLocked, 10),
			"lockPeriod":   strconv.FormatUint(uint64(e.LockPeriod), 10),
			"unlockPeriod": strconv.FormatUint(uint64(e.UnlockPeriod), 10),
			"created":      strconv.FormatBool(e.Created),
		},
	}
}

// TokensUnlocked captures a released lock.
type TokensUnlocked struct {
	Lock       solana.PublicKey
	Owner      solana.PublicKey
	Total      uint64
	PenaltyBps uint16
	Penalty    uint64
	Payout     uint64
	UnlockedAt int64
}

func (TokensUnlocked) EventType() string { return TypeTokensUnlocked }

func (e TokensUnlocked) Event() *types.Event {
	return &types.Event{
		Type: TypeTokensUnlocked,
		Attributes: map[string]string{
			"lock":       e.Lock.String(),
			"owner":      e.Owner.String(),
			"total":      strconv.FormatUint(e.Total, 10),
			"penaltyBps": strconv.FormatUint(uint64(e.PenaltyBps), 10),
			"penalty":    strconv.FormatUint(e.Penalty, 10),
			"payout":     strconv.FormatUint(e.Payout, 10),
			"unlockedAt": strconv.FormatInt(e.UnlockedAt, 10),
		},
	}
}

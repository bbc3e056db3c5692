package events

import (
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"

	"depinledger/core/types"
)

const (
	// TypeTreasuryFunded is emitted whenever tokens are minted to the treasury.
	TypeTreasuryFunded = "treasury.funded"

	// FundingReasonInit marks funding supplied at network initialisation.
	FundingReasonInit = "init"
	// FundingReasonTopUp marks later admin funding.
	FundingReasonTopUp = "topup"
)

// TreasuryFunded captures a mint into the treasury authority.
type TreasuryFunded struct {
	Authority solana.PublicKey
	Delta     uint64
	Balance   uint64
	Reason    string
}

func (TreasuryFunded) EventType() string { return TypeTreasuryFunded }

// Event renders the structured funding event for downstream consumers.
func (e TreasuryFunded) Event() *types.Event {
	attrs := map[string]string{
		"authority": e.Authority.String(),
		"delta":     strconv.FormatUint(e.Delta, 10),
		"balance":   strconv.FormatUint(e.Balance, 10),
	}
	if reason := strings.TrimSpace(e.Reason); reason != "" {
		attrs["reason"] = reason
	}
	return &types.Event{Type: TypeTreasuryFunded, Attributes: attrs}
}

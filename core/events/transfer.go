package events

import (
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"

	"depinledger/core/types"
)

const (
	// TypeTransfer is emitted for token movements between accounts.
	TypeTransfer = "token.transfer"
)

// Transfer records tokens leaving one account for another. Reason names the
// request that moved them, for example "unlock".
type Transfer struct {
	From   solana.PublicKey
	To     solana.PublicKey
	Amount uint64
	Reason string
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"from":   e.From.String(),
		"to":     e.To.String(),
		"owner":  e.To.String(),
		"amount": strconv.FormatUint(e.Amount, 10),
	}
	if reason := strings.TrimSpace(e.Reason); reason != "" {
		attrs["reason"] = reason
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

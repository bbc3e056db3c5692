package events

import (
	"strconv"

	"github.com/gagliardetto/solana-go"

	"depinledger/core/types"
)

const (
	TypeParticipantActivated = "participant.activated"
	TypeParticipantSuspended = "participant.suspended"
	TypeParticipantResumed   = "participant.resumed"
	TypeWorkerURIUpdated     = "participant.uriUpdated"
	TypeLicenseSuspended     = "license.suspended"
	TypeLicenseResumed       = "license.resumed"
)

// ParticipantActivated covers activation and re-delegation.
type ParticipantActivated struct {
	Role         string
	License      solana.PublicKey
	Owner        solana.PublicKey
	Delegate     solana.PublicKey
	DiscoveryURI string
	Created      bool
}

func (ParticipantActivated) EventType() string { return TypeParticipantActivated }

func (e ParticipantActivated) Event() *types.Event {
	attrs := map[string]string{
		"role":     e.Role,
		"license":  e.License.String(),
		"owner":    e.Owner.String(),
		"delegate": e.Delegate.String(),
		"created":  strconv.FormatBool(e.Created),
	}
	if e.DiscoveryURI != "" {
		attrs["uri"] = e.DiscoveryURI
	}
	return &types.Event{Type: TypeParticipantActivated, Attributes: attrs}
}

// ParticipantStatus covers admin suspension and resumption of one
// participant.
type ParticipantStatus struct {
	Role      string
	License   solana.PublicKey
	Owner     solana.PublicKey
	Suspended bool
}

func (e ParticipantStatus) EventType() string {
	if e.Suspended {
		return TypeParticipantSuspended
	}
	return TypeParticipantResumed
}

func (e ParticipantStatus) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"role":    e.Role,
			"license": e.License.String(),
			"owner":   e.Owner.String(),
		},
	}
}

// WorkerURIUpdated captures a discovery URI change.
type WorkerURIUpdated struct {
	License solana.PublicKey
	Owner   solana.PublicKey
	URI     string
}

func (WorkerURIUpdated) EventType() string { return TypeWorkerURIUpdated }

func (e WorkerURIUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeWorkerURIUpdated,
		Attributes: map[string]string{
			"license": e.License.String(),
			"owner":   e.Owner.String(),
			"uri":     e.URI,
		},
	}
}

// LicenseStatus covers the license-wide suspension flag.
type LicenseStatus struct {
	Role      string
	License   solana.PublicKey
	Suspended bool
}

func (e LicenseStatus) EventType() string {
	if e.Suspended {
		return TypeLicenseSuspended
	}
	return TypeLicenseResumed
}

func (e LicenseStatus) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"role":    e.Role,
			"license": e.License.String(),
		},
	}
}

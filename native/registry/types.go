package registry

import (
	"github.com/gagliardetto/solana-go"
)

// MaxDiscoveryURILength bounds the worker discovery URI in bytes.
const MaxDiscoveryURILength = 256

// Role distinguishes the two license collections.
type Role uint8

const (
	RoleChecker Role = iota + 1
	RoleWorker
)

func (r Role) String() string {
	switch r {
	case RoleChecker:
		return "checker"
	case RoleWorker:
		return "worker"
	default:
		return "unknown"
	}
}

// Status is the lifecycle state of a participant record.
type Status uint8

const (
	StatusAbsent Status = iota
	StatusActive
	StatusSuspended
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusSuspended:
		return "suspended"
	default:
		return "absent"
	}
}

// Participant is the per (license, owner) metadata of an activated checker
// or worker.
type Participant struct {
	Role         Role
	License      solana.PublicKey
	Owner        solana.PublicKey
	Delegate     solana.PublicKey
	DiscoveryURI string
	SuspendedAt  *int64
}

// Status reports the lifecycle state. A nil participant is absent.
func (p *Participant) Status() Status {
	switch {
	case p == nil:
		return StatusAbsent
	case p.SuspendedAt != nil:
		return StatusSuspended
	default:
		return StatusActive
	}
}

// Clone returns a deep copy.
func (p *Participant) Clone() *Participant {
	if p == nil {
		return nil
	}
	clone := *p
	if p.SuspendedAt != nil {
		ts := *p.SuspendedAt
		clone.SuspendedAt = &ts
	}
	return &clone
}

// LicenseFlags carries the license-wide suspension independent of any owner.
type LicenseFlags struct {
	SuspendedAt *int64
}

// Suspended reports whether the license is suspended.
func (f *LicenseFlags) Suspended() bool {
	return f != nil && f.SuspendedAt != nil
}

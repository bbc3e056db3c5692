// Package registry tracks activated checker and worker licenses, their
// delegates and the suspension flags set by the license admin.
package registry

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	coreerrors "depinledger/core/errors"
)

var (
	ErrUnknownRole         = coreerrors.New(coreerrors.KindPrecondition, "registry: unknown role")
	ErrParticipantNotFound = coreerrors.New(coreerrors.KindPrecondition, "registry: participant not activated")
	ErrURITooLong          = coreerrors.New(coreerrors.KindPrecondition, "registry: discovery uri too long")
	ErrURIOnChecker        = coreerrors.New(coreerrors.KindPrecondition, "registry: checkers carry no discovery uri")
	ErrNotLicenseOwner     = coreerrors.New(coreerrors.KindAuthorization, "registry: signer does not own the license")
	ErrNotDelegate         = coreerrors.New(coreerrors.KindAuthorization, "registry: signer is not the delegate")
	ErrNotOwnerOrDelegate  = coreerrors.New(coreerrors.KindAuthorization, "registry: signer is neither owner nor delegate")
	ErrNotAdmin            = coreerrors.New(coreerrors.KindAuthorization, "registry: signer is not the license admin")
	ErrSuspended           = coreerrors.New(coreerrors.KindStateConflict, "registry: participant suspended")
	ErrLicenseSuspended    = coreerrors.New(coreerrors.KindStateConflict, "registry: license suspended")
	ErrAlreadySuspended    = coreerrors.New(coreerrors.KindStateConflict, "registry: already suspended")
	ErrNotSuspended        = coreerrors.New(coreerrors.KindStateConflict, "registry: not suspended")
)

// State is the storage contract for participant and license records. Reads
// return nil when the record does not exist.
type State interface {
	Participant(role Role, license, owner solana.PublicKey) (*Participant, error)
	PutParticipant(p *Participant) error
	LicenseFlags(role Role, license solana.PublicKey) (*LicenseFlags, error)
	PutLicenseFlags(role Role, license solana.PublicKey, flags *LicenseFlags) error
}

// Registry applies participant transitions. Only admin may suspend or
// resume.
type Registry struct {
	admin solana.PublicKey
}

func New(admin solana.PublicKey) *Registry {
	return &Registry{admin: admin}
}

// Admin returns the license admin key.
func (r *Registry) Admin() solana.PublicKey { return r.admin }

func validRole(role Role) error {
	if role != RoleChecker && role != RoleWorker {
		return fmt.Errorf("%w: %d", ErrUnknownRole, role)
	}
	return nil
}

func validURI(role Role, uri string) error {
	if role == RoleChecker && uri != "" {
		return ErrURIOnChecker
	}
	if len(uri) > MaxDiscoveryURILength {
		return fmt.Errorf("%w: %d bytes", ErrURITooLong, len(uri))
	}
	return nil
}

// Activate creates the participant record for (license, owner) or
// re-delegates an active one. Suspended participants cannot re-activate.
func (r *Registry) Activate(st State, role Role, signer, license, owner, delegate solana.PublicKey, uri string) (*Participant, bool, error) {
	if err := validRole(role); err != nil {
		return nil, false, err
	}
	if signer != owner {
		return nil, false, ErrNotLicenseOwner
	}
	if err := validURI(role, uri); err != nil {
		return nil, false, err
	}
	existing, err := st.Participant(role, license, owner)
	if err != nil {
		return nil, false, err
	}
	if existing.Status() == StatusSuspended {
		return nil, false, fmt.Errorf("%w: %s %s", ErrSuspended, role, license)
	}
	next := &Participant{
		Role:         role,
		License:      license,
		Owner:        owner,
		Delegate:     delegate,
		DiscoveryURI: uri,
	}
	if err := st.PutParticipant(next); err != nil {
		return nil, false, err
	}
	return next.Clone(), existing == nil, nil
}

// UpdateWorkerURI replaces the discovery URI of an active worker. Only the
// delegate may update it.
func (r *Registry) UpdateWorkerURI(st State, signer, license, owner solana.PublicKey, uri string) (*Participant, error) {
	if err := validURI(RoleWorker, uri); err != nil {
		return nil, err
	}
	p, err := r.require(st, RoleWorker, license, owner)
	if err != nil {
		return nil, err
	}
	if p.Status() == StatusSuspended {
		return nil, fmt.Errorf("%w: worker %s", ErrSuspended, license)
	}
	if signer != p.Delegate {
		return nil, ErrNotDelegate
	}
	p.DiscoveryURI = uri
	if err := st.PutParticipant(p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Suspend moves an active participant to suspended.
func (r *Registry) Suspend(st State, role Role, signer, license, owner solana.PublicKey, now time.Time) (*Participant, error) {
	if signer != r.admin {
		return nil, ErrNotAdmin
	}
	p, err := r.require(st, role, license, owner)
	if err != nil {
		return nil, err
	}
	if p.Status() == StatusSuspended {
		return nil, ErrAlreadySuspended
	}
	ts := now.Unix()
	p.SuspendedAt = &ts
	if err := st.PutParticipant(p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Resume moves a suspended participant back to active.
func (r *Registry) Resume(st State, role Role, signer, license, owner solana.PublicKey) (*Participant, error) {
	if signer != r.admin {
		return nil, ErrNotAdmin
	}
	p, err := r.require(st, role, license, owner)
	if err != nil {
		return nil, err
	}
	if p.Status() != StatusSuspended {
		return nil, ErrNotSuspended
	}
	p.SuspendedAt = nil
	if err := st.PutParticipant(p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// SetLicenseSuspended flips the license-wide flag. The license needs no
// activated participant.
func (r *Registry) SetLicenseSuspended(st State, role Role, signer, license solana.PublicKey, suspended bool, now time.Time) error {
	if err := validRole(role); err != nil {
		return err
	}
	if signer != r.admin {
		return ErrNotAdmin
	}
	flags, err := st.LicenseFlags(role, license)
	if err != nil {
		return err
	}
	switch {
	case suspended && flags.Suspended():
		return ErrAlreadySuspended
	case !suspended && !flags.Suspended():
		return ErrNotSuspended
	}
	next := &LicenseFlags{}
	if suspended {
		ts := now.Unix()
		next.SuspendedAt = &ts
	}
	return st.PutLicenseFlags(role, license, next)
}

// RequireLicenseActive fails when the license-wide flag is set.
func RequireLicenseActive(st State, role Role, license solana.PublicKey) error {
	flags, err := st.LicenseFlags(role, license)
	if err != nil {
		return err
	}
	if flags.Suspended() {
		return fmt.Errorf("%w: %s %s", ErrLicenseSuspended, role, license)
	}
	return nil
}

// RequireDelegate loads an active participant whose delegate is signer.
func (r *Registry) RequireDelegate(st State, role Role, signer, license, owner solana.PublicKey) (*Participant, error) {
	p, err := r.require(st, role, license, owner)
	if err != nil {
		return nil, err
	}
	if signer != p.Delegate {
		return nil, ErrNotDelegate
	}
	if p.Status() == StatusSuspended {
		return nil, fmt.Errorf("%w: %s %s", ErrSuspended, role, license)
	}
	return p, nil
}

// RequireOwnerOrDelegate loads an active participant that signer controls.
func (r *Registry) RequireOwnerOrDelegate(st State, role Role, signer, license, owner solana.PublicKey) (*Participant, error) {
	p, err := r.require(st, role, license, owner)
	if err != nil {
		return nil, err
	}
	if signer != p.Owner && signer != p.Delegate {
		return nil, ErrNotOwnerOrDelegate
	}
	if p.Status() == StatusSuspended {
		return nil, fmt.Errorf("%w: %s %s", ErrSuspended, role, license)
	}
	return p, nil
}

func (r *Registry) require(st State, role Role, license, owner solana.PublicKey) (*Participant, error) {
	if err := validRole(role); err != nil {
		return nil, err
	}
	p, err := st.Participant(role, license, owner)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrParticipantNotFound, role, license)
	}
	return p, nil
}

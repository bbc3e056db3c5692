package state

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"depinledger/core/address"
	"depinledger/native/registry"
)

var _ registry.State = (*Tx)(nil)

func participantLocation(program solana.PublicKey, role registry.Role, license, owner solana.PublicKey) (solana.PublicKey, RecordType, error) {
	switch role {
	case registry.RoleChecker:
		addr, err := address.CheckerMetadata(program, license, owner)
		return addr, RecordCheckerMetadata, err
	case registry.RoleWorker:
		addr, err := address.WorkerMetadata(program, license, owner)
		return addr, RecordWorkerMetadata, err
	default:
		return solana.PublicKey{}, 0, fmt.Errorf("%w: %d", registry.ErrUnknownRole, role)
	}
}

func licenseLocation(program solana.PublicKey, role registry.Role, license solana.PublicKey) (solana.PublicKey, RecordType, error) {
	switch role {
	case registry.RoleChecker:
		addr, err := address.CheckerLicenseMetadata(program, license)
		return addr, RecordCheckerLicenseMetadata, err
	case registry.RoleWorker:
		addr, err := address.WorkerLicenseMetadata(program, license)
		return addr, RecordWorkerLicenseMetadata, err
	default:
		return solana.PublicKey{}, 0, fmt.Errorf("%w: %d", registry.ErrUnknownRole, role)
	}
}

// Participant implements registry.State.
func (tx *Tx) Participant(role registry.Role, license, owner solana.PublicKey) (*registry.Participant, error) {
	addr, kind, err := participantLocation(tx.Program(), role, license, owner)
	if err != nil {
		return nil, err
	}
	data, err := tx.get(addr)
	if err != nil || data == nil {
		return nil, err
	}
	var stored storedParticipant
	if err := decodeRecord(kind, data, &stored); err != nil {
		return nil, err
	}
	if stored.License != license || stored.Owner != owner {
		return nil, fmt.Errorf("%w: %s at %s belongs to another license", ErrMalformedRecord, kind, addr)
	}
	return &registry.Participant{
		Role:         role,
		License:      stored.License,
		Owner:        stored.Owner,
		Delegate:     stored.Delegate,
		DiscoveryURI: stored.DiscoveryURI,
		SuspendedAt:  stored.SuspendedAt.pointer(),
	}, nil
}

func (tx *Tx) PutParticipant(p *registry.Participant) error {
	addr, kind, err := participantLocation(tx.Program(), p.Role, p.License, p.Owner)
	if err != nil {
		return err
	}
	data, err := encodeRecord(kind, &storedParticipant{
		License:      p.License,
		Owner:        p.Owner,
		Delegate:     p.Delegate,
		DiscoveryURI: p.DiscoveryURI,
		SuspendedAt:  toOptional(p.SuspendedAt),
	})
	if err != nil {
		return err
	}
	return tx.put(addr, data)
}

// LicenseFlags implements registry.State.
func (tx *Tx) LicenseFlags(role registry.Role, license solana.PublicKey) (*registry.LicenseFlags, error) {
	addr, kind, err := licenseLocation(tx.Program(), role, license)
	if err != nil {
		return nil, err
	}
	data, err := tx.get(addr)
	if err != nil || data == nil {
		return nil, err
	}
	var stored storedLicenseFlags
	if err := decodeRecord(kind, data, &stored); err != nil {
		return nil, err
	}
	return &registry.LicenseFlags{SuspendedAt: stored.SuspendedAt.pointer()}, nil
}

func (tx *Tx) PutLicenseFlags(role registry.Role, license solana.PublicKey, flags *registry.LicenseFlags) error {
	addr, kind, err := licenseLocation(tx.Program(), role, license)
	if err != nil {
		return err
	}
	data, err := encodeRecord(kind, &storedLicenseFlags{SuspendedAt: toOptional(flags.SuspendedAt)})
	if err != nil {
		return err
	}
	return tx.put(addr, data)
}

package settlement

import (
	"context"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"depinledger/core/events"
	"depinledger/core/license"
	"depinledger/core/state"
	"depinledger/native/registry"
)

func (e *Engine) treeFor(role registry.Role) solana.PublicKey {
	if role == registry.RoleChecker {
		return e.cfg.CheckerTree
	}
	return e.cfg.WorkerTree
}

// ActivateChecker registers the checker license owned by signer and sets its
// delegate. Re-activating an active checker replaces the delegate.
func (e *Engine) ActivateChecker(ctx context.Context, signer, tree solana.PublicKey, lic license.Context, delegate solana.PublicKey) (*registry.Participant, error) {
	return e.activate(ctx, registry.RoleChecker, signer, tree, lic, delegate, "")
}

// ActivateWorker registers the worker license owned by signer with its
// delegate and discovery URI.
func (e *Engine) ActivateWorker(ctx context.Context, signer, tree solana.PublicKey, lic license.Context, delegate solana.PublicKey, uri string) (*registry.Participant, error) {
	return e.activate(ctx, registry.RoleWorker, signer, tree, lic, delegate, uri)
}

func (e *Engine) activate(ctx context.Context, role registry.Role, signer, tree solana.PublicKey, lic license.Context, delegate solana.PublicKey, uri string) (*registry.Participant, error) {
	op := "activate_" + role.String()
	resolved, err := license.ResolveOwned(ctx, e.verifier, e.treeFor(role), tree, signer, lic)
	if err != nil {
		return nil, e.rejected(op, err)
	}
	var out *registry.Participant
	err = e.apply(op, func(tx *state.Tx, fx *effects) error {
		p, created, err := e.registry.Activate(tx, role, signer, resolved.Asset, lic.Owner, delegate, uri)
		if err != nil {
			return err
		}
		out = p
		fx.emit(events.ParticipantActivated{
			Role:         role.String(),
			License:      p.License,
			Owner:        p.Owner,
			Delegate:     p.Delegate,
			DiscoveryURI: p.DiscoveryURI,
			Created:      created,
		})
		fx.log(slog.String("license", p.License.String()), slog.String("owner", p.Owner.String()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateWorkerURI replaces the discovery URI of an active worker. The signer
// must be the worker's delegate.
func (e *Engine) UpdateWorkerURI(ctx context.Context, signer, tree solana.PublicKey, lic license.Context, uri string) (*registry.Participant, error) {
	const op = "update_worker_uri"
	resolved, err := license.Resolve(ctx, e.verifier, e.cfg.WorkerTree, tree, lic)
	if err != nil {
		return nil, e.rejected(op, err)
	}
	var out *registry.Participant
	err = e.apply(op, func(tx *state.Tx, fx *effects) error {
		p, err := e.registry.UpdateWorkerURI(tx, signer, resolved.Asset, lic.Owner, uri)
		if err != nil {
			return err
		}
		out = p
		fx.emit(events.WorkerURIUpdated{License: p.License, Owner: p.Owner, URI: p.DiscoveryURI})
		fx.log(slog.String("license", p.License.String()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) SuspendChecker(signer, license, owner solana.PublicKey) error {
	return e.setParticipantSuspended(registry.RoleChecker, signer, license, owner, true)
}

func (e *Engine) ResumeChecker(signer, license, owner solana.PublicKey) error {
	return e.setParticipantSuspended(registry.RoleChecker, signer, license, owner, false)
}

func (e *Engine) SuspendWorker(signer, license, owner solana.PublicKey) error {
	return e.setParticipantSuspended(registry.RoleWorker, signer, license, owner, true)
}

func (e *Engine) ResumeWorker(signer, license, owner solana.PublicKey) error {
	return e.setParticipantSuspended(registry.RoleWorker, signer, license, owner, false)
}

func (e *Engine) setParticipantSuspended(role registry.Role, signer, lic, owner solana.PublicKey, suspended bool) error {
	op := "resume_" + role.String()
	if suspended {
		op = "suspend_" + role.String()
	}
	return e.apply(op, func(tx *state.Tx, fx *effects) error {
		var err error
		if suspended {
			_, err = e.registry.Suspend(tx, role, signer, lic, owner, e.clock.Now())
		} else {
			_, err = e.registry.Resume(tx, role, signer, lic, owner)
		}
		if err != nil {
			return err
		}
		fx.emit(events.ParticipantStatus{Role: role.String(), License: lic, Owner: owner, Suspended: suspended})
		fx.log(slog.String("license", lic.String()), slog.String("owner", owner.String()))
		return nil
	})
}

// SuspendLicense sets the license-wide flag. A suspended worker license
// cannot submit; a suspended checker license cannot be paid out.
func (e *Engine) SuspendLicense(signer solana.PublicKey, role registry.Role, lic solana.PublicKey) error {
	return e.setLicenseSuspended(signer, role, lic, true)
}

func (e *Engine) ResumeLicense(signer solana.PublicKey, role registry.Role, lic solana.PublicKey) error {
	return e.setLicenseSuspended(signer, role, lic, false)
}

func (e *Engine) setLicenseSuspended(signer solana.PublicKey, role registry.Role, lic solana.PublicKey, suspended bool) error {
	op := "resume_license"
	if suspended {
		op = "suspend_license"
	}
	return e.apply(op, func(tx *state.Tx, fx *effects) error {
		if err := e.registry.SetLicenseSuspended(tx, role, signer, lic, suspended, e.clock.Now()); err != nil {
			return err
		}
		fx.emit(events.LicenseStatus{Role: role.String(), License: lic, Suspended: suspended})
		fx.log(slog.String("role", role.String()), slog.String("license", lic.String()))
		return nil
	})
}

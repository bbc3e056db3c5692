package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"depinledger/core/events"
	"depinledger/core/license"
	"depinledger/core/state"
	"depinledger/native/bank"
	"depinledger/native/periods"
	"depinledger/native/registry"
	"depinledger/native/rewards"
	"depinledger/native/vesting"
)

// InitNetwork creates the period ledger, the checker balance ledger and the
// treasury records. When funding is non-zero the treasury authority is
// credited with it.
func (e *Engine) InitNetwork(signer solana.PublicKey, funding uint64) error {
	return e.apply("init_network", func(tx *state.Tx, fx *effects) error {
		if err := e.requireAdmin(signer); err != nil {
			return err
		}
		existing, err := tx.PeriodLedger()
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyInitialized
		}
		if ts, err := tx.TreasuryState(); err != nil {
			return err
		} else if ts != nil {
			return ErrAlreadyInitialized
		}
		if err := tx.PutPeriodLedger(periods.New()); err != nil {
			return err
		}
		if err := tx.PutRewardsLedger(rewards.NewLedger()); err != nil {
			return err
		}
		if err := tx.PutTreasuryState(&vesting.TreasuryState{}); err != nil {
			return err
		}
		cfg := vesting.TreasuryConfig{CheckerRewardsLockDays: e.cfg.CheckerRewardsLockDays}
		if err := tx.PutTreasuryConfig(&cfg); err != nil {
			return err
		}
		if funding > 0 {
			authority, err := tx.TreasuryAuthority()
			if err != nil {
				return err
			}
			if err := bank.Mint(tx, authority, funding); err != nil {
				return err
			}
			fx.emit(events.TreasuryFunded{Authority: authority, Delta: funding, Balance: funding, Reason: events.FundingReasonInit})
		}
		fx.emit(events.NetworkInitialized{Admin: signer, LockDays: cfg.CheckerRewardsLockDays})
		fx.locked(0)
		fx.log(slog.Uint64("funding", funding))
		return nil
	})
}

// FundTreasury credits the treasury authority. Only the license admin may
// fund it.
func (e *Engine) FundTreasury(signer solana.PublicKey, amount uint64) error {
	return e.apply("fund_treasury", func(tx *state.Tx, fx *effects) error {
		if err := e.requireAdmin(signer); err != nil {
			return err
		}
		if ts, err := tx.TreasuryState(); err != nil {
			return err
		} else if ts == nil {
			return ErrNotInitialized
		}
		authority, err := tx.TreasuryAuthority()
		if err != nil {
			return err
		}
		if err := bank.Mint(tx, authority, amount); err != nil {
			return err
		}
		balance, err := bank.Balance(tx, authority)
		if err != nil {
			return err
		}
		fx.emit(events.TreasuryFunded{Authority: authority, Delta: amount, Balance: balance, Reason: events.FundingReasonTopUp})
		fx.log(slog.Uint64("amount", amount), slog.Uint64("balance", balance))
		return nil
	})
}

// AdvancePeriod records how many checkers are active from period p onward.
// p must lie in the future and exceed the last recorded period, and the count
// may not exceed the checker ledger's capacity.
func (e *Engine) AdvancePeriod(signer solana.PublicKey, p uint16, checkerCount uint32) error {
	return e.apply("advance_period", func(tx *state.Tx, fx *effects) error {
		if err := e.requireAdmin(signer); err != nil {
			return err
		}
		_, current, err := e.now()
		if err != nil {
			return err
		}
		if p <= current {
			return fmt.Errorf("%w: %d <= %d", ErrPeriodNotFuture, p, current)
		}
		if checkerCount > rewards.Capacity {
			return fmt.Errorf("%w: %d > %d", ErrTooManyCheckers, checkerCount, rewards.Capacity)
		}
		ledger, err := tx.PeriodLedger()
		if err != nil {
			return err
		}
		if ledger == nil {
			return ErrNotInitialized
		}
		if err := ledger.Append(p, checkerCount); err != nil {
			return err
		}
		if err := tx.PutPeriodLedger(ledger); err != nil {
			return err
		}
		fx.emit(events.PeriodAdvanced{Period: p, CheckerCount: checkerCount})
		fx.log(slog.Uint64("period", uint64(p)), slog.Uint64("checkers", uint64(checkerCount)))
		return nil
	})
}

// Submission is a worker's evidence for one closed period.
type Submission struct {
	Period    uint16
	ProofRoot [32]byte
	Checkers  rewards.Bitmap
	Uptime    uint32
	Latency   uint32
}

// SubmitWorkerProof stores the proof and credits every checker selected by
// the bitmap. The signer must be the worker's delegate and the period must be
// the one immediately before the current period.
func (e *Engine) SubmitWorkerProof(ctx context.Context, signer, tree solana.PublicKey, lic license.Context, sub Submission) (*rewards.Settlement, error) {
	const op = "submit_worker_proof"
	resolved, err := license.Resolve(ctx, e.verifier, e.cfg.WorkerTree, tree, lic)
	if err != nil {
		return nil, e.rejected(op, err)
	}
	asset := resolved.Asset
	var out *rewards.Settlement
	err = e.apply(op, func(tx *state.Tx, fx *effects) error {
		if _, err := e.registry.RequireDelegate(tx, registry.RoleWorker, signer, asset, lic.Owner); err != nil {
			return err
		}
		if err := registry.RequireLicenseActive(tx, registry.RoleWorker, asset); err != nil {
			return err
		}
		_, current, err := e.now()
		if err != nil {
			return err
		}
		if current == 0 || sub.Period != current-1 {
			return fmt.Errorf("%w: current %d, given %d", ErrOutsideWindow, current, sub.Period)
		}
		existing, err := tx.WorkerProof(asset, sub.Period)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s period %d", ErrProofExists, asset, sub.Period)
		}
		ledger, err := tx.PeriodLedger()
		if err != nil {
			return err
		}
		balances, err := tx.RewardsLedger()
		if err != nil {
			return err
		}
		if ledger == nil || balances == nil {
			return ErrNotInitialized
		}
		count, ok := ledger.CountAsOf(sub.Period)
		if !ok {
			return fmt.Errorf("%w: %d", ErrNoCheckerCount, sub.Period)
		}
		settled, err := rewards.Settle(balances, asset[:], sub.Period, count, sub.Checkers)
		if err != nil {
			return err
		}
		if err := tx.PutWorkerProof(&rewards.Proof{
			License:   asset,
			Period:    sub.Period,
			ProofRoot: sub.ProofRoot,
			Checkers:  sub.Checkers,
			Uptime:    sub.Uptime,
			Latency:   sub.Latency,
		}); err != nil {
			return err
		}
		if err := tx.PutRewardsLedger(balances); err != nil {
			return err
		}
		out = settled
		fx.emit(events.ProofSubmitted{
			License:   asset,
			Period:    sub.Period,
			ProofRoot: sub.ProofRoot,
			Uptime:    sub.Uptime,
			Latency:   sub.Latency,
			Credited:  len(settled.Credited),
		})
		if len(settled.Credited) > 0 {
			fx.emit(events.CheckerCredited{
				License: asset,
				Period:  sub.Period,
				Reward:  settled.Reward,
				Indices: append([]uint32(nil), settled.Credited...),
			})
		}
		fx.log(
			slog.String("license", asset.String()),
			slog.Uint64("period", uint64(sub.Period)),
			slog.Int("credited", len(settled.Credited)),
			slog.Uint64("reward", uint64(settled.Reward)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Payout reports a checker balance moved into a lock.
type Payout struct {
	License solana.PublicKey
	Index   uint32
	Owner   solana.PublicKey
	Amount  uint64
	Grant   *vesting.Grant
}

// PayoutCheckerRewards locks the accrued balance of the checker at
// lic.Index for the license owner and resets the balance. The signer must be
// the owner or the delegate.
func (e *Engine) PayoutCheckerRewards(ctx context.Context, signer, tree solana.PublicKey, lic license.Context) (*Payout, error) {
	const op = "payout_checker_rewards"
	resolved, err := license.Resolve(ctx, e.verifier, e.cfg.CheckerTree, tree, lic)
	if err != nil {
		return nil, e.rejected(op, err)
	}
	asset := resolved.Asset
	var out *Payout
	err = e.apply(op, func(tx *state.Tx, fx *effects) error {
		if _, err := e.registry.RequireOwnerOrDelegate(tx, registry.RoleChecker, signer, asset, lic.Owner); err != nil {
			return err
		}
		if err := registry.RequireLicenseActive(tx, registry.RoleChecker, asset); err != nil {
			return err
		}
		balances, err := tx.RewardsLedger()
		if err != nil {
			return err
		}
		cfg, err := tx.TreasuryConfig()
		if err != nil {
			return err
		}
		if balances == nil || cfg == nil {
			return ErrNotInitialized
		}
		balance, err := balances.Read(lic.Index)
		if err != nil {
			return err
		}
		if balance == 0 {
			return fmt.Errorf("%w: index %d", ErrNothingToPay, lic.Index)
		}
		_, current, err := e.now()
		if err != nil {
			return err
		}
		grant, err := e.vault.Grant(tx, lic.Owner, current, cfg.CheckerRewardsLockDays, uint64(balance))
		if err != nil {
			return err
		}
		if err := balances.Reset(lic.Index); err != nil {
			return err
		}
		if err := tx.PutRewardsLedger(balances); err != nil {
			return err
		}
		ts, err := tx.TreasuryState()
		if err != nil {
			return err
		}
		out = &Payout{License: asset, Index: lic.Index, Owner: lic.Owner, Amount: uint64(balance), Grant: grant}
		fx.emit(events.RewardsPaidOut{License: asset, Index: lic.Index, Owner: lic.Owner, Amount: uint64(balance), Lock: grant.Address})
		fx.emit(events.TokensLocked{
			Lock:         grant.Address,
			Owner:        grant.Lock.Owner,
			Amount:       grant.Amount,
			TotalLocked:  grant.Lock.TotalLocked,
			LockPeriod:   grant.Lock.LockPeriod,
			UnlockPeriod: grant.Lock.UnlockPeriod,
			Created:      grant.Created,
		})
		fx.locked(ts.LockedBalance)
		fx.log(
			slog.String("license", asset.String()),
			slog.Uint64("checker", uint64(lic.Index)),
			slog.String("owner", lic.Owner.String()),
			slog.Uint64("amount", uint64(balance)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unlock releases the lock at addr to its owner. The payout leaves the
// treasury authority; the penalty stays behind.
func (e *Engine) Unlock(signer, addr solana.PublicKey) (*vesting.Release, error) {
	var out *vesting.Release
	err := e.apply("unlock", func(tx *state.Tx, fx *effects) error {
		now, current, err := e.now()
		if err != nil {
			return err
		}
		release, err := e.vault.Unlock(tx, signer, addr, current, now)
		if err != nil {
			return err
		}
		if release.Payout > 0 {
			authority, err := tx.TreasuryAuthority()
			if err != nil {
				return err
			}
			if err := bank.Transfer(tx, authority, release.Owner, release.Payout); err != nil {
				return err
			}
			fx.emit(events.Transfer{From: authority, To: release.Owner, Amount: release.Payout, Reason: "unlock"})
		}
		ts, err := tx.TreasuryState()
		if err != nil {
			return err
		}
		out = release
		fx.emit(events.TokensUnlocked{
			Lock:       release.Address,
			Owner:      release.Owner,
			Total:      release.Total,
			PenaltyBps: release.PenaltyBps,
			Penalty:    release.Penalty,
			Payout:     release.Payout,
			UnlockedAt: release.UnlockedAt,
		})
		fx.locked(ts.LockedBalance)
		fx.log(
			slog.String("owner", release.Owner.String()),
			slog.Uint64("amount", release.Payout),
			slog.Uint64("penalty", release.Penalty),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

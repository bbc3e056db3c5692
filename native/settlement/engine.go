// Package settlement runs every ledger request against one state transaction:
// license checks, period advances, worker submissions, checker payouts and
// unlocks. Events are emitted only after the transaction commits.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"

	coreerrors "depinledger/core/errors"
	"depinledger/core/events"
	"depinledger/core/license"
	"depinledger/core/period"
	"depinledger/core/state"
	"depinledger/native/registry"
	"depinledger/native/vesting"
	"depinledger/observability/metrics"
)

var (
	ErrAlreadyInitialized = coreerrors.New(coreerrors.KindStateConflict, "settlement: network already initialised")
	ErrNotInitialized     = coreerrors.New(coreerrors.KindStateConflict, "settlement: network not initialised")
	ErrPeriodNotFuture    = coreerrors.New(coreerrors.KindPrecondition, "settlement: period must be greater than the current period")
	ErrOutsideWindow      = coreerrors.New(coreerrors.KindPrecondition, "settlement: submissions are accepted only for the previous period")
	ErrProofExists        = coreerrors.New(coreerrors.KindStateConflict, "settlement: proof already submitted for period")
	ErrTooManyCheckers    = coreerrors.New(coreerrors.KindPrecondition, "settlement: checker count exceeds ledger capacity")
	ErrNoCheckerCount     = coreerrors.New(coreerrors.KindPrecondition, "settlement: no checker count recorded for period")
	ErrNothingToPay       = coreerrors.New(coreerrors.KindResourceExhaustion, "settlement: checker balance is zero")
	ErrTreesMatch         = errors.New("settlement: checker and worker trees must differ")
)

// Config binds the engine to its program and license collections.
type Config struct {
	Program      solana.PublicKey
	CheckerTree  solana.PublicKey
	WorkerTree   solana.PublicKey
	LicenseAdmin solana.PublicKey
	// CheckerRewardsLockDays is written into the treasury config at init.
	CheckerRewardsLockDays uint16
}

// Engine serialises ledger requests. It is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	state    *state.Manager
	registry *registry.Registry
	vault    *vesting.Vault
	verifier license.Verifier
	cfg      Config

	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *metrics.SettlementMetrics
	emitter events.Emitter
}

// NewEngine creates an engine over mgr. The state manager must belong to
// cfg.Program.
func NewEngine(mgr *state.Manager, verifier license.Verifier, cfg Config) (*Engine, error) {
	if mgr == nil {
		return nil, fmt.Errorf("settlement: state manager required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("settlement: license verifier required")
	}
	if mgr.Program() != cfg.Program {
		return nil, fmt.Errorf("settlement: state manager bound to %s, not %s", mgr.Program(), cfg.Program)
	}
	if cfg.CheckerTree == cfg.WorkerTree {
		return nil, ErrTreesMatch
	}
	if cfg.CheckerRewardsLockDays == 0 {
		cfg.CheckerRewardsLockDays = vesting.DefaultCheckerRewardsLockDays
	}
	return &Engine{
		state:    mgr,
		registry: registry.New(cfg.LicenseAdmin),
		vault:    vesting.NewVault(cfg.Program),
		verifier: verifier,
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
		emitter:  events.NoopEmitter{},
	}, nil
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetClock overrides the time source. Tests use a fake clock.
func (e *Engine) SetClock(clock clockwork.Clock) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	e.clock = clock
}

func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// SetMetrics enables metric collection. Nil disables it.
func (e *Engine) SetMetrics(m *metrics.SettlementMetrics) { e.metrics = m }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// CurrentPeriod returns the period containing the clock's current time.
func (e *Engine) CurrentPeriod() (uint16, error) {
	return period.FromTime(e.clock.Now())
}

// effects collects what a committed request reports.
type effects struct {
	events        []events.Event
	lockedBalance *uint64
	attrs         []any
}

func (f *effects) emit(evt events.Event) { f.events = append(f.events, evt) }

func (f *effects) locked(amount uint64) { f.lockedBalance = &amount }

func (f *effects) log(args ...any) { f.attrs = append(f.attrs, args...) }

// apply runs fn inside one transaction. Nothing is written, emitted or
// observed unless fn succeeds and the commit lands.
func (e *Engine) apply(op string, fn func(tx *state.Tx, out *effects) error) error {
	start := e.clock.Now()
	e.mu.Lock()
	out := &effects{}
	err := e.state.Update(func(tx *state.Tx) error {
		return fn(tx, out)
	})
	e.mu.Unlock()

	elapsed := e.clock.Since(start)
	if err != nil {
		return e.rejectedAfter(op, err, elapsed)
	}
	e.metrics.ObserveRequest(op, "ok", elapsed)
	for _, evt := range out.events {
		e.observe(evt)
		e.emitter.Emit(evt)
	}
	if out.lockedBalance != nil {
		e.metrics.SetLockedBalance(*out.lockedBalance)
	}
	args := append([]any{slog.String("operation", op), slog.Duration("elapsed", elapsed)}, out.attrs...)
	e.logger.Info("settlement request applied", args...)
	return nil
}

// rejected reports a request that failed before reaching the state.
func (e *Engine) rejected(op string, err error) error {
	return e.rejectedAfter(op, err, 0)
}

func (e *Engine) rejectedAfter(op string, err error, elapsed time.Duration) error {
	kind := coreerrors.KindOf(err)
	e.metrics.ObserveRequest(op, kind.String(), elapsed)
	level := slog.LevelWarn
	if kind == coreerrors.KindDataCorruption || kind == coreerrors.KindUnknown {
		level = slog.LevelError
	}
	e.logger.Log(context.Background(), level, "settlement request rejected",
		slog.String("operation", op),
		slog.String("kind", kind.String()),
		slog.Any("error", err))
	return err
}

func (e *Engine) observe(evt events.Event) {
	switch ev := evt.(type) {
	case events.PeriodAdvanced:
		e.metrics.ObservePeriod(ev.CheckerCount)
	case events.CheckerCredited:
		e.metrics.ObserveCredits(len(ev.Indices), ev.Reward)
	case events.RewardsPaidOut:
		e.metrics.ObservePayout(ev.Amount)
	case events.TokensLocked:
		e.metrics.ObserveGrant(ev.Created)
	case events.TokensUnlocked:
		e.metrics.ObserveUnlock(ev.Penalty, ev.Payout)
	}
}

// now returns the clock time together with its period.
func (e *Engine) now() (time.Time, uint16, error) {
	ts := e.clock.Now()
	p, err := period.FromTime(ts)
	if err != nil {
		return time.Time{}, 0, err
	}
	return ts, p, nil
}

func (e *Engine) requireAdmin(signer solana.PublicKey) error {
	if signer != e.cfg.LicenseAdmin {
		return registry.ErrNotAdmin
	}
	return nil
}

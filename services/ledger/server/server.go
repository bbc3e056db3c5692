// Package server exposes the ledger over HTTP. Queries and journal exports are
// open; settlement requests must be signed by their signer.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coreerrors "depinledger/core/errors"
	"depinledger/core/journal"
	"depinledger/integrations/exports"
	"depinledger/native/rewards"
	"depinledger/native/settlement"
	"depinledger/native/vesting"
)

// Ledger is the query surface of the settlement engine.
type Ledger interface {
	Periods() (*settlement.PeriodView, error)
	CheckerCount(p uint16) (uint32, bool, error)
	CheckerBalance(index uint32) (uint32, error)
	Treasury() (*settlement.TreasuryView, error)
	Lock(addr solana.PublicKey) (*vesting.Lock, error)
	PenaltyPreview(lock *vesting.Lock) (uint16, uint64, error)
	WorkerProof(license solana.PublicKey, p uint16) (*rewards.Proof, error)
}

var _ Ledger = (*settlement.Engine)(nil)

// Config captures the dependencies required to construct the server.
type Config struct {
	Ledger Ledger
	// Operator enables POST /v1/requests when set.
	Operator Operator
	Journal  *journal.Store
	Logger   *slog.Logger
	Clock    clockwork.Clock
	// Metrics replaces the default prometheus handler.
	Metrics http.Handler
}

// Server encapsulates dependencies for the HTTP API.
type Server struct {
	ledger   Ledger
	operator Operator
	journal  *journal.Store
	logger   *slog.Logger
	clock    clockwork.Clock
	metrics  http.Handler
	replays  replayGuard

	router http.Handler
}

// New constructs the router.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	srv := &Server{
		ledger:   cfg.Ledger,
		operator: cfg.Operator,
		journal:  cfg.Journal,
		logger:   logger,
		clock:    clock,
		metrics:  metrics,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics)

	r.Route("/v1", func(api chi.Router) {
		api.Get("/periods", s.GetPeriods)
		api.Get("/periods/{period}/checkers", s.GetPeriodCheckers)
		api.Get("/checkers/{index}/balance", s.GetCheckerBalance)
		api.Get("/treasury", s.GetTreasury)
		api.Get("/locks/{address}", s.GetLock)
		api.Get("/proofs/{license}/{period}", s.GetProof)
		api.Get("/journal", s.ListJournal)
		if s.operator != nil {
			api.Post("/requests", s.PostRequest)
		}
	})
	return r
}

type periodEntry struct {
	Period       uint16 `json:"period"`
	CheckerCount uint32 `json:"checkerCount"`
}

func (s *Server) GetPeriods(w http.ResponseWriter, r *http.Request) {
	view, err := s.ledger.Periods()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries := make([]periodEntry, len(view.Entries))
	for i, e := range view.Entries {
		entries[i] = periodEntry{Period: e.Period, CheckerCount: e.Count}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"current": view.Current,
		"entries": entries,
	})
}

func (s *Server) GetPeriodCheckers(w http.ResponseWriter, r *http.Request) {
	p, err := strconv.ParseUint(chi.URLParam(r, "period"), 10, 16)
	if err != nil {
		http.Error(w, "invalid period", http.StatusBadRequest)
		return
	}
	count, found, err := s.ledger.CheckerCount(uint16(p))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		http.Error(w, "no checker count recorded for period", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"period":           p,
		"checkerCount":     count,
		"assignedSlots":    rewards.AssignedSlots(count),
		"rewardPerChecker": rewards.RewardPerChecker(uint16(p)),
	})
}

func (s *Server) GetCheckerBalance(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 32)
	if err != nil {
		http.Error(w, "invalid checker index", http.StatusBadRequest)
		return
	}
	balance, err := s.ledger.CheckerBalance(uint32(index))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"index": index, "balance": balance})
}

func (s *Server) GetTreasury(w http.ResponseWriter, r *http.Request) {
	view, err := s.ledger.Treasury()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"authority":              view.Authority.String(),
		"tokenBalance":           strconv.FormatUint(view.TokenBalance, 10),
		"lockedBalance":          strconv.FormatUint(view.LockedBalance, 10),
		"available":              strconv.FormatUint(view.Available(), 10),
		"checkerRewardsLockDays": view.CheckerRewardsLockDays,
	})
}

func (s *Server) GetLock(w http.ResponseWriter, r *http.Request) {
	addr, err := solana.PublicKeyFromBase58(chi.URLParam(r, "address"))
	if err != nil {
		http.Error(w, "invalid lock address", http.StatusBadRequest)
		return
	}
	lock, err := s.ledger.Lock(addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if lock == nil {
		http.Error(w, "lock not found", http.StatusNotFound)
		return
	}
	body := map[string]interface{}{
		"address":      addr.String(),
		"owner":        lock.Owner.String(),
		"totalLocked":  strconv.FormatUint(lock.TotalLocked, 10),
		"lockPeriod":   lock.LockPeriod,
		"unlockPeriod": lock.UnlockPeriod,
		"unlocked":     lock.Unlocked(),
	}
	if lock.Unlocked() {
		body["unlockedAt"] = *lock.UnlockedAt
	} else {
		rate, payout, err := s.ledger.PenaltyPreview(lock)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		body["penaltyBps"] = rate
		body["payoutNow"] = strconv.FormatUint(payout, 10)
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) GetProof(w http.ResponseWriter, r *http.Request) {
	license, err := solana.PublicKeyFromBase58(chi.URLParam(r, "license"))
	if err != nil {
		http.Error(w, "invalid license", http.StatusBadRequest)
		return
	}
	p, err := strconv.ParseUint(chi.URLParam(r, "period"), 10, 16)
	if err != nil {
		http.Error(w, "invalid period", http.StatusBadRequest)
		return
	}
	proof, err := s.ledger.WorkerProof(license, uint16(p))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if proof == nil {
		http.Error(w, "proof not found", http.StatusNotFound)
		return
	}
	words := make([]string, len(proof.Checkers))
	for i, word := range proof.Checkers {
		words[i] = strconv.FormatUint(word, 16)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"license":   proof.License.String(),
		"period":    proof.Period,
		"proofRoot": base58.Encode(proof.ProofRoot[:]),
		"checkers":  words,
		"credited":  proof.Checkers.Count(),
		"uptime":    proof.Uptime,
		"latency":   proof.Latency,
	})
}

func (s *Server) ListJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	filter := journal.Filter{
		Type:    strings.TrimSpace(q.Get("type")),
		Subject: strings.TrimSpace(q.Get("subject")),
	}
	if raw := q.Get("after"); raw != "" {
		after, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid after", http.StatusBadRequest)
			return
		}
		filter.AfterSeq = after
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}
	entries, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch format := strings.ToLower(q.Get("format")); format {
	case "", "json":
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
	case "csv", "jsonl":
		var (
			data     []byte
			checksum string
		)
		contentType := "text/csv"
		if format == "csv" {
			data, checksum, err = exports.JournalCSV(entries)
		} else {
			contentType = "application/x-ndjson"
			data, checksum, err = exports.JournalJSONL(entries)
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("X-Checksum-SHA256", checksum)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
	}
}

func statusFor(err error) int {
	if errors.Is(err, settlement.ErrNotInitialized) {
		return http.StatusServiceUnavailable
	}
	switch coreerrors.KindOf(err) {
	case coreerrors.KindPrecondition:
		return http.StatusBadRequest
	case coreerrors.KindAuthorization:
		return http.StatusForbidden
	case coreerrors.KindStateConflict:
		return http.StatusConflict
	case coreerrors.KindResourceExhaustion:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("ledger query failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.Any("error", err))
	}
	s.writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  coreerrors.KindOf(err).String(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write response", slog.Any("error", err))
	}
}

package server

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	coreerrors "depinledger/core/errors"
	"depinledger/core/license"
	"depinledger/native/registry"
	"depinledger/native/rewards"
	"depinledger/native/settlement"
	"depinledger/native/vesting"
)

const (
	maxRequestBytes = 64 << 10
	// RequestWindow bounds how far issuedAt may drift from the server clock.
	RequestWindow = 5 * time.Minute
)

var (
	errBadSignature = coreerrors.New(coreerrors.KindAuthorization, "server: signature does not match signer")
	errStale        = coreerrors.New(coreerrors.KindPrecondition, "server: request issuedAt outside the accepted window")
	errReplayed     = coreerrors.New(coreerrors.KindStateConflict, "server: request already processed")
	errOperation    = coreerrors.New(coreerrors.KindPrecondition, "server: unknown operation")
)

// Operator is the write surface of the settlement engine.
type Operator interface {
	InitNetwork(signer solana.PublicKey, funding uint64) error
	FundTreasury(signer solana.PublicKey, amount uint64) error
	AdvancePeriod(signer solana.PublicKey, p uint16, checkerCount uint32) error
	ActivateChecker(ctx context.Context, signer, tree solana.PublicKey, lic license.Context, delegate solana.PublicKey) (*registry.Participant, error)
	ActivateWorker(ctx context.Context, signer, tree solana.PublicKey, lic license.Context, delegate solana.PublicKey, uri string) (*registry.Participant, error)
	UpdateWorkerURI(ctx context.Context, signer, tree solana.PublicKey, lic license.Context, uri string) (*registry.Participant, error)
	SuspendChecker(signer, license, owner solana.PublicKey) error
	ResumeChecker(signer, license, owner solana.PublicKey) error
	SuspendWorker(signer, license, owner solana.PublicKey) error
	ResumeWorker(signer, license, owner solana.PublicKey) error
	SuspendLicense(signer solana.PublicKey, role registry.Role, lic solana.PublicKey) error
	ResumeLicense(signer solana.PublicKey, role registry.Role, lic solana.PublicKey) error
	SubmitWorkerProof(ctx context.Context, signer, tree solana.PublicKey, lic license.Context, sub settlement.Submission) (*rewards.Settlement, error)
	PayoutCheckerRewards(ctx context.Context, signer, tree solana.PublicKey, lic license.Context) (*settlement.Payout, error)
	Unlock(signer, addr solana.PublicKey) (*vesting.Release, error)
}

var _ Operator = (*settlement.Engine)(nil)

// Envelope carries a request signed by its signer. Payload is signed
// byte-for-byte as it appears in the body.
type Envelope struct {
	Signer    string          `json:"signer"`
	Signature string          `json:"signature"`
	Payload   json.RawMessage `json:"payload"`
}

// Request is the signed payload. Fields beyond Operation and IssuedAt are
// read only by the operations that need them.
type Request struct {
	Operation    string          `json:"operation"`
	IssuedAt     int64           `json:"issuedAt"`
	Tree         string          `json:"tree,omitempty"`
	License      *LicenseJSON    `json:"license,omitempty"`
	Delegate     string          `json:"delegate,omitempty"`
	URI          string          `json:"uri,omitempty"`
	Period       uint16          `json:"period,omitempty"`
	CheckerCount uint32          `json:"checkerCount,omitempty"`
	Amount       uint64          `json:"amount,omitempty"`
	Role         string          `json:"role,omitempty"`
	Target       string          `json:"target,omitempty"`
	Owner        string          `json:"owner,omitempty"`
	Lock         string          `json:"lock,omitempty"`
	Submission   *SubmissionJSON `json:"submission,omitempty"`
}

// LicenseJSON is the wire form of license.Context. Keys and hashes are base58.
type LicenseJSON struct {
	Owner          string `json:"owner"`
	Delegate       string `json:"delegate"`
	Nonce          uint64 `json:"nonce"`
	Index          uint32 `json:"index"`
	Root           string `json:"root"`
	DataHash       string `json:"dataHash,omitempty"`
	CreatorHash    string `json:"creatorHash,omitempty"`
	CollectionHash string `json:"collectionHash,omitempty"`
	AssetDataHash  string `json:"assetDataHash,omitempty"`
	Flags          uint8  `json:"flags,omitempty"`
}

// SubmissionJSON is the wire form of settlement.Submission. Checkers holds
// the bitmap words as hex strings, lowest word first.
type SubmissionJSON struct {
	Period    uint16   `json:"period"`
	ProofRoot string   `json:"proofRoot"`
	Checkers  []string `json:"checkers"`
	Uptime    uint32   `json:"uptime"`
	Latency   uint32   `json:"latency"`
}

// replayGuard remembers accepted signatures until they fall out of the
// request window.
type replayGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func (g *replayGuard) admit(sig []byte, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen == nil {
		g.seen = make(map[string]time.Time)
	}
	for key, at := range g.seen {
		if now.Sub(at) > 2*RequestWindow {
			delete(g.seen, key)
		}
	}
	key := string(sig)
	if _, ok := g.seen[key]; ok {
		return false
	}
	g.seen[key] = now
	return true
}

// PostRequest verifies and applies one signed request.
func (s *Server) PostRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		http.Error(w, "invalid envelope", http.StatusBadRequest)
		return
	}
	signer, err := solana.PublicKeyFromBase58(strings.TrimSpace(env.Signer))
	if err != nil {
		http.Error(w, "invalid signer", http.StatusBadRequest)
		return
	}
	sig, err := base58.Decode(strings.TrimSpace(env.Signature))
	if err != nil || len(sig) != ed25519.SignatureSize {
		http.Error(w, "invalid signature encoding", http.StatusBadRequest)
		return
	}
	if !ed25519.Verify(ed25519.PublicKey(signer[:]), env.Payload, sig) {
		s.writeError(w, r, errBadSignature)
		return
	}
	var req Request
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	now := s.clock.Now()
	issued := time.Unix(req.IssuedAt, 0)
	if issued.Before(now.Add(-RequestWindow)) || issued.After(now.Add(RequestWindow)) {
		s.writeError(w, r, errStale)
		return
	}
	if !s.replays.admit(sig, now) {
		s.writeError(w, r, errReplayed)
		return
	}

	result, err := s.dispatch(r.Context(), signer, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result == nil {
		result = map[string]interface{}{}
	}
	result["operation"] = req.Operation
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) dispatch(ctx context.Context, signer solana.PublicKey, req *Request) (map[string]interface{}, error) {
	op := s.operator
	switch req.Operation {
	case "init_network":
		return nil, op.InitNetwork(signer, req.Amount)
	case "fund_treasury":
		return nil, op.FundTreasury(signer, req.Amount)
	case "advance_period":
		return nil, op.AdvancePeriod(signer, req.Period, req.CheckerCount)
	case "activate_checker", "activate_worker", "update_worker_uri":
		tree, lic, err := req.licenseArgs()
		if err != nil {
			return nil, err
		}
		var p *registry.Participant
		switch req.Operation {
		case "activate_checker":
			delegate, err := parseKey("delegate", req.Delegate)
			if err != nil {
				return nil, err
			}
			p, err = op.ActivateChecker(ctx, signer, tree, lic, delegate)
			if err != nil {
				return nil, err
			}
		case "activate_worker":
			delegate, err := parseKey("delegate", req.Delegate)
			if err != nil {
				return nil, err
			}
			p, err = op.ActivateWorker(ctx, signer, tree, lic, delegate, req.URI)
			if err != nil {
				return nil, err
			}
		default:
			p, err = op.UpdateWorkerURI(ctx, signer, tree, lic, req.URI)
			if err != nil {
				return nil, err
			}
		}
		return participantJSON(p), nil
	case "suspend_checker", "resume_checker", "suspend_worker", "resume_worker":
		target, err := parseKey("target", req.Target)
		if err != nil {
			return nil, err
		}
		owner, err := parseKey("owner", req.Owner)
		if err != nil {
			return nil, err
		}
		switch req.Operation {
		case "suspend_checker":
			return nil, op.SuspendChecker(signer, target, owner)
		case "resume_checker":
			return nil, op.ResumeChecker(signer, target, owner)
		case "suspend_worker":
			return nil, op.SuspendWorker(signer, target, owner)
		default:
			return nil, op.ResumeWorker(signer, target, owner)
		}
	case "suspend_license", "resume_license":
		role, err := parseRole(req.Role)
		if err != nil {
			return nil, err
		}
		target, err := parseKey("target", req.Target)
		if err != nil {
			return nil, err
		}
		if req.Operation == "suspend_license" {
			return nil, op.SuspendLicense(signer, role, target)
		}
		return nil, op.ResumeLicense(signer, role, target)
	case "submit_worker_proof":
		tree, lic, err := req.licenseArgs()
		if err != nil {
			return nil, err
		}
		sub, err := req.Submission.decode()
		if err != nil {
			return nil, err
		}
		settled, err := op.SubmitWorkerProof(ctx, signer, tree, lic, sub)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"period":   settled.Period,
			"reward":   settled.Reward,
			"credited": settled.Credited,
			"total":    strconv.FormatUint(settled.Total(), 10),
		}, nil
	case "payout_checker_rewards":
		tree, lic, err := req.licenseArgs()
		if err != nil {
			return nil, err
		}
		payout, err := op.PayoutCheckerRewards(ctx, signer, tree, lic)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"license":      payout.License.String(),
			"index":        payout.Index,
			"amount":       strconv.FormatUint(payout.Amount, 10),
			"lock":         payout.Grant.Address.String(),
			"totalLocked":  strconv.FormatUint(payout.Grant.Lock.TotalLocked, 10),
			"unlockPeriod": payout.Grant.Lock.UnlockPeriod,
		}, nil
	case "unlock":
		addr, err := parseKey("lock", req.Lock)
		if err != nil {
			return nil, err
		}
		release, err := op.Unlock(signer, addr)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"lock":       release.Address.String(),
			"penaltyBps": release.PenaltyBps,
			"penalty":    strconv.FormatUint(release.Penalty, 10),
			"payout":     strconv.FormatUint(release.Payout, 10),
			"unlockedAt": release.UnlockedAt,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errOperation, req.Operation)
	}
}

func participantJSON(p *registry.Participant) map[string]interface{} {
	return map[string]interface{}{
		"license":      p.License.String(),
		"owner":        p.Owner.String(),
		"delegate":     p.Delegate.String(),
		"discoveryUri": p.DiscoveryURI,
		"status":       p.Status().String(),
	}
}

func (req *Request) licenseArgs() (solana.PublicKey, license.Context, error) {
	tree, err := parseKey("tree", req.Tree)
	if err != nil {
		return solana.PublicKey{}, license.Context{}, err
	}
	if req.License == nil {
		return solana.PublicKey{}, license.Context{}, invalidField("license", errors.New("missing"))
	}
	lic, err := req.License.decode()
	if err != nil {
		return solana.PublicKey{}, license.Context{}, err
	}
	return tree, lic, nil
}

func (l *LicenseJSON) decode() (license.Context, error) {
	owner, err := parseKey("license.owner", l.Owner)
	if err != nil {
		return license.Context{}, err
	}
	delegate, err := parseKey("license.delegate", l.Delegate)
	if err != nil {
		return license.Context{}, err
	}
	lic := license.Context{Owner: owner, Delegate: delegate, Nonce: l.Nonce, Index: l.Index, Flags: l.Flags}
	hashes := []struct {
		name string
		raw  string
		dst  *[32]byte
	}{
		{"license.root", l.Root, &lic.Root},
		{"license.dataHash", l.DataHash, &lic.DataHash},
		{"license.creatorHash", l.CreatorHash, &lic.CreatorHash},
		{"license.collectionHash", l.CollectionHash, &lic.CollectionHash},
		{"license.assetDataHash", l.AssetDataHash, &lic.AssetDataHash},
	}
	for _, h := range hashes {
		if err := parseHash(h.name, h.raw, h.dst); err != nil {
			return license.Context{}, err
		}
	}
	return lic, nil
}

func (s *SubmissionJSON) decode() (settlement.Submission, error) {
	if s == nil {
		return settlement.Submission{}, invalidField("submission", errors.New("missing"))
	}
	if len(s.Checkers) > rewards.BitmapWords {
		return settlement.Submission{}, invalidField("submission.checkers", fmt.Errorf("%d words, at most %d", len(s.Checkers), rewards.BitmapWords))
	}
	sub := settlement.Submission{Period: s.Period, Uptime: s.Uptime, Latency: s.Latency}
	if err := parseHash("submission.proofRoot", s.ProofRoot, &sub.ProofRoot); err != nil {
		return settlement.Submission{}, err
	}
	for i, word := range s.Checkers {
		v, err := strconv.ParseUint(strings.TrimPrefix(word, "0x"), 16, 64)
		if err != nil {
			return settlement.Submission{}, invalidField("submission.checkers", err)
		}
		sub.Checkers[i] = v
	}
	return sub, nil
}

func invalidField(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", errInvalidArgument, name, err)
}

var errInvalidArgument = coreerrors.New(coreerrors.KindPrecondition, "server: invalid argument")

func parseKey(name, raw string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(raw))
	if err != nil {
		return solana.PublicKey{}, invalidField(name, err)
	}
	return key, nil
}

// parseHash decodes a base58 32-byte value. Empty leaves dst zeroed.
func parseHash(name, raw string, dst *[32]byte) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	decoded, err := base58.Decode(raw)
	if err != nil {
		return invalidField(name, err)
	}
	if len(decoded) != 32 {
		return invalidField(name, fmt.Errorf("%d bytes", len(decoded)))
	}
	copy(dst[:], decoded)
	return nil
}

func parseRole(raw string) (registry.Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "checker":
		return registry.RoleChecker, nil
	case "worker":
		return registry.RoleWorker, nil
	default:
		return 0, invalidField("role", fmt.Errorf("%q", raw))
	}
}

// SignRequest builds an envelope for req signed by key. Clients and tests
// use it to produce the exact bytes the server verifies.
func SignRequest(key solana.PrivateKey, req Request) (*Envelope, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	sig := ed25519.Sign(ed25519.PrivateKey(key), payload)
	return &Envelope{
		Signer:    key.PublicKey().String(),
		Signature: base58.Encode(sig),
		Payload:   payload,
	}, nil
}

// Package verifier calls the external service that checks a license leaf
// against the published merkle tree.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"golang.org/x/time/rate"

	"depinledger/core/license"
)

const (
	verifyPath = "/v1/verify"

	defaultTimeout = 5 * time.Second
	maxErrorBody   = 4 << 10
)

var _ license.Verifier = (*Client)(nil)

// Request is the body posted to the verifier.
type Request struct {
	Tree  string `json:"tree"`
	Root  string `json:"root"`
	Leaf  string `json:"leaf"`
	Index uint32 `json:"index"`
}

// Response is the verifier's answer.
type Response struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Client implements license.Verifier over HTTP.
type Client struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// Option mutates client configuration.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithRateLimit bounds outgoing requests. A non-positive rps disables the
// limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client = &http.Client{Timeout: timeout}
		}
	}
}

// New constructs a client for the verifier at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("verifier: endpoint required")
	}
	c := &Client{
		endpoint: baseURL + verifyPath,
		client:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// VerifyLeaf asks the verifier whether leaf sits at index under root.
func (c *Client) VerifyLeaf(ctx context.Context, tree solana.PublicKey, root, leaf [32]byte, index uint32) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", license.ErrVerifierFailed, err)
		}
	}
	body, err := json.Marshal(Request{
		Tree:  tree.String(),
		Root:  base58.Encode(root[:]),
		Leaf:  base58.Encode(leaf[:]),
		Index: index,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", license.ErrVerifierFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", license.ErrVerifierFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", license.ErrVerifierFailed, resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status %d: %s", license.ErrInvalidProof, resp.StatusCode, strings.TrimSpace(string(msg)))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: unexpected status %d", license.ErrVerifierFailed, resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&out); err != nil {
		return fmt.Errorf("%w: decode response: %v", license.ErrVerifierFailed, err)
	}
	if !out.Valid {
		if out.Reason != "" {
			return fmt.Errorf("%w: %s", license.ErrInvalidProof, out.Reason)
		}
		return license.ErrInvalidProof
	}
	return nil
}

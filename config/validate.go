package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Keys holds the parsed public keys named by the configuration.
type Keys struct {
	ProgramID    solana.PublicKey
	CheckerTree  solana.PublicKey
	WorkerTree   solana.PublicKey
	LicenseAdmin solana.PublicKey
}

// Validate rejects malformed keys and settings. It returns the parsed keys so
// callers do not decode them twice.
func (c *Config) Validate() (Keys, error) {
	var keys Keys
	fields := []struct {
		name  string
		value string
		dst   *solana.PublicKey
	}{
		{"ProgramID", c.ProgramID, &keys.ProgramID},
		{"CheckerTree", c.CheckerTree, &keys.CheckerTree},
		{"WorkerTree", c.WorkerTree, &keys.WorkerTree},
		{"LicenseAdmin", c.LicenseAdmin, &keys.LicenseAdmin},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(f.value)
		if raw == "" {
			return Keys{}, fmt.Errorf("config: %s is required", f.name)
		}
		key, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return Keys{}, fmt.Errorf("config: invalid %s: %w", f.name, err)
		}
		*f.dst = key
	}
	if keys.CheckerTree.Equals(keys.WorkerTree) {
		return Keys{}, fmt.Errorf("config: CheckerTree and WorkerTree must differ")
	}
	if c.CheckerRewardsLockDays == 0 {
		return Keys{}, fmt.Errorf("config: CheckerRewardsLockDays must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.Journal.Driver)) {
	case "sqlite", "postgres":
	default:
		return Keys{}, fmt.Errorf("config: unsupported journal driver %q", c.Journal.Driver)
	}
	if raw := strings.TrimSpace(c.Verifier.URL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return Keys{}, fmt.Errorf("config: invalid verifier URL %q", c.Verifier.URL)
		}
	}
	if raw := strings.TrimSpace(c.Webhook.URL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			return Keys{}, fmt.Errorf("config: invalid webhook URL %q", c.Webhook.URL)
		}
		if len(c.Webhook.Secret()) == 0 {
			return Keys{}, fmt.Errorf("config: webhook requires a secret in $%s", c.Webhook.SecretEnv)
		}
	}
	return keys, nil
}

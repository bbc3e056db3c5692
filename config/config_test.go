package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "depin.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	require.EqualValues(t, DefaultCheckerRewardsLockDays, cfg.CheckerRewardsLockDays)
	require.Equal(t, DefaultJournalDriver, cfg.Journal.Driver)
	require.Equal(t, "file:"+filepath.Join(filepath.Dir(path), "journal.db"), cfg.Journal.DSN)
	require.Equal(t, 5*time.Second, cfg.Verifier.Timeout())

	_, err = os.Stat(path)
	require.NoError(t, err)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadParsesSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depin.toml")
	contents := `ListenAddress = "127.0.0.1:9100"
DataDir = "/var/lib/depin"
CheckerRewardsLockDays = 180

[journal]
Driver = "postgres"
DSN = "postgres://ledger@db/journal"

[verifier]
URL = "https://verifier.internal"
RequestsPerSecond = 2.5
TimeoutMs = 1500

[log]
Env = "prod"
File = "/var/log/depind.log"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9100", cfg.ListenAddress)
	require.Equal(t, "/var/lib/depin", cfg.DataDir)
	require.EqualValues(t, 180, cfg.CheckerRewardsLockDays)
	require.Equal(t, "postgres", cfg.Journal.Driver)
	require.Equal(t, 2.5, cfg.Verifier.RequestsPerSecond)
	require.Equal(t, 2, cfg.Verifier.Burst)
	require.Equal(t, 1500*time.Millisecond, cfg.Verifier.Timeout())
	require.Equal(t, "prod", cfg.Log.Env)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		ProgramID:              solana.NewWallet().PublicKey().String(),
		CheckerTree:            solana.NewWallet().PublicKey().String(),
		WorkerTree:             solana.NewWallet().PublicKey().String(),
		LicenseAdmin:           solana.NewWallet().PublicKey().String(),
		CheckerRewardsLockDays: 365,
		Journal:                Journal{Driver: "sqlite", DSN: "file::memory:"},
		Verifier:               Verifier{URL: "http://127.0.0.1:8899"},
	}
	return cfg
}

func TestWebhookSecretFromEnv(t *testing.T) {
	t.Setenv("DEPIN_TEST_WEBHOOK_SECRET", " s3cret ")
	cfg := validConfig(t)
	cfg.Webhook = Webhook{URL: "https://hooks.example/depin", SecretEnv: "DEPIN_TEST_WEBHOOK_SECRET"}
	_, err := cfg.Validate()
	require.NoError(t, err)
	require.Equal(t, []byte("s3cret"), cfg.Webhook.Secret())
}

func TestValidate(t *testing.T) {
	cfg := validConfig(t)
	keys, err := cfg.Validate()
	require.NoError(t, err)
	require.Equal(t, cfg.ProgramID, keys.ProgramID.String())
	require.Equal(t, cfg.LicenseAdmin, keys.LicenseAdmin.String())

	cases := map[string]func(*Config){
		"missing program":  func(c *Config) { c.ProgramID = "" },
		"bad admin":        func(c *Config) { c.LicenseAdmin = "not-base58-0OIl" },
		"same trees":       func(c *Config) { c.WorkerTree = c.CheckerTree },
		"zero lock days":   func(c *Config) { c.CheckerRewardsLockDays = 0 },
		"unknown driver":   func(c *Config) { c.Journal.Driver = "mysql" },
		"bad verifier url": func(c *Config) { c.Verifier.URL = "ftp://verifier" },
		"webhook secret": func(c *Config) {
			c.Webhook = Webhook{URL: "https://hooks.example", SecretEnv: "DEPIN_TEST_UNSET_SECRET"}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig(t)
			mutate(cfg)
			_, err := cfg.Validate()
			require.Error(t, err)
		})
	}
}

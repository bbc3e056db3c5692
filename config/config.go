package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultListenAddress          = ":8087"
	DefaultDataDir                = "./depin-data"
	DefaultCheckerRewardsLockDays = 365
	DefaultJournalDriver          = "sqlite"
	DefaultVerifierRPS            = 20
	DefaultVerifierTimeoutMs      = 5000
)

// Journal selects the relational store that receives the event journal.
type Journal struct {
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

// Verifier points at the external compressed-NFT proof verifier.
type Verifier struct {
	URL               string  `toml:"URL"`
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
	TimeoutMs         int     `toml:"TimeoutMs"`
}

// Timeout converts TimeoutMs into a duration, falling back to the default.
func (v Verifier) Timeout() time.Duration {
	if v.TimeoutMs <= 0 {
		return DefaultVerifierTimeoutMs * time.Millisecond
	}
	return time.Duration(v.TimeoutMs) * time.Millisecond
}

// Webhook forwards ledger events to an operator endpoint. Deliveries are
// disabled when URL is empty.
type Webhook struct {
	URL        string   `toml:"URL"`
	SecretEnv  string   `toml:"SecretEnv"`
	EventTypes []string `toml:"EventTypes"`
}

// Secret reads the signing secret from the configured environment variable.
func (w Webhook) Secret() []byte {
	name := strings.TrimSpace(w.SecretEnv)
	if name == "" {
		return nil
	}
	return []byte(strings.TrimSpace(os.Getenv(name)))
}

type Log struct {
	Env        string `toml:"Env"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

type Config struct {
	ListenAddress          string   `toml:"ListenAddress"`
	DataDir                string   `toml:"DataDir"`
	ProgramID              string   `toml:"ProgramID"`
	CheckerTree            string   `toml:"CheckerTree"`
	WorkerTree             string   `toml:"WorkerTree"`
	LicenseAdmin           string   `toml:"LicenseAdmin"`
	CheckerRewardsLockDays uint16   `toml:"CheckerRewardsLockDays"`
	Journal                Journal  `toml:"journal"`
	Verifier               Verifier `toml:"verifier"`
	Webhook                Webhook  `toml:"webhook"`
	Log                    Log      `toml:"log"`
}

// Load loads the configuration from the given path. A missing file is
// created with defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults(path)
	return cfg, nil
}

func (c *Config) applyDefaults(path string) {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = DefaultListenAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = DefaultDataDir
	}
	if c.CheckerRewardsLockDays == 0 {
		c.CheckerRewardsLockDays = DefaultCheckerRewardsLockDays
	}
	if strings.TrimSpace(c.Journal.Driver) == "" {
		c.Journal.Driver = DefaultJournalDriver
	}
	if strings.TrimSpace(c.Journal.DSN) == "" {
		c.Journal.DSN = defaultJournalDSN(path)
	}
	if c.Verifier.RequestsPerSecond <= 0 {
		c.Verifier.RequestsPerSecond = DefaultVerifierRPS
	}
	if c.Verifier.Burst <= 0 {
		c.Verifier.Burst = int(c.Verifier.RequestsPerSecond)
		if c.Verifier.Burst < 1 {
			c.Verifier.Burst = 1
		}
	}
	if c.Verifier.TimeoutMs <= 0 {
		c.Verifier.TimeoutMs = DefaultVerifierTimeoutMs
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:          DefaultListenAddress,
		DataDir:                DefaultDataDir,
		CheckerRewardsLockDays: DefaultCheckerRewardsLockDays,
		Journal: Journal{
			Driver: DefaultJournalDriver,
		},
		Verifier: Verifier{
			URL:               "http://127.0.0.1:8899",
			RequestsPerSecond: DefaultVerifierRPS,
		},
	}
	cfg.applyDefaults(path)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultJournalDSN(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return "file:" + filepath.Join(dir, "journal.db")
}

package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// AuthMode selects how the notification API authenticates the event source.
type AuthMode string

const (
	// AuthModeToken uses a static bearer token compared in constant time.
	AuthModeToken AuthMode = "token"
	// AuthModeJWT verifies HMAC-signed JWTs with issuer/audience checks.
	AuthModeJWT AuthMode = "jwt"
)

// Config carries the daemon settings loaded from TOML.
type Config struct {
	ListenAddress     string  `toml:"ListenAddress"`
	DataDir           string  `toml:"DataDir"`
	SourceAddress     string  `toml:"SourceAddress"`
	AuthMode          string  `toml:"AuthMode"`
	AuthTokenEnv      string  `toml:"AuthTokenEnv"`
	JWTSecretEnv      string  `toml:"JWTSecretEnv"`
	JWTIssuer         string  `toml:"JWTIssuer"`
	JWTAudience       string  `toml:"JWTAudience"`
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	RequestBurst      int     `toml:"RequestBurst"`
	MetricsEnabled    bool    `toml:"MetricsEnabled"`
	TracingEnabled    bool    `toml:"TracingEnabled"`
	OTLPEndpoint      string  `toml:"OTLPEndpoint"`
	OTLPInsecure      bool    `toml:"OTLPInsecure"`
	OTLPHeaders       string  `toml:"OTLPHeaders"`
	LogFile           string  `toml:"LogFile"`
	LogMaxSizeMB      int     `toml:"LogMaxSizeMB"`
	LogMaxBackups     int     `toml:"LogMaxBackups"`
}

// Load reads the configuration from the given path, creating a commented
// default file when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8661"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./data"
	}
	if strings.TrimSpace(c.AuthMode) == "" {
		c.AuthMode = string(AuthModeToken)
	}
	if strings.TrimSpace(c.AuthTokenEnv) == "" {
		c.AuthTokenEnv = "LIQMINE_SOURCE_TOKEN"
	}
	if strings.TrimSpace(c.JWTSecretEnv) == "" {
		c.JWTSecretEnv = "LIQMINE_JWT_SECRET"
	}
	if strings.TrimSpace(c.OTLPEndpoint) == "" {
		c.OTLPEndpoint = "localhost:4318"
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 600
	}
	if c.RequestBurst <= 0 {
		c.RequestBurst = 20
	}
	if c.LogMaxSizeMB <= 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups < 0 {
		c.LogMaxBackups = 0
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	switch AuthMode(strings.TrimSpace(c.AuthMode)) {
	case AuthModeToken, AuthModeJWT:
	default:
		return fmt.Errorf("config: unsupported AuthMode %q", c.AuthMode)
	}
	if _, err := c.Source(); err != nil {
		return err
	}
	return nil
}

// Source decodes the configured event-source address.
func (c *Config) Source() ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(c.SourceAddress), "0x")
	if trimmed == "" {
		return addr, fmt.Errorf("config: SourceAddress is required")
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != len(addr) {
		return addr, fmt.Errorf("config: SourceAddress must be a 20-byte hex address")
	}
	copy(addr[:], raw)
	return addr, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	// The generated file still needs a SourceAddress before the daemon can
	// serve notifications; return it unvalidated so callers can report that.
	return cfg, nil
}

package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Storage    StorageConfig
	Backend    BackendConfig
	Completion CompletionConfig
	Cache      CacheConfig
	Session    SessionConfig
	Sheets     SheetsConfig
	Backup     BackupConfig
}

type ServerConfig struct {
	Port       int
	AdminToken string
}

type LogConfig struct {
	Level string
}

type StorageConfig struct {
	DataDir   string
	Retention time.Duration
}

// BackendConfig points at the remote knowledge service.
type BackendConfig struct {
	URL                  string
	ChatTimeout          time.Duration
	SearchTimeout        time.Duration
	SearchMaxResults     int
	SearchScoreThreshold float64
}

// CompletionConfig configures the OpenAI-compatible fallback.
type CompletionConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type CacheConfig struct {
	TTL time.Duration
}

type SessionConfig struct {
	TTL time.Duration
}

// SheetsConfig holds the contact spreadsheet location and service account.
// CredentialsFile, when set, is a service-account JSON key file whose fields
// fill in anything not given individually.
type SheetsConfig struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	ClientEmail     string
	PrivateKey      string
}

type BackupConfig struct {
	Path string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			DataDir:   dataDir,
			Retention: 30 * 24 * time.Hour,
		},
		Backend: BackendConfig{
			URL:                  "http://localhost:8000",
			ChatTimeout:          20 * time.Second,
			SearchTimeout:        15 * time.Second,
			SearchMaxResults:     2,
			SearchScoreThreshold: 0.6,
		},
		Completion: CompletionConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   300,
			Timeout:     10 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Session: SessionConfig{
			TTL: 30 * time.Minute,
		},
		Sheets: SheetsConfig{
			SheetName: "Contact Submissions",
		},
		Backup: BackupConfig{
			Path: defaultBackupPath(dataDir),
		},
	}
}

// Load reads configuration from the JSON config file, environment variables
// and the secret store.
//
// The config file is <user config dir>/arvochat/config.json, or
// $ARVOCHAT_CONFIG_DIR/config.json when set. Secrets live in macOS Keychain
// on darwin and in secrets.json next to the config file elsewhere.
//
// Environment variables (ARVOCHAT_*, plus the legacy OPENAI_API_KEY,
// PYTHON_API_URL and GOOGLE_* names) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(defaultBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

const keychainService = "arvochat"

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	for _, s := range specs {
		if !s.secret || s.extract(cfg).(string) != "" {
			continue
		}
		if v, err := kc.Get(keychainService, s.account()); err == nil && v != "" {
			s.apply(&cfg, v)
		}
	}

	if cfg.Backend.URL == "" {
		return Config{}, fmt.Errorf("missing required config: backend.url. Set it via environment variable ARVOCHAT_BACKEND_URL")
	}
	cfg.Backend.URL = strings.TrimRight(cfg.Backend.URL, "/")
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	return cfg, nil
}

// RequireAdminToken reports a descriptive error when no admin token is
// configured. Serving without one is refused.
func (c Config) RequireAdminToken() error {
	if c.Server.AdminToken != "" {
		return nil
	}
	msg := "missing required config: admin token. " +
		"Set it via environment variable ARVOCHAT_ADMIN_TOKEN" +
		secretHint("server_admin_token")
	return fmt.Errorf("%s", msg)
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

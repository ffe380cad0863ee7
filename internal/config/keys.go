package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	aliases []string // older variable names, consulted when env is unset
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

// account is the secret-store account name for a secret key.
func (s keySpec) account() string {
	return strings.ReplaceAll(s.key, ".", "_")
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "ARVOCHAT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.admin_token", typ: kString, env: "ARVOCHAT_ADMIN_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.AdminToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AdminToken },
	},
	{
		key: "log.level", typ: kString, env: "ARVOCHAT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "storage.data_dir", typ: kString, env: "ARVOCHAT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.retention", typ: kDuration, env: "ARVOCHAT_STORAGE_RETENTION",
		apply:   func(cfg *Config, v any) { cfg.Storage.Retention = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Storage.Retention },
	},
	{
		key: "backend.url", typ: kString, env: "ARVOCHAT_BACKEND_URL",
		aliases: []string{"PYTHON_API_URL", "PYTHON_BACKEND_URL"},
		apply:   func(cfg *Config, v any) { cfg.Backend.URL = v.(string) },
		extract: func(cfg Config) any { return cfg.Backend.URL },
	},
	{
		key: "backend.chat_timeout", typ: kDuration, env: "ARVOCHAT_BACKEND_CHAT_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Backend.ChatTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Backend.ChatTimeout },
	},
	{
		key: "backend.search_timeout", typ: kDuration, env: "ARVOCHAT_BACKEND_SEARCH_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Backend.SearchTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Backend.SearchTimeout },
	},
	{
		key: "backend.search_max_results", typ: kInt, env: "ARVOCHAT_BACKEND_SEARCH_MAX_RESULTS",
		apply:   func(cfg *Config, v any) { cfg.Backend.SearchMaxResults = v.(int) },
		extract: func(cfg Config) any { return cfg.Backend.SearchMaxResults },
	},
	{
		key: "backend.search_score_threshold", typ: kFloat, env: "ARVOCHAT_BACKEND_SEARCH_SCORE_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Backend.SearchScoreThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Backend.SearchScoreThreshold },
	},
	{
		key: "completion.base_url", typ: kString, env: "ARVOCHAT_COMPLETION_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Completion.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.BaseURL },
	},
	{
		key: "completion.model", typ: kString, env: "ARVOCHAT_COMPLETION_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Completion.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.Model },
	},
	{
		key: "completion.api_key", typ: kString, env: "ARVOCHAT_COMPLETION_API_KEY",
		aliases: []string{"OPENAI_API_KEY"},
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Completion.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.APIKey },
	},
	{
		key: "completion.temperature", typ: kFloat, env: "ARVOCHAT_COMPLETION_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Completion.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Completion.Temperature },
	},
	{
		key: "completion.max_tokens", typ: kInt, env: "ARVOCHAT_COMPLETION_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Completion.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Completion.MaxTokens },
	},
	{
		key: "completion.timeout", typ: kDuration, env: "ARVOCHAT_COMPLETION_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Completion.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Completion.Timeout },
	},
	{
		key: "cache.ttl", typ: kDuration, env: "ARVOCHAT_CACHE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Cache.TTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Cache.TTL },
	},
	{
		key: "session.ttl", typ: kDuration, env: "ARVOCHAT_SESSION_TTL",
		apply:   func(cfg *Config, v any) { cfg.Session.TTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Session.TTL },
	},
	{
		key: "sheets.spreadsheet_id", typ: kString, env: "ARVOCHAT_SHEETS_SPREADSHEET_ID",
		aliases: []string{"GOOGLE_SPREADSHEET_ID"},
		apply:   func(cfg *Config, v any) { cfg.Sheets.SpreadsheetID = v.(string) },
		extract: func(cfg Config) any { return cfg.Sheets.SpreadsheetID },
	},
	{
		key: "sheets.sheet_name", typ: kString, env: "ARVOCHAT_SHEETS_SHEET_NAME",
		apply:   func(cfg *Config, v any) { cfg.Sheets.SheetName = v.(string) },
		extract: func(cfg Config) any { return cfg.Sheets.SheetName },
	},
	{
		key: "sheets.credentials_file", typ: kString, env: "ARVOCHAT_SHEETS_CREDENTIALS_FILE",
		aliases: []string{"GOOGLE_APPLICATION_CREDENTIALS"},
		apply:   func(cfg *Config, v any) { cfg.Sheets.CredentialsFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Sheets.CredentialsFile },
	},
	{
		key: "sheets.client_email", typ: kString, env: "ARVOCHAT_SHEETS_CLIENT_EMAIL",
		aliases: []string{"GOOGLE_CLIENT_EMAIL"},
		apply:   func(cfg *Config, v any) { cfg.Sheets.ClientEmail = v.(string) },
		extract: func(cfg Config) any { return cfg.Sheets.ClientEmail },
	},
	{
		key: "sheets.private_key", typ: kString, env: "ARVOCHAT_SHEETS_PRIVATE_KEY",
		aliases: []string{"GOOGLE_PRIVATE_KEY"},
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Sheets.PrivateKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Sheets.PrivateKey },
	},
	{
		key: "backup.path", typ: kString, env: "ARVOCHAT_BACKUP_PATH",
		apply:   func(cfg *Config, v any) { cfg.Backup.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Backup.Path },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parse converts raw text to the key's type.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		name, raw := s.env, os.Getenv(s.env)
		for _, alias := range s.aliases {
			if raw != "" {
				break
			}
			name, raw = alias, os.Getenv(alias)
		}
		if raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", name, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}

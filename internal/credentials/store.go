// Package credentials is the runtime credential store. It is seeded from
// configuration at start-up, updated by admin endpoints, and lives only in
// memory; a restart reverts to the configured values.
package credentials

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// ProviderOpenAI is the only completion provider the admin console sets.
const ProviderOpenAI = "openai"

// Google holds service-account credentials for the Sheets sink. Field names
// follow the admin console's form.
type Google struct {
	SpreadsheetID string `json:"GOOGLE_SPREADSHEET_ID,omitempty"`
	ProjectID     string `json:"GOOGLE_PROJECT_ID,omitempty"`
	PrivateKeyID  string `json:"GOOGLE_PRIVATE_KEY_ID,omitempty"`
	PrivateKey    string `json:"GOOGLE_PRIVATE_KEY,omitempty"`
	ClientEmail   string `json:"GOOGLE_CLIENT_EMAIL,omitempty"`
	ClientID      string `json:"GOOGLE_CLIENT_ID,omitempty"`
}

// Complete reports whether the fields needed to write to a sheet are set.
func (g Google) Complete() bool {
	return g.SpreadsheetID != "" && g.ClientEmail != "" && g.PrivateKey != ""
}

// merge overlays the non-empty fields of o onto g.
func (g Google) merge(o Google) Google {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&g.SpreadsheetID, o.SpreadsheetID)
	set(&g.ProjectID, o.ProjectID)
	set(&g.PrivateKeyID, o.PrivateKeyID)
	set(&g.PrivateKey, o.PrivateKey)
	set(&g.ClientEmail, o.ClientEmail)
	set(&g.ClientID, o.ClientID)
	return g
}

type serviceAccount struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id,omitempty"`
	PrivateKeyID            string `json:"private_key_id,omitempty"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id,omitempty"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
}

// ServiceAccountJSON renders the credentials as a service-account key file.
// Escaped "\n" sequences in the private key are turned into newlines.
func (g Google) ServiceAccountJSON() ([]byte, error) {
	if g.ClientEmail == "" || g.PrivateKey == "" {
		return nil, fmt.Errorf("service account needs client email and private key")
	}
	return json.Marshal(serviceAccount{
		Type:                    "service_account",
		ProjectID:               g.ProjectID,
		PrivateKeyID:            g.PrivateKeyID,
		PrivateKey:              strings.ReplaceAll(g.PrivateKey, `\n`, "\n"),
		ClientEmail:             g.ClientEmail,
		ClientID:                g.ClientID,
		AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
		TokenURI:                "https://oauth2.googleapis.com/token",
		AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
		ClientX509CertURL:       "https://www.googleapis.com/robot/v1/metadata/x509/" + g.ClientEmail,
	})
}

// ParseServiceAccount reads a downloaded service-account key file.
func ParseServiceAccount(data []byte) (Google, error) {
	var sa serviceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return Google{}, fmt.Errorf("parsing service account: %w", err)
	}
	if sa.Type != "" && sa.Type != "service_account" {
		return Google{}, fmt.Errorf("unsupported credential type %q", sa.Type)
	}
	return Google{
		ProjectID:    sa.ProjectID,
		PrivateKeyID: sa.PrivateKeyID,
		PrivateKey:   sa.PrivateKey,
		ClientEmail:  sa.ClientEmail,
		ClientID:     sa.ClientID,
	}, nil
}

// Store is safe for concurrent use; the last write wins.
type Store struct {
	mu        sync.RWMutex
	google    Google
	providers map[string]string
	version   uint64
}

func New() *Store {
	return &Store{providers: make(map[string]string)}
}

// SetGoogle merges the non-empty fields of g into the stored credentials.
func (s *Store) SetGoogle(g Google) {
	s.mu.Lock()
	s.google = s.google.merge(g)
	s.version++
	s.mu.Unlock()
}

func (s *Store) Google() Google {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.google
}

// GoogleWithVersion returns the credentials and their version atomically.
// The version increments on every Google credential change so consumers can
// rebuild clients lazily.
func (s *Store) GoogleWithVersion() (Google, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.google, s.version
}

// SetProviderKey stores an API key for provider. An empty key clears it.
func (s *Store) SetProviderKey(provider, key string) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" {
		delete(s.providers, provider)
		return
	}
	s.providers[provider] = key
}

func (s *Store) ProviderKey(provider string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providers[strings.ToLower(provider)]
}

// APIKey returns the completion provider key.
func (s *Store) APIKey() string {
	return s.ProviderKey(ProviderOpenAI)
}

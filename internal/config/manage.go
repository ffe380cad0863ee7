package config

import (
	"fmt"
	"strconv"
)

// KeyInfo is one displayable setting: its dotted key, the environment
// variable that overrides it, and its effective value.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll lists the effective value of every non-secret key, in spec order.
func ShowAll(cfg Config) []KeyInfo {
	out := make([]KeyInfo, 0, len(specs))
	for _, s := range specs {
		if !s.secret {
			out = append(out, KeyInfo{Key: s.key, EnvVar: s.env, Value: fmt.Sprint(s.extract(cfg))})
		}
	}
	return out
}

// SetKey writes a config key to the config file.
func SetKey(key, value string) error {
	return setKey(defaultBackend(), key, value)
}

func setKey(b ConfigBackend, key, value string) error {
	s, ok := lookupSpec(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		return fmt.Errorf("cannot set secret %q via config; use environment variable %s or config set-secret", key, s.env)
	}
	if _, err := s.parse(value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if s.typ == kInt {
		i, _ := strconv.Atoi(value)
		return b.SetInt(key, i)
	}
	return b.SetString(key, value)
}

// SetSecret stores a secret key in the platform secret store.
func SetSecret(key, value string) error {
	s, ok := lookupSpec(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if !s.secret {
		return fmt.Errorf("%q is not a secret; use config set", key)
	}
	return keychainSet(keychainService, s.account(), value)
}

// ValidKeys names the keys accepted by SetKey.
func ValidKeys() []string { return keysWhere(false) }

// SecretKeys names the keys accepted by SetSecret.
func SecretKeys() []string { return keysWhere(true) }

func keysWhere(secret bool) []string {
	var keys []string
	for _, s := range specs {
		if s.secret == secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}

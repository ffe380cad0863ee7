//go:build !darwin

package config

import "fmt"

// secrets.json is {service: {account: value}}.
type secretFile map[string]map[string]string

func secretHint(account string) string {
	return fmt.Sprintf(" or %s (service: %s, account: %s)", secretsFilePath(), keychainService, account)
}

func keychainGet(service, account string) ([]byte, error) {
	var secrets secretFile
	if err := readJSONFile(secretsFilePath(), &secrets); err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	val, ok := secrets[service][account]
	if !ok {
		return nil, fmt.Errorf("secret %s/%s not set", service, account)
	}
	return []byte(val), nil
}

func keychainSet(service, account, value string) error {
	p := secretsFilePath()
	secrets := secretFile{}
	if err := readJSONFile(p, &secrets); err != nil {
		return fmt.Errorf("reading secrets file: %w", err)
	}
	if secrets == nil {
		secrets = secretFile{}
	}
	if secrets[service] == nil {
		secrets[service] = map[string]string{}
	}
	secrets[service][account] = value
	return writeJSONFile(p, secrets)
}

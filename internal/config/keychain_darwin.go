//go:build darwin

package config

import "os/exec"

func secretHint(account string) string {
	return " or macOS Keychain (service: " + keychainService + ", account: " + account + ")"
}

// keychainGet reads a generic password; -w prints only the secret.
func keychainGet(service, account string) ([]byte, error) {
	out, err := exec.Command("security", "find-generic-password", "-s", service, "-a", account, "-w").Output()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// keychainSet adds or updates (-U) a generic password.
func keychainSet(service, account, value string) error {
	return exec.Command("security", "add-generic-password", "-U", "-s", service, "-a", account, "-w", value).Run()
}

package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the OS keyring service name under which API keys are stored,
// one entry per provider.
const KeyringService = "goreact"

// LookupAPIKey reads the API key for provider from the OS keyring.
// A missing entry returns "", nil.
func LookupAPIKey(provider string) (string, error) {
	key, err := keyring.Get(KeyringService, NormalizeProviderName(provider))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("keyring lookup: %w", err)
	}
	return key, nil
}

// StoreAPIKey saves the API key for provider in the OS keyring.
func StoreAPIKey(provider, key string) error {
	if key == "" {
		return errors.New("api key is empty")
	}
	if err := keyring.Set(KeyringService, NormalizeProviderName(provider), key); err != nil {
		return fmt.Errorf("keyring store: %w", err)
	}
	return nil
}

// DeleteAPIKey removes the stored key. Deleting a missing key is not an error.
func DeleteAPIKey(provider string) error {
	err := keyring.Delete(KeyringService, NormalizeProviderName(provider))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}

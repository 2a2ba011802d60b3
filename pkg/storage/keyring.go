package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// ServiceName is the identifier used for all RequestKit secrets in the
	// system keyring.
	ServiceName = "requestkit"

	// secretIndexKey is a reserved keyring entry holding the list of stored
	// secret names, since the keyring API has no enumeration.
	secretIndexKey = "__requestkit_index__"
)

// ErrSecretNotFound is returned when no secret exists under a name.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore is the interface for secure storage of secret variable values.
// Secret variables keep a placeholder in the SQLite repository; the real
// value lives here.
type SecretStore interface {
	Set(name string, value string) error
	Get(name string) (string, error)
	Delete(name string) error
	List() ([]string, error)
}

// KeyringSecretStore implements SecretStore using the system keyring.
// - macOS: Keychain
// - Windows: Credential Manager
// - Linux: Secret Service (GNOME Keyring, KWallet)
type KeyringSecretStore struct {
	service string
}

// NewKeyringSecretStore creates a keyring-backed secret store.
func NewKeyringSecretStore() *KeyringSecretStore {
	return &KeyringSecretStore{service: ServiceName}
}

// Set stores a secret value under a variable name.
func (s *KeyringSecretStore) Set(name string, value string) error {
	if name == "" {
		return errors.New("secret name cannot be empty")
	}
	if name == secretIndexKey {
		return fmt.Errorf("secret name %q is reserved", name)
	}

	if err := keyring.Set(s.service, name, value); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}

	// Index maintenance is best-effort; the secret itself is stored.
	_ = s.addToIndex(name)
	return nil
}

// Get retrieves a secret value by variable name.
func (s *KeyringSecretStore) Get(name string) (string, error) {
	if name == "" {
		return "", errors.New("secret name cannot be empty")
	}

	value, err := keyring.Get(s.service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("failed to retrieve secret: %w", err)
	}
	return value, nil
}

// Delete removes a secret by variable name.
func (s *KeyringSecretStore) Delete(name string) error {
	if name == "" {
		return errors.New("secret name cannot be empty")
	}

	if err := keyring.Delete(s.service, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	_ = s.removeFromIndex(name)
	return nil
}

// List returns the names of all stored secrets (never the values).
func (s *KeyringSecretStore) List() ([]string, error) {
	indexJSON, err := keyring.Get(s.service, secretIndexKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to retrieve secret index: %w", err)
	}

	var names []string
	if err := json.Unmarshal([]byte(indexJSON), &names); err != nil {
		return nil, fmt.Errorf("failed to parse secret index: %w", err)
	}
	return names, nil
}

func (s *KeyringSecretStore) addToIndex(name string) error {
	names, err := s.List()
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	return s.saveIndex(append(names, name))
}

func (s *KeyringSecretStore) removeFromIndex(name string) error {
	names, err := s.List()
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if n != name {
			kept = append(kept, n)
		}
	}
	return s.saveIndex(kept)
}

func (s *KeyringSecretStore) saveIndex(names []string) error {
	indexJSON, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to marshal secret index: %w", err)
	}
	if err := keyring.Set(s.service, secretIndexKey, string(indexJSON)); err != nil {
		return fmt.Errorf("failed to save secret index: %w", err)
	}
	return nil
}

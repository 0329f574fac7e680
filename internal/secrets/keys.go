package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups the engine's secrets in the OS keychain.
	KeyringService = "crickmic"

	Gemini   = "gemini"
	RapidAPI = "rapidapi"
)

var ErrNotFound = errors.New("secret not found")

// Store reads and writes API keys. The keyring-backed implementation is the
// default; tests swap in keyring.MockInit.
type Store struct {
	service string
}

func NewStore() *Store {
	return &Store{service: KeyringService}
}

func account(name string) string {
	return fmt.Sprintf("crickmic:%s:api_key", name)
}

func ValidName(name string) bool {
	return name == Gemini || name == RapidAPI
}

// Resolve prefers the environment value and falls back to the keychain.
func (s *Store) Resolve(name, envValue string) (string, error) {
	if v := strings.TrimSpace(envValue); v != "" {
		return v, nil
	}
	pw, err := keyring.Get(s.service, account(name))
	if err == nil && strings.TrimSpace(pw) != "" {
		return pw, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("keyring get %s: %w", name, err)
	}
	return "", fmt.Errorf("%s api key: %w (set it in keychain or via env)", name, ErrNotFound)
}

func (s *Store) Set(name, value string) error {
	if !ValidName(name) {
		return fmt.Errorf("unknown secret %q", name)
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(s.service, account(name), value)
}

func (s *Store) Delete(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("unknown secret %q", name)
	}
	err := keyring.Delete(s.service, account(name))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// Configured reports whether name resolves from env or keychain.
func (s *Store) Configured(name, envValue string) bool {
	v, err := s.Resolve(name, envValue)
	return err == nil && v != ""
}

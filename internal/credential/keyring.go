package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "laundry-notify"

// ErrNotFound is returned when no credential is stored under a key.
var ErrNotFound = errors.New("credential not found")

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/laundry-notify/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("laundry-notify-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Store keeps the login session and password of each server in a keyring.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the system keyring.
func Open() (*Store, error) {
	ring, err := openKeyring()
	if err != nil {
		return nil, err
	}
	return New(ring), nil
}

// New returns a Store backed by ring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

func sessionKey(baseURL string) string {
	return "session:" + baseURL
}

func passwordKey(baseURL, username string) string {
	return "password:" + username + "@" + baseURL
}

// Session returns the saved session cookie for the server at baseURL.
func (s *Store) Session(baseURL string) (string, error) {
	return s.get(sessionKey(baseURL))
}

// SetSession saves the session cookie for the server at baseURL.
func (s *Store) SetSession(baseURL, value string) error {
	return s.set(sessionKey(baseURL), "Laundry session", value)
}

// DeleteSession forgets the session for the server at baseURL. Deleting a
// missing session is not an error.
func (s *Store) DeleteSession(baseURL string) error {
	return s.remove(sessionKey(baseURL))
}

// Password returns the saved password of username on the server at baseURL.
func (s *Store) Password(baseURL, username string) (string, error) {
	return s.get(passwordKey(baseURL, username))
}

// SetPassword saves the password of username on the server at baseURL.
func (s *Store) SetPassword(baseURL, username, password string) error {
	return s.set(passwordKey(baseURL, username), "Laundry password", password)
}

func (s *Store) get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

func (s *Store) set(key, label, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Label: label,
		Data:  []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

func (s *Store) remove(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

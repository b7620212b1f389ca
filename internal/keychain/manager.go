// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores the orchestrator API key in the OS credential store.
// macOS uses the security command when available, other platforms go through
// 99designs/keyring with native backends only; there is no file fallback.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

var (
	globalManager *Manager
	mu            sync.Mutex
)

// ErrNotFound is returned when no API key is stored.
var ErrNotFound = errors.New("api key not found in keychain")

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "vendorbridge"

// KeyAPIKey is the keychain entry holding the orchestrator API key.
const KeyAPIKey = "orchestrator_api_key"

// backend is the minimal store the manager needs.
type backend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// Manager provides thread-safe access to the stored API key.
type Manager struct {
	mu      sync.RWMutex
	backend backend
}

// NewManager opens the OS credential store.
func NewManager() (*Manager, error) {
	if runtime.GOOS == "darwin" {
		if b, err := newSecurityBackend(); err == nil {
			return &Manager{backend: b}, nil
		}
	}
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewWithRing(ring), nil
}

// NewWithRing builds a manager over an already opened keyring.
func NewWithRing(ring keyring.Keyring) *Manager {
	return &Manager{backend: ringBackend{ring: ring}}
}

// GetManager returns the process-wide manager, opening it on first use.
// A failed open is retried on the next call.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()
	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return m, nil
}

func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, errors.New("secure storage not supported on this OS")
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowed,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. Install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}
	return ring, nil
}

// SaveAPIKey stores key, replacing any previous one.
func (m *Manager) SaveAPIKey(key string) error {
	if key == "" {
		return errors.New("empty api key")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Set(KeyAPIKey, key)
}

// LoadAPIKey returns the stored key or ErrNotFound.
func (m *Manager) LoadAPIKey() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, err := m.backend.Get(KeyAPIKey)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrNotFound
	}
	return key, nil
}

// ClearAPIKey removes the stored key. Clearing a missing key is not an error.
func (m *Manager) ClearAPIKey() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Delete(KeyAPIKey)
}

type ringBackend struct {
	ring keyring.Keyring
}

func (r ringBackend) Set(key, value string) error {
	return r.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key})
}

func (r ringBackend) Get(key string) (string, error) {
	it, err := r.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

func (r ringBackend) Delete(key string) error {
	err := r.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

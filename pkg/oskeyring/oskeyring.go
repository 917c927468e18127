// Package oskeyring abstracts the operating system keyring behind a small
// interface so commands can be tested with an in-memory implementation.
package oskeyring

import (
	"errors"
	"fmt"
	"sync"

	keyringlib "github.com/zalando/go-keyring"
)

// ErrNotFound is returned by Get when no secret is stored under the key.
var ErrNotFound = errors.New("secret not found in keyring")

// Service stores and retrieves secrets keyed by (service, name).
type Service interface {
	Get(service, name string) (string, error)
	Set(service, name, secret string) error
	Delete(service, name string) error
}

// OSService backs Service with the platform keyring.
type OSService struct{}

func NewOSService() *OSService { return &OSService{} }

func (s *OSService) Get(service, name string) (string, error) {
	secret, err := keyringlib.Get(service, name)
	if err != nil {
		if errors.Is(err, keyringlib.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("reading from OS keyring: %w", err)
	}
	return secret, nil
}

func (s *OSService) Set(service, name, secret string) error {
	return keyringlib.Set(service, name, secret)
}

func (s *OSService) Delete(service, name string) error {
	return keyringlib.Delete(service, name)
}

var _ Service = (*OSService)(nil)

// MemoryService is an in-memory Service for tests.
type MemoryService struct {
	mu      sync.RWMutex
	secrets map[string]string
}

func NewMemoryService() *MemoryService {
	return &MemoryService{secrets: make(map[string]string)}
}

func (s *MemoryService) Get(service, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if secret, ok := s.secrets[service+"\x00"+name]; ok {
		return secret, nil
	}
	return "", ErrNotFound
}

func (s *MemoryService) Set(service, name, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[service+"\x00"+name] = secret
	return nil
}

func (s *MemoryService) Delete(service, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, service+"\x00"+name)
	return nil
}

var _ Service = (*MemoryService)(nil)

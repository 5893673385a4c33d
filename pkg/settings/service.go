package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/formlift/formlift/pkg/store"
)

// Setting keys controlled through the admin API. An absent or empty value
// makes generation fail fast; there is no hardcoded default model.
const (
	KeyTextModel  = "ai.text_model"
	KeyImageModel = "ai.image_model"
)

// Service is the settings provider injected wherever model selection is
// read. Values are cached in process and invalidated explicitly on update.
type Service struct {
	store *store.SettingsStore

	mu    sync.RWMutex
	cache map[string]string
}

// NewService creates a new settings service
func NewService(st *store.SettingsStore) *Service {
	return &Service{
		store: st,
		cache: make(map[string]string),
	}
}

// Get returns the value for key, empty string when unset
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	if v, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	value, found, err := s.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		value = ""
	}

	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()

	return value, nil
}

// Set writes the value and invalidates the cached entry
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to update setting: %w", err)
	}

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()

	return nil
}

// Invalidate drops a cached entry without writing
func (s *Service) Invalidate(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}

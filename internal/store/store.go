package store

import (
	"log/slog"

	"github.com/ljankila/lingoscene/internal/errors"
	"github.com/ljankila/lingoscene/internal/models"
)

// Fixed keys of the blob store.
const (
	keyScopes             = "ScopeDB"
	keySettings           = "settings"
	keyProvider           = "provider"
	keyAPIKeys            = "apiKeys"
	keyUserProfile        = "userProfile"
	keyGenerationSettings = "generationSettings"
)

// Store is the typed persistence layer over a KV backend: scope views
// under one key, the settings family under separate keys.
type Store struct {
	kv     KV
	logger *slog.Logger
}

func New(kv KV, logger *slog.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger.With("source", "store"),
	}
}

// LoadScopeViews returns the persisted scope views, empty when nothing
// has been saved yet.
func (s *Store) LoadScopeViews() ([]models.ScopeView, error) {
	var views []models.ScopeView
	found, err := s.kv.Get(keyScopes, &views)
	if err != nil {
		return nil, errors.Wrap(err, "load scope views")
	}
	if !found {
		return []models.ScopeView{}, nil
	}
	return views, nil
}

// SaveScope upserts one scope view by name.
func (s *Store) SaveScope(view models.ScopeView) error {
	views, err := s.LoadScopeViews()
	if err != nil {
		return err
	}
	replaced := false
	for i := range views {
		if views[i].Name == view.Name {
			views[i] = view
			replaced = true
			break
		}
	}
	if !replaced {
		views = append(views, view)
	}
	if err = s.kv.Set(keyScopes, views); err != nil {
		return errors.Wrap(err, "save scope view", slog.String("scope", view.Name))
	}
	return nil
}

// DeleteScope removes the named scope view and reports whether it existed.
func (s *Store) DeleteScope(name string) (bool, error) {
	views, err := s.LoadScopeViews()
	if err != nil {
		return false, err
	}
	remaining := views[:0]
	for _, view := range views {
		if view.Name != name {
			remaining = append(remaining, view)
		}
	}
	if len(remaining) == len(views) {
		return false, nil
	}
	if err = s.kv.Set(keyScopes, remaining); err != nil {
		return false, errors.Wrap(err, "delete scope view", slog.String("scope", name))
	}
	return true, nil
}

func (s *Store) LoadSettings() (models.ScopeSettings, bool, error) {
	var settings models.ScopeSettings
	found, err := s.kv.Get(keySettings, &settings)
	if err != nil {
		return models.ScopeSettings{}, false, errors.Wrap(err, "load settings")
	}
	return settings, found, nil
}

func (s *Store) LoadProvider() (string, bool, error) {
	var provider string
	found, err := s.kv.Get(keyProvider, &provider)
	if err != nil {
		return "", false, errors.Wrap(err, "load provider")
	}
	return provider, found, nil
}

func (s *Store) LoadAPIKeys() (models.APIKeys, bool, error) {
	var keys models.APIKeys
	found, err := s.kv.Get(keyAPIKeys, &keys)
	if err != nil {
		return nil, false, errors.Wrap(err, "load api keys")
	}
	return keys, found, nil
}

func (s *Store) LoadUserProfile() (models.Profile, bool, error) {
	var profile models.Profile
	found, err := s.kv.Get(keyUserProfile, &profile)
	if err != nil {
		return models.Profile{}, false, errors.Wrap(err, "load user profile")
	}
	return profile, found, nil
}

func (s *Store) LoadGenerationSettings() (models.InitGenerationSettings, bool, error) {
	var gen models.InitGenerationSettings
	found, err := s.kv.Get(keyGenerationSettings, &gen)
	if err != nil {
		return models.InitGenerationSettings{}, false, errors.Wrap(err, "load generation settings")
	}
	return gen, found, nil
}

// SaveAll persists the whole settings family in one pass.
func (s *Store) SaveAll(init models.InitSettings) error {
	if err := s.kv.Set(keySettings, init.Settings); err != nil {
		return errors.Wrap(err, "save settings")
	}
	if err := s.kv.Set(keyProvider, init.Provider); err != nil {
		return errors.Wrap(err, "save provider")
	}
	if err := s.kv.Set(keyAPIKeys, init.APIKeys); err != nil {
		return errors.Wrap(err, "save api keys")
	}
	if err := s.kv.Set(keyUserProfile, init.UserProfile); err != nil {
		return errors.Wrap(err, "save user profile")
	}
	if err := s.kv.Set(keyGenerationSettings, init.InitGenerationSettings); err != nil {
		return errors.Wrap(err, "save generation settings")
	}
	return nil
}

func (s *Store) Flush() error {
	return s.kv.Flush()
}

func (s *Store) Close() error {
	return s.kv.Close()
}

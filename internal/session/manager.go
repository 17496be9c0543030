package session

import (
	"log/slog"
	"sync"

	"github.com/ljankila/lingoscene/internal/ai"
	"github.com/ljankila/lingoscene/internal/errors"
	"github.com/ljankila/lingoscene/internal/models"
	"github.com/ljankila/lingoscene/internal/store"
	"github.com/ljankila/lingoscene/internal/stream"
)

var (
	// ErrScopeExists is returned when creating a scope under a taken name.
	ErrScopeExists = errors.NewSentinel("scope already exists")
	// ErrScopeNotFound is returned when selecting or deleting an
	// unregistered scope.
	ErrScopeNotFound = errors.NewSentinel("scope does not exist")
)

// Manager is the registry of named scopes and the hand-off point to
// persistence. Unlike orchestration failures, registry misuse (duplicate
// create, missing select or delete) is returned synchronously.
type Manager struct {
	mu      sync.Mutex
	scopes  map[string]*Scope
	current string
	init    models.InitSettings

	store  *store.Store
	broker *stream.Broker
	logger *slog.Logger
}

// NewManager loads the persisted settings family, substituting defaults
// for anything not saved yet. New scopes inherit these settings.
func NewManager(st *store.Store, broker *stream.Broker, logger *slog.Logger) (*Manager, error) {
	m := &Manager{
		scopes: map[string]*Scope{},
		store:  st,
		broker: broker,
		logger: logger.With("source", "manager"),
	}

	settings, found, err := st.LoadSettings()
	if err != nil {
		return nil, err
	}
	if !found {
		settings = defaultScopeSettings()
	}

	provider, found, err := st.LoadProvider()
	if err != nil {
		return nil, err
	}
	if !found {
		provider = ai.ProviderGemini
	}

	keys, found, err := st.LoadAPIKeys()
	if err != nil {
		return nil, err
	}
	if !found {
		keys = models.APIKeys{}
	}

	profile, found, err := st.LoadUserProfile()
	if err != nil {
		return nil, err
	}
	if !found {
		profile = defaultUserProfile()
	}

	gen, found, err := st.LoadGenerationSettings()
	if err != nil {
		return nil, err
	}
	if !found {
		gen = defaultGenerationSettings()
	}

	m.init = models.InitSettings{
		Settings:               settings,
		Provider:               provider,
		APIKeys:                keys,
		UserProfile:            profile,
		InitGenerationSettings: gen,
	}
	return m, nil
}

func defaultScopeSettings() models.ScopeSettings {
	return models.ScopeSettings{
		Language:                      "japanese",
		NativeLanguage:                "english",
		ScenarioCount:                 1,
		MinAgents:                     1,
		MaxAgents:                     3,
		LanguageLevel:                 "N3",
		TimerEnabled:                  false,
		MultiMessageGenerationEnabled: true,
		DescriptionsInNativeLanguage:  true,
	}
}

func defaultGenerationSettings() models.InitGenerationSettings {
	return models.InitGenerationSettings{
		PrimaryModel: "gemini-2.0-flash",
		UtilityModel: "gemini-2.0-flash",
		GenerationSettings: models.GenerationSettings{
			MaxOutputTokens: 4096,
			Temperature:     0.7,
			TopP:            1,
			TopK:            40,
		},
	}
}

func defaultUserProfile() models.Profile {
	return models.Profile{Name: "USER"}
}

// InitSettings returns the settings applied to newly created scopes.
func (m *Manager) InitSettings() models.InitSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.init
}

// NewScope creates, initializes, registers, and selects a scope.
func (m *Manager) NewScope(name string) (*Scope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.scopes[name]; exists {
		return nil, errors.Wrap(ErrScopeExists, "new scope", slog.String("scope", name))
	}
	scope := NewScope(name, m.broker, m.logger)
	scope.Initialize(m.init)
	m.scopes[name] = scope
	m.current = name
	return scope, nil
}

// LoadScope registers a scope rehydrated from a persisted view.
func (m *Manager) LoadScope(view models.ScopeView) (*Scope, error) {
	scope, err := m.NewScope(view.Name)
	if err != nil {
		return nil, err
	}
	scope.LoadView(view)
	return scope, nil
}

// Scope returns the named scope if it is registered.
func (m *Manager) Scope(name string) (*Scope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scope, ok := m.scopes[name]
	return scope, ok
}

// CurrentScope returns the selected scope, or nil when none is selected.
func (m *Manager) CurrentScope() *Scope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scopes[m.current]
}

// SetCurrentScope selects a registered scope.
func (m *Manager) SetCurrentScope(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.scopes[name]; !exists {
		return errors.Wrap(ErrScopeNotFound, "set current scope", slog.String("scope", name))
	}
	m.current = name
	return nil
}

// DeleteScope removes a scope from the registry and from the store.
func (m *Manager) DeleteScope(name string) error {
	m.mu.Lock()
	_, exists := m.scopes[name]
	if exists {
		delete(m.scopes, name)
		if m.current == name {
			m.current = ""
		}
	}
	m.mu.Unlock()

	if !exists {
		return errors.Wrap(ErrScopeNotFound, "delete scope", slog.String("scope", name))
	}
	if _, err := m.store.DeleteScope(name); err != nil {
		return err
	}
	return nil
}

// LoadScopeViews returns the persisted scope views for rehydration.
func (m *Manager) LoadScopeViews() ([]models.ScopeView, error) {
	return m.store.LoadScopeViews()
}

// SaveCurrentScope persists the selected scope's view (when it has any
// situations) and its settings family.
func (m *Manager) SaveCurrentScope() error {
	scope := m.CurrentScope()
	if scope == nil {
		return nil
	}

	view := scope.View()
	if len(view.SituationViews) > 0 {
		if err := m.store.SaveScope(view); err != nil {
			return err
		}
	}

	init := models.InitSettings{
		Settings:               scope.Settings(),
		Provider:               scope.Provider(),
		APIKeys:                scope.APIKeys(),
		UserProfile:            scope.UserProfile(),
		InitGenerationSettings: scope.GenerationSettings(),
	}
	m.mu.Lock()
	m.init = init
	m.mu.Unlock()

	return m.store.SaveAll(init)
}

// Flush pushes pending store state to durable storage.
func (m *Manager) Flush() error {
	return m.store.Flush()
}

// Shutdown persists the current scope and settings and closes the
// store. It stands in for the browser's before-unload hook.
func (m *Manager) Shutdown() error {
	err := m.SaveCurrentScope()
	if flushErr := m.store.Flush(); flushErr != nil {
		err = errors.Join(err, flushErr)
	}
	return errors.Join(err, m.store.Close())
}

// Package appconfig manages the user-editable model and data source
// configuration. Whenever the model list is non-empty exactly one model is
// the default.
package appconfig

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/lithammer/shortuuid/v4"

	"github.com/elee1766/parley/src/localcache"
	"github.com/elee1766/parley/src/model"
)

// DefaultModel is the model configured on first start.
var DefaultModel = model.ModelConfig{
	ID:        "gemini-pro",
	Name:      "Gemini 2.5 Pro Preview",
	Provider:  "google",
	APIKey:    "",
	IsDefault: true,
}

// Defaults returns the initial configuration.
func Defaults() model.AppConfig {
	return model.AppConfig{
		Models:    []model.ModelConfig{DefaultModel},
		Databases: []model.DatabaseConfig{},
	}
}

// Persister stores the configuration.
type Persister interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
}

// Config configures a Store.
type Config struct {
	Persister Persister
	Logger    *slog.Logger
}

// Store holds the application configuration.
type Store struct {
	persister Persister
	validate  *validator.Validate
	logger    *slog.Logger

	mu  sync.RWMutex
	cfg model.AppConfig
}

// New creates a store holding Defaults.
func New(cfg Config) *Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		persister: cfg.Persister,
		validate:  validator.New(),
		logger:    cfg.Logger.With("component", "appconfig"),
		cfg:       Defaults(),
	}
}

// Load replaces the configuration with the cached one, if present.
func (s *Store) Load() error {
	var stored model.AppConfig
	ok, err := s.persister.Get(localcache.KeyAppConfig, &stored)
	if err != nil {
		return fmt.Errorf("failed to load app config: %w", err)
	}
	if !ok {
		return nil
	}
	if stored.Models == nil {
		stored.Models = []model.ModelConfig{}
	}
	if stored.Databases == nil {
		stored.Databases = []model.DatabaseConfig{}
	}
	stored.Models = NormalizeDefaults(stored.Models)

	s.mu.Lock()
	s.cfg = stored
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the configuration.
func (s *Store) Get() model.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.AppConfig{
		Models:    slices.Clone(s.cfg.Models),
		Databases: slices.Clone(s.cfg.Databases),
	}
}

// Models returns a copy of the model list.
func (s *Store) Models() []model.ModelConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cfg.Models)
}

// DefaultModel returns the default model config.
func (s *Store) DefaultModel() (model.ModelConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.cfg.Models {
		if m.IsDefault {
			return m, true
		}
	}
	return model.ModelConfig{}, false
}

// Lookup returns the model config with the given id.
func (s *Store) Lookup(id string) (model.ModelConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := slices.IndexFunc(s.cfg.Models, func(m model.ModelConfig) bool { return m.ID == id }); i >= 0 {
		return s.cfg.Models[i], true
	}
	return model.ModelConfig{}, false
}

// NormalizeDefaults returns a copy of models in which exactly one entry is the
// default: the first flagged one, else the first entry.
func NormalizeDefaults(models []model.ModelConfig) []model.ModelConfig {
	out := slices.Clone(models)
	if len(out) == 0 {
		return []model.ModelConfig{}
	}
	chosen := slices.IndexFunc(out, func(m model.ModelConfig) bool { return m.IsDefault })
	if chosen < 0 {
		chosen = 0
	}
	for i := range out {
		out[i].IsDefault = i == chosen
	}
	return out
}

// UpdateModelConfig replaces the model list. Applying the same list twice
// yields the same state.
func (s *Store) UpdateModelConfig(models []model.ModelConfig) error {
	for i := range models {
		if err := s.validate.Struct(models[i]); err != nil {
			return fmt.Errorf("invalid model %q: %w", models[i].ID, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Models = NormalizeDefaults(models)
	s.persistLocked()
	return nil
}

// AddModel appends a model. The first model added to an empty list becomes
// the default; a model added with IsDefault set takes over the default.
func (s *Store) AddModel(m model.ModelConfig) (model.ModelConfig, error) {
	if m.ID == "" {
		m.ID = "model-" + shortuuid.New()
	}
	if m.Provider == "" {
		m.Provider = "google"
	}
	if err := s.validate.Struct(m); err != nil {
		return model.ModelConfig{}, fmt.Errorf("invalid model: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.ContainsFunc(s.cfg.Models, func(x model.ModelConfig) bool { return x.ID == m.ID }) {
		return model.ModelConfig{}, fmt.Errorf("model %q already configured", m.ID)
	}
	if len(s.cfg.Models) == 0 {
		m.IsDefault = true
	}
	if m.IsDefault {
		for i := range s.cfg.Models {
			s.cfg.Models[i].IsDefault = false
		}
	}
	s.cfg.Models = append(s.cfg.Models, m)
	s.persistLocked()
	return m, nil
}

// RemoveModel deletes a model. Removing the default promotes the first
// remaining model.
func (s *Store) RemoveModel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.cfg.Models, func(m model.ModelConfig) bool { return m.ID == id })
	if i < 0 {
		s.logger.Debug("remove of unknown model ignored", "model_id", id)
		return false
	}
	wasDefault := s.cfg.Models[i].IsDefault
	s.cfg.Models = slices.Delete(s.cfg.Models, i, i+1)
	if wasDefault && len(s.cfg.Models) > 0 {
		s.cfg.Models[0].IsDefault = true
	}
	s.persistLocked()
	return true
}

// SetDefaultModel makes id the only default.
func (s *Store) SetDefaultModel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.ContainsFunc(s.cfg.Models, func(m model.ModelConfig) bool { return m.ID == id }) {
		s.logger.Debug("default of unknown model ignored", "model_id", id)
		return false
	}
	for i := range s.cfg.Models {
		s.cfg.Models[i].IsDefault = s.cfg.Models[i].ID == id
	}
	s.persistLocked()
	return true
}

// UpdateDatabaseConfig replaces the data source list.
func (s *Store) UpdateDatabaseConfig(databases []model.DatabaseConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Databases = slices.Clone(databases)
	if s.cfg.Databases == nil {
		s.cfg.Databases = []model.DatabaseConfig{}
	}
	s.persistLocked()
}

// AddDatabase appends a data source, assigning an id when missing.
func (s *Store) AddDatabase(db model.DatabaseConfig) model.DatabaseConfig {
	if db.ID == "" {
		db.ID = "db-" + shortuuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Databases = append(s.cfg.Databases, db)
	s.persistLocked()
	return db
}

// RemoveDatabase deletes a data source.
func (s *Store) RemoveDatabase(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.cfg.Databases, func(d model.DatabaseConfig) bool { return d.ID == id })
	if i < 0 {
		return false
	}
	s.cfg.Databases = slices.Delete(s.cfg.Databases, i, i+1)
	s.persistLocked()
	return true
}

func (s *Store) persistLocked() {
	if err := s.persister.Set(localcache.KeyAppConfig, s.cfg); err != nil {
		s.logger.Error("failed to persist app config", "error", err)
	}
}

package appconfig

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/parley/src/localcache"
	"github.com/elee1766/parley/src/model"
)

func newTestStore(t *testing.T) (*Store, *localcache.Cache) {
	t.Helper()
	cache, err := localcache.New(localcache.Config{Fs: afero.NewMemMapFs(), Dir: "/cache"})
	require.NoError(t, err)
	return New(Config{Persister: cache}), cache
}

func countDefaults(models []model.ModelConfig) int {
	n := 0
	for _, m := range models {
		if m.IsDefault {
			n++
		}
	}
	return n
}

func mc(id string, def bool) model.ModelConfig {
	return model.ModelConfig{ID: id, Name: id, Provider: "google", IsDefault: def}
}

func TestDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	def, ok := s.DefaultModel()
	require.True(t, ok)
	assert.Equal(t, "gemini-pro", def.ID)
	assert.Equal(t, "Gemini 2.5 Pro Preview", def.Name)
	assert.Equal(t, "google", def.Provider)
}

func TestUpdateModelConfigKeepsExactlyOneDefault(t *testing.T) {
	tests := []struct {
		name        string
		models      []model.ModelConfig
		wantDefault string
	}{
		{"zero defaults promotes first", []model.ModelConfig{mc("a", false), mc("b", false)}, "a"},
		{"single default kept", []model.ModelConfig{mc("a", false), mc("b", true)}, "b"},
		{"several defaults keep first flagged", []model.ModelConfig{mc("a", false), mc("b", true), mc("c", true)}, "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, cache := newTestStore(t)
			require.NoError(t, s.UpdateModelConfig(tt.models))
			first := s.Models()

			assert.Equal(t, 1, countDefaults(first))
			def, ok := s.DefaultModel()
			require.True(t, ok)
			assert.Equal(t, tt.wantDefault, def.ID)

			require.NoError(t, s.UpdateModelConfig(first))
			assert.Equal(t, first, s.Models())

			var stored model.AppConfig
			ok, err := cache.Get(localcache.KeyAppConfig, &stored)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, first, stored.Models)
		})
	}
}

func TestUpdateModelConfigEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.UpdateModelConfig(nil))
	assert.Empty(t, s.Models())
	_, ok := s.DefaultModel()
	assert.False(t, ok)
}

func TestUpdateModelConfigRejectsInvalid(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.UpdateModelConfig([]model.ModelConfig{{ID: "x", Name: "x", Provider: "acme"}})
	assert.Error(t, err)
	assert.Equal(t, "gemini-pro", s.Models()[0].ID)
}

func TestAddModel(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.UpdateModelConfig(nil))

	first, err := s.AddModel(model.ModelConfig{Name: "First"})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)
	assert.NotEmpty(t, first.ID)

	second, err := s.AddModel(model.ModelConfig{ID: "second", Name: "Second", Provider: "openrouter"})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	_, err = s.AddModel(model.ModelConfig{ID: "second", Name: "dup"})
	assert.Error(t, err)

	third, err := s.AddModel(model.ModelConfig{ID: "third", Name: "Third", IsDefault: true})
	require.NoError(t, err)
	assert.True(t, third.IsDefault)
	assert.Equal(t, 1, countDefaults(s.Models()))
}

func TestRemoveModelPromotesFirst(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.UpdateModelConfig([]model.ModelConfig{mc("a", false), mc("b", true), mc("c", false)}))

	assert.False(t, s.RemoveModel("missing"))
	assert.True(t, s.RemoveModel("b"))

	def, ok := s.DefaultModel()
	require.True(t, ok)
	assert.Equal(t, "a", def.ID)
	assert.Equal(t, 1, countDefaults(s.Models()))
}

func TestSetDefaultModel(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.UpdateModelConfig([]model.ModelConfig{mc("a", true), mc("b", false)}))

	assert.False(t, s.SetDefaultModel("missing"))
	assert.True(t, s.SetDefaultModel("b"))
	def, _ := s.DefaultModel()
	assert.Equal(t, "b", def.ID)
	assert.Equal(t, 1, countDefaults(s.Models()))

	m, ok := s.Lookup("a")
	require.True(t, ok)
	assert.False(t, m.IsDefault)
}

func TestDatabases(t *testing.T) {
	s, cache := newTestStore(t)

	db := s.AddDatabase(model.DatabaseConfig{Name: "main", Provider: "postgres", ConnectionString: "postgres://x"})
	assert.NotEmpty(t, db.ID)
	assert.Len(t, s.Get().Databases, 1)

	assert.False(t, s.RemoveDatabase("missing"))
	assert.True(t, s.RemoveDatabase(db.ID))
	assert.Empty(t, s.Get().Databases)

	s.UpdateDatabaseConfig([]model.DatabaseConfig{{ID: "d1", Name: "one", Provider: "mysql"}})

	restored := New(Config{Persister: cache})
	require.NoError(t, restored.Load())
	assert.Equal(t, s.Get(), restored.Get())
}

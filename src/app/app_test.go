package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/parley/src/config"
	"github.com/elee1766/parley/src/conversation"
	"github.com/elee1766/parley/src/model"
)

func localConfig() *config.Config {
	cfg := config.DefaultLocalConfig()
	cfg.Storage.CacheDir = "/cache"
	cfg.Generation.Environment = false
	return cfg
}

func TestNewLocalOnly(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, Options{Config: localConfig(), Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.Nil(t, a.Records)
	source, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, conversation.SourceDefault, source)
	assert.Len(t, a.Conversations.Conversations(), 1)

	def, ok := a.Settings.DefaultModel()
	require.True(t, ok)
	assert.Equal(t, "gemini-pro", def.ID)
}

func TestUnknownKnowledgePolicy(t *testing.T) {
	cfg := localConfig()
	cfg.Knowledge.Policy = "vibes"
	_, err := New(context.Background(), Options{Config: cfg, Fs: afero.NewMemMapFs()})
	assert.Error(t, err)
}

func TestUnreachableRecordStoreFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig()
	cfg.Storage.Driver = "postgres"
	cfg.Storage.DSN = "postgres://parley@127.0.0.1:1/parley?sslmode=disable&connect_timeout=1"

	a, err := New(ctx, Options{Config: cfg, Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	defer a.Close(ctx)
	assert.Nil(t, a.Records)

	_, err = a.Load(ctx)
	require.NoError(t, err)
}

func TestConversationsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	cfg := localConfig()
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "state", "records.db")

	a, err := New(ctx, Options{Config: cfg, Fs: fs})
	require.NoError(t, err)
	require.NotNil(t, a.Records)
	_, err = a.Load(ctx)
	require.NoError(t, err)

	_, err = a.Identity.Login(model.User{Name: "Sam"})
	require.NoError(t, err)
	agent := a.Agents.Create(ctx, model.AgentInput{Name: "Ada", Model: "gemini-pro", Instructions: "Be brief."})
	assert.Positive(t, agent.InstructionTokenCount)

	conv, err := a.Conversations.Create([]string{agent.ID})
	require.NoError(t, err)
	_, ok := a.Conversations.AddMessage(conv.ID, model.MessageInput{
		Content: "hello",
		Sender:  model.Sender{ID: a.Identity.User().ID, Name: "Sam", Type: model.SenderUser},
	})
	require.True(t, ok)
	require.NoError(t, a.Close(ctx))

	// A fresh cache forces the record store to be the source.
	b, err := New(ctx, Options{Config: cfg, Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	defer b.Close(ctx)
	_, err = b.Identity.Login(model.User{ID: a.Identity.User().ID, Name: "Sam"})
	require.NoError(t, err)

	source := b.Conversations.Load(ctx)
	assert.Equal(t, conversation.SourceRemote, source)
	got, ok := b.Conversations.Get(conv.ID)
	require.True(t, ok)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.Equal(t, conv.ID, b.Conversations.CurrentID())
}

// Package conversation owns the conversation list, the current conversation
// pointer and every message mutation. In-memory state is authoritative; each
// mutation is written through to the local cache and mirrored to the record
// store in the background.
package conversation

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/elee1766/parley/src/generator"
	"github.com/elee1766/parley/src/localcache"
	"github.com/elee1766/parley/src/model"
)

// DefaultGenerationTimeout bounds a single generator call.
const DefaultGenerationTimeout = 2 * time.Minute

// DefaultTitle is the title of conversations created without agents.
const DefaultTitle = "New Conversation"

// Cache is the local key-value mirror.
type Cache interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
}

// Identity supplies the authenticated user.
type Identity interface {
	User() *model.User
}

// Agents resolves agent definitions.
type Agents interface {
	Get(id string) (model.Agent, bool)
	Names(ids []string) []string
}

// Generator produces agent replies.
type Generator interface {
	Generate(ctx context.Context, prompt generator.Prompt, modelID string) (string, error)
}

// PromptBuilder composes the prompt for one agent reply.
type PromptBuilder interface {
	Build(ctx context.Context, agent model.Agent, history []model.Message, message string) generator.Prompt
}

// Config configures a Store.
type Config struct {
	Cache     Cache
	Identity  Identity
	Agents    Agents
	Generator Generator
	Prompts   PromptBuilder
	// Remote is optional; without it the store runs on the local cache only.
	Remote       Remote
	WriteTimeout time.Duration
	// GenerationTimeout bounds each generator call.
	GenerationTimeout time.Duration
	Notifier          Notifier
	Callbacks         *Callbacks
	Logger            *slog.Logger
}

// Store holds conversations.
type Store struct {
	cache     Cache
	identity  Identity
	agents    Agents
	gen       Generator
	prompts   PromptBuilder
	mirror    *Mirror
	timeout   time.Duration
	notifier  Notifier
	callbacks *Callbacks
	logger    *slog.Logger

	mu            sync.RWMutex
	conversations []model.Conversation
	currentID     string

	sendMu    sync.Mutex
	sendLocks map[string]*sync.Mutex

	processing atomic.Int32
}

// New creates an empty store. Call Load to rehydrate state.
func New(cfg Config) *Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{Logger: cfg.Logger}
	}
	logger := cfg.Logger.With("component", "conversation")

	s := &Store{
		cache:     cfg.Cache,
		identity:  cfg.Identity,
		agents:    cfg.Agents,
		gen:       cfg.Generator,
		prompts:   cfg.Prompts,
		timeout:   cfg.GenerationTimeout,
		notifier:  cfg.Notifier,
		callbacks: cfg.Callbacks,
		logger:    logger,
		sendLocks: make(map[string]*sync.Mutex),
	}
	if cfg.Remote != nil {
		s.mirror = NewMirror(MirrorConfig{
			Remote:       cfg.Remote,
			WriteTimeout: cfg.WriteTimeout,
			Logger:       cfg.Logger,
		})
	}
	return s
}

// Flush waits for queued record store writes.
func (s *Store) Flush(ctx context.Context) error {
	if s.mirror == nil {
		return nil
	}
	return s.mirror.Flush(ctx)
}

// Close drains queued record store writes and stops the mirror.
func (s *Store) Close(ctx context.Context) error {
	if s.mirror == nil {
		return nil
	}
	return s.mirror.Close(ctx)
}

// IsProcessing reports whether a SendMessage call is generating replies.
func (s *Store) IsProcessing() bool {
	return s.processing.Load() > 0
}

// Conversations returns a copy of every conversation.
func (s *Store) Conversations() []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		out[i] = c.Clone()
	}
	return out
}

// Get returns the conversation with the given id.
func (s *Store) Get(id string) (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.conversations[i].Clone(), true
	}
	return model.Conversation{}, false
}

// CurrentID returns the current conversation id, or "" when none is selected.
func (s *Store) CurrentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

// Current returns the current conversation. The second result is false when
// no conversation is selected.
func (s *Store) Current() (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentID == "" {
		return model.Conversation{}, false
	}
	if i := s.index(s.currentID); i >= 0 {
		return s.conversations[i].Clone(), true
	}
	return model.Conversation{}, false
}

// SetCurrent selects a conversation. Unknown ids are ignored.
func (s *Store) SetCurrent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(id) < 0 {
		s.logger.Debug("set current: unknown conversation", "conversation_id", id)
		return false
	}
	s.currentID = id
	return true
}

// Create starts a conversation with the given agents and makes it current.
func (s *Store) Create(agentIDs []string) (model.Conversation, error) {
	user := s.user()
	if user == nil {
		return model.Conversation{}, model.ErrUnauthenticated
	}
	title := "Chat with " + strings.Join(s.agents.Names(agentIDs), ", ")
	return s.create(title, user.ID, agentIDs), nil
}

// CreateNew starts an empty conversation without agents and makes it current.
func (s *Store) CreateNew() model.Conversation {
	userID := ""
	if user := s.user(); user != nil {
		userID = user.ID
	}
	return s.create(DefaultTitle, userID, nil)
}

func (s *Store) create(title, userID string, agentIDs []string) model.Conversation {
	now := model.NowMillis()
	ids := slices.Clone(agentIDs)
	if ids == nil {
		ids = []string{}
	}
	conv := model.Conversation{
		ID:    uuid.NewString(),
		Title: title,
		Participants: model.Participants{
			UserID:   userID,
			AgentIDs: ids,
		},
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []model.Message{},
	}

	s.mu.Lock()
	s.conversations = append(s.conversations, conv)
	s.currentID = conv.ID
	s.persistLocked(conv)
	s.mu.Unlock()

	s.logger.Info("conversation created", "conversation_id", conv.ID, "agents", len(ids))
	return conv.Clone()
}

// SetParticipants replaces the agents taking part in a conversation.
func (s *Store) SetParticipants(id string, agentIDs []string) bool {
	ids := slices.Clone(agentIDs)
	if ids == nil {
		ids = []string{}
	}
	return s.mutate(id, func(c *model.Conversation) bool {
		c.Participants.AgentIDs = ids
		return true
	})
}

// Rename changes a conversation title.
func (s *Store) Rename(id, title string) bool {
	return s.mutate(id, func(c *model.Conversation) bool {
		c.Title = title
		return true
	})
}

// DeleteConversation removes a conversation locally and from the record
// store. When it was current, the most recently updated remaining
// conversation becomes current.
func (s *Store) DeleteConversation(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		s.logger.Debug("delete: unknown conversation", "conversation_id", id)
		return false
	}
	userID := s.conversations[i].Participants.UserID
	s.conversations = slices.Delete(s.conversations, i, i+1)
	s.sendMu.Lock()
	delete(s.sendLocks, id)
	s.sendMu.Unlock()
	if s.currentID == id {
		s.currentID = mostRecent(s.conversations)
	}
	s.writeCacheLocked()
	if s.mirror != nil && userID != "" {
		s.mirror.Delete(id, userID)
	}
	return true
}

// mutate applies fn to the conversation with the given id and persists it
// when fn reports a change. UpdatedAt is bumped on every change, and a
// conversation without an owner is given to the logged in user.
func (s *Store) mutate(id string, fn func(c *model.Conversation) bool) bool {
	user := s.user()
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		s.logger.Debug("unknown conversation", "conversation_id", id)
		return false
	}
	c := &s.conversations[i]
	if !fn(c) {
		return false
	}
	if c.Participants.UserID == "" && user != nil {
		c.Participants.UserID = user.ID
	}
	c.UpdatedAt = max(model.NowMillis(), c.UpdatedAt)
	s.persistLocked(*c)
	return true
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.conversations, func(c model.Conversation) bool { return c.ID == id })
}

func (s *Store) user() *model.User {
	if s.identity == nil {
		return nil
	}
	return s.identity.User()
}

// persistLocked writes the full list to the cache and mirrors conv.
func (s *Store) persistLocked(conv model.Conversation) {
	s.writeCacheLocked()
	if s.mirror == nil {
		return
	}
	if conv.Participants.UserID == "" {
		s.logger.Debug("conversation has no owner, not mirrored", "conversation_id", conv.ID)
		return
	}
	s.mirror.Upsert(conv)
}

func (s *Store) writeCacheLocked() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(localcache.KeyConversations, s.conversations); err != nil {
		s.logger.Error("failed to cache conversations", "error", err)
	}
}

// mostRecent returns the id of the most recently updated conversation.
func mostRecent(convs []model.Conversation) string {
	best := -1
	for i, c := range convs {
		if best < 0 || c.UpdatedAt > convs[best].UpdatedAt {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return convs[best].ID
}

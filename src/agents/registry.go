// Package agents is the in-memory agent registry. Every mutation writes the
// complete agent list through to the local cache.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/lithammer/shortuuid/v4"

	"github.com/elee1766/parley/src/generator"
	"github.com/elee1766/parley/src/localcache"
	"github.com/elee1766/parley/src/model"
)

// Store persists the agent list.
type Store interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
}

// TokenCounter estimates the token length of a text.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) int
}

type estimator struct{}

func (estimator) CountTokens(_ context.Context, text string) int {
	return generator.Estimate(text)
}

// Config configures a Registry.
type Config struct {
	Store   Store
	Counter TokenCounter
	Logger  *slog.Logger
}

// Registry holds agent definitions.
type Registry struct {
	store   Store
	counter TokenCounter
	logger  *slog.Logger

	mu     sync.RWMutex
	agents []model.Agent
}

// New creates an empty registry. Call Load to restore cached agents.
func New(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Counter == nil {
		cfg.Counter = estimator{}
	}
	return &Registry{
		store:   cfg.Store,
		counter: cfg.Counter,
		logger:  cfg.Logger.With("component", "agents"),
		agents:  []model.Agent{},
	}
}

func newID(prefix string) string {
	return prefix + "-" + shortuuid.New()
}

// Load replaces the registry contents with the cached agent list.
func (r *Registry) Load() error {
	var stored []model.Agent
	ok, err := r.store.Get(localcache.KeyAgents, &stored)
	if err != nil {
		return fmt.Errorf("failed to load agents: %w", err)
	}
	if !ok {
		return nil
	}
	for i := range stored {
		if stored[i].KnowledgeBase == nil {
			stored[i].KnowledgeBase = []model.KnowledgeItem{}
		}
		if stored[i].Tools == nil {
			stored[i].Tools = []model.Tool{}
		}
	}
	r.mu.Lock()
	r.agents = stored
	r.mu.Unlock()
	r.logger.Debug("loaded agents", "count", len(stored))
	return nil
}

// List returns a copy of every agent in creation order.
func (r *Registry) List() []model.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Agent, len(r.agents))
	for i, a := range r.agents {
		out[i] = a.Clone()
	}
	return out
}

// Get returns the agent with the given id.
func (r *Registry) Get(id string) (model.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.index(id); i >= 0 {
		return r.agents[i].Clone(), true
	}
	return model.Agent{}, false
}

// Names returns the display names of the given agents, skipping unknown ids.
func (r *Registry) Names(ids []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if i := r.index(id); i >= 0 {
			names = append(names, r.agents[i].Name)
		}
	}
	return names
}

// Create adds a new agent with a fresh id. Persistence failures are logged.
func (r *Registry) Create(ctx context.Context, in model.AgentInput) model.Agent {
	agent := model.Agent{
		ID:                    newID("agent"),
		Name:                  in.Name,
		Avatar:                in.Avatar,
		Model:                 in.Model,
		Description:           in.Description,
		Instructions:          in.Instructions,
		InstructionTokenCount: r.counter.CountTokens(ctx, in.Instructions),
		IsActive:              in.IsActive,
		KnowledgeBase:         []model.KnowledgeItem{},
		Tools:                 []model.Tool{},
	}
	for _, k := range in.KnowledgeBase {
		if k.ID == "" {
			k.ID = newID("knowledge")
		}
		agent.KnowledgeBase = append(agent.KnowledgeBase, k)
	}
	for _, t := range in.Tools {
		if t.ID == "" {
			t.ID = newID("tool")
		}
		agent.Tools = append(agent.Tools, t)
	}

	r.mu.Lock()
	r.agents = append(r.agents, agent)
	r.persistLocked()
	r.mu.Unlock()

	r.logger.Info("agent created", "agent_id", agent.ID, "name", agent.Name)
	return agent.Clone()
}

// Update merges u into the agent. It reports false when the agent is absent.
func (r *Registry) Update(ctx context.Context, id string, u model.AgentUpdate) bool {
	tokens := -1
	if u.Instructions != nil {
		tokens = r.counter.CountTokens(ctx, *u.Instructions)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		r.logger.Debug("update of unknown agent ignored", "agent_id", id)
		return false
	}
	if u.Apply(&r.agents[i]) && tokens >= 0 {
		r.agents[i].InstructionTokenCount = tokens
	}
	r.persistLocked()
	return true
}

// Delete removes the agent. Conversations keep referencing its id.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		r.logger.Debug("delete of unknown agent ignored", "agent_id", id)
		return false
	}
	r.agents = slices.Delete(r.agents, i, i+1)
	r.persistLocked()
	r.logger.Info("agent deleted", "agent_id", id)
	return true
}

// AddKnowledgeItem appends a knowledge item to the agent.
func (r *Registry) AddKnowledgeItem(agentID string, in model.KnowledgeItemInput) (model.KnowledgeItem, bool) {
	item := model.KnowledgeItem{
		ID:      newID("knowledge"),
		Name:    in.Name,
		Content: in.Content,
		Type:    in.Type,
		Size:    in.Size,
	}
	if item.Type == "" {
		item.Type = model.KnowledgeText
	}

	ok := r.mutate(agentID, func(a *model.Agent) bool {
		a.KnowledgeBase = append(a.KnowledgeBase, item)
		return true
	})
	return item, ok
}

// RemoveKnowledgeItem deletes a knowledge item from the agent.
func (r *Registry) RemoveKnowledgeItem(agentID, itemID string) bool {
	return r.mutate(agentID, func(a *model.Agent) bool {
		i := slices.IndexFunc(a.KnowledgeBase, func(k model.KnowledgeItem) bool { return k.ID == itemID })
		if i < 0 {
			return false
		}
		a.KnowledgeBase = slices.Delete(a.KnowledgeBase, i, i+1)
		return true
	})
}

// AddTool appends a tool to the agent.
func (r *Registry) AddTool(agentID string, in model.ToolInput) (model.Tool, bool) {
	tool := model.Tool{
		ID:          newID("tool"),
		Name:        in.Name,
		Description: in.Description,
		Parameters:  append([]model.ToolParameter{}, in.Parameters...),
		IsActive:    in.IsActive,
		Script:      in.Script,
	}
	ok := r.mutate(agentID, func(a *model.Agent) bool {
		a.Tools = append(a.Tools, tool)
		return true
	})
	return tool, ok
}

// UpdateTool merges u into one of the agent's tools.
func (r *Registry) UpdateTool(agentID, toolID string, u model.ToolUpdate) bool {
	return r.mutate(agentID, func(a *model.Agent) bool {
		i := slices.IndexFunc(a.Tools, func(t model.Tool) bool { return t.ID == toolID })
		if i < 0 {
			return false
		}
		u.Apply(&a.Tools[i])
		return true
	})
}

// RemoveTool deletes a tool from the agent.
func (r *Registry) RemoveTool(agentID, toolID string) bool {
	return r.mutate(agentID, func(a *model.Agent) bool {
		i := slices.IndexFunc(a.Tools, func(t model.Tool) bool { return t.ID == toolID })
		if i < 0 {
			return false
		}
		a.Tools = slices.Delete(a.Tools, i, i+1)
		return true
	})
}

// mutate applies fn to the agent and persists when fn reports a change.
func (r *Registry) mutate(agentID string, fn func(a *model.Agent) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(agentID)
	if i < 0 {
		r.logger.Debug("mutation of unknown agent ignored", "agent_id", agentID)
		return false
	}
	if !fn(&r.agents[i]) {
		r.logger.Debug("mutation target not found", "agent_id", agentID)
		return false
	}
	r.persistLocked()
	return true
}

func (r *Registry) index(id string) int {
	return slices.IndexFunc(r.agents, func(a model.Agent) bool { return a.ID == id })
}

func (r *Registry) persistLocked() {
	if err := r.store.Set(localcache.KeyAgents, r.agents); err != nil {
		r.logger.Error("failed to persist agents", "error", err)
	}
}

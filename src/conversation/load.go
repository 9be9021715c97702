package conversation

import (
	"context"

	"github.com/elee1766/parley/src/localcache"
	"github.com/elee1766/parley/src/model"
)

// Source tells where Load found the conversations.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceCache   Source = "cache"
	SourceDefault Source = "default"
)

// Load rehydrates the store: from the record store when it has data for the
// user, else from the local cache, else with a fresh default conversation.
// The most recently updated conversation becomes current. Load never fails;
// every degraded path is logged.
func (s *Store) Load(ctx context.Context) Source {
	user := s.user()

	if convs := s.loadRemote(ctx, user); len(convs) > 0 {
		s.replace(convs, true)
		s.logger.Info("loaded conversations", "source", SourceRemote, "count", len(convs))
		return SourceRemote
	}

	if convs := s.loadCache(user); len(convs) > 0 {
		adopted := adopt(convs, user)
		s.replace(convs, len(adopted) > 0)
		s.upload(adopted)
		s.logger.Info("loaded conversations", "source", SourceCache, "count", len(convs), "adopted", len(adopted))
		return SourceCache
	}

	s.replace(nil, false)
	s.CreateNew()
	s.logger.Info("no stored conversations, created default")
	return SourceDefault
}

func (s *Store) loadRemote(ctx context.Context, user *model.User) []model.Conversation {
	if s.mirror == nil || user == nil {
		return nil
	}
	convs, err := s.mirror.Load(ctx, user.ID)
	if err != nil {
		s.logger.Warn("record store unavailable, falling back to cache", "error", err)
		return nil
	}
	return convs
}

func (s *Store) loadCache(user *model.User) []model.Conversation {
	if s.cache == nil {
		return nil
	}
	var convs []model.Conversation
	ok, err := s.cache.Get(localcache.KeyConversations, &convs)
	if err != nil {
		s.logger.Warn("failed to read cached conversations", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	if user == nil {
		return convs
	}
	// Conversations owned by another user stay in the cache but are not shown.
	out := convs[:0]
	for _, c := range convs {
		if c.Participants.UserID == "" || c.Participants.UserID == user.ID {
			out = append(out, c)
		}
	}
	return out
}

// adopt gives conversations created before login to user and returns their
// ids.
func adopt(convs []model.Conversation, user *model.User) []string {
	if user == nil {
		return nil
	}
	var ids []string
	for i := range convs {
		if convs[i].Participants.UserID == "" {
			convs[i].Participants.UserID = user.ID
			ids = append(ids, convs[i].ID)
		}
	}
	return ids
}

// upload queues record store upserts for the given conversations.
func (s *Store) upload(ids []string) {
	if s.mirror == nil || len(ids) == 0 {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range ids {
		if i := s.index(id); i >= 0 {
			s.mirror.Upsert(s.conversations[i])
		}
	}
}

// replace swaps in a loaded list. Remote data is written through to the cache.
func (s *Store) replace(convs []model.Conversation, writeCache bool) {
	for i := range convs {
		normalize(&convs[i])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = convs
	s.currentID = mostRecent(convs)
	if writeCache {
		s.writeCacheLocked()
	}
}

func normalize(c *model.Conversation) {
	if c.Messages == nil {
		c.Messages = []model.Message{}
	}
	if c.Participants.AgentIDs == nil {
		c.Participants.AgentIDs = []string{}
	}
	for i := range c.Messages {
		c.Messages[i].ConversationID = c.ID
		if c.Messages[i].Mentions == nil {
			c.Messages[i].Mentions = []string{}
		}
		if c.Messages[i].AssignedTo == nil {
			c.Messages[i].AssignedTo = []string{}
		}
	}
}

package conversation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/elee1766/parley/src/model"
)

// SendResult reports what a SendMessage call appended.
type SendResult struct {
	UserMessage model.Message
	// Replies holds every agent message appended, failure notes included.
	Replies []model.Message
	// Failures holds one *model.GenerationError per agent that could not reply.
	Failures []error
}

// AssignedTo computes the agents a message is assigned to. Tasks without
// mentions go to every agent in the conversation.
func AssignedTo(isTask bool, mentions, agentIDs []string) []string {
	if isTask && len(mentions) == 0 {
		return nonNil(agentIDs)
	}
	return nonNil(mentions)
}

// RespondingAgents returns, in conversation order, the agents expected to
// reply. An empty assignment is a broadcast.
func RespondingAgents(agentIDs, assignedTo []string) []string {
	out := make([]string, 0, len(agentIDs))
	for _, id := range agentIDs {
		if len(assignedTo) == 0 || slices.Contains(assignedTo, id) {
			out = append(out, id)
		}
	}
	return out
}

func (s *Store) sendLock(conversationID string) *sync.Mutex {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	l, ok := s.sendLocks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		s.sendLocks[conversationID] = l
	}
	return l
}

// SendMessage appends a user message to the current conversation and then
// asks each responding agent for a reply, one at a time. Calls on the same
// conversation are serialized. Generation failures are recorded as agent
// messages and notifications and are never returned as errors.
func (s *Store) SendMessage(ctx context.Context, content string, mentions []string, isTask bool) (SendResult, error) {
	user := s.user()
	if user == nil {
		s.logger.Debug("send ignored: not authenticated")
		return SendResult{}, model.ErrUnauthenticated
	}
	convID := s.CurrentID()
	if convID == "" {
		s.logger.Debug("send ignored: no current conversation")
		return SendResult{}, model.ErrNoConversation
	}

	lock := s.sendLock(convID)
	lock.Lock()
	defer lock.Unlock()

	s.processing.Add(1)
	defer s.processing.Add(-1)

	conv, ok := s.Get(convID)
	if !ok {
		return SendResult{}, fmt.Errorf("conversation %s: %w", convID, model.ErrNotFound)
	}
	history := conv.Messages
	assigned := AssignedTo(isTask, mentions, conv.Participants.AgentIDs)

	userMsg, ok := s.AddMessage(convID, model.MessageInput{
		Content: content,
		Sender: model.Sender{
			ID:     user.ID,
			Name:   user.Name,
			Type:   model.SenderUser,
			Avatar: user.Avatar,
		},
		Mentions:   mentions,
		AssignedTo: assigned,
		IsTask:     isTask,
	})
	if !ok {
		return SendResult{}, fmt.Errorf("conversation %s: %w", convID, model.ErrNotFound)
	}
	result := SendResult{UserMessage: userMsg}

	for _, agentID := range RespondingAgents(conv.Participants.AgentIDs, assigned) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		agent, ok := s.agents.Get(agentID)
		if !ok {
			s.logger.Debug("skipping unknown agent", "agent_id", agentID, "conversation_id", convID)
			continue
		}
		reply, err := s.reply(ctx, convID, agent, history, userMsg)
		if err != nil {
			result.Failures = append(result.Failures, err)
		}
		if reply.ID != "" {
			result.Replies = append(result.Replies, reply)
		}
	}
	return result, nil
}

// reply generates and appends one agent reply. On failure a message
// describing the error is appended in the agent's name instead.
func (s *Store) reply(ctx context.Context, convID string, agent model.Agent, history []model.Message, userMsg model.Message) (model.Message, error) {
	s.callbacks.AgentStart(agent)

	prompt := s.prompts.Build(ctx, agent, history, userMsg.Content)
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	text, err := s.gen.Generate(callCtx, prompt, agent.Model)
	cancel()

	sender := model.Sender{ID: agent.ID, Name: agent.Name, Type: model.SenderAgent, Avatar: agent.Avatar}
	if err == nil {
		msg, _ := s.AddMessage(convID, model.MessageInput{Content: text, Sender: sender, InReplyTo: userMsg.ID})
		return msg, nil
	}

	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("no response within %s: %w", s.timeout, err)
	}
	genErr := &model.GenerationError{AgentID: agent.ID, Model: agent.Model, Err: err}
	s.logger.Error("agent failed to respond", "agent_id", agent.ID, "model", agent.Model, "conversation_id", convID, "error", err)

	msg, _ := s.AddMessage(convID, model.MessageInput{
		Content:   fmt.Sprintf("Sorry, I couldn't generate a response: %v", err),
		Sender:    sender,
		InReplyTo: userMsg.ID,
	})
	s.notifier.Notify(Notification{
		Title:          "Generation failed",
		Message:        fmt.Sprintf("%s could not respond: %v", agent.Name, err),
		ConversationID: convID,
		AgentID:        agent.ID,
		Err:            genErr,
	})
	return msg, genErr
}

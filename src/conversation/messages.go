package conversation

import (
	"slices"

	"github.com/google/uuid"

	"github.com/elee1766/parley/src/model"
)

// AddMessage appends a message with a fresh id. Unknown conversations are
// logged and ignored.
func (s *Store) AddMessage(conversationID string, in model.MessageInput) (model.Message, bool) {
	msg := model.Message{
		ID:              uuid.NewString(),
		ConversationID:  conversationID,
		Content:         in.Content,
		Sender:          in.Sender,
		Mentions:        nonNil(in.Mentions),
		AssignedTo:      nonNil(in.AssignedTo),
		Timestamp:       in.Timestamp,
		IsTask:          in.IsTask,
		ParentMessageID: in.ParentMessageID,
		InReplyTo:       in.InReplyTo,
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = model.NowMillis()
	}
	if in.FileAttachment != nil {
		fa := *in.FileAttachment
		msg.FileAttachment = &fa
	}

	ok := s.mutate(conversationID, func(c *model.Conversation) bool {
		c.Messages = append(c.Messages, msg)
		return true
	})
	if !ok {
		s.logger.Warn("message for unknown conversation dropped", "conversation_id", conversationID)
		return model.Message{}, false
	}
	s.callbacks.Message(msg)
	return msg.Clone(), true
}

// UpdateMessage merges u into one message. Missing ids are a no-op.
func (s *Store) UpdateMessage(conversationID, messageID string, u model.MessageUpdate) bool {
	return s.mutate(conversationID, func(c *model.Conversation) bool {
		i := c.FindMessage(messageID)
		if i < 0 {
			s.logger.Debug("update: unknown message", "conversation_id", conversationID, "message_id", messageID)
			return false
		}
		u.Apply(&c.Messages[i])
		return true
	})
}

// DeleteMessage removes one message. Missing ids are a no-op.
func (s *Store) DeleteMessage(conversationID, messageID string) bool {
	return s.mutate(conversationID, func(c *model.Conversation) bool {
		i := c.FindMessage(messageID)
		if i < 0 {
			s.logger.Debug("delete: unknown message", "conversation_id", conversationID, "message_id", messageID)
			return false
		}
		c.Messages = slices.Delete(c.Messages, i, i+1)
		return true
	})
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return slices.Clone(ss)
}

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elee1766/parley/src/model"
	"github.com/georgysavva/scany/v2/sqlscan"
)

// TimeLayout is the fixed-width ISO8601 form used for created_at/updated_at,
// so lexical order matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatMillis renders Unix milliseconds in TimeLayout.
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(TimeLayout)
}

// ParseMillis parses an ISO8601 timestamp into Unix milliseconds.
func ParseMillis(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

// RecordFromConversation converts a conversation into its row form.
func RecordFromConversation(c model.Conversation) (ConversationRecord, error) {
	msgs := c.Messages
	if msgs == nil {
		msgs = []model.Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return ConversationRecord{}, fmt.Errorf("failed to encode messages: %w", err)
	}
	return ConversationRecord{
		ID:        c.ID,
		Title:     c.Title,
		UserID:    c.Participants.UserID,
		AgentIDs:  JSONStringArray(c.Participants.AgentIDs),
		Messages:  string(data),
		CreatedAt: FormatMillis(c.CreatedAt),
		UpdatedAt: FormatMillis(c.UpdatedAt),
	}, nil
}

// Conversation converts the row back into a conversation.
func (r ConversationRecord) Conversation() (model.Conversation, error) {
	var msgs []model.Message
	if r.Messages != "" {
		if err := json.Unmarshal([]byte(r.Messages), &msgs); err != nil {
			return model.Conversation{}, fmt.Errorf("failed to decode messages of %s: %w", r.ID, err)
		}
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	created, err := ParseMillis(r.CreatedAt)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("invalid created_at on %s: %w", r.ID, err)
	}
	updated, err := ParseMillis(r.UpdatedAt)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("invalid updated_at on %s: %w", r.ID, err)
	}
	agentIDs := []string(r.AgentIDs)
	if agentIDs == nil {
		agentIDs = []string{}
	}
	return model.Conversation{
		ID:    r.ID,
		Title: r.Title,
		Participants: model.Participants{
			UserID:   r.UserID,
			AgentIDs: agentIDs,
		},
		CreatedAt: created,
		UpdatedAt: updated,
		Messages:  msgs,
	}, nil
}

// UpsertConversation inserts the record or replaces the existing row with the same id
func UpsertConversation(ctx context.Context, db Execer, d Dialect, rec *ConversationRecord) error {
	if rec.AgentIDs == nil {
		rec.AgentIDs = JSONStringArray{}
	}
	if rec.Messages == "" {
		rec.Messages = "[]"
	}
	_, err := db.ExecContext(ctx, d.upsertConversationSQL(),
		rec.ID, rec.Title, rec.UserID, rec.AgentIDs, rec.Messages, rec.CreatedAt, rec.UpdatedAt)
	return err
}

// GetConversationsForUser returns every conversation owned by userID, most recently updated first
func GetConversationsForUser(ctx context.Context, db sqlscan.Querier, d Dialect, userID string) ([]*ConversationRecord, error) {
	query := d.Rebind(`SELECT id, title, user_id, agent_ids, messages, created_at, updated_at FROM conversations WHERE user_id = ? ORDER BY updated_at DESC`)
	var records []*ConversationRecord
	if err := sqlscan.Select(ctx, db, &records, query, userID); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteConversation removes the conversation when it belongs to userID
func DeleteConversation(ctx context.Context, db Execer, d Dialect, id, userID string) error {
	query := d.Rebind(`DELETE FROM conversations WHERE id = ? AND user_id = ?`)
	_, err := db.ExecContext(ctx, query, id, userID)
	return err
}

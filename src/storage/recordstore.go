package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/elee1766/parley/src/model"
)

// RecordStore is the per-user conversation store. It tolerates a missing
// schema: reads return nothing and deletes succeed until the table exists.
type RecordStore struct {
	db          *DB
	logger      *slog.Logger
	schemaReady atomic.Bool
}

// NewRecordStore wraps an open database.
func NewRecordStore(db *DB, logger *slog.Logger) *RecordStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStore{
		db:     db,
		logger: logger.With("component", "record_store"),
	}
}

// checkSchema runs the capability query until it first succeeds.
func (s *RecordStore) checkSchema(ctx context.Context) error {
	if s.schemaReady.Load() {
		return nil
	}
	if err := s.db.Probe(ctx); err != nil {
		return err
	}
	s.schemaReady.Store(true)
	return nil
}

// Upsert stores the conversation, replacing any previous version.
func (s *RecordStore) Upsert(ctx context.Context, conv model.Conversation) error {
	if err := s.checkSchema(ctx); err != nil {
		if errors.Is(err, ErrSchemaMissing) {
			return fmt.Errorf("%w: %w", model.ErrRemoteStoreUnavailable, err)
		}
		return err
	}
	rec, err := RecordFromConversation(conv)
	if err != nil {
		return err
	}
	if err := UpsertConversation(ctx, s.db.db, s.db.dialect, &rec); err != nil {
		return fmt.Errorf("%w: upsert %s: %v", model.ErrRemoteStoreUnavailable, conv.ID, err)
	}
	return nil
}

// LoadForUser returns the user's conversations, most recently updated first.
// Rows that fail to decode are skipped.
func (s *RecordStore) LoadForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	if err := s.checkSchema(ctx); err != nil {
		if errors.Is(err, ErrSchemaMissing) {
			s.logger.Info("conversations table missing, treating as empty")
			return nil, nil
		}
		return nil, err
	}
	records, err := GetConversationsForUser(ctx, s.db.db, s.db.dialect, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: select: %v", model.ErrRemoteStoreUnavailable, err)
	}
	convs := make([]model.Conversation, 0, len(records))
	for _, rec := range records {
		conv, err := rec.Conversation()
		if err != nil {
			s.logger.Warn("skipping undecodable conversation record", "id", rec.ID, "error", err)
			continue
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

// Delete removes the user's conversation.
func (s *RecordStore) Delete(ctx context.Context, id, userID string) error {
	if err := s.checkSchema(ctx); err != nil {
		if errors.Is(err, ErrSchemaMissing) {
			return nil
		}
		return err
	}
	if err := DeleteConversation(ctx, s.db.db, s.db.dialect, id, userID); err != nil {
		return fmt.Errorf("%w: delete %s: %v", model.ErrRemoteStoreUnavailable, id, err)
	}
	return nil
}

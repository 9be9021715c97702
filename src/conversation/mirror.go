package conversation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/elee1766/parley/src/model"
)

// Remote is the persistent record store.
type Remote interface {
	Upsert(ctx context.Context, conv model.Conversation) error
	LoadForUser(ctx context.Context, userID string) ([]model.Conversation, error)
	Delete(ctx context.Context, id, userID string) error
}

// ErrMirrorClosed is returned by Flush after Close.
var ErrMirrorClosed = errors.New("mirror closed")

// DefaultWriteTimeout bounds one record store write.
const DefaultWriteTimeout = 10 * time.Second

type opKind int

const (
	opUpsert opKind = iota
	opDelete
	opBarrier
)

type mirrorOp struct {
	kind   opKind
	conv   model.Conversation
	id     string
	userID string
	done   chan struct{}
}

// MirrorConfig configures a Mirror.
type MirrorConfig struct {
	Remote       Remote
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// Mirror replays conversation writes to the record store on a single
// background goroutine, in submission order. Enqueueing never blocks and
// write failures are logged, never returned.
type Mirror struct {
	remote  Remote
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	pending []mirrorOp
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

// NewMirror starts a mirror. Close must be called to stop its goroutine.
func NewMirror(cfg MirrorConfig) *Mirror {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	m := &Mirror{
		remote:  cfg.Remote,
		timeout: cfg.WriteTimeout,
		logger:  cfg.Logger.With("component", "mirror"),
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go m.run()
	return m
}

// Upsert queues a conversation upsert.
func (m *Mirror) Upsert(conv model.Conversation) {
	m.enqueue(mirrorOp{kind: opUpsert, conv: conv.Clone()})
}

// Delete queues a conversation delete.
func (m *Mirror) Delete(id, userID string) {
	m.enqueue(mirrorOp{kind: opDelete, id: id, userID: userID})
}

func (m *Mirror) enqueue(op mirrorOp) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Debug("mirror closed, dropping write")
		return false
	}
	m.pending = append(m.pending, op)
	select {
	case m.wake <- struct{}{}:
	default:
	}
	m.mu.Unlock()
	return true
}

// Flush waits until every write queued before the call has been attempted.
func (m *Mirror) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !m.enqueue(mirrorOp{kind: opBarrier, done: done}) {
		return ErrMirrorClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close attempts the queued writes and stops the mirror.
func (m *Mirror) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.wake)
	}
	m.mu.Unlock()

	select {
	case <-m.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load reads the user's conversations directly from the record store.
func (m *Mirror) Load(ctx context.Context, userID string) ([]model.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.remote.LoadForUser(ctx, userID)
}

func (m *Mirror) run() {
	defer close(m.stopped)
	for {
		_, open := <-m.wake
		for {
			m.mu.Lock()
			if len(m.pending) == 0 {
				m.mu.Unlock()
				break
			}
			op := m.pending[0]
			m.pending = m.pending[1:]
			m.mu.Unlock()
			m.apply(op)
		}
		if !open {
			return
		}
	}
}

func (m *Mirror) apply(op mirrorOp) {
	if op.kind == opBarrier {
		close(op.done)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var err error
	switch op.kind {
	case opUpsert:
		err = m.remote.Upsert(ctx, op.conv)
		op.id = op.conv.ID
	case opDelete:
		err = m.remote.Delete(ctx, op.id, op.userID)
	}
	if err == nil {
		return
	}
	if errors.Is(err, model.ErrRemoteStoreUnavailable) {
		m.logger.Warn("record store unavailable, keeping local state", "conversation_id", op.id, "error", err)
		return
	}
	m.logger.Warn("record store write failed", "conversation_id", op.id, "error", err)
}

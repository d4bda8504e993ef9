package undo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/errors"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/logger"
)

// DefaultHistoryLimit bounds the per-session past stack.
const DefaultHistoryLimit = 50

// Recorder is the write side of the undo log. Services call it after a
// transaction commits.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// OpFunc replays one declarative payload.
type OpFunc func(ctx context.Context, args map[string]any) error

type sessionLog struct {
	past    []Entry
	future  []Entry
	touched time.Time
}

// ManagerParams groups dependencies for the undo manager.
type ManagerParams struct {
	Logger       *logger.Logger
	HistoryLimit int
	SessionTTL   time.Duration
}

// Manager keeps per-session undo state in process memory and replays
// payloads through registered operations.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*sessionLog
	ops      map[string]OpFunc
	logg     *logger.Logger
	limit    int
	ttl      time.Duration
}

// NewManager builds an undo manager.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	limit := params.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Manager{
		sessions: make(map[string]*sessionLog),
		ops:      make(map[string]OpFunc),
		logg:     params.Logger,
		limit:    limit,
		ttl:      params.SessionTTL,
	}, nil
}

// RegisterOp binds a payload op name to its executor. Registration happens at
// wiring time, before the manager serves requests.
func (m *Manager) RegisterOp(name string, fn OpFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[name] = fn
}

// Record appends an entry to the session's past stack and clears the future
// stack. Entries produced during replay are dropped so undo does not feed
// itself.
func (m *Manager) Record(ctx context.Context, entry Entry) {
	if isReplay(ctx) {
		return
	}
	sessionID := SessionFromContext(ctx)
	if sessionID == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeExpiredLocked()

	log := m.sessionLocked(sessionID)
	log.past = append(log.past, entry)
	if len(log.past) > m.limit {
		log.past = log.past[len(log.past)-m.limit:]
	}
	log.future = nil
}

// Undo pops the most recent entry, executes its inverse payload, and moves it
// to the future stack. Returns nil when there is nothing to undo.
func (m *Manager) Undo(ctx context.Context) (*Entry, error) {
	sessionID := SessionFromContext(ctx)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "undo requires a session id")
	}

	m.mu.Lock()
	log := m.sessionLocked(sessionID)
	if len(log.past) == 0 {
		m.mu.Unlock()
		return nil, nil
	}
	entry := log.past[len(log.past)-1]
	fn, ok := m.ops[entry.Inverse.Op]
	m.mu.Unlock()

	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInvariant, "no executor registered for op "+entry.Inverse.Op)
	}
	if err := fn(markReplay(ctx), entry.Inverse.Args); err != nil {
		return nil, err
	}

	// The mutex is released while the inverse runs, so the stack may have
	// shifted under us. Remove the executed entry by identity, not position.
	m.mu.Lock()
	log.past = removeEntry(log.past, entry.ID)
	log.future = append(log.future, entry)
	m.mu.Unlock()

	m.logg.Info(m.logg.WithField(ctx, "undo_entry", entry.Type.String()), "undo applied")
	return &entry, nil
}

// Redo pops the most recent undone entry, re-executes its forward payload,
// and moves it back to the past stack. Returns nil when there is nothing to
// redo.
func (m *Manager) Redo(ctx context.Context) (*Entry, error) {
	sessionID := SessionFromContext(ctx)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redo requires a session id")
	}

	m.mu.Lock()
	log := m.sessionLocked(sessionID)
	if len(log.future) == 0 {
		m.mu.Unlock()
		return nil, nil
	}
	entry := log.future[len(log.future)-1]
	fn, ok := m.ops[entry.Forward.Op]
	m.mu.Unlock()

	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInvariant, "no executor registered for op "+entry.Forward.Op)
	}
	if err := fn(markReplay(ctx), entry.Forward.Args); err != nil {
		return nil, err
	}

	m.mu.Lock()
	log.future = removeEntry(log.future, entry.ID)
	log.past = append(log.past, entry)
	m.mu.Unlock()

	m.logg.Info(m.logg.WithField(ctx, "undo_entry", entry.Type.String()), "redo applied")
	return &entry, nil
}

// History returns the past stack newest-first.
func (m *Manager) History(ctx context.Context) []Entry {
	sessionID := SessionFromContext(ctx)
	if sessionID == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	log.touched = time.Now()

	out := make([]Entry, 0, len(log.past))
	for i := len(log.past) - 1; i >= 0; i-- {
		out = append(out, log.past[i])
	}
	return out
}

// removeEntry drops the entry with the given id, scanning newest-first.
func removeEntry(stack []Entry, id uuid.UUID) []Entry {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].ID == id {
			return append(stack[:i], stack[i+1:]...)
		}
	}
	return stack
}

func (m *Manager) sessionLocked(sessionID string) *sessionLog {
	log, ok := m.sessions[sessionID]
	if !ok {
		log = &sessionLog{}
		m.sessions[sessionID] = log
	}
	log.touched = time.Now()
	return log
}

func (m *Manager) purgeExpiredLocked() {
	if m.ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-m.ttl)
	for id, log := range m.sessions {
		if log.touched.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

package infra

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/medvani/webchat/internal/ports"
)

const placeholderTitle = "New chat"

// memorySessionRepo — сессии в памяти процесса; дефолт для dev-стенда
// без DATABASE_URL.
type memorySessionRepo struct {
	mu       sync.Mutex
	sessions []ports.SessionRecord
}

func NewMemorySessionRepo() ports.SessionRepo {
	return &memorySessionRepo{}
}

func (r *memorySessionRepo) ListByUser(_ context.Context, userID string) ([]ports.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ports.SessionRecord
	for _, s := range r.sessions {
		if s.UserID != userID {
			continue
		}
		out = append(out, ports.SessionRecord{
			ID:        s.ID,
			UserID:    s.UserID,
			Title:     s.Title,
			UpdatedAt: s.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *memorySessionRepo) find(sessionID string) *ports.SessionRecord {
	for i := range r.sessions {
		if r.sessions[i].ID == sessionID {
			return &r.sessions[i]
		}
	}
	return nil
}

func (r *memorySessionRepo) Get(_ context.Context, sessionID, userID string) (*ports.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(sessionID)
	if s == nil || s.UserID != userID {
		return nil, ports.ErrSessionNotFound
	}
	out := *s
	out.Turns = append([]ports.Turn(nil), s.Turns...)
	return &out, nil
}

func (r *memorySessionRepo) FindEmpty(_ context.Context, userID string) (*ports.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.sessions {
		s := &r.sessions[i]
		if s.UserID == userID && s.Title == placeholderTitle && len(s.Turns) == 0 {
			out := *s
			return &out, nil
		}
	}
	return nil, ports.ErrSessionNotFound
}

func (r *memorySessionRepo) Insert(_ context.Context, rec ports.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// новые сессии в начало
	r.sessions = append([]ports.SessionRecord{rec}, r.sessions...)
	return nil
}

func (r *memorySessionRepo) Delete(_ context.Context, sessionID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.sessions[:0]
	for _, s := range r.sessions {
		if !(s.ID == sessionID && s.UserID == userID) {
			kept = append(kept, s)
		}
	}
	r.sessions = kept
	return nil
}

func (r *memorySessionRepo) AppendTurn(_ context.Context, sessionID, userID string, turn ports.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(sessionID)
	if s == nil {
		r.sessions = append([]ports.SessionRecord{{
			ID:        sessionID,
			UserID:    userID,
			Title:     placeholderTitle,
			UpdatedAt: turn.At,
			Turns:     []ports.Turn{turn},
		}}, r.sessions...)
		return nil
	}
	s.Turns = append(s.Turns, turn)
	s.UpdatedAt = turn.At
	return nil
}

func (r *memorySessionRepo) Title(_ context.Context, sessionID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(sessionID)
	if s == nil {
		return "", ports.ErrSessionNotFound
	}
	return s.Title, nil
}

func (r *memorySessionRepo) TurnCount(_ context.Context, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(sessionID)
	if s == nil {
		return 0, ports.ErrSessionNotFound
	}
	return len(s.Turns), nil
}

func (r *memorySessionRepo) SetTitleIfPlaceholder(_ context.Context, sessionID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(sessionID)
	if s == nil || s.Title != placeholderTitle {
		return nil
	}
	s.Title = title
	s.UpdatedAt = time.Now().UTC()
	return nil
}

package sessions

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/medvani/webchat/internal/backend"
	"github.com/medvani/webchat/internal/store"
)

// PlaceholderTitle подставляется, когда сервер не прислал заголовок.
const PlaceholderTitle = "New chat"

// Service выравнивает набор сессий в Store с бэкендом. Удалённые сбои
// не блокируют работу: вместо них синтезируется локальная сессия.
type Service struct {
	api   backend.SessionAPI
	store *store.Store

	mu        sync.Mutex
	detailGen uint64
}

func NewService(api backend.SessionAPI, st *store.Store) *Service {
	return &Service{
		api:   api,
		store: st,
	}
}

func localSessionID() string {
	return "local-" + uuid.NewString()
}

// LoadSessions запрашивает список сессий пользователя. При сбое, если
// активной сессии нет, кладёт ровно одну локальную, чтобы интерфейсу
// всегда было с чем работать; активная остаётся пустой.
func (s *Service) LoadSessions(ctx context.Context, userID string) {
	remote, err := s.api.ListSessions(ctx, userID)
	if err != nil {
		log.Printf("[sessions] list failed: %v", err)
		if s.store.ActiveSession() == "" {
			s.store.SetSessions([]store.Session{{
				ID:    localSessionID(),
				Title: PlaceholderTitle,
			}})
		}
		return
	}

	list := make([]store.Session, 0, len(remote))
	for _, r := range remote {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = PlaceholderTitle
		}
		list = append(list, store.Session{
			ID:        r.ID,
			Title:     title,
			UpdatedAt: r.UpdatedAt,
		})
	}
	s.store.SetSessions(list)
}

// LoadSessionMessages подтягивает детали сессии и заменяет её лог.
// Ответ, пережитый более поздним запросом деталей, отбрасывается.
func (s *Service) LoadSessionMessages(ctx context.Context, sessionID, userID string) {
	s.mu.Lock()
	s.detailGen++
	gen := s.detailGen
	s.mu.Unlock()

	detail, err := s.api.SessionDetail(ctx, sessionID, userID)

	s.mu.Lock()
	stale := gen != s.detailGen
	s.mu.Unlock()
	if stale {
		return
	}

	if err != nil {
		log.Printf("[sessions] detail failed for %s: %v", sessionID, err)
		// лучше пустой лог, чем протухший
		s.store.ClearSessionMessages(sessionID)
		return
	}

	msgs := make([]store.Message, 0, len(detail.Messages))
	for _, m := range detail.Messages {
		msgs = append(msgs, store.Message{
			Role: store.Role(m.Role),
			Text: m.Text,
		})
	}
	s.store.SetMessages(sessionID, msgs)

	if title := strings.TrimSpace(detail.Title); title != "" {
		s.store.UpdateSessionTitle(sessionID, title)
	}
}

// SwitchSession делает сессию активной и загружает её лог.
func (s *Service) SwitchSession(ctx context.Context, sessionID, userID string) {
	s.store.SetActiveSession(sessionID)
	s.LoadSessionMessages(ctx, sessionID, userID)
}

// CreateSession создаёт сессию на бэкенде, при сбое — локальную со
// случайным id. В обоих случаях сессия попадает в Store, становится
// активной, композер сбрасывается.
func (s *Service) CreateSession(ctx context.Context, userID string) store.Session {
	sess := store.Session{ID: localSessionID(), Title: PlaceholderTitle}

	remote, err := s.api.CreateSession(ctx, userID)
	if err != nil {
		log.Printf("[sessions] create failed, using local session: %v", err)
	} else {
		title := strings.TrimSpace(remote.Title)
		if title == "" {
			title = PlaceholderTitle
		}
		sess = store.Session{ID: remote.ID, Title: title, UpdatedAt: remote.UpdatedAt}
	}

	s.merge(sess)
	s.store.SetActiveSession(sess.ID)
	s.store.ResetComposer()
	return sess
}

// merge обновляет сессию на месте, если id уже известен, иначе ставит
// её в начало списка.
func (s *Service) merge(sess store.Session) {
	list := s.store.Sessions()
	for i := range list {
		if list[i].ID == sess.ID {
			list[i] = sess
			s.store.SetSessions(list)
			return
		}
	}
	s.store.SetSessions(append([]store.Session{sess}, list...))
}

// DeleteSession шлёт удаление на бэкенд, но из Store сессия убирается
// при любом исходе: локальное состояние следует за намерением
// пользователя, а не за успехом сети.
func (s *Service) DeleteSession(ctx context.Context, sessionID, userID string) {
	if err := s.api.DeleteSession(ctx, sessionID, userID); err != nil {
		log.Printf("[sessions] remote delete failed for %s: %v", sessionID, err)
	}
	s.store.RemoveSession(sessionID)
}

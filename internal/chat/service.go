package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/medvani/webchat/internal/backend"
	"github.com/medvani/webchat/internal/lang"
	"github.com/medvani/webchat/internal/sessions"
	"github.com/medvani/webchat/internal/store"
)

const (
	// текст хода, когда пользователь отправил одни вложения
	attachmentOnlyText = "[attachment]"

	noResponseText   = "No response received. Please try again."
	networkErrorText = "Unable to reach the assistant. Please check your connection and try again."

	// пауза перед обновлением списка: сервер генерирует заголовок асинхронно
	refreshDelay = 1200 * time.Millisecond
)

// Service отправляет ход пользователя на инференс и дописывает ответ
// ассистента. Сетевые сбои поглощаются в диалог, наружу не летят.
type Service struct {
	api      backend.ChatAPI
	store    *store.Store
	sessions *sessions.Service

	// подменяется в тестах
	schedule func(d time.Duration, fn func())
}

func NewService(api backend.ChatAPI, st *store.Store, sess *sessions.Service) *Service {
	return &Service{
		api:      api,
		store:    st,
		sessions: sess,
		schedule: func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
	}
}

// Send собирает ход из композера и отправляет его в активную сессию.
// Без пользователя, либо с пустым вводом и без вложений — no-op.
func (s *Service) Send(ctx context.Context, userID string) {
	if userID == "" {
		return
	}

	// снимок композера до любых побочных эффектов
	text := strings.TrimSpace(s.store.Input())
	media := s.store.Attachments()
	if text == "" && len(media) == 0 {
		return
	}

	sessionID := s.store.ActiveSession()
	if sessionID == "" {
		sessionID = s.sessions.CreateSession(ctx, userID).ID
	}

	userText := text
	if userText == "" {
		userText = attachmentOnlyText
	}

	// оптимистичный ход пользователя до сети
	s.store.AppendMessage(sessionID, store.Message{
		Role:  store.RoleUser,
		Text:  userText,
		Media: media,
	})
	s.store.ResetComposer()

	var lock *string
	if l := s.store.Language(); l != lang.Auto {
		lock = &l
	}

	wire := make([]backend.MediaInput, 0, len(media))
	for _, m := range media {
		kind := string(m.Kind)
		if m.Kind == store.KindDocument {
			// бэкенд не знает kind=document, шлём как текст
			kind = "text"
		}
		wire = append(wire, backend.MediaInput{Kind: kind, Content: m.Content})
	}

	resp, err := s.api.SendChat(ctx, backend.ChatRequest{
		UserID:       userID,
		SessionID:    sessionID,
		Message:      userText,
		LanguageLock: lock,
		Media:        wire,
	})
	if err != nil {
		log.Printf("[chat] send failed: %v", err)
		s.store.AppendMessage(sessionID, store.Message{
			Role: store.RoleAssistant,
			Text: networkErrorText,
		})
	} else {
		reply := strings.TrimSpace(resp.Response)
		if reply == "" {
			reply = noResponseText
		}
		s.store.AppendMessage(sessionID, store.Message{
			Role: store.RoleAssistant,
			Text: reply,
		})
		if title := strings.TrimSpace(resp.Title); title != "" {
			s.store.UpdateSessionTitle(sessionID, title)
		}
	}

	// fire-and-forget: подберёт сгенерированный сервером заголовок
	s.schedule(refreshDelay, func() {
		s.sessions.LoadSessions(context.Background(), userID)
	})
}

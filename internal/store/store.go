package store

import (
	"strings"
	"sync"

	"github.com/medvani/webchat/internal/lang"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type AttachmentKind string

const (
	KindImage    AttachmentKind = "image"
	KindVideo    AttachmentKind = "video"
	KindDocument AttachmentKind = "document"
	KindAudio    AttachmentKind = "audio"
)

// Attachment — бинарное вложение, Content всегда заполнен (base64).
type Attachment struct {
	Kind    AttachmentKind
	Content string
	Name    string
}

// Message неизменяемо после добавления; лог сообщений сессии append-only.
type Message struct {
	Role  Role
	Text  string
	Media []Attachment
}

type Session struct {
	ID        string
	Title     string
	UpdatedAt string // RFC3339, пустая строка = неизвестно
}

// Store — единственный владелец клиентского состояния: набор сессий,
// лог сообщений по сессии, активная сессия и состояние композера.
// Все операции тотальны и не делают I/O.
type Store struct {
	mu       sync.Mutex
	sessions []Session
	messages map[string][]Message
	activeID string

	// композер
	input       string
	attachments []Attachment
	language    string
	notice      string
}

func New() *Store {
	return &Store{
		messages: make(map[string][]Message),
		language: lang.Auto,
	}
}

// === Сессии ===

// SetSessions заменяет набор сессий целиком, не трогая лог сообщений.
func (s *Store) SetSessions(list []Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append([]Session(nil), list...)
}

func (s *Store) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Session(nil), s.sessions...)
}

// SetActiveSession не валидирует id: за существование отвечает вызывающий.
func (s *Store) SetActiveSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
}

// ActiveSession возвращает id активной сессии, "" = нет активной.
func (s *Store) ActiveSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// RemoveSession убирает сессию из набора, удаляет её лог и сбрасывает
// активную, если удалили именно её. Всё одной операцией.
func (s *Store) RemoveSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept
	delete(s.messages, id)
	if s.activeID == id {
		s.activeID = ""
	}
}

// UpdateSessionTitle переписывает заголовок на месте, сохраняя позицию.
func (s *Store) UpdateSessionTitle(id, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.sessions[i].Title = title
			return
		}
	}
}

// === Сообщения ===

func (s *Store) SetMessages(id string, msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[id] = append([]Message(nil), msgs...)
}

// AppendMessage дописывает в конец; отсутствующий ключ = пустой лог.
func (s *Store) AppendMessage(id string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[id] = append(s.messages[id], msg)
}

func (s *Store) Messages(id string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages[id]...)
}

// ClearSessionMessages очищает лог, не удаляя саму сессию.
func (s *Store) ClearSessionMessages(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[id] = nil
}

// === Композер ===

func (s *Store) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

func (s *Store) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// AppendInput дописывает распознанный текст к вводу через пробел.
func (s *Store) AppendInput(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.input == "" {
		s.input = text
		return
	}
	s.input = s.input + " " + text
}

func (s *Store) AddAttachment(a Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments = append(s.attachments, a)
}

// Attachments возвращает снимок текущего списка вложений.
func (s *Store) Attachments() []Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Attachment(nil), s.attachments...)
}

// ResetComposer сбрасывает ввод и вложения. Язык и уведомление остаются.
func (s *Store) ResetComposer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = ""
	s.attachments = nil
}

func (s *Store) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *Store) SetLanguage(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = code
}

// Notice — последнее пользовательское уведомление об ошибке ("" = нет).
func (s *Store) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

func (s *Store) SetNotice(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = text
}

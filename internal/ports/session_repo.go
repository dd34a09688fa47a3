package ports

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Turn — один обмен в сессии: реплика пользователя и ответ ассистента.
type Turn struct {
	At        time.Time
	User      string
	Assistant string
}

type SessionRecord struct {
	ID        string
	UserID    string
	Title     string
	UpdatedAt time.Time
	Turns     []Turn
}

type SessionRepo interface {
	ListByUser(ctx context.Context, userID string) ([]SessionRecord, error) // без Turns, свежие сверху
	Get(ctx context.Context, sessionID, userID string) (*SessionRecord, error)
	FindEmpty(ctx context.Context, userID string) (*SessionRecord, error) // пустая "New chat" для переиспользования
	Insert(ctx context.Context, rec SessionRecord) error
	Delete(ctx context.Context, sessionID, userID string) error

	// AppendTurn создаёт сессию, если её ещё нет
	AppendTurn(ctx context.Context, sessionID, userID string, turn Turn) error

	Title(ctx context.Context, sessionID string) (string, error)
	TurnCount(ctx context.Context, sessionID string) (int, error)
	SetTitleIfPlaceholder(ctx context.Context, sessionID, title string) error
}

package backend

import "context"

// === Интерфейсы ===

type SessionAPI interface {
	ListSessions(ctx context.Context, userID string) ([]SessionSummary, error)
	CreateSession(ctx context.Context, userID string) (SessionSummary, error)
	SessionDetail(ctx context.Context, sessionID, userID string) (SessionDetail, error)
	DeleteSession(ctx context.Context, sessionID, userID string) error
}

type ChatAPI interface {
	SendChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

type SpeechAPI interface {
	Transcribe(ctx context.Context, audioBase64 string) (Transcription, error) // голос → текст
	Speak(ctx context.Context, text, targetLang string) (string, error)        // текст → base64 аудио
}

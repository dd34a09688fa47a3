package ports

import "context"

type LLMClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
	CompleteVision(ctx context.Context, prompt, imageBase64 string) (string, error)
}

type SpeechClient interface {
	Transcribe(ctx context.Context, audio []byte) (string, error) // голос → текст
	// Translate возвращает перевод и определённый исходный язык
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, string, error)
	Synthesize(ctx context.Context, text, targetLang string) ([]byte, error) // текст → голос
}

type MediaStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type RetrievedChunk struct {
	ID       string
	Text     string
	Score    float64
	Metadata map[string]string
}

type Retriever interface {
	UpsertUserEvent(userID, text string, metadata map[string]string, eventID string) string
	HybridSearch(query, userID string, topK int) []RetrievedChunk
}

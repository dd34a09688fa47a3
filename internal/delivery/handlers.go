package delivery

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"

	"github.com/medvani/webchat/internal/assistant"
	"github.com/medvani/webchat/internal/ports"
)

type ChatHandler struct {
	svc *assistant.Service
	log *logger.ZapLogger
}

func NewChatHandler(svc *assistant.Service, log *logger.ZapLogger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

// ответы об ошибках в формате {"detail": ...}, его разбирает клиент
func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (h *ChatHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":     "ok",
		"components": h.svc.Components(),
	})
}

// === Сессии ===

type sessionSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at"`
}

func toSummary(rec ports.SessionRecord) sessionSummary {
	return sessionSummary{
		ID:        rec.ID,
		Title:     rec.Title,
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeDetail(w, http.StatusBadRequest, "user_id is required")
		return
	}

	records, err := h.svc.ListSessions(r.Context(), userID)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "list sessions failed", Service: "medvani-api", Error: err})
		writeDetail(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	out := make([]sessionSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, toSummary(rec))
	}
	writeJSON(w, out)
}

func (h *ChatHandler) NewSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeDetail(w, http.StatusBadRequest, "user_id is required")
		return
	}

	rec, err := h.svc.NewSession(r.Context(), req.UserID)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "new session failed", Service: "medvani-api", Error: err})
		writeDetail(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, toSummary(rec))
}

type sessionMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
	At   string `json:"at"`
}

func (h *ChatHandler) SessionDetail(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeDetail(w, http.StatusBadRequest, "user_id is required")
		return
	}

	rec, err := h.svc.SessionDetail(r.Context(), sessionID, userID)
	if errors.Is(err, ports.ErrSessionNotFound) {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "session detail failed", Service: "medvani-api", Error: err})
		writeDetail(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	// каждый обмен раскладывается в пару сообщений
	messages := make([]sessionMessage, 0, len(rec.Turns)*2)
	for _, turn := range rec.Turns {
		at := turn.At.UTC().Format(time.RFC3339)
		messages = append(messages,
			sessionMessage{Role: "user", Text: turn.User, At: at},
			sessionMessage{Role: "assistant", Text: turn.Assistant, At: at},
		)
	}

	writeJSON(w, map[string]any{
		"id":       rec.ID,
		"title":    rec.Title,
		"messages": messages,
	})
}

func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeDetail(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.svc.DeleteSession(r.Context(), sessionID, userID); err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "delete session failed", Service: "medvani-api", Error: err})
		writeDetail(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// === Чат ===

type chatRequest struct {
	UserID       string  `json:"user_id"`
	SessionID    string  `json:"session_id"`
	Message      string  `json:"message"`
	LanguageLock *string `json:"language_lock"`
	Media        []struct {
		Kind    string `json:"kind"`
		Content string `json:"content"`
	} `json:"media"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeDetail(w, http.StatusBadRequest, "user_id is required")
		return
	}

	media := make([]assistant.MediaItem, 0, len(req.Media))
	for _, m := range req.Media {
		media = append(media, assistant.MediaItem{Kind: m.Kind, Content: m.Content})
	}

	result, err := h.svc.HandleChat(r.Context(), assistant.ChatInput{
		UserID:       req.UserID,
		SessionID:    req.SessionID,
		Message:      req.Message,
		LanguageLock: req.LanguageLock,
		Media:        media,
	})
	if errors.Is(err, assistant.ErrRestrictedDosage) {
		// отказ guardrails уходит обычным ответом ассистента
		writeJSON(w, map[string]any{
			"session_id":  req.SessionID,
			"title":       "",
			"response":    err.Error(),
			"target_lang": "",
			"citations":   []any{},
		})
		return
	}
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "chat failed", Service: "medvani-api", Error: err})
		writeDetail(w, http.StatusInternalServerError, "chat processing failed")
		return
	}

	// заголовок генерируется фоном после первого обмена
	if h.svc.NeedsTitle(r.Context(), result.SessionID) {
		go func(sessionID, prompt string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			h.svc.GenerateTitle(ctx, sessionID, prompt)
		}(result.SessionID, req.Message)
	}

	citations := make([]map[string]any, 0, len(result.Citations))
	for _, ch := range result.Citations {
		citations = append(citations, map[string]any{
			"id":    ch.ID,
			"text":  ch.Text,
			"score": ch.Score,
		})
	}

	writeJSON(w, map[string]any{
		"session_id":  result.SessionID,
		"title":       result.Title,
		"response":    result.Response,
		"target_lang": result.TargetLang,
		"citations":   citations,
	})
}

// === Речь ===

type speechRequest struct {
	Mode        string `json:"mode"`
	AudioBase64 string `json:"audio_base64"`
	Text        string `json:"text"`
	TargetLang  string `json:"target_lang"`
}

func (h *ChatHandler) SpeechToText(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	switch req.Mode {
	case "stt":
		audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid audio_base64")
			return
		}
		text, detected, err := h.svc.HandleSTT(r.Context(), audio)
		if err != nil {
			h.log.Log(logger.LogEntry{Level: "error", Message: "stt failed", Service: "medvani-api", Error: err})
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]string{"text": text, "detected_lang": detected})

	case "tts":
		audio, err := h.svc.HandleTTS(r.Context(), req.Text, req.TargetLang)
		if err != nil {
			h.log.Log(logger.LogEntry{Level: "error", Message: "tts failed", Service: "medvani-api", Error: err})
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]string{"audio_base64": base64.StdEncoding.EncodeToString(audio)})

	default:
		writeDetail(w, http.StatusBadRequest, "mode must be 'stt' or 'tts'")
	}
}

// === Медиа ===

type uploadMediaRequest struct {
	UserID   string            `json:"user_id"`
	Kind     string            `json:"kind"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

func (h *ChatHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	var req uploadMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if req.UserID == "" || req.Content == "" {
		writeDetail(w, http.StatusBadRequest, "user_id and content are required")
		return
	}

	mediaID, extracted := h.svc.HandleUploadMedia(r.Context(), req.UserID, assistant.MediaItem{
		Kind:    req.Kind,
		Content: req.Content,
	}, req.Metadata)

	writeJSON(w, map[string]string{
		"media_id":       mediaID,
		"extracted_text": extracted,
	})
}

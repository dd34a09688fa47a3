package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/medvani/webchat/internal/lang"
	"github.com/medvani/webchat/internal/ports"
)

const medicalSafetyPrompt = "You are MedVani, a medical support assistant. " +
	"You support broad medical questions including symptoms, diseases, medicines, tests, prevention, vaccines, nutrition, lifestyle, and when-to-seek-care guidance. " +
	"You must avoid definitive diagnoses and use language like 'Potential indications suggest...'. " +
	"Always advise in-person consultation with a licensed physician. " +
	"If asked for dosage of Schedule H/X medicines, refuse and offer safe alternatives. " +
	"You may explain medicine purpose, common side effects, contraindications, and interactions at a high level, but do not provide restricted dosage instructions. " +
	"Keep reasoning concise and clinically grounded in retrieved context."

const placeholderTitle = "New chat"

// лимит токенов на retrieved-контекст в промпте
const ragTokenLimit = 6000

var scheduleHXBlocklist = []string{
	"alprazolam",
	"codeine",
	"morphine",
	"fentanyl",
	"zolpidem",
	"diazepam",
}

// ErrRestrictedDosage — запрос дозировки препарата Schedule H/X.
var ErrRestrictedDosage = errors.New("Cannot provide dosage guidance for restricted Schedule H/X medications.")

type MediaItem struct {
	Kind    string
	Content string
}

type ChatInput struct {
	UserID       string
	SessionID    string
	Message      string
	LanguageLock *string
	Media        []MediaItem
}

type ChatResult struct {
	SessionID  string
	Title      string
	Response   string
	TargetLang string
	Citations  []ports.RetrievedChunk
}

// Service — оркестрация чата: guardrails, определение языка, retrieval,
// completion, перевод, ведение сессий. llm/speech/media могут быть nil —
// сервис деградирует, а не падает.
type Service struct {
	llm       ports.LLMClient
	speech    ports.SpeechClient
	repo      ports.SessionRepo
	retriever ports.Retriever
	media     ports.MediaStore
	enc       *tiktoken.Tiktoken
}

func NewService(
	llm ports.LLMClient,
	speech ports.SpeechClient,
	repo ports.SessionRepo,
	retriever ports.Retriever,
	media ports.MediaStore,
) *Service {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.Printf("[assistant] tokenizer init fail: %v", err)
		enc = nil
	}
	return &Service{
		llm:       llm,
		speech:    speech,
		repo:      repo,
		retriever: retriever,
		media:     media,
		enc:       enc,
	}
}

// Components отдаёт статус подключённых зависимостей для /health.
func (s *Service) Components() map[string]bool {
	return map[string]bool{
		"llm":       s.llm != nil,
		"speech":    s.speech != nil,
		"retriever": s.retriever != nil,
		"media":     s.media != nil,
	}
}

func truncateTitle(value string, limit int) string {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return placeholderTitle
	}
	runes := []rune(clean)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return clean
}

// диагностика ошибок Groq
func llmErrorMessage(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate_limit_exceeded") || strings.Contains(msg, "resource_exhausted"):
		return "Groq quota/rate limit exceeded. Please check Groq usage limits and retry."
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "authentication"):
		return "Groq API key is invalid or unauthorized. Update GROQ_API_KEY in .env and restart backend."
	case strings.Contains(msg, "rate"):
		return "Groq rate limit hit. Please wait a moment and retry."
	}
	return "LLM request failed. Check backend logs for the exact Groq error."
}

func (s *Service) runGuardrails(text string) error {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "dosage") && !strings.Contains(lower, "dose") {
		return nil
	}
	for _, med := range scheduleHXBlocklist {
		if strings.Contains(lower, med) {
			return ErrRestrictedDosage
		}
	}
	return nil
}

// DetectLanguage: Sarvam как основной детектор, Unicode-диапазоны как
// фолбэк.
func (s *Service) DetectLanguage(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return lang.Default
	}
	if s.speech != nil {
		if _, detected, err := s.speech.Translate(ctx, text, "auto", lang.Default); err == nil && detected != "" {
			return lang.Normalize(detected, lang.Default)
		}
	}
	return lang.DetectByScript(text)
}

func (s *Service) translate(ctx context.Context, text, sourceLang, targetLang string) string {
	sourceLang = lang.Normalize(sourceLang, lang.Default)
	targetLang = lang.Normalize(targetLang, lang.Default)
	if sourceLang == targetLang || s.speech == nil {
		return text
	}
	translated, _, err := s.speech.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		log.Printf("[assistant] translate failed: %v", err)
		return text
	}
	return translated
}

func (s *Service) imageToClinicalText(ctx context.Context, b64 string) string {
	if s.llm == nil {
		return "Image uploaded. No LLM visual model configured."
	}
	prompt := "Describe this medical image factually for clinical triage notes. Do not diagnose. Mention visible findings only."
	out, err := s.llm.CompleteVision(ctx, prompt, b64)
	if err != nil {
		log.Printf("[assistant] image analysis failed: %v", err)
		return "Unable to parse image safely."
	}
	if out == "" {
		return "No extractable findings."
	}
	return out
}

// fitContext режет retrieved-контекст по токен-бюджету.
func (s *Service) fitContext(chunks []ports.RetrievedChunk) string {
	var parts []string
	total := 0
	for _, ch := range chunks {
		tokens := 0
		if s.enc != nil {
			tokens = len(s.enc.Encode(ch.Text, nil, nil))
		} else {
			tokens = len(ch.Text) / 4
		}
		if total+tokens > ragTokenLimit {
			break
		}
		total += tokens
		parts = append(parts, ch.Text)
	}
	return strings.Join(parts, "\n")
}

func (s *Service) HandleChat(ctx context.Context, in ChatInput) (ChatResult, error) {
	if err := s.runGuardrails(in.Message); err != nil {
		return ChatResult{}, err
	}

	start := time.Now()
	log.Printf("[assistant] >>> START user=%s session=%s", in.UserID, in.SessionID)

	detectedLang := s.DetectLanguage(ctx, in.Message)
	targetLang := detectedLang
	if in.LanguageLock != nil {
		targetLang = lang.Normalize(*in.LanguageLock, detectedLang)
	}

	// медиа вливаются в контекст текстом
	normalizedContext := in.Message
	for _, item := range in.Media {
		switch item.Kind {
		case "image":
			normalizedContext += "\nImage context: " + s.imageToClinicalText(ctx, item.Content)
		case "video":
			normalizedContext += "\nVideo URL provided: " + item.Content
		case "audio":
			normalizedContext += "\nAudio attached."
		}
	}

	var retrieved []ports.RetrievedChunk
	if s.retriever != nil {
		retrieved = s.retriever.HybridSearch(normalizedContext, in.UserID, 5)
	}
	ragContext := s.fitContext(retrieved)

	englishPrompt := fmt.Sprintf(
		"%s\n\nUser input (possibly multilingual): %s\n\nRetrieved context:\n%s\n\n"+
			"Respond in English first with cautious clinical support and clear doctor-referral guidance.",
		medicalSafetyPrompt, in.Message, ragContext,
	)

	var englishAnswer string
	if s.llm == nil {
		englishAnswer = "LLM is not initialized. Ensure GROQ_API_KEY is configured and restart backend."
	} else {
		ctxLLM, cancel := context.WithTimeout(ctx, 120*time.Second)
		answer, err := s.llm.Complete(ctxLLM, medicalSafetyPrompt, englishPrompt)
		cancel()
		log.Printf("[assistant][%.1fs] completion done err=%v", time.Since(start).Seconds(), err)
		if err != nil {
			englishAnswer = llmErrorMessage(err)
		} else if answer == "" {
			englishAnswer = "Please consult a physician in person."
		} else {
			englishAnswer = answer
		}
	}

	finalAnswer := s.translate(ctx, englishAnswer, lang.Default, targetLang)

	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := s.repo.AppendTurn(ctx, sessionID, in.UserID, ports.Turn{
		At:        time.Now().UTC(),
		User:      in.Message,
		Assistant: finalAnswer,
	}); err != nil {
		log.Printf("[assistant] append turn failed: %v", err)
	}

	if s.retriever != nil {
		s.retriever.UpsertUserEvent(in.UserID, normalizedContext, map[string]string{
			"detected_lang": detectedLang,
			"target_lang":   targetLang,
		}, "")
	}

	title, err := s.repo.Title(ctx, sessionID)
	if err != nil {
		title = placeholderTitle
	}

	return ChatResult{
		SessionID:  sessionID,
		Title:      title,
		Response:   finalAnswer,
		TargetLang: targetLang,
		Citations:  retrieved,
	}, nil
}

// NeedsTitle: заголовок ещё плейсхолдерный и в сессии не больше одного
// обмена — пора генерировать.
func (s *Service) NeedsTitle(ctx context.Context, sessionID string) bool {
	title, err := s.repo.Title(ctx, sessionID)
	if err != nil {
		return true
	}
	if title != placeholderTitle {
		return false
	}
	count, err := s.repo.TurnCount(ctx, sessionID)
	if err != nil {
		return true
	}
	return count <= 1
}

// GenerateTitle — фоновая задача после первого обмена.
func (s *Service) GenerateTitle(ctx context.Context, sessionID, prompt string) {
	title := truncateTitle(prompt, 20)
	if s.llm != nil {
		titlePrompt := "Summarize the following medical user prompt into 3-4 words. " +
			"Return title case only, no punctuation, no quotes.\n\nPrompt: " + prompt
		out, err := s.llm.Complete(ctx, "", titlePrompt)
		if err == nil && strings.TrimSpace(out) != "" {
			cleaned := strings.Join(strings.Fields(
				strings.NewReplacer("\"", "", ".", "").Replace(out)), " ")
			title = truncateTitle(cleaned, 40)
		}
	}

	if err := s.repo.SetTitleIfPlaceholder(ctx, sessionID, title); err != nil {
		log.Printf("[assistant] title update failed: %v", err)
	}
}

// === Сессии ===

func (s *Service) ListSessions(ctx context.Context, userID string) ([]ports.SessionRecord, error) {
	return s.repo.ListByUser(ctx, userID)
}

// NewSession переиспользует пустую "New chat" сессию, если она есть.
func (s *Service) NewSession(ctx context.Context, userID string) (ports.SessionRecord, error) {
	if existing, err := s.repo.FindEmpty(ctx, userID); err == nil && existing != nil {
		return *existing, nil
	}

	rec := ports.SessionRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     placeholderTitle,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return ports.SessionRecord{}, err
	}
	return rec, nil
}

func (s *Service) SessionDetail(ctx context.Context, sessionID, userID string) (*ports.SessionRecord, error) {
	return s.repo.Get(ctx, sessionID, userID)
}

func (s *Service) DeleteSession(ctx context.Context, sessionID, userID string) error {
	return s.repo.Delete(ctx, sessionID, userID)
}

// === Речь ===

func (s *Service) HandleSTT(ctx context.Context, audio []byte) (string, string, error) {
	if s.speech == nil {
		return "", "", fmt.Errorf("Sarvam SDK is not configured.")
	}
	text, err := s.speech.Transcribe(ctx, audio)
	if err != nil {
		return "", "", fmt.Errorf("STT failed: %w", err)
	}
	return text, s.DetectLanguage(ctx, text), nil
}

func (s *Service) HandleTTS(ctx context.Context, text, targetLang string) ([]byte, error) {
	if s.speech == nil {
		return nil, fmt.Errorf("Sarvam SDK is not configured.")
	}
	audio, err := s.speech.Synthesize(ctx, text, lang.Normalize(targetLang, lang.Default))
	if err != nil {
		return nil, fmt.Errorf("TTS failed: %w", err)
	}
	return audio, nil
}

// === Медиа ===

// HandleUploadMedia извлекает текст из медиа, индексирует его и
// (если настроен object storage) архивирует исходный payload.
func (s *Service) HandleUploadMedia(ctx context.Context, userID string, item MediaItem, metadata map[string]string) (string, string) {
	mediaID := uuid.NewString()

	var extracted string
	switch item.Kind {
	case "image":
		extracted = s.imageToClinicalText(ctx, item.Content)
	case "video":
		extracted = "Video URL noted for analysis: " + item.Content
	case "audio":
		extracted = "Audio uploaded. Use /stt-tts to transcribe."
	default:
		extracted = item.Content
	}

	if s.media != nil {
		key := fmt.Sprintf("media/%s/%s", userID, mediaID)
		if url, err := s.media.Put(ctx, key, []byte(item.Content), "application/octet-stream"); err != nil {
			log.Printf("[assistant] media archive failed: %v", err)
		} else {
			log.Printf("[assistant] media archived at %s", url)
		}
	}

	if s.retriever != nil {
		meta := map[string]string{"media_kind": item.Kind}
		for k, v := range metadata {
			meta[k] = v
		}
		s.retriever.UpsertUserEvent(userID, extracted, meta, mediaID)
	}

	return mediaID, extracted
}

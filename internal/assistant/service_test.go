package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medvani/webchat/internal/infra"
	"github.com/medvani/webchat/internal/ports"
	"github.com/medvani/webchat/internal/retrieval"
)

type fakeLLM struct {
	answer    string
	err       error
	lastUser  string
	visionOut string
}

func (f *fakeLLM) Complete(_ context.Context, _, user string) (string, error) {
	f.lastUser = user
	return f.answer, f.err
}

func (f *fakeLLM) CompleteVision(_ context.Context, _, _ string) (string, error) {
	return f.visionOut, nil
}

type fakeSpeech struct {
	transcript string
	detected   string
	translated string
	err        error
}

func (f *fakeSpeech) Transcribe(_ context.Context, _ []byte) (string, error) {
	return f.transcript, f.err
}

func (f *fakeSpeech) Translate(_ context.Context, text, _, _ string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	out := f.translated
	if out == "" {
		out = text
	}
	return out, f.detected, nil
}

func (f *fakeSpeech) Synthesize(_ context.Context, _, _ string) ([]byte, error) {
	return []byte("audio"), f.err
}

func newTestService(llm ports.LLMClient, speech ports.SpeechClient) (*Service, ports.SessionRepo) {
	repo := infra.NewMemorySessionRepo()
	return NewService(llm, speech, repo, retrieval.NewMemory(), nil), repo
}

func TestGuardrailsBlockRestrictedDosage(t *testing.T) {
	svc, _ := newTestService(&fakeLLM{answer: "ok"}, nil)

	_, err := svc.HandleChat(context.Background(), ChatInput{
		UserID:  "u1",
		Message: "What dosage of alprazolam should I take?",
	})
	assert.ErrorIs(t, err, ErrRestrictedDosage)
}

func TestGuardrailsAllowGeneralMedicineQuestions(t *testing.T) {
	svc, _ := newTestService(&fakeLLM{answer: "Consult a physician."}, nil)

	out, err := svc.HandleChat(context.Background(), ChatInput{
		UserID:  "u1",
		Message: "What is alprazolam used for?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Consult a physician.", out.Response)
}

func TestHandleChatCreatesSessionAndAppendsTurn(t *testing.T) {
	svc, repo := newTestService(&fakeLLM{answer: "Rest and hydrate."}, nil)

	out, err := svc.HandleChat(context.Background(), ChatInput{
		UserID:  "u1",
		Message: "I have a mild fever",
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.SessionID)

	rec, err := repo.Get(context.Background(), out.SessionID, "u1")
	require.NoError(t, err)
	require.Len(t, rec.Turns, 1)
	assert.Equal(t, "I have a mild fever", rec.Turns[0].User)
	assert.Equal(t, "Rest and hydrate.", rec.Turns[0].Assistant)
}

func TestHandleChatLanguageLockOverridesDetection(t *testing.T) {
	speech := &fakeSpeech{detected: "en-IN", translated: "hindi text"}
	svc, _ := newTestService(&fakeLLM{answer: "english text"}, speech)

	lock := "hi-IN"
	out, err := svc.HandleChat(context.Background(), ChatInput{
		UserID:       "u1",
		Message:      "hello",
		LanguageLock: &lock,
	})
	require.NoError(t, err)
	assert.Equal(t, "hi-IN", out.TargetLang)
	assert.Equal(t, "hindi text", out.Response)
}

func TestHandleChatLLMFailureProducesDiagnosis(t *testing.T) {
	svc, _ := newTestService(&fakeLLM{err: errors.New("rate_limit_exceeded for model")}, nil)

	out, err := svc.HandleChat(context.Background(), ChatInput{UserID: "u1", Message: "hi"})
	require.NoError(t, err)
	assert.Contains(t, out.Response, "quota/rate limit")
}

func TestHandleChatWithoutLLM(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	out, err := svc.HandleChat(context.Background(), ChatInput{UserID: "u1", Message: "hi"})
	require.NoError(t, err)
	assert.Contains(t, out.Response, "GROQ_API_KEY")
}

func TestTruncateTitle(t *testing.T) {
	assert.Equal(t, "New chat", truncateTitle("   ", 20))
	assert.Equal(t, "short", truncateTitle("short", 20))
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaa", truncateTitle("aaaaaaaaaaaaaaaaaaaabbbb", 20))
}

func TestLLMErrorMessage(t *testing.T) {
	assert.Contains(t, llmErrorMessage(errors.New("invalid api key")), "GROQ_API_KEY")
	assert.Contains(t, llmErrorMessage(errors.New("rate limited")), "wait a moment")
	assert.Contains(t, llmErrorMessage(errors.New("boom")), "backend logs")
}

func TestGenerateTitleUsesLLMSummary(t *testing.T) {
	llm := &fakeLLM{answer: `"Fever Symptoms Advice."`}
	svc, repo := newTestService(llm, nil)

	rec, err := svc.NewSession(context.Background(), "u1")
	require.NoError(t, err)

	svc.GenerateTitle(context.Background(), rec.ID, "I have fever symptoms")

	title, err := repo.Title(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fever Symptoms Advice", title)
}

func TestGenerateTitleFallsBackToTruncatedPrompt(t *testing.T) {
	svc, repo := newTestService(nil, nil)

	rec, err := svc.NewSession(context.Background(), "u1")
	require.NoError(t, err)

	svc.GenerateTitle(context.Background(), rec.ID, "this prompt is definitely longer than twenty characters")

	title, err := repo.Title(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "this prompt is defin", title)
}

func TestNewSessionReusesEmptyOne(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	first, err := svc.NewSession(context.Background(), "u1")
	require.NoError(t, err)
	second, err := svc.NewSession(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestNeedsTitle(t *testing.T) {
	svc, repo := newTestService(&fakeLLM{answer: "answer"}, nil)

	rec, err := svc.NewSession(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, svc.NeedsTitle(context.Background(), rec.ID))

	require.NoError(t, repo.SetTitleIfPlaceholder(context.Background(), rec.ID, "Named"))
	assert.False(t, svc.NeedsTitle(context.Background(), rec.ID))
}

func TestHandleSTTWithoutSpeech(t *testing.T) {
	svc, _ := newTestService(nil, nil)
	_, _, err := svc.HandleSTT(context.Background(), []byte("x"))
	assert.ErrorContains(t, err, "Sarvam")
}

func TestHandleSTTDetectsLanguage(t *testing.T) {
	speech := &fakeSpeech{transcript: "मुझे बुखार है", detected: "hi-IN"}
	svc, _ := newTestService(nil, speech)

	text, detected, err := svc.HandleSTT(context.Background(), []byte("audio"))
	require.NoError(t, err)
	assert.Equal(t, "मुझे बुखार है", text)
	assert.Equal(t, "hi-IN", detected)
}

func TestDetectLanguageFallsBackToScript(t *testing.T) {
	svc, _ := newTestService(nil, &fakeSpeech{err: errors.New("down")})
	assert.Equal(t, "hi-IN", svc.DetectLanguage(context.Background(), "मुझे बुखार है"))
	assert.Equal(t, "en-IN", svc.DetectLanguage(context.Background(), "hello"))
}

func TestHandleUploadMediaIndexesExtractedText(t *testing.T) {
	retriever := retrieval.NewMemory()
	repo := infra.NewMemorySessionRepo()
	svc := NewService(nil, nil, repo, retriever, nil)

	mediaID, extracted := svc.HandleUploadMedia(context.Background(), "u1", MediaItem{
		Kind:    "text",
		Content: "blood pressure log for last week",
	}, nil)
	require.NotEmpty(t, mediaID)
	assert.Equal(t, "blood pressure log for last week", extracted)

	chunks := retriever.HybridSearch("blood pressure", "u1", 5)
	require.Len(t, chunks, 1)
	assert.Equal(t, "text", chunks[0].Metadata["media_kind"])
}

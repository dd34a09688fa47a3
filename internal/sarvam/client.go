package sarvam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
)

const (
	defaultSTTModel = "saarika:v2.5"
	defaultTTSModel = "saaras:v3"
)

// допустимые модели; кривой env откатывается на дефолт
var validModels = map[string]bool{
	"saarika:v2.5":       true,
	"saaras:v3":          true,
	"saaras-v3-realtime": true,
	"saarika:v1":         true,
}

func safeModel(envKey, fallback string) string {
	configured := os.Getenv(envKey)
	if configured == "" {
		return fallback
	}
	if validModels[configured] {
		return configured
	}
	log.Printf("[sarvam] invalid %s model %q, falling back to %q", envKey, configured, fallback)
	return fallback
}

// Client ходит в Sarvam API: распознавание, перевод, синтез.
type Client struct {
	apiKey   string
	sttModel string
	ttsModel string
	client   *http.Client
}

func NewClient() (*Client, error) {
	key := os.Getenv("SARVAM_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("SARVAM_API_KEY not set")
	}

	return &Client{
		apiKey:   key,
		sttModel: safeModel("SARVAM_STT_MODEL", defaultSTTModel),
		ttsModel: safeModel("SARVAM_TTS_MODEL", defaultTTSModel),
		client:   &http.Client{},
	}, nil
}

func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := w.WriteField("model", c.sttModel); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.sarvam.ai/speech-to-text", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("api-subscription-key", c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sarvam stt request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("sarvam stt error: %s", raw)
	}

	var parsed struct {
		Transcript string `json:"transcript"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode sarvam stt: %w", err)
	}
	return parsed.Transcript, nil
}

func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, string, error) {
	payload, err := json.Marshal(map[string]string{
		"input":                text,
		"source_language_code": sourceLang,
		"target_language_code": targetLang,
	})
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.sarvam.ai/translate", bytes.NewReader(payload))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("api-subscription-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("sarvam translate request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		return "", "", fmt.Errorf("sarvam translate error: %s", raw)
	}

	var parsed struct {
		TranslatedText     string `json:"translated_text"`
		SourceLanguageCode string `json:"source_language_code"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", "", fmt.Errorf("decode sarvam translate: %w", err)
	}
	return parsed.TranslatedText, parsed.SourceLanguageCode, nil
}

func (c *Client) Synthesize(ctx context.Context, text, targetLang string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{
		"text":                 text,
		"target_language_code": targetLang,
		"model":                c.ttsModel,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.sarvam.ai/text-to-speech", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("api-subscription-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sarvam tts request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("sarvam tts error: %s", raw)
	}

	var parsed struct {
		Audios []string `json:"audios"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode sarvam tts: %w", err)
	}
	if len(parsed.Audios) == 0 {
		return nil, fmt.Errorf("empty audio")
	}

	audio, err := base64.StdEncoding.DecodeString(parsed.Audios[0])
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	return audio, nil
}

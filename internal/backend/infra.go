package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Client ходит в MedVani backend по HTTP. Реализует SessionAPI,
// ChatAPI и SpeechAPI.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient() *Client {
	base := os.Getenv("MEDVANI_API_URL")
	if base == "" {
		base = "http://localhost:8000"
	}

	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// бэкенд отдаёт {"detail": "..."} при ошибке
		var parsed struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Detail != "" {
			return fmt.Errorf("backend %d: %s", resp.StatusCode, parsed.Detail)
		}
		return fmt.Errorf("backend %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// === SessionAPI ===

func (c *Client) ListSessions(ctx context.Context, userID string) ([]SessionSummary, error) {
	q := url.Values{"user_id": {userID}}
	var out []SessionSummary
	if err := c.do(ctx, http.MethodGet, "/sessions", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSession(ctx context.Context, userID string) (SessionSummary, error) {
	var out SessionSummary
	err := c.do(ctx, http.MethodPost, "/session/new", nil, map[string]string{"user_id": userID}, &out)
	return out, err
}

func (c *Client) SessionDetail(ctx context.Context, sessionID, userID string) (SessionDetail, error) {
	q := url.Values{"user_id": {userID}}
	var out SessionDetail
	err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID), q, nil, &out)
	return out, err
}

func (c *Client) DeleteSession(ctx context.Context, sessionID, userID string) error {
	q := url.Values{"user_id": {userID}}
	return c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(sessionID), q, nil, nil)
}

// === ChatAPI ===

func (c *Client) SendChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var out ChatResponse
	err := c.do(ctx, http.MethodPost, "/chat", nil, req, &out)
	return out, err
}

// === SpeechAPI ===

func (c *Client) Transcribe(ctx context.Context, audioBase64 string) (Transcription, error) {
	body := map[string]string{
		"mode":         "stt",
		"audio_base64": audioBase64,
	}
	var out Transcription
	err := c.do(ctx, http.MethodPost, "/stt-tts", nil, body, &out)
	return out, err
}

func (c *Client) Speak(ctx context.Context, text, targetLang string) (string, error) {
	body := map[string]string{
		"mode":        "tts",
		"text":        text,
		"target_lang": targetLang,
	}
	var out struct {
		AudioBase64 string `json:"audio_base64"`
	}
	if err := c.do(ctx, http.MethodPost, "/stt-tts", nil, body, &out); err != nil {
		return "", err
	}
	return out.AudioBase64, nil
}

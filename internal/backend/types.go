package backend

type SessionSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at"`
}

type SessionMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
	At   string `json:"at"`
}

type SessionDetail struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	UpdatedAt string           `json:"updated_at"`
	Messages  []SessionMessage `json:"messages"`
}

type MediaInput struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

type ChatRequest struct {
	UserID       string       `json:"user_id"`
	SessionID    string       `json:"session_id"`
	Message      string       `json:"message"`
	LanguageLock *string      `json:"language_lock"`
	Media        []MediaInput `json:"media"`
}

type ChatResponse struct {
	SessionID  string           `json:"session_id"`
	Title      string           `json:"title"`
	Response   string           `json:"response"`
	TargetLang string           `json:"target_lang"`
	Citations  []map[string]any `json:"citations"`
}

type Transcription struct {
	Text         string `json:"text"`
	DetectedLang string `json:"detected_lang"`
}

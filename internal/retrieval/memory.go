package retrieval

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/medvani/webchat/internal/ports"
)

const embedDim = 128

// Memory — in-memory гибридный поиск по событиям пользователя.
// Текст хранится зашифрованным (AES-256-GCM), эмбеддинг —
// детерминированный sha256-скейлинг, как в локальном скаффолде.
type Memory struct {
	mu     sync.Mutex
	events []event
	aesKey []byte // nil = хранить открытым текстом
}

type event struct {
	id       string
	userID   string
	vector   []float64
	enc      string // "none" | "aes-256-gcm"
	cipher   string
	metadata map[string]string
}

func NewMemory() *Memory {
	return &Memory{aesKey: loadAESKey()}
}

func loadAESKey() []byte {
	raw := strings.TrimSpace(os.Getenv("MEDVANI_AES256_KEY"))
	if raw == "" {
		return nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		key = []byte(raw)
	}
	if len(key) != 32 {
		return nil
	}
	return key
}

// pseudoEmbed — детерминированный surrogate настоящей модели эмбеддингов.
func pseudoEmbed(text string) []float64 {
	digest := sha256.Sum256([]byte(text))
	out := make([]float64, embedDim)
	for i := range out {
		out[i] = (float64(digest[i%len(digest)])/255.0)*2.0 - 1.0
	}
	return out
}

func (m *Memory) encrypt(plaintext string) (string, string) {
	if m.aesKey == nil {
		return "none", plaintext
	}

	block, err := aes.NewCipher(m.aesKey)
	if err != nil {
		return "none", plaintext
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "none", plaintext
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "none", plaintext
	}
	ct := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return "aes-256-gcm", base64.StdEncoding.EncodeToString(append(nonce, ct...))
}

func (m *Memory) decrypt(enc, cipherText string) string {
	if enc != "aes-256-gcm" || m.aesKey == nil {
		return cipherText
	}

	blob, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return ""
	}
	block, err := aes.NewCipher(m.aesKey)
	if err != nil {
		return ""
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return ""
	}
	if len(blob) < gcm.NonceSize() {
		return ""
	}
	pt, err := gcm.Open(nil, blob[:gcm.NonceSize()], blob[gcm.NonceSize():], nil)
	if err != nil {
		return ""
	}
	return string(pt)
}

func (m *Memory) UpsertUserEvent(userID, text string, metadata map[string]string, eventID string) string {
	if eventID == "" {
		eventID = uuid.NewString()
	}
	enc, cipherText := m.encrypt(text)

	m.mu.Lock()
	defer m.mu.Unlock()

	ev := event{
		id:       eventID,
		userID:   userID,
		vector:   pseudoEmbed(text),
		enc:      enc,
		cipher:   cipherText,
		metadata: metadata,
	}
	for i := range m.events {
		if m.events[i].id == eventID {
			m.events[i] = ev
			return eventID
		}
	}
	m.events = append(m.events, ev)
	return eventID
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// лексический бонус: доля слов запроса, встреченных в тексте
func lexicalOverlap(query, text string) float64 {
	qWords := strings.Fields(strings.ToLower(query))
	if len(qWords) == 0 {
		return 0
	}
	lowered := strings.ToLower(text)
	hits := 0
	for _, w := range qWords {
		if strings.Contains(lowered, w) {
			hits++
		}
	}
	return float64(hits) / float64(len(qWords))
}

// HybridSearch — dense-похожесть + лексический бонус, только события
// этого пользователя, сильнейшие сверху.
func (m *Memory) HybridSearch(query, userID string, topK int) []ports.RetrievedChunk {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	qVec := pseudoEmbed(query)

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ports.RetrievedChunk
	for _, ev := range m.events {
		if ev.userID != userID {
			continue
		}
		text := m.decrypt(ev.enc, ev.cipher)
		if text == "" {
			continue
		}
		score := cosine(qVec, ev.vector) + lexicalOverlap(query, text)
		out = append(out, ports.RetrievedChunk{
			ID:       ev.id,
			Text:     text,
			Score:    score,
			Metadata: ev.metadata,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

package retrieval

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHybridSearchFiltersByUser(t *testing.T) {
	m := NewMemory()
	m.UpsertUserEvent("u1", "fever and headache since yesterday", nil, "")
	m.UpsertUserEvent("u2", "fever and chills", nil, "")

	out := m.HybridSearch("fever", "u1", 5)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "headache")
}

func TestHybridSearchRanksLexicalMatchesFirst(t *testing.T) {
	m := NewMemory()
	m.UpsertUserEvent("u1", "blood pressure reading was normal", nil, "")
	m.UpsertUserEvent("u1", "fever since yesterday with cough", nil, "")

	out := m.HybridSearch("fever cough", "u1", 5)
	require.Len(t, out, 2)
	assert.Contains(t, out[0].Text, "fever")
}

func TestHybridSearchEmptyQuery(t *testing.T) {
	m := NewMemory()
	m.UpsertUserEvent("u1", "anything", nil, "")
	assert.Nil(t, m.HybridSearch("   ", "u1", 5))
}

func TestUpsertReplacesByID(t *testing.T) {
	m := NewMemory()
	id := m.UpsertUserEvent("u1", "first version", nil, "fixed-id")
	m.UpsertUserEvent("u1", "second version", nil, id)

	out := m.HybridSearch("version", "u1", 5)
	require.Len(t, out, 1)
	assert.Equal(t, "second version", out[0].Text)
}

func TestEncryptionRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	t.Setenv("MEDVANI_AES256_KEY", base64.StdEncoding.EncodeToString(key))

	m := NewMemory()
	m.UpsertUserEvent("u1", "sensitive medical note", map[string]string{"media_kind": "text"}, "")

	out := m.HybridSearch("medical note", "u1", 5)
	require.Len(t, out, 1)
	assert.Equal(t, "sensitive medical note", out[0].Text)
	assert.Equal(t, "text", out[0].Metadata["media_kind"])
}

func TestBadKeyFallsBackToPlaintext(t *testing.T) {
	t.Setenv("MEDVANI_AES256_KEY", "too-short")

	m := NewMemory()
	m.UpsertUserEvent("u1", "note", nil, "")

	out := m.HybridSearch("note", "u1", 5)
	require.Len(t, out, 1)
	assert.Equal(t, "note", out[0].Text)
}

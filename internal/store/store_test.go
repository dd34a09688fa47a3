package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medvani/webchat/internal/lang"
)

func TestAppendMessagePreservesOrder(t *testing.T) {
	s := New()
	for i := 0; i < 50; i++ {
		s.AppendMessage("s1", Message{Role: RoleUser, Text: fmt.Sprintf("msg-%d", i)})
	}

	msgs := s.Messages("s1")
	require.Len(t, msgs, 50)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), m.Text)
	}
}

func TestAppendMessageMissingKeyActsAsEmpty(t *testing.T) {
	s := New()
	s.AppendMessage("never-seen", Message{Role: RoleAssistant, Text: "hello"})

	msgs := s.Messages("never-seen")
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
}

func TestSetMessagesReplacesLog(t *testing.T) {
	s := New()
	s.AppendMessage("s1", Message{Role: RoleUser, Text: "old"})
	s.SetMessages("s1", []Message{
		{Role: RoleUser, Text: "a"},
		{Role: RoleAssistant, Text: "b"},
	})

	msgs := s.Messages("s1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Text)
	assert.Equal(t, "b", msgs[1].Text)
}

func TestRemoveSession(t *testing.T) {
	t.Run("clears active when it matches", func(t *testing.T) {
		s := New()
		s.SetSessions([]Session{{ID: "a"}, {ID: "b"}})
		s.SetActiveSession("a")
		s.AppendMessage("a", Message{Role: RoleUser, Text: "x"})

		s.RemoveSession("a")

		assert.Equal(t, "", s.ActiveSession())
		assert.Empty(t, s.Messages("a"))
		sessions := s.Sessions()
		require.Len(t, sessions, 1)
		assert.Equal(t, "b", sessions[0].ID)
	})

	t.Run("keeps active when it differs", func(t *testing.T) {
		s := New()
		s.SetSessions([]Session{{ID: "a"}, {ID: "b"}})
		s.SetActiveSession("b")

		s.RemoveSession("a")

		assert.Equal(t, "b", s.ActiveSession())
	})

	t.Run("removing unknown id is a no-op", func(t *testing.T) {
		s := New()
		s.SetSessions([]Session{{ID: "a"}})
		s.SetActiveSession("a")

		s.RemoveSession("ghost")

		assert.Equal(t, "a", s.ActiveSession())
		assert.Len(t, s.Sessions(), 1)
	})
}

func TestClearSessionMessagesIdempotent(t *testing.T) {
	s := New()
	s.SetSessions([]Session{{ID: "a", Title: "T"}})
	s.AppendMessage("a", Message{Role: RoleUser, Text: "x"})

	s.ClearSessionMessages("a")
	s.ClearSessionMessages("a")

	assert.Empty(t, s.Messages("a"))
	// сессия остаётся
	assert.Len(t, s.Sessions(), 1)
}

func TestSetSessionsDoesNotTouchMessages(t *testing.T) {
	s := New()
	s.AppendMessage("a", Message{Role: RoleUser, Text: "x"})
	s.SetSessions([]Session{{ID: "b"}})

	assert.Len(t, s.Messages("a"), 1)
}

func TestUpdateSessionTitlePreservesPosition(t *testing.T) {
	s := New()
	s.SetSessions([]Session{
		{ID: "a", Title: "first", UpdatedAt: "2026-01-01T00:00:00Z"},
		{ID: "b", Title: "second"},
	})

	s.UpdateSessionTitle("b", "renamed")

	sessions := s.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].ID)
	assert.Equal(t, "renamed", sessions[1].Title)
	assert.Equal(t, "2026-01-01T00:00:00Z", sessions[0].UpdatedAt)
}

func TestAppendInput(t *testing.T) {
	s := New()
	s.AppendInput("fever")
	s.AppendInput("since yesterday")
	assert.Equal(t, "fever since yesterday", s.Input())

	s.AppendInput("   ")
	assert.Equal(t, "fever since yesterday", s.Input())
}

func TestResetComposer(t *testing.T) {
	s := New()
	s.SetInput("text")
	s.AddAttachment(Attachment{Kind: KindImage, Content: "aGk="})
	s.SetLanguage("hi-IN")

	s.ResetComposer()

	assert.Equal(t, "", s.Input())
	assert.Empty(t, s.Attachments())
	assert.Equal(t, "hi-IN", s.Language())
}

func TestAttachmentsReturnsSnapshot(t *testing.T) {
	s := New()
	s.AddAttachment(Attachment{Kind: KindImage, Content: "aGk="})

	snap := s.Attachments()
	s.ResetComposer()

	require.Len(t, snap, 1)
	assert.Equal(t, KindImage, snap[0].Kind)
}

func TestDefaultLanguageIsAuto(t *testing.T) {
	assert.Equal(t, lang.Auto, New().Language())
}

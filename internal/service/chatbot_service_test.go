package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/campusvoice/complaint-service/pkg/util"
)

func TestChatbotSessionLifecycle(t *testing.T) {
	h := newHarness(t)
	alice := h.student(t, "alice")
	ctx := context.Background()

	external := " conv-42 "
	session, err := h.chatbot.StartSession(ctx, alice, &external)
	require.NoError(t, err)
	require.NotNil(t, session.ExternalConversationID)
	assert.Equal(t, "conv-42", *session.ExternalConversationID)
	assert.True(t, session.Active())

	later := time.Now().Add(time.Minute)
	h.chatbot.now = func() time.Time { return later }
	touched, err := h.chatbot.Touch(ctx, alice, session.ID)
	require.NoError(t, err)
	assert.Equal(t, later, touched.LastActivityAt)

	ended, err := h.chatbot.End(ctx, alice, session.ID)
	require.NoError(t, err)
	require.NotNil(t, ended.EndedAt)
	assert.False(t, ended.Active())

	again, err := h.chatbot.End(ctx, alice, session.ID)
	require.NoError(t, err)
	assert.Equal(t, ended.EndedAt, again.EndedAt)

	_, err = h.chatbot.Touch(ctx, alice, session.ID)
	requireCode(t, err, apperrors.CodeConflict)

	sessions, err := h.chatbot.ListSessions(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestChatbotSessionsAreStudentOnlyAndOwned(t *testing.T) {
	h := newHarness(t)
	alice := h.student(t, "alice")
	bob := h.student(t, "bob")
	gm := h.generalManager(t)
	ctx := context.Background()

	_, err := h.chatbot.StartSession(ctx, gm, nil)
	requireCode(t, err, apperrors.CodeForbidden)

	session, err := h.chatbot.StartSession(ctx, alice, nil)
	require.NoError(t, err)
	assert.Nil(t, session.ExternalConversationID)

	_, err = h.chatbot.End(ctx, bob, session.ID)
	requireCode(t, err, apperrors.CodeNotFound)

	sessions, err := h.chatbot.ListSessions(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

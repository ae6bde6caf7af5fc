package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

func TestSessionCRUD(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	sess, err := env.sessions.Create(ctx, env.principal, CreateSessionInput{Type: models.SessionTypeAgent, Title: "research"})
	require.NoError(t, err)
	assert.Equal(t, models.SessionTypeAgent, sess.Type)
	assert.Equal(t, env.principal.UserID, sess.UserID)

	_, err = env.sessions.Create(ctx, env.principal, CreateSessionInput{Type: "meeting"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	list, err := env.sessions.List(ctx, env.principal, models.SessionFilter{Type: models.SessionTypeAgent})
	require.NoError(t, err)
	require.Len(t, list, 1)

	title, starred := "  renamed ", true
	updated, err := env.sessions.Update(ctx, env.principal, sess.ID, models.SessionUpdate{Title: &title, Starred: &starred})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.True(t, updated.Starred)

	_, err = env.sessions.AppendInteraction(ctx, env.principal, sess.ID, AppendInteractionInput{
		Type: models.InteractionSystemMessage, Content: "be brief",
	})
	require.NoError(t, err)

	full, err := env.sessions.Get(ctx, env.principal, sess.ID)
	require.NoError(t, err)
	require.Len(t, full.Interactions, 1)
	assert.Equal(t, int64(1), full.Interactions[0].Sequence)

	require.NoError(t, env.sessions.Delete(ctx, env.principal, sess.ID))
	_, err = env.sessions.Get(ctx, env.principal, sess.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestSessionAccessRules(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	sess, err := env.sessions.Create(ctx, env.principal, CreateSessionInput{Title: "mine"})
	require.NoError(t, err)

	colleague := core.Principal{UserID: "user-2", OrganizationID: env.org.ID}
	stranger := core.Principal{UserID: "user-3", OrganizationID: "other-org"}

	_, err = env.sessions.Get(ctx, colleague, sess.ID)
	assert.NoError(t, err)

	title := "hijacked"
	_, err = env.sessions.Update(ctx, colleague, sess.ID, models.SessionUpdate{Title: &title})
	assert.ErrorIs(t, err, core.ErrForbidden)
	assert.ErrorIs(t, env.sessions.Delete(ctx, colleague, sess.ID), core.ErrForbidden)

	_, err = env.sessions.Get(ctx, stranger, sess.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	_, err = env.sessions.ListInteractions(ctx, stranger, sess.ID, 0, 10)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	list, err := env.sessions.List(ctx, stranger, models.SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

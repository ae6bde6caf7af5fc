package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

func TestEnsureSession(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	id, created, err := env.conversation.EnsureSession(ctx, EnsureSessionInput{
		OrganizationID: env.org.ID,
		UserID:         "user-1",
		SeedTitle:      "  plan   the launch ",
	})
	require.NoError(t, err)
	assert.True(t, created)

	sess, err := env.db.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SessionTypeChat, sess.Type)
	assert.Equal(t, "plan the launch", sess.Title)

	again, created, err := env.conversation.EnsureSession(ctx, EnsureSessionInput{
		OrganizationID: env.org.ID,
		UserID:         "user-1",
		ExistingID:     id,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)

	fresh, created, err := env.conversation.EnsureSession(ctx, EnsureSessionInput{
		OrganizationID: env.org.ID,
		UserID:         "user-1",
		ExistingID:     "does-not-exist",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "does-not-exist", fresh)

	_, _, err = env.conversation.EnsureSession(ctx, EnsureSessionInput{
		OrganizationID: env.org.ID,
		Type:           "meeting",
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestAppendAssignsSequencesAndNeverChargesUsers(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	id, _, err := env.conversation.EnsureSession(ctx, EnsureSessionInput{OrganizationID: env.org.ID, UserID: "u"})
	require.NoError(t, err)

	seq, err := env.conversation.Append(ctx, id, models.InteractionUserMessage, "q", nil, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	seq, err = env.conversation.Append(ctx, id, models.InteractionAssistantMessage, "a", map[string]any{"model": "m"}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)

	turns := env.interactions(t, id)
	require.Len(t, turns, 2)
	assert.Equal(t, int64(0), turns[0].CostCredits)
	assert.Equal(t, int64(2), turns[1].CostCredits)
	assert.Equal(t, "m", turns[1].Metadata["model"])

	_, err = env.conversation.Append(ctx, id, "note", "x", nil, 0)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	_, err = env.conversation.Append(ctx, id, models.InteractionToolCall, "x", nil, -1)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	_, err = env.conversation.Append(ctx, "missing", models.InteractionUserMessage, "x", nil, 0)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestTouchKeepsTitleWhenEmpty(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	id, _, err := env.conversation.EnsureSession(ctx, EnsureSessionInput{OrganizationID: env.org.ID, SeedTitle: "original"})
	require.NoError(t, err)
	before, err := env.db.GetSession(ctx, id)
	require.NoError(t, err)

	later := before.UpdatedAt.Add(time.Minute)
	env.conversation.now = func() time.Time { return later }
	require.NoError(t, env.conversation.Touch(ctx, id, ""))

	after, err := env.db.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", after.Title)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	require.NoError(t, env.conversation.Touch(ctx, id, "renamed"))
	after, err = env.db.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", after.Title)
}

func TestHistorySkipsNonChatTurns(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	id, _, err := env.conversation.EnsureSession(ctx, EnsureSessionInput{OrganizationID: env.org.ID})
	require.NoError(t, err)

	for _, turn := range []struct {
		typ     models.InteractionType
		content string
	}{
		{models.InteractionUserMessage, "one"},
		{models.InteractionAssistantMessage, "two"},
		{models.InteractionToolCall, "search()"},
		{models.InteractionUserMessage, "three"},
	} {
		_, err := env.conversation.Append(ctx, id, turn.typ, turn.content, nil, 0)
		require.NoError(t, err)
	}

	h, err := env.conversation.History(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, []core.Message{
		{Role: core.RoleAssistant, Content: "two"},
		{Role: core.RoleUser, Content: "three"},
	}, h)
}

func TestTitleFrom(t *testing.T) {
	assert.Equal(t, "hello world", TitleFrom(" hello\n\tworld "))
	assert.Equal(t, "", TitleFrom("   "))

	long := strings.Repeat("é", 80)
	title := TitleFrom(long)
	assert.Equal(t, strings.Repeat("é", 60)+"…", title)
}

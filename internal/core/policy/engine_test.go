package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

func TestSessionAccessDecisions(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	owner := core.Principal{UserID: "u1", OrganizationID: "o1"}
	teammate := core.Principal{UserID: "u2", OrganizationID: "o1"}
	outsider := core.Principal{UserID: "u3", OrganizationID: "o2"}
	session := &models.Session{ID: "s1", OrganizationID: "o1", UserID: "u1"}

	cases := []struct {
		name   string
		action Action
		caller core.Principal
		sess   *models.Session
		want   Decision
	}{
		{"owner reads", ActionRead, owner, session, Allow},
		{"owner deletes", ActionDelete, owner, session, Allow},
		{"teammate reads", ActionRead, teammate, session, Allow},
		{"teammate appends", ActionWrite, teammate, session, Allow},
		{"teammate updates", ActionUpdate, teammate, session, Forbidden},
		{"teammate deletes", ActionDelete, teammate, session, Forbidden},
		{"outsider reads", ActionRead, outsider, session, NotFound},
		{"outsider deletes", ActionDelete, outsider, session, NotFound},
		{"missing session", ActionRead, owner, nil, NotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.Evaluate(ctx, tc.action, tc.caller, tc.sess)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAuthorizeSessionErrors(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	session := &models.Session{ID: "s1", OrganizationID: "o1", UserID: "u1"}

	assert.NoError(t, engine.AuthorizeSession(ctx, ActionRead, core.Principal{UserID: "u1", OrganizationID: "o1"}, session))
	assert.ErrorIs(t, engine.AuthorizeSession(ctx, ActionUpdate, core.Principal{UserID: "u2", OrganizationID: "o1"}, session), core.ErrForbidden)
	assert.ErrorIs(t, engine.AuthorizeSession(ctx, ActionRead, core.Principal{UserID: "u1", OrganizationID: "o2"}, session), core.ErrNotFound)
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package session_access\ndecision = {")
	assert.Error(t, err)
}

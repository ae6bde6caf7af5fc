package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

type Decision string

const (
	Allow     Decision = "allow"
	NotFound  Decision = "not_found"
	Forbidden Decision = "forbidden"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Engine evaluates the session access policy.
type Engine struct {
	query rego.PreparedEvalQuery
}

func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.session_access.decision"),
		rego.Module("session_access.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return &Engine{query: query}, nil
}

// Evaluate returns the decision for caller acting on session. A nil session
// means the id did not resolve.
func (e *Engine) Evaluate(ctx context.Context, action Action, caller core.Principal, session *models.Session) (Decision, error) {
	sess := map[string]any{"exists": session != nil}
	if session != nil {
		sess["org_id"] = session.OrganizationID
		sess["user_id"] = session.UserID
	}
	input := map[string]any{
		"action": string(action),
		"caller": map[string]any{
			"org_id":  caller.OrganizationID,
			"user_id": caller.UserID,
		},
		"session": sess,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return NotFound, nil
	}
	s, ok := results[0].Expressions[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("policy returned %T, want string", results[0].Expressions[0].Value)
	}
	return Decision(s), nil
}

// AuthorizeSession maps the decision onto core errors.
func (e *Engine) AuthorizeSession(ctx context.Context, action Action, caller core.Principal, session *models.Session) error {
	d, err := e.Evaluate(ctx, action, caller, session)
	if err != nil {
		return err
	}
	switch d {
	case Allow:
		return nil
	case Forbidden:
		return core.ErrForbidden
	default:
		return core.ErrSessionNotFound
	}
}

// DefaultPolicy hides sessions of other organizations and restricts update
// and delete to the session owner.
const DefaultPolicy = `
package session_access

default decision = "allow"

owner_only = {"update", "delete"}

decision = "not_found" {
	not input.session.exists
}

decision = "not_found" {
	input.session.exists
	input.session.org_id != input.caller.org_id
}

decision = "forbidden" {
	input.session.exists
	input.session.org_id == input.caller.org_id
	owner_only[input.action]
	input.session.user_id != input.caller.user_id
}
`

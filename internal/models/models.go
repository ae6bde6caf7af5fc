package models

import (
	"time"
)

// Organization is the billing entity whose credit balance is charged.
type Organization struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Plan          string    `db:"plan" json:"plan"`
	CreditBalance int64     `db:"credit_balance" json:"credit_balance"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CreditTransaction is the audit row written for every successful deduction.
type CreditTransaction struct {
	ID             string    `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	Amount         int64     `db:"amount" json:"amount"` // negative for deductions
	BalanceAfter   int64     `db:"balance_after" json:"balance_after"`
	Reason         string    `db:"reason" json:"reason"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type SessionType string

const (
	SessionTypeChat    SessionType = "chat"
	SessionTypeSandbox SessionType = "sandbox"
	SessionTypeAgent   SessionType = "agent"
	SessionTypeOther   SessionType = "other"
)

func (t SessionType) Valid() bool {
	switch t {
	case SessionTypeChat, SessionTypeSandbox, SessionTypeAgent, SessionTypeOther:
		return true
	}
	return false
}

// Session is one logical conversation owned by an organization.
type Session struct {
	ID             string         `db:"id" json:"id"`
	OrganizationID string         `db:"organization_id" json:"organization_id"`
	UserID         string         `db:"user_id" json:"user_id"`
	Type           SessionType    `db:"type" json:"type"`
	Title          string         `db:"title" json:"title"`
	Metadata       map[string]any `db:"metadata" json:"metadata"`
	Starred        bool           `db:"starred" json:"starred"`
	Archived       bool           `db:"archived" json:"archived"`
	LastSequence   int64          `db:"last_sequence" json:"last_sequence"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

type InteractionType string

const (
	InteractionUserMessage      InteractionType = "user_message"
	InteractionAssistantMessage InteractionType = "assistant_message"
	InteractionSystemMessage    InteractionType = "system_message"
	InteractionToolCall         InteractionType = "tool_call"
	InteractionToolResult       InteractionType = "tool_result"
)

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionUserMessage, InteractionAssistantMessage, InteractionSystemMessage,
		InteractionToolCall, InteractionToolResult:
		return true
	}
	return false
}

// Interaction is one immutable turn in a session. Sequence is the replay order.
type Interaction struct {
	ID          string          `db:"id" json:"id"`
	SessionID   string          `db:"session_id" json:"session_id"`
	Type        InteractionType `db:"type" json:"type"`
	Content     string          `db:"content" json:"content"`
	Metadata    map[string]any  `db:"metadata" json:"metadata"`
	CostCredits int64           `db:"cost_credits" json:"cost_credits"`
	Sequence    int64           `db:"sequence" json:"sequence"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Artifact is a file produced alongside an interaction (image, document).
type Artifact struct {
	ID             string         `db:"id" json:"id"`
	InteractionID  string         `db:"interaction_id" json:"interaction_id"`
	SessionID      string         `db:"session_id" json:"session_id"`
	OrganizationID string         `db:"organization_id" json:"organization_id"`
	Type           string         `db:"type" json:"type"` // image | document | code | other
	Name           string         `db:"name" json:"name"`
	StorageURL     string         `db:"storage_url" json:"storage_url"`
	ContentType    string         `db:"content_type" json:"content_type"`
	SizeBytes      int64          `db:"size_bytes" json:"size_bytes"`
	Metadata       map[string]any `db:"metadata" json:"metadata"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// Citation is a source reference collected while a completion streams.
type Citation struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

// SessionFilter narrows a session listing. Nil pointers mean "any".
type SessionFilter struct {
	Type     SessionType
	Starred  *bool
	Archived *bool
	Limit    int
	Offset   int
}

// SessionUpdate carries the mutable fields of a session. Nil means unchanged.
type SessionUpdate struct {
	Title    *string        `json:"title,omitempty"`
	Starred  *bool          `json:"starred,omitempty"`
	Archived *bool          `json:"archived,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

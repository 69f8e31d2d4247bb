package activitylog

import (
	"strings"
	"time"
)

// Entry is an immutable, append-only record of one user interaction.
//
// Invariants:
// - Entries are never updated or deleted.
// - Tab, Action and Session are required.
// - A pending entry may have no matching final entry; readers must tolerate that.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Tab       Tab            `json:"tab"`
	Action    Action         `json:"action"`
	Session   string         `json:"user_session"`
	Input     map[string]any `json:"input"`
	Output    map[string]any `json:"output"`
}

type Tab string

const (
	TabVerifier Tab = "verifier"
	TabSource   Tab = "source"
)

func (t Tab) Valid() bool {
	return t == TabVerifier || t == TabSource
}

type Action string

const (
	ActionSearch     Action = "search"
	ActionValidation Action = "validation"
	ActionSelection  Action = "selection"
)

func (a Action) Valid() bool {
	switch a {
	case ActionSearch, ActionValidation, ActionSelection:
		return true
	default:
		return false
	}
}

// Result values written into Output["result"].
const (
	ResultPending = "pending"
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultError   = "error"
)

const (
	DefaultQuerySize = 50
	MaxQuerySize     = 500
)

// Query filters Search. Zero values mean "no filter".
type Query struct {
	Tab    Tab
	Action Action
	From   time.Time
	To     time.Time
	Size   int
}

func (q Query) withDefaults() Query {
	q.Tab = Tab(strings.TrimSpace(string(q.Tab)))
	q.Action = Action(strings.TrimSpace(string(q.Action)))
	if q.Size <= 0 {
		q.Size = DefaultQuerySize
	}
	if q.Size > MaxQuerySize {
		q.Size = MaxQuerySize
	}
	return q
}

// Matches reports whether e passes the query filters. Bounds are inclusive.
func (q Query) Matches(e Entry) bool {
	if q.Tab != "" && e.Tab != q.Tab {
		return false
	}
	if q.Action != "" && e.Action != q.Action {
		return false
	}
	if !q.From.IsZero() && e.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && e.Timestamp.After(q.To) {
		return false
	}
	return true
}

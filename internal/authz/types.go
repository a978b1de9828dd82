package authz

import (
	"fmt"
	"time"
)

// Action is one of the closed set of capabilities subject to per-user
// allow/deny. The vocabulary is fixed at compile time; free-form strings are
// rejected at the boundary by ParseAction.
type Action string

const (
	ActionPost    Action = "Post"
	ActionMessage Action = "Message"
	ActionFriend  Action = "Friend"
	ActionNudge   Action = "Nudge"
	ActionRecord  Action = "Record"
)

// Actions lists the recognized vocabulary in display order.
var Actions = []Action{ActionPost, ActionMessage, ActionFriend, ActionNudge, ActionRecord}

// Valid reports whether the action belongs to the recognized set.
func (a Action) Valid() bool {
	switch a {
	case ActionPost, ActionMessage, ActionFriend, ActionNudge, ActionRecord:
		return true
	}
	return false
}

// ParseAction validates a raw action string against the recognized set.
func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, raw)
	}
	return a, nil
}

// Denial is a standing record that a user is blocked from an action.
// At most one denial exists per (user, action) pair.
type Denial struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Action    Action    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// Delegation is a directed edge granting the authorizer administrative
// control over the authorizee's denials. Not symmetric, not transitive;
// at most one edge exists per ordered pair.
type Delegation struct {
	Authorizer string    `json:"authorizer"`
	Authorizee string    `json:"authorizee"`
	CreatedAt  time.Time `json:"created_at"`
}

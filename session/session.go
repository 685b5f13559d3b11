// Package session owns per-owner authenticated-session state: an opaque
// cookie blob, its lifecycle timestamps, and the connection state machine.
//
// The cookie blob is credential material. It is stored and passed through
// verbatim and must never be logged; callers log counts and timestamps only.
package session

import (
	"fmt"
	"time"
)

// State is the connection state of one owner's scraping session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateExpired      State = "expired"
)

// transitions is the allowed state graph. Anything absent is rejected.
var transitions = map[State][]State{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateConnected, StateDisconnected},
	StateConnected:    {StateExpired, StateDisconnected},
	StateExpired:      {StateDisconnected},
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Session is one owner's authenticated browse session.
type Session struct {
	OwnerID    string
	State      State
	Cookies    []byte // opaque blob, format owned by the page-control layer
	CapturedAt time.Time
	ExpiresAt  time.Time
	LastUsedAt time.Time
}

// ExpiringSoon reports whether the session expires within the given number
// of days. Used for UI reconnect warnings, not for gating operations.
func (s *Session) ExpiringSoon(days int) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return time.Until(s.ExpiresAt) < time.Duration(days)*24*time.Hour
}

// NotAuthenticatedError means the owner has no usable session: absent,
// expired, or not in the Connected state. Terminal for the operation;
// the caller surfaces "reconnect required".
type NotAuthenticatedError struct {
	OwnerID string
	Reason  string
}

func (e *NotAuthenticatedError) Error() string {
	return fmt.Sprintf("session: owner %s not authenticated: %s", e.OwnerID, e.Reason)
}

// InvalidTransitionError is returned for state changes outside the graph.
type InvalidTransitionError struct {
	OwnerID  string
	From, To State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("session: owner %s: illegal transition %s -> %s", e.OwnerID, e.From, e.To)
}

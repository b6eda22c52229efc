package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("not found")

// Keys of the session context bag understood by the chatbot.
const (
	KeyAwaitingCode = "awaiting_code"
	KeyTrackingCode = "codeSuivi"
)

// SessionContext is the key/value bag carried between turns of one chat session.
// A nil bag behaves as an empty one.
type SessionContext map[string]any

func (c SessionContext) AwaitingCode() bool {
	v, _ := c[KeyAwaitingCode].(bool)
	return v
}

func (c SessionContext) TrackingCode() string {
	v, _ := c[KeyTrackingCode].(string)
	return v
}

// Clone returns a shallow copy that never aliases c.
func (c SessionContext) Clone() SessionContext {
	out := make(SessionContext, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// ContextStore maps session ids to their context bag.
//
// Get and Set are individually atomic but a Get/Set pair is not: two requests on
// the same session can interleave and the last Set wins.
type ContextStore interface {
	Get(ctx context.Context, sessionID string) (SessionContext, error)
	Set(ctx context.Context, sessionID string, sc SessionContext) error
}

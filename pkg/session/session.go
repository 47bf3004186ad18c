// Package session provides view-session management for open trees.
//
// A session captures everything needed to restore a user's view of a tree:
// the source text, which tree of a multi-tree file is open, and the edits
// applied on top (rooting, ordering, hidden clades, paints). Sessions expire
// and are garbage collected, so an abandoned browser tab does not pin a
// large tree in memory forever.
//
// The Store interface supports multiple backends:
//   - memory: In-memory storage for development/testing
//   - file: File-based storage for CLI applications
//   - mongo: Document storage for multi-instance server deployments
//
// # Usage
//
// Create a session store:
//
//	// Development
//	store := NewMemoryStore()
//
//	// CLI
//	store, err := NewFileStore("")  // Uses ~/.config/peartree/sessions/
//
// Manage sessions:
//
//	sess, err := session.New(treeText, session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	store.Set(ctx, sess)
//
//	sess, err := store.Get(ctx, sessionID)
//	if err != nil {
//	    return err
//	}
//	if sess == nil || sess.IsExpired() {
//	    // Session not found or expired
//	}
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("expired")
)

// ViewState holds the edits applied on top of the source tree. Applying the
// state to a freshly loaded tree reproduces the user's view exactly.
type ViewState struct {
	Midpoint   bool    `json:"midpoint,omitempty" bson:"midpoint,omitempty"`
	Reroot     bool    `json:"reroot,omitempty" bson:"reroot,omitempty"`
	RerootID   int     `json:"reroot_id,omitempty" bson:"reroot_id,omitempty"`
	RerootDist float64 `json:"reroot_dist,omitempty" bson:"reroot_dist,omitempty"`
	Order      string  `json:"order,omitempty" bson:"order,omitempty"`
	Hidden     []int   `json:"hidden,omitempty" bson:"hidden,omitempty"`
	View       int     `json:"view,omitempty" bson:"view,omitempty"`

	// Paints maps node identifiers (as strings, for JSON/BSON key
	// compatibility) to display colours.
	Paints map[string]string `json:"paints,omitempty" bson:"paints,omitempty"`
}

// Session stores one open tree and its view state.
type Session struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name,omitempty" bson:"name,omitempty"`
	Source    string    `json:"source" bson:"source"`
	TreeIndex int       `json:"tree_index,omitempty" bson:"tree_index,omitempty"`
	State     ViewState `json:"state" bson:"state"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch extends the session's lifetime and stamps the update time. Stores
// call it on every state change so active sessions never expire mid-edit.
func (s *Session) Touch(ttl time.Duration) {
	now := time.Now()
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(ttl)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions (optional, may be no-op).
	Cleanup(ctx context.Context) error
}

// DefaultTTL is the default session duration.
const DefaultTTL = 24 * time.Hour

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// New creates a new session holding the given tree source.
func New(source string, ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:        id,
		Source:    source,
		State:     ViewState{View: -1},
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

package domain

import (
	"fmt"
	"time"
)

// User is the persisted conversational state of one chat participant.
type User struct {
	ID           string    `json:"user_id"`
	Source       string    `json:"source"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Username     string    `json:"username"`
	RegisteredAt time.Time `json:"registered_at"`

	// Progress is the id of the node the user occupies.
	Progress int `json:"progress"`

	LastActivity time.Time `json:"last_activity"`
	IsActive     bool      `json:"is_active"`

	// AnchorRef is the transport reference of the last interactive message.
	AnchorRef string `json:"anchor_ref,omitempty"`
}

// UserID composes the natural key of a user from its channel tag and the
// channel-native identifier.
func UserID(source string, nativeID int64) string {
	return fmt.Sprintf("%s_%d", source, nativeID)
}

// UserPatch lists the fields to merge into a user row. Nil fields are left
// untouched (or defaulted on creation).
type UserPatch struct {
	Source       *string
	FirstName    *string
	LastName     *string
	Username     *string
	Progress     *int
	LastActivity *time.Time
	IsActive     *bool
	AnchorRef    *string
}

// Apply merges the patch into u.
func (p UserPatch) Apply(u *User) {
	if p.Source != nil {
		u.Source = *p.Source
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Progress != nil {
		u.Progress = *p.Progress
	}
	if p.LastActivity != nil {
		u.LastActivity = *p.LastActivity
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.AnchorRef != nil {
		u.AnchorRef = *p.AnchorRef
	}
}

// NewUser returns the default row created on first contact.
func NewUser(id string, now time.Time) *User {
	return &User{
		ID:           id,
		RegisteredAt: now,
		LastActivity: now,
		Progress:     RootNodeID,
		IsActive:     true,
	}
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// Profile is the sender identity attached to every inbound event.
type Profile struct {
	Source    string `json:"source"`
	NativeID  int64  `json:"native_id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// UserID derives the natural key of the sender.
func (p Profile) UserID() string {
	return UserID(p.Source, p.NativeID)
}

// Counts is the aggregate read used by the operator report.
type Counts struct {
	Total      int            `json:"total"`
	BySource   map[string]int `json:"by_source"`
	Incomplete int            `json:"incomplete"`
	Active     int            `json:"active"`
	Blocked    int            `json:"blocked"`
}

// Table is a plain tabular dump of one relation, in scan order.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

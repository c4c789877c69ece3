package domain

// NotificationKind classifies messages sent to the operator channel.
type NotificationKind string

const (
	NotifyNewUser    NotificationKind = "new_user"
	NotifyEscalation NotificationKind = "escalation"
	NotifyCompletion NotificationKind = "completion"
	NotifyQuestion   NotificationKind = "question"
)

// Notification asks the host to tell the operator channel about a user.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	UserID  string           `json:"user_id"`
	Payload string           `json:"payload,omitempty"`
}

// Decision is the outcome of one turn. It is the only channel through which
// the engine talks to the transport boundary.
type Decision struct {
	// RenderNodeID is the node whose content is rendered.
	RenderNodeID int `json:"render_node_id"`
	// Text and Choices are the rendered content.
	Text    string     `json:"text"`
	Choices [][]Choice `json:"choices,omitempty"`

	// NextProgress is the cursor to persist. Equal to the old one when the
	// turn did not navigate.
	NextProgress int `json:"next_progress"`

	// Answer, when set, must be appended before the user row is written.
	Answer *AnswerDraft `json:"answer,omitempty"`

	// Notify, when set, is relayed to the operator channel.
	Notify *Notification `json:"notify,omitempty"`

	// MutateAnchor asks the host to strip controls from the previous
	// interactive message and echo the answer on it.
	MutateAnchor bool `json:"mutate_anchor"`

	// Created is true when the entry event created the user.
	Created bool `json:"created,omitempty"`

	// Fallback is true when the input was unexpected.
	Fallback bool `json:"fallback,omitempty"`
}

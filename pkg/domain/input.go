package domain

// EventKind classifies an inbound user event.
type EventKind string

const (
	// EventEntry is first contact or a restart (the /start equivalent).
	EventEntry EventKind = "entry"
	// EventChoice is a button press carrying a token.
	EventChoice EventKind = "choice"
	// EventFreeText is a typed message.
	EventFreeText EventKind = "free_text"
)

// InputEvent is one user input for a single turn.
type InputEvent struct {
	Kind  EventKind `json:"kind"`
	Token string    `json:"token,omitempty"`
	Text  string    `json:"text,omitempty"`

	// Profile is the sender identity, when the transport knows it. Entry
	// events use it to fill the user row and to render greetings.
	Profile *Profile `json:"profile,omitempty"`
}

// Entry builds an entry event.
func Entry() InputEvent { return InputEvent{Kind: EventEntry} }

// Choose builds a choice event.
func Choose(token string) InputEvent { return InputEvent{Kind: EventChoice, Token: token} }

// Say builds a free-text event.
func Say(text string) InputEvent { return InputEvent{Kind: EventFreeText, Text: text} }

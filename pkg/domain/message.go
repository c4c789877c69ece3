package domain

// Message is outbound content: text plus an optional choice set.
type Message struct {
	Text    string     `json:"text"`
	Choices [][]Choice `json:"choices,omitempty"`
}

// Edit describes a change to an already delivered message.
type Edit struct {
	// StripChoices removes the interactive controls.
	StripChoices bool `json:"strip_choices"`
	// Append is added below the original text (answer echo). Empty means
	// the text is left as is.
	Append string `json:"append,omitempty"`
	// Delete retracts the message entirely.
	Delete bool `json:"delete,omitempty"`
}

/*
Package dsl provides a Go DSL for programmatically constructing questionnaire scripts.

It is an alternative to the YAML loader in package script: nodes, choice rows,
actions and labels are declared with a fluent builder and the result goes
through the same validation as a loaded document. Useful for tests and for
embedding a short script in a binary.

Example usage:

	b := dsl.New("contact")
	b.Label("yes", "Yes").Label("no", "No")

	b.Add(1).
		Text("Do you need a consultation?").
		Row("yes", "no").
		On("yes", 2).
		On("no", -1)

	b.Add(2).
		Text("Leave your phone number.").
		Slot(1).
		Listen(0)

	b.Add(0).Text("Thanks, we will call you.")
	b.Add(-1).Text("Come back any time.")

	s, err := b.Build(nil)
*/
package dsl

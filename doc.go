/*
Package intake is the core of a scripted questionnaire bot.

A script is a small graph of numbered nodes loaded from YAML. Each user has a
cursor (progress) into that graph, persisted in a store. Every inbound event
is one turn: the user is locked, the engine maps (stored user, event) to a
decision, the decision is persisted and delivered, and the operator channel
is notified when something needs a human.

# Usage

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	app, err := intake.New(ctx, cfg, intake.WithRenderer(renderer))
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	res, err := app.Conversation.HandleTurn(ctx, conversation.InboundEvent{
		Profile: domain.Profile{Source: "telegram", NativeID: 42, FirstName: "Ann"},
		Event:   domain.Entry(),
	})

Transports live under pkg/adapters: a JSON HTTP API with a webhook renderer,
and an MCP server for operator tools. The intake command wires them.
*/
package intake

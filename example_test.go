package intake_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/conversation"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/dsl"
)

// ExampleNew_memory runs a two-node script on the in-memory store.
// Useful for tests and embedded scenarios without a database file.
func ExampleNew_memory() {
	// 1. Build the script in Go.
	b := dsl.New("demo")
	b.Label("yes", "Yes").Label("no", "No")
	b.Add(1).Text("Do you want to proceed?").Row("yes", "no").On("yes", 0).On("no", -1)
	b.Add(0).Text("Great! You moved forward.")
	b.Add(-1).Text("Okay, bye.")
	s, err := b.Build(nil)
	if err != nil {
		log.Fatal(err)
	}

	// 2. Wire the app with a recording renderer.
	ctx := context.Background()
	renderer := memory.NewRenderer()
	app, err := intake.New(ctx, config.Config{Storage: config.DriverMemory, OperatorChannel: "operators", BackPolicy: "none"},
		intake.WithRenderer(renderer),
		intake.WithScript(s),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	// 3. Enter, then answer "yes".
	profile := domain.Profile{Source: "console", NativeID: 1, FirstName: "Ann"}
	for _, ev := range []domain.InputEvent{domain.Entry(), domain.Choose("yes")} {
		res, err := app.Conversation.HandleTurn(ctx, conversation.InboundEvent{Profile: profile, Event: ev})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%d: %s\n", res.User.Progress, res.Decision.Text)
	}

	// Output:
	// 1: Do you want to proceed?
	// 0: Great! You moved forward.
}

package runtime_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/require"
)

// Random walks over the default script under every back policy. Applying
// each decision the way the host does must keep progress on a real node and
// attribute answers to the node that was active.
func TestEngine_RandomWalksKeepProgressValid(t *testing.T) {
	tokens := []string{
		"yes", "no", "russia", "other", "maybe",
		domain.TokenBack, domain.TokenGoBack, domain.TokenBackToSurvey,
		domain.TokenGoToManager, domain.TokenNoGoToManager,
	}
	texts := []string{"2 years", "Georgia", "", "\x1b[31mhi"}

	for _, policy := range []runtime.BackPolicy{runtime.BackLastAnswer, runtime.BackDecrement, runtime.BackNone} {
		t.Run(string(policy), func(t *testing.T) {
			engine, store := newEngine(t, runtime.WithBackPolicy(policy))
			s := engine.Script()
			ctx := context.Background()
			rng := rand.New(rand.NewSource(7))

			for walk := 0; walk < 50; walk++ {
				var user *domain.User
				for step := 0; step < 40; step++ {
					var ev domain.InputEvent
					switch r := rng.Intn(10); {
					case user == nil || r == 0:
						ev = domain.Entry()
					case r < 6:
						ev = domain.Choose(tokens[rng.Intn(len(tokens))])
					default:
						ev = domain.Say(texts[rng.Intn(len(texts))])
					}

					d, err := engine.Advance(ctx, user, ev)
					require.NoError(t, err)
					require.True(t, s.Has(d.NextProgress), "progress %d is not a node", d.NextProgress)

					if user == nil {
						user = domain.NewUser("telegram_1", time.Now())
					}
					if d.Answer != nil {
						active, _ := s.Node(user.Progress)
						require.Equal(t, active.QuestionID, d.Answer.QuestionID)
						_, err := store.AppendAnswer(ctx, user.ID, d.Answer.QuestionID, d.Answer.Text)
						require.NoError(t, err)
					}
					user.Progress = d.NextProgress
				}
			}
		})
	}
}

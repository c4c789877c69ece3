package conversation_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/conversation"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/ports/mocks"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) kinds() []domain.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.NotificationKind
	for _, n := range r.sent {
		out = append(out, n.Kind)
	}
	return out
}

var ann = domain.Profile{Source: "telegram", NativeID: 1, FirstName: "Ann", Username: "ann"}

func newService(t *testing.T, renderer ports.Renderer, opts ...conversation.Option) (*conversation.Service, *memory.Store) {
	t.Helper()
	s, err := script.Default()
	require.NoError(t, err)
	store := memory.NewStore()
	engine := runtime.NewEngine(s, registry.Builtins(), store)
	return conversation.NewService(engine, store, renderer, opts...), store
}

func turn(t *testing.T, svc *conversation.Service, ev domain.InputEvent) *conversation.TurnResult {
	t.Helper()
	res, err := svc.HandleTurn(context.Background(), conversation.InboundEvent{Profile: ann, Event: ev})
	require.NoError(t, err)
	return res
}

func TestService_FullQuestionnaire(t *testing.T) {
	renderer := memory.NewRenderer()
	notifier := &recordingNotifier{}
	svc, store := newService(t, renderer, conversation.WithNotifier(notifier))
	ctx := context.Background()

	res := turn(t, svc, domain.Entry())
	assert.True(t, res.Decision.Created)
	assert.Equal(t, 1, res.User.Progress)
	assert.Equal(t, "Ann", res.User.FirstName)
	assert.Equal(t, "telegram", res.User.Source)
	assert.Equal(t, res.MessageRef, res.User.AnchorRef)

	turn(t, svc, domain.Choose("yes"))
	turn(t, svc, domain.Choose("no"))
	turn(t, svc, domain.Choose("yes"))
	turn(t, svc, domain.Say("2 years"))
	res = turn(t, svc, domain.Choose("russia"))
	assert.Equal(t, 0, res.User.Progress)

	answers, err := store.Answers(ctx, "telegram_1")
	require.NoError(t, err)
	var got []domain.AnswerDraft
	for _, a := range answers {
		got = append(got, domain.AnswerDraft{QuestionID: a.QuestionID, Text: a.Text})
	}
	assert.Equal(t, []domain.AnswerDraft{
		{QuestionID: 1, Text: "no"},
		{QuestionID: 2, Text: "yes"},
		{QuestionID: 3, Text: "2 years"},
		{QuestionID: 4, Text: "russia"},
	}, got)

	assert.Equal(t, []domain.NotificationKind{domain.NotifyNewUser, domain.NotifyCompletion}, notifier.kinds())

	last, ok := renderer.Last("telegram_1")
	require.True(t, ok)
	assert.Contains(t, last.Msg.Text, "thank you for your answers")
}

func TestService_AnchorLifecycle(t *testing.T) {
	renderer := memory.NewRenderer()
	svc, _ := newService(t, renderer)

	first := turn(t, svc, domain.Entry())
	second := turn(t, svc, domain.Choose("yes"))
	third := turn(t, svc, domain.Choose("no"))
	fallback := turn(t, svc, domain.Choose("maybe"))
	restart := turn(t, svc, domain.Entry())

	edits := renderer.Edits("telegram_1")
	require.Len(t, edits, 3)
	assert.Equal(t, memory.EditRecord{To: "telegram_1", Ref: first.MessageRef, Edit: domain.Edit{StripChoices: true}}, edits[0])
	assert.Equal(t, memory.EditRecord{To: "telegram_1", Ref: second.MessageRef, Edit: domain.Edit{StripChoices: true, Append: "✏️ ❌ No"}}, edits[1])
	assert.Equal(t, memory.EditRecord{To: "telegram_1", Ref: fallback.MessageRef, Edit: domain.Edit{Delete: true}}, edits[2], "restart retracts the anchor")

	assert.True(t, fallback.Decision.Fallback)
	assert.Equal(t, 3, fallback.User.Progress, "fallback keeps progress")
	assert.NotEqual(t, third.MessageRef, restart.MessageRef)
	assert.Equal(t, 1, restart.User.Progress)
	assert.Equal(t, restart.MessageRef, restart.User.AnchorRef)
}

func TestService_UnknownSenderStartsOver(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, _ := newService(t, memory.NewRenderer(), conversation.WithNotifier(notifier))

	res := turn(t, svc, domain.Choose("yes"))
	assert.True(t, res.Decision.Created)
	assert.Equal(t, 1, res.User.Progress)
	assert.Equal(t, []domain.NotificationKind{domain.NotifyNewUser}, notifier.kinds())
}

func TestService_EscalationNotifiesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	svc, _ := newService(t, memory.NewRenderer(), conversation.WithNotifier(notifier))

	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil) // new_user
	turn(t, svc, domain.Entry())
	notifier.EXPECT().Notify(gomock.Any(), domain.Notification{Kind: domain.NotifyEscalation, UserID: "telegram_1"}).Return(nil).Times(1)
	res := turn(t, svc, domain.Choose(domain.TokenNoGoToManager))
	assert.Equal(t, -1, res.User.Progress)
}

func TestService_NotifierErrorDoesNotFailTurn(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("operator chat down"))
	svc, _ := newService(t, memory.NewRenderer(), conversation.WithNotifier(notifier))

	res := turn(t, svc, domain.Entry())
	assert.Equal(t, 1, res.User.Progress)
}

func TestService_TransientDeliveryKeepsState(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)
	svc, store := newService(t, renderer)
	ctx := context.Background()

	renderer.EXPECT().Send(gomock.Any(), "telegram_1", gomock.Any()).Return("m1", nil)
	turn(t, svc, domain.Entry())

	renderer.EXPECT().Edit(gomock.Any(), "telegram_1", "m1", domain.Edit{StripChoices: true}).Return(nil)
	renderer.EXPECT().Send(gomock.Any(), "telegram_1", gomock.Any()).Return("", errors.New("connection reset"))
	res := turn(t, svc, domain.Choose("yes"))

	assert.Equal(t, 2, res.User.Progress, "state is persisted even though the send failed")
	assert.Equal(t, "m1", res.User.AnchorRef, "anchor only moves when a message went out")
	assert.True(t, res.User.IsActive)

	u, err := store.GetUser(ctx, "telegram_1")
	require.NoError(t, err)
	assert.Equal(t, 2, u.Progress)
}

func TestService_PermanentDeliveryDeactivates(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)
	svc, _ := newService(t, renderer)
	blocked := &domain.DeliveryError{Permanent: true, Err: errors.New("bot was blocked by the user")}

	renderer.EXPECT().Send(gomock.Any(), "telegram_1", gomock.Any()).Return("m1", nil)
	turn(t, svc, domain.Entry())

	renderer.EXPECT().Edit(gomock.Any(), "telegram_1", "m1", gomock.Any()).Return(blocked)
	res := turn(t, svc, domain.Choose("yes"))
	assert.False(t, res.User.IsActive)
	assert.Equal(t, 2, res.User.Progress)

	// Writing again proves the user is reachable.
	renderer.EXPECT().Edit(gomock.Any(), "telegram_1", "m1", gomock.Any()).Return(nil)
	renderer.EXPECT().Send(gomock.Any(), "telegram_1", gomock.Any()).Return("m2", nil)
	res = turn(t, svc, domain.Choose("yes"))
	assert.True(t, res.User.IsActive)
	assert.Equal(t, "m2", res.User.AnchorRef)
}

func TestService_ConfigurationErrorFailsTurn(t *testing.T) {
	svc, store := newService(t, memory.NewRenderer())
	ctx := context.Background()
	_, err := store.UpsertUser(ctx, "telegram_1", domain.UserPatch{Progress: domain.Ptr(42)})
	require.NoError(t, err)

	_, err = svc.HandleTurn(ctx, conversation.InboundEvent{Profile: ann, Event: domain.Choose("yes")})
	var unknown *domain.UnknownNodeError
	assert.ErrorAs(t, err, &unknown)
}

func TestService_ConcurrentTurnsOfOneUser(t *testing.T) {
	svc, store := newService(t, memory.NewRenderer())
	ctx := context.Background()
	turn(t, svc, domain.Entry())
	_, err := store.UpsertUser(ctx, "telegram_1", domain.UserPatch{Progress: domain.Ptr(-2)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.HandleTurn(ctx, conversation.InboundEvent{Profile: ann, Event: domain.Say("any news?")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	answers, err := store.Answers(ctx, "telegram_1")
	require.NoError(t, err)
	assert.Len(t, answers, 20)
	u, err := store.GetUser(ctx, "telegram_1")
	require.NoError(t, err)
	assert.Equal(t, -2, u.Progress)
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// Store implements ports.Store in memory.
// Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	order   []string // insertion order, for scans
	answers []domain.Answer
	nextID  int64
	lastAt  time.Time
	now     func() time.Time
}

var _ ports.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		users: make(map[string]*domain.User),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// GetUser returns a copy so callers can't mutate store state by pointer.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	ret := *u
	return &ret, nil
}

// UpsertUser creates or merges under the write lock.
func (s *Store) UpsertUser(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		u = domain.NewUser(userID, s.clock())
		s.users[userID] = u
		s.order = append(s.order, userID)
	}
	patch.Apply(u)
	ret := *u
	return &ret, nil
}

// SetProgress moves the cursor.
func (s *Store) SetProgress(ctx context.Context, userID string, nodeID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Progress = nodeID
	return nil
}

// FindByUsername scans the users.
func (s *Store) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if u := s.users[id]; u.Username == username {
			ret := *u
			return &ret, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// ListUserIDs returns active users of source.
func (s *Store) ListUserIDs(ctx context.Context, source string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0)
	for _, id := range s.order {
		if u := s.users[id]; u.Source == source && u.IsActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// AppendAnswer inserts an answer with a monotonic timestamp.
func (s *Store) AppendAnswer(ctx context.Context, userID string, questionID int, text string) (*domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.clock()
	if at.Before(s.lastAt) {
		at = s.lastAt
	}
	s.lastAt = at
	s.nextID++

	a := domain.Answer{
		ID:         s.nextID,
		UserID:     userID,
		QuestionID: questionID,
		Text:       text,
		AnsweredAt: at,
	}
	s.answers = append(s.answers, a)
	return &a, nil
}

// LastAnswer walks the log backwards; later entries win ties.
func (s *Store) LastAnswer(ctx context.Context, userID string) (*domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *domain.Answer
	for i := len(s.answers) - 1; i >= 0; i-- {
		a := s.answers[i]
		if a.UserID != userID {
			continue
		}
		if last == nil || a.AnsweredAt.After(last.AnsweredAt) {
			cp := a
			last = &cp
		}
	}
	if last == nil {
		return nil, domain.ErrNoAnswers
	}
	return last, nil
}

// Answers returns the user's answers in insertion order.
func (s *Store) Answers(ctx context.Context, userID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Answer, 0)
	for _, a := range s.answers {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

// AggregateCounts tallies every user.
func (s *Store) AggregateCounts(ctx context.Context) (domain.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*domain.User, 0, len(s.order))
	for _, id := range s.order {
		users = append(users, s.users[id])
	}
	return ports.Tally(users), nil
}

// Dump returns both tables in insertion order.
func (s *Store) Dump(ctx context.Context) ([]domain.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := domain.Table{Name: ports.UsersTable, Header: ports.UserColumns}
	for _, id := range s.order {
		users.Rows = append(users.Rows, ports.UserRow(s.users[id]))
	}
	answers := domain.Table{Name: ports.AnswersTable, Header: ports.AnswerColumns}
	for i := range s.answers {
		answers.Rows = append(answers.Rows, ports.AnswerRow(&s.answers[i]))
	}
	return []domain.Table{users, answers}, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

package ports

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
)

// UserStore holds the user rows. Every method is atomic per user id.
type UserStore interface {
	// GetUser returns domain.ErrUserNotFound if the user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates the user if absent (Progress=1, IsActive=true) and
	// merges the supplied fields otherwise. It returns the resulting row.
	UpsertUser(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error)

	// SetProgress moves the cursor. The node id is not validated here.
	SetProgress(ctx context.Context, userID string, nodeID int) error

	// FindByUsername returns domain.ErrUserNotFound when nobody has the name.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// ListUserIDs returns the active users of a source.
	ListUserIDs(ctx context.Context, source string) ([]string, error)
}

// AnswerStore holds the append-only answer log.
type AnswerStore interface {
	AppendAnswer(ctx context.Context, userID string, questionID int, text string) (*domain.Answer, error)

	// LastAnswer returns the newest answer (ties broken by id) or
	// domain.ErrNoAnswers.
	LastAnswer(ctx context.Context, userID string) (*domain.Answer, error)

	// Answers returns the user's answers in insertion order.
	Answers(ctx context.Context, userID string) ([]domain.Answer, error)
}

// ReportStore provides the read-only aggregate and export views.
type ReportStore interface {
	AggregateCounts(ctx context.Context) (domain.Counts, error)

	// Dump returns every table, header first, rows in scan order.
	Dump(ctx context.Context) ([]domain.Table, error)
}

// Store is the full persistence port. It is opened once per process and
// closed on shutdown.
type Store interface {
	UserStore
	AnswerStore
	ReportStore
	Close() error
}

// LastAnswerReader is the narrow read the engine needs for legacy back
// navigation.
type LastAnswerReader interface {
	LastAnswer(ctx context.Context, userID string) (*domain.Answer, error)
}

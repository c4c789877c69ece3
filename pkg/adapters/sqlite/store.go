// Package sqlite provides the SQLite-backed store, the default persistence
// driver. Timestamps are stored as unix milliseconds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/intake/pkg/adapters/sqlite/migrations"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	_ "modernc.org/sqlite"
)

// Store persists users and answers in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
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

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens (or creates) the database at path and applies the embedded
// migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer connection keeps upserts serialised without SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const userColumns = `user_id, source, first_name, last_name, username, registered_at, progress, last_activity, is_active, anchor_ref`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u                   domain.User
		registered, lastAct int64
		active              int
	)
	if err := row.Scan(&u.ID, &u.Source, &u.FirstName, &u.LastName, &u.Username,
		&registered, &u.Progress, &lastAct, &active, &u.AnchorRef); err != nil {
		return nil, err
	}
	u.RegisteredAt = fromMillis(registered)
	u.LastActivity = fromMillis(lastAct)
	u.IsActive = active != 0
	return &u, nil
}

// GetUser loads one user row.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return u, nil
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return toMillis(*p)
}

func nullBool(p *bool) any {
	if p == nil {
		return nil
	}
	if *p {
		return 1
	}
	return 0
}

// UpsertUser inserts with defaults or merges the non-nil patch fields in a
// single statement.
func (s *Store) UpsertUser(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error) {
	now := toMillis(s.now())
	query := `
INSERT INTO users (` + userColumns + `)
VALUES (?1, COALESCE(?2, ''), COALESCE(?3, ''), COALESCE(?4, ''), COALESCE(?5, ''),
        ?10, COALESCE(?6, 1), COALESCE(?7, ?10), COALESCE(?8, 1), COALESCE(?9, ''))
ON CONFLICT(user_id) DO UPDATE SET
    source = COALESCE(?2, source),
    first_name = COALESCE(?3, first_name),
    last_name = COALESCE(?4, last_name),
    username = COALESCE(?5, username),
    progress = COALESCE(?6, progress),
    last_activity = COALESCE(?7, last_activity),
    is_active = COALESCE(?8, is_active),
    anchor_ref = COALESCE(?9, anchor_ref)
RETURNING ` + userColumns

	row := s.db.QueryRowContext(ctx, query,
		userID,
		nullString(patch.Source),
		nullString(patch.FirstName),
		nullString(patch.LastName),
		nullString(patch.Username),
		nullInt(patch.Progress),
		nullTime(patch.LastActivity),
		nullBool(patch.IsActive),
		nullString(patch.AnchorRef),
		now,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", userID, err)
	}
	return u, nil
}

// SetProgress moves the cursor of an existing user.
func (s *Store) SetProgress(ctx context.Context, userID string, nodeID int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET progress = ? WHERE user_id = ?`, nodeID, userID)
	if err != nil {
		return fmt.Errorf("set progress %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set progress %s: %w", userID, err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// FindByUsername returns the first user registered with username.
func (s *Store) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? ORDER BY rowid LIMIT 1`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find username %s: %w", username, err)
	}
	return u, nil
}

// ListUserIDs returns the active users of source in registration order.
func (s *Store) ListUserIDs(ctx context.Context, source string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM users WHERE source = ? AND is_active = 1 ORDER BY rowid`, source)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const answerColumns = `answer_id, user_id, question_id, answer_text, answered_at`

func scanAnswer(row rowScanner) (*domain.Answer, error) {
	var (
		a  domain.Answer
		at int64
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.Text, &at); err != nil {
		return nil, err
	}
	a.AnsweredAt = fromMillis(at)
	return &a, nil
}

// AppendAnswer inserts an answer. answered_at never goes backwards for a
// user even if the clock does.
func (s *Store) AppendAnswer(ctx context.Context, userID string, questionID int, text string) (*domain.Answer, error) {
	row := s.db.QueryRowContext(ctx, `
INSERT INTO answers (user_id, question_id, answer_text, answered_at)
VALUES (?1, ?2, ?3, MAX(?4, COALESCE((SELECT MAX(answered_at) FROM answers WHERE user_id = ?1), 0)))
RETURNING `+answerColumns,
		userID, questionID, text, toMillis(s.now()))
	a, err := scanAnswer(row)
	if err != nil {
		return nil, fmt.Errorf("append answer %s: %w", userID, err)
	}
	return a, nil
}

// LastAnswer returns the newest answer, ties broken by id.
func (s *Store) LastAnswer(ctx context.Context, userID string) (*domain.Answer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+answerColumns+` FROM answers
WHERE user_id = ? ORDER BY answered_at DESC, answer_id DESC LIMIT 1`, userID)
	a, err := scanAnswer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoAnswers
	}
	if err != nil {
		return nil, fmt.Errorf("last answer %s: %w", userID, err)
	}
	return a, nil
}

// Answers returns every answer of the user in insertion order.
func (s *Store) Answers(ctx context.Context, userID string) ([]domain.Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+answerColumns+` FROM answers WHERE user_id = ? ORDER BY answer_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("answers %s: %w", userID, err)
	}
	defer rows.Close()

	out := make([]domain.Answer, 0)
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) allUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AggregateCounts computes the report figures with one grouped query.
func (s *Store) AggregateCounts(ctx context.Context) (domain.Counts, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT source,
       COUNT(*),
       COALESCE(SUM(CASE WHEN progress > 0 THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(is_active), 0)
FROM users GROUP BY source`)
	if err != nil {
		return domain.Counts{}, fmt.Errorf("aggregate counts: %w", err)
	}
	defer rows.Close()

	c := domain.Counts{BySource: map[string]int{}}
	for rows.Next() {
		var (
			source                    string
			total, incomplete, active int
		)
		if err := rows.Scan(&source, &total, &incomplete, &active); err != nil {
			return domain.Counts{}, fmt.Errorf("scan counts: %w", err)
		}
		c.Total += total
		c.BySource[source] += total
		c.Incomplete += incomplete
		c.Active += active
		c.Blocked += total - active
	}
	return c, rows.Err()
}

// Dump returns both relations in scan order.
func (s *Store) Dump(ctx context.Context) ([]domain.Table, error) {
	users, err := s.allUsers(ctx)
	if err != nil {
		return nil, err
	}
	ut := domain.Table{Name: ports.UsersTable, Header: ports.UserColumns}
	for _, u := range users {
		ut.Rows = append(ut.Rows, ports.UserRow(u))
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+answerColumns+` FROM answers ORDER BY answer_id`)
	if err != nil {
		return nil, fmt.Errorf("scan answers: %w", err)
	}
	defer rows.Close()

	at := domain.Table{Name: ports.AnswersTable, Header: ports.AnswerColumns}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		at.Rows = append(at.Rows, ports.AnswerRow(a))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return []domain.Table{ut, at}, nil
}

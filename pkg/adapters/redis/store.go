// Package redis provides the Redis-backed store and the distributed per-user
// lock used when several processes serve the same bot.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store. The braces are a
// Redis Cluster hash tag: all keys hash to one slot.
const DefaultPrefix = "{intake}:"

// Store implements ports.Store using Redis hashes and lists.
//
// Layout (relative to the prefix):
//
//	users                   list of user ids in registration order
//	user:<id>               hash with the user row
//	user:<id>:answers       list of answer ids
//	user:<id>:answered_at   last answered_at (ms) of the user
//	answers                 list of every answer id
//	answer:<n>              hash with the answer row
//	answer:seq              answer id counter
//
// The Lua scripts derive answer:<n> from the counter, so not every key they
// touch is declared. On Redis Cluster the prefix must carry a hash tag (as
// DefaultPrefix does) to keep all keys in one slot; without one the store
// only works against a single node.
type Store struct {
	client backend.UniversalClient
	prefix string
	now    func() time.Time
}

var _ ports.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client exposes the underlying client so a Locker can share it.
func (s *Store) Client() backend.UniversalClient {
	return s.client
}

// Prefix returns the key prefix in use.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) userKey(id string) string        { return s.prefix + "user:" + id }
func (s *Store) userAnswersKey(id string) string { return s.prefix + "user:" + id + ":answers" }
func (s *Store) userLastAtKey(id string) string  { return s.prefix + "user:" + id + ":answered_at" }
func (s *Store) usersKey() string                { return s.prefix + "users" }
func (s *Store) answersKey() string              { return s.prefix + "answers" }
func (s *Store) answerSeqKey() string            { return s.prefix + "answer:seq" }

func (s *Store) answerKey(id int64) string {
	return s.prefix + "answer:" + strconv.FormatInt(id, 10)
}

func (s *Store) millis() int64 {
	return s.now().UTC().UnixMilli()
}

// KEYS: user hash, users list. ARGV: now, user id, field/value pairs.
var upsertScript = backend.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	redis.call("HSET", KEYS[1],
		"source", "", "first_name", "", "last_name", "", "username", "",
		"registered_at", ARGV[1], "progress", "1", "last_activity", ARGV[1],
		"is_active", "1", "anchor_ref", "")
	redis.call("RPUSH", KEYS[2], ARGV[2])
end
if #ARGV > 2 then
	redis.call("HSET", KEYS[1], unpack(ARGV, 3))
end
return redis.call("HGETALL", KEYS[1])
`)

// KEYS: user hash. ARGV: progress.
var setProgressScript = backend.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], "progress", ARGV[1])
return 1
`)

// KEYS: seq, user answers list, user last-at, answers list, answer key prefix.
// The answer hash is derived from KEYS[5] and shares its hash tag.
// ARGV: now, user id, question id, text.
var appendScript = backend.NewScript(`
local id = redis.call("INCR", KEYS[1])
local at = tonumber(ARGV[1])
local last = tonumber(redis.call("GET", KEYS[3]) or "0")
if last > at then
	at = last
end
redis.call("SET", KEYS[3], tostring(at))
redis.call("HSET", KEYS[5] .. id,
	"user_id", ARGV[2], "question_id", ARGV[3], "answer_text", ARGV[4], "answered_at", tostring(at))
redis.call("RPUSH", KEYS[2], id)
redis.call("RPUSH", KEYS[4], id)
return {id, tostring(at)}
`)

func patchArgs(p domain.UserPatch) []any {
	var args []any
	str := func(field string, v *string) {
		if v != nil {
			args = append(args, field, *v)
		}
	}
	str("source", p.Source)
	str("first_name", p.FirstName)
	str("last_name", p.LastName)
	str("username", p.Username)
	str("anchor_ref", p.AnchorRef)
	if p.Progress != nil {
		args = append(args, "progress", strconv.Itoa(*p.Progress))
	}
	if p.LastActivity != nil {
		args = append(args, "last_activity", strconv.FormatInt(p.LastActivity.UTC().UnixMilli(), 10))
	}
	if p.IsActive != nil {
		active := "0"
		if *p.IsActive {
			active = "1"
		}
		args = append(args, "is_active", active)
	}
	return args
}

func pairs(flat []any) map[string]string {
	m := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		k, _ := flat[i].(string)
		v, _ := flat[i+1].(string)
		m[k] = v
	}
	return m
}

func parseMillis(v string) time.Time {
	ms, _ := strconv.ParseInt(v, 10, 64)
	return time.UnixMilli(ms).UTC()
}

func decodeUser(id string, h map[string]string) *domain.User {
	progress, _ := strconv.Atoi(h["progress"])
	return &domain.User{
		ID:           id,
		Source:       h["source"],
		FirstName:    h["first_name"],
		LastName:     h["last_name"],
		Username:     h["username"],
		RegisteredAt: parseMillis(h["registered_at"]),
		Progress:     progress,
		LastActivity: parseMillis(h["last_activity"]),
		IsActive:     h["is_active"] == "1",
		AnchorRef:    h["anchor_ref"],
	}
}

func decodeAnswer(id int64, h map[string]string) domain.Answer {
	qid, _ := strconv.Atoi(h["question_id"])
	return domain.Answer{
		ID:         id,
		UserID:     h["user_id"],
		QuestionID: qid,
		Text:       h["answer_text"],
		AnsweredAt: parseMillis(h["answered_at"]),
	}
}

// GetUser loads the user hash.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	h, err := s.client.HGetAll(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user from redis: %w", err)
	}
	if len(h) == 0 {
		return nil, domain.ErrUserNotFound
	}
	return decodeUser(userID, h), nil
}

// UpsertUser creates or merges atomically server-side.
func (s *Store) UpsertUser(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error) {
	args := append([]any{s.millis(), userID}, patchArgs(patch)...)
	flat, err := upsertScript.Run(ctx, s.client, []string{s.userKey(userID), s.usersKey()}, args...).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return decodeUser(userID, pairs(flat)), nil
}

// SetProgress moves the cursor of an existing user.
func (s *Store) SetProgress(ctx context.Context, userID string, nodeID int) error {
	ok, err := setProgressScript.Run(ctx, s.client, []string{s.userKey(userID)}, nodeID).Int()
	if err != nil {
		return fmt.Errorf("failed to set progress: %w", err)
	}
	if ok == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) loadUsers(ctx context.Context) ([]*domain.User, error) {
	ids, err := s.client.LRange(ctx, s.usersKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*backend.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.userKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	users := make([]*domain.User, 0, len(ids))
	for i, id := range ids {
		h := cmds[i].Val()
		if len(h) == 0 {
			continue
		}
		users = append(users, decodeUser(id, h))
	}
	return users, nil
}

// FindByUsername scans the users in registration order.
func (s *Store) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// ListUserIDs returns the active users of source.
func (s *Store) ListUserIDs(ctx context.Context, source string) ([]string, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		if u.Source == source && u.IsActive {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

// AppendAnswer stores the answer; answered_at never decreases per user.
func (s *Store) AppendAnswer(ctx context.Context, userID string, questionID int, text string) (*domain.Answer, error) {
	keys := []string{
		s.answerSeqKey(),
		s.userAnswersKey(userID),
		s.userLastAtKey(userID),
		s.answersKey(),
		s.prefix + "answer:",
	}
	res, err := appendScript.Run(ctx, s.client, keys, s.millis(), userID, questionID, text).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to append answer: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("failed to append answer: unexpected reply %v", res)
	}
	id, _ := res[0].(int64)
	at, _ := res[1].(string)
	return &domain.Answer{
		ID:         id,
		UserID:     userID,
		QuestionID: questionID,
		Text:       text,
		AnsweredAt: parseMillis(at),
	}, nil
}

func (s *Store) loadAnswers(ctx context.Context, listKey string, start, stop int64) ([]domain.Answer, error) {
	raw, err := s.client.LRange(ctx, listKey, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	out := make([]domain.Answer, 0, len(raw))
	if len(raw) == 0 {
		return out, nil
	}

	ids := make([]int64, len(raw))
	pipe := s.client.Pipeline()
	cmds := make([]*backend.MapStringStringCmd, len(raw))
	for i, r := range raw {
		id, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt answer id %q: %w", r, err)
		}
		ids[i] = id
		cmds[i] = pipe.HGetAll(ctx, s.answerKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	for i, id := range ids {
		out = append(out, decodeAnswer(id, cmds[i].Val()))
	}
	return out, nil
}

// LastAnswer returns the newest answer of the user.
func (s *Store) LastAnswer(ctx context.Context, userID string) (*domain.Answer, error) {
	answers, err := s.loadAnswers(ctx, s.userAnswersKey(userID), -1, -1)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return nil, domain.ErrNoAnswers
	}
	return &answers[0], nil
}

// Answers returns the user's answers in insertion order.
func (s *Store) Answers(ctx context.Context, userID string) ([]domain.Answer, error) {
	return s.loadAnswers(ctx, s.userAnswersKey(userID), 0, -1)
}

// AggregateCounts tallies every user row.
func (s *Store) AggregateCounts(ctx context.Context) (domain.Counts, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return domain.Counts{}, err
	}
	return ports.Tally(users), nil
}

// Dump returns both relations in scan order.
func (s *Store) Dump(ctx context.Context) ([]domain.Table, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	answers, err := s.loadAnswers(ctx, s.answersKey(), 0, -1)
	if err != nil {
		return nil, err
	}

	ut := domain.Table{Name: ports.UsersTable, Header: ports.UserColumns}
	for _, u := range users {
		ut.Rows = append(ut.Rows, ports.UserRow(u))
	}
	at := domain.Table{Name: ports.AnswersTable, Header: ports.AnswerColumns}
	for i := range answers {
		at.Rows = append(at.Rows, ports.AnswerRow(&answers[i]))
	}
	return []domain.Table{ut, at}, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil && !errors.Is(err, backend.ErrClosed) {
		return err
	}
	return nil
}

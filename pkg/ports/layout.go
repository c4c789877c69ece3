package ports

import (
	"strconv"
	"time"

	"github.com/aretw0/intake/pkg/domain"
)

// Persisted relation names and column order. Every adapter dumps in this
// layout so exports look the same whatever the backend.
const (
	UsersTable   = "users"
	AnswersTable = "answers"
)

var (
	UserColumns = []string{
		"user_id", "source", "first_name", "last_name", "username",
		"registered_at", "progress", "last_activity", "is_active", "anchor_ref",
	}
	AnswerColumns = []string{
		"answer_id", "user_id", "question_id", "answer_text", "answered_at",
	}
)

// TimeLayout is the textual timestamp format used in dumps and reports.
const TimeLayout = "2006-01-02 15:04:05"

// FormatTime renders t in TimeLayout (UTC); the zero time renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// UserRow flattens u in UserColumns order.
func UserRow(u *domain.User) []string {
	active := "0"
	if u.IsActive {
		active = "1"
	}
	return []string{
		u.ID, u.Source, u.FirstName, u.LastName, u.Username,
		FormatTime(u.RegisteredAt), strconv.Itoa(u.Progress), FormatTime(u.LastActivity),
		active, u.AnchorRef,
	}
}

// AnswerRow flattens a in AnswerColumns order.
func AnswerRow(a *domain.Answer) []string {
	return []string{
		strconv.FormatInt(a.ID, 10), a.UserID, strconv.Itoa(a.QuestionID), a.Text, FormatTime(a.AnsweredAt),
	}
}

// Tally folds users into the aggregate counts.
func Tally(users []*domain.User) domain.Counts {
	c := domain.Counts{BySource: map[string]int{}}
	for _, u := range users {
		c.Total++
		c.BySource[u.Source]++
		if u.Progress > 0 {
			c.Incomplete++
		}
		if u.IsActive {
			c.Active++
		} else {
			c.Blocked++
		}
	}
	return c
}

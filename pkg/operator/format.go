package operator

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/script"
)

// MaxMessageLen is the longest operator message, in runes.
const MaxMessageLen = 4096

// Chunk splits text into pieces of at most size runes.
func Chunk(text string, size int) []string {
	if size <= 0 || utf8.RuneCountInString(text) <= size {
		return []string{text}
	}
	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		n := min(size, len(runes))
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}

// FormatCounts renders the aggregate report.
func FormatCounts(c domain.Counts) string {
	var b strings.Builder
	b.WriteString("📊 Report\n\n")
	fmt.Fprintf(&b, "Total users: %d\n", c.Total)
	if len(c.BySource) > 0 {
		b.WriteString("By source:\n")
		sources := make([]string, 0, len(c.BySource))
		for s := range c.BySource {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		for _, s := range sources {
			fmt.Fprintf(&b, "- %s: %d\n", s, c.BySource[s])
		}
	}
	fmt.Fprintf(&b, "Incomplete: %d\n", c.Incomplete)
	fmt.Fprintf(&b, "Active: %d\n", c.Active)
	fmt.Fprintf(&b, "Blocked: %d", c.Blocked)
	return b.String()
}

// FormatBroadcast renders the broadcast tally.
func FormatBroadcast(r BroadcastResult) string {
	return fmt.Sprintf("📬 Broadcast finished!\n\nTotal users: %d\nDelivered: %d\nBlocked: %d\nFailed: %d",
		r.Total, r.Delivered, r.Blocked, r.Failed)
}

// FormatUser renders the profile of u with its last answer per question
// slot and the ancillary questions it asked.
func FormatUser(s *domain.Script, u *domain.User, answers []domain.Answer) string {
	var b strings.Builder
	b.WriteString("User info:\n")
	fmt.Fprintf(&b, "First name: %s\n", u.FirstName)
	fmt.Fprintf(&b, "Last name: %s\n", u.LastName)
	fmt.Fprintf(&b, "Username: %s\n", handle(u))
	fmt.Fprintf(&b, "Source: %s\n", u.Source)
	fmt.Fprintf(&b, "Registered: %s\n", ports.FormatTime(u.RegisteredAt))
	fmt.Fprintf(&b, "Last activity: %s\n", ports.FormatTime(u.LastActivity))
	fmt.Fprintf(&b, "Progress: %d\n", u.Progress)

	slots, ancillary := domain.LatestBySlot(answers)
	if len(slots) > 0 {
		b.WriteString("\nAnswers:\n")
		for _, a := range slots {
			fmt.Fprintf(&b, "- %s: %s\n", questionText(s, a.QuestionID), label(s, a.Text))
		}
	}
	if len(ancillary) > 0 {
		b.WriteString("\nAdditional questions:\n")
		for _, a := range ancillary {
			fmt.Fprintf(&b, "- %s\n", a.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func label(s *domain.Script, token string) string {
	if s == nil {
		return token
	}
	return s.Label(token)
}

func handle(u *domain.User) string {
	if u.Username == "" {
		return u.ID
	}
	return "@" + u.Username
}

// questionText is the first line of the lowest node asking slot, without
// markdown emphasis.
func questionText(s *domain.Script, slot int) string {
	if s != nil {
		for _, id := range script.SortedIDs(s) {
			n := s.Nodes[id]
			if n.QuestionID != slot || n.Content.Kind == domain.ContentFunc {
				continue
			}
			line, _, _ := strings.Cut(n.Content.Literal, "\n")
			line = strings.NewReplacer("**", "", "__", "").Replace(line)
			return strings.TrimSpace(line)
		}
	}
	return fmt.Sprintf("Question %d", slot)
}

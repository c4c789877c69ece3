package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Console renders outbound messages on a terminal. Buttons are numbered so
// the typed number of a button can be turned back into its token.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	markdown func(string) (string, error)
	styled   bool
	seq      int
	choices  map[string][]domain.Choice
	operator string
}

var _ ports.Renderer = (*Console)(nil)

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithStyle forces styled (true) or plain (false) output.
func WithStyle(styled bool) ConsoleOption {
	return func(c *Console) {
		c.styled = styled
	}
}

// WithOperatorChannel marks messages to channel as operator traffic.
func WithOperatorChannel(channel string) ConsoleOption {
	return func(c *Console) {
		c.operator = channel
	}
}

// NewConsole creates a console writing to out. Output is styled when out is
// a terminal.
func NewConsole(out io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{
		out:     out,
		styled:  isTerminal(out),
		choices: make(map[string][]domain.Choice),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.markdown = NewRenderer(c.styled)
	return c
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Send prints msg and remembers its buttons as the active ones for to.
func (c *Console) Send(ctx context.Context, to string, msg domain.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if to == c.operator && c.operator != "" {
		header := "── operator ──"
		if c.styled {
			header = termenv.String(header).Foreground(termenv.ColorProfile().Color("#f472b6")).String()
		}
		fmt.Fprintln(c.out, header)
	}
	text, err := c.markdown(msg.Text)
	if err != nil {
		text = msg.Text
	}
	fmt.Fprintln(c.out, strings.TrimRight(text, "\n"))

	var flat []domain.Choice
	for _, row := range msg.Choices {
		var cells []string
		for _, ch := range row {
			flat = append(flat, ch)
			cells = append(cells, c.button(len(flat), ch.Label))
		}
		fmt.Fprintln(c.out, "  "+strings.Join(cells, "  "))
	}
	if len(flat) > 0 {
		fmt.Fprintln(c.out)
	}

	c.seq++
	ref := strconv.Itoa(c.seq)
	c.choices[to] = flat
	return ref, nil
}

func (c *Console) button(n int, label string) string {
	text := fmt.Sprintf("[%d] %s", n, label)
	if !c.styled {
		return text
	}
	return termenv.String(text).Foreground(termenv.ColorProfile().Color("#a78bfa")).Bold().String()
}

// Edit prints the echo of an answered message. Stripped buttons stop being
// selectable.
func (c *Console) Edit(ctx context.Context, to string, ref string, edit domain.Edit) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if edit.StripChoices || edit.Delete {
		delete(c.choices, to)
	}
	if edit.Append != "" {
		line := "  " + edit.Append
		if c.styled {
			line = termenv.String(line).Faint().String()
		}
		fmt.Fprintln(c.out, line)
	}
	return nil
}

// Parse turns a typed line into an input event for to: a button number
// becomes a choice, /start an entry, anything else free text.
func (c *Console) Parse(to, line string) domain.InputEvent {
	line = strings.TrimSpace(line)
	if line == "/start" {
		return domain.Entry()
	}

	c.mu.Lock()
	active := c.choices[to]
	c.mu.Unlock()

	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(active) {
		return domain.Choose(active[n-1].Token)
	}
	return domain.Say(line)
}

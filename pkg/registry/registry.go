package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/intake/pkg/domain"
)

// TextFunc produces node text from the user context. It must be pure.
type TextFunc func(u *domain.User) string

// Registry manages the named text functions a script may reference.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]TextFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]TextFunc),
	}
}

// Register adds a function to the registry.
// If a function with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn TextFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.funcs[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Execute looks up a function by name and runs it.
// Returns an error if the function is not found.
func (r *Registry) Execute(name string, u *domain.User) (string, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("text function not found: %s", name)
	}

	return fn(u), nil
}

// Render resolves a content variant to its final text.
func (r *Registry) Render(c domain.Content, u *domain.User) (string, error) {
	switch c.Kind {
	case domain.ContentLiteral, "":
		return c.Literal, nil
	case domain.ContentFunc:
		return r.Execute(c.Func, u)
	default:
		return "", fmt.Errorf("unsupported content kind %q", c.Kind)
	}
}

// FollowUp is the promise shown once the user is handed to staff.
const FollowUp = "📝 We will get back to you within a day. " +
	"If you have any other questions, feel free to write them here."

// Builtins returns a registry with the functions used by the default script.
func Builtins() *Registry {
	r := NewRegistry()
	r.Register("greeting", Greeting)
	r.Register("completion", Completion)
	r.Register("follow_up", func(*domain.User) string { return FollowUp })
	return r
}

// Greeting welcomes the user by first name.
func Greeting(u *domain.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**👋 Good afternoon, %s!**\n\n", displayName(u))
	b.WriteString("Thank you for reaching out 🙏\n")
	b.WriteString("So that we can give you accurate information about **residence permits**, ")
	b.WriteString("please answer a few questions that will speed things up.\n\n")
	b.WriteString("**🚀 Shall we begin?**")
	return b.String()
}

// Completion thanks the user after the last answer.
func Completion(u *domain.User) string {
	return fmt.Sprintf("🎉 %s, thank you for your answers!\n\n%s", displayName(u), FollowUp)
}

func displayName(u *domain.User) string {
	if u == nil || strings.TrimSpace(u.FirstName) == "" {
		return "there"
	}
	return u.FirstName
}

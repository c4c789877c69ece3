package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// Delivery is a message captured by the Renderer.
type Delivery struct {
	To  string
	Ref string
	Msg domain.Message
}

// EditRecord is an edit captured by the Renderer.
type EditRecord struct {
	To   string
	Ref  string
	Edit domain.Edit
}

// Renderer implements ports.Renderer by recording every call. Failures can
// be injected per recipient.
type Renderer struct {
	mu    sync.Mutex
	seq   int
	sent  []Delivery
	edits []EditRecord
	fail  map[string]error
}

var _ ports.Renderer = (*Renderer)(nil)

// NewRenderer creates an empty recording renderer.
func NewRenderer() *Renderer {
	return &Renderer{fail: make(map[string]error)}
}

// FailFor makes every call addressed to to return err. A nil err clears it.
func (r *Renderer) FailFor(to string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, to)
		return
	}
	r.fail[to] = err
}

// Send records msg and returns a sequential reference.
func (r *Renderer) Send(ctx context.Context, to string, msg domain.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[to]; err != nil {
		return "", err
	}
	r.seq++
	ref := fmt.Sprintf("m%d", r.seq)
	r.sent = append(r.sent, Delivery{To: to, Ref: ref, Msg: msg})
	return ref, nil
}

// Edit records the edit.
func (r *Renderer) Edit(ctx context.Context, to string, ref string, edit domain.Edit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[to]; err != nil {
		return err
	}
	r.edits = append(r.edits, EditRecord{To: to, Ref: ref, Edit: edit})
	return nil
}

// Sent returns the messages delivered to to, oldest first.
func (r *Renderer) Sent(to string) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Delivery
	for _, d := range r.sent {
		if d.To == to {
			out = append(out, d)
		}
	}
	return out
}

// Last returns the newest message delivered to to.
func (r *Renderer) Last(to string) (Delivery, bool) {
	sent := r.Sent(to)
	if len(sent) == 0 {
		return Delivery{}, false
	}
	return sent[len(sent)-1], true
}

// Edits returns the edits addressed to to, oldest first.
func (r *Renderer) Edits(to string) []EditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EditRecord
	for _, e := range r.edits {
		if e.To == to {
			out = append(out, e)
		}
	}
	return out
}

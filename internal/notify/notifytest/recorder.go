// Package notifytest provides an in-memory Notifier for tests.
package notifytest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/m3rciful/geopal/internal/notify"
)

// ErrInjected is returned by Recorder when a failure hook fires.
var ErrInjected = errors.New("notifytest: injected failure")

// Sent is one recorded Notify call.
type Sent struct {
	Addr     notify.Address
	Text     string
	Controls *notify.Controls
	Ref      notify.MessageRef
}

// Edit is one recorded EditControls call.
type Edit struct {
	Addr     notify.Address
	Ref      notify.MessageRef
	Controls *notify.Controls
}

// Deleted is one recorded Delete call.
type Deleted struct {
	Addr notify.Address
	Ref  notify.MessageRef
}

// Recorder implements notify.Notifier and keeps every call.
type Recorder struct {
	mu      sync.Mutex
	nextID  int
	sent    []Sent
	edits   []Edit
	deleted []Deleted

	// FailNotify, when set, decides whether a Notify call fails.
	FailNotify func(addr notify.Address, text string) bool
}

// New returns an empty Recorder.
func New() *Recorder { return &Recorder{nextID: 100} }

func (r *Recorder) Notify(_ context.Context, addr notify.Address, text string, controls *notify.Controls) (notify.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailNotify != nil && r.FailNotify(addr, text) {
		return notify.MessageRef{}, ErrInjected
	}
	r.nextID++
	ref := notify.MessageRef{MessageID: r.nextID}
	r.sent = append(r.sent, Sent{Addr: addr, Text: text, Controls: controls, Ref: ref})
	return ref, nil
}

func (r *Recorder) EditControls(_ context.Context, addr notify.Address, ref notify.MessageRef, controls *notify.Controls) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, Edit{Addr: addr, Ref: ref, Controls: controls})
	return nil
}

func (r *Recorder) Delete(_ context.Context, addr notify.Address, ref notify.MessageRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, Deleted{Addr: addr, Ref: ref})
	return nil
}

// Sent returns a copy of all recorded sends.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// SentTo returns texts sent to addr, skipping reply-keyboard placeholders.
func (r *Recorder) SentTo(addr notify.Address) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, s := range r.sent {
		if s.Addr != addr || s.Text == "." {
			continue
		}
		out = append(out, s.Text)
	}
	return out
}

// Last returns the last non-placeholder message sent to addr.
func (r *Recorder) Last(addr notify.Address) (Sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].Addr == addr && r.sent[i].Text != "." {
			return r.sent[i], true
		}
	}
	return Sent{}, false
}

// Count returns how many messages to addr contain substr.
func (r *Recorder) Count(addr notify.Address, substr string) int {
	n := 0
	for _, text := range r.SentTo(addr) {
		if strings.Contains(text, substr) {
			n++
		}
	}
	return n
}

// Edits returns a copy of all recorded control edits.
func (r *Recorder) Edits() []Edit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Edit(nil), r.edits...)
}

// Deleted returns a copy of all recorded deletions.
func (r *Recorder) Deleted() []Deleted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Deleted(nil), r.deleted...)
}

// Reset drops every recorded call.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent, r.edits, r.deleted = nil, nil, nil
}

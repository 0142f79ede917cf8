package export

import (
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"github.com/BetoIII/docledger/workflow"
)

// Writer abstracts the system clipboard so tests can substitute one.
type Writer func(text string) error

// Clipboard copies run summaries to the system clipboard and tracks a
// short-lived "copied" tag per kind for the UI's copy-button feedback.
// The tag clears itself after the feedback window; a newer copy bumps
// the tag generation so a stale clear timer cannot wipe it early.
type Clipboard struct {
	write  Writer
	window time.Duration

	mu   sync.Mutex
	tags map[workflow.Kind]uint64
}

// ClipboardOption configures a Clipboard.
type ClipboardOption func(*Clipboard)

// WithWriter substitutes the clipboard writer. Tests use this.
func WithWriter(w Writer) ClipboardOption {
	return func(c *Clipboard) { c.write = w }
}

// WithFeedbackWindow sets how long the copied tag lasts. Defaults to 2s.
func WithFeedbackWindow(d time.Duration) ClipboardOption {
	return func(c *Clipboard) { c.window = d }
}

// NewClipboard creates a clipboard copier backed by the OS clipboard.
func NewClipboard(opts ...ClipboardOption) *Clipboard {
	c := &Clipboard{
		write:  clipboard.WriteAll,
		window: 2 * time.Second,
		tags:   make(map[workflow.Kind]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Copy renders the run's JSON summary and writes it to the clipboard.
// Incomplete runs copy nothing and report an error.
func (c *Clipboard) Copy(run *workflow.Run) error {
	text, err := JSON(run)
	if err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("export: run %s has no completed summary to copy", run.ID)
	}
	if err := c.write(text); err != nil {
		return fmt.Errorf("export: write clipboard: %w", err)
	}

	c.mu.Lock()
	c.tags[run.Kind]++
	gen := c.tags[run.Kind]
	c.mu.Unlock()

	time.AfterFunc(c.window, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		// A newer copy owns the tag now; leave it alone.
		if c.tags[run.Kind] == gen {
			delete(c.tags, run.Kind)
		}
	})
	return nil
}

// Copied reports whether the kind's copy feedback is still showing.
func (c *Clipboard) Copied(kind workflow.Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tags[kind]
	return ok
}

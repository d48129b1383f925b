package limn

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jward/limn/internal/registry"
	"github.com/jward/limn/internal/session"
	"github.com/jward/limn/plugin"
)

// Host is the top-level orchestration surface. It owns the engine
// registry and the session arena; engines live for the Host's lifetime,
// sessions until freed.
//
// Operations on one session must be serialized by the Host's per-session
// lock: at most one Parse, SetText, or ApplyEdit runs at a time per
// session. Independent sessions share no mutable state except the
// registry, whose first-load path is safe under concurrency.
type Host struct {
	registry *registry.Registry
	sessions *session.Store
	logger   *log.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithLogger routes injection-failure logging to l instead of the
// default stderr logger.
func WithLogger(l *log.Logger) Option {
	return func(h *Host) {
		h.logger = l
	}
}

// New creates a Host that instantiates engines through loader.
func New(loader plugin.Loader, opts ...Option) *Host {
	h := &Host{
		sessions: session.NewStore(),
		logger:   log.New(os.Stderr, "", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.registry = registry.New(loader)
	return h
}

// CreateSession loads (or reuses) the engine for language and binds a
// new top-level session to it. Session ids are unique and never reused
// within the process lifetime.
func (h *Host) CreateSession(ctx context.Context, language string) (uint64, error) {
	eng, err := h.registry.Load(ctx, language)
	if err != nil {
		return 0, err
	}
	handle, err := eng.CreateSession()
	if err != nil {
		return 0, fmt.Errorf("limn: create %s session: %w", language, err)
	}
	rec := h.sessions.Create(language, eng, handle, 0)
	return rec.ID, nil
}

// FreeSession releases id and every child session under it, children
// before parent. Unknown or already-freed ids are a no-op.
func (h *Host) FreeSession(id uint64) {
	h.sessions.Free(id)
}

// SetText replaces the session's text and establishes a fresh
// incremental baseline, invalidating any prior edit deltas.
func (h *Host) SetText(id uint64, text []byte) error {
	rec, err := h.sessions.Get(id)
	if err != nil {
		return err
	}

	rec.Op.Lock()
	defer rec.Op.Unlock()

	if err := rec.Engine.SetText(rec.Handle, text); err != nil {
		return fmt.Errorf("limn: set text on session %d: %w", id, err)
	}
	rec.Text = text
	return nil
}

// ApplyEdit replaces the session's text with newText and folds edit
// into the engine's incremental parse state. The edit must be
// consistent with the session's previous SetText/ApplyEdit state; the
// host does not validate that, and an inconsistent edit may corrupt the
// engine's tree.
func (h *Host) ApplyEdit(id uint64, newText []byte, edit Edit) error {
	rec, err := h.sessions.Get(id)
	if err != nil {
		return err
	}

	rec.Op.Lock()
	defer rec.Op.Unlock()

	if err := rec.Engine.ApplyEdit(rec.Handle, newText, edit); err != nil {
		return fmt.Errorf("limn: apply edit on session %d: %w", id, err)
	}
	rec.Text = newText
	return nil
}

// Cancel requests cooperative cancellation of the session's in-flight
// parse, cascading depth-first into every live child session. The
// signal is advisory: an in-progress parse stops at its next checkpoint
// and returns a Result with Cancelled set. Cancelling an idle or
// unknown session is a safe no-op; the session (if any) remains valid.
func (h *Host) Cancel(id uint64) {
	rec, err := h.sessions.Get(id)
	if err != nil {
		return
	}
	h.cancelTree(rec)
}

func (h *Host) cancelTree(rec *session.Record) {
	rec.CancelInflight()
	rec.Engine.Cancel(rec.Handle)
	for _, childID := range h.sessions.Children(rec.ID) {
		if child, err := h.sessions.Get(childID); err == nil {
			h.cancelTree(child)
		}
	}
}

// LoadedLanguages returns the language ids of every engine the registry
// has loaded, sorted.
func (h *Host) LoadedLanguages() []string {
	return h.registry.Loaded()
}

// Package plugin defines the capability contract a grammar engine must
// satisfy to be driven by a limn Host, and the Loader interface through
// which engines are instantiated.
//
// One Engine instance serves every session of its language. The concrete
// transport behind an Engine (in-process call, sandboxed message,
// cross-module call) is outside the host's scope; implementations must
// preserve these semantics exactly. All byte offsets are UTF-8 byte
// offsets into the session's own text.
package plugin

import (
	"context"
	"errors"

	"github.com/jward/limn/wire"
)

// ErrUnknownLanguage is returned by a Loader when no engine exists for
// the requested language id.
var ErrUnknownLanguage = errors.New("plugin: unknown language")

// Engine is the per-language parsing capability supplied by a grammar
// plugin. Sessions are identified by opaque engine-assigned handles.
//
// The host serializes Parse, SetText, and ApplyEdit per handle; an
// Engine must tolerate those methods being called concurrently for
// different handles. Cancel may arrive from any goroutine at any time.
type Engine interface {
	// WireVersion reports the protocol version the engine was built
	// against. The host checks it once, at load time.
	WireVersion() uint32

	// CreateSession allocates engine-side parse state and returns its
	// handle.
	CreateSession() (uint32, error)

	// FreeSession releases the handle and its parse state. Unknown
	// handles are a no-op.
	FreeSession(handle uint32)

	// SetText replaces the session's text and establishes a fresh
	// incremental baseline, discarding any prior edit history.
	SetText(handle uint32, text []byte) error

	// ApplyEdit replaces the session's text and folds edit into the
	// incremental parse state. The edit must be consistent with the
	// session's previous text; the engine does not validate that.
	ApplyEdit(handle uint32, text []byte, edit wire.Edit) error

	// Parse produces highlight spans and injection regions for the
	// session's current text, in the session's own byte coordinates,
	// spans sorted ascending by (start, end). It observes ctx at
	// bounded checkpoints and returns ctx.Err() when cancelled.
	Parse(ctx context.Context, handle uint32) (wire.ParseResult, error)

	// Cancel requests cooperative cancellation of an in-flight Parse on
	// handle. A cancel with no parse in flight has no effect.
	Cancel(handle uint32)

	// InjectionLanguages lists the language ids this grammar is known to
	// embed. An engine returning none never reports injections.
	InjectionLanguages() []string
}

// Loader instantiates engines by language id. Loading may perform I/O
// and is the only blocking step in steady-state parsing. A Loader must
// fail with ErrUnknownLanguage (wrapped or not) for ids it does not
// recognize.
type Loader interface {
	Load(ctx context.Context, language string) (Engine, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, language string) (Engine, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, language string) (Engine, error) {
	return f(ctx, language)
}

package limn

import (
	"github.com/jward/limn/internal/registry"
	"github.com/jward/limn/internal/session"
	"github.com/jward/limn/plugin"
	"github.com/jward/limn/wire"
)

// Public type aliases for the wire protocol types that appear in the
// Host API. These are Go type aliases (=) — identical to the wire types
// at compile time; no conversion is needed on either side.

type Span = wire.Span
type Injection = wire.Injection
type Edit = wire.Edit

// Error classes surfaced by Host operations. Compare with errors.Is;
// each arrives wrapped with operation context.
var (
	// ErrInvalidSession marks an operation on an unknown or freed
	// session id.
	ErrInvalidSession = session.ErrInvalidSession

	// ErrUnknownLanguage marks a language id the loader does not
	// recognize.
	ErrUnknownLanguage = plugin.ErrUnknownLanguage

	// ErrLoadFailed marks an engine instantiation failure. Not retried
	// automatically.
	ErrLoadFailed = registry.ErrLoadFailed

	// ErrVersionMismatch marks an engine rejected at load for an
	// incompatible wire version.
	ErrVersionMismatch = registry.ErrVersionMismatch
)

// Package wire defines the protocol types exchanged between the limn
// host and grammar engines: spans, injections, edits, and parse results.
//
// All offsets are UTF-8 byte offsets into the text of the session that
// produced them. Translation into top-level document coordinates happens
// in the host, never in an engine.
//
// The Version constant is the negotiated compatibility marker. The host
// checks an engine's declared version exactly once, when the engine is
// loaded; an incompatible engine is rejected before any session exists.
package wire

import "sort"

// Version is the wire protocol version. Bump on breaking changes to the
// types in this package. Host and engines must agree on it.
const Version uint32 = 1

// CompatibleVersion reports whether an engine built against version v
// can be driven by this host. Currently requires an exact match.
func CompatibleVersion(v uint32) bool {
	return v == Version
}

// Span is a labeled byte range classifying a token.
type Span struct {
	// Start is the byte offset where the span starts.
	Start uint32
	// End is the byte offset where the span ends (exclusive).
	End uint32
	// Capture is the capture name (e.g. "keyword", "function", "string").
	Capture string
	// Language tags spans that came out of an injected region with the
	// language that produced them. Empty for primary spans.
	Language string
}

// Injection is a byte range that embeds another language, as reported by
// the hosting grammar's own injection query.
type Injection struct {
	// Start is the byte offset where the injected region starts.
	Start uint32
	// End is the byte offset where the injected region ends (exclusive).
	End uint32
	// Language is the language id to inject (e.g. "javascript", "css").
	Language string
	// IncludeChildren reports whether child nodes of the captured node
	// are part of the injected content.
	IncludeChildren bool
}

// ParseResult is the output of one engine-level parse: highlight spans
// plus the injection regions discovered in the same pass.
type ParseResult struct {
	Spans      []Span
	Injections []Injection
}

// Edit describes a text replacement for incremental parsing, in both
// byte and row/column coordinates. Rows and columns are zero-based;
// columns count bytes, not runes.
type Edit struct {
	StartByte  uint32
	OldEndByte uint32
	NewEndByte uint32
	StartRow   uint32
	StartCol   uint32
	OldEndRow  uint32
	OldEndCol  uint32
	NewEndRow  uint32
	NewEndCol  uint32
}

// SortSpans orders spans ascending by (Start, End), with language and
// capture as deterministic tie-breakers.
func SortSpans(spans []Span) {
	sort.Slice(spans, func(i, j int) bool {
		a, b := spans[i], spans[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		if a.Language != b.Language {
			return a.Language < b.Language
		}
		return a.Capture < b.Capture
	})
}

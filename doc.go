// Package limn provides incremental, multi-language syntax analysis by
// orchestrating per-language grammar engines behind a session-based
// protocol. Engines are loaded on demand, parse sessions hold
// incremental state across edits, and embedded-language regions
// (injections — JavaScript inside an HTML <script> tag, CSS inside
// <style>) are resolved recursively into a single sorted span stream.
// All offsets are UTF-8 byte offsets.
//
// # Pipeline
//
// A parse call flows through four components:
//
//  1. Session store: binds a session id to its engine, engine-side
//     handle, current text, and child sessions (one per injected
//     language).
//  2. Parse orchestrator: invokes the primary engine, then resolves
//     each discovered injection through a child session, translating
//     child spans into document coordinates and merging them sorted.
//  3. Plugin registry: caches one engine per language for the host's
//     lifetime, deduplicating concurrent first loads and rejecting
//     engines with an incompatible wire version before any session
//     exists.
//  4. Cancellation: Cancel fires a cooperative signal observed at
//     bounded checkpoints inside the recursion and cascaded depth-first
//     into live child sessions.
//
// # Usage
//
// Create a Host over an engine loader, then drive sessions:
//
//	h := limn.New(grammarLoader)
//	id, err := h.CreateSession(ctx, "html")
//	if err != nil { ... }
//	defer h.FreeSession(id)
//
//	err = h.SetText(id, []byte("<script>const x = 1;</script>"))
//	res, err := h.Parse(ctx, id, nil)
//	for _, span := range res.Spans {
//		// span.Start/span.End index the document; injected spans carry
//		// span.Language ("javascript" above).
//	}
//
// Subsequent edits go through [Host.ApplyEdit], which keeps the
// engine's incremental parse state instead of reparsing from scratch.
//
// # Injections
//
// Injection regions are discovered by the hosting grammar at parse
// time, not pre-declared. Each parent session keeps one child session
// per injected language and reuses it sequentially across every region
// of that language. Resolution depth is bounded by
// [ParseOptions.MaxDepth]; that counter is also the only safeguard
// against self-referential embeddings, there is no cycle detection.
// A failing injection (unknown language, load failure, child parse
// failure) is logged and dropped; the remaining injections and the
// primary spans still come back.
//
// # Cancellation
//
// Cancellation is advisory and cooperative: [Host.Cancel] makes an
// in-flight [Host.Parse] return a Result with Cancelled set, after a
// bounded number of checkpoints. The session remains valid. There is no
// internal timeout; a caller wanting a deadline races its own timer and
// calls Cancel itself.
package limn

package limn

import (
	"context"
	"errors"
	"fmt"

	"github.com/jward/limn/internal/session"
	"github.com/jward/limn/wire"
)

// DefaultMaxDepth bounds injection resolution when ParseOptions is nil.
const DefaultMaxDepth = 5

// ParseOptions controls a single Parse call.
type ParseOptions struct {
	// MaxDepth bounds injection resolution. 0 resolves nothing: the
	// primary spans come back as-is, with the first-level injections
	// reported unresolved. Negative values are treated as 0.
	MaxDepth int
}

// Result is the outcome of a Parse call.
type Result struct {
	// Spans is the merged span stream, sorted ascending by
	// (Start, End), in byte coordinates of the document supplied to the
	// top-level parse. Spans from injected regions carry the origin
	// language.
	Spans []Span

	// Injections is the primary level's raw, unresolved injection list,
	// in the same coordinates. Nested injections are resolved
	// internally and not surfaced individually.
	Injections []Injection

	// Cancelled marks a parse that stopped at a cooperative
	// cancellation checkpoint. Spans and Injections are empty; the
	// session remains valid for subsequent parses.
	Cancelled bool
}

// Parse runs the session's engine over its current text and resolves
// discovered injections recursively through child sessions.
//
// Injection resolution is partial-failure: a failing injection is
// logged and dropped without aborting the parse. Cancellation (via
// Cancel or ctx) yields Result{Cancelled: true}, not an error.
func (h *Host) Parse(ctx context.Context, id uint64, opts *ParseOptions) (*Result, error) {
	rec, err := h.sessions.Get(id)
	if err != nil {
		return nil, err
	}

	maxDepth := DefaultMaxDepth
	if opts != nil {
		maxDepth = max(opts.MaxDepth, 0)
	}

	rec.Op.Lock()
	defer rec.Op.Unlock()

	pctx, cancel := context.WithCancel(ctx)
	rec.SetCancel(cancel)
	defer func() {
		rec.ClearCancel()
		cancel()
	}()

	res, err := h.parseSession(pctx, rec, maxDepth)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &Result{Cancelled: true}, nil
		}
		return nil, fmt.Errorf("limn: parse session %d (%s): %w", id, rec.Language, err)
	}
	return &Result{Spans: res.Spans, Injections: res.Injections}, nil
}

// parseSession runs one engine parse for rec and resolves its
// injections, returning spans in rec's own coordinates. The caller
// holds rec.Op; ctx is rec's in-flight parse context. Cancellation
// propagates as an error and is mapped to a Result at the top level.
func (h *Host) parseSession(ctx context.Context, rec *session.Record, maxDepth int) (wire.ParseResult, error) {
	primary, err := rec.Engine.Parse(ctx, rec.Handle)
	if err != nil {
		return wire.ParseResult{}, err
	}

	res := wire.ParseResult{Spans: primary.Spans, Injections: primary.Injections}
	if maxDepth == 0 || len(primary.Injections) == 0 {
		// Engines promise sorted spans; the host's ordering guarantee
		// must hold even for an engine that breaks that promise.
		wire.SortSpans(res.Spans)
		return res, nil
	}

	for _, inj := range primary.Injections {
		// Injections are independent: one failure is logged and
		// dropped, the rest still resolve.
		childSpans, err := h.resolveInjection(ctx, rec, inj, maxDepth)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return wire.ParseResult{}, err
			}
			h.logger.Printf("WARNING: dropping injection %s [%d,%d) in session %d: %v",
				inj.Language, inj.Start, inj.End, rec.ID, err)
			continue
		}
		res.Spans = append(res.Spans, childSpans...)

		// Checkpoint at every injection boundary.
		if err := ctx.Err(); err != nil {
			return wire.ParseResult{}, err
		}
	}

	wire.SortSpans(res.Spans)
	return res, nil
}

// resolveInjection parses one injected region through the child session
// for its language, creating the child on first use. Returned spans are
// translated into rec's coordinates and tagged with the origin
// language.
func (h *Host) resolveInjection(ctx context.Context, rec *session.Record, inj wire.Injection, maxDepth int) ([]wire.Span, error) {
	if inj.End < inj.Start || int(inj.End) > len(rec.Text) {
		return nil, fmt.Errorf("injection range [%d,%d) outside text of length %d",
			inj.Start, inj.End, len(rec.Text))
	}

	child, err := h.childSession(ctx, rec, inj.Language)
	if err != nil {
		return nil, err
	}

	child.Op.Lock()
	defer child.Op.Unlock()

	cctx, cancel := context.WithCancel(ctx)
	child.SetCancel(cancel)
	defer func() {
		child.ClearCancel()
		cancel()
	}()

	// The child always sees the parent's current substring; region
	// reuse across occurrences of the same language resets the child's
	// incremental baseline each time.
	text := rec.Text[inj.Start:inj.End]
	if err := child.Engine.SetText(child.Handle, text); err != nil {
		return nil, err
	}
	child.Text = text

	res, err := h.parseSession(cctx, child, maxDepth-1)
	if err != nil {
		return nil, err
	}

	spans := res.Spans
	for i := range spans {
		spans[i].Start += inj.Start
		spans[i].End += inj.Start
		if spans[i].Language == "" {
			spans[i].Language = inj.Language
		}
	}
	return spans, nil
}

// childSession finds or creates the one child session rec keeps for an
// injected language. Multiple regions of the same language under one
// parent reuse that single child sequentially.
func (h *Host) childSession(ctx context.Context, rec *session.Record, language string) (*session.Record, error) {
	if id, ok := h.sessions.Child(rec.ID, language); ok {
		if child, err := h.sessions.Get(id); err == nil {
			return child, nil
		}
	}

	eng, err := h.registry.Load(ctx, language)
	if err != nil {
		return nil, err
	}
	handle, err := eng.CreateSession()
	if err != nil {
		return nil, err
	}
	child := h.sessions.Create(language, eng, handle, rec.ID)
	h.sessions.SetChild(rec.ID, language, child.ID)
	return child, nil
}

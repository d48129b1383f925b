// Package grammar implements limn's built-in grammar engines on top of
// tree-sitter. Each Engine serves one language: it keeps per-session
// parser state, reparses incrementally when edits arrive, and runs the
// language's highlight and injection queries to produce spans and
// injection regions in the session's own byte coordinates.
package grammar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/limn/wire"
)

// cancelCheckInterval is how many query matches are processed between
// cancellation checks.
const cancelCheckInterval = 100

// Config holds one language's grammar and compiled queries.
type Config struct {
	language   string
	grammar    *sitter.Language
	highlights *sitter.Query
	injections *sitter.Query // nil when the grammar declares none

	injectionLangs []string
}

// NewConfig compiles the highlight and injection queries for a grammar.
// injectionsQuery may be empty for grammars that embed nothing.
func NewConfig(language string, grammar *sitter.Language, highlightsQuery, injectionsQuery string) (*Config, error) {
	hq, err := sitter.NewQuery([]byte(highlightsQuery), grammar)
	if err != nil {
		return nil, fmt.Errorf("grammar: %s highlights query: %w", language, err)
	}
	cfg := &Config{
		language:   language,
		grammar:    grammar,
		highlights: hq,
	}
	if injectionsQuery != "" {
		iq, err := sitter.NewQuery([]byte(injectionsQuery), grammar)
		if err != nil {
			hq.Close()
			return nil, fmt.Errorf("grammar: %s injections query: %w", language, err)
		}
		cfg.injections = iq
		cfg.injectionLangs = staticInjectionLanguages(iq)
	}
	return cfg, nil
}

// staticInjectionLanguages collects the distinct languages named by
// "#set! injection.language" properties across the query's patterns.
// Languages chosen at runtime from an @injection.language capture are
// not representable here.
func staticInjectionLanguages(q *sitter.Query) []string {
	seen := make(map[string]bool)
	for i := uint32(0); i < q.PatternCount(); i++ {
		if lang, ok := patternProperties(q, i)["injection.language"]; ok && lang != "" {
			seen[lang] = true
		}
	}
	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// patternProperties extracts the "#set! key value" properties declared
// on one query pattern.
func patternProperties(q *sitter.Query, pattern uint32) map[string]string {
	props := make(map[string]string)
	for _, pred := range q.PredicatesForPattern(pattern) {
		if len(pred) == 0 || pred[0].Type != sitter.QueryPredicateStepTypeString {
			continue
		}
		if q.StringValueForId(pred[0].ValueId) != "set!" {
			continue
		}
		var args []string
		for _, step := range pred[1:] {
			if step.Type == sitter.QueryPredicateStepTypeString {
				args = append(args, q.StringValueForId(step.ValueId))
			}
		}
		switch len(args) {
		case 1:
			props[args[0]] = ""
		case 2:
			props[args[0]] = args[1]
		}
	}
	return props
}

// parseState is one session's mutable engine state.
type parseState struct {
	parser    *sitter.Parser
	tree      *sitter.Tree
	text      []byte
	cancelled atomic.Bool
}

// Engine is a tree-sitter-backed grammar engine for one language. It
// satisfies plugin.Engine. Sessions are independent; the engine's own
// lock guards only the handle table, so parses on different handles may
// run concurrently.
type Engine struct {
	cfg *Config

	mu         sync.Mutex
	sessions   map[uint32]*parseState
	nextHandle uint32
}

// NewEngine creates an engine for cfg.
func NewEngine(cfg *Config) *Engine {
	return &Engine{
		cfg:      cfg,
		sessions: make(map[uint32]*parseState),
	}
}

// WireVersion reports the protocol version this engine was built against.
func (e *Engine) WireVersion() uint32 {
	return wire.Version
}

// InjectionLanguages lists the languages this grammar's injection query
// is known to embed.
func (e *Engine) InjectionLanguages() []string {
	return append([]string(nil), e.cfg.injectionLangs...)
}

// CreateSession allocates parser state and returns its handle.
func (e *Engine) CreateSession() (uint32, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(e.cfg.grammar)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextHandle++
	handle := e.nextHandle
	e.sessions[handle] = &parseState{parser: parser}
	return handle, nil
}

// FreeSession releases the handle and its tree-sitter resources.
// Unknown handles are a no-op.
func (e *Engine) FreeSession(handle uint32) {
	e.mu.Lock()
	st, ok := e.sessions[handle]
	delete(e.sessions, handle)
	e.mu.Unlock()
	if !ok {
		return
	}
	if st.tree != nil {
		st.tree.Close()
	}
	st.parser.Close()
}

func (e *Engine) state(handle uint32) (*parseState, error) {
	e.mu.Lock()
	st, ok := e.sessions[handle]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("grammar: %s: unknown session handle %d", e.cfg.language, handle)
	}
	return st, nil
}

// SetText replaces the session's text and reparses from scratch,
// establishing a fresh incremental baseline.
func (e *Engine) SetText(handle uint32, text []byte) error {
	st, err := e.state(handle)
	if err != nil {
		return err
	}

	tree, err := st.parser.ParseCtx(context.Background(), nil, text)
	if err != nil {
		return fmt.Errorf("grammar: %s: parse: %w", e.cfg.language, err)
	}
	if st.tree != nil {
		st.tree.Close()
	}
	st.text = text
	st.tree = tree
	st.cancelled.Store(false)
	return nil
}

// ApplyEdit replaces the session's text and reparses incrementally,
// reusing the previous tree. The edit must be consistent with the
// session's previous text; an inconsistent edit corrupts the tree.
func (e *Engine) ApplyEdit(handle uint32, text []byte, edit wire.Edit) error {
	st, err := e.state(handle)
	if err != nil {
		return err
	}

	if st.tree != nil {
		st.tree.Edit(sitter.EditInput{
			StartIndex:  edit.StartByte,
			OldEndIndex: edit.OldEndByte,
			NewEndIndex: edit.NewEndByte,
			StartPoint:  sitter.Point{Row: edit.StartRow, Column: edit.StartCol},
			OldEndPoint: sitter.Point{Row: edit.OldEndRow, Column: edit.OldEndCol},
			NewEndPoint: sitter.Point{Row: edit.NewEndRow, Column: edit.NewEndCol},
		})
	}

	tree, err := st.parser.ParseCtx(context.Background(), st.tree, text)
	if err != nil {
		return fmt.Errorf("grammar: %s: incremental parse: %w", e.cfg.language, err)
	}
	if st.tree != nil {
		st.tree.Close()
	}
	st.text = text
	st.tree = tree
	st.cancelled.Store(false)
	return nil
}

// Cancel requests cooperative cancellation of an in-flight Parse on
// handle. The flag is observed at the parse loop's checkpoints.
func (e *Engine) Cancel(handle uint32) {
	e.mu.Lock()
	st, ok := e.sessions[handle]
	e.mu.Unlock()
	if ok {
		st.cancelled.Store(true)
	}
}

// Parse runs the injection and highlight queries over the session's
// current tree. Spans come back sorted ascending by (start, end).
// Cancellation, via ctx or Cancel, surfaces as context.Canceled.
func (e *Engine) Parse(ctx context.Context, handle uint32) (wire.ParseResult, error) {
	st, err := e.state(handle)
	if err != nil {
		return wire.ParseResult{}, err
	}
	if st.tree == nil {
		return wire.ParseResult{}, fmt.Errorf("grammar: %s: no text set for session %d", e.cfg.language, handle)
	}

	// A cancel that arrived while the session was idle targets no parse;
	// it must not poison this one.
	st.cancelled.Store(false)

	var res wire.ParseResult
	checks := 0
	checkpoint := func() error {
		checks++
		if checks%cancelCheckInterval != 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if st.cancelled.Load() {
			return context.Canceled
		}
		return nil
	}

	if e.cfg.injections != nil {
		if err := e.collectInjections(st, &res, checkpoint); err != nil {
			return wire.ParseResult{}, err
		}
	}
	if err := e.collectSpans(st, &res, checkpoint); err != nil {
		return wire.ParseResult{}, err
	}

	wire.SortSpans(res.Spans)
	return res, nil
}

func (e *Engine) collectInjections(st *parseState, res *wire.ParseResult, checkpoint func() error) error {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(e.cfg.injections, st.tree.RootNode())

	for {
		m, ok := cursor.NextMatch()
		if !ok {
			return nil
		}
		if err := checkpoint(); err != nil {
			return err
		}

		var language string
		var content *sitter.Node
		for _, c := range m.Captures {
			switch e.cfg.injections.CaptureNameForId(c.Index) {
			case "injection.language":
				language = c.Node.Content(st.text)
			case "injection.content":
				content = c.Node
			}
		}

		props := patternProperties(e.cfg.injections, uint32(m.PatternIndex))
		if language == "" {
			language = props["injection.language"]
		}
		_, includeChildren := props["injection.include-children"]

		if language == "" || content == nil {
			continue
		}
		res.Injections = append(res.Injections, wire.Injection{
			Start:           content.StartByte(),
			End:             content.EndByte(),
			Language:        language,
			IncludeChildren: includeChildren,
		})
	}
}

func (e *Engine) collectSpans(st *parseState, res *wire.ParseResult, checkpoint func() error) error {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(e.cfg.highlights, st.tree.RootNode())

	for {
		m, ok := cursor.NextMatch()
		if !ok {
			return nil
		}
		m = cursor.FilterPredicates(m, st.text)
		if err := checkpoint(); err != nil {
			return err
		}

		for _, c := range m.Captures {
			name := e.cfg.highlights.CaptureNameForId(c.Index)
			if strings.HasPrefix(name, "_") ||
				strings.HasPrefix(name, "injection.") ||
				strings.HasPrefix(name, "local.") {
				continue
			}
			res.Spans = append(res.Spans, wire.Span{
				Start:   c.Node.StartByte(),
				End:     c.Node.EndByte(),
				Capture: name,
			})
		}
	}
}

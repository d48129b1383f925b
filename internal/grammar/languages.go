package grammar

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/toml"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"

	"github.com/jward/limn/plugin"
)

//go:embed queries
var queriesFS embed.FS

// builtinGrammars maps canonical language ids to their tree-sitter
// grammars. Alias handling (js → javascript, file extensions) is a
// boundary concern and lives with the callers.
var builtinGrammars = map[string]func() *sitter.Language{
	"bash":       bash.GetLanguage,
	"css":        css.GetLanguage,
	"go":         golang.GetLanguage,
	"html":       html.GetLanguage,
	"javascript": javascript.GetLanguage,
	"python":     python.GetLanguage,
	"rust":       rust.GetLanguage,
	"toml":       toml.GetLanguage,
	"typescript": ts.GetLanguage,
	"yaml":       yaml.GetLanguage,
}

// Languages returns the ids of every built-in grammar, sorted.
func Languages() []string {
	ids := make([]string, 0, len(builtinGrammars))
	for id := range builtinGrammars {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Loader resolves limn's built-in grammar set. It satisfies
// plugin.Loader: unknown ids fail with plugin.ErrUnknownLanguage, and
// query compilation happens once per language at load time (the
// registry caches the resulting engine for the host's lifetime).
type Loader struct{}

// NewLoader creates a Loader over the built-in grammars.
func NewLoader() *Loader {
	return &Loader{}
}

// Load instantiates the engine for language.
func (*Loader) Load(_ context.Context, language string) (plugin.Engine, error) {
	grammar, ok := builtinGrammars[language]
	if !ok {
		return nil, fmt.Errorf("grammar: %q: %w", language, plugin.ErrUnknownLanguage)
	}

	highlights, err := fs.ReadFile(queriesFS, "queries/"+language+"/highlights.scm")
	if err != nil {
		return nil, fmt.Errorf("grammar: %s: read highlights query: %w", language, err)
	}
	// Grammars that embed nothing carry no injections query.
	injections, err := fs.ReadFile(queriesFS, "queries/"+language+"/injections.scm")
	if err != nil {
		injections = nil
	}

	cfg, err := NewConfig(language, grammar(), string(highlights), string(injections))
	if err != nil {
		return nil, err
	}
	return NewEngine(cfg), nil
}

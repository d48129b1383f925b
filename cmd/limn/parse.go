package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jward/limn"
	"github.com/jward/limn/internal/cache"
	"github.com/jward/limn/internal/config"
	"github.com/jward/limn/internal/grammar"
	"github.com/jward/limn/wire"
)

var (
	flagLanguage string
	flagMaxDepth int
	flagCache    string
	flagNoCache  bool
	flagJobs     int
	flagQuiet    bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>...",
	Short: "Parse files and print their span streams",
	Long:  "Parses each file with the grammar inferred from its extension (or --language), resolving embedded-language regions up to the configured depth.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringVar(&flagLanguage, "language", "", "language id for all files (default: inferred per file from extension)")
	parseCmd.Flags().IntVar(&flagMaxDepth, "max-depth", 0, "injection resolution depth (default: from config)")
	parseCmd.Flags().StringVar(&flagCache, "cache", "", "SQLite result cache path (default: from config)")
	parseCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "disable the result cache for this run")
	parseCmd.Flags().IntVar(&flagJobs, "jobs", 0, "files parsed concurrently (default: from config)")
	parseCmd.Flags().BoolVar(&flagQuiet, "quiet", false, "suppress per-injection warnings")
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	maxDepth := cfg.MaxDepth
	if cmd.Flags().Changed("max-depth") {
		maxDepth = flagMaxDepth
	}
	jobs := cfg.Jobs
	if cmd.Flags().Changed("jobs") {
		jobs = flagJobs
	}
	if jobs < 1 {
		jobs = 1
	}
	cachePath := cfg.CachePath
	if cmd.Flags().Changed("cache") {
		cachePath = flagCache
	}
	if flagNoCache {
		cachePath = ""
	}

	var store *cache.Cache
	if cachePath != "" {
		if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
			return fmt.Errorf("creating cache directory: %w", err)
		}
		store, err = cache.Open(cachePath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			return err
		}
	}

	logOut := io.Writer(os.Stderr)
	if flagQuiet {
		logOut = io.Discard
	}
	host := limn.New(grammar.NewLoader(), limn.WithLogger(log.New(logOut, "", 0)))

	results := make([]FileResult, len(args))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(jobs)
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			res, err := parseFile(ctx, host, store, path, maxDepth)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return outputResults(results)
}

// parseFile parses one file, consulting the result cache when enabled.
// Cache entries are keyed by (language, content hash, depth), so an
// unchanged file under the same settings is never reparsed.
func parseFile(ctx context.Context, host *limn.Host, store *cache.Cache, path string, maxDepth int) (FileResult, error) {
	language := flagLanguage
	if language == "" {
		language = languageForFile(path)
		if language == "" {
			return FileResult{}, fmt.Errorf("cannot infer language from extension (use --language)")
		}
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, err
	}

	out := FileResult{Path: path, Language: language}
	hash := cache.HashText(text)
	if store != nil {
		cached, ok, err := store.Get(language, hash, maxDepth)
		if err != nil {
			return FileResult{}, err
		}
		if ok {
			out.Cached = true
			out.Spans = cached.Spans
			out.Injections = cached.Injections
			return out, nil
		}
	}

	id, err := host.CreateSession(ctx, language)
	if err != nil {
		return FileResult{}, err
	}
	defer host.FreeSession(id)

	if err := host.SetText(id, text); err != nil {
		return FileResult{}, err
	}
	res, err := host.Parse(ctx, id, &limn.ParseOptions{MaxDepth: maxDepth})
	if err != nil {
		return FileResult{}, err
	}
	if res.Cancelled {
		return FileResult{}, context.Canceled
	}

	out.Spans = res.Spans
	out.Injections = res.Injections
	if store != nil {
		err := store.Put(language, hash, maxDepth, &wire.ParseResult{
			Spans:      res.Spans,
			Injections: res.Injections,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: caching %s: %s\n", path, err)
		}
	}
	return out, nil
}

// extensionLanguages maps file extensions to built-in language ids.
var extensionLanguages = map[string]string{
	".sh":   "bash",
	".bash": "bash",
	".css":  "css",
	".go":   "go",
	".htm":  "html",
	".html": "html",
	".js":   "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".py":   "python",
	".rs":   "rust",
	".toml": "toml",
	".ts":   "typescript",
	".yaml": "yaml",
	".yml":  "yaml",
}

// languageForFile infers the language id from the file extension, or ""
// when the extension is unknown.
func languageForFile(path string) string {
	return extensionLanguages[strings.ToLower(filepath.Ext(path))]
}

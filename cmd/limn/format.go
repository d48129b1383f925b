package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jward/limn"
)

// FileResult is the per-file output record.
type FileResult struct {
	Path       string           `json:"path"`
	Language   string           `json:"language"`
	Cached     bool             `json:"cached,omitempty"`
	Spans      []limn.Span      `json:"spans"`
	Injections []limn.Injection `json:"injections,omitempty"`
}

// outputResults writes results to stdout in the format selected by
// --format.
func outputResults(results []FileResult) error {
	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for i, res := range results {
		if i > 0 {
			fmt.Println()
		}
		formatFileText(os.Stdout, res)
	}
	return nil
}

// formatFileText formats one file's spans as aligned columns.
func formatFileText(w io.Writer, res FileResult) {
	header := fmt.Sprintf("%s (%s)", res.Path, res.Language)
	if res.Cached {
		header += " [cached]"
	}
	fmt.Fprintln(w, header)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tCAPTURE\tLANGUAGE")
	for _, s := range res.Spans {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", s.Start, s.End, s.Capture, s.Language)
	}
	tw.Flush()
}

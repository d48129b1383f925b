package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/limn/internal/grammar"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the built-in grammar languages",
	Args:  cobra.NoArgs,
	RunE:  runLanguages,
}

func runLanguages(cmd *cobra.Command, args []string) error {
	langs := grammar.Languages()
	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(langs)
	}
	for _, lang := range langs {
		fmt.Println(lang)
	}
	return nil
}

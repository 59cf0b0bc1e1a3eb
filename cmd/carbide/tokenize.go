package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"carbide/internal/driver"
	"carbide/internal/token"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] file.cb",
	Short: "Tokenize a carbide source file",
	Long:  `Tokenize breaks a carbide source file into its constituent tokens`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func runTokenize(cmd *cobra.Command, args []string) error {
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	res, err := driver.Tokenize(args[0], maxDiagnostics)
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}
	if res.Bag.Len() > 0 {
		renderDiagnostics(os.Stderr, res.Bag, res.FileSet, useColor(cmd, os.Stderr))
	}

	file := res.FileSet.Get(res.FileID)
	out := cmd.OutOrStdout()
	for _, t := range res.Tokens {
		line, col := file.LineCol(t.Span.Start)
		if t.Kind == token.EOF {
			fmt.Fprintf(out, "%4d:%-3d %s\n", line, col, t.Kind)
			break
		}
		fmt.Fprintf(out, "%4d:%-3d %-12s %q\n", line, col, t.Kind, t.Text)
	}
	if res.Bag.HasErrors() {
		return fmt.Errorf("tokenization finished with errors")
	}
	return nil
}

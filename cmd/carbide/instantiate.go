package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"carbide/internal/driver"
)

var instantiateCmd = &cobra.Command{
	Use:   "instantiate [flags] file.cb request...",
	Short: "Instantiate generics from a source file",
	Long: `Instantiate compiles the file and resolves each request, e.g.

  carbide instantiate main.cb 'max<int>' 'Box<double>'

and prints the mangled symbol or concrete type each request produced.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runInstantiate,
}

func runInstantiate(cmd *cobra.Command, args []string) error {
	opts, err := driverOptions(cmd)
	if err != nil {
		return err
	}
	res, err := driver.Compile(args[0], opts)
	if err != nil {
		return fmt.Errorf("instantiation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, req := range args[1:] {
		symbol, err := res.Instantiate(req)
		if err != nil {
			fmt.Fprintf(out, "%-24s error: %v\n", req, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%-24s %s\n", req, symbol)
	}

	if res.Bag.Len() > 0 {
		renderDiagnostics(os.Stderr, res.Bag, res.FileSet, useColor(cmd, os.Stderr))
	}
	if failed > 0 || res.Bag.HasErrors() {
		return fmt.Errorf("%d of %d request(s) failed", failed, len(args)-1)
	}
	return nil
}

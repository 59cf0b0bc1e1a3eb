package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"carbide/internal/driver"
	"carbide/internal/parser"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] file.cb",
	Short: "Parse a carbide source file",
	Long:  `Parse reports every top-level generic declaration found in the file`,
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	opts, err := driverOptions(cmd)
	if err != nil {
		return err
	}
	res, err := driver.Compile(args[0], opts)
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}
	if res.Bag.Len() > 0 {
		renderDiagnostics(os.Stderr, res.Bag, res.FileSet, useColor(cmd, os.Stderr))
	}

	out := cmd.OutOrStdout()
	for _, item := range res.Items {
		fmt.Fprintln(out, describeItem(item))
	}
	if res.Bag.HasErrors() {
		return fmt.Errorf("parsing finished with errors")
	}
	return nil
}

func driverOptions(cmd *cobra.Command) (driver.Options, error) {
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return driver.Options{}, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	maxDepth, err := cmd.Root().PersistentFlags().GetInt("max-depth")
	if err != nil {
		return driver.Options{}, fmt.Errorf("failed to get max-depth flag: %w", err)
	}
	return driver.Options{MaxDiagnostics: maxDiagnostics, MaxDepth: maxDepth}, nil
}

func describeItem(item parser.Item) string {
	params := make([]string, len(item.Params))
	for i, p := range item.Params {
		name := p.Name
		if p.Pack {
			name += "..."
		}
		params[i] = name
	}
	header := "template<" + strings.Join(params, ", ") + ">"
	switch item.Kind {
	case parser.ItemTemplateFunc:
		return fmt.Sprintf("%s function %s (%d params)", header, item.Fn.Name, len(item.Fn.Params))
	case parser.ItemTemplateClass:
		return fmt.Sprintf("%s class %s (%d fields, %d aliases)",
			header, item.Class.Name, len(item.Class.Fields), len(item.Class.Aliases))
	case parser.ItemAliasTemplate:
		return fmt.Sprintf("%s alias %s = %s", header, item.AliasName, item.AliasTarget.String())
	case parser.ItemSpecialization:
		args := make([]string, len(item.SpecArgs))
		for i, a := range item.SpecArgs {
			args[i] = a.String()
		}
		return fmt.Sprintf("specialization %s<%s>", item.SpecName, strings.Join(args, ", "))
	case parser.ItemDeductionGuide:
		return fmt.Sprintf("deduction guide %s(...) -> %s<...>", item.GuideName, item.GuideName)
	default:
		return "unknown item"
	}
}

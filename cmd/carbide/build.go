package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"carbide/internal/driver"
	"carbide/internal/project"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [file.cb]",
	Short: "Compile a carbide source file",
	Long: `Build compiles a source file, resolves the requested instantiations and
records them in the instantiation cache. Without an argument the project
manifest's build.main is compiled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringArray("inst", nil, "instantiation request, e.g. max<int> (repeatable)")
	buildCmd.Flags().Bool("dump-insts", false, "list every instantiation after building")
	buildCmd.Flags().Bool("no-cache", false, "skip the on-disk instantiation cache")
}

func runBuild(cmd *cobra.Command, args []string) error {
	opts, err := driverOptions(cmd)
	if err != nil {
		return err
	}
	path, err := resolveBuildTarget(args)
	if err != nil {
		return err
	}

	res, err := driver.Compile(path, opts)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	requests, _ := cmd.Flags().GetStringArray("inst")
	for _, req := range requests {
		if _, err := res.Instantiate(req); err != nil {
			fmt.Fprintf(os.Stderr, "instantiation %s failed\n", req)
		}
	}

	if res.Bag.Len() > 0 {
		renderDiagnostics(os.Stderr, res.Bag, res.FileSet, useColor(cmd, os.Stderr))
	}
	if res.Bag.HasErrors() {
		return fmt.Errorf("build finished with errors")
	}

	if noCache, _ := cmd.Flags().GetBool("no-cache"); !noCache {
		if err := writeInstCache(path, res); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not write instantiation cache: %v\n", err)
		}
	}

	if dump, _ := cmd.Flags().GetBool("dump-insts"); dump {
		out := cmd.OutOrStdout()
		for _, r := range res.Engine.Records() {
			kind := "func"
			if r.Class {
				kind = "class"
			}
			fmt.Fprintf(out, "%-5s %s<%s>  %s\n", kind, r.Name, r.Args, r.Mangled)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "built %s: %d instantiation(s)\n", path, len(res.Engine.Records()))
	return nil
}

// resolveBuildTarget prefers an explicit argument, then the manifest's
// build.main relative to the project root.
func resolveBuildTarget(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	manifest, ok, err := project.Load(".")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no %s found and no file given", project.ManifestName)
	}
	return filepath.Join(manifest.Root, manifest.Config.Build.Main), nil
}

func writeInstCache(path string, res *driver.Result) error {
	cache, err := driver.OpenDiskCache("carbide")
	if err != nil {
		return err
	}
	content := res.FileSet.Get(res.FileID).Content
	hash := driver.HashBytes(content)
	return cache.Put(hash, driver.PayloadFromRecords(path, hash, res.Engine.Records()))
}

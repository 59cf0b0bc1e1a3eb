package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"carbide/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new carbide project",
	Long:  `Init writes a starter manifest and main source file in the current directory`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

const starterSource = `template<typename T>
T max(T a, T b) {
    if (a < b) { return b; }
    return a;
}
`

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	name := filepath.Base(cwd)
	if len(args) == 1 {
		name = args[0]
	}

	manifestPath := filepath.Join(cwd, project.ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("%s already exists", project.ManifestName)
	}

	manifest := fmt.Sprintf("[package]\nname = %q\nversion = \"0.1.0\"\n\n[build]\nmain = \"main.cb\"\n", name)
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		return err
	}

	mainPath := filepath.Join(cwd, "main.cb")
	if _, err := os.Stat(mainPath); os.IsNotExist(err) {
		if err := os.WriteFile(mainPath, []byte(starterSource), 0o644); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "initialized project %s\n", name)
	return nil
}

package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"carbide/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "carbide",
	Short: "Carbide language front end",
	Long:  `Carbide compiles templated C-family source and resolves generic instantiations`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(instantiateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	rootCmd.PersistentFlags().Int("max-depth", 128, "maximum generic instantiation depth")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor(cmd *cobra.Command, f *os.File) bool {
	colorFlag, _ := cmd.Root().PersistentFlags().GetString("color")
	return colorFlag == "on" || (colorFlag == "auto" && isTerminal(f))
}

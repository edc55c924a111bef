package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scoreshell",
	Short: "Desktop shell for the score analyzer",
	Long: "Launch the bundled score analyzer server, show a splash screen until it answers, " +
		"then hand over to the app. Closing the shell force-kills everything left on the server's port.",
	Args:          cobra.NoArgs,
	RunE:          runShell,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file overriding the built-in configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

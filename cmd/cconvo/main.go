package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "cconvo",
		Short:         "Browse Claude Code conversation logs by project and session",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.root, "root", "", "Projects root (default from config, ~/.claude/projects)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(listCmd(&flags))
	rootCmd.AddCommand(showCmd(&flags))
	rootCmd.AddCommand(findCmd(&flags))
	rootCmd.AddCommand(openCmd(&flags))
	rootCmd.AddCommand(statsCmd(&flags))
	rootCmd.AddCommand(doctorCmd(&flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:           "vibecheck-dash",
	Short:         "Vibecheck-dash is the live dashboard for vibecheck security assessments.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd, exportCmd)
}

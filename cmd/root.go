package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "devforge",
	Short: "Cloud development sandbox orchestrator",
	Long:  `devforge provisions per-project development sandboxes (terminal, dev server, database) on a Kubernetes cluster and serves their lifecycle over HTTP.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

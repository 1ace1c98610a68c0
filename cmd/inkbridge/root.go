package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "inkbridge",
	Short: "inkbridge sends drawing and editing commands to a live vector document",
	Long: `inkbridge talks to a running inkbridge-host over the local message bus.
Use "serve" to expose the operations as MCP tools, or "send" for one-shot requests.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

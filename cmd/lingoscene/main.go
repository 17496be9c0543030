package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:  "lingoscene",
	Long: `Multi-agent roleplay conversations for language practice.`,
}

func init() {
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(scopesCmd)
	scopesCmd.AddCommand(scopesDeleteCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}

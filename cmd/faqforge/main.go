package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "faqforge",
	Short: "Build and run fine-tuned FAQ chatbots for small businesses",
	Long: `faqforge builds small-business chatbots by fine-tuning a compact
language model on FAQ text, blended with built-in industry samples.

Run 'faqforge serve' for the web UI and HTTP API, or 'faqforge train'
to fine-tune directly from the command line.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the faqforge version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("faqforge version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	if os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stderr) {
		noColor = true
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(industriesCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tokenledger/internal/commands"
	"tokenledger/internal/config"
	"tokenledger/internal/output"
)

var (
	jsonFlag   bool
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:   "tokenledger",
	Short: "Track LLM token usage per conversation and model",
	Long:  "Record token usage events and explore per-conversation, per-model, daily and overall analytics",
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default ~/.tokenledger/config.json)")

	rootCmd.AddCommand(commands.RecordCmd)
	rootCmd.AddCommand(commands.StatsCmd)
	rootCmd.AddCommand(commands.ExportCmd)
	rootCmd.AddCommand(commands.ClearCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.DashboardCmd)
	rootCmd.AddCommand(commands.VersionCmd)

	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		// Dashboard on a terminal unless JSON was asked for.
		interactive := !jsonFlag && term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
		commands.RunDefault(interactive)
	}
}

func main() {
	// Propagate persistent flags before execution
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		output.JSONMode = jsonFlag
		if configFlag != "" {
			config.ConfigPath = configFlag
		}
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

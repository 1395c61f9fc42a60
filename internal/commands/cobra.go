package commands

import (
	"os"

	"github.com/spf13/cobra"

	"tokenledger/internal/output"
)

// RecordCmd represents the record command
var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record token usage for one response",
	Long:  "Append one usage event (conversation, model, input and output tokens) to the ledger",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var opts RecordOptions
		opts.Conversation, _ = cmd.Flags().GetString("conversation")
		opts.Model, _ = cmd.Flags().GetString("model")
		opts.Input, _ = cmd.Flags().GetInt64("input")
		opts.Output, _ = cmd.Flags().GetInt64("output")
		withApp(func(a *app) error {
			return RunRecord(a.ledger, opts)
		})
	},
}

func init() {
	RecordCmd.Flags().StringP("conversation", "c", "", "Conversation ID (a new UUID when omitted)")
	RecordCmd.Flags().StringP("model", "m", "", "Model ID")
	RecordCmd.Flags().Int64P("input", "i", 0, "Input (prompt) tokens")
	RecordCmd.Flags().Int64P("output", "o", 0, "Output (completion) tokens")
	_ = RecordCmd.MarkFlagRequired("model")
}

// StatsCmd represents the stats parent command
var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage analytics",
	Long:  "Show overall, per-conversation, per-model, daily and model-share analytics",
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(a *app) error {
			RunStatsOverall(a.ledger)
			return nil
		})
	},
}

// StatsOverallCmd represents the stats overall command
var StatsOverallCmd = &cobra.Command{
	Use:   "overall",
	Short: "Totals across all conversations and models",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(a *app) error {
			RunStatsOverall(a.ledger)
			return nil
		})
	},
}

// StatsConversationCmd represents the stats conversation command
var StatsConversationCmd = &cobra.Command{
	Use:     "conversation [id]",
	Aliases: []string{"conv", "conversations"},
	Short:   "Analytics for one conversation, or list all",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(a *app) error {
			if len(args) == 0 {
				RunStatsConversations(a.ledger)
				return nil
			}
			return RunStatsConversation(a.ledger, args[0])
		})
	},
}

// StatsModelCmd represents the stats model command
var StatsModelCmd = &cobra.Command{
	Use:     "model [id]",
	Aliases: []string{"models"},
	Short:   "Analytics for one model, or list all",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(a *app) error {
			if len(args) == 0 {
				RunStatsModels(a.ledger)
				return nil
			}
			return RunStatsModel(a.ledger, args[0])
		})
	},
}

// StatsDailyCmd represents the stats daily command
var StatsDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Per-day usage ending today",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")
		withApp(func(a *app) error {
			if days == 0 {
				days = a.cfg.DailyWindow
			}
			return RunStatsDaily(a.ledger, days)
		})
	},
}

// StatsShareCmd represents the stats share command
var StatsShareCmd = &cobra.Command{
	Use:   "share",
	Short: "Each model's share of all tokens",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(a *app) error {
			RunStatsShare(a.ledger)
			return nil
		})
	},
}

func init() {
	StatsDailyCmd.Flags().IntP("days", "d", 0, "Number of days (default from config)")

	StatsCmd.AddCommand(StatsOverallCmd)
	StatsCmd.AddCommand(StatsConversationCmd)
	StatsCmd.AddCommand(StatsModelCmd)
	StatsCmd.AddCommand(StatsDailyCmd)
	StatsCmd.AddCommand(StatsShareCmd)
}

// ExportCmd represents the export command
var ExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger as JSON or CSV",
	Long:  "Export analytics and raw events as JSON, or raw events as CSV, to stdout or a file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		withApp(func(a *app) error {
			return RunExport(a.ledger, format, out)
		})
	},
}

func init() {
	ExportCmd.Flags().StringP("format", "f", "json", "Export format: json or csv")
	ExportCmd.Flags().String("out", "", "Write to this file instead of stdout")
}

// ClearCmd represents the clear command
var ClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded usage",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		yes, _ := cmd.Flags().GetBool("yes")
		withApp(func(a *app) error {
			return RunClear(a.ledger, yes, os.Stdin)
		})
	},
}

func init() {
	ClearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

// ServeCmd represents the serve command
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and MCP server",
	Long:  "Serve the ledger over HTTP (REST, websocket feed, metrics, MCP) and over stdio MCP when stdin is a pipe",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var opts ServeOptions
		opts.Bind, _ = cmd.Flags().GetString("bind")
		opts.NoStdio, _ = cmd.Flags().GetBool("no-stdio")
		opts.Advertise, _ = cmd.Flags().GetBool("mdns")
		if err := RunServe(opts); err != nil {
			output.PrintError(err)
		}
	},
}

func init() {
	ServeCmd.Flags().String("bind", "", "Listen address (default from config, :3457)")
	ServeCmd.Flags().Bool("no-stdio", false, "Never serve MCP over stdio")
	ServeCmd.Flags().Bool("mdns", false, "Advertise the server over mDNS/Bonjour")
}

// DashboardCmd represents the dashboard command
var DashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"ui"},
	Short:   "Open the interactive usage dashboard",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")
		withApp(func(a *app) error {
			return RunDashboard(a.ledger, days, a.cfg.DailyWindow)
		})
	},
}

func init() {
	DashboardCmd.Flags().IntP("days", "d", 0, "Initial window: 7 or 30 (default from config)")
}

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show tokenledger version",
	Run: func(cmd *cobra.Command, args []string) {
		RunVersion()
	},
}

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/handwriting-tools-mcp/internal/config"
	"github.com/ironsheep/handwriting-tools-mcp/internal/logging"
	"github.com/ironsheep/handwriting-tools-mcp/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "handwriting-mcp",
	Short: "Handwriting relapse-risk analysis",
	Long: `handwriting-mcp classifies a handwriting sample as Relapse Risk, Recovery or
Inconclusive from pen pressure, word spacing and seven glyph classifiers.

Without a subcommand it runs the MCP server over stdin/stdout. Configure it in
your MCP client (e.g., Claude Desktop).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// stdout is reserved for MCP protocol and command output
		log.SetOutput(os.Stderr)
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		logging.SetOutput(os.Stderr)

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			logging.SetLevel(logging.ParseLevel(lvl))
		}
		server.Version = Version
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a .env file (missing files are ignored)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides HANDWRITING_LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(versionCmd)
}

// readConfig reads configuration without validating it and applies its log
// level.
func readConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Read(envFile(cmd))
	if err != nil {
		return nil, err
	}
	applyLogLevel(cmd, cfg)
	return cfg, nil
}

// loadConfig is readConfig plus validation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(envFile(cmd))
	if err != nil {
		return nil, err
	}
	applyLogLevel(cmd, cfg)
	return cfg, nil
}

// applyLogLevel sets the level from HANDWRITING_LOG_LEVEL as read from the
// environment or .env file. An explicit --log-level wins.
func applyLogLevel(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
		return
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
}

func envFile(cmd *cobra.Command) string {
	f, _ := cmd.Flags().GetString("env-file")
	return f
}

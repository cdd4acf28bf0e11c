package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/po2so/internal/common"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfg      *common.Config
	logger   *slog.Logger
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "po2so",
	Short:         "Convert purchase orders into sales order files",
	Long:          "po2so reads purchase orders (PDF, scanned images, XLSX, DOCX), extracts their fields and line items, and writes sales orders as CSV or XLSX.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = common.LoadConfig()
		if logLevel != "" {
			cfg.LogLevel = strings.ToLower(logLevel)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger = newLogger(cfg.LogLevel)
		slog.SetDefault(logger)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the po2so version",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "po2so "+version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default from LOG_LEVEL)")
	rootCmd.AddCommand(versionCmd)
}

// newLogger writes JSON logs to stderr so stdout stays free for command output.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

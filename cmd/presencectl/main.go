// Package main is the entry point for presencectl, the lifecycle manager
// for the Trakt Discord presence daemon. It detects the host platform and
// registers, inspects, or removes the daemon with the native service
// supervisor.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trakt-tools/presencectl/internal/config"
	"github.com/trakt-tools/presencectl/internal/lifecycle"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	flagConfigPath  string
	flagProjectRoot string
	flagVerbose     bool

	cfg      *config.Config
	logger   *zap.Logger
	exitCode int
)

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "presencectl.yaml", "Path to manager configuration file")
	rootCmd.PersistentFlags().StringVarP(&flagProjectRoot, "project-root", "C", ".", "Directory containing the presence daemon (main.py)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(
		opCommand(lifecycle.OpInstall, "Provision the runtime environment and register the daemon to start at login"),
		opCommand(lifecycle.OpUninstall, "Stop the daemon and remove its registration"),
		opCommand(lifecycle.OpStatus, "Report registration state, configuration, environment, and recent logs"),
		opCommand(lifecycle.OpStart, "Start the registered daemon"),
		opCommand(lifecycle.OpStop, "Stop the registered daemon"),
		opCommand(lifecycle.OpRestart, "Restart the registered daemon"),
		opCommand(lifecycle.OpLogs, "Print the tail of the daemon's log files"),
		versionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		exitCode = 1
	}
	if logger != nil {
		_ = logger.Sync()
	}
	os.Exit(exitCode)
}

var rootCmd = &cobra.Command{
	Use:           "presencectl",
	Short:         "Manage the Trakt Discord presence daemon as an auto-starting service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(flagConfigPath)
		if err != nil {
			return err
		}
		logger = newLogger(cfg)
		return nil
	},
}

func opCommand(op lifecycle.Op, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(op),
		Short: short,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			orch := lifecycle.New(cfg, logger)
			exitCode = orch.Run(cmd.Context(), op, flagProjectRoot)
		},
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the presencectl version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("presencectl %s\n", version)
	},
}

// newLogger builds a console zap logger at the configured level. --verbose
// takes precedence over the config file.
func newLogger(cfg *config.Config) *zap.Logger {
	level := zapcore.InfoLevel
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}
	if flagVerbose {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)
	return zap.New(core)
}

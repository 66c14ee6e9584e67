// Package cmd implements hfilectl, a small command-line client over
// hfile's stream abstraction: "cat" reads one URL to stdout, "copy"
// transfers many URL pairs concurrently.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/javi11/hfile/internal/config"
)

var (
	configFile string
	logFile    string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "hfilectl",
	Short: "Inspect and move hStream-addressable byte streams",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		setupLogging()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML/JSON config file")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr (rotated via lumberjack)")
}

func setupLogging() {
	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     28,
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(rotator, nil)))
}

// Execute runs the hfilectl root command.
func Execute() error {
	return rootCmd.Execute()
}

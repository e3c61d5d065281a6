package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stemd/internal/config"
)

var (
	configPath string
	logLevel   string
	verbose    bool
	jsonLogs   bool

	cfg config.Config
	log zerolog.Logger

	rootCmd = &cobra.Command{
		Use:           "stemd",
		Short:         "Audio stem separation service with model config resolution",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				c.LogLevel = logLevel
			}
			if verbose {
				c.Verbose = true
			}
			cfg = c
			log = newLogger(cfg.LogLevel, jsonLogs)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("STEMD_CONFIG"), "Path to a YAML, JSON or TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config or STEMD_LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Include technical details in error output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit JSON logs instead of console output")

	rootCmd.AddCommand(serveCmd, runCmd, resolveCmd, hashCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads path (if any), overlays STEMD_* variables and fills defaults.
func loadConfig(path string) (config.Config, error) {
	var c config.Config
	if path != "" {
		var err error
		if c, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	c.ApplyEnv()
	c.Defaults()
	return c, nil
}

func newLogger(level string, asJSON bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if asJSON {
		return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

// splitCSV splits a comma-separated flag value, dropping empty items.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Command i18nsync keeps a record store in sync with message and
// translation files on disk.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gpml/i18nsync/internal/config"
)

var (
	v          = config.NewViper()
	configFile string
	verbose    bool

	// logOutput receives every component logger. It is replaced by a
	// rotating file when log.file is configured.
	logOutput io.Writer = os.Stderr
	logFile   *lumberjack.Logger
)

var rootCmd = &cobra.Command{
	Use:   "i18nsync",
	Short: "Sync message and translation files into a record store",
	Long: `i18nsync watches message and translation source directories and keeps
a SQLite record store in step with them.

Each configured source is reconciled independently. A file that fails to
parse or validate has its records withdrawn from the store until the file
is fixed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "inspect", Title: "Inspection Commands:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default: ./i18nsync.yaml or .i18nsync/i18nsync.yaml)")
	flags.String("database", "", "record store path")
	flags.String("log-file", "", "write logs to a rotating file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log every file pass")

	_ = v.BindPFlag("database", flags.Lookup("database"))
	_ = v.BindPFlag("log.file", flags.Lookup("log-file"))
}

// loadConfig reads the configuration and opens the log file. Errors are
// fatal.
func loadConfig() *config.Config {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Log.File != "" {
		logFile = &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		}
		logOutput = logFile
	}
	return cfg
}

// newLogger returns a component logger. Quiet loggers are discarded unless
// --verbose is set or logs go to a file.
func newLogger(prefix string, quiet bool) *log.Logger {
	if quiet && !verbose && logFile == nil {
		return log.New(io.Discard, prefix, log.LstdFlags)
	}
	return log.New(logOutput, prefix, log.LstdFlags)
}

func closeLog() {
	if logFile != nil {
		_ = logFile.Close()
	}
}

// exitf prints an error and exits with status 1.
func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	closeLog()
	os.Exit(1)
}

func main() {
	err := rootCmd.Execute()
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

// Command ignite runs the head unit power routine over adb.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ignite/internal/app"
	"ignite/internal/config"
	"ignite/internal/logger"
)

var version = "dev"

type globalFlags struct {
	device     string
	adbPath    string
	configPath string
	history    string
	logFile    bool
	debug      bool
}

var flags globalFlags

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ignite",
		Short:         "Launch apps on power connect and shut down the head unit after power loss",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogging(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.CloseLogger()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.device, "device", "s", "", "adb serial of the head unit (default: the only attached device)")
	pf.StringVar(&flags.adbPath, "adb", "adb", "path to the adb binary")
	pf.StringVar(&flags.configPath, "config", "", "settings file (default: <user config dir>/Ignite/settings.json)")
	pf.StringVar(&flags.history, "history", "", "run history database (default: <user config dir>/Ignite/history.db)")
	pf.BoolVar(&flags.logFile, "log-file", false, "also write rotated logs next to the settings file")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newRunCmd(),
		newMCPCmd(),
		newTriggerCmd(),
		newConfigCmd(),
		newHistoryCmd(),
	)
	return root
}

func initLogging(cmd *cobra.Command) error {
	cfg := logger.DefaultLogConfig()
	if flags.logFile {
		cfg = logger.PersistentLogConfig(dataDir())
	}
	if flags.debug {
		cfg.Level = logger.LogLevelDebug
	}
	if err := logger.InitLogger(cfg); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logger.Debug("cli").Str("command", cmd.CommandPath()).Msg("Command started")
	return nil
}

// dataDir is the directory holding the settings file
func dataDir() string {
	path := flags.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return filepath.Dir(path)
}

func appOptions() app.Options {
	return app.Options{
		Version:     version,
		ADBPath:     flags.adbPath,
		DeviceID:    flags.device,
		ConfigPath:  flags.configPath,
		HistoryPath: flags.history,
	}
}

// openStore opens the settings file alone, for commands that do not need a device
func openStore() (*config.Store, error) {
	path := flags.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Open(path)
}

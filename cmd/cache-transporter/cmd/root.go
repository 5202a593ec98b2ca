// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/oneconcern/cachetransporter/pkg/config"
	"github.com/oneconcern/cachetransporter/pkg/dlogger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cache-transporter",
	Short: "Cache transporter moves build caches between machines",
	Long: `Cache transporter packages directory trees into a single archive, stores it in a remote
content addressed cache server, and later restores it at the same place relative to the
working directory, on another machine.

Push (save + upload) after a build, pull (download + restore) before the next one.

Settings are read from flags, CACHE_TRANSPORTER_* environment variables and an optional
cache-transporter.yaml config file.
`,
	SilenceUsage: true,
}

var (
	v      = config.New()
	cfg    config.Config
	logger = zap.NewNop()
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		wrapFatalWithCodef(1, "%v", err)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)

	addURIFlag(rootCmd)
	addTempFlag(rootCmd)
	addLogLevel(rootCmd)
	addTimeoutFlag(rootCmd)
	addDialTimeoutFlag(rootCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	used, err := config.ReadConfigFile(v)
	if err != nil {
		wrapFatalln("read config file", err)
		return
	}
	cfg, err = config.Load(v)
	if err != nil {
		wrapFatalln("load config", err)
		return
	}
	logger, err = dlogger.GetCLILogger(cfg.LogLevel)
	if err != nil {
		wrapFatalln("failed to set log level", err)
		return
	}
	if used != "" {
		logger.Debug("Using config file", zap.String("file", used))
	}
}

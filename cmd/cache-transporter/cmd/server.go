// Copyright © 2018 One Concern

package cmd

import (
	"github.com/oneconcern/cachetransporter/pkg/dlogger"
	"github.com/oneconcern/cachetransporter/pkg/server"
	"github.com/oneconcern/cachetransporter/pkg/storage/localfs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the cache server",
	Long: `Start the cache server, storing objects under the storage directory.

The server answers PUT and GET requests on /cas/{hash} and /ac/{hash}, with /healthz
and /metrics for monitoring. It shuts down gracefully on SIGINT or SIGTERM.`,
	Example: `cache-transporter server --port 33813 --storage /var/lib/cache-transporter`,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		l, err := dlogger.GetLogger(cfg.LogLevel)
		if err != nil {
			wrapFatalln("failed to set log level", err)
			return
		}
		defer func() { _ = l.Sync() }()

		store, err := localfs.NewAt(cfg.Storage)
		if err != nil {
			wrapFatalln("open storage", err)
			return
		}
		srv := server.New(store,
			server.WithLogger(l),
			server.WithAddr(cfg.Addr()),
			server.WithReadHeaderTimeout(cfg.ReadHeaderTimeout),
			server.WithShutdownTimeout(cfg.ShutdownTimeout),
			server.WithMaxBodySize(cfg.MaxBodySize),
		)
		if err = srv.Run(cmd.Context()); err != nil {
			l.Error("server stopped", zap.Error(err))
			wrapFatalln("server", err)
			return
		}
		l.Info("server stopped")
	},
}

func init() {
	addHostFlag(serverCmd)
	addPortFlag(serverCmd)
	addStorageFlag(serverCmd)
	addReadHeaderTimeoutFlag(serverCmd)
	addShutdownTimeoutFlag(serverCmd)
	addMaxBodySizeFlag(serverCmd)
	rootCmd.AddCommand(serverCmd)
}

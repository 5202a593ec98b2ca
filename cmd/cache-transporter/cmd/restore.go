// Copyright © 2018 One Concern

package cmd

import (
	"github.com/oneconcern/cachetransporter/pkg/archive"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download <cache-id>",
	Short: "Download an archive from the cache server",
	Long: `Download the metadata record of a cache id, then the archive it points to, into the
temp directory. The archive content is checked against its hash.`,
	Example: `cache-transporter download node-modules-1234 --uri http://cache:33813`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cache, err := newCache(true)
		if err != nil {
			wrapFatalln("create cache", err)
			return
		}
		md, err := cache.Download(cmd.Context(), args[0])
		if err != nil {
			wrapFatalln("download", err)
			return
		}
		infoLogger.Printf("downloaded %s as %s", args[0], md.Hash)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <cache-id>",
	Short: "Extract a downloaded archive",
	Long: `Extract the local archive of a cache id at the same position relative to the current
directory as the archived trees had relative to the directory save ran from.`,
	Example: `cache-transporter restore node-modules-1234`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cache, err := newCache(false)
		if err != nil {
			wrapFatalln("create cache", err)
			return
		}
		res, err := cache.Restore(cmd.Context(), args[0])
		if err != nil {
			wrapFatalln("restore", err)
			return
		}
		reportRestore(args[0], res)
	},
}

var pullCmd = &cobra.Command{
	Use:     "pull <cache-id>",
	Short:   "Download then restore",
	Example: `cache-transporter pull node-modules-1234 --uri http://cache:33813`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cache, err := newCache(true)
		if err != nil {
			wrapFatalln("create cache", err)
			return
		}
		res, err := cache.Pull(cmd.Context(), args[0])
		if err != nil {
			wrapFatalln("pull", err)
			return
		}
		reportRestore(args[0], res)
	},
}

func reportRestore(cacheID string, res archive.Result) {
	for _, warning := range res.Warnings {
		infoLogger.Printf("warning: %s", warning)
	}
	infoLogger.Printf("restored %s: %d entries in %s", cacheID, res.Entries, res.Target)
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(pullCmd)
}

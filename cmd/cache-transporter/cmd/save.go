// Copyright © 2018 One Concern

package cmd

import (
	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save <cache-id> <path>...",
	Short: "Archive a set of paths locally",
	Long: `Archive one or more files or directories into {temp}/{cache-id}.tgz, relative to
their common ancestor, and write the metadata record {temp}/{cache-id}.json.

Relative paths resolve against the current directory.`,
	Example: `cache-transporter save node-modules-1234 node_modules packages/app/node_modules`,
	Args:    cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cache, err := newCache(false)
		if err != nil {
			wrapFatalln("create cache", err)
			return
		}
		res, err := cache.Save(cmd.Context(), args[0], args[1:])
		if err != nil {
			wrapFatalln("save", err)
			return
		}
		infoLogger.Printf("saved %s (%s) as %s", args[0], res.Stats, res.Metadata.Hash)
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <cache-id>",
	Short: "Upload a saved archive to the cache server",
	Long: `Upload the archive and the metadata record previously written by save.

The archive is stored first, addressed by its content hash, then the metadata record,
addressed by the hash of the cache id.`,
	Example: `cache-transporter upload node-modules-1234 --uri http://cache:33813`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cache, err := newCache(true)
		if err != nil {
			wrapFatalln("create cache", err)
			return
		}
		if err = cache.Upload(cmd.Context(), args[0]); err != nil {
			wrapFatalln("upload", err)
			return
		}
		infoLogger.Printf("uploaded %s", args[0])
	},
}

var pushCmd = &cobra.Command{
	Use:     "push <cache-id> <path>...",
	Short:   "Save then upload",
	Example: `cache-transporter push node-modules-1234 node_modules --uri http://cache:33813`,
	Args:    cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cache, err := newCache(true)
		if err != nil {
			wrapFatalln("create cache", err)
			return
		}
		res, err := cache.Push(cmd.Context(), args[0], args[1:])
		if err != nil {
			wrapFatalln("push", err)
			return
		}
		infoLogger.Printf("pushed %s (%s) as %s", args[0], res.Stats, res.Metadata.Hash)
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(pushCmd)
}

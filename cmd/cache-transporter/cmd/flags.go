// Copyright © 2018 One Concern

package cmd

import (
	"time"

	"github.com/oneconcern/cachetransporter/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// bindFlag lets a flag take precedence over the environment and the config file
func bindFlag(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func addURIFlag(cmd *cobra.Command) string {
	uri := config.KeyURI
	cmd.PersistentFlags().String(uri, "", "The base url of the cache server, e.g. http://cache:33813")
	bindFlag(uri, cmd.PersistentFlags().Lookup(uri))
	return uri
}

func addTempFlag(cmd *cobra.Command) string {
	temp := config.KeyTemp
	cmd.PersistentFlags().String(temp, "/tmp", "The directory holding local archives and metadata")
	bindFlag(temp, cmd.PersistentFlags().Lookup(temp))
	return temp
}

func addLogLevel(cmd *cobra.Command) string {
	loglevel := config.KeyLogLevel
	cmd.PersistentFlags().String(loglevel, "info", "The logging level. Levels by increasing order of verbosity: none, error, warn, info, debug")
	bindFlag(loglevel, cmd.PersistentFlags().Lookup(loglevel))
	return loglevel
}

func addTimeoutFlag(cmd *cobra.Command) string {
	timeout := config.KeyTimeout
	cmd.PersistentFlags().Duration(timeout, 0, "Timeout of a whole request to the cache server, transfer included. 0 disables the timeout")
	bindFlag(timeout, cmd.PersistentFlags().Lookup(timeout))
	return timeout
}

func addDialTimeoutFlag(cmd *cobra.Command) string {
	dialTimeout := config.KeyDialTimeout
	cmd.PersistentFlags().Duration(dialTimeout, 30*time.Second, "Timeout to connect to the cache server")
	bindFlag(dialTimeout, cmd.PersistentFlags().Lookup(dialTimeout))
	return dialTimeout
}

func addHostFlag(cmd *cobra.Command) string {
	host := config.KeyHost
	cmd.Flags().String(host, "0.0.0.0", "The host the server listens on")
	bindFlag(host, cmd.Flags().Lookup(host))
	return host
}

func addPortFlag(cmd *cobra.Command) string {
	port := config.KeyPort
	cmd.Flags().Int(port, 33813, "The port the server listens on")
	bindFlag(port, cmd.Flags().Lookup(port))
	return port
}

func addStorageFlag(cmd *cobra.Command) string {
	storage := config.KeyStorage
	cmd.Flags().String(storage, ".cache/cache-transporter", "The root directory of the server storage")
	bindFlag(storage, cmd.Flags().Lookup(storage))
	return storage
}

func addReadHeaderTimeoutFlag(cmd *cobra.Command) string {
	readHeaderTimeout := config.KeyReadHeaderTimeout
	cmd.Flags().Duration(readHeaderTimeout, 30*time.Second, "Time allowed to read request headers")
	bindFlag(readHeaderTimeout, cmd.Flags().Lookup(readHeaderTimeout))
	return readHeaderTimeout
}

func addShutdownTimeoutFlag(cmd *cobra.Command) string {
	shutdownTimeout := config.KeyShutdownTimeout
	cmd.Flags().Duration(shutdownTimeout, 10*time.Second, "Time given to in-flight requests on shutdown")
	bindFlag(shutdownTimeout, cmd.Flags().Lookup(shutdownTimeout))
	return shutdownTimeout
}

func addMaxBodySizeFlag(cmd *cobra.Command) string {
	maxBodySize := config.KeyMaxBodySize
	cmd.Flags().String(maxBodySize, "0", "Maximum size of an uploaded object, e.g. 10GB. 0 disables the limit")
	bindFlag(maxBodySize, cmd.Flags().Lookup(maxBodySize))
	return maxBodySize
}

func addConfigOutputFlag(cmd *cobra.Command) string {
	output := "output"
	cmd.Flags().StringVar(&flags.config.output, output, "", "The config file to write. Defaults to $HOME/.cache-transporter/cache-transporter.yaml")
	return output
}

type flagsT struct {
	config struct {
		output string
	}
	version struct {
		json bool
	}
}

var flags flagsT

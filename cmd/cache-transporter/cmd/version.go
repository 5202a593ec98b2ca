package cmd

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

// Build information, injected at link time:
//
//	go build -ldflags "-X github.com/oneconcern/cachetransporter/cmd/cache-transporter/cmd.Version=v1.0.0"
var (
	Version   string
	BuildDate string
	GitCommit string
	GitState  string
)

// BuildInfo describes the binary
type BuildInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate,omitempty"`
	GitCommit string `json:"gitCommit,omitempty"`
	GitState  string `json:"gitState,omitempty"`
}

// currentBuild reports a development build unless a version was injected.
// A tagged build without explicit state is assumed clean.
func currentBuild() BuildInfo {
	info := BuildInfo{Version: "dev", BuildDate: BuildDate, GitCommit: GitCommit, GitState: GitState}
	if Version != "" {
		info.Version = Version
		if info.GitState == "" {
			info.GitState = "clean"
		}
	}
	return info
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("cache-transporter %s\n  built:  %s\n  commit: %s\n  tree:   %s\n",
		b.Version, orUnknown(b.BuildDate), orUnknown(b.GitCommit), orUnknown(b.GitState))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of cache-transporter",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info := currentBuild()
		if !flags.version.json {
			logStdOut("%s", info)
			return
		}
		b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(info)
		if err != nil {
			wrapFatalln("render version", err)
			return
		}
		logStdOut("%s\n", b)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&flags.version.json, "json", false, "Print the build information as JSON")
	rootCmd.AddCommand(versionCmd)
}

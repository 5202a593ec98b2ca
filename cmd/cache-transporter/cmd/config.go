package cmd

import (
	"os"
	"path/filepath"

	"github.com/oneconcern/cachetransporter/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Commands to manage the config file",
	Long: `Commands to manage the config file.

Settings are looked up in flags, then CACHE_TRANSPORTER_* environment variables, then the
config file: $CACHE_TRANSPORTER_CONFIG, ./cache-transporter.yaml or
$HOME/.cache-transporter/cache-transporter.yaml.`,
}

var configCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a config file from the current settings",
	Example: `cache-transporter config create --uri http://cache:33813 --temp /var/tmp
cache-transporter config create --output ./cache-transporter.yaml`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		output := flags.config.output
		if output == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				wrapFatalln("locate home directory", err)
				return
			}
			output = filepath.Join(home, "."+config.Name, config.Name+".yaml")
		}
		content, err := cfg.YAML()
		if err != nil {
			wrapFatalln("render config", err)
			return
		}
		if err = os.MkdirAll(filepath.Dir(output), 0o700); err != nil {
			wrapFatalln("create config directory", err)
			return
		}
		if err = os.WriteFile(output, content, 0o600); err != nil {
			wrapFatalln("write config file", err)
			return
		}
		infoLogger.Printf("config file created in %s", output)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		content, err := cfg.YAML()
		if err != nil {
			wrapFatalln("render config", err)
			return
		}
		logStdOut("%s", content)
	},
}

func init() {
	addConfigOutputFlag(configCreateCmd)
	configCmd.AddCommand(configCreateCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

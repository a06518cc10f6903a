package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg        *Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "ssoserver",
	Short: "Single sign-on authority",
	Long: `ssoserver authenticates principals, issues single-use service tickets
to registered client applications and answers their permission queries.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file (env: SSO_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(loadtestCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package cli implements opsctl, the operator tool for inspecting and
// running list queries outside the HTTP API.
package cli

import (
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	jsonOutput bool
	cfg        *Config
}

// NewRootCmd builds the opsctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "opsctl",
		Short:         "Inspect and run opsboard list queries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to opsctl.toml")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Output in JSON format")

	root.AddCommand(a.explainCmd(), a.listCmd(), a.tokenCmd())
	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

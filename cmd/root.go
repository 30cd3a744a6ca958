// Package cmd holds the graddirector command line.
package cmd

import (
	"graddirector/pkg/config"

	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	systemPath string
	logLevel   string
}

// NewRootCmd creates the graddirector root command with all subcommands.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "graddirector",
		Short: "VCU CS Grad Director assistant",
		Long: `graddirector answers questions about the VCU Computer Science graduate programs.
It calls a course schedule lookup, a web search and a Discord relay when needed.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.json", "path to config.json")
	root.PersistentFlags().StringVar(&opts.systemPath, "system", "system.json", "path to system.json")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides system.json)")

	root.AddCommand(
		NewServeCmd(opts),
		NewChatCmd(opts),
		NewEvalCmd(opts),
		NewToolsCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// system loads system.json and applies the --log-level override.
func (o *globalOptions) system() *config.SystemConfig {
	sys := config.LoadSystemConfig(o.systemPath)
	if o.logLevel != "" {
		sys.LogLevel = o.logLevel
	}
	return sys
}

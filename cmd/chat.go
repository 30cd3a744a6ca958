package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"graddirector/pkg/channels/terminal"
	"graddirector/pkg/gateway"
	"graddirector/pkg/handler"
	"graddirector/pkg/monitor"

	"github.com/spf13/cobra"
)

// NewChatCmd creates the interactive terminal command.
func NewChatCmd(opts *globalOptions) *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Long: `Opens an interactive prompt. Logs go to --log-file since the terminal
is owned by the prompt. Type /clear to start over, /quit or Ctrl+C to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts, logFile)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "graddirector.log", "file receiving logs and the traffic monitor")
	return cmd
}

func runChat(ctx context.Context, opts *globalOptions, logFile string) error {
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	sys := opts.system()
	monitor.SetupSlog(sys.LogLevel, f)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, opts, sys, true)
	if err != nil {
		return err
	}
	defer a.close()

	tc := terminal.NewTerminalChannel(os.Stdin, os.Stdout)
	gw, err := gateway.NewGatewayBuilder().
		WithMonitor(monitor.NewCLIMonitor(f)).
		WithChannel(tc).
		WithHandler(handler.NewChatHandler(ctx, a.engine)).
		Build()
	if err != nil {
		return err
	}

	select {
	case <-tc.Done():
	case <-ctx.Done():
	}
	gw.StopAll()
	return nil
}


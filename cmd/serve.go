package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"graddirector/pkg/channels"
	_ "graddirector/pkg/channels/autoload" // registers channel factories
	"graddirector/pkg/gateway"
	"graddirector/pkg/handler"
	"graddirector/pkg/monitor"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewServeCmd creates the serve command.
func NewServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the channels listed in config.json",
		Long: `Starts every front-end configured under "channels" (web, telegram, discord, terminal)
and answers incoming messages until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *globalOptions) error {
	sys := opts.system()
	monitor.SetupSlog(sys.LogLevel, os.Stderr)
	monitor.PrintBanner(os.Stdout)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, opts, sys, true)
	if err != nil {
		return err
	}
	defer a.close()

	chans, err := channels.Build(a.cfg.Channels, channels.Deps{
		System:        sys,
		Relay:         a.relay,
		RelayChannels: a.relayChannels,
	})
	if err != nil {
		return err
	}

	gw, err := gateway.NewGatewayBuilder().
		WithMonitor(monitor.NewCLIMonitor(os.Stdout)).
		WithChannel(chans...).
		WithHandler(handler.NewChatHandler(ctx, a.engine)).
		Build()
	if err != nil {
		return err
	}

	slog.Info("Gateway running", "channels", gw.ChannelIDs())
	<-ctx.Done()
	slog.Info("Received shutdown signal. Stopping services...")
	gw.StopAll()
	return nil
}

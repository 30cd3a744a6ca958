package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"graddirector/pkg/config"
	"graddirector/pkg/monitor"
	"graddirector/pkg/relay"
	"graddirector/pkg/tools"

	"github.com/spf13/cobra"
)

// NewToolsCmd creates the tools command group.
func NewToolsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the tool roster and the relay server",
	}
	cmd.AddCommand(newToolsListCmd(opts), newToolsProbeCmd(opts))
	return cmd
}

func newToolsListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tools offered to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sys := opts.system()
			monitor.SetupSlog(sys.LogLevel, os.Stderr)

			a, err := loadApp(opts, sys)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.buildRoster(cmd.Context(), true); err != nil {
				return err
			}
			return printRoster(cmd.OutOrStdout(), a.registry)
		},
	}
}

func printRoster(out io.Writer, reg *tools.Registry) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TOOL\tARGUMENTS\tDESCRIPTION")
	fmt.Fprintln(w, "----\t---------\t-----------")
	for _, name := range reg.Names() {
		t, _ := reg.Get(name)
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, argSummary(t.Schema()), t.Description())
	}
	return w.Flush()
}

func argSummary(s tools.ArgSchema) string {
	if len(s) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(s))
	for _, f := range s {
		p := f.Name + ":" + f.Type
		if f.Required {
			p += "*"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}

func newToolsProbeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Connect to the relay server and print its tool schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sys := opts.system()
			monitor.SetupSlog(sys.LogLevel, os.Stderr)

			a, err := loadApp(opts, sys)
			if err != nil {
				return err
			}
			rc, ok, err := a.cfg.Relay()
			if err != nil {
				return err
			}
			if !ok {
				rc = config.RelayFromEnv()
			}
			return probeRelay(cmd.Context(), cmd.OutOrStdout(), relay.NewClient(rc.Command))
		},
	}
}

func probeRelay(ctx context.Context, out io.Writer, client *relay.Client) error {
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	infos, err := client.ListTools(ctx)
	if err != nil {
		return err
	}
	for _, ti := range infos {
		schema, err := json.MarshalIndent(ti.InputSchema, "  ", "  ")
		if err != nil {
			schema = []byte("{}")
		}
		fmt.Fprintf(out, "%s\n  %s\n  %s\n\n", ti.Name, ti.Description, schema)
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"graddirector/pkg/agent"
	"graddirector/pkg/config"
	"graddirector/pkg/llm"
	_ "graddirector/pkg/llm/autoload" // registers model providers
	"graddirector/pkg/relay"
	"graddirector/pkg/tools"
	"graddirector/pkg/tools/schedule"
	"graddirector/pkg/tools/websearch"
)

// app is the assembled runtime shared by the subcommands.
type app struct {
	cfg      *config.Config
	sys      *config.SystemConfig
	client   llm.LLMClient
	registry *tools.Registry
	engine   *agent.Engine

	relayClient   *relay.Client
	relay         *relay.Relay
	relayChannels []string
}

// bootstrap loads and validates configuration, builds the model client and
// the sealed tool roster, and wires the engine. Missing credentials fail
// here, before any channel starts. withRelay false leaves the discord relay
// unstarted and its tools off the roster.
func bootstrap(ctx context.Context, opts *globalOptions, sys *config.SystemConfig, withRelay bool) (*app, error) {
	a, err := loadApp(opts, sys)
	if err != nil {
		return nil, err
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	a.client, err = llm.NewFromConfig(a.cfg.LLM, sys)
	if err != nil {
		return nil, fmt.Errorf("failed to init LLM client: %w", err)
	}

	if err := a.buildRoster(ctx, withRelay); err != nil {
		a.close()
		return nil, err
	}

	a.engine = agent.NewEngine(a.client, a.registry, llm.NewSessionManager(), sys, agent.WithPreamble(a.cfg.SystemPrompt))
	return a, nil
}

// loadApp reads config.json without validating credentials.
func loadApp(opts *globalOptions, sys *config.SystemConfig) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, sys: sys}, nil
}

// buildRoster registers the schedule tool when a path is set, web search
// when a key is present and the relay tools when withRelay is set and
// discord is configured.
func (a *app) buildRoster(ctx context.Context, withRelay bool) error {
	reg, err := tools.NewRegistry()
	if err != nil {
		return err
	}

	if sc := a.cfg.Tools.CourseSchedule; sc.Path != "" {
		st := schedule.New(sc)
		st.Watch(ctx)
		if err := reg.Register(st); err != nil {
			return err
		}
	}
	if ws := websearch.New(a.cfg.Tools.WebSearch, nil); ws != nil {
		if err := reg.Register(ws); err != nil {
			return err
		}
	} else {
		slog.Info("Web search disabled, TAVILY_API_KEY not set")
	}

	if withRelay {
		if err := a.connectRelay(ctx); err != nil {
			return err
		}
	}
	if a.relay != nil {
		if err := reg.Register(relay.NewReadTool(a.relay)); err != nil {
			return err
		}
		if err := reg.Register(relay.NewSendTool(a.relay)); err != nil {
			return err
		}
	}

	reg.Seal()
	a.registry = reg
	slog.Info("Tool roster sealed", "tools", reg.Names())
	return nil
}

// connectRelay starts the relay server when the discord entry exists and
// checks that it exposes the configured send and read tools.
func (a *app) connectRelay(ctx context.Context) error {
	rc, ok, err := a.cfg.Relay()
	if err != nil || !ok {
		return err
	}

	client := relay.NewClient(rc.Command)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	a.relayClient = client

	if rc.DebugSchemas {
		logRelaySchemas(ctx, client)
	}

	send, read, err := relay.ResolveToolNames(ctx, client, rc.SendTool, rc.ReadTool)
	if err != nil {
		return err
	}
	a.relay = relay.New(client, send, read, rc.AllowedChannels)
	a.relayChannels = rc.AllowedChannels
	slog.Info("Relay ready", "send_tool", send, "read_tool", read, "channels", rc.AllowedChannels)
	return nil
}

func logRelaySchemas(ctx context.Context, client *relay.Client) {
	infos, err := client.ListTools(ctx)
	if err != nil {
		slog.Warn("Relay schema listing failed", "error", err)
		return
	}
	for _, ti := range infos {
		schema, _ := json.Marshal(ti.InputSchema)
		slog.Info("Relay tool", "name", ti.Name, "schema", string(schema))
	}
}

func (a *app) close() {
	if a.relayClient != nil {
		if err := a.relayClient.Close(); err != nil {
			slog.Warn("Relay close failed", "error", err)
		}
	}
}

package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"graddirector/pkg/config"
	"graddirector/pkg/tools/schedule"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterApp(t *testing.T) *app {
	t.Helper()
	cfg := &config.Config{
		Channels: map[string]jsoniter.RawMessage{
			"discord": jsoniter.RawMessage(`{"command": "graddirector-no-such-relay-binary"}`),
		},
	}
	cfg.Tools.CourseSchedule.Path = filepath.Join(t.TempDir(), "schedule.xlsx")
	return &app{cfg: cfg, sys: config.DefaultSystemConfig()}
}

func TestBuildRosterWithoutRelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := rosterApp(t)
	defer a.close()
	require.NoError(t, a.buildRoster(ctx, false))
	assert.Equal(t, []string{schedule.ToolName}, a.registry.Names())
	assert.Nil(t, a.relay)
	assert.Nil(t, a.relayClient)
}

func TestBuildRosterRelayStartFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := rosterApp(t)
	defer a.close()
	assert.Error(t, a.buildRoster(ctx, true))
	assert.Nil(t, a.registry)
}

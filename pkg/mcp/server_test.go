package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/blamethrower/internal/runner"
	"github.com/Sumatoshi-tech/blamethrower/pkg/mcp"
	"github.com/Sumatoshi-tech/blamethrower/pkg/observability"
	"github.com/Sumatoshi-tech/blamethrower/pkg/registry"
)

func newServer(t *testing.T, metrics *observability.REDMetrics) *mcp.Server {
	t.Helper()

	reg, err := registry.Default()
	require.NoError(t, err)

	return mcp.NewServer(mcp.ServerDeps{
		Runner:  runner.New(runner.Deps{Registry: reg}),
		Metrics: metrics,
	})
}

func connect(t *testing.T, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

func resultText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestServer_ListToolNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{mcp.ToolNameList, mcp.ToolNameStats}, newServer(t, nil).ListToolNames())
}

func TestServer_ToolsList(t *testing.T) {
	t.Parallel()

	session := connect(t, newServer(t, nil))

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)

		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	assert.ElementsMatch(t, []string{"blamethrower_stats", "blamethrower_list"}, names)
}

func TestServer_CallStats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bugs := filepath.Join(dir, "bugs.txt")
	blame := filepath.Join(dir, "blame.txt")

	require.NoError(t, os.WriteFile(bugs, []byte("a.py:2: [W0611] Unused import\nb.py:1: [E0602] Undefined\n"), 0o600))
	require.NoError(t, os.WriteFile(blame, []byte(">>> hg blame output for: a.py <<<\nalice\nbob\n"), 0o600))

	reader := sdkmetric.NewManualReader()
	red, err := observability.NewREDMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	session := connect(t, newServer(t, red))

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name: mcp.ToolNameStats,
		Arguments: map[string]any{
			"analyzer": "pylint",
			"bugs":     bugs,
			"repo":     "hg",
			"blame":    blame,
		},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var out mcp.StatsOutput

	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))

	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, 1, out.Summary.Phantoms)
	assert.Equal(t, 1, out.Stats.Authors["bob"].Bugs.Med)
	assert.Equal(t, 1, out.Stats.Unattributed.Bugs.High)
	assert.Equal(t, 3, out.Stats.Overall.Lines)

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.NotEmpty(t, rm.ScopeMetrics)
}

func TestServer_CallStatsErrors(t *testing.T) {
	t.Parallel()

	session := connect(t, newServer(t, nil))

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "no input", args: map[string]any{}, want: "no input"},
		{name: "relative path", args: map[string]any{"analyzer": "pylint", "bugs": "bugs.txt"}, want: "path must be absolute"},
		{name: "stdin", args: map[string]any{"analyzer": "pylint", "bugs": "-"}, want: "stdin"},
		{
			name: "unknown analyzer",
			args: map[string]any{"analyzer": "eslint", "bugs": filepath.Join(t.TempDir(), "x")},
			want: "unknown analyzer",
		},
	}

	for _, tt := range tests {
		result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
			Name: mcp.ToolNameStats, Arguments: tt.args,
		})
		require.NoError(t, err, tt.name)
		assert.True(t, result.IsError, tt.name)
		assert.Contains(t, resultText(t, result), tt.want, tt.name)
	}
}

func TestServer_CallList(t *testing.T) {
	t.Parallel()

	session := connect(t, newServer(t, nil))

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameList,
		Arguments: map[string]any{"kind": "repo"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	var sources []registry.Descriptor

	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &sources))

	names := make([]string, 0, len(sources))
	for _, src := range sources {
		assert.Equal(t, registry.KindRepoReader, src.Kind)

		names = append(names, src.Name)
	}

	assert.Equal(t, []string{"git", "hg"}, names)
}

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
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/analyzers/modkind"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/mcp"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/observability"
)

const testDataset = `{
  "/app/index.js": {
    "importSources": {
      "lodash": {"type": "package entry point", "isEsm": false, "isCjs": true},
      "lodash-es": {"type": "package entry point", "isEsm": true},
      "./util.mjs": {"type": "file", "isEsm": true},
      "./missing": {"type": "file", "unresolved": true}
    }
  }
}`

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

func callTool(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	return result
}

func firstText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok, "expected text content")

	return text.Text
}

func TestServer_ListToolNames(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})

	assert.Equal(t, []string{mcp.ToolNameClassify, mcp.ToolNameCount}, srv.ListToolNames())
}

func TestServer_InMemoryTransport_ToolsList(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	toolsResult, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	assert.ElementsMatch(t, []string{mcp.ToolNameCount, mcp.ToolNameClassify}, names)
}

func TestServer_Count(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte(testDataset), 0o600))

	session := connect(t, mcp.NewServer(mcp.ServerDeps{Workers: 2}))

	result := callTool(t, session, mcp.ToolNameCount, map[string]any{"dataset_path": path})
	require.False(t, result.IsError, firstText(t, result))

	var summary modkind.Summary

	require.NoError(t, json.Unmarshal([]byte(firstText(t, result)), &summary))
	assert.Equal(t, int64(1), summary.Counters.ESMPackageEntryPoints)
	assert.Equal(t, int64(1), summary.Counters.CJSPackageEntryPoints)
	assert.Equal(t, int64(1), summary.Counters.ESMFiles)
	assert.Zero(t, summary.Counters.CJSFiles)
	assert.Equal(t, int64(1), summary.Excluded.Unresolved)
	assert.Equal(t, int64(1), summary.Files)
}

func TestServer_Count_InvalidPath(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "empty", path: "", want: "dataset_path is required"},
		{name: "relative", path: "results.json", want: "absolute path"},
		{name: "missing", path: filepath.Join(t.TempDir(), "nope.json"), want: "does not exist"},
	}

	for _, tt := range tests {
		result := callTool(t, session, mcp.ToolNameCount, map[string]any{"dataset_path": tt.path})
		assert.True(t, result.IsError, tt.name)
		assert.Contains(t, firstText(t, result), tt.want, tt.name)
	}
}

func TestServer_Classify(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	tests := []struct {
		name     string
		args     map[string]any
		bucket   string
		excluded string
	}{
		{
			name:   "entry point defaults to cjs",
			args:   map[string]any{"type": "package entry point"},
			bucket: "cjs_package_entry_point",
		},
		{
			name:   "esm file",
			args:   map[string]any{"type": "file", "is_esm": true},
			bucket: "esm_file",
		},
		{
			name:   "corroborated cjs deep import",
			args:   map[string]any{"type": "package deep import", "is_esm": false, "is_cjs": true},
			bucket: "cjs_package_deep_import",
		},
		{
			name:     "indeterminate file",
			args:     map[string]any{"type": "file"},
			bucket:   "none",
			excluded: "indeterminate module kind",
		},
		{
			name:     "unresolved",
			args:     map[string]any{"type": "file", "is_esm": true, "unresolved": true},
			bucket:   "none",
			excluded: "unresolved",
		},
		{
			name:     "legacy package without alias",
			args:     map[string]any{"type": "package", "is_esm": true},
			bucket:   "none",
			excluded: "unrecognized type",
		},
		{
			name:   "legacy package with alias",
			args:   map[string]any{"type": "package", "is_esm": true, "legacy_package_alias": true},
			bucket: "esm_package_entry_point",
		},
	}

	for _, tt := range tests {
		result := callTool(t, session, mcp.ToolNameClassify, tt.args)
		require.False(t, result.IsError, tt.name)

		var got mcp.ClassifyResult
		require.NoError(t, json.Unmarshal([]byte(firstText(t, result)), &got), tt.name)
		assert.Equal(t, tt.bucket, got.Bucket, tt.name)
		assert.Equal(t, tt.excluded, got.Excluded, tt.name)
		assert.Equal(t, tt.excluded == "", got.Counted, tt.name)
	}
}

func TestServer_Classify_EmptyType(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result := callTool(t, session, mcp.ToolNameClassify, map[string]any{"type": ""})
	assert.True(t, result.IsError)
	assert.Contains(t, firstText(t, result), "type is required")
}

func TestServer_ToolCallsAreTracedAndMeasured(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	session := connect(t, mcp.NewServer(mcp.ServerDeps{Tracer: tp.Tracer("test"), Metrics: red}))

	result := callTool(t, session, mcp.ToolNameClassify, map[string]any{"type": "file", "is_esm": true})
	require.False(t, result.IsError)
	require.Len(t, result.Content, 2)

	traceText, ok := result.Content[1].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, traceText.Text, "trace_id=")

	result = callTool(t, session, mcp.ToolNameCount, map[string]any{"dataset_path": "relative.json"})
	assert.True(t, result.IsError)

	names := make([]string, 0, 2)
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}

	assert.ElementsMatch(t, []string{"mcp." + mcp.ToolNameClassify, "mcp." + mcp.ToolNameCount}, names)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := make(map[string]bool)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
		}
	}

	assert.True(t, found["esmstat.requests.total"])
	assert.True(t, found["esmstat.errors.total"])
}

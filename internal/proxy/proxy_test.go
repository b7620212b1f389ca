package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorbridge/cli/internal/bridge"
	"vendorbridge/cli/internal/bridge/model"
	"vendorbridge/cli/internal/session"
	"vendorbridge/cli/internal/vendor"
)

var resource = model.Resource{Name: "mongodb", Args: map[string]any{"project": "demo"}}

type fakeBridge struct {
	mu        sync.Mutex
	list      model.Envelope
	call      model.Envelope
	submit    model.Envelope
	submitted [][]model.Outcome
	calls     int
}

func (b *fakeBridge) ListTools(context.Context, model.Resource) model.Envelope { return b.list }

func (b *fakeBridge) CallTool(context.Context, model.Resource, string, map[string]any) model.Envelope {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return b.call
}

func (b *fakeBridge) SubmitVendorResults(_ context.Context, _ model.Resource, _ string, _ map[string]any, results []model.Outcome) model.Envelope {
	b.mu.Lock()
	b.submitted = append(b.submitted, results)
	b.mu.Unlock()
	return b.submit
}

func (b *fakeBridge) HealthCheck(context.Context) bool { return true }

type fakeExecutor struct {
	got []model.VendorInstruction
}

func (e *fakeExecutor) Run(_ context.Context, ins []model.VendorInstruction) []model.Outcome {
	e.got = append(e.got, ins...)
	out := make([]model.Outcome, len(ins))
	for i, in := range ins {
		if in.Operation == "fail" {
			out[i] = model.ErrorOutcome{Error: "boom"}
			continue
		}
		out[i] = map[string]any{"op": in.Operation}
	}
	return out
}

func TestListTools(t *testing.T) {
	b := &fakeBridge{list: model.Envelope{Success: true, Tools: []model.ToolDescriptor{{Name: "find", Description: "Find documents"}}}}
	p := New(b, &fakeExecutor{}, resource, nil)

	tools := p.ListTools(context.Background())
	require.Len(t, tools, 1)
	assert.Equal(t, "find", tools[0].Name)
}

func TestListToolsDegradesToEmpty(t *testing.T) {
	p := New(&fakeBridge{list: model.Failure("HTTP 503: Service Unavailable")}, &fakeExecutor{}, resource, nil)

	tools := p.ListTools(context.Background())
	assert.NotNil(t, tools)
	assert.Empty(t, tools)
}

func TestCallToolDirectResult(t *testing.T) {
	b := &fakeBridge{call: model.Envelope{Success: true, Result: json.RawMessage(`{"count":3}`)}}
	exec := &fakeExecutor{}
	p := New(b, exec, resource, nil)

	res := p.CallTool(context.Background(), "count", nil)

	assert.False(t, res.IsError)
	assert.Equal(t, "{\n  \"count\": 3\n}", res.Text)
	assert.Empty(t, exec.got)
	assert.Empty(t, b.submitted)
}

func TestCallToolVendorRoundTrip(t *testing.T) {
	ins := []model.VendorInstruction{
		{Type: "mongodb", Operation: "find", ConnectionIdentity: "mongodb://localhost/shop"},
		{Type: "mongodb", Operation: "fail", ConnectionIdentity: "mongodb://localhost/shop"},
		{Type: "mongodb", Operation: "count", ConnectionIdentity: "mongodb://localhost/shop"},
	}
	b := &fakeBridge{
		call:   model.Envelope{Success: true, VendorInstructions: ins},
		submit: model.Envelope{Success: true, Result: json.RawMessage(`"3 documents"`)},
	}
	exec := &fakeExecutor{}
	p := New(b, exec, resource, nil)

	res := p.CallTool(context.Background(), "find", map[string]any{"collection": "orders"})

	assert.False(t, res.IsError)
	assert.Equal(t, "3 documents", res.Text)
	assert.Equal(t, ins, exec.got)
	require.Len(t, b.submitted, 1)
	assert.Equal(t, []model.Outcome{
		map[string]any{"op": "find"},
		model.ErrorOutcome{Error: "boom"},
		map[string]any{"op": "count"},
	}, b.submitted[0])
}

func TestCallToolErrors(t *testing.T) {
	t.Run("call failure", func(t *testing.T) {
		p := New(&fakeBridge{call: model.Failure("HTTP 500: Internal Server Error")}, &fakeExecutor{}, resource, nil)
		res := p.CallTool(context.Background(), "find", nil)
		assert.True(t, res.IsError)
		assert.Equal(t, "Error: HTTP 500: Internal Server Error", res.Text)
	})

	t.Run("submit failure", func(t *testing.T) {
		b := &fakeBridge{
			call:   model.Envelope{Success: true, VendorInstructions: []model.VendorInstruction{{Type: "http", Operation: "request"}}},
			submit: model.Failure("tool state expired"),
		}
		res := New(b, &fakeExecutor{}, resource, nil).CallTool(context.Background(), "find", nil)
		assert.True(t, res.IsError)
		assert.Equal(t, "Error processing vendor results: tool state expired", res.Text)
	})
}

func TestTool(t *testing.T) {
	tool := Tool(model.ToolDescriptor{
		Name:        "find",
		Description: "Find documents",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"collection":{"type":"string"}}}`),
	})
	assert.Equal(t, "find", tool.Name)
	schema := tool.InputSchema.(map[string]any)
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema["properties"], "collection")

	for _, raw := range []string{"", "null", "[1]"} {
		tool = Tool(model.ToolDescriptor{Name: "x", InputSchema: json.RawMessage(raw)})
		assert.Equal(t, map[string]any{"type": "object"}, tool.InputSchema, raw)
	}
}

// orchestrator answers tools/call with one http instruction and echoes the
// submitted outcomes back as the final result.
func orchestrator(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/tools/list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"tools":[{"name":"clusters","description":"List clusters","inputSchema":{"type":"object"}}]}`))
	})
	mux.HandleFunc("/tools/call", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"vendorInstructions":[{"type":"http","operation":"atlasApiCall","parameters":{"toolName":"clusters"}}]}`))
	})
	mux.HandleFunc("/vendor/results", func(w http.ResponseWriter, r *http.Request) {
		var body model.VendorResultsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		out, _ := json.Marshal(map[string]any{"success": true, "result": body.VendorResults})
		_, _ = w.Write(out)
	})
	return httptest.NewServer(mux)
}

func TestEndToEndOverHTTP(t *testing.T) {
	srv := orchestrator(t)
	defer srv.Close()

	p := New(bridge.New(srv.URL), vendor.New(session.NewRegistry()), resource, nil)
	res := p.CallTool(context.Background(), "clusters", nil)

	require.False(t, res.IsError, res.Text)
	assert.Contains(t, res.Text, "Atlas API call: clusters - not yet implemented in client")
}

func TestServerOverMCP(t *testing.T) {
	srv := orchestrator(t)
	defer srv.Close()
	ctx := context.Background()

	p := New(bridge.New(srv.URL), vendor.New(session.NewRegistry()), resource, nil)
	server := NewServer(p, "vendorbridge", "test", nil)

	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := server.MCP().Connect(ctx, serverT, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "agent", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	defer cs.Close()

	list, err := cs.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, list.Tools, 1)
	assert.Equal(t, "clusters", list.Tools[0].Name)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "clusters", Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "not yet implemented in client")
}

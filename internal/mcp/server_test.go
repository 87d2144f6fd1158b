package mcp

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/clusterboard/pkg/rank"
)

func samplePayload(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/sample_payload.json")
	require.NoError(t, err)
	return string(data)
}

func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()

	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
	})
	require.NoError(t, err)

	respBytes, err := json.Marshal(srv.HandleMessage(context.Background(), msg))
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &resp), string(respBytes))
	require.Nil(t, resp.Error, string(respBytes))

	result := &mcplib.CallToolResult{IsError: resp.Result.IsError}
	for _, c := range resp.Result.Content {
		if c.Type == "text" {
			result.Content = append(result.Content, mcplib.NewTextContent(c.Text))
		}
	}
	return result
}

func textOf(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestRankTool(t *testing.T) {
	srv := NewServer(ServerConfig{})

	var out struct {
		Mode     string `json:"mode"`
		Clusters []struct {
			ID      int    `json:"id"`
			Tier    string `json:"tier"`
			Display string `json:"display"`
			Visible bool   `json:"visible"`
		} `json:"clusters"`
	}

	result := callTool(t, srv, "clusters_rank", map[string]any{"payload": samplePayload(t)})
	require.False(t, result.IsError, textOf(t, result))
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &out))
	assert.Equal(t, "points", out.Mode)
	require.Len(t, out.Clusters, 8)
	assert.Equal(t, 5, out.Clusters[0].ID)
	assert.Equal(t, "high", out.Clusters[0].Tier)

	result = callTool(t, srv, "clusters_rank", map[string]any{"payload": samplePayload(t), "mode": "non-zero"})
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &out))
	last := out.Clusters[len(out.Clusters)-1]
	assert.Equal(t, 18, last.ID)
	assert.False(t, last.Visible)
	assert.Equal(t, "0.000", last.Display)

	result = callTool(t, srv, "clusters_rank", map[string]any{"payload": samplePayload(t), "mode": "alpha"})
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "invalid mode")
}

func TestTopTool(t *testing.T) {
	srv := NewServer(ServerConfig{})

	var out struct {
		Highlights []struct {
			Rank int `json:"rank"`
			ID   int `json:"id"`
		} `json:"highlights"`
	}
	result := callTool(t, srv, "clusters_top", map[string]any{"payload": samplePayload(t)})
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &out))
	require.Len(t, out.Highlights, 3)
	assert.Equal(t, []int{5, 7, 2}, []int{out.Highlights[0].ID, out.Highlights[1].ID, out.Highlights[2].ID})

	// n larger than the scoring set never pads with zero-point clusters
	result = callTool(t, srv, "clusters_top", map[string]any{"payload": samplePayload(t), "n": 20})
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &out))
	assert.Len(t, out.Highlights, 7)
}

func toolDescription(t *testing.T, srv *server.MCPServer, name string) string {
	t.Helper()
	msg := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	respBytes, err := json.Marshal(srv.HandleMessage(context.Background(), msg))
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Tools []struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &resp), string(respBytes))
	for _, tool := range resp.Result.Tools {
		if tool.Name == name {
			return tool.Description
		}
	}
	t.Fatalf("tool %s not listed", name)
	return ""
}

func TestTopToolDescribesZeroPolicy(t *testing.T) {
	desc := toolDescription(t, NewServer(ServerConfig{}), "clusters_top")
	assert.Contains(t, desc, "never highlighted")

	srv := NewServer(ServerConfig{Highlights: rank.TopOptions{IncludeZero: true}})
	desc = toolDescription(t, srv, "clusters_top")
	assert.NotContains(t, desc, "never highlighted")
	assert.Contains(t, desc, "fill any remaining slots")

	var out struct {
		Highlights []struct {
			ID int `json:"id"`
		} `json:"highlights"`
	}
	result := callTool(t, srv, "clusters_top", map[string]any{"payload": samplePayload(t), "n": 20})
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &out))
	require.Len(t, out.Highlights, 8)
	assert.Equal(t, 18, out.Highlights[7].ID)
}

func TestDetailTool(t *testing.T) {
	srv := NewServer(ServerConfig{})

	var out struct {
		Detail struct {
			Items []struct {
				Subject string `json:"subject"`
				Badge   string `json:"badge"`
			} `json:"items"`
			Total       int `json:"total"`
			Denominator int `json:"denominator"`
		} `json:"detail"`
	}
	result := callTool(t, srv, "cluster_detail", map[string]any{"payload": samplePayload(t), "id": 5})
	require.False(t, result.IsError, textOf(t, result))
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &out))
	assert.Equal(t, 44, out.Detail.Total)
	assert.Equal(t, 48, out.Detail.Denominator)
	require.Len(t, out.Detail.Items, 4)
	assert.Equal(t, "A", out.Detail.Items[0].Badge)

	result = callTool(t, srv, "cluster_detail", map[string]any{"payload": samplePayload(t), "id": 0})
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &out))
	assert.Equal(t, 71, out.Detail.Total)
	assert.Equal(t, 84, out.Detail.Denominator)

	var zero struct {
		Cluster struct {
			Failures []string `json:"failures"`
		} `json:"cluster"`
	}
	result = callTool(t, srv, "cluster_detail", map[string]any{"payload": samplePayload(t), "id": 18})
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &zero))
	assert.Equal(t, []string{"Requirement 1: Could not satisfy ['music']"}, zero.Cluster.Failures)

	result = callTool(t, srv, "cluster_detail", map[string]any{"payload": samplePayload(t), "id": 4})
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "cluster not found")
}

func TestPayloadErrors(t *testing.T) {
	srv := NewServer(ServerConfig{})

	result := callTool(t, srv, "clusters_top", map[string]any{})
	assert.True(t, result.IsError)
	assert.Equal(t, "payload is required", textOf(t, result))

	result = callTool(t, srv, "clusters_top", map[string]any{"payload": "{"})
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "invalid payload")

	result = callTool(t, srv, "clusters_top", map[string]any{"payload": `{"success":true,"results":{}}`})
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "nothing to rank")

	result = callTool(t, srv, "clusters_top", map[string]any{"payload": `{"success":false,"error":"Payment required"}`})
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "Payment required")
}

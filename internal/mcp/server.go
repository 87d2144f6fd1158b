// Package mcp exposes ranking as Model Context Protocol tools. Each tool
// takes a scoring payload as a JSON string and answers with JSON text.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/elonfeng/clusterboard/pkg/cluster"
	"github.com/elonfeng/clusterboard/pkg/rank"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Version     string // version string for MCP server info
	DefaultSort rank.SortMode
	Highlights  rank.TopOptions
}

// NewServer creates an MCP server with the ranking tools registered.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	if cfg.DefaultSort == "" {
		cfg.DefaultSort = rank.ModePoints
	}

	s := server.NewMCPServer(
		"clusterboard",
		ver,
		server.WithToolCapabilities(false),
	)

	registerRankTool(s, cfg.DefaultSort)
	registerTopTool(s, cfg.Highlights)
	registerDetailTool(s)
	return s
}

// Serve runs the server over stdio until stdin closes.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func registerRankTool(s *server.MCPServer, defaultSort rank.SortMode) {
	tool := mcp.NewTool("clusters_rank",
		mcp.WithDescription("Order the clusters of a scoring payload. Returns every cluster with its tier, display text and visibility under the chosen mode."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("payload",
			mcp.Required(),
			mcp.Description("Scoring service response as a JSON string"),
		),
		mcp.WithString("mode",
			mcp.Description(fmt.Sprintf("Sort mode (default: %s)", defaultSort)),
			mcp.Enum("number", "points", "non-zero"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, errResult := boardFrom(req)
		if errResult != nil {
			return errResult, nil
		}

		mode := defaultSort
		if modeStr, err := req.RequireString("mode"); err == nil && modeStr != "" {
			if mode, err = rank.ParseMode(modeStr); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid mode: %v", err)), nil
			}
		}

		view, err := b.Order(mode)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"result_id": b.ID(),
			"mode":      view.Mode,
			"clusters":  view.Rows(),
			"warning":   b.Warning(),
		})
	})
}

func registerTopTool(s *server.MCPServer, defaults rank.TopOptions) {
	tool := mcp.NewTool("clusters_top",
		mcp.WithDescription(topDescription(defaults)),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("payload",
			mcp.Required(),
			mcp.Description("Scoring service response as a JSON string"),
		),
		mcp.WithNumber("n",
			mcp.Description("Number of clusters to return (default: 3, max: 20)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, errResult := boardFrom(req)
		if errResult != nil {
			return errResult, nil
		}

		opts := defaults
		if n, err := req.RequireFloat("n"); err == nil {
			opts.N = min(int(n), cluster.MaxID)
		}

		top := b.Highlights(opts)
		type highlight struct {
			Rank int `json:"rank"`
			rank.Row
		}
		data := make([]highlight, len(top))
		for i, h := range top {
			data[i] = highlight{Rank: h.Rank, Row: rank.RowOf(h.Cluster, true)}
		}
		return jsonResult(map[string]any{
			"result_id":  b.ID(),
			"highlights": data,
		})
	})
}

func topDescription(opts rank.TopOptions) string {
	desc := "Return the highest-scoring clusters of a scoring payload, best first."
	if opts.IncludeZero {
		return desc + " Clusters with zero points fill any remaining slots."
	}
	return desc + " Clusters with zero points are never highlighted."
}

func registerDetailTool(s *server.MCPServer) {
	tool := mcp.NewTool("cluster_detail",
		mcp.WithDescription("Show the subjects that make up one cluster's score, with grade badges and the total out of 48. Use id 0 for the best-7 aggregate out of 84."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("payload",
			mcp.Required(),
			mcp.Description("Scoring service response as a JSON string"),
		),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Cluster number 1-20, or 0 for the aggregate"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, errResult := boardFrom(req)
		if errResult != nil {
			return errResult, nil
		}

		idVal, err := req.RequireFloat("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		id := int(idVal)
		if id == 0 {
			return jsonResult(map[string]any{
				"aggregate_points": b.Aggregate().AggregatePoints,
				"detail":           b.AggregateDetail(),
				"method":           b.Method(),
			})
		}

		d, err := b.SelectCluster(id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(d)
	})
}

// boardFrom decodes the payload argument. A non-nil result is the error
// to hand back to the caller.
func boardFrom(req mcp.CallToolRequest) (*rank.Board, *mcp.CallToolResult) {
	raw, err := req.RequireString("payload")
	if err != nil {
		return nil, mcp.NewToolResultError("payload is required")
	}
	p, err := cluster.DecodePayload(strings.NewReader(raw))
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("invalid payload: %v", err))
	}
	b, err := rank.NewBoard(p)
	switch {
	case errors.Is(err, cluster.ErrEmptyResult):
		return nil, mcp.NewToolResultError(fmt.Sprintf("nothing to rank: %v", err))
	case err != nil:
		return nil, mcp.NewToolResultError(err.Error())
	}
	return b, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

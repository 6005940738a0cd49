package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	tinylisp "github.com/komamitsu/tinylisp/core"
)

type tools struct {
	client *tinylisp.Client
}

// formatResult turns a server response into an MCP tool result.
func formatResult(resp map[string]any) (*mcp.CallToolResult, error) {
	ok, _ := resp["ok"].(bool)
	if !ok {
		errMsg, _ := resp["error"].(string)
		if errMsg == "" {
			errMsg = "unknown error"
		}
		return mcp.NewToolResultError(errMsg), nil
	}
	if s, isString := resp["value"].(string); isString {
		return mcp.NewToolResultText(s), nil
	}
	out, err := json.MarshalIndent(resp["value"], "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (t *tools) forward(req map[string]any) (*mcp.CallToolResult, error) {
	resp, err := t.client.Call(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func (t *tools) handleEval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := request.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return t.forward(map[string]any{"op": "eval", "expr": expr})
}

func (t *tools) handleBindings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.forward(map[string]any{"op": "bindings"})
}

func (t *tools) handleTraces(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := map[string]any{"op": "traces"}
	if n := request.GetInt("n", -1); n >= 0 {
		req["n"] = n
	}
	return t.forward(req)
}

func (t *tools) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.forward(map[string]any{"op": "reset"})
}

func newMCPServer(t *tools) *server.MCPServer {
	s := server.NewMCPServer(
		"tinylisp",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool("tinylisp_eval",
			mcp.WithDescription("Evaluate one tinylisp form. Bindings made with setq persist between calls."),
			mcp.WithString("expr",
				mcp.Required(),
				mcp.Description("S-expression to evaluate, e.g. (+ 1 2) or (setq sq (lambda (n) (* n n)))"),
			),
		),
		t.handleEval,
	)

	s.AddTool(
		mcp.NewTool("tinylisp_bindings",
			mcp.WithDescription("List every visible binding as name/value pairs."),
		),
		t.handleBindings,
	)

	s.AddTool(
		mcp.NewTool("tinylisp_traces",
			mcp.WithDescription("Show recent evaluations with their results, errors and timings."),
			mcp.WithNumber("n",
				mcp.Description("Number of most recent traces to return (default: all)"),
			),
		),
		t.handleTraces,
	)

	s.AddTool(
		mcp.NewTool("tinylisp_reset",
			mcp.WithDescription("Drop all bindings, traces and journal entries."),
		),
		t.handleReset,
	)

	return s
}

func main() {
	sockPath := os.Getenv("TINYLISP_SOCK")
	if sockPath == "" {
		sockPath = "/tmp/tinylisp.sock"
	}

	client, err := tinylisp.Dial(sockPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer client.Close()
	log.Printf("connected to tinylisp server: %s", sockPath)

	if err := server.ServeStdio(newMCPServer(&tools{client: client})); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

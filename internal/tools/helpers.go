// Package tools implements the MCP tool handlers for agentflow.
//
// Each tool is a struct with its dependencies (the tracker engine, the
// event queue) injected via constructor; Definition() returns the
// mcp.Tool schema and Handle() processes the request. One file per
// entity area.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/agentflow/internal/tracker"
)

// intArg extracts an integer argument, returning defaultVal if the key
// is missing or not a number (JSON numbers arrive as float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// stringSliceArg extracts a string-array argument. Returns (nil, false)
// when the key is absent, and a non-nil empty slice for an explicit
// empty array — callers use the distinction for clear-vs-unchanged.
func stringSliceArg(req mcp.CallToolRequest, key string) ([]string, bool) {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return nil, false
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// mapArg extracts an object argument, or nil when absent.
func mapArg(req mcp.CallToolRequest, key string) map[string]any {
	v, _ := req.GetArguments()[key].(map[string]any)
	return v
}

// optionalString returns a pointer to the argument's value when the key
// is present, nil otherwise. Distinguishes "not sent" from "sent empty"
// for partial updates.
func optionalString(req mcp.CallToolRequest, key string) *string {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	return &s
}

// jsonResult marshals a payload as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// engineError converts a tracker error into a tool error result.
// Typed engine failures become in-band tool errors the calling agent
// can read and react to; storage and unexpected failures propagate as
// protocol errors instead.
func engineError(err error) (*mcp.CallToolResult, error) {
	var te *tracker.Error
	if errors.As(err, &te) && te.Kind != tracker.ErrStorage {
		return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", te.Kind, te.Message)), nil
	}
	return nil, err
}

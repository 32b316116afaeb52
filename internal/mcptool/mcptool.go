// Package mcptool exposes the controller's state to the agent over the Model
// Context Protocol. This is the agent-facing path for reading session status
// and appending learned guardrails.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/toddgeist/ralph-wiggum-cursor/pkg/budget"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/guardrail"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/state"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/thrash"
)

// MCPServer wraps the workspace state stores behind MCP tools.
type MCPServer struct {
	store      *state.Store
	tracker    *budget.Tracker
	detector   *thrash.Detector
	guardrails *guardrail.Store
	server     *server.MCPServer
}

// NewMCPServer creates an MCP server over the workspace's state.
func NewMCPServer(store *state.Store, tracker *budget.Tracker, detector *thrash.Detector, guardrails *guardrail.Store) *MCPServer {
	s := &MCPServer{
		store:      store,
		tracker:    tracker,
		detector:   detector,
		guardrails: guardrails,
	}

	mcpServer := server.NewMCPServer(
		"ralph",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.server = mcpServer
	return s
}

// registerTools registers all MCP tools with the server.
func (s *MCPServer) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("status",
			mcp.WithDescription("Get the current iteration session status: iteration number, lifecycle status, gutter risk, and last test outcome."),
		),
		s.handleStatus,
	)

	mcpServer.AddTool(
		mcp.NewTool("budget",
			mcp.WithDescription("Get the context-budget status: allocated token estimate against the warn/critical thresholds."),
		),
		s.handleBudget,
	)

	mcpServer.AddTool(
		mcp.NewTool("failures",
			mcp.WithDescription("List journaled failure records (file thrashing, repeated command failures)."),
		),
		s.handleFailures,
	)

	mcpServer.AddTool(
		mcp.NewTool("guardrails",
			mcp.WithDescription("List the guardrail rules injected into every iteration."),
		),
		s.handleGuardrails,
	)

	mcpServer.AddTool(
		mcp.NewTool("add_guardrail",
			mcp.WithDescription("Append a learned guardrail so future iterations avoid a failure you just hit. Learned guardrails are never removed."),
			mcp.WithString("trigger",
				mcp.Required(),
				mcp.Description("The situation that should trigger the rule (e.g. 'editing generated files')"),
			),
			mcp.WithString("instruction",
				mcp.Required(),
				mcp.Description("What to do instead when the trigger is observed"),
			),
			mcp.WithString("added_after",
				mcp.Description("Provenance note: the failure this rule was learned from"),
			),
		),
		s.handleAddGuardrail,
	)
}

// handleStatus handles the status tool.
func (s *MCPServer) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.store.Load()

	risk, err := s.detector.Risk()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("gutter risk failed: %v", err)), nil
	}

	result := map[string]any{
		"iteration":   st.Iteration,
		"status":      st.Status.String(),
		"started_at":  st.StartedAt.Format("2006-01-02 15:04:05"),
		"gutter_risk": risk.String(),
	}
	if last := s.store.LoadLastTest(); last != nil {
		result["last_test"] = map[string]any{
			"exit_code": last.ExitCode,
			"timed_out": last.TimedOut,
		}
	}

	return jsonResult(result)
}

// handleBudget handles the budget tool.
func (s *MCPServer) handleBudget(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	allocated, err := s.tracker.Allocated()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("budget read failed: %v", err)), nil
	}
	status, err := s.tracker.Status()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("budget status failed: %v", err)), nil
	}

	thresholds := s.tracker.Thresholds()
	return jsonResult(map[string]any{
		"allocated_tokens": allocated,
		"capacity_tokens":  thresholds.CapacityTokens,
		"warn_tokens":      thresholds.WarnTokens(),
		"critical_tokens":  thresholds.CriticalTokens(),
		"status":           status.String(),
	})
}

// handleFailures handles the failures tool.
func (s *MCPServer) handleFailures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	failures, err := s.detector.Failures()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read failures failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"failures": failures,
		"total":    len(failures),
	})
}

// handleGuardrails handles the guardrails tool.
func (s *MCPServer) handleGuardrails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set := s.guardrails.Load()
	return jsonResult(map[string]any{
		"core":    set.Core,
		"learned": set.Learned,
	})
}

// handleAddGuardrail handles the add_guardrail tool.
func (s *MCPServer) handleAddGuardrail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trigger := request.GetString("trigger", "")
	if trigger == "" {
		return mcp.NewToolResultError("trigger parameter is required"), nil
	}
	instruction := request.GetString("instruction", "")
	if instruction == "" {
		return mcp.NewToolResultError("instruction parameter is required"), nil
	}

	g := guardrail.Guardrail{
		Trigger:     trigger,
		Instruction: instruction,
		AddedAfter:  request.GetString("added_after", ""),
	}
	if err := s.guardrails.Append(g); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("append guardrail failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Guardrail added. When %s: %s", g.Trigger, g.Instruction)), nil
}

// ServeStdio starts the MCP server on stdio.
func (s *MCPServer) ServeStdio() error {
	return server.ServeStdio(s.server)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

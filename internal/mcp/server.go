// Package mcp exposes the orchestrator's query surface as Model Context
// Protocol tools so MCP clients can list, run and inspect workflows.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	json "github.com/goccy/go-json"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// Engine is the subset of the orchestrator the MCP tools call.
type Engine interface {
	ListWorkflows() []models.WorkflowSummary
	ListAgents() []models.AgentInfo
	ExecuteWorkflow(ctx context.Context, name string, runContext map[string]any) (models.RunResult, error)
	GetWorkflowStatus(id string) (*models.WorkflowRun, error)
	GetActiveWorkflows() []*models.WorkflowRun
	GetWorkflowHistory(limit int) []*models.WorkflowRun
}

// Server wraps the mcp-go server with the orchestrator tools registered.
type Server struct {
	mcpServer *mcpserver.MCPServer
	engine    Engine
	logger    *slog.Logger
}

// New creates an MCP server backed by engine.
func New(engine Engine, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{engine: engine, logger: logger}
	s.mcpServer = mcpserver.NewMCPServer(
		"maestro",
		version,
		mcpserver.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("list_workflows",
			mcplib.WithDescription("List the workflow definitions in the catalog"),
			mcplib.WithReadOnlyHintAnnotation(true),
		),
		s.handleListWorkflows,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("list_agents",
			mcplib.WithDescription("List registered agents with their status and methods"),
			mcplib.WithReadOnlyHintAnnotation(true),
		),
		s.handleListAgents,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("execute_workflow",
			mcplib.WithDescription("Run a workflow to completion and return its step results"),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithString("name",
				mcplib.Description("Workflow name as shown by list_workflows"),
				mcplib.Required(),
			),
			mcplib.WithObject("context",
				mcplib.Description("Run context passed to every step"),
			),
		),
		s.handleExecuteWorkflow,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("workflow_status",
			mcplib.WithDescription("Get an active or recently finished run by id"),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("id",
				mcplib.Description("Run id returned by execute_workflow"),
				mcplib.Required(),
			),
		),
		s.handleWorkflowStatus,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("active_workflows",
			mcplib.WithDescription("List runs that are still executing"),
			mcplib.WithReadOnlyHintAnnotation(true),
		),
		s.handleActiveWorkflows,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("workflow_history",
			mcplib.WithDescription("List finished runs, most recent first"),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum runs to return, 0 for all retained runs"),
				mcplib.Min(0),
				mcplib.DefaultNumber(10),
			),
		),
		s.handleWorkflowHistory,
	)
}

func (s *Server) handleListWorkflows(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return jsonResult(map[string]any{"workflows": s.engine.ListWorkflows()})
}

func (s *Server) handleListAgents(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return jsonResult(map[string]any{"agents": s.engine.ListAgents()})
}

func (s *Server) handleExecuteWorkflow(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return errorResult("name is required"), nil
	}

	var runContext map[string]any
	if raw, ok := request.GetArguments()["context"]; ok && raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			return errorResult("context must be an object"), nil
		}
		runContext = m
	}

	s.logger.Info("mcp execute_workflow", "workflow", name)
	res, err := s.engine.ExecuteWorkflow(ctx, name, runContext)
	if err != nil {
		if errors.Is(err, models.ErrWorkflowNotFound) {
			return errorResult(fmt.Sprintf("workflow not found: %s", name)), nil
		}
		return errorResult(fmt.Sprintf("execute failed: %v", err)), nil
	}
	return jsonResult(res)
}

func (s *Server) handleWorkflowStatus(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id := request.GetString("id", "")
	if id == "" {
		return errorResult("id is required"), nil
	}
	run, err := s.engine.GetWorkflowStatus(id)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(run)
}

func (s *Server) handleActiveWorkflows(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return jsonResult(map[string]any{"runs": s.engine.GetActiveWorkflows()})
}

func (s *Server) handleWorkflowHistory(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	limit := request.GetInt("limit", 10)
	if limit < 0 {
		limit = 0
	}
	return jsonResult(map[string]any{"runs": s.engine.GetWorkflowHistory(limit)})
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes instance facts to LLM agents via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/arnstad/hugin/internal/factservice"
)

// Server wraps the MCP server with fact tools.
type Server struct {
	mcp *server.MCPServer
	svc *factservice.Service
}

// New creates a new MCP server with all fact tools registered.
func New(svc *factservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Hugin",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_facts",
		mcp.WithDescription("List all instance facts, optionally filtered by a name substring."),
		mcp.WithString("filter", mcp.Description("Optional substring to filter fact names by")),
	), s.listFacts)

	s.mcp.AddTool(mcp.NewTool("get_fact",
		mcp.WithDescription("Return the value of a single instance fact (e.g. ec2_instance_id)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Fact name")),
	), s.getFact)

	s.mcp.AddTool(mcp.NewTool("refresh_facts",
		mcp.WithDescription("Crawl the instance metadata service now and update the fact table."),
	), s.refreshFacts)

	// Resource: the full fact table as JSON.
	s.mcp.AddResource(
		mcp.NewResource("hugin://facts", "Instance Facts",
			mcp.WithResourceDescription("The complete flat fact table from the last refresh."),
			mcp.WithMIMEType("application/json"),
		),
		s.readFactsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listFacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := req.GetString("filter", "")

	facts, err := s.svc.Table(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	names := make([]string, 0, len(facts))
	for name := range facts {
		if filter == "" || strings.Contains(name, filter) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s=%s\n", name, facts[name])
	}
	if b.Len() == 0 {
		return mcp.NewToolResultText("no facts available"), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getFact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := s.svc.Get(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(value), nil
}

func (s *Server) refreshFacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Refresh(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readFactsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	facts, err := s.svc.Table(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "hugin://facts",
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the organization engine's tools to the local LLM client via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starkad/ordna/internal/engine"
)

// Server wraps the MCP server with Ordna tools.
type Server struct {
	mcp *server.MCPServer
	eng *engine.Engine
}

// New creates a new MCP server with all Ordna tools registered.
func New(eng *engine.Engine) *Server {
	s := &Server{eng: eng}

	s.mcp = server.NewMCPServer(
		"Ordna",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_knowledge",
		mcp.WithDescription("Rank ingested knowledge items by relevance to a free-text query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("chat_id", mcp.Description("Optional chat scope; chat-scoped items of other chats are excluded")),
	), s.searchKnowledge)

	s.mcp.AddTool(mcp.NewTool("get_active_suggestion",
		mcp.WithDescription("Return the currently surfaced organization suggestion for a conversation, if any."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation to inspect")),
	), s.getActiveSuggestion)

	s.mcp.AddTool(mcp.NewTool("respond_suggestion",
		mcp.WithDescription("Accept or dismiss the active organization suggestion on behalf of the user."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation the suggestion belongs to")),
		mcp.WithString("suggestion_id", mcp.Required(), mcp.Description("ID of the active suggestion")),
		mcp.WithBoolean("accept", mcp.Required(), mcp.Description("true to accept, false to dismiss")),
	), s.respondSuggestion)

	s.mcp.AddTool(mcp.NewTool("organize_now",
		mcp.WithDescription("Run an analysis pass on a conversation immediately. Works even after the conversation has been organized."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation to analyze")),
	), s.organizeNow)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List all persisted projects."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("ingest_file",
		mcp.WithDescription("Ingest a local file as a knowledge item."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the source file")),
		mcp.WithString("chat_id", mcp.Description("Owning chat for chat-scoped ingestion")),
	), s.ingestFile)

	// Resource: suggestion taxonomy.
	s.mcp.AddResource(
		mcp.NewResource("ordna://suggestion-types", "Suggestion Taxonomy",
			mcp.WithResourceDescription("The organization suggestion types Ordna can surface and what accepting each one does."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSuggestionTypesResource,
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

func (s *Server) searchKnowledge(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chatID := ""
	if v, chatErr := req.RequireString("chat_id"); chatErr == nil {
		chatID = v
	}
	results := s.eng.SearchKnowledge(query, chatID)
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getActiveSuggestion(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	convID, err := req.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sugg := s.eng.ActiveSuggestion(convID)
	if sugg == nil {
		return mcp.NewToolResultText("no active suggestion"), nil
	}
	out, _ := json.MarshalIndent(sugg, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) respondSuggestion(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	convID, err := req.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	suggID, err := req.RequireString("suggestion_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	accept, err := req.RequireBool("accept")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, respErr := s.eng.RespondSuggestion(convID, suggID, accept)
	if respErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("no such active suggestion: %s", suggID)), nil
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) organizeNow(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	convID, err := req.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	insight, anaErr := s.eng.Analyze(convID)
	if anaErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", convID)), nil
	}
	out, _ := json.MarshalIndent(insight, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listProjects(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects := s.eng.Projects()
	if len(projects) == 0 {
		return mcp.NewToolResultText("no projects"), nil
	}
	var lines []string
	for _, p := range projects {
		lines = append(lines, fmt.Sprintf("%s\t%s", p.ID, p.Title))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) ingestFile(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chatID := ""
	if v, chatErr := req.RequireString("chat_id"); chatErr == nil {
		chatID = v
	}
	item, ingErr := s.eng.IngestFile(path, "", false, chatID)
	if ingErr != nil {
		return mcp.NewToolResultError(ingErr.Error()), nil
	}
	out, _ := json.MarshalIndent(item, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readSuggestionTypesResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ordna://suggestion-types",
			MIMEType: "text/markdown",
			Text:     SuggestionTaxonomy,
		},
	}, nil
}

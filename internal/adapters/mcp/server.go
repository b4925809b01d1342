// Package mcpadapter exposes the campus document assistant as Model Context
// Protocol tools over stdio.
package mcpadapter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

const (
	serverName    = "campus-rag-assistant"
	serverVersion = "1.0.0"

	defaultSearchTopK = 8
	maxSearchTopK     = 50
)

type Server struct {
	query  ports.DocumentQueryService
	logger *slog.Logger
	mcp    *server.MCPServer
}

func NewServer(query ports.DocumentQueryService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{query: query, logger: logger}
	s.mcp = server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("ask_documents",
		mcp.WithDescription("Answer a question about campus academic documents with numbered citations."),
		mcp.WithString("question", mcp.Required(), mcp.Description("the question in Indonesian or English")),
		mcp.WithBoolean("multi_hop", mcp.Description("decompose the question into four aspects before retrieval")),
	), s.handleAsk)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Hybrid BM25 and vector search over indexed document chunks."),
		mcp.WithString("query", mcp.Required(), mcp.Description("the search query")),
		mcp.WithNumber("top_k", mcp.Description("maximum number of chunks, default 8"), mcp.Min(1), mcp.Max(maxSearchTopK)),
	), s.handleSearch)
}

// ServeStdio blocks until stdin is closed.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answerFn := s.query.AnswerSingleHop
	if req.GetBool("multi_hop", false) {
		answerFn = s.query.AnswerMultiHop
	}
	answer, err := answerFn(ctx, question, nil)
	if err != nil {
		return s.toolError("ask_documents", err), nil
	}
	return mcp.NewToolResultText(FormatAnswer(answer)), nil
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK := req.GetInt("top_k", defaultSearchTopK)
	if topK <= 0 {
		topK = defaultSearchTopK
	}
	if topK > maxSearchTopK {
		topK = maxSearchTopK
	}

	results, err := s.query.RetrieveHybrid(ctx, query, topK)
	if err != nil {
		return s.toolError("search_documents", err), nil
	}
	return mcp.NewToolResultText(FormatSearchResults(query, results)), nil
}

// toolError reports failures as tool results so the client model can read
// them; internal errors are logged and masked.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error())
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrTransport):
		s.logger.Warn("mcp_tool_upstream_failed", "tool", tool, "error", err)
		return mcp.NewToolResultError("document service is unavailable, retry later")
	case errors.Is(err, context.DeadlineExceeded):
		return mcp.NewToolResultError("request timed out")
	default:
		s.logger.Error("mcp_tool_failed", "tool", tool, "error", err)
		return mcp.NewToolResultError("internal error")
	}
}

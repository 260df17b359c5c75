// Package mcpserver exposes the document session as Model Context Protocol tools.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hyperjump/tanya/internal/session"
)

// NewServer returns an MCP server with the ask_document and document_info tools.
func NewServer(sess *session.Session, version string) *mcp.Server {
	service := NewService(sess)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "tanya",
		Version: version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "ask_document",
		Description: "Ask a question about the loaded document. Returns an answer with the document passages it is based on.",
	}, service.Ask)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "document_info",
		Description: "Describe the loaded document: name, pages, chunks and the providers in use.",
	}, service.Info)

	return s
}

// Run serves s over stdin/stdout until ctx is cancelled or the client disconnects.
func Run(ctx context.Context, s *mcp.Server) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

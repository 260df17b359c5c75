package mcpserver

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hyperjump/tanya/internal/session"
)

// Service implements the tool handlers.
type Service struct {
	session *session.Session
}

func NewService(sess *session.Session) *Service {
	return &Service{session: sess}
}

func (s *Service) Ask(ctx context.Context, req *mcp.CallToolRequest, args AskArgs) (*mcp.CallToolResult, AskResult, error) {
	r := s.session.DefaultRequest(args.Query)
	if args.ReturnAll != nil {
		r.ReturnAll = *args.ReturnAll
	}
	res, err := s.session.Ask(ctx, r)
	if err != nil {
		return nil, AskResult{}, err
	}
	out := AskResult{Answer: res.Answer, Model: res.Model}
	for _, sc := range res.Sources {
		out.Sources = append(out.Sources, Source{
			Label:   sc.Chunk.Label(),
			Source:  sc.Chunk.Source(),
			Page:    sc.Chunk.Page,
			Score:   sc.Score,
			Content: strings.TrimSpace(sc.Chunk.Content),
		})
	}
	return nil, out, nil
}

func (s *Service) Info(ctx context.Context, req *mcp.CallToolRequest, args InfoArgs) (*mcp.CallToolResult, InfoResult, error) {
	st := s.session.Status()
	if !st.Loaded {
		return nil, InfoResult{}, session.ErrNotLoaded
	}
	return nil, InfoResult{
		Document:    st.Document,
		Pages:       st.Pages,
		Chunks:      st.Chunks,
		Embedding:   st.Embedding,
		VectorStore: st.VectorStore,
		Model:       st.Model,
	}, nil
}

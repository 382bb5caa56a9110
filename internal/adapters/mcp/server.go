// Package mcp exposes the extraction engine as Model Context Protocol tools so
// an assistant can extract KPIs from a notice it has in hand.
package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
	"github.com/kirillkom/corporate-action-intel/internal/core/ports"
)

const (
	ToolExtractKPIs       = "extract_kpis"
	ToolClassifyDocument  = "classify_document"
	ToolGetResult         = "get_result"
	defaultInlineFilename = "notice.txt"
)

type Server struct {
	extractor ports.DocumentExtractor
	engine    ports.KPIExtractor
	results   ports.ResultReader
}

type Option func(*Server)

// WithResultReader enables the get_result tool over stored results.
func WithResultReader(results ports.ResultReader) Option {
	return func(s *Server) { s.results = results }
}

func NewServer(extractor ports.DocumentExtractor, engine ports.KPIExtractor, opts ...Option) *Server {
	s := &Server{extractor: extractor, engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MCPServer registers the tools on a new mcp-go server.
func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer(
		"corporate-action-intel",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	srv.AddTool(mcp.NewTool(ToolExtractKPIs,
		mcp.WithDescription("Extract corporate-action KPIs (ticker, ISIN, key dates, dividend, franking, ratio) "+
			"from a notice. Pass plain text in `content` (form feed separates pages) or a PDF/XLSX "+
			"file as `content_base64` together with its `filename`."),
		mcp.WithString("content", mcp.Description("Plain text of the notice.")),
		mcp.WithString("content_base64", mcp.Description("Base64 encoded file bytes.")),
		mcp.WithString("filename", mcp.Description("File name used to pick the format, e.g. notice.pdf.")),
	), s.handleExtract)

	srv.AddTool(mcp.NewTool(ToolClassifyDocument,
		mcp.WithDescription("Classify notice text as DIVIDEND, SPLIT, BONUS, RIGHTS, CAPITAL_RETURN or UNKNOWN."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Plain text of the notice.")),
	), s.handleClassify)

	if s.results != nil {
		srv.AddTool(mcp.NewTool(ToolGetResult,
			mcp.WithDescription("Fetch the stored KPI result of an uploaded document."),
			mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id returned by the upload API.")),
		), s.handleGetResult)
	}
	return srv
}

func (s *Server) handleExtract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, data, err := decodeContent(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	extraction, err := s.extractor.ExtractDocument(ctx, filename, data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(extraction)
}

func (s *Server) handleClassify(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docType := s.engine.Classify(textPages(content))
	return jsonResult(map[string]domain.DocumentType{"document_type": docType})
}

func (s *Server) handleGetResult(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.results.GetResult(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func decodeContent(req mcp.CallToolRequest) (string, []byte, error) {
	filename := strings.TrimSpace(req.GetString("filename", ""))
	if encoded := req.GetString("content_base64", ""); encoded != "" {
		if filename == "" {
			return "", nil, fmt.Errorf("filename is required with content_base64")
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", nil, fmt.Errorf("decode content_base64: %w", err)
		}
		return filename, data, nil
	}
	content := req.GetString("content", "")
	if content == "" {
		return "", nil, fmt.Errorf("one of content or content_base64 is required")
	}
	if filename == "" {
		filename = defaultInlineFilename
	}
	return filename, []byte(content), nil
}

// textPages mirrors the plain-text producer: form feed starts a new page.
func textPages(content string) []domain.Page {
	parts := strings.Split(content, "\f")
	pages := make([]domain.Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, domain.Page{PageNum: i + 1, Text: part})
	}
	return pages
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

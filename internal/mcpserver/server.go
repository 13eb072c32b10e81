// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes smartblock tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/smartblock/internal/blocks"
	"github.com/starford/smartblock/internal/blockservice"
	"github.com/starford/smartblock/internal/extract"
	"github.com/starford/smartblock/internal/models"
	"github.com/starford/smartblock/internal/query"
	"github.com/starford/smartblock/internal/reorder"
)

// MarkerFormatURI is the resource holding the block marker contract.
const MarkerFormatURI = "smartblock://marker-format"

// Server wraps the MCP server with smartblock tools.
type Server struct {
	mcp *server.MCPServer
	svc *blockservice.Service
}

// New creates a new MCP server with all smartblock tools registered.
func New(svc *blockservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Smartblock",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("List the blocks of a Markdown document, optionally filtered by type, tag or text."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. folder/note.md)")),
		mcp.WithString("type", mcp.Description("Comma-separated block types to keep")),
		mcp.WithString("tag", mcp.Description("Comma-separated tags; a block matches if it has any of them")),
		mcp.WithString("text", mcp.Description("Case-insensitive text that must appear in title or content")),
	), s.listBlocks)

	s.mcp.AddTool(mcp.NewTool("read_block",
		mcp.WithDescription("Read one block with its sidecar metadata."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Block id")),
	), s.readBlock)

	s.mcp.AddTool(mcp.NewTool("create_block",
		mcp.WithDescription("Append a new block to a document. "+
			"Markers are written for you; content is plain Markdown without block markers. "+
			"Read the contract first via the get_block_contract tool or the "+MarkerFormatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Block content")),
		mcp.WithString("id", mcp.Description("Block id; generated when empty")),
		mcp.WithString("type", mcp.Description("Block type; defaults to note")),
		mcp.WithString("title", mcp.Description("Optional title")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithBoolean("reorderable", mcp.Description("Whether the block may be moved by reordering")),
		mcp.WithBoolean("create_document", mcp.Description("Create the document when it does not exist")),
	), s.createBlock)

	s.mcp.AddTool(mcp.NewTool("extract_block",
		mcp.WithDescription("Copy a block into a standalone note with frontmatter. The source document is not changed."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the source document")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Block id")),
		mcp.WithBoolean("inherit_tags", mcp.Description("Copy the block tags into the note")),
	), s.extractBlock)

	s.mcp.AddTool(mcp.NewTool("find_similar",
		mcp.WithDescription("Find blocks across the vault whose content overlaps with the given block."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Block id")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of matches (default 10)")),
	), s.findSimilar)

	s.mcp.AddTool(mcp.NewTool("suggest_reorder",
		mcp.WithDescription("Suggest a new order for the reorderable blocks of a document without changing it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
		mcp.WithString("strategy", mcp.Description("Ordering strategy hint, e.g. logical or chronological")),
		mcp.WithString("goal", mcp.Description("What the reader should get out of the new order")),
	), s.suggestReorder)

	s.mcp.AddTool(mcp.NewTool("search_blocks",
		mcp.WithDescription("Full-text search through block titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchBlocks)

	s.mcp.AddTool(mcp.NewTool("get_block_contract",
		mcp.WithDescription("Returns the block marker format contract. "+
			"Call this before editing documents by hand to keep markers parseable."),
	), s.getBlockContract)

	s.mcp.AddResource(
		mcp.NewResource(MarkerFormatURI, "Block Marker Contract",
			mcp.WithResourceDescription("Marker syntax that delimits smart blocks inside Markdown documents."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMarkerFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *Server) listBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var crit query.Criteria
	for _, t := range splitList(req.GetString("type", "")) {
		crit.Types = append(crit.Types, models.BlockType(t))
	}
	crit.Tags = splitList(req.GetString("tag", ""))
	crit.Text = req.GetString("text", "")

	bs, err := s.svc.ListBlocks(ctx, path, blockservice.ListOptions{Criteria: crit})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(bs)
}

func (s *Server) readBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetBlock(ctx, path, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s#%s", path, id)), nil
	}
	return jsonResult(d)
}

func (s *Server) createBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !strings.HasSuffix(path, ".md") {
		return mcp.NewToolResultError("path must end with .md"), nil
	}

	in := blockservice.CreateInput{
		Content: content,
		CreateOptions: blocks.CreateOptions{
			ID:    req.GetString("id", ""),
			Type:  models.BlockType(req.GetString("type", "")),
			Title: req.GetString("title", ""),
			Tags:  splitList(req.GetString("tags", "")),
		},
		CreateDocument: req.GetBool("create_document", false),
	}
	if _, ok := req.GetArguments()["reorderable"]; ok {
		v := req.GetBool("reorderable", false)
		in.Reorderable = &v
	}

	d, err := s.svc.CreateBlock(ctx, path, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s#%s", path, d.Block.ID)), nil
}

func (s *Server) extractBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ExtractBlock(ctx, path, id, extract.Options{
		InheritTags:        req.GetBool("inherit_tags", false),
		AddSourceReference: true,
		CreateBacklink:     true,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("extracted: %s", res.Path)), nil
}

func (s *Server) findSimilar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matches, err := s.svc.FindSimilar(ctx, path, id, req.GetInt("limit", 10))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText("no similar blocks found"), nil
	}
	return jsonResult(matches)
}

func (s *Server) suggestReorder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sug, err := s.svc.SuggestReorder(ctx, path, reorder.Options{
		Strategy: req.GetString("strategy", ""),
		Goal:     req.GetString("goal", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sug)
}

func (s *Server) searchBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, q, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getBlockContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MarkerFormatContract), nil
}

func (s *Server) readMarkerFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      MarkerFormatURI,
			MIMEType: "text/markdown",
			Text:     MarkerFormatContract,
		},
	}, nil
}

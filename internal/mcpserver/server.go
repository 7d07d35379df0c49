// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Anchor tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/itsbohara/anchor/internal/models"
	"github.com/itsbohara/anchor/internal/refservice"
	"github.com/itsbohara/anchor/internal/view"
)

// ContractURI is the resource URI of the reference format contract.
const ContractURI = "anchor://reference-format"

// Server wraps the MCP server with Anchor tools.
type Server struct {
	mcp *server.MCPServer
	svc *refservice.Service
}

// New creates a new MCP server with all Anchor tools registered.
func New(svc *refservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Anchor",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_references",
		mcp.WithDescription("Find references whose name or any tag contains the query (case-insensitive). "+
			"Results are grouped like the quick-access panel: pinned first, then by status."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text; empty matches everything")),
	), s.searchReferences)

	s.mcp.AddTool(mcp.NewTool("list_references",
		mcp.WithDescription("List references grouped by status, sorted by the given field."),
		mcp.WithString("status", mcp.Description("Optional status filter: active, paused, idea, completed, archived")),
		mcp.WithString("sort", mcp.Description("Sort field (default createdAt)")),
		mcp.WithBoolean("desc", mcp.Description("Sort descending (default true)")),
	), s.listReferences)

	s.mcp.AddTool(mcp.NewTool("get_reference",
		mcp.WithDescription("Return one reference as JSON."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Reference id")),
	), s.getReference)

	s.mcp.AddTool(mcp.NewTool("add_reference",
		mcp.WithDescription("Catalog a folder or file. Read the contract first via the "+
			"get_reference_contract tool or the "+ContractURI+" resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path on this machine")),
		mcp.WithString("type", mcp.Description("folder (default) or file")),
		mcp.WithString("status", mcp.Description("active (default), paused, idea, completed or archived")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("description", mcp.Description("Optional free text")),
		mcp.WithBoolean("pinned", mcp.Description("Hoist into the pinned section")),
	), s.addReference)

	s.mcp.AddTool(mcp.NewTool("delete_reference",
		mcp.WithDescription("Remove a reference from the catalog. The path on disk is not touched."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Reference id")),
	), s.deleteReference)

	s.mcp.AddTool(mcp.NewTool("path_exists",
		mcp.WithDescription("Check whether an absolute path exists. Advisory only."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path")),
	), s.pathExists)

	s.mcp.AddTool(mcp.NewTool("get_reference_contract",
		mcp.WithDescription("Returns the reference format contract."),
	), s.getReferenceContract)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Reference Format Contract",
			mcp.WithResourceDescription("Fields, enums and defaults of an Anchor reference."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items := view.Items(view.Flatten(view.QuickAccess(refs, query)))
	if len(items) == 0 {
		return mcp.NewToolResultText("no references found"), nil
	}
	return jsonResult(items), nil
}

func (s *Server) listReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sort := view.DefaultSort
	if f := req.GetString("sort", ""); f != "" {
		sort.Field = f
	}
	if !req.GetBool("desc", true) {
		sort.Dir = view.Asc
	}
	status := models.Status(strings.TrimSpace(req.GetString("status", "")))

	type group struct {
		Status     models.Status      `json:"status"`
		References []models.Reference `json:"references"`
	}
	var out []group
	for _, g := range view.Dashboard(refs, "", sort) {
		if status != "" && g.Status != status {
			continue
		}
		out = append(out, group{Status: g.Status, References: g.References})
	}
	if len(out) == 0 {
		return mcp.NewToolResultText("no references found"), nil
	}
	return jsonResult(out), nil
}

func (s *Server) getReference(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(ref), nil
}

func (s *Server) addReference(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d := models.Draft{
		ReferenceName: name,
		AbsolutePath:  path,
		Type:          models.Type(req.GetString("type", "")),
		Status:        models.Status(req.GetString("status", "")),
		Tags:          models.NormalizeTags(req.GetString("tags", "")),
		Pinned:        req.GetBool("pinned", false),
	}
	if desc := req.GetString("description", ""); desc != "" {
		d.Description = &desc
	}
	if res := models.ValidateForSave(d.Normalize()); !res.Valid {
		return mcp.NewToolResultError(res.Error()), nil
	}

	ref, err := s.svc.Add(ctx, models.ToPayload("", d))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg := fmt.Sprintf("created: %s", ref.ID)
	if ok, _ := s.svc.PathExists(ctx, ref.AbsolutePath); !ok {
		msg += "\nnote: path does not exist on this machine"
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) deleteReference(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) pathExists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ok, err := s.svc.PathExists(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%t", ok)), nil
}

func (s *Server) getReferenceContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ReferenceContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     ReferenceContract,
		},
	}, nil
}

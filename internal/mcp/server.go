package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/ocrstudio/internal/fields"
	"github.com/ziadkadry99/ocrstudio/internal/ocrconfig"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes mapping and configuration tools.
type Server struct {
	configs *ocrconfig.Store
	catalog []fields.Field
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server. configs may be nil, in which case
// only the document tools are useful.
func NewServer(configs *ocrconfig.Store, catalog []fields.Field) *Server {
	s := &Server{
		configs: configs,
		catalog: catalog,
	}

	s.mcp = server.NewMCPServer(
		"ocrstudio",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(suggestMappingsTool, s.handleSuggestMappings)
	s.mcp.AddTool(scoreFieldTool, s.handleScoreField)
	s.mcp.AddTool(applyMappingsTool, s.handleApplyMappings)
	s.mcp.AddTool(resolveConfigTool, s.handleResolveConfig)
	s.mcp.AddTool(listConfigsTool, s.handleListConfigs)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

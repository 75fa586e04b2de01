package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/ocrstudio/internal/extract"
	"github.com/ziadkadry99/ocrstudio/internal/fields"
	"github.com/ziadkadry99/ocrstudio/internal/match"
	"github.com/ziadkadry99/ocrstudio/internal/ocrconfig"
	"github.com/ziadkadry99/ocrstudio/internal/suggest"
)

// handleSuggestMappings proposes a path for each catalog field.
func (s *Server) handleSuggestMappings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	document, err := request.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document"), nil
	}

	list := s.catalog
	if ids := request.GetString("fields", ""); ids != "" {
		list = nil
		for _, id := range strings.Split(ids, ",") {
			id = strings.TrimSpace(id)
			f, ok := fields.Find(s.catalog, id)
			if !ok {
				f = fields.Field{ID: id, DisplayName: id}
			}
			list = append(list, f)
		}
	}

	ranked, err := suggest.Rank(list, []byte(document))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid document: %v", err)), nil
	}
	if len(ranked) == 0 {
		return mcp.NewToolResultText("No confident suggestions. The document has no fields that resemble the catalog."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Suggested %d mapping(s):\n", len(ranked))
	for _, sg := range ranked {
		fmt.Fprintf(&sb, "%s -> %s (%.0f%%)\n", sg.FieldID, sg.Path, sg.Score*100)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleScoreField explains a single field/path score.
func (s *Server) handleScoreField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := request.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: field"), nil
	}
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: path"), nil
	}

	out, err := json.MarshalIndent(match.Explain(field, path), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// handleApplyMappings runs mappings against a document.
func (s *Server) handleApplyMappings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	document, err := request.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document"), nil
	}
	raw, err := request.RequireString("mappings")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: mappings"), nil
	}

	mappings, err := ocrconfig.ParseMappings([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid mappings: %v", err)), nil
	}

	rules, err := ocrconfig.ParseRules([]byte(request.GetString("rules", "")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := extract.Apply([]byte(document), mappings)
	res.Validate(rules)
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// handleResolveConfig runs the configuration cascade for a key.
func (s *Server) handleResolveConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.configs == nil {
		return mcp.NewToolResultError("configuration store is not available"), nil
	}
	module, err := request.RequireString("module")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: module"), nil
	}
	key := ocrconfig.NewKey(module, request.GetString("consignor", ""), request.GetString("transporter", ""))

	cfg, err := ocrconfig.Resolve(ctx, s.configs, key)
	if errors.Is(err, ocrconfig.ErrNotFound) {
		return mcp.NewToolResultText(fmt.Sprintf("No configuration found for %s.", key)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve failed: %v", err)), nil
	}

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Resolved %s at %s level:\n%s", key, cfg.Level, out)), nil
}

// handleListConfigs lists stored configurations one per line.
func (s *Server) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.configs == nil {
		return mcp.NewToolResultError("configuration store is not available"), nil
	}

	configs, err := s.configs.List(ctx, ocrconfig.ListFilter{
		Module:          request.GetString("module", ""),
		IncludeInactive: request.GetBool("include_inactive", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if len(configs) == 0 {
		return mcp.NewToolResultText("No configurations stored."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d configuration(s):\n", len(configs))
	for i := range configs {
		line := ocrconfig.Summary(&configs[i])
		if !configs[i].IsActive {
			line += " [inactive]"
		}
		sb.WriteString(line + "\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

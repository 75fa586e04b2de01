package mcp

import "github.com/mark3labs/mcp-go/mcp"

var suggestMappingsTool = mcp.NewTool("suggest_mappings",
	mcp.WithDescription("Suggest a JSON path in an OCR output document for each standard field. Each path is used at most once."),
	mcp.WithString("document",
		mcp.Required(),
		mcp.Description("OCR output as a JSON object"),
	),
	mcp.WithString("fields",
		mcp.Description("Comma-separated field ids to restrict suggestions to (default: the whole catalog)"),
	),
)

var scoreFieldTool = mcp.NewTool("score_field",
	mcp.WithDescription("Score how well a field name matches a JSON path and show every contributing signal."),
	mcp.WithString("field",
		mcp.Required(),
		mcp.Description("Field id or display name, e.g. sender_name"),
	),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("JSON path, e.g. $.shipper.name"),
	),
)

var applyMappingsTool = mcp.NewTool("apply_mappings",
	mcp.WithDescription("Apply field mappings to an OCR output document and report missing mandatory fields and failed validation rules."),
	mcp.WithString("document",
		mcp.Required(),
		mcp.Description("OCR output as a JSON object"),
	),
	mcp.WithString("mappings",
		mcp.Required(),
		mcp.Description(`Mappings as a JSON list of {"fieldKey","jsonPath","mandatory","transform"} or an object keyed by field id`),
	),
	mcp.WithString("rules",
		mcp.Description(`Validation rules as a JSON list of {"field","operator","value","action","message"}`),
	),
)

var resolveConfigTool = mcp.NewTool("resolve_config",
	mcp.WithDescription("Resolve the active configuration for a module, falling back from transporter to consignor to module level."),
	mcp.WithString("module",
		mcp.Required(),
		mcp.Description("Module code"),
	),
	mcp.WithString("consignor",
		mcp.Description("Consignor code"),
	),
	mcp.WithString("transporter",
		mcp.Description("Transporter code"),
	),
)

var listConfigsTool = mcp.NewTool("list_configs",
	mcp.WithDescription("List stored configurations, most recently updated first."),
	mcp.WithString("module",
		mcp.Description("Only configurations for this module"),
	),
	mcp.WithBoolean("include_inactive",
		mcp.Description("Include deactivated configurations (default false)"),
	),
)

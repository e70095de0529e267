package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/rfpdesk/internal/analytics"
	"github.com/kalambet/rfpdesk/internal/fixture"
	"github.com/kalambet/rfpdesk/internal/model"
	"github.com/kalambet/rfpdesk/internal/review"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Records     *fixture.Store
	Review      *review.Service
	SLA         analytics.SLAThresholds
	UrgentLimit int
	Now         func() time.Time // nil means time.Now
	Version     string
}

func (d MCPDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// NewMCPServer creates an MCP server exposing the pipeline and the
// validation queue to agents.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.SLA == (analytics.SLAThresholds{}) {
		deps.SLA = analytics.DefaultSLA
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := server.NewMCPServer(
		"rfpdesk",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("rfpdesk: RFP pipeline dashboard and human validation queue."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("get_dashboard",
			mcp.WithDescription("Return the pipeline KPIs, stage distribution and urgent RFPs."),
			mcp.WithNumber("urgent_limit", mcp.Description("Maximum number of urgent RFPs to include")),
		),
		mcpGetDashboard(deps),
	)

	s.AddTool(
		mcp.NewTool("list_rfps",
			mcp.WithDescription("Search RFPs by id, client or title and optionally filter by stage."),
			mcp.WithString("query", mcp.Description("Case-insensitive search text")),
			mcp.WithString("stage", mcp.Description("Pipeline stage filter"), mcp.Enum(stageNames()...)),
		),
		mcpListRFPs(deps),
	)

	s.AddTool(
		mcp.NewTool("list_validation_queue",
			mcp.WithDescription("Return the validation queue split into pending, approved and rejected items."),
		),
		mcpListValidationQueue(deps),
	)

	s.AddTool(
		mcp.NewTool("approve_validation_item",
			mcp.WithDescription("Approve a pending validation item."),
			mcp.WithString("id", mcp.Description("Validation item id, e.g. VAL-001"), mcp.Required()),
			mcp.WithString("reviewer", mcp.Description("Name recorded as the reviewer")),
		),
		mcpApprove(deps),
	)

	s.AddTool(
		mcp.NewTool("reject_validation_item",
			mcp.WithDescription("Reject a pending validation item. A reason is required."),
			mcp.WithString("id", mcp.Description("Validation item id, e.g. VAL-001"), mcp.Required()),
			mcp.WithString("reason", mcp.Description("Why the item is rejected"), mcp.Required()),
			mcp.WithString("reviewer", mcp.Description("Name recorded as the reviewer")),
		),
		mcpReject(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"rfp://dashboard",
			"Pipeline Dashboard",
			mcp.WithResourceDescription("Current dashboard KPIs as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDashboard(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"rfp://alerts",
			"Alerts",
			mcp.WithResourceDescription("Active alerts, newest first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceAlerts(deps),
	)

	return s
}

func stageNames() []string {
	out := make([]string, len(model.Stages))
	for i, s := range model.Stages {
		out[i] = string(s)
	}
	return out
}

func mcpGetDashboard(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("urgent_limit", deps.UrgentLimit)
		if limit < 0 {
			limit = deps.UrgentLimit
		}
		return mcpJSON(buildDashboard(deps.Records, deps.now(), limit, deps.SLA)), nil
	}
}

func mcpListRFPs(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stage := model.Stage(req.GetString("stage", ""))
		if stage != "" && !stage.Valid() {
			return mcpError(fmt.Sprintf("unknown stage %q", stage)), nil
		}
		return mcpJSON(buildRFPList(deps.Records, req.GetString("query", ""), stage, deps.now(), deps.SLA)), nil
	}
}

func mcpListValidationQueue(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := deps.Review.Queue(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load queue: %v", err)), nil
		}
		return mcpJSON(newQueueView(q)), nil
	}
}

func mcpApprove(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		item, err := deps.Review.Approve(ctx, id, req.GetString("reviewer", "mcp"))
		if err != nil {
			return mcpReviewError(err), nil
		}
		return mcpText(fmt.Sprintf("Approved %s: %s", item.ID, item.Description)), nil
	}
}

func mcpReject(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		// A missing reason is passed through so the workflow reports it in
		// its usual order (existence, state, then reason).
		reason := req.GetString("reason", "")
		item, err := deps.Review.Reject(ctx, id, reason, req.GetString("reviewer", "mcp"))
		if err != nil {
			return mcpReviewError(err), nil
		}
		return mcpText(fmt.Sprintf("Rejected %s: %s", item.ID, item.Description)), nil
	}
}

func mcpReviewError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, review.ErrNotFound), errors.Is(err, review.ErrInvalidState), errors.Is(err, review.ErrValidation):
		return mcpError(err.Error())
	}
	return mcpError(fmt.Sprintf("review failed: %v", err))
}

func mcpResourceDashboard(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(buildDashboard(deps.Records, deps.now(), deps.UrgentLimit, deps.SLA))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal dashboard: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceAlerts(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		alerts := deps.Records.Alerts()
		if alerts == nil {
			alerts = []model.Alert{}
		}
		b, err := json.Marshal(alerts)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal alerts: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err))
	}
	return mcpText(string(b))
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

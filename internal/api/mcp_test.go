package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/rfpdesk/internal/model"
)

// --- helpers ---

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_GetDashboard(t *testing.T) {
	env := newTestEnv(t)
	handler := mcpGetDashboard(env.mcp)

	result, err := handler(context.Background(), makeCallToolRequest("get_dashboard", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var d DashboardView
	if err := json.Unmarshal([]byte(toolText(t, result)), &d); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if d.KPIs.TotalActiveRFPs != 8 || d.PipelineValueDisplay != "₹39.5Cr" {
		t.Errorf("dashboard = %+v", d.KPIs)
	}
}

func TestMCPTool_ListRFPs(t *testing.T) {
	env := newTestEnv(t)
	handler := mcpListRFPs(env.mcp)

	result, err := handler(context.Background(), makeCallToolRequest("list_rfps", map[string]interface{}{
		"query": "cable",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var list RFPList
	if err := json.Unmarshal([]byte(toolText(t, result)), &list); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(list.RFPs) != 4 {
		t.Errorf("cable matches = %d, want 4", len(list.RFPs))
	}

	result, err = handler(context.Background(), makeCallToolRequest("list_rfps", map[string]interface{}{
		"stage": "nowhere",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for unknown stage")
	}
}

func TestMCPTool_ApproveAndReject(t *testing.T) {
	env := newTestEnv(t)
	approve := mcpApprove(env.mcp)
	reject := mcpReject(env.mcp)
	ctx := context.Background()

	result, err := approve(ctx, makeCallToolRequest("approve_validation_item", map[string]interface{}{"id": "VAL-001"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("approve failed: %s", toolText(t, result))
	}
	if !strings.HasPrefix(toolText(t, result), "Approved VAL-001") {
		t.Errorf("text = %s", toolText(t, result))
	}

	result, _ = approve(ctx, makeCallToolRequest("approve_validation_item", map[string]interface{}{"id": "VAL-001"}))
	if !result.IsError || !strings.Contains(toolText(t, result), "cannot be approved") {
		t.Errorf("second approve = %+v", result)
	}

	result, _ = reject(ctx, makeCallToolRequest("reject_validation_item", map[string]interface{}{"id": "VAL-002"}))
	if !result.IsError || !strings.Contains(toolText(t, result), "reason") {
		t.Errorf("reject without reason = %+v", result)
	}

	result, _ = reject(ctx, makeCallToolRequest("reject_validation_item", map[string]interface{}{
		"id": "VAL-002", "reason": "Margin below floor", "reviewer": "agent-7",
	}))
	if result.IsError {
		t.Fatalf("reject failed: %s", toolText(t, result))
	}

	hist, err := env.store.DecisionsForItem("VAL-002")
	if err != nil {
		t.Fatalf("DecisionsForItem: %v", err)
	}
	if len(hist) != 1 || hist[0].Reviewer != "agent-7" {
		t.Errorf("history = %+v", hist)
	}

	result, _ = approve(ctx, makeCallToolRequest("approve_validation_item", nil))
	if !result.IsError {
		t.Error("expected error when id is missing")
	}
}

func TestMCPTool_ListValidationQueue(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.mcp.Review.Approve(context.Background(), "VAL-003", ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	result, err := mcpListValidationQueue(env.mcp)(context.Background(), makeCallToolRequest("list_validation_queue", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var q QueueView
	if err := json.Unmarshal([]byte(toolText(t, result)), &q); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if q.Summary.Pending != 3 || q.Summary.Approved != 1 || len(q.Approved) != 1 || q.Approved[0].ID != "VAL-003" {
		t.Errorf("queue = %+v", q.Summary)
	}
}

func TestMCPResource_Dashboard(t *testing.T) {
	env := newTestEnv(t)
	contents, err := mcpResourceDashboard(env.mcp)(context.Background(), makeReadResourceRequest("rfp://dashboard"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.URI != "rfp://dashboard" || tc.MIMEType != "application/json" {
		t.Errorf("contents = %+v", tc)
	}
	var d DashboardView
	if err := json.Unmarshal([]byte(tc.Text), &d); err != nil {
		t.Fatalf("failed to parse dashboard: %v", err)
	}
	if len(d.UrgentRFPs) != 1 {
		t.Errorf("urgent = %d", len(d.UrgentRFPs))
	}
}

func TestMCPResource_Alerts(t *testing.T) {
	env := newTestEnv(t)
	contents, err := mcpResourceAlerts(env.mcp)(context.Background(), makeReadResourceRequest("rfp://alerts"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	var alerts []model.Alert
	if err := json.Unmarshal([]byte(tc.Text), &alerts); err != nil {
		t.Fatalf("failed to parse alerts: %v", err)
	}
	if len(alerts) != 4 {
		t.Errorf("alerts = %d", len(alerts))
	}
}

func TestMCPServer_ConcurrentApprovals(t *testing.T) {
	env := newTestEnv(t)
	handler := mcpApprove(env.mcp)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := handler(context.Background(), makeCallToolRequest("approve_validation_item", map[string]interface{}{"id": "VAL-004"}))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if !result.IsError {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 1 {
		t.Errorf("successful approvals = %d, want 1", ok)
	}
}

func TestNewMCPServer(t *testing.T) {
	env := newTestEnv(t)
	if s := NewMCPServer(env.mcp); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

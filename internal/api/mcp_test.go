package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/arvocap/arvochat/internal/contact"
	"github.com/arvocap/arvochat/internal/faq"
	"github.com/arvocap/arvochat/internal/resolver"
	"github.com/arvocap/arvochat/internal/storage"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store, *stubResolver, *countingSink, *contact.Service) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	faqs := faq.Default()
	res := &stubResolver{res: resolver.Resolution{Message: "Minimum investment is KES 1,000.", Tier: resolver.TierStatic, FAQID: "mmf-minimum"}}
	sink := &countingSink{}
	contacts := contact.NewService([]contact.Sink{sink})

	return MCPDeps{
		FAQ:          faqs,
		Matcher:      faq.NewMatcher(faqs),
		Resolver:     res,
		Contacts:     contacts,
		Interactions: store,
	}, store, res, sink, contacts
}

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

func TestMCPTool_Ask(t *testing.T) {
	deps, _, res, _, _ := newTestMCPDeps(t)

	result, err := mcpAsk(deps)(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question": "What is the minimum investment?",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var got resolver.Resolution
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("decoding answer: %v", err)
	}
	if got.Message != "Minimum investment is KES 1,000." || got.Tier != resolver.TierStatic {
		t.Errorf("unexpected resolution: %+v", got)
	}
	if len(res.reqs) != 1 || !strings.HasPrefix(res.reqs[0].SessionID, "mcp-") {
		t.Errorf("expected generated mcp session id, got %+v", res.reqs)
	}
}

func TestMCPTool_AskKeepsSessionID(t *testing.T) {
	deps, _, res, _, _ := newTestMCPDeps(t)

	_, err := mcpAsk(deps)(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question":   "fees?",
		"session_id": "conv-1",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.reqs[0].SessionID != "conv-1" {
		t.Errorf("SessionID = %q, want conv-1", res.reqs[0].SessionID)
	}
}

func TestMCPTool_AskMissingQuestion(t *testing.T) {
	deps, _, res, _, _ := newTestMCPDeps(t)

	result, err := mcpAsk(deps)(context.Background(), makeCallToolRequest("ask", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if len(res.reqs) != 0 {
		t.Error("resolver should not run without a question")
	}
}

func TestMCPTool_SearchFAQ(t *testing.T) {
	deps, _, _, _, _ := newTestMCPDeps(t)
	first := deps.FAQ.Records()[0]

	result, err := mcpSearchFAQ(deps)(context.Background(), makeCallToolRequest("search_faq", map[string]interface{}{
		"query": first.Question,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var got struct {
		Match  string     `json:"match"`
		Record faq.Record `json:"record"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("decoding match: %v", err)
	}
	if got.Match != "exact" {
		t.Errorf("match = %q, want exact", got.Match)
	}
	if got.Record.ID != first.ID {
		t.Errorf("record id = %q, want %q", got.Record.ID, first.ID)
	}
}

func TestMCPTool_SearchFAQNoMatch(t *testing.T) {
	deps, _, _, _, _ := newTestMCPDeps(t)

	result, err := mcpSearchFAQ(deps)(context.Background(), makeCallToolRequest("search_faq", map[string]interface{}{
		"query": "zzqx",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError || toolText(t, result) != "no matching FAQ entry" {
		t.Errorf("unexpected result: %s", toolText(t, result))
	}
}

func TestMCPTool_SubmitContact(t *testing.T) {
	deps, _, _, sink, contacts := newTestMCPDeps(t)

	result, err := mcpSubmitContact(deps)(context.Background(), makeCallToolRequest("submit_contact", map[string]interface{}{
		"name":  "Baraka",
		"email": "baraka@example.com",
		"issue": "Switching from MMF to Thamani",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if !strings.Contains(toolText(t, result), "Thank you, Baraka!") {
		t.Errorf("unexpected ack: %s", toolText(t, result))
	}

	contacts.Wait()
	if len(sink.got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(sink.got))
	}
}

func TestMCPTool_SubmitContactInvalid(t *testing.T) {
	deps, _, _, sink, contacts := newTestMCPDeps(t)

	result, err := mcpSubmitContact(deps)(context.Background(), makeCallToolRequest("submit_contact", map[string]interface{}{
		"name":  "Baraka",
		"email": "not-an-email",
		"issue": "x",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	contacts.Wait()
	if len(sink.got) != 0 {
		t.Errorf("invalid submission was delivered")
	}
}

func TestMCPResource_FAQ(t *testing.T) {
	deps, _, _, _, _ := newTestMCPDeps(t)

	contents, err := mcpResourceFAQ(deps)(context.Background(), makeReadResourceRequest("faq://all"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	if tc.URI != "faq://all" || tc.MIMEType != "application/json" {
		t.Errorf("unexpected contents header: %+v", tc)
	}
	var records []faq.Record
	if err := json.Unmarshal([]byte(tc.Text), &records); err != nil {
		t.Fatalf("decoding faq: %v", err)
	}
	if len(records) != deps.FAQ.Len() {
		t.Errorf("got %d records, want %d", len(records), deps.FAQ.Len())
	}
}

func TestMCPResource_Recent(t *testing.T) {
	deps, store, _, _, _ := newTestMCPDeps(t)
	ctx := context.Background()

	long := strings.Repeat("ü", 250)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		q := "question"
		if i == 11 {
			q = long
		}
		if err := store.SaveInteraction(ctx, storage.Interaction{
			ID:        "ix-" + strings.Repeat("x", i+1),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			SessionID: "s",
			Query:     q,
			Tier:      "static",
			Answer:    "a",
		}); err != nil {
			t.Fatalf("saving interaction: %v", err)
		}
	}

	contents, err := mcpResourceRecent(deps)(ctx, makeReadResourceRequest("chat://recent"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []struct {
		ID    string `json:"id"`
		Query string `json:"query"`
		Tier  string `json:"tier"`
	}
	if err := json.Unmarshal([]byte(contents[0].(mcp.TextResourceContents).Text), &got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("got %d interactions, want 10", len(got))
	}
	if got[0].Query != strings.Repeat("ü", 200)+"..." {
		t.Errorf("newest query not truncated to 200 runes: %d bytes", len(got[0].Query))
	}
}

func TestMCPResource_RecentUnconfigured(t *testing.T) {
	deps, _, _, _, _ := newTestMCPDeps(t)
	deps.Interactions = nil

	if _, err := mcpResourceRecent(deps)(context.Background(), makeReadResourceRequest("chat://recent")); err == nil {
		t.Fatal("expected error without an interaction log")
	}
}

func TestNewMCPServer(t *testing.T) {
	deps, _, _, _, _ := newTestMCPDeps(t)
	if NewMCPServer(deps) == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

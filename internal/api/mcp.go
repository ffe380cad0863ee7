package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/arvocap/arvochat/internal/contact"
	"github.com/arvocap/arvochat/internal/faq"
	"github.com/arvocap/arvochat/internal/resolver"
)

// MCPDeps is what the stdio MCP server needs to answer tools and resources.
type MCPDeps struct {
	FAQ          *faq.Store
	Matcher      *faq.Matcher
	Resolver     ChatResolver
	Contacts     ContactSubmitter
	Interactions InteractionReader // optional; the recent resource errors when nil
}

// NewMCPServer creates an MCP server exposing the assistant to local tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"arvochat",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("arvochat: investment firm assistant. Ask about funds, fees and services, look up FAQ entries, or file a contact request."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask the assistant a question and get the same answer the chat widget would give."),
			mcp.WithString("question", mcp.Description("The visitor's question"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Optional conversation id passed to the knowledge service")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("search_faq",
			mcp.WithDescription("Match a question against the built-in FAQ and return the matching entry."),
			mcp.WithString("query", mcp.Description("Question text"), mcp.Required()),
		),
		mcpSearchFAQ(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_contact",
			mcp.WithDescription("File a request for a human investment specialist to follow up."),
			mcp.WithString("name", mcp.Description("Full name"), mcp.Required()),
			mcp.WithString("email", mcp.Description("Email address"), mcp.Required()),
			mcp.WithString("issue", mcp.Description("What the visitor needs help with"), mcp.Required()),
		),
		mcpSubmitContact(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"faq://all",
			"FAQ",
			mcp.WithResourceDescription("Every FAQ entry as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceFAQ(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"chat://recent",
			"Recent Interactions",
			mcp.WithResourceDescription("Last 10 resolved chat turns"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question := strings.TrimSpace(req.GetString("question", ""))
		if question == "" {
			return mcp.NewToolResultError("question is required"), nil
		}
		sid := req.GetString("session_id", "")
		if sid == "" {
			sid = "mcp-" + uuid.New().String()
		}
		return jsonResult(deps.Resolver.Resolve(ctx, resolver.Request{Query: question, SessionID: sid}))
	}
}

type faqMatch struct {
	Match  string     `json:"match"`
	Hits   int        `json:"hits,omitempty"`
	Record faq.Record `json:"record"`
}

func mcpSearchFAQ(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}
		out := deps.Matcher.Match(query)
		if !out.Found() {
			return mcp.NewToolResultText("no matching FAQ entry"), nil
		}
		return jsonResult(faqMatch{Match: out.Kind.String(), Hits: out.Hits, Record: out.Record})
	}
}

func mcpSubmitContact(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ack, err := deps.Contacts.Submit(ctx, contact.Submission{
			Name:  req.GetString("name", ""),
			Email: req.GetString("email", ""),
			Issue: req.GetString("issue", ""),
		})
		switch {
		case errors.Is(err, contact.ErrInvalidSubmission):
			return mcp.NewToolResultError(err.Error()), nil
		case err != nil:
			return mcp.NewToolResultErrorFromErr("contact request not accepted", err), nil
		}
		return mcp.NewToolResultText(ack.Message), nil
	}
}

func mcpResourceFAQ(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(req.Params.URI, deps.FAQ.Records())
	}
}

// recentTurn is the trimmed view of a logged interaction.
type recentTurn struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Query     string `json:"query"`
	Tier      string `json:"tier"`
}

const (
	recentLimit    = 10
	recentQueryLen = 200
)

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if deps.Interactions == nil {
			return nil, errors.New("interaction log not configured")
		}
		log, err := deps.Interactions.ListInteractions(ctx, recentLimit, 0)
		if err != nil {
			return nil, fmt.Errorf("listing interactions: %w", err)
		}
		turns := make([]recentTurn, 0, len(log))
		for _, ix := range log {
			turns = append(turns, recentTurn{
				ID:        ix.ID,
				CreatedAt: ix.CreatedAt.UTC().Format(time.RFC3339),
				Query:     truncateRunes(ix.Query, recentQueryLen),
				Tier:      ix.Tier,
			})
		}
		return jsonResource(req.Params.URI, turns)
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encoding result", err), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(b)},
	}, nil
}

package composer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arvocap/arvochat/internal/bridge"
	"github.com/arvocap/arvochat/internal/proxy"
)

const defaultMaxContextTokens = 1500

// Persona is the firm assistant's standing instruction for generic completions.
const Persona = `You are ArvoCap Asset Managers' official AI assistant. You respond in a professional, premium, and reassuring tone that reflects our brand as a leading licensed asset management firm in Kenya. You prioritize clarity, accuracy, and trustworthiness in all responses.

Key guidelines:
- Always maintain a professional, client-focused approach suitable for investment services
- Keep responses concise but informative (2-4 sentences)
- Use bullet points for step-by-step instructions when appropriate
- If you're unsure about specific financial details, politely state that you'll connect the user with a human representative
- Never hallucinate financial advice, specific returns, or investment recommendations beyond what's in our FAQ
- Always redirect complex investment inquiries or specific financial advice to human representatives
- Remember we offer Money Market Fund (low-risk, 16.5% average returns) and Thamani Equity Fund (aggressive growth)
- We are regulated by CMA Kenya, license number 190`

const knowledgeHeader = "Additional Knowledge Base:\n"

// Composer assembles the system prompt sent to the generic completion
// provider from the persona, the matched FAQ answer and any knowledge
// snippets found by semantic search.
type Composer struct {
	MaxContextTokens int
	Persona          string
}

// New creates a Composer with the given token budget for injected knowledge.
// If maxContextTokens <= 0, the default is used.
func New(maxContextTokens int) *Composer {
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	return &Composer{MaxContextTokens: maxContextTokens, Persona: Persona}
}

// KnowledgeBlock renders search results as a numbered context block,
// highest score first, dropping results that do not fit the token budget.
// Returns "" when nothing usable remains.
func (c *Composer) KnowledgeBlock(results []bridge.SearchResult) string {
	sorted := make([]bridge.SearchResult, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.Content) != "" {
			sorted = append(sorted, r)
		}
	}
	if len(sorted) == 0 {
		return ""
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	remaining := c.MaxContextTokens - EstimateTokens(knowledgeHeader)
	var sb strings.Builder
	n := 0
	for _, r := range sorted {
		entry := fmt.Sprintf("%d. %s\n", n+1, strings.TrimSpace(r.Content))
		tokens := EstimateTokens(entry)
		if tokens > remaining {
			continue
		}
		if n == 0 {
			sb.WriteString(knowledgeHeader)
		}
		sb.WriteString(entry)
		remaining -= tokens
		n++
	}
	return strings.TrimSpace(sb.String())
}

// SystemPrompt builds the system message. faqAnswer and knowledge may be empty.
func (c *Composer) SystemPrompt(faqAnswer, knowledge string) string {
	var ctx strings.Builder
	if faqAnswer != "" {
		ctx.WriteString("FAQ Answer: ")
		ctx.WriteString(faqAnswer)
	}
	if knowledge != "" {
		if ctx.Len() > 0 {
			ctx.WriteString("\n\n")
		}
		ctx.WriteString(knowledge)
	}

	if ctx.Len() == 0 {
		return c.Persona
	}
	return c.Persona + "\n\nContext from our FAQ: " + ctx.String()
}

// Messages returns the system + user pair for a completion request.
func (c *Composer) Messages(system, query string) []proxy.Message {
	return []proxy.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: query},
	}
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

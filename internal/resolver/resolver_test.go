package resolver

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvocap/arvochat/internal/bridge"
	"github.com/arvocap/arvochat/internal/chat"
	"github.com/arvocap/arvochat/internal/faq"
	"github.com/arvocap/arvochat/internal/proxy"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeBackend struct {
	chatReply  bridge.ChatReply
	chatErr    error
	results    []bridge.SearchResult
	searchErr  error
	chatCalls  int
	searchArgs []bridge.SearchParams
}

func (b *fakeBackend) Chat(_ context.Context, message, conversationID string) (bridge.ChatReply, error) {
	b.chatCalls++
	return b.chatReply, b.chatErr
}

func (b *fakeBackend) Search(_ context.Context, p bridge.SearchParams) ([]bridge.SearchResult, error) {
	b.searchArgs = append(b.searchArgs, p)
	return b.results, b.searchErr
}

type fakeCompleter struct {
	ready bool
	text  string
	err   error
	reqs  []proxy.CompletionRequest
}

func (c *fakeCompleter) Ready() bool { return c.ready }

func (c *fakeCompleter) Complete(_ context.Context, req proxy.CompletionRequest) (string, error) {
	c.reqs = append(c.reqs, req)
	return c.text, c.err
}

type recorder struct {
	mu        sync.Mutex
	tiers     []string
	matches   []string
	declines  []string
	cachedHit int
}

func (r *recorder) ObserveResolution(tier string, cached bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers = append(r.tiers, tier)
	if cached {
		r.cachedHit++
	}
}

func (r *recorder) ObserveMatch(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, kind)
}

func (r *recorder) ObserveDecline(tier string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.declines = append(r.declines, tier)
}

var errDown = errors.New("dial tcp: connection refused")

func newResolver(b Backend, c Completer, rec Recorder) (*Resolver, *fakeClock) {
	clk := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	r := New(faq.NewMatcher(faq.Default()), b, c, nil, Options{Clock: clk, Metrics: rec})
	return r, clk
}

func TestResolve_Primary(t *testing.T) {
	score := 0.91
	b := &fakeBackend{chatReply: bridge.ChatReply{
		Message: "The MMF invests in short-term securities.",
		Sources: []chat.SourceRef{{Label: "MMF fact sheet", RelevanceScore: &score}},
	}}
	r, _ := newResolver(b, nil, nil)

	res := r.Resolve(context.Background(), Request{Query: "Tell me about Money Market Fund", SessionID: "s1"})
	assert.Equal(t, TierPrimary, res.Tier)
	assert.True(t, res.UsedKnowledge)
	assert.Equal(t, "The MMF invests in short-term securities.", res.Message)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "MMF fact sheet", res.Sources[0].Label)
	assert.False(t, res.Cached)
}

func TestResolve_ThamaniStaticWhenEverythingDown(t *testing.T) {
	b := &fakeBackend{chatErr: errDown, searchErr: errDown}
	r, _ := newResolver(b, &fakeCompleter{ready: false}, nil)

	res := r.Resolve(context.Background(), Request{Query: "What is Thamani Equity Fund?"})
	rec, _ := faq.Default().Get("21")

	assert.Equal(t, TierStatic, res.Tier)
	assert.False(t, res.UsedKnowledge)
	assert.Equal(t, rec.Answer, res.Message)
	assert.Equal(t, "21", res.FAQID)
	assert.False(t, res.SuggestContact)
}

func TestResolve_PrimaryFailureNeverPropagates(t *testing.T) {
	b := &fakeBackend{chatErr: context.DeadlineExceeded, searchErr: errDown}
	rec := &recorder{}
	r, _ := newResolver(b, &fakeCompleter{ready: true, err: errDown}, rec)

	res := r.Resolve(context.Background(), Request{Query: "zzz qqq"})
	assert.NotEqual(t, TierPrimary, res.Tier)
	assert.Equal(t, TierTerminal, res.Tier)
	assert.Equal(t, TerminalMessage, res.Message)
	assert.True(t, res.SuggestContact)
	assert.Equal(t, []string{"primary", "search", "generic"}, rec.declines)
	assert.Equal(t, []string{"none"}, rec.matches)
}

func TestResolve_GenericWithSearchContext(t *testing.T) {
	b := &fakeBackend{
		chatErr: errDown,
		results: []bridge.SearchResult{{Content: "Thamani has a 6 month lock-in.", Score: 0.8}},
	}
	c := &fakeCompleter{ready: true, text: "Thamani requires a 6-month lock-in."}
	r, _ := newResolver(b, c, nil)

	res := r.Resolve(context.Background(), Request{Query: "Is there a lock-in period for the Thamani Fund?"})
	assert.Equal(t, TierGeneric, res.Tier)
	assert.True(t, res.UsedKnowledge)
	assert.Equal(t, "Thamani requires a 6-month lock-in.", res.Message)

	require.Len(t, b.searchArgs, 1)
	assert.Equal(t, 2, b.searchArgs[0].MaxResults)

	require.Len(t, c.reqs, 1)
	sys := c.reqs[0].Messages[0]
	assert.Equal(t, "system", sys.Role)
	assert.Contains(t, sys.Content, "Thamani has a 6 month lock-in.")
	assert.Contains(t, sys.Content, "FAQ Answer: Yes, 6 months for all new investments.")
	assert.Equal(t, "Is there a lock-in period for the Thamani Fund?", c.reqs[0].Messages[1].Content)
}

func TestResolve_GenericWithoutSearchResults(t *testing.T) {
	b := &fakeBackend{chatErr: errDown}
	c := &fakeCompleter{ready: true, text: "We are regulated by the CMA."}
	r, _ := newResolver(b, c, nil)

	res := r.Resolve(context.Background(), Request{Query: "zzz qqq"})
	assert.Equal(t, TierGeneric, res.Tier)
	assert.False(t, res.UsedKnowledge)
	assert.False(t, strings.Contains(c.reqs[0].Messages[0].Content, "Additional Knowledge Base"))
}

func TestNew_KeepsZeroTemperatureAndThreshold(t *testing.T) {
	b := &fakeBackend{chatErr: errDown, results: []bridge.SearchResult{{Content: "MMF pays monthly.", Score: 0.1}}}
	c := &fakeCompleter{ready: true, text: "Interest is paid monthly."}
	r := New(faq.NewMatcher(faq.Default()), b, c, nil, Options{Temperature: 0, ScoreThreshold: 0})

	r.Resolve(context.Background(), Request{Query: "when is mmf interest paid"})
	require.Len(t, c.reqs, 1)
	assert.Equal(t, 0.0, c.reqs[0].Temperature)
	require.Len(t, b.searchArgs, 1)
	assert.Equal(t, 0.0, b.searchArgs[0].ScoreThreshold)
}

func TestNew_NegativeOptionsFallBack(t *testing.T) {
	b := &fakeBackend{chatErr: errDown}
	c := &fakeCompleter{ready: true, text: "ok"}
	r := New(faq.NewMatcher(faq.Default()), b, c, nil, Options{Temperature: -1, ScoreThreshold: -1})

	r.Resolve(context.Background(), Request{Query: "fees"})
	require.Len(t, c.reqs, 1)
	assert.Equal(t, defaultTemperature, c.reqs[0].Temperature)
	require.Len(t, b.searchArgs, 1)
	assert.Equal(t, defaultScoreThreshold, b.searchArgs[0].ScoreThreshold)
}

func TestResolve_DeclineLogsBackendStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := New(faq.NewMatcher(faq.Default()), bridge.New(srv.URL), nil, nil, Options{Logger: logger})

	res := r.Resolve(context.Background(), Request{Query: "What are the fees?"})
	assert.NotEqual(t, TierPrimary, res.Tier)
	assert.Contains(t, buf.String(), "tier=primary")
	assert.Contains(t, buf.String(), "status=502")
}

func TestResolve_NilBackend(t *testing.T) {
	r, _ := newResolver(nil, nil, nil)
	res := r.Resolve(context.Background(), Request{Query: "kingori kamau"})
	assert.Equal(t, TierStatic, res.Tier)
	assert.Equal(t, "8", res.FAQID)
}

func TestResolve_CachesPrimary(t *testing.T) {
	b := &fakeBackend{chatReply: bridge.ChatReply{Message: "answer"}}
	rec := &recorder{}
	r, clk := newResolver(b, nil, rec)
	ctx := context.Background()

	r.Resolve(ctx, Request{Query: "What are the fees?"})
	res := r.Resolve(ctx, Request{Query: "  what are the FEES?  "})
	assert.True(t, res.Cached)
	assert.Equal(t, TierPrimary, res.Tier)
	assert.Equal(t, 1, b.chatCalls)
	assert.Equal(t, 1, rec.cachedHit)

	clk.Advance(5 * time.Minute)
	res = r.Resolve(ctx, Request{Query: "What are the fees?"})
	assert.False(t, res.Cached)
	assert.Equal(t, 2, b.chatCalls)
}

func TestResolve_StaticNotCached(t *testing.T) {
	b := &fakeBackend{chatErr: errDown}
	r, _ := newResolver(b, nil, nil)
	ctx := context.Background()

	r.Resolve(ctx, Request{Query: "What is Thamani Equity Fund?"})
	assert.Equal(t, 0, r.Cache().Len())

	r.Resolve(ctx, Request{Query: "What is Thamani Equity Fund?"})
	assert.Equal(t, 2, b.chatCalls)
}

func TestResolve_GenericCached(t *testing.T) {
	b := &fakeBackend{chatErr: errDown}
	c := &fakeCompleter{ready: true, text: "hi"}
	r, _ := newResolver(b, c, nil)
	ctx := context.Background()

	r.Resolve(ctx, Request{Query: "hello"})
	res := r.Resolve(ctx, Request{Query: "hello"})
	assert.True(t, res.Cached)
	assert.Equal(t, TierGeneric, res.Tier)
	assert.Len(t, c.reqs, 1)
}

func TestCache_Sweep(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := NewCache(clk, time.Minute)
	c.Put("a", Resolution{Message: "1"})
	clk.Advance(30 * time.Second)
	c.Put("b", Resolution{Message: "2"})
	clk.Advance(31 * time.Second)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, "2", got.Message)
}

func TestCache_LazyExpiry(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := NewCache(clk, time.Minute)
	c.Put("a", Resolution{})
	clk.Advance(time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "what is thamani?", Key("  What is THAMANI?\n"))
}

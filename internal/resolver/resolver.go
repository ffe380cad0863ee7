// Package resolver answers one chat turn by walking an ordered list of
// tiers: the trained model, a semantic-search augmented generic completion,
// the matched FAQ answer, and finally a fixed apology. A tier that errors or
// times out declines and the next one runs; Resolve itself never fails.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/arvocap/arvochat/internal/bridge"
	"github.com/arvocap/arvochat/internal/chat"
	"github.com/arvocap/arvochat/internal/composer"
	"github.com/arvocap/arvochat/internal/faq"
	"github.com/arvocap/arvochat/internal/proxy"
)

// Tier names which step produced a resolution.
type Tier string

const (
	TierPrimary  Tier = "primary"
	TierGeneric  Tier = "generic"
	TierStatic   Tier = "static"
	TierTerminal Tier = "terminal"
)

// stepSearch labels the augmentation step in logs and decline metrics. It
// never answers, so no Resolution carries it.
const stepSearch Tier = "search"

// TerminalMessage is returned when every other tier declined.
const TerminalMessage = "I apologize, but I'm having trouble accessing my enhanced responses right now. However, I can still help you with questions about our investment funds, fees, and services. Could you please rephrase your question or try asking about our Money Market Fund or Thamani Equity Fund?"

// NoMatchPrompt is shown alongside the contact form when the FAQ has nothing
// for the query.
const NoMatchPrompt = "I don't have specific information about that question in my knowledge base. Let me help you connect with our investment specialists who can provide you with detailed assistance. Please fill out the form below:"

// Request is one user turn.
type Request struct {
	Query     string
	SessionID string
}

// Resolution is the answer to a turn.
type Resolution struct {
	Message        string           `json:"message"`
	UsedKnowledge  bool             `json:"used_knowledge"`
	Sources        []chat.SourceRef `json:"sources,omitempty"`
	Tier           Tier             `json:"tier"`
	Cached         bool             `json:"cached"`
	SuggestContact bool             `json:"suggest_contact"`
	FAQID          string           `json:"faq_id,omitempty"`
}

// Backend is the knowledge service as the resolver sees it.
type Backend interface {
	Chat(ctx context.Context, message, conversationID string) (bridge.ChatReply, error)
	Search(ctx context.Context, p bridge.SearchParams) ([]bridge.SearchResult, error)
}

// Completer is the generic completion provider.
type Completer interface {
	Ready() bool
	Complete(ctx context.Context, req proxy.CompletionRequest) (string, error)
}

// Recorder receives resolver metrics. All methods must be safe for
// concurrent use.
type Recorder interface {
	ObserveResolution(tier string, cached bool, elapsed time.Duration)
	ObserveMatch(kind string)
	ObserveDecline(tier string)
}

// Options tune the generic tier and the cache. Temperature and
// ScoreThreshold are taken as given, zero included; only negative values
// fall back to the defaults.
type Options struct {
	Model            string
	Temperature      float64
	MaxTokens        int
	SearchMaxResults int
	ScoreThreshold   float64
	CacheTTL         time.Duration
	Clock            Clock
	Logger           *slog.Logger
	Metrics          Recorder
}

const (
	defaultModel            = "gpt-4o-mini"
	defaultTemperature      = 0.2
	defaultMaxTokens        = 300
	defaultSearchMaxResults = 2
	defaultScoreThreshold   = 0.6
)

// Resolver runs the tier chain.
type Resolver struct {
	matcher   *faq.Matcher
	backend   Backend
	completer Completer
	composer  *composer.Composer
	cache     *Cache
	opts      Options
	logger    *slog.Logger
	tiers     []tier
}

// New builds a Resolver. backend and completer may be nil, in which case
// their tiers always decline.
func New(matcher *faq.Matcher, backend Backend, completer Completer, comp *composer.Composer, opts Options) *Resolver {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Temperature < 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.SearchMaxResults <= 0 {
		opts.SearchMaxResults = defaultSearchMaxResults
	}
	if opts.ScoreThreshold < 0 {
		opts.ScoreThreshold = defaultScoreThreshold
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if comp == nil {
		comp = composer.New(0)
	}

	r := &Resolver{
		matcher:   matcher,
		backend:   backend,
		completer: completer,
		composer:  comp,
		cache:     NewCache(opts.Clock, opts.CacheTTL),
		opts:      opts,
		logger:    opts.Logger.With("component", "resolver"),
	}
	r.tiers = r.defaultTiers()
	return r
}

// Cache exposes the response cache so a janitor can sweep it.
func (r *Resolver) Cache() *Cache { return r.cache }

// Resolve answers one turn. It never returns an error; when every tier
// declines the terminal apology is returned.
func (r *Resolver) Resolve(ctx context.Context, req Request) Resolution {
	start := r.opts.Clock.Now()
	key := Key(req.Query)

	if res, ok := r.cache.Get(key); ok {
		res.Cached = true
		r.observe(res, start)
		return res
	}

	p := &pass{req: req, match: r.matcher.Match(req.Query)}
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveMatch(p.match.Kind.String())
	}

	for _, t := range r.tiers {
		res, ok, err := t.run(ctx, p)
		if err != nil {
			attrs := []any{"tier", t.name, "session", req.SessionID, "error", err}
			if code := bridge.StatusCode(err); code != 0 {
				attrs = append(attrs, "status", code)
			}
			r.logger.Warn("tier declined", attrs...)
			if r.opts.Metrics != nil {
				r.opts.Metrics.ObserveDecline(string(t.name))
			}
			continue
		}
		if !ok {
			continue
		}

		res.Tier = t.name
		if p.match.Found() {
			res.FAQID = p.match.Record.ID
		}
		if t.cacheable {
			r.cache.Put(key, res)
		}
		r.observe(res, start)
		return res
	}

	// unreachable while the terminal tier is last in the chain
	res := r.terminal(p)
	r.observe(res, start)
	return res
}

func (r *Resolver) observe(res Resolution, start time.Time) {
	if r.opts.Metrics == nil {
		return
	}
	r.opts.Metrics.ObserveResolution(string(res.Tier), res.Cached, r.opts.Clock.Now().Sub(start))
}

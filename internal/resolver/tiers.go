package resolver

import (
	"context"
	"errors"

	"github.com/arvocap/arvochat/internal/bridge"
	"github.com/arvocap/arvochat/internal/faq"
	"github.com/arvocap/arvochat/internal/proxy"
)

var errNoBackend = errors.New("knowledge service not configured")

// pass carries per-turn state between tiers.
type pass struct {
	req       Request
	match     faq.Outcome
	knowledge string
}

// tier is one step of the chain. run returns ok=false with a nil error when
// it has nothing to say without that being a failure; an error is logged
// as a decline.
type tier struct {
	name      Tier
	cacheable bool
	run       func(ctx context.Context, p *pass) (Resolution, bool, error)
}

func (r *Resolver) defaultTiers() []tier {
	return []tier{
		{name: TierPrimary, cacheable: true, run: r.primary},
		{name: stepSearch, run: r.search},
		{name: TierGeneric, cacheable: true, run: r.generic},
		{name: TierStatic, run: r.static},
		{name: TierTerminal, run: func(_ context.Context, p *pass) (Resolution, bool, error) {
			return r.terminal(p), true, nil
		}},
	}
}

func (r *Resolver) primary(ctx context.Context, p *pass) (Resolution, bool, error) {
	if r.backend == nil {
		return Resolution{}, false, errNoBackend
	}
	reply, err := r.backend.Chat(ctx, p.req.Query, p.req.SessionID)
	if err != nil {
		return Resolution{}, false, err
	}
	return Resolution{
		Message:       reply.Message,
		UsedKnowledge: true,
		Sources:       reply.Sources,
	}, true, nil
}

// search never answers on its own; it leaves a context block for generic.
func (r *Resolver) search(ctx context.Context, p *pass) (Resolution, bool, error) {
	if r.backend == nil {
		return Resolution{}, false, errNoBackend
	}
	if r.completer == nil || !r.completer.Ready() {
		// nothing downstream would use the block
		return Resolution{}, false, nil
	}
	results, err := r.backend.Search(ctx, bridge.SearchParams{
		Query:          p.req.Query,
		MaxResults:     r.opts.SearchMaxResults,
		ScoreThreshold: r.opts.ScoreThreshold,
	})
	if err != nil {
		return Resolution{}, false, err
	}
	p.knowledge = r.composer.KnowledgeBlock(results)
	if p.knowledge == "" {
		r.logger.Debug("search returned nothing usable", "session", p.req.SessionID)
	}
	return Resolution{}, false, nil
}

func (r *Resolver) generic(ctx context.Context, p *pass) (Resolution, bool, error) {
	if r.completer == nil || !r.completer.Ready() {
		return Resolution{}, false, nil
	}

	var faqAnswer string
	if p.match.Found() {
		faqAnswer = p.match.Record.Answer
	}
	system := r.composer.SystemPrompt(faqAnswer, p.knowledge)

	text, err := r.completer.Complete(ctx, proxy.CompletionRequest{
		Model:       r.opts.Model,
		Messages:    r.composer.Messages(system, p.req.Query),
		Temperature: r.opts.Temperature,
		MaxTokens:   r.opts.MaxTokens,
	})
	if err != nil {
		return Resolution{}, false, err
	}
	return Resolution{Message: text, UsedKnowledge: p.knowledge != ""}, true, nil
}

func (r *Resolver) static(_ context.Context, p *pass) (Resolution, bool, error) {
	if !p.match.Found() {
		return Resolution{}, false, nil
	}
	return Resolution{Message: p.match.Record.Answer}, true, nil
}

func (r *Resolver) terminal(p *pass) Resolution {
	return Resolution{
		Message:        TerminalMessage,
		Tier:           TierTerminal,
		SuggestContact: !p.match.Found(),
	}
}

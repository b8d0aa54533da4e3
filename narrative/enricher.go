package narrative

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/warp/disbursement-engine/cache"
	"github.com/warp/disbursement-engine/eligibility"
	"github.com/warp/disbursement-engine/money"
)

// Source tells where a narrative came from.
type Source string

const (
	SourceGenerator Source = "generator"
	SourceTemplate  Source = "template"
	SourceCache     Source = "cache"
)

// Narrative is the enrichment outcome. Err records why the primary generator
// was not used; the Text is always usable.
type Narrative struct {
	Text   string
	Source Source
	Err    error
}

// Enricher produces narratives on a best-effort basis.
type Enricher struct {
	Primary    Generator // nil: template only
	Fallback   Generator
	Cache      cache.Cache // nil: no caching
	Timeout    time.Duration
	Normalizer money.Normalizer
	Logger     *zap.Logger
}

// NewEnricher wires an enricher with the template fallback.
func NewEnricher(primary Generator, c cache.Cache, timeout time.Duration, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		Primary:    primary,
		Fallback:   TemplateGenerator{},
		Cache:      c,
		Timeout:    timeout,
		Normalizer: money.Default,
		Logger:     logger,
	}
}

// Enrich returns commentary for r. It never fails: any primary error or
// timeout yields the template text with Err set.
func (e *Enricher) Enrich(ctx context.Context, r eligibility.Result) Narrative {
	n := e.Normalizer
	if n.Locale.Group == "" && n.Locale.Decimal == "" {
		n = money.Default
	}
	facts := FactsFrom(r, n)

	var key string
	if e.Cache != nil {
		payload, _ := json.Marshal(facts)
		key = cache.Key("narrative", payload)
		if text, ok := e.Cache.Get(ctx, key); ok {
			return Narrative{Text: text, Source: SourceCache}
		}
	}

	if e.Primary == nil {
		return e.fallback(ctx, facts, nil)
	}

	genCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	text, err := e.Primary.Generate(genCtx, facts)
	if err != nil {
		e.Logger.Warn("narrative generator failed, using template", zap.Error(err))
		return e.fallback(ctx, facts, err)
	}

	if e.Cache != nil {
		if err := e.Cache.Set(ctx, key, text); err != nil {
			e.Logger.Debug("narrative cache write failed", zap.Error(err))
		}
	}
	return Narrative{Text: text, Source: SourceGenerator}
}

// EnrichAsync runs Enrich in a goroutine. The channel receives exactly one value.
func (e *Enricher) EnrichAsync(ctx context.Context, r eligibility.Result) <-chan Narrative {
	out := make(chan Narrative, 1)
	go func() {
		defer close(out)
		out <- e.Enrich(ctx, r)
	}()
	return out
}

func (e *Enricher) fallback(ctx context.Context, f Facts, cause error) Narrative {
	fb := e.Fallback
	if fb == nil {
		fb = TemplateGenerator{}
	}
	text, err := fb.Generate(ctx, f)
	if err != nil {
		// TemplateGenerator never fails; a custom fallback might.
		return Narrative{Source: SourceTemplate, Err: err}
	}
	return Narrative{Text: text, Source: SourceTemplate, Err: cause}
}

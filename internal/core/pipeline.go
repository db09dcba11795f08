// Package core wires the enrichment stages into a single pipeline.
package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agenthands/seecat/internal/apperr"
	"github.com/agenthands/seecat/internal/config"
	"github.com/agenthands/seecat/internal/core/assemble"
	"github.com/agenthands/seecat/internal/core/identity"
	"github.com/agenthands/seecat/internal/core/inference"
	"github.com/agenthands/seecat/internal/core/model"
	"github.com/agenthands/seecat/internal/core/schema"
	"github.com/agenthands/seecat/internal/core/taxonomy"
	"github.com/agenthands/seecat/internal/driver"
	"github.com/agenthands/seecat/internal/llm"
	"github.com/agenthands/seecat/internal/logging"
	"github.com/agenthands/seecat/internal/metrics"
)

const explainPrompt = "You are an AI assistant that explains concepts clearly and concisely."

type Pipeline struct {
	Schema   *schema.Loader
	Identity *identity.Extractor
	Engine   *inference.Engine
	Expander *taxonomy.Expander
	Families *config.Families
	Store    driver.TaxonomyStore
	LLM      llm.LLMClient

	// UseIdentity copies identity attributes from the catalog and keeps them
	// out of inference. When false every schema attribute is inferred.
	UseIdentity bool
	SearchLimit int

	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Deps are the external collaborators of a pipeline.
type Deps struct {
	Catalog  schema.CatalogSource
	LLM      llm.LLMClient
	Store    driver.TaxonomyStore
	Families *config.Families
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

func NewPipeline(cfg *config.Config, deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pc := cfg.Pipeline

	extractor := identity.NewExtractor(pc.IdentityNames)
	var matcher inference.IdentityMatcher
	if pc.IdentityWhitelist {
		matcher = extractor
	}

	for _, name := range deps.Families.WithoutFallback() {
		logger.Warn("family table has no fallback code; uncertain picks use the sentinel",
			zap.String("family", name),
			zap.String("sentinel", model.UncertainCommodity),
		)
	}

	return &Pipeline{
		Schema:      schema.NewLoader(deps.Catalog, cfg.Catalog.Timeout.Duration, logger),
		Identity:    extractor,
		Engine:      inference.NewEngine(deps.LLM, matcher, deps.Families, pc.SplitStages, logger),
		Expander:    taxonomy.NewExpander(deps.Store, cfg.Taxonomy.LookupTimeout.Duration, pc.ExpandTaxonomy, deps.Metrics, logger),
		Families:    deps.Families,
		Store:       deps.Store,
		LLM:         deps.LLM,
		UseIdentity: pc.IdentityWhitelist,
		SearchLimit: cfg.Taxonomy.SearchLimit,
		Metrics:     deps.Metrics,
		Logger:      logger,
	}
}

// Enrich turns one material name into an enriched record for categoryCode.
func (p *Pipeline) Enrich(ctx context.Context, materialName, categoryCode string) (*model.EnrichedRecord, error) {
	start := time.Now()
	log := logging.FromContext(ctx, p.Logger).With(
		zap.String("category_code", categoryCode),
		zap.String("material_name", materialName),
	)

	rec, err := p.enrich(ctx, log, materialName, categoryCode)
	if err != nil {
		p.Metrics.CountRun(apperr.KindOf(err))
		log.Warn("enrichment failed",
			zap.String("kind", apperr.KindOf(err)),
			zap.Bool("retryable", apperr.IsRetryable(err)),
			zap.Error(err),
		)
		return nil, err
	}

	p.Metrics.CountRun("ok")
	log.Info("enrichment completed",
		zap.String("commodity", deref(rec.Taxonomy.Commodity)),
		zap.String("category", string(rec.Category.Category)),
		zap.Duration("took", time.Since(start)),
	)
	return rec, nil
}

func (p *Pipeline) enrich(ctx context.Context, log *zap.Logger, materialName, categoryCode string) (*model.EnrichedRecord, error) {
	var missing []string
	if strings.TrimSpace(materialName) == "" {
		missing = append(missing, "material_name")
	}
	if strings.TrimSpace(categoryCode) == "" {
		missing = append(missing, "category_code")
	}
	if len(missing) > 0 {
		return nil, apperr.MissingParameter(missing...)
	}

	var sch *model.SchemaResponse
	if err := p.stage(log, "schema", func() (err error) {
		sch, err = p.Schema.Load(ctx, categoryCode)
		return err
	}); err != nil {
		return nil, err
	}

	ident := model.IdentityMapping{}
	declared := sch.Names()
	if p.UseIdentity {
		if err := p.stage(log, "identity", func() (err error) {
			ident, err = p.Identity.Extract(sch.Body)
			return err
		}); err != nil {
			return nil, err
		}
		declared = p.Identity.Exclude(declared)
	}

	var inf *model.Inference
	if err := p.stage(log, "inference", func() (err error) {
		inf, err = p.Engine.Infer(ctx, inference.Request{
			MaterialName: materialName,
			Attributes:   declared,
			Identity:     ident,
		})
		return err
	}); err != nil {
		return nil, err
	}

	var block model.TaxonomyBlock
	if err := p.stage(log, "taxonomy", func() (err error) {
		block, err = p.Expander.Expand(ctx, inf.Taxonomy)
		return err
	}); err != nil {
		return nil, err
	}

	var rec *model.EnrichedRecord
	err := p.stage(log, "assemble", func() (err error) {
		rec, err = assemble.Assemble(assemble.Input{
			Declared:  declared,
			Identity:  ident,
			Inference: inf,
			Taxonomy:  block,
			Families:  p.Families,
		})
		return err
	})
	return rec, err
}

func (p *Pipeline) stage(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	took := time.Since(start)
	p.Metrics.ObserveStage(name, took)
	log.Debug("stage finished", zap.String("stage", name), zap.Duration("took", took), zap.Bool("ok", err == nil))
	return err
}

// Attributes returns the attribute names of categoryCode in schema order.
func (p *Pipeline) Attributes(ctx context.Context, categoryCode string) ([]string, error) {
	sch, err := p.Schema.Load(ctx, categoryCode)
	if err != nil {
		return nil, err
	}
	return sch.Names(), nil
}

// IdentityOf returns the identity attributes configured for categoryCode.
func (p *Pipeline) IdentityOf(ctx context.Context, categoryCode string) (model.IdentityMapping, error) {
	body, err := p.Schema.Fetch(ctx, categoryCode)
	if err != nil {
		return nil, err
	}
	return p.Identity.Extract(body)
}

// Category returns the raw catalog document of categoryCode.
func (p *Pipeline) Category(ctx context.Context, categoryCode string) ([]byte, error) {
	return p.Schema.Fetch(ctx, categoryCode)
}

// Search lists taxonomy entries whose code starts with prefix.
func (p *Pipeline) Search(ctx context.Context, prefix string) ([]model.TaxonomyEntry, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, apperr.MissingParameter("code")
	}
	entries, err := p.Store.SearchPrefix(ctx, prefix, p.SearchLimit)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstreamFetch, err, "taxonomy search failed")
	}
	return entries, nil
}

// Lookup resolves a single taxonomy code.
func (p *Pipeline) Lookup(ctx context.Context, code string) (model.TaxonomyEntry, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.TaxonomyEntry{}, false, apperr.MissingParameter("code")
	}
	name, found, err := p.Store.Lookup(ctx, code)
	if err != nil {
		return model.TaxonomyEntry{}, false, apperr.Wrap(apperr.ErrUpstreamFetch, err, "taxonomy lookup failed")
	}
	return model.TaxonomyEntry{Code: code, Name: name}, found, nil
}

// Explain answers a free-text question with the completion model.
func (p *Pipeline) Explain(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", apperr.MissingParameter("explain")
	}
	out, err := p.LLM.Generate(ctx, llm.Prompt{System: explainPrompt, User: question})
	if errors.Is(err, llm.ErrEmptyCompletion) {
		return "", apperr.Wrap(apperr.ErrNoInferenceResult, err, "No response from AI")
	}
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUpstreamFetch, err, "explanation model call failed")
	}
	if strings.TrimSpace(out) == "" {
		return "", apperr.New(apperr.ErrNoInferenceResult, "No response from AI")
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

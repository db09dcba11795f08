// Package inference asks the completion model for attribute values, the
// asset category and a commodity code, and parses its answer.
package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/seecat/internal/apperr"
	"github.com/agenthands/seecat/internal/config"
	"github.com/agenthands/seecat/internal/core/common"
	"github.com/agenthands/seecat/internal/core/model"
	"github.com/agenthands/seecat/internal/llm"
)

// IdentityMatcher decides which attribute names are identity attributes.
type IdentityMatcher interface {
	IsIdentity(name string) bool
	Names() []string
}

type Request struct {
	MaterialName string
	// Attributes are the declared non-identity attribute names, schema order.
	Attributes []string
	Identity   model.IdentityMapping
}

type Engine struct {
	LLM      llm.LLMClient
	Identity IdentityMatcher
	Families *config.Families
	// Split issues the attribute and classification prompts as two
	// concurrent calls.
	Split  bool
	Logger *zap.Logger
}

func NewEngine(client llm.LLMClient, identity IdentityMatcher, families *config.Families, split bool, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		LLM:      client,
		Identity: identity,
		Families: families,
		Split:    split,
		Logger:   logger,
	}
}

// Infer runs the inference for one material.
func (e *Engine) Infer(ctx context.Context, req Request) (*model.Inference, error) {
	if strings.TrimSpace(req.MaterialName) == "" {
		return nil, apperr.MissingParameter("material_name")
	}
	if !e.Split {
		return e.run(ctx, StageFull, req)
	}

	var attrs, class *model.Inference
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		attrs, err = e.run(gctx, StageAttributes, req)
		return err
	})
	g.Go(func() error {
		var err error
		class, err = e.run(gctx, StageClassification, req)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &model.Inference{
		Attributes:     attrs.Attributes,
		Category:       class.Category,
		Taxonomy:       class.Taxonomy,
		RepeatedBlocks: class.RepeatedBlocks,
	}, nil
}

func (e *Engine) run(ctx context.Context, stage Stage, req Request) (*model.Inference, error) {
	var identityNames []string
	if e.Identity != nil {
		identityNames = e.Identity.Names()
	}
	system, err := BuildSystemPrompt(stage, PromptInput{
		MaterialName:  req.MaterialName,
		Attributes:    req.Attributes,
		Identity:      req.Identity,
		IdentityNames: identityNames,
		Families:      e.Families,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build %s prompt: %w", stage, err)
	}
	user, err := BuildUserPrompt(req.MaterialName)
	if err != nil {
		return nil, fmt.Errorf("failed to build user prompt: %w", err)
	}

	start := time.Now()
	completion, err := e.LLM.Generate(ctx, llm.Prompt{System: system, User: user, JSON: true})
	if errors.Is(err, llm.ErrEmptyCompletion) {
		return nil, apperr.Wrap(apperr.ErrNoInferenceResult, err, "No response from Enrichment AI")
	}
	if err != nil {
		if stage == StageFull {
			return nil, apperr.Wrap(apperr.ErrUpstreamFetch, err, "enrichment model call failed")
		}
		return nil, apperr.Wrap(apperr.ErrUpstreamFetch, err, fmt.Sprintf("%s model call failed", stage))
	}
	e.Logger.Debug("completion received",
		zap.String("stage", stage.String()),
		zap.Int("bytes", len(completion)),
		zap.Duration("took", time.Since(start)),
	)

	if strings.TrimSpace(completion) == "" {
		return nil, apperr.New(apperr.ErrNoInferenceResult, "No response from Enrichment AI")
	}

	return e.Parse(stage, completion)
}

// Parse reads a completion into an Inference. Only the parts the stage
// asked for are kept.
func (e *Engine) Parse(stage Stage, completion string) (*model.Inference, error) {
	fields, err := common.ParseObjectFields(completion)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInferenceParse, err, "Failed to process enrichment data")
	}

	inf := &model.Inference{Attributes: []model.InferredAttribute{}}
	seen := make(map[string]bool)
	for _, f := range fields {
		switch f.Key {
		case model.CategoryKey:
			if !stage.wantsClassification() {
				continue
			}
			if seen[f.Key] {
				inf.RepeatedBlocks = append(inf.RepeatedBlocks, f.Key)
			}
			seen[f.Key] = true
			cat, err := parseCategory(f.Value)
			if err != nil {
				return nil, err
			}
			inf.Category = cat

		case model.TaxonomyKey:
			if !stage.wantsClassification() {
				continue
			}
			if seen[f.Key] {
				inf.RepeatedBlocks = append(inf.RepeatedBlocks, f.Key)
			}
			seen[f.Key] = true
			seed, err := parseSeed(f.Value)
			if err != nil {
				return nil, err
			}
			inf.Taxonomy = seed

		default:
			if !stage.wantsAttributes() {
				continue
			}
			// Identity values always come from the catalog.
			if e.Identity != nil && e.Identity.IsIdentity(f.Key) {
				continue
			}
			value, err := normalizeValue(f.Key, f.Value)
			if err != nil {
				return nil, err
			}
			inf.Attributes = append(inf.Attributes, model.InferredAttribute{Name: f.Key, Value: value})
		}
	}
	return inf, nil
}

func parseCategory(v gjson.Result) (model.CategoryClassification, error) {
	if !v.IsObject() {
		return model.CategoryClassification{}, apperr.Newf(apperr.ErrInferenceParse, "%s is not an object", model.CategoryKey)
	}
	return model.CategoryClassification{
		Category:    model.Category(strings.ToUpper(strings.TrimSpace(v.Get("CATEGORY").String()))),
		Explanation: strings.TrimSpace(v.Get("EXPLANATION").String()),
	}, nil
}

func parseSeed(v gjson.Result) (model.TaxonomySeed, error) {
	if !v.IsObject() {
		return model.TaxonomySeed{}, apperr.Newf(apperr.ErrInferenceParse, "%s is not an object", model.TaxonomyKey)
	}
	commodity := v.Get("COMMODITY")
	code := ""
	switch commodity.Type {
	case gjson.String:
		code = strings.TrimSpace(commodity.Str)
	case gjson.Number:
		code = commodity.Raw
	}
	return model.TaxonomySeed{
		Commodity:   code,
		Explanation: strings.TrimSpace(v.Get("EXPLANATION").String()),
	}, nil
}

// normalizeValue uppercases and trims attribute values. Empty strings
// become null and numbers keep their literal text.
func normalizeValue(name string, v gjson.Result) (*string, error) {
	switch v.Type {
	case gjson.Null:
		return nil, nil
	case gjson.String:
		s := strings.ToUpper(strings.TrimSpace(v.Str))
		if s == "" {
			return nil, nil
		}
		return &s, nil
	case gjson.Number, gjson.True, gjson.False:
		s := strings.ToUpper(v.Raw)
		return &s, nil
	default:
		return nil, apperr.Newf(apperr.ErrInferenceParse, "attribute %q: expected a string or null", name)
	}
}

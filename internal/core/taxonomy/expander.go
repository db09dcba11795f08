// Package taxonomy expands a commodity code into its segment, family and
// class and resolves their names.
package taxonomy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/seecat/internal/apperr"
	"github.com/agenthands/seecat/internal/core/model"
	"github.com/agenthands/seecat/internal/driver"
	"github.com/agenthands/seecat/internal/metrics"
)

// CodeLength is the length of a full commodity code.
const CodeLength = 8

// Levels derived from an 8-character commodity code.
type Levels struct {
	Segment string
	Family  string
	Class   string
}

// Derive computes the parent codes of commodity. ok is false unless the
// code has exactly CodeLength characters.
func Derive(commodity string) (Levels, bool) {
	if len(commodity) != CodeLength {
		return Levels{}, false
	}
	return Levels{
		Segment: commodity[:2] + "000000",
		Family:  commodity[:4] + "0000",
		Class:   commodity[:6] + "00",
	}, true
}

type Expander struct {
	Store         driver.TaxonomyStore
	LookupTimeout time.Duration
	// Enabled turns off derivation and lookups when false; the block then
	// carries only the commodity and its explanation.
	Enabled bool
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

func NewExpander(store driver.TaxonomyStore, lookupTimeout time.Duration, enabled bool, m *metrics.Metrics, logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{
		Store:         store,
		LookupTimeout: lookupTimeout,
		Enabled:       enabled,
		Metrics:       m,
		Logger:        logger,
	}
}

// Expand builds the X_UNSPC block for seed.
func (x *Expander) Expand(ctx context.Context, seed model.TaxonomySeed) (model.TaxonomyBlock, error) {
	code := strings.TrimSpace(seed.Commodity)

	var block model.TaxonomyBlock
	if seed.Explanation != "" {
		block.Explanation = model.StringPtr(seed.Explanation)
	}
	if code == "" {
		return block, nil
	}
	block.Commodity = model.StringPtr(code)
	if !x.Enabled {
		return block, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	lookup := func(code string, dst **string) {
		g.Go(func() error {
			name, err := x.lookup(gctx, code)
			if err != nil {
				return err
			}
			*dst = name
			return nil
		})
	}

	if levels, ok := Derive(code); ok {
		block.Segment = model.StringPtr(levels.Segment)
		block.Family = model.StringPtr(levels.Family)
		block.Class = model.StringPtr(levels.Class)
		lookup(levels.Segment, &block.SegmentName)
		lookup(levels.Family, &block.FamilyName)
		lookup(levels.Class, &block.ClassName)
	}
	lookup(code, &block.CommodityName)

	if err := g.Wait(); err != nil {
		return model.TaxonomyBlock{}, err
	}
	return block, nil
}

func (x *Expander) lookup(ctx context.Context, code string) (*string, error) {
	if x.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.LookupTimeout)
		defer cancel()
	}

	name, found, err := x.Store.Lookup(ctx, code)
	if err != nil {
		x.Metrics.CountLookup("error")
		x.Logger.Warn("taxonomy lookup failed", zap.String("code", code), zap.Error(err))
		return nil, apperr.Wrap(apperr.ErrUpstreamFetch, err, fmt.Sprintf("taxonomy lookup for %s failed", code))
	}
	if !found {
		x.Metrics.CountLookup("miss")
		return nil, nil
	}
	x.Metrics.CountLookup("hit")
	return model.StringPtr(name), nil
}

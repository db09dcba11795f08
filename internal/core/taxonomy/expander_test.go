package taxonomy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/agenthands/seecat/internal/apperr"
	"github.com/agenthands/seecat/internal/core/model"
	"github.com/agenthands/seecat/internal/driver"
	"github.com/agenthands/seecat/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func springStore() *driver.MockTaxonomyStore {
	return &driver.MockTaxonomyStore{Names: map[string]string{
		"31000000": "Manufacturing Components and Supplies",
		"31160000": "Hardware",
		"31161900": "Springs",
		"31161901": "Helical springs",
	}}
}

func str(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestDerive(t *testing.T) {
	l, ok := Derive("31161901")
	require.True(t, ok)
	assert.Equal(t, Levels{Segment: "31000000", Family: "31160000", Class: "31161900"}, l)

	for _, code := range []string{"", "3116190", "311619011", model.UncertainCommodity} {
		_, ok := Derive(code)
		assert.False(t, ok, code)
	}
}

func TestExpandFullCode(t *testing.T) {
	m := metrics.New()
	x := NewExpander(springStore(), time.Second, true, m, nil)

	b, err := x.Expand(context.Background(), model.TaxonomySeed{Commodity: "31161901", Explanation: "Helical spring"})
	require.NoError(t, err)

	assert.Equal(t, "31000000", str(b.Segment))
	assert.Equal(t, "Manufacturing Components and Supplies", str(b.SegmentName))
	assert.Equal(t, "31160000", str(b.Family))
	assert.Equal(t, "Hardware", str(b.FamilyName))
	assert.Equal(t, "31161900", str(b.Class))
	assert.Equal(t, "Springs", str(b.ClassName))
	assert.Equal(t, "31161901", str(b.Commodity))
	assert.Equal(t, "Helical springs", str(b.CommodityName))
	assert.Equal(t, "Helical spring", str(b.Explanation))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.TaxonomyLookupsTotal.WithLabelValues("hit")))
}

func TestExpandMissingNamesAreNull(t *testing.T) {
	x := NewExpander(springStore(), time.Second, true, nil, nil)

	b, err := x.Expand(context.Background(), model.TaxonomySeed{Commodity: "31161999"})
	require.NoError(t, err)
	assert.Equal(t, "31161900", str(b.Class))
	assert.Equal(t, "Springs", str(b.ClassName))
	assert.Nil(t, b.CommodityName)
	assert.Nil(t, b.Explanation)
}

func TestExpandShortCodeKeepsCommodityOnly(t *testing.T) {
	store := springStore()
	x := NewExpander(store, time.Second, true, nil, nil)

	b, err := x.Expand(context.Background(), model.TaxonomySeed{Commodity: model.UncertainCommodity, Explanation: "unsure"})
	require.NoError(t, err)
	assert.Nil(t, b.Segment)
	assert.Nil(t, b.Family)
	assert.Nil(t, b.Class)
	assert.Nil(t, b.SegmentName)
	assert.Equal(t, model.UncertainCommodity, str(b.Commodity))
	assert.Nil(t, b.CommodityName)
	assert.Equal(t, []string{model.UncertainCommodity}, store.Lookups)
}

func TestExpandEmptyCode(t *testing.T) {
	store := springStore()
	x := NewExpander(store, time.Second, true, nil, nil)

	b, err := x.Expand(context.Background(), model.TaxonomySeed{Explanation: "no code"})
	require.NoError(t, err)
	assert.Nil(t, b.Commodity)
	assert.Equal(t, "no code", str(b.Explanation))
	assert.Zero(t, store.LookupCount())
}

func TestExpandDisabled(t *testing.T) {
	store := springStore()
	x := NewExpander(store, time.Second, false, nil, nil)

	b, err := x.Expand(context.Background(), model.TaxonomySeed{Commodity: "31161901", Explanation: "e"})
	require.NoError(t, err)
	assert.Equal(t, model.TaxonomyBlock{Commodity: model.StringPtr("31161901"), Explanation: model.StringPtr("e")}, b)
	assert.Zero(t, store.LookupCount())
}

func TestExpandStoreFailure(t *testing.T) {
	m := metrics.New()
	store := &driver.MockTaxonomyStore{Err: errors.New("connection refused")}
	x := NewExpander(store, time.Second, true, m, nil)

	_, err := x.Expand(context.Background(), model.TaxonomySeed{Commodity: "31161901"})
	assert.ErrorIs(t, err, apperr.ErrUpstreamFetch)
	assert.False(t, apperr.IsRetryable(err))
	assert.Positive(t, testutil.ToFloat64(m.TaxonomyLookupsTotal.WithLabelValues("error")))
}

func TestExpandLookupTimeout(t *testing.T) {
	store := &driver.MockTaxonomyStore{Delay: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	x := NewExpander(store, 10*time.Millisecond, true, nil, nil)

	_, err := x.Expand(context.Background(), model.TaxonomySeed{Commodity: "31161901"})
	assert.ErrorIs(t, err, apperr.ErrUpstreamFetch)
	assert.True(t, apperr.IsRetryable(err))
}

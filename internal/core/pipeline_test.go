package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/seecat/internal/apperr"
	"github.com/agenthands/seecat/internal/config"
	"github.com/agenthands/seecat/internal/core/model"
	"github.com/agenthands/seecat/internal/core/schema"
	"github.com/agenthands/seecat/internal/driver"
	"github.com/agenthands/seecat/internal/llm"
	"github.com/agenthands/seecat/internal/metrics"
)

const springCatalog = `{
  "data": {
    "id": "31161900",
    "attributes": [
      {"attribute_name": "NOUN", "attribute_value": {"value": "SPRING"}},
      {"attribute_name": "MODIFIER", "attribute_value": {"value": "COMPRESSION"}},
      {"attribute_name": "WIRE DIAMETER"},
      {"attribute_name": "FREE LENGTH"},
      {"attribute_name": "MATERIAL"}
    ]
  }
}`

const springCompletion = `{
  "MATERIAL": "spring steel",
  "WIRE DIAMETER": "5MM",
  "FREE LENGTH": null,
  "X_CATEGORY": {"CATEGORY": "SPAREPART", "EXPLANATION": "Bogie suspension component replaced during maintenance"},
  "X_UNSPC": {"COMMODITY": "31161904", "EXPLANATION": "Compression springs"}
}`

var springFamilies = &config.Families{Families: []config.Family{{
	Name: "SPRING", Class: "31161900", ClassName: "Springs", Fallback: "31161911",
	Codes: []config.FamilyCode{
		{Code: "31161901", Name: "Helical springs"},
		{Code: "31161904", Name: "Compression springs"},
		{Code: "31161911", Name: "Spring assembly"},
	},
}}}

func taxonomyStore() *driver.MemoryStore {
	return driver.NewMemoryStore(
		model.TaxonomyEntry{Code: "31000000", Name: "Manufacturing Components and Supplies"},
		model.TaxonomyEntry{Code: "31160000", Name: "Hardware"},
		model.TaxonomyEntry{Code: "31161900", Name: "Springs"},
		model.TaxonomyEntry{Code: "31161904", Name: "Compression springs"},
	)
}

type fixture struct {
	pipeline *Pipeline
	catalog  *schema.MockCatalogSource
	llm      *llm.MockLLMClient
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Taxonomy.LookupTimeout = config.Duration{Duration: time.Second}
	if mutate != nil {
		mutate(cfg)
	}
	f := &fixture{
		catalog: &schema.MockCatalogSource{Body: []byte(springCatalog)},
		llm:     &llm.MockLLMClient{Response: springCompletion},
		metrics: metrics.New(),
	}
	f.pipeline = NewPipeline(cfg, Deps{
		Catalog:  f.catalog,
		LLM:      f.llm,
		Store:    taxonomyStore(),
		Families: springFamilies,
		Metrics:  f.metrics,
	})
	return f
}

const wantSpringRecord = `{"NOUN":"SPRING","MODIFIER":"COMPRESSION",` +
	`"WIRE DIAMETER":"5MM","FREE LENGTH":null,"MATERIAL":"SPRING STEEL",` +
	`"X_CATEGORY":{"CATEGORY":"SPAREPART","EXPLANATION":"Bogie suspension component replaced during maintenance"},` +
	`"X_UNSPC":{"SEGMENT":"31000000","SEGMENT_NAME":"Manufacturing Components and Supplies",` +
	`"FAMILY":"31160000","FAMILY_NAME":"Hardware","CLASS":"31161900","CLASS_NAME":"Springs",` +
	`"COMMODITY":"31161904","COMMODITY_NAME":"Compression springs","EXPLANATION":"Compression springs"}}`

func TestEnrich(t *testing.T) {
	f := newFixture(t, nil)

	rec, err := f.pipeline.Enrich(context.Background(), "SPRING COMPRESSION 5MM", "31161900")
	require.NoError(t, err)

	out, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, wantSpringRecord, string(out))

	// identity attributes are not requested from the model
	calls := f.llm.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].System, "WIRE DIAMETER, FREE LENGTH, MATERIAL\n")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PipelineRunsTotal.WithLabelValues("ok")))
}

func TestEnrichIsDeterministic(t *testing.T) {
	f := newFixture(t, nil)

	var first []byte
	for i := 0; i < 5; i++ {
		rec, err := f.pipeline.Enrich(context.Background(), "SPRING COMPRESSION 5MM", "31161900")
		require.NoError(t, err)
		out, err := rec.MarshalJSON()
		require.NoError(t, err)
		if first == nil {
			first = out
			continue
		}
		assert.Equal(t, string(first), string(out))
	}
}

func TestEnrichMissingParameters(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.pipeline.Enrich(context.Background(), "", " ")
	require.ErrorIs(t, err, apperr.ErrMissingParameter)
	assert.Contains(t, err.Error(), "material_name and category_code")
	assert.Empty(t, f.catalog.Calls)
}

func TestEnrichFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fixture)
		kind  error
	}{
		{"catalog down", func(f *fixture) { f.catalog.Err = errors.New("dial tcp: refused") }, apperr.ErrUpstreamFetch},
		{"unknown shape", func(f *fixture) { f.catalog.Body = []byte(`{"items": []}`) }, apperr.ErrSchemaFormat},
		{"flat schema without identity container", func(f *fixture) {
			f.catalog.Body = []byte(`[{"attribute_name": "COLOR"}]`)
		}, apperr.ErrSchemaFormat},
		{"empty completion", func(f *fixture) { f.llm.Response = "" }, apperr.ErrNoInferenceResult},
		{"provider without content", func(f *fixture) { f.llm.Err = llm.ErrEmptyCompletion }, apperr.ErrNoInferenceResult},
		{"malformed completion", func(f *fixture) { f.llm.Response = `{"MATERIAL": "STEEL"` }, apperr.ErrInferenceParse},
		{"contract violation", func(f *fixture) {
			f.llm.Response = `{"MATERIAL": "STEEL", "X_CATEGORY": {"CATEGORY": "SPAREPART", "EXPLANATION": "x"},
				"X_UNSPC": {"COMMODITY": "31161904"}}`
		}, apperr.ErrContractViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			tt.setup(f)
			rec, err := f.pipeline.Enrich(context.Background(), "SPRING", "31161900")
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestEnrichRejectsRepeatedSchemaAttribute(t *testing.T) {
	f := newFixture(t, nil)
	f.catalog.Body = []byte(`{"data": {"attributes": [
		{"attribute_name": "NOUN", "attribute_value": {"value": "SPRING"}},
		{"attribute_name": "MATERIAL"},
		{"attribute_name": "MATERIAL"}
	]}}`)
	f.llm.Response = `{"MATERIAL": "STEEL",
		"X_CATEGORY": {"CATEGORY": "SPAREPART", "EXPLANATION": "x"},
		"X_UNSPC": {"COMMODITY": "31161904", "EXPLANATION": "y"}}`

	rec, err := f.pipeline.Enrich(context.Background(), "SPRING", "31161900")
	assert.Nil(t, rec)
	require.ErrorIs(t, err, apperr.ErrContractViolation)
	assert.Contains(t, err.Error(), `duplicate key "MATERIAL"`)
}

func TestEnrichUnderscoreIdentitySpelling(t *testing.T) {
	f := newFixture(t, nil)
	f.catalog.Body = []byte(`{"data": {"attributes": [
		{"attribute_name": "NOUN", "attribute_value": {"value": "SPRING"}},
		{"attribute_name": "MODIFIER_1", "attribute_value": {"value": "HELICAL"}},
		{"attribute_name": "MATERIAL"}
	]}}`)
	f.llm.Response = `{"MATERIAL": "STEEL",
		"X_CATEGORY": {"CATEGORY": "SPAREPART", "EXPLANATION": "x"},
		"X_UNSPC": {"COMMODITY": "31161904", "EXPLANATION": "y"}}`

	rec, err := f.pipeline.Enrich(context.Background(), "SPRING HELICAL", "31161900")
	require.NoError(t, err)
	assert.Equal(t, []string{"NOUN", "MODIFIER_1", "MATERIAL", model.CategoryKey, model.TaxonomyKey}, rec.Keys())

	out, err := rec.Identity.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"NOUN":"SPRING","MODIFIER_1":"HELICAL"}`, string(out))
}

func TestEnrichWithoutIdentityWhitelist(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Pipeline.IdentityWhitelist = false })
	f.llm.Response = `{"NOUN": "spring", "MODIFIER": "compression", "WIRE DIAMETER": "5MM", "FREE LENGTH": null,
		"MATERIAL": null, "X_CATEGORY": {"CATEGORY": "SPAREPART", "EXPLANATION": "x"},
		"X_UNSPC": {"COMMODITY": "31161904", "EXPLANATION": "y"}}`

	rec, err := f.pipeline.Enrich(context.Background(), "SPRING", "31161900")
	require.NoError(t, err)
	assert.Empty(t, rec.Identity)
	require.Len(t, rec.Attributes, 5)
	assert.Equal(t, "NOUN", rec.Attributes[0].Name)
	assert.Equal(t, "SPRING", *rec.Attributes[0].Value)
}

func TestEnrichWithoutExpansion(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Pipeline.ExpandTaxonomy = false })

	rec, err := f.pipeline.Enrich(context.Background(), "SPRING", "31161900")
	require.NoError(t, err)
	assert.Nil(t, rec.Taxonomy.Segment)
	assert.Nil(t, rec.Taxonomy.CommodityName)
	assert.Equal(t, "31161904", *rec.Taxonomy.Commodity)
}

func TestAttributesAndIdentity(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	names, err := f.pipeline.Attributes(ctx, "31161900")
	require.NoError(t, err)
	assert.Equal(t, []string{"NOUN", "MODIFIER", "WIRE DIAMETER", "FREE LENGTH", "MATERIAL"}, names)

	ident, err := f.pipeline.IdentityOf(ctx, "31161900")
	require.NoError(t, err)
	out, err := ident.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"NOUN":"SPRING","MODIFIER":"COMPRESSION"}`, string(out))

	_, err = f.pipeline.Attributes(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrMissingParameter)
}

func TestSearchAndLookup(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	got, err := f.pipeline.Search(ctx, "3116")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = f.pipeline.Search(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrMissingParameter)

	e, found, err := f.pipeline.Lookup(ctx, "31161900")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Springs", e.Name)
}

func TestExplain(t *testing.T) {
	f := newFixture(t, nil)
	f.llm.Response = "A compression spring resists axial load."

	out, err := f.pipeline.Explain(context.Background(), "what is a compression spring")
	require.NoError(t, err)
	assert.Equal(t, "A compression spring resists axial load.", out)
	assert.Equal(t, explainPrompt, f.llm.Calls()[0].System)
	assert.False(t, f.llm.Calls()[0].JSON)

	_, err = f.pipeline.Explain(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrMissingParameter)

	f.llm.Err = llm.ErrEmptyCompletion
	_, err = f.pipeline.Explain(context.Background(), "what is a leaf spring")
	assert.ErrorIs(t, err, apperr.ErrNoInferenceResult)
	assert.NotErrorIs(t, err, apperr.ErrUpstreamFetch)
}

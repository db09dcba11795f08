package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichedRecordMarshalOrder(t *testing.T) {
	rec := EnrichedRecord{
		Identity: IdentityMapping{
			{Name: "NOUN", Value: json.RawMessage(`"SPRING"`)},
			{Name: "MODIFIER", Value: json.RawMessage(`"COMPRESSION"`)},
		},
		Attributes: []InferredAttribute{
			{Name: "WIRE DIAMETER", Value: StringPtr("5MM")},
			{Name: "MATERIAL", Value: nil},
		},
		Category: CategoryClassification{Category: CategorySparePart, Explanation: "bogie suspension part"},
		Taxonomy: TaxonomyBlock{
			Commodity: StringPtr("31161904"),
		},
	}

	out, err := rec.MarshalJSON()
	require.NoError(t, err)

	want := `{"NOUN":"SPRING","MODIFIER":"COMPRESSION","WIRE DIAMETER":"5MM","MATERIAL":null,` +
		`"X_CATEGORY":{"CATEGORY":"SPAREPART","EXPLANATION":"bogie suspension part"},` +
		`"X_UNSPC":{"SEGMENT":null,"SEGMENT_NAME":null,"FAMILY":null,"FAMILY_NAME":null,` +
		`"CLASS":null,"CLASS_NAME":null,"COMMODITY":"31161904","COMMODITY_NAME":null,"EXPLANATION":null}}`
	assert.Equal(t, want, string(out))
	assert.Equal(t, []string{"NOUN", "MODIFIER", "WIRE DIAMETER", "MATERIAL", CategoryKey, TaxonomyKey}, rec.Keys())
}

func TestIdentityMappingKeepsRawBytes(t *testing.T) {
	m := IdentityMapping{{Name: "NOUN", Value: json.RawMessage(`"BOLT & NUT"`)}}

	out, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"NOUN":"BOLT & NUT"}`, string(out))
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryTools.Valid())
	assert.False(t, Category("CONSUMABLE").Valid())
	assert.False(t, Category("tools").Valid())
}

package model

import (
	"bytes"
	"encoding/json"
)

const (
	CategoryKey = "X_CATEGORY"
	TaxonomyKey = "X_UNSPC"
)

// EnrichedRecord is the single output of the pipeline.
type EnrichedRecord struct {
	Identity   IdentityMapping
	Attributes []InferredAttribute
	Category   CategoryClassification
	Taxonomy   TaxonomyBlock
}

// Keys lists the top-level keys in emission order.
func (r EnrichedRecord) Keys() []string {
	keys := make([]string, 0, len(r.Identity)+len(r.Attributes)+2)
	for _, a := range r.Identity {
		keys = append(keys, a.Name)
	}
	for _, a := range r.Attributes {
		keys = append(keys, a.Name)
	}
	return append(keys, CategoryKey, TaxonomyKey)
}

// MarshalJSON emits identity attributes, inferred attributes, the category
// block and the taxonomy block, in that order. Write its output directly:
// json.Marshal re-escapes HTML characters in Marshaler output, which would
// alter identity values.
func (r EnrichedRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	sep := func() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
	}

	for _, a := range r.Identity {
		sep()
		if err := writeField(&buf, a.Name, a.Value); err != nil {
			return nil, err
		}
	}
	for _, a := range r.Attributes {
		sep()
		var raw json.RawMessage
		if a.Value != nil {
			v, err := encode(*a.Value)
			if err != nil {
				return nil, err
			}
			raw = v
		}
		if err := writeField(&buf, a.Name, raw); err != nil {
			return nil, err
		}
	}

	category, err := encode(r.Category)
	if err != nil {
		return nil, err
	}
	sep()
	if err := writeField(&buf, CategoryKey, category); err != nil {
		return nil, err
	}

	taxonomy, err := encode(r.Taxonomy)
	if err != nil {
		return nil, err
	}
	sep()
	if err := writeField(&buf, TaxonomyKey, taxonomy); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encode marshals v without HTML escaping.
func encode(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

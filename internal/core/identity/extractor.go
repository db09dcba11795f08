// Package identity isolates the NOUN/MODIFIER attributes of a category
// schema. Their values are copied from the catalog and never inferred.
package identity

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/agenthands/seecat/internal/apperr"
	"github.com/agenthands/seecat/internal/core/common"
	"github.com/agenthands/seecat/internal/core/model"
)

// attributesPath is the only response shape that carries configured values.
const attributesPath = "data.attributes"

type Extractor struct {
	whitelist []string
}

func NewExtractor(whitelist []string) *Extractor {
	return &Extractor{whitelist: append([]string(nil), whitelist...)}
}

// Names returns the whitelist in declaration order.
func (e *Extractor) Names() []string {
	return append([]string(nil), e.whitelist...)
}

// IsIdentity reports whether an attribute name refers to an identity
// attribute. Spaces and underscores are treated as equivalent
// ("MODIFIER 1" and "MODIFIER_1") and case is ignored.
func (e *Extractor) IsIdentity(name string) bool {
	norm := normalize(name)
	for _, w := range e.whitelist {
		if normalize(w) == norm {
			return true
		}
	}
	return false
}

func normalize(name string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", " "))
}

// Extract returns the whitelisted attributes of the raw catalog body that
// carry a value, in the order they appear in the catalog. Names are matched
// like IsIdentity and emitted with the catalog's spelling.
func (e *Extractor) Extract(body []byte) (model.IdentityMapping, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperr.New(apperr.ErrSchemaFormat, "Invalid data format: catalog response is not valid JSON")
	}
	items := gjson.GetBytes(body, attributesPath)
	if !items.IsArray() {
		return nil, apperr.Newf(apperr.ErrSchemaFormat, "Invalid data format: %s is not a list", attributesPath)
	}

	mapping := model.IdentityMapping{}
	for _, item := range items.Array() {
		name := item.Get("attribute_name")
		if name.Type != gjson.String || !e.IsIdentity(name.Str) {
			continue
		}
		value := item.Get("attribute_value.value")
		if !common.Truthy(value) {
			continue
		}
		mapping = append(mapping, model.IdentityAttribute{
			Name:  name.Str,
			Value: []byte(value.Raw),
		})
	}
	return mapping, nil
}

// Exclude drops identity attributes from names, keeping order.
func (e *Extractor) Exclude(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if e.IsIdentity(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

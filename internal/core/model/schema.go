package model

import "encoding/json"

// AttributeDefinition is one attribute of a category schema as returned by
// the catalog. Raw holds the untouched catalog item.
type AttributeDefinition struct {
	Name string          `json:"attribute_name"`
	Raw  json.RawMessage `json:"-"`
}

// SchemaResponse is the parsed result of one catalog fetch.
type SchemaResponse struct {
	CategoryCode string
	// Shape names the response form that matched, e.g. "data.attributes".
	Shape      string
	Attributes []AttributeDefinition
	// Body is the raw catalog response, kept so that later stages read the
	// same fetch.
	Body []byte
}

// Names returns the attribute names in catalog order.
func (s *SchemaResponse) Names() []string {
	names := make([]string, len(s.Attributes))
	for i, a := range s.Attributes {
		names[i] = a.Name
	}
	return names
}

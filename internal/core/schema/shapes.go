package schema

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/agenthands/seecat/internal/core/model"
)

// shapeParser recognises one catalog response form. Parsers are tried in
// order and the first whose container is an array wins, even if that array
// is empty.
type shapeParser struct {
	name string
	// path is the gjson path of the attribute array; "" is the document root.
	path string
	// bareNames marks arrays of plain strings instead of attribute objects.
	bareNames bool
}

var shapeParsers = []shapeParser{
	{name: "array", path: ""},
	{name: "data", path: "data"},
	{name: "data.attributes", path: "data.attributes"},
	{name: "attributes", path: "attributes"},
	{name: "attribute_name", path: "attribute_name", bareNames: true},
}

type parseResult struct {
	matched    bool
	attributes []model.AttributeDefinition
	err        error
}

func (p shapeParser) parse(doc gjson.Result) parseResult {
	container := doc
	if p.path != "" {
		container = doc.Get(p.path)
	}
	if !container.IsArray() {
		return parseResult{}
	}

	items := container.Array()
	attrs := make([]model.AttributeDefinition, 0, len(items))
	for i, item := range items {
		var name gjson.Result
		if p.bareNames {
			name = item
		} else {
			if !item.IsObject() {
				return parseResult{matched: true, err: fmt.Errorf("%s[%d]: expected an attribute object", p.name, i)}
			}
			name = item.Get("attribute_name")
		}
		if name.Type != gjson.String {
			return parseResult{matched: true, err: fmt.Errorf("%s[%d]: attribute_name is not a string", p.name, i)}
		}
		attrs = append(attrs, model.AttributeDefinition{
			Name: name.Str,
			Raw:  []byte(item.Raw),
		})
	}
	return parseResult{matched: true, attributes: attrs}
}

// ParseAttributes reads the attribute list out of a catalog response body.
// It returns the name of the matched shape.
func ParseAttributes(body []byte) (string, []model.AttributeDefinition, error) {
	if !gjson.ValidBytes(body) {
		return "", nil, fmt.Errorf("catalog response is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	for _, p := range shapeParsers {
		res := p.parse(doc)
		if !res.matched {
			continue
		}
		if res.err != nil {
			return p.name, nil, res.err
		}
		return p.name, res.attributes, nil
	}
	return "", nil, fmt.Errorf("no recognised attribute list in catalog response")
}

package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrNoJSONObject = errors.New("no JSON object found in response (missing '{')")

// Field is one key/value pair of a JSON object, in document order.
type Field struct {
	Key   string
	Value gjson.Result
}

// ExtractObject cuts the outermost JSON object out of an LLM response,
// dropping surrounding markdown fences or prose.
func ExtractObject(response string) (string, error) {
	start := strings.IndexByte(response, '{')
	if start == -1 {
		return "", ErrNoJSONObject
	}
	end := strings.LastIndexByte(response, '}')
	if end < start {
		return "", fmt.Errorf("unterminated JSON object in response")
	}
	return response[start : end+1], nil
}

// ParseObjectFields parses an LLM response as a single JSON object and
// returns its fields in document order. Duplicate keys are preserved.
func ParseObjectFields(response string) ([]Field, error) {
	jsonStr, err := ExtractObject(response)
	if err != nil {
		return nil, err
	}
	if !gjson.Valid(jsonStr) {
		return nil, fmt.Errorf("invalid JSON object\nData: %s", jsonStr)
	}
	obj := gjson.Parse(jsonStr)
	if !obj.IsObject() {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	return Fields(obj), nil
}

// Fields lists the members of a gjson object in document order.
func Fields(obj gjson.Result) []Field {
	var fields []Field
	obj.ForEach(func(key, value gjson.Result) bool {
		fields = append(fields, Field{Key: key.String(), Value: value})
		return true
	})
	return fields
}

// Truthy mirrors how the catalog tooling decides that a value is "set":
// null, false, "", and 0 are not.
func Truthy(v gjson.Result) bool {
	if !v.Exists() {
		return false
	}
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	default:
		return true
	}
}

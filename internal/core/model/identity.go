package model

import (
	"bytes"
	"encoding/json"
)

// IdentityAttribute is a NOUN/MODIFIER value copied from the catalog. Value
// holds the raw JSON of the catalog's attribute_value.value.
type IdentityAttribute struct {
	Name  string
	Value json.RawMessage
}

// IdentityMapping keeps identity attributes in catalog order.
type IdentityMapping []IdentityAttribute

// MarshalJSON writes the mapping as one ordered JSON object.
func (m IdentityMapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeField(&buf, a.Name, a.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key string, raw json.RawMessage) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	if len(raw) == 0 {
		buf.WriteString("null")
		return nil
	}
	buf.Write(raw)
	return nil
}

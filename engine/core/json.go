package core

import (
	"encoding/json"
	"fmt"
)

// MarshalJSONValue encodes v as compact JSON without HTML escaping.
func MarshalJSONValue(v any) ([]byte, error) {
	return marshalNoEscape(v)
}

// UnmarshalJSONValue decodes a stored JSON document into generic Go values.
// Empty input decodes to nil.
func UnmarshalJSONValue(b []byte) (any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode json value: %w", err)
	}
	return v, nil
}

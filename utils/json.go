package utils

import (
	"encoding/json"
)

// StructToMap round-trips a struct through JSON into a generic map.
// Used to feed typed records into the key-based insured-info normalizer.
func StructToMap(input any) (map[string]interface{}, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

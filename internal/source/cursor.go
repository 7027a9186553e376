package source

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// DecodeCursor decodes the wire cursor (base64-encoded JSON, opaque at
// the boundary) into the source-defined interior shape v.
func DecodeCursor(raw string, v any) error {
	if raw == "" {
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("source: decode cursor: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("source: unmarshal cursor: %w", err)
	}

	return nil
}

// EncodeCursor serializes v into the wire cursor representation.
func EncodeCursor(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("source: marshal cursor: %w", err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

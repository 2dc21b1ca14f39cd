package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalStrings converts a string list to JSON TEXT for storage.
// A nil list is stored as "[]".
func marshalStrings(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // store &, < and > literally
	if err := enc.Encode(list); err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalStrings parses JSON TEXT into a non-nil string list.
func unmarshalStrings(data string) ([]string, error) {
	out := []string{}
	if data == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return out, nil
}

package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// MarshalNoEscape encodes v without escaping <, > and & and without the
// trailing newline json.Encoder adds.
func MarshalNoEscape(v any) ([]byte, error) {
	return encode(v, "")
}

// MarshalIndentNoEscape is MarshalNoEscape with indentation. Struct field order
// is preserved, which matters for files people read (package.json, tsconfig).
func MarshalIndentNoEscape(v any, indent string) ([]byte, error) {
	return encode(v, indent)
}

func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalFlex unmarshals raw into v, retrying once when the payload arrives
// as a JSON string that itself contains JSON (double-encoded documents are
// common when manifests travel through other JSON envelopes).
func UnmarshalFlex(raw []byte, v any) error {
	err := json.Unmarshal(raw, v)
	if err == nil {
		return nil
	}
	var inner string
	if json.Unmarshal(raw, &inner) != nil {
		return err
	}
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return fmt.Errorf("empty JSON document: %w", err)
	}
	return json.Unmarshal([]byte(inner), v)
}

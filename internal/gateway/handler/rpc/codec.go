package rpc

import (
	"encoding/json"
	"fmt"

	"wizard/internal/util/jsonutil"
)

// jsonCodec replaces connect's protojson codec so handlers can exchange plain
// Go structs under the "json" content type.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return jsonutil.MarshalNoEscape(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("decode json message: %w", err)
	}
	return nil
}

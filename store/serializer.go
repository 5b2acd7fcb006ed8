package store

import (
	"encoding/json"
	"fmt"

	"github.com/blockberries/mina-signer-go/types"
)

// JSONSerializer encodes values with encoding/json. Struct members encode in
// declaration order, so a record always maps to the same bytes and the
// journal can compare stored values byte for byte.
type JSONSerializer[T any] struct{}

// NewJSONSerializer returns a JSONSerializer for T.
func NewJSONSerializer[T any]() *JSONSerializer[T] {
	return &JSONSerializer[T]{}
}

// Marshal encodes v.
func (JSONSerializer[T]) Marshal(v T) ([]byte, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return out, nil
}

// Unmarshal decodes data. Stored bytes that no longer decode are reported as
// malformed input.
func (JSONSerializer[T]) Unmarshal(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: decode %T: %v", types.ErrMalformedInput, v, err)
	}
	return v, nil
}

package record

import (
	"fmt"
	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes a record for the store.
func Encode(r *VideoRecord) ([]byte, error) {
	b, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return b, nil
}

// Decode parses a stored record. The input slice is not retained.
func Decode(b []byte) (*VideoRecord, error) {
	r := &VideoRecord{}
	if err := msgpack.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return r, nil
}

package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CanonicalJSON returns a stable JSON encoding of v.
// The value is round-tripped through encoding/json so that equal JSON content
// produces equal bytes regardless of Go type: object keys are sorted, numbers
// keep their literal form, and HTML characters are not escaped.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := marshalNoEscape(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonical json: %w", err)
	}
	return marshalNoEscape(generic)
}

func marshalNoEscape(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical json: %w", err)
	}
	return bytes.TrimSuffix(b.Bytes(), []byte{'\n'}), nil
}

// StableJSONBytes returns the canonical JSON for v, or "null" when v cannot be encoded.
func StableJSONBytes(v any) []byte {
	b, err := CanonicalJSON(v)
	if err != nil {
		return []byte("null")
	}
	return b
}

// HashHex returns the hex-encoded SHA-256 digest of b.
func HashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ETagFromAny returns a deterministic SHA-256 hex digest of the canonical
// JSON form of v.
func ETagFromAny(v any) string {
	return HashHex(StableJSONBytes(v))
}

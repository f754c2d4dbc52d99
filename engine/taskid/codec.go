// Package taskid encodes ordered task references into compact identifiers.
//
// A simple identifier is the unpadded base64url form of the JSON document
// {"taskIds":[...]}. Compound identifiers join simple identifiers with '+'
// and decode to the flattened reference list in order.
package taskid

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Separator joins simple identifiers into a compound identifier.
const Separator = "+"

// ErrEmptyRefs is returned when encoding an empty reference list.
var ErrEmptyRefs = errors.New("taskid: at least one task reference is required")

type payload struct {
	TaskIDs []string `json:"taskIds"`
}

// Encode returns the simple identifier addressing refs in order.
func Encode(refs []string) (string, error) {
	if len(refs) == 0 {
		return "", ErrEmptyRefs
	}
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload{TaskIDs: refs}); err != nil {
		return "", fmt.Errorf("taskid: encode refs: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes.TrimSuffix(b.Bytes(), []byte{'\n'})), nil
}

// MustEncode is Encode for callers holding a known non-empty list.
func MustEncode(refs []string) string {
	id, err := Encode(refs)
	if err != nil {
		panic(err)
	}
	return id
}

// Decode splits id on '+' and returns the concatenated references of every segment.
func Decode(id string) ([]string, error) {
	if id == "" {
		return nil, NewDecodeIDError(id, "identifier is empty", nil)
	}
	var refs []string
	for _, segment := range strings.Split(id, Separator) {
		part, err := decodeSegment(id, segment)
		if err != nil {
			return nil, err
		}
		refs = append(refs, part...)
	}
	return refs, nil
}

func decodeSegment(id, segment string) ([]string, error) {
	if segment == "" {
		return nil, NewDecodeIDError(id, "empty segment", nil)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(segment, "="))
	if err != nil {
		return nil, NewDecodeIDError(id, "segment is not base64url", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, NewDecodeIDError(id, "segment is not a JSON object", err)
	}
	field, ok := doc["taskIds"]
	if !ok {
		return nil, NewDecodeIDError(id, "taskIds missing", nil)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(field, &items); err != nil || items == nil {
		return nil, NewDecodeIDError(id, "taskIds is not an array", err)
	}
	if len(items) == 0 {
		return nil, NewDecodeIDError(id, "taskIds is empty", nil)
	}
	refs := make([]string, 0, len(items))
	for _, item := range items {
		ref, err := refString(item)
		if err != nil {
			return nil, NewDecodeIDError(id, "taskIds entry is not a reference", err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// refString accepts string references and, for identifiers minted by older
// clients, bare numbers which are kept in their literal form.
func refString(item json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(item))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Append decodes id and each of others, then encodes all references as one identifier.
func Append(id string, others ...string) (string, error) {
	refs, err := Decode(id)
	if err != nil {
		return "", err
	}
	for _, other := range others {
		more, err := Decode(other)
		if err != nil {
			return "", err
		}
		refs = append(refs, more...)
	}
	return Encode(refs)
}

// Join concatenates identifiers with '+' without decoding them.
func Join(ids ...string) string {
	return strings.Join(ids, Separator)
}

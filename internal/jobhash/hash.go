// Package jobhash computes the deterministic deduplication fingerprint of a
// job submission and generates unique identifiers.
package jobhash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Compute returns the lowercase hex SHA-256 fingerprint of the given job type
// and input parameters. Two submissions with semantically equal parameters
// produce the same fingerprint regardless of key ordering in the request body.
func Compute(jobType string, inputParams json.RawMessage) (string, error) {
	canonical, err := Canonicalize(inputParams)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize input params: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"input_params":`)
	buf.Write(canonical)
	buf.WriteString(`,"job_type":`)
	typeJSON, err := json.Marshal(jobType)
	if err != nil {
		return "", fmt.Errorf("failed to encode job type: %w", err)
	}
	buf.Write(typeJSON)
	buf.WriteString(`}`)

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// Canonicalize re-encodes a JSON document into its canonical form: object keys
// sorted lexicographically at every nesting depth, array order preserved,
// scalars encoded with their original numeric representation.
func Canonicalize(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, value interface{}) error {
	switch v := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyJSON, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(keyJSON)
			buf.WriteByte(':')
			if err := writeCanonical(buf, v[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case json.Number:
		buf.WriteString(v.String())
		return nil
	default:
		// strings, booleans, and null
		scalarJSON, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(scalarJSON)
		return nil
	}
}

// NewID returns a new random 128-bit identifier in hyphenated hex form.
func NewID() string {
	return uuid.NewString()
}

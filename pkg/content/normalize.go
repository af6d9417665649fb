package content

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Upstream crawlers sometimes serialize the extracted content more than once
// before it reaches this service. The cap keeps adversarial deeply nested
// encodings from spinning the decoder.
const maxDecodeDepth = 5

var (
	ErrEmptyContent  = errors.New("extracted content is empty")
	ErrInvalidJSON   = errors.New("extracted content is not valid JSON")
	ErrTooManyLayers = errors.New("extracted content is JSON-encoded too many times")
)

// NotObjectError reports a terminal value that decoded to something other
// than a JSON object.
type NotObjectError struct {
	Type string
}

func (e *NotObjectError) Error() string {
	return fmt.Sprintf("extracted content is %s, not a JSON object", e.Type)
}

// Normalize unwraps possibly multiply-JSON-encoded content into a single
// object. A map passes through unchanged; a string is decoded repeatedly
// until a non-string value is reached, up to maxDecodeDepth decodes.
func Normalize(v any) (map[string]any, error) {
	decodes := 0
	for {
		switch value := v.(type) {
		case map[string]any:
			if len(value) == 0 {
				return nil, ErrEmptyContent
			}
			return value, nil
		case string:
			if decodes >= maxDecodeDepth {
				return nil, ErrTooManyLayers
			}
			decodes++
			var decoded any
			if err := json.Unmarshal([]byte(value), &decoded); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
			v = decoded
		default:
			return nil, &NotObjectError{Type: typeName(v)}
		}
	}
}

// NormalizeRaw decodes a raw JSON document and normalizes the result.
func NormalizeRaw(data []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return Normalize(v)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

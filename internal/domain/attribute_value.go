package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// AttributeKind tags which field of an AttributeValue is populated
type AttributeKind string

const (
	AttributeText   AttributeKind = "text"
	AttributeNumber AttributeKind = "number"
	AttributeBool   AttributeKind = "bool"
	AttributeList   AttributeKind = "list"
	// AttributeRaw keeps JSON the model returned that fits none of the other kinds
	AttributeRaw AttributeKind = "raw"
)

// AttributeValue is a category specific attribute (e.g. "storage": "128GB").
// The model is free to return any JSON here; values that are not a string,
// number, bool or string list are kept verbatim as Raw.
type AttributeValue struct {
	Kind   AttributeKind
	Text   string
	Number float64
	Bool   bool
	List   []string
	Raw    json.RawMessage
}

// TextValue builds a text attribute
func TextValue(s string) AttributeValue {
	return AttributeValue{Kind: AttributeText, Text: s}
}

// NumberValue builds a numeric attribute
func NumberValue(n float64) AttributeValue {
	return AttributeValue{Kind: AttributeNumber, Number: n}
}

// String renders the value for prompts and listing text
func (v AttributeValue) String() string {
	switch v.Kind {
	case AttributeText:
		return v.Text
	case AttributeNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case AttributeBool:
		if v.Bool {
			return "yes"
		}
		return "no"
	case AttributeList:
		return strings.Join(v.List, ", ")
	case AttributeRaw:
		if bytes.Equal(v.Raw, []byte("null")) {
			return ""
		}
		return string(v.Raw)
	default:
		return ""
	}
}

// MarshalJSON writes the value back in its natural JSON form
func (v AttributeValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AttributeText:
		return json.Marshal(v.Text)
	case AttributeNumber:
		return json.Marshal(v.Number)
	case AttributeBool:
		return json.Marshal(v.Bool)
	case AttributeList:
		return json.Marshal(v.List)
	case AttributeRaw:
		if len(v.Raw) == 0 {
			return []byte("null"), nil
		}
		return v.Raw, nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON classifies arbitrary JSON into one of the attribute kinds
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)

	// null decodes into every kind below without error, so it is kept as raw
	if bytes.Equal(trimmed, []byte("null")) {
		*v = AttributeValue{Kind: AttributeRaw, Raw: json.RawMessage("null")}
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		*v = AttributeValue{Kind: AttributeText, Text: s}
		return nil
	}

	var n float64
	if err := json.Unmarshal(trimmed, &n); err == nil {
		*v = AttributeValue{Kind: AttributeNumber, Number: n}
		return nil
	}

	var b bool
	if err := json.Unmarshal(trimmed, &b); err == nil {
		*v = AttributeValue{Kind: AttributeBool, Bool: b}
		return nil
	}

	var list []string
	if err := json.Unmarshal(trimmed, &list); err == nil {
		*v = AttributeValue{Kind: AttributeList, List: list}
		return nil
	}

	*v = AttributeValue{Kind: AttributeRaw, Raw: append(json.RawMessage(nil), trimmed...)}
	return nil
}

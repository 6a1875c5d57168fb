package marketplace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexFloat accepts a number, a numeric string, null, or a money object
// {"amount": x}. Anything unparseable decodes to 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	switch b[0] {
	case '{':
		var obj struct {
			Amount *flexFloat `json:"amount"`
			Value  *flexFloat `json:"value"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			*f = 0
			return nil
		}
		switch {
		case obj.Amount != nil:
			*f = *obj.Amount
		case obj.Value != nil:
			*f = *obj.Value
		default:
			*f = 0
		}
		return nil
	case '"':
		var s string
		_ = json.Unmarshal(b, &s)
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			v = 0
		}
		*f = flexFloat(v)
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		v = 0
	}
	*f = flexFloat(v)
	return nil
}

// flexString accepts a string or a number (ids are sometimes numeric)
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(string(b))
	return nil
}

// decodeList accepts either a bare array or an object wrapping the array under
// one of keys.
func decodeList[T any](b []byte, keys ...string) ([]T, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	if b[0] == '[' {
		var arr []T
		if err := json.Unmarshal(b, &arr); err != nil {
			return nil, fmt.Errorf("list payload parse: %w", err)
		}
		return arr, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, fmt.Errorf("list payload parse: %w", err)
	}
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var arr []T
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, fmt.Errorf("list payload %q parse: %w", k, err)
		}
		return arr, nil
	}
	return nil, nil
}

// firstNonEmpty of the candidates
func firstNonEmpty(vals ...flexString) string {
	for _, v := range vals {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

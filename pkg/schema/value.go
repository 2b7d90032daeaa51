package schema

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// ValueKind discriminates the answer variants.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindText
	KindList
	KindBool
)

// Value is a single user answer: free text, a set of selected options, or a
// boolean (agreement checkboxes). The zero Value is an empty answer.
type Value struct {
	kind ValueKind
	text string
	list []string
	flag bool
}

// Text builds a scalar answer.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// List builds a multi-value answer. The input order is preserved.
func List(values ...string) Value {
	return Value{kind: KindList, list: cloneStrings(values)}
}

// Bool builds a boolean answer.
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

// ValueOf converts decoded JSON (string, bool, number, []any, []string) into
// a Value. Unsupported shapes report false.
func ValueOf(raw any) (Value, bool) {
	switch v := raw.(type) {
	case nil:
		return Value{}, true
	case Value:
		return v, true
	case string:
		return Text(v), true
	case bool:
		return Bool(v), true
	case float64:
		return Text(strconv.FormatFloat(v, 'f', -1, 64)), true
	case int:
		return Text(strconv.Itoa(v)), true
	case []string:
		return List(v...), true
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			switch typed := item.(type) {
			case string:
				items = append(items, typed)
			case float64:
				items = append(items, strconv.FormatFloat(typed, 'f', -1, 64))
			case bool:
				items = append(items, strconv.FormatBool(typed))
			default:
				return Value{}, false
			}
		}
		return List(items...), true
	default:
		return Value{}, false
	}
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether the answer is empty.
func (v Value) IsZero() bool {
	switch v.kind {
	case KindText:
		return v.text == ""
	case KindList:
		return len(v.list) == 0
	case KindBool:
		return false
	default:
		return true
	}
}

// Strings returns the answer as a list of raw members. Scalars yield one
// element, booleans yield "true" or "false", empty answers yield nil.
func (v Value) Strings() []string {
	switch v.kind {
	case KindText:
		return []string{v.text}
	case KindList:
		return cloneStrings(v.list)
	case KindBool:
		return []string{strconv.FormatBool(v.flag)}
	default:
		return nil
	}
}

// Bool returns the boolean payload and whether the value is a boolean.
func (v Value) Bool() (bool, bool) {
	return v.flag, v.kind == KindBool
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindList:
		return fmt.Sprint(v.list)
	case KindBool:
		return strconv.FormatBool(v.flag)
	default:
		return ""
	}
}

// Equal reports exact equality, including list order.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == other.text
	case KindBool:
		return v.flag == other.flag
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != other.list[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// MarshalJSON encodes the natural JSON shape of the variant.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindBool:
		return json.Marshal(v.flag)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a string, bool, number, array or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value{}
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("schema: decode answer: %w", err)
	}
	decoded, ok := ValueOf(raw)
	if !ok {
		return fmt.Errorf("schema: unsupported answer shape %s", string(data))
	}
	*v = decoded
	return nil
}

package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Arg is one name/value pair in an ordered mapping field. Value holds the
// reference expression or literal exactly as the author wrote it.
type Arg struct {
	Name  string
	Value string
}

// Args is an insertion-ordered mapping used for input_args and
// output_mapper. Author-supplied key order is significant: it survives
// JSON round-trips and canonical serialization unchanged, unlike a Go map.
type Args []Arg

// Get returns the value for name and whether it is present.
func (a Args) Get(name string) (string, bool) {
	for _, arg := range a {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return "", false
}

// Names returns the argument names in insertion order.
func (a Args) Names() []string {
	names := make([]string, len(a))
	for i, arg := range a {
		names[i] = arg.Name
	}
	return names
}

// MarshalJSON emits an ordered JSON object.
func (a Args) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, arg := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(arg.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(arg.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order. Scalar values
// of any JSON type are kept as their textual form.
func (a *Args) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("args: expected object, got %v", tok)
	}

	out := Args{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("args: expected string key, got %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		var val string
		switch v := valTok.(type) {
		case string:
			val = v
		case json.Number:
			val = v.String()
		case bool:
			if v {
				val = "true"
			} else {
				val = "false"
			}
		case nil:
			val = ""
		default:
			return fmt.Errorf("args: value for %q must be a scalar", key)
		}
		out = append(out, Arg{Name: key, Value: val})
	}

	if _, err := dec.Token(); err != nil { // consume '}'
		return err
	}
	*a = out
	return nil
}

package executor

import (
	"bytes"
	"encoding/json"
)

// Object is a response object. Keys keep the order their fields were
// selected in, and MarshalJSON writes them in that order.
type Object struct {
	Keys   []string
	Values map[string]any
}

// NewObject returns an empty object with room for n keys.
func NewObject(n int) *Object {
	return &Object{Keys: make([]string, 0, n), Values: make(map[string]any, n)}
}

// ObjectOf builds an object from alternating key and value arguments.
func ObjectOf(kv ...any) *Object {
	o := NewObject(len(kv) / 2)
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i].(string), kv[i+1])
	}
	return o
}

// Set stores value under key. A new key is appended; an existing key keeps
// its position.
func (o *Object) Set(key string, value any) {
	if _, ok := o.Values[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = value
}

func (o *Object) Get(key string) (any, bool) {
	v, ok := o.Values[key]
	return v, ok
}

func (o *Object) Len() int { return len(o.Keys) }

func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(o.Values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Plain converts response objects in v to map[string]any, recursively,
// for consumers that do not care about key order.
func Plain(v any) any {
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return nil
		}
		m := make(map[string]any, len(t.Keys))
		for _, k := range t.Keys {
			m[k] = Plain(t.Values[k])
		}
		return m
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Plain(e)
		}
		return out
	default:
		return v
	}
}

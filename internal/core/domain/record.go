package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type ValueKind int

const (
	KindText ValueKind = iota
	KindNumber
)

// Value is a single feature cell: either a finite number or the raw text it was read from.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
}

func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

func Text(s string) Value { return Value{Kind: KindText, Str: s} }

func (v Value) IsNumber() bool { return v.Kind == KindNumber }

func (v Value) String() string {
	if v.IsNumber() {
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	}
	return v.Str
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsNumber() {
		return json.Marshal(v.Num)
	}
	return json.Marshal(v.Str)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := decodeValue(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func decodeValue(raw []byte) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Text(""), nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, err
		}
		return Text(s), nil
	case '{', '[':
		return Value{}, fmt.Errorf("feature value must be a number or string, got %s", raw)
	case 't', 'f':
		return Text(string(raw)), nil
	default:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Value{}, err
		}
		return Number(f), nil
	}
}

// FeatureRecord maps feature names to values and remembers the order keys were first set in.
// The zero value is an empty record ready to use.
type FeatureRecord struct {
	keys   []string
	values map[string]Value
}

func NewFeatureRecord() FeatureRecord {
	return FeatureRecord{values: make(map[string]Value)}
}

func (r *FeatureRecord) Set(key string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

func (r FeatureRecord) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

func (r FeatureRecord) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r FeatureRecord) Len() int { return len(r.keys) }

// NumericValues returns the numeric cells in key order.
func (r FeatureRecord) NumericValues() []float64 {
	out := make([]float64, 0, len(r.keys))
	for _, key := range r.keys {
		if v := r.values[key]; v.IsNumber() {
			out = append(out, v.Num)
		}
	}
	return out
}

func (r FeatureRecord) Clone() FeatureRecord {
	out := FeatureRecord{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]Value, len(r.values)),
	}
	copy(out.keys, r.keys)
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

func (r FeatureRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := r.values[key].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *FeatureRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = NewFeatureRecord()
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("feature record must be a JSON object")
	}

	out := NewFeatureRecord()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		v, err := decodeValue(raw)
		if err != nil {
			return fmt.Errorf("feature %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

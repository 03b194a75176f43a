package codec

import (
	"encoding/json"
	"reflect"

	"mini-tl/message"
)

// TypeField is the JSON key carrying an entity's constructor.
const TypeField = "_"

// JSONCodec renders values as JSON for humans and tooling. Entities become objects
// tagged with their constructor under TypeField; booleans become true/false, vectors
// become arrays. Decoding is plain encoding/json and does not rebuild entities.
type JSONCodec struct {
	Indent string
}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	tree, err := render(v)
	if err != nil {
		return nil, err
	}
	if c.Indent != "" {
		return json.MarshalIndent(tree, "", c.Indent)
	}
	return json.Marshal(tree)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}

func render(v any) (any, error) {
	e, ok := v.(message.Entity)
	if !ok {
		return v, nil
	}
	if b, ok := message.AsBool(e); ok {
		return b, nil
	}
	if e.TypeID() == message.VectorID {
		return renderItems(e)
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		// not an object (custom marshaler); keep it under a value key
		fields = map[string]any{"value": json.RawMessage(raw)}
	}
	if err := renderNested(e, fields); err != nil {
		return nil, err
	}
	fields[TypeField] = e.TypeID().String()
	return fields, nil
}

// renderNested re-renders exported fields that hold entities so nested values keep
// their constructor tags.
func renderNested(e message.Entity, fields map[string]any) error {
	rv := reflect.Indirect(reflect.ValueOf(e))
	if rv.Kind() != reflect.Struct {
		return nil
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || f.Tag.Get("json") != "" {
			continue
		}
		fv := rv.Field(i)
		if fv.Kind() != reflect.Interface && fv.Kind() != reflect.Pointer {
			continue
		}
		if fv.IsNil() {
			continue
		}
		nested, ok := fv.Interface().(message.Entity)
		if !ok {
			continue
		}
		out, err := render(nested)
		if err != nil {
			return err
		}
		fields[f.Name] = out
	}
	return nil
}

// renderItems turns any message.Vector[T] into a JSON array.
func renderItems(e message.Entity) (any, error) {
	m := reflect.ValueOf(e).MethodByName("Items")
	if !m.IsValid() {
		return []any{}, nil
	}
	items := m.Call(nil)[0]
	out := make([]any, 0, items.Len())
	for i := 0; i < items.Len(); i++ {
		item, err := render(items.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

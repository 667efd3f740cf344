package graph

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// StateSchema defines how a partial update is merged into the state.
type StateSchema[S any] interface {
	// Update merges the update into the current state and returns the new state.
	// The current value must not be modified.
	Update(current S, update Update) (S, error)
}

// SchemaFunc adapts a function to StateSchema.
type SchemaFunc[S any] func(current S, update Update) (S, error)

// Update implements StateSchema.
func (f SchemaFunc[S]) Update(current S, update Update) (S, error) {
	return f(current, update)
}

// StructSchema merges updates into a struct state field by field.
//
// Update keys are matched against the struct's json tags (falling back to the
// field name), case included. Listed fields are overwritten, slices and maps
// included, and every other field keeps its value. Keys that match no field,
// and values of the wrong type, are rejected. Floats never narrow to integers.
type StructSchema[S any] struct {
	// TagName is the struct tag used to name fields. Defaults to "json".
	TagName string
}

// NewStructSchema creates a StructSchema that names fields by their json tags.
func NewStructSchema[S any]() *StructSchema[S] {
	return &StructSchema[S]{TagName: "json"}
}

// Validate reports whether S can be handled by the schema.
func (s *StructSchema[S]) Validate() error {
	var zero S
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("struct schema requires a struct state type, got %v", t)
	}
	return nil
}

// Update implements StateSchema.
func (s *StructSchema[S]) Update(current S, update Update) (S, error) {
	if len(update) == 0 {
		return current, nil
	}

	next := current
	tag := s.TagName
	if tag == "" {
		tag = "json"
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &next,
		TagName:     tag,
		ErrorUnused: true,
		// Replace slices and maps instead of merging them element-wise.
		ZeroFields: true,
		MatchName: func(key, field string) bool {
			return key == field
		},
		DecodeHook: rejectFloatToInt,
	})
	if err != nil {
		return current, err
	}

	if err := decoder.Decode(map[string]any(update)); err != nil {
		return current, err
	}
	return next, nil
}

func rejectFloatToInt(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float32 && from.Kind() != reflect.Float64 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return nil, fmt.Errorf("cannot use %v value %v as %v", from, data, to)
	}
	return data, nil
}

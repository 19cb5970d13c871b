package codec

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var anyMapType = reflect.TypeOf(map[string]any(nil))

// Validated wraps a codec with validation. Values are checked before encoding
// and after decoding. Structs are checked against their validate tags; maps
// keyed by string are checked against Rules (field name to validator tag).
// Other values pass through.
type Validated[T any] struct {
	Codec    Codec[T]
	Validate *validator.Validate
	Rules    map[string]string
}

// NewValidated wraps inner with a fresh validator instance.
func NewValidated[T any](inner Codec[T]) *Validated[T] {
	return &Validated[T]{Codec: inner, Validate: validator.New()}
}

// WithRules sets the rules applied to map values.
func (c *Validated[T]) WithRules(rules map[string]string) *Validated[T] {
	c.Rules = rules
	return c
}

func (c *Validated[T]) Format() string { return c.Codec.Format() }

func (c *Validated[T]) Encode(v T) ([]byte, error) {
	if err := c.check(v); err != nil {
		return nil, &EncodeError{Format: c.Format(), Err: err}
	}
	return c.Codec.Encode(v)
}

func (c *Validated[T]) Decode(data []byte) (T, error) {
	v, err := c.Codec.Decode(data)
	if err != nil {
		return v, err
	}
	if err := c.check(v); err != nil {
		var zero T
		return zero, &DecodeError{Format: c.Format(), Err: err}
	}
	return v, nil
}

func (c *Validated[T]) check(v T) error {
	if c.Validate == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	switch {
	case rv.Kind() == reflect.Struct:
		return c.Validate.Struct(rv.Interface())
	case len(c.Rules) > 0 && rv.Type().ConvertibleTo(anyMapType):
		return c.checkMap(rv.Convert(anyMapType).Interface().(map[string]any))
	default:
		return nil
	}
}

func (c *Validated[T]) checkMap(m map[string]any) error {
	rules := make(map[string]any, len(c.Rules))
	for field, tag := range c.Rules {
		rules[field] = tag
	}

	failed := c.Validate.ValidateMap(m, rules)
	if len(failed) == 0 {
		return nil
	}
	fields := make([]string, 0, len(failed))
	for field := range failed {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %v", field, failed[field]))
	}
	return fmt.Errorf("invalid fields: %s", strings.Join(msgs, "; "))
}

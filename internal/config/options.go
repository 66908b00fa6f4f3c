package config

import (
	"strings"

	"github.com/spf13/cast"
)

// Options is a free-form, string-keyed property bag.
//
// Values usually come from JSON/YAML decoding, so numbers may arrive as
// float64 and booleans as strings. The accessors coerce loosely and fall back
// to the supplied default when a key is missing or cannot be coerced.
type Options map[string]any

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	if o == nil {
		return nil
	}
	return o[key]
}

// String returns the value for key as a trimmed string.
func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	return strings.TrimSpace(s)
}

// Bool returns the value for key as a bool ("true", "1", true, 1...).
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// Int returns the value for key as an int.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

// StringMap returns the value for key as map[string]string. Non-string values
// are stringified; a missing key yields an empty (non-nil) map.
func (o Options) StringMap(key string) map[string]string {
	v, ok := o[key]
	if !ok || v == nil {
		return map[string]string{}
	}
	m, err := cast.ToStringMapStringE(v)
	if err != nil {
		return map[string]string{}
	}
	return m
}

// Clone returns a shallow copy.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

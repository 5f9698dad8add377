package jsonx

import (
	"bytes"
	"encoding/json"
	"io"
)

// Decode unmarshals JSON content from r into v, rejecting unknown fields
// unless AllowUnknownFields() is given.
func Decode(r io.Reader, v any, options ...UnmarshalOption) error {
	var opts UnmarshalOptions
	for _, fn := range options {
		fn(&opts)
	}

	dec := json.NewDecoder(r)
	if !opts.AllowUnknownFields {
		dec.DisallowUnknownFields()
	}

	return dec.Decode(v)
}

// Unmarshal unmarshals the JSON content in data into v, rejecting unknown
// fields unless AllowUnknownFields() is given.
func Unmarshal(data []byte, v any, options ...UnmarshalOption) error {
	return Decode(bytes.NewReader(data), v, options...)
}

// UnmarshalOption changes the behavior of Decode/Unmarshal.
type UnmarshalOption func(*UnmarshalOptions)

// UnmarshalOptions is the set of options that control unmarshaling
// behavior.
type UnmarshalOptions struct {
	AllowUnknownFields bool
}

// AllowUnknownFields permits unknown fields during unmarshaling instead of
// the default strict behavior.
func AllowUnknownFields() UnmarshalOption {
	return func(o *UnmarshalOptions) {
		o.AllowUnknownFields = true
	}
}

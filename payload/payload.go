// Package payload implements the callback-button payload codec: a
// schema packs named fields into a bounded "prefix|field1|field2" string
// for use as a button's callback data, and unpacks it back on press.
package payload

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Max is the maximum encoded payload size in UTF-8 bytes, matching the
// platform's button payload limit.
const Max = 1024

// DefaultSeparator is used between the prefix and each field when no
// separator is configured.
const DefaultSeparator = "|"

// Schema describes one callback-payload shape: a prefix identifying it
// among other schemas sharing a button namespace, and an ordered list of
// field names. Schemas are built once at registration time, not derived
// by reflection, mirroring how dispatcher routers and FSM state groups
// are declared in this package family.
type Schema struct {
	prefix    string
	separator string
	fields    []string
}

// Option configures a Schema.
type Option func(*Schema)

// WithSeparator overrides the default "|" separator.
func WithSeparator(sep string) Option {
	return func(s *Schema) { s.separator = sep }
}

// NewSchema registers a payload schema under prefix, with the given
// ordered field names.
func NewSchema(prefix string, fields []string, opts ...Option) *Schema {
	s := &Schema{prefix: prefix, separator: DefaultSeparator, fields: fields}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prefix returns the schema's registered prefix.
func (s *Schema) Prefix() string { return s.prefix }

// Fields returns the schema's field names in encode/decode order.
func (s *Schema) Fields() []string { return s.fields }

// Pack encodes values (one per field, in Fields() order) into the wire
// string. It rejects any value containing the separator and any result
// exceeding Max bytes.
func (s *Schema) Pack(values ...string) (string, error) {
	if len(values) != len(s.fields) {
		return "", errors.Errorf("payload: schema %q expects %d fields, got %d", s.prefix, len(s.fields), len(values))
	}

	parts := make([]string, 0, len(values)+1)
	parts = append(parts, s.prefix)
	for i, v := range values {
		if strings.Contains(v, s.separator) {
			return "", errors.Errorf("payload: field %q contains separator %q", s.fields[i], s.separator)
		}
		parts = append(parts, v)
	}

	data := strings.Join(parts, s.separator)
	if utf8.RuneCountInString(data) > Max || len(data) > Max {
		return "", errors.Errorf("payload: encoded payload exceeds %d bytes", Max)
	}
	return data, nil
}

// Unpack decodes data into a field-name -> value map, validating the
// prefix and field count.
func (s *Schema) Unpack(data string) (map[string]string, error) {
	parts := strings.Split(data, s.separator)
	if len(parts) == 0 || parts[0] != s.prefix {
		return nil, errors.Errorf("payload: unexpected prefix in %q, want %q", data, s.prefix)
	}
	if len(parts)-1 != len(s.fields) {
		return nil, errors.Errorf("payload: expected %d fields, got %d", len(s.fields), len(parts)-1)
	}

	out := make(map[string]string, len(s.fields))
	for i, name := range s.fields {
		out[name] = parts[i+1]
	}
	return out, nil
}

// Matches reports whether data was encoded by this schema, without fully
// decoding it, so a caller can route a callback to the right handler
// before Unpack is attempted.
func (s *Schema) Matches(data string) bool {
	prefix, _, found := strings.Cut(data, s.separator)
	if !found {
		return data == s.prefix && len(s.fields) == 0
	}
	return prefix == s.prefix
}

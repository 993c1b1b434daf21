package bucketry

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Issue reasons reported by SchemaValidationError.
const (
	IssueInvalidType     = "invalid_type"
	IssueInvalidValue    = "invalid_value"
	IssueMissingRequired = "missing_required"
	IssueUnrecognizedKey = "unrecognized_key"
)

// Issue describes one field that failed validation.
// Field is empty when the value as a whole is the wrong kind.
type Issue struct {
	Field    string
	Reason   string
	Expected string
	Actual   string
	Message  string
}

func (i Issue) String() string {
	field := i.Field
	if field == "" {
		field = "(root)"
	}
	switch i.Reason {
	case IssueMissingRequired:
		return fmt.Sprintf("%s: required %s is missing", field, i.Expected)
	case IssueUnrecognizedKey:
		return fmt.Sprintf("%s: unrecognized key", field)
	case IssueInvalidValue:
		return fmt.Sprintf("%s: invalid %s: %s", field, i.Expected, i.Message)
	default:
		return fmt.Sprintf("%s: expected %s, got %s", field, i.Expected, i.Actual)
	}
}

// SchemaValidationError lists every field of a value that did not match a schema.
type SchemaValidationError struct {
	Schema string
	Issues []Issue
}

func (e *SchemaValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("%v: %s: %s", ErrSchema, e.Schema, strings.Join(parts, "; "))
}

// Unwrap returns ErrSchema.
func (*SchemaValidationError) Unwrap() error {
	return ErrSchema
}

// Payload parses one untyped field value into P.
// Parse returns an error wrapping ErrPayloadKind when v is the wrong kind;
// any other error is reported as an invalid value.
type Payload[P any] interface {
	Kind() string
	Parse(v any) (P, error)
}

// shaped is implemented by payloads that declare a JSON Schema fragment for
// their field. Payloads without one accept any non-null JSON value and rely
// on Parse.
type shaped interface {
	jsonSchema() map[string]any
}

type payloadFunc[P any] struct {
	kind   string
	schema map[string]any
	parse  func(v any) (P, error)
}

func (p payloadFunc[P]) Kind() string {
	return p.kind
}

func (p payloadFunc[P]) Parse(v any) (P, error) {
	return p.parse(v)
}

func (p payloadFunc[P]) jsonSchema() map[string]any {
	return p.schema
}

// jsonTypes are the kinds that map directly onto a JSON Schema type.
var jsonTypes = map[string]bool{
	"string": true, "number": true, "integer": true, "boolean": true, "object": true, "array": true,
}

// NewPayload builds a Payload from a kind name and parse function.
// A kind naming a JSON type (string, number, integer, boolean, object, array)
// is also checked structurally before parse runs.
func NewPayload[P any](kind string, parse func(v any) (P, error)) Payload[P] {
	var schema map[string]any
	if jsonTypes[kind] {
		schema = map[string]any{"type": kind}
	}
	return payloadFunc[P]{kind: kind, schema: schema, parse: parse}
}

// BinaryPayload accepts []byte, or a base64 string as found on the JSON wire.
// Any base64-decodable string passes, so a URL such as "abcd" from a cloud
// bundle is accepted as binary too; check the source schema when both can occur.
var BinaryPayload Payload[[]byte] = payloadFunc[[]byte]{kind: "binary", schema: map[string]any{"type": "string"}, parse: func(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return base64.StdEncoding.DecodeString(b)
	default:
		return nil, ErrPayloadKind
	}
}}

// URLPayload accepts a string.
var URLPayload = NewPayload("string", func(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", ErrPayloadKind
	}
	return s, nil
})

// BucketKeyPayload accepts a registered bucket identifier.
var BucketKeyPayload Payload[BucketKey] = payloadFunc[BucketKey]{kind: "bucket", schema: bucketKeySchema(), parse: func(v any) (BucketKey, error) {
	switch k := v.(type) {
	case BucketKey:
		return ParseBucketKey(string(k))
	case string:
		return ParseBucketKey(k)
	default:
		return "", ErrPayloadKind
	}
}}

// bucketKeySchema reads registrations directly: it runs during package
// variable initialization, before init derives bucketKeys.
func bucketKeySchema() map[string]any {
	enum := make([]any, len(registrations))
	for i, r := range registrations {
		enum[i] = string(r.key)
	}
	return map[string]any{"type": "string", "enum": enum}
}

func payloadSchema[P any](p Payload[P]) map[string]any {
	if sp, ok := p.(shaped); ok && sp.jsonSchema() != nil {
		return sp.jsonSchema()
	}
	return map[string]any{}
}

type field[T any] struct {
	name     string
	kind     string
	schema   map[string]any
	required bool
	set      func(dst *T, v any) error
}

func optionalField[T, P any](name string, p Payload[P], ref func(*T) **P) field[T] {
	return field[T]{
		name:   name,
		kind:   p.Kind(),
		schema: payloadSchema(p),
		set: func(dst *T, v any) error {
			parsed, err := p.Parse(v)
			if err != nil {
				return err
			}
			*ref(dst) = &parsed
			return nil
		},
	}
}

func requiredField[T, P any](name string, p Payload[P], ref func(*T) *P) field[T] {
	return field[T]{
		name:     name,
		kind:     p.Kind(),
		schema:   payloadSchema(p),
		required: true,
		set: func(dst *T, v any) error {
			parsed, err := p.Parse(v)
			if err != nil {
				return err
			}
			*ref(dst) = parsed
			return nil
		},
	}
}

// Schema validates untyped objects and produces T.
// The object's shape is checked against a compiled JSON Schema; each field is
// then parsed by its payload. Schemas are immutable values and safe for
// concurrent use.
type Schema[T any] struct {
	name   string
	fields []field[T]
	strict bool
	shape  *gojsonschema.Schema
}

func newSchema[T any](name string, fields []field[T], strict bool) Schema[T] {
	s := Schema[T]{name: name, fields: fields, strict: strict}
	s.shape = s.compile()
	return s
}

// compile builds the JSON Schema document for s. Schemas are declared at
// package level, so a document that fails to compile is a programming error.
func (s Schema[T]) compile() *gojsonschema.Schema {
	props := make(map[string]any, len(s.fields))
	var required []any
	for _, f := range s.fields {
		props[f.name] = f.schema
		if f.required {
			required = append(required, f.name)
		}
	}
	doc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	if s.strict {
		doc["additionalProperties"] = false
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("bucketry: schema %s: %v", s.name, err))
	}
	return compiled
}

// extend returns a schema for T that accepts base's fields, stored in the U
// embedded in T, plus extra.
func extend[T, U any](base Schema[U], name string, embed func(*T) *U, extra ...field[T]) Schema[T] {
	fields := make([]field[T], 0, len(base.fields)+len(extra))
	for _, f := range base.fields {
		set := f.set
		fields = append(fields, field[T]{
			name:     f.name,
			kind:     f.kind,
			schema:   f.schema,
			required: f.required,
			set: func(dst *T, v any) error {
				return set(embed(dst), v)
			},
		})
	}
	return newSchema(name, append(fields, extra...), base.strict)
}

// Name returns the schema name used in errors.
func (s Schema[T]) Name() string {
	return s.name
}

// Fields returns the accepted keys in declaration order.
func (s Schema[T]) Fields() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.name
	}
	return names
}

// Strict returns a copy of s that rejects keys it does not declare.
// By default unknown keys are dropped.
func (s Schema[T]) Strict() Schema[T] {
	if s.strict {
		return s
	}
	return newSchema(s.name, s.fields, true)
}

// Validate narrows value, an object such as decoded JSON, to T.
// Absent and nil fields are equivalent. All failing fields are reported
// together in a *SchemaValidationError.
func (s Schema[T]) Validate(value any) (T, error) {
	var out T

	obj, ok := value.(map[string]any)
	if !ok {
		return out, &SchemaValidationError{
			Schema: s.name,
			Issues: []Issue{{Reason: IssueInvalidType, Expected: "object", Actual: kindOf(value)}},
		}
	}

	doc := make(map[string]any, len(obj))
	for k, v := range obj {
		switch tv := v.(type) {
		case nil:
			continue
		case BucketKey:
			doc[k] = string(tv)
		default:
			doc[k] = v
		}
	}

	res, err := s.shape.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	failed := make(map[string]Issue)
	var unknown []string
	for _, re := range res.Errors() {
		name := re.Field()
		if p, ok := re.Details()["property"].(string); ok {
			name = p
		}
		switch re.Type() {
		case "required":
			failed[name] = Issue{Field: name, Reason: IssueMissingRequired, Actual: "null"}
		case "additional_property_not_allowed":
			unknown = append(unknown, name)
		case "invalid_type":
			failed[name] = Issue{Field: name, Reason: IssueInvalidType, Actual: kindOf(obj[name])}
		default:
			failed[name] = Issue{Field: name, Reason: IssueInvalidValue, Actual: kindOf(obj[name]), Message: re.Description()}
		}
	}

	var issues []Issue
	for _, f := range s.fields {
		if issue, ok := failed[f.name]; ok {
			issue.Expected = f.kind
			issues = append(issues, issue)
			continue
		}
		v, ok := doc[f.name]
		if !ok {
			continue
		}
		if err := f.set(&out, obj[f.name]); err != nil {
			if errors.Is(err, ErrPayloadKind) {
				issues = append(issues, Issue{Field: f.name, Reason: IssueInvalidType, Expected: f.kind, Actual: kindOf(v)})
			} else {
				issues = append(issues, Issue{Field: f.name, Reason: IssueInvalidValue, Expected: f.kind, Actual: kindOf(v), Message: err.Error()})
			}
		}
	}

	sort.Strings(unknown)
	for _, k := range unknown {
		issues = append(issues, Issue{Field: k, Reason: IssueUnrecognizedKey, Actual: kindOf(obj[k])})
	}

	if len(issues) > 0 {
		var zero T
		return zero, &SchemaValidationError{Schema: s.name, Issues: issues}
	}
	return out, nil
}

// ValidateJSON decodes data and validates the result.
func (s Schema[T]) ValidateJSON(data []byte) (T, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return s.Validate(raw)
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string, BucketKey:
		return "string"
	case []byte:
		return "binary"
	case bool:
		return "boolean"
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

package schema

import (
	"fmt"
	"math"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	json "github.com/goccy/go-json"
)

// Decode parses one JSON Schema document into a Node. Constructs the
// openapi3 object model cannot hold (type arrays, const, tuple items) are
// rewritten into equivalent compositions first.
func Decode(data []byte) (*Node, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	var unsupported []string
	raw = normalize(raw, &unsupported)
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	var ref openapi3.SchemaRef
	if err := json.Unmarshal(buf, &ref); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	n := FromOpenAPI(&ref)
	n.Unsupported = append(n.Unsupported, unsupported...)
	return n, nil
}

// FromOpenAPI converts a kin-openapi schema reference into a Node. A
// reference is kept as a lazy KindRef node; it is never followed here.
func FromOpenAPI(ref *openapi3.SchemaRef) *Node {
	if ref == nil {
		return Any()
	}
	if ref.Ref != "" {
		return RefTo(ref.Ref)
	}
	s := ref.Value
	if s == nil {
		return Any()
	}
	n := fromSchema(s)
	n.Title = s.Title
	n.Description = s.Description
	n.Format = s.Format
	n.Deprecated = s.Deprecated
	if s.Not != nil {
		n.Unsupported = append(n.Unsupported, "not")
	}
	return n
}

func fromSchema(s *openapi3.Schema) *Node {
	typ := Kind(s.Type)
	switch {
	case len(s.Enum) > 0 && (s.Type == "" || typ.IsPrimitive()):
		return &Node{
			Kind:       KindEnum,
			EnumValues: append([]any(nil), s.Enum...),
			EnumBase:   enumBase(typ, s.Enum),
		}
	case len(s.AllOf) > 0:
		n := &Node{Kind: KindAllOf}
		if len(s.Properties) > 0 {
			n.Variants = append(n.Variants, objectFrom(s))
		}
		n.Variants = append(n.Variants, fromRefs(s.AllOf)...)
		return n
	case len(s.OneOf) > 0:
		n := &Node{Kind: KindOneOf, Variants: fromRefs(s.OneOf)}
		if len(s.AnyOf) > 0 {
			n.Unsupported = append(n.Unsupported, "anyOf")
		}
		return n
	case len(s.AnyOf) > 0:
		return &Node{Kind: KindAnyOf, Variants: fromRefs(s.AnyOf)}
	}

	switch typ {
	case KindObject:
		return objectFrom(s)
	case KindArray:
		return ArrayOf(FromOpenAPI(s.Items))
	case KindString, KindNumber, KindInteger, KindBoolean, KindNull:
		return Primitive(typ)
	case "":
		switch {
		case len(s.Properties) > 0:
			return objectFrom(s)
		case s.Items != nil:
			return ArrayOf(FromOpenAPI(s.Items))
		}
		return Any()
	}
	n := Any()
	n.Unsupported = append(n.Unsupported, "type:"+s.Type)
	return n
}

func objectFrom(s *openapi3.Schema) *Node {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	props := make([]Property, 0, len(names))
	for _, name := range names {
		props = append(props, Property{Name: name, Node: FromOpenAPI(s.Properties[name])})
	}
	return Object(props, s.Required)
}

func fromRefs(refs openapi3.SchemaRefs) []*Node {
	out := make([]*Node, 0, len(refs))
	for _, r := range refs {
		out = append(out, FromOpenAPI(r))
	}
	return out
}

// enumBase infers the scalar kind shared by all enum values when the
// schema does not declare one.
func enumBase(declared Kind, values []any) Kind {
	if declared != "" {
		return declared
	}
	var base Kind
	for _, v := range values {
		var k Kind
		switch x := v.(type) {
		case string:
			k = KindString
		case bool:
			k = KindBoolean
		case float64:
			if x == math.Trunc(x) {
				k = KindInteger
			} else {
				k = KindNumber
			}
		case nil:
			continue
		default:
			return KindAny
		}
		switch {
		case base == "":
			base = k
		case base == k:
		case (base == KindInteger && k == KindNumber) || (base == KindNumber && k == KindInteger):
			base = KindNumber
		default:
			return KindAny
		}
	}
	if base == "" {
		return KindAny
	}
	return base
}

// ignoredKeywords have no effect on generated types.
var ignoredKeywords = []string{
	"patternProperties", "dependentSchemas", "dependencies",
	"if", "then", "else", "propertyNames", "unevaluatedProperties",
	"$dynamicRef", "$recursiveRef",
}

// normalize rewrites a decoded schema in place so it fits the openapi3
// object model. Only schema positions are visited, so a property that
// happens to be called "type" or "const" is left alone.
func normalize(v any, unsupported *[]string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for _, kw := range ignoredKeywords {
		if _, ok := m[kw]; ok {
			*unsupported = append(*unsupported, kw)
			delete(m, kw)
		}
	}
	if props, ok := m["properties"].(map[string]any); ok {
		for name, p := range props {
			props[name] = normalize(p, unsupported)
		}
	}
	for _, kw := range []string{"allOf", "anyOf", "oneOf"} {
		if list, ok := m[kw].([]any); ok {
			for i := range list {
				list[i] = normalize(list[i], unsupported)
			}
		}
	}
	for _, kw := range []string{"not", "additionalProperties"} {
		if sub, ok := m[kw].(map[string]any); ok {
			m[kw] = normalize(sub, unsupported)
		}
	}
	switch items := m["items"].(type) {
	case map[string]any:
		m["items"] = normalize(items, unsupported)
	case []any:
		for i := range items {
			items[i] = normalize(items[i], unsupported)
		}
		switch len(items) {
		case 0:
			delete(m, "items")
		case 1:
			m["items"] = items[0]
		default:
			m["items"] = map[string]any{"anyOf": items}
		}
	}
	if c, ok := m["const"]; ok {
		if _, has := m["enum"]; !has {
			m["enum"] = []any{c}
		}
		delete(m, "const")
	}
	if types, ok := m["type"].([]any); ok {
		expandTypeList(m, types)
	}
	return m
}

// expandTypeList turns {"type": ["string", "null"]} into an anyOf of
// single-typed variants.
func expandTypeList(m map[string]any, types []any) {
	delete(m, "type")
	switch len(types) {
	case 0:
		return
	case 1:
		m["type"] = types[0]
		return
	}
	if _, ok := m["enum"]; ok {
		return
	}
	_, hasAnyOf := m["anyOf"]
	_, hasOneOf := m["oneOf"]
	if hasAnyOf || hasOneOf {
		for _, t := range types {
			if t != "null" {
				m["type"] = t
				return
			}
		}
		return
	}
	variants := make([]any, 0, len(types))
	for _, t := range types {
		variant := map[string]any{"type": t}
		switch t {
		case "object":
			for _, kw := range []string{"properties", "required", "additionalProperties"} {
				if v, ok := m[kw]; ok {
					variant[kw] = v
					delete(m, kw)
				}
			}
		case "array":
			if v, ok := m["items"]; ok {
				variant["items"] = v
				delete(m, "items")
			}
		}
		variants = append(variants, variant)
	}
	m["anyOf"] = variants
}

// Package schema holds the tagged-variant representation of JSON Schema
// nodes used by the type converter.
package schema

import "sort"

// Kind discriminates the shape of a Node.
type Kind string

const (
	KindAny     Kind = "any"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindNull    Kind = "null"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindEnum    Kind = "enum"
	KindOneOf   Kind = "oneOf"
	KindAnyOf   Kind = "anyOf"
	KindAllOf   Kind = "allOf"
	KindRef     Kind = "ref"
)

// IsPrimitive reports whether k is one of the scalar JSON types.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindString, KindNumber, KindInteger, KindBoolean, KindNull:
		return true
	}
	return false
}

// Property is a named member of an object node.
type Property struct {
	Name string
	Node *Node
}

// Node is a single JSON Schema node. Only the fields belonging to Kind are
// populated: Properties/Required for objects, Items for arrays,
// EnumValues/EnumBase for enums, Variants for compositions and Ref for
// references.
type Node struct {
	Kind Kind

	Title       string
	Description string
	Format      string
	Deprecated  bool

	Properties []Property
	Required   map[string]bool

	Items *Node

	EnumValues []any
	EnumBase   Kind

	Variants []*Node

	Ref string

	// Unsupported lists keywords that were present on the source schema but
	// have no effect on the generated types.
	Unsupported []string
}

// Any returns an unconstrained node.
func Any() *Node { return &Node{Kind: KindAny} }

// Primitive returns a node of the given scalar kind.
func Primitive(k Kind) *Node { return &Node{Kind: k} }

// RefTo returns a reference node.
func RefTo(ref string) *Node { return &Node{Kind: KindRef, Ref: ref} }

// ArrayOf returns an array node with the given items.
func ArrayOf(items *Node) *Node { return &Node{Kind: KindArray, Items: items} }

// Object builds an object node whose properties keep the given order.
func Object(props []Property, required []string) *Node {
	n := &Node{Kind: KindObject, Properties: props}
	if len(required) > 0 {
		n.Required = make(map[string]bool, len(required))
		for _, r := range required {
			n.Required[r] = true
		}
	}
	return n
}

// IsRequired reports whether the named property is listed as required.
func (n *Node) IsRequired(name string) bool {
	return n != nil && n.Required[name]
}

// HasProperties reports whether n is an object with at least one property.
func (n *Node) HasProperties() bool {
	return n != nil && n.Kind == KindObject && len(n.Properties) > 0
}

// RequiredNames returns the required property names in sorted order.
func (n *Node) RequiredNames() []string {
	if n == nil || len(n.Required) == 0 {
		return nil
	}
	out := make([]string, 0, len(n.Required))
	for name := range n.Required {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

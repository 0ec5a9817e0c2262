// Package typegen converts schema nodes into language-agnostic type
// references and a deduplicated, ordered list of named type definitions.
package typegen

import (
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/dusansimic/openrpc-generator/internal/schema"
)

// TypeKind discriminates a TypeRef.
type TypeKind string

const (
	TypeAny          TypeKind = "any"
	TypePrimitive    TypeKind = "primitive"
	TypeNamed        TypeKind = "named"
	TypeArray        TypeKind = "array"
	TypeMap          TypeKind = "map"
	TypeUnion        TypeKind = "union"
	TypeIntersection TypeKind = "intersection"
	TypeEnum         TypeKind = "enum"
)

// TypeRef is a type expression. Emitters render it with their own token
// tables.
type TypeRef struct {
	Kind TypeKind

	// Primitive and Format are set for TypePrimitive.
	Primitive schema.Kind
	Format    string

	// Name is set for TypeNamed. Recursive marks a reference that closes a
	// cycle back to a type whose definition was still being built.
	Name      string
	Recursive bool

	// Elem is the item type of an array or the value type of a map.
	Elem *TypeRef

	// Variants are the members of a union or intersection.
	Variants []TypeRef

	// Literals and Base describe an enum.
	Literals []any
	Base     schema.Kind
}

func anyRef() TypeRef { return TypeRef{Kind: TypeAny} }

func mapOfAny() TypeRef {
	elem := anyRef()
	return TypeRef{Kind: TypeMap, Elem: &elem}
}

// Named returns a reference to the named type.
func Named(name string) TypeRef { return TypeRef{Kind: TypeNamed, Name: name} }

// IsNull reports whether t is the null primitive.
func (t TypeRef) IsNull() bool {
	return t.Kind == TypePrimitive && t.Primitive == schema.KindNull
}

// Nullable splits a union of exactly one type and null into that type.
func (t TypeRef) Nullable() (TypeRef, bool) {
	if t.Kind != TypeUnion || len(t.Variants) != 2 {
		return t, false
	}
	switch {
	case t.Variants[0].IsNull() && !t.Variants[1].IsNull():
		return t.Variants[1], true
	case t.Variants[1].IsNull() && !t.Variants[0].IsNull():
		return t.Variants[0], true
	}
	return t, false
}

// String renders t in a compact, language-neutral notation used in logs and
// tests: "[]User", "map[string]any", "A | B", "enum(\"a\", \"b\")".
func (t TypeRef) String() string {
	switch t.Kind {
	case TypePrimitive:
		return string(t.Primitive)
	case TypeNamed:
		if t.Recursive {
			return "*" + t.Name
		}
		return t.Name
	case TypeArray:
		return "[]" + t.Elem.String()
	case TypeMap:
		return "map[string]" + t.Elem.String()
	case TypeUnion, TypeIntersection:
		sep := " | "
		if t.Kind == TypeIntersection {
			sep = " & "
		}
		parts := make([]string, 0, len(t.Variants))
		for _, v := range t.Variants {
			parts = append(parts, v.String())
		}
		return "(" + strings.Join(parts, sep) + ")"
	case TypeEnum:
		parts := make([]string, 0, len(t.Literals))
		for _, l := range t.Literals {
			parts = append(parts, Literal(l))
		}
		return "enum(" + strings.Join(parts, ", ") + ")"
	}
	return "any"
}

// Literal renders an enum value as a JSON literal.
func Literal(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// DefKind is the shape of a NamedType definition.
type DefKind string

const (
	DefStruct DefKind = "struct"
	DefAlias  DefKind = "alias"
)

// NamedType is an emitted type definition. Struct definitions carry
// ordered Fields; aliases carry a Target.
type NamedType struct {
	Name        string
	Kind        DefKind
	Fields      []Field
	Target      TypeRef
	Origin      *schema.Node
	Description string
	Deprecated  bool
	// Placeholder marks the empty response shape of a notification.
	Placeholder bool

	key      string
	building bool
}

// Field is a struct member. Name is the JSON member name.
type Field struct {
	Name        string
	Type        TypeRef
	Required    bool
	Description string
	Deprecated  bool
}

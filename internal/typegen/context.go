package typegen

import (
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
	"github.com/rs/zerolog"

	"github.com/dusansimic/openrpc-generator/internal/naming"
	"github.com/dusansimic/openrpc-generator/internal/schema"
)

const schemasPrefix = "#/components/schemas/"

// Context holds the state of one generation run: the memo table of
// converted references, the names already handed out and the definitions in
// the order they were first discovered. A Context must not be shared
// between target languages.
type Context struct {
	schemas map[string]*schema.Node
	logger  zerolog.Logger

	byKey    map[string]*NamedType
	byName   map[string]*NamedType
	reserved map[string]bool
	types    []*NamedType

	diags    []SchemaError
	diagSeen map[SchemaError]bool
}

// Option configures a Context.
type Option func(*Context)

// WithLogger routes diagnostics to l at warn level.
func WithLogger(l zerolog.Logger) Option { return func(c *Context) { c.logger = l } }

// WithReservedNames keeps names that the target's own output declares or
// depends on away from generated types. A type that would take one of them
// gets a numeric suffix instead.
func WithReservedNames(names ...string) Option {
	return func(c *Context) {
		for _, n := range names {
			if n != "" {
				c.reserved[n] = true
			}
		}
	}
}

// NewContext returns an empty Context resolving references against schemas
// (components.schemas by name).
func NewContext(schemas map[string]*schema.Node, opts ...Option) *Context {
	c := &Context{
		schemas:  schemas,
		logger:   zerolog.Nop(),
		byKey:    map[string]*NamedType{},
		byName:   map[string]*NamedType{},
		reserved: map[string]bool{},
		diagSeen: map[SchemaError]bool{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Types returns the named types in first-discovered order.
func (c *Context) Types() []*NamedType {
	return append([]*NamedType(nil), c.types...)
}

// Lookup returns the named type called name.
func (c *Context) Lookup(name string) (*NamedType, bool) {
	nt, ok := c.byName[name]
	return nt, ok
}

// Taken reports whether name is held by a named type or reserved.
func (c *Context) Taken(name string) bool {
	_, ok := c.byName[name]
	return ok || c.reserved[name]
}

// Reserve hands out the first free name derived from base and keeps it
// from being used by any type converted later.
func (c *Context) Reserve(base string) string {
	name := c.uniqueName(base)
	c.reserved[name] = true
	return name
}

// Diagnostics returns every distinct diagnostic in the order it was raised.
func (c *Context) Diagnostics() []SchemaError {
	return append([]SchemaError(nil), c.diags...)
}

// Convert returns the type reference for n. proposedName names the type
// emitted for an inline object; without it such an object degrades to a
// generic map. Converting the same node twice yields the same reference
// and never emits a second definition.
func (c *Context) Convert(n *schema.Node, proposedName string) TypeRef {
	if n == nil {
		return anyRef()
	}
	c.noteUnsupported(n, proposedName)
	return c.convert(n, proposedName)
}

func (c *Context) convert(n *schema.Node, proposedName string) TypeRef {
	switch n.Kind {
	case schema.KindString, schema.KindNumber, schema.KindInteger, schema.KindBoolean, schema.KindNull:
		return TypeRef{Kind: TypePrimitive, Primitive: n.Kind, Format: n.Format}
	case schema.KindRef:
		return c.ref(n.Ref)
	case schema.KindObject:
		if !n.HasProperties() {
			return mapOfAny()
		}
		if proposedName == "" {
			c.report(AnonymousObject, "", "object with properties "+propertyList(n)+" has no name; using a generic map")
			return mapOfAny()
		}
		return c.inline(n, n, proposedName)
	case schema.KindArray:
		elem := c.Convert(n.Items, childName(proposedName, "Item"))
		return TypeRef{Kind: TypeArray, Elem: &elem}
	case schema.KindEnum:
		return TypeRef{Kind: TypeEnum, Literals: append([]any(nil), n.EnumValues...), Base: n.EnumBase}
	case schema.KindOneOf, schema.KindAnyOf:
		return c.union(TypeUnion, n.Variants, proposedName)
	case schema.KindAllOf:
		if merged, ok := c.mergeAllOf(n); ok {
			if proposedName == "" {
				c.report(AnonymousObject, "", "allOf with properties "+propertyList(merged)+" has no name; using a generic map")
				return mapOfAny()
			}
			return c.inline(n, merged, proposedName)
		}
		return c.union(TypeIntersection, n.Variants, proposedName)
	}
	return anyRef()
}

// Struct is like Convert for an object node but always yields a named
// struct, even when the object has no properties.
func (c *Context) Struct(n *schema.Node, name string) TypeRef {
	if n == nil {
		n = schema.Object(nil, nil)
	}
	c.noteUnsupported(n, name)
	return c.inline(n, n, name)
}

// Placeholder returns an empty struct named name, creating it on first use.
func (c *Context) Placeholder(name string) *NamedType {
	key := "placeholder:" + name
	if nt, ok := c.byKey[key]; ok {
		return nt
	}
	nt := c.reserve(key, c.uniqueName(name), schema.Object(nil, nil))
	nt.Kind = DefStruct
	nt.Placeholder = true
	return nt
}

func (c *Context) union(kind TypeKind, variants []*schema.Node, proposedName string) TypeRef {
	out := make([]TypeRef, 0, len(variants))
	for i, v := range variants {
		out = append(out, c.Convert(v, childName(proposedName, "Variant"+strconv.Itoa(i))))
	}
	switch len(out) {
	case 0:
		return anyRef()
	case 1:
		return out[0]
	}
	return TypeRef{Kind: kind, Variants: out}
}

// ref resolves a schema reference. The definition is registered before its
// body is converted so that cycles terminate on the memo table.
func (c *Context) ref(ref string) TypeRef {
	key, name, ok := canonical(ref)
	if !ok {
		c.report(UnresolvedRef, "", "only #/components/schemas/<name> references are supported: "+ref)
		return anyRef()
	}
	if nt, ok := c.byKey[key]; ok {
		out := Named(nt.Name)
		if nt.building {
			out.Recursive = true
			c.report(RecursiveRef, nt.Name, "reference cycle through "+key)
		}
		return out
	}
	target, ok := c.schemas[name]
	if !ok {
		c.report(UnresolvedRef, "", "no schema named "+strconv.Quote(name)+" in components")
		return anyRef()
	}
	base := naming.TypeName(name)
	if base == "" {
		base = "Type"
	}
	nt := c.reserve(key, c.uniqueName(base), target)
	c.define(nt, target)
	return Named(nt.Name)
}

func (c *Context) define(nt *NamedType, n *schema.Node) {
	nt.building = true
	defer func() { nt.building = false }()
	nt.Description = n.Description
	nt.Deprecated = n.Deprecated
	c.noteUnsupported(n, nt.Name)

	switch {
	case n.HasProperties():
		c.fill(nt, n)
		return
	case n.Kind == schema.KindAllOf:
		if merged, ok := c.mergeAllOf(n); ok {
			c.fill(nt, merged)
			return
		}
	}
	nt.Kind = DefAlias
	nt.Target = c.convert(n, nt.Name)
}

// inline returns the struct for an inline object. origin identifies the
// node for deduplication; shape supplies the properties, which differ from
// origin only for merged allOf nodes.
func (c *Context) inline(origin, shape *schema.Node, proposedName string) TypeRef {
	base := naming.Identifier(proposedName)
	if base == "" {
		base = "Type"
	}
	for i := 1; ; i++ {
		candidate := suffixed(base, i)
		existing, taken := c.byName[candidate]
		if !taken {
			if c.reserved[candidate] {
				continue
			}
			break
		}
		if existing.key == "inline:"+candidate && existing.Origin == origin {
			return Named(existing.Name)
		}
	}
	name := c.uniqueName(base)
	nt := c.reserve("inline:"+name, name, origin)
	nt.Description = origin.Description
	nt.Deprecated = origin.Deprecated
	nt.building = true
	c.fill(nt, shape)
	nt.building = false
	return Named(nt.Name)
}

func (c *Context) fill(nt *NamedType, n *schema.Node) {
	nt.Kind = DefStruct
	nt.Fields = make([]Field, 0, len(n.Properties))
	for _, p := range n.Properties {
		f := Field{
			Name:     p.Name,
			Required: n.IsRequired(p.Name),
			Type:     c.Convert(p.Node, childName(nt.Name, p.Name)),
		}
		if p.Node != nil {
			f.Description = p.Node.Description
			f.Deprecated = p.Node.Deprecated
		}
		nt.Fields = append(nt.Fields, f)
	}
}

// reserve registers a definition under key and name and appends it to the
// discovery order.
func (c *Context) reserve(key, name string, origin *schema.Node) *NamedType {
	nt := &NamedType{Name: name, Origin: origin, key: key}
	c.byKey[key] = nt
	c.byName[name] = nt
	c.types = append(c.types, nt)
	return nt
}

func (c *Context) uniqueName(base string) string {
	for i := 1; ; i++ {
		candidate := suffixed(base, i)
		if !c.Taken(candidate) {
			return candidate
		}
	}
}

func (c *Context) noteUnsupported(n *schema.Node, typeName string) {
	for _, kw := range n.Unsupported {
		c.report(UnsupportedKeyword, typeName, "ignoring keyword "+strconv.Quote(kw))
	}
}

func (c *Context) report(code ErrorCode, typeName, detail string) {
	d := SchemaError{Code: code, Type: typeName, Detail: detail}
	if c.diagSeen[d] {
		return
	}
	c.diagSeen[d] = true
	c.diags = append(c.diags, d)
	c.logger.Warn().
		Str("code", string(code)).
		Str("type", typeName).
		Str("detail", detail).
		Msg("schema diagnostic")
}

// canonical validates a schema reference and returns its memo key and the
// component name it points at.
func canonical(ref string) (key, name string, ok bool) {
	if !strings.HasPrefix(ref, "#/") {
		return "", "", false
	}
	ptr, err := jsonpointer.New(strings.TrimPrefix(ref, "#"))
	if err != nil {
		return "", "", false
	}
	tokens := ptr.DecodedTokens()
	if len(tokens) != 3 || tokens[0] != "components" || tokens[1] != "schemas" || tokens[2] == "" {
		return "", "", false
	}
	return schemasPrefix + jsonpointer.Escape(tokens[2]), tokens[2], true
}

// childName derives the name of a nested type: parent + capitalized
// segment. An anonymous parent has anonymous children.
func childName(parent, segment string) string {
	if parent == "" {
		return ""
	}
	return parent + naming.Pascal(segment)
}

func suffixed(base string, i int) string {
	if i <= 1 {
		return base
	}
	return base + strconv.Itoa(i)
}

func propertyList(n *schema.Node) string {
	names := make([]string, 0, len(n.Properties))
	for _, p := range n.Properties {
		names = append(names, p.Name)
	}
	return "[" + strings.Join(names, ", ") + "]"
}

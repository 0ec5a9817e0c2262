package typegen

import (
	"reflect"
	"strings"
	"testing"

	"github.com/dusansimic/openrpc-generator/internal/schema"
)

func node(t *testing.T, doc string) *schema.Node {
	t.Helper()
	n, err := schema.Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode %s: %v", doc, err)
	}
	return n
}

func components(t *testing.T, docs map[string]string) map[string]*schema.Node {
	t.Helper()
	out := make(map[string]*schema.Node, len(docs))
	for name, doc := range docs {
		out[name] = node(t, doc)
	}
	return out
}

func typeNames(c *Context) string {
	var names []string
	for _, nt := range c.Types() {
		names = append(names, nt.Name)
	}
	return strings.Join(names, ",")
}

func field(t *testing.T, nt *NamedType, name string) Field {
	t.Helper()
	for _, f := range nt.Fields {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("%s has no field %q (fields: %+v)", nt.Name, name, nt.Fields)
	return Field{}
}

func lookup(t *testing.T, c *Context, name string) *NamedType {
	t.Helper()
	nt, ok := c.Lookup(name)
	if !ok {
		t.Fatalf("type %q not emitted (have %s)", name, typeNames(c))
	}
	return nt
}

func TestConvert_ObjectWithProposedName(t *testing.T) {
	t.Parallel()
	c := NewContext(nil)
	ref := c.Convert(node(t, `{"type":"object","properties":{"userId":{"type":"string"}},"required":["userId"]}`), "GetUserParams")
	if ref.Kind != TypeNamed || ref.Name != "GetUserParams" {
		t.Fatalf("ref: %+v", ref)
	}
	if got := typeNames(c); got != "GetUserParams" {
		t.Fatalf("types: %s", got)
	}
	nt := lookup(t, c, "GetUserParams")
	if nt.Kind != DefStruct || len(nt.Fields) != 1 {
		t.Fatalf("definition: %+v", nt)
	}
	f := nt.Fields[0]
	if f.Name != "userId" || !f.Required || f.Type.String() != "string" {
		t.Fatalf("field: %+v", f)
	}
}

func TestConvert_Primitives(t *testing.T) {
	t.Parallel()
	c := NewContext(nil)
	for doc, want := range map[string]string{
		`{"type":"string"}`:                     "string",
		`{"type":"integer","format":"int64"}`:   "integer",
		`{"type":"number"}`:                     "number",
		`{"type":"boolean"}`:                    "boolean",
		`{"type":"null"}`:                       "null",
		`{}`:                                    "any",
		`{"type":"object"}`:                     "map[string]any",
		`{"type":"array","items":{"type":"string"}}`: "[]string",
	} {
		if got := c.Convert(node(t, doc), "X").String(); got != want {
			t.Errorf("%s: want %s got %s", doc, want, got)
		}
	}
	if len(c.Types()) != 0 {
		t.Fatalf("primitives must not emit types: %s", typeNames(c))
	}
	if got := c.Convert(node(t, `{"type":"integer","format":"int64"}`), ""); got.Format != "int64" {
		t.Fatalf("format not carried: %+v", got)
	}
}

func TestConvert_SharedRefEmittedOnce(t *testing.T) {
	t.Parallel()
	schemas := components(t, map[string]string{
		"User": `{"type":"object","properties":{"id":{"type":"string"},"name":{"type":"string"}},"required":["id"]}`,
	})
	c := NewContext(schemas)
	first := c.Convert(node(t, `{"$ref":"#/components/schemas/User"}`), "GetUserResult")
	second := c.Convert(node(t, `{"$ref":"#/components/schemas/User"}`), "ListUsersResult")
	list := c.Convert(node(t, `{"type":"array","items":{"$ref":"#/components/schemas/User"}}`), "ListResult")

	if !reflect.DeepEqual(first, second) || first.Name != "User" {
		t.Fatalf("refs differ: %+v vs %+v", first, second)
	}
	if list.String() != "[]User" {
		t.Fatalf("array of ref: %s", list)
	}
	if got := typeNames(c); got != "User" {
		t.Fatalf("User must be emitted exactly once, got %s", got)
	}
	user := lookup(t, c, "User")
	if !field(t, user, "id").Required || field(t, user, "name").Required {
		t.Fatalf("required fidelity: %+v", user.Fields)
	}
}

func TestConvert_MutualRecursionTerminates(t *testing.T) {
	t.Parallel()
	schemas := components(t, map[string]string{
		"A": `{"type":"object","properties":{"b":{"$ref":"#/components/schemas/B"}}}`,
		"B": `{"type":"object","properties":{"a":{"$ref":"#/components/schemas/A"}}}`,
	})
	c := NewContext(schemas)
	ref := c.Convert(node(t, `{"$ref":"#/components/schemas/A"}`), "")
	if ref.Name != "A" || ref.Recursive {
		t.Fatalf("outer ref: %+v", ref)
	}
	if got := typeNames(c); got != "A,B" {
		t.Fatalf("want exactly A,B got %s", got)
	}
	if f := field(t, lookup(t, c, "A"), "b"); f.Type.Name != "B" || f.Type.Recursive {
		t.Fatalf("A.b: %+v", f.Type)
	}
	if f := field(t, lookup(t, c, "B"), "a"); f.Type.Name != "A" || !f.Type.Recursive {
		t.Fatalf("B.a should be a recursive reference: %+v", f.Type)
	}
	diags := c.Diagnostics()
	if len(diags) != 1 || diags[0].Code != RecursiveRef || diags[0].Type != "A" {
		t.Fatalf("diagnostics: %+v", diags)
	}

	// A later, non-nested reference is an ordinary cache hit.
	if again := c.Convert(node(t, `{"$ref":"#/components/schemas/B"}`), ""); again.Recursive || again.Name != "B" {
		t.Fatalf("cache hit: %+v", again)
	}
}

func TestConvert_SelfReference(t *testing.T) {
	t.Parallel()
	schemas := components(t, map[string]string{
		"TreeNode": `{"type":"object","properties":{"children":{"type":"array","items":{"$ref":"#/components/schemas/TreeNode"}},"value":{"type":"string"}}}`,
	})
	c := NewContext(schemas)
	c.Convert(schema.RefTo("#/components/schemas/TreeNode"), "")
	if got := typeNames(c); got != "TreeNode" {
		t.Fatalf("types: %s", got)
	}
	if got := field(t, lookup(t, c, "TreeNode"), "children").Type.String(); got != "[]*TreeNode" {
		t.Fatalf("children: %s", got)
	}
}

func TestConvert_NestedNaming(t *testing.T) {
	t.Parallel()
	c := NewContext(nil)
	c.Convert(node(t, `{
		"type":"object",
		"properties":{
			"address":{"type":"object","properties":{"city":{"type":"string"},"geo":{"type":"object","properties":{"lat":{"type":"number"}}}}},
			"phones":{"type":"array","items":{"type":"object","properties":{"number":{"type":"string"}}}}
		}}`), "User")

	if got := typeNames(c); got != "User,UserAddress,UserAddressGeo,UserPhonesItem" {
		t.Fatalf("discovery order: %s", got)
	}
	user := lookup(t, c, "User")
	if got := field(t, user, "address").Type.String(); got != "UserAddress" {
		t.Fatalf("address: %s", got)
	}
	if got := field(t, user, "phones").Type.String(); got != "[]UserPhonesItem" {
		t.Fatalf("phones: %s", got)
	}
	if childName(childName("User", "address"), "geo") != "UserAddressGeo" {
		t.Fatalf("child naming is not compositional")
	}
}

func TestConvert_AnonymousObjectWarns(t *testing.T) {
	t.Parallel()
	c := NewContext(nil)
	n := node(t, `{"type":"object","properties":{"x":{"type":"string"}}}`)
	if got := c.Convert(n, "").String(); got != "map[string]any" {
		t.Fatalf("anonymous object: %s", got)
	}
	c.Convert(n, "")
	diags := c.Diagnostics()
	if len(diags) != 1 || diags[0].Code != AnonymousObject {
		t.Fatalf("want one deduplicated AnonymousObject diagnostic, got %+v", diags)
	}
	if len(c.Types()) != 0 {
		t.Fatalf("no types expected: %s", typeNames(c))
	}
}

func TestConvert_Unions(t *testing.T) {
	t.Parallel()
	c := NewContext(nil)
	ref := c.Convert(node(t, `{"oneOf":[{"type":"string"},{"type":"object","properties":{"w":{"type":"number"}}}]}`), "Shape")
	if got := ref.String(); got != "(string | ShapeVariant1)" {
		t.Fatalf("oneOf: %s", got)
	}
	nullable := c.Convert(node(t, `{"type":["string","null"]}`), "")
	inner, ok := nullable.Nullable()
	if !ok || inner.String() != "string" {
		t.Fatalf("nullable: %s", nullable)
	}
	single := c.Convert(node(t, `{"anyOf":[{"type":"boolean"}]}`), "")
	if single.String() != "boolean" {
		t.Fatalf("single variant union: %s", single)
	}
}

func TestConvert_AllOfMerge(t *testing.T) {
	t.Parallel()
	schemas := components(t, map[string]string{
		"Base": `{"type":"object","properties":{"id":{"type":"string"},"name":{"type":"string"}},"required":["id"]}`,
		"Extended": `{"allOf":[
			{"$ref":"#/components/schemas/Base"},
			{"type":"object","properties":{"name":{"type":"integer"},"extra":{"type":"boolean"}},"required":["extra"]}
		]}`,
	})
	c := NewContext(schemas)
	c.Convert(schema.RefTo("#/components/schemas/Extended"), "")
	ext := lookup(t, c, "Extended")
	if ext.Kind != DefStruct || len(ext.Fields) != 3 {
		t.Fatalf("merged struct: %+v", ext)
	}
	if got := field(t, ext, "name").Type.String(); got != "integer" {
		t.Fatalf("later variant should win on collision, got %s", got)
	}
	if !field(t, ext, "id").Required || !field(t, ext, "extra").Required || field(t, ext, "name").Required {
		t.Fatalf("required sets should be unioned: %+v", ext.Fields)
	}
	if _, ok := c.Lookup("Base"); ok {
		t.Fatalf("flattened base should not be emitted separately")
	}

	inline := node(t, `{"allOf":[{"type":"object","properties":{"a":{"type":"string"}}},{"type":"object","properties":{"b":{"type":"string"}}}]}`)
	first := c.Convert(inline, "Combined")
	second := c.Convert(inline, "Combined")
	if !reflect.DeepEqual(first, second) || first.Name != "Combined" {
		t.Fatalf("inline allOf not deduplicated: %+v %+v", first, second)
	}

	prims := c.Convert(node(t, `{"allOf":[{"type":"string"},{"type":"integer"}]}`), "P")
	if prims.String() != "(string & integer)" {
		t.Fatalf("non-object allOf: %s", prims)
	}
}

func TestConvert_EnumPreservesOrder(t *testing.T) {
	t.Parallel()
	schemas := components(t, map[string]string{
		"Color": `{"type":"string","enum":["red","green","blue"]}`,
	})
	c := NewContext(schemas)
	ref := c.Convert(schema.RefTo("#/components/schemas/Color"), "")
	if ref.String() != "Color" {
		t.Fatalf("enum ref: %s", ref)
	}
	color := lookup(t, c, "Color")
	if color.Kind != DefAlias || color.Target.String() != `enum("red", "green", "blue")` {
		t.Fatalf("enum alias: %+v", color.Target)
	}
}

func TestConvert_Diagnostics(t *testing.T) {
	t.Parallel()
	c := NewContext(map[string]*schema.Node{})
	if got := c.Convert(schema.RefTo("#/components/schemas/Missing"), ""); got.Kind != TypeAny {
		t.Fatalf("missing ref: %+v", got)
	}
	if got := c.Convert(schema.RefTo("#/definitions/Legacy"), ""); got.Kind != TypeAny {
		t.Fatalf("foreign ref: %+v", got)
	}
	c.Convert(node(t, `{"type":"string","not":{"type":"integer"}}`), "Code")
	var codes []string
	for _, d := range c.Diagnostics() {
		codes = append(codes, string(d.Code))
	}
	if got := strings.Join(codes, ","); got != "UnresolvedRef,UnresolvedRef,UnsupportedKeyword" {
		t.Fatalf("diagnostics: %s", got)
	}
}

func TestConvert_NameCollisions(t *testing.T) {
	t.Parallel()
	schemas := components(t, map[string]string{
		"User": `{"type":"object","properties":{"id":{"type":"string"}}}`,
	})
	c := NewContext(schemas)
	c.Convert(schema.RefTo("#/components/schemas/User"), "")
	inline := node(t, `{"type":"object","properties":{"email":{"type":"string"}}}`)
	ref := c.Convert(inline, "User")
	if ref.Name != "User2" {
		t.Fatalf("collision should be suffixed: %+v", ref)
	}
	if again := c.Convert(inline, "User"); again.Name != "User2" {
		t.Fatalf("same inline node should dedup: %+v", again)
	}
	if got := typeNames(c); got != "User,User2" {
		t.Fatalf("types: %s", got)
	}
}

func TestConvert_ReservedNames(t *testing.T) {
	t.Parallel()
	schemas := components(t, map[string]string{
		"Response": `{"type":"object","properties":{"ok":{"type":"boolean"}}}`,
	})
	c := NewContext(schemas, WithReservedNames("Response", "RPCClient"))
	if ref := c.Convert(schema.RefTo("#/components/schemas/Response"), ""); ref.Name != "Response2" {
		t.Fatalf("reserved name handed to a schema: %+v", ref)
	}
	inline := node(t, `{"type":"object","properties":{"id":{"type":"string"}}}`)
	if ref := c.Convert(inline, "RPCClient"); ref.Name != "RPCClient2" {
		t.Fatalf("reserved name handed to an inline object: %+v", ref)
	}
	if again := c.Convert(inline, "RPCClient"); again.Name != "RPCClient2" {
		t.Fatalf("inline object behind a reserved name should dedup: %+v", again)
	}
	if got := typeNames(c); got != "Response2,RPCClient2" {
		t.Fatalf("types: %s", got)
	}
	if !c.Taken("Response") || !c.Taken("Response2") || c.Taken("Response3") {
		t.Fatalf("Taken does not cover reserved and emitted names")
	}
	if got := c.Reserve("Response"); got != "Response3" {
		t.Fatalf("Reserve: %s", got)
	}
	if ref := c.Convert(node(t, `{"type":"object","properties":{"x":{"type":"string"}}}`), "Response"); ref.Name != "Response4" {
		t.Fatalf("name held by Reserve reused: %+v", ref)
	}
}

func TestStructAndPlaceholder(t *testing.T) {
	t.Parallel()
	c := NewContext(nil)
	empty := schema.Object(nil, nil)
	if ref := c.Struct(empty, "PingParams"); ref.Name != "PingParams" {
		t.Fatalf("struct: %+v", ref)
	}
	if nt := lookup(t, c, "PingParams"); nt.Kind != DefStruct || len(nt.Fields) != 0 {
		t.Fatalf("empty struct: %+v", nt)
	}
	p := c.Placeholder("PingResult")
	if !p.Placeholder || p.Kind != DefStruct || len(p.Fields) != 0 {
		t.Fatalf("placeholder: %+v", p)
	}
	if again := c.Placeholder("PingResult"); again != p {
		t.Fatalf("placeholder not reused")
	}
	if got := typeNames(c); got != "PingParams,PingResult" {
		t.Fatalf("types: %s", got)
	}
}

func TestConvert_Deterministic(t *testing.T) {
	t.Parallel()
	schemas := components(t, map[string]string{
		"Order": `{"type":"object","properties":{"items":{"type":"array","items":{"$ref":"#/components/schemas/Item"}},"customer":{"$ref":"#/components/schemas/Customer"},"meta":{"type":"object","properties":{"tag":{"type":"string"}}}}}`,
		"Item":     `{"type":"object","properties":{"sku":{"type":"string"},"order":{"$ref":"#/components/schemas/Order"}}}`,
		"Customer": `{"oneOf":[{"type":"object","properties":{"company":{"type":"string"}}},{"type":"object","properties":{"person":{"type":"string"}}}]}`,
	})
	run := func() ([]*NamedType, []SchemaError) {
		c := NewContext(schemas)
		c.Convert(schema.RefTo("#/components/schemas/Order"), "")
		c.Convert(schema.RefTo("#/components/schemas/Customer"), "")
		return c.Types(), c.Diagnostics()
	}
	t1, d1 := run()
	t2, d2 := run()
	if !reflect.DeepEqual(t1, t2) || !reflect.DeepEqual(d1, d2) {
		t.Fatalf("two runs differ")
	}
	var names []string
	for _, nt := range t1 {
		names = append(names, nt.Name)
	}
	want := "Order,Customer,CustomerVariant0,CustomerVariant1,Item,OrderMeta"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("order: want %s got %s", want, got)
	}
}

package tsemitter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dusansimic/openrpc-generator/internal/organize"
	"github.com/dusansimic/openrpc-generator/internal/spec"
	"github.com/dusansimic/openrpc-generator/internal/typegen"
)

const usersSpec = `{
  "openrpc": "1.2.6",
  "info": {"title": "Users", "version": "1.0.0", "description": "User directory."},
  "servers": [{"name": "main", "url": "https://{host}/rpc", "variables": {"host": {"default": "api.example.com"}}}],
  "methods": [
    {
      "name": "user.getById",
      "summary": "Fetch one user.",
      "tags": ["users"],
      "params": [{"name": "userId", "required": true, "schema": {"type": "string"}}],
      "result": {"name": "user", "schema": {"$ref": "#/components/schemas/User"}},
      "errors": [{"code": 1001, "message": "User not found"}]
    },
    {
      "name": "user.list",
      "tags": ["users"],
      "paramStructure": "by-position",
      "params": [
        {"name": "offset", "schema": {"type": "integer"}, "required": true},
        {"name": "filter", "schema": {"type": "object", "properties": {"name": {"type": "string"}}}}
      ],
      "result": {"name": "users", "schema": {"type": "array", "items": {"$ref": "#/components/schemas/User"}}},
      "errors": [{"code": -32000, "message": "", "data": {"type": "object", "properties": {"retry": {"type": "integer"}}}}]
    },
    {"name": "ping", "deprecated": true},
    {"name": "admin.reset", "params": [], "result": {"name": "ok", "schema": {"type": "boolean"}}}
  ],
  "components": {
    "schemas": {
      "User": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string"},
          "first-name": {"type": "string"},
          "status": {"enum": ["active", "disabled"]},
          "tags": {"type": "array", "items": {"anyOf": [{"type": "string"}, {"type": "integer"}]}}
        }
      }
    }
  }
}`

func render(t *testing.T, opts Options) string {
	t.Helper()
	doc, err := spec.Parse([]byte(usersSpec), "users.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := organize.Organize(typegen.NewContext(doc.Schemas), doc.Methods, organize.TypeScriptOptions())
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	src, err := Render(doc, out, opts)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(src)
}

func assertContains(t *testing.T, src string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(src, w) {
			t.Errorf("output missing %q", w)
		}
	}
	if t.Failed() {
		t.Logf("output:\n%s", src)
	}
}

func TestRender_Header(t *testing.T) {
	t.Parallel()
	src := render(t, Options{})
	if !strings.HasPrefix(src, "// Code generated by openrpc-generator. DO NOT EDIT.\n// Users 1.0.0\n//\n// User directory.\n") {
		t.Fatalf("header:\n%s", src[:200])
	}
	assertContains(t, src, `export const DEFAULT_ENDPOINT = "https://api.example.com/rpc";`)
}

func TestRender_Types(t *testing.T) {
	t.Parallel()
	src := render(t, Options{})
	assertContains(t, src,
		"/** Fetch one user. */\nexport interface UserGetByIdParams {\n  userId: string;\n}\n",
		"export interface User {\n  \"first-name\"?: string;\n  id: string;\n  status?: \"active\" | \"disabled\";\n  tags?: (string | number)[];\n}\n",
		"export type UserListParams = [offset: number, filter?: UserListParamsFilter];\n",
		"export interface UserListParamsFilter {\n  name?: string;\n}\n",
		"export type PingParams = Record<string, never>;\n",
		"export type PingResult = void;\n",
	)
	if strings.Count(src, "export interface User {") != 1 {
		t.Fatalf("User emitted more than once")
	}
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()
	src := render(t, Options{})
	assertContains(t, src,
		"export class UserNotFoundError extends RPCError {\n  static readonly CODE = 1001;\n\n  constructor(message: string = \"User not found\", data?: unknown) {\n    super(1001, message, data);",
		"constructor(message: string = \"\", data?: RPCErrorNeg32000Data) {",
		"  [1001]: UserNotFoundError,\n  [-32000]: RPCErrorNeg32000,\n};",
	)
}

func TestRender_Methods(t *testing.T) {
	t.Parallel()
	src := render(t, Options{ClassName: "UsersClient"})
	assertContains(t, src,
		"export class UsersClient {",
		"constructor(options: UsersClientOptions = {}) {",
		"  /** Fetch one user. */\n  async userGetById(params: UserGetByIdParams): Promise<User> {\n    return this.call<User>(\"user.getById\", params);\n  }",
		"  async userList(offset: number, filter?: UserListParamsFilter): Promise<User[]> {\n    return this.call<User[]>(\"user.list\", trimArgs([offset, filter]));\n  }",
		"  /** @deprecated */\n  async ping(): Promise<void> {\n    return this.notify(\"ping\");\n  }",
		"  async adminReset(): Promise<boolean> {\n    return this.call<boolean>(\"admin.reset\");\n  }\n}\n",
	)
}

func TestRender_MethodsByTag(t *testing.T) {
	t.Parallel()
	src := render(t, Options{})
	assertContains(t, src,
		"export const METHODS_BY_TAG = {\n  users: [\"user.getById\", \"user.list\"],\n  Untagged: [\"ping\", \"admin.reset\"],\n} as const;",
		"export class RPCClient {",
	)
}

func TestRender_ServerURLOverride(t *testing.T) {
	t.Parallel()
	src := render(t, Options{ServerURL: "http://localhost:9000"})
	assertContains(t, src, `export const DEFAULT_ENDPOINT = "http://localhost:9000";`)
}

const shadowSpec = `{
  "openrpc": "1.2.6",
  "info": {"title": "Shadow", "version": "1"},
  "methods": [
    {
      "name": "pet.get",
      "params": [{"name": "options", "required": true, "schema": {"$ref": "#/components/schemas/PetsClientOptions"}}],
      "result": {"name": "res", "schema": {"$ref": "#/components/schemas/Response"}},
      "errors": [{"code": 7, "message": "Error"}]
    }
  ],
  "components": {
    "schemas": {
      "Response": {"type": "object", "properties": {"failure": {"$ref": "#/components/schemas/RPCError"}}},
      "RPCError": {"type": "object", "properties": {"reason": {"type": "string"}}},
      "PetsClientOptions": {"type": "object", "properties": {"verbose": {"type": "boolean"}}}
    }
  }
}`

func TestRender_TypesDoNotShadowClientNames(t *testing.T) {
	t.Parallel()
	doc, err := spec.Parse([]byte(shadowSpec), "shadow.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tctx := typegen.NewContext(doc.Schemas, typegen.WithReservedNames(ReservedNames("PetsClient")...))
	out, err := organize.Organize(tctx, doc.Methods, organize.TypeScriptOptions())
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	b, err := Render(doc, out, Options{ClassName: "PetsClient"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	src := string(b)
	assertContains(t, src,
		"export interface Response2 {\n  failure?: RPCError2;\n}\n",
		"export interface RPCError2 {\n  reason?: string;\n}\n",
		"export interface PetsClientOptions2 {",
		"options: PetsClientOptions2;",
		"async petGet(params: PetGetParams): Promise<Response2>",
		"export class Error7 extends RPCError {",
		"export interface PetsClientOptions {\n  endpoint?: string;",
	)
	for _, decl := range []string{
		"export interface Response {",
		"export interface RPCError {",
		"export class Error extends",
	} {
		if strings.Contains(src, decl) {
			t.Errorf("generated %q shadows a name the client depends on", decl)
		}
	}
	if n := strings.Count(src, "export interface PetsClientOptions {"); n != 1 {
		t.Errorf("PetsClientOptions declared %d times", n)
	}
}

func TestReservedNames(t *testing.T) {
	t.Parallel()
	names := map[string]bool{}
	for _, n := range ReservedNames(" my-client ") {
		names[n] = true
	}
	for _, want := range []string{"Response", "Promise", "Record", "RPCError", "JSONRPCResponse", "JSONRPCErrorObject"} {
		if !names[want] {
			t.Errorf("%s not reserved", want)
		}
	}
	cls := sanitizeIdentifier("my-client")
	if !names[cls] || !names[cls+"Options"] {
		t.Errorf("class names %s / %sOptions not reserved: %v", cls, cls, names)
	}
	if got := ReservedNames(""); !containsString(got, DefaultClassName) || !containsString(got, DefaultClassName+"Options") {
		t.Errorf("default class not reserved: %v", got)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestEmit_WritesAndDryRun(t *testing.T) {
	t.Parallel()
	doc, err := spec.Parse([]byte(usersSpec), "users.json")
	if err != nil {
		t.Fatal(err)
	}
	out, err := organize.Organize(typegen.NewContext(doc.Schemas), doc.Methods, organize.TypeScriptOptions())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "gen", "client.ts")

	res, err := Emit(context.Background(), doc, out, Options{Output: path, DryRun: true})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if len(res.Planned) != 1 || res.Planned[0].Path != path || res.Planned[0].Size == 0 {
		t.Fatalf("plan: %+v", res.Planned)
	}
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("dry run wrote %s", path)
	}

	if _, err := Emit(context.Background(), doc, out, Options{Output: path}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(b) != res.Planned[0].Size {
		t.Fatalf("written size %d, planned %d", len(b), res.Planned[0].Size)
	}

	if _, err := Emit(context.Background(), doc, out, Options{}); err == nil {
		t.Fatalf("expected error without output path")
	}
}

func TestTypeExpr(t *testing.T) {
	t.Parallel()
	str := typegen.TypeRef{Kind: typegen.TypePrimitive, Primitive: "string"}
	null := typegen.TypeRef{Kind: typegen.TypePrimitive, Primitive: "null"}
	union := typegen.TypeRef{Kind: typegen.TypeUnion, Variants: []typegen.TypeRef{str, null}}
	user := typegen.Named("User")
	cases := []struct {
		in   typegen.TypeRef
		want string
	}{
		{typegen.TypeRef{Kind: typegen.TypeAny}, "unknown"},
		{typegen.TypeRef{Kind: typegen.TypePrimitive, Primitive: "integer"}, "number"},
		{union, "string | null"},
		{typegen.TypeRef{Kind: typegen.TypeArray, Elem: &union}, "(string | null)[]"},
		{typegen.TypeRef{Kind: typegen.TypeMap, Elem: &user}, "Record<string, User>"},
		{typegen.TypeRef{Kind: typegen.TypeIntersection, Variants: []typegen.TypeRef{user, union}}, "User & (string | null)"},
		{typegen.TypeRef{Kind: typegen.TypeEnum, Literals: []any{"a", float64(2), nil}}, `"a" | 2 | null`},
	}
	for _, tc := range cases {
		if got := typeExpr(tc.in); got != tc.want {
			t.Errorf("typeExpr(%s): want %s got %s", tc.in, tc.want, got)
		}
	}
}

func TestIdentifiers(t *testing.T) {
	t.Parallel()
	if got := propertyName("first-name"); got != `"first-name"` {
		t.Errorf("propertyName: %s", got)
	}
	if got := propertyName("default"); got != `"default"` {
		t.Errorf("propertyName reserved: %s", got)
	}
	if got := sanitizeIdentifier("2nd value"); got != "_2nd_value" {
		t.Errorf("sanitizeIdentifier: %s", got)
	}
	if got := memberName("Call"); got != "call_" {
		t.Errorf("memberName: %s", got)
	}
	if got := memberName("Delete"); got != "delete_" {
		t.Errorf("memberName reserved: %s", got)
	}
	if got := jsDoc("", "a */ b", true); got != "/**\n * a *\\/ b\n * @deprecated\n */\n" {
		t.Errorf("jsDoc: %q", got)
	}
}

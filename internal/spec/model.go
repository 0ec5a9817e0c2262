package spec

import "github.com/dusansimic/openrpc-generator/internal/schema"

// Document is a loaded OpenRPC document. Content descriptor, error and tag
// references are already inlined into the method records; schema references
// are left for the type converter to resolve on demand.
type Document struct {
	OpenRPC  string
	Info     Info
	Servers  []Server
	Methods  []MethodRecord
	Schemas  map[string]*schema.Node // components.schemas by name
	Location string
}

type Info struct {
	Title       string
	Version     string
	Description string
}

type Server struct {
	Name        string
	URL         string
	Description string
	Variables   map[string]ServerVariable
}

type ServerVariable struct {
	Default     string
	Enum        []string
	Description string
}

// ParamStructure declares how a method expects its arguments.
type ParamStructure string

const (
	ByPosition ParamStructure = "by-position"
	ByName     ParamStructure = "by-name"
	Either     ParamStructure = "either"
)

// MethodRecord is one fully inlined method. Records are built once by the
// loader and not mutated afterwards.
type MethodRecord struct {
	Name           string
	Summary        string
	Description    string
	Params         []Param
	ParamStructure ParamStructure
	Result         *Result // nil for notifications
	Errors         []ErrorDef
	Tags           []string
	Deprecated     bool
}

// IsNotification reports whether the method declares no result.
func (m MethodRecord) IsNotification() bool { return m.Result == nil }

// Positional reports whether arguments must be sent as an array.
func (m MethodRecord) Positional() bool { return m.ParamStructure == ByPosition }

type Param struct {
	Name        string
	Summary     string
	Description string
	Schema      *schema.Node
	Required    bool
	Deprecated  bool
}

type Result struct {
	Name        string
	Description string
	Schema      *schema.Node
}

// ErrorDef is a JSON-RPC error a method may return. DataSchema is set when
// the data member describes a schema; otherwise the literal value is kept in
// Data.
type ErrorDef struct {
	Code       int
	Message    string
	Data       any
	DataSchema *schema.Node
}

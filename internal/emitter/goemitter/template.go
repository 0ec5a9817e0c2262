package goemitter

const typesTemplate = `// {{.Header}}
{{- if .Title}}
// Source: {{.Title}}{{if .Version}} {{.Version}}{{end}}
{{- end}}

package {{.Package}}
{{if .Imports}}
import (
{{- range .Imports}}
	{{.}}
{{- end}}
)
{{end}}
{{.Types}}
{{- range .Methods}}
// {{.Reply}} is the result of {{.Name}}.
type {{.Reply}} = {{.Result}}
{{end}}
{{- range .Positional}}
// UnmarshalJSON accepts the params of {{.Name}} by position as well as by name.
func (a *{{.Args}}) UnmarshalJSON(data []byte) error {
	if isJSONArray(data) {
		return unmarshalPositional({{.Quoted}}, data{{range .Targets}}, &a.{{.}}{{end}})
	}
	type plain {{.Args}}
	return json.Unmarshal(data, (*plain)(a))
}
{{end}}
{{- if .Positional}}
func isJSONArray(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '['
}

func unmarshalPositional(method string, data []byte, targets ...any) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) > len(targets) {
		return fmt.Errorf("%s: expected at most %d params, got %d", method, len(targets), len(raw))
	}
	for i, r := range raw {
		if err := json.Unmarshal(r, targets[i]); err != nil {
			return fmt.Errorf("%s: param %d: %w", method, i, err)
		}
	}
	return nil
}
{{end}}
{{- range .Errors}}
// {{.Ident}}Code is the JSON-RPC error code of {{.Ident}}.
const {{.Ident}}Code json2.ErrorCode = {{.Code}}

// {{.Ident}} is JSON-RPC error {{.Code}}. Handlers return it through
// RPCError so the codec writes the declared code.
type {{.Ident}} struct {
	Message string
	Data    {{.DataType}}
}

func (e *{{.Ident}}) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return {{.Message}}
}

// RPCError converts e into the error object written to the client.
func (e *{{.Ident}}) RPCError() *json2.Error {
	err := &json2.Error{Code: {{.Ident}}Code, Message: e.Error()}
	if e.Data != nil {
		err.Data = e.Data
	}
	return err
}
{{end}}
{{- range .Services}}
// {{.Name}}Handler serves the {{.Namespace}} namespace.
type {{.Name}}Handler interface {
{{- range .Methods}}
{{- range .Doc}}
	//{{if .}} {{.}}{{end}}
{{- end}}
	{{.Ident}}(r *http.Request, args *{{.Args}}, reply *{{.Reply}}) error
{{- end}}
}
{{end}}

// methodNames maps OpenRPC method names onto the registered Go methods.
var methodNames = map[string]string{
{{- range .Methods}}
	{{.Quoted}}: {{.Registered}},
{{- end}}
}

// RegisterServices registers every service handler with server under its
// namespace.
func RegisterServices(server *rpc.Server{{range .Services}}, {{.Param}} {{.Name}}Handler{{end}}) error {
{{- range .Services}}
	if err := server.RegisterService({{.Param}}, {{.Quoted}}); err != nil {
		return fmt.Errorf("register %s: %w", {{.Quoted}}, err)
	}
{{- end}}
	return nil
}

// NewCodec returns a JSON-RPC 2.0 codec that resolves OpenRPC method names
// such as "user.getById" to the Go methods registered for them.
func NewCodec() rpc.Codec {
	return &codec{json2.NewCodec()}
}

type codec struct {
	*json2.Codec
}

func (c *codec) NewRequest(r *http.Request) rpc.CodecRequest {
	return &codecRequest{c.Codec.NewRequest(r)}
}

type codecRequest struct {
	rpc.CodecRequest
}

func (r *codecRequest) Method() (string, error) {
	method, err := r.CodecRequest.Method()
	if err != nil {
		return method, err
	}
	if mapped, ok := methodNames[method]; ok {
		return mapped, nil
	}
	return method, nil
}
`

const mainTemplate = `// Server wiring generated by openrpc-generator. This file is only written
// when it does not exist, so edits here survive regeneration.

package {{.Package}}

import (
{{- range .Imports}}
	{{.}}
{{- end}}
)
{{range .Services}}
// {{.Name}} implements {{.Name}}Handler.
type {{.Name}} struct{}
{{range .Methods}}
// {{.Ident}} handles {{.Name}}.
func (s *{{.Service}}) {{.Ident}}(r *http.Request, args *{{.Args}}, reply *{{.Reply}}) error {
	return fmt.Errorf("%s: not implemented", {{.Quoted}})
}
{{end}}
{{- end}}
// NewRPCServer returns a JSON-RPC 2.0 server with every service registered.
func NewRPCServer() (*rpc.Server, error) {
	server := rpc.NewServer()
	server.RegisterCodec(NewCodec(), "application/json")
	if err := RegisterServices(server{{range .Services}}, &{{.Name}}{}{{end}}); err != nil {
		return nil, err
	}
	return server, nil
}
{{- if .Main}}

func main() {
	server, err := NewRPCServer()
	if err != nil {
		log.Fatal(err)
	}
	http.Handle("/rpc", server)
	addr := ":{{.Port}}"
	log.Printf("listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
{{- end}}
`

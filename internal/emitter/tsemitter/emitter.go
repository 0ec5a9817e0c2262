// Package tsemitter renders an organized OpenRPC document as a single
// TypeScript client module.
package tsemitter

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/dusansimic/openrpc-generator/internal/emitter"
	"github.com/dusansimic/openrpc-generator/internal/organize"
	"github.com/dusansimic/openrpc-generator/internal/spec"
)

// DefaultClassName names the client class when Options.ClassName is empty.
const DefaultClassName = "RPCClient"

// Options controls how the TypeScript emitter renders a client.
type Options struct {
	Output    string // required; path of the generated .ts file
	ClassName string // client class name; defaults to RPCClient
	ServerURL string // overrides the first server URL as default endpoint
	DryRun    bool   // don't write, only plan
	Logger    zerolog.Logger
}

// Emit renders the client for out and writes it to opts.Output.
func Emit(ctx context.Context, doc *spec.Document, out *organize.Output, opts Options) (*emitter.Result, error) {
	if strings.TrimSpace(opts.Output) == "" {
		return nil, fmt.Errorf("tsemitter: Output is required")
	}
	src, err := Render(doc, out, opts)
	if err != nil {
		return nil, err
	}
	files := []emitter.File{{Path: opts.Output, Content: src}}
	planned := emitter.Plan(files, false)
	if !opts.DryRun {
		if err := emitter.Write(ctx, files, false); err != nil {
			return nil, fmt.Errorf("tsemitter: %w", err)
		}
		opts.Logger.Info().Str("path", opts.Output).Int("bytes", len(src)).Msg("generated TypeScript client")
	}
	return &emitter.Result{Planned: planned}, nil
}

// globals are the built-in names the client module refers to.
var globals = []string{
	"Array", "Error", "JSON", "Object", "Promise", "Record", "RequestInit", "Response", "globalThis", "fetch",
}

// ReservedNames returns the identifiers the client module declares or uses
// for a client class called className. Generated types must not shadow
// them.
func ReservedNames(className string) []string {
	cls := clientClassName(className)
	out := append([]string{}, globals...)
	return append(out,
		"DEFAULT_ENDPOINT", "ERRORS_BY_CODE", "METHODS_BY_TAG",
		"RPCError", "JSONRPCErrorObject", "JSONRPCResponse", "toError", "trimArgs",
		cls, cls+"Options",
	)
}

func clientClassName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return sanitizeIdentifier(name)
	}
	return DefaultClassName
}

type clientData struct {
	Header      string
	Title       string
	Version     string
	Description []string
	Endpoint    string
	ClassName   string
	Types       string
	Errors      []errorData
	Tags        []tagData
	Methods     []methodData
}

type errorData struct {
	Doc      string
	Ident    string
	Code     int
	Message  string
	DataType string
}

type tagData struct {
	Key     string
	Methods string
}

type methodData struct {
	Doc          string
	Member       string
	Name         string
	Signature    string
	Args         string
	Result       string
	Notification bool
}

var clientTmpl = template.Must(template.New("client").Parse(clientTemplate))

// Render returns the generated TypeScript source without writing it.
func Render(doc *spec.Document, out *organize.Output, opts Options) ([]byte, error) {
	if doc == nil || out == nil {
		return nil, fmt.Errorf("tsemitter: nil document")
	}
	className := clientClassName(opts.ClassName)
	endpoint := opts.ServerURL
	if endpoint == "" {
		endpoint = doc.DefaultServerURL()
	}

	data := clientData{
		Header:    emitter.Header,
		Title:     doc.Info.Title,
		Version:   doc.Info.Version,
		Endpoint:  strconv.Quote(endpoint),
		ClassName: className,
		Types:     renderTypes(out),
	}
	if d := strings.TrimSpace(doc.Info.Description); d != "" {
		data.Description = append([]string{""}, strings.Split(d, "\n")...)
	}
	for _, et := range out.Errors {
		dataType := "unknown"
		if et.DataType != nil {
			dataType = typeExpr(*et.DataType)
		}
		data.Errors = append(data.Errors, errorData{
			Doc:      jsDoc("", fmt.Sprintf("JSON-RPC error %d.", et.Code), false),
			Ident:    et.Ident,
			Code:     et.Code,
			Message:  strconv.Quote(et.Message),
			DataType: dataType,
		})
	}
	for _, g := range out.Tags {
		names := make([]string, 0, len(g.Methods))
		for _, m := range g.Methods {
			names = append(names, strconv.Quote(m.Name))
		}
		data.Tags = append(data.Tags, tagData{Key: propertyName(g.Name), Methods: strings.Join(names, ", ")})
	}
	for _, m := range out.Methods {
		data.Methods = append(data.Methods, renderMethod(m))
	}

	var buf bytes.Buffer
	if err := clientTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("tsemitter: render client: %w", err)
	}
	return buf.Bytes(), nil
}

func renderTypes(out *organize.Output) string {
	positional := map[string]*organize.Method{}
	for _, m := range out.Methods {
		if m.Positional {
			positional[m.ParamsType] = m
		}
	}
	var buf bytes.Buffer
	for _, nt := range out.Types {
		emitNamed(&buf, nt, positional[nt.Name])
		buf.WriteString("\n")
	}
	return buf.String()
}

func renderMethod(m *organize.Method) methodData {
	md := methodData{
		Member:       memberName(m.Base),
		Name:         strconv.Quote(m.Name),
		Result:       typeExpr(m.ResultType),
		Notification: m.Notification,
	}
	if m.Notification {
		md.Result = "void"
	}

	var doc []string
	if m.Summary != "" {
		doc = append(doc, m.Summary)
	}
	if m.Description != "" {
		if len(doc) > 0 {
			doc = append(doc, "")
		}
		doc = append(doc, m.Description)
	}

	switch {
	case len(m.Params) == 0:
	case m.Positional:
		optional := optionalTail(m.Params)
		sig := make([]string, 0, len(m.Params))
		args := make([]string, 0, len(m.Params))
		for i, p := range m.Params {
			id := sanitizeIdentifier(p.Name)
			switch {
			case optional[i]:
				sig = append(sig, id+"?: "+typeExpr(p.Type))
			case !p.Required:
				sig = append(sig, id+": "+typeExpr(p.Type)+" | undefined")
			default:
				sig = append(sig, id+": "+typeExpr(p.Type))
			}
			args = append(args, id)
			if p.Description != "" {
				doc = append(doc, "@param "+id+" "+p.Description)
			}
		}
		md.Signature = strings.Join(sig, ", ")
		md.Args = ", trimArgs([" + strings.Join(args, ", ") + "])"
	default:
		md.Signature = "params: " + m.ParamsType
		if !anyRequired(m.Params) {
			md.Signature += " = {}"
		}
		md.Args = ", params"
	}
	md.Doc = jsDoc("  ", strings.Join(doc, "\n"), m.Deprecated)
	return md
}

func anyRequired(params []organize.Param) bool {
	for _, p := range params {
		if p.Required {
			return true
		}
	}
	return false
}

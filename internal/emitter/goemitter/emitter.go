// Package goemitter renders an organized OpenRPC document as Gorilla RPC v2
// server code: a types file that is regenerated on every run and a wiring
// file with service stubs that is written once.
package goemitter

import (
	"bytes"
	"context"
	"fmt"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/tools/imports"

	"github.com/dusansimic/openrpc-generator/internal/emitter"
	"github.com/dusansimic/openrpc-generator/internal/organize"
	"github.com/dusansimic/openrpc-generator/internal/spec"
)

// DefaultPackage is used when Options.PackageName is empty.
const DefaultPackage = "main"

const (
	rpcImport   = `"github.com/gorilla/rpc/v2"`
	json2Import = `"github.com/gorilla/rpc/v2/json2"`
)

// scaffold lists the package-level identifiers the generated files declare
// or import regardless of the document.
var scaffold = []string{
	"NewCodec", "NewRPCServer", "RegisterServices", "methodNames",
	"codec", "codecRequest", "isJSONArray", "unmarshalPositional", "main",
	"bytes", "fmt", "http", "json", "json2", "log", "rpc",
}

// ReservedNames returns the identifiers generated types must not take.
func ReservedNames() []string {
	return append([]string(nil), scaffold...)
}

// Options controls how the Go emitter renders a server.
type Options struct {
	Output      string // required; path of the generated types file
	PackageName string // Go package of both files; defaults to main
	Force       bool   // overwrite an existing wiring file
	DryRun      bool   // don't write, only plan
	Logger      zerolog.Logger
}

// MainPath returns the wiring file written next to the types file at out:
// server.go -> server_main.go.
func MainPath(out string) string {
	ext := filepath.Ext(out)
	if ext == "" {
		ext = ".go"
	}
	return strings.TrimSuffix(out, filepath.Ext(out)) + "_main" + ext
}

// Emit renders both files and writes them. The wiring file is skipped when
// it already exists unless opts.Force is set.
func Emit(ctx context.Context, doc *spec.Document, out *organize.Output, opts Options) (*emitter.Result, error) {
	if strings.TrimSpace(opts.Output) == "" {
		return nil, fmt.Errorf("goemitter: Output is required")
	}
	typesSrc, mainSrc, err := Render(doc, out, opts)
	if err != nil {
		return nil, err
	}
	files := []emitter.File{
		{Path: opts.Output, Content: typesSrc},
		{Path: MainPath(opts.Output), Content: mainSrc, Once: true},
	}
	planned := emitter.Plan(files, opts.Force)
	if opts.DryRun {
		return &emitter.Result{Planned: planned}, nil
	}
	if err := emitter.Write(ctx, files, opts.Force); err != nil {
		return nil, fmt.Errorf("goemitter: %w", err)
	}
	for _, pf := range planned {
		if pf.Skipped {
			opts.Logger.Info().Str("path", pf.Path).Msg("skipped Go server wiring (already exists)")
			continue
		}
		opts.Logger.Info().Str("path", pf.Path).Int("bytes", pf.Size).Msg("generated Go source")
	}
	return &emitter.Result{Planned: planned}, nil
}

type fileData struct {
	Header     string
	Title      string
	Version    string
	Package    string
	Imports    []string
	Types      string
	Methods    []methodData
	Positional []positionalData
	Errors     []errorData
	Services   []serviceData
	Main       bool
	Port       int
}

type methodData struct {
	Name       string
	Quoted     string
	Registered string
	Ident      string
	Service    string
	Args       string
	Reply      string
	Result     string
	Doc        []string
}

type positionalData struct {
	Name    string
	Quoted  string
	Args    string
	Targets []string
}

type errorData struct {
	Ident    string
	Code     int
	Message  string
	DataType string
}

type serviceData struct {
	Name      string
	Namespace string
	Quoted    string
	Param     string
	Methods   []methodData
}

var (
	typesTmpl = template.Must(template.New("types").Parse(typesTemplate))
	mainTmpl  = template.Must(template.New("main").Parse(mainTemplate))
)

// Render returns the formatted types file and wiring file without writing
// them.
func Render(doc *spec.Document, out *organize.Output, opts Options) (typesSrc, mainSrc []byte, err error) {
	if doc == nil || out == nil {
		return nil, nil, fmt.Errorf("goemitter: nil document")
	}
	pkg := strings.TrimSpace(opts.PackageName)
	if pkg == "" {
		pkg = DefaultPackage
	}
	if !token.IsIdentifier(pkg) {
		return nil, nil, fmt.Errorf("goemitter: invalid package name %q", pkg)
	}

	ts := newTypeSet(out.Types)
	data := fileData{
		Header:  emitter.Header,
		Title:   doc.Info.Title,
		Version: doc.Info.Version,
		Package: pkg,
		Main:    pkg == "main",
		Port:    doc.DefaultPort(),
	}

	ts.declare(scaffold...)
	for _, m := range out.Methods {
		ts.declare(m.ReplyType)
	}
	for _, et := range out.Errors {
		ts.declare(et.Ident, et.Ident+"Code")
	}
	for _, svc := range out.Services {
		ts.declare(svc.Name, svc.Name+"Handler")
	}

	var types bytes.Buffer
	for _, nt := range out.Types {
		types.WriteString("\n")
		ts.emitNamed(&types, nt)
	}
	data.Types = types.String()

	byMethod := map[*organize.Method]methodData{}
	for _, m := range out.Methods {
		md := methodData{
			Name:       m.Name,
			Quoted:     strconv.Quote(m.Name),
			Registered: strconv.Quote(m.Namespace + "." + m.Ident),
			Ident:      m.Ident,
			Service:    m.Service,
			Args:       m.ParamsType,
			Reply:      m.ReplyType,
			Result:     ts.goType(m.ResultType),
			Doc:        methodDoc(m),
		}
		byMethod[m] = md
		data.Methods = append(data.Methods, md)
		if m.Positional && len(m.Params) > 0 {
			data.Positional = append(data.Positional, positionalData{
				Name:    m.Name,
				Quoted:  md.Quoted,
				Args:    m.ParamsType,
				Targets: fieldTargets(ts, m),
			})
		}
	}
	for _, et := range out.Errors {
		dataType := "any"
		if et.DataType != nil {
			dataType = ts.optional(*et.DataType)
		}
		data.Errors = append(data.Errors, errorData{
			Ident:    et.Ident,
			Code:     et.Code,
			Message:  strconv.Quote(et.Message),
			DataType: dataType,
		})
	}
	for _, svc := range out.Services {
		sd := serviceData{
			Name:      svc.Name,
			Namespace: svc.Namespace,
			Quoted:    strconv.Quote(svc.Namespace),
			Param:     lowerFirst(svc.Name),
		}
		for _, m := range svc.Methods {
			sd.Methods = append(sd.Methods, byMethod[m])
		}
		data.Services = append(data.Services, sd)
	}

	data.Imports = typesImports(data)
	typesSrc, err = render(typesTmpl, filepath.Base(opts.Output), data)
	if err != nil {
		return nil, nil, err
	}
	data.Imports = mainImports(data)
	mainSrc, err = render(mainTmpl, filepath.Base(MainPath(opts.Output)), data)
	if err != nil {
		return nil, nil, err
	}
	return typesSrc, mainSrc, nil
}

func render(tmpl *template.Template, filename string, data fileData) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("goemitter: render %s: %w", tmpl.Name(), err)
	}
	src, err := imports.Process(filename, buf.Bytes(), &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		return nil, fmt.Errorf("goemitter: format %s: %w", tmpl.Name(), err)
	}
	return src, nil
}

func typesImports(data fileData) []string {
	out := []string{`"net/http"`}
	if len(data.Positional) > 0 {
		out = append(out, `"bytes"`, `"encoding/json"`)
	}
	if len(data.Positional) > 0 || len(data.Services) > 0 {
		out = append(out, `"fmt"`)
	}
	return append(out, rpcImport, json2Import)
}

func mainImports(data fileData) []string {
	var out []string
	if len(data.Methods) > 0 {
		out = append(out, `"fmt"`)
	}
	if data.Main {
		out = append(out, `"log"`)
	}
	if len(data.Methods) > 0 || data.Main {
		out = append(out, `"net/http"`)
	}
	return append(out, rpcImport)
}

// fieldTargets returns the Go field of the args struct for each param, in
// declared order.
func fieldTargets(ts *typeSet, m *organize.Method) []string {
	nt, ok := ts.byName[m.ParamsType]
	if !ok {
		return nil
	}
	fields := ts.fields(nt)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.GoName)
	}
	return out
}

func methodDoc(m *organize.Method) []string {
	lines := []string{m.Ident + " handles " + m.Name + "."}
	if s := strings.TrimSpace(m.Summary); s != "" {
		lines = append(lines, strings.Split(s, "\n")...)
	}
	if m.Deprecated {
		lines = append(lines, "", "Deprecated: do not use in new code.")
	}
	return lines
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

package spec

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/dusansimic/openrpc-generator/internal/schema"
)

// maxRefDepth bounds chains of component references (a descriptor that
// references another descriptor, and so on).
const maxRefDepth = 16

// Settings configures loader behavior.
type Settings struct {
	Logger zerolog.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{Logger: zerolog.Nop()}
}

// Option mutates Settings.
type Option func(*Settings)

func WithLogger(l zerolog.Logger) Option { return func(s *Settings) { s.Logger = l } }

// Load reads and parses the OpenRPC document at path. Only local files are
// accepted.
func Load(ctx context.Context, input string, opts ...Option) (*Document, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}
	if err := ctx.Err(); err != nil {
		return nil, &SpecError{Code: InputError, Message: err.Error(), Location: input, Cause: err}
	}
	if u, err := url.Parse(input); err == nil && u.Scheme != "" && u.Host != "" {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: URL inputs are not supported: %s", input), Location: input}
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return Parse(raw, abs, opts...)
}

// Parse decodes an OpenRPC document. location is only used in error
// messages.
func Parse(data []byte, location string, opts ...Option) (*Document, error) {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	p := &parser{location: location}
	doc, err := p.document(data)
	if err != nil {
		return nil, err
	}
	settings.Logger.Debug().
		Str("location", location).
		Str("openrpc", doc.OpenRPC).
		Int("methods", len(doc.Methods)).
		Int("schemas", len(doc.Schemas)).
		Msg("spec loaded")
	return doc, nil
}

type rawComponents struct {
	Schemas            map[string]json.RawMessage `json:"schemas"`
	ContentDescriptors map[string]json.RawMessage `json:"contentDescriptors"`
	Errors             map[string]json.RawMessage `json:"errors"`
	Tags               map[string]json.RawMessage `json:"tags"`
}

type rawInfo struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

type rawServer struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Variables   map[string]struct {
		Default     string   `json:"default"`
		Enum        []string `json:"enum"`
		Description string   `json:"description"`
	} `json:"variables"`
}

type rawMethod struct {
	Name           string            `json:"name"`
	Summary        string            `json:"summary"`
	Description    string            `json:"description"`
	Tags           []json.RawMessage `json:"tags"`
	Params         []json.RawMessage `json:"params"`
	Result         json.RawMessage   `json:"result"`
	Errors         []json.RawMessage `json:"errors"`
	ParamStructure string            `json:"paramStructure"`
	Deprecated     bool              `json:"deprecated"`
}

type rawDescriptor struct {
	Name        string          `json:"name"`
	Summary     string          `json:"summary"`
	Description string          `json:"description"`
	Required    bool            `json:"required"`
	Deprecated  bool            `json:"deprecated"`
	Schema      json.RawMessage `json:"schema"`
}

type rawError struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type parser struct {
	location   string
	components rawComponents
}

func (p *parser) fail(code ErrorCode, pointer string, cause error, format string, args ...any) *SpecError {
	return &SpecError{
		Code:        code,
		Message:     fmt.Sprintf(format, args...),
		Location:    p.location,
		JSONPointer: pointer,
		Cause:       cause,
	}
}

func (p *parser) decode(raw json.RawMessage, pointer string, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return p.fail(InvalidJSON, pointer, err, "spec: invalid value: %v", err)
	}
	return nil
}

func (p *parser) document(data []byte) (*Document, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, p.fail(InvalidJSON, "", err, "parse spec %s: %v", p.location, err)
	}
	for _, key := range []string{"openrpc", "info", "methods"} {
		if _, ok := root[key]; !ok {
			return nil, p.fail(MissingField, "#/"+key, nil, "spec: missing required field %q", key)
		}
	}

	doc := &Document{Location: p.location}
	if err := p.decode(root["openrpc"], "#/openrpc", &doc.OpenRPC); err != nil {
		return nil, err
	}
	var info rawInfo
	if err := p.decode(root["info"], "#/info", &info); err != nil {
		return nil, err
	}
	doc.Info = Info(info)

	if raw, ok := root["components"]; ok && !isNull(raw) {
		if err := p.decode(raw, "#/components", &p.components); err != nil {
			return nil, err
		}
	}
	if raw, ok := root["servers"]; ok && !isNull(raw) {
		servers, err := p.servers(raw)
		if err != nil {
			return nil, err
		}
		doc.Servers = servers
	}

	schemas, err := p.schemas()
	if err != nil {
		return nil, err
	}
	doc.Schemas = schemas

	var methods []json.RawMessage
	if err := p.decode(root["methods"], "#/methods", &methods); err != nil {
		return nil, err
	}
	for i, raw := range methods {
		m, err := p.method(raw, "#/methods/"+strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		doc.Methods = append(doc.Methods, m)
	}
	return doc, nil
}

func (p *parser) servers(raw json.RawMessage) ([]Server, error) {
	var in []rawServer
	if err := p.decode(raw, "#/servers", &in); err != nil {
		return nil, err
	}
	out := make([]Server, 0, len(in))
	for _, s := range in {
		srv := Server{Name: s.Name, URL: s.URL, Description: s.Description}
		if len(s.Variables) > 0 {
			srv.Variables = make(map[string]ServerVariable, len(s.Variables))
			for name, v := range s.Variables {
				srv.Variables[name] = ServerVariable{Default: v.Default, Enum: v.Enum, Description: v.Description}
			}
		}
		out = append(out, srv)
	}
	return out, nil
}

func (p *parser) schemas() (map[string]*schema.Node, error) {
	names := make([]string, 0, len(p.components.Schemas))
	for name := range p.components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(map[string]*schema.Node, len(names))
	for _, name := range names {
		node, err := p.schema(p.components.Schemas[name], child("#/components/schemas", name))
		if err != nil {
			return nil, err
		}
		out[name] = node
	}
	return out, nil
}

func (p *parser) schema(raw json.RawMessage, pointer string) (*schema.Node, error) {
	if isNull(raw) {
		return schema.Any(), nil
	}
	node, err := schema.Decode(raw)
	if err != nil {
		return nil, p.fail(InvalidJSON, pointer, err, "spec: invalid schema: %v", err)
	}
	return node, nil
}

func (p *parser) method(raw json.RawMessage, pointer string) (MethodRecord, error) {
	var in rawMethod
	if err := p.decode(raw, pointer, &in); err != nil {
		return MethodRecord{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return MethodRecord{}, p.fail(MissingField, pointer+"/name", nil, "spec: method is missing required field \"name\"")
	}
	m := MethodRecord{
		Name:        in.Name,
		Summary:     in.Summary,
		Description: in.Description,
		Deprecated:  in.Deprecated,
	}

	switch ps := ParamStructure(in.ParamStructure); ps {
	case "":
		m.ParamStructure = Either
	case ByPosition, ByName, Either:
		m.ParamStructure = ps
	default:
		return MethodRecord{}, p.fail(InvalidJSON, pointer+"/paramStructure", nil,
			"spec: method %s: unknown paramStructure %q", in.Name, in.ParamStructure)
	}

	for i, rawParam := range in.Params {
		ptr := pointer + "/params/" + strconv.Itoa(i)
		d, err := p.descriptor(rawParam, ptr)
		if err != nil {
			return MethodRecord{}, err
		}
		m.Params = append(m.Params, Param{
			Name:        d.Name,
			Summary:     d.Summary,
			Description: d.Description,
			Schema:      d.node,
			Required:    d.Required,
			Deprecated:  d.Deprecated,
		})
	}

	if !isNull(in.Result) {
		d, err := p.descriptor(in.Result, pointer+"/result")
		if err != nil {
			return MethodRecord{}, err
		}
		m.Result = &Result{Name: d.Name, Description: d.Description, Schema: d.node}
	}

	for i, rawErr := range in.Errors {
		e, err := p.errorDef(rawErr, pointer+"/errors/"+strconv.Itoa(i))
		if err != nil {
			return MethodRecord{}, err
		}
		m.Errors = append(m.Errors, e)
	}

	for i, rawTag := range in.Tags {
		name, err := p.tag(rawTag, pointer+"/tags/"+strconv.Itoa(i))
		if err != nil {
			return MethodRecord{}, err
		}
		m.Tags = append(m.Tags, name)
	}
	return m, nil
}

type descriptor struct {
	rawDescriptor
	node *schema.Node
}

func (p *parser) descriptor(raw json.RawMessage, pointer string) (descriptor, error) {
	target, err := p.resolve(raw, "contentDescriptors", pointer)
	if err != nil {
		return descriptor{}, err
	}
	var d descriptor
	if err := p.decode(target, pointer, &d.rawDescriptor); err != nil {
		return descriptor{}, err
	}
	if strings.TrimSpace(d.Name) == "" {
		return descriptor{}, p.fail(MissingField, pointer+"/name", nil, "spec: content descriptor is missing required field \"name\"")
	}
	node, err := p.schema(d.Schema, pointer+"/schema")
	if err != nil {
		return descriptor{}, err
	}
	d.node = node
	return d, nil
}

func (p *parser) errorDef(raw json.RawMessage, pointer string) (ErrorDef, error) {
	target, err := p.resolve(raw, "errors", pointer)
	if err != nil {
		return ErrorDef{}, err
	}
	var in rawError
	if err := p.decode(target, pointer, &in); err != nil {
		return ErrorDef{}, err
	}
	if in.Code == nil {
		return ErrorDef{}, p.fail(MissingField, pointer+"/code", nil, "spec: error is missing required field \"code\"")
	}
	e := ErrorDef{Code: *in.Code, Message: in.Message}
	if isNull(in.Data) {
		return e, nil
	}
	var data any
	if err := p.decode(in.Data, pointer+"/data", &data); err != nil {
		return ErrorDef{}, err
	}
	if m, ok := data.(map[string]any); ok && looksLikeSchema(m) {
		node, err := p.schema(in.Data, pointer+"/data")
		if err != nil {
			return ErrorDef{}, err
		}
		e.DataSchema = node
		return e, nil
	}
	e.Data = data
	return e, nil
}

func (p *parser) tag(raw json.RawMessage, pointer string) (string, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name, nil
	}
	target, err := p.resolve(raw, "tags", pointer)
	if err != nil {
		return "", err
	}
	var t struct {
		Name string `json:"name"`
	}
	if err := p.decode(target, pointer, &t); err != nil {
		return "", err
	}
	if t.Name == "" {
		return "", p.fail(MissingField, pointer+"/name", nil, "spec: tag is missing required field \"name\"")
	}
	return t.Name, nil
}

// resolve follows the $ref member of raw, if any, into components.<section>.
func (p *parser) resolve(raw json.RawMessage, section, pointer string) (json.RawMessage, error) {
	for depth := 0; ; depth++ {
		var probe struct {
			Ref string `json:"$ref"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, p.fail(InvalidJSON, pointer, err, "spec: invalid value: %v", err)
		}
		if probe.Ref == "" {
			return raw, nil
		}
		if depth == maxRefDepth {
			return nil, p.fail(UnresolvedRef, pointer, nil, "spec: reference chain through %q is too deep", probe.Ref)
		}
		target, err := p.lookup(probe.Ref, section)
		if err != nil {
			return nil, p.fail(UnresolvedRef, pointer, err, "spec: unresolved reference %q: %v", probe.Ref, err)
		}
		raw = target
	}
}

func (p *parser) lookup(ref, section string) (json.RawMessage, error) {
	if !strings.HasPrefix(ref, "#/") {
		return nil, fmt.Errorf("only local references are supported")
	}
	ptr, err := jsonpointer.New(strings.TrimPrefix(ref, "#"))
	if err != nil {
		return nil, err
	}
	tokens := ptr.DecodedTokens()
	if len(tokens) != 3 || tokens[0] != "components" || tokens[1] != section {
		return nil, fmt.Errorf("reference must point into #/components/%s", section)
	}
	var table map[string]json.RawMessage
	switch section {
	case "contentDescriptors":
		table = p.components.ContentDescriptors
	case "errors":
		table = p.components.Errors
	case "tags":
		table = p.components.Tags
	case "schemas":
		table = p.components.Schemas
	}
	target, ok := table[tokens[2]]
	if !ok {
		return nil, fmt.Errorf("no %s named %q", section, tokens[2])
	}
	return target, nil
}

// schemaKeywords mark an error data member as a schema rather than a value.
var schemaKeywords = []string{"type", "$ref", "properties", "items", "oneOf", "anyOf", "allOf", "enum", "const"}

func looksLikeSchema(m map[string]any) bool {
	for _, kw := range schemaKeywords {
		if _, ok := m[kw]; ok {
			return true
		}
	}
	return false
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func child(pointer, token string) string {
	return pointer + "/" + jsonpointer.Escape(token)
}

// Package organize groups loaded methods into services and tag groups,
// derives per-method identifiers and type names, and deduplicates error
// definitions across the whole document.
package organize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/dusansimic/openrpc-generator/internal/naming"
	"github.com/dusansimic/openrpc-generator/internal/schema"
	"github.com/dusansimic/openrpc-generator/internal/spec"
	"github.com/dusansimic/openrpc-generator/internal/typegen"
)

// FallbackNamespace is the namespace methods without a namespace prefix are
// registered under.
const FallbackNamespace = "default"

// UntaggedGroup collects methods without tags.
const UntaggedGroup = "Untagged"

// Options controls how per-method type names are derived.
type Options struct {
	// QualifyWithService prefixes method type names with the service
	// identifier (UserServiceGetById) instead of the plain method name
	// (UserGetById).
	QualifyWithService bool
	ParamsSuffix       string
	ResultSuffix       string
	ReplySuffix        string
	// ServiceSuffixes derive further identifiers from each service name
	// ("" stands for the name itself). They are reserved before any type is
	// named.
	ServiceSuffixes []string
	// ErrorSuffixes derive further identifiers from each error identifier.
	ErrorSuffixes []string
	Logger        zerolog.Logger
}

// TypeScriptOptions names method types UserGetByIdParams / UserGetByIdResult.
func TypeScriptOptions() Options {
	return Options{ParamsSuffix: "Params", ResultSuffix: "Result", Logger: zerolog.Nop()}
}

// GoOptions names method types UserServiceGetByIdArgs / ...Result / ...Reply.
func GoOptions() Options {
	return Options{
		QualifyWithService: true,
		ParamsSuffix:       "Args",
		ResultSuffix:       "Result",
		ReplySuffix:        "Reply",
		ServiceSuffixes:    []string{"", "Handler"},
		ErrorSuffixes:      []string{"Code"},
		Logger:             zerolog.Nop(),
	}
}

// Output is everything an emitter needs to render one target.
type Output struct {
	Services    []*Service
	Methods     []*Method // document order
	Errors      []*ErrorType
	Tags        []TagGroup
	Types       []*typegen.NamedType
	Diagnostics []typegen.SchemaError
}

type Service struct {
	Namespace string
	Name      string // e.g. UserService
	// Fallback is set when the service holds a method without a namespace
	// prefix.
	Fallback bool
	Methods  []*Method
}

type Method struct {
	Name      string // full RPC name, e.g. user.getById
	Namespace string // registration namespace; FallbackNamespace for ping
	Local     string // name without the namespace
	Ident     string // e.g. GetById
	Service   string // e.g. UserService
	// Base is the prefix of every type name generated for the method.
	Base string

	ParamsType string
	Params     []Param
	Positional bool

	ResultType   typegen.TypeRef
	ReplyType    string
	Notification bool

	Errors      []*ErrorType
	Tags        []string
	Summary     string
	Description string
	Deprecated  bool
}

type Param struct {
	Name        string
	Type        typegen.TypeRef
	Required    bool
	Description string
	Deprecated  bool
}

type ErrorType struct {
	Code     int
	Message  string
	Ident    string // e.g. UserNotFoundError
	Data     any
	DataType *typegen.TypeRef

	dataSchema *schema.Node
}

type TagGroup struct {
	Name    string
	Methods []*Method
}

// Organize builds the Output for methods, converting every param, result
// and error data schema through tctx.
func Organize(tctx *typegen.Context, methods []spec.MethodRecord, opts Options) (*Output, error) {
	o := &organizer{
		tctx:     tctx,
		opts:     opts,
		services: map[string]*Service{},
		bases:    map[string]string{},
		svcNames: map[string]string{},
		errors:   map[int]*ErrorType{},
	}
	if err := o.reserveServices(methods); err != nil {
		return nil, err
	}
	out := &Output{}
	for _, rec := range methods {
		m, err := o.method(rec)
		if err != nil {
			return nil, err
		}
		out.Methods = append(out.Methods, m)
	}
	if err := o.nameErrors(); err != nil {
		return nil, err
	}
	for _, m := range out.Methods {
		m.Errors = o.methodErrors[m]
	}

	out.Services = o.sortedServices()
	out.Errors = o.errorOrder
	out.Tags = groupByTag(out.Methods)
	out.Types = tctx.Types()
	out.Diagnostics = tctx.Diagnostics()

	opts.Logger.Debug().
		Int("services", len(out.Services)).
		Int("methods", len(out.Methods)).
		Int("errors", len(out.Errors)).
		Int("types", len(out.Types)).
		Msg("methods organized")
	return out, nil
}

type organizer struct {
	tctx *typegen.Context
	opts Options

	services map[string]*Service
	svcNames map[string]string // service name -> namespace
	bases    map[string]string // type base -> method name

	errors       map[int]*ErrorType
	errorOrder   []*ErrorType
	methodErrors map[*Method][]*ErrorType
}

// SplitName splits "user.getById" into ("user", "getById"). A name without
// a dot has an empty namespace.
func SplitName(name string) (namespace, local string) {
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// RouteNamespace returns the namespace a method is registered under.
func RouteNamespace(namespace string) string {
	if namespace == "" {
		return FallbackNamespace
	}
	return namespace
}

// ServiceName maps a namespace to its service identifier.
func ServiceName(namespace string) string {
	title := naming.Title(namespace)
	if title == "" {
		title = "Default"
	}
	if r, _ := utf8.DecodeRuneInString(title); !unicode.IsLetter(r) {
		title = "S" + title
	}
	return title + "Service"
}

// reserveServices creates every service up front so that the identifiers
// derived from service names win over type names.
func (o *organizer) reserveServices(methods []spec.MethodRecord) error {
	for _, rec := range methods {
		ns, _ := SplitName(rec.Name)
		if _, err := o.service(RouteNamespace(ns)); err != nil {
			return err
		}
	}
	return nil
}

func (o *organizer) method(rec spec.MethodRecord) (*Method, error) {
	ns, local := SplitName(rec.Name)
	svc, err := o.service(RouteNamespace(ns))
	if err != nil {
		return nil, err
	}
	if ns == "" {
		svc.Fallback = true
	}

	m := &Method{
		Name:         rec.Name,
		Namespace:    svc.Namespace,
		Local:        local,
		Ident:        naming.MethodName(local),
		Service:      svc.Name,
		Positional:   rec.Positional(),
		Notification: rec.IsNotification(),
		Tags:         append([]string(nil), rec.Tags...),
		Summary:      rec.Summary,
		Description:  rec.Description,
		Deprecated:   rec.Deprecated,
	}
	if o.opts.QualifyWithService {
		m.Base = svc.Name + m.Ident
	} else {
		m.Base = naming.TypeName(rec.Name)
		if m.Base == "" {
			m.Base = m.Ident
		}
	}
	if prev, dup := o.bases[m.Base]; dup {
		return nil, &OrganizerError{
			Code:    DuplicateMethod,
			Message: fmt.Sprintf("organize: methods %q and %q both map to %s", prev, rec.Name, m.Base),
		}
	}
	o.bases[m.Base] = rec.Name

	o.params(m, rec)
	o.result(m, rec)
	if o.opts.ReplySuffix != "" {
		m.ReplyType = o.tctx.Reserve(m.Base + o.opts.ReplySuffix)
	}
	if err := o.collectErrors(m, rec); err != nil {
		return nil, err
	}
	svc.Methods = append(svc.Methods, m)
	return m, nil
}

func (o *organizer) service(ns string) (*Service, error) {
	if svc, ok := o.services[ns]; ok {
		return svc, nil
	}
	name := ServiceName(ns)
	if prev, dup := o.svcNames[name]; dup {
		return nil, &OrganizerError{
			Code:    DuplicateService,
			Message: fmt.Sprintf("organize: namespaces %q and %q both map to %s", prev, ns, name),
		}
	}
	for _, suffix := range o.opts.ServiceSuffixes {
		if o.tctx.Taken(name + suffix) {
			return nil, &OrganizerError{
				Code:    DuplicateService,
				Message: fmt.Sprintf("organize: namespace %q maps to %s, which is already in use", ns, name+suffix),
			}
		}
	}
	for _, suffix := range o.opts.ServiceSuffixes {
		o.tctx.Reserve(name + suffix)
	}
	o.svcNames[name] = ns
	svc := &Service{Namespace: ns, Name: name}
	o.services[ns] = svc
	return svc, nil
}

// params synthesizes the named params object in declared order.
func (o *organizer) params(m *Method, rec spec.MethodRecord) {
	props := make([]schema.Property, 0, len(rec.Params))
	var required []string
	for _, p := range rec.Params {
		n := p.Schema
		if n == nil {
			n = schema.Any()
		}
		if p.Description != "" && n.Description == "" {
			cp := *n
			cp.Description = p.Description
			n = &cp
		}
		props = append(props, schema.Property{Name: p.Name, Node: n})
		if p.Required {
			required = append(required, p.Name)
		}
	}
	obj := schema.Object(props, required)
	obj.Description = rec.Summary
	ref := o.tctx.Struct(obj, m.Base+o.opts.ParamsSuffix)
	m.ParamsType = ref.Name

	nt, _ := o.tctx.Lookup(ref.Name)
	for i, p := range rec.Params {
		param := Param{
			Name:        p.Name,
			Required:    p.Required,
			Description: p.Description,
			Deprecated:  p.Deprecated,
		}
		if nt != nil && i < len(nt.Fields) {
			param.Type = nt.Fields[i].Type
		}
		m.Params = append(m.Params, param)
	}
}

func (o *organizer) result(m *Method, rec spec.MethodRecord) {
	name := m.Base + o.opts.ResultSuffix
	if rec.IsNotification() {
		m.ResultType = typegen.Named(o.tctx.Placeholder(name).Name)
		return
	}
	m.ResultType = o.tctx.Convert(rec.Result.Schema, name)
}

func (o *organizer) collectErrors(m *Method, rec spec.MethodRecord) error {
	if o.methodErrors == nil {
		o.methodErrors = map[*Method][]*ErrorType{}
	}
	seen := map[int]bool{}
	for _, e := range rec.Errors {
		et, ok := o.errors[e.Code]
		switch {
		case !ok:
			et = &ErrorType{Code: e.Code, Message: e.Message}
			o.errors[e.Code] = et
			o.errorOrder = append(o.errorOrder, et)
		case et.Message != e.Message:
			return &OrganizerError{
				Code: DuplicateCode,
				Message: fmt.Sprintf("organize: error code %d is declared with different messages %q and %q (method %s)",
					e.Code, et.Message, e.Message, rec.Name),
			}
		}
		// Identical definitions: the last one wins.
		et.Data = e.Data
		et.dataSchema = e.DataSchema
		if !seen[e.Code] {
			seen[e.Code] = true
			o.methodErrors[m] = append(o.methodErrors[m], et)
		}
	}
	return nil
}

// nameErrors assigns identifiers once every method type is known, then
// converts error data schemas.
func (o *organizer) nameErrors() error {
	for _, et := range o.errorOrder {
		ident := ErrorIdent(et.Code, et.Message)
		if o.identTaken(ident) {
			ident += codeSuffix(et.Code)
		}
		if o.identTaken(ident) {
			return &OrganizerError{
				Code:    DuplicateCode,
				Message: fmt.Sprintf("organize: cannot derive a unique identifier for error code %d", et.Code),
			}
		}
		o.tctx.Reserve(ident)
		for _, suffix := range o.opts.ErrorSuffixes {
			o.tctx.Reserve(ident + suffix)
		}
		et.Ident = ident
	}
	for _, et := range o.errorOrder {
		if et.dataSchema != nil {
			ref := o.tctx.Convert(et.dataSchema, et.Ident+"Data")
			et.DataType = &ref
		}
	}
	return nil
}

// identTaken reports whether ident or one of the names derived from it is
// already in use.
func (o *organizer) identTaken(ident string) bool {
	if o.tctx.Taken(ident) {
		return true
	}
	for _, suffix := range o.opts.ErrorSuffixes {
		if o.tctx.Taken(ident + suffix) {
			return true
		}
	}
	return false
}

// ErrorIdent derives an error type identifier from its message:
// "User not found" -> UserNotFoundError. A message without usable words
// falls back to the code: RPCError1001, RPCErrorNeg32000.
func ErrorIdent(code int, message string) string {
	words := naming.Words(message)
	if r, _ := utf8.DecodeRuneInString(words); !unicode.IsLetter(r) {
		return "RPCError" + codeSuffix(code)
	}
	if strings.HasSuffix(words, "Error") {
		return words
	}
	return words + "Error"
}

func codeSuffix(code int) string {
	if code < 0 {
		return "Neg" + strconv.Itoa(-code)
	}
	return strconv.Itoa(code)
}

func (o *organizer) sortedServices() []*Service {
	out := make([]*Service, 0, len(o.services))
	var fallback *Service
	for _, svc := range o.services {
		if svc.Fallback {
			fallback = svc
			continue
		}
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Namespace < out[j].Namespace })
	if fallback != nil {
		out = append(out, fallback)
	}
	return out
}

func groupByTag(methods []*Method) []TagGroup {
	var groups []TagGroup
	index := map[string]int{}
	add := func(tag string, m *Method) {
		i, ok := index[tag]
		if !ok {
			i = len(groups)
			index[tag] = i
			groups = append(groups, TagGroup{Name: tag})
		}
		groups[i].Methods = append(groups[i].Methods, m)
	}
	for _, m := range methods {
		if len(m.Tags) == 0 {
			add(UntaggedGroup, m)
			continue
		}
		seen := map[string]bool{}
		for _, t := range m.Tags {
			if seen[t] {
				continue
			}
			seen[t] = true
			add(t, m)
		}
	}
	return groups
}

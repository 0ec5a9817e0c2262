package goemitter

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/dusansimic/openrpc-generator/internal/naming"
	"github.com/dusansimic/openrpc-generator/internal/schema"
	"github.com/dusansimic/openrpc-generator/internal/typegen"
)

// typeSet renders type references against the named definitions of one run.
type typeSet struct {
	byName map[string]*typegen.NamedType
	// declared holds every package-level identifier of the generated
	// package; enum constants are named around it.
	declared map[string]bool
}

func newTypeSet(types []*typegen.NamedType) *typeSet {
	ts := &typeSet{
		byName:   make(map[string]*typegen.NamedType, len(types)),
		declared: map[string]bool{},
	}
	for _, nt := range types {
		ts.byName[nt.Name] = nt
		ts.declared[nt.Name] = true
	}
	return ts
}

// declare records package-level identifiers that are not types.
func (ts *typeSet) declare(names ...string) {
	for _, n := range names {
		ts.declared[n] = true
	}
}

// goType renders t as a Go type expression.
func (ts *typeSet) goType(t typegen.TypeRef) string {
	switch t.Kind {
	case typegen.TypePrimitive:
		return primitive(t.Primitive, t.Format)
	case typegen.TypeNamed:
		if t.Recursive {
			return "*" + t.Name
		}
		return t.Name
	case typegen.TypeArray:
		return "[]" + ts.goType(*t.Elem)
	case typegen.TypeMap:
		return "map[string]" + ts.goType(*t.Elem)
	case typegen.TypeUnion:
		if inner, ok := t.Nullable(); ok {
			return ts.optional(inner)
		}
		return "any"
	case typegen.TypeEnum:
		return primitive(t.Base, "")
	}
	return "any"
}

// optional renders t for a member that may be absent: scalars and structs
// become pointers, types that already have a zero "absent" value do not.
func (ts *typeSet) optional(t typegen.TypeRef) string {
	s := ts.goType(t)
	if ts.nilable(t) || strings.HasPrefix(s, "*") {
		return s
	}
	return "*" + s
}

func (ts *typeSet) nilable(t typegen.TypeRef) bool {
	switch t.Kind {
	case typegen.TypeAny, typegen.TypeArray, typegen.TypeMap, typegen.TypeIntersection:
		return true
	case typegen.TypePrimitive:
		return t.Primitive == schema.KindNull
	case typegen.TypeUnion:
		_, ok := t.Nullable()
		return !ok
	case typegen.TypeEnum:
		return primitive(t.Base, "") == "any"
	case typegen.TypeNamed:
		nt, ok := ts.byName[t.Name]
		if !ok || nt.Kind != typegen.DefAlias || nt.Target.Kind == typegen.TypeNamed {
			return false
		}
		return ts.nilable(nt.Target)
	}
	return false
}

func primitive(k schema.Kind, format string) string {
	switch k {
	case schema.KindString:
		return "string"
	case schema.KindInteger:
		if format == "int32" {
			return "int32"
		}
		return "int64"
	case schema.KindNumber:
		if format == "float" {
			return "float32"
		}
		return "float64"
	case schema.KindBoolean:
		return "bool"
	}
	return "any"
}

// structField is one rendered member of a generated struct.
type structField struct {
	GoName string
	Type   string
	Tag    string
	Doc    []string
}

// fields names and types the members of a struct definition. Go names are
// unique within the struct.
func (ts *typeSet) fields(nt *typegen.NamedType) []structField {
	used := map[string]int{}
	out := make([]structField, 0, len(nt.Fields))
	for _, f := range nt.Fields {
		name := naming.FieldName(f.Name)
		used[name]++
		if n := used[name]; n > 1 {
			name += strconv.Itoa(n)
		}
		sf := structField{GoName: name, Doc: docLines(f.Description, f.Deprecated)}
		opt := ""
		if f.Required {
			sf.Type = ts.goType(f.Type)
		} else {
			sf.Type = ts.optional(f.Type)
			opt = ",omitempty"
		}
		sf.Tag = jsonTag(f.Name + opt)
		out = append(out, sf)
	}
	return out
}

func jsonTag(value string) string {
	tag := "json:" + strconv.Quote(value)
	if strings.Contains(tag, "`") {
		return strconv.Quote(tag)
	}
	return "`" + tag + "`"
}

// docLines splits a description into comment lines.
func docLines(text string, deprecated bool) []string {
	var lines []string
	if text = strings.TrimSpace(text); text != "" {
		for _, l := range strings.Split(text, "\n") {
			lines = append(lines, strings.TrimRight(l, " \t\r"))
		}
	}
	if deprecated {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "Deprecated: do not use in new code.")
	}
	return lines
}

func writeDoc(buf *bytes.Buffer, indent string, lines []string) {
	for _, l := range lines {
		if l == "" {
			buf.WriteString(indent + "//\n")
			continue
		}
		buf.WriteString(indent + "// " + l + "\n")
	}
}

// emitNamed writes one named type definition.
func (ts *typeSet) emitNamed(buf *bytes.Buffer, nt *typegen.NamedType) {
	switch {
	case nt.Placeholder:
		buf.WriteString("// " + nt.Name + " is the empty result of a notification.\n")
		buf.WriteString("type " + nt.Name + " struct{}\n")
	case nt.Kind == typegen.DefStruct:
		writeDoc(buf, "", docLines(nt.Description, nt.Deprecated))
		buf.WriteString("type " + nt.Name + " struct {\n")
		for _, f := range ts.fields(nt) {
			writeDoc(buf, "\t", f.Doc)
			buf.WriteString("\t" + f.GoName + " " + f.Type + " " + f.Tag + "\n")
		}
		buf.WriteString("}\n")
	case nt.Target.Kind == typegen.TypeEnum:
		writeDoc(buf, "", docLines(nt.Description, nt.Deprecated))
		base := primitive(nt.Target.Base, "")
		buf.WriteString("type " + nt.Name + " " + base + "\n")
		if base != "any" {
			ts.writeEnumConsts(buf, nt.Name, nt.Target)
		}
	default:
		writeDoc(buf, "", docLines(nt.Description, nt.Deprecated))
		buf.WriteString("type " + nt.Name + " " + ts.goType(nt.Target) + "\n")
	}
}

func (ts *typeSet) writeEnumConsts(buf *bytes.Buffer, typeName string, t typegen.TypeRef) {
	var lines []string
	for _, v := range t.Literals {
		if v == nil {
			continue
		}
		base := enumConstName(typeName, v)
		name := base
		for i := 2; ts.declared[name]; i++ {
			name = base + strconv.Itoa(i)
		}
		ts.declared[name] = true
		lines = append(lines, "\t"+name+" "+typeName+" = "+typegen.Literal(v)+"\n")
	}
	if len(lines) == 0 {
		return
	}
	buf.WriteString("\nconst (\n")
	for _, l := range lines {
		buf.WriteString(l)
	}
	buf.WriteString(")\n")
}

// enumConstName names the constant for one enum value: Status + "active"
// -> StatusActive, Code + -1 -> CodeNeg1.
func enumConstName(typeName string, v any) string {
	switch x := v.(type) {
	case string:
		if s := naming.Pascal(x); s != "" {
			return typeName + s
		}
		return typeName + "Empty"
	case bool:
		if x {
			return typeName + "True"
		}
		return typeName + "False"
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		s = strings.NewReplacer("-", "Neg", ".", "_").Replace(s)
		return typeName + s
	}
	return typeName + "Value"
}

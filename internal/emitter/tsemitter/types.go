package tsemitter

import (
	"bytes"
	"strings"

	"github.com/dusansimic/openrpc-generator/internal/organize"
	"github.com/dusansimic/openrpc-generator/internal/schema"
	"github.com/dusansimic/openrpc-generator/internal/typegen"
)

// typeExpr renders a type reference as a TypeScript type expression.
func typeExpr(t typegen.TypeRef) string {
	switch t.Kind {
	case typegen.TypePrimitive:
		return primitive(t.Primitive)
	case typegen.TypeNamed:
		return t.Name
	case typegen.TypeArray:
		elem := typeExpr(*t.Elem)
		if compound(*t.Elem) {
			elem = "(" + elem + ")"
		}
		return elem + "[]"
	case typegen.TypeMap:
		return "Record<string, " + typeExpr(*t.Elem) + ">"
	case typegen.TypeUnion, typegen.TypeIntersection:
		sep := " | "
		if t.Kind == typegen.TypeIntersection {
			sep = " & "
		}
		parts := make([]string, 0, len(t.Variants))
		for _, v := range t.Variants {
			s := typeExpr(v)
			if t.Kind == typegen.TypeIntersection && compound(v) {
				s = "(" + s + ")"
			}
			parts = append(parts, s)
		}
		if len(parts) == 0 {
			return "unknown"
		}
		return strings.Join(parts, sep)
	case typegen.TypeEnum:
		parts := make([]string, 0, len(t.Literals))
		for _, l := range t.Literals {
			parts = append(parts, typegen.Literal(l))
		}
		if len(parts) == 0 {
			return "never"
		}
		return strings.Join(parts, " | ")
	}
	return "unknown"
}

func primitive(k schema.Kind) string {
	switch k {
	case schema.KindString:
		return "string"
	case schema.KindNumber, schema.KindInteger:
		return "number"
	case schema.KindBoolean:
		return "boolean"
	case schema.KindNull:
		return "null"
	}
	return "unknown"
}

// compound reports whether t renders with a top-level operator and needs
// parentheses inside an array or intersection.
func compound(t typegen.TypeRef) bool {
	switch t.Kind {
	case typegen.TypeUnion, typegen.TypeIntersection:
		return len(t.Variants) > 1
	case typegen.TypeEnum:
		return len(t.Literals) > 1
	}
	return false
}

// emitNamed writes one named type definition. positional is the method
// whose params type nt is when that method takes params by position.
func emitNamed(buf *bytes.Buffer, nt *typegen.NamedType, positional *organize.Method) {
	buf.WriteString(jsDoc("", nt.Description, nt.Deprecated))
	switch {
	case nt.Placeholder:
		buf.WriteString("export type " + nt.Name + " = void;\n")
	case positional != nil:
		emitTuple(buf, nt.Name, positional.Params)
	case nt.Kind == typegen.DefAlias:
		buf.WriteString("export type " + nt.Name + " = " + typeExpr(nt.Target) + ";\n")
	case len(nt.Fields) == 0:
		buf.WriteString("export type " + nt.Name + " = Record<string, never>;\n")
	default:
		buf.WriteString("export interface " + nt.Name + " {\n")
		for _, f := range nt.Fields {
			buf.WriteString(jsDoc("  ", f.Description, f.Deprecated))
			buf.WriteString("  " + propertyName(f.Name))
			if !f.Required {
				buf.WriteString("?")
			}
			buf.WriteString(": " + typeExpr(f.Type) + ";\n")
		}
		buf.WriteString("}\n")
	}
}

// emitTuple writes a labeled tuple for positional params. A param can only
// be marked optional when every param after it is optional too.
func emitTuple(buf *bytes.Buffer, name string, params []organize.Param) {
	optional := optionalTail(params)
	parts := make([]string, 0, len(params))
	for i, p := range params {
		label := sanitizeIdentifier(p.Name)
		switch {
		case optional[i]:
			parts = append(parts, label+"?: "+typeExpr(p.Type))
		case !p.Required:
			parts = append(parts, label+": "+typeExpr(p.Type)+" | undefined")
		default:
			parts = append(parts, label+": "+typeExpr(p.Type))
		}
	}
	buf.WriteString("export type " + name + " = [" + strings.Join(parts, ", ") + "];\n")
}

// optionalTail marks the params that may be omitted: the optional ones
// with no required param after them.
func optionalTail(params []organize.Param) []bool {
	out := make([]bool, len(params))
	for i := len(params) - 1; i >= 0; i-- {
		if params[i].Required {
			break
		}
		out[i] = true
	}
	return out
}

package tsemitter

import (
	"strconv"
	"strings"
	"unicode"
)

// TypeScript reserved words.
var reservedWords = map[string]bool{
	"break":      true,
	"case":       true,
	"catch":      true,
	"class":      true,
	"const":      true,
	"continue":   true,
	"debugger":   true,
	"default":    true,
	"delete":     true,
	"do":         true,
	"else":       true,
	"enum":       true,
	"export":     true,
	"extends":    true,
	"false":      true,
	"finally":    true,
	"for":        true,
	"function":   true,
	"if":         true,
	"implements": true,
	"import":     true,
	"in":         true,
	"instanceof": true,
	"interface":  true,
	"let":        true,
	"new":        true,
	"null":       true,
	"package":    true,
	"private":    true,
	"protected":  true,
	"public":     true,
	"return":     true,
	"static":     true,
	"super":      true,
	"switch":     true,
	"this":       true,
	"throw":      true,
	"true":       true,
	"try":        true,
	"type":       true,
	"typeof":     true,
	"var":        true,
	"void":       true,
	"while":      true,
	"with":       true,
	"yield":      true,
}

// clientMembers are the names the generated client class already uses.
var clientMembers = map[string]bool{
	"call":        true,
	"notify":      true,
	"constructor": true,
	"endpoint":    true,
	"headers":     true,
	"fetchImpl":   true,
	"nextId":      true,
	"send":        true,
}

// escapeReservedWord escapes a reserved word by appending an underscore.
func escapeReservedWord(name string) string {
	if reservedWords[name] {
		return name + "_"
	}
	return name
}

// needsQuoting returns true if a property name must be written as a string
// literal.
func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	if unicode.IsDigit([]rune(name)[0]) {
		return true
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			return true
		}
	}
	return reservedWords[name]
}

// propertyName renders a JSON member name as an object property key.
func propertyName(name string) string {
	if needsQuoting(name) {
		return strconv.Quote(name)
	}
	return name
}

// sanitizeIdentifier makes an identifier valid for TypeScript.
func sanitizeIdentifier(name string) string {
	if name == "" {
		return "_"
	}
	var result strings.Builder
	if unicode.IsDigit([]rune(name)[0]) {
		result.WriteRune('_')
	}
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}
	return escapeReservedWord(result.String())
}

// memberName turns a type base such as UserGetById into the client method
// userGetById.
func memberName(base string) string {
	r := []rune(sanitizeIdentifier(base))
	r[0] = unicode.ToLower(r[0])
	name := escapeReservedWord(string(r))
	if clientMembers[name] {
		name += "_"
	}
	return name
}

// jsDoc renders a doc comment at the given indent. It returns "" when there
// is nothing to say.
func jsDoc(indent, text string, deprecated bool) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "*/", "*\\/"))
	if text == "" && !deprecated {
		return ""
	}
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}
	if deprecated {
		lines = append(lines, "@deprecated")
	}
	if len(lines) == 1 {
		return indent + "/** " + strings.TrimSpace(lines[0]) + " */\n"
	}
	var b strings.Builder
	b.WriteString(indent + "/**\n")
	for _, l := range lines {
		l = strings.TrimRight(l, " \t\r")
		if l == "" {
			b.WriteString(indent + " *\n")
			continue
		}
		b.WriteString(indent + " * " + l + "\n")
	}
	b.WriteString(indent + " */\n")
	return b.String()
}

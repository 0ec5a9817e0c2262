// Package naming derives target-language identifiers from OpenRPC names.
//
// All helpers are pure and deterministic; the same input always yields the
// same identifier so generated output is reproducible.
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// acronyms are upper-cased as a whole when they form a standalone segment.
var acronyms = map[string]bool{
	"id":    true,
	"url":   true,
	"uri":   true,
	"api":   true,
	"http":  true,
	"https": true,
	"json":  true,
	"rpc":   true,
	"sql":   true,
	"db":    true,
	"ip":    true,
	"ui":    true,
	"uuid":  true,
	"html":  true,
	"xml":   true,
	"csv":   true,
}

// IsAcronym reports whether word (any case) is a known acronym.
func IsAcronym(word string) bool {
	return acronyms[strings.ToLower(word)]
}

// Capitalize upper-cases the first rune of s and leaves the rest untouched.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Title upper-cases the first letter of every word without lowering the
// remaining letters and drops everything that cannot appear in an
// identifier: "user" -> "User", "user-admin" -> "UserAdmin".
func Title(s string) string {
	caser := cases.Title(language.Und, cases.NoLower)
	return Identifier(caser.String(strings.Join(splitSeparators(s), " ")))
}

// Words title-cases each alphanumeric word of s, lowering the rest of every
// word: "User not found" -> "UserNotFound", "HTTP failure" -> "HttpFailure".
func Words(s string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	for _, w := range splitSeparators(s) {
		b.WriteString(caser.String(w))
	}
	return b.String()
}

// TypeName turns an arbitrary schema or property name into an exported
// type-name fragment: separators are removed and every segment is
// capitalized. Camel humps are preserved ("userId" -> "UserId").
func TypeName(s string) string {
	out := Pascal(s)
	if out != "" && unicode.IsDigit([]rune(out)[0]) {
		out = "T" + out
	}
	return out
}

// Pascal capitalizes every separator-delimited segment of s and joins them.
// Unlike TypeName the result may start with a digit, so it is meant to be
// appended to an existing identifier.
func Pascal(s string) string {
	var b strings.Builder
	for _, seg := range splitSeparators(s) {
		b.WriteString(Capitalize(seg))
	}
	return b.String()
}

// MethodName converts the local part of a method name into an exported
// identifier. Segments are delimited by separators only; a segment that is
// an acronym is upper-cased as a whole, any other segment gets an upper-case
// first letter: "getById" -> "GetById", "get_by_id" -> "GetByID".
func MethodName(local string) string {
	var b strings.Builder
	for _, seg := range splitSeparators(local) {
		if IsAcronym(seg) {
			b.WriteString(strings.ToUpper(seg))
			continue
		}
		b.WriteString(Capitalize(seg))
	}
	if b.Len() == 0 {
		return "Handle"
	}
	out := b.String()
	if unicode.IsDigit([]rune(out)[0]) {
		out = "M" + out
	}
	return out
}

// FieldName converts a JSON member name into an exported Go field name,
// splitting camel case as well as separators and upper-casing acronyms:
// "userId" -> "UserID", "created_at" -> "CreatedAt", "url" -> "URL".
func FieldName(jsonName string) string {
	var b strings.Builder
	for _, word := range SplitWords(jsonName) {
		if IsAcronym(word) {
			b.WriteString(strings.ToUpper(word))
			continue
		}
		r := []rune(strings.ToLower(word))
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	out := b.String()
	if out == "" {
		return "Field"
	}
	if unicode.IsDigit([]rune(out)[0]) {
		out = "X" + out
	}
	return out
}

// SplitWords splits s on separators and camel-case boundaries. A run of
// upper-case letters is kept together unless it is followed by a lower-case
// letter: "HTTPStatus" -> ["HTTP", "Status"].
func SplitWords(s string) []string {
	var words []string
	for _, seg := range splitSeparators(s) {
		words = append(words, splitCamel(seg)...)
	}
	return words
}

// Identifier drops every rune that is not a letter, digit or underscore.
func Identifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func splitSeparators(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func splitCamel(s string) []string {
	runes := []rune(s)
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsDigit(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		}
		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		words = append(words, string(runes[start:]))
	}
	return words
}

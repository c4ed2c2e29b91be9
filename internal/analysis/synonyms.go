// Package analysis expands fully-qualified symbol names into the
// alternate tokens under which they should be searchable.
//
// A name like "com.example.HashMap" is indexed not just verbatim but
// also as "HM" (camel initials), "c.e.HashMap" and "c.e HashMap"
// (short-package forms), "HashMap" and "hashmap" (bare name and case
// variants). The expansion is deliberately redundant: users type
// abbreviations, fragments, and wrong-case forms, and false negatives
// cost more than a few extra inverted-index entries.
//
// Synonym generation is pure string work with no engine dependency;
// the bleve wiring lives in filter.go.
package analysis

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Synonyms returns the alternate tokens for a fully-qualified name.
// The input itself is never part of the result (it is indexed verbatim
// by the engine already), and single-character tokens are dropped as
// too noisy to be useful search terms. The result is sorted for
// deterministic output.
func Synonyms(term string) []string {
	stripped := StripSignature(term)

	path, name := splitPath(stripped)

	alternates := make(map[string]struct{})
	add := func(s string) {
		if s != "" {
			alternates[s] = struct{}{}
		}
	}

	// Camel initials of the name: HashMap -> HM.
	add(CamelFragment(name))

	// Inner-class fragments: Foo$Bar -> Foo, Bar.
	for _, fragment := range strings.Split(name, "$") {
		add(fragment)
		add(strings.ToLower(fragment))
	}

	// Short-package forms: com.example.Foo -> c.e.Foo and "c.e Foo".
	if len(path) > 0 {
		initials := make([]string, len(path))
		for i, segment := range path {
			r, _ := utf8.DecodeRuneInString(segment)
			initials[i] = string(r)
		}
		short := strings.Join(initials, ".")
		add(short + "." + name)
		add(short + " " + name)
	}

	// Literal forms.
	add(stripped)
	add(name)

	// Lowercase variant of everything gathered so far.
	gathered := make([]string, 0, len(alternates))
	for alt := range alternates {
		gathered = append(gathered, alt)
	}
	for _, alt := range gathered {
		add(strings.ToLower(alt))
	}

	result := make([]string, 0, len(alternates))
	for alt := range alternates {
		if utf8.RuneCountInString(alt) <= 1 {
			continue
		}
		if alt == term {
			continue
		}
		result = append(result, alt)
	}
	sort.Strings(result)
	return result
}

// StripSignature removes a trailing argument list from a method name:
// "a.B.run(int, String)" -> "a.B.run". Names without parentheses pass
// through unchanged.
func StripSignature(term string) string {
	if idx := strings.IndexByte(term, '('); idx >= 0 {
		return term[:idx]
	}
	return term
}

// CamelFragment returns the subsequence of uppercase runes in name:
// "HashMap" -> "HM". An all-lowercase name yields "".
func CamelFragment(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if unicode.IsUpper(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// CamelWildcard rewrites a query term into a wildcard pattern that
// matches camel-humped identifiers whose initials align with the
// term's uppercase letters: "HsMp" -> "Hs*Mp*". A wildcard is inserted
// before every uppercase rune after the first character, and a
// trailing wildcard is always appended.
func CamelWildcard(term string) string {
	var sb strings.Builder
	for i, r := range term {
		if i > 0 && unicode.IsUpper(r) {
			sb.WriteByte('*')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('*')
	return sb.String()
}

// splitPath splits a dotted name into its package path and final name
// segment. A name with no dots has an empty path.
func splitPath(term string) (path []string, name string) {
	segments := strings.Split(term, ".")
	if len(segments) == 1 {
		return nil, segments[0]
	}
	return segments[:len(segments)-1], segments[len(segments)-1]
}

package content

import (
	"fmt"
	"strconv"
	"strings"
)

/**
 * @brief One node of the serialized type-name grammar: a dotted type
 * path plus optional generic arguments. Assembly qualification is
 * stripped during parsing; two names produced by different builds of
 * the pipeline normalize identically.
 */
type TypeName struct {
	Name        string
	GenericArgs []TypeName
}

// Namespaces rewritten during normalization. Streams compiled by older
// pipeline builds carry the long namespace.
var legacyNamespaces = map[string]string{
	"Ember.Framework.Content": "Ember.Content",
}

// ParseTypeName parses a serialized type name of the form
//
//	Ns.Name
//	Ns.Name, Assembly, Version=..., Culture=..., PublicKeyToken=...
//	Ns.Name`2[[Arg, Assembly],[Arg]]
//
// dropping assembly qualification at every nesting level.
func ParseTypeName(s string) (TypeName, error) {
	t, rest, err := parseTypeName(s)
	if err != nil {
		return TypeName{}, err
	}
	if strings.TrimSpace(rest) != "" {
		return TypeName{}, fmt.Errorf("trailing characters %q in type name", rest)
	}
	return t, nil
}

func parseTypeName(s string) (TypeName, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeName{}, "", fmt.Errorf("empty type name")
	}

	// The simple name runs up to the generic arity marker, an
	// assembly separator, or a closing bracket of the enclosing arg.
	end := len(s)
	for i, r := range s {
		if r == '`' || r == ',' || r == ']' {
			end = i
			break
		}
	}
	name := strings.TrimSpace(s[:end])
	if name == "" {
		return TypeName{}, "", fmt.Errorf("empty type name segment")
	}
	t := TypeName{Name: name}
	rest := s[end:]

	if strings.HasPrefix(rest, "`") {
		digitsEnd := 1
		for digitsEnd < len(rest) && rest[digitsEnd] >= '0' && rest[digitsEnd] <= '9' {
			digitsEnd++
		}
		arity, err := strconv.Atoi(rest[1:digitsEnd])
		if err != nil || arity < 1 {
			return TypeName{}, "", fmt.Errorf("bad generic arity in type name %q", s)
		}
		rest = rest[digitsEnd:]
		if !strings.HasPrefix(rest, "[") {
			return TypeName{}, "", fmt.Errorf("generic type %q missing argument list", name)
		}
		rest = rest[1:]
		for i := 0; i < arity; i++ {
			if !strings.HasPrefix(rest, "[") {
				return TypeName{}, "", fmt.Errorf("generic argument %d of %q not bracketed", i, name)
			}
			inner, remainder, err := splitBracketed(rest)
			if err != nil {
				return TypeName{}, "", err
			}
			arg, argRest, err := parseTypeName(inner)
			if err != nil {
				return TypeName{}, "", err
			}
			// The argument's own assembly suffix is what remains
			// inside the brackets; drop it.
			_ = argRest
			t.GenericArgs = append(t.GenericArgs, arg)
			rest = remainder
			rest = strings.TrimPrefix(strings.TrimSpace(rest), ",")
			rest = strings.TrimSpace(rest)
		}
		if !strings.HasPrefix(rest, "]") {
			return TypeName{}, "", fmt.Errorf("generic type %q has unterminated argument list", name)
		}
		rest = rest[1:]
	}

	// Whatever follows a top-level comma is assembly qualification:
	// consume it up to the enclosing bracket, if any.
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, ",") {
		depth := 0
		cut := len(rest)
		for i, r := range rest {
			if r == '[' {
				depth++
			}
			if r == ']' {
				if depth == 0 {
					cut = i
					break
				}
				depth--
			}
		}
		rest = rest[cut:]
	}
	return t, rest, nil
}

// splitBracketed consumes a leading "[...]" group, returning the inner
// text and everything after the closing bracket.
func splitBracketed(s string) (string, string, error) {
	depth := 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[1:i], s[i+1:], nil
			}
		}
	}
	return "", "", fmt.Errorf("unbalanced brackets in type name %q", s)
}

// normalized applies the legacy namespace rewrites recursively.
func (t TypeName) normalized() TypeName {
	out := TypeName{Name: t.Name}
	for old, now := range legacyNamespaces {
		if strings.HasPrefix(out.Name, old+".") {
			out.Name = now + strings.TrimPrefix(out.Name, old)
			break
		}
	}
	for _, a := range t.GenericArgs {
		out.GenericArgs = append(out.GenericArgs, a.normalized())
	}
	return out
}

// String renders the canonical (assembly-free, rewritten) form.
func (t TypeName) String() string {
	if len(t.GenericArgs) == 0 {
		return t.Name
	}
	var b strings.Builder
	b.WriteString(t.Name)
	b.WriteByte('`')
	b.WriteString(strconv.Itoa(len(t.GenericArgs)))
	b.WriteByte('[')
	for i, a := range t.GenericArgs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('[')
		b.WriteString(a.String())
		b.WriteByte(']')
	}
	b.WriteByte(']')
	return b.String()
}

// NormalizeTypeName is the pure rewrite from a serialized name to its
// canonical registry key.
func NormalizeTypeName(s string) (string, error) {
	t, err := ParseTypeName(s)
	if err != nil {
		return "", err
	}
	return t.normalized().String(), nil
}

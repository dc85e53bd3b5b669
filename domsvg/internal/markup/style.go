package markup

import (
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"

	"github.com/hazyhaar/snapkit/domsvg/snapshot"
)

// InlineStyle returns the declarations of the style attribute of n.
// Declarations the parser cannot read are dropped, like a browser does.
func InlineStyle(n *html.Node) []*css.Declaration {
	raw, ok := Attr(n, "style")
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	// The parser only closes a declaration on ';' or '}'.
	if !strings.HasSuffix(raw, ";") {
		raw += ";"
	}
	decls, _ := parser.ParseDeclarations(raw)
	out := decls[:0]
	for _, d := range decls {
		if d.Property == "" {
			continue
		}
		d.Property = propertyName(d.Property)
		out = append(out, d)
	}
	return out
}

// SetStyle applies decls to the style attribute of n the way
// CSSStyleDeclaration.setProperty does: an existing property is updated
// in place, a new one is appended, an empty value removes the property.
func SetStyle(n *html.Node, decls []snapshot.Declaration) {
	if len(decls) == 0 {
		return
	}
	current := InlineStyle(n)
	index := make(map[string]int, len(current)+len(decls))
	for i, d := range current {
		index[d.Property] = i
	}

	for _, d := range decls {
		name := propertyName(d.Name)
		i, exists := index[name]
		if d.Value == "" {
			if exists {
				current[i] = nil
				delete(index, name)
			}
			continue
		}
		decl := &css.Declaration{Property: name, Value: d.Value, Important: d.Important()}
		if exists {
			current[i] = decl
			continue
		}
		index[name] = len(current)
		current = append(current, decl)
	}

	parts := make([]string, 0, len(current))
	for _, d := range current {
		if d != nil {
			parts = append(parts, d.String())
		}
	}
	SetAttr(n, "style", strings.Join(parts, " "))
}

// propertyName lowercases standard property names; custom properties are
// case-sensitive.
func propertyName(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "--") {
		return name
	}
	return strings.ToLower(name)
}

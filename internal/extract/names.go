package extract

import (
	"path"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

// ModuleName reduces an import path to the bare module name that import
// resolution matches against node names and file stems:
//
//	"github.com/acme/util"    → util
//	"./helpers.js"            → helpers
//	<stdio.h>                 → stdio
//	os.path                   → path
//	crate::net::{Conn, Addr}  → net
//	App\Models\User           → User
func ModuleName(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'`<>")
	if i := strings.Index(s, " as "); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "::{"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, "::*")
	s = strings.TrimSuffix(s, ".*")

	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	if ext := path.Ext(s); ext != "" {
		if _, ok := extToLanguage[strings.ToLower(ext)]; ok {
			s = strings.TrimSuffix(s, ext)
		}
	}
	if i := strings.LastIndex(s, "::"); i >= 0 {
		s = s[i+2:]
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}

	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// cleanOwner strips pointer, reference and generic decoration from a type
// expression and keeps its last path segment: "*List[T]" → "List".
func cleanOwner(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "*&( ")
	s = strings.TrimRight(s, ") ")
	if i := strings.IndexAny(s, "[<"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "::"); i >= 0 {
		s = s[i+2:]
	}
	return strings.TrimSpace(s)
}

// enclosingType walks up from n and returns the name of the nearest
// ancestor whose type is in owners. Reaching a type in stops first means n
// is not a member of any type.
func enclosingType(n *sitter.Node, src []byte, owners, stops map[string]bool) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		t := p.Type()
		if stops[t] {
			return ""
		}
		if owners[t] {
			if name := p.ChildByFieldName("name"); name != nil {
				return cleanOwner(name.Content(src))
			}
			return ""
		}
	}
	return ""
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// ownerWithin builds a LanguageSpec.Owner from owner and stop node types.
func ownerWithin(owners, stops []string) func(*sitter.Node, []byte) string {
	o, s := set(owners...), set(stops...)
	return func(n *sitter.Node, src []byte) string {
		return enclosingType(n, src, o, s)
	}
}

// goReceiverType returns the receiver type name of a method declaration.
func goReceiverType(n *sitter.Node, src []byte) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		param := recv.NamedChild(i)
		if param == nil || param.Type() != "parameter_declaration" {
			continue
		}
		if t := param.ChildByFieldName("type"); t != nil {
			return cleanOwner(t.Content(src))
		}
	}
	return ""
}

// rustOwner returns the implementing type of an impl block or the name of
// a trait for functions declared inside them.
func rustOwner(n *sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "function_item":
			return ""
		case "impl_item":
			if t := p.ChildByFieldName("type"); t != nil {
				return cleanOwner(t.Content(src))
			}
			return ""
		case "trait_item":
			if name := p.ChildByFieldName("name"); name != nil {
				return cleanOwner(name.Content(src))
			}
			return ""
		}
	}
	return ""
}

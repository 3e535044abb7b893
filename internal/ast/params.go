package ast

import "strings"

// Param is one parameter of a function/lambda definition. Type is the
// opaque annotation text (spec: "captured as opaque strings, used later
// only for pydantic-style body binding").
type Param struct {
	Name    string
	Default Expression // nil if no default
	Type    string      // "" if unannotated
}

func (p Param) String() string {
	s := p.Name
	if p.Type != "" {
		s += ": " + p.Type
	}
	if p.Default != nil {
		s += "=" + p.Default.String()
	}
	return s
}

// Params is a full parameter list: positional-or-keyword parameters
// (with optional defaults, which must trail undefaulted ones), an
// optional *args collector, keyword-only parameters (after a bare `*` or
// after *args), and an optional **kwargs collector.
type Params struct {
	Positional []Param
	VarArgs    *Param // *args, nil if absent
	KeywordOnly []Param
	KwArgs     *Param // **kwargs, nil if absent
}

func (p *Params) String() string {
	var parts []string
	for _, prm := range p.Positional {
		parts = append(parts, prm.String())
	}
	if p.VarArgs != nil {
		parts = append(parts, "*"+p.VarArgs.String())
	} else if len(p.KeywordOnly) > 0 {
		parts = append(parts, "*")
	}
	for _, prm := range p.KeywordOnly {
		parts = append(parts, prm.String())
	}
	if p.KwArgs != nil {
		parts = append(parts, "**"+p.KwArgs.String())
	}
	return strings.Join(parts, ", ")
}

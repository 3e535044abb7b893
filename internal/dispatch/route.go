package dispatch

import (
	"strconv"
	"strings"

	"github.com/quill-lang/quill/internal/ast"
	"github.com/quill-lang/quill/internal/interp"
)

// pathSegment is one compiled piece of a route's path template, per
// spec.md §4.9 point 2: either a literal segment that must match
// exactly, or a `{name}` placeholder that captures whatever segment the
// request path has there.
type pathSegment struct {
	literal string
	param   string // "" for a literal segment
}

// route is a registered handler ready for matching: the compiled path
// template plus enough of the handler's parameter list to bind path
// params, a request object, and a body model, per spec.md §4.9 points 3-4.
type route struct {
	method   string
	template string
	segments []pathSegment
	handler  interp.Value
	params   []ast.Param // the handler's declared parameters, in order
}

func compileSegments(template string) []pathSegment {
	var segs []pathSegment
	for _, part := range strings.Split(strings.Trim(template, "/"), "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			segs = append(segs, pathSegment{param: part[1 : len(part)-1]})
		} else {
			segs = append(segs, pathSegment{literal: part})
		}
	}
	return segs
}

// match reports whether path matches r's template, returning the
// captured {name: value} path parameters on success.
func (r *route) match(path string) (map[string]string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != len(r.segments) {
		return nil, false
	}
	params := map[string]string{}
	for i, seg := range r.segments {
		if seg.param != "" {
			params[seg.param] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	return params, true
}

// handlerParams extracts the declared parameter list of a route
// handler, supporting the two callable shapes a `def`-backed or
// lambda-backed handler can take. Anything else (a bare *Builtin, for
// instance) binds with no introspectable parameters; the dispatcher
// then calls it with no arguments, since arguments are bound by
// parameter name only.
func handlerParams(handler interp.Value) []ast.Param {
	switch h := handler.(type) {
	case *interp.Function:
		return allParams(h.Def.Params)
	case *interp.Lambda:
		return allParams(h.Node.Params)
	default:
		return nil
	}
}

func allParams(p *ast.Params) []ast.Param {
	if p == nil {
		return nil
	}
	out := append([]ast.Param{}, p.Positional...)
	out = append(out, p.KeywordOnly...)
	return out
}

// coercePathParam implements spec.md §4.9 point 3's default coercion:
// a path parameter with no type annotation is passed as a string unless
// it parses cleanly as an integer. An annotation other than int, float
// or str passes the raw string unchanged.
func coercePathParam(raw string, typ string) interp.Value {
	switch typ {
	case "int":
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return interp.NewInt(n)
		}
		return interp.NewStr(raw)
	case "float":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return interp.NewFloat(f)
		}
		return interp.NewStr(raw)
	case "str", "":
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && typ == "" {
			return interp.NewInt(n)
		}
		return interp.NewStr(raw)
	default:
		return interp.NewStr(raw)
	}
}

// Package stdlib provides the host-side collaborator modules spec.md
// §4.6 describes as modules "the host *should* provide" rather than
// core evaluator concerns: they are registered into a Context's module
// registry the same way a CLI or an embedding host would register any
// other third-party module, they just ship in this repository too.
package stdlib

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/quill-lang/quill/internal/interp"
)

// JSONModule builds the `json` module's namespace: `loads` (via gjson,
// walking its parsed Result tree into Values) and `dumps` (building the
// JSON text incrementally with sjson.SetRaw, then re-indenting with
// tidwall/pretty when an `indent=` keyword argument is given — the same
// three tidwall libraries the teacher's indirect dependency closure
// already carries).
func JSONModule() *interp.ModuleEntry {
	ns := interp.ModuleNamespace{
		"loads": interp.NewBuiltin("loads", jsonLoads),
		"dumps": interp.NewBuiltinKw("dumps", jsonDumps),
	}
	return &interp.ModuleEntry{Namespace: ns}
}

func jsonLoads(ctx *interp.Context, args []interp.Value, kwargs map[string]interp.Value) (interp.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("loads() takes exactly one argument (%d given)", len(args))
	}
	s, ok := args[0].(interp.StrValue)
	if !ok {
		return nil, fmt.Errorf("the JSON object must be str, not '%s'", interp.TypeName(args[0]))
	}
	return ParseJSON(s.String())
}

// ParseJSON decodes JSON text into a Value, exported so other host code
// (internal/dispatch's request.json() and request-body model binding)
// shares this module's gjson-backed decoder instead of writing a second
// one.
func ParseJSON(text string) (interp.Value, error) {
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("invalid JSON")
	}
	return gjsonToValue(gjson.Parse(text)), nil
}

func gjsonToValue(r gjson.Result) interp.Value {
	switch r.Type {
	case gjson.Null:
		return interp.None
	case gjson.True:
		return interp.Bool(true)
	case gjson.False:
		return interp.Bool(false)
	case gjson.Number:
		if r.Num == float64(int64(r.Num)) && !containsFloatMarker(r.Raw) {
			return interp.NewInt(int64(r.Num))
		}
		return interp.NewFloat(r.Num)
	case gjson.String:
		return interp.NewStr(r.String())
	default:
		if r.IsArray() {
			var elems []interp.Value
			r.ForEach(func(_, v gjson.Result) bool {
				elems = append(elems, gjsonToValue(v))
				return true
			})
			return interp.NewList(elems...)
		}
		if r.IsObject() {
			d := interp.NewDict()
			r.ForEach(func(k, v gjson.Result) bool {
				_ = d.Set(interp.NewStr(k.String()), gjsonToValue(v))
				return true
			})
			return d
		}
		return interp.None
	}
}

// containsFloatMarker reports whether the raw JSON number literal looks
// like a float (has a decimal point or exponent), so `1` decodes to an
// int but `1.0` decodes to a float, matching spec.md §3's numeric tower.
func containsFloatMarker(raw string) bool {
	for _, c := range raw {
		if c == '.' || c == 'e' || c == 'E' {
			return true
		}
	}
	return false
}

// DumpJSON renders v as JSON text, exported so host code (the CLI's
// serve command) can serialise a response body without
// going through a Quill-level dumps() call.
func DumpJSON(v interp.Value) (string, error) {
	return valueToJSON(v)
}

func jsonDumps(ctx *interp.Context, args []interp.Value, kwargs map[string]interp.Value) (interp.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("dumps() takes exactly one argument (%d given)", len(args))
	}
	raw, err := valueToJSON(args[0])
	if err != nil {
		return nil, err
	}
	if indentVal, ok := kwargs["indent"]; ok {
		n, ok := indentVal.(interp.IntValue)
		if ok && n.Value.Sign() > 0 {
			width := int(n.Value.Int64())
			opts := *pretty.DefaultOptions
			opts.Indent = stringsRepeat(" ", width)
			raw = string(pretty.PrettyOptions([]byte(raw), &opts))
			raw = trimTrailingNewline(raw)
		}
	}
	return interp.NewStr(raw), nil
}

func stringsRepeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func trimTrailingNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		return s[:len(s)-1]
	}
	return s
}

// valueToJSON renders v as JSON text, building it up with sjson.SetRaw
// rather than a marshal-struct pass, so a value whose container mixes
// dict/list/scalar nesting is encoded in the same incremental style the
// dispatcher's response-envelope merging (internal/dispatch) uses.
func valueToJSON(v interp.Value) (string, error) {
	switch x := v.(type) {
	case interp.NoneValue:
		return "null", nil
	case interp.BoolValue:
		if x.Value {
			return "true", nil
		}
		return "false", nil
	case interp.IntValue:
		return x.Value.String(), nil
	case interp.FloatValue:
		return fmt.Sprintf("%g", x.Value), nil
	case interp.StrValue:
		raw, err := sjson.Set("{}", "v", x.String())
		if err != nil {
			return "", err
		}
		return gjson.Get(raw, "v").Raw, nil
	case *interp.ListValue:
		out := "[]"
		var err error
		for i, elem := range x.Elements {
			child, cerr := valueToJSON(elem)
			if cerr != nil {
				return "", cerr
			}
			out, err = sjson.SetRaw(out, fmt.Sprintf("%d", i), child)
			if err != nil {
				return "", err
			}
		}
		return out, nil
	case interp.TupleValue:
		return valueToJSON(interp.NewList(x.Elements...))
	case *interp.DictValue:
		out := "{}"
		var err error
		for i, k := range x.Keys() {
			ks, ok := k.(interp.StrValue)
			if !ok {
				return "", fmt.Errorf("keys must be str, not '%s'", interp.TypeName(k))
			}
			child, cerr := valueToJSON(x.Values()[i])
			if cerr != nil {
				return "", cerr
			}
			out, err = sjson.SetRaw(out, sjsonEscapePath(ks.String()), child)
			if err != nil {
				return "", err
			}
		}
		return out, nil
	default:
		return "", fmt.Errorf("object of type '%s' is not JSON serializable", interp.TypeName(v))
	}
}

// sjsonEscapePath escapes path metacharacters (., *, ?) sjson would
// otherwise interpret as wildcards, since dict keys are opaque strings.
func sjsonEscapePath(key string) string {
	out := make([]byte, 0, len(key))
	for _, c := range key {
		if c == '.' || c == '*' || c == '?' {
			out = append(out, '\\')
		}
		out = append(out, string(c)...)
	}
	return string(out)
}

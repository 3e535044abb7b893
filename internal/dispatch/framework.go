package dispatch

import (
	"fmt"
	"strings"

	"github.com/quill-lang/quill/internal/interp"
)

// InstallFramework registers the minimal web-app framework spec.md
// §4.9 presumes a Quill script uses to build its `app` binding: an
// `App` class whose `.route`/`.get`/`.post`/... methods are decorators
// appending route records to `__routes__`, and the three response
// wrapper classes (`HTMLResponse`, `JSONResponse`, `StreamingResponse`)
// a handler may return instead of a plain dict. It is installed the
// same way internal/interp's own exception classes are: as global
// bindings in the Context's module-level environment, available without
// an explicit `import` (spec.md §4.9's "registered web-app object" is
// ambient scaffolding, not a stdlib module the Non-goals exclude).
func InstallFramework(ip *interp.Interp) {
	env := ip.Ctx.Env
	env.Define("App", newAppClass())
	env.Define("HTMLResponse", newHTMLResponseClass())
	env.Define("JSONResponse", newJSONResponseClass())
	env.Define("StreamingResponse", newStreamingResponseClass())
}

func newAppClass() *interp.Class {
	attrs := map[string]interp.Value{
		"__init__": interp.NewBuiltin("App.__init__", func(ctx *interp.Context, args []interp.Value, kwargs map[string]interp.Value) (interp.Value, error) {
			self, ok := args[0].(*interp.Instance)
			if !ok {
				return nil, fmt.Errorf("App.__init__ called on a non-instance receiver")
			}
			self.Attrs["__routes__"] = interp.NewList()
			return interp.None, nil
		}),
		"route": interp.NewBuiltin("App.route", appRoute),
	}
	for _, m := range []string{"get", "post", "put", "delete", "patch", "options", "head"} {
		attrs[m] = interp.NewBuiltin("App."+m, appMethodShortcut(strings.ToUpper(m)))
	}
	cls, err := interp.NewClass("App", nil, attrs)
	if err != nil {
		panic(err) // App has no bases, always linearizable
	}
	return cls
}

func appRoute(ctx *interp.Context, args []interp.Value, kwargs map[string]interp.Value) (interp.Value, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("route() takes self, method, and path")
	}
	self, ok := args[0].(*interp.Instance)
	if !ok {
		return nil, fmt.Errorf("route() must be called on an App instance")
	}
	method, ok := args[1].(interp.StrValue)
	if !ok {
		return nil, fmt.Errorf("route() method must be str")
	}
	path, ok := args[2].(interp.StrValue)
	if !ok {
		return nil, fmt.Errorf("route() path must be str")
	}
	return routeDecorator(self, method.String(), path.String()), nil
}

func appMethodShortcut(method string) interp.BuiltinFunc {
	verb := strings.ToLower(method)
	return func(ctx *interp.Context, args []interp.Value, kwargs map[string]interp.Value) (interp.Value, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("%s() takes self and a path", verb)
		}
		self, ok := args[0].(*interp.Instance)
		if !ok {
			return nil, fmt.Errorf("%s() must be called on an App instance", verb)
		}
		path, ok := args[1].(interp.StrValue)
		if !ok {
			return nil, fmt.Errorf("%s() path must be str", verb)
		}
		return routeDecorator(self, method, path.String()), nil
	}
}

// routeDecorator returns the decorator `@app.get(path)` produces: called
// with the decorated function, it appends a route record to the app's
// `__routes__` list and returns the function unchanged, so the name
// still refers to a plain callable afterward.
func routeDecorator(self *interp.Instance, method, path string) *interp.Builtin {
	return interp.NewBuiltin("route_decorator", func(ctx *interp.Context, args []interp.Value, kwargs map[string]interp.Value) (interp.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("route decorator takes exactly one function")
		}
		handler := args[0]
		record := interp.NewDict()
		_ = record.Set(interp.NewStr("method"), interp.NewStr(strings.ToUpper(method)))
		_ = record.Set(interp.NewStr("path"), interp.NewStr(path))
		_ = record.Set(interp.NewStr("handler"), handler)
		routesVal, ok := interp.LookupAttr(self, "__routes__")
		if !ok {
			return nil, fmt.Errorf("App instance has no __routes__ (did a subclass override __init__ without calling it?)")
		}
		routes, ok := routesVal.(*interp.ListValue)
		if !ok {
			return nil, fmt.Errorf("__routes__ must be a list")
		}
		routes.Elements = append(routes.Elements, record)
		return handler, nil
	})
}

func newHTMLResponseClass() *interp.Class {
	return responseClass("HTMLResponse", func(ctx *interp.Context, self *interp.Instance, args []interp.Value, kwargs map[string]interp.Value) error {
		if len(args) < 1 {
			return fmt.Errorf("HTMLResponse() requires content")
		}
		self.Attrs["content"] = args[0]
		self.Attrs["status"] = optionalInt(args, kwargs, 1, "status", 200)
		return nil
	})
}

func newJSONResponseClass() *interp.Class {
	return responseClass("JSONResponse", func(ctx *interp.Context, self *interp.Instance, args []interp.Value, kwargs map[string]interp.Value) error {
		if len(args) < 1 {
			return fmt.Errorf("JSONResponse() requires content")
		}
		self.Attrs["content"] = args[0]
		self.Attrs["status"] = optionalInt(args, kwargs, 1, "status", 200)
		return nil
	})
}

func newStreamingResponseClass() *interp.Class {
	return responseClass("StreamingResponse", func(ctx *interp.Context, self *interp.Instance, args []interp.Value, kwargs map[string]interp.Value) error {
		if len(args) < 1 {
			return fmt.Errorf("StreamingResponse() requires content")
		}
		self.Attrs["content"] = args[0]
		self.Attrs["media_type"] = optionalStr(args, kwargs, 1, "media_type", "text/plain")
		self.Attrs["status"] = optionalInt(args, kwargs, 2, "status", 200)
		if h, ok := kwargs["headers"]; ok {
			self.Attrs["headers"] = h
		} else {
			self.Attrs["headers"] = interp.NewDict()
		}
		return nil
	})
}

func responseClass(name string, init func(ctx *interp.Context, self *interp.Instance, args []interp.Value, kwargs map[string]interp.Value) error) *interp.Class {
	cls, err := interp.NewClass(name, nil, map[string]interp.Value{
		"__init__": interp.NewBuiltinKw(name+".__init__", func(ctx *interp.Context, args []interp.Value, kwargs map[string]interp.Value) (interp.Value, error) {
			self, ok := args[0].(*interp.Instance)
			if !ok {
				return nil, fmt.Errorf("%s.__init__ called on a non-instance receiver", name)
			}
			if err := init(ctx, self, args[1:], kwargs); err != nil {
				return nil, err
			}
			return interp.None, nil
		}),
	})
	if err != nil {
		panic(err)
	}
	return cls
}

// optionalInt reads a positional-or-keyword int argument with a default,
// the same convention the standard-library builtins already use for
// `status=200`-style parameters passed to Go-implemented constructors.
func optionalInt(args []interp.Value, kwargs map[string]interp.Value, pos int, name string, def int64) interp.Value {
	if pos < len(args) {
		return args[pos]
	}
	if v, ok := kwargs[name]; ok {
		return v
	}
	return interp.NewInt(def)
}

func optionalStr(args []interp.Value, kwargs map[string]interp.Value, pos int, name string, def string) interp.Value {
	if pos < len(args) {
		return args[pos]
	}
	if v, ok := kwargs[name]; ok {
		return v
	}
	return interp.NewStr(def)
}

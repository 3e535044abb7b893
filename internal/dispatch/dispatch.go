// Package dispatch implements the request dispatcher spec.md §4.9 calls
// "Lambda": booting a script once, finding its `app` binding, and
// routing Request values to the handler whose path template matches.
package dispatch

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quill-lang/quill/internal/ast"
	"github.com/quill-lang/quill/internal/errors"
	"github.com/quill-lang/quill/internal/interp"
	"github.com/quill-lang/quill/internal/stdlib"
)

// Dispatcher holds one booted app: its Interp/Context, the `app` value
// itself, and the routes read off its `__routes__` at boot time (spec.md
// §4.9: "boots a script once, ... then locates ... `app`").
type Dispatcher struct {
	Interp *interp.Interp
	App    interp.Value
	routes []*route
}

// Boot runs mod to completion against ip's Context, then reads the
// well-known `app` binding's `__routes__` attribute to build the route
// table, per spec.md §4.9 and the `boot` verb of §6.
func Boot(ip *interp.Interp, mod *ast.Module) (*Dispatcher, error) {
	if _, err := ip.Run(mod); err != nil {
		return nil, err
	}
	appVal, ok := ip.Ctx.Env.Get("app")
	if !ok {
		return nil, errors.Raised("RuntimeError", 0, "script does not define an 'app' binding")
	}
	routesVal, err := ip.GetAttr(appVal, "__routes__", 0)
	if err != nil {
		return nil, err
	}
	routesList, ok := routesVal.(*interp.ListValue)
	if !ok {
		return nil, errors.Raised("RuntimeError", 0, "'app.__routes__' must be a list of route records")
	}
	routes := make([]*route, 0, len(routesList.Elements))
	for _, rv := range routesList.Elements {
		rec, ok := rv.(*interp.DictValue)
		if !ok {
			continue
		}
		method, _, _ := rec.Get(interp.NewStr("method"))
		path, _, _ := rec.Get(interp.NewStr("path"))
		handler, _, _ := rec.Get(interp.NewStr("handler"))
		ms, _ := method.(interp.StrValue)
		ps, _ := path.(interp.StrValue)
		r := &route{
			method:   strings.ToUpper(ms.String()),
			template: ps.String(),
			segments: compileSegments(ps.String()),
			handler:  handler,
			params:   handlerParams(handler),
		}
		routes = append(routes, r)
	}
	return &Dispatcher{Interp: ip, App: appVal, routes: routes}, nil
}

// matchRoute implements spec.md §4.9 point 2: first declaration-order
// route whose method and path both match wins.
func (d *Dispatcher) matchRoute(method, path string) (*route, map[string]string, bool) {
	method = strings.ToUpper(method)
	for _, r := range d.routes {
		if r.method != method {
			continue
		}
		if params, ok := r.match(path); ok {
			return r, params, true
		}
	}
	return nil, nil, false
}

// Handle implements the `handle` verb (spec.md §6): route, invoke, and
// normalise into a single Response.
func (d *Dispatcher) Handle(req *Request) (*Response, error) {
	r, pathParams, ok := d.matchRoute(req.Method, req.Path)
	if !ok {
		return nil, errors.RouteNotFound(req.Method, req.Path)
	}

	kwargs, err := d.bindHandlerArgs(r, pathParams, req)
	if err != nil {
		return nil, err
	}

	before := d.snapshot()
	started := time.Now()
	result, callErr := d.Interp.Call(r.handler, nil, kwargs, 0)
	elapsed := time.Since(started)
	d.Interp.Ctx.AddComputeMicros(elapsed)

	if callErr != nil {
		resp := errorResponse(callErr)
		resp.Telemetry = d.telemetry(before, elapsed)
		return &resp, nil
	}

	if streamInst, ok := asStreamingInstance(result); ok {
		body, headers, err := d.drainStream(streamInst)
		if err != nil {
			resp := errorResponse(err)
			resp.Telemetry = d.telemetry(before, elapsed)
			return &resp, nil
		}
		return &Response{Status: 200, Headers: headers, Body: interp.NewStr(body), Telemetry: d.telemetry(before, elapsed)}, nil
	}

	status, headers, body, err := normalizeResponse(d.Interp, result, 0)
	if err != nil {
		resp := errorResponse(err)
		resp.Telemetry = d.telemetry(before, elapsed)
		return &resp, nil
	}
	return &Response{Status: status, Headers: headers, Body: body, Telemetry: d.telemetry(before, elapsed)}, nil
}

// HandleStream implements the `handle_stream` verb: like Handle, but a
// StreamingResponse result stays lazy instead of being drained up front,
// and the producer/consumer rendezvous pauses the Context's timeout
// budget between chunks (spec.md §5 "back-pressure").
func (d *Dispatcher) HandleStream(req *Request) (*StreamingResponse, error) {
	r, pathParams, ok := d.matchRoute(req.Method, req.Path)
	if !ok {
		return nil, errors.RouteNotFound(req.Method, req.Path)
	}
	kwargs, err := d.bindHandlerArgs(r, pathParams, req)
	if err != nil {
		return nil, err
	}

	before := d.snapshot()
	started := time.Now()
	result, callErr := d.Interp.Call(r.handler, nil, kwargs, 0)
	if callErr != nil {
		telemetry := d.telemetry(before, time.Since(started))
		return &StreamingResponse{
			Status:    500,
			Headers:   map[string]string{"content-type": "application/json"},
			Telemetry: telemetry,
			Next: func() (Chunk, bool) {
				class, msg := classify(callErr)
				return Chunk{Content: `{"detail": "` + class + ": " + msg + `"}`}, false
			},
		}, nil
	}

	streamInst, isStream := asStreamingInstance(result)
	if !isStream {
		// Non-streaming handler result: surface it as a single chunk so
		// callers that always use HandleStream still get one value back.
		status, headers, body, nerr := normalizeResponse(d.Interp, result, 0)
		d.Interp.Ctx.AddComputeMicros(time.Since(started))
		if nerr != nil {
			telemetry := d.telemetry(before, time.Since(started))
			return &StreamingResponse{
				Status:    500,
				Headers:   map[string]string{"content-type": "application/json"},
				Telemetry: telemetry,
				Next: func() (Chunk, bool) {
					class, msg := classify(nerr)
					return Chunk{Content: `{"detail": "` + class + ": " + msg + `"}`}, false
				},
			}, nil
		}
		text, _ := d.Interp.StrOf(body, 0)
		sent := false
		return &StreamingResponse{
			Status:    status,
			Headers:   headers,
			Telemetry: d.telemetry(before, time.Since(started)),
			Next: func() (Chunk, bool) {
				if sent {
					return Chunk{}, false
				}
				sent = true
				return Chunk{Content: text}, true
			},
		}, nil
	}

	content := streamInst.Attrs["content"]
	mediaType, _ := streamInst.Attrs["media_type"].(interp.StrValue)
	status, _ := attrInt(streamInst, "status", 200)
	headers := mergeHeaders(map[string]string{"content-type": mediaType.String()}, headersFromDict(dictAttr(streamInst, "headers")))

	it, iterErr := d.Interp.GetIterator(content, 0)
	if iterErr != nil {
		d.Interp.Ctx.AddComputeMicros(time.Since(started))
		return nil, iterErr
	}

	closed := false
	closeIt := func() {
		if closed {
			return
		}
		closed = true
		d.Interp.CloseIterator(it)
	}

	paused := d.Interp.Ctx.PauseBudget()
	next := func() (Chunk, bool) {
		d.Interp.Ctx.ResumeBudget(paused, time.Now())
		v, ok, err := d.Interp.IterNext(it, 0)
		paused = d.Interp.Ctx.PauseBudget()
		if err != nil {
			closeIt()
			return Chunk{Err: err}, false
		}
		if !ok {
			closeIt()
			return Chunk{}, false
		}
		s, serr := d.Interp.StrOf(v, 0)
		if serr != nil {
			closeIt()
			return Chunk{Err: serr}, false
		}
		return Chunk{Content: s}, true
	}

	return &StreamingResponse{Status: status, Headers: headers, Telemetry: d.telemetry(before, time.Since(started)), Next: next, Close: closeIt}, nil
}

func dictAttr(inst *interp.Instance, name string) *interp.DictValue {
	v, ok := inst.Attrs[name]
	if !ok {
		return nil
	}
	d, _ := v.(*interp.DictValue)
	return d
}

func asStreamingInstance(v interp.Value) (*interp.Instance, bool) {
	inst, ok := v.(*interp.Instance)
	if !ok || inst.Class.Name != "StreamingResponse" {
		return nil, false
	}
	return inst, true
}

// drainStream fully consumes a StreamingResponse's content for the
// non-streaming `handle` verb, which cannot return a lazy body.
func (d *Dispatcher) drainStream(inst *interp.Instance) (string, map[string]string, error) {
	content := inst.Attrs["content"]
	elems, err := d.Interp.IterableToSlice(content, 0)
	if err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	for _, e := range elems {
		s, err := d.Interp.StrOf(e, 0)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(s)
	}
	mediaType, _ := inst.Attrs["media_type"].(interp.StrValue)
	headers := mergeHeaders(map[string]string{"content-type": mediaType.String()}, headersFromDict(dictAttr(inst, "headers")))
	return sb.String(), headers, nil
}

type snapshot struct {
	events   int
	fileOps  int
	compute  int64
}

func (d *Dispatcher) snapshot() snapshot {
	ctx := d.Interp.Ctx
	return snapshot{events: len(ctx.EventLog), fileOps: ctx.FileOps, compute: ctx.ComputeMicros}
}

func (d *Dispatcher) telemetry(before snapshot, elapsed time.Duration) Telemetry {
	ctx := d.Interp.Ctx
	return Telemetry{
		TotalMicros:   elapsed.Microseconds(),
		ComputeMicros: ctx.ComputeMicros - before.compute,
		EventCount:    len(ctx.EventLog) - before.events,
		FileOps:       ctx.FileOps - before.fileOps,
		RequestID:     uuid.New().String(),
	}
}

// bindHandlerArgs implements spec.md §4.9 points 3-4: path parameters
// coerced by declared type, a `request` parameter bound to a request
// object, and an annotated body-model parameter parsed and validated
// from the request body.
func (d *Dispatcher) bindHandlerArgs(r *route, pathParams map[string]string, req *Request) (map[string]interp.Value, error) {
	kwargs := map[string]interp.Value{}
	reqInst := d.buildRequestInstance(req)
	for _, p := range r.params {
		switch {
		case p.Name == "request":
			kwargs["request"] = reqInst
		case isPathParam(pathParams, p.Name):
			kwargs[p.Name] = coercePathParam(pathParams[p.Name], p.Type)
		case p.Type != "" && isRegisteredClass(d.Interp, p.Type):
			if !req.HasBody {
				continue
			}
			model, err := bindBodyModel(d.Interp, p.Type, req.Body)
			if err != nil {
				return nil, err
			}
			kwargs[p.Name] = model
		}
	}
	return kwargs, nil
}

func isPathParam(pathParams map[string]string, name string) bool {
	_, ok := pathParams[name]
	return ok
}

func isRegisteredClass(ip *interp.Interp, name string) bool {
	v, ok := ip.Ctx.Env.Get(name)
	if !ok {
		return false
	}
	_, ok = v.(*interp.Class)
	return ok
}

// buildRequestInstance builds the object spec.md §4.9 point 4 describes:
// method/path/headers/query_params/body attributes plus a json() method.
func (d *Dispatcher) buildRequestInstance(req *Request) *interp.Instance {
	cls, err := interp.NewClass("Request", nil, map[string]interp.Value{})
	if err != nil {
		panic(err)
	}
	inst := interp.NewInstance(cls)
	inst.Attrs["method"] = interp.NewStr(req.Method)
	inst.Attrs["path"] = interp.NewStr(req.Path)
	inst.Attrs["headers"] = dictFromMap(req.Headers)
	inst.Attrs["query_params"] = dictFromMap(req.QueryParams)
	if req.HasBody {
		inst.Attrs["body"] = interp.NewStr(req.Body)
	} else {
		inst.Attrs["body"] = interp.None
	}
	body := req.Body
	classes := d.Interp.Classes
	inst.Attrs["json"] = interp.NewBuiltin("Request.json", func(ctx *interp.Context, args []interp.Value, kwargs map[string]interp.Value) (interp.Value, error) {
		v, err := stdlib.ParseJSON(body)
		if err != nil {
			return nil, interp.Raise(classes, 0, "ValueError", "request body is not valid JSON: %s", err.Error())
		}
		return v, nil
	})
	return inst
}

func dictFromMap(m map[string]string) *interp.DictValue {
	d := interp.NewDict()
	for k, v := range m {
		_ = d.Set(interp.NewStr(k), interp.NewStr(v))
	}
	return d
}

// bindBodyModel parses body as JSON and constructs an instance of the
// class named typeName, coercing declared primitive-typed fields and
// relying on the class's own __init__ parameter binding to enforce
// which fields are required, per spec.md §4.9 point 3.
func bindBodyModel(ip *interp.Interp, typeName, body string) (interp.Value, error) {
	cls, _ := ip.Ctx.Env.Get(typeName)
	classVal, ok := cls.(*interp.Class)
	if !ok {
		return nil, errors.Raised("TypeError", 0, "%s is not a class", typeName)
	}
	parsed, err := stdlib.ParseJSON(body)
	if err != nil {
		return nil, errors.Raised("ValueError", 0, "request body is not valid JSON: %s", err.Error())
	}
	fields, ok := parsed.(*interp.DictValue)
	if !ok {
		return nil, errors.Raised("ValueError", 0, "request body must be a JSON object to bind %s", typeName)
	}
	initParams := modelInitParams(classVal)
	kwargs := map[string]interp.Value{}
	for i, k := range fields.Keys() {
		ks, ok := k.(interp.StrValue)
		if !ok {
			continue
		}
		v := fields.Values()[i]
		kwargs[ks.String()] = coerceField(v, fieldType(initParams, ks.String()))
	}
	return ip.Call(classVal, nil, kwargs, 0)
}

func modelInitParams(cls *interp.Class) []ast.Param {
	for _, m := range cls.MRO {
		if v, ok := m.Attrs["__init__"]; ok {
			if fn, ok := v.(*interp.Function); ok {
				all := allParams(fn.Def.Params)
				if len(all) > 0 {
					return all[1:] // drop self
				}
			}
		}
	}
	return nil
}

func fieldType(params []ast.Param, name string) string {
	for _, p := range params {
		if p.Name == name {
			return p.Type
		}
	}
	return ""
}

func coerceField(v interp.Value, typ string) interp.Value {
	s, isStr := v.(interp.StrValue)
	if !isStr {
		return v
	}
	switch typ {
	case "int":
		if n, err := strconv.ParseInt(s.String(), 10, 64); err == nil {
			return interp.NewInt(n)
		}
	case "float":
		if f, err := strconv.ParseFloat(s.String(), 64); err == nil {
			return interp.NewFloat(f)
		}
	case "bool":
		switch s.String() {
		case "true":
			return interp.True
		case "false":
			return interp.False
		}
	}
	return v
}

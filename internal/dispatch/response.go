package dispatch

import (
	"github.com/quill-lang/quill/internal/interp"
)

// normalizeResponse implements spec.md §4.9's "Response envelope": a
// handler's return value collapses into a status/headers/body triple
// regardless of which of the three shapes it used.
func normalizeResponse(ip *interp.Interp, result interp.Value, line int) (status int, headers map[string]string, body interp.Value, err error) {
	if inst, ok := result.(*interp.Instance); ok {
		switch inst.Class.Name {
		case "HTMLResponse":
			st, _ := attrInt(inst, "status", 200)
			return st, map[string]string{"content-type": "text/html"}, inst.Attrs["content"], nil
		case "JSONResponse":
			st, _ := attrInt(inst, "status", 200)
			return st, map[string]string{"content-type": "application/json"}, inst.Attrs["content"], nil
		}
	}
	return 200, map[string]string{"content-type": "application/json"}, result, nil
}

func attrInt(inst *interp.Instance, name string, def int) (int, bool) {
	v, ok := inst.Attrs[name]
	if !ok {
		return def, false
	}
	if n, ok := v.(interp.IntValue); ok {
		return int(n.Value.Int64()), true
	}
	return def, false
}

// errorResponse implements spec.md §4.9's "Handler errors": an
// uncaught exception from the handler becomes a 500 whose body names
// the exception class and message.
func errorResponse(err error) Response {
	class, msg := classify(err)
	body := interp.NewDict()
	_ = body.Set(interp.NewStr("detail"), interp.NewStr(class+": "+msg))
	return Response{Status: 500, Headers: map[string]string{"content-type": "application/json"}, Body: body}
}

func classify(err error) (class, msg string) {
	if r, ok := err.(*interp.Raised); ok {
		return r.Instance.Class.Name, errMessage(r)
	}
	return "RuntimeError", err.Error()
}

func errMessage(r *interp.Raised) string {
	s := r.Error()
	// r.Error() already renders "<Class>: <msg>"; strip the class prefix
	// back off since errorResponse re-adds it itself.
	prefix := r.Instance.Class.Name + ": "
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

func headersFromDict(d *interp.DictValue) map[string]string {
	out := map[string]string{}
	if d == nil {
		return out
	}
	for i, k := range d.Keys() {
		ks, ok := k.(interp.StrValue)
		if !ok {
			continue
		}
		vs, ok := d.Values()[i].(interp.StrValue)
		if !ok {
			continue
		}
		out[ks.String()] = vs.String()
	}
	return out
}

func mergeHeaders(base, extra map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

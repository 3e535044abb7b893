package dispatch

import "github.com/quill-lang/quill/internal/interp"

// Request is the host-facing shape of an inbound call, per spec.md
// §4.9/§6: method, path, and the optional headers/query/body a
// transport adapter (cmd/quill's `serve` HTTP glue, or any other host)
// fills in from its own request object.
type Request struct {
	Method      string
	Path        string
	Headers     map[string]string
	QueryParams map[string]string
	Body        string
	HasBody     bool
}

// Telemetry is the per-response accounting record spec.md §4.9 requires
// on every response: wall-clock and compute microseconds, and the
// event-log/file-op deltas observed across this one `handle` call.
type Telemetry struct {
	TotalMicros   int64
	ComputeMicros int64
	EventCount    int
	FileOps       int
	RequestID     string
}

// Response is a fully normalised handler result (spec.md §4.9's
// "Response envelope"): a plain mapping, HTMLResponse, or JSONResponse
// all collapse into this shape.
type Response struct {
	Status    int
	Headers   map[string]string
	Body      interp.Value
	Telemetry Telemetry
}

// Chunk is one piece of a StreamingResponse's lazily-produced body: a
// content chunk, or the trailing error envelope a producer-side
// exception becomes (spec.md §4.9 "Handler errors").
type Chunk struct {
	Content string
	Err     error
}

// StreamingResponse replaces Response's Body with a pull-based Chunks
// iterator (spec.md §6: "replaces body with chunks — a lazy sequence of
// strings"), so the transport adapter can stream bytes as they are
// produced instead of buffering the whole body.
type StreamingResponse struct {
	Status    int
	Headers   map[string]string
	Telemetry Telemetry
	Next      func() (Chunk, bool)

	// Close releases the underlying generator/iterator when a consumer
	// stops calling Next before it reports ok=false — an abandoned HTTP
	// response body, or a transport adapter that errors out mid-stream.
	// Next itself calls this on ordinary exhaustion, so a well-behaved
	// caller that drains to completion need not call it again; it is
	// always safe to call more than once. Nil for responses with nothing
	// to release (an error envelope, or an already-fully-buffered single
	// chunk).
	Close func()
}

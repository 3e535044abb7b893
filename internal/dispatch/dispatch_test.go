package dispatch

import (
	"strings"
	"testing"

	"github.com/quill-lang/quill/internal/interp"
	"github.com/quill-lang/quill/internal/parser"
)

func bootSource(t *testing.T, src string) *Dispatcher {
	t.Helper()
	mod, errs := parser.ParseModule(src)
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	ctx := interp.NewContext(interp.Options{})
	ip := interp.New(ctx)
	InstallFramework(ip)
	d, err := Boot(ip, mod)
	if err != nil {
		t.Fatalf("unexpected boot error: %v", err)
	}
	return d
}

func TestMultiParamPathDispatch(t *testing.T) {
	src := `
app = App()

@app.get("/users/{user_id}/posts/{post_id}")
def get_post(user_id, post_id):
    return {"user": user_id, "post": post_id}
`
	d := bootSource(t, src)
	resp, err := d.Handle(&Request{Method: "GET", Path: "/users/5/posts/99"})
	if err != nil {
		t.Fatalf("unexpected handle error: %v", err)
	}
	if resp.Status != 200 {
		t.Fatalf("expected status 200, got %d", resp.Status)
	}
	body, ok := resp.Body.(*interp.DictValue)
	if !ok {
		t.Fatalf("expected a dict body, got %T", resp.Body)
	}
	user, _, _ := body.Get(interp.NewStr("user"))
	post, _, _ := body.Get(interp.NewStr("post"))
	if interp.Repr(user, nil) != "5" || interp.Repr(post, nil) != "99" {
		t.Fatalf("expected path params coerced to int, got user=%v post=%v", user, post)
	}
}

func TestRouteNotFoundIsStructured(t *testing.T) {
	src := `
app = App()

@app.get("/users/{user_id}")
def get_user(user_id):
    return {"user": user_id}
`
	d := bootSource(t, src)
	_, err := d.Handle(&Request{Method: "GET", Path: "/nope"})
	if err == nil {
		t.Fatalf("expected a route_not_found error")
	}
	if !strings.Contains(err.Error(), "GET") || !strings.Contains(err.Error(), "/nope") {
		t.Fatalf("expected the error to cite method and path, got %v", err)
	}
}

func TestHandlerErrorBecomes500(t *testing.T) {
	src := `
app = App()

@app.get("/boom")
def boom():
    raise ValueError("kaboom")
`
	d := bootSource(t, src)
	resp, err := d.Handle(&Request{Method: "GET", Path: "/boom"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != 500 {
		t.Fatalf("expected status 500, got %d", resp.Status)
	}
	body, ok := resp.Body.(*interp.DictValue)
	if !ok {
		t.Fatalf("expected a dict body, got %T", resp.Body)
	}
	detail, _, _ := body.Get(interp.NewStr("detail"))
	ds, ok := detail.(interp.StrValue)
	if !ok || !strings.Contains(ds.String(), "ValueError") || !strings.Contains(ds.String(), "kaboom") {
		t.Fatalf("expected detail to name the exception class and message, got %v", detail)
	}
}

func TestHTMLResponseEnvelope(t *testing.T) {
	src := `
app = App()

@app.get("/page")
def page():
    return HTMLResponse("<h1>hi</h1>", status=201)
`
	d := bootSource(t, src)
	resp, err := d.Handle(&Request{Method: "GET", Path: "/page"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != 201 {
		t.Fatalf("expected status 201, got %d", resp.Status)
	}
	if resp.Headers["content-type"] != "text/html" {
		t.Fatalf("expected text/html content-type, got %v", resp.Headers)
	}
}

func TestStreamingResponseIsLazyAndOrdered(t *testing.T) {
	src := `
app = App()

def rows():
    yield "<table>"
    yield "<tr>"
    yield "<td>1</td>"
    yield "</tr>"
    yield "</table>"

@app.get("/table")
def table():
    return StreamingResponse(rows(), media_type="text/html")
`
	d := bootSource(t, src)
	stream, err := d.HandleStream(&Request{Method: "GET", Path: "/table"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var chunks []string
	for i := 0; i < 2; i++ {
		c, ok := stream.Next()
		if !ok && c.Err != nil {
			t.Fatalf("unexpected chunk error: %v", c.Err)
		}
		chunks = append(chunks, c.Content)
		if !ok {
			break
		}
	}
	want := []string{"<table>", "<tr>"}
	for i, w := range want {
		if chunks[i] != w {
			t.Fatalf("chunk %d = %q, want %q", i, chunks[i], w)
		}
	}
}

func TestStreamingProducerExceptionBecomesTrailingChunk(t *testing.T) {
	src := `
app = App()

def rows():
    yield "start"
    raise RuntimeError("broken")

@app.get("/table")
def table():
    return StreamingResponse(rows())
`
	d := bootSource(t, src)
	stream, err := d.HandleStream(&Request{Method: "GET", Path: "/table"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, ok := stream.Next()
	if !ok || first.Content != "start" {
		t.Fatalf("expected first chunk 'start', got %q ok=%v", first.Content, ok)
	}
	second, ok := stream.Next()
	if ok {
		t.Fatalf("expected the producer exception to end the stream")
	}
	if second.Err == nil {
		t.Fatalf("expected a trailing error describing the producer exception")
	}
}

func TestAbandonedStreamClosesGenerator(t *testing.T) {
	src := `
app = App()

def rows():
    try:
        yield "a"
        yield "b"
        yield "c"
    finally:
        print("cleaned up")

@app.get("/table")
def table():
    return StreamingResponse(rows())
`
	d := bootSource(t, src)
	stream, err := d.HandleStream(&Request{Method: "GET", Path: "/table"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, ok := stream.Next()
	if !ok || first.Content != "a" {
		t.Fatalf("expected first chunk 'a', got %q ok=%v", first.Content, ok)
	}
	if stream.Close == nil {
		t.Fatalf("expected a Close hook on a generator-backed stream")
	}
	stream.Close()
	if got := d.Interp.Ctx.Output.String(); got != "cleaned up\n" {
		t.Fatalf("expected abandoning the stream to run the generator's finally block, got %q", got)
	}
	stream.Close()
}

func TestRequestObjectJSONBody(t *testing.T) {
	src := `
app = App()

@app.post("/echo")
def echo(request):
    data = request.json()
    return {"got": data["x"]}
`
	d := bootSource(t, src)
	resp, err := d.Handle(&Request{Method: "POST", Path: "/echo", Body: `{"x": 42}`, HasBody: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := resp.Body.(*interp.DictValue)
	got, _, _ := body.Get(interp.NewStr("got"))
	if interp.Repr(got, nil) != "42" {
		t.Fatalf("expected got=42, got %v", got)
	}
}

func TestDeclarationOrderRouteWins(t *testing.T) {
	src := `
app = App()

@app.get("/items/{id}")
def get_item(id):
    return {"kind": "item", "id": id}

@app.get("/items/special")
def get_special():
    return {"kind": "special"}
`
	d := bootSource(t, src)
	resp, err := d.Handle(&Request{Method: "GET", Path: "/items/special"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := resp.Body.(*interp.DictValue)
	kind, _, _ := body.Get(interp.NewStr("kind"))
	ks := kind.(interp.StrValue)
	if ks.String() != "item" {
		t.Fatalf("expected the earlier-declared /items/{id} route to win per spec.md's declaration-order rule, got %q", ks.String())
	}
}

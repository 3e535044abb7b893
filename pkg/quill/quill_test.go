package quill

import (
	"strings"
	"testing"

	"github.com/quill-lang/quill/internal/dispatch"
	"github.com/quill-lang/quill/internal/interp"
)

func TestRunOk(t *testing.T) {
	out := Run("x = 1 + 2\nprint(x)\n", nil)
	if out.Error != nil {
		t.Fatalf("unexpected error: %v", out.Error)
	}
	if !out.Ok || out.Suspended {
		t.Fatalf("expected Ok, got %+v", out)
	}
	if got := out.Ctx.Output.String(); got != "3\n" {
		t.Fatalf("expected printed output %q, got %q", "3\n", got)
	}
}

func TestRunSyntaxError(t *testing.T) {
	out := Run("def f(:\n    pass\n", nil)
	if out.Error == nil {
		t.Fatalf("expected a syntax ErrorRecord")
	}
	if out.Error.Kind != "syntax" {
		t.Fatalf("expected kind=syntax, got %q", out.Error.Kind)
	}
}

func TestRunRuntimeError(t *testing.T) {
	out := Run("1 / 0\n", nil)
	if out.Error == nil {
		t.Fatalf("expected a runtime ErrorRecord")
	}
	if out.Error.ExceptionType != "ZeroDivisionError" {
		t.Fatalf("expected ZeroDivisionError, got %q", out.Error.ExceptionType)
	}
}

func TestRunThenResumeSuspend(t *testing.T) {
	src := `
print("before")
suspend()
print("after")
`
	first := Run(src, nil)
	if first.Error != nil {
		t.Fatalf("unexpected error: %v", first.Error)
	}
	if !first.Suspended {
		t.Fatalf("expected the first run to suspend, got %+v", first)
	}
	if got := first.Ctx.Output.String(); got != "before\n" {
		t.Fatalf("expected only the pre-suspend output, got %q", got)
	}

	second := Resume(src, first.Ctx)
	if second.Error != nil {
		t.Fatalf("unexpected error on resume: %v", second.Error)
	}
	if second.Suspended {
		t.Fatalf("expected the resumed run to complete, got %+v", second)
	}
	if got := second.Ctx.Output.String(); got != "before\nafter\n" {
		t.Fatalf("expected replay to skip past the suspend point without re-running it, got %q", got)
	}
}

func TestBootAndHandle(t *testing.T) {
	src := `
app = App()

@app.get("/hello/{name}")
def hello(name):
    return {"greeting": "hello " + name}
`
	boot := Boot(src, nil)
	if boot.Error != nil {
		t.Fatalf("unexpected boot error: %v", boot.Error)
	}
	if !boot.Ok {
		t.Fatalf("expected Ok boot, got %+v", boot)
	}

	handled := Handle(boot.Dispatcher, &dispatch.Request{Method: "GET", Path: "/hello/world"})
	if handled.Error != nil {
		t.Fatalf("unexpected handle error: %v", handled.Error)
	}
	if handled.Response.Status != 200 {
		t.Fatalf("expected status 200, got %d", handled.Response.Status)
	}
	body, ok := handled.Response.Body.(*interp.DictValue)
	if !ok {
		t.Fatalf("expected a dict body, got %T", handled.Response.Body)
	}
	greeting, _, _ := body.Get(interp.NewStr("greeting"))
	gs, ok := greeting.(interp.StrValue)
	if !ok || gs.String() != "hello world" {
		t.Fatalf("expected greeting 'hello world', got %v", greeting)
	}
}

func TestBootMissingAppBinding(t *testing.T) {
	boot := Boot("x = 1\n", nil)
	if boot.Ok {
		t.Fatalf("expected boot to fail without an 'app' binding")
	}
	if boot.Error == nil || !strings.Contains(boot.Error.Message, "app") {
		t.Fatalf("expected an error naming the missing 'app' binding, got %+v", boot.Error)
	}
}

func TestHandleStreamViaPublicAPI(t *testing.T) {
	src := `
app = App()

def rows():
    yield "a"
    yield "b"

@app.get("/stream")
def stream():
    return StreamingResponse(rows())
`
	boot := Boot(src, nil)
	if boot.Error != nil {
		t.Fatalf("unexpected boot error: %v", boot.Error)
	}
	streamed := HandleStream(boot.Dispatcher, &dispatch.Request{Method: "GET", Path: "/stream"})
	if streamed.Error != nil {
		t.Fatalf("unexpected stream error: %v", streamed.Error)
	}
	var got []string
	for {
		c, ok := streamed.Response.Next()
		if c.Err != nil {
			t.Fatalf("unexpected chunk error: %v", c.Err)
		}
		if !ok {
			break
		}
		got = append(got, c.Content)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
}

func TestInvokeOneShot(t *testing.T) {
	src := `
app = App()

@app.get("/ping")
def ping():
    return {"pong": True}
`
	out := Invoke(src, &dispatch.Request{Method: "GET", Path: "/ping"}, nil)
	if out.Error != nil {
		t.Fatalf("unexpected error: %v", out.Error)
	}
	if out.Response.Status != 200 {
		t.Fatalf("expected status 200, got %d", out.Response.Status)
	}
}

func TestInvokeBootFailurePropagates(t *testing.T) {
	out := Invoke("x = 1\n", &dispatch.Request{Method: "GET", Path: "/"}, nil)
	if out.Error == nil {
		t.Fatalf("expected the missing-'app' boot failure to propagate through Invoke")
	}
}

func TestRunUsesProvidedContext(t *testing.T) {
	ctx := interp.NewContext(interp.Options{})
	first := Run("x = 1\nprint(x)\n", ctx)
	if first.Error != nil {
		t.Fatalf("unexpected error: %v", first.Error)
	}
	if first.Ctx != ctx {
		t.Fatalf("expected Run to thread the caller-supplied Context through unchanged")
	}
	second := Run(`print(x + 1)`, ctx)
	if second.Error != nil {
		t.Fatalf("unexpected error: %v", second.Error)
	}
	if got := ctx.Output.String(); got != "1\n2\n" {
		t.Fatalf("expected output accumulated across both runs against the same Context, got %q", got)
	}
}

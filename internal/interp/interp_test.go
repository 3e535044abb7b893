package interp

import (
	"strings"
	"testing"

	"github.com/quill-lang/quill/internal/parser"
)

// run parses and evaluates src against a fresh Context, failing the test
// on any parse or uncaught runtime error, and returns the captured
// stdout (spec.md §3's "Output buffer").
func run(t *testing.T, src string) string {
	t.Helper()
	mod, errs := parser.ParseModule(src)
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	ctx := NewContext(Options{})
	ip := New(ctx)
	if _, err := ip.Run(mod); err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	return ctx.Output.String()
}

// runErr is like run but expects a runtime error and returns it.
func runErr(t *testing.T, src string) error {
	t.Helper()
	mod, errs := parser.ParseModule(src)
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	ctx := NewContext(Options{})
	ip := New(ctx)
	_, err := ip.Run(mod)
	if err == nil {
		t.Fatalf("expected a runtime error, got none; output=%q", ctx.Output.String())
	}
	return err
}

func TestFizzBuzz16(t *testing.T) {
	src := `
for i in range(1, 17):
    if i % 15 == 0:
        print("FizzBuzz")
    elif i % 3 == 0:
        print("Fizz")
    elif i % 5 == 0:
        print("Buzz")
    else:
        print(i)
`
	want := strings.Join([]string{
		"1", "2", "Fizz", "4", "Buzz", "Fizz", "7", "8", "Fizz", "Buzz",
		"11", "Fizz", "13", "14", "FizzBuzz", "16",
	}, "\n") + "\n"
	got := run(t, src)
	if got != want {
		t.Fatalf("FizzBuzz mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestRangeSumMillion(t *testing.T) {
	got := run(t, "print(sum(range(1_000_000)))\n")
	if strings.TrimSpace(got) != "499999500000" {
		t.Fatalf("sum(range(1_000_000)) = %q, want 499999500000", got)
	}
}

func TestForElseRunsOnNoBreak(t *testing.T) {
	src := `
for x in [1, 2, 3]:
    pass
else:
    print("done")
`
	if got := run(t, src); got != "done\n" {
		t.Fatalf("got %q, want %q", got, "done\n")
	}
}

func TestForElseSkippedOnBreak(t *testing.T) {
	src := `
for x in [1, 2, 3]:
    if x == 2:
        break
else:
    print("done")
print("after")
`
	if got := run(t, src); got != "after\n" {
		t.Fatalf("got %q, want %q", got, "after\n")
	}
}

func TestWhileElse(t *testing.T) {
	src := `
n = 0
while n < 3:
    n += 1
else:
    print("exhausted", n)
`
	if got := run(t, src); got != "exhausted 3\n" {
		t.Fatalf("got %q, want %q", got, "exhausted 3\n")
	}
}

func TestTryExceptElseFinallyOrdering(t *testing.T) {
	src := `
def f():
    try:
        print("try")
    except ValueError:
        print("except")
    else:
        print("else")
    finally:
        print("finally")
f()
`
	want := "try\nelse\nfinally\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTryFinallyRunsOnException(t *testing.T) {
	src := `
try:
    try:
        raise ValueError("x")
    finally:
        print("finally")
except ValueError as e:
    print("caught:", e)
`
	want := "finally\ncaught: x\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExceptionHierarchyTypeName(t *testing.T) {
	src := `
try:
    raise ValueError("x")
except Exception as e:
    print(type(e).__name__)
`
	if got := run(t, src); got != "ValueError\n" {
		t.Fatalf("got %q, want %q", got, "ValueError\n")
	}
}

func TestExceptTupleDisjunction(t *testing.T) {
	src := `
for exc in [ValueError("a"), KeyError("b")]:
    try:
        raise exc
    except (ValueError, KeyError) as e:
        print("caught", type(e).__name__)
`
	want := "caught ValueError\ncaught KeyError\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBareRaiseReRaisesInsideExcept(t *testing.T) {
	src := `
def inner():
    try:
        raise ValueError("boom")
    except ValueError:
        raise

try:
    inner()
except ValueError as e:
    print("outer caught:", e)
`
	want := "outer caught: boom\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBareRaiseOutsideHandlerIsRuntimeError(t *testing.T) {
	err := runErr(t, "raise\n")
	if !strings.Contains(err.Error(), "RuntimeError") {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
}

func TestComprehensionVariableHygiene(t *testing.T) {
	src := `
x = "outer"
squares = [x for x in range(3)]
print(x)
print(squares)
`
	want := "outer\n[0, 1, 2]\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDictAndSetComprehension(t *testing.T) {
	src := `
d = {x: x * x for x in range(4)}
s = {x % 3 for x in range(6)}
print(d)
print(sorted(s))
`
	want := "{0: 0, 1: 1, 2: 4, 3: 9}\n[0, 1, 2]\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMROC3DiamondLinearisation(t *testing.T) {
	src := `
class A:
    def who(self):
        return "A"

class B(A):
    pass

class C(A):
    pass

class D(B, C):
    pass

d = D()
print(d.who())
print([c.__name__ for c in D.__mro__])
`
	want := "A\n['D', 'B', 'C', 'A']\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSuperResolvesNextInMRO(t *testing.T) {
	src := `
class A:
    def greet(self):
        return "A"

class B(A):
    def greet(self):
        return "B+" + super().greet()

b = B()
print(b.greet())
`
	if got := run(t, src); got != "B+A\n" {
		t.Fatalf("got %q, want %q", got, "B+A\n")
	}
}

func TestDunderOperatorDispatch(t *testing.T) {
	src := `
class Vec:
    def __init__(self, x, y):
        self.x = x
        self.y = y
    def __add__(self, other):
        return Vec(self.x + other.x, self.y + other.y)
    def __repr__(self):
        return f"Vec({self.x}, {self.y})"

print(Vec(1, 2) + Vec(3, 4))
`
	if got := run(t, src); got != "Vec(4, 6)\n" {
		t.Fatalf("got %q, want %q", got, "Vec(4, 6)\n")
	}
}

func TestGeneratorLazyAndYieldFromPropagation(t *testing.T) {
	src := `
def inner():
    yield "a"
    raise ValueError("fail")

def outer():
    yield "start"
    yield from inner()

results = []
try:
    for v in outer():
        results.append(v)
except ValueError as e:
    results.append("caught: " + str(e))
print(results)
`
	want := "['start', 'a', 'caught: fail']\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestGeneratorDoesNotPrematerialize(t *testing.T) {
	src := `
def counter():
    yield 1
    raise RuntimeError("should never run if consumer stops early")

it = counter()
print(next(it))
`
	if got := run(t, src); got != "1\n" {
		t.Fatalf("got %q, want %q", got, "1\n")
	}
}

func TestFloorDivisionAndModuloIdentity(t *testing.T) {
	src := `
pairs = [(7, 3), (-7, 3), (7, -3), (-7, -3)]
for a, b in pairs:
    q = a // b
    r = a % b
    print(q * b + r == a)
`
	want := strings.Repeat("True\n", 4)
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTrueEqualsOneAndIsInstanceInt(t *testing.T) {
	src := `
print(True == 1)
print(isinstance(True, int))
`
	want := "True\nTrue\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestUndefinedNameRaisesNameError(t *testing.T) {
	err := runErr(t, "print(not_defined)\n")
	if !strings.Contains(err.Error(), "NameError") || !strings.Contains(err.Error(), "not_defined") {
		t.Fatalf("expected a NameError naming the missing name, got %v", err)
	}
}

func TestNotImplementedFeaturesRejectedCleanly(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"x = b\"data\"\n", "bytes"},
		{"x = 3j\n", "complex"},
		{"exec(\"1\")\n", "exec"},
		{"eval(\"1\")\n", "eval"},
	}
	for _, c := range cases {
		err := runErr(t, c.src)
		if !strings.Contains(err.Error(), "NotImplementedError") {
			t.Fatalf("for %q: expected NotImplementedError, got %v", c.src, err)
		}
		if !strings.Contains(strings.ToLower(err.Error()), c.want) {
			t.Fatalf("for %q: expected message to mention %q, got %v", c.src, c.want, err)
		}
	}
}

func TestUnhashableTypeInDictKey(t *testing.T) {
	err := runErr(t, "d = {[1, 2]: 3}\n")
	if !strings.Contains(err.Error(), "TypeError") || !strings.Contains(strings.ToLower(err.Error()), "unhashable") {
		t.Fatalf("expected a TypeError naming 'unhashable', got %v", err)
	}
}

func TestUnpackingArityEnforced(t *testing.T) {
	err := runErr(t, "a, b = [1]\n")
	if !strings.Contains(err.Error(), "ValueError") {
		t.Fatalf("expected ValueError for a short unpack, got %v", err)
	}
}

func TestNextOnGeneratorFunctionFails(t *testing.T) {
	src := `
def gen():
    yield 1

next(gen)
`
	err := runErr(t, src)
	if !strings.Contains(err.Error(), "TypeError") || !strings.Contains(err.Error(), "iter()") {
		t.Fatalf("expected a TypeError advising iter(), got %v", err)
	}
}

func TestWithStatementCallsEnterAndExit(t *testing.T) {
	src := `
class CM:
    def __enter__(self):
        print("enter")
        return self
    def __exit__(self, exc_type, exc_value, tb):
        print("exit")
        return False

with CM() as cm:
    print("body")
`
	want := "enter\nbody\nexit\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWithStatementSuppressesExceptionWhenExitReturnsTrue(t *testing.T) {
	src := `
class Suppressor:
    def __enter__(self):
        return self
    def __exit__(self, exc_type, exc_value, tb):
        return True

with Suppressor():
    raise ValueError("boom")
print("survived")
`
	if got := run(t, src); got != "survived\n" {
		t.Fatalf("got %q, want %q", got, "survived\n")
	}
}

func TestWithStatementOverPlainValueIsNoOp(t *testing.T) {
	src := `
with 5 as x:
    print(x)
print("after")
`
	want := "5\nafter\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWithStatementOverPlainValuePropagatesException(t *testing.T) {
	src := `
try:
    with "no dunders":
        raise ValueError("boom")
except ValueError as e:
    print("caught:", e)
`
	want := "caught: boom\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q (a missing __exit__ must never suppress)", got, want)
	}
}

func TestMatchCaseSequencePatternWithStar(t *testing.T) {
	src := `
def describe(xs):
    match xs:
        case []:
            return "empty"
        case [x]:
            return f"one:{x}"
        case [first, *rest]:
            return f"first:{first},rest:{rest}"

print(describe([]))
print(describe([1]))
print(describe([1, 2, 3]))
`
	want := "empty\none:1\nfirst:1,rest:[2, 3]\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMatchCaseMappingPattern(t *testing.T) {
	src := `
def handle(msg):
    match msg:
        case {"type": "greet", "name": name}:
            return f"hi {name}"
        case _:
            return "unknown"

print(handle({"type": "greet", "name": "Ada"}))
print(handle({"type": "bye"}))
`
	want := "hi Ada\nunknown\n"
	if got := run(t, src); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCyclicListReprDoesNotInfiniteLoop(t *testing.T) {
	src := `
a = [1, 2]
a.append(a)
print(repr(a))
`
	got := run(t, src)
	if !strings.Contains(got, "[...]") {
		t.Fatalf("expected cycle-breaking marker in repr, got %q", got)
	}
}

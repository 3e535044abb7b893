package parser

import (
	"testing"

	"github.com/quill-lang/quill/internal/ast"
)

func mustParse(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, errs := ParseModule(src)
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors for %q: %v", src, errs)
	}
	return mod
}

func TestParseSimpleAssignment(t *testing.T) {
	mod := mustParse(t, "x = 1\n")
	if len(mod.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(mod.Body))
	}
	if _, ok := mod.Body[0].(*ast.AssignStmt); !ok {
		t.Fatalf("expected *ast.AssignStmt, got %T", mod.Body[0])
	}
}

func TestParseIfElifElse(t *testing.T) {
	src := "if x:\n    a = 1\nelif y:\n    a = 2\nelse:\n    a = 3\n"
	mod := mustParse(t, src)
	ifs, ok := mod.Body[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected *ast.IfStmt, got %T", mod.Body[0])
	}
	if len(ifs.Then) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(ifs.Then))
	}
	if len(ifs.Else) != 1 {
		t.Fatalf("expected elif to desugar into a single nested IfStmt in Else, got %d", len(ifs.Else))
	}
	if _, ok := ifs.Else[0].(*ast.IfStmt); !ok {
		t.Fatalf("expected elif arm to be a nested *ast.IfStmt, got %T", ifs.Else[0])
	}
}

func TestParseForElse(t *testing.T) {
	mod := mustParse(t, "for x in range(3):\n    pass\nelse:\n    y = 1\n")
	forStmt, ok := mod.Body[0].(*ast.ForStmt)
	if !ok {
		t.Fatalf("expected *ast.ForStmt, got %T", mod.Body[0])
	}
	if len(forStmt.Else) != 1 {
		t.Fatalf("expected for/else else body, got %d statements", len(forStmt.Else))
	}
}

func TestParseFuncDefWithDefaultsAndVariadic(t *testing.T) {
	mod := mustParse(t, "def f(a, b=1, *args, c, d=2, **kwargs):\n    return a\n")
	fn, ok := mod.Body[0].(*ast.FuncDef)
	if !ok {
		t.Fatalf("expected *ast.FuncDef, got %T", mod.Body[0])
	}
	if fn.Params.VarArgs == nil {
		t.Fatalf("expected *args to be captured")
	}
	if fn.Params.KwArgs == nil {
		t.Fatalf("expected **kwargs to be captured")
	}
	if len(fn.Params.KeywordOnly) != 2 {
		t.Fatalf("expected 2 keyword-only params, got %d", len(fn.Params.KeywordOnly))
	}
}

func TestParseGeneratorFunctionDetection(t *testing.T) {
	mod := mustParse(t, "def gen():\n    yield 1\n    yield 2\n")
	fn, ok := mod.Body[0].(*ast.FuncDef)
	if !ok {
		t.Fatalf("expected *ast.FuncDef, got %T", mod.Body[0])
	}
	if !fn.IsGenerator {
		t.Fatalf("expected a function containing yield to be marked IsGenerator at parse time")
	}
}

func TestParseClassDefWithBases(t *testing.T) {
	mod := mustParse(t, "class D(B, C):\n    pass\n")
	cls, ok := mod.Body[0].(*ast.ClassDef)
	if !ok {
		t.Fatalf("expected *ast.ClassDef, got %T", mod.Body[0])
	}
	if len(cls.Bases) != 2 {
		t.Fatalf("expected 2 bases, got %d", len(cls.Bases))
	}
}

func TestParseChainedComparison(t *testing.T) {
	mod := mustParse(t, "x = a < b < c\n")
	assign, ok := mod.Body[0].(*ast.AssignStmt)
	if !ok {
		t.Fatalf("expected *ast.AssignStmt, got %T", mod.Body[0])
	}
	if _, ok := assign.Value.(*ast.ChainedCompare); !ok {
		t.Fatalf("expected a < b < c to parse as *ast.ChainedCompare, got %T", assign.Value)
	}
}

func TestParseListComprehension(t *testing.T) {
	mod := mustParse(t, "xs = [x * 2 for x in range(10) if x % 2 == 0]\n")
	assign := mod.Body[0].(*ast.AssignStmt)
	comp, ok := assign.Value.(*ast.ListComp)
	if !ok {
		t.Fatalf("expected *ast.ListComp, got %T", assign.Value)
	}
	if len(comp.Clauses) != 2 {
		t.Fatalf("expected a comp_for and a comp_if clause, got %d", len(comp.Clauses))
	}
}

func TestParseFString(t *testing.T) {
	mod := mustParse(t, "s = f\"hello {name!r:>10}\"\n")
	assign := mod.Body[0].(*ast.AssignStmt)
	if _, ok := assign.Value.(*ast.FString); !ok {
		t.Fatalf("expected *ast.FString, got %T", assign.Value)
	}
}

func TestParseWalrus(t *testing.T) {
	mod := mustParse(t, "if (n := len(xs)) > 0:\n    pass\n")
	ifs := mod.Body[0].(*ast.IfStmt)
	if _, ok := ifs.Cond.(*ast.Compare); !ok {
		t.Fatalf("expected a Compare wrapping the walrus, got %T", ifs.Cond)
	}
}

func TestParseMatchStatement(t *testing.T) {
	src := "match point:\n    case (0, 0):\n        pass\n    case (x, y) if x == y:\n        pass\n    case _:\n        pass\n"
	mod := mustParse(t, src)
	m, ok := mod.Body[0].(*ast.MatchStmt)
	if !ok {
		t.Fatalf("expected *ast.MatchStmt, got %T", mod.Body[0])
	}
	if len(m.Cases) != 3 {
		t.Fatalf("expected 3 cases, got %d", len(m.Cases))
	}
	if m.Cases[1].Guard == nil {
		t.Fatalf("expected the second case's guard to be captured")
	}
}

func TestMatchIsSoftKeyword(t *testing.T) {
	mod := mustParse(t, "match = 5\ncase = 6\n")
	if len(mod.Body) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(mod.Body))
	}
	for _, stmt := range mod.Body {
		if _, ok := stmt.(*ast.AssignStmt); !ok {
			t.Fatalf("expected match/case to parse as identifiers outside statement-leading position, got %T", stmt)
		}
	}
}

func TestParseTryExceptElseFinally(t *testing.T) {
	src := "try:\n    a = 1\nexcept ValueError as e:\n    a = 2\nexcept (TypeError, KeyError):\n    a = 3\nelse:\n    a = 4\nfinally:\n    a = 5\n"
	mod := mustParse(t, src)
	tr, ok := mod.Body[0].(*ast.TryStmt)
	if !ok {
		t.Fatalf("expected *ast.TryStmt, got %T", mod.Body[0])
	}
	if len(tr.Handlers) != 2 {
		t.Fatalf("expected 2 except handlers, got %d", len(tr.Handlers))
	}
	if len(tr.Else) == 0 {
		t.Fatalf("expected else body to be captured")
	}
	if len(tr.Finally) == 0 {
		t.Fatalf("expected finally body to be captured")
	}
}

func TestParseWithStatement(t *testing.T) {
	mod := mustParse(t, "with open(\"f\") as fh:\n    pass\n")
	w, ok := mod.Body[0].(*ast.WithStmt)
	if !ok {
		t.Fatalf("expected *ast.WithStmt, got %T", mod.Body[0])
	}
	if len(w.Items) != 1 || w.Items[0].Target == nil {
		t.Fatalf("expected a single with-item binding `as fh`")
	}
}

func TestParseDecorator(t *testing.T) {
	mod := mustParse(t, "@staticmethod\ndef f():\n    pass\n")
	fn, ok := mod.Body[0].(*ast.FuncDef)
	if !ok {
		t.Fatalf("expected *ast.FuncDef, got %T", mod.Body[0])
	}
	if len(fn.Decorators) != 1 {
		t.Fatalf("expected 1 decorator, got %d", len(fn.Decorators))
	}
}

func TestParseErrorReportsExpectation(t *testing.T) {
	_, errs := ParseModule("if x\n    pass\n")
	if len(errs) == 0 {
		t.Fatalf("expected a syntax error for a missing colon")
	}
	msg := errs[0].Message
	if msg == "" {
		t.Fatalf("expected a non-empty message")
	}
	if errs[0].Pos.Line == 0 {
		t.Fatalf("expected the error to carry a source line")
	}
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		")))",
		"def f(:\n",
		"\"unterminated",
		"class :\n",
		"[1, 2,",
		"{1: }",
		"\t\t  \n  \t",
		"match\n",
	}
	for _, src := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("parser panicked on %q: %v", src, r)
				}
			}()
			ParseModule(src)
		}()
	}
}

// Bytes and imaginary literals parse successfully (the lexer/parser
// recognise the syntax); rejection with a specific NotImplementedError
// happens at evaluation time — see internal/interp's equivalent tests.
func TestParseBytesLiteralAndImaginaryParseButAreTagged(t *testing.T) {
	mod := mustParse(t, "x = b\"data\"\ny = 3j\n")
	assignX := mod.Body[0].(*ast.AssignStmt)
	if _, ok := assignX.Value.(*ast.BytesLit); !ok {
		t.Fatalf("expected *ast.BytesLit, got %T", assignX.Value)
	}
	assignY := mod.Body[1].(*ast.AssignStmt)
	if _, ok := assignY.Value.(*ast.ImaginaryLit); !ok {
		t.Fatalf("expected *ast.ImaginaryLit, got %T", assignY.Value)
	}
}

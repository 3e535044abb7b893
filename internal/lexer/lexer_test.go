package lexer

import "testing"

func allTokens(src string) []Token {
	l := New(src)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == EOF {
			break
		}
	}
	return toks
}

func typesOf(toks []Token) []TokenType {
	types := make([]TokenType, len(toks))
	for i, t := range toks {
		types[i] = t.Type
	}
	return types
}

func assertTypes(t *testing.T, src string, want []TokenType) {
	t.Helper()
	got := typesOf(allTokens(src))
	if len(got) != len(want) {
		t.Fatalf("token count mismatch for %q: got %v want %v", src, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d mismatch for %q: got %s want %s", i, src, got[i], want[i])
		}
	}
}

func TestSimpleAssignment(t *testing.T) {
	assertTypes(t, "x = 1\n", []TokenType{IDENT, ASSIGN, INT, NEWLINE, EOF})
}

func TestIndentationBlock(t *testing.T) {
	src := "if x:\n    y = 1\n    z = 2\nw = 3\n"
	assertTypes(t, src, []TokenType{
		IF, IDENT, COLON, NEWLINE,
		INDENT, IDENT, ASSIGN, INT, NEWLINE,
		IDENT, ASSIGN, INT, NEWLINE,
		DEDENT, IDENT, ASSIGN, INT, NEWLINE, EOF,
	})
}

func TestNestedDedentMultipleLevels(t *testing.T) {
	src := "if a:\n    if b:\n        x = 1\ny = 2\n"
	toks := allTokens(src)
	dedents := 0
	for _, tk := range toks {
		if tk.Type == DEDENT {
			dedents++
		}
	}
	if dedents != 2 {
		t.Fatalf("expected 2 dedents, got %d: %v", dedents, toks)
	}
}

func TestSoftKeywordsAreIdentifiers(t *testing.T) {
	assertTypes(t, "match = 5\n", []TokenType{IDENT, ASSIGN, INT, NEWLINE, EOF})
	toks := allTokens("match = 5\n")
	if toks[0].Literal != "match" {
		t.Fatalf("expected literal 'match', got %q", toks[0].Literal)
	}
}

func TestNumberLiterals(t *testing.T) {
	cases := []struct {
		src  string
		typ  TokenType
		want string
	}{
		{"123\n", INT, "123"},
		{"1_000\n", INT, "1_000"},
		{"0xFF\n", INT, "0xFF"},
		{"0o17\n", INT, "0o17"},
		{"0b1010\n", INT, "0b1010"},
		{"1.5\n", FLOAT, "1.5"},
		{"1.5e10\n", FLOAT, "1.5e10"},
		{"1e-3\n", FLOAT, "1e-3"},
		{"3j\n", IMAGINARY, "3"},
	}
	for _, c := range cases {
		toks := allTokens(c.src)
		if toks[0].Type != c.typ || toks[0].Literal != c.want {
			t.Errorf("%q: got %s(%q), want %s(%q)", c.src, toks[0].Type, toks[0].Literal, c.typ, c.want)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	toks := allTokens(`"a\nb"` + "\n")
	if toks[0].Type != STRING || toks[0].Literal != "a\nb" {
		t.Fatalf("got %#v", toks[0])
	}
}

func TestRawStringKeepsBackslashes(t *testing.T) {
	toks := allTokens(`r"a\nb"` + "\n")
	if toks[0].Type != STRING || toks[0].Literal != `a\nb` {
		t.Fatalf("got %#v", toks[0])
	}
}

func TestTripleQuotedStringSpansLines(t *testing.T) {
	toks := allTokens("\"\"\"a\nb\"\"\"\n")
	if toks[0].Type != STRING || toks[0].Literal != "a\nb" {
		t.Fatalf("got %#v", toks[0])
	}
}

func TestBytesAndComplexRecognized(t *testing.T) {
	toks := allTokens(`b"abc"` + "\n")
	if toks[0].Type != BYTES {
		t.Fatalf("expected BYTES, got %s", toks[0].Type)
	}
}

func TestUnterminatedStringReportsLine(t *testing.T) {
	l := New("x = \"abc\n")
	for {
		tok := l.NextToken()
		if tok.Type == EOF {
			break
		}
	}
	errs := l.Errors()
	if len(errs) == 0 {
		t.Fatal("expected an unterminated string error")
	}
	if errs[0].Pos.Line != 1 {
		t.Fatalf("expected line 1, got %d", errs[0].Pos.Line)
	}
}

func TestImplicitContinuationInsideBrackets(t *testing.T) {
	src := "x = [\n    1,\n    2,\n]\n"
	toks := allTokens(src)
	for _, tk := range toks {
		if tk.Type == NEWLINE && tk.Pos.Line < 4 {
			// a NEWLINE inside the bracket body would indicate the
			// implicit continuation rule failed
			t.Fatalf("unexpected NEWLINE inside brackets: %v", toks)
		}
	}
}

func TestSplitFStringBasic(t *testing.T) {
	chunks, err := SplitFString(`hello {name}!`, Position{Line: 1, Column: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %#v", len(chunks), chunks)
	}
	if chunks[0].Literal != "hello " || !chunks[1].IsExpr || chunks[1].Expr != "name" || chunks[2].Literal != "!" {
		t.Fatalf("unexpected chunks: %#v", chunks)
	}
}

func TestSplitFStringEscapedBraces(t *testing.T) {
	chunks, err := SplitFString(`{{literal}} {x}`, Position{Line: 1, Column: 1})
	if err != nil {
		t.Fatal(err)
	}
	if chunks[0].Literal != "{literal} " {
		t.Fatalf("unexpected escaped-brace handling: %#v", chunks)
	}
}

func TestSplitFStringConversionAndSpec(t *testing.T) {
	chunks, err := SplitFString(`{x!r:>10}`, Position{Line: 1, Column: 1})
	if err != nil {
		t.Fatal(err)
	}
	if chunks[0].Expr != "x" || chunks[0].Conversion != 'r' || chunks[0].FormatSpec != ">10" {
		t.Fatalf("unexpected chunk: %#v", chunks[0])
	}
}

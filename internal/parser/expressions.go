package parser

import (
	"strconv"

	"github.com/quill-lang/quill/internal/ast"
	"github.com/quill-lang/quill/internal/lexer"
)

// parseExpr is the top-level expression entry point: lambda, the named
// (walrus) expression, and the ternary/or/and/... precedence chain below
// it.
func (p *Parser) parseExpr() ast.Expression {
	if p.at(lexer.LAMBDA) {
		return p.parseLambda()
	}
	if p.cur().Type == lexer.IDENT && p.peekN(1).Type == lexer.WALRUS {
		pos := p.cur().Pos
		name := ast.NewName(pos, p.next().Literal)
		p.next() // ':='
		val := p.parseExpr()
		return ast.NewWalrus(pos, name, val)
	}
	return p.parseTernary()
}

// parseTernaryPrecedence parses everything below lambda/walrus; used for
// contexts (type annotations, decorator expressions) where those two
// forms are not meaningful.
func (p *Parser) parseTernaryPrecedence() ast.Expression { return p.parseTernary() }

func (p *Parser) parseTernary() ast.Expression {
	pos := p.cur().Pos
	value := p.parseOr()
	if _, ok := p.accept(lexer.IF); ok {
		cond := p.parseOr()
		p.expect(lexer.ELSE, "'else'")
		els := p.parseExpr()
		return ast.NewTernary(pos, cond, value, els)
	}
	return value
}

func (p *Parser) parseLambda() ast.Expression {
	pos := p.next().Pos // 'lambda'
	params := p.parseParams(lexer.COLON)
	p.expect(lexer.COLON, "':'")
	body := p.parseExpr()
	return ast.NewLambda(pos, params, body)
}

func (p *Parser) parseOr() ast.Expression {
	pos := p.cur().Pos
	first := p.parseAnd()
	if !p.at(lexer.OR) {
		return first
	}
	values := []ast.Expression{first}
	for {
		if _, ok := p.accept(lexer.OR); !ok {
			break
		}
		values = append(values, p.parseAnd())
	}
	return ast.NewBoolOp(pos, "or", values)
}

func (p *Parser) parseAnd() ast.Expression {
	pos := p.cur().Pos
	first := p.parseNot()
	if !p.at(lexer.AND) {
		return first
	}
	values := []ast.Expression{first}
	for {
		if _, ok := p.accept(lexer.AND); !ok {
			break
		}
		values = append(values, p.parseNot())
	}
	return ast.NewBoolOp(pos, "and", values)
}

func (p *Parser) parseNot() ast.Expression {
	if p.at(lexer.NOT) {
		pos := p.next().Pos
		operand := p.parseNot()
		return ast.NewUnaryOp(pos, "not", operand)
	}
	return p.parseComparison()
}

var compareOpNames = map[lexer.TokenType]string{
	lexer.EQ: "==", lexer.NEQ: "!=", lexer.LT: "<", lexer.LTE: "<=",
	lexer.GT: ">", lexer.GTE: ">=",
}

func (p *Parser) parseComparison() ast.Expression {
	pos := p.cur().Pos
	left := p.parseBitOr()
	var ops []string
	operands := []ast.Expression{left}
	for {
		if name, ok := compareOpNames[p.cur().Type]; ok {
			p.next()
			ops = append(ops, name)
			operands = append(operands, p.parseBitOr())
			continue
		}
		if p.at(lexer.IN) {
			p.next()
			ops = append(ops, "in")
			operands = append(operands, p.parseBitOr())
			continue
		}
		if p.at(lexer.NOT) && p.peekN(1).Type == lexer.IN {
			p.next()
			p.next()
			ops = append(ops, "not in")
			operands = append(operands, p.parseBitOr())
			continue
		}
		if p.at(lexer.IS) {
			p.next()
			if _, ok := p.accept(lexer.NOT); ok {
				ops = append(ops, "is not")
			} else {
				ops = append(ops, "is")
			}
			operands = append(operands, p.parseBitOr())
			continue
		}
		break
	}
	switch len(ops) {
	case 0:
		return left
	case 1:
		return ast.NewCompare(pos, ops[0], operands[0], operands[1])
	default:
		return ast.NewChainedCompare(pos, operands, ops)
	}
}

func (p *Parser) parseBitOr() ast.Expression {
	pos := p.cur().Pos
	left := p.parseBitXor()
	for p.at(lexer.PIPE) {
		p.next()
		right := p.parseBitXor()
		left = ast.NewBinOp(pos, "|", left, right)
	}
	return left
}

func (p *Parser) parseBitXor() ast.Expression {
	pos := p.cur().Pos
	left := p.parseBitAnd()
	for p.at(lexer.CARET) {
		p.next()
		right := p.parseBitAnd()
		left = ast.NewBinOp(pos, "^", left, right)
	}
	return left
}

func (p *Parser) parseBitAnd() ast.Expression {
	pos := p.cur().Pos
	left := p.parseShift()
	for p.at(lexer.AMP) {
		p.next()
		right := p.parseShift()
		left = ast.NewBinOp(pos, "&", left, right)
	}
	return left
}

func (p *Parser) parseShift() ast.Expression {
	pos := p.cur().Pos
	left := p.parseAdditive()
	for p.at(lexer.LSHIFT) || p.at(lexer.RSHIFT) {
		op := "<<"
		if p.cur().Type == lexer.RSHIFT {
			op = ">>"
		}
		p.next()
		right := p.parseAdditive()
		left = ast.NewBinOp(pos, op, left, right)
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expression {
	pos := p.cur().Pos
	left := p.parseMultiplicative()
	for p.at(lexer.PLUS) || p.at(lexer.MINUS) {
		op := "+"
		if p.cur().Type == lexer.MINUS {
			op = "-"
		}
		p.next()
		right := p.parseMultiplicative()
		left = ast.NewBinOp(pos, op, left, right)
	}
	return left
}

var multOpNames = map[lexer.TokenType]string{
	lexer.STAR: "*", lexer.SLASH: "/", lexer.DOUBLESLASH: "//", lexer.PERCENT: "%",
}

func (p *Parser) parseMultiplicative() ast.Expression {
	pos := p.cur().Pos
	left := p.parseUnary()
	for {
		op, ok := multOpNames[p.cur().Type]
		if !ok {
			break
		}
		p.next()
		right := p.parseUnary()
		left = ast.NewBinOp(pos, op, left, right)
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	switch p.cur().Type {
	case lexer.PLUS:
		pos := p.next().Pos
		return ast.NewUnaryOp(pos, "+", p.parseUnary())
	case lexer.MINUS:
		pos := p.next().Pos
		return ast.NewUnaryOp(pos, "-", p.parseUnary())
	case lexer.TILDE:
		pos := p.next().Pos
		return ast.NewUnaryOp(pos, "~", p.parseUnary())
	default:
		return p.parsePower()
	}
}

// parsePower handles `**`, right-associative and binding tighter than a
// leading unary on its left (`-2**2 == -(2**2)`) but allowing a unary
// operand on its right (`2**-2`).
func (p *Parser) parsePower() ast.Expression {
	pos := p.cur().Pos
	left := p.parsePostfix()
	if _, ok := p.accept(lexer.DOUBLESTAR); ok {
		right := p.parseUnary()
		return ast.NewBinOp(pos, "**", left, right)
	}
	return left
}

func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parseAtom()
	for {
		switch p.cur().Type {
		case lexer.DOT:
			pos := p.next().Pos
			name := p.expect(lexer.IDENT, "an attribute name").Literal
			expr = ast.NewAttr(pos, expr, name)
		case lexer.LPAREN:
			pos := p.next().Pos
			args, kwargs := p.parseCallArgs()
			p.expect(lexer.RPAREN, "')'")
			expr = ast.NewCall(pos, expr, args, kwargs)
		case lexer.LBRACKET:
			pos := p.next().Pos
			idx := p.parseSubscriptIndex()
			p.expect(lexer.RBRACKET, "']'")
			expr = ast.NewSubscript(pos, expr, idx)
		default:
			return expr
		}
	}
}

// parseCallArgs parses positional args (including *args unpacking and a
// bare generator-expression shorthand `f(x for x in y)`), then keyword
// args (including **kwargs unpacking).
func (p *Parser) parseCallArgs() ([]ast.Expression, []ast.Keyword) {
	var args []ast.Expression
	var kwargs []ast.Keyword
	for !p.at(lexer.RPAREN) && !p.atEOF() {
		if p.at(lexer.STAR) {
			pos := p.next().Pos
			args = append(args, ast.NewStarred(pos, p.parseExpr()))
		} else if p.at(lexer.DOUBLESTAR) {
			pos := p.next().Pos
			kwargs = append(kwargs, ast.Keyword{Name: "", Value: ast.NewDoubleStarred(pos, p.parseExpr())})
		} else if p.cur().Type == lexer.IDENT && p.peekN(1).Type == lexer.ASSIGN {
			name := p.next().Literal
			p.next() // '='
			kwargs = append(kwargs, ast.Keyword{Name: name, Value: p.parseExpr()})
		} else {
			pos := p.cur().Pos
			expr := p.parseExpr()
			if p.at(lexer.FOR) && len(args) == 0 && len(kwargs) == 0 {
				clauses := p.parseCompClauses()
				args = append(args, ast.NewGenExpr(pos, expr, clauses))
			} else {
				args = append(args, expr)
			}
		}
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
	}
	return args, kwargs
}

// parseSubscriptIndex parses one or more slice-or-expression components
// inside `[...]`; a single component is returned bare, multiple (a tuple
// index like `m[i, j]`) collapse to a TupleExpr of the components.
func (p *Parser) parseSubscriptIndex() ast.Expression {
	pos := p.cur().Pos
	first := p.parseSliceOrExpr()
	if !p.at(lexer.COMMA) {
		return first
	}
	elems := []ast.Expression{first}
	for {
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
		if p.at(lexer.RBRACKET) {
			break
		}
		elems = append(elems, p.parseSliceOrExpr())
	}
	return ast.NewTupleExpr(pos, elems)
}

func (p *Parser) parseSliceOrExpr() ast.Expression {
	pos := p.cur().Pos
	var start ast.Expression
	if !p.at(lexer.COLON) {
		start = p.parseExpr()
	}
	if !p.at(lexer.COLON) {
		return start
	}
	p.next() // ':'
	var stop, step ast.Expression
	if !p.at(lexer.COLON) && !p.at(lexer.RBRACKET) {
		stop = p.parseExpr()
	}
	if _, ok := p.accept(lexer.COLON); ok {
		if !p.at(lexer.RBRACKET) {
			step = p.parseExpr()
		}
	}
	return ast.NewSlice(pos, start, stop, step)
}

func (p *Parser) parseAtom() ast.Expression {
	tok := p.cur()
	pos := tok.Pos
	switch tok.Type {
	case lexer.INT:
		p.next()
		return ast.NewIntLit(pos, tok.Literal)
	case lexer.FLOAT:
		p.next()
		val := parseFloatLiteral(tok.Literal)
		return ast.NewFloatLit(pos, val)
	case lexer.IMAGINARY:
		p.next()
		return ast.NewImaginaryLit(pos, tok.Literal)
	case lexer.STRING:
		return p.parseStringConcat()
	case lexer.BYTES:
		p.next()
		return ast.NewBytesLit(pos, tok.Literal)
	case lexer.FSTRING:
		return p.parseFString()
	case lexer.TRUE:
		p.next()
		return ast.NewBoolLit(pos, true)
	case lexer.FALSE:
		p.next()
		return ast.NewBoolLit(pos, false)
	case lexer.NONE:
		p.next()
		return ast.NewNoneLit(pos)
	case lexer.IDENT:
		p.next()
		return ast.NewName(pos, tok.Literal)
	case lexer.YIELD:
		return p.parseYield()
	case lexer.LPAREN:
		return p.parseParenOrTuple()
	case lexer.LBRACKET:
		return p.parseListOrComp()
	case lexer.LBRACE:
		return p.parseBraceLiteral()
	case lexer.MINUS, lexer.PLUS, lexer.TILDE:
		// Defensive: reached only if precedence climbing is bypassed.
		return p.parseUnary()
	default:
		p.errorf("expected an expression")
		p.next()
		return ast.NewNoneLit(pos)
	}
}

// parseStringConcat handles Python-style implicit adjacent string-literal
// concatenation: `"a" "b"` parses as a single string.
func (p *Parser) parseStringConcat() ast.Expression {
	pos := p.cur().Pos
	var sb []byte
	for p.at(lexer.STRING) {
		sb = append(sb, []byte(p.next().Literal)...)
	}
	return ast.NewStrLit(pos, string(sb))
}

func (p *Parser) parseYield() ast.Expression {
	pos := p.next().Pos // 'yield'
	if _, ok := p.accept(lexer.FROM); ok {
		return ast.NewYieldFrom(pos, p.parseExpr())
	}
	if p.at(lexer.RPAREN) || p.at(lexer.NEWLINE) || p.at(lexer.SEMICOLON) || p.atEOF() {
		return ast.NewYield(pos, nil)
	}
	return ast.NewYield(pos, p.parseExprListAsExpr())
}

// parseParenOrTuple handles `(expr)`, `()`, `(a, b, ...)`, and `(x for x
// in y)` generator expressions.
func (p *Parser) parseParenOrTuple() ast.Expression {
	pos := p.next().Pos // '('
	if _, ok := p.accept(lexer.RPAREN); ok {
		return ast.NewTupleExpr(pos, nil)
	}
	var first ast.Expression
	if p.at(lexer.STAR) {
		spos := p.next().Pos
		first = ast.NewStarred(spos, p.parseOr())
	} else {
		first = p.parseExpr()
	}
	if p.at(lexer.FOR) {
		clauses := p.parseCompClauses()
		p.expect(lexer.RPAREN, "')'")
		return ast.NewGenExpr(pos, first, clauses)
	}
	if !p.at(lexer.COMMA) {
		p.expect(lexer.RPAREN, "')'")
		return first
	}
	elems := []ast.Expression{first}
	for {
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
		if p.at(lexer.RPAREN) {
			break
		}
		if p.at(lexer.STAR) {
			spos := p.next().Pos
			elems = append(elems, ast.NewStarred(spos, p.parseOr()))
		} else {
			elems = append(elems, p.parseExpr())
		}
	}
	p.expect(lexer.RPAREN, "')'")
	return ast.NewTupleExpr(pos, elems)
}

// parseListOrComp handles `[]`, `[a, b, ...]`, and `[expr for ...]`.
func (p *Parser) parseListOrComp() ast.Expression {
	pos := p.next().Pos // '['
	if _, ok := p.accept(lexer.RBRACKET); ok {
		return ast.NewListExpr(pos, nil)
	}
	var first ast.Expression
	if p.at(lexer.STAR) {
		spos := p.next().Pos
		first = ast.NewStarred(spos, p.parseOr())
	} else {
		first = p.parseExpr()
	}
	if p.at(lexer.FOR) {
		clauses := p.parseCompClauses()
		p.expect(lexer.RBRACKET, "']'")
		return ast.NewListComp(pos, first, clauses)
	}
	elems := []ast.Expression{first}
	for {
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
		if p.at(lexer.RBRACKET) {
			break
		}
		if p.at(lexer.STAR) {
			spos := p.next().Pos
			elems = append(elems, ast.NewStarred(spos, p.parseOr()))
		} else {
			elems = append(elems, p.parseExpr())
		}
	}
	p.expect(lexer.RBRACKET, "']'")
	return ast.NewListExpr(pos, elems)
}

// parseBraceLiteral handles `{}` (empty dict), `{k: v, ...}`, `{k: v for
// ...}`, `{a, b, ...}`, and `{a for ...}`.
func (p *Parser) parseBraceLiteral() ast.Expression {
	pos := p.next().Pos // '{'
	if _, ok := p.accept(lexer.RBRACE); ok {
		return ast.NewDictExpr(pos, nil, nil)
	}
	if p.at(lexer.DOUBLESTAR) {
		return p.parseDictBody(pos, nil, nil)
	}
	first := p.parseExpr()
	if _, ok := p.accept(lexer.COLON); ok {
		key := first
		val := p.parseExpr()
		if p.at(lexer.FOR) {
			clauses := p.parseCompClauses()
			p.expect(lexer.RBRACE, "'}'")
			return ast.NewDictComp(pos, key, val, clauses)
		}
		return p.parseDictBody(pos, []ast.Expression{key}, []ast.Expression{val})
	}
	if p.at(lexer.FOR) {
		clauses := p.parseCompClauses()
		p.expect(lexer.RBRACE, "'}'")
		return ast.NewSetComp(pos, first, clauses)
	}
	elems := []ast.Expression{first}
	for {
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
		if p.at(lexer.RBRACE) {
			break
		}
		elems = append(elems, p.parseExpr())
	}
	p.expect(lexer.RBRACE, "'}'")
	return ast.NewSetExpr(pos, elems)
}

// parseDictBody continues parsing a `{...}` dict literal after its first
// key/value pair (keys/values so far passed in), handling further
// `k: v` pairs and `**other` merges.
func (p *Parser) parseDictBody(pos lexer.Position, keys, values []ast.Expression) ast.Expression {
	for {
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
		if p.at(lexer.RBRACE) {
			break
		}
		if _, ok := p.accept(lexer.DOUBLESTAR); ok {
			keys = append(keys, nil)
			values = append(values, p.parseOr())
			continue
		}
		k := p.parseExpr()
		p.expect(lexer.COLON, "':'")
		v := p.parseExpr()
		keys = append(keys, k)
		values = append(values, v)
	}
	p.expect(lexer.RBRACE, "'}'")
	return ast.NewDictExpr(pos, keys, values)
}

// parseCompClauses parses the `for ... [if ...]...` tail shared by list,
// set, dict, and generator comprehensions. The leading FOR has not been
// consumed yet.
func (p *Parser) parseCompClauses() []ast.CompClause {
	var clauses []ast.CompClause
	for p.at(lexer.FOR) {
		p.next()
		target := p.parseTargetList()
		p.expect(lexer.IN, "'in'")
		iter := p.parseOr()
		clauses = append(clauses, ast.CompClause{For: target, Iter: iter})
		for p.at(lexer.IF) {
			p.next()
			cond := p.parseOrNoTernary()
			clauses = append(clauses, ast.CompClause{If: cond})
		}
	}
	return clauses
}

// parseOrNoTernary parses a comprehension `if` guard: an `or`-precedence
// expression, excluding the bare ternary form (which would be ambiguous
// with the clause's own `if`).
func (p *Parser) parseOrNoTernary() ast.Expression { return p.parseOr() }

// parseFString splits the raw FSTRING token text and recursively parses
// each interpolation chunk's expression source as its own mini-program.
func (p *Parser) parseFString() ast.Expression {
	tok := p.next()
	chunks, err := lexer.SplitFString(tok.Literal, tok.Pos)
	if err != nil {
		p.errs = append(p.errs, &Error{Message: err.Error(), Pos: tok.Pos})
		return ast.NewFString(tok.Pos, nil)
	}
	parts := make([]ast.FStringPart, 0, len(chunks))
	for _, c := range chunks {
		if !c.IsExpr {
			parts = append(parts, ast.FStringPart{Literal: c.Literal})
			continue
		}
		expr := p.parseSubExpr(c.Expr, c.Pos)
		part := ast.FStringPart{IsExpr: true, Expr: expr, Conversion: c.Conversion}
		if c.FormatSpec != "" {
			specChunks, serr := lexer.SplitFString(c.FormatSpec, c.Pos)
			if serr == nil {
				for _, sc := range specChunks {
					if sc.IsExpr {
						part.FormatSpec = append(part.FormatSpec, ast.FStringPart{
							IsExpr: true, Expr: p.parseSubExpr(sc.Expr, sc.Pos),
						})
					} else {
						part.FormatSpec = append(part.FormatSpec, ast.FStringPart{Literal: sc.Literal})
					}
				}
			} else {
				part.FormatSpec = []ast.FStringPart{{Literal: c.FormatSpec}}
			}
		}
		parts = append(parts, part)
	}
	return ast.NewFString(tok.Pos, parts)
}

// parseSubExpr parses a standalone expression fragment (an f-string
// interpolation body) as its own token stream, rooted at base for error
// reporting, and splices any errors it reports into the outer parser.
func (p *Parser) parseSubExpr(src string, base lexer.Position) ast.Expression {
	sub := New(src)
	expr := sub.parseExpr()
	for _, e := range sub.Errors() {
		e.Pos = base
		p.errs = append(p.errs, e)
	}
	return expr
}

func parseFloatLiteral(text string) float64 {
	clean := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		if text[i] != '_' {
			clean = append(clean, text[i])
		}
	}
	v, err := strconv.ParseFloat(string(clean), 64)
	if err != nil {
		return 0
	}
	return v
}

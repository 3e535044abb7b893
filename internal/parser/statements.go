package parser

import (
	"github.com/quill-lang/quill/internal/ast"
	"github.com/quill-lang/quill/internal/lexer"
)

// parseBlock parses the suite that follows a ':' — either a single
// simple-statement line (`if x: y = 1`) or an indented block.
func (p *Parser) parseBlock() ast.Block {
	p.expect(lexer.COLON, "':'")
	if p.at(lexer.NEWLINE) {
		p.next()
		p.expect(lexer.INDENT, "an indented block")
		var body ast.Block
		for !p.at(lexer.DEDENT) && !p.atEOF() {
			p.skipNewlines()
			if p.at(lexer.DEDENT) || p.atEOF() {
				break
			}
			if s := p.parseStatement(); s != nil {
				body = append(body, s)
			}
		}
		p.accept(lexer.DEDENT)
		return body
	}
	// Simple-statement suite: one or more semicolon-separated statements
	// on the same line.
	var body ast.Block
	for {
		if s := p.parseSimpleStatement(); s != nil {
			body = append(body, s)
		}
		if _, ok := p.accept(lexer.SEMICOLON); ok {
			if p.at(lexer.NEWLINE) || p.atEOF() {
				break
			}
			continue
		}
		break
	}
	p.accept(lexer.NEWLINE)
	return body
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur().Type {
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.FOR:
		return p.parseFor()
	case lexer.DEF:
		return p.parseFuncDef(nil)
	case lexer.CLASS:
		return p.parseClassDef(nil)
	case lexer.TRY:
		return p.parseTry()
	case lexer.WITH:
		return p.parseWith()
	case lexer.AT:
		return p.parseDecorated()
	}
	if p.isSoftKeyword("match") {
		return p.parseMatch()
	}
	stmt := p.parseSimpleStatement()
	if _, ok := p.accept(lexer.SEMICOLON); ok {
		for !p.at(lexer.NEWLINE) && !p.atEOF() {
			p.parseSimpleStatement()
			if _, ok := p.accept(lexer.SEMICOLON); !ok {
				break
			}
		}
	}
	p.accept(lexer.NEWLINE)
	return stmt
}

func (p *Parser) parseSimpleStatement() ast.Statement {
	pos := p.cur().Pos
	switch p.cur().Type {
	case lexer.RETURN:
		p.next()
		if p.at(lexer.NEWLINE) || p.at(lexer.SEMICOLON) || p.atEOF() {
			return ast.NewReturnStmt(pos, nil)
		}
		return ast.NewReturnStmt(pos, p.parseExprListAsExpr())
	case lexer.BREAK:
		p.next()
		return ast.NewBreakStmt(pos)
	case lexer.CONTINUE:
		p.next()
		return ast.NewContinueStmt(pos)
	case lexer.PASS:
		p.next()
		return ast.NewPassStmt(pos)
	case lexer.RAISE:
		return p.parseRaise()
	case lexer.IMPORT:
		return p.parseImport()
	case lexer.FROM:
		return p.parseFromImport()
	case lexer.ASSERT:
		return p.parseAssert()
	case lexer.DEL:
		return p.parseDel()
	case lexer.GLOBAL:
		return p.parseGlobal()
	case lexer.NONLOCAL:
		return p.parseNonlocal()
	default:
		return p.parseExprOrAssign()
	}
}

func (p *Parser) parseIf() ast.Statement {
	pos := p.next().Pos // consume 'if'
	cond := p.parseExpr()
	then := p.parseBlock()
	var els ast.Block
	switch p.cur().Type {
	case lexer.ELIF:
		elifPos := p.cur().Pos
		// Re-dispatch as a nested if, wrapped as the else-branch.
		nested := p.parseElif(elifPos)
		els = ast.Block{nested}
	case lexer.ELSE:
		p.next()
		els = p.parseBlock()
	}
	return ast.NewIfStmt(pos, cond, then, els)
}

func (p *Parser) parseElif(pos lexer.Position) ast.Statement {
	p.next() // consume 'elif'
	cond := p.parseExpr()
	then := p.parseBlock()
	var els ast.Block
	switch p.cur().Type {
	case lexer.ELIF:
		nested := p.parseElif(p.cur().Pos)
		els = ast.Block{nested}
	case lexer.ELSE:
		p.next()
		els = p.parseBlock()
	}
	return ast.NewIfStmt(pos, cond, then, els)
}

func (p *Parser) parseWhile() ast.Statement {
	pos := p.next().Pos
	cond := p.parseExpr()
	body := p.parseBlock()
	var els ast.Block
	if _, ok := p.accept(lexer.ELSE); ok {
		els = p.parseBlock()
	}
	return ast.NewWhileStmt(pos, cond, body, els)
}

func (p *Parser) parseFor() ast.Statement {
	pos := p.next().Pos
	target := p.parseTargetList()
	p.expect(lexer.IN, "'in'")
	iter := p.parseExprListAsExpr()
	body := p.parseBlock()
	var els ast.Block
	if _, ok := p.accept(lexer.ELSE); ok {
		els = p.parseBlock()
	}
	return ast.NewForStmt(pos, target, iter, body, els)
}

func (p *Parser) parseDecorated() ast.Statement {
	var decorators []ast.Expression
	for p.at(lexer.AT) {
		p.next()
		decorators = append(decorators, p.parseExpr())
		p.accept(lexer.NEWLINE)
	}
	switch p.cur().Type {
	case lexer.DEF:
		return p.parseFuncDef(decorators)
	case lexer.CLASS:
		return p.parseClassDef(decorators)
	default:
		p.errorf("expected a function or class definition after decorator")
		return nil
	}
}

func (p *Parser) parseFuncDef(decorators []ast.Expression) ast.Statement {
	pos := p.next().Pos // 'def'
	name := p.expect(lexer.IDENT, "a function name").Literal
	p.expect(lexer.LPAREN, "'('")
	params := p.parseParams(lexer.RPAREN)
	p.expect(lexer.RPAREN, "')'")
	retType := ""
	if _, ok := p.accept(lexer.ARROW); ok {
		retType = p.parseTypeAnnotation()
	}
	body := p.parseBlock()
	fn := ast.NewFuncDef(pos, name, params, body, decorators, retType, containsYield(body))
	return fn
}

func (p *Parser) parseClassDef(decorators []ast.Expression) ast.Statement {
	pos := p.next().Pos // 'class'
	name := p.expect(lexer.IDENT, "a class name").Literal
	var bases []ast.Expression
	if _, ok := p.accept(lexer.LPAREN); ok {
		for !p.at(lexer.RPAREN) && !p.atEOF() {
			bases = append(bases, p.parseExpr())
			if _, ok := p.accept(lexer.COMMA); !ok {
				break
			}
		}
		p.expect(lexer.RPAREN, "')'")
	}
	body := p.parseBlock()
	return ast.NewClassDef(pos, name, bases, body, decorators)
}

// parseParams parses a parameter list up to (not consuming) closer.
func (p *Parser) parseParams(closer lexer.TokenType) *ast.Params {
	params := &ast.Params{}
	seenStar := false
	for !p.at(closer) && !p.atEOF() {
		if _, ok := p.accept(lexer.STAR); ok {
			if p.at(lexer.COMMA) || p.at(closer) {
				seenStar = true
			} else {
				name := p.expect(lexer.IDENT, "a parameter name").Literal
				typ := p.maybeParseAnnotation()
				params.VarArgs = &ast.Param{Name: name, Type: typ}
				seenStar = true
			}
		} else if _, ok := p.accept(lexer.DOUBLESTAR); ok {
			name := p.expect(lexer.IDENT, "a parameter name").Literal
			typ := p.maybeParseAnnotation()
			params.KwArgs = &ast.Param{Name: name, Type: typ}
		} else {
			name := p.expect(lexer.IDENT, "a parameter name").Literal
			typ := p.maybeParseAnnotation()
			var def ast.Expression
			if _, ok := p.accept(lexer.ASSIGN); ok {
				def = p.parseExpr()
			}
			param := ast.Param{Name: name, Type: typ, Default: def}
			if seenStar {
				params.KeywordOnly = append(params.KeywordOnly, param)
			} else {
				params.Positional = append(params.Positional, param)
			}
		}
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
	}
	return params
}

func (p *Parser) maybeParseAnnotation() string {
	if _, ok := p.accept(lexer.COLON); ok {
		return p.parseTypeAnnotation()
	}
	return ""
}

// parseTypeAnnotation consumes a type-annotation expression and returns
// its source text verbatim; annotations are never type-checked.
func (p *Parser) parseTypeAnnotation() string {
	expr := p.parseTernaryPrecedence()
	return expr.String()
}

func containsYield(body ast.Block) bool {
	found := false
	var walkBlock func(ast.Block)
	var walkExpr func(ast.Expression)
	walkExpr = func(e ast.Expression) {
		if e == nil || found {
			return
		}
		switch n := e.(type) {
		case *ast.Yield, *ast.YieldFrom:
			found = true
		case *ast.BinOp:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *ast.UnaryOp:
			walkExpr(n.Operand)
		case *ast.Call:
			walkExpr(n.Func)
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ast.Ternary:
			walkExpr(n.Cond)
			walkExpr(n.Then)
			walkExpr(n.Else)
		}
	}
	walkBlock = func(b ast.Block) {
		for _, s := range b {
			if found {
				return
			}
			switch n := s.(type) {
			case *ast.ExprStmt:
				walkExpr(n.X)
			case *ast.AssignStmt:
				walkExpr(n.Value)
			case *ast.IfStmt:
				walkExpr(n.Cond)
				walkBlock(n.Then)
				walkBlock(n.Else)
			case *ast.WhileStmt:
				walkBlock(n.Body)
				walkBlock(n.Else)
			case *ast.ForStmt:
				walkBlock(n.Body)
				walkBlock(n.Else)
			case *ast.TryStmt:
				walkBlock(n.Body)
				for _, h := range n.Handlers {
					walkBlock(h.Body)
				}
				walkBlock(n.Else)
				walkBlock(n.Finally)
			case *ast.WithStmt:
				walkBlock(n.Body)
			case *ast.ReturnStmt:
				walkExpr(n.Value)
			}
		}
	}
	walkBlock(body)
	return found
}

func (p *Parser) parseTry() ast.Statement {
	pos := p.next().Pos
	body := p.parseBlock()
	var handlers []ast.ExceptHandler
	for p.at(lexer.EXCEPT) {
		hpos := p.cur().Pos
		p.next()
		var types []ast.Expression
		name := ""
		if !p.at(lexer.COLON) {
			if _, ok := p.accept(lexer.LPAREN); ok {
				for !p.at(lexer.RPAREN) && !p.atEOF() {
					types = append(types, p.parseExpr())
					if _, ok := p.accept(lexer.COMMA); !ok {
						break
					}
				}
				p.expect(lexer.RPAREN, "')'")
			} else {
				types = append(types, p.parseExpr())
			}
			if _, ok := p.accept(lexer.AS); ok {
				name = p.expect(lexer.IDENT, "a name").Literal
			}
		}
		hbody := p.parseBlock()
		handlers = append(handlers, ast.ExceptHandler{Types: types, Name: name, Body: hbody, Pos: hpos})
	}
	var els, fin ast.Block
	if _, ok := p.accept(lexer.ELSE); ok {
		els = p.parseBlock()
	}
	if _, ok := p.accept(lexer.FINALLY); ok {
		fin = p.parseBlock()
	}
	return ast.NewTryStmt(pos, body, handlers, els, fin)
}

func (p *Parser) parseRaise() ast.Statement {
	pos := p.next().Pos
	if p.at(lexer.NEWLINE) || p.at(lexer.SEMICOLON) || p.atEOF() {
		return ast.NewRaiseStmt(pos, nil, nil)
	}
	exc := p.parseExpr()
	var cause ast.Expression
	if _, ok := p.accept(lexer.FROM); ok {
		cause = p.parseExpr()
	}
	return ast.NewRaiseStmt(pos, exc, cause)
}

func (p *Parser) parseWith() ast.Statement {
	pos := p.next().Pos
	var items []ast.WithItem
	for {
		expr := p.parseExpr()
		var target ast.AssignTarget
		if _, ok := p.accept(lexer.AS); ok {
			target = p.parseTargetAtom()
		}
		items = append(items, ast.WithItem{Expr: expr, Target: target})
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
	}
	body := p.parseBlock()
	return ast.NewWithStmt(pos, items, body)
}

func (p *Parser) parseImport() ast.Statement {
	pos := p.next().Pos
	var names []ast.ImportAlias
	for {
		name := p.parseDottedName()
		as := ""
		if _, ok := p.accept(lexer.AS); ok {
			as = p.expect(lexer.IDENT, "a name").Literal
		}
		names = append(names, ast.ImportAlias{Name: name, AsName: as})
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
	}
	return ast.NewImportStmt(pos, names)
}

func (p *Parser) parseFromImport() ast.Statement {
	pos := p.next().Pos
	module := p.parseDottedName()
	p.expect(lexer.IMPORT, "'import'")
	var names []ast.ImportAlias
	paren := false
	if _, ok := p.accept(lexer.LPAREN); ok {
		paren = true
	}
	if _, ok := p.accept(lexer.STAR); ok {
		names = append(names, ast.ImportAlias{Name: "*"})
	} else {
		for {
			name := p.expect(lexer.IDENT, "a name").Literal
			as := ""
			if _, ok := p.accept(lexer.AS); ok {
				as = p.expect(lexer.IDENT, "a name").Literal
			}
			names = append(names, ast.ImportAlias{Name: name, AsName: as})
			if _, ok := p.accept(lexer.COMMA); !ok {
				break
			}
		}
	}
	if paren {
		p.expect(lexer.RPAREN, "')'")
	}
	return ast.NewFromImportStmt(pos, module, names)
}

func (p *Parser) parseDottedName() string {
	name := p.expect(lexer.IDENT, "a module name").Literal
	for {
		if _, ok := p.accept(lexer.DOT); ok {
			name += "." + p.expect(lexer.IDENT, "a name").Literal
			continue
		}
		break
	}
	return name
}

func (p *Parser) parseAssert() ast.Statement {
	pos := p.next().Pos
	cond := p.parseExpr()
	var msg ast.Expression
	if _, ok := p.accept(lexer.COMMA); ok {
		msg = p.parseExpr()
	}
	return ast.NewAssertStmt(pos, cond, msg)
}

func (p *Parser) parseDel() ast.Statement {
	pos := p.next().Pos
	var targets []ast.Expression
	for {
		targets = append(targets, p.parseExpr())
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
	}
	return ast.NewDelStmt(pos, targets)
}

func (p *Parser) parseGlobal() ast.Statement {
	pos := p.next().Pos
	var names []string
	for {
		names = append(names, p.expect(lexer.IDENT, "a name").Literal)
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
	}
	return ast.NewGlobalStmt(pos, names)
}

func (p *Parser) parseNonlocal() ast.Statement {
	pos := p.next().Pos
	var names []string
	for {
		names = append(names, p.expect(lexer.IDENT, "a name").Literal)
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
	}
	return ast.NewNonlocalStmt(pos, names)
}

// parseExprOrAssign parses a statement starting with an expression: a
// bare expression statement, a chained assignment, an augmented
// assignment, or an annotated assignment.
func (p *Parser) parseExprOrAssign() ast.Statement {
	pos := p.cur().Pos
	first := p.parseTargetList()

	if _, ok := p.accept(lexer.COLON); ok {
		ann := p.parseTypeAnnotation()
		var value ast.Expression
		if _, ok := p.accept(lexer.ASSIGN); ok {
			value = p.parseExprListAsExpr()
		}
		return ast.NewAnnAssignStmt(pos, first, ann, value)
	}

	if op, ok := p.acceptAugOp(); ok {
		value := p.parseExprListAsExpr()
		return ast.NewAugAssignStmt(pos, first, op, value)
	}

	if p.at(lexer.ASSIGN) {
		targets := []ast.AssignTarget{first}
		var value ast.Expression
		for {
			p.next() // consume '='
			value = p.parseTargetList()
			if p.at(lexer.ASSIGN) {
				targets = append(targets, value)
				continue
			}
			break
		}
		return ast.NewAssignStmt(pos, targets, value)
	}

	return ast.NewExprStmt(pos, first)
}

var augOps = map[lexer.TokenType]string{
	lexer.PLUSEQ: "+", lexer.MINUSEQ: "-", lexer.STAREQ: "*", lexer.SLASHEQ: "/",
	lexer.DSLASHEQ: "//", lexer.PERCENTEQ: "%", lexer.DSTAREQ: "**",
	lexer.AMPEQ: "&", lexer.PIPEEQ: "|", lexer.CARETEQ: "^",
	lexer.LSHIFTEQ: "<<", lexer.RSHIFTEQ: ">>",
}

func (p *Parser) acceptAugOp() (string, bool) {
	if op, ok := augOps[p.cur().Type]; ok {
		p.next()
		return op, true
	}
	return "", false
}

// parseTargetList parses a comma-separated expression list, collapsing
// to a single Expression or a TupleExpr of >1 elements; used both for
// assignment targets/values and for `for`-target and `return`
// expression-lists, which share exactly this grammar.
func (p *Parser) parseTargetList() ast.Expression {
	pos := p.cur().Pos
	first := p.parseTargetAtom()
	if !p.at(lexer.COMMA) {
		return first
	}
	elems := []ast.Expression{first}
	for {
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
		if p.atExprListEnd() {
			break
		}
		elems = append(elems, p.parseTargetAtom())
	}
	return ast.NewTupleExpr(pos, elems)
}

func (p *Parser) atExprListEnd() bool {
	switch p.cur().Type {
	case lexer.ASSIGN, lexer.COLON, lexer.NEWLINE, lexer.SEMICOLON, lexer.EOF,
		lexer.IN, lexer.RPAREN, lexer.RBRACKET, lexer.RBRACE:
		return true
	}
	if _, ok := augOps[p.cur().Type]; ok {
		return true
	}
	return false
}

func (p *Parser) parseTargetAtom() ast.Expression {
	if p.at(lexer.STAR) {
		pos := p.next().Pos
		return ast.NewStarred(pos, p.parseOr())
	}
	return p.parseExpr()
}

// parseExprListAsExpr parses a comma-separated list of expressions used
// as an rvalue (return/assignment value, for-iterable), collapsing to a
// TupleExpr when there is more than one.
func (p *Parser) parseExprListAsExpr() ast.Expression {
	pos := p.cur().Pos
	first := p.parseTargetAtom()
	if !p.at(lexer.COMMA) {
		return first
	}
	elems := []ast.Expression{first}
	for {
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
		if p.atExprListEnd() {
			break
		}
		elems = append(elems, p.parseTargetAtom())
	}
	return ast.NewTupleExpr(pos, elems)
}

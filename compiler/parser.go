package compiler

import (
	"fmt"
	"math/big"

	"github.com/chazu/mil/vm"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent parser for mil's s-expression syntax
// ---------------------------------------------------------------------------

// maxBytesLen is the longest byte-string literal the wire format can carry.
const maxBytesLen = 255

// maxIntBits is the widest integer literal the wire format can carry.
const maxIntBits = 256

// Parser parses mil source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []string
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// curSymbolIs checks if the current token is the given symbol.
func (p *Parser) curSymbolIs(name string) bool {
	return p.curToken.Type == TokenSymbol && p.curToken.Literal == name
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken.Type)
	return false
}

// errorf records a parse error.
func (p *Parser) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf("line %d: %s", p.curToken.Pos.Line, fmt.Sprintf(format, args...))
	p.errors = append(p.errors, msg)
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string {
	return p.errors
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses function definitions followed by one root expression.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{}

	for p.curTokenIs(TokenLParen) && p.peekToken.Type == TokenSymbol && p.peekToken.Literal == "fn" {
		defn := p.parseDefn()
		if defn == nil {
			return nil
		}
		prog.Defns = append(prog.Defns, defn)
	}

	if p.curTokenIs(TokenEOF) {
		p.errorf("expected a root expression")
		return nil
	}

	prog.Root = p.ParseExpression()
	if prog.Root == nil {
		return nil
	}

	if !p.curTokenIs(TokenEOF) {
		p.errorf("unexpected input after root expression")
		return nil
	}
	return prog
}

// parseDefn parses (fn name (p1 p2 ...) body).
func (p *Parser) parseDefn() *Defn {
	startPos := p.curToken.Pos
	p.nextToken() // consume (
	p.nextToken() // consume fn

	if !p.curTokenIs(TokenSymbol) {
		p.errorf("expected function name, got %s", p.curToken.Type)
		return nil
	}
	name := p.curToken.Literal
	p.nextToken()

	if !p.expect(TokenLParen) {
		return nil
	}
	var params []string
	for p.curTokenIs(TokenSymbol) {
		params = append(params, p.curToken.Literal)
		p.nextToken()
	}
	if !p.expect(TokenRParen) {
		return nil
	}

	body := p.ParseExpression()
	if body == nil {
		return nil
	}

	endPos := p.curToken.Pos
	if !p.expect(TokenRParen) {
		return nil
	}

	return &Defn{
		SpanVal: MakeSpan(startPos, endPos),
		Name:    name,
		Params:  params,
		Body:    body,
	}
}

// ---------------------------------------------------------------------------
// Expression parsing
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	switch {
	case p.curTokenIs(TokenInteger):
		return p.parseIntLit()

	case p.curTokenIs(TokenString):
		return p.parseBytesLit()

	case p.curTokenIs(TokenSymbol):
		v := &Var{
			SpanVal: MakeSpan(p.curToken.Pos, p.curToken.Pos),
			Name:    p.curToken.Literal,
		}
		p.nextToken()
		return v

	case p.curTokenIs(TokenLParen):
		return p.parseForm()

	case p.curTokenIs(TokenError):
		p.errorf("%s", p.curToken.Literal)
		return nil

	default:
		p.errorf("unexpected token %s", p.curToken)
		return nil
	}
}

func (p *Parser) parseIntLit() *IntLit {
	pos := p.curToken.Pos
	n := new(big.Int)
	if _, ok := n.SetString(p.curToken.Literal, 0); !ok {
		p.errorf("malformed integer literal %q", p.curToken.Literal)
		return nil
	}
	if n.BitLen() > maxIntBits {
		p.errorf("integer literal does not fit in %d bits", maxIntBits)
		return nil
	}
	p.nextToken()
	return &IntLit{SpanVal: MakeSpan(pos, pos), Value: n}
}

func (p *Parser) parseBytesLit() *BytesLit {
	pos := p.curToken.Pos
	data := []byte(p.curToken.Literal)
	if len(data) > maxBytesLen {
		p.errorf("byte-string literal of %d bytes exceeds %d", len(data), maxBytesLen)
		return nil
	}
	p.nextToken()
	return &BytesLit{SpanVal: MakeSpan(pos, pos), Value: data}
}

// parseForm parses any parenthesized form.
func (p *Parser) parseForm() Expr {
	startPos := p.curToken.Pos
	p.nextToken() // consume (

	if !p.curTokenIs(TokenSymbol) {
		p.errorf("expected an operator or function name after (, got %s", p.curToken.Type)
		return nil
	}
	head := p.curToken.Literal

	switch head {
	case "fn":
		p.errorf("function definitions are only allowed at the top level")
		return nil
	case "let":
		return p.parseLet(startPos)
	case "set!":
		return p.parseSet(startPos)
	case "loop":
		return p.parseLoop(startPos)
	case "hash":
		return p.parseHash(startPos)
	case "sigeok":
		return p.parseSigeok(startPos)
	case "noop":
		p.nextToken()
		endPos := p.curToken.Pos
		if !p.expect(TokenRParen) {
			return nil
		}
		return &NoopForm{SpanVal: MakeSpan(startPos, endPos)}
	}

	if op, ok := vm.OpByName(head); ok {
		return p.parseBuiltIn(startPos, op)
	}
	return p.parseCall(startPos, head)
}

// parseLet parses (let ((x e) (y e) ...) body-expr+).
func (p *Parser) parseLet(startPos Position) Expr {
	p.nextToken() // consume let

	if !p.expect(TokenLParen) {
		return nil
	}
	var bindings []Binding
	for p.curTokenIs(TokenLParen) {
		p.nextToken() // consume (
		if !p.curTokenIs(TokenSymbol) {
			p.errorf("expected a variable name in let binding, got %s", p.curToken.Type)
			return nil
		}
		name := p.curToken.Literal
		p.nextToken()
		value := p.ParseExpression()
		if value == nil {
			return nil
		}
		if !p.expect(TokenRParen) {
			return nil
		}
		bindings = append(bindings, Binding{Name: name, Value: value})
	}
	if !p.expect(TokenRParen) {
		return nil
	}

	var body []Expr
	for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) {
		e := p.ParseExpression()
		if e == nil {
			return nil
		}
		body = append(body, e)
	}
	if len(body) == 0 {
		p.errorf("let form requires at least one body expression")
		return nil
	}

	endPos := p.curToken.Pos
	if !p.expect(TokenRParen) {
		return nil
	}
	return &LetExpr{SpanVal: MakeSpan(startPos, endPos), Bindings: bindings, Body: body}
}

// parseSet parses (set! name e).
func (p *Parser) parseSet(startPos Position) Expr {
	p.nextToken() // consume set!

	if !p.curTokenIs(TokenSymbol) {
		p.errorf("expected a variable name after set!, got %s", p.curToken.Type)
		return nil
	}
	name := p.curToken.Literal
	p.nextToken()

	value := p.ParseExpression()
	if value == nil {
		return nil
	}

	endPos := p.curToken.Pos
	if !p.expect(TokenRParen) {
		return nil
	}
	return &SetExpr{SpanVal: MakeSpan(startPos, endPos), Name: name, Value: value}
}

// parseU16 parses an integer literal that must fit in 16 bits.
func (p *Parser) parseU16(what string) (uint16, bool) {
	if !p.curTokenIs(TokenInteger) {
		p.errorf("expected an integer literal for %s, got %s", what, p.curToken.Type)
		return 0, false
	}
	lit := p.parseIntLit()
	if lit == nil {
		return 0, false
	}
	if !lit.Value.IsUint64() || lit.Value.Uint64() > 0xffff {
		p.errorf("%s must fit in 16 bits", what)
		return 0, false
	}
	return uint16(lit.Value.Uint64()), true
}

// parseLoop parses (loop n body).
func (p *Parser) parseLoop(startPos Position) Expr {
	p.nextToken() // consume loop

	count, ok := p.parseU16("loop count")
	if !ok {
		return nil
	}
	body := p.ParseExpression()
	if body == nil {
		return nil
	}

	endPos := p.curToken.Pos
	if !p.expect(TokenRParen) {
		return nil
	}
	return &LoopForm{SpanVal: MakeSpan(startPos, endPos), Count: count, Body: body}
}

// parseHash parses (hash limit e).
func (p *Parser) parseHash(startPos Position) Expr {
	p.nextToken() // consume hash

	limit, ok := p.parseU16("hash limit")
	if !ok {
		return nil
	}
	e := p.ParseExpression()
	if e == nil {
		return nil
	}

	endPos := p.curToken.Pos
	if !p.expect(TokenRParen) {
		return nil
	}
	return &HashForm{SpanVal: MakeSpan(startPos, endPos), Limit: limit, E: e}
}

// parseSigeok parses (sigeok limit msg key sig).
func (p *Parser) parseSigeok(startPos Position) Expr {
	p.nextToken() // consume sigeok

	limit, ok := p.parseU16("sigeok limit")
	if !ok {
		return nil
	}
	msg := p.ParseExpression()
	if msg == nil {
		return nil
	}
	key := p.ParseExpression()
	if key == nil {
		return nil
	}
	sig := p.ParseExpression()
	if sig == nil {
		return nil
	}

	endPos := p.curToken.Pos
	if !p.expect(TokenRParen) {
		return nil
	}
	return &SigeokForm{SpanVal: MakeSpan(startPos, endPos), Limit: limit, Msg: msg, Key: key, Sig: sig}
}

// parseBuiltIn parses a builtin operator application, checking arity against
// the operator table.
func (p *Parser) parseBuiltIn(startPos Position, op vm.Op) Expr {
	p.nextToken() // consume operator symbol

	info := op.Info()
	call := &BuiltInCall{BuiltIn: vm.BuiltIn[Expr]{Op: op}}

	if info.Indexed {
		idx, ok := p.parseU16(fmt.Sprintf("%s index", info.Name))
		if !ok {
			return nil
		}
		call.Idx = idx
	} else {
		for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) {
			arg := p.ParseExpression()
			if arg == nil {
				return nil
			}
			call.Args = append(call.Args, arg)
		}
		if len(call.Args) != info.Arity {
			p.errorf("operator %s expects %d operands, got %d", info.Name, info.Arity, len(call.Args))
			return nil
		}
	}

	endPos := p.curToken.Pos
	if !p.expect(TokenRParen) {
		return nil
	}
	call.SpanVal = MakeSpan(startPos, endPos)
	return call
}

// parseCall parses an application of a user-defined function.
func (p *Parser) parseCall(startPos Position, name string) Expr {
	p.nextToken() // consume function name

	var args []Expr
	for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) {
		arg := p.ParseExpression()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
	}

	endPos := p.curToken.Pos
	if !p.expect(TokenRParen) {
		return nil
	}
	return &CallExpr{SpanVal: MakeSpan(startPos, endPos), Name: name, Args: args}
}

// Parse parses a complete program and returns it with any accumulated errors.
func Parse(input string) (*Program, error) {
	p := NewParser(input)
	prog := p.ParseProgram()
	if len(p.errors) > 0 {
		return nil, fmt.Errorf("parse: %s", p.errors[0])
	}
	return prog, nil
}

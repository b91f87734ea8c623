package ast

import (
	"fmt"
	"strconv"

	"microc/internal/ctype"
	"microc/internal/lexer"
	"microc/internal/symtable"
)

// Builder walks a parsetree.Program against a symtable.Table, producing a
// typed AST. It owns the three climbers (FromExpr, FromCond, FromLval). The
// expression and lvalue climbers share an infix-operator-table technique (a
// map[TokenType]int precedence table plus a recursive descent keyed off it —
// Pratt parsing without an external library); the condition climber has no
// table and splits its token run at the top-level comparison operator.
type Builder struct {
	Table *symtable.Table
}

// exprPrecedence is the expression climber's infix table: `+ -` bind looser
// than `* /`. Prefix and postfix operators are handled structurally, not
// through this table (prefix/postfix parsing is hand-coded separately from
// infix precedence).
var exprPrecedence = map[lexer.TokenType]int{
	lexer.TokenPlus:  1,
	lexer.TokenMinus: 1,
	lexer.TokenStar:  2,
	lexer.TokenSlash: 2,
}

// lvalPrecedence is identical in shape to exprPrecedence; kept as its own
// table (rather than reused) because the two climbers build different node
// kinds from the same operator set and must stay free to diverge.
var lvalPrecedence = map[lexer.TokenType]int{
	lexer.TokenPlus:  1,
	lexer.TokenMinus: 1,
	lexer.TokenStar:  2,
	lexer.TokenSlash: 2,
}

type cursor struct {
	toks []lexer.Token
	pos  int
}

func (c *cursor) peek() lexer.Token {
	if c.pos >= len(c.toks) {
		return lexer.Token{Type: lexer.TokenEOF}
	}
	return c.toks[c.pos]
}

func (c *cursor) peekAt(n int) lexer.Token {
	if c.pos+n >= len(c.toks) {
		return lexer.Token{Type: lexer.TokenEOF}
	}
	return c.toks[c.pos+n]
}

func (c *cursor) advance() lexer.Token {
	t := c.peek()
	c.pos++
	return t
}

func (c *cursor) atEnd() bool { return c.pos >= len(c.toks) }

func (c *cursor) expect(t lexer.TokenType) (lexer.Token, error) {
	if c.peek().Type != t {
		return lexer.Token{}, fmt.Errorf("ast: line %d: expected %s, got %s %q", c.peek().Line, t, c.peek().Type, c.peek().Lexeme)
	}
	return c.advance(), nil
}

// ---- Expression climber ----

// FromExpr parses a full expression token run to EOF of that run.
func (b *Builder) FromExpr(toks []lexer.Token) (Node, error) {
	c := &cursor{toks: toks}
	n, err := b.exprBinary(c, 0)
	if err != nil {
		return nil, err
	}
	if !c.atEnd() {
		return nil, fmt.Errorf("ast: unexpected trailing token %q in expression", c.peek().Lexeme)
	}
	return n, nil
}

func (b *Builder) exprBinary(c *cursor, minPrec int) (Node, error) {
	lhs, err := b.exprUnary(c)
	if err != nil {
		return nil, err
	}
	for {
		opTok := c.peek()
		prec, ok := exprPrecedence[opTok.Type]
		if !ok || prec < minPrec {
			return lhs, nil
		}
		c.advance()
		rhs, err := b.exprBinary(c, prec+1)
		if err != nil {
			return nil, err
		}
		lhs, err = buildExprBinary(binOpFor(opTok.Type), lhs, rhs)
		if err != nil {
			return nil, err
		}
	}
}

func (b *Builder) exprUnary(c *cursor) (Node, error) {
	switch c.peek().Type {
	case lexer.TokenMinus:
		c.advance()
		operand, err := b.exprUnary(c)
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Operand: operand, Typ: operand.CType()}, nil
	case lexer.TokenStar:
		c.advance()
		operand, err := b.exprUnary(c)
		if err != nil {
			return nil, err
		}
		return buildDereference(operand)
	case lexer.TokenAmp:
		c.advance()
		operand, err := b.exprUnary(c)
		if err != nil {
			return nil, err
		}
		return buildReference(operand), nil
	case lexer.TokenLParen:
		if target, ok := castTarget(c.peekAt(1).Type); ok && c.peekAt(2).Type == lexer.TokenRParen {
			c.advance() // '('
			c.advance() // type keyword
			c.advance() // ')'
			operand, err := b.exprUnary(c)
			if err != nil {
				return nil, err
			}
			return CastTo(operand, target), nil
		}
	}
	return b.exprPostfix(c)
}

func castTarget(t lexer.TokenType) (ctype.Type, bool) {
	switch t {
	case lexer.TokenInt:
		return ctype.NewInt(), true
	case lexer.TokenFloat:
		return ctype.NewFloat(), true
	default:
		return ctype.Type{}, false
	}
}

func (b *Builder) exprPostfix(c *cursor) (Node, error) {
	n, err := b.exprPrimary(c)
	if err != nil {
		return nil, err
	}
	for c.peek().Type == lexer.TokenLBracket {
		c.advance()
		idx, err := b.exprBinary(c, 0)
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(lexer.TokenRBracket); err != nil {
			return nil, err
		}
		n, err = desugarIndex(n, idx, false)
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (b *Builder) exprPrimary(c *cursor) (Node, error) {
	tok := c.peek()
	switch tok.Type {
	case lexer.TokenLParen:
		c.advance()
		n, err := b.exprBinary(c, 0)
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return n, nil
	case lexer.TokenIntLit:
		c.advance()
		v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ast: invalid integer literal %q", tok.Lexeme)
		}
		return &IntLit{Value: v, Typ: ctype.NewInt()}, nil
	case lexer.TokenFloatLit:
		c.advance()
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, fmt.Errorf("ast: invalid float literal %q", tok.Lexeme)
		}
		return &FloatLit{Value: v, Typ: ctype.NewFloat()}, nil
	case lexer.TokenMalloc:
		c.advance()
		if _, err := c.expect(lexer.TokenLParen); err != nil {
			return nil, err
		}
		size, err := b.exprBinary(c, 0)
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return &Malloc{Size: size, Typ: ctype.NewPtr(ctype.NewVoid())}, nil
	case lexer.TokenIdent:
		if c.peekAt(1).Type == lexer.TokenLParen {
			return b.funcCallPrimary(c)
		}
		c.advance()
		return b.resolveVar(tok.Lexeme)
	default:
		return nil, fmt.Errorf("ast: line %d: unexpected token %q in expression", tok.Line, tok.Lexeme)
	}
}

func (b *Builder) funcCallPrimary(c *cursor) (Node, error) {
	name := c.advance().Lexeme
	c.advance() // '('
	var args []Node
	for c.peek().Type != lexer.TokenRParen {
		arg, err := b.exprBinary(c, 0)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if c.peek().Type == lexer.TokenComma {
			c.advance()
			continue
		}
		break
	}
	if _, err := c.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return b.buildCall(name, args)
}

func (b *Builder) resolveVar(name string) (Node, error) {
	scopeID, err := b.Table.GetScope(name)
	if err != nil {
		return nil, err
	}
	entry, err := b.Table.GetSymbolInScope(name, scopeID)
	if err != nil {
		return nil, err
	}
	return &Var{Ident: name, ScopeID: scopeID, Typ: entry.CType()}, nil
}

// ---- Condition climber ----

// FromCond parses a single comparison: `expr (== != < <= > >=) expr`.
func (b *Builder) FromCond(toks []lexer.Token) (Node, error) {
	depth := 0
	for i, t := range toks {
		switch t.Type {
		case lexer.TokenLParen, lexer.TokenLBracket:
			depth++
		case lexer.TokenRParen, lexer.TokenRBracket:
			depth--
		}
		if depth != 0 {
			continue
		}
		if op, ok := condOpFor(t.Type); ok {
			lhs, err := b.FromExpr(toks[:i])
			if err != nil {
				return nil, err
			}
			rhs, err := b.FromExpr(toks[i+1:])
			if err != nil {
				return nil, err
			}
			return buildCondBinary(op, lhs, rhs)
		}
	}
	return nil, fmt.Errorf("ast: no comparison operator found in condition")
}

func condOpFor(t lexer.TokenType) (CondOp, bool) {
	switch t {
	case lexer.TokenEqual:
		return Equal, true
	case lexer.TokenNotEqual:
		return NotEqual, true
	case lexer.TokenLT:
		return Less, true
	case lexer.TokenLE:
		return LessEqual, true
	case lexer.TokenGT:
		return Greater, true
	case lexer.TokenGE:
		return GreaterEqual, true
	default:
		return 0, false
	}
}

// ---- Lvalue climber ----

// FromLval parses an assignment target: nested lvalues, identifiers, and int
// literals as primaries; `+ - * /`, negate, cast, a star marking an address
// target (instead of `&`), and array indexing as operators.
func (b *Builder) FromLval(toks []lexer.Token) (Node, error) {
	c := &cursor{toks: toks}
	n, err := b.lvalBinary(c, 0)
	if err != nil {
		return nil, err
	}
	if !c.atEnd() {
		return nil, fmt.Errorf("ast: unexpected trailing token %q in lvalue", c.peek().Lexeme)
	}
	return n, nil
}

func (b *Builder) lvalBinary(c *cursor, minPrec int) (Node, error) {
	lhs, err := b.lvalUnary(c)
	if err != nil {
		return nil, err
	}
	for {
		opTok := c.peek()
		prec, ok := lvalPrecedence[opTok.Type]
		if !ok || prec < minPrec {
			return lhs, nil
		}
		c.advance()
		rhs, err := b.lvalBinary(c, prec+1)
		if err != nil {
			return nil, err
		}
		lhs, err = buildLvalBinary(binOpFor(opTok.Type), lhs, rhs)
		if err != nil {
			return nil, err
		}
	}
}

func (b *Builder) lvalUnary(c *cursor) (Node, error) {
	switch c.peek().Type {
	case lexer.TokenMinus:
		c.advance()
		operand, err := b.lvalUnary(c)
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Operand: operand, Typ: operand.CType()}, nil
	case lexer.TokenStar:
		c.advance()
		operand, err := b.lvalUnary(c)
		if err != nil {
			return nil, err
		}
		return buildAddress(operand), nil
	case lexer.TokenLParen:
		if target, ok := castTarget(c.peekAt(1).Type); ok && c.peekAt(2).Type == lexer.TokenRParen {
			c.advance()
			c.advance()
			c.advance()
			operand, err := b.lvalUnary(c)
			if err != nil {
				return nil, err
			}
			return CastTo(operand, target), nil
		}
	}
	return b.lvalPostfix(c)
}

func (b *Builder) lvalPostfix(c *cursor) (Node, error) {
	n, err := b.lvalPrimary(c)
	if err != nil {
		return nil, err
	}
	for c.peek().Type == lexer.TokenLBracket {
		c.advance()
		idx, err := b.exprBinary(c, 0)
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(lexer.TokenRBracket); err != nil {
			return nil, err
		}
		n, err = desugarIndex(n, idx, true)
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (b *Builder) lvalPrimary(c *cursor) (Node, error) {
	tok := c.peek()
	switch tok.Type {
	case lexer.TokenLParen:
		c.advance()
		n, err := b.lvalBinary(c, 0)
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return n, nil
	case lexer.TokenIntLit:
		c.advance()
		v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ast: invalid integer literal %q", tok.Lexeme)
		}
		return &IntLit{Value: v, Typ: ctype.NewInt()}, nil
	case lexer.TokenIdent:
		c.advance()
		return b.resolveVar(tok.Lexeme)
	default:
		return nil, fmt.Errorf("ast: line %d: unexpected token %q in lvalue", tok.Line, tok.Lexeme)
	}
}

func binOpFor(t lexer.TokenType) BinOp {
	switch t {
	case lexer.TokenPlus:
		return Plus
	case lexer.TokenMinus:
		return Minus
	case lexer.TokenStar:
		return Times
	default:
		return Divide
	}
}

// ---- Shared typed-construction helpers ----

func buildExprBinary(op BinOp, lhs, rhs Node) (Node, error) {
	lt, rt := lhs.CType(), rhs.CType()
	if lt.Equal(rt) {
		return &BinaryOp{Op: op, LHS: lhs, RHS: rhs, Typ: lt}, nil
	}
	if lt.Kind == ctype.Int && rt.Kind == ctype.Float {
		return &BinaryOp{Op: op, LHS: CastTo(lhs, ctype.NewFloat()), RHS: rhs, Typ: ctype.NewFloat()}, nil
	}
	if lt.Kind == ctype.Float && rt.Kind == ctype.Int {
		return &BinaryOp{Op: op, LHS: lhs, RHS: CastTo(rhs, ctype.NewFloat()), Typ: ctype.NewFloat()}, nil
	}
	return nil, typeErrorf("type error: incompatible operand types %s and %s", lt, rt)
}

// buildLvalBinary implements the lvalue climber's arithmetic rule: a
// mismatched Int/Ptr pair coerces the Int side to the pointer type via
// SetType (a retyping, not a runtime Cast) rather than promoting to float.
// desugarIndex does not go through it; it builds its nodes directly.
func buildLvalBinary(op BinOp, lhs, rhs Node) (Node, error) {
	lt, rt := lhs.CType(), rhs.CType()
	if lt.Equal(rt) {
		return &BinaryOp{Op: op, LHS: lhs, RHS: rhs, Typ: lt}, nil
	}
	if lt.Kind == ctype.Int && rt.Kind == ctype.Ptr {
		if err := SetType(lhs, rt); err != nil {
			return nil, err
		}
		return &BinaryOp{Op: op, LHS: lhs, RHS: rhs, Typ: rt}, nil
	}
	if lt.Kind == ctype.Ptr && rt.Kind == ctype.Int {
		if err := SetType(rhs, lt); err != nil {
			return nil, err
		}
		return &BinaryOp{Op: op, LHS: lhs, RHS: rhs, Typ: lt}, nil
	}
	return nil, typeErrorf("type error: incompatible lvalue operand types %s and %s", lt, rt)
}

func buildCondBinary(op CondOp, lhs, rhs Node) (Node, error) {
	if !lhs.CType().Equal(rhs.CType()) {
		if !lhs.CType().Equal(ctype.NewFloat()) {
			if err := SetType(lhs, ctype.NewFloat()); err != nil {
				return nil, err
			}
		}
		if !rhs.CType().Equal(ctype.NewFloat()) {
			if err := SetType(rhs, ctype.NewFloat()); err != nil {
				return nil, err
			}
		}
	}
	return &ConditionalOp{Op: op, LHS: lhs, RHS: rhs, Typ: ctype.NewInt()}, nil
}

func buildDereference(e Node) (Node, error) {
	t, err := e.CType().Dereference()
	if err != nil {
		return nil, typeErrorf("type error: %w", err)
	}
	return &Dereference{Expr: e, Typ: t}, nil
}

// buildReference implements `&e` in expression context: `&*x` collapses to
// `x` (identity), otherwise it produces a pointer value.
func buildReference(e Node) Node {
	if d, ok := e.(*Dereference); ok {
		return d.Expr
	}
	return &Reference{Expr: e, Typ: ctype.NewPtr(e.CType())}
}

// buildAddress implements the lvalue climber's address marker: "the
// destination is memory at this address", not a value to read.
func buildAddress(e Node) Node {
	return &Address{Expr: e, Typ: e.CType()}
}

// desugarIndex rewrites `a[i]` into `a + i*4` (Dereference-wrapped in
// expression context, Address-wrapped in lvalue context). The multiply and
// add are built directly rather than through buildLvalBinary: only the
// literal 4 is retyped to the base pointer's type via SetType, and index
// itself is left at its own type untouched — routing it through
// buildLvalBinary's Int/Ptr coercion would call SetType on index, which
// raises a spurious type error for any non-literal subscript (a bare *Var
// or a sub-expression, neither of which SetType can retype).
func desugarIndex(base, index Node, lvalue bool) (Node, error) {
	four := &IntLit{Value: 4, Typ: ctype.NewInt()}
	if err := SetType(four, base.CType()); err != nil {
		return nil, err
	}
	scaled := &BinaryOp{Op: Times, LHS: index, RHS: four, Typ: index.CType()}
	sum := &BinaryOp{Op: Plus, LHS: base, RHS: scaled, Typ: base.CType()}
	if lvalue {
		return buildAddress(sum), nil
	}
	return buildDereference(sum)
}

// Package exprlang parses the small expression language embedded in
// attribute strings of SCAN's SCXML front-end (the cond, expr and delay
// attributes). The JANI front-end builds its trees from JSON itself and
// uses only ResolveVars from this package.
//
// Concrete front-end syntax beyond what affects semantics is an explicit
// non-goal here, and a full ECMAScript-grade parser library would be a
// disproportionate dependency for a handful of arithmetic/boolean
// expressions. A small hand-rolled recursive-descent/precedence-climbing
// parser is the right choice here: it produces exactly the internal/expr
// tree the rest of the module already compiles and type-checks, using
// the same smart constructors (NewAnd, NewOr, NewSum, NewMult, NewNot,
// NewNeg) that flatten associativity.
package exprlang

import (
	"fmt"
	"strconv"
	"unicode"

	"github.com/keb77/scan/internal/expr"
	"github.com/keb77/scan/internal/value"
)

// ParseError reports a lexical or syntactic failure at a byte offset in
// the source string.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("exprlang: %s at offset %d", e.Msg, e.Pos)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokTrue
	tokFalse
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokDot
	tokPlus
	tokMinus
	tokStar
	tokPercent
	tokAnd
	tokOr
	tokImplies
	tokNot
	tokEq
	tokNeq
	tokLt
	tokLe
	tokGt
	tokGe
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src)}
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokLParen, pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, pos: start}, nil
	case c == '[':
		l.pos++
		return token{kind: tokLBracket, pos: start}, nil
	case c == ']':
		l.pos++
		return token{kind: tokRBracket, pos: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, pos: start}, nil
	case c == '.':
		l.pos++
		return token{kind: tokDot, pos: start}, nil
	case c == '+':
		l.pos++
		return token{kind: tokPlus, pos: start}, nil
	case c == '-':
		l.pos++
		if l.peekRune() == '>' {
			l.pos++
			return token{kind: tokImplies, pos: start}, nil
		}
		return token{kind: tokMinus, pos: start}, nil
	case c == '*':
		l.pos++
		return token{kind: tokStar, pos: start}, nil
	case c == '%':
		l.pos++
		return token{kind: tokPercent, pos: start}, nil
	case c == '!':
		l.pos++
		if l.peekRune() == '=' {
			l.pos++
			return token{kind: tokNeq, pos: start}, nil
		}
		return token{kind: tokNot, pos: start}, nil
	case c == '=':
		l.pos++
		if l.peekRune() == '=' {
			l.pos++
			return token{kind: tokEq, pos: start}, nil
		}
		return token{}, &ParseError{Pos: start, Msg: "expected '=='"}
	case c == '<':
		l.pos++
		if l.peekRune() == '=' {
			l.pos++
			return token{kind: tokLe, pos: start}, nil
		}
		return token{kind: tokLt, pos: start}, nil
	case c == '>':
		l.pos++
		if l.peekRune() == '=' {
			l.pos++
			return token{kind: tokGe, pos: start}, nil
		}
		return token{kind: tokGt, pos: start}, nil
	case c == '&' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '&':
		l.pos += 2
		return token{kind: tokAnd, pos: start}, nil
	case c == '|' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '|':
		l.pos += 2
		return token{kind: tokOr, pos: start}, nil
	case unicode.IsDigit(c):
		return l.lexNumber(start), nil
	case unicode.IsLetter(c) || c == '_':
		return l.lexIdent(start), nil
	default:
		return token{}, &ParseError{Pos: start, Msg: fmt.Sprintf("unexpected character %q", c)}
	}
}

func (l *lexer) lexNumber(start int) token {
	isFloat := false
	for l.pos < len(l.src) && (unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		if l.src[l.pos] == '.' {
			if isFloat || l.pos+1 >= len(l.src) || !unicode.IsDigit(l.src[l.pos+1]) {
				break
			}
			isFloat = true
		}
		l.pos++
	}
	text := string(l.src[start:l.pos])
	if isFloat {
		return token{kind: tokFloat, text: text, pos: start}
	}
	return token{kind: tokInt, text: text, pos: start}
}

func (l *lexer) lexIdent(start int) token {
	for l.pos < len(l.src) && (unicode.IsLetter(l.src[l.pos]) || unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	switch text {
	case "true":
		return token{kind: tokTrue, text: text, pos: start}
	case "false":
		return token{kind: tokFalse, text: text, pos: start}
	default:
		return token{kind: tokIdent, text: text, pos: start}
	}
}

// Parse parses src into an expression tree over string-named variables.
func Parse(src string) (expr.Expr[string], error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	e, err := p.parseImplies()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, &ParseError{Pos: p.cur.pos, Msg: fmt.Sprintf("unexpected trailing input %q", p.cur.text)}
	}
	return e, nil
}

type parser struct {
	lex *lexer
	cur token
}

func newParser(src string) (*parser, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) expect(k tokenKind, what string) error {
	if p.cur.kind != k {
		return &ParseError{Pos: p.cur.pos, Msg: fmt.Sprintf("expected %s", what)}
	}
	return p.advance()
}

func (p *parser) parseImplies() (expr.Expr[string], error) {
	lhs, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokImplies {
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		lhs = expr.Implies[string]{Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseOr() (expr.Expr[string], error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = expr.NewOr(lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseAnd() (expr.Expr[string], error) {
	lhs, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		lhs = expr.NewAnd(lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseEquality() (expr.Expr[string], error) {
	lhs, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokEq || p.cur.kind == tokNeq {
		op := p.cur.kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		eq := expr.Equal[string]{Lhs: lhs, Rhs: rhs}
		if op == tokNeq {
			lhs = expr.NewNot[string](eq)
		} else {
			lhs = eq
		}
	}
	return lhs, nil
}

func (p *parser) parseRelational() (expr.Expr[string], error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.kind {
		case tokLt:
			if err := p.advance(); err != nil {
				return nil, err
			}
			rhs, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			lhs = expr.Less[string]{Lhs: lhs, Rhs: rhs}
		case tokLe:
			if err := p.advance(); err != nil {
				return nil, err
			}
			rhs, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			lhs = expr.LessEq[string]{Lhs: lhs, Rhs: rhs}
		case tokGt:
			if err := p.advance(); err != nil {
				return nil, err
			}
			rhs, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			lhs = expr.Greater[string]{Lhs: lhs, Rhs: rhs}
		case tokGe:
			if err := p.advance(); err != nil {
				return nil, err
			}
			rhs, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			lhs = expr.GreaterEq[string]{Lhs: lhs, Rhs: rhs}
		default:
			return lhs, nil
		}
	}
}

func (p *parser) parseAdditive() (expr.Expr[string], error) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokPlus || p.cur.kind == tokMinus {
		op := p.cur.kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		if op == tokMinus {
			rhs = expr.NewNeg[string](rhs)
		}
		lhs = expr.NewSum[string](lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseMultiplicative() (expr.Expr[string], error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokStar || p.cur.kind == tokPercent {
		op := p.cur.kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == tokPercent {
			lhs = expr.Mod[string]{Lhs: lhs, Rhs: rhs}
		} else {
			lhs = expr.NewMult[string](lhs, rhs)
		}
	}
	return lhs, nil
}

func (p *parser) parseUnary() (expr.Expr[string], error) {
	switch p.cur.kind {
	case tokNot:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return expr.NewNot[string](inner), nil
	case tokMinus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return expr.NewNeg[string](inner), nil
	default:
		return p.parsePostfix()
	}
}

func (p *parser) parsePostfix() (expr.Expr[string], error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokDot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != tokInt {
			return nil, &ParseError{Pos: p.cur.pos, Msg: "expected component index after '.'"}
		}
		idx, err := strconv.Atoi(p.cur.text)
		if err != nil {
			return nil, &ParseError{Pos: p.cur.pos, Msg: "invalid component index"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		e = expr.NewComponent[string](e, idx)
	}
	return e, nil
}

func (p *parser) parsePrimary() (expr.Expr[string], error) {
	switch p.cur.kind {
	case tokInt:
		n, err := strconv.Atoi(p.cur.text)
		if err != nil {
			return nil, &ParseError{Pos: p.cur.pos, Msg: "invalid integer literal"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr.Const[string]{Value: value.IntVal(int32(n))}, nil

	case tokFloat:
		f, err := strconv.ParseFloat(p.cur.text, 64)
		if err != nil {
			return nil, &ParseError{Pos: p.cur.pos, Msg: "invalid float literal"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr.Const[string]{Value: value.FloatVal(value.NewFloat(f))}, nil

	case tokTrue:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr.Const[string]{Value: value.BoolVal(true)}, nil

	case tokFalse:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr.Const[string]{Value: value.BoolVal(false)}, nil

	case tokIdent:
		name := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch name {
		case "len":
			arg, err := p.parseParenthesizedArg()
			if err != nil {
				return nil, err
			}
			return expr.Len[string]{List: arg}, nil
		case "truncate":
			arg, err := p.parseParenthesizedArg()
			if err != nil {
				return nil, err
			}
			return expr.Truncate[string]{List: arg}, nil
		case "append":
			args, err := p.parseParenthesizedArgs(2)
			if err != nil {
				return nil, err
			}
			return expr.Append[string]{List: args[0], Elem: args[1]}, nil
		default:
			return expr.Var[string]{Name: name}, nil
		}

	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		first, err := p.parseImplies()
		if err != nil {
			return nil, err
		}
		if p.cur.kind == tokComma {
			elems := []expr.Expr[string]{first}
			for p.cur.kind == tokComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				e, err := p.parseImplies()
				if err != nil {
					return nil, err
				}
				elems = append(elems, e)
			}
			if err := p.expect(tokRParen, "')'"); err != nil {
				return nil, err
			}
			return expr.Tuple[string]{Elems: elems}, nil
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return first, nil

	default:
		return nil, &ParseError{Pos: p.cur.pos, Msg: "expected expression"}
	}
}

func (p *parser) parseParenthesizedArg() (expr.Expr[string], error) {
	args, err := p.parseParenthesizedArgs(1)
	if err != nil {
		return nil, err
	}
	return args[0], nil
}

// ResolveVars walks e and fills in each Var node's Declared type from
// declared, by name. Parse has no variable-type environment available
// (attribute strings are parsed before the owning datamodel/process is
// fully built), so every Var node it produces carries the zero Type;
// the front-end visitor calls ResolveVars once its variable table is
// known, immediately before handing the tree to expr.TypeOf/compile.Compile.
func ResolveVars(e expr.Expr[string], declared map[string]value.Type) (expr.Expr[string], error) {
	switch n := e.(type) {
	case expr.Const[string]:
		return n, nil

	case expr.Var[string]:
		t, ok := declared[n.Name]
		if !ok {
			return nil, fmt.Errorf("exprlang: unknown variable %q", n.Name)
		}
		return expr.Var[string]{Name: n.Name, Declared: t}, nil

	case expr.Tuple[string]:
		elems, err := resolveAll(n.Elems, declared)
		if err != nil {
			return nil, err
		}
		return expr.Tuple[string]{Elems: elems}, nil

	case expr.Component[string]:
		of, err := ResolveVars(n.Of, declared)
		if err != nil {
			return nil, err
		}
		return expr.Component[string]{Index: n.Index, Of: of}, nil

	case expr.And[string]:
		args, err := resolveAll(n.Args, declared)
		if err != nil {
			return nil, err
		}
		return expr.And[string]{Args: args}, nil

	case expr.Or[string]:
		args, err := resolveAll(n.Args, declared)
		if err != nil {
			return nil, err
		}
		return expr.Or[string]{Args: args}, nil

	case expr.Implies[string]:
		return resolvePair(n.Lhs, n.Rhs, declared, func(l, r expr.Expr[string]) expr.Expr[string] {
			return expr.Implies[string]{Lhs: l, Rhs: r}
		})

	case expr.Not[string]:
		arg, err := ResolveVars(n.Arg, declared)
		if err != nil {
			return nil, err
		}
		return expr.Not[string]{Arg: arg}, nil

	case expr.Neg[string]:
		arg, err := ResolveVars(n.Arg, declared)
		if err != nil {
			return nil, err
		}
		return expr.Neg[string]{Arg: arg}, nil

	case expr.Sum[string]:
		args, err := resolveAll(n.Args, declared)
		if err != nil {
			return nil, err
		}
		return expr.Sum[string]{Args: args}, nil

	case expr.Mult[string]:
		args, err := resolveAll(n.Args, declared)
		if err != nil {
			return nil, err
		}
		return expr.Mult[string]{Args: args}, nil

	case expr.Mod[string]:
		return resolvePair(n.Lhs, n.Rhs, declared, func(l, r expr.Expr[string]) expr.Expr[string] {
			return expr.Mod[string]{Lhs: l, Rhs: r}
		})

	case expr.Equal[string]:
		return resolvePair(n.Lhs, n.Rhs, declared, func(l, r expr.Expr[string]) expr.Expr[string] {
			return expr.Equal[string]{Lhs: l, Rhs: r}
		})

	case expr.Greater[string]:
		return resolvePair(n.Lhs, n.Rhs, declared, func(l, r expr.Expr[string]) expr.Expr[string] {
			return expr.Greater[string]{Lhs: l, Rhs: r}
		})

	case expr.GreaterEq[string]:
		return resolvePair(n.Lhs, n.Rhs, declared, func(l, r expr.Expr[string]) expr.Expr[string] {
			return expr.GreaterEq[string]{Lhs: l, Rhs: r}
		})

	case expr.Less[string]:
		return resolvePair(n.Lhs, n.Rhs, declared, func(l, r expr.Expr[string]) expr.Expr[string] {
			return expr.Less[string]{Lhs: l, Rhs: r}
		})

	case expr.LessEq[string]:
		return resolvePair(n.Lhs, n.Rhs, declared, func(l, r expr.Expr[string]) expr.Expr[string] {
			return expr.LessEq[string]{Lhs: l, Rhs: r}
		})

	case expr.Append[string]:
		return resolvePair(n.List, n.Elem, declared, func(l, r expr.Expr[string]) expr.Expr[string] {
			return expr.Append[string]{List: l, Elem: r}
		})

	case expr.Truncate[string]:
		list, err := ResolveVars(n.List, declared)
		if err != nil {
			return nil, err
		}
		return expr.Truncate[string]{List: list}, nil

	case expr.Len[string]:
		list, err := ResolveVars(n.List, declared)
		if err != nil {
			return nil, err
		}
		return expr.Len[string]{List: list}, nil

	default:
		return nil, fmt.Errorf("exprlang: unknown expression node %T", e)
	}
}

func resolveAll(args []expr.Expr[string], declared map[string]value.Type) ([]expr.Expr[string], error) {
	out := make([]expr.Expr[string], len(args))
	for i, a := range args {
		r, err := ResolveVars(a, declared)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func resolvePair(l, r expr.Expr[string], declared map[string]value.Type, build func(l, r expr.Expr[string]) expr.Expr[string]) (expr.Expr[string], error) {
	lr, err := ResolveVars(l, declared)
	if err != nil {
		return nil, err
	}
	rr, err := ResolveVars(r, declared)
	if err != nil {
		return nil, err
	}
	return build(lr, rr), nil
}

func (p *parser) parseParenthesizedArgs(n int) ([]expr.Expr[string], error) {
	if err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var args []expr.Expr[string]
	for {
		e, err := p.parseImplies()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.cur.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	if len(args) != n {
		return nil, &ParseError{Pos: p.cur.pos, Msg: fmt.Sprintf("expected %d argument(s)", n)}
	}
	return args, nil
}


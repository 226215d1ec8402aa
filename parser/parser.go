package parser

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"unicode/utf8"

	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
	"golang.org/x/exp/maps"
)

type ErrorKind int

const (
	LexError ErrorKind = iota
	ExpectedButFound
	InfixWithoutOp
	NotInfix
	RealPat
	NegativeFixity
)

// Error is a syntax error. Msg is fully rendered.
type Error struct {
	Kind ErrorKind
	Loc  lexer.Span
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Msg)
}

type fixity struct {
	prec  int
	right bool
}

type parser struct {
	l      *lexer.Lexer
	tok    lexer.Token
	buf    []lexer.Token
	store  *intern.StoreMut
	fix    map[intern.StrRef]fixity
	indent int
	traceW io.Writer
}

// Option configures a parse.
type Option func(*parser)

// WithTrace writes an indented trace of the productions entered to w.
func WithTrace(w io.Writer) Option {
	return func(p *parser) { p.traceW = w }
}

// WithFixities seeds the parser with operator fixities, typically the ones
// left in effect by previously parsed files.
func WithFixities(f Fixities) Option {
	return func(p *parser) {
		if f.m != nil {
			p.fix = maps.Clone(f.m)
		}
	}
}

// Fixities is a snapshot of the infix operators in effect.
type Fixities struct {
	m map[intern.StrRef]fixity
}

func (p *parser) trace(msg string) func() {
	if p.traceW != nil {
		fmt.Fprintf(p.traceW, "%*s%s\n", p.indent*2, "", msg)
		p.indent++
		return func() {
			p.indent--
		}
	}
	return func() {}
}

func stdFixities(store *intern.StoreMut) map[intern.StrRef]fixity {
	m := make(map[intern.StrRef]fixity)
	add := func(prec int, right bool, names ...string) {
		for _, name := range names {
			m[store.Insert(name)] = fixity{prec: prec, right: right}
		}
	}
	add(7, false, "*", "/", "div", "mod")
	add(6, false, "+", "-", "^")
	add(5, true, "::", "@")
	add(4, false, "=", "<>", "<", ">", "<=", ">=")
	add(3, false, ":=", "o")
	return m
}

func newParser(l *lexer.Lexer, store *intern.StoreMut, opts []Option) *parser {
	p := &parser{l: l, store: store, fix: stdFixities(store)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile parses the SML source file name in fsys.
func ParseFile(fsys fs.FS, name string, store *intern.StoreMut, opts ...Option) ([]ast.TopDec, error) {
	tops, _, err := ParseFileFixities(fsys, name, store, opts...)
	return tops, err
}

// ParseFileFixities is like ParseFile but also returns the fixities in
// effect at the end of the file.
func ParseFileFixities(fsys fs.FS, name string, store *intern.StoreMut, opts ...Option) ([]ast.TopDec, Fixities, error) {
	l, err := lexer.NewLexer(fsys, name)
	if err != nil {
		return nil, Fixities{}, err
	}
	tops, fix, err := newParser(l, store, opts).parseProgram()
	if err != nil {
		return nil, Fixities{}, fmt.Errorf("%s: %w", name, err)
	}
	return tops, fix, nil
}

// Parse parses src. name is used only for error messages.
func Parse(name, src string, store *intern.StoreMut, opts ...Option) ([]ast.TopDec, error) {
	tops, _, err := newParser(lexer.FromReader(strings.NewReader(src)), store, opts).parseProgram()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return tops, nil
}

func (p *parser) parseProgram() (tops []ast.TopDec, fix Fixities, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			tops, err = nil, perr
		}
	}()
	p.next()
	tops = p.parseTopDecs()
	if lerr := p.l.Err(); lerr != nil {
		return nil, Fixities{}, lerr
	}
	return tops, Fixities{m: p.fix}, nil
}

func (p *parser) next() {
	if len(p.buf) > 0 {
		p.tok = p.buf[0]
		p.buf = p.buf[1:]
	} else {
		p.tok = p.l.Next()
	}
	if p.tok.Type == lexer.Illegal {
		panic(&Error{Kind: LexError, Loc: p.tok.Span, Msg: p.tok.Data})
	}
}

func (p *parser) peek() lexer.Token {
	if len(p.buf) == 0 {
		p.buf = append(p.buf, p.l.Next())
	}
	return p.buf[0]
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.Ident, lexer.TyVar, lexer.IntLit, lexer.WordLit, lexer.RealLit, lexer.CharLit, lexer.StringLit:
		return fmt.Sprintf("%s %s", tok.Type, tok.Data)
	}
	return tok.Type.String()
}

func (p *parser) fail(kind ErrorKind, loc lexer.Span, format string, args ...any) {
	panic(&Error{Kind: kind, Loc: loc, Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) expected(what string) {
	p.fail(ExpectedButFound, p.tok.Span, "expected %s, found %s", what, describe(p.tok))
}

func (p *parser) expect(ttyp lexer.TokenType) lexer.Token {
	if p.tok.Type != ttyp {
		p.expected(ttyp.String())
	}
	tok := p.tok
	p.next()
	return tok
}

func (p *parser) got(ttyp lexer.TokenType) bool {
	if p.tok.Type == ttyp {
		p.next()
		return true
	}
	return false
}

func (p *parser) isSymbol(sym string) bool {
	return p.tok.Type == lexer.Ident && p.tok.Data == sym
}

func isLong(tok lexer.Token) bool {
	return tok.Type == lexer.Ident && strings.Contains(tok.Data, ".")
}

// splitLong splits the identifier token into its dot-separated parts, each
// with its own span. Long identifiers never span lines.
func (p *parser) splitLong(tok lexer.Token) ast.LongIdent {
	parts := strings.Split(tok.Data, ".")
	ids := make([]ast.Ident, len(parts))
	start := tok.Span.Start
	for i, part := range parts {
		n := utf8.RuneCountInString(part)
		end := lexer.Pos{Offset: start.Offset + n - 1, Line: start.Line, Column: start.Column + n - 1}
		ids[i] = ast.Ident{Name: p.store.Insert(part), Loc: lexer.Span{Start: start, End: end}}
		start = lexer.Pos{Offset: end.Offset + 2, Line: end.Line, Column: end.Column + 2}
	}
	return ast.LongIdent{Structures: ids[:len(ids)-1], Last: ids[len(ids)-1]}
}

// infixOf reports the fixity of tok if it is an infix identifier.
func (p *parser) infixOf(tok lexer.Token) (fixity, bool) {
	var name intern.StrRef
	switch {
	case tok.Type == lexer.Equals:
		name = intern.Eq
	case tok.Type == lexer.Ident && !isLong(tok):
		name = p.store.Insert(tok.Data)
	default:
		return fixity{}, false
	}
	f, ok := p.fix[name]
	return f, ok
}

func (p *parser) tokIdent() ast.Ident {
	if p.tok.Type == lexer.Equals {
		return ast.Ident{Name: intern.Eq, Loc: p.tok.Span}
	}
	return ast.Ident{Name: p.store.Insert(p.tok.Data), Loc: p.tok.Span}
}

// ident parses a short identifier. Value identifiers may be "=".
func (p *parser) ident(allowEq bool) ast.Ident {
	if p.tok.Type == lexer.Equals && allowEq {
		id := p.tokIdent()
		p.next()
		return id
	}
	if p.tok.Type != lexer.Ident || isLong(p.tok) {
		p.expected("identifier")
	}
	id := p.tokIdent()
	p.next()
	return id
}

// opIdent parses [op] vid, rejecting infix identifiers without op.
func (p *parser) opIdent() ast.Ident {
	if p.got(lexer.Op) {
		return p.ident(true)
	}
	if _, ok := p.infixOf(p.tok); ok {
		p.fail(InfixWithoutOp, p.tok.Span, "infix identifier used without preceding `op`: %s", p.tok.Data)
	}
	return p.ident(false)
}

func (p *parser) longIdent() ast.LongIdent {
	if p.tok.Type == lexer.Equals {
		id := p.tokIdent()
		p.next()
		return ast.Short(id)
	}
	if p.tok.Type != lexer.Ident {
		p.expected("identifier")
	}
	var long ast.LongIdent
	if isLong(p.tok) {
		long = p.splitLong(p.tok)
	} else {
		long = ast.Short(p.tokIdent())
	}
	p.next()
	return long
}

func (p *parser) tyVar() ast.Ident {
	tok := p.expect(lexer.TyVar)
	return ast.Ident{Name: p.store.Insert(tok.Data), Loc: tok.Span}
}

// tyVarSeq parses an optional type variable sequence: 'a or ('a, 'b).
func (p *parser) tyVarSeq() []ast.Ident {
	switch {
	case p.tok.Type == lexer.TyVar:
		return []ast.Ident{p.tyVar()}
	case p.tok.Type == lexer.LeftParen && p.peek().Type == lexer.TyVar:
		p.next()
		vars := []ast.Ident{p.tyVar()}
		for p.got(lexer.Comma) {
			vars = append(vars, p.tyVar())
		}
		p.expect(lexer.RightParen)
		return vars
	}
	return nil
}

func (p *parser) label() (ast.Label, lexer.Span) {
	tok := p.tok
	switch tok.Type {
	case lexer.Ident:
		if isLong(tok) {
			p.expected("label")
		}
		p.next()
		return ast.NameLabel(p.store.Insert(tok.Data)), tok.Span
	case lexer.IntLit:
		n := 0
		for _, ch := range tok.Data {
			if ch < '0' || ch > '9' {
				p.expected("label")
			}
			n = n*10 + int(ch-'0')
		}
		if n == 0 || tok.Data[0] == '0' {
			p.expected("label")
		}
		p.next()
		return ast.NumLabel(n), tok.Span
	}
	p.expected("label")
	panic("unreachable")
}

func (p *parser) scon() ast.SCon {
	kinds := map[lexer.TokenType]ast.SConKind{
		lexer.IntLit:    ast.IntCon,
		lexer.WordLit:   ast.WordCon,
		lexer.RealLit:   ast.RealCon,
		lexer.CharLit:   ast.CharCon,
		lexer.StringLit: ast.StringCon,
	}
	kind, ok := kinds[p.tok.Type]
	if !ok {
		p.expected("constant")
	}
	s := ast.SCon{Kind: kind, Text: p.tok.Data, Loc: p.tok.Span}
	p.next()
	return s
}

func (p *parser) saveFix() map[intern.StrRef]fixity {
	return maps.Clone(p.fix)
}

// restoreFix reinstates saved, keeping the fixity changes made since mid.
func (p *parser) restoreFix(saved, mid map[intern.StrRef]fixity) {
	cur := p.fix
	p.fix = saved
	for name, f := range cur {
		if old, ok := mid[name]; !ok || old != f {
			p.fix[name] = f
		}
	}
	for name := range mid {
		if _, ok := cur[name]; !ok {
			delete(p.fix, name)
		}
	}
}

func (p *parser) parseTopDecs() []ast.TopDec {
	defer p.trace("parseTopDecs")()
	var tops []ast.TopDec
	for {
		for p.got(lexer.Semicolon) {
		}
		switch p.tok.Type {
		case lexer.EOF:
			return tops
		case lexer.Signature:
			tops = append(tops, p.parseSignatureDec())
		case lexer.Functor:
			tops = append(tops, p.parseFunctorDec())
		default:
			if p.beginsStrDec() {
				tops = append(tops, &ast.StrTopDec{StrDec: p.parseStrDecOne()})
				continue
			}
			if !p.tok.BeginsAtExp() && !p.beginsExpKeyword() {
				p.expected("declaration")
			}
			tops = append(tops, p.parseTopExp())
		}
	}
}

// parseTopExp parses a top-level expression e as val it = e.
func (p *parser) parseTopExp() ast.TopDec {
	defer p.trace("parseTopExp")()
	exp := p.parseExp()
	loc := exp.Span()
	it := &ast.ConPat{Name: ast.Short(ast.Ident{Name: intern.It, Loc: loc})}
	dec := &ast.ValDec{Binds: []ast.ValBind{{Pat: it, Exp: exp}}, Loc: loc}
	return &ast.StrTopDec{StrDec: &ast.CoreStrDec{Dec: dec}}
}

var errNoFiles = errors.New("no SML source files")

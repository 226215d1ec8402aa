package lexer

import (
	"fmt"

	"golang.org/x/exp/slices"
)

type TokenType int

const (
	EOF TokenType = iota
	Illegal

	Ident
	TyVar
	IntLit
	WordLit
	RealLit
	CharLit
	StringLit

	LeftParen
	RightParen
	LeftBracket
	RightBracket
	LeftBrace
	RightBrace
	Comma
	Semicolon
	Underscore
	Ellipsis
	Colon
	ColonGt
	Bar
	Equals
	FatArrow
	Arrow
	Hash

	Abstype
	And
	Andalso
	As
	Case
	Datatype
	Do
	Else
	End
	Eqtype
	Exception
	Fn
	Fun
	Functor
	Handle
	If
	In
	Include
	Infix
	Infixr
	Let
	Local
	Nonfix
	Of
	Op
	Open
	Orelse
	Raise
	Rec
	Sharing
	Sig
	Signature
	Struct
	Structure
	Then
	Type
	Val
	Where
	While
	With
	Withtype

	Whitespace
	Comment
)

var tokenNames = [...]string{
	EOF:          "end of file",
	Illegal:      "illegal token",
	Ident:        "identifier",
	TyVar:        "type variable",
	IntLit:       "integer constant",
	WordLit:      "word constant",
	RealLit:      "real constant",
	CharLit:      "character constant",
	StringLit:    "string constant",
	LeftParen:    "(",
	RightParen:   ")",
	LeftBracket:  "[",
	RightBracket: "]",
	LeftBrace:    "{",
	RightBrace:   "}",
	Comma:        ",",
	Semicolon:    ";",
	Underscore:   "_",
	Ellipsis:     "...",
	Colon:        ":",
	ColonGt:      ":>",
	Bar:          "|",
	Equals:       "=",
	FatArrow:     "=>",
	Arrow:        "->",
	Hash:         "#",
	Whitespace:   "whitespace",
	Comment:      "comment",
}

func (t TokenType) String() string {
	for kw, ttyp := range Keywords {
		if ttyp == t {
			return kw
		}
	}
	if int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var Keywords = map[string]TokenType{
	"abstype":   Abstype,
	"and":       And,
	"andalso":   Andalso,
	"as":        As,
	"case":      Case,
	"datatype":  Datatype,
	"do":        Do,
	"else":      Else,
	"end":       End,
	"eqtype":    Eqtype,
	"exception": Exception,
	"fn":        Fn,
	"fun":       Fun,
	"functor":   Functor,
	"handle":    Handle,
	"if":        If,
	"in":        In,
	"include":   Include,
	"infix":     Infix,
	"infixr":    Infixr,
	"let":       Let,
	"local":     Local,
	"nonfix":    Nonfix,
	"of":        Of,
	"op":        Op,
	"open":      Open,
	"orelse":    Orelse,
	"raise":     Raise,
	"rec":       Rec,
	"sharing":   Sharing,
	"sig":       Sig,
	"signature": Signature,
	"struct":    Struct,
	"structure": Structure,
	"then":      Then,
	"type":      Type,
	"val":       Val,
	"where":     Where,
	"while":     While,
	"with":      With,
	"withtype":  Withtype,
}

// ReservedSymbols are symbolic runs that are not identifiers.
var ReservedSymbols = map[string]TokenType{
	":":  Colon,
	":>": ColonGt,
	"|":  Bar,
	"=":  Equals,
	"=>": FatArrow,
	"->": Arrow,
	"#":  Hash,
}

var SingleCharTokens = map[rune]TokenType{
	'(': LeftParen,
	')': RightParen,
	'[': LeftBracket,
	']': RightBracket,
	'{': LeftBrace,
	'}': RightBrace,
	',': Comma,
	';': Semicolon,
}

type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) Min(other Pos) Pos {
	if p.Column == 0 {
		return other
	}
	if other.Column == 0 {
		return p
	}
	if p.Offset < other.Offset {
		return p
	}
	return other
}

func (p Pos) Max(other Pos) Pos {
	if p.Column == 0 {
		return other
	}
	if other.Column == 0 {
		return p
	}
	if p.Offset > other.Offset {
		return p
	}
	return other
}

// Span is an inclusive range of source positions. The zero Span means
// "no location".
type Span struct {
	Start Pos
	End   Pos
}

func (span Span) Add(other Span) Span {
	return Span{span.Start.Min(other.Start), span.End.Max(other.End)}
}

func (span Span) IsZero() bool {
	return span == Span{}
}

func (s Span) String() string {
	if s.Start == s.End {
		return fmt.Sprintf("%d:%d", s.Start.Line, s.Start.Column)
	}
	if s.Start.Line == s.End.Line {
		return fmt.Sprintf("%d:%d-%d", s.Start.Line, s.Start.Column, s.End.Column)
	}
	return fmt.Sprintf("%d:%d-%d:%d", s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

type Token struct {
	LeadingTrivia []Token
	Type          TokenType
	Span          Span
	Data          string
}

func (t Token) String() string {
	if t.Data == "" {
		return fmt.Sprintf("%s:%s", t.Span, t.Type)
	}
	return fmt.Sprintf("%s:%s %q", t.Span, t.Type, t.Data)
}

func (b Token) Eq(a Token) bool {
	return a.Type == b.Type && a.Data == b.Data
}

func (a Token) ExactEq(b Token) bool {
	return a.Type == b.Type && a.Span == b.Span && a.Data == b.Data && slices.EqualFunc(a.LeadingTrivia, b.LeadingTrivia, Token.ExactEq)
}

// IsKeyword reports whether t is a reserved word.
func (t Token) IsKeyword() bool {
	return t.Type >= Abstype && t.Type <= Withtype
}

// BeginsAtExp reports whether t can start an atomic expression. Identifiers
// are included regardless of their fixity.
func (t Token) BeginsAtExp() bool {
	switch t.Type {
	case Ident, IntLit, WordLit, RealLit, CharLit, StringLit, LeftParen, LeftBracket, LeftBrace, Hash, Op, Let:
		return true
	}
	return false
}

// BeginsAtPat reports whether t can start an atomic pattern.
func (t Token) BeginsAtPat() bool {
	switch t.Type {
	case Ident, IntLit, WordLit, RealLit, CharLit, StringLit, LeftParen, LeftBracket, LeftBrace, Op, Underscore:
		return true
	}
	return false
}

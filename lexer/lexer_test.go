package lexer_test

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/kr/pretty"
	. "github.com/smasher164/mlcheck/lexer"
	"golang.org/x/exp/slices"
)

func tok(ttyp TokenType, data string) Token {
	return Token{Type: ttyp, Data: data}
}

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	l := FromReader(strings.NewReader(src))
	var got []Token
	var tk Token
	for tk = l.Next(); tk.Type != EOF; tk = l.Next() {
		got = append(got, tk)
	}
	got = append(got, tk)
	if err := l.Err(); err != nil {
		t.Fatal(err)
	}
	return got
}

func TestLexer(t *testing.T) {
	run := func(name, src string, expected []Token) {
		t.Run(name, func(t *testing.T) {
			got := lexAll(t, src)
			if !slices.EqualFunc(got, expected, Token.Eq) {
				t.Errorf("tokens differ:")
				pretty.Ldiff(t, got, expected)
			}
		})
	}
	run("empty", "", []Token{tok(EOF, "")})
	run("val", "val x = 1", []Token{
		tok(Val, ""), tok(Ident, "x"), tok(Equals, ""), tok(IntLit, "1"), tok(EOF, ""),
	})
	run("long ids", "S.T.x Foo.+ List.map", []Token{
		tok(Ident, "S.T.x"), tok(Ident, "Foo.+"), tok(Ident, "List.map"), tok(EOF, ""),
	})
	run("symbolic", "a :: b @ c := !d <> e", []Token{
		tok(Ident, "a"), tok(Ident, "::"), tok(Ident, "b"), tok(Ident, "@"), tok(Ident, "c"),
		tok(Ident, ":="), tok(Ident, "!"), tok(Ident, "d"), tok(Ident, "<>"), tok(Ident, "e"), tok(EOF, ""),
	})
	run("reserved symbols", ": :> | = => -> #", []Token{
		tok(Colon, ""), tok(ColonGt, ""), tok(Bar, ""), tok(Equals, ""), tok(FatArrow, ""), tok(Arrow, ""), tok(Hash, ""), tok(EOF, ""),
	})
	run("numbers", "0 ~12 0x1F 0w7 0wxff 1.5 2e10 3.0E~2", []Token{
		tok(IntLit, "0"), tok(IntLit, "~12"), tok(IntLit, "0x1F"), tok(WordLit, "0w7"), tok(WordLit, "0wxff"),
		tok(RealLit, "1.5"), tok(RealLit, "2e10"), tok(RealLit, "3.0E~2"), tok(EOF, ""),
	})
	run("tyvars", "'a ''eq 'b1", []Token{
		tok(TyVar, "'a"), tok(TyVar, "''eq"), tok(TyVar, "'b1"), tok(EOF, ""),
	})
	run("strings and chars", `"hi\n" #"a" "\065\u0041\^A"`, []Token{
		tok(StringLit, `"hi\n"`), tok(CharLit, `#"a"`), tok(StringLit, `"\065\u0041\^A"`), tok(EOF, ""),
	})
	run("string gap", "\"ab\\\n   \\cd\"", []Token{
		tok(StringLit, "\"ab\\\n   \\cd\""), tok(EOF, ""),
	})
	run("record punctuation", "{a = 1, ...} (x; _) [#1 p]", []Token{
		tok(LeftBrace, ""), tok(Ident, "a"), tok(Equals, ""), tok(IntLit, "1"), tok(Comma, ""), tok(Ellipsis, ""), tok(RightBrace, ""),
		tok(LeftParen, ""), tok(Ident, "x"), tok(Semicolon, ""), tok(Underscore, ""), tok(RightParen, ""),
		tok(LeftBracket, ""), tok(Hash, ""), tok(IntLit, "1"), tok(Ident, "p"), tok(RightBracket, ""), tok(EOF, ""),
	})
	run("nested comment", "(* a (* b *) c *) x", []Token{tok(Ident, "x"), tok(EOF, "")})
	run("illegal", `(* open "abc #"ab" '`, []Token{tok(Illegal, "unmatched open comment"), tok(EOF, "")})
	run("unclosed string", `"abc`, []Token{tok(Illegal, "unclosed string constant"), tok(EOF, "")})
	run("bad char", `#"ab"`, []Token{tok(Illegal, "invalid character constant"), tok(EOF, "")})
	run("bad escape", `"\q"`, []Token{tok(Illegal, "unknown escape sequence"), tok(EOF, "")})
	run("incomplete tyvar", `' x`, []Token{tok(Illegal, "incomplete type var"), tok(Ident, "x"), tok(EOF, "")})
	run("close comment", `*)`, []Token{tok(Illegal, "unmatched close comment"), tok(EOF, "")})
	run("negative word", `~0w1`, []Token{tok(Illegal, "negative word constant"), tok(EOF, "")})
}

func TestKeywords(t *testing.T) {
	for kw, ttyp := range Keywords {
		got := lexAll(t, kw)
		if len(got) != 2 || got[0].Type != ttyp {
			t.Errorf("%s: got %v", kw, got)
		}
		if !got[0].IsKeyword() {
			t.Errorf("%s: IsKeyword() = false", kw)
		}
		if got[0].Type.String() != kw {
			t.Errorf("%s: String() = %q", kw, got[0].Type.String())
		}
	}
}

func TestPositions(t *testing.T) {
	got := lexAll(t, "val x =\n  (* c *) foo")
	expected := []Token{
		{Type: Val, Span: Span{Start: Pos{0, 1, 1}, End: Pos{2, 1, 3}}},
		{LeadingTrivia: []Token{{Type: Whitespace, Span: Span{Start: Pos{3, 1, 4}, End: Pos{3, 1, 4}}, Data: " "}}, Type: Ident, Span: Span{Start: Pos{4, 1, 5}, End: Pos{4, 1, 5}}, Data: "x"},
		{LeadingTrivia: []Token{{Type: Whitespace, Span: Span{Start: Pos{5, 1, 6}, End: Pos{5, 1, 6}}, Data: " "}}, Type: Equals, Span: Span{Start: Pos{6, 1, 7}, End: Pos{6, 1, 7}}},
		{LeadingTrivia: []Token{
			{Type: Whitespace, Span: Span{Start: Pos{7, 1, 8}, End: Pos{9, 2, 2}}, Data: "\n  "},
			{Type: Comment, Span: Span{Start: Pos{10, 2, 3}, End: Pos{16, 2, 9}}, Data: "(* c *)"},
			{Type: Whitespace, Span: Span{Start: Pos{17, 2, 10}, End: Pos{17, 2, 10}}, Data: " "},
		}, Type: Ident, Span: Span{Start: Pos{18, 2, 11}, End: Pos{20, 2, 13}}, Data: "foo"},
		{Type: EOF, Span: Span{Start: Pos{21, 2, 14}, End: Pos{21, 2, 14}}},
	}
	if !slices.EqualFunc(got, expected, Token.ExactEq) {
		t.Errorf("tokens differ:")
		pretty.Ldiff(t, got, expected)
	}
}

func TestNewLexer(t *testing.T) {
	testfs := fstest.MapFS{
		"a.sml": {Data: []byte("val x = 1")},
		"b.txt": {Data: []byte("val x = 1")},
	}
	if _, err := NewLexer(testfs, "a.sml"); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLexer(testfs, "b.txt"); err == nil {
		t.Fatal("expected an error for a non-SML extension")
	}
	if _, err := NewLexer(testfs, "missing.sml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

package lexer

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/smasher164/xid"
	"golang.org/x/exp/slices"
)

type Lexer struct {
	ch    rune
	pos   int
	i     int // position in buf
	err   error
	buf   []rune
	rdr   *bufio.Reader
	lines []int // offset at which each line starts
}

const eof = -1

// SourceExts lists the file extensions the lexer accepts.
var SourceExts = []string{".sml", ".sig", ".fun"}

func (l *Lexer) lexWS() Token {
	startPos := l.pos
	for unicode.IsSpace(l.ch) {
		l.next()
	}
	return Token{Type: Whitespace, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
}

func isLetter(ch rune) bool {
	return ch != eof && xid.Start(ch)
}

func isAlnum(ch rune) bool {
	return ch == '\'' || ch == '_' || ch != eof && xid.Continue(ch)
}

func isSymbolic(ch rune) bool {
	return strings.ContainsRune("!%&$#+-/:<=>?@\\~`^|*", ch)
}

func isDecimal(ch rune) bool { return '0' <= ch && ch <= '9' }
func isHex(ch rune) bool {
	return '0' <= ch && ch <= '9' || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}

// lexIdentOrKeyword lexes an alphanumeric identifier, or a long identifier
// like Foo.Bar.baz or Foo.+ when the parts are joined by dots without spaces.
func (l *Lexer) lexIdentOrKeyword() Token {
	startPos := l.pos
	for {
		partStart := l.pos
		l.next()
		for isAlnum(l.ch) {
			l.next()
		}
		part := string(l.buf[partStart-startPos : l.i])
		if ttyp, ok := Keywords[part]; ok {
			if partStart == startPos {
				return Token{Type: ttyp, Span: l.spanOf(startPos, l.pos-1)}
			}
			return Token{Type: Illegal, Span: l.spanOf(startPos, l.pos-1), Data: fmt.Sprintf("reserved word %q in long identifier", part)}
		}
		if l.ch != '.' {
			break
		}
		after := l.peek()
		switch {
		case isLetter(after):
			l.next()
			continue
		case isSymbolic(after):
			l.next()
			for isSymbolic(l.ch) {
				l.next()
			}
		}
		break
	}
	return Token{Type: Ident, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
}

func (l *Lexer) lexSymbolic() Token {
	startPos := l.pos
	if l.ch == '~' && isDecimal(l.peek()) {
		l.next()
		return l.lexNumber(startPos)
	}
	if l.ch == '#' && l.peek() == '"' {
		l.next()
		return l.lexChar(startPos)
	}
	if l.ch == '*' && l.peek() == ')' {
		l.next()
		l.next()
		return Token{Type: Illegal, Span: l.spanOf(startPos, l.pos-1), Data: "unmatched close comment"}
	}
	for isSymbolic(l.ch) {
		l.next()
	}
	sym := l.bufString()
	if ttyp, ok := ReservedSymbols[sym]; ok {
		return Token{Type: ttyp, Span: l.spanOf(startPos, l.pos-1)}
	}
	return Token{Type: Ident, Span: l.spanOf(startPos, l.pos-1), Data: sym}
}

func (l *Lexer) lexDigits(valid func(rune) bool) (digitCount int) {
	for valid(l.ch) {
		digitCount++
		l.next()
	}
	return digitCount
}

// lexNumber lexes integer, word and real constants. A leading ~ has already
// been consumed when negative.
func (l *Lexer) lexNumber(startPos int) Token {
	negative := startPos != l.pos
	illegal := func(msg string) Token {
		return Token{Type: Illegal, Span: l.spanOf(startPos, l.pos-1), Data: msg}
	}
	if l.ch == '0' {
		switch l.peek() {
		case 'x':
			l.next()
			l.next()
			if l.lexDigits(isHex) == 0 {
				return illegal("incomplete numeric constant")
			}
			return Token{Type: IntLit, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
		case 'w':
			l.next()
			l.next()
			if negative {
				l.lexDigits(isHex)
				return illegal("negative word constant")
			}
			count := 0
			if l.ch == 'x' {
				l.next()
				count = l.lexDigits(isHex)
			} else {
				count = l.lexDigits(isDecimal)
			}
			if count == 0 {
				return illegal("incomplete numeric constant")
			}
			return Token{Type: WordLit, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
		}
	}
	l.lexDigits(isDecimal)
	ttyp := IntLit
	if l.ch == '.' && isDecimal(l.peek()) {
		ttyp = RealLit
		l.next()
		l.lexDigits(isDecimal)
	}
	if l.ch == 'e' || l.ch == 'E' {
		after := l.peek()
		if isDecimal(after) || after == '~' {
			ttyp = RealLit
			l.next()
			if l.ch == '~' {
				l.next()
			}
			if l.lexDigits(isDecimal) == 0 {
				return illegal("incomplete numeric constant")
			}
		}
	}
	return Token{Type: ttyp, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
}

// lexEscape consumes one escape sequence after a backslash and returns an
// error message, or "" if the escape is valid.
func (l *Lexer) lexEscape() string {
	switch {
	case strings.ContainsRune(`abtnvfr"\`, l.ch):
		l.next()
		return ""
	case l.ch == '^':
		l.next()
		if l.ch < '@' || l.ch > '_' {
			return "invalid control escape"
		}
		l.next()
		return ""
	case isDecimal(l.ch):
		for n := 0; n < 3; n++ {
			if !isDecimal(l.ch) {
				return "decimal escape requires three digits"
			}
			l.next()
		}
		return ""
	case l.ch == 'u':
		l.next()
		for n := 0; n < 4; n++ {
			if !isHex(l.ch) {
				return "unicode escape requires four hex digits"
			}
			l.next()
		}
		return ""
	case unicode.IsSpace(l.ch):
		for unicode.IsSpace(l.ch) {
			l.next()
		}
		if l.ch != '\\' {
			return "unterminated string gap"
		}
		l.next()
		return ""
	case l.ch == eof:
		return "escape sequence not terminated"
	}
	l.next()
	return "unknown escape sequence"
}

// lexStringBody consumes characters up to and including the closing quote.
// It returns the number of characters in the string and an error message.
func (l *Lexer) lexStringBody() (count int, msg string) {
	l.next() // opening quote
	for {
		switch l.ch {
		case eof, '\n':
			return count, "unclosed string constant"
		case '"':
			l.next()
			return count, msg
		case '\\':
			l.next()
			gap := unicode.IsSpace(l.ch)
			if m := l.lexEscape(); m != "" && msg == "" {
				msg = m
			}
			if !gap {
				count++
			}
		default:
			count++
			l.next()
		}
	}
}

func (l *Lexer) lexString() Token {
	startPos := l.pos
	if _, msg := l.lexStringBody(); msg != "" {
		return Token{Type: Illegal, Span: l.spanOf(startPos, l.pos-1), Data: msg}
	}
	return Token{Type: StringLit, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
}

func (l *Lexer) lexChar(startPos int) Token {
	count, msg := l.lexStringBody()
	if msg == "" && count != 1 {
		msg = "invalid character constant"
	}
	if msg != "" {
		return Token{Type: Illegal, Span: l.spanOf(startPos, l.pos-1), Data: msg}
	}
	return Token{Type: CharLit, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
}

func (l *Lexer) lexTyVar() Token {
	startPos := l.pos
	for l.ch == '\'' {
		l.next()
	}
	if !isAlnum(l.ch) {
		return Token{Type: Illegal, Span: l.spanOf(startPos, l.pos-1), Data: "incomplete type var"}
	}
	for isAlnum(l.ch) {
		l.next()
	}
	return Token{Type: TyVar, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
}

func (l *Lexer) lexComment() Token {
	startPos := l.pos
	depth := 0
	for {
		switch {
		case l.ch == eof:
			return Token{Type: Illegal, Span: l.spanOf(startPos, l.pos-1), Data: "unmatched open comment"}
		case l.ch == '(' && l.peek() == '*':
			l.next()
			l.next()
			depth++
		case l.ch == '*' && l.peek() == ')':
			l.next()
			l.next()
			depth--
			if depth == 0 {
				return Token{Type: Comment, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
			}
		default:
			l.next()
		}
	}
}

func (l *Lexer) next() {
	if l.ch == eof {
		return
	}
	l.i++
	l.pos++
	if l.i < len(l.buf) {
		l.ch = l.buf[l.i]
	} else {
		r, _, err := l.rdr.ReadRune()
		if err != nil {
			l.ch = eof
			if err != io.EOF {
				l.err = err
			}
		} else {
			l.ch = r
		}
		l.buf = append(l.buf, l.ch)
		if l.ch == '\n' {
			l.lines = append(l.lines, l.pos+1)
		}
	}
}

func (l *Lexer) backup() {
	if l.i > 0 {
		l.i--
		l.pos--
		l.ch = l.buf[l.i]
	}
}

func (l *Lexer) peek() rune {
	if l.ch == eof {
		return eof
	}
	l.next()
	ch := l.ch
	l.backup()
	return ch
}

func (l *Lexer) bufString() string {
	return string(l.buf[:l.i])
}

func (l *Lexer) lineIndex(offset int) int {
	return sort.Search(len(l.lines), func(i int) bool { return l.lines[i] > offset }) - 1
}

func (l *Lexer) posOf(offset int) Pos {
	line := l.lineIndex(offset)
	return Pos{Offset: offset, Line: line + 1, Column: offset - l.lines[line] + 1}
}

func (l *Lexer) spanOf(off1, off2 int) Span {
	if off2 < off1 {
		off2 = off1
	}
	start := l.posOf(off1)
	var end Pos
	if off1 == off2 {
		end = start
	} else {
		end = l.posOf(off2)
	}
	return Span{Start: start, End: end}
}

func (l *Lexer) resetPos() {
	l.buf = l.buf[l.i:]
	l.i = 0
	l.ch = l.buf[l.i]
}

func (l *Lexer) NextToken() Token {
	defer l.resetPos()
	startPos := l.pos
	switch {
	case l.ch == eof:
		return Token{Type: EOF, Span: l.spanOf(startPos, startPos)}
	case unicode.IsSpace(l.ch):
		return l.lexWS()
	case l.ch == '(' && l.peek() == '*':
		return l.lexComment()
	case isLetter(l.ch):
		return l.lexIdentOrKeyword()
	case isDecimal(l.ch):
		return l.lexNumber(startPos)
	case l.ch == '\'':
		return l.lexTyVar()
	case l.ch == '"':
		return l.lexString()
	case l.ch == '_':
		l.next()
		return Token{Type: Underscore, Span: l.spanOf(startPos, startPos)}
	case l.ch == '.':
		if l.peek() == '.' {
			l.next()
			if l.peek() == '.' {
				l.next()
				l.next()
				return Token{Type: Ellipsis, Span: l.spanOf(startPos, l.pos-1)}
			}
		}
		l.next()
		return Token{Type: Illegal, Span: l.spanOf(startPos, l.pos-1), Data: "unexpected '.'"}
	case isSymbolic(l.ch):
		return l.lexSymbolic()
	}
	if ttyp, ok := SingleCharTokens[l.ch]; ok {
		l.next()
		return Token{Type: ttyp, Span: l.spanOf(startPos, startPos)}
	}
	ch := l.ch
	l.next()
	return Token{Type: Illegal, Span: l.spanOf(startPos, startPos), Data: fmt.Sprintf("unexpected character %q", ch)}
}

// Next returns the next significant token. Whitespace and comments are
// attached to it as leading trivia.
func (l *Lexer) Next() Token {
	var t Token
	var trivia []Token
	for t = l.NextToken(); t.Type == Whitespace || t.Type == Comment; t = l.NextToken() {
		trivia = append(trivia, t)
	}
	t.LeadingTrivia = trivia
	return t
}

// Err returns the first read error the lexer encountered, if any.
func (l *Lexer) Err() error {
	return l.err
}

// NewLexer opens filename in fsys. Only SML source extensions are accepted.
func NewLexer(fsys fs.FS, filename string) (*Lexer, error) {
	if !slices.Contains(SourceExts, filepath.Ext(filename)) {
		return nil, fmt.Errorf("invalid file extension %q, expected one of %v", filepath.Ext(filename), SourceExts)
	}
	f, err := fsys.Open(filename)
	if err != nil {
		return nil, err
	}
	return FromReader(f), nil
}

// FromReader lexes everything readable from r.
func FromReader(r io.Reader) *Lexer {
	l := &Lexer{
		rdr:   bufio.NewReader(r),
		i:     -1,
		pos:   -1,
		lines: []int{0},
	}
	l.next()
	return l
}

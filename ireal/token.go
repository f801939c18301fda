package ireal

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TokenKind represents the type of a lexer token.
type TokenKind uint8

const (
	TokenChord       TokenKind = iota + 1 // C^7, Bb-7/F
	TokenAlternate                        // (A7b9)
	TokenBarline                          // | [ ] { } Z
	TokenSection                          // *A
	TokenEnding                           // N1
	TokenTime                             // T44
	TokenPlaceholder                      // p x r n
	TokenMark                             // S Q f U Y s l
	TokenComment                          // <text>
	TokenSpace                            // one empty grid cell
	TokenComma                            // ,
	TokenEscape                           // Kcl LZ XyQ
	TokenRaw                              // anything else
)

// String returns the token kind name.
func (k TokenKind) String() string {
	switch k {
	case TokenChord:
		return "CHORD"
	case TokenAlternate:
		return "ALT"
	case TokenBarline:
		return "BAR"
	case TokenSection:
		return "SECTION"
	case TokenEnding:
		return "ENDING"
	case TokenTime:
		return "TIME"
	case TokenPlaceholder:
		return "PLACEHOLDER"
	case TokenMark:
		return "MARK"
	case TokenComment:
		return "COMMENT"
	case TokenSpace:
		return "SPACE"
	case TokenComma:
		return "COMMA"
	case TokenEscape:
		return "ESCAPE"
	case TokenRaw:
		return "RAW"
	}
	return fmt.Sprintf("TokenKind(%d)", k)
}

// Token is a lexical token of a progression.
//
// Raw is the exact source text. Value is the token's payload: the
// expanded literal for an escape, the expanded body for a comment, the
// chord text for an alternate and Raw for everything else. Every escape
// expands to text of its own length, so Offset is valid in both the
// source and the expanded progression.
type Token struct {
	Kind   TokenKind
	Value  string
	Raw    string
	Offset int
}

func (t Token) String() string {
	if t.Value != t.Raw {
		return fmt.Sprintf("%s(%q=%q)@%d", t.Kind, t.Raw, t.Value, t.Offset)
	}
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Raw, t.Offset)
}

// escapeMacro is one of the protocol's substitution macros.
type escapeMacro struct {
	code string
	text string
}

// escapeMacros is in canonical re-escaping order.
var escapeMacros = [...]escapeMacro{
	{code: "XyQ", text: "   "},
	{code: "Kcl", text: "| x"},
	{code: "LZ", text: " |"},
}

func isEscapeLead(ch byte) bool { return ch == 'K' || ch == 'L' || ch == 'X' }

func matchEscape(s string) (escapeMacro, bool) {
	if s == "" || !isEscapeLead(s[0]) {
		return escapeMacro{}, false
	}
	for _, m := range escapeMacros {
		if strings.HasPrefix(s, m.code) {
			return m, true
		}
	}
	return escapeMacro{}, false
}

// EscapeSpan records that the macro Code was expanded at offset At.
type EscapeSpan struct {
	At   int
	Code string
}

// Lexer tokenizes progression text. Escape macros are recognised with a
// one-token lookahead: a lead character (K, L or X) either completes a
// macro or is raw text, in a chord position or inside a comment alike.
type Lexer struct {
	input   string
	base    int  // offset of input within the progression
	literal bool // escape macros are not recognised
	pos     int
	start   int
	tokens  []Token
	escapes []EscapeSpan
	err     error
}

// NewLexer creates a new lexer for a progression.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize returns every token of the input. Unknown characters become
// raw-text tokens; the only failures are an unterminated comment, a
// control byte and invalid UTF-8, reported as a *SyntaxError.
func (l *Lexer) Tokenize() ([]Token, error) {
	for l.pos < len(l.input) && l.err == nil {
		tok, ok := l.nextToken()
		if ok {
			l.tokens = append(l.tokens, tok)
		}
	}
	if l.err != nil {
		return l.tokens, l.err
	}
	return l.tokens, nil
}

// Escapes returns the escape spans seen so far, in order.
func (l *Lexer) Escapes() []EscapeSpan {
	return l.escapes
}

func (l *Lexer) nextToken() (Token, bool) {
	l.start = l.pos
	ch := l.input[l.pos]

	if !l.literal && isEscapeLead(ch) {
		return l.scanEscape(), true
	}

	switch {
	case ch < ' ' || ch == 0x7f:
		l.fail(l.pos, fmt.Sprintf("control character %#02x", ch))
		return Token{}, false
	case ch >= utf8.RuneSelf:
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if r == utf8.RuneError && size <= 1 {
			l.fail(l.pos, "invalid UTF-8")
			return Token{}, false
		}
		l.pos += size
		return l.makeToken(TokenRaw), true
	case ch == '<':
		return l.scanComment()
	case ch == '(':
		return l.scanAlternate(), true
	case ch == ' ':
		l.pos++
		return l.makeToken(TokenSpace), true
	case ch == ',':
		l.pos++
		return l.makeToken(TokenComma), true
	case strings.IndexByte("|[]{}Z", ch) >= 0:
		l.pos++
		return l.makeToken(TokenBarline), true
	case ch == '*':
		if next := l.peek(1); next > ' ' && next < 0x7f {
			l.pos += 2
			return l.makeToken(TokenSection), true
		}
	case ch == 'N':
		if isDigit(l.peek(1)) {
			l.pos += 2
			return l.makeToken(TokenEnding), true
		}
	case ch == 'T':
		if strings.HasPrefix(l.input[l.pos:], "T128") {
			l.pos += 4
			return l.makeToken(TokenTime), true
		}
		if isDigit(l.peek(1)) && isDigit(l.peek(2)) {
			l.pos += 3
			return l.makeToken(TokenTime), true
		}
	case ch == 'p' || ch == 'x' || ch == 'r' || ch == 'n':
		l.pos++
		return l.makeToken(TokenPlaceholder), true
	case isRoot(ch):
		_, end, _ := scanChord(l.input, l.pos)
		l.pos = end
		return l.makeToken(TokenChord), true
	}
	if _, ok := markKind(ch); ok {
		l.pos++
		return l.makeToken(TokenMark), true
	}
	l.pos++
	return l.makeToken(TokenRaw), true
}

// scanEscape reads a macro at a lead character, or the lead alone as
// raw text.
func (l *Lexer) scanEscape() Token {
	if m, ok := matchEscape(l.input[l.pos:]); ok {
		l.escapes = append(l.escapes, EscapeSpan{At: l.base + l.pos, Code: m.code})
		l.pos += len(m.code)
		tok := l.makeToken(TokenEscape)
		tok.Value = m.text
		return tok
	}
	l.pos++
	return l.makeToken(TokenRaw)
}

func (l *Lexer) scanAlternate() Token {
	c, end, ok := scanChord(l.input, l.pos+1)
	if !ok || end >= len(l.input) || l.input[end] != ')' {
		l.pos++
		return l.makeToken(TokenRaw)
	}
	l.pos = end + 1
	tok := l.makeToken(TokenAlternate)
	tok.Value = c.String()
	return tok
}

// scanComment reads <...>. Escape macros inside the body are expanded.
func (l *Lexer) scanComment() (Token, bool) {
	var body strings.Builder
	i := l.pos + 1
	for i < len(l.input) {
		ch := l.input[i]
		switch {
		case ch == '>':
			l.pos = i + 1
			tok := l.makeToken(TokenComment)
			tok.Value = body.String()
			return tok, true
		case ch < ' ' || ch == 0x7f:
			l.fail(i, fmt.Sprintf("control character %#02x in comment", ch))
			return Token{}, false
		case ch >= utf8.RuneSelf:
			r, size := utf8.DecodeRuneInString(l.input[i:])
			if r == utf8.RuneError && size <= 1 {
				l.fail(i, "invalid UTF-8 in comment")
				return Token{}, false
			}
			body.WriteString(l.input[i : i+size])
			i += size
			continue
		}
		if !l.literal && isEscapeLead(ch) {
			if m, ok := matchEscape(l.input[i:]); ok {
				l.escapes = append(l.escapes, EscapeSpan{At: l.base + i, Code: m.code})
				body.WriteString(m.text)
				i += len(m.code)
				continue
			}
		}
		body.WriteByte(ch)
		i++
	}
	l.fail(l.pos, "unterminated comment")
	return Token{}, false
}

func (l *Lexer) peek(n int) byte {
	if l.pos+n < len(l.input) {
		return l.input[l.pos+n]
	}
	return 0
}

func (l *Lexer) makeToken(kind TokenKind) Token {
	raw := l.input[l.start:l.pos]
	return Token{Kind: kind, Value: raw, Raw: raw, Offset: l.base + l.start}
}

func (l *Lexer) fail(off int, reason string) {
	l.err = &SyntaxError{Offset: l.base + off, Reason: reason}
	l.pos = len(l.input)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// isRawText reports whether s reads back as a single raw-text token.
func isRawText(s string) bool {
	if s == "" {
		return false
	}
	toks, err := NewLexer(s).Tokenize()
	return err == nil && len(toks) == 1 && toks[0].Kind == TokenRaw
}

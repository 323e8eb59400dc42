package expression

import (
	"strings"
	"unicode"
)

// wordOperators fold to operator tokens; matching is case-insensitive.
var wordOperators = map[string]string{
	"and":     "and",
	"or":      "or",
	"in":      "in",
	"not":     "!",
	"between": "between",
}

// reservedWords lex as KEYWORD tokens. The grammar does not use them yet, so
// they cannot appear as field names.
var reservedWords = map[string]bool{
	"is":   true,
	"like": true,
}

// lexer holds the mutable state of one scanning pass over src.
type lexer struct {
	src []rune
	pos int // index of the next rune to consume
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	return r
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || r == '.' || isDigit(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// scanWord collects an identifier and folds keywords and booleans.
func (l *lexer) scanWord() Token {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.peek()) {
		l.advance()
	}
	text := string(l.src[start:l.pos])

	if text == "true" || text == "false" {
		return Token{Kind: BOOLEAN, Text: text, Pos: start}
	}
	lower := strings.ToLower(text)
	if op, ok := wordOperators[lower]; ok {
		return Token{Kind: OPERATOR, Text: op, Pos: start}
	}
	if reservedWords[lower] {
		return Token{Kind: KEYWORD, Text: lower, Pos: start}
	}
	return Token{Kind: IDENTIFIER, Text: text, Pos: start}
}

// scanNumber collects digits with at most one '.'. A trailing '.' as in "5."
// belongs to the number unless another '.' or an identifier follows it.
func (l *lexer) scanNumber() Token {
	start := l.pos
	seenDot := false
	for l.pos < len(l.src) {
		r := l.peek()
		if isDigit(r) {
			l.advance()
			continue
		}
		if r == '.' && !seenDot {
			next := l.peek2()
			if isDigit(next) || (next != '.' && !isIdentStart(next)) {
				seenDot = true
				l.advance()
				continue
			}
		}
		break
	}
	return Token{Kind: NUMBER, Text: string(l.src[start:l.pos]), Pos: start}
}

// scanString copies everything up to the matching quote verbatim.
func (l *lexer) scanString() (Token, error) {
	start := l.pos
	quote := l.advance()
	var sb strings.Builder
	for l.pos < len(l.src) {
		r := l.advance()
		if r == quote {
			return Token{Kind: STRING, Text: sb.String(), Pos: start}, nil
		}
		sb.WriteRune(r)
	}
	return Token{}, syntaxErrorf(start, string(quote), "unterminated string starting with %c", quote)
}

func (l *lexer) nextToken() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Pos: l.pos}, nil
	}

	ch := l.peek()
	start := l.pos

	switch {
	case isIdentStart(ch):
		return l.scanWord(), nil
	case isDigit(ch):
		return l.scanNumber(), nil
	case ch == '"' || ch == '\'':
		return l.scanString()
	}

	// two-character operators before their one-character prefixes
	switch two := string([]rune{ch, l.peek2()}); two {
	case "==", "!=", ">=", "<=", "&&", "||":
		l.advance()
		l.advance()
		return Token{Kind: OPERATOR, Text: two, Pos: start}, nil
	}

	l.advance()
	switch ch {
	case '(':
		return Token{Kind: LPAREN, Text: "(", Pos: start}, nil
	case ')':
		return Token{Kind: RPAREN, Text: ")", Pos: start}, nil
	case '[':
		return Token{Kind: LBRACKET, Text: "[", Pos: start}, nil
	case ']':
		return Token{Kind: RBRACKET, Text: "]", Pos: start}, nil
	case ',':
		return Token{Kind: COMMA, Text: ",", Pos: start}, nil
	case '+', '-', '*', '/', '%', '!', '>', '<':
		return Token{Kind: OPERATOR, Text: string(ch), Pos: start}, nil
	}
	return Token{}, syntaxErrorf(start, string(ch), "unexpected character %q", ch)
}

// Tokenize splits source into tokens terminated by an EOF token.
// It fails on the first unrecognized character or unterminated string.
func Tokenize(source string) ([]Token, error) {
	l := &lexer{src: []rune(source)}
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens, nil
		}
	}
}

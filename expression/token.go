package expression

import "fmt"

// TokenKind identifies the category of a lexed token.
type TokenKind int

const (
	EOF TokenKind = iota // end of input

	IDENTIFIER // field path or function name, e.g. patient.age, $.subtotal
	NUMBER     // 42, 3.5
	STRING     // "text" or 'text'
	BOOLEAN    // true, false
	OPERATOR   // + - * / % ! == != > >= < <= && || and or in between
	KEYWORD    // reserved word without grammar yet

	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	COMMA    // ,
)

var kindNames = map[TokenKind]string{
	EOF:        "EOF",
	IDENTIFIER: "IDENTIFIER",
	NUMBER:     "NUMBER",
	STRING:     "STRING",
	BOOLEAN:    "BOOLEAN",
	OPERATOR:   "OPERATOR",
	KEYWORD:    "KEYWORD",
	LPAREN:     "(",
	RPAREN:     ")",
	LBRACKET:   "[",
	RBRACKET:   "]",
	COMMA:      ",",
}

func (k TokenKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a single lexeme. Pos is the 0-based rune offset of its first character.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "end of expression"
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// is reports whether t is the operator token with the given text.
func (t Token) is(op string) bool {
	return t.Kind == OPERATOR && t.Text == op
}

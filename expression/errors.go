package expression

import (
	"errors"
	"fmt"
)

// ErrSyntax is wrapped by every error produced while tokenizing or parsing.
var ErrSyntax = errors.New("syntax error")

// SyntaxError describes malformed expression text.
type SyntaxError struct {
	Msg   string // human-readable description
	Pos   int    // 0-based offset of the offending character or token, -1 if unknown
	Token string // offending text, if any
}

func (e *SyntaxError) Error() string {
	if e == nil {
		return ""
	}
	if e.Pos < 0 {
		return fmt.Sprintf("%s: %s", ErrSyntax.Error(), e.Msg)
	}
	return fmt.Sprintf("%s at position %d: %s", ErrSyntax.Error(), e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

func syntaxErrorf(pos int, token string, format string, args ...any) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Pos: pos, Token: token}
}

package expression

import (
	"strconv"
	"strings"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
)

// Parser consumes the token slice produced by Tokenize and builds a logic tree.
//
// Grammar, loosest to tightest:
//
//	or         = and (("or" | "||") and)*
//	and        = equality (("and" | "&&") equality)*
//	equality   = comparison (("==" | "!=") comparison)*
//	comparison = term ((">" | ">=" | "<" | "<=" | "in") term
//	                  | "between" term "and" term)?
//	term       = factor (("+" | "-") factor)*
//	factor     = unary (("*" | "/" | "%") unary)*
//	unary      = ("!" | "not") unary | "-" unary | primary
//	primary    = BOOLEAN | NUMBER | STRING
//	           | IDENTIFIER "(" (or ("," or)*)? ")"
//	           | IDENTIFIER
//	           | "(" or ")"
//	           | "[" (primary ("," primary)*)? "]"
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser returns a parser over tokens, which should end with an EOF token.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		end := 0
		if n := len(p.tokens); n > 0 {
			end = p.tokens[n-1].Pos
		}
		return Token{Kind: EOF, Pos: end}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(kind TokenKind) (Token, error) {
	tok := p.advance()
	if tok.Kind != kind {
		return tok, syntaxErrorf(tok.Pos, tok.Text, "expected %s, got %s", kind, tok)
	}
	return tok, nil
}

// Remaining returns the tokens not consumed by the last Parse call, excluding EOF.
func (p *Parser) Remaining() []Token {
	var rest []Token
	for _, tok := range p.tokens[min(p.pos, len(p.tokens)):] {
		if tok.Kind != EOF {
			rest = append(rest, tok)
		}
	}
	return rest
}

// Parse parses one expression. Tokens after a complete expression are left
// unconsumed; see Remaining.
func (p *Parser) Parse() (ir.Node, error) {
	return p.parseOr()
}

// Parse builds a logic tree from tokens.
func Parse(tokens []Token) (ir.Node, error) {
	return NewParser(tokens).Parse()
}

// ParseExpression parses expression text. Empty or blank text is the literal
// true, the "matches anything" condition. Trailing tokens after a complete
// expression are ignored; use ParseStrict to reject them.
func ParseExpression(source string) (ir.Node, error) {
	if strings.TrimSpace(source) == "" {
		return ir.True(), nil
	}
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

// ParseStrict is ParseExpression that also requires the whole input to be consumed.
func ParseStrict(source string) (ir.Node, error) {
	if strings.TrimSpace(source) == "" {
		return ir.True(), nil
	}
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	n, err := p.Parse()
	if err != nil {
		return nil, err
	}
	if rest := p.Remaining(); len(rest) > 0 {
		return nil, syntaxErrorf(rest[0].Pos, rest[0].Text, "unexpected %s after end of expression", rest[0])
	}
	return n, nil
}

func (p *Parser) parseOr() (ir.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []ir.Node{left}
	for p.peek().is("or") || p.peek().is("||") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, right)
	}
	if len(terms) == 1 {
		return left, nil
	}
	return ir.Op("or", terms...), nil
}

func (p *Parser) parseAnd() (ir.Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	terms := []ir.Node{left}
	for p.peek().is("and") || p.peek().is("&&") {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		terms = append(terms, right)
	}
	if len(terms) == 1 {
		return left, nil
	}
	return ir.Op("and", terms...), nil
}

func (p *Parser) parseEquality() (ir.Node, error) {
	expr, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.peek().is("==") || p.peek().is("!=") {
		op := p.advance().Text
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		expr = ir.Op(op, expr, right)
	}
	return expr, nil
}

func (p *Parser) parseComparison() (ir.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	tok := p.peek()
	switch {
	case tok.is(">"), tok.is(">="), tok.is("<"), tok.is("<="), tok.is("in"):
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return ir.Op(tok.Text, left, right), nil

	case tok.is("between"):
		p.advance()
		low, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if sep := p.advance(); !sep.is("and") {
			return nil, syntaxErrorf(sep.Pos, sep.Text, "expected \"and\" in between expression, got %s", sep)
		}
		high, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return ir.Op("between", left, low, high), nil
	}
	return left, nil
}

func (p *Parser) parseTerm() (ir.Node, error) {
	expr, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peek().is("+") || p.peek().is("-") {
		op := p.advance().Text
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		expr = ir.Op(op, expr, right)
	}
	return expr, nil
}

func (p *Parser) parseFactor() (ir.Node, error) {
	expr, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().is("*") || p.peek().is("/") || p.peek().is("%") {
		op := p.advance().Text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		expr = ir.Op(op, expr, right)
	}
	return expr, nil
}

func (p *Parser) parseUnary() (ir.Node, error) {
	switch tok := p.peek(); {
	case tok.is("!"):
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ir.Unary("!", operand), nil

	case tok.is("-"):
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// negation is written as 0 - x
		return ir.Op("-", ir.Number(0), operand), nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ir.Node, error) {
	tok := p.advance()
	switch tok.Kind {
	case BOOLEAN:
		return ir.Bool(tok.Text == "true"), nil

	case NUMBER:
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, syntaxErrorf(tok.Pos, tok.Text, "invalid number %q", tok.Text)
		}
		return ir.Number(f), nil

	case STRING:
		return ir.String(tok.Text), nil

	case IDENTIFIER:
		if p.peek().Kind == LPAREN {
			p.advance()
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			if ref, ok := varCall(tok.Text, args); ok {
				return ref, nil
			}
			return ir.Op(tok.Text, args...), nil
		}
		return ir.Var(tok.Text), nil

	case LPAREN:
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil

	case LBRACKET:
		return p.parseArray()

	case EOF:
		return nil, syntaxErrorf(tok.Pos, "", "unexpected end of expression")
	}
	return nil, syntaxErrorf(tok.Pos, tok.Text, "unexpected %s", tok)
}

// parseArguments parses a call's argument list; the "(" is already consumed.
func (p *Parser) parseArguments() ([]ir.Node, error) {
	args := []ir.Node{}
	if p.peek().Kind == RPAREN {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().Kind != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

// parseArray parses an array literal; the "[" is already consumed. Elements are
// primaries only, not full expressions.
func (p *Parser) parseArray() (ir.Node, error) {
	items := []ir.Node{}
	if p.peek().Kind == RBRACKET {
		p.advance()
		return ir.Array(items...), nil
	}
	for {
		item, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.peek().Kind != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return nil, err
	}
	return ir.Array(items...), nil
}

// varCall recognizes var("path") and var("path", default).
func varCall(name string, args []ir.Node) (ir.VariableRef, bool) {
	if name != "var" || len(args) == 0 || len(args) > 2 {
		return ir.VariableRef{}, false
	}
	lit, ok := args[0].(ir.Literal)
	if !ok {
		return ir.VariableRef{}, false
	}
	path, ok := lit.Value.(string)
	if !ok {
		return ir.VariableRef{}, false
	}
	ref := ir.Var(path)
	if len(args) == 2 {
		ref.Default = args[1]
	}
	return ref, true
}

package expression

import (
	"errors"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tokens, err := Tokenize("age >= 18 AND name == 'Bob'")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	want := []Token{
		{Kind: IDENTIFIER, Text: "age", Pos: 0},
		{Kind: OPERATOR, Text: ">=", Pos: 4},
		{Kind: NUMBER, Text: "18", Pos: 7},
		{Kind: OPERATOR, Text: "and", Pos: 10},
		{Kind: IDENTIFIER, Text: "name", Pos: 14},
		{Kind: OPERATOR, Text: "==", Pos: 19},
		{Kind: STRING, Text: "Bob", Pos: 22},
		{Kind: EOF, Pos: 27},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d = %+v, want %+v", i, tokens[i], want[i])
		}
	}
}

func TestTokenizeWords(t *testing.T) {
	testCases := []struct {
		input    string
		wantKind TokenKind
		wantText string
	}{
		{"patient.address.zip", IDENTIFIER, "patient.address.zip"},
		{"$.subtotal", IDENTIFIER, "$.subtotal"},
		{"_private", IDENTIFIER, "_private"},
		{"true", BOOLEAN, "true"},
		{"false", BOOLEAN, "false"},
		{"True", IDENTIFIER, "True"},
		{"OR", OPERATOR, "or"},
		{"In", OPERATOR, "in"},
		{"NOT", OPERATOR, "!"},
		{"Between", OPERATOR, "between"},
		{"is", KEYWORD, "is"},
		{"LIKE", KEYWORD, "like"},
		{"3.25", NUMBER, "3.25"},
		{`"double"`, STRING, "double"},
		{`'it"s'`, STRING, `it"s`},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			tokens, err := Tokenize(tc.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) failed: %v", tc.input, err)
			}
			if len(tokens) != 2 {
				t.Fatalf("Tokenize(%q) = %v, want one token and EOF", tc.input, tokens)
			}
			if tokens[0].Kind != tc.wantKind || tokens[0].Text != tc.wantText {
				t.Errorf("Tokenize(%q) = %s, want %s %q", tc.input, tokens[0], tc.wantKind, tc.wantText)
			}
		})
	}
}

func TestTokenizeOperators(t *testing.T) {
	tokens, err := Tokenize("a&&b||!c!=d<=e>=f<g>h+i-j*k/l%m")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	var ops []string
	for _, tok := range tokens {
		if tok.Kind == OPERATOR {
			ops = append(ops, tok.Text)
		}
	}
	want := []string{"&&", "||", "!", "!=", "<=", ">=", "<", ">", "+", "-", "*", "/", "%"}
	if len(ops) != len(want) {
		t.Fatalf("operators = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("operator %d = %q, want %q", i, ops[i], want[i])
		}
	}
}

func TestTokenizeNumberStopsAtBareDot(t *testing.T) {
	tokens, err := Tokenize("[1, 2]")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	kinds := []TokenKind{LBRACKET, NUMBER, COMMA, NUMBER, RBRACKET, EOF}
	for i, k := range kinds {
		if tokens[i].Kind != k {
			t.Errorf("token %d kind = %s, want %s", i, tokens[i].Kind, k)
		}
	}
}

func TestTokenizeTrailingDotNumber(t *testing.T) {
	testCases := []struct {
		input string
		want  []string
	}{
		{"5.", []string{"5."}},
		{"x > 5. and y", []string{"x", ">", "5.", "and", "y"}},
		{"[1., 2.]", []string{"[", "1.", ",", "2.", "]"}},
		{"3.25", []string{"3.25"}},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			tokens, err := Tokenize(tc.input)
			if err != nil {
				t.Fatalf("Tokenize failed: %v", err)
			}
			var got []string
			for _, tok := range tokens[:len(tokens)-1] {
				got = append(got, tok.Text)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestTokenizeErrors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantPos int
	}{
		{"unknown character", "a @ b", 2},
		{"single equals", "a = b", 2},
		{"unterminated string", `name == "Bob`, 8},
		{"position counts runes", `"é" @`, 4},
		{"dot after trailing dot", "5..6", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Tokenize(tc.input)
			if err == nil {
				t.Fatalf("Tokenize(%q) should fail", tc.input)
			}
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("error %v should wrap ErrSyntax", err)
			}
			var synErr *SyntaxError
			if !errors.As(err, &synErr) {
				t.Fatalf("error %T should be *SyntaxError", err)
			}
			if synErr.Pos != tc.wantPos {
				t.Errorf("Pos = %d, want %d", synErr.Pos, tc.wantPos)
			}
		})
	}
}

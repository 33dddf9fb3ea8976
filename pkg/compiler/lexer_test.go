package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eofAt(line int) Token { return Token{Type: EOF, Lexeme: "End of File", Line: line} }

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:     "Empty",
			input:    "",
			expected: []Token{eofAt(1)},
		},
		{
			name:  "Operators and Delimiters",
			input: "= == : := > < + - * / % . ( ) , { } ; [ ]",
			expected: []Token{
				{Type: EQUALS, Lexeme: "=", Line: 1},
				{Type: EQUALS_EQUALS, Lexeme: "==", Line: 1},
				{Type: COLON, Lexeme: ":", Line: 1},
				{Type: COLON_EQUALS, Lexeme: ":=", Line: 1},
				{Type: GREATER, Lexeme: ">", Line: 1},
				{Type: LESS, Lexeme: "<", Line: 1},
				{Type: PLUS, Lexeme: "+", Line: 1},
				{Type: MINUS, Lexeme: "-", Line: 1},
				{Type: STAR, Lexeme: "*", Line: 1},
				{Type: SLASH, Lexeme: "/", Line: 1},
				{Type: PERCENT, Lexeme: "%", Line: 1},
				{Type: DOT, Lexeme: ".", Line: 1},
				{Type: LPAREN, Lexeme: "(", Line: 1},
				{Type: RPAREN, Lexeme: ")", Line: 1},
				{Type: COMMA, Lexeme: ",", Line: 1},
				{Type: LBRACE, Lexeme: "{", Line: 1},
				{Type: RBRACE, Lexeme: "}", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: LBRACKET, Lexeme: "[", Line: 1},
				{Type: RBRACKET, Lexeme: "]", Line: 1},
				eofAt(1),
			},
		},
		{
			name:  "Keywords and Identifiers",
			input: "declare x $y1 program start stop aB1 starts",
			expected: []Token{
				{Type: DECLARE, Lexeme: "declare", Line: 1},
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				{Type: IDENTIFIER, Lexeme: "$y1", Line: 1},
				{Type: PROGRAM, Lexeme: "program", Line: 1},
				{Type: START, Lexeme: "start", Line: 1},
				{Type: STOP, Lexeme: "stop", Line: 1},
				{Type: IDENTIFIER, Lexeme: "aB1", Line: 1},
				{Type: IDENTIFIER, Lexeme: "starts", Line: 1},
				eofAt(1),
			},
		},
		{
			name:  "Integers",
			input: "0 42 12345678",
			expected: []Token{
				{Type: INTEGER, Lexeme: "0", Line: 1},
				{Type: INTEGER, Lexeme: "42", Line: 1},
				{Type: INTEGER, Lexeme: "12345678", Line: 1},
				eofAt(1),
			},
		},
		{
			name:  "No Whitespace Between Tokens",
			input: "x:=5;(a)",
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				{Type: COLON_EQUALS, Lexeme: ":=", Line: 1},
				{Type: INTEGER, Lexeme: "5", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: LPAREN, Lexeme: "(", Line: 1},
				{Type: IDENTIFIER, Lexeme: "a", Line: 1},
				{Type: RPAREN, Lexeme: ")", Line: 1},
				eofAt(1),
			},
		},
		{
			name:  "Identifier Then Integer",
			input: "12ab",
			expected: []Token{
				{Type: INTEGER, Lexeme: "12", Line: 1},
				{Type: IDENTIFIER, Lexeme: "ab", Line: 1},
				eofAt(1),
			},
		},
		{
			name:  "Line Numbers",
			input: "declare x\n= 5 ;\n",
			expected: []Token{
				{Type: DECLARE, Lexeme: "declare", Line: 1},
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				{Type: EQUALS, Lexeme: "=", Line: 2},
				{Type: INTEGER, Lexeme: "5", Line: 2},
				{Type: SEMICOLON, Lexeme: ";", Line: 2},
				eofAt(2),
			},
		},
		{
			// EOF always takes one line back, even without a trailing newline.
			name:  "EOF Line Without Trailing Newline",
			input: "a\nb",
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "a", Line: 1},
				{Type: IDENTIFIER, Lexeme: "b", Line: 2},
				eofAt(1),
			},
		},
		{
			name:  "Comments",
			input: "x &&note&& y\n&&more&&z",
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				{Type: IDENTIFIER, Lexeme: "y", Line: 1},
				{Type: IDENTIFIER, Lexeme: "z", Line: 2},
				eofAt(1),
			},
		},
		{
			name:  "Comment Ends Token",
			input: "x&&c&&",
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				eofAt(1),
			},
		},
		{
			name:  "Dangling Comment Opener At EOF",
			input: "x &&",
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "x", Line: 1},
				eofAt(1),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Lex(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		lexeme  string // lexeme of the ERROR token
		msg     string // substring of the diagnostic
		prefix  int    // valid tokens before the error
		errLine int
	}{
		{"Uppercase Start", "X", "X", "lowercase", 0, 1},
		{"Uppercase After Identifier", "x Abc", "A", "lowercase", 1, 1},
		{"Nine Characters", "abcdefghi", "abcdefghi", "8 significant", 0, 1},
		{"Dollar Plus Nine", "$abcdefghi", "$abcdefghi", "8 significant", 0, 1},
		{"Long Integer", "123456789", "123456789", "8 significant", 0, 1},
		{"Invalid Character", "x # y", "#", "Invalid character", 1, 1},
		{"Invalid Character In Token", "ab!", "!", "Invalid character", 0, 1},
		{"Single Ampersand", "x & y", "Invalid Comment", "Invalid Comment", 1, 1},
		{"Comment Across Lines", "a\n&&abc\n&&", "Comment is not closed on its line", "on its line", 1, 2},
		{"Comment Hits EOF", "x &&abc", "Comment is not closed before end of file", "end of file", 1, 1},
		{"Comment Opener Then Newline", "x &&\n", "Comment is not closed on its line", "on its line", 1, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			toks, err := Lex(tc.input)
			require.Error(t, err)
			require.Len(t, toks, tc.prefix+1)
			last := toks[len(toks)-1]
			assert.Equal(t, ERROR, last.Type)
			assert.Equal(t, tc.lexeme, last.Lexeme)
			assert.Equal(t, tc.errLine, last.Line)

			var se *ScanError
			require.ErrorAs(t, err, &se)
			assert.Contains(t, se.Error(), tc.msg)
			assert.Equal(t, tc.errLine, se.Line)
		})
	}
}

func TestLexLengthBoundaries(t *testing.T) {
	for _, src := range []string{"abcdefgh", "$abcdefgh", "99999999"} {
		toks, err := Lex(src)
		require.NoError(t, err, src)
		require.Len(t, toks, 2)
		assert.Equal(t, src, toks[0].Lexeme)
	}
}

func TestScannerResumesAfterInvalidComment(t *testing.T) {
	s := NewScanner(strings.NewReader("x & junk here\nz"))

	assert.Equal(t, Token{Type: IDENTIFIER, Lexeme: "x", Line: 1}, s.Next())

	tok := s.Next()
	assert.Equal(t, ERROR, tok.Type)
	require.Error(t, s.Err())

	assert.Equal(t, Token{Type: IDENTIFIER, Lexeme: "z", Line: 2}, s.Next())
	assert.Equal(t, EOF, s.Next().Type)
}

func TestScannerEOFIsSticky(t *testing.T) {
	s := NewScanner(strings.NewReader("a\n\n"))
	assert.Equal(t, IDENTIFIER, s.Next().Type)
	first := s.Next()
	second := s.Next()
	assert.Equal(t, EOF, first.Type)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, first.Line)
	assert.NoError(t, s.Err())
}

func TestTokenString(t *testing.T) {
	assert.Equal(t, "L3 Identifier: 'x'", Token{Type: IDENTIFIER, Lexeme: "x", Line: 3}.String())
	assert.Equal(t, "L1 Keyword: Program: 'program'", Token{Type: PROGRAM, Lexeme: "program", Line: 1}.String())
	assert.Equal(t, "PROGRAM", PROGRAM.String())
	assert.Equal(t, "Deliminator: Semicolon", SEMICOLON.Description())
	assert.Equal(t, "TokenType(99)", TokenType(99).String())
}

func TestTransitionTableShape(t *testing.T) {
	for state := range transitions {
		for col, next := range transitions[state] {
			if state == stStart {
				continue
			}
			// every non-start state either continues or accepts; none fail or hit EOF
			assert.True(t, next >= 0, "state %d col %d -> %d", state, col, next)
		}
	}
	assert.Equal(t, stateEOF, transitions[stStart][colEOF])
	assert.Equal(t, errUppercaseStart, transitions[stStart][colUpper])
	assert.Equal(t, final(IDENTIFIER), transitions[stIdent][colDollar])
}

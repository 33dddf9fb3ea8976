package compiler

import "fmt"

// TokenType identifies the category of a scanned token.
type TokenType int

const (
	EOF   TokenType = iota // sentinel: end of input
	ERROR                  // lexical error, Lexeme carries the message

	// Literals
	IDENTIFIER // lowercase or $-prefixed name
	INTEGER    // unsigned decimal literal

	// Keywords
	START   // "start"
	STOP    // "stop"
	LOOP    // "loop"
	WHILE   // "while"
	FOR     // "for"
	LABEL   // "label"
	EXIT    // "exit"
	LISTEN  // "listen"
	TALK    // "talk"
	PROGRAM // "program"
	IF      // "if"
	THEN    // "then"
	ASSIGN  // "assign"
	DECLARE // "declare"
	JUMP    // "jump"
	ELSE    // "else"

	// Operators
	EQUALS        // =
	GREATER       // >
	LESS          // <
	EQUALS_EQUALS // ==
	COLON         // :
	COLON_EQUALS  // :=
	PLUS          // +
	MINUS         // -
	STAR          // *
	SLASH         // /
	PERCENT       // %

	// Delimiters
	DOT       // .
	LPAREN    // (
	RPAREN    // )
	COMMA     // ,
	LBRACE    // {
	RBRACE    // }
	SEMICOLON // ;
	LBRACKET  // [
	RBRACKET  // ]

	numTokenTypes
)

var tokenNames = [...]string{
	EOF: "EOF", ERROR: "ERROR",
	IDENTIFIER: "IDENTIFIER", INTEGER: "INTEGER",
	START: "START", STOP: "STOP", LOOP: "LOOP", WHILE: "WHILE", FOR: "FOR",
	LABEL: "LABEL", EXIT: "EXIT", LISTEN: "LISTEN", TALK: "TALK", PROGRAM: "PROGRAM",
	IF: "IF", THEN: "THEN", ASSIGN: "ASSIGN", DECLARE: "DECLARE", JUMP: "JUMP", ELSE: "ELSE",
	EQUALS: "=", GREATER: ">", LESS: "<", EQUALS_EQUALS: "==", COLON: ":", COLON_EQUALS: ":=",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	DOT: ".", LPAREN: "(", RPAREN: ")", COMMA: ",", LBRACE: "{", RBRACE: "}",
	SEMICOLON: ";", LBRACKET: "[", RBRACKET: "]",
}

// tokenDescriptions are the human-readable names used in diagnostics and dumps.
var tokenDescriptions = [...]string{
	EOF:           "End of File",
	ERROR:         "Token Error",
	IDENTIFIER:    "Identifier",
	INTEGER:       "Integer",
	START:         "Keyword: Start",
	STOP:          "Keyword: Stop",
	LOOP:          "Keyword: Loop",
	WHILE:         "Keyword: While",
	FOR:           "Keyword: For",
	LABEL:         "Keyword: Label",
	EXIT:          "Keyword: Exit",
	LISTEN:        "Keyword: Listen",
	TALK:          "Keyword: Talk",
	PROGRAM:       "Keyword: Program",
	IF:            "Keyword: If",
	THEN:          "Keyword: Then",
	ASSIGN:        "Keyword: Assign",
	DECLARE:       "Keyword: Declare",
	JUMP:          "Keyword: Jump",
	ELSE:          "Keyword: Else",
	EQUALS:        "Operator: Equals",
	GREATER:       "Operator: Greater Than",
	LESS:          "Operator: Less Than",
	EQUALS_EQUALS: "Operator: Equals Equals",
	COLON:         "Operator: Colon",
	COLON_EQUALS:  "Operator: Colon-Equals",
	PLUS:          "Operator: Plus",
	MINUS:         "Operator: Minus",
	STAR:          "Operator: Star",
	SLASH:         "Operator: Slash",
	PERCENT:       "Operator: Percent",
	DOT:           "Deliminator: Period",
	LPAREN:        "Deliminator: Left Parenthesis",
	RPAREN:        "Deliminator: Right Parenthesis",
	COMMA:         "Deliminator: Comma",
	LBRACE:        "Deliminator: Left Curly Brace",
	RBRACE:        "Deliminator: Right Curly Brace",
	SEMICOLON:     "Deliminator: Semicolon",
	LBRACKET:      "Deliminator: Left Square Bracket",
	RBRACKET:      "Deliminator: Right Square Bracket",
}

func (t TokenType) String() string {
	if t >= 0 && t < numTokenTypes {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Description returns the diagnostic name of t, e.g. "Keyword: Program".
func (t TokenType) Description() string {
	if t >= 0 && t < numTokenTypes {
		return tokenDescriptions[t]
	}
	return t.String()
}

// keywords maps reserved words to their TokenType.
var keywords = map[string]TokenType{
	"start":   START,
	"stop":    STOP,
	"loop":    LOOP,
	"while":   WHILE,
	"for":     FOR,
	"label":   LABEL,
	"exit":    EXIT,
	"listen":  LISTEN,
	"talk":    TALK,
	"program": PROGRAM,
	"if":      IF,
	"then":    THEN,
	"assign":  ASSIGN,
	"declare": DECLARE,
	"jump":    JUMP,
	"else":    ELSE,
}

// Token is a single lexical unit produced by the Scanner.
type Token struct {
	Type   TokenType
	Lexeme string // verbatim source text (or the message of an ERROR token)
	Line   int    // 1-based source line
}

func (t Token) String() string {
	return fmt.Sprintf("L%d %s: '%s'", t.Line, t.Type.Description(), t.Lexeme)
}

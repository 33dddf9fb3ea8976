package compiler

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// maxIdentLen is the number of significant characters in a lexeme; a leading '$' is not counted.
const maxIdentLen = 8

// Character classes, one column of the transition table each.
const (
	colSpace = iota
	colLower
	colUpper
	colDigit
	colDollar
	colEquals
	colGreater
	colLess
	colColon
	colPlus
	colMinus
	colStar
	colSlash
	colPercent
	colDot
	colLParen
	colRParen
	colComma
	colLBrace
	colRBrace
	colSemicolon
	colLBracket
	colRBracket
	colEOF
	numColumns

	colInvalid = -1
)

// Scanner states. Every state past stColonEq accepts exactly one character.
const (
	stStart = iota
	stIdent
	stInt
	stEquals
	stGreater
	stLess
	stEqEq
	stColon
	stColonEq
	stPlus
	stMinus
	stStar
	stSlash
	stPercent
	stDot
	stLParen
	stRParen
	stComma
	stLBrace
	stRBrace
	stSemicolon
	stLBracket
	stRBracket
	numStates
)

// Table values >= finalBase are terminal; negative values are errors.
const (
	finalBase         = 1000
	stateEOF          = -1
	errInvalidChar    = -2
	errUppercaseStart = -3
)

// finalTypes maps terminal value finalBase+i to its token type.
var finalTypes = [...]TokenType{
	IDENTIFIER, INTEGER,
	EQUALS, GREATER, LESS, EQUALS_EQUALS, COLON, COLON_EQUALS,
	PLUS, MINUS, STAR, SLASH, PERCENT,
	DOT, LPAREN, RPAREN, COMMA, LBRACE, RBRACE, SEMICOLON, LBRACKET, RBRACKET,
}

func final(t TokenType) int {
	for i, ft := range finalTypes {
		if ft == t {
			return finalBase + i
		}
	}
	panic("compiler: no terminal state for " + t.String())
}

func uniform(v int) [numColumns]int {
	var row [numColumns]int
	for i := range row {
		row[i] = v
	}
	return row
}

func except(row [numColumns]int, v int, cols ...int) [numColumns]int {
	for _, c := range cols {
		row[c] = v
	}
	return row
}

var transitions = [numStates][numColumns]int{
	//         WS       a-z      A-Z                digit    $        =         >          <       :        +       -        *       /        %          .      (         )         ,        {         }         ;            [           ]           EOF
	stStart: {stStart, stIdent, errUppercaseStart, stInt, stIdent, stEquals, stGreater, stLess, stColon, stPlus, stMinus, stStar, stSlash, stPercent, stDot, stLParen, stRParen, stComma, stLBrace, stRBrace, stSemicolon, stLBracket, stRBracket, stateEOF},

	stIdent:     except(uniform(final(IDENTIFIER)), stIdent, colLower, colUpper, colDigit),
	stInt:       except(uniform(final(INTEGER)), stInt, colDigit),
	stEquals:    except(uniform(final(EQUALS)), stEqEq, colEquals),
	stColon:     except(uniform(final(COLON)), stColonEq, colEquals),
	stGreater:   uniform(final(GREATER)),
	stLess:      uniform(final(LESS)),
	stEqEq:      uniform(final(EQUALS_EQUALS)),
	stColonEq:   uniform(final(COLON_EQUALS)),
	stPlus:      uniform(final(PLUS)),
	stMinus:     uniform(final(MINUS)),
	stStar:      uniform(final(STAR)),
	stSlash:     uniform(final(SLASH)),
	stPercent:   uniform(final(PERCENT)),
	stDot:       uniform(final(DOT)),
	stLParen:    uniform(final(LPAREN)),
	stRParen:    uniform(final(RPAREN)),
	stComma:     uniform(final(COMMA)),
	stLBrace:    uniform(final(LBRACE)),
	stRBrace:    uniform(final(RBRACE)),
	stSemicolon: uniform(final(SEMICOLON)),
	stLBracket:  uniform(final(LBRACKET)),
	stRBracket:  uniform(final(RBRACKET)),
}

func classify(c byte) int {
	switch {
	case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f':
		return colSpace
	case c >= 'a' && c <= 'z':
		return colLower
	case c >= 'A' && c <= 'Z':
		return colUpper
	case c >= '0' && c <= '9':
		return colDigit
	}
	switch c {
	case '$':
		return colDollar
	case '=':
		return colEquals
	case '>':
		return colGreater
	case '<':
		return colLess
	case ':':
		return colColon
	case '+':
		return colPlus
	case '-':
		return colMinus
	case '*':
		return colStar
	case '/':
		return colSlash
	case '%':
		return colPercent
	case '.':
		return colDot
	case '(':
		return colLParen
	case ')':
		return colRParen
	case ',':
		return colComma
	case '{':
		return colLBrace
	case '}':
		return colRBrace
	case ';':
		return colSemicolon
	case '[':
		return colLBracket
	case ']':
		return colRBracket
	}
	return colInvalid
}

// Scanner turns a character stream into tokens, one per call to Next.
type Scanner struct {
	r       *bufio.Reader
	line    int // current 1-based source line
	eofSeen bool
	err     *ScanError // last lexical error
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r), line: 1}
}

// Line returns the current line counter.
func (s *Scanner) Line() int { return s.line }

// Err returns the diagnostic for the most recent ERROR token, or nil.
func (s *Scanner) Err() error {
	if s.err == nil {
		return nil
	}
	return s.err
}

// LastError is Err without the interface conversion.
func (s *Scanner) LastError() *ScanError { return s.err }

// Next scans and returns the next token. Lexical errors come back as ERROR
// tokens; the scanner stays usable afterwards.
func (s *Scanner) Next() Token {
	state := stStart
	var lexeme []byte
	for {
		c, err := s.r.ReadByte()
		eof := false
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return s.fail("Read error: "+err.Error(), "")
			}
			eof = true
		}

		col := colEOF
		if !eof {
			col = classify(c)
			if c == '&' {
				if state == stStart {
					if tok, done := s.skipComment(); done {
						return tok
					}
					continue
				}
				// a comment marker ends the token being built
				col = colSpace
			}
		}
		if col == colInvalid {
			return s.fail("Invalid character", string(c))
		}

		next := transitions[state][col]
		switch {
		case next == stateEOF:
			return s.eofToken()
		case next == errUppercaseStart:
			return s.fail("Identifiers must begin with a lowercase letter or '$'", string(append(lexeme, c)))
		case next == errInvalidChar:
			return s.fail("Invalid character", string(c))
		case next >= finalBase:
			if !eof {
				_ = s.r.UnreadByte()
			}
			typ := finalTypes[next-finalBase]
			text := string(lexeme)
			if typ == IDENTIFIER {
				if kw, ok := keywords[text]; ok {
					typ = kw
				}
			}
			return Token{Type: typ, Lexeme: text, Line: s.line}
		}

		if col == colSpace {
			if c == '\n' {
				s.line++
			}
		} else {
			lexeme = append(lexeme, c)
			if tooLong(lexeme) {
				return s.fail("Token exceeds 8 significant characters", string(lexeme))
			}
		}
		state = next
	}
}

func tooLong(lexeme []byte) bool {
	if len(lexeme) > 0 && lexeme[0] == '$' {
		return len(lexeme) > maxIdentLen+1
	}
	return len(lexeme) > maxIdentLen
}

// skipComment consumes a comment whose first '&' has been read. It reports
// done when Next must return tok instead of continuing to scan.
func (s *Scanner) skipComment() (tok Token, done bool) {
	c, err := s.r.ReadByte()
	if err != nil || c != '&' {
		if err == nil {
			_ = s.r.UnreadByte()
		}
		s.discardLine()
		return s.fail("Invalid Comment", ""), true
	}
	// a trailing "&&" right before end of input is accepted
	if _, err := s.r.Peek(1); err != nil {
		return s.eofToken(), true
	}
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			return s.fail("Comment is not closed before end of file", ""), true
		}
		switch c {
		case '\n':
			_ = s.r.UnreadByte()
			return s.fail("Comment is not closed on its line", ""), true
		case '&':
			if b, err := s.r.Peek(1); err == nil && b[0] == '&' {
				_, _ = s.r.ReadByte()
				return Token{}, false
			}
		}
	}
}

// discardLine drops everything up to, not including, the next newline.
func (s *Scanner) discardLine() {
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			return
		}
		if c == '\n' {
			_ = s.r.UnreadByte()
			return
		}
	}
}

func (s *Scanner) eofToken() Token {
	// the first EOF takes back the count of the trailing newline
	if !s.eofSeen {
		s.eofSeen = true
		if s.line > 1 {
			s.line--
		}
	}
	return Token{Type: EOF, Lexeme: EOF.Description(), Line: s.line}
}

func (s *Scanner) fail(msg, lexeme string) Token {
	s.err = &ScanError{Line: s.line, Msg: msg, Lexeme: lexeme}
	text := lexeme
	if text == "" {
		text = msg
	}
	return Token{Type: ERROR, Lexeme: text, Line: s.line}
}

// Lex scans src completely. It stops at EOF or at the first ERROR token,
// which is included in the result alongside the returned error.
func Lex(src string) ([]Token, error) {
	s := NewScanner(strings.NewReader(src))
	var toks []Token
	for {
		tok := s.Next()
		toks = append(toks, tok)
		switch tok.Type {
		case ERROR:
			return toks, s.Err()
		case EOF:
			return toks, nil
		}
	}
}

package compiler

import (
	"io"
)

// Parser pulls tokens from a Scanner on demand and builds the syntax tree by
// recursive descent, one method per nonterminal:
//
//	program = vars "program" block
//	block   = "start" vars stats "stop"
//	vars    = ε | "declare" ID "=" INT ";" vars
//	stats   = stat m_stat        (empty directly before "stop")
//	m_stat  = ε | stat m_stat
//	stat    = in ";" | out ";" | block | if ";" | loop ";" | assign ";" | goto ";" | label ";"
//	in      = "listen" ID
//	out     = "talk" expr
//	if      = "if" "[" expr RO expr "]" "then" stat ( "else" stat )?
//	loop    = "while" "[" expr RO expr "]" stat
//	assign  = "assign" ID "=" expr
//	label   = "label" ID
//	goto    = "jump" ID
//	RO      = ">" | "<" | "==" | "{" "==" "}" | "%"
//	expr    = N "+" expr | N
//	N       = A "/" N | A "*" N | A
//	A       = M "-" A | M
//	M       = "." M | R
//	R       = "(" expr ")" | ID | INT
//
// The first mismatch ends the parse with a *SyntaxError.
type Parser struct {
	scan *Scanner
	tok  Token // lookahead
}

func NewParser(s *Scanner) *Parser {
	return &Parser{scan: s}
}

// Parse reads a whole program from r.
func Parse(r io.Reader) (*Node, error) {
	return NewParser(NewScanner(r)).Parse()
}

// Parse parses one program and requires end of input after it.
func (p *Parser) Parse() (*Node, error) {
	p.tok = p.scan.Next()
	root, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	if p.tok.Type != EOF {
		return nil, p.errorf(EOF.Description())
	}
	return root, nil
}

// errorf builds the diagnostic for the current lookahead.
func (p *Parser) errorf(expected string) error {
	e := &SyntaxError{Line: p.tok.Line, Expected: expected, Got: p.tok}
	if p.tok.Type == ERROR {
		e.Scan = p.scan.LastError()
	}
	return e
}

// take records the lookahead on n and advances.
func (p *Parser) take(n *Node) {
	n.Tokens = append(n.Tokens, p.tok)
	p.tok = p.scan.Next()
}

// expect takes the lookahead if it has type tt, otherwise fails.
func (p *Parser) expect(n *Node, tt TokenType) error {
	if p.tok.Type != tt {
		return p.errorf(tt.Description())
	}
	p.take(n)
	return nil
}

func (p *Parser) expectAll(n *Node, tts ...TokenType) error {
	for _, tt := range tts {
		if err := p.expect(n, tt); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseProgram() (*Node, error) {
	n := newNode(NodeProgram, 0)
	vars, err := p.parseVars(1)
	if err != nil {
		return nil, err
	}
	if vars != nil {
		n.addChild(vars)
	}
	if err := p.expect(n, PROGRAM); err != nil {
		return nil, err
	}
	block, err := p.parseBlock(1)
	if err != nil {
		return nil, err
	}
	n.addChild(block)
	return n, nil
}

func (p *Parser) parseBlock(depth int) (*Node, error) {
	n := newNode(NodeBlock, depth)
	if err := p.expect(n, START); err != nil {
		return nil, err
	}
	vars, err := p.parseVars(depth + 1)
	if err != nil {
		return nil, err
	}
	if vars != nil {
		n.addChild(vars)
	}
	stats, err := p.parseStats(depth + 1)
	if err != nil {
		return nil, err
	}
	if stats != nil {
		n.addChild(stats)
	}
	if err := p.expect(n, STOP); err != nil {
		return nil, err
	}
	return n, nil
}

// parseVars returns nil for the empty production.
func (p *Parser) parseVars(depth int) (*Node, error) {
	if p.tok.Type != DECLARE {
		return nil, nil
	}
	n := newNode(NodeVars, depth)
	if err := p.expectAll(n, DECLARE, IDENTIFIER, EQUALS, INTEGER, SEMICOLON); err != nil {
		return nil, err
	}
	rest, err := p.parseVars(depth + 1)
	if err != nil {
		return nil, err
	}
	if rest != nil {
		n.addChild(rest)
	}
	return n, nil
}

// parseStats returns nil for an empty block (`start stop`).
func (p *Parser) parseStats(depth int) (*Node, error) {
	if p.tok.Type == STOP {
		return nil, nil
	}
	n := newNode(NodeStats, depth)
	stat, err := p.parseStat(depth + 1)
	if err != nil {
		return nil, err
	}
	n.addChild(stat)
	more, err := p.parseMStat(depth + 1)
	if err != nil {
		return nil, err
	}
	if more != nil {
		n.addChild(more)
	}
	return n, nil
}

func startsStat(tt TokenType) bool {
	switch tt {
	case LISTEN, TALK, START, IF, WHILE, ASSIGN, JUMP, LABEL:
		return true
	}
	return false
}

// parseMStat returns nil for the empty production.
func (p *Parser) parseMStat(depth int) (*Node, error) {
	if !startsStat(p.tok.Type) {
		return nil, nil
	}
	n := newNode(NodeMStat, depth)
	stat, err := p.parseStat(depth + 1)
	if err != nil {
		return nil, err
	}
	n.addChild(stat)
	more, err := p.parseMStat(depth + 1)
	if err != nil {
		return nil, err
	}
	if more != nil {
		n.addChild(more)
	}
	return n, nil
}

const expectedStat = "Statement (listen | talk | start | if | while | assign | jump | label)"

func (p *Parser) parseStat(depth int) (*Node, error) {
	n := newNode(NodeStat, depth)
	var (
		child *Node
		err   error
	)
	switch p.tok.Type {
	case START:
		child, err = p.parseBlock(depth + 1)
		if err != nil {
			return nil, err
		}
		n.addChild(child)
		return n, nil
	case LISTEN:
		child, err = p.parseIn(depth + 1)
	case TALK:
		child, err = p.parseOut(depth + 1)
	case IF:
		child, err = p.parseIf(depth + 1)
	case WHILE:
		child, err = p.parseLoop(depth + 1)
	case ASSIGN:
		child, err = p.parseAssign(depth + 1)
	case JUMP:
		child, err = p.parseGoto(depth + 1)
	case LABEL:
		child, err = p.parseLabel(depth + 1)
	default:
		return nil, p.errorf(expectedStat)
	}
	if err != nil {
		return nil, err
	}
	n.addChild(child)
	if err := p.expect(n, SEMICOLON); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseIn(depth int) (*Node, error) {
	n := newNode(NodeIn, depth)
	if err := p.expectAll(n, LISTEN, IDENTIFIER); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseOut(depth int) (*Node, error) {
	n := newNode(NodeOut, depth)
	if err := p.expect(n, TALK); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr(depth + 1)
	if err != nil {
		return nil, err
	}
	n.addChild(expr)
	return n, nil
}

// parseCondition parses `[ expr RO expr ]` into n.
func (p *Parser) parseCondition(n *Node) error {
	if err := p.expect(n, LBRACKET); err != nil {
		return err
	}
	left, err := p.parseExpr(n.Depth + 1)
	if err != nil {
		return err
	}
	n.addChild(left)
	ro, err := p.parseRO(n.Depth + 1)
	if err != nil {
		return err
	}
	n.addChild(ro)
	right, err := p.parseExpr(n.Depth + 1)
	if err != nil {
		return err
	}
	n.addChild(right)
	return p.expect(n, RBRACKET)
}

func (p *Parser) parseIf(depth int) (*Node, error) {
	n := newNode(NodeIf, depth)
	if err := p.expect(n, IF); err != nil {
		return nil, err
	}
	if err := p.parseCondition(n); err != nil {
		return nil, err
	}
	if err := p.expect(n, THEN); err != nil {
		return nil, err
	}
	then, err := p.parseStat(depth + 1)
	if err != nil {
		return nil, err
	}
	n.addChild(then)
	if p.tok.Type == ELSE {
		p.take(n)
		els, err := p.parseStat(depth + 1)
		if err != nil {
			return nil, err
		}
		n.addChild(els)
	}
	return n, nil
}

func (p *Parser) parseLoop(depth int) (*Node, error) {
	n := newNode(NodeLoop, depth)
	if err := p.expect(n, WHILE); err != nil {
		return nil, err
	}
	if err := p.parseCondition(n); err != nil {
		return nil, err
	}
	body, err := p.parseStat(depth + 1)
	if err != nil {
		return nil, err
	}
	n.addChild(body)
	return n, nil
}

func (p *Parser) parseAssign(depth int) (*Node, error) {
	n := newNode(NodeAssign, depth)
	if err := p.expectAll(n, ASSIGN, IDENTIFIER, EQUALS); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr(depth + 1)
	if err != nil {
		return nil, err
	}
	n.addChild(expr)
	return n, nil
}

func (p *Parser) parseLabel(depth int) (*Node, error) {
	n := newNode(NodeLabel, depth)
	if err := p.expectAll(n, LABEL, IDENTIFIER); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseGoto(depth int) (*Node, error) {
	n := newNode(NodeGoto, depth)
	if err := p.expectAll(n, JUMP, IDENTIFIER); err != nil {
		return nil, err
	}
	return n, nil
}

const expectedRO = "Relational Operator (> | < | == | { == } | %)"

func (p *Parser) parseRO(depth int) (*Node, error) {
	n := newNode(NodeRO, depth)
	switch p.tok.Type {
	case GREATER, LESS, EQUALS_EQUALS, PERCENT:
		p.take(n)
	case LBRACE:
		if err := p.expectAll(n, LBRACE, EQUALS_EQUALS, RBRACE); err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf(expectedRO)
	}
	return n, nil
}

func (p *Parser) parseExpr(depth int) (*Node, error) {
	n := newNode(NodeExpr, depth)
	left, err := p.parseN(depth + 1)
	if err != nil {
		return nil, err
	}
	n.addChild(left)
	if p.tok.Type == PLUS {
		p.take(n)
		right, err := p.parseExpr(depth + 1)
		if err != nil {
			return nil, err
		}
		n.addChild(right)
	}
	return n, nil
}

func (p *Parser) parseN(depth int) (*Node, error) {
	n := newNode(NodeN, depth)
	left, err := p.parseA(depth + 1)
	if err != nil {
		return nil, err
	}
	n.addChild(left)
	if p.tok.Type == SLASH || p.tok.Type == STAR {
		p.take(n)
		right, err := p.parseN(depth + 1)
		if err != nil {
			return nil, err
		}
		n.addChild(right)
	}
	return n, nil
}

func (p *Parser) parseA(depth int) (*Node, error) {
	n := newNode(NodeA, depth)
	left, err := p.parseM(depth + 1)
	if err != nil {
		return nil, err
	}
	n.addChild(left)
	if p.tok.Type == MINUS {
		p.take(n)
		right, err := p.parseA(depth + 1)
		if err != nil {
			return nil, err
		}
		n.addChild(right)
	}
	return n, nil
}

func (p *Parser) parseM(depth int) (*Node, error) {
	n := newNode(NodeM, depth)
	var (
		child *Node
		err   error
	)
	if p.tok.Type == DOT {
		p.take(n)
		child, err = p.parseM(depth + 1)
	} else {
		child, err = p.parseR(depth + 1)
	}
	if err != nil {
		return nil, err
	}
	n.addChild(child)
	return n, nil
}

const expectedOperand = "Operand (( | Identifier | Integer)"

func (p *Parser) parseR(depth int) (*Node, error) {
	n := newNode(NodeR, depth)
	switch p.tok.Type {
	case IDENTIFIER, INTEGER:
		p.take(n)
	case LPAREN:
		p.take(n)
		expr, err := p.parseExpr(depth + 1)
		if err != nil {
			return nil, err
		}
		n.addChild(expr)
		if err := p.expect(n, RPAREN); err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf(expectedOperand)
	}
	return n, nil
}

package compiler

import (
	"fmt"
	"io"

	"github.com/valyala/bytebufferpool"
)

// NodeKind names the grammar nonterminal a Node was built for.
type NodeKind int

const (
	NodeProgram NodeKind = iota // vars program block
	NodeBlock                   // start vars stats stop
	NodeVars                    // declare ID = INT ; vars
	NodeStats                   // stat m_stat
	NodeMStat                   // stat m_stat
	NodeStat                    // one statement followed by ';' (or a bare block)
	NodeIn                      // listen ID
	NodeOut                     // talk expr
	NodeIf                      // if [ expr RO expr ] then stat [ else stat ]
	NodeLoop                    // while [ expr RO expr ] stat
	NodeAssign                  // assign ID = expr
	NodeLabel                   // label ID
	NodeGoto                    // jump ID
	NodeRO                      // > | < | == | { == } | %
	NodeExpr                    // N + expr | N
	NodeN                       // A / N | A * N | A
	NodeA                       // M - A | M
	NodeM                       // . M | R
	NodeR                       // ( expr ) | ID | INT
	numNodeKinds
)

var nodeLabels = [...]string{
	NodeProgram: "<program>",
	NodeBlock:   "<block>",
	NodeVars:    "<vars>",
	NodeStats:   "<stats>",
	NodeMStat:   "<m_stat>",
	NodeStat:    "<stat>",
	NodeIn:      "<in>",
	NodeOut:     "<out>",
	NodeIf:      "<if>",
	NodeLoop:    "<loop>",
	NodeAssign:  "<assign>",
	NodeLabel:   "<label>",
	NodeGoto:    "<goto>",
	NodeRO:      "<RO>",
	NodeExpr:    "<expr>",
	NodeN:       "<N>",
	NodeA:       "<A>",
	NodeM:       "<M>",
	NodeR:       "<R>",
}

func (k NodeKind) String() string {
	if k >= 0 && k < numNodeKinds {
		return nodeLabels[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Node is one nonterminal of the concrete syntax tree.
//
//	assign x = 3 + 4 ;
//	<assign> Tokens: [assign x =]  Children: [<expr>]
//
// Tokens holds only the terminals matched by this node's own production, in
// source order. Optional productions that matched nothing are not present
// in Children.
type Node struct {
	Kind     NodeKind
	Depth    int
	Children []*Node
	Tokens   []Token
}

func newNode(kind NodeKind, depth int) *Node {
	return &Node{Kind: kind, Depth: depth}
}

func (n *Node) addChild(c *Node) { n.Children = append(n.Children, c) }

// Child returns the first child of the given kind, or nil.
func (n *Node) Child(kind NodeKind) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// Walk visits n and its descendants in pre-order until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Dump writes the tree in pre-order, one node per line:
//
//	D0 - <program>: Token(L1 Keyword: Program: 'program')
//	  D1 - <block>: Token(L1 Keyword: Start: 'start') Token(L1 Keyword: Stop: 'stop')
//
// The whole listing is rendered before anything reaches w.
func Dump(w io.Writer, root *Node) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	root.Walk(func(n *Node) bool {
		for i := 0; i < n.Depth; i++ {
			_, _ = buf.WriteString("  ")
		}
		_, _ = fmt.Fprintf(buf, "D%d - %s:", n.Depth, n.Kind)
		for _, t := range n.Tokens {
			_, _ = fmt.Fprintf(buf, " Token(%s)", t)
		}
		_ = buf.WriteByte('\n')
		return true
	})
	_, err := buf.WriteTo(w)
	return err
}

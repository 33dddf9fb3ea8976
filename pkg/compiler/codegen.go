package compiler

import (
	"fmt"
	"io"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CodeGen walks the syntax tree once, resolving names against the symbol
// stack and emitting assembly text for the accumulator/stack machine.
//
// Every expression leaves its value in the accumulator. Binary operators
// evaluate their right operand first and park it in a temporary.
type CodeGen struct {
	syms      *SymbolTable
	w         io.Writer
	err       error // first write error, sticky
	nextTemp  int
	nextLabel int
	storage   *orderedmap.OrderedMap[string, int] // temporaries in creation order
	userLabel map[string]int                      // source label name -> declarations seen
	comments  bool
	log       *zap.Logger
}

func newCodeGen(syms *SymbolTable, w io.Writer, opts ...Option) *CodeGen {
	if syms == nil {
		syms = NewSymbolTable()
	}
	cfg := newConfig(opts)
	return &CodeGen{
		syms:      syms,
		w:         w,
		storage:   orderedmap.NewOrderedMap[string, int](),
		userLabel: make(map[string]int),
		comments:  cfg.comments,
		log:       cfg.log,
	}
}

// Generate emits the program rooted at root to w.
func Generate(root *Node, syms *SymbolTable, w io.Writer, opts ...Option) error {
	return newCodeGen(syms, w, opts...).generate(root)
}

func (cg *CodeGen) generate(root *Node) error {
	if root == nil || root.Kind != NodeProgram {
		return errors.New("generate: root is not a <program> node")
	}
	if err := cg.gen(root); err != nil {
		return err
	}
	return errors.Wrap(cg.err, "write assembly")
}

// Temporaries returns the number of temporaries allocated so far.
func (cg *CodeGen) Temporaries() int { return cg.storage.Len() }

func (cg *CodeGen) newTemp() string {
	t := fmt.Sprintf("T%d", cg.nextTemp)
	cg.nextTemp++
	cg.storage.Set(t, 0)
	return t
}

func (cg *CodeGen) newLabel() string {
	l := fmt.Sprintf("L%d", cg.nextLabel)
	cg.nextLabel++
	return l
}

// newUserLabel names the assembly label for a source label, keeping names
// unique when the same source name is declared again in another scope.
func (cg *CodeGen) newUserLabel(name string) string {
	n := cg.userLabel[name]
	cg.userLabel[name] = n + 1
	if n == 0 {
		return "U_" + name
	}
	return fmt.Sprintf("U_%s_%d", name, n)
}

func (cg *CodeGen) line(format string, args ...any) {
	if cg.err != nil {
		return
	}
	_, cg.err = fmt.Fprintf(cg.w, format+"\n", args...)
}

func (cg *CodeGen) comment(format string, args ...any) {
	if cg.comments {
		cg.line("; "+format, args...)
	}
}

func (cg *CodeGen) genChildren(n *Node) error {
	for _, c := range n.Children {
		if err := cg.gen(c); err != nil {
			return err
		}
	}
	return nil
}

func (cg *CodeGen) gen(n *Node) error {
	switch n.Kind {
	case NodeProgram:
		if err := cg.genChildren(n); err != nil {
			return err
		}
		cg.line("STOP")
		for el := cg.storage.Front(); el != nil; el = el.Next() {
			cg.line("%s %d", el.Key, el.Value)
		}
		return nil

	case NodeBlock:
		prev := cg.syms.EnterScope()
		if err := cg.genChildren(n); err != nil {
			return err
		}
		for _, sym := range cg.syms.ExitScope(prev) {
			if sym.Kind == SymbolVariable {
				cg.line("POP")
			}
		}
		return nil

	case NodeVars:
		id, val := n.Tokens[1], n.Tokens[3]
		if err := cg.syms.Push(Symbol{Kind: SymbolVariable, Token: id}); err != nil {
			return err
		}
		cg.comment("declare %s = %s", id.Lexeme, val.Lexeme)
		cg.line("PUSH")
		cg.line("LOAD %s", val.Lexeme)
		cg.line("STACKW 0")
		return cg.genChildren(n)

	case NodeStats, NodeMStat, NodeStat:
		return cg.genChildren(n)

	case NodeIn:
		off, err := cg.resolve(n.Tokens[1])
		if err != nil {
			return err
		}
		t := cg.newTemp()
		cg.comment("listen %s", n.Tokens[1].Lexeme)
		cg.line("READ %s", t)
		cg.line("LOAD %s", t)
		cg.line("STACKW %d", off)
		return nil

	case NodeOut:
		if err := cg.gen(n.Children[0]); err != nil {
			return err
		}
		t := cg.newTemp()
		cg.line("STORE %s", t)
		cg.line("WRITE %s", t)
		return nil

	case NodeIf:
		return cg.genIf(n)

	case NodeLoop:
		return cg.genLoop(n)

	case NodeAssign:
		if err := cg.gen(n.Children[0]); err != nil {
			return err
		}
		off, err := cg.resolve(n.Tokens[1])
		if err != nil {
			return err
		}
		cg.line("STACKW %d", off)
		return nil

	case NodeLabel:
		id := n.Tokens[1]
		if _, dup := cg.syms.FindInScope(SymbolLabel, id.Lexeme); dup {
			return semanticError(ErrDuplicateLabel, id)
		}
		target := cg.newUserLabel(id.Lexeme)
		if err := cg.syms.Push(Symbol{Kind: SymbolLabel, Token: id, Target: target}); err != nil {
			return err
		}
		cg.line("%s: NOOP", target)
		return nil

	case NodeGoto:
		id := n.Tokens[1]
		sym, _, ok := cg.syms.Visible(SymbolLabel, id.Lexeme)
		if !ok {
			return semanticError(ErrUndefinedLabel, id)
		}
		cg.line("BR %s", sym.Target)
		return nil

	case NodeExpr:
		return cg.genBinary(n, "ADD")

	case NodeN:
		if len(n.Tokens) > 0 && n.Tokens[0].Type == SLASH {
			return cg.genBinary(n, "DIV")
		}
		return cg.genBinary(n, "MULT")

	case NodeA:
		return cg.genBinary(n, "SUB")

	case NodeM:
		if err := cg.gen(n.Children[0]); err != nil {
			return err
		}
		if len(n.Tokens) > 0 {
			cg.line("MULT -1")
		}
		return nil

	case NodeR:
		if len(n.Children) > 0 {
			return cg.gen(n.Children[0])
		}
		tok := n.Tokens[0]
		if tok.Type == INTEGER {
			cg.line("LOAD %s", tok.Lexeme)
			return nil
		}
		off, err := cg.resolve(tok)
		if err != nil {
			return err
		}
		cg.line("STACKR %d", off)
		return nil

	case NodeRO:
		return errors.Errorf("line %d: relational operator outside a condition", n.Tokens[0].Line)

	default:
		return errors.Errorf("generate: unhandled node %s", n.Kind)
	}
}

// resolve returns the runtime stack offset of a visible variable.
func (cg *CodeGen) resolve(id Token) (int, error) {
	_, off, ok := cg.syms.Visible(SymbolVariable, id.Lexeme)
	if !ok {
		cg.log.Debug("undeclared variable", zap.String("name", id.Lexeme), zap.Int("line", id.Line),
			zap.Stringer("symbols", cg.syms))
		return 0, semanticError(ErrUndeclaredVariable, id)
	}
	return off, nil
}

// genBinary handles `x op y` and the single-operand pass-through.
// y is evaluated first and stored so that x ends in the accumulator.
func (cg *CodeGen) genBinary(n *Node, op string) error {
	if len(n.Children) == 1 {
		return cg.gen(n.Children[0])
	}
	if err := cg.gen(n.Children[1]); err != nil {
		return err
	}
	t := cg.newTemp()
	cg.line("STORE %s", t)
	if err := cg.gen(n.Children[0]); err != nil {
		return err
	}
	cg.line("%s %s", op, t)
	return nil
}

// genCondition evaluates `left RO right` and branches to exit when it is false.
func (cg *CodeGen) genCondition(left, ro, right *Node, exit string) error {
	if err := cg.gen(right); err != nil {
		return err
	}
	t := cg.newTemp()
	cg.line("STORE %s", t)
	if err := cg.gen(left); err != nil {
		return err
	}
	switch ro.Tokens[0].Type {
	case GREATER:
		cg.line("SUB %s", t)
		cg.line("BRZNEG %s", exit)
	case LESS:
		cg.line("SUB %s", t)
		cg.line("BRZPOS %s", exit)
	case EQUALS_EQUALS:
		cg.line("SUB %s", t)
		cg.line("BRPOS %s", exit)
		cg.line("BRNEG %s", exit)
	case LBRACE: // { == } is "not equal"
		cg.line("SUB %s", t)
		cg.line("BRZERO %s", exit)
	case PERCENT: // same sign
		cg.line("MULT %s", t)
		cg.line("BRNEG %s", exit)
	default:
		return errors.Errorf("line %d: unknown relational operator %q", ro.Tokens[0].Line, ro.Tokens[0].Lexeme)
	}
	return nil
}

// genIf lays out
//
//	<test → Lelse or Lend>  <then>  [BR Lend  Lelse: NOOP  <else>]  Lend: NOOP
func (cg *CodeGen) genIf(n *Node) error {
	hasElse := len(n.Children) == 5
	end := cg.newLabel()
	exit := end
	var els string
	if hasElse {
		els = cg.newLabel()
		exit = els
	}
	cg.comment("if")
	if err := cg.genCondition(n.Children[0], n.Children[1], n.Children[2], exit); err != nil {
		return err
	}
	if err := cg.gen(n.Children[3]); err != nil {
		return err
	}
	if hasElse {
		cg.line("BR %s", end)
		cg.line("%s: NOOP", els)
		if err := cg.gen(n.Children[4]); err != nil {
			return err
		}
	}
	cg.line("%s: NOOP", end)
	return nil
}

// genLoop lays out
//
//	Lstart: NOOP  <test → Lend>  <body>  BR Lstart  Lend: NOOP
func (cg *CodeGen) genLoop(n *Node) error {
	start, end := cg.newLabel(), cg.newLabel()
	cg.comment("while")
	cg.line("%s: NOOP", start)
	if err := cg.genCondition(n.Children[0], n.Children[1], n.Children[2], end); err != nil {
		return err
	}
	if err := cg.gen(n.Children[3]); err != nil {
		return err
	}
	cg.line("BR %s", start)
	cg.line("%s: NOOP", end)
	return nil
}

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Op is an instruction of the accumulator/stack machine.
type Op uint8

const (
	OpNOOP Op = iota
	OpSTOP
	OpLOAD
	OpSTORE
	OpADD
	OpSUB
	OpMULT
	OpDIV
	OpREAD
	OpWRITE
	OpPUSH
	OpPOP
	OpSTACKR
	OpSTACKW
	OpBR
	OpBRNEG
	OpBRZNEG
	OpBRPOS
	OpBRZPOS
	OpBRZERO
	numOps
)

var opNames = [...]string{
	OpNOOP: "NOOP", OpSTOP: "STOP",
	OpLOAD: "LOAD", OpSTORE: "STORE",
	OpADD: "ADD", OpSUB: "SUB", OpMULT: "MULT", OpDIV: "DIV",
	OpREAD: "READ", OpWRITE: "WRITE",
	OpPUSH: "PUSH", OpPOP: "POP", OpSTACKR: "STACKR", OpSTACKW: "STACKW",
	OpBR: "BR", OpBRNEG: "BRNEG", OpBRZNEG: "BRZNEG", OpBRPOS: "BRPOS", OpBRZPOS: "BRZPOS", OpBRZERO: "BRZERO",
}

func (o Op) String() string {
	if o < numOps {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Mode says how Instruction.Arg is interpreted.
type Mode uint8

const (
	ModeNone      Mode = iota
	ModeImmediate      // Arg is the value
	ModeStorage        // Arg is a storage slot
	ModeStack          // Arg is an offset from the top of the stack
	ModeLabel          // Arg is an instruction index
)

type Instruction struct {
	Op   Op
	Mode Mode
	Arg  int
	Line int // source line of the assembly, 0 if unknown
}

func (in Instruction) String() string {
	if in.Mode == ModeNone {
		return in.Op.String()
	}
	return fmt.Sprintf("%s %d", in.Op, in.Arg)
}

// Program is an assembled, fully resolved program.
type Program struct {
	Code  []Instruction
	Slots []string // storage names, indexed by slot
	Init  []int    // initial storage values, indexed by slot
}

// Slot returns the storage slot of name.
func (p *Program) Slot(name string) (int, bool) {
	for i, s := range p.Slots {
		if s == name {
			return i, true
		}
	}
	return -1, false
}

// DefaultStackLimit is the runtime stack depth used when Config.StackLimit is 0.
const DefaultStackLimit = 1000

var (
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrStackOffset    = errors.New("stack offset out of range")
	ErrDivideByZero   = errors.New("division by zero")
	ErrNoInput        = errors.New("input exhausted")
	ErrBadInput       = errors.New("input is not an integer")
	ErrPCOutOfRange   = errors.New("program counter out of range")
	ErrStepLimit      = errors.New("step limit reached")
	ErrBadOperand     = errors.New("invalid operand mode")
)

// Fault is a runtime error annotated with the faulting instruction.
type Fault struct {
	PC    int
	Instr Instruction
	Err   error
}

func (f *Fault) Error() string {
	if f.Instr.Line > 0 {
		return fmt.Sprintf("pc %d (%s, line %d): %v", f.PC, f.Instr, f.Instr.Line, f.Err)
	}
	return fmt.Sprintf("pc %d (%s): %v", f.PC, f.Instr, f.Err)
}

func (f *Fault) Cause() error  { return f.Err }
func (f *Fault) Unwrap() error { return f.Err }

type Config struct {
	// Input supplies whitespace-separated integers for READ. Nil means os.Stdin.
	Input io.Reader
	// Output receives one line per WRITE. Nil means os.Stdout.
	Output io.Writer
	// MaxSteps stops runaway programs; 0 is unlimited.
	MaxSteps int
	// StackLimit bounds the runtime stack; 0 means DefaultStackLimit.
	StackLimit int
}

// CPU executes a Program. It has one accumulator, a runtime stack that
// grows with PUSH, and named storage cells declared by the program.
type CPU struct {
	Acc     int
	PC      int
	Stack   []int
	Storage []int
	Steps   int
	Halted  bool

	cfg  Config
	prog *Program
	in   *bufio.Scanner
}

func NewCPU(p *Program, cfg Config) *CPU {
	if cfg.StackLimit <= 0 {
		cfg.StackLimit = DefaultStackLimit
	}
	c := &CPU{cfg: cfg, prog: p}
	c.Storage = append([]int(nil), p.Init...)
	return c
}

func (c *CPU) outputSink() io.Writer {
	if c.cfg.Output != nil {
		return c.cfg.Output
	}
	return os.Stdout
}

func (c *CPU) input() *bufio.Scanner {
	if c.in == nil {
		r := c.cfg.Input
		if r == nil {
			r = os.Stdin
		}
		c.in = bufio.NewScanner(r)
		c.in.Split(bufio.ScanWords)
	}
	return c.in
}

// Load returns the value of storage cell name.
func (c *CPU) Load(name string) (int, bool) {
	slot, ok := c.prog.Slot(name)
	if !ok {
		return 0, false
	}
	return c.Storage[slot], true
}

func (c *CPU) value(in Instruction) (int, error) {
	switch in.Mode {
	case ModeImmediate:
		return in.Arg, nil
	case ModeStorage:
		return c.Storage[in.Arg], nil
	}
	return 0, ErrBadOperand
}

func (c *CPU) stackIndex(off int) (int, error) {
	i := len(c.Stack) - 1 - off
	if off < 0 || i < 0 {
		return 0, ErrStackOffset
	}
	return i, nil
}

// Step executes one instruction.
func (c *CPU) Step() error {
	if c.Halted {
		return nil
	}
	if c.PC < 0 || c.PC >= len(c.prog.Code) {
		return &Fault{PC: c.PC, Err: ErrPCOutOfRange}
	}
	if c.cfg.MaxSteps > 0 && c.Steps >= c.cfg.MaxSteps {
		return &Fault{PC: c.PC, Instr: c.prog.Code[c.PC], Err: ErrStepLimit}
	}
	in := c.prog.Code[c.PC]
	pc := c.PC
	c.PC++
	c.Steps++
	if err := c.exec(in); err != nil {
		return &Fault{PC: pc, Instr: in, Err: err}
	}
	return nil
}

func (c *CPU) exec(in Instruction) error {
	switch in.Op {
	case OpNOOP:
	case OpSTOP:
		c.Halted = true

	case OpLOAD:
		v, err := c.value(in)
		if err != nil {
			return err
		}
		c.Acc = v
	case OpSTORE:
		if in.Mode != ModeStorage {
			return ErrBadOperand
		}
		c.Storage[in.Arg] = c.Acc

	case OpADD, OpSUB, OpMULT, OpDIV:
		v, err := c.value(in)
		if err != nil {
			return err
		}
		switch in.Op {
		case OpADD:
			c.Acc += v
		case OpSUB:
			c.Acc -= v
		case OpMULT:
			c.Acc *= v
		case OpDIV:
			if v == 0 {
				return ErrDivideByZero
			}
			c.Acc /= v
		}

	case OpREAD:
		if in.Mode != ModeStorage {
			return ErrBadOperand
		}
		s := c.input()
		if !s.Scan() {
			if err := s.Err(); err != nil {
				return errors.Wrap(err, "read input")
			}
			return ErrNoInput
		}
		v, err := strconv.Atoi(s.Text())
		if err != nil {
			return errors.Wrapf(ErrBadInput, "%q", s.Text())
		}
		c.Storage[in.Arg] = v
	case OpWRITE:
		v, err := c.value(in)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(c.outputSink(), v); err != nil {
			return errors.Wrap(err, "write output")
		}

	case OpPUSH:
		if len(c.Stack) >= c.cfg.StackLimit {
			return ErrStackOverflow
		}
		c.Stack = append(c.Stack, 0)
	case OpPOP:
		if len(c.Stack) == 0 {
			return ErrStackUnderflow
		}
		c.Stack = c.Stack[:len(c.Stack)-1]
	case OpSTACKR:
		i, err := c.stackIndex(in.Arg)
		if err != nil {
			return err
		}
		c.Acc = c.Stack[i]
	case OpSTACKW:
		i, err := c.stackIndex(in.Arg)
		if err != nil {
			return err
		}
		c.Stack[i] = c.Acc

	case OpBR, OpBRNEG, OpBRZNEG, OpBRPOS, OpBRZPOS, OpBRZERO:
		if in.Mode != ModeLabel {
			return ErrBadOperand
		}
		if c.taken(in.Op) {
			c.PC = in.Arg
		}

	default:
		return errors.Errorf("unknown opcode %d", in.Op)
	}
	return nil
}

func (c *CPU) taken(op Op) bool {
	switch op {
	case OpBRNEG:
		return c.Acc < 0
	case OpBRZNEG:
		return c.Acc <= 0
	case OpBRPOS:
		return c.Acc > 0
	case OpBRZPOS:
		return c.Acc >= 0
	case OpBRZERO:
		return c.Acc == 0
	}
	return true
}

// Run steps until STOP or the first fault.
func (c *CPU) Run() error {
	for !c.Halted {
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

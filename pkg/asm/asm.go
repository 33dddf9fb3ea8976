package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"flc/pkg/cpu"

	"github.com/elliotchance/orderedmap/v2"
)

var zeroOperandOps = map[string]cpu.Op{
	"NOOP": cpu.OpNOOP,
	"STOP": cpu.OpSTOP,
	"PUSH": cpu.OpPUSH,
	"POP":  cpu.OpPOP,
}

// valueOps take an integer or a storage name.
var valueOps = map[string]cpu.Op{
	"LOAD":  cpu.OpLOAD,
	"ADD":   cpu.OpADD,
	"SUB":   cpu.OpSUB,
	"MULT":  cpu.OpMULT,
	"DIV":   cpu.OpDIV,
	"WRITE": cpu.OpWRITE,
}

// storageOps take a storage name only.
var storageOps = map[string]cpu.Op{
	"STORE": cpu.OpSTORE,
	"READ":  cpu.OpREAD,
}

// stackOps take a non-negative offset from the top of the stack.
var stackOps = map[string]cpu.Op{
	"STACKR": cpu.OpSTACKR,
	"STACKW": cpu.OpSTACKW,
}

var branchOps = map[string]cpu.Op{
	"BR":     cpu.OpBR,
	"BRNEG":  cpu.OpBRNEG,
	"BRZNEG": cpu.OpBRZNEG,
	"BRPOS":  cpu.OpBRPOS,
	"BRZPOS": cpu.OpBRZPOS,
	"BRZERO": cpu.OpBRZERO,
}

// Assembler turns assembly text into a cpu.Program in two passes: the first
// collects labels and storage declarations, the second resolves operands.
//
//	L0: NOOP        ; label on an instruction
//	    LOAD 5
//	    STORE T0
//	    STOP
//	T0 0            ; storage cell with its initial value
type Assembler struct {
	labels  map[string]int
	storage *orderedmap.OrderedMap[string, int]
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
	storage  bool // NAME VALUE declaration
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels:  make(map[string]int),
		storage: orderedmap.NewOrderedMap[string, int](),
	}
}

func Assemble(code string) (*cpu.Program, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) (*cpu.Program, error) {
	lines := strings.Split(code, "\n")
	parsed := make([]parsedLine, 0, len(lines))
	for i, raw := range lines {
		p, err := parseLine(raw, i+1)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, p)
	}

	if err := a.pass1(parsed); err != nil {
		return nil, err
	}
	return a.pass2(parsed)
}

func (a *Assembler) pass1(lines []parsedLine) error {
	address := 0
	for _, p := range lines {
		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, p.lineNo)
			}
			a.labels[lbl] = address
		}

		if p.storage {
			name := p.mnemonic
			if _, exists := a.storage.Get(name); exists {
				return fmt.Errorf("duplicate storage '%s' on line %d", name, p.lineNo)
			}
			v, err := strconv.Atoi(p.operands[0])
			if err != nil {
				return fmt.Errorf("invalid initial value for '%s' on line %d: %s", name, p.lineNo, p.operands[0])
			}
			a.storage.Set(name, v)
			continue
		}

		if p.mnemonic == "" {
			continue
		}
		if _, ok := operandCount(p.mnemonic); !ok {
			return fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
		}
		address++
	}
	return nil
}

func (a *Assembler) pass2(lines []parsedLine) (*cpu.Program, error) {
	prog := &cpu.Program{}
	slots := make(map[string]int, a.storage.Len())
	for el := a.storage.Front(); el != nil; el = el.Next() {
		slots[el.Key] = len(prog.Slots)
		prog.Slots = append(prog.Slots, el.Key)
		prog.Init = append(prog.Init, el.Value)
	}

	for _, p := range lines {
		if p.mnemonic == "" || p.storage {
			continue
		}
		want, _ := operandCount(p.mnemonic)
		if len(p.operands) != want {
			return nil, fmt.Errorf("%s expects %d operand(s) on line %d, got %d", p.mnemonic, want, p.lineNo, len(p.operands))
		}

		in := cpu.Instruction{Line: p.lineNo}
		if op, ok := zeroOperandOps[p.mnemonic]; ok {
			in.Op = op
		} else if op, ok := valueOps[p.mnemonic]; ok {
			in.Op = op
			if v, err := strconv.Atoi(p.operands[0]); err == nil {
				in.Mode, in.Arg = cpu.ModeImmediate, v
			} else {
				slot, err := lookupSlot(slots, p.operands[0], p.lineNo)
				if err != nil {
					return nil, err
				}
				in.Mode, in.Arg = cpu.ModeStorage, slot
			}
		} else if op, ok := storageOps[p.mnemonic]; ok {
			slot, err := lookupSlot(slots, p.operands[0], p.lineNo)
			if err != nil {
				return nil, err
			}
			in.Op, in.Mode, in.Arg = op, cpu.ModeStorage, slot
		} else if op, ok := stackOps[p.mnemonic]; ok {
			off, err := strconv.Atoi(p.operands[0])
			if err != nil || off < 0 {
				return nil, fmt.Errorf("invalid stack offset '%s' on line %d", p.operands[0], p.lineNo)
			}
			in.Op, in.Mode, in.Arg = op, cpu.ModeStack, off
		} else if op, ok := branchOps[p.mnemonic]; ok {
			target, exists := a.labels[p.operands[0]]
			if !exists {
				return nil, fmt.Errorf("undefined label '%s' on line %d", p.operands[0], p.lineNo)
			}
			in.Op, in.Mode, in.Arg = op, cpu.ModeLabel, target
		}
		prog.Code = append(prog.Code, in)
	}
	return prog, nil
}

func lookupSlot(slots map[string]int, name string, lineNo int) (int, error) {
	if slot, ok := slots[name]; ok {
		return slot, nil
	}
	if isIdentifier(name) {
		return 0, fmt.Errorf("undefined storage '%s' on line %d", name, lineNo)
	}
	return 0, fmt.Errorf("invalid operand '%s' on line %d", name, lineNo)
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}
	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			break
		}
		before := strings.TrimSpace(line[:colon])
		if !isIdentifier(before) {
			return p, fmt.Errorf("invalid label '%s' on line %d", before, lineNo)
		}
		p.labels = append(p.labels, before)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(line)
	mnemonic := strings.ToUpper(fields[0])
	p.operands = fields[1:]
	if _, ok := operandCount(mnemonic); ok {
		p.mnemonic = mnemonic
		return p, nil
	}

	// anything else must be a storage declaration: NAME VALUE
	if len(fields) == 2 && isIdentifier(fields[0]) {
		if len(p.labels) > 0 {
			return p, fmt.Errorf("label on storage declaration '%s' on line %d", fields[0], lineNo)
		}
		p.mnemonic = fields[0]
		p.storage = true
		return p, nil
	}
	return p, fmt.Errorf("unknown instruction on line %d: %s", lineNo, fields[0])
}

func stripComments(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}

// operandCount returns how many operands mnemonic takes.
func operandCount(mnemonic string) (int, bool) {
	if _, ok := zeroOperandOps[mnemonic]; ok {
		return 0, true
	}
	for _, m := range []map[string]cpu.Op{valueOps, storageOps, stackOps, branchOps} {
		if _, ok := m[mnemonic]; ok {
			return 1, true
		}
	}
	return 0, false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '$' {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			return false
		}
	}
	return true
}

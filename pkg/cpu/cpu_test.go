package cpu

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imm(op Op, v int) Instruction   { return Instruction{Op: op, Mode: ModeImmediate, Arg: v} }
func mem(op Op, slot int) Instruction { return Instruction{Op: op, Mode: ModeStorage, Arg: slot} }
func stk(op Op, off int) Instruction  { return Instruction{Op: op, Mode: ModeStack, Arg: off} }
func br(op Op, to int) Instruction    { return Instruction{Op: op, Mode: ModeLabel, Arg: to} }
func bare(op Op) Instruction          { return Instruction{Op: op} }

// program builds a Program with storage cells T0..Tn-1 all starting at 0.
func program(cells int, code ...Instruction) *Program {
	p := &Program{Code: code}
	for i := 0; i < cells; i++ {
		p.Slots = append(p.Slots, "T"+string(rune('0'+i)))
		p.Init = append(p.Init, 0)
	}
	return p
}

func TestALU(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		a, b int
		want int
	}{
		{"ADD", OpADD, 10, 20, 30},
		{"SUB", OpSUB, 10, 20, -10},
		{"MULT", OpMULT, -3, 7, -21},
		{"DIV", OpDIV, 7, 2, 3},
		{"DIV Negative", OpDIV, -7, 2, -3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCPU(program(1,
				imm(OpLOAD, tc.b),
				mem(OpSTORE, 0),
				imm(OpLOAD, tc.a),
				mem(tc.op, 0),
				bare(OpSTOP),
			), Config{})
			require.NoError(t, c.Run())
			assert.Equal(t, tc.want, c.Acc)
			assert.True(t, c.Halted)
			assert.Equal(t, 5, c.Steps)
		})
	}
}

func TestImmediateOperands(t *testing.T) {
	c := NewCPU(program(0, imm(OpLOAD, 6), imm(OpMULT, -1), imm(OpADD, 2), bare(OpSTOP)), Config{})
	require.NoError(t, c.Run())
	assert.Equal(t, -4, c.Acc)
}

func TestStackOps(t *testing.T) {
	c := NewCPU(program(0,
		bare(OpPUSH),
		imm(OpLOAD, 4),
		stk(OpSTACKW, 0),
		bare(OpPUSH),
		imm(OpLOAD, 9),
		stk(OpSTACKW, 0),
		stk(OpSTACKR, 1),
		bare(OpSTOP),
	), Config{})
	require.NoError(t, c.Run())
	assert.Equal(t, 4, c.Acc)
	assert.Equal(t, []int{4, 9}, c.Stack)
}

func TestBranches(t *testing.T) {
	tests := []struct {
		op    Op
		taken [3]bool // acc -1, 0, 1
	}{
		{OpBR, [3]bool{true, true, true}},
		{OpBRNEG, [3]bool{true, false, false}},
		{OpBRZNEG, [3]bool{true, true, false}},
		{OpBRPOS, [3]bool{false, false, true}},
		{OpBRZPOS, [3]bool{false, true, true}},
		{OpBRZERO, [3]bool{false, true, false}},
	}
	for _, tc := range tests {
		t.Run(tc.op.String(), func(t *testing.T) {
			for i, acc := range []int{-1, 0, 1} {
				// taken: skip the LOAD 100 and stop with the original accumulator
				c := NewCPU(program(0,
					imm(OpLOAD, acc),
					br(tc.op, 3),
					imm(OpLOAD, 100),
					bare(OpSTOP),
				), Config{})
				require.NoError(t, c.Run())
				assert.Equal(t, tc.taken[i], c.Acc != 100, "acc %d", acc)
			}
		})
	}
}

func TestReadWrite(t *testing.T) {
	var out bytes.Buffer
	c := NewCPU(program(2,
		mem(OpREAD, 0),
		mem(OpREAD, 1),
		mem(OpLOAD, 0),
		mem(OpADD, 1),
		mem(OpSTORE, 0),
		mem(OpWRITE, 0),
		imm(OpWRITE, -8),
		bare(OpSTOP),
	), Config{Input: strings.NewReader(" 40\n  2 "), Output: &out})
	require.NoError(t, c.Run())
	assert.Equal(t, "42\n-8\n", out.String())

	v, ok := c.Load("T0")
	require.True(t, ok)
	assert.Equal(t, 42, v)
	_, ok = c.Load("nope")
	assert.False(t, ok)
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name string
		prog *Program
		cfg  Config
		err  error
	}{
		{"Pop Empty", program(0, bare(OpPOP)), Config{}, ErrStackUnderflow},
		{"Divide By Zero", program(0, imm(OpLOAD, 1), imm(OpDIV, 0)), Config{}, ErrDivideByZero},
		{"Stack Offset", program(0, bare(OpPUSH), stk(OpSTACKR, 1)), Config{}, ErrStackOffset},
		{"No Input", program(1, mem(OpREAD, 0)), Config{Input: strings.NewReader("")}, ErrNoInput},
		{"Bad Input", program(1, mem(OpREAD, 0)), Config{Input: strings.NewReader("abc")}, ErrBadInput},
		{"Stack Limit", program(0, bare(OpPUSH), bare(OpPUSH), bare(OpPUSH)), Config{StackLimit: 2}, ErrStackOverflow},
		{"Step Limit", program(0, br(OpBR, 0)), Config{MaxSteps: 50}, ErrStepLimit},
		{"Run Off The End", program(0, bare(OpNOOP)), Config{}, ErrPCOutOfRange},
		{"Store Immediate", program(0, imm(OpSTORE, 1)), Config{}, ErrBadOperand},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCPU(tc.prog, tc.cfg)
			err := c.Run()
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.err)

			var f *Fault
			require.ErrorAs(t, err, &f)
			assert.False(t, c.Halted)
		})
	}
}

func TestFaultMessage(t *testing.T) {
	c := NewCPU(&Program{Code: []Instruction{{Op: OpPOP, Line: 12}}}, Config{})
	err := c.Run()
	require.Error(t, err)
	assert.Equal(t, "pc 0 (POP, line 12): stack underflow", err.Error())
}

func TestStepAfterHalt(t *testing.T) {
	c := NewCPU(program(0, bare(OpSTOP)), Config{})
	require.NoError(t, c.Run())
	require.NoError(t, c.Step())
	assert.Equal(t, 1, c.Steps)
}

func TestStorageInitialValues(t *testing.T) {
	p := &Program{
		Code:  []Instruction{mem(OpLOAD, 1), bare(OpSTOP)},
		Slots: []string{"a", "b"},
		Init:  []int{3, 11},
	}
	c := NewCPU(p, Config{})
	require.NoError(t, c.Run())
	assert.Equal(t, 11, c.Acc)
	// running must not change the program's initial values
	c.Storage[1] = 0
	assert.Equal(t, 11, p.Init[1])
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "STACKW", OpSTACKW.String())
	assert.Equal(t, "Op(200)", Op(200).String())
	assert.Equal(t, "LOAD 5", imm(OpLOAD, 5).String())
	assert.Equal(t, "STOP", bare(OpSTOP).String())
}

package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3os/memory"
)

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))
	assert.Equal(uint16(memory.PC_START), prog.Origin)

	assert.Equal("0x3000", asm.Equate["PC_START"])
	assert.Equal("0x4000", asm.Equate["HEAP_START"])
	assert.Equal("11", asm.Equate["VPN_SHIFT"])
	assert.Equal("0x25", asm.Equate["TRAP_HALT"])
	assert.Equal("0x29", asm.Equate["TRAP_BRK"])
	assert.Equal("4", asm.Equate["BRK_WRITE"])
}

func TestTokenize(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		line  string
		words []string
	}{
		{"", nil},
		{"   ; only a comment", nil},
		{"LOOP: add r0,r0,#1 ; count", []string{"LOOP:", "add", "r0", "r0", "#1"}},
		{`.stringz "a, b;c"`, []string{".stringz", `"a, b;c"`}},
		{`.stringz "say \"hi\""`, []string{".stringz", `"say \"hi\""`}},
		{".fill $(1 + (2 * 3))", []string{".fill", "$(1 + (2 * 3))"}},
		{".fill ';'", []string{".fill", "';'"}},
	}

	for _, entry := range table {
		words, err := tokenize(entry.line)
		assert.NoError(err, entry.line)
		assert.Equal(entry.words, words, entry.line)
	}

	_, err := tokenize(`.stringz "open`)
	assert.ErrorIs(err, ErrQuoteUnterminated)

	_, err = tokenize(`.fill $(1 + 2`)
	assert.ErrorIs(err, ErrParenUnterminated)
}

func TestBrCond(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		mnemonic string
		cond     CodeCond
		ok       bool
	}{
		{"br", COND_NZP, true},
		{"brn", COND_N, true},
		{"brzp", COND_Z | COND_P, true},
		{"brnzp", COND_NZP, true},
		{"brpz", 0, false},
		{"brx", 0, false},
		{"add", 0, false},
	}

	for _, entry := range table {
		cond, ok := brCond(entry.mnemonic)
		assert.Equal(entry.ok, ok, entry.mnemonic)
		if ok {
			assert.Equal(entry.cond, cond, entry.mnemonic)
		}
	}
}

func TestAssemblerProgram(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		"        .orig x3000",
		"LOOP    add r0, r0, #1",
		"        YIELD",
		"        brnzp LOOP",
		"        halt",
		"DATA    .fill xBEEF",
		`MSG:    .stringz "hi"`,
		"        .blkw 2, #7",
		"        .end",
		"        this is not assembled",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if !assert.NoError(err) {
		return
	}

	assert.Equal(uint16(0x3000), prog.Origin)
	assert.Equal(uint16(0x3000), asm.Label["LOOP"])
	assert.Equal(uint16(0x3004), asm.Label["DATA"])
	assert.Equal(uint16(0x3005), asm.Label["MSG"])

	expected := []uint16{
		0x1021, // add r0, r0, #1
		0xf028, // yield
		0x0ffd, // brnzp LOOP
		0xf025, // halt
		0xbeef,
		'h', 'i', 0,
		7, 7,
	}
	assert.Equal(expected, prog.Binary())

	assert.Equal(7, len(prog.Opcodes))
	assert.Equal(5, prog.Opcodes[3].LineNo)
	assert.Equal([]string{"halt"}, prog.Opcodes[3].Words)
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		".equ COUNT #3",
		".equ TWICE $(COUNT * 2)",
		".orig PC_START",
		"and r1, r1, #0",
		"add r1, r1, COUNT",
		"add r1, r1, $(TWICE - 1)",
		"ld r2, VALUE",
		"lea r3, VALUE",
		"trap TRAP_OUTU16",
		"VALUE .fill $(HEAP_START + TWICE)",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if !assert.NoError(err) {
		return
	}

	assert.Equal("6", asm.Equate["TWICE"])
	assert.Equal([]uint16{0x5260, 0x1263, 0x1265, 0x2402, 0xe601, 0xf027, 0x4006}, prog.Binary())
}

func TestAssemblerPredefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("PAGE", "9")

	prog, err := asm.Parse(strings.NewReader(".fill $(PAGE << VPN_SHIFT | BRK_ALLOC | BRK_READ | BRK_WRITE)"))
	if !assert.NoError(err) {
		return
	}

	assert.Equal([]uint16{0x4807}, prog.Binary())
}

func TestAssemblerCharacter(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(".fill 'A'\n.fill '\\n'\nadd r0, r0, #-16\n.fill #-1"))
	if !assert.NoError(err) {
		return
	}

	assert.Equal([]uint16{'A', '\n', 0x1030, 0xffff}, prog.Binary())
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		name   string
		source string
		err    error
		lineno int
	}{
		{"imm_range", "add r0, r0, #16", ErrRange{Value: 16, Bits: 5}, 1},
		{"register", "add r0, r9, #1", ErrRegisterInvalid, 1},
		{"label_missing", "halt\nld r0, NOWHERE", ErrLabelMissing("NOWHERE"), 2},
		{"label_duplicate", "A halt\nA halt", ErrLabelDuplicate, 2},
		{"value_missing", "add r0, r0", ErrOpcodeValueMissing, 1},
		{"extra_args", "halt r0", ErrOpcodeExtraArgs, 1},
		{"unterminated", `.stringz "abc`, ErrQuoteUnterminated, 1},
		{"unknown", "frob r0", ErrOpcodeInvalid, 1},
		{"directive", ".bogus 1", ErrOpcodeInvalid, 1},
		{"equ_syntax", ".equ X", ErrEquateSyntax, 1},
		{"equ_duplicate", ".equ X 1\n.equ X 2", ErrEquateDuplicate, 2},
		{"expression", "add r0, r0, $(1 +)", ErrParseExpression("1 +"), 1},
		{"branch_range", ".orig x3000\nbr x1000", ErrRange{Value: 0x1000, Bits: 9}, 2},
		{"orig_twice", "halt\n.orig x4000", ErrOrigDuplicate, 2},
		{"fill_range", ".fill x10000", ErrRange{Value: 0x10000, Bits: 16}, 1},
		{"trap_range", "trap x100", ErrRange{Value: 0x100, Bits: 8}, 1},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(entry.source))
		assert.ErrorIs(err, entry.err, entry.name)

		var syntaxErr *ErrSyntax
		if assert.True(errors.As(err, &syntaxErr), entry.name) {
			assert.Equal(entry.lineno, syntaxErr.LineNo, entry.name)
		}
	}
}

func TestAssemblerRuns(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		".orig x3000",
		"      and r0, r0, #0",
		"      ld r1, COUNT",
		"LOOP  add r0, r0, #2",
		"      add r1, r1, #-1",
		"      brp LOOP",
		"      lea r6, HEAP",
		"      ldr r6, r6, #0",
		"      str r0, r6, #3",
		"      halt",
		"COUNT .fill #5",
		"HEAP  .fill HEAP_START",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if !assert.NoError(err) {
		return
	}

	codes := []Code{}
	for _, word := range prog.Binary() {
		codes = append(codes, Code(word))
	}

	cpu, traps := newTestCpu(t, codes...)
	for err == nil {
		err = cpu.Tick()
	}
	assert.ErrorIs(err, ErrHalted)
	assert.Equal([]CodeTrap{TRAP_HALT}, traps.vectors)
	assert.Equal(uint16(10), cpu.Register[0])

	value, err := cpu.Read(memory.HEAP_START + 3)
	assert.NoError(err)
	assert.Equal(uint16(10), value)
}

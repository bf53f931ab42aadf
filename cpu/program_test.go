package cpu

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testProgram() *Program {
	return &Program{
		Origin: 0x3000,
		Opcodes: []Opcode{
			{LineNo: 1, Address: 0x3000, Words: []string{"add", "r0", "r0", "#1"},
				Codes: []Code{MakeCodeImm(OP_ADD, 0, 0, 1)}},
			{LineNo: 2, Address: 0x3001, Words: []string{".stringz", `"ok"`},
				Codes: []Code{'o', 'k', 0}},
			{LineNo: 4, Address: 0x3006, Words: []string{"halt"},
				Codes: []Code{MakeCodeTrap(TRAP_HALT)}},
		},
	}
}

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	dbg := prog.Debug(0x3000)
	if assert.NotNil(dbg.Opcode) {
		assert.Equal(1, dbg.Opcode.LineNo)
		assert.Equal(0, dbg.Index)
	}

	dbg = prog.Debug(0x3003)
	if assert.NotNil(dbg.Opcode) {
		assert.Equal(2, dbg.Opcode.LineNo)
		assert.Equal(2, dbg.Index)
	}

	dbg = prog.Debug(0x3004)
	assert.Nil(dbg.Opcode)
	assert.Equal(0, dbg.Index)
}

func TestProgram_Codes(t *testing.T) {
	assert := assert.New(t)

	var addrs []uint16
	for addr := range testProgram().Codes() {
		addrs = append(addrs, addr)
		if addr == 0x3002 {
			break
		}
	}

	assert.Equal([]uint16{0x3000, 0x3001, 0x3002}, addrs)
}

func TestProgram_Binary(t *testing.T) {
	assert := assert.New(t)

	bins := testProgram().Binary()
	assert.Equal([]uint16{0x1021, 'o', 'k', 0, 0, 0, 0xf025}, bins)

	assert.Nil((&Program{}).Binary())
}

func TestProgram_Marshal(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Origin: 0x3000,
		Opcodes: []Opcode{
			{Address: 0x3000, Codes: []Code{0x1234, 0xabcd}},
		},
	}

	var buf bytes.Buffer
	assert.NoError(prog.Marshal(&buf, binary.LittleEndian))
	assert.Equal([]byte{0x34, 0x12, 0xcd, 0xab}, buf.Bytes())

	buf.Reset()
	assert.NoError(prog.Marshal(&buf, binary.BigEndian))
	assert.Equal([]byte{0x12, 0x34, 0xab, 0xcd}, buf.Bytes())
}

package cpu

import (
	"encoding/binary"
	"io"
	"iter"
)

// Opcode is the assembled form of a single source line.
type Opcode struct {
	LineNo  int      // Source line number.
	Address uint16   // Address of the first code.
	Words   []string // Source words.
	Codes   []Code   // Assembled words.
}

// Program is an assembled image.
type Program struct {
	Origin  uint16 // Address of the first word of the image.
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug returns the source line holding the word at addr.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if addr >= op.Address && int(addr) < int(op.Address)+len(op.Codes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr - op.Address),
			}
			break
		}
	}

	return
}

// Codes iterates every assembled word with its address.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			for n, code := range op.Codes {
				if !yield(op.Address+uint16(n), code) {
					return
				}
			}
		}
	}
}

// Binary returns the image as words, starting at Origin.
// Gaps between opcodes are zero filled.
func (prog *Program) Binary() (bins []uint16) {
	for addr, code := range prog.Codes() {
		index := int(addr) - int(prog.Origin)
		if index < 0 {
			continue
		}
		for len(bins) <= index {
			bins = append(bins, 0)
		}
		bins[index] = uint16(code)
	}

	return
}

// Marshal writes the image in the requested byte order.
func (prog *Program) Marshal(w io.Writer, order binary.ByteOrder) (err error) {
	err = binary.Write(w, order, prog.Binary())
	return
}

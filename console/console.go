// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package console implements the character device behind the console traps.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/message"

	"github.com/ezrec/lc3os/translate"
)

// EOF is the character returned by GetChar once input is exhausted.
const EOF = 0xffff

// Console is a blocking byte stream console.
type Console struct {
	Input  io.Reader // Keyboard.
	Output io.Writer // Display.

	reader *bufio.Reader
}

// NewConsole creates a console over an input and output stream.
func NewConsole(input io.Reader, output io.Writer) *Console {
	return &Console{Input: input, Output: output}
}

// in returns the buffered input, created on first use.
func (con *Console) in() *bufio.Reader {
	if con.reader == nil {
		con.reader = bufio.NewReader(con.Input)
	}
	return con.reader
}

// GetChar reads a single byte, blocking until it is available.
// EOF is returned at the end of input.
func (con *Console) GetChar() (c uint16, err error) {
	b, err := con.in().ReadByte()
	if err == io.EOF {
		c = EOF
		err = nil
		return
	}
	if err != nil {
		return
	}

	c = uint16(b)
	return
}

// PutChar writes the low byte of c.
func (con *Console) PutChar(c uint16) (err error) {
	_, err = con.Output.Write([]byte{byte(c)})
	return
}

// ReadUint reads a decimal unsigned number.
// ok is false if no number could be parsed.
func (con *Console) ReadUint() (value uint16, ok bool, err error) {
	_, err = fmt.Fscan(con.in(), &value)
	if err != nil {
		value = 0
		return
	}

	ok = true
	return
}

// WriteUint writes value in decimal, followed by a newline.
func (con *Console) WriteUint(value uint16) (err error) {
	_, err = io.WriteString(con.Output, strconv.FormatUint(uint64(value), 10)+"\n")
	return
}

// Diag writes a translated operating system diagnostic line.
func (con *Console) Diag(key message.Reference, args ...any) (err error) {
	return translate.Fprint(con.Output, key, args...)
}

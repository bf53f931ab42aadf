package cpu

import (
	"errors"

	"github.com/ezrec/lc3os/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrHalted      = errors.New(f("machine halted"))
	ErrTrapInvalid = errors.New(f("trap vector invalid"))
	ErrTrapMissing = errors.New(f("no trap handler"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrOrigSyntax         = errors.New(f(".orig syntax"))
	ErrOrigDuplicate      = errors.New(f(".orig duplicated"))
	ErrStringSyntax       = errors.New(f(".stringz syntax"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrOpcodeInvalid      = errors.New(f("opcode invalid"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrQuoteUnterminated  = errors.New(f("unterminated quote"))
	ErrParenUnterminated  = errors.New(f("unterminated $("))
	ErrProgramSize        = errors.New(f("program exceeds address space"))
)

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrOpcode reports the instruction that failed to execute.
type ErrOpcode Code

func (eo ErrOpcode) Error() string {
	return f("bad opcode 0x%04x %v", uint16(eo), Code(eo).String())
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrRange is a value that does not fit its instruction field.
type ErrRange struct {
	Value int
	Bits  int
}

func (err ErrRange) Error() string {
	return f("%d does not fit in %d bits", err.Value, err.Bits)
}

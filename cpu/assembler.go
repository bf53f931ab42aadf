// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/lc3os/internal"
	"github.com/ezrec/lc3os/memory"
)

// Predefined system equates
var sysEquate = map[string]string{
	"PC_START":   fmt.Sprintf("%#x", memory.PC_START),
	"HEAP_START": fmt.Sprintf("%#x", memory.HEAP_START),
	"PAGE_SIZE":  fmt.Sprintf("%#x", memory.PAGE_SIZE),
	"VPN_SHIFT":  fmt.Sprintf("%d", memory.PAGE_SHIFT),
	"BRK_ALLOC":  fmt.Sprintf("%d", BRK_ALLOC),
	"BRK_READ":   fmt.Sprintf("%d", BRK_READ),
	"BRK_WRITE":  fmt.Sprintf("%d", BRK_WRITE),
}

func init() {
	for vector := TRAP_GETC; vector <= TRAP_BRK; vector++ {
		name := "TRAP_" + strings.ToUpper(vector.String())
		sysEquate[name] = fmt.Sprintf("%#x", int(vector))
	}
}

// trapMap maps trap aliases to their vectors.
var trapMap = map[string]CodeTrap{
	"getc":   TRAP_GETC,
	"out":    TRAP_OUT,
	"puts":   TRAP_PUTS,
	"in":     TRAP_IN,
	"putsp":  TRAP_PUTSP,
	"halt":   TRAP_HALT,
	"inu16":  TRAP_INU16,
	"outu16": TRAP_OUTU16,
	"yield":  TRAP_YIELD,
	"brk":    TRAP_BRK,
}

// opMap maps mnemonics to opcodes. Branches are handled by brCond.
var opMap = map[string]CodeOp{
	"add":  OP_ADD,
	"and":  OP_AND,
	"not":  OP_NOT,
	"ld":   OP_LD,
	"ldi":  OP_LDI,
	"ldr":  OP_LDR,
	"lea":  OP_LEA,
	"st":   OP_ST,
	"sti":  OP_STI,
	"str":  OP_STR,
	"jmp":  OP_JMP,
	"ret":  OP_JMP,
	"jsr":  OP_JSR,
	"jsrr": OP_JSR,
	"trap": OP_TRAP,
	"rti":  OP_RTI,
	"res":  OP_RES,
}

var labelRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// statement is a tokenized source line, waiting for label resolution.
type statement struct {
	lineno  int
	line    string
	words   []string
	address uint16
	size    int
}

// Assembler is a two pass assembler for LC-3 programs.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string // Predefines
	Label     map[string]uint16 // Map of labels to addresses.
	Equate    map[string]string // Map of equates.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// brCond decodes a branch mnemonic. A bare "br" branches always.
func brCond(mnemonic string) (cond CodeCond, ok bool) {
	flags, found := strings.CutPrefix(mnemonic, "br")
	if !found {
		return
	}

	if len(flags) == 0 {
		cond = COND_NZP
		ok = true
		return
	}

	order := "nzp"
	for _, c := range flags {
		index := strings.IndexRune(order, c)
		if index < 0 {
			return
		}
		order = order[index+1:]
		switch c {
		case 'n':
			cond |= COND_N
		case 'z':
			cond |= COND_Z
		case 'p':
			cond |= COND_P
		}
	}

	ok = true
	return
}

// isMnemonic returns true if word is an instruction or directive.
func isMnemonic(word string) bool {
	word = strings.ToLower(word)
	if strings.HasPrefix(word, ".") {
		return true
	}
	if _, ok := opMap[word]; ok {
		return true
	}
	if _, ok := trapMap[word]; ok {
		return true
	}
	_, ok := brCond(word)
	return ok
}

// tokenize splits a line into words.
// Commas and spaces separate words, ';' starts a comment, and quoted
// strings and $(...) groups are kept whole.
func tokenize(line string) (words []string, err error) {
	var word strings.Builder

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == ';':
			flush()
			return
		case c == '"' || c == '\'':
			end := i + 1
			for end < len(line) && line[end] != c {
				if line[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(line) {
				err = ErrQuoteUnterminated
				return
			}
			word.WriteString(line[i : end+1])
			i = end
		case c == '$' && i+1 < len(line) && line[i+1] == '(':
			depth := 0
			end := i + 1
			for ; end < len(line); end++ {
				if line[end] == '(' {
					depth++
				} else if line[end] == ')' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			if end >= len(line) {
				err = ErrParenUnterminated
				return
			}
			word.WriteString(line[i : end+1])
			i = end
		case c == ',' || unicode.IsSpace(rune(c)):
			flush()
		default:
			word.WriteByte(c)
		}
	}

	flush()
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		if strings.HasPrefix(str, "$(") {
			continue
		}
		var v int
		v, err = asm.literal(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(v)
	}
	err = nil
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(int(addr))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// literal returns the value of a numeric word, without label or
// equate lookup.
func (asm *Assembler) literal(word string) (value int, err error) {
	var v64 int64

	switch {
	case len(word) == 0:
		err = ErrParseNumber(word)
		return
	case strings.HasPrefix(word, "$(") && strings.HasSuffix(word, ")"):
		return asm.parenEval(word[2 : len(word)-1])
	case word[0] == '\'':
		var text string
		text, err = strconv.Unquote(word)
		if err != nil || len(text) != 1 {
			err = ErrParseNumber(word)
			return
		}
		value = int(text[0])
		return
	case word[0] == '#':
		v64, err = strconv.ParseInt(word[1:], 10, 32)
	case word[0] == 'x' || word[0] == 'X':
		v64, err = strconv.ParseInt(word[1:], 16, 32)
	case strings.HasPrefix(word, "-x") || strings.HasPrefix(word, "-X"):
		v64, err = strconv.ParseInt(word[2:], 16, 32)
		v64 = -v64
	default:
		v64, err = strconv.ParseInt(word, 0, 32)
	}
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)
	return
}

// resolve substitutes an equate for a word.
func (asm *Assembler) resolve(word string) string {
	equate, ok := asm.Equate[word]
	if ok {
		return equate
	}
	return word
}

// valueOf returns the value of a number, equate or label.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	word = asm.resolve(word)

	addr, ok := asm.Label[word]
	if ok {
		value = int(addr)
		return
	}

	value, err = asm.literal(word)
	if err == nil {
		return
	}

	if labelRegexp.MatchString(word) {
		err = ErrLabelMissing(word)
	}

	return
}

// offsetOf returns a PC relative offset, checked against the field width.
// Labels are converted to an offset from pc; numbers are used as is.
func (asm *Assembler) offsetOf(word string, pc uint16, bits int) (offset int, err error) {
	word = asm.resolve(word)

	addr, ok := asm.Label[word]
	if ok {
		offset = int(int16(addr - pc))
	} else {
		offset, err = asm.literal(word)
		if err != nil {
			if labelRegexp.MatchString(word) {
				err = ErrLabelMissing(word)
			}
			return
		}
	}

	if !internal.FitsSigned(offset, bits) {
		err = ErrRange{Value: offset, Bits: bits}
		return
	}

	return
}

// signedOf returns a value checked against a signed field width.
func (asm *Assembler) signedOf(word string, bits int) (value int, err error) {
	value, err = asm.valueOf(word)
	if err != nil {
		return
	}

	if !internal.FitsSigned(value, bits) {
		err = ErrRange{Value: value, Bits: bits}
		return
	}

	return
}

// register returns the register index named by word.
func (asm *Assembler) register(word string) (r int, err error) {
	word = strings.ToLower(asm.resolve(word))
	if len(word) != 2 || word[0] != 'r' || word[1] < '0' || word[1] > '7' {
		err = ErrRegisterInvalid
		return
	}

	r = int(word[1] - '0')
	return
}

// args checks the argument count of an instruction.
func args(words []string, count int) (err error) {
	switch {
	case len(words) < count:
		err = ErrOpcodeValueMissing
	case len(words) > count:
		err = ErrOpcodeExtraArgs
	}
	return
}

// stringz decodes a .stringz operand into words, including the terminator.
func stringz(word string) (codes []Code, err error) {
	if len(word) < 2 || word[0] != '"' {
		err = ErrStringSyntax
		return
	}

	text, err := strconv.Unquote(word)
	if err != nil {
		err = ErrStringSyntax
		return
	}

	for _, c := range []byte(text) {
		codes = append(codes, Code(c))
	}
	codes = append(codes, 0)

	return
}

// sizeOf returns the number of words a statement occupies.
func (asm *Assembler) sizeOf(words []string) (size int, err error) {
	switch strings.ToLower(words[0]) {
	case ".fill":
		size = 1
	case ".blkw":
		if len(words) < 2 || len(words) > 3 {
			err = args(words[1:], 1)
			return
		}
		size, err = asm.valueOf(words[1])
		if err == nil && size < 0 {
			err = ErrRange{Value: size, Bits: 16}
		}
	case ".stringz":
		if len(words) != 2 {
			err = ErrStringSyntax
			return
		}
		var codes []Code
		codes, err = stringz(words[1])
		size = len(codes)
	default:
		if strings.HasPrefix(words[0], ".") {
			err = ErrOpcodeInvalid
			return
		}
		size = 1
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]uint16, 16)
	asm.Opcode = asm.Opcode[:0]
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	var stmts []statement
	var origin uint16 = memory.PC_START
	var orig_seen bool
	address := int(origin)

	// First pass: assign addresses to labels.
scan:
	for scanner.Scan() {
		line = strings.TrimSpace(scanner.Text())
		lineno += 1

		if asm.Verbose {
			log.Printf("asm: %v: %v", lineno, line)
		}

		var words []string
		words, err = tokenize(line)
		if err != nil {
			return
		}

		if len(words) == 0 {
			continue
		}

		// .equ CONST VALUE
		if strings.ToLower(words[0]) == ".equ" {
			if len(words) != 3 {
				err = ErrEquateSyntax
				return
			}
			_, ok := asm.Equate[words[1]]
			if ok {
				err = ErrEquateDuplicate
				return
			}
			value := words[2]
			if strings.HasPrefix(value, "$(") {
				var v int
				v, err = asm.literal(value)
				if err != nil {
					return
				}
				value = strconv.Itoa(v)
			}
			asm.Equate[words[1]] = value
			continue
		}

		// Labels, with or without a trailing ':'
		for len(words) > 0 {
			label, colon := strings.CutSuffix(words[0], ":")
			if !colon {
				if isMnemonic(label) {
					break
				}
				if len(words) > 1 && !isMnemonic(words[1]) {
					err = ErrOpcodeInvalid
					return
				}
			}
			if !labelRegexp.MatchString(label) {
				err = ErrOpcodeInvalid
				return
			}
			_, ok := asm.Label[label]
			if ok {
				err = ErrLabelDuplicate
				return
			}
			asm.Label[label] = uint16(address)
			words = words[1:]
		}

		if len(words) == 0 {
			continue
		}

		switch strings.ToLower(words[0]) {
		case ".orig":
			if orig_seen || len(stmts) != 0 {
				err = ErrOrigDuplicate
				return
			}
			if len(words) != 2 {
				err = ErrOrigSyntax
				return
			}
			var value int
			value, err = asm.valueOf(words[1])
			if err != nil {
				return
			}
			if !internal.FitsUnsigned(value, 16) {
				err = ErrRange{Value: value, Bits: 16}
				return
			}
			orig_seen = true
			origin = uint16(value)
			address = value
			continue
		case ".end":
			break scan
		}

		var size int
		size, err = asm.sizeOf(words)
		if err != nil {
			return
		}

		stmts = append(stmts, statement{
			lineno:  lineno,
			line:    line,
			words:   words,
			address: uint16(address),
			size:    size,
		})

		address += size
		if address > memory.MEMORY_SIZE {
			err = ErrProgramSize
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	// Second pass: encode.
	for _, stmt := range stmts {
		lineno = stmt.lineno
		line = stmt.line

		var codes []Code
		codes, err = asm.encode(stmt)
		if err != nil {
			return
		}

		if asm.Verbose {
			for n, code := range codes {
				log.Printf("asm: %04x: %04x %v", int(stmt.address)+n, uint16(code), code)
			}
		}

		asm.Opcode = append(asm.Opcode, Opcode{
			LineNo:  stmt.lineno,
			Address: stmt.address,
			Words:   stmt.words,
			Codes:   codes,
		})
	}

	prog = &Program{
		Origin:  origin,
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// encode assembles a single statement.
func (asm *Assembler) encode(stmt statement) (codes []Code, err error) {
	words := stmt.words
	mnemonic := strings.ToLower(words[0])
	operands := words[1:]
	pc := stmt.address + 1

	defer func() {
		if err == nil && len(codes) != stmt.size {
			err = ErrOpcodeInvalid
		}
	}()

	switch mnemonic {
	case ".fill":
		err = args(operands, 1)
		if err != nil {
			return
		}
		var value int
		value, err = asm.valueOf(operands[0])
		if err != nil {
			return
		}
		if value < -0x8000 || value > 0xffff {
			err = ErrRange{Value: value, Bits: 16}
			return
		}
		codes = []Code{Code(uint16(value))}
		return
	case ".blkw":
		fill := 0
		if len(operands) == 2 {
			fill, err = asm.valueOf(operands[1])
			if err != nil {
				return
			}
		}
		codes = make([]Code, stmt.size)
		for n := range codes {
			codes[n] = Code(uint16(fill))
		}
		return
	case ".stringz":
		codes, err = stringz(operands[0])
		return
	}

	if cond, ok := brCond(mnemonic); ok {
		err = args(operands, 1)
		if err != nil {
			return
		}
		var offset int
		offset, err = asm.offsetOf(operands[0], pc, 9)
		if err != nil {
			return
		}
		codes = []Code{MakeCodeBr(cond, offset)}
		return
	}

	if vector, ok := trapMap[mnemonic]; ok {
		err = args(operands, 0)
		if err != nil {
			return
		}
		codes = []Code{MakeCodeTrap(vector)}
		return
	}

	op, ok := opMap[mnemonic]
	if !ok {
		err = ErrOpcodeInvalid
		return
	}

	var code Code

	switch mnemonic {
	case "add", "and":
		err = args(operands, 3)
		if err != nil {
			return
		}
		var dr, sr1, sr2 int
		dr, err = asm.register(operands[0])
		if err != nil {
			return
		}
		sr1, err = asm.register(operands[1])
		if err != nil {
			return
		}
		sr2, err = asm.register(operands[2])
		if err == nil {
			code = MakeCodeReg(op, dr, sr1, sr2)
			break
		}
		var imm int
		imm, err = asm.signedOf(operands[2], 5)
		if err != nil {
			return
		}
		code = MakeCodeImm(op, dr, sr1, imm)
	case "not":
		err = args(operands, 2)
		if err != nil {
			return
		}
		var dr, sr int
		dr, err = asm.register(operands[0])
		if err != nil {
			return
		}
		sr, err = asm.register(operands[1])
		if err != nil {
			return
		}
		code = MakeCodeNot(dr, sr)
	case "ld", "ldi", "lea", "st", "sti":
		err = args(operands, 2)
		if err != nil {
			return
		}
		var r, offset int
		r, err = asm.register(operands[0])
		if err != nil {
			return
		}
		offset, err = asm.offsetOf(operands[1], pc, 9)
		if err != nil {
			return
		}
		code = MakeCodePc(op, r, offset)
	case "ldr", "str":
		err = args(operands, 3)
		if err != nil {
			return
		}
		var r, base, offset int
		r, err = asm.register(operands[0])
		if err != nil {
			return
		}
		base, err = asm.register(operands[1])
		if err != nil {
			return
		}
		offset, err = asm.signedOf(operands[2], 6)
		if err != nil {
			return
		}
		code = MakeCodeBase(op, r, base, offset)
	case "jmp", "jsrr":
		err = args(operands, 1)
		if err != nil {
			return
		}
		var base int
		base, err = asm.register(operands[0])
		if err != nil {
			return
		}
		if mnemonic == "jmp" {
			code = MakeCodeJmp(base)
		} else {
			code = MakeCodeJsrr(base)
		}
	case "ret":
		err = args(operands, 0)
		if err != nil {
			return
		}
		code = MakeCodeJmp(7)
	case "jsr":
		err = args(operands, 1)
		if err != nil {
			return
		}
		var offset int
		offset, err = asm.offsetOf(operands[0], pc, 11)
		if err != nil {
			return
		}
		code = MakeCodeJsr(offset)
	case "trap":
		err = args(operands, 1)
		if err != nil {
			return
		}
		var vector int
		vector, err = asm.valueOf(operands[0])
		if err != nil {
			return
		}
		if !internal.FitsUnsigned(vector, 8) {
			err = ErrRange{Value: vector, Bits: 8}
			return
		}
		code = MakeCodeTrap(CodeTrap(vector))
	case "rti", "res":
		err = args(operands, 0)
		if err != nil {
			return
		}
		code = MakeCodeOp(op)
	}

	codes = []Code{code}
	return
}

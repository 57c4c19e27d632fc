// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

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

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Assembler is a single pass macro assembler for CHIP-8 programs.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	expansions int // Count of macro expansions, for '@' local labels.
}

// Predefine defines a new equate or redefines an existing equate, for
// every subsequent Parse.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

var (
	reCharacter = regexp.MustCompile(`'\\?[^']'`)
	reParen     = regexp.MustCompile(`\$\([^\$]*\)`)
	reLabel     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// register returns the index of a V register name.
func register(word string) (x uint8, ok bool) {
	if len(word) != 2 || (word[0] != 'v' && word[0] != 'V') {
		return
	}
	n, err := strconv.ParseUint(word[1:], 16, 4)
	if err != nil {
		return
	}
	return uint8(n), true
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	if addr, ok := asm.Label[word]; ok {
		value = uint32(addr)
		return
	}

	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(word[1 : len(word)-1])
		return
	}
	v64, err := strconv.ParseInt(word, 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 <= 0xffffffff && v64 >= -int64(0x80000000) {
		if v64 < 0 {
			value = uint32(0xffffffff + (v64 + 1))
		} else {
			value = uint32(v64)
		}
	}

	if invert {
		value = ^value
	}

	return
}

// boundedValue returns the value of a word, which must not exceed limit.
func (asm *Assembler) boundedValue(word string, limit uint32) (value uint32, err error) {
	value, err = asm.valueOf(word)
	if err != nil {
		return
	}
	if value > limit {
		err = fmt.Errorf("%w: %v > 0x%x", ErrValueRange, word, limit)
	}
	return
}

// address returns the 12-bit address of a word. A label not yet
// defined is returned for linking after the pass.
func (asm *Assembler) address(word string) (addr uint16, link string, err error) {
	_, known := asm.Label[word]
	if !known && reLabel.MatchString(word) {
		if _, ok := register(word); !ok {
			link = word
			return
		}
	}

	value, err := asm.boundedValue(word, 0xfff)
	if err != nil {
		return
	}
	addr = uint16(value)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt(int(value32))
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(addr)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reParen.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	line = strings.ReplaceAll(line, ",", " ")
	words = strings.Fields(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansions++
		local := fmt.Sprintf("%v_%v_", name, asm.expansions)
		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddr gets the address of the next generated byte.
func (asm *Assembler) currentAddr() int {
	if len(asm.Opcode) == 0 {
		return ROM_BASE
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Addr + len(last.Data)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.expansions = 0
	asm.Equate = maps.Clone(_cpu_defines)
	asm.Equate["LINENO"] = "0"
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	if asm.currentAddr()-ROM_BASE > MAX_ROM_SIZE {
		err = ErrProgramTooLarge
		return
	}

	// Final linking of labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		addr, ok := asm.Label[label]
		if !ok {
			line = strings.Join(op.Words, " ")
			lineno = op.LineNo
			err = ErrLabelMissing(label)
			return
		}
		if addr > 0xfff {
			line = strings.Join(op.Words, " ")
			lineno = op.LineNo
			err = ErrValueRange
			return
		}
		op.Data[0] |= uint8(addr>>8) & 0xf
		op.Data[1] = uint8(addr)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// argCount checks the number of operands.
func argCount(args []string, least, most int) error {
	if len(args) < least {
		return ErrOpcodeValueMissing
	}
	if len(args) > most {
		return ErrOpcodeExtraArgs
	}
	return nil
}

// aluMap maps 8xyN mnemonics to their low nibble.
var aluMap = map[string]uint16{
	"or":   0x1,
	"and":  0x2,
	"xor":  0x3,
	"sub":  0x5,
	"shr":  0x6,
	"subn": 0x7,
	"shl":  0xe,
}

// ldSpecial maps the non-register destinations of ld to Fx opcodes.
var ldSpecial = map[string]uint16{
	"dt":  0xf015,
	"st":  0xf018,
	"f":   0xf029,
	"b":   0xf033,
	"[i]": 0xf055,
}

// ldFrom maps the non-register sources of ld Vx to Fx opcodes.
var ldFrom = map[string]uint16{
	"dt":  0xf007,
	"k":   0xf00a,
	"[i]": 0xf065,
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var data []byte
	var label string
	code := true

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || len(data) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Addr: asm.currentAddr(), Words: initial_words, Data: data, Code: code, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	var word uint16
	emit := func(w uint16) {
		word = w
		data = []byte{uint8(w >> 8), uint8(w)}
	}

	reg := func(word string) (x uint16, err error) {
		r, ok := register(word)
		if !ok {
			err = fmt.Errorf("%w: %v", ErrRegisterInvalid, word)
			return
		}
		x = uint16(r)
		return
	}

	mnemonic := strings.ToLower(words[0])
	args := words[1:]
	lower := make([]string, len(args))
	for n, arg := range args {
		lower[n] = strings.ToLower(arg)
	}

	switch mnemonic {
	case "cls", "ret":
		if err = argCount(args, 0, 0); err != nil {
			return
		}
		if mnemonic == "cls" {
			emit(0x00e0)
		} else {
			emit(0x00ee)
		}
	case "sys", "call":
		if err = argCount(args, 1, 1); err != nil {
			return
		}
		var addr uint16
		addr, label, err = asm.address(args[0])
		if err != nil {
			return
		}
		if mnemonic == "sys" {
			emit(0x0000 | addr)
		} else {
			emit(0x2000 | addr)
		}
	case "jp":
		if err = argCount(args, 1, 2); err != nil {
			return
		}
		op := uint16(0x1000)
		target := args[0]
		if len(args) == 2 {
			if lower[0] != "v0" {
				err = fmt.Errorf("%w: %v", ErrRegisterInvalid, args[0])
				return
			}
			op = 0xb000
			target = args[1]
		}
		var addr uint16
		addr, label, err = asm.address(target)
		if err != nil {
			return
		}
		emit(op | addr)
	case "se", "sne":
		if err = argCount(args, 2, 2); err != nil {
			return
		}
		var x uint16
		if x, err = reg(args[0]); err != nil {
			return
		}
		if y, ok := register(args[1]); ok {
			op := uint16(0x5000)
			if mnemonic == "sne" {
				op = 0x9000
			}
			emit(op | x<<8 | uint16(y)<<4)
			break
		}
		var kk uint32
		if kk, err = asm.boundedValue(args[1], 0xff); err != nil {
			return
		}
		op := uint16(0x3000)
		if mnemonic == "sne" {
			op = 0x4000
		}
		emit(op | x<<8 | uint16(kk))
	case "ld":
		if err = argCount(args, 2, 2); err != nil {
			return
		}
		if lower[0] == "i" {
			var addr uint16
			addr, label, err = asm.address(args[1])
			if err != nil {
				return
			}
			emit(0xa000 | addr)
			break
		}
		if op, ok := ldSpecial[lower[0]]; ok {
			var x uint16
			if x, err = reg(args[1]); err != nil {
				return
			}
			emit(op | x<<8)
			break
		}
		var x uint16
		if x, err = reg(args[0]); err != nil {
			return
		}
		if op, ok := ldFrom[lower[1]]; ok {
			emit(op | x<<8)
			break
		}
		if y, ok := register(args[1]); ok {
			emit(0x8000 | x<<8 | uint16(y)<<4)
			break
		}
		var kk uint32
		if kk, err = asm.boundedValue(args[1], 0xff); err != nil {
			return
		}
		emit(0x6000 | x<<8 | uint16(kk))
	case "add":
		if err = argCount(args, 2, 2); err != nil {
			return
		}
		if lower[0] == "i" {
			var x uint16
			if x, err = reg(args[1]); err != nil {
				return
			}
			emit(0xf01e | x<<8)
			break
		}
		var x uint16
		if x, err = reg(args[0]); err != nil {
			return
		}
		if y, ok := register(args[1]); ok {
			emit(0x8004 | x<<8 | uint16(y)<<4)
			break
		}
		var kk uint32
		if kk, err = asm.boundedValue(args[1], 0xff); err != nil {
			return
		}
		emit(0x7000 | x<<8 | uint16(kk))
	case "or", "and", "xor", "sub", "subn", "shr", "shl":
		least := 2
		if mnemonic == "shr" || mnemonic == "shl" {
			least = 1
		}
		if err = argCount(args, least, 2); err != nil {
			return
		}
		var x, y uint16
		if x, err = reg(args[0]); err != nil {
			return
		}
		y = x
		if len(args) == 2 {
			if y, err = reg(args[1]); err != nil {
				return
			}
		}
		emit(0x8000 | x<<8 | y<<4 | aluMap[mnemonic])
	case "rnd":
		if err = argCount(args, 2, 2); err != nil {
			return
		}
		var x uint16
		if x, err = reg(args[0]); err != nil {
			return
		}
		var kk uint32
		if kk, err = asm.boundedValue(args[1], 0xff); err != nil {
			return
		}
		emit(0xc000 | x<<8 | uint16(kk))
	case "drw":
		if err = argCount(args, 3, 3); err != nil {
			return
		}
		var x, y uint16
		if x, err = reg(args[0]); err != nil {
			return
		}
		if y, err = reg(args[1]); err != nil {
			return
		}
		var n uint32
		if n, err = asm.boundedValue(args[2], 0xf); err != nil {
			return
		}
		emit(0xd000 | x<<8 | y<<4 | uint16(n))
	case "skp", "sknp":
		if err = argCount(args, 1, 1); err != nil {
			return
		}
		var x uint16
		if x, err = reg(args[0]); err != nil {
			return
		}
		if mnemonic == "skp" {
			emit(0xe09e | x<<8)
		} else {
			emit(0xe0a1 | x<<8)
		}
	case "db", "dw":
		if err = argCount(args, 1, len(args)); err != nil {
			return
		}
		code = false
		limit := uint32(0xff)
		if mnemonic == "dw" {
			limit = 0xffff
		}
		for _, arg := range args {
			var value uint32
			if value, err = asm.boundedValue(arg, limit); err != nil {
				return
			}
			if mnemonic == "dw" {
				data = append(data, uint8(value>>8))
			}
			data = append(data, uint8(value))
		}
	default:
		err = ErrInstructionInvalid
		return
	}

	if asm.Verbose && code {
		log.Printf("%03x: %v", asm.currentAddr(), Decode(Code(word)))
	}

	return
}

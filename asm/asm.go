// Package asm implements the two-pass text assembler of spec.md §4.5:
// section-structured source, label resolution, and per-mnemonic encoding
// into the 32-bit words package isa decodes.
package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/seal9055/isa-simulator/isa"
)

// Section is one assembled `.load`/`.end_section` block: a load address
// and the sparse address->word map produced by the two-pass encoder
// (addresses a label line "claimed" but did not emit an instruction for
// are simply absent, left zero-filled by the loader).
type Section struct {
	Name     string
	LoadAddr uint32
	Words    map[uint32]uint32
	EndAddr  uint32 // one past the highest address this section's pass 1 assigned
}

// Program is a fully assembled multi-section source file.
type Program struct {
	Sections []Section
	EntryPC  uint32 // load address of the ._start section
}

var commentRE = regexp.MustCompile(`#.*$`)

// entrySectionName is the distinguished section whose load address
// becomes the initial architectural and pipeline program counter.
const entrySectionName = "._start"

// Assemble parses and encodes a complete source file, per spec.md §4.5's
// section-structured format.
func Assemble(src string) (*Program, error) {
	lines := stripComments(src)

	prog := &Program{}
	i := 0
	haveEntry := false

	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}
		if !strings.HasPrefix(line, ".load") {
			return nil, fmt.Errorf("%w: expected '.load 0xADDR', got %q", ErrLoadErr, line)
		}
		loadAddr, err := parseLoadDirective(line)
		if err != nil {
			return nil, err
		}
		i++

		bodyStart := i
		for i < len(lines) && strings.TrimSpace(lines[i]) != ".end_section" {
			i++
		}
		if i >= len(lines) {
			return nil, fmt.Errorf("%w: missing .end_section", ErrLoadErr)
		}
		body := lines[bodyStart:i]
		i++ // consume .end_section

		section, err := assembleSection(loadAddr, body)
		if err != nil {
			return nil, err
		}
		if section.Name == entrySectionName {
			prog.EntryPC = section.LoadAddr
			haveEntry = true
		}
		prog.Sections = append(prog.Sections, section)
	}

	if !haveEntry {
		return nil, fmt.Errorf("%w: no %s section", ErrLoadErr, entrySectionName)
	}
	return prog, nil
}

func stripComments(src string) []string {
	rawLines := strings.Split(src, "\n")
	out := make([]string, 0, len(rawLines))
	for _, l := range rawLines {
		l = commentRE.ReplaceAllString(l, "")
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

func parseLoadDirective(line string) (uint32, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, fmt.Errorf("%w: malformed .load directive %q", ErrLoadErr, line)
	}
	addr, err := parseHex(fields[1])
	if err != nil {
		return 0, fmt.Errorf("%w: bad load address in %q: %v", ErrLoadErr, line, err)
	}
	return addr, nil
}

func isLabelLine(line string) bool {
	return strings.HasPrefix(line, ".") && !strings.HasPrefix(line, ".load") && line != ".end_section"
}

// assembleSection runs the two passes described in spec.md §4.5 over one
// section's body lines: pass 1 assigns addresses (each label line
// consuming 4 bytes of address space, per the Open Question decision
// recorded in SPEC_FULL.md/DESIGN.md), pass 2 encodes each instruction
// line at its assigned address.
func assembleSection(loadAddr uint32, body []string) (Section, error) {
	if len(body) == 0 {
		return Section{}, fmt.Errorf("%w: empty section body", ErrLoadErr)
	}
	if !isLabelLine(body[0]) {
		return Section{}, fmt.Errorf("%w: section must start with a label line, got %q", ErrLoadErr, body[0])
	}
	name := body[0]

	symbols := map[string]uint32{}
	addr := loadAddr
	for _, line := range body {
		if isLabelLine(line) {
			symbols[line] = addr
		}
		addr += 4
	}
	endAddr := addr

	words := map[uint32]uint32{}
	addr = loadAddr
	for _, line := range body {
		if isLabelLine(line) {
			addr += 4
			continue
		}
		word, err := encodeLine(line, addr, symbols)
		if err != nil {
			return Section{}, err
		}
		words[addr] = word
		addr += 4
	}

	if endAddr-loadAddr > 4096 {
		return Section{}, fmt.Errorf("%w: section %q exceeds one page", ErrLoadErr, name)
	}

	return Section{Name: name, LoadAddr: loadAddr, Words: words, EndAddr: endAddr}, nil
}

func parseHex(tok string) (uint32, error) {
	tok = strings.TrimPrefix(strings.ToLower(tok), "0x")
	v, err := strconv.ParseUint(tok, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func parseReg(tok string) (isa.Register, error) {
	tok = strings.ToLower(tok)
	if !strings.HasPrefix(tok, "r") {
		return isa.None, fmt.Errorf("not a register: %q", tok)
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n > 15 {
		return isa.None, fmt.Errorf("not a register: %q", tok)
	}
	return isa.Register(n), nil
}

// encodeLine assembles one instruction line, per the per-mnemonic syntax
// table in spec.md §4.5.
func encodeLine(line string, addr uint32, symbols map[string]uint32) (uint32, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty instruction line", ErrInstrDecode)
	}
	mnemonic := strings.ToLower(fields[0])
	args := fields[1:]

	switch mnemonic {
	case "mov":
		rs3, rs1, err := regPair(args)
		if err != nil {
			return 0, err
		}
		return isa.Encode(isa.KindAdd, rs1, isa.R0, rs3, 0, 0), nil
	case "movi":
		if len(args) != 2 {
			return 0, fmt.Errorf("%w: movi takes 2 operands", ErrInstrDecode)
		}
		rs3, err := parseReg(args[0])
		if err != nil {
			return 0, err
		}
		imm, err := parseHex(args[1])
		if err != nil {
			return 0, err
		}
		return isa.Encode(isa.KindAddi, isa.R0, isa.None, rs3, int32(imm), 0), nil

	case "add", "sub", "xor", "or", "and", "shr", "shl", "mul", "div":
		return encodeRType(mnemonic, args)

	case "addi", "subi", "xori", "ori", "andi":
		return encodeGType(mnemonic, args)

	case "lui":
		if len(args) != 2 {
			return 0, fmt.Errorf("%w: lui takes 2 operands", ErrInstrDecode)
		}
		rs3, err := parseReg(args[0])
		if err != nil {
			return 0, err
		}
		imm, err := parseHex(args[1])
		if err != nil {
			return 0, err
		}
		return isa.Encode(isa.KindLui, isa.None, isa.None, rs3, int32(imm), 0), nil

	case "ldb", "ldh", "ld", "stb", "sth", "st":
		return encodeMemType(mnemonic, args)

	case "bne", "beq", "blt", "bgt":
		return encodeBranch(mnemonic, args, addr, symbols)

	case "jmpr":
		return encodeJmpr(args, addr, symbols)

	case "call":
		if len(args) != 1 {
			return 0, fmt.Errorf("%w: call takes 1 operand", ErrInstrDecode)
		}
		target, err := parseHex(args[0])
		if err != nil {
			return 0, err
		}
		return isa.Encode(isa.KindCall, isa.None, isa.None, isa.None, 0, int32(target)), nil

	case "ret":
		return isa.Encode(isa.KindRet, isa.None, isa.None, isa.None, 0, 0), nil
	case "nop":
		return isa.Encode(isa.KindNop, isa.None, isa.None, isa.None, 0, 0), nil
	case "int0":
		return isa.Encode(isa.KindInt0, isa.None, isa.None, isa.None, 0, 0), nil
	}

	return 0, fmt.Errorf("%w: unknown mnemonic %q", ErrInstrDecode, mnemonic)
}

func regPair(args []string) (rs3, rs1 isa.Register, err error) {
	if len(args) != 2 {
		return isa.None, isa.None, fmt.Errorf("%w: mov takes 2 operands", ErrInstrDecode)
	}
	rs3, err = parseReg(args[0])
	if err != nil {
		return
	}
	rs1, err = parseReg(args[1])
	return
}

var rTypeKinds = map[string]isa.Kind{
	"add": isa.KindAdd, "sub": isa.KindSub, "xor": isa.KindXor, "or": isa.KindOr,
	"and": isa.KindAnd, "shr": isa.KindShr, "shl": isa.KindShl, "mul": isa.KindMul, "div": isa.KindDiv,
}

func encodeRType(mnemonic string, args []string) (uint32, error) {
	if len(args) != 3 {
		return 0, fmt.Errorf("%w: %s takes 3 operands", ErrInstrDecode, mnemonic)
	}
	rs3, err := parseReg(args[0])
	if err != nil {
		return 0, err
	}
	rs1, err := parseReg(args[1])
	if err != nil {
		return 0, err
	}
	rs2, err := parseReg(args[2])
	if err != nil {
		return 0, err
	}
	return isa.Encode(rTypeKinds[mnemonic], rs1, rs2, rs3, 0, 0), nil
}

var gTypeKinds = map[string]isa.Kind{
	"addi": isa.KindAddi, "subi": isa.KindSubi, "xori": isa.KindXori,
	"ori": isa.KindOri, "andi": isa.KindAndi,
}

func encodeGType(mnemonic string, args []string) (uint32, error) {
	if len(args) != 3 {
		return 0, fmt.Errorf("%w: %s takes 3 operands", ErrInstrDecode, mnemonic)
	}
	rs3, err := parseReg(args[0])
	if err != nil {
		return 0, err
	}
	rs1, err := parseReg(args[1])
	if err != nil {
		return 0, err
	}
	imm, err := parseHex(args[2])
	if err != nil {
		return 0, err
	}
	return isa.Encode(gTypeKinds[mnemonic], rs1, isa.None, rs3, int32(imm), 0), nil
}

var memTypeKinds = map[string]isa.Kind{
	"ldb": isa.KindLdb, "ldh": isa.KindLdh, "ld": isa.KindLd,
	"stb": isa.KindStb, "sth": isa.KindSth, "st": isa.KindSt,
}

func encodeMemType(mnemonic string, args []string) (uint32, error) {
	if len(args) != 3 {
		return 0, fmt.Errorf("%w: %s takes 3 operands", ErrInstrDecode, mnemonic)
	}
	rs3, err := parseReg(args[0])
	if err != nil {
		return 0, err
	}
	rs1, err := parseReg(args[1])
	if err != nil {
		return 0, err
	}
	imm, err := parseHex(args[2])
	if err != nil {
		return 0, err
	}
	return isa.Encode(memTypeKinds[mnemonic], rs1, isa.None, rs3, int32(imm), 0), nil
}

var branchKinds = map[string]isa.Kind{
	"bne": isa.KindBne, "beq": isa.KindBeq, "blt": isa.KindBlt, "bgt": isa.KindBgt,
}

// encodeBranch computes imm = label_addr - current_pc as a 32-bit wrapping
// subtraction, then stores it (truncated) in the 16-bit imm field, per
// spec.md §4.5 and the Open Question decision to leave out-of-range
// offsets silently truncated.
func encodeBranch(mnemonic string, args []string, addr uint32, symbols map[string]uint32) (uint32, error) {
	if len(args) != 3 {
		return 0, fmt.Errorf("%w: %s takes 3 operands", ErrInstrDecode, mnemonic)
	}
	rs3, err := parseReg(args[0])
	if err != nil {
		return 0, err
	}
	rs1, err := parseReg(args[1])
	if err != nil {
		return 0, err
	}
	target, ok := symbols[args[2]]
	if !ok {
		return 0, fmt.Errorf("%w: undefined label %q", ErrInstrDecode, args[2])
	}
	imm := int32(target - addr)
	return isa.Encode(branchKinds[mnemonic], rs1, isa.None, rs3, imm, 0), nil
}

// encodeJmpr assembles `jmpr .label`. The ISA's Jmpr variant carries an
// rs3 field (per spec.md §4.1's register-use table) but the assembler
// syntax in spec.md §4.5 takes only a label; rs3 is encoded as r0.
func encodeJmpr(args []string, addr uint32, symbols map[string]uint32) (uint32, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: jmpr takes 1 operand", ErrInstrDecode)
	}
	target, ok := symbols[args[0]]
	if !ok {
		return 0, fmt.Errorf("%w: undefined label %q", ErrInstrDecode, args[0])
	}
	offset := int32(target - addr)
	return isa.Encode(isa.KindJmpr, isa.None, isa.None, isa.R0, 0, offset), nil
}

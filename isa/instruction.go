package isa

import "fmt"

// Kind tags the variant an Instruction carries. It mirrors the opcode table
// in §4.1 plus two pseudo-variants that never appear in guest memory:
// None (empty pipeline slot) and Invalid (decode failure). Nop is an
// ordinary opcode (29), kept distinct from None for clarity in pipeline
// traces.
type Kind int

const (
	KindNone Kind = iota
	KindInvalid
	KindAdd
	KindSub
	KindXor
	KindOr
	KindAnd
	KindShr
	KindShl
	KindMul
	KindDiv
	KindAddi
	KindSubi
	KindXori
	KindOri
	KindAndi
	KindLui
	KindLdb
	KindLdh
	KindLd
	KindStb
	KindSth
	KindSt
	KindBne
	KindBeq
	KindBlt
	KindBgt
	KindJmpr
	KindCall
	KindRet
	KindNop
	KindInt0
)

var kindNames = map[Kind]string{
	KindNone: "none", KindInvalid: "invalid", KindAdd: "add", KindSub: "sub",
	KindXor: "xor", KindOr: "or", KindAnd: "and", KindShr: "shr", KindShl: "shl",
	KindMul: "mul", KindDiv: "div", KindAddi: "addi", KindSubi: "subi",
	KindXori: "xori", KindOri: "ori", KindAndi: "andi", KindLui: "lui",
	KindLdb: "ldb", KindLdh: "ldh", KindLd: "ld", KindStb: "stb", KindSth: "sth",
	KindSt: "st", KindBne: "bne", KindBeq: "beq", KindBlt: "blt", KindBgt: "bgt",
	KindJmpr: "jmpr", KindCall: "call", KindRet: "ret", KindNop: "nop",
	KindInt0: "int0",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// Instruction is a decoded instruction value: the Kind selects which of the
// operand fields are meaningful, following the exact per-opcode field use
// documented in spec.md §4.1 / original cpu.rs's Instr enum.
type Instruction struct {
	Kind    Kind
	Rs1     Register
	Rs2     Register
	Rs3     Register
	Imm     int32
	Offset  int32
	Backing uint32
}

var opcodeToKind = map[Opcode]Kind{
	OpAdd: KindAdd, OpSub: KindSub, OpXor: KindXor, OpOr: KindOr, OpAnd: KindAnd,
	OpShr: KindShr, OpShl: KindShl, OpMul: KindMul, OpDiv: KindDiv,
	OpAddi: KindAddi, OpSubi: KindSubi, OpXori: KindXori, OpOri: KindOri,
	OpAndi: KindAndi, OpLui: KindLui, OpLdb: KindLdb, OpLdh: KindLdh, OpLd: KindLd,
	OpStb: KindStb, OpSth: KindSth, OpSt: KindSt, OpBne: KindBne, OpBeq: KindBeq,
	OpBlt: KindBlt, OpBgt: KindBgt, OpJmpr: KindJmpr, OpCall: KindCall,
	OpRet: KindRet, OpNop: KindNop, OpInt0: KindInt0,
}

// Decode turns a raw 32-bit instruction word into a typed Instruction. An
// unrecognized opcode yields KindInvalid rather than an error: reaching
// execute or writeback with KindInvalid is the fatal condition, not decode
// itself (spec.md §7).
func Decode(word uint32) Instruction {
	op := extractOpcode(word)
	kind, ok := opcodeToKind[op]
	if !ok {
		return Instruction{Kind: KindInvalid, Backing: word}
	}

	instr := Instruction{Kind: kind, Backing: word}

	switch kind {
	case KindAdd, KindSub, KindXor, KindOr, KindAnd, KindShr, KindShl, KindMul, KindDiv:
		instr.Rs3 = extractRs3(word)
		instr.Rs1 = extractRs1(word)
		instr.Rs2 = extractRs2(word)
	case KindAddi, KindSubi, KindXori, KindOri, KindAndi:
		instr.Rs3 = extractRs3(word)
		instr.Rs1 = extractRs1(word)
		instr.Imm = extractImm(word)
	case KindLui:
		instr.Rs3 = extractRs3(word)
		instr.Imm = extractImm(word)
	case KindLdb, KindLdh, KindLd, KindStb, KindSth, KindSt:
		instr.Rs3 = extractRs3(word)
		instr.Rs1 = extractRs1(word)
		instr.Imm = extractImm(word)
	case KindBne, KindBeq, KindBlt, KindBgt:
		instr.Rs3 = extractRs3(word)
		instr.Rs1 = extractRs1(word)
		instr.Imm = extractImm(word)
	case KindJmpr:
		instr.Rs3 = extractRs3(word)
		instr.Offset = extractOffset(word)
	case KindCall:
		instr.Offset = extractOffset(word)
	case KindRet, KindNop, KindInt0:
		// no operand fields
	}

	return instr
}

// Encode packs an Instruction back into its 32-bit word, the inverse of
// Decode. Fields not used by the instruction's Kind are ignored.
func Encode(kind Kind, rs1, rs2, rs3 Register, imm, offset int32) uint32 {
	var op Opcode
	for o, k := range opcodeToKind {
		if k == kind {
			op = o
			break
		}
	}

	word := uint32(op) << 26

	switch kind {
	case KindAdd, KindSub, KindXor, KindOr, KindAnd, KindShr, KindShl, KindMul, KindDiv:
		word |= uint32(rs3&0x1f) << 21
		word |= uint32(rs1&0x1f) << 16
		word |= uint32(rs2&0x1f) << 11
	case KindAddi, KindSubi, KindXori, KindOri, KindAndi,
		KindLdb, KindLdh, KindLd, KindStb, KindSth, KindSt,
		KindBne, KindBeq, KindBlt, KindBgt:
		word |= uint32(rs3&0x1f) << 21
		word |= uint32(rs1&0x1f) << 16
		word |= uint32(imm) & 0xffff
	case KindLui:
		word |= uint32(rs3&0x1f) << 21
		word |= uint32(imm) & 0xffff
	case KindJmpr:
		word |= uint32(rs3&0x1f) << 21
		word |= uint32(offset) & 0x1fffff
	case KindCall:
		word |= uint32(offset) & 0x1fffff
	}

	return word
}

// WritesTo returns the register this instruction writes at writeback, or
// None if it writes nothing. Call and Ret notionally write two registers
// (R14 and R15); WritesTo reports the primary data-hazard-relevant one
// (R14) and callers that need the full set use the dedicated helpers below.
func (i Instruction) WritesTo() Register {
	switch i.Kind {
	case KindAdd, KindSub, KindXor, KindOr, KindAnd, KindShr, KindShl, KindMul, KindDiv,
		KindAddi, KindSubi, KindXori, KindOri, KindAndi, KindLui,
		KindLdb, KindLdh, KindLd,
		KindStb, KindSth, KindSt:
		return i.Rs3
	case KindCall, KindRet:
		return R14
	}
	return None
}

// WritesToSet returns every register this instruction writes, for
// instructions (Call, Ret) that write more than one.
func (i Instruction) WritesToSet() []Register {
	switch i.Kind {
	case KindCall, KindRet:
		return []Register{R14, R15}
	default:
		if r := i.WritesTo(); r != None {
			return []Register{r}
		}
		return nil
	}
}

// UsesRegs returns the set of registers this instruction reads, per the
// register-use table in spec.md §4.1.
func (i Instruction) UsesRegs() []Register {
	switch i.Kind {
	case KindAdd, KindSub, KindXor, KindOr, KindAnd, KindShr, KindShl, KindMul, KindDiv:
		return []Register{i.Rs1, i.Rs2}
	case KindAddi, KindSubi, KindXori, KindOri, KindAndi, KindLdb, KindLdh, KindLd:
		return []Register{i.Rs1}
	case KindStb, KindSth, KindSt:
		return []Register{i.Rs3, i.Rs1}
	case KindBne, KindBeq, KindBlt, KindBgt:
		return []Register{i.Rs3, i.Rs1}
	case KindJmpr:
		return []Register{i.Rs3}
	case KindCall, KindRet:
		return []Register{R14}
	default:
		return nil
	}
}

// IsControlFlow reports whether this instruction redirects the pipeline PC.
func (i Instruction) IsControlFlow() bool {
	switch i.Kind {
	case KindBne, KindBeq, KindBlt, KindBgt, KindJmpr, KindCall, KindRet, KindInt0:
		return true
	}
	return false
}

// IsMemoryAccess reports whether this instruction touches data memory at
// the memory pipeline stage.
func (i Instruction) IsMemoryAccess() bool {
	switch i.Kind {
	case KindLdb, KindLdh, KindLd, KindStb, KindSth, KindSt:
		return true
	}
	return false
}

func signedHex(v int32) string {
	if v < 0 {
		return fmt.Sprintf("-0x%x", -v)
	}
	return fmt.Sprintf("0x%x", v)
}

// String renders the instruction the way a disassembler would, following
// the teacher's formatInstructionStr idiom (mnemonic + space-joined operands).
func (i Instruction) String() string {
	switch i.Kind {
	case KindNone:
		return "<empty>"
	case KindInvalid:
		return fmt.Sprintf("<invalid 0x%08x>", i.Backing)
	case KindAdd, KindSub, KindXor, KindOr, KindAnd, KindShr, KindShl, KindMul, KindDiv:
		return fmt.Sprintf("%s %s %s %s", i.Kind, i.Rs3, i.Rs1, i.Rs2)
	case KindAddi, KindSubi, KindXori, KindOri, KindAndi:
		return fmt.Sprintf("%s %s %s %s", i.Kind, i.Rs3, i.Rs1, signedHex(i.Imm))
	case KindLui:
		return fmt.Sprintf("%s %s %s", i.Kind, i.Rs3, signedHex(i.Imm))
	case KindLdb, KindLdh, KindLd, KindStb, KindSth, KindSt:
		return fmt.Sprintf("%s %s %s %s", i.Kind, i.Rs3, i.Rs1, signedHex(i.Imm))
	case KindBne, KindBeq, KindBlt, KindBgt:
		return fmt.Sprintf("%s %s %s %s", i.Kind, i.Rs3, i.Rs1, signedHex(i.Imm))
	case KindJmpr:
		return fmt.Sprintf("%s %s %s", i.Kind, i.Rs3, signedHex(i.Offset))
	case KindCall:
		return fmt.Sprintf("%s %s", i.Kind, signedHex(i.Offset))
	default:
		return i.Kind.String()
	}
}

package isa

// Opcode is the 6-bit operation selector occupying bits [31:26] of an
// encoded instruction word.
type Opcode uint32

const (
	OpAdd  Opcode = 2
	OpSub  Opcode = 3
	OpXor  Opcode = 4
	OpOr   Opcode = 5
	OpAnd  Opcode = 6
	OpShr  Opcode = 7
	OpShl  Opcode = 8
	OpAddi Opcode = 9
	OpSubi Opcode = 10
	OpXori Opcode = 11
	OpOri  Opcode = 12
	OpAndi Opcode = 13
	OpLdb  Opcode = 14
	OpLdh  Opcode = 15
	OpLd   Opcode = 16
	OpStb  Opcode = 17
	OpSth  Opcode = 18
	OpSt   Opcode = 19
	OpBne  Opcode = 20
	OpBeq  Opcode = 21
	OpBlt  Opcode = 22
	OpBgt  Opcode = 23
	OpJmpr Opcode = 25
	OpLui  Opcode = 26
	OpCall Opcode = 27
	OpRet  Opcode = 28
	OpNop  Opcode = 29
	OpMul  Opcode = 30
	OpDiv  Opcode = 31
	OpInt0 Opcode = 40
)

var opcodeNames = map[Opcode]string{
	OpAdd: "add", OpSub: "sub", OpXor: "xor", OpOr: "or", OpAnd: "and",
	OpShr: "shr", OpShl: "shl", OpAddi: "addi", OpSubi: "subi", OpXori: "xori",
	OpOri: "ori", OpAndi: "andi", OpLdb: "ldb", OpLdh: "ldh", OpLd: "ld",
	OpStb: "stb", OpSth: "sth", OpSt: "st", OpBne: "bne", OpBeq: "beq",
	OpBlt: "blt", OpBgt: "bgt", OpJmpr: "jmpr", OpLui: "lui", OpCall: "call",
	OpRet: "ret", OpNop: "nop", OpMul: "mul", OpDiv: "div", OpInt0: "int0",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return "invalid"
}

// extractOpcode pulls bits [31:26] out of a raw instruction word.
func extractOpcode(word uint32) Opcode {
	return Opcode((word >> 26) & 0x3f)
}

func extractRs3(word uint32) Register { return RegisterFromField(word >> 21) }
func extractRs1(word uint32) Register { return RegisterFromField(word >> 16) }
func extractRs2(word uint32) Register { return RegisterFromField(word >> 11) }

// extractImm sign-extends the low 16 bits of word.
func extractImm(word uint32) int32 {
	return int32(word&0xffff) << 16 >> 16
}

// extractOffset sign-extends the low 21 bits of word.
func extractOffset(word uint32) int32 {
	return int32(word&0x1fffff) << 11 >> 11
}

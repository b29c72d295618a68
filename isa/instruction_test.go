package isa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		kind   Kind
		rs1    Register
		rs2    Register
		rs3    Register
		imm    int32
		offset int32
	}{
		{"add", KindAdd, R1, R2, R3, 0, 0},
		{"sub", KindSub, R4, R5, R6, 0, 0},
		{"addi", KindAddi, R1, None, R2, -5, 0},
		{"addi-positive", KindAddi, R1, None, R2, 1234, 0},
		{"lui", KindLui, None, None, R7, 0x7fff, 0},
		{"ldb", KindLdb, R1, None, R2, -100, 0},
		{"st", KindSt, R1, None, R2, 16, 0},
		{"bne", KindBne, R1, None, R2, -32768, 0},
		{"jmpr", KindJmpr, None, None, R0, 0, -1048576},
		{"call", KindCall, None, None, None, 0, 1048575},
		{"ret", KindRet, None, None, None, 0, 0},
		{"nop", KindNop, None, None, None, 0, 0},
		{"int0", KindInt0, None, None, None, 0, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			word := Encode(c.kind, c.rs1, c.rs2, c.rs3, c.imm, c.offset)
			decoded := Decode(word)
			require.Equal(t, c.kind, decoded.Kind)

			switch c.kind {
			case KindAdd, KindSub:
				require.Equal(t, c.rs1, decoded.Rs1)
				require.Equal(t, c.rs2, decoded.Rs2)
				require.Equal(t, c.rs3, decoded.Rs3)
			case KindAddi, KindLdb, KindSt, KindBne:
				require.Equal(t, c.rs1, decoded.Rs1)
				require.Equal(t, c.rs3, decoded.Rs3)
				require.Equal(t, c.imm, decoded.Imm)
			case KindLui:
				require.Equal(t, c.rs3, decoded.Rs3)
				require.Equal(t, c.imm, decoded.Imm)
			case KindJmpr:
				require.Equal(t, c.rs3, decoded.Rs3)
				require.Equal(t, c.offset, decoded.Offset)
			case KindCall:
				require.Equal(t, c.offset, decoded.Offset)
			}
		})
	}
}

func TestUnknownOpcodeDecodesInvalid(t *testing.T) {
	word := uint32(63) << 26 // opcode 63 is not in the table
	instr := Decode(word)
	require.Equal(t, KindInvalid, instr.Kind)
}

func TestWritesToAndUsesRegs(t *testing.T) {
	add := Instruction{Kind: KindAdd, Rs1: R1, Rs2: R2, Rs3: R3}
	require.Equal(t, R3, add.WritesTo())
	require.ElementsMatch(t, []Register{R1, R2}, add.UsesRegs())

	st := Instruction{Kind: KindSt, Rs1: R1, Rs3: R2}
	require.Equal(t, R2, st.WritesTo(), "stores write rs3 per spec's writeback table")
	require.ElementsMatch(t, []Register{R2, R1}, st.UsesRegs())

	call := Instruction{Kind: KindCall}
	require.ElementsMatch(t, []Register{R14, R15}, call.WritesToSet())
	require.ElementsMatch(t, []Register{R14}, call.UsesRegs())

	jmpr := Instruction{Kind: KindJmpr, Rs3: R5}
	require.ElementsMatch(t, []Register{R5}, jmpr.UsesRegs())

	require.Empty(t, Instruction{Kind: KindInt0}.UsesRegs())
	require.Equal(t, None, Instruction{Kind: KindInt0}.WritesTo())
}

func TestRegisterStringNames(t *testing.T) {
	require.Equal(t, "r0", R0.String())
	require.Equal(t, "none", None.String())
}

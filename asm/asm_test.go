package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seal9055/isa-simulator/isa"
)

const regZeroSource = `
.load 0x10000
._start
movi r1 0x5
add r0 r0 r1
st r1 r0 0x0
.end_section
`

func TestAssembleRegZeroProgram(t *testing.T) {
	prog, err := Assemble(regZeroSource)
	require.NoError(t, err)
	require.Equal(t, uint32(0x10000), prog.EntryPC)
	require.Len(t, prog.Sections, 1)

	section := prog.Sections[0]
	require.Equal(t, "._start", section.Name)
	require.Len(t, section.Words, 3)

	movi := isa.Decode(section.Words[0x10004])
	require.Equal(t, isa.KindAddi, movi.Kind)
	require.Equal(t, isa.R1, movi.Rs3)
	require.Equal(t, int32(5), movi.Imm)
}

const loopSource = `
.load 0x10000
._start
movi r1 0xA
._loop
subi r1 r1 0x1
bne r1 r0 ._loop
.end_section
`

func TestAssembleLoopWithLabel(t *testing.T) {
	prog, err := Assemble(loopSource)
	require.NoError(t, err)
	section := prog.Sections[0]

	// Both ._start and ._loop are label lines and, per the label-addressing
	// decision, each consumes 4 bytes of address space without emitting a
	// word: ._start(0x10000), movi(0x10004), ._loop(0x10008, no word),
	// subi(0x1000c), bne(0x10010).
	subiAddr := uint32(0x1000c)
	subi := isa.Decode(section.Words[subiAddr])
	require.Equal(t, isa.KindSubi, subi.Kind)

	branchAddr := subiAddr + 4
	branch := isa.Decode(section.Words[branchAddr])
	require.Equal(t, isa.KindBne, branch.Kind)
	labelAddr := uint32(0x10008)
	require.Equal(t, int32(labelAddr)-int32(branchAddr), branch.Imm)
}

const callRetSource = `
.load 0x10000
._start
call 0x10010
st r1 r0 0x0
.end_section
.load 0x10010
._f
movi r1 0x7
ret
.end_section
`

func TestAssembleMultiSectionCallRet(t *testing.T) {
	prog, err := Assemble(callRetSource)
	require.NoError(t, err)
	require.Len(t, prog.Sections, 2)
	require.Equal(t, uint32(0x10000), prog.EntryPC)

	call := isa.Decode(prog.Sections[0].Words[0x10004])
	require.Equal(t, isa.KindCall, call.Kind)
	require.Equal(t, int32(0x10010), call.Offset)

	ret := isa.Decode(prog.Sections[1].Words[0x10018])
	require.Equal(t, isa.KindRet, ret.Kind)
}

func TestAssembleRejectsMissingEndSection(t *testing.T) {
	_, err := Assemble(".load 0x10000\n._start\nnop\n")
	require.ErrorIs(t, err, ErrLoadErr)
}

func TestAssembleRejectsMissingEntrySection(t *testing.T) {
	_, err := Assemble(".load 0x10000\n._other\nnop\n.end_section\n")
	require.ErrorIs(t, err, ErrLoadErr)
}

func TestMovAndMoviSugar(t *testing.T) {
	prog, err := Assemble(".load 0x1000\n._start\nmov r2 r1\nmovi r3 0xff\n.end_section\n")
	require.NoError(t, err)
	mov := isa.Decode(prog.Sections[0].Words[0x1004])
	require.Equal(t, isa.KindAdd, mov.Kind)
	require.Equal(t, isa.R2, mov.Rs3)
	require.Equal(t, isa.R1, mov.Rs1)
	require.Equal(t, isa.R0, mov.Rs2)

	movi := isa.Decode(prog.Sections[0].Words[0x1008])
	require.Equal(t, isa.KindAddi, movi.Kind)
	require.Equal(t, isa.R0, movi.Rs1)
	require.Equal(t, int32(0xff), movi.Imm)
}

// Package isa implements the decoder/encoder for the guest instruction set:
// fixed 32-bit little-endian words, typed instruction values, and the
// register-use/register-def queries the pipeline needs for hazard detection.
package isa

import "fmt"

// Register identifies one of the 16 general-purpose registers, or None for
// an instruction slot that references no register.
type Register int

const (
	None Register = -1
	R0   Register = iota - 1
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	R13
	R14 // link register
	R15 // stack pointer
)

func (r Register) String() string {
	if r == None {
		return "none"
	}
	return fmt.Sprintf("r%d", int(r))
}

// RegisterFromField decodes a 5-bit register field into a Register.
func RegisterFromField(v uint32) Register {
	return Register(v & 0x1f)
}

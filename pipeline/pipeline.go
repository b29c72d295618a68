// Package pipeline holds the five pipeline slots and the slot-shifting
// "advance" step described in spec.md §3/§4.3. The actual per-stage work
// (fetch/decode/execute/memory/writeback) is driven by package sim, which
// owns the register file and MMU the stages need to read and write; this
// package only defines the data the stages carry between cycles.
package pipeline

import "github.com/seal9055/isa-simulator/isa"

const (
	StageFetch = iota
	StageDecode
	StageExecute
	StageMemory
	StageWriteback
	NumStages = 5
)

// Slot is one pipeline stage's working register set: the in-flight
// instruction plus everything decoded/computed about it so far.
type Slot struct {
	Valid       bool
	Instr       isa.Instruction
	InstrBacking uint32

	Rs1, Rs2, Rs3 uint32
	Imm, Offset   int32

	Addr uint32 // computed memory or branch-target address
	PC   uint32 // this instruction's own PC; the memory stage sets the architectural PC to PC+4 or to the control-flow target

	Disable bool // true while this slot is held in place by a hazard/flush

	// MemStall is the remaining stall countdown for a memory-accessing
	// stage (fetch at slot 0, or memory at slot 3); nil means "not yet
	// queried this access".
	MemStall *int
}

// Reset clears a slot back to its empty state, as happens after advance
// shifts it forward or after a flush discards it.
func (s *Slot) Reset() {
	*s = Slot{}
}

// Pipeline is the five-slot in-flight instruction window plus the
// speculative fetch cursor and the global hazard-stall bookkeeping.
type Pipeline struct {
	PC             uint32
	Slots          [NumStages]Slot
	Disable        bool
	HazardThrower  *int
	CurStage       int // used only in the non-pipelined round-robin mode
}

// New returns a Pipeline with its fetch cursor set to startPC.
func New(startPC uint32) *Pipeline {
	return &Pipeline{PC: startPC}
}

// Advance shifts every non-disabled slot forward by one stage: for i from
// NumStages-1 down to 1, if slot i-1 is not disabled, slot i-1's contents
// move into slot i and slot i-1 is reset. Disabled slots stay in place so
// a stalled instruction is not lost.
func (p *Pipeline) Advance() {
	for i := NumStages - 1; i >= 1; i-- {
		if p.Slots[i-1].Disable {
			continue
		}
		p.Slots[i] = p.Slots[i-1]
		p.Slots[i-1].Reset()
	}
}

// FlushUpTo invalidates slots 0..n inclusive, used whenever a control-flow
// instruction redirects the fetch cursor and the speculatively fetched
// instructions behind it must be discarded.
func (p *Pipeline) FlushUpTo(n int) {
	for i := 0; i <= n && i < NumStages; i++ {
		p.Slots[i].Reset()
	}
}

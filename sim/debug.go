package sim

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// DebugPrint dumps the register file, PC, and clock to the simulator's
// configured output, in the style of the teacher's printCurrentState.
func (s *Simulator) DebugPrint() {
	fmt.Fprintf(s.out, "pc=0x%08x clock=%d online=%v\n", s.PC, s.Clock, s.Online)
	for i, v := range s.regs {
		fmt.Fprintf(s.out, "  r%-2d = 0x%08x\n", i, v)
	}
}

// DebugPrintPipeline dumps each pipeline slot's decoded instruction and
// scratch fields, ported from the original simulator's
// _debug_print_pipeline for the step CLI subcommand.
func (s *Simulator) DebugPrintPipeline() {
	names := [...]string{"fetch", "decode", "execute", "memory", "writeback"}
	for i, slot := range s.Pipeline.Slots {
		if !slot.Valid {
			fmt.Fprintf(s.out, "  %-9s <empty>\n", names[i])
			continue
		}
		fmt.Fprintf(s.out, "  %-9s pc=0x%08x %s\n", names[i], slot.PC, slot.Instr)
	}
	fmt.Fprintf(s.out, "  pipeline.pc=0x%08x disable=%v\n", s.Pipeline.PC, s.Pipeline.Disable)
}

// DumpState returns a spew.Sdump rendering of the simulator for failing
// test output or ad-hoc CLI inspection, following the pack's testify +
// go-spew pairing.
func (s *Simulator) DumpState() string {
	return spew.Sdump(struct {
		PC     uint32
		Clock  uint64
		Online bool
		Regs   [16]uint32
		Stats  Stats
	}{s.PC, s.Clock, s.Online, s.regs, s.Stats})
}

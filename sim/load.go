package sim

import "github.com/seal9055/isa-simulator/asm"

// LoadProgram maps and writes every section of prog into the simulator's
// MMU, flushes the cache once (spec.md §4.5: "After load, the cache is
// flushed"), and sets the architectural and pipeline PC to the ._start
// section's load address.
func (s *Simulator) LoadProgram(prog *asm.Program) error {
	if err := asm.Load(s.Mmu, prog); err != nil {
		return err
	}
	s.Mmu.FlushCache()
	s.SetEntry(prog.EntryPC)
	return nil
}

package sim

import "github.com/seal9055/isa-simulator/isa"

// stepSingleStage drives exactly one instruction through fetch, decode,
// execute, memory, and writeback in round-robin fashion across
// successive Step calls, implementing spec.md §4.3's "pipelining off"
// variant: no hazard logic is needed since only one instruction is ever
// in flight, and Jmpr's decode-time PC lead adjustment is -4 rather
// than -8 (no extra speculative fetch is outstanding).
func (s *Simulator) stepSingleStage() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = asError(r)
			s.Online = false
		}
	}()

	slot := &s.Pipeline.Slots[0]

	switch s.Pipeline.CurStage {
	case 0: // Fetch
		if s.checkMemStall(slot, s.Pipeline.PC) {
			s.Stats.MemClock++
			return nil
		}
		addr := s.Pipeline.PC
		word, ferr := s.fetchWord(addr)
		if ferr != nil {
			return ferr
		}
		slot.Valid = true
		slot.InstrBacking = word
		slot.PC = addr
		s.Pipeline.PC = addr + 4
		s.Pipeline.CurStage = 1

	case 1: // Decode
		instr := s.decodeInto(slot)
		switch instr.Kind {
		case isa.KindCall:
			slot.Addr = uint32(instr.Offset)
			s.Pipeline.PC = uint32(instr.Offset)
		case isa.KindRet:
			slot.Addr = s.ReadReg(isa.R14)
			s.Pipeline.PC = s.ReadReg(isa.R14)
		case isa.KindJmpr:
			s.Pipeline.PC = s.Pipeline.PC - 4 + uint32(instr.Offset)
		}
		s.Pipeline.CurStage = 2

	case 2: // Execute
		if slot.Instr.Kind == isa.KindInvalid {
			panic(ErrInstrDecode)
		}
		s.countInstrStats(slot.Instr.Kind)
		s.runExecuteALU(slot)
		s.Pipeline.CurStage = 3

	case 3: // Memory
		if slot.Instr.IsMemoryAccess() {
			if s.checkMemStall(slot, slot.Addr) {
				s.Stats.MemClock++
				return nil
			}
		}
		if merr := s.runMemoryOp(slot); merr != nil {
			return merr
		}
		s.Pipeline.CurStage = 4

	case 4: // Writeback
		s.runWriteback(slot)
		slot.Reset()
		s.Pipeline.PC = s.PC
		s.Pipeline.CurStage = 0
	}

	return nil
}

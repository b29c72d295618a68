package sim

import "github.com/seal9055/isa-simulator/isa"

// decodeStagePipelined implements spec.md §4.3 step 3: decode slot 1,
// detect read-after-write hazards against slots 2..4, and for
// control-flow instructions redirect the pipeline's fetch cursor eagerly.
func (s *Simulator) decodeStagePipelined() {
	slot := &s.Pipeline.Slots[1]
	if !slot.Valid {
		return
	}

	instr := isa.Decode(slot.InstrBacking)
	if s.hasHazard(instr) {
		s.Pipeline.Disable = true
		thrower := 1
		s.Pipeline.HazardThrower = &thrower
		s.Pipeline.Slots[0].Disable = true
		s.Pipeline.Slots[1].Disable = true
		return
	}
	if s.Pipeline.HazardThrower != nil && *s.Pipeline.HazardThrower == 1 {
		s.Pipeline.Disable = false
		s.Pipeline.HazardThrower = nil
		s.Pipeline.Slots[0].Disable = false
		s.Pipeline.Slots[1].Disable = false
	}

	s.decodeInto(slot)

	switch instr.Kind {
	case isa.KindCall:
		slot.Addr = uint32(instr.Offset)
		s.Pipeline.FlushUpTo(0)
		s.Pipeline.PC = uint32(instr.Offset)
	case isa.KindRet:
		slot.Addr = s.ReadReg(isa.R14)
		s.Pipeline.FlushUpTo(0)
		s.Pipeline.PC = s.ReadReg(isa.R14)
	case isa.KindJmpr:
		s.Pipeline.FlushUpTo(0)
		lead := uint32(8)
		if !s.Pipelining {
			lead = 4
		}
		s.Pipeline.PC = s.Pipeline.PC - lead + uint32(instr.Offset)
	case isa.KindBne, isa.KindBeq, isa.KindBlt, isa.KindBgt:
		s.Pipeline.FlushUpTo(0)
		s.Pipeline.Disable = true
	case isa.KindInt0:
		s.Pipeline.FlushUpTo(0)
		s.Pipeline.Disable = true
	}
}

// hasHazard scans slots 2..4 for an instruction that writes a register
// instr reads, per spec.md §4.3 step 3.
func (s *Simulator) hasHazard(instr isa.Instruction) bool {
	for _, r := range instr.UsesRegs() {
		if r == isa.None {
			continue
		}
		for i := 2; i <= 4; i++ {
			slot := &s.Pipeline.Slots[i]
			if !slot.Valid {
				continue
			}
			for _, w := range slot.Instr.WritesToSet() {
				if w == r {
					return true
				}
			}
		}
	}
	return false
}

func (s *Simulator) executeStagePipelined() {
	slot := &s.Pipeline.Slots[2]
	if !slot.Valid {
		return
	}
	if slot.Instr.Kind == isa.KindInvalid {
		panic(ErrInstrDecode)
	}
	s.countInstrStats(slot.Instr.Kind)
	s.runExecuteALU(slot)

	switch slot.Instr.Kind {
	case isa.KindBne, isa.KindBeq, isa.KindBlt, isa.KindBgt:
		s.Pipeline.FlushUpTo(1)
		s.Pipeline.PC = slot.Addr
		s.Pipeline.Disable = false
	}
}

func (s *Simulator) memoryStagePipelined() error {
	slot := &s.Pipeline.Slots[3]
	if !slot.Valid {
		return nil
	}
	if err := s.runMemoryOp(slot); err != nil {
		return err
	}
	if slot.Instr.Kind == isa.KindInt0 {
		s.Pipeline.FlushUpTo(2)
		s.Pipeline.Disable = false
	}
	return nil
}

func (s *Simulator) writebackStagePipelined() {
	slot := &s.Pipeline.Slots[4]
	if !slot.Valid {
		return
	}
	s.runWriteback(slot)
}

func (s *Simulator) fetchStagePipelined() error {
	if s.Pipeline.Disable {
		return nil
	}
	addr := s.Pipeline.PC
	word, err := s.fetchWord(addr)
	if err != nil {
		return err
	}
	s.Pipeline.Slots[0].Valid = true
	s.Pipeline.Slots[0].InstrBacking = word
	s.Pipeline.Slots[0].PC = addr
	s.Pipeline.PC = addr + 4
	return nil
}

// stepPipelined advances the five-stage pipeline by one clock cycle,
// implementing spec.md §4.3's "pipelining on" path.
func (s *Simulator) stepPipelined() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = asError(r)
			s.Online = false
		}
	}()

	fetchStalled := s.checkMemStall(&s.Pipeline.Slots[0], s.Pipeline.PC)
	if fetchStalled {
		s.Stats.MemClock++
	}

	memStalled := false
	if s.Pipeline.Slots[3].Valid && s.Pipeline.Slots[3].Instr.IsMemoryAccess() {
		memStalled = s.checkMemStall(&s.Pipeline.Slots[3], s.Pipeline.Slots[3].Addr)
		if memStalled {
			s.Stats.MemClock++
		}
	}

	if fetchStalled || memStalled {
		return nil
	}

	s.writebackStagePipelined()
	if err := s.memoryStagePipelined(); err != nil {
		return err
	}
	s.executeStagePipelined()
	s.decodeStagePipelined()
	if err := s.fetchStagePipelined(); err != nil {
		return err
	}
	s.Pipeline.Advance()
	return nil
}

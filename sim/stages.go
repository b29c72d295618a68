package sim

import (
	"encoding/binary"

	"github.com/seal9055/isa-simulator/isa"
	"github.com/seal9055/isa-simulator/mmu"
	"github.com/seal9055/isa-simulator/pipeline"
)

// checkMemStall implements the stall-countdown protocol of spec.md §4.3's
// step 1: the first time a memory-accessing slot is examined, it peeks
// whether the access would hit the cache and sets a countdown; on every
// call while the countdown is still positive it decrements and reports
// "stalled". Once the countdown reaches zero the slot's countdown is
// cleared and the stage is free to fire this cycle.
func (s *Simulator) checkMemStall(slot *pipeline.Slot, addr uint32) bool {
	if slot.MemStall == nil {
		hit := false
		if paddr, err := s.Mmu.Translate(mmu.VAddr(addr), mmu.PermRead); err == nil {
			hit = s.Mmu.AddrInCache(paddr)
		}
		n := mmu.RAMStallCycles - 1
		if hit {
			n = mmu.L1CacheStallCycles - 1
		}
		slot.MemStall = &n
	}
	if *slot.MemStall > 0 {
		*slot.MemStall--
		return true
	}
	slot.MemStall = nil
	return false
}

func (s *Simulator) bumpCacheStat(hit bool) {
	if hit {
		s.Stats.CacheHits++
	} else {
		s.Stats.CacheMisses++
	}
}

// fetchWord reads the 4-byte instruction word at addr, bumping cache
// statistics for the real (non-peek) access.
func (s *Simulator) fetchWord(addr uint32) (uint32, error) {
	data, hit, err := s.Mmu.Read(mmu.VAddr(addr), 4)
	if err != nil {
		return 0, err
	}
	s.bumpCacheStat(hit)
	return binary.LittleEndian.Uint32(data), nil
}

// decodeInto decodes slot.InstrBacking and snapshots operand registers,
// the work common to both the pipelined decode stage and the
// non-pipelined decode step.
func (s *Simulator) decodeInto(slot *pipeline.Slot) isa.Instruction {
	instr := isa.Decode(slot.InstrBacking)
	slot.Instr = instr
	slot.Rs1 = s.ReadReg(instr.Rs1)
	slot.Rs2 = s.ReadReg(instr.Rs2)
	slot.Rs3 = s.ReadReg(instr.Rs3)
	slot.Imm = instr.Imm
	slot.Offset = instr.Offset
	return instr
}

func kindIsArithmetic(k isa.Kind) bool {
	switch k {
	case isa.KindAdd, isa.KindSub, isa.KindXor, isa.KindOr, isa.KindAnd,
		isa.KindShr, isa.KindShl, isa.KindMul, isa.KindDiv,
		isa.KindAddi, isa.KindSubi, isa.KindXori, isa.KindOri, isa.KindAndi,
		isa.KindLui:
		return true
	}
	return false
}

func kindIsControl(k isa.Kind) bool {
	switch k {
	case isa.KindBne, isa.KindBeq, isa.KindBlt, isa.KindBgt,
		isa.KindJmpr, isa.KindCall, isa.KindRet, isa.KindInt0:
		return true
	}
	return false
}

func kindIsLoad(k isa.Kind) bool {
	switch k {
	case isa.KindLdb, isa.KindLdh, isa.KindLd:
		return true
	}
	return false
}

func kindIsStore(k isa.Kind) bool {
	switch k {
	case isa.KindStb, isa.KindSth, isa.KindSt:
		return true
	}
	return false
}

// countInstrStats implements spec.md §4.4: every instruction reaching
// execute counts total_instrs and exactly one of the four class counters.
func (s *Simulator) countInstrStats(k isa.Kind) {
	s.Stats.TotalInstrs++
	switch {
	case kindIsArithmetic(k):
		s.Stats.ArithmeticInstrs++
	case kindIsControl(k):
		s.Stats.ControlInstrs++
	case kindIsLoad(k):
		s.Stats.LoadInstrs++
	case kindIsStore(k):
		s.Stats.StoreInstrs++
	}
}

// runExecuteALU performs the execute-stage computation for slot, mutating
// slot.Rs3 (ALU result) or slot.Addr (effective address / branch target)
// in place. Shared by the pipelined execute stage and the non-pipelined
// execute step.
func (s *Simulator) runExecuteALU(slot *pipeline.Slot) {
	switch slot.Instr.Kind {
	case isa.KindAdd:
		slot.Rs3 = slot.Rs1 + slot.Rs2
	case isa.KindSub:
		slot.Rs3 = slot.Rs1 - slot.Rs2
	case isa.KindXor:
		slot.Rs3 = slot.Rs1 ^ slot.Rs2
	case isa.KindOr:
		slot.Rs3 = slot.Rs1 | slot.Rs2
	case isa.KindAnd:
		slot.Rs3 = slot.Rs1 & slot.Rs2
	case isa.KindShr:
		slot.Rs3 = slot.Rs1 >> (slot.Rs2 & 0x1f)
	case isa.KindShl:
		slot.Rs3 = slot.Rs1 << (slot.Rs2 & 0x1f)
	case isa.KindMul:
		slot.Rs3 = slot.Rs1 * slot.Rs2
	case isa.KindDiv:
		if slot.Rs2 == 0 {
			panic(ErrDivByZero)
		}
		slot.Rs3 = slot.Rs1 / slot.Rs2
	case isa.KindAddi:
		slot.Rs3 = uint32(int32(slot.Rs1) + slot.Imm)
	case isa.KindSubi:
		slot.Rs3 = uint32(int32(slot.Rs1) - slot.Imm)
	case isa.KindXori:
		slot.Rs3 = slot.Rs1 ^ uint32(slot.Imm)
	case isa.KindOri:
		slot.Rs3 = slot.Rs1 | uint32(slot.Imm)
	case isa.KindAndi:
		slot.Rs3 = slot.Rs1 & uint32(slot.Imm)
	case isa.KindLui:
		slot.Rs3 = uint32(slot.Imm) << 12
	case isa.KindLdb, isa.KindLdh, isa.KindLd, isa.KindStb, isa.KindSth, isa.KindSt:
		slot.Addr = uint32(int32(slot.Rs1) + slot.Imm)
	case isa.KindBne, isa.KindBeq, isa.KindBlt, isa.KindBgt:
		var taken bool
		switch slot.Instr.Kind {
		case isa.KindBne:
			taken = slot.Rs3 != slot.Rs1
		case isa.KindBeq:
			taken = slot.Rs3 == slot.Rs1
		case isa.KindBlt:
			taken = int32(slot.Rs3) < int32(slot.Rs1)
		case isa.KindBgt:
			taken = int32(slot.Rs3) > int32(slot.Rs1)
		}
		if taken {
			slot.Addr = uint32(int32(slot.PC) + slot.Imm)
		} else {
			slot.Addr = slot.PC + 4
		}
	}
}

// runMemoryOp performs the memory-stage side effects for slot (actual
// loads/stores, link-register save/restore for Call/Ret, and the
// architectural PC update), returning any MMU or MMIO error.
func (s *Simulator) runMemoryOp(slot *pipeline.Slot) error {
	switch slot.Instr.Kind {
	case isa.KindLdb:
		data, hit, err := s.Mmu.Read(mmu.VAddr(slot.Addr), 1)
		if err != nil {
			return err
		}
		s.bumpCacheStat(hit)
		slot.Rs3 = uint32(data[0])
		s.PC = slot.PC + 4
	case isa.KindLdh:
		data, hit, err := s.Mmu.Read(mmu.VAddr(slot.Addr), 2)
		if err != nil {
			return err
		}
		s.bumpCacheStat(hit)
		slot.Rs3 = uint32(binary.LittleEndian.Uint16(data))
		s.PC = slot.PC + 4
	case isa.KindLd:
		data, hit, err := s.Mmu.Read(mmu.VAddr(slot.Addr), 4)
		if err != nil {
			return err
		}
		s.bumpCacheStat(hit)
		slot.Rs3 = binary.LittleEndian.Uint32(data)
		s.PC = slot.PC + 4
	case isa.KindStb:
		data := []byte{byte(slot.Rs3)}
		if err := s.Mmu.Write(mmu.VAddr(slot.Addr), data); err != nil {
			return err
		}
		s.PC = slot.PC + 4
		return s.handleMMIOWrite(slot.Addr, data)
	case isa.KindSth:
		data := make([]byte, 2)
		binary.LittleEndian.PutUint16(data, uint16(slot.Rs3))
		if err := s.Mmu.Write(mmu.VAddr(slot.Addr), data); err != nil {
			return err
		}
		s.PC = slot.PC + 4
		return s.handleMMIOWrite(slot.Addr, data)
	case isa.KindSt:
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, slot.Rs3)
		if err := s.Mmu.Write(mmu.VAddr(slot.Addr), data); err != nil {
			return err
		}
		s.PC = slot.PC + 4
		return s.handleMMIOWrite(slot.Addr, data)
	case isa.KindRet:
		data, hit, err := s.Mmu.Read(mmu.VAddr(s.ReadReg(isa.R15)), 4)
		if err != nil {
			return err
		}
		s.bumpCacheStat(hit)
		slot.Rs3 = binary.LittleEndian.Uint32(data)
		s.PC = slot.Addr
	case isa.KindCall:
		sp := s.ReadReg(isa.R15) - 4
		s.WriteReg(isa.R15, sp)
		link := make([]byte, 4)
		binary.LittleEndian.PutUint32(link, s.ReadReg(isa.R14))
		if err := s.Mmu.Write(mmu.VAddr(sp), link); err != nil {
			return err
		}
		s.WriteReg(isa.R14, slot.PC+4)
		s.PC = slot.Addr
	case isa.KindJmpr:
		s.PC = uint32(int32(slot.PC) + slot.Offset)
	case isa.KindBne, isa.KindBeq, isa.KindBlt, isa.KindBgt:
		s.PC = slot.Addr
	case isa.KindInt0:
		data, hit, err := s.Mmu.Read(mmu.VAddr(int0VectorAddr), 4)
		if err != nil {
			return err
		}
		s.bumpCacheStat(hit)
		vector := binary.LittleEndian.Uint32(data)
		s.PC = vector
		s.Pipeline.PC = vector
	default:
		s.PC = slot.PC + 4
	}
	return nil
}

// runWriteback commits slot's result to the register file, per the
// writeback table of spec.md §4.1/§4.3 (stores write rs3 for MMIO
// side-effect purposes, per spec.md §9's explicit instruction).
func (s *Simulator) runWriteback(slot *pipeline.Slot) {
	if slot.Instr.Kind == isa.KindInvalid {
		panic(ErrInstrDecode)
	}
	if slot.Instr.Kind == isa.KindRet {
		s.WriteReg(isa.R14, slot.Rs3)
		s.WriteReg(isa.R15, s.ReadReg(isa.R15)+4)
		return
	}
	// Call already committed R14/R15/the stack write at the memory stage
	// (runMemoryOp); WritesTo() reports R14 for hazard-detection purposes
	// only, and slot.Rs3 was never populated for Call, so this arm must
	// stay a no-op the same way branches/Int0/Jmpr are no-ops.
	if slot.Instr.Kind == isa.KindCall {
		return
	}
	if w := slot.Instr.WritesTo(); w != isa.None {
		s.WriteReg(w, slot.Rs3)
	}
}

package sim

import "github.com/seal9055/isa-simulator/isa"

// handleMMIOWrite implements spec.md §6.3/§6.4: a store whose virtual
// address falls in the framebuffer range replays its bytes onto the
// screen; a store to the control register dispatches on its first byte.
// Called from the memory stage immediately after the backing mmu.Write
// succeeds, matching the original simulator.rs's mem_write wrapper, which
// performs the dispatch after the chunked byte writes complete.
func (s *Simulator) handleMMIOWrite(vaddr uint32, data []byte) error {
	if vaddr >= framebufferBase && vaddr < framebufferEnd {
		for i, b := range data {
			s.Framebuffer.WriteByte(vaddr+uint32(i), sanitizeFramebufferByte(b))
		}
		return nil
	}

	if vaddr == mmioControlAddr && len(data) > 0 {
		return s.dispatchControlRegister(data[0])
	}

	return nil
}

func sanitizeFramebufferByte(b byte) byte {
	if (b >= 0x20 && b <= 0x7e) || b == '\n' {
		return b
	}
	return 0xfe
}

const (
	mmioShutdown   = 0x41
	mmioReadClock  = 0x42
	mmioReadRandom = 0x43
)

func (s *Simulator) dispatchControlRegister(cmd byte) error {
	switch cmd {
	case mmioShutdown:
		s.Online = false
		return ErrShutdown
	case mmioReadClock:
		s.WriteReg(isa.R1, uint32(s.Clock))
	case mmioReadRandom:
		s.WriteReg(isa.R1, s.rng.Uint32())
	}
	return nil
}

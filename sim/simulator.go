// Package sim implements the simulator core of spec.md §3-§4: the register
// file, clock, program counter, pipeline stage drivers, hazard logic, MMIO
// dispatch, and statistics. It owns the mmu.Mmu and pipeline.Pipeline
// exclusively, matching spec.md §5's single-owner, single-threaded model.
package sim

import (
	"io"
	"math/rand"

	"github.com/seal9055/isa-simulator/isa"
	"github.com/seal9055/isa-simulator/mmu"
	"github.com/seal9055/isa-simulator/pipeline"
)

const (
	// Fixed memory layout, spec.md §6.2.
	int0VectorAddr   = 0x0000
	framebufferBase  = 0x1000
	framebufferEnd   = 0x10f0
	mmioControlAddr  = 0x2000
	stackBase        = 0x80000
	stackPages       = 20
)

// InitialStackPointer is R15's reset value: the top of the 20-page stack
// region, per spec.md §6.2.
const InitialStackPointer = stackBase + stackPages*mmu.PageSize - 4

// Simulator is the top-level owner of all simulation state.
type Simulator struct {
	Mmu      *mmu.Mmu
	Pipeline *pipeline.Pipeline

	regs [16]uint32
	PC   uint32

	Clock  uint64
	Online bool

	Breakpoints map[uint32]struct{}
	Stats       Stats
	Framebuffer Framebuffer

	// Pipelining selects between the five-stage overlapped step (true) and
	// the round-robin single-instruction-in-flight step (false), per
	// spec.md §4.3's "pipelining off" variant.
	Pipelining bool

	out io.Writer
	rng *rand.Rand
}

// Option configures a Simulator at construction time.
type Option func(*Simulator)

// WithOutput redirects debug/disassembly output away from the default
// io.Discard, e.g. to a test buffer or os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Simulator) { s.out = w }
}

// WithFramebuffer installs a non-default Framebuffer sink.
func WithFramebuffer(fb Framebuffer) Option {
	return func(s *Simulator) { s.Framebuffer = fb }
}

// New constructs a Simulator. cacheEnabled and pipelining select the two
// independent axes spec.md calls out as design toggles; rng feeds the
// MMU's physical-page allocator and the MMIO RNG instruction.
func New(cacheEnabled, pipelining bool, rng *rand.Rand, opts ...Option) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	s := &Simulator{
		Mmu:         mmu.New(cacheEnabled, rng),
		Pipeline:    pipeline.New(0),
		Online:      true,
		Breakpoints: make(map[uint32]struct{}),
		Framebuffer: NewTextFramebuffer(),
		Pipelining:  pipelining,
		out:         io.Discard,
		rng:         rng,
	}
	s.regs[isa.R15] = InitialStackPointer
	s.mapStack()
	// The int0 vector, framebuffer and MMIO control pages of the fixed
	// layout are mapped read/write so guest stores to them reach memory
	// and handleMMIOWrite.
	for _, page := range []uint32{int0VectorAddr, framebufferBase, mmioControlAddr} {
		if err := s.Mmu.MapPage(mmu.VAddr(page), mmu.PermRead|mmu.PermWrite); err != nil {
			panic(err)
		}
	}
	return s
}

// mapStack maps the fixed §6.2 stack region (stackPages pages below
// InitialStackPointer) read/write, mirroring the bootstrap the original
// main() performs before handing control to the simulator — in scope here
// since only process bootstrap *beyond* the fixed memory layout is excluded.
func (s *Simulator) mapStack() {
	for i := 0; i < stackPages; i++ {
		addr := mmu.VAddr(stackBase + i*mmu.PageSize)
		if err := s.Mmu.MapPage(addr, mmu.PermRead|mmu.PermWrite); err != nil {
			panic(err)
		}
	}
}

// SetEntry sets both the architectural PC and the pipeline's speculative
// fetch cursor, as the assembler's loader does after mapping the ._start
// section (spec.md §4.5).
func (s *Simulator) SetEntry(addr uint32) {
	s.PC = addr
	s.Pipeline.PC = addr
}

// SetBreakpoint/ClearBreakpoint manage the breakpoint set the driver
// (CLI step REPL, in our case) consults between steps; spec.md §9 treats
// breakpoints as an observer-only concern.
func (s *Simulator) SetBreakpoint(addr uint32)   { s.Breakpoints[addr] = struct{}{} }
func (s *Simulator) ClearBreakpoint(addr uint32) { delete(s.Breakpoints, addr) }

func (s *Simulator) AtBreakpoint() bool {
	_, ok := s.Breakpoints[s.PC]
	return ok
}

// ReadReg returns a register's value; R0 always reads 0, and None reads 0
// (used for instructions whose operand field is unused).
func (s *Simulator) ReadReg(r isa.Register) uint32 {
	if r == isa.None || r == isa.R0 {
		return 0
	}
	return s.regs[r]
}

// WriteReg writes v into r; writes to R0 or None are silently discarded.
func (s *Simulator) WriteReg(r isa.Register, v uint32) {
	if r == isa.None || r == isa.R0 {
		return
	}
	s.regs[r] = v
}

// Registers returns a copy of the full register file, for tests and
// debug display.
func (s *Simulator) Registers() [16]uint32 { return s.regs }

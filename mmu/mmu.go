// Package mmu implements the two-level virtual-memory translation scheme
// and the 4-way set-associative write-through cache described in spec.md
// §3 and §4.2, ported from the original simulator's mmu.rs.
package mmu

import (
	"errors"
	"math/rand"
)

const (
	PageSize          = 4096
	PageTableEntries  = 1024
	L1CacheStallCycles = 10
	RAMStallCycles     = 100

	permShift = 0
	permMask  = 0x7
)

// Perm is a permission bitmask: EXEC=1, WRITE=2, READ=4.
type Perm uint32

const (
	PermExec  Perm = 1
	PermWrite Perm = 2
	PermRead  Perm = 4
)

var (
	ErrAddrTranslation = errors.New("mmu: address translation failed")
	ErrPermission      = errors.New("mmu: permission denied")
	ErrMemOverlap      = errors.New("mmu: map_page over an existing mapping")
)

// VAddr and PAddr are distinct 32-bit address spaces; the Go type system
// keeps them from being silently interchanged, matching the original's
// VAddr/PAddr newtype wrappers.
type VAddr uint32
type PAddr uint32

// cacheLine is one of the 128 lines backing the 4-way set-associative
// cache: 32 sets * 4 ways * 64 bytes/line = 8 KiB.
type cacheLine struct {
	valid bool
	tag   uint32
	data  [64]byte
}

const (
	linesPerSet  = 4
	numSets      = 32
	lineBytes    = 64
	cacheLines   = numSets * linesPerSet
)

// Mmu owns physical memory, the two-level page table, and the cache. It is
// exclusively owned by a single Simulator; spec.md §5 rules out concurrent
// access.
type Mmu struct {
	mem       map[PAddr][]byte
	pageTable []*[PageTableEntries]PAddr // one slot per L1 index, nil until mapped

	cache        [cacheLines]cacheLine
	lruQueue     [linesPerSet]uint32 // global LRU order shared across all sets
	cacheEnabled bool

	rng *rand.Rand
}

// New constructs an empty Mmu. cacheEnabled controls whether Read/Write use
// the cache at all (spec.md §4.2's cache_enabled=false bypass).
func New(cacheEnabled bool, rng *rand.Rand) *Mmu {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	m := &Mmu{
		mem:          make(map[PAddr][]byte),
		pageTable:    make([]*[PageTableEntries]PAddr, PageTableEntries),
		cacheEnabled: cacheEnabled,
		rng:          rng,
	}
	m.lruQueue = [linesPerSet]uint32{0, 1, 2, 3}
	return m
}

func idx1(addr VAddr) uint32 { return (uint32(addr) & 0xffc00000) >> 22 }
func idx2(addr VAddr) uint32 { return (uint32(addr) & 0x003ff000) >> 12 }
func pageOffset(addr VAddr) uint32 { return uint32(addr) & 0xfff }

// Translate walks the two-level page table and returns the physical
// address corresponding to vaddr, checking that the mapping grants every
// bit set in required.
func (m *Mmu) Translate(vaddr VAddr, required Perm) (PAddr, error) {
	l1 := idx1(vaddr)
	table := m.pageTable[l1]
	if table == nil {
		return 0, ErrAddrTranslation
	}
	entry := table[idx2(vaddr)]
	if entry == 0 {
		return 0, ErrAddrTranslation
	}
	if uint32(entry)&uint32(required) != uint32(required) {
		return 0, ErrPermission
	}
	base := uint32(entry) &^ 0xfff
	return PAddr(base | pageOffset(vaddr)), nil
}

// MapPage creates (on demand) the L1 table for vaddr's L1 index, then
// allocates a fresh physical page by rejection-sampling a page-aligned
// address and records it with the given permissions.
func (m *Mmu) MapPage(vaddr VAddr, perms Perm) error {
	l1 := idx1(vaddr)
	if m.pageTable[l1] == nil {
		m.pageTable[l1] = &[PageTableEntries]PAddr{}
	}
	table := m.pageTable[l1]
	l2 := idx2(vaddr)
	if table[l2] != 0 {
		return ErrMemOverlap
	}

	newPage := m.allocPhysicalPage()
	m.mem[newPage] = make([]byte, PageSize)
	table[l2] = PAddr(uint32(newPage) | uint32(perms))
	return nil
}

func (m *Mmu) allocPhysicalPage() PAddr {
	for {
		candidate := PAddr(m.rng.Uint32() &^ 0xfff)
		if _, occupied := m.mem[candidate]; !occupied {
			return candidate
		}
	}
}

func (m *Mmu) pageFor(paddr PAddr) []byte {
	base := PAddr(uint32(paddr) &^ 0xfff)
	return m.mem[base]
}

// AddrInCache peeks whether paddr's line is currently cached without any
// side effect, letting the pipeline choose between L1CacheStallCycles and
// RAMStallCycles before actually performing the access.
func (m *Mmu) AddrInCache(paddr PAddr) bool {
	if !m.cacheEnabled {
		return false
	}
	set, tag := m.cacheCoords(paddr)
	for way := uint32(0); way < linesPerSet; way++ {
		line := &m.cache[set*linesPerSet+way]
		if line.valid && line.tag == tag {
			return true
		}
	}
	return false
}

func (m *Mmu) cacheCoords(paddr PAddr) (set uint32, tag uint32) {
	set = (uint32(paddr) & 0b11111000000) >> 6
	tag = uint32(paddr) >> 11
	return
}

// Read copies size bytes (1, 2, or 4) from vaddr into the returned slice,
// requiring READ permission and dispatching through the cache when enabled.
func (m *Mmu) Read(vaddr VAddr, size int) ([]byte, bool, error) {
	paddr, err := m.Translate(vaddr, PermRead)
	if err != nil {
		return nil, false, err
	}
	if !m.cacheEnabled {
		return m.readThroughRAM(paddr, size), false, nil
	}
	return m.readThroughCache(paddr, size)
}

func (m *Mmu) readThroughRAM(paddr PAddr, size int) []byte {
	page := m.pageFor(paddr)
	off := uint32(paddr) & 0xfff
	out := make([]byte, size)
	copy(out, page[off:off+uint32(size)])
	return out
}

// readThroughCache implements the hit/miss protocol of spec.md §4.2: on
// tag hit, copy bytes straight from the line; on miss, prefer an invalid
// way, else evict the LRU head, refill that way from RAM, and return the
// requested bytes from the freshly filled line.
func (m *Mmu) readThroughCache(paddr PAddr, size int) ([]byte, bool, error) {
	set, tag := m.cacheCoords(paddr)
	lineOff := uint32(paddr) & 0x3f

	for way := uint32(0); way < linesPerSet; way++ {
		line := &m.cache[set*linesPerSet+way]
		if line.valid && line.tag == tag {
			m.touchLRU(way)
			out := make([]byte, size)
			copy(out, line.data[lineOff:lineOff+uint32(size)])
			return out, true, nil
		}
	}

	// Miss: fill a way from the backing page.
	targetWay := uint32(0)
	found := false
	for way := uint32(0); way < linesPerSet; way++ {
		if !m.cache[set*linesPerSet+way].valid {
			targetWay = way
			found = true
			break
		}
	}
	if !found {
		targetWay = m.lruQueue[0]
		m.lruQueue = [linesPerSet]uint32{m.lruQueue[1], m.lruQueue[2], m.lruQueue[3], targetWay}
	} else {
		m.touchLRU(targetWay)
	}

	line := &m.cache[set*linesPerSet+targetWay]
	page := m.pageFor(paddr)
	lineBase := uint32(paddr) &^ 0x3f & 0xfff
	copy(line.data[:], page[lineBase:lineBase+lineBytes])
	line.valid = true
	line.tag = tag

	out := make([]byte, size)
	copy(out, line.data[lineOff:lineOff+uint32(size)])
	return out, false, nil
}

func (m *Mmu) touchLRU(way uint32) {
	idx := -1
	for i, w := range m.lruQueue {
		if w == way {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	q := m.lruQueue[:]
	rest := append(append([]uint32{}, q[:idx]...), q[idx+1:]...)
	copy(m.lruQueue[:len(rest)], rest)
	m.lruQueue[len(rest)] = way
}

// Write writes data (length 1, 2, or 4) to vaddr, requiring WRITE
// permission. Per spec.md §4.2 this is write-through, no-allocate: any
// cached line covering the address is invalidated, then the bytes are
// written straight to the backing page.
func (m *Mmu) Write(vaddr VAddr, data []byte) error {
	paddr, err := m.Translate(vaddr, PermWrite)
	if err != nil {
		return err
	}
	if m.cacheEnabled {
		m.invalidate(paddr)
	}
	page := m.pageFor(paddr)
	off := uint32(paddr) & 0xfff
	copy(page[off:off+uint32(len(data))], data)
	return nil
}

func (m *Mmu) invalidate(paddr PAddr) {
	set, tag := m.cacheCoords(paddr)
	for way := uint32(0); way < linesPerSet; way++ {
		line := &m.cache[set*linesPerSet+way]
		if line.valid && line.tag == tag {
			line.valid = false
		}
	}
}

// FlushCache resets every line to invalid and restores the initial LRU
// order, matching the post-code-load flush in spec.md §4.5.
func (m *Mmu) FlushCache() {
	for i := range m.cache {
		m.cache[i] = cacheLine{}
	}
	m.lruQueue = [linesPerSet]uint32{0, 1, 2, 3}
}

// SetCacheEnabled toggles cache use; callers must FlushCache when
// re-enabling if stale line contents should not be trusted.
func (m *Mmu) SetCacheEnabled(enabled bool) { m.cacheEnabled = enabled }

// CacheEnabled reports whether the cache is currently in use.
func (m *Mmu) CacheEnabled() bool { return m.cacheEnabled }

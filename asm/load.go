package asm

import (
	"encoding/binary"
	"errors"

	"github.com/seal9055/isa-simulator/mmu"
)

// Loader is the narrow interface asm.Load needs from a simulator: map a
// page with permissions and write a word to a mapped virtual address.
// *mmu.Mmu (package sim's Simulator.Mmu) satisfies it directly.
type Loader interface {
	MapPage(vaddr mmu.VAddr, perms mmu.Perm) error
	Write(vaddr mmu.VAddr, data []byte) error
}

// Load maps every section of prog into m with READ|WRITE|EXEC (spec.md
// §4.5: "the entire section's pages are mapped with READ|WRITE|EXEC at
// load time"), page by page across however many 4 KiB pages the section
// spans, then writes each assembled word. A page that is already mapped
// (e.g. by an earlier section in the same page) is reused as it is.
// Flushing the cache after load is
// the caller's responsibility (spec.md says it happens "after load", once,
// after every section has loaded).
func Load(m Loader, prog *Program) error {
	for _, section := range prog.Sections {
		if err := mapSectionPages(m, section); err != nil {
			return err
		}
		for addr, word := range section.Words {
			buf := make([]byte, 4)
			binary.LittleEndian.PutUint32(buf, word)
			if err := m.Write(mmu.VAddr(addr), buf); err != nil {
				return err
			}
		}
	}
	return nil
}

func mapSectionPages(m Loader, section Section) error {
	perms := mmu.PermRead | mmu.PermWrite | mmu.PermExec
	firstPage := section.LoadAddr &^ (mmu.PageSize - 1)
	lastPage := (section.EndAddr - 1) &^ (mmu.PageSize - 1)
	for page := firstPage; page <= lastPage; page += mmu.PageSize {
		if err := m.MapPage(mmu.VAddr(page), perms); err != nil && !errors.Is(err, mmu.ErrMemOverlap) {
			return err
		}
	}
	return nil
}

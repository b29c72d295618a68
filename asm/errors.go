package asm

import "errors"

var (
	// ErrLoadErr covers malformed section headers/trailers, per spec.md §7.
	ErrLoadErr = errors.New("asm: malformed section header")
	// ErrInstrDecode covers malformed assembly lines, per spec.md §7.
	ErrInstrDecode = errors.New("asm: malformed instruction line")
)

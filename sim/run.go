package sim

import (
	"os"
	"runtime/debug"
	"strconv"
)

// Step advances the simulator by exactly one clock cycle, per spec.md §5's
// invariant that clock increases by exactly one per call. Once Online is
// false it is a no-op and the clock does not advance.
func (s *Simulator) Step() error {
	if !s.Online {
		return nil
	}
	s.Clock++
	if s.Pipelining {
		return s.stepPipelined()
	}
	return s.stepSingleStage()
}

// Run steps the simulator until it goes offline, a breakpoint is hit, or
// maxSteps is exceeded (0 means unbounded). It follows the teacher's
// vm/run.go idiom of disabling the GC for the duration of the tight loop,
// restoring the prior GOGC percentage afterward — worthwhile here since a
// guest program can retire millions of cycles with no allocation-heavy
// work of its own.
func (s *Simulator) Run(maxSteps uint64) error {
	prevPercent := 100
	if v, ok := os.LookupEnv("GOGC"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			prevPercent = n
		}
	}
	debug.SetGCPercent(-1)
	defer debug.SetGCPercent(prevPercent)

	var steps uint64
	for s.Online {
		if s.AtBreakpoint() && steps > 0 {
			break
		}
		if err := s.Step(); err != nil {
			return err
		}
		steps++
		if maxSteps != 0 && steps >= maxSteps {
			break
		}
	}
	return nil
}

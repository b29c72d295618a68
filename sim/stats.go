package sim

// Stats mirrors the original lib.rs Stats struct (spec.md §4.4), carrying
// the running counters the simulator accumulates as instructions retire.
type Stats struct {
	CacheHits  uint64
	CacheMisses uint64
	MemClock   uint64

	ControlInstrs    uint64
	LoadInstrs       uint64
	StoreInstrs      uint64
	ArithmeticInstrs uint64
	TotalInstrs      uint64
}

package metadata

// AllocationStrategy selects how the partition is searched for a free region that can
// hold a new allocation.
type AllocationStrategy uint32

const (
	// AllocationStrategyFirstFit selects the first free region, in address order, that is
	// large enough for the request.
	AllocationStrategyFirstFit AllocationStrategy = iota
	// AllocationStrategyNextFit behaves like first fit, but each search resumes just past the
	// region chosen by the previous allocation and wraps around to the start of the pool.
	AllocationStrategyNextFit
	// AllocationStrategyBestFit selects the smallest free region that is large enough for the
	// request, preferring the lowest address when several are the same size.
	AllocationStrategyBestFit
)

var allocationStrategyMapping = map[AllocationStrategy]string{
	AllocationStrategyFirstFit: "FirstFit",
	AllocationStrategyNextFit:  "NextFit",
	AllocationStrategyBestFit:  "BestFit",
}

func (s AllocationStrategy) String() string {
	str, ok := allocationStrategyMapping[s]
	if !ok {
		return "Unknown"
	}
	return str
}

// IsValid returns true if the strategy is one of the known placement strategies
func (s AllocationStrategy) IsValid() bool {
	_, ok := allocationStrategyMapping[s]
	return ok
}

package gocfb

// walkChain follows an allocation table from start and returns the ids of the chain in order.
// It works for the FAT as well as for the MiniFAT, ids must be smaller than limit and the table size.
//
// If want is greater than 0 the walk stops after want ids, even if the chain continues.
// Every id is only visited once so the walk takes at most limit steps. If the chain is broken,
// the ids collected so far are returned together with a *ChainError.
func walkChain(start uint32, table []uint32, limit uint32, want int) ([]uint32, error) {
	if start == EndOfChain {
		return nil, nil
	}

	if uint32(len(table)) < limit {
		limit = uint32(len(table))
	}

	capacity := want
	if capacity <= 0 || capacity > int(limit) {
		capacity = int(limit)
	}
	// The capacity is only a hint, don't let large tables allocate too early.
	if capacity > 4096 {
		capacity = 4096
	}
	chain := make([]uint32, 0, capacity)
	visited := make(map[uint32]struct{}, capacity)

	fail := func(at, next uint32, reason string) ([]uint32, error) {
		return chain, &ChainError{Start: start, At: at, Next: next, Reason: reason}
	}

	current := start
	previous := start
	for {
		if current > MaxRegSect {
			return fail(previous, current, "reserved value inside of chain")
		}
		if current >= limit {
			return fail(previous, current, "id out of range")
		}
		if _, ok := visited[current]; ok {
			return fail(previous, current, "cycle detected")
		}

		visited[current] = struct{}{}
		chain = append(chain, current)

		if want > 0 && len(chain) >= want {
			return chain, nil
		}

		next := table[current]
		if next == EndOfChain {
			return chain, nil
		}

		previous = current
		current = next
	}
}

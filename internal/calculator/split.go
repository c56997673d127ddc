// Package calculator splits a session's turf cost among its confirmed players.
package calculator

// ComputePerHead returns each confirmed player's share of turfCost, rounded
// up so the organiser never collects less than the turf costs. A confirmed
// count below one is treated as one.
func ComputePerHead(turfCost, confirmed int64) int64 {
	if confirmed < 1 {
		confirmed = 1
	}
	perHead := turfCost / confirmed
	if turfCost%confirmed > 0 {
		perHead++
	}
	return perHead
}

// Preview is the share shown while a session is still open: the frozen value
// once one exists, otherwise what locking now would produce.
func Preview(frozen *int64, turfCost, confirmed int64) int64 {
	if frozen != nil {
		return *frozen
	}
	return ComputePerHead(turfCost, confirmed)
}

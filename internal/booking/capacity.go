package booking

// OverbookingPercent is the extra allowance applied when an event opts in to
// overbooking. The value is held as an integer percentage so the effective
// capacity can be computed without floating point; ceil(20*1.05) evaluates to
// 22 under float64 because the product is 21.000000000000004.
const OverbookingPercent = 5

// EffectiveCapacity returns the real seat threshold for an event. With
// overbooking enabled it is ceil(base * 1.05), otherwise base itself. The
// result is never smaller than base and is monotonic in base.
func EffectiveCapacity(base int, allowOverbooking bool) int {
	if base < 0 {
		base = 0
	}
	if !allowOverbooking {
		return base
	}
	scaled := base * (100 + OverbookingPercent)
	capacity := scaled / 100
	if scaled%100 != 0 {
		capacity++
	}
	if capacity < base {
		return base
	}
	return capacity
}

// RemainingSlots reports how many confirmed seats are still available, never
// returning a negative number even when occupancy exceeds capacity.
func RemainingSlots(effectiveCapacity, occupied int) int {
	remaining := effectiveCapacity - occupied
	if remaining < 0 {
		return 0
	}
	return remaining
}

package game

import "sort"

// Pot is chips at stake plus the players eligible to win them. Side pots
// arise when all-in contributions are unequal: each distinct contribution
// level caps one pot.
type Pot struct {
	Amount   int64   `json:"amount"`
	Eligible []int64 `json:"eligible"`
}

// buildPots layers the hand's contributions into a main pot and side pots.
// contribs maps player id to total chips put in this hand; contested
// reports whether the player can still win (not folded, not departed).
// Every chip contributed lands in exactly one pot, so the pot amounts sum
// to the total contributions.
func buildPots(contribs map[int64]int64, contested func(playerID int64) bool) []Pot {
	levels := make([]int64, 0, len(contribs))
	seen := make(map[int64]struct{})
	for _, amount := range contribs {
		if amount <= 0 {
			continue
		}
		if _, ok := seen[amount]; ok {
			continue
		}
		seen[amount] = struct{}{}
		levels = append(levels, amount)
	}
	if len(levels) == 0 {
		return nil
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	ids := make([]int64, 0, len(contribs))
	for id := range contribs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pots := make([]Pot, 0, len(levels))
	prev := int64(0)
	for _, level := range levels {
		pot := Pot{}
		for _, id := range ids {
			contrib := contribs[id]
			if contrib > prev {
				slice := contrib
				if slice > level {
					slice = level
				}
				pot.Amount += slice - prev
			}
			if contrib >= level && contested(id) {
				pot.Eligible = append(pot.Eligible, id)
			}
		}
		if pot.Amount > 0 {
			pots = append(pots, pot)
		}
		prev = level
	}
	return pots
}

func totalPotAmount(pots []Pot) int64 {
	var total int64
	for _, p := range pots {
		total += p.Amount
	}
	return total
}

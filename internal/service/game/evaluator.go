package game

import "sort"

type HandRank int

const (
	HighCard HandRank = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (r HandRank) String() string {
	switch r {
	case HighCard:
		return "high_card"
	case Pair:
		return "pair"
	case TwoPair:
		return "two_pair"
	case ThreeOfAKind:
		return "three_of_a_kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full_house"
	case FourOfAKind:
		return "four_of_a_kind"
	case StraightFlush:
		return "straight_flush"
	case RoyalFlush:
		return "royal_flush"
	}
	return "unknown"
}

// HandValue is a totally ordered hand strength. Tiebreak holds the rank
// values that decide ties within the same HandRank, highest significance
// first (e.g. for a pair: pair rank, then three kickers descending).
type HandValue struct {
	Rank     HandRank
	Tiebreak []int
}

// Compare returns -1, 0 or 1 as h is weaker than, equal to, or stronger
// than o. Equal values split the pot.
func (h HandValue) Compare(o HandValue) int {
	if h.Rank != o.Rank {
		if h.Rank < o.Rank {
			return -1
		}
		return 1
	}
	for i := 0; i < len(h.Tiebreak) && i < len(o.Tiebreak); i++ {
		if h.Tiebreak[i] != o.Tiebreak[i] {
			if h.Tiebreak[i] < o.Tiebreak[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// BestHand evaluates the strongest five-card hand from the given cards
// (hole cards plus any community cards, two to seven total; a hand that
// ends before the flop is ranked on hole cards alone). Pure function, no
// shared state.
func BestHand(cards []string) HandValue {
	parsed := make([]ParsedCard, len(cards))
	for i, c := range cards {
		parsed[i] = parseCard(c)
	}
	if len(parsed) <= 5 {
		return evaluateFive(parsed)
	}

	// At most 7 cards, so brute-forcing every five-card subset is fine.
	var best HandValue
	first := true
	pick := make([]ParsedCard, 0, 5)
	n := len(parsed)
	for mask := 0; mask < 1<<n; mask++ {
		if popcount(mask) != 5 {
			continue
		}
		pick = pick[:0]
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				pick = append(pick, parsed[i])
			}
		}
		v := evaluateFive(pick)
		if first || v.Compare(best) > 0 {
			best = v
			first = false
		}
	}
	return best
}

func popcount(v int) int {
	n := 0
	for ; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// evaluateFive ranks exactly five cards.
func evaluateFive(cards []ParsedCard) HandValue {
	sorted := make([]ParsedCard, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RankValue > sorted[j].RankValue
	})

	flush := len(sorted) == 5
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Suit != sorted[0].Suit {
			flush = false
			break
		}
	}

	straightHigh := straightHighCard(sorted)
	straight := straightHigh > 0

	if flush && straight {
		if straightHigh == 14 {
			return HandValue{Rank: RoyalFlush}
		}
		return HandValue{Rank: StraightFlush, Tiebreak: []int{straightHigh}}
	}

	groups := groupByRank(sorted)
	switch {
	case groups[0].count == 4:
		return HandValue{Rank: FourOfAKind, Tiebreak: groupRanks(groups, 2)}
	case groups[0].count == 3 && len(groups) > 1 && groups[1].count >= 2:
		return HandValue{Rank: FullHouse, Tiebreak: groupRanks(groups, 2)}
	case flush:
		return HandValue{Rank: Flush, Tiebreak: ranksDescending(sorted)}
	case straight:
		return HandValue{Rank: Straight, Tiebreak: []int{straightHigh}}
	case groups[0].count == 3:
		return HandValue{Rank: ThreeOfAKind, Tiebreak: groupRanks(groups, 3)}
	case groups[0].count == 2 && len(groups) > 1 && groups[1].count == 2:
		return HandValue{Rank: TwoPair, Tiebreak: groupRanks(groups, 3)}
	case groups[0].count == 2:
		return HandValue{Rank: Pair, Tiebreak: groupRanks(groups, 4)}
	default:
		return HandValue{Rank: HighCard, Tiebreak: ranksDescending(sorted)}
	}
}

// groupRanks returns up to n group ranks in order. Hands shorter than
// five cards, like hole cards evaluated after everyone else folded
// preflop, carry fewer groups than a full hand.
func groupRanks(groups []rankGroup, n int) []int {
	if n > len(groups) {
		n = len(groups)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = groups[i].rank
	}
	return out
}

// straightHighCard returns the high card of a straight, 0 if the five
// cards are not a straight. The wheel (A-5) ranks by the five.
func straightHighCard(sortedDesc []ParsedCard) int {
	if len(sortedDesc) != 5 {
		return 0
	}
	for i := 1; i < 5; i++ {
		if sortedDesc[i-1].RankValue == sortedDesc[i].RankValue {
			return 0
		}
	}
	if sortedDesc[0].RankValue-sortedDesc[4].RankValue == 4 {
		return sortedDesc[0].RankValue
	}
	// A-5-4-3-2
	if sortedDesc[0].RankValue == 14 &&
		sortedDesc[1].RankValue == 5 &&
		sortedDesc[4].RankValue == 2 {
		return 5
	}
	return 0
}

type rankGroup struct {
	rank  int
	count int
}

// groupByRank buckets the cards by rank, ordered by count then rank,
// both descending.
func groupByRank(sortedDesc []ParsedCard) []rankGroup {
	counts := make(map[int]int)
	for _, c := range sortedDesc {
		counts[c.RankValue]++
	}
	groups := make([]rankGroup, 0, len(counts))
	for rank, count := range counts {
		groups = append(groups, rankGroup{rank: rank, count: count})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})
	return groups
}

func ranksDescending(sortedDesc []ParsedCard) []int {
	out := make([]int, len(sortedDesc))
	for i, c := range sortedDesc {
		out[i] = c.RankValue
	}
	return out
}

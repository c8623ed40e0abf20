package game

import "testing"

func TestBestHandRanks(t *testing.T) {
	cases := []struct {
		name  string
		cards []string
		want  HandRank
	}{
		{"royal flush", []string{"As", "Ks", "Qs", "Js", "Ts", "2d", "3c"}, RoyalFlush},
		{"straight flush", []string{"9h", "8h", "7h", "6h", "5h", "Ad", "Ac"}, StraightFlush},
		{"four of a kind", []string{"7s", "7h", "7d", "7c", "Kd", "2s", "3h"}, FourOfAKind},
		{"full house", []string{"Js", "Jh", "Jd", "4c", "4d", "9s", "2h"}, FullHouse},
		{"flush", []string{"Ac", "Tc", "7c", "4c", "2c", "Kd", "Kh"}, Flush},
		{"straight", []string{"9s", "8d", "7h", "6c", "5s", "Ad", "Ah"}, Straight},
		{"wheel straight", []string{"As", "2d", "3h", "4c", "5s", "9d", "Jh"}, Straight},
		{"three of a kind", []string{"8s", "8h", "8d", "Kc", "4d", "2s", "Jh"}, ThreeOfAKind},
		{"two pair", []string{"Qs", "Qh", "9d", "9c", "4d", "2s", "Jh"}, TwoPair},
		{"pair", []string{"Ts", "Th", "8d", "6c", "4d", "2s", "Jh"}, Pair},
		{"high card", []string{"As", "Jh", "9d", "7c", "5d", "3s", "2h"}, HighCard},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BestHand(tc.cards)
			if got.Rank != tc.want {
				t.Fatalf("got %v, want %v", got.Rank, tc.want)
			}
		})
	}
}

func TestBestHandOverPair(t *testing.T) {
	board := []string{"2s", "7d", "9c", "Jh", "4s"}
	aces := BestHand(append([]string{"Ah", "Ad"}, board...))
	kings := BestHand(append([]string{"Kh", "Kd"}, board...))

	if aces.Rank != Pair || kings.Rank != Pair {
		t.Fatalf("expected two pairs, got %v and %v", aces.Rank, kings.Rank)
	}
	if aces.Compare(kings) != 1 {
		t.Fatalf("aces should beat kings: %v vs %v", aces, kings)
	}
	if kings.Compare(aces) != -1 {
		t.Fatalf("comparison not antisymmetric")
	}
}

func TestWheelRanksBelowSixHighStraight(t *testing.T) {
	wheel := BestHand([]string{"As", "2d", "3h", "4c", "5s"})
	sixHigh := BestHand([]string{"2s", "3d", "4h", "5c", "6s"})
	if wheel.Compare(sixHigh) != -1 {
		t.Fatalf("wheel must lose to six-high straight: %v vs %v", wheel, sixHigh)
	}
}

func TestIdenticalBoardsSplit(t *testing.T) {
	board := []string{"As", "Ks", "Qd", "Jc", "Th"}
	a := BestHand(append([]string{"2d", "3c"}, board...))
	b := BestHand(append([]string{"4h", "5s"}, board...))
	if a.Compare(b) != 0 {
		t.Fatalf("board plays for both, expected split: %v vs %v", a, b)
	}
}

func TestBestHandHoleCardsOnly(t *testing.T) {
	pocket := BestHand([]string{"As", "Ad"})
	if pocket.Rank != Pair {
		t.Fatalf("pocket aces rank %v, want pair", pocket.Rank)
	}
	if len(pocket.Tiebreak) != 1 || pocket.Tiebreak[0] != 14 {
		t.Fatalf("pocket pair tiebreak %v", pocket.Tiebreak)
	}

	unpaired := BestHand([]string{"Ks", "7d"})
	if unpaired.Rank != HighCard {
		t.Fatalf("unpaired hole cards rank %v, want high card", unpaired.Rank)
	}
	if pocket.Compare(unpaired) != 1 {
		t.Fatalf("pocket pair should beat unpaired hole cards: %v vs %v", pocket, unpaired)
	}
}

func TestKickerDecidesPair(t *testing.T) {
	board := []string{"Ts", "Th", "7d", "4c", "2s"}
	aceKicker := BestHand(append([]string{"Ad", "3h"}, board...))
	kingKicker := BestHand(append([]string{"Kd", "3c"}, board...))
	if aceKicker.Compare(kingKicker) != 1 {
		t.Fatalf("ace kicker should win: %v vs %v", aceKicker, kingKicker)
	}
}

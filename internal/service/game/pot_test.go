package game

import "testing"

func contestedAll(int64) bool { return true }

func TestBuildPotsAllInLevels(t *testing.T) {
	contribs := map[int64]int64{
		1: 100,
		2: 50,
		3: 200,
	}
	pots := buildPots(contribs, contestedAll)

	if len(pots) != 3 {
		t.Fatalf("expected 3 pots, got %d", len(pots))
	}
	if total := totalPotAmount(pots); total != 350 {
		t.Fatalf("pots sum to %d, want 350", total)
	}

	// Main pot: 50 from each of the three players.
	if pots[0].Amount != 150 || len(pots[0].Eligible) != 3 {
		t.Fatalf("main pot wrong: %+v", pots[0])
	}
	// Second pot: 50 more from players 1 and 3.
	if pots[1].Amount != 100 || len(pots[1].Eligible) != 2 {
		t.Fatalf("second pot wrong: %+v", pots[1])
	}
	// Third pot: player 3's uncalled 100.
	if pots[2].Amount != 100 || len(pots[2].Eligible) != 1 || pots[2].Eligible[0] != 3 {
		t.Fatalf("third pot wrong: %+v", pots[2])
	}
}

func TestBuildPotsFoldedContributionsStay(t *testing.T) {
	contribs := map[int64]int64{
		1: 80,
		2: 80,
		3: 30, // folded after contributing
	}
	folded := map[int64]bool{3: true}
	pots := buildPots(contribs, func(id int64) bool { return !folded[id] })

	if total := totalPotAmount(pots); total != 190 {
		t.Fatalf("pots sum to %d, want 190", total)
	}
	for _, p := range pots {
		for _, id := range p.Eligible {
			if folded[id] {
				t.Fatalf("folded player eligible in pot %+v", p)
			}
		}
	}
}

func TestBuildPotsEqualContributions(t *testing.T) {
	contribs := map[int64]int64{1: 60, 2: 60}
	pots := buildPots(contribs, contestedAll)
	if len(pots) != 1 {
		t.Fatalf("equal contributions should make one pot, got %d", len(pots))
	}
	if pots[0].Amount != 120 || len(pots[0].Eligible) != 2 {
		t.Fatalf("pot wrong: %+v", pots[0])
	}
}

func TestBuildPotsEmpty(t *testing.T) {
	if pots := buildPots(map[int64]int64{}, contestedAll); pots != nil {
		t.Fatalf("expected nil pots, got %+v", pots)
	}
}

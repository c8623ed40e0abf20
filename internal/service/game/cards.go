package game

import (
	"fmt"
	"math/rand"
)

// Cards are two-character strings: rank then suit (e.g. "As", "Td", "2c").
// Ranks: 2-9, T, J, Q, K, A. Suits: s, h, d, c.

const (
	cardRanks = "23456789TJQKA"
	cardSuits = "shdc"
)

// Deck is a shuffled 52-card deck with a deal cursor. The shuffle is fully
// determined by the seed, so a hand can be replayed from its audit record.
type Deck struct {
	cards  []string
	cursor int
	seed   int64
}

func NewDeck(seed int64) *Deck {
	cards := make([]string, 0, 52)
	for _, r := range cardRanks {
		for _, s := range cardSuits {
			cards = append(cards, string(r)+string(s))
		}
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return &Deck{cards: cards, seed: seed}
}

func (d *Deck) Seed() int64 {
	return d.seed
}

func (d *Deck) Remaining() int {
	return len(d.cards) - d.cursor
}

// Draw deals the next card. The cursor only moves forward, so no card can
// be dealt twice within one hand.
func (d *Deck) Draw() (string, error) {
	if d.cursor >= len(d.cards) {
		return "", fmt.Errorf("deck exhausted")
	}
	card := d.cards[d.cursor]
	d.cursor++
	return card, nil
}

func (d *Deck) DrawN(n int) ([]string, error) {
	if n < 0 || d.Remaining() < n {
		return nil, fmt.Errorf("deck exhausted: want %d, have %d", n, d.Remaining())
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		card, err := d.Draw()
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, nil
}

func rankValue(r byte) int {
	switch r {
	case '2', '3', '4', '5', '6', '7', '8', '9':
		return int(r - '0')
	case 'T':
		return 10
	case 'J':
		return 11
	case 'Q':
		return 12
	case 'K':
		return 13
	case 'A':
		return 14
	}
	return 0
}

type ParsedCard struct {
	RankValue int
	Suit      byte
	Original  string
}

func parseCard(card string) ParsedCard {
	if len(card) < 2 {
		return ParsedCard{}
	}
	return ParsedCard{
		RankValue: rankValue(card[0]),
		Suit:      card[1],
		Original:  card,
	}
}

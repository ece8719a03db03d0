// decks.go - Stat translator: box score to combat deck
package game

import (
	"fmt"
	"math"
)

// deckStats are the columns every deck needs.
var deckStats = []Stat{
	StatFGM, StatFGA, StatFG3M, StatFTM,
	StatOREB, StatDREB, StatAST, StatSTL, StatBLK, StatTOV, StatPF,
}

// Deck is an ordered list of actions; index 0 is drawn next.
type Deck []Action

type deckRow struct {
	kind   ActionKind
	source Stat
	count  func(b BoxScore) int
}

// deckTable maps each box-score event to the action it becomes.
var deckTable = []deckRow{
	{KindAttack, StatFGM, func(b BoxScore) int { return b.value(StatFGM) }},
	{KindStrongAttack, StatFG3M, func(b BoxScore) int { return b.value(StatFG3M) }},
	{KindWeakAttack, StatFTM, func(b BoxScore) int { return b.value(StatFTM) }},
	{KindMiss, StatFGA, func(b BoxScore) int { return b.value(StatFGA) - b.value(StatFGM) }},
	{KindDefenseBuff, StatDREB, func(b BoxScore) int { return b.value(StatDREB) }},
	{KindSelfHeal, StatOREB, func(b BoxScore) int { return b.value(StatOREB) }},
	{KindAttackBuff, StatAST, func(b BoxScore) int { return b.value(StatAST) }},
	{KindOppAttackDebuff, StatSTL, func(b BoxScore) int { return b.value(StatSTL) }},
	{KindOppDefenseDebuff, StatBLK, func(b BoxScore) int { return b.value(StatBLK) }},
	{KindSkipTurn, StatTOV, func(b BoxScore) int { return b.value(StatTOV) }},
	{KindSelfDamage, StatPF, func(b BoxScore) int { return b.value(StatPF) }},
}

// BuildDeck translates a box score using the default rules.
func BuildDeck(box BoxScore) (Deck, error) {
	return DefaultRules().BuildDeck(box)
}

// BuildDeck emits one action per box-score event, grouped in table order.
// Shuffle the result before battle.
func (r Rules) BuildDeck(box BoxScore) (Deck, error) {
	if err := box.Require(deckStats...); err != nil {
		return nil, err
	}
	if err := box.checkConsistent(); err != nil {
		return nil, err
	}

	deck := Deck{}
	for _, row := range deckTable {
		mag := r.magnitude(row.kind)
		for i := 0; i < row.count(box); i++ {
			deck = append(deck, Action{Kind: row.kind, Magnitude: mag, Source: row.source})
		}
	}
	return deck, nil
}

// magnitude is the base effect size of one entry of kind k.
func (r Rules) magnitude(k ActionKind) float64 {
	switch k {
	case KindAttack:
		return r.RegularAttackMultiplier
	case KindStrongAttack:
		return r.StrongAttackMultiplier
	case KindWeakAttack:
		return r.WeakAttackMultiplier
	case KindMiss:
		return 0
	case KindSelfHeal:
		return r.OffensiveReboundHealBase
	case KindSelfDamage:
		return r.FoulDamage
	default:
		// stacks or turns
		return 1
	}
}

// ValidateDeck rejects games too thin to battle with.
func (r Rules) ValidateDeck(d Deck) error {
	plays, attacks := 0, 0
	for _, a := range d {
		if a.Kind != KindMiss {
			plays++
		}
		if a.Kind.Damaging() {
			attacks++
		}
	}
	if plays < r.MinMovesRequired {
		return fmt.Errorf("%w: %d plays, need %d", ErrInvalidTape, plays, r.MinMovesRequired)
	}
	if attacks == 0 {
		return fmt.Errorf("%w: no scoring plays", ErrInvalidTape)
	}
	return nil
}

// Counts returns how many entries of each kind the deck holds.
func (d Deck) Counts() map[ActionKind]int {
	counts := make(map[ActionKind]int)
	for _, a := range d {
		counts[a.Kind]++
	}
	return counts
}

// CountCategory returns how many entries fall in category c.
func (d Deck) CountCategory(c Category) int {
	n := 0
	for _, a := range d {
		if a.Kind.Category() == c {
			n++
		}
	}
	return n
}

func (d Deck) Clone() Deck {
	out := make(Deck, len(d))
	copy(out, d)
	return out
}

// Shuffle reorders the deck in place with the given source.
func (d Deck) Shuffle(rng Rand) {
	rng.Shuffle(len(d), func(i, j int) { d[i], d[j] = d[j], d[i] })
}

// template returns one entry of kind k, copied from the deck if present.
func (d Deck) template(k ActionKind, r Rules) Action {
	for _, a := range d {
		if a.Kind == k {
			return a
		}
	}
	return Action{Kind: k, Magnitude: r.magnitude(k)}
}

// PowerRating is a quick comparison number for a unit and its deck.
func PowerRating(u *Unit) int {
	c := u.Full.Counts()
	quality := float64(c[KindStrongAttack]*3+c[KindAttack]*2+c[KindWeakAttack]) +
		float64(c[KindAttackBuff]+c[KindDefenseBuff])*2 -
		float64(c[KindMiss])*0.5 -
		float64(c[KindSkipTurn])*3
	rating := float64(u.MaxHP)*0.3 + u.BaseAttack*2 + u.BaseDefense*2 + quality*0.5
	return int(math.Floor(rating))
}

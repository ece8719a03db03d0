// unit.go - A gametape brought to life for one battle
package game

import (
	"fmt"
	"math"
)

// Unit is one side's fighter for the length of a battle. Built fresh per
// battle; the Player and Gametape it came from are never modified.
type Unit struct {
	Name      string  `json:"name"`
	CardID    string  `json:"card_id"`
	TapeID    string  `json:"tape_id"`
	Labels    []Label `json:"labels"`
	PlusMinus int     `json:"plus_minus"`

	MaxHP       int     `json:"max_hp"`
	HP          int     `json:"hp"`
	BaseAttack  float64 `json:"base_attack"`
	BaseDefense float64 `json:"base_defense"`
	HealPct     float64 `json:"heal_pct"`

	AttackStacks  int `json:"attack_stacks"`
	DefenseStacks int `json:"defense_stacks"`

	Full      Deck `json:"-"` // battle deck after label effects
	Remaining Deck `json:"-"`

	SkipNext      bool `json:"skip_next"`
	TimeoutsLeft  int  `json:"timeouts_left"`
	MicrowaveUsed bool `json:"microwave_used"`

	prepared bool
}

// NewUnit computes battle stats from the player's season and the tape's game.
func NewUnit(p Player, t Gametape, r Rules) (*Unit, error) {
	if err := t.Box.Require(StatMIN, StatPTS, StatAST, StatTOV, StatREB, StatSTL, StatBLK); err != nil {
		return nil, err
	}
	deck, err := r.BuildDeck(t.Box)
	if err != nil {
		return nil, err
	}
	labels, err := EvaluateLabels(t.Box)
	if err != nil {
		return nil, err
	}

	avg := p.Averages
	box := t.Box
	dev := func(s Stat, season float64) float64 {
		return DeviationMultiplier(float64(box.value(s)), season)
	}

	attack := r.BaseAttack +
		avg.PTS*r.PPGToAttack*dev(StatPTS, avg.PTS) +
		avg.AST*r.APGToAttack*dev(StatAST, avg.AST) +
		avg.TOV*r.TOVToAttack*dev(StatTOV, avg.TOV)
	defense := r.BaseDefense +
		avg.REB*r.RPGToDefense*dev(StatREB, avg.REB) +
		avg.STL*r.SPGToDefense*dev(StatSTL, avg.STL) +
		avg.BLK*r.BPGToDefense*dev(StatBLK, avg.BLK)
	hp := r.BaseHP + (avg.MIN-r.AverageMPG)*r.MPGToHP*dev(StatMIN, avg.MIN)

	u := &Unit{
		Name:         p.Name,
		CardID:       t.CardID,
		TapeID:       t.ID,
		Labels:       labels,
		PlusMinus:    box.value(StatPlusMinus),
		BaseAttack:   math.Max(r.MinAttack, attack),
		BaseDefense:  math.Max(r.MinDefense, defense),
		MaxHP:        int(math.Round(math.Max(r.MinHP, hp))),
		HealPct:      math.Min(r.OffensiveReboundHealCap, r.OffensiveReboundHealBase+avg.REB/10*0.01),
		Full:         deck,
		TimeoutsLeft: r.TimeoutsPerSide,
	}

	// passive label effects last the whole battle
	if u.HasLabel(LabelTripleDouble) {
		u.BaseDefense *= r.TripleDoubleDefense
	}
	if u.HasLabel(LabelBruiser) {
		u.MaxHP += r.BruiserBonusHP
	}
	u.HP = u.MaxHP
	return u, nil
}

// BaseStats are the season-only numbers shown on a player card.
func BaseStats(avg SeasonAverages, r Rules) (hp, attack, defense float64) {
	attack = r.BaseAttack + avg.PTS*r.PPGToAttack + avg.AST*r.APGToAttack + avg.TOV*r.TOVToAttack
	defense = r.BaseDefense + avg.REB*r.RPGToDefense + avg.STL*r.SPGToDefense + avg.BLK*r.BPGToDefense
	hp = r.BaseHP + (avg.MIN-r.AverageMPG)*r.MPGToHP
	return math.Max(r.MinHP, hp), math.Max(r.MinAttack, attack), math.Max(r.MinDefense, defense)
}

// DeviationMultiplier scales a season contribution by how the game compared,
// clamped to [0.5, 2.0].
func DeviationMultiplier(game, season float64) float64 {
	if season == 0 {
		season = 0.1
	}
	m := 0.5 + (game/season)*0.5
	return math.Max(0.5, math.Min(2.0, m))
}

func (u *Unit) HasLabel(l Label) bool {
	for _, have := range u.Labels {
		if have == l {
			return true
		}
	}
	return false
}

func (u *Unit) Alive() bool { return u.HP > 0 }

// HPFraction is current over max HP.
func (u *Unit) HPFraction() float64 {
	if u.MaxHP == 0 {
		return 0
	}
	return float64(u.HP) / float64(u.MaxHP)
}

// prepare applies label deck effects for a battle against opp.
// Safe to call more than once; only the first call has an effect.
func prepare(u, opp *Unit, r Rules) {
	if u.prepared {
		return
	}
	own, oppDeck := applyLabelDecks(u.Labels, u.Full.Clone(), opp.Full.Clone(), r)
	u.Full, opp.Full = own, oppDeck
	u.prepared = true
}

// deal shuffles a fresh copy of the full deck into play.
func deal(u *Unit, rng Rand) {
	u.Remaining = u.Full.Clone()
	u.Remaining.Shuffle(rng)
}

// draw takes the next action, refilling an empty deck first.
func (u *Unit) draw(r Rules, rng Rand) (Action, []Event) {
	var events []Event
	if len(u.Remaining) == 0 {
		events = append(events, u.refill(r, rng))
	}
	if len(u.Remaining) == 0 {
		return Action{Kind: KindMiss}, events
	}
	a := u.Remaining[0]
	u.Remaining = u.Remaining[1:]
	return a, events
}

// take removes the first remaining action in category c.
func (u *Unit) take(c Category, r Rules, rng Rand) (Action, []Event, error) {
	var events []Event
	if len(u.Remaining) == 0 {
		events = append(events, u.refill(r, rng))
	}
	for i, a := range u.Remaining {
		if a.Kind.Category() == c {
			u.Remaining = append(u.Remaining[:i:i], u.Remaining[i+1:]...)
			return a, events, nil
		}
	}
	return Action{}, events, fmt.Errorf("%w: no %s left", ErrNoSuchAction, c)
}

// refill resets an exhausted deck to a fraction of each original count.
func (u *Unit) refill(r Rules, rng Rand) Event {
	u.Remaining = u.Remaining[:0:0]
	counts := u.Full.Counts()
	for _, k := range AllKinds {
		count := counts[k]
		if count == 0 {
			continue
		}
		n := int(math.Ceil(float64(count) * r.RefillFraction))
		tmpl := u.Full.template(k, r)
		for i := 0; i < n; i++ {
			u.Remaining = append(u.Remaining, tmpl)
		}
	}
	u.Remaining.Shuffle(rng)
	return Event{Type: "DeckRefilled", Data: map[string]interface{}{
		"unit": u.Name,
		"size": len(u.Remaining),
	}}
}

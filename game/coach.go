// coach.go - 5v5 Coach Mode: two lineups played out under team strategies
package game

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidStrategy = errors.New("invalid strategy selection")
	ErrInvalidTeam     = errors.New("invalid team")
)

type OffenseStrategy string
type DefenseStrategy string

const (
	OffenseHotHand      OffenseStrategy = "Feed the Hot Hand"
	OffenseBallMovement OffenseStrategy = "Ball Movement"
	OffenseCrashGlass   OffenseStrategy = "Crash the Glass"
	OffenseSevenSeconds OffenseStrategy = "7 Seconds or Less"

	DefenseLockdownPaint    DefenseStrategy = "Lockdown Paint"
	DefenseFullCourtPress   DefenseStrategy = "Full Court Press"
	DefenseBoxOut           DefenseStrategy = "Box Out"
	DefenseSwitchEverything DefenseStrategy = "Switch Everything"
)

var OffenseStrategies = []OffenseStrategy{OffenseHotHand, OffenseBallMovement, OffenseCrashGlass, OffenseSevenSeconds}
var DefenseStrategies = []DefenseStrategy{DefenseLockdownPaint, DefenseFullCourtPress, DefenseBoxOut, DefenseSwitchEverything}

// Strategy is the pair a coach picks once for the whole battle.
type Strategy struct {
	Offense OffenseStrategy `json:"offense"`
	Defense DefenseStrategy `json:"defense"`
}

func (s Strategy) Validate() error {
	okOff := false
	for _, o := range OffenseStrategies {
		if o == s.Offense {
			okOff = true
		}
	}
	okDef := false
	for _, d := range DefenseStrategies {
		if d == s.Defense {
			okDef = true
		}
	}
	if !okOff {
		return fmt.Errorf("%w: offense %q", ErrInvalidStrategy, s.Offense)
	}
	if !okDef {
		return fmt.Errorf("%w: defense %q", ErrInvalidStrategy, s.Defense)
	}
	return nil
}

// RandomStrategy picks a pair for an AI coach.
func RandomStrategy(rng Rand) Strategy {
	return Strategy{
		Offense: OffenseStrategies[rng.Intn(len(OffenseStrategies))],
		Defense: DefenseStrategies[rng.Intn(len(DefenseStrategies))],
	}
}

// TeamInput is one side's lineup and game plan.
type TeamInput struct {
	Units    []*Unit  `json:"units"`
	Strategy Strategy `json:"strategy"`
}

// TeamBattle is a 5v5 contest. Lanes pair units by lineup position.
type TeamBattle struct {
	Teams      [2][]*Unit
	Strategies [2]Strategy
	Quarter    int
	Round      int
	Phase      Phase
	Winner     Side
	Overtime   *Duel
	Log        []Event

	chain [2]int // assists since the last shot, per team
	rules Rules
	rng   Rand
}

// TeamResult summarizes a finished team battle.
type TeamResult struct {
	Winner    Side    `json:"winner"`
	Outcome   Outcome `json:"outcome"`
	HomeAlive int     `json:"homeAlive"`
	AwayAlive int     `json:"awayAlive"`
	Overtime  bool    `json:"overtime"`
	Log       []Event `json:"log"`
}

// NewTeamBattle validates both sides before anything is simulated.
func NewTeamBattle(home, away TeamInput, rules Rules, rng Rand) (*TeamBattle, error) {
	for i, t := range []TeamInput{home, away} {
		side := Side(i)
		if err := t.Strategy.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", side, err)
		}
		if len(t.Units) != rules.TeamSize {
			return nil, fmt.Errorf("%w: %s has %d players, need %d", ErrInvalidTeam, side, len(t.Units), rules.TeamSize)
		}
		for _, u := range t.Units {
			if u == nil {
				return nil, fmt.Errorf("%w: %s has an empty slot", ErrInvalidTeam, side)
			}
		}
	}
	return &TeamBattle{
		Teams:      [2][]*Unit{home.Units, away.Units},
		Strategies: [2]Strategy{home.Strategy, away.Strategy},
		Phase:      PhaseIdle,
		rules:      rules,
		rng:        rng,
	}, nil
}

// Run plays four quarters, then overtime if the survivors are level.
func (b *TeamBattle) Run(ctx context.Context) (TeamResult, error) {
	b.start()

	for b.Quarter = 1; b.Quarter <= b.rules.Quarters && b.Phase == PhaseInProgress; b.Quarter++ {
		b.log(Event{Type: "QuarterStarted", Data: map[string]interface{}{"quarter": b.Quarter}})
		for b.Round = 1; b.Round <= b.rules.RoundsPerQuarter && b.Phase == PhaseInProgress; b.Round++ {
			if err := ctx.Err(); err != nil {
				return TeamResult{}, err
			}
			b.playRound()
		}
	}

	if b.Phase == PhaseInProgress {
		home, away := alive(b.Teams[Home]), alive(b.Teams[Away])
		switch {
		case len(home) > len(away):
			b.finish(Home, "survivors")
		case len(away) > len(home):
			b.finish(Away, "survivors")
		default:
			if err := b.overtime(ctx, home[0], away[0]); err != nil {
				return TeamResult{}, err
			}
		}
	}
	return b.Result(), nil
}

func (b *TeamBattle) start() {
	for lane := range b.Teams[Home] {
		h, a := b.Teams[Home][lane], b.Teams[Away][lane]
		prepare(h, a, b.rules)
		prepare(a, h, b.rules)
	}
	for _, team := range b.Teams {
		for _, u := range team {
			deal(u, b.rng)
		}
	}
	b.Phase = PhaseInProgress
	b.log(Event{Type: "TeamBattleStarted", Data: map[string]interface{}{
		"home": b.Strategies[Home],
		"away": b.Strategies[Away],
	}})
}

// playRound gives every living unit one action, lane by lane.
func (b *TeamBattle) playRound() {
	for lane := 0; lane < len(b.Teams[Home]); lane++ {
		h, a := b.Teams[Home][lane], b.Teams[Away][lane]
		order := []Side{Home, Away}
		if a.PlusMinus > h.PlusMinus {
			order = []Side{Away, Home}
		}
		for _, side := range order {
			if b.Phase != PhaseInProgress {
				return
			}
			b.act(side, lane)
		}
	}
}

func (b *TeamBattle) act(side Side, lane int) {
	actor := b.Teams[side][lane]
	if !actor.Alive() {
		return
	}
	if actor.SkipNext {
		actor.SkipNext = false
		b.log(Event{Type: "TurnSkipped", Data: map[string]interface{}{"unit": actor.Name}})
		return
	}

	target := b.Teams[side.Other()][lane]
	if !target.Alive() {
		living := alive(b.Teams[side.Other()])
		if len(living) == 0 {
			b.finish(side, "wipeout")
			return
		}
		target = living[b.rng.Intn(len(living))]
	}

	cat := b.chooseCategory(side, actor)
	a, refill, err := actor.take(cat, b.rules, b.rng)
	b.log(refill...)
	if err != nil {
		a, refill = actor.draw(b.rules, b.rng)
		b.log(refill...)
	}

	switch a.Kind.Category() {
	case CatAssist:
		b.chain[side]++
		recipient := nextAlly(b.Teams[side], lane)
		b.log(Event{Type: "ActionPlayed", Data: map[string]interface{}{"unit": actor.Name, "kind": a.Kind, "bonus": a.Bonus}})
		b.log(assist(b.rules, actor, recipient, a))
	case CatOffReb:
		recipient := mostDamaged(b.Teams[side])
		b.log(Event{Type: "ActionPlayed", Data: map[string]interface{}{"unit": actor.Name, "kind": a.Kind, "bonus": a.Bonus}})
		b.log(rebound(actor, recipient, b.rules.TeamReboundHeal))
	default:
		if a.Kind.Category() == CatShot {
			b.chain[side] = 0
		}
		b.log(playAction(b.rules, actor, target, a)...)
	}

	if len(alive(b.Teams[side.Other()])) == 0 {
		b.finish(side, "wipeout")
	} else if len(alive(b.Teams[side])) == 0 {
		b.finish(side.Other(), "wipeout")
	}
}

// chooseCategory draws a category from the actor's remaining deck, weighted by
// how many entries it holds and by both of its team's strategies.
func (b *TeamBattle) chooseCategory(side Side, actor *Unit) Category {
	weights := b.Weights(side, actor)
	total := 0.0
	for _, c := range AllCategories {
		total += weights[c]
	}
	if total <= 0 {
		return CatShot
	}
	roll := b.rng.Float64() * total
	for _, c := range AllCategories {
		roll -= weights[c]
		if roll < 0 {
			return c
		}
	}
	return CatShot
}

// Weights returns the selection weight of each category for actor this turn.
// Every category left in the deck starts at 1, however many cards it holds.
func (b *TeamBattle) Weights(side Side, actor *Unit) map[Category]float64 {
	weights := make(map[Category]float64, len(AllCategories))
	for _, c := range AllCategories {
		if actor.Remaining.CountCategory(c) > 0 {
			weights[c] = 1
		}
	}

	scale := func(c Category, m float64) { weights[c] *= m }

	switch b.Strategies[side].Offense {
	case OffenseHotHand:
		if actor == star(b.Teams[side], b.rules) {
			scale(CatShot, 5)
			scale(CatAssist, 0.3)
			scale(CatOffReb, 0.5)
		} else {
			scale(CatAssist, 4)
			scale(CatShot, 0.3)
		}
	case OffenseBallMovement:
		if b.chain[side] < b.rules.BallMovementChain {
			scale(CatAssist, 5)
			scale(CatShot, 0.2)
		} else {
			scale(CatShot, 4)
			scale(CatAssist, 0.5)
		}
	case OffenseCrashGlass:
		scale(CatOffReb, 4)
	case OffenseSevenSeconds:
		scale(CatShot, 5)
		scale(CatAssist, 0.3)
		scale(CatDefReb, 0.3)
		scale(CatOffReb, 0.5)
	}

	switch b.Strategies[side].Defense {
	case DefenseLockdownPaint:
		scale(CatBlock, 3)
	case DefenseFullCourtPress:
		scale(CatSteal, 3)
	case DefenseBoxOut:
		scale(CatDefReb, 3)
	}
	return weights
}

// overtime settles a tie with a duel between the first living unit on each side.
func (b *TeamBattle) overtime(ctx context.Context, home, away *Unit) error {
	b.log(Event{Type: "Overtime", Data: map[string]interface{}{"home": home.Name, "away": away.Name}})
	home.SkipNext, away.SkipNext = false, false
	d := NewDuel(home, away, b.rules, b.rng)
	d.Start()
	for d.Phase == PhaseInProgress {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := d.StepBot(); err != nil {
			return err
		}
	}
	b.Overtime = d
	b.log(d.Log...)
	b.finish(d.Winner, "overtime")
	return nil
}

func (b *TeamBattle) finish(winner Side, reason string) {
	b.Phase = PhaseOver
	b.Winner = winner
	b.log(Event{Type: "BattleOver", Data: map[string]interface{}{
		"winner":    winner.String(),
		"reason":    reason,
		"homeAlive": len(alive(b.Teams[Home])),
		"awayAlive": len(alive(b.Teams[Away])),
	}})
}

func (b *TeamBattle) Result() TeamResult {
	out := OutcomeLoss
	if b.Winner == Home {
		out = OutcomeWin
	}
	return TeamResult{
		Winner:    b.Winner,
		Outcome:   out,
		HomeAlive: len(alive(b.Teams[Home])),
		AwayAlive: len(alive(b.Teams[Away])),
		Overtime:  b.Overtime != nil,
		Log:       b.Log,
	}
}

func (b *TeamBattle) log(events ...Event) {
	b.Log = append(b.Log, events...)
}

func alive(team []*Unit) []*Unit {
	out := []*Unit{}
	for _, u := range team {
		if u.Alive() {
			out = append(out, u)
		}
	}
	return out
}

// nextAlly is the next living teammate after lane, wrapping; the passer itself if alone.
func nextAlly(team []*Unit, lane int) *Unit {
	for i := 1; i < len(team); i++ {
		u := team[(lane+i)%len(team)]
		if u.Alive() {
			return u
		}
	}
	return team[lane]
}

// mostDamaged is the living teammate with the lowest HP fraction.
func mostDamaged(team []*Unit) *Unit {
	var worst *Unit
	for _, u := range team {
		if !u.Alive() {
			continue
		}
		if worst == nil || u.HPFraction() < worst.HPFraction() {
			worst = u
		}
	}
	return worst
}

// star is the living teammate with the highest attack.
func star(team []*Unit, r Rules) *Unit {
	var best *Unit
	for _, u := range team {
		if !u.Alive() {
			continue
		}
		if best == nil || u.Attack(r) > best.Attack(r) {
			best = u
		}
	}
	return best
}

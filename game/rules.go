// rules.go - 1v1 duel: turn order, command handling and win conditions
package game

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotYourTurn     = errors.New("not your turn")
	ErrBattleOver      = errors.New("battle is over")
	ErrBattleNotActive = errors.New("battle has not started")
	ErrNoTimeouts      = errors.New("no timeouts left")
	ErrNoSuchAction    = errors.New("no such action in deck")
	ErrUnknownCommand  = errors.New("unknown command")
)

// Duel is a 1v1 battle between two units.
type Duel struct {
	Units     [2]*Unit `json:"units"`
	Phase     Phase    `json:"phase"`
	Turn      Side     `json:"turn"`
	First     Side     `json:"first"`
	TurnCount int      `json:"turnCount"`
	Winner    Side     `json:"winner"`
	Reason    string   `json:"reason,omitempty"`
	Log       []Event  `json:"-"`

	rules Rules
	rng   Rand
}

// DuelResult summarizes a finished duel.
type DuelResult struct {
	Winner  Side    `json:"winner"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason"`
	Turns   int     `json:"turns"`
	HomeHP  int     `json:"homeHp"`
	AwayHP  int     `json:"awayHp"`
	Log     []Event `json:"log"`
}

func NewDuel(home, away *Unit, rules Rules, rng Rand) *Duel {
	return &Duel{
		Units: [2]*Unit{home, away},
		Phase: PhaseIdle,
		rules: rules,
		rng:   rng,
	}
}

// Start applies label effects, deals both decks and picks who goes first:
// the better plus/minus, home on a tie.
func (d *Duel) Start() []Event {
	if d.Phase != PhaseIdle {
		return []Event{errorEvent("duel already started")}
	}
	home, away := d.Units[Home], d.Units[Away]
	prepare(home, away, d.rules)
	prepare(away, home, d.rules)
	deal(home, d.rng)
	deal(away, d.rng)

	d.First = Home
	if away.PlusMinus > home.PlusMinus {
		d.First = Away
	}
	d.Turn = d.First
	d.Phase = PhaseInProgress

	events := []Event{{
		Type: "DuelStarted",
		Data: map[string]interface{}{
			"home":  unitView(home),
			"away":  unitView(away),
			"first": d.First.String(),
		},
	}}
	d.Log = append(d.Log, events...)
	return events
}

// HandleCommand plays one command for side. Errors leave the duel unchanged
// except for an automatic refill of an empty deck.
func (d *Duel) HandleCommand(side Side, cmd Command) ([]Event, error) {
	switch d.Phase {
	case PhaseIdle:
		return nil, ErrBattleNotActive
	case PhaseOver:
		return nil, ErrBattleOver
	}
	if side != d.Turn {
		return nil, ErrNotYourTurn
	}

	actor, target := d.Units[side], d.Units[side.Other()]
	var events []Event

	switch cmd.Type {
	case CmdTimeout:
		ev, err := actor.callTimeout(d.rules, d.rng)
		if err != nil {
			return nil, err
		}
		// a timeout does not use up the turn
		d.Log = append(d.Log, ev)
		return []Event{ev}, nil

	case CmdDraw, "":
		a, refill := actor.draw(d.rules, d.rng)
		events = append(events, refill...)
		events = append(events, playAction(d.rules, actor, target, a)...)

	case CmdPlay:
		if !ValidCategory(cmd.Category) {
			return nil, fmt.Errorf("%w: category %q", ErrUnknownCommand, cmd.Category)
		}
		a, refill, err := actor.take(cmd.Category, d.rules, d.rng)
		if err != nil {
			// the refill stands even though nothing was played
			d.Log = append(d.Log, refill...)
			return refill, err
		}
		events = append(events, refill...)
		events = append(events, playAction(d.rules, actor, target, a)...)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}

	d.TurnCount++
	events = append(events, d.endTurn()...)
	d.Log = append(d.Log, events...)
	return events, nil
}

// endTurn checks for a winner and passes the turn, skipping turned-over sides.
func (d *Duel) endTurn() []Event {
	home, away := d.Units[Home], d.Units[Away]

	switch {
	case !home.Alive():
		return d.finish(Away, "knockout")
	case !away.Alive():
		return d.finish(Home, "knockout")
	}

	if d.TurnCount >= d.rules.MaxDuelTurns {
		winner := d.First
		if home.HPFraction() > away.HPFraction() {
			winner = Home
		} else if away.HPFraction() > home.HPFraction() {
			winner = Away
		}
		return d.finish(winner, "turn_limit")
	}

	var events []Event
	next := d.Turn.Other()
	for d.Units[next].SkipNext {
		d.Units[next].SkipNext = false
		events = append(events, Event{Type: "TurnSkipped", Data: map[string]interface{}{
			"unit": d.Units[next].Name,
		}})
		next = next.Other()
	}
	d.Turn = next
	events = append(events, Event{Type: "TurnChanged", Data: map[string]interface{}{
		"turn":  next.String(),
		"count": d.TurnCount,
		"home":  unitView(home),
		"away":  unitView(away),
	}})
	return events
}

func (d *Duel) finish(winner Side, reason string) []Event {
	d.Phase = PhaseOver
	d.Winner = winner
	d.Reason = reason
	return []Event{{
		Type: "BattleOver",
		Data: map[string]interface{}{
			"winner": winner.String(),
			"reason": reason,
			"turns":  d.TurnCount,
		},
	}}
}

// Outcome is the result from the home side's view. Only valid once over.
func (d *Duel) Outcome() Outcome {
	if d.Winner == Home {
		return OutcomeWin
	}
	return OutcomeLoss
}

// Result summarizes the duel so far.
func (d *Duel) Result() DuelResult {
	return DuelResult{
		Winner:  d.Winner,
		Outcome: d.Outcome(),
		Reason:  d.Reason,
		Turns:   d.TurnCount,
		HomeHP:  d.Units[Home].HP,
		AwayHP:  d.Units[Away].HP,
		Log:     d.Log,
	}
}

// Run plays the duel to the end with the bot deciding for both sides.
func (d *Duel) Run(ctx context.Context) (DuelResult, error) {
	if d.Phase == PhaseIdle {
		d.Start()
	}
	for d.Phase == PhaseInProgress {
		if err := ctx.Err(); err != nil {
			return DuelResult{}, err
		}
		if _, err := d.StepBot(); err != nil {
			return DuelResult{}, err
		}
	}
	return d.Result(), nil
}

// StepBot lets the bot take the current side's turn.
func (d *Duel) StepBot() ([]Event, error) {
	side := d.Turn
	cmd := d.BotDecide(side)
	events, err := d.HandleCommand(side, cmd)
	if err != nil && (errors.Is(err, ErrNoSuchAction) || errors.Is(err, ErrNoTimeouts)) {
		more, err := d.HandleCommand(side, Command{Type: CmdDraw})
		return append(events, more...), err
	}
	if err == nil && cmd.Type == CmdTimeout {
		more, err := d.HandleCommand(side, Command{Type: CmdDraw})
		return append(events, more...), err
	}
	return events, err
}

// unitView is the client-facing snapshot of a unit.
func unitView(u *Unit) map[string]interface{} {
	return map[string]interface{}{
		"name":          u.Name,
		"tapeId":        u.TapeID,
		"hp":            u.HP,
		"maxHp":         u.MaxHP,
		"attack":        u.BaseAttack,
		"defense":       u.BaseDefense,
		"attackStacks":  u.AttackStacks,
		"defenseStacks": u.DefenseStacks,
		"deckSize":      len(u.Remaining),
		"timeoutsLeft":  u.TimeoutsLeft,
		"labels":        u.Labels,
	}
}

// View is the client-facing snapshot of the duel, used to resume it after
// a reconnect.
func (d *Duel) View() map[string]interface{} {
	return map[string]interface{}{
		"home":      unitView(d.Units[Home]),
		"away":      unitView(d.Units[Away]),
		"phase":     d.Phase,
		"turn":      d.Turn.String(),
		"turnCount": d.TurnCount,
	}
}

// battle.go - Duels and Coach Mode battles against generated opponents
package session

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"stat-attack/economy"
	"stat-attack/game"
)

// Opponent describes the generated side of a battle.
type Opponent struct {
	Name        string       `json:"name"`
	CardID      string       `json:"card_id"`
	TapeID      string       `json:"tape_id"`
	DisplayName string       `json:"display_name"`
	Labels      []game.Label `json:"labels"`
}

// DuelReport is the outcome of an auto-played duel.
type DuelReport struct {
	BattleID string          `json:"battle_id"`
	TapeID   string          `json:"tape_id"`
	Opponent Opponent        `json:"opponent"`
	Result   game.DuelResult `json:"result"`
	Economy  economy.Result  `json:"economy"`
	State    economy.State   `json:"state"`
}

// TeamReport is the outcome of a Coach Mode battle.
type TeamReport struct {
	BattleID         string          `json:"battle_id"`
	Strategy         game.Strategy   `json:"strategy"`
	OpponentStrategy game.Strategy   `json:"opponent_strategy"`
	Opponents        []Opponent      `json:"opponents"`
	Result           game.TeamResult `json:"result"`
	Economy          economy.Result  `json:"economy"`
	State            economy.State   `json:"state"`
}

// liveDuel is an interactive duel waiting on the player's commands.
type liveDuel struct {
	id       string
	tapeID   string
	cardID   string
	opponent Opponent
	duel     *game.Duel
}

// unitFor builds the player's unit for an owned tape.
func unitFor(st economy.State, tapeID string, rules game.Rules) (*game.Unit, error) {
	if st.InHallOfFame(tapeID) {
		return nil, fmt.Errorf("%w: %s", economy.ErrRetiredTape, tapeID)
	}
	tape, ok := st.Tape(tapeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", economy.ErrUnknownTape, tapeID)
	}
	p, ok := st.Player(tape.CardID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", economy.ErrUnknownCard, tape.CardID)
	}
	return game.NewUnit(p, tape, rules)
}

// opponent generates a random card and tape, skipping the cards in avoid.
func (m *Manager) opponent(ctx context.Context, rng *rand.Rand, rules game.Rules, avoid map[string]bool) (*game.Unit, Opponent, error) {
	for attempt := 0; attempt < 10; attempt++ {
		p, err := m.randomPlayer(ctx, rng, func(c string) bool { return avoid[c] })
		if err != nil {
			return nil, Opponent{}, err
		}
		tape, err := m.randomTape(ctx, rng, rules, p, nil)
		if err != nil {
			avoid[p.CardID()] = true
			continue
		}
		u, err := game.NewUnit(p, tape, rules)
		if err != nil {
			avoid[p.CardID()] = true
			continue
		}
		avoid[p.CardID()] = true
		return u, Opponent{
			Name:        p.Name,
			CardID:      p.CardID(),
			TapeID:      tape.ID,
			DisplayName: tape.DisplayName(),
			Labels:      tape.Labels,
		}, nil
	}
	return nil, Opponent{}, fmt.Errorf("%w: could not field an opponent", ErrNoPlayableTape)
}

// PlayDuel auto-plays a duel for the tape against a random opponent and
// books the result.
func (m *Manager) PlayDuel(ctx context.Context, id, tapeID string) (DuelReport, error) {
	rules, ledger := m.snapshot()
	var rep DuelReport
	err := m.with(id, func(s *Session) error {
		if s.duel != nil {
			return ErrDuelInProgress
		}
		home, err := unitFor(s.state, tapeID, rules)
		if err != nil {
			return err
		}
		away, opp, err := m.opponent(ctx, s.rng, rules, map[string]bool{})
		if err != nil {
			return err
		}

		res, err := game.NewDuel(home, away, rules, s.rng).Run(ctx)
		if err != nil {
			return err
		}
		next, econ, err := ledger.RecordDuel(s.state, tapeID, res.Outcome == game.OutcomeWin)
		if err != nil {
			return err
		}
		s.state = next
		rep = DuelReport{
			BattleID: uuid.NewString(),
			TapeID:   tapeID,
			Opponent: opp,
			Result:   res,
			Economy:  econ,
			State:    next.Clone(),
		}
		logf("%s duel %s vs %s: %s in %d turns", s.ID, tapeID, opp.TapeID, res.Outcome, res.Turns)
		return nil
	})
	return rep, err
}

// StartDuel sets up an interactive duel. If the opponent moves first,
// call BotTurn before waiting on the player.
func (m *Manager) StartDuel(ctx context.Context, id, tapeID string) (string, []game.Event, error) {
	rules, _ := m.snapshot()
	var (
		battleID string
		events   []game.Event
	)
	err := m.with(id, func(s *Session) error {
		if s.duel != nil {
			return ErrDuelInProgress
		}
		home, err := unitFor(s.state, tapeID, rules)
		if err != nil {
			return err
		}
		away, opp, err := m.opponent(ctx, s.rng, rules, map[string]bool{})
		if err != nil {
			return err
		}
		d := game.NewDuel(home, away, rules, s.rng)
		battleID = uuid.NewString()
		events = append(events, game.Event{Type: "DuelCreated", Data: map[string]interface{}{
			"battleId": battleID,
			"tapeId":   tapeID,
			"opponent": opp,
		}})
		events = append(events, d.Start()...)
		s.duel = &liveDuel{id: battleID, tapeID: tapeID, cardID: home.CardID, opponent: opp, duel: d}
		return nil
	})
	return battleID, events, err
}

// DuelCommand applies the player's command to the live duel. The bot's
// reply is not included; call BotTurn until it reports done.
func (m *Manager) DuelCommand(id string, cmd game.Command) ([]game.Event, error) {
	_, ledger := m.snapshot()
	var events []game.Event
	err := m.with(id, func(s *Session) error {
		if s.duel == nil {
			return ErrNoActiveDuel
		}
		evs, err := s.duel.duel.HandleCommand(game.Home, cmd)
		if err != nil {
			return err
		}
		events = append(evs, m.settle(s, ledger)...)
		return nil
	})
	return events, err
}

// BotTurn plays one opponent step if it is the opponent's turn. done is
// true once it is the player's turn again or the duel is over.
func (m *Manager) BotTurn(id string) (events []game.Event, done bool, err error) {
	_, ledger := m.snapshot()
	err = m.with(id, func(s *Session) error {
		if s.duel == nil {
			done = true
			return nil
		}
		d := s.duel.duel
		if d.Phase != game.PhaseInProgress || d.Turn != game.Away {
			done = true
			return nil
		}
		evs, err := d.StepBot()
		if err != nil {
			return err
		}
		events = append(evs, m.settle(s, ledger)...)
		done = s.duel == nil || d.Turn != game.Away
		return nil
	})
	return events, done, err
}

// LeaveDuel forfeits the live duel; it is booked as a loss.
func (m *Manager) LeaveDuel(id string) ([]game.Event, error) {
	_, ledger := m.snapshot()
	var events []game.Event
	err := m.with(id, func(s *Session) error {
		if s.duel == nil {
			return ErrNoActiveDuel
		}
		live := s.duel
		s.duel = nil
		next, econ, err := ledger.RecordDuel(s.state, live.tapeID, false)
		if err != nil {
			return err
		}
		s.state = next
		events = []game.Event{
			{Type: "DuelForfeited", Data: map[string]interface{}{"battleId": live.id}},
			economyEvent(next, econ),
		}
		return nil
	})
	return events, err
}

// settle books a finished live duel and clears it.
func (m *Manager) settle(s *Session, ledger *economy.Ledger) []game.Event {
	live := s.duel
	if live == nil || live.duel.Phase != game.PhaseOver {
		return nil
	}
	s.duel = nil
	won := live.duel.Outcome() == game.OutcomeWin
	next, econ, err := ledger.RecordDuel(s.state, live.tapeID, won)
	if err != nil {
		logf("%s: booking duel %s: %v", s.ID, live.id, err)
		return []game.Event{{Type: "Error", Data: map[string]interface{}{"message": err.Error()}}}
	}
	s.state = next
	logf("%s duel %s vs %s: %s", s.ID, live.tapeID, live.opponent.TapeID, live.duel.Outcome())
	return []game.Event{economyEvent(next, econ)}
}

func economyEvent(st economy.State, res economy.Result) game.Event {
	return game.Event{Type: "EconomyUpdated", Data: map[string]interface{}{
		"tokens":            st.Tokens,
		"tokensEarned":      res.TokensEarned,
		"retired":           res.Retired,
		"cut":               res.Cut,
		"coachModeUnlocked": st.CoachModeUnlocked,
		"totalWins":         st.TotalWins,
		"totalLosses":       st.TotalLosses,
	}}
}

// PlayTeamBattle runs a Coach Mode battle for a lineup of tapes from five
// different cards against a generated lineup.
func (m *Manager) PlayTeamBattle(ctx context.Context, id string, tapeIDs []string, strategy game.Strategy) (TeamReport, error) {
	rules, ledger := m.snapshot()
	var rep TeamReport
	err := m.with(id, func(s *Session) error {
		if err := strategy.Validate(); err != nil {
			return err
		}
		if err := ledger.CoachModeReady(s.state); err != nil {
			return err
		}
		if s.duel != nil {
			return ErrDuelInProgress
		}
		if len(tapeIDs) != rules.TeamSize {
			return fmt.Errorf("%w: %d tapes, need %d", ErrInvalidLineup, len(tapeIDs), rules.TeamSize)
		}

		home := make([]*game.Unit, 0, len(tapeIDs))
		cards := map[string]bool{}
		for _, tid := range tapeIDs {
			u, err := unitFor(s.state, tid, rules)
			if err != nil {
				return err
			}
			if cards[u.CardID] {
				return fmt.Errorf("%w: card %s fielded twice", ErrInvalidLineup, u.CardID)
			}
			cards[u.CardID] = true
			home = append(home, u)
		}

		away := make([]*game.Unit, 0, rules.TeamSize)
		opps := make([]Opponent, 0, rules.TeamSize)
		avoid := map[string]bool{}
		for len(away) < rules.TeamSize {
			u, opp, err := m.opponent(ctx, s.rng, rules, avoid)
			if err != nil {
				return err
			}
			away = append(away, u)
			opps = append(opps, opp)
		}
		oppStrategy := game.RandomStrategy(s.rng)

		b, err := game.NewTeamBattle(
			game.TeamInput{Units: home, Strategy: strategy},
			game.TeamInput{Units: away, Strategy: oppStrategy},
			rules, s.rng)
		if err != nil {
			return err
		}
		res, err := b.Run(ctx)
		if err != nil {
			return err
		}
		next, econ, err := ledger.RecordTeamBattle(s.state, tapeIDs, res.Outcome == game.OutcomeWin)
		if err != nil {
			return err
		}
		s.state = next
		rep = TeamReport{
			BattleID:         uuid.NewString(),
			Strategy:         strategy,
			OpponentStrategy: oppStrategy,
			Opponents:        opps,
			Result:           res,
			Economy:          econ,
			State:            next.Clone(),
		}
		logf("%s team battle: %s (%d-%d survivors)", s.ID, res.Outcome, res.HomeAlive, res.AwayAlive)
		return nil
	})
	return rep, err
}

// LiveDuel reports the live duel's battle ID, if there is one.
func (m *Manager) LiveDuel(id string) (battleID string, ok bool, err error) {
	err = m.with(id, func(s *Session) error {
		if s.duel != nil {
			battleID, ok = s.duel.id, true
		}
		return nil
	})
	return battleID, ok, err
}

// DuelView snapshots the live duel for a reconnecting client.
func (m *Manager) DuelView(id string) (game.Event, error) {
	var ev game.Event
	err := m.with(id, func(s *Session) error {
		if s.duel == nil {
			return ErrNoActiveDuel
		}
		data := s.duel.duel.View()
		data["battleId"] = s.duel.id
		data["opponent"] = s.duel.opponent
		ev = game.Event{Type: "DuelResumed", Data: data}
		return nil
	})
	return ev, err
}

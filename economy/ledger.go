// ledger.go - Shop and post-battle bookkeeping
package economy

import (
	"fmt"
	"time"

	"stat-attack/game"
)

// Ledger applies economy rules to a State. Every method works on a clone
// and returns it only on success, so a failed call changes nothing.
type Ledger struct {
	Rules Rules
}

func NewLedger(r Rules) *Ledger {
	return &Ledger{Rules: r}
}

// Result describes what a battle did to the economy.
type Result struct {
	TokensEarned      int      `json:"tokens_earned"`
	Retired           []string `json:"retired,omitempty"`
	Cut               []string `json:"cut,omitempty"`
	CoachModeUnlocked bool     `json:"coach_mode_unlocked"`
}

// NewGame starts a save with one player card and one of its tapes.
func (l *Ledger) NewGame(p game.Player, tape game.Gametape, now time.Time) (State, error) {
	if tape.CardID != p.CardID() {
		return State{}, fmt.Errorf("%w: starter tape %s is not for card %s", ErrUnknownCard, tape.ID, p.CardID())
	}
	s := State{
		Version:     FormatVersion,
		Tokens:      l.Rules.StartingTokens,
		Players:     []game.Player{p},
		Gametapes:   []game.Gametape{tape},
		CardRecords: map[string]CardRecord{p.CardID(): {}},
		HallOfFame:  []HallOfFameEntry{},
		CreatedAt:   now.UTC().Truncate(time.Second),
	}
	s.CoachModeUnlocked = s.CoachModeOpen(l.Rules)
	return s, nil
}

// BuyGametape pays for a new tape of an owned card.
func (l *Ledger) BuyGametape(s State, tape game.Gametape) (State, error) {
	if _, ok := s.Player(tape.CardID); !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownCard, tape.CardID)
	}
	if s.InHallOfFame(tape.ID) {
		return s, fmt.Errorf("%w: %s", ErrRetiredTape, tape.ID)
	}
	if s.tapeIndex(tape.ID) >= 0 {
		return s, fmt.Errorf("%w: tape %s", ErrAlreadyOwned, tape.ID)
	}
	if s.Tokens < l.Rules.GametapeCost {
		return s, fmt.Errorf("%w: gametape costs %d, have %d", ErrInsufficientTokens, l.Rules.GametapeCost, s.Tokens)
	}

	out := s.Clone()
	out.Tokens -= l.Rules.GametapeCost
	out.Gametapes = append(out.Gametapes, tape)
	return out, nil
}

// BuyPlayerCard pays for a new card. The card arrives without tapes.
func (l *Ledger) BuyPlayerCard(s State, p game.Player) (State, error) {
	if _, ok := s.Player(p.CardID()); ok {
		return s, fmt.Errorf("%w: card %s", ErrAlreadyOwned, p.CardID())
	}
	if s.Tokens < l.Rules.PlayerCardCost {
		return s, fmt.Errorf("%w: player card costs %d, have %d", ErrInsufficientTokens, l.Rules.PlayerCardCost, s.Tokens)
	}

	out := s.Clone()
	out.Tokens -= l.Rules.PlayerCardCost
	out.Players = append(out.Players, p)
	if out.CardRecords == nil {
		out.CardRecords = map[string]CardRecord{}
	}
	if _, ok := out.CardRecords[p.CardID()]; !ok {
		out.CardRecords[p.CardID()] = CardRecord{}
	}
	return out, nil
}

// SellGametape removes a tape for its sell value.
func (l *Ledger) SellGametape(s State, tapeID string) (State, error) {
	i := s.tapeIndex(tapeID)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrUnknownTape, tapeID)
	}
	out := s.Clone()
	out.Gametapes = removeTape(out.Gametapes, i)
	out.Tokens += l.Rules.GametapeSellValue
	return out, nil
}

// SellPlayerCard removes a card and all its tapes. The last card is kept.
func (l *Ledger) SellPlayerCard(s State, cardID string) (State, error) {
	if _, ok := s.Player(cardID); !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownCard, cardID)
	}
	if len(s.Players) <= 1 {
		return s, ErrLastCard
	}

	out := s.Clone()
	players := out.Players[:0]
	for _, p := range out.Players {
		if p.CardID() != cardID {
			players = append(players, p)
		}
	}
	out.Players = players

	tapes := out.Gametapes[:0]
	sold := 0
	for _, t := range out.Gametapes {
		if t.CardID == cardID {
			sold++
			continue
		}
		tapes = append(tapes, t)
	}
	out.Gametapes = tapes
	out.Tokens += l.Rules.PlayerCardSellValue + sold*l.Rules.GametapeSellValue
	return out, nil
}

// RecordDuel books a 1v1 result for the player's tape.
func (l *Ledger) RecordDuel(s State, tapeID string, won bool) (State, Result, error) {
	reward := l.Rules.DuelLossTokens
	if won {
		reward = l.Rules.DuelWinTokens
	}
	return l.record(s, []string{tapeID}, won, reward)
}

// RecordTeamBattle books a 5v5 result for every tape in the lineup.
func (l *Ledger) RecordTeamBattle(s State, tapeIDs []string, won bool) (State, Result, error) {
	if !s.CoachModeOpen(l.Rules) {
		return s, Result{}, ErrCoachModeLocked
	}
	reward := l.Rules.TeamLossTokens
	if won {
		reward = l.Rules.TeamWinTokens
	}
	return l.record(s, tapeIDs, won, reward)
}

func (l *Ledger) record(s State, tapeIDs []string, won bool, reward int) (State, Result, error) {
	seen := make(map[string]bool, len(tapeIDs))
	for _, id := range tapeIDs {
		if s.InHallOfFame(id) {
			return s, Result{}, fmt.Errorf("%w: %s", ErrRetiredTape, id)
		}
		if s.tapeIndex(id) < 0 {
			return s, Result{}, fmt.Errorf("%w: %s", ErrUnknownTape, id)
		}
		if seen[id] {
			return s, Result{}, fmt.Errorf("%w: %s listed twice", ErrUnknownTape, id)
		}
		seen[id] = true
	}

	out := s.Clone()
	res := Result{TokensEarned: reward}
	out.Tokens += reward
	if won {
		out.TotalWins++
	} else {
		out.TotalLosses++
	}
	if out.CardRecords == nil {
		out.CardRecords = map[string]CardRecord{}
	}

	for _, id := range tapeIDs {
		i := out.tapeIndex(id)
		tape := out.Gametapes[i]
		rec := out.CardRecords[tape.CardID]
		if won {
			tape.Wins++
			rec.Wins++
		} else {
			tape.Losses++
			rec.Losses++
		}
		out.CardRecords[tape.CardID] = rec
		out.Gametapes[i] = tape

		switch {
		case tape.Wins >= l.Rules.RetireWins:
			out.Gametapes = removeTape(out.Gametapes, i)
			if !out.InHallOfFame(tape.ID) {
				name := ""
				if p, ok := out.Player(tape.CardID); ok {
					name = p.Name
				}
				out.HallOfFame = append(out.HallOfFame, HallOfFameEntry{
					Tape:        tape,
					PlayerName:  name,
					DisplayName: tape.DisplayName(),
					RetiredAt:   out.TotalWins,
				})
				out.Tokens += l.Rules.RetireBonus
				res.TokensEarned += l.Rules.RetireBonus
				res.Retired = append(res.Retired, tape.ID)
			}
		case tape.Losses >= l.Rules.CutLosses:
			out.Gametapes = removeTape(out.Gametapes, i)
			res.Cut = append(res.Cut, tape.ID)
		}
	}

	if !out.CoachModeUnlocked && out.TotalWins >= l.Rules.CoachModeWins {
		out.CoachModeUnlocked = true
		res.CoachModeUnlocked = true
	}
	return out, res, nil
}

// CoachModeReady reports whether a 5v5 lineup can be fielded.
func (l *Ledger) CoachModeReady(s State) error {
	if !s.CoachModeOpen(l.Rules) {
		return fmt.Errorf("%w: %d of %d wins", ErrCoachModeLocked, s.TotalWins, l.Rules.CoachModeWins)
	}
	withTapes := 0
	for _, p := range s.Players {
		if len(s.TapesFor(p.CardID())) > 0 {
			withTapes++
		}
	}
	if withTapes < l.Rules.TeamSize {
		return fmt.Errorf("%w: need %d cards with tapes, have %d", ErrCoachModeLocked, l.Rules.TeamSize, withTapes)
	}
	return nil
}

func removeTape(tapes []game.Gametape, i int) []game.Gametape {
	out := make([]game.Gametape, 0, len(tapes)-1)
	out = append(out, tapes[:i]...)
	return append(out, tapes[i+1:]...)
}

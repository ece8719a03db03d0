// economy.go - Tokens, roster and progression state
package economy

import (
	"errors"
	"fmt"
	"time"

	"stat-attack/game"
)

// FormatVersion is bumped whenever State changes shape.
const FormatVersion = 1

var (
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrUnknownTape        = errors.New("unknown gametape")
	ErrRetiredTape        = errors.New("gametape is retired")
	ErrUnknownCard        = errors.New("unknown player card")
	ErrAlreadyOwned       = errors.New("already owned")
	ErrLastCard           = errors.New("cannot sell your last player card")
	ErrCoachModeLocked    = errors.New("coach mode locked")
	ErrInvalidState       = errors.New("invalid economy state")
)

// Rules are the economy constants.
type Rules struct {
	GametapeCost        int `yaml:"gametape_cost"`
	PlayerCardCost      int `yaml:"player_card_cost"`
	GametapeSellValue   int `yaml:"gametape_sell_value"`
	PlayerCardSellValue int `yaml:"player_card_sell_value"`

	DuelWinTokens  int `yaml:"duel_win_tokens"`
	DuelLossTokens int `yaml:"duel_loss_tokens"`
	TeamWinTokens  int `yaml:"team_win_tokens"`
	TeamLossTokens int `yaml:"team_loss_tokens"`

	RetireWins     int `yaml:"retire_wins"`
	RetireBonus    int `yaml:"retire_bonus"`
	CutLosses      int `yaml:"cut_losses"`
	CoachModeWins  int `yaml:"coach_mode_wins"`
	TeamSize       int `yaml:"team_size"`
	StartingTokens int `yaml:"starting_tokens"`
}

func DefaultRules() Rules {
	return Rules{
		GametapeCost:        3,
		PlayerCardCost:      5,
		GametapeSellValue:   1,
		PlayerCardSellValue: 3,
		DuelWinTokens:       2,
		DuelLossTokens:      1,
		TeamWinTokens:       5,
		TeamLossTokens:      1,
		RetireWins:          16,
		RetireBonus:         8,
		CutLosses:           4,
		CoachModeWins:       41,
		TeamSize:            5,
		StartingTokens:      0,
	}
}

// CardRecord is a player card's lifetime record across all its tapes.
type CardRecord struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// HallOfFameEntry is a retired gametape, kept forever.
type HallOfFameEntry struct {
	Tape        game.Gametape `json:"tape"`
	PlayerName  string        `json:"player_name"`
	DisplayName string        `json:"display_name"`
	RetiredAt   int           `json:"retired_at_win"` // career win count when retired
}

// State is everything a save file holds. Treat it as a value: ledger
// operations return a new State and never modify their input.
type State struct {
	Version           int                   `json:"version"`
	Tokens            int                   `json:"tokens"`
	TotalWins         int                   `json:"total_wins"`
	TotalLosses       int                   `json:"total_losses"`
	Players           []game.Player         `json:"players"`
	Gametapes         []game.Gametape       `json:"gametapes"`
	CardRecords       map[string]CardRecord `json:"card_records"`
	HallOfFame        []HallOfFameEntry     `json:"hall_of_fame"`
	CoachModeUnlocked bool                  `json:"coach_mode_unlocked"`
	CreatedAt         time.Time             `json:"created_at"`
}

// Clone copies the slices and maps a ledger operation may change.
// Box scores inside tapes are never modified, so they are shared.
func (s State) Clone() State {
	out := s
	if s.Players != nil {
		out.Players = append([]game.Player(nil), s.Players...)
	}
	if s.Gametapes != nil {
		out.Gametapes = append([]game.Gametape(nil), s.Gametapes...)
	}
	if s.HallOfFame != nil {
		out.HallOfFame = append([]HallOfFameEntry(nil), s.HallOfFame...)
	}
	if s.CardRecords != nil {
		out.CardRecords = make(map[string]CardRecord, len(s.CardRecords))
		for k, v := range s.CardRecords {
			out.CardRecords[k] = v
		}
	}
	return out
}

// Player looks up an owned card.
func (s State) Player(cardID string) (game.Player, bool) {
	for _, p := range s.Players {
		if p.CardID() == cardID {
			return p, true
		}
	}
	return game.Player{}, false
}

// Tape looks up an active gametape.
func (s State) Tape(tapeID string) (game.Gametape, bool) {
	i := s.tapeIndex(tapeID)
	if i < 0 {
		return game.Gametape{}, false
	}
	return s.Gametapes[i], true
}

func (s State) tapeIndex(tapeID string) int {
	for i, t := range s.Gametapes {
		if t.ID == tapeID {
			return i
		}
	}
	return -1
}

// ActiveTapes returns a copy of the tapes still able to battle.
func (s State) ActiveTapes() []game.Gametape {
	return append([]game.Gametape{}, s.Gametapes...)
}

// TapesFor returns the active tapes of one card.
func (s State) TapesFor(cardID string) []game.Gametape {
	out := []game.Gametape{}
	for _, t := range s.Gametapes {
		if t.CardID == cardID {
			out = append(out, t)
		}
	}
	return out
}

// InHallOfFame reports whether the tape has been retired.
func (s State) InHallOfFame(tapeID string) bool {
	for _, e := range s.HallOfFame {
		if e.Tape.ID == tapeID {
			return true
		}
	}
	return false
}

// CoachModeOpen reports whether 5v5 is open under r. The unlock flag is
// sticky, so raising coach_mode_wins never locks out a player who earned it.
func (s State) CoachModeOpen(r Rules) bool {
	return s.CoachModeUnlocked || s.TotalWins >= r.CoachModeWins
}

// Validate checks the invariants a well-formed state must hold.
func (s State) Validate(r Rules) error {
	if s.Version != FormatVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrInvalidState, s.Version, FormatVersion)
	}
	if s.Tokens < 0 {
		return fmt.Errorf("%w: negative tokens", ErrInvalidState)
	}
	if s.TotalWins < 0 || s.TotalLosses < 0 {
		return fmt.Errorf("%w: negative totals", ErrInvalidState)
	}
	cards := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		id := p.CardID()
		if cards[id] {
			return fmt.Errorf("%w: duplicate card %s", ErrInvalidState, id)
		}
		cards[id] = true
	}

	tapes := make(map[string]bool, len(s.Gametapes))
	for _, t := range s.Gametapes {
		if tapes[t.ID] {
			return fmt.Errorf("%w: duplicate tape %s", ErrInvalidState, t.ID)
		}
		tapes[t.ID] = true
		if !cards[t.CardID] {
			return fmt.Errorf("%w: tape %s belongs to unowned card %s", ErrInvalidState, t.ID, t.CardID)
		}
		if t.Wins < 0 || t.Losses < 0 || t.Wins >= r.RetireWins || t.Losses >= r.CutLosses {
			return fmt.Errorf("%w: tape %s record %d-%d out of range", ErrInvalidState, t.ID, t.Wins, t.Losses)
		}
		for _, l := range t.Labels {
			if !game.KnownLabel(l) {
				return fmt.Errorf("%w: tape %s has unknown label %q", ErrInvalidState, t.ID, l)
			}
		}
	}

	retired := make(map[string]bool, len(s.HallOfFame))
	for _, e := range s.HallOfFame {
		if retired[e.Tape.ID] || tapes[e.Tape.ID] {
			return fmt.Errorf("%w: tape %s retired twice or still active", ErrInvalidState, e.Tape.ID)
		}
		retired[e.Tape.ID] = true
	}
	return nil
}

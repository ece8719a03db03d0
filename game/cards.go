// cards.go - Player cards, box scores and the gametapes built from them
package game

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrDataIncomplete is returned when a box score lacks a field needed
	// for deck generation, label evaluation or unit stats.
	ErrDataIncomplete = errors.New("box score incomplete")
	// ErrInconsistentBoxScore is returned for negative counts or makes above attempts.
	ErrInconsistentBoxScore = errors.New("box score inconsistent")
	// ErrInvalidTape is returned when a game does not hold enough plays to battle with.
	ErrInvalidTape = errors.New("gametape not playable")
)

// Stat is a box-score column name as used by the NBA stats API.
type Stat string

const (
	StatFGM       Stat = "FGM"
	StatFGA       Stat = "FGA"
	StatFG3M      Stat = "FG3M"
	StatFG3A      Stat = "FG3A"
	StatFTM       Stat = "FTM"
	StatFTA       Stat = "FTA"
	StatOREB      Stat = "OREB"
	StatDREB      Stat = "DREB"
	StatREB       Stat = "REB"
	StatAST       Stat = "AST"
	StatSTL       Stat = "STL"
	StatBLK       Stat = "BLK"
	StatTOV       Stat = "TOV"
	StatPF        Stat = "PF"
	StatPTS       Stat = "PTS"
	StatMIN       Stat = "MIN"
	StatPlusMinus Stat = "PLUS_MINUS"
)

// statAliases lets hand-written records use the shorthand column names.
var statAliases = map[Stat]Stat{
	"3PM": StatFG3M,
	"3PA": StatFG3A,
	"TO":  StatTOV,
	"+/-": StatPlusMinus,
}

// Advanced stat keys, read from the advanced/hustle/usage/scoring boxes.
const (
	AdvAstTo         = "AST_TO"
	AdvUsagePct      = "USG_PCT"
	AdvPctAst3PM     = "PCT_AST_3PM"
	AdvDeflections   = "DEFLECTIONS"
	AdvChargesDrawn  = "CHARGES_DRAWN"
	AdvScreenAssists = "SCREEN_ASSISTS"
)

// SeasonAverages are per-game averages over one season.
type SeasonAverages struct {
	GamesPlayed int     `json:"games_played" yaml:"games_played"`
	MIN         float64 `json:"min" yaml:"min"`
	PTS         float64 `json:"pts" yaml:"pts"`
	AST         float64 `json:"ast" yaml:"ast"`
	TOV         float64 `json:"tov" yaml:"tov"`
	REB         float64 `json:"reb" yaml:"reb"`
	STL         float64 `json:"stl" yaml:"stl"`
	BLK         float64 `json:"blk" yaml:"blk"`
}

// Player is a player card: one NBA player in one season.
type Player struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Season   string         `json:"season"`
	Averages SeasonAverages `json:"averages"`
}

// CardID identifies a player card, e.g. "2544_2024-25".
func CardID(playerID int64, season string) string {
	return fmt.Sprintf("%d_%s", playerID, season)
}

// ParseCardID splits a card ID back into player ID and season.
func ParseCardID(cardID string) (int64, string, error) {
	id, season, ok := strings.Cut(cardID, "_")
	if !ok || season == "" {
		return 0, "", fmt.Errorf("malformed card id %q", cardID)
	}
	pid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed card id %q", cardID)
	}
	return pid, season, nil
}

func (p Player) CardID() string {
	return CardID(p.ID, p.Season)
}

// BoxScore is one player's line from one real game.
type BoxScore struct {
	GameID   string             `json:"game_id"`
	PlayerID int64              `json:"player_id"`
	GameDate string             `json:"game_date,omitempty"`
	Matchup  string             `json:"matchup,omitempty"`
	Stats    map[Stat]int       `json:"stats"`
	Advanced map[string]float64 `json:"advanced,omitempty"`
}

// Get returns a stat count. PTS and REB are derived from makes and rebound
// splits when the record does not carry them.
func (b BoxScore) Get(s Stat) (int, bool) {
	if v, ok := b.Stats[s]; ok {
		return v, true
	}
	for alias, canonical := range statAliases {
		if canonical == s {
			if v, ok := b.Stats[alias]; ok {
				return v, true
			}
		}
	}

	switch s {
	case StatPTS:
		fgm, ok1 := b.Get(StatFGM)
		fg3m, ok2 := b.Get(StatFG3M)
		ftm, ok3 := b.Get(StatFTM)
		if ok1 && ok2 && ok3 {
			return 2*fgm + fg3m + ftm, true
		}
	case StatREB:
		oreb, ok1 := b.Get(StatOREB)
		dreb, ok2 := b.Get(StatDREB)
		if ok1 && ok2 {
			return oreb + dreb, true
		}
	}
	return 0, false
}

// value is Get for stats already checked by Require.
func (b BoxScore) value(s Stat) int {
	v, _ := b.Get(s)
	return v
}

// Adv returns an advanced stat and whether the source box had it.
func (b BoxScore) Adv(key string) (float64, bool) {
	v, ok := b.Advanced[key]
	return v, ok
}

// Require fails with a *MissingFieldsError when any of the stats is absent.
func (b BoxScore) Require(stats ...Stat) error {
	var missing []Stat
	for _, s := range stats {
		if _, ok := b.Get(s); !ok {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{GameID: b.GameID, Fields: missing}
	}
	return nil
}

// MissingFieldsError names the stats a box score is missing.
type MissingFieldsError struct {
	GameID string
	Fields []Stat
}

func (e *MissingFieldsError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	sort.Strings(names)
	return fmt.Sprintf("box score incomplete for game %s: missing %s", e.GameID, strings.Join(names, ", "))
}

func (e *MissingFieldsError) Unwrap() error { return ErrDataIncomplete }

// checkConsistent rejects impossible lines so they never reach a deck.
func (b BoxScore) checkConsistent() error {
	for s, v := range b.Stats {
		if v < 0 && s != StatPlusMinus && s != "+/-" {
			return fmt.Errorf("%w: %s is negative", ErrInconsistentBoxScore, s)
		}
	}
	fgm, fga, fg3m := b.value(StatFGM), b.value(StatFGA), b.value(StatFG3M)
	if fga < fgm {
		return fmt.Errorf("%w: FGA %d below FGM %d", ErrInconsistentBoxScore, fga, fgm)
	}
	if fgm < fg3m {
		return fmt.Errorf("%w: FGM %d below FG3M %d", ErrInconsistentBoxScore, fgm, fg3m)
	}
	return nil
}

// Gametape is a player's performance in one game, playable as a battle deck.
type Gametape struct {
	ID     string   `json:"id"`
	CardID string   `json:"card_id"`
	Box    BoxScore `json:"box_score"`
	Labels []Label  `json:"labels"`
	Wins   int      `json:"wins"`
	Losses int      `json:"losses"`
}

// TapeID identifies a gametape, e.g. "2544_0022400123".
func TapeID(playerID int64, gameID string) string {
	return fmt.Sprintf("%d_%s", playerID, gameID)
}

// NewGametape validates the box score and evaluates its labels.
func NewGametape(cardID string, box BoxScore, rules Rules) (Gametape, error) {
	deck, err := rules.BuildDeck(box)
	if err != nil {
		return Gametape{}, err
	}
	if err := rules.ValidateDeck(deck); err != nil {
		return Gametape{}, fmt.Errorf("game %s: %w", box.GameID, err)
	}
	labels, err := EvaluateLabels(box)
	if err != nil {
		return Gametape{}, err
	}
	return Gametape{
		ID:     TapeID(box.PlayerID, box.GameID),
		CardID: cardID,
		Box:    box,
		Labels: labels,
	}, nil
}

// HasLabel reports whether the tape carries the label.
func (t Gametape) HasLabel(l Label) bool {
	for _, have := range t.Labels {
		if have == l {
			return true
		}
	}
	return false
}

// DisplayName renders "YYYYMMDD_Matchup [xP/yR/zA] [labels]".
func (t Gametape) DisplayName() string {
	date := strings.ReplaceAll(t.Box.GameDate, "-", "")
	if len(date) > 8 {
		date = date[:8]
	}
	matchup := strings.ReplaceAll(t.Box.Matchup, " ", "")
	name := fmt.Sprintf("%s_%s [%dP/%dR/%dA]", date, matchup,
		t.Box.value(StatPTS), t.Box.value(StatREB), t.Box.value(StatAST))
	if len(t.Labels) > 0 {
		names := make([]string, len(t.Labels))
		for i, l := range t.Labels {
			names[i] = string(l)
		}
		name += " [" + strings.Join(names, ", ") + "]"
	}
	return name
}

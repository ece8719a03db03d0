// rules.go - YAML override for the game and economy constants
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"stat-attack/economy"
	"stat-attack/game"
)

// Rules bundles every tunable constant. A rules file only needs the keys it
// changes; everything else keeps its default.
type Rules struct {
	Game    game.Rules    `yaml:"game"`
	Economy economy.Rules `yaml:"economy"`
}

func DefaultRules() Rules {
	return Rules{Game: game.DefaultRules(), Economy: economy.DefaultRules()}
}

// LoadRules reads a rules file over the defaults. An empty path returns the
// defaults.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	r, err := ParseRules(data)
	if err != nil {
		return Rules{}, fmt.Errorf("rules %s: %w", path, err)
	}
	return r, nil
}

// ParseRules decodes YAML over the defaults. Unknown keys are rejected so a
// typo never silently keeps a default.
func ParseRules(data []byte) (Rules, error) {
	r := DefaultRules()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil && !errors.Is(err, io.EOF) {
		return Rules{}, err
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func (r Rules) Validate() error {
	g, e := r.Game, r.Economy
	switch {
	case g.MinMovesRequired < 1:
		return errors.New("game.min_moves_required must be at least 1")
	case g.MaxDuelTurns < 1:
		return errors.New("game.max_duel_turns must be at least 1")
	case g.TeamSize < 1 || g.TeamSize != e.TeamSize:
		return fmt.Errorf("game.team_size %d and economy.team_size %d must match and be positive", g.TeamSize, e.TeamSize)
	case g.Quarters < 1 || g.RoundsPerQuarter < 1:
		return errors.New("game.quarters and game.rounds_per_quarter must be positive")
	case g.RefillFraction <= 0 || g.RefillFraction > 1:
		return errors.New("game.refill_fraction must be in (0, 1]")
	case g.TimeoutsPerSide < 0:
		return errors.New("game.timeouts_per_side cannot be negative")
	case g.DamageScale <= 0:
		return errors.New("game.damage_scale must be positive")
	case e.GametapeCost < 0 || e.PlayerCardCost < 0 || e.StartingTokens < 0:
		return errors.New("economy costs and starting tokens cannot be negative")
	case e.RetireWins < 1 || e.CutLosses < 1:
		return errors.New("economy.retire_wins and economy.cut_losses must be at least 1")
	case e.CoachModeWins < 0:
		return errors.New("economy.coach_mode_wins cannot be negative")
	}
	return nil
}

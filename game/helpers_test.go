package game

import "math/rand"

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// scenarioBox is the 5-for-12 line with six assists and two turnovers.
func scenarioBox() BoxScore {
	return BoxScore{
		GameID:   "0022400001",
		PlayerID: 201939,
		Stats: map[Stat]int{
			"FGM": 5, "3PM": 2, "FTM": 3, "FGA": 12,
			"DREB": 4, "OREB": 1, "AST": 6, "STL": 1, "BLK": 0, "TOV": 2, "PF": 3,
		},
	}
}

// fullBox returns a complete line that passes every requirement.
func fullBox(gameID string, overrides map[Stat]int) BoxScore {
	stats := map[Stat]int{
		StatFGM: 8, StatFGA: 17, StatFG3M: 2, StatFG3A: 6, StatFTM: 4, StatFTA: 5,
		StatOREB: 2, StatDREB: 5, StatAST: 5, StatSTL: 1, StatBLK: 1,
		StatTOV: 2, StatPF: 2, StatMIN: 32, StatPlusMinus: 4,
	}
	for k, v := range overrides {
		stats[k] = v
	}
	return BoxScore{GameID: gameID, PlayerID: 1, GameDate: "2024-11-02", Matchup: "GSW vs. LAL", Stats: stats}
}

func testPlayer() Player {
	return Player{
		ID:     1,
		Name:   "Test Guard",
		Season: "2024-25",
		Averages: SeasonAverages{
			GamesPlayed: 60, MIN: 32, PTS: 22, AST: 5, TOV: 2, REB: 7, STL: 1, BLK: 1,
		},
	}
}

func testTape(box BoxScore) Gametape {
	return Gametape{ID: TapeID(box.PlayerID, box.GameID), CardID: "1_2024-25", Box: box}
}

// repeat builds a deck of n copies of kind k at default magnitude.
func repeat(k ActionKind, n int) Deck {
	r := DefaultRules()
	d := Deck{}
	for i := 0; i < n; i++ {
		d = append(d, Action{Kind: k, Magnitude: r.magnitude(k)})
	}
	return d
}

// bareUnit is a unit with fixed stats and a hand-made deck.
func bareUnit(name string, hp int, deck Deck) *Unit {
	return &Unit{
		Name:         name,
		MaxHP:        hp,
		HP:           hp,
		BaseAttack:   10,
		BaseDefense:  10,
		HealPct:      0.15,
		Full:         deck,
		TimeoutsLeft: 2,
	}
}

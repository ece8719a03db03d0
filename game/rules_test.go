package game

import (
	"context"
	"errors"
	"testing"
)

func TestDuelInitiative(t *testing.T) {
	home := bareUnit("home", 100, repeat(KindMiss, 5))
	away := bareUnit("away", 100, repeat(KindMiss, 5))
	away.PlusMinus = 8
	home.PlusMinus = 3

	d := NewDuel(home, away, DefaultRules(), newRand(1))
	if _, err := d.HandleCommand(Home, Command{Type: CmdDraw}); !errors.Is(err, ErrBattleNotActive) {
		t.Fatalf("expected ErrBattleNotActive before start, got %v", err)
	}

	d.Start()
	if d.Turn != Away || d.First != Away {
		t.Fatalf("expected away to go first, got turn %v", d.Turn)
	}
	if _, err := d.HandleCommand(Home, Command{Type: CmdDraw}); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}

	tie := NewDuel(bareUnit("h", 100, repeat(KindMiss, 2)), bareUnit("a", 100, repeat(KindMiss, 2)), DefaultRules(), newRand(1))
	tie.Start()
	if tie.First != Home {
		t.Errorf("expected home to win a plus/minus tie, got %v", tie.First)
	}
}

func TestDuelKnockout(t *testing.T) {
	home := bareUnit("home", 100, repeat(KindStrongAttack, 3))
	away := bareUnit("away", 10, repeat(KindMiss, 3))

	d := NewDuel(home, away, DefaultRules(), newRand(1))
	d.Start()
	events, err := d.HandleCommand(Home, Command{Type: CmdDraw})
	if err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	if d.Phase != PhaseOver || d.Outcome() != OutcomeWin || d.Reason != "knockout" {
		t.Fatalf("expected home knockout win, got phase %s winner %v reason %s", d.Phase, d.Winner, d.Reason)
	}
	if last := events[len(events)-1]; last.Type != "BattleOver" {
		t.Errorf("expected BattleOver last, got %s", last.Type)
	}
	if _, err := d.HandleCommand(Away, Command{Type: CmdDraw}); !errors.Is(err, ErrBattleOver) {
		t.Errorf("expected ErrBattleOver, got %v", err)
	}
}

func TestDuelFoulCanLose(t *testing.T) {
	home := bareUnit("home", 60, repeat(KindSelfDamage, 8))
	home.HP = 5
	away := bareUnit("away", 100, repeat(KindMiss, 3))

	d := NewDuel(home, away, DefaultRules(), newRand(1))
	d.Start()
	if _, err := d.HandleCommand(Home, Command{Type: CmdDraw}); err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	if d.Phase != PhaseOver || d.Winner != Away {
		t.Fatalf("expected fouling out to hand away the win, got %v", d.Winner)
	}
}

func TestDuelTurnoverSkipsNextTurn(t *testing.T) {
	home := bareUnit("home", 100, repeat(KindSkipTurn, 4))
	away := bareUnit("away", 100, repeat(KindMiss, 4))

	d := NewDuel(home, away, DefaultRules(), newRand(1))
	d.Start()

	mustPlay(t, d, Home, Command{Type: CmdDraw})
	if d.Turn != Away {
		t.Fatalf("expected away's turn, got %v", d.Turn)
	}
	events := mustPlay(t, d, Away, Command{Type: CmdDraw})
	if d.Turn != Away {
		t.Fatalf("expected home's turn skipped, got %v", d.Turn)
	}
	if !hasEvent(events, "TurnSkipped") {
		t.Error("expected a TurnSkipped event")
	}
	if home.SkipNext {
		t.Error("expected skip flag cleared")
	}
}

func TestDuelRefillWhenExhausted(t *testing.T) {
	home := bareUnit("home", 100, repeat(KindMiss, 8))
	away := bareUnit("away", 100, repeat(KindMiss, 20))

	d := NewDuel(home, away, DefaultRules(), newRand(1))
	d.Start()
	for i := 0; i < 8; i++ {
		mustPlay(t, d, Home, Command{Type: CmdDraw})
		mustPlay(t, d, Away, Command{Type: CmdDraw})
	}
	if len(home.Remaining) != 0 {
		t.Fatalf("expected empty deck, got %d", len(home.Remaining))
	}

	events := mustPlay(t, d, Home, Command{Type: CmdDraw})
	if !hasEvent(events, "DeckRefilled") {
		t.Fatal("expected DeckRefilled event")
	}
	// ceil(8 * 0.25) = 2, one already played
	if len(home.Remaining) != 1 {
		t.Errorf("expected 1 action left after refill, got %d", len(home.Remaining))
	}
	if n := countEvents(d.Log, "DeckRefilled"); n != 1 {
		t.Errorf("expected 1 DeckRefilled in the log after a draw, got %d", n)
	}

	mustPlay(t, d, Away, Command{Type: CmdDraw})
	mustPlay(t, d, Home, Command{Type: CmdDraw})
	mustPlay(t, d, Away, Command{Type: CmdDraw})
	events = mustPlay(t, d, Home, Command{Type: CmdPlay, Category: CatShot})
	if countEvents(events, "DeckRefilled") != 1 {
		t.Fatal("expected one DeckRefilled event from play")
	}
	if n := countEvents(d.Log, "DeckRefilled"); n != 2 {
		t.Errorf("expected 2 DeckRefilled in the log after a play, got %d", n)
	}
}

func countEvents(events []Event, typ string) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestDuelTimeout(t *testing.T) {
	home := bareUnit("home", 100, repeat(KindMiss, 6))
	away := bareUnit("away", 100, repeat(KindMiss, 20))

	d := NewDuel(home, away, DefaultRules(), newRand(1))
	d.Start()
	for i := 0; i < 5; i++ {
		mustPlay(t, d, Home, Command{Type: CmdDraw})
		mustPlay(t, d, Away, Command{Type: CmdDraw})
	}

	mustPlay(t, d, Home, Command{Type: CmdTimeout})
	// 5 used, ceil(2.5) = 3 restored on top of the 1 left
	if len(home.Remaining) != 4 {
		t.Errorf("expected 4 actions after timeout, got %d", len(home.Remaining))
	}
	if d.Turn != Home {
		t.Errorf("expected timeout to keep the turn, got %v", d.Turn)
	}

	mustPlay(t, d, Home, Command{Type: CmdTimeout})
	if _, err := d.HandleCommand(Home, Command{Type: CmdTimeout}); !errors.Is(err, ErrNoTimeouts) {
		t.Errorf("expected ErrNoTimeouts on third call, got %v", err)
	}
}

func TestDuelPlayCategory(t *testing.T) {
	home := bareUnit("home", 100, append(repeat(KindMiss, 5), repeat(KindAttackBuff, 1)...))
	away := bareUnit("away", 100, repeat(KindMiss, 5))

	d := NewDuel(home, away, DefaultRules(), newRand(1))
	d.Start()
	mustPlay(t, d, Home, Command{Type: CmdPlay, Category: CatAssist})
	if home.AttackStacks != 1 {
		t.Fatalf("expected the assist to be played, got %d attack stacks", home.AttackStacks)
	}

	mustPlay(t, d, Away, Command{Type: CmdDraw})
	if _, err := d.HandleCommand(Home, Command{Type: CmdPlay, Category: CatAssist}); !errors.Is(err, ErrNoSuchAction) {
		t.Errorf("expected ErrNoSuchAction, got %v", err)
	}
	if _, err := d.HandleCommand(Home, Command{Type: CmdPlay, Category: "dunk"}); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
	if d.Turn != Home {
		t.Errorf("expected failed commands to keep the turn")
	}
}

func TestDuelTurnLimit(t *testing.T) {
	r := DefaultRules()
	r.MaxDuelTurns = 10
	home := bareUnit("home", 100, repeat(KindMiss, 4))
	away := bareUnit("away", 100, repeat(KindMiss, 4))
	away.HP = 90

	d := NewDuel(home, away, r, newRand(1))
	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != "turn_limit" || res.Turns != 10 {
		t.Fatalf("expected turn limit after 10 turns, got %s after %d", res.Reason, res.Turns)
	}
	if res.Winner != Home {
		t.Errorf("expected healthier home side to win, got %v", res.Winner)
	}
}

func TestDuelRunIsReproducible(t *testing.T) {
	r := DefaultRules()
	play := func(seed int64) DuelResult {
		p := testPlayer()
		home, err := NewUnit(p, testTape(fullBox("g1", nil)), r)
		if err != nil {
			t.Fatalf("NewUnit: %v", err)
		}
		away, err := NewUnit(p, testTape(fullBox("g2", map[Stat]int{StatAST: 9, StatTOV: 1, StatPlusMinus: 9})), r)
		if err != nil {
			t.Fatalf("NewUnit: %v", err)
		}
		res, err := NewDuel(home, away, r, newRand(seed)).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return res
	}

	a, b := play(42), play(42)
	if a.Winner != b.Winner || a.Turns != b.Turns || a.HomeHP != b.HomeHP || len(a.Log) != len(b.Log) {
		t.Fatalf("same seed gave different duels: %+v vs %+v", a.Turns, b.Turns)
	}
	if a.Reason != "knockout" && a.Reason != "turn_limit" {
		t.Errorf("unexpected reason %q", a.Reason)
	}
	if a.Winner == Home && a.HomeHP == 0 {
		t.Error("winner cannot be at zero HP")
	}
}

func TestDuelRunHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDuel(bareUnit("h", 100, repeat(KindMiss, 3)), bareUnit("a", 100, repeat(KindMiss, 3)), DefaultRules(), newRand(1))
	if _, err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStopperAddsMissesForBattleOnly(t *testing.T) {
	home := bareUnit("home", 100, repeat(KindAttack, 5))
	home.Labels = []Label{LabelStopper}
	away := bareUnit("away", 100, repeat(KindAttack, 5))
	base := away.Full

	d := NewDuel(home, away, DefaultRules(), newRand(1))
	d.Start()
	if n := away.Remaining.Counts()[KindMiss]; n != 2 {
		t.Errorf("expected 2 stopper misses in away deck, got %d", n)
	}
	if len(base) != 5 {
		t.Errorf("expected the original deck untouched, got %d entries", len(base))
	}
}

func mustPlay(t *testing.T, d *Duel, side Side, cmd Command) []Event {
	t.Helper()
	events, err := d.HandleCommand(side, cmd)
	if err != nil {
		t.Fatalf("HandleCommand(%v, %+v): %v", side, cmd, err)
	}
	return events
}

func hasEvent(events []Event, typ string) bool {
	for _, e := range events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

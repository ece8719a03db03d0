package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"stat-attack/economy"
	"stat-attack/game"
	"stat-attack/savefile"
	"stat-attack/stats"
)

// fakeStore is an in-memory box-score catalog.
type fakeStore struct {
	players map[string]game.Player
	games   map[string][]game.BoxScore
}

func (f *fakeStore) CardPool(ctx context.Context) ([]stats.Card, error) {
	pool := []stats.Card{}
	for _, p := range f.players {
		pool = append(pool, stats.Card{PlayerID: p.ID, Season: p.Season, Name: p.Name})
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].PlayerID < pool[j].PlayerID })
	return pool, nil
}

func (f *fakeStore) Player(ctx context.Context, playerID int64, season string) (game.Player, error) {
	p, ok := f.players[game.CardID(playerID, season)]
	if !ok {
		return game.Player{}, stats.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) PlayerGames(ctx context.Context, playerID int64, season string) ([]game.BoxScore, error) {
	return f.games[game.CardID(playerID, season)], nil
}

func (f *fakeStore) BoxScore(ctx context.Context, playerID int64, gameID string) (game.BoxScore, error) {
	for _, games := range f.games {
		for _, g := range games {
			if g.PlayerID == playerID && g.GameID == gameID {
				return g, nil
			}
		}
	}
	return game.BoxScore{}, stats.ErrNotFound
}

func box(pid int64, gameID string, v int) game.BoxScore {
	return game.BoxScore{
		GameID:   gameID,
		PlayerID: pid,
		GameDate: fmt.Sprintf("2024-11-%02d", 1+v),
		Matchup:  "BOS vs. NYK",
		Stats: map[game.Stat]int{
			"FGM": 7 + v, "FGA": 16 + v, "FG3M": 2, "FG3A": 5, "FTM": 3, "FTA": 4,
			"OREB": 1 + v%2, "DREB": 5, "REB": 6 + v%2, "AST": 4 + v, "STL": 1, "BLK": 1,
			"TOV": 2, "PF": 2, "PTS": 19 + 2*v, "MIN": 30 + v, "PLUS_MINUS": v - 1,
		},
	}
}

func newFakeStore() *fakeStore {
	f := &fakeStore{players: map[string]game.Player{}, games: map[string][]game.BoxScore{}}
	for pid := int64(1); pid <= 8; pid++ {
		p := game.Player{ID: pid, Name: fmt.Sprintf("Player %d", pid), Season: "2024-25",
			Averages: game.SeasonAverages{GamesPlayed: 60, MIN: 31, PTS: 20, AST: 5, TOV: 2, REB: 6, STL: 1, BLK: 1}}
		f.players[p.CardID()] = p
		for g := 0; g < 4; g++ {
			f.games[p.CardID()] = append(f.games[p.CardID()], box(pid, fmt.Sprintf("00224%05d", int(pid)*10+g), g))
		}
	}
	// a bench player whose only game is too thin to play
	bench := game.Player{ID: 99, Name: "Bench", Season: "2024-25", Averages: game.SeasonAverages{GamesPlayed: 3, MIN: 9}}
	f.players[bench.CardID()] = bench
	thin := box(99, "0022499999", 0)
	for _, s := range []game.Stat{"FGM", "FGA", "FG3M", "FTM", "AST", "OREB", "DREB", "STL", "BLK", "TOV", "PF"} {
		thin.Stats[s] = 0
	}
	f.games[bench.CardID()] = []game.BoxScore{thin}
	return f
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newManager(t *testing.T, saves savefile.Store) (*Manager, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 1, 10, 20, 0, 0, 0, time.UTC)}
	m := NewManager(newFakeStore(), Options{
		GameRules:    game.DefaultRules(),
		EconomyRules: economy.DefaultRules(),
		Saves:        saves,
		Seed:         7,
		Now:          c.now,
	})
	return m, c
}

func create(t *testing.T, m *Manager) (string, economy.State) {
	t.Helper()
	id, st, err := m.Create(context.Background(), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id, st
}

// grant edits a session's state directly, standing in for many battles.
func grant(t *testing.T, m *Manager, id string, fn func(st *economy.State)) {
	t.Helper()
	if err := m.with(id, func(s *Session) error {
		fn(&s.state)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestCreateGrantsStarter(t *testing.T) {
	m, _ := newManager(t, nil)
	id, st := create(t, m)

	if len(st.Players) != 1 || len(st.Gametapes) != 1 || st.Tokens != 0 {
		t.Fatalf("expected one card, one tape, no tokens; got %d, %d, %d", len(st.Players), len(st.Gametapes), st.Tokens)
	}
	if st.Gametapes[0].CardID != st.Players[0].CardID() {
		t.Error("expected starter tape to belong to the starter card")
	}
	if st.Players[0].ID == 99 {
		t.Error("expected the bench player with no playable game to be passed over")
	}
	if err := st.Validate(economy.DefaultRules()); err != nil {
		t.Errorf("Validate: %v", err)
	}

	ctx := context.Background()
	if _, err := m.BuyGametape(ctx, id, st.Players[0].CardID()); !errors.Is(err, economy.ErrInsufficientTokens) {
		t.Errorf("expected ErrInsufficientTokens, got %v", err)
	}
	if _, err := m.BuyPlayerCard(ctx, id, ""); !errors.Is(err, economy.ErrInsufficientTokens) {
		t.Errorf("expected ErrInsufficientTokens, got %v", err)
	}
}

func TestCreateIsSeeded(t *testing.T) {
	a, _ := newManager(t, nil)
	b, _ := newManager(t, nil)
	_, sa := create(t, a)
	_, sb := create(t, b)
	if sa.Gametapes[0].ID != sb.Gametapes[0].ID {
		t.Errorf("same seed gave different starters: %s vs %s", sa.Gametapes[0].ID, sb.Gametapes[0].ID)
	}

	seed := int64(123)
	_, s1, err := a.Create(context.Background(), &seed)
	if err != nil {
		t.Fatal(err)
	}
	_, s2, err := b.Create(context.Background(), &seed)
	if err != nil {
		t.Fatal(err)
	}
	if s1.Gametapes[0].ID != s2.Gametapes[0].ID {
		t.Error("explicit seed gave different starters")
	}
}

func TestUnknownSession(t *testing.T) {
	m, _ := newManager(t, nil)
	if _, err := m.State("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := m.PlayDuel(context.Background(), "nope", "x"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestShop(t *testing.T) {
	m, _ := newManager(t, nil)
	ctx := context.Background()
	id, st := create(t, m)
	grant(t, m, id, func(s *economy.State) { s.Tokens = 20 })
	card := st.Players[0].CardID()

	st, err := m.BuyGametape(ctx, id, card)
	if err != nil {
		t.Fatalf("BuyGametape: %v", err)
	}
	if len(st.Gametapes) != 2 || st.Tokens != 17 || st.Gametapes[0].ID == st.Gametapes[1].ID {
		t.Fatalf("expected a second distinct tape for 17 tokens, got %+v", st.Gametapes)
	}
	if _, err := m.BuyGametape(ctx, id, "5_1999-00"); !errors.Is(err, economy.ErrUnknownCard) {
		t.Errorf("expected ErrUnknownCard, got %v", err)
	}

	st, err = m.BuyPlayerCard(ctx, id, "")
	if err != nil {
		t.Fatalf("BuyPlayerCard: %v", err)
	}
	if len(st.Players) != 2 || st.Tokens != 12 {
		t.Fatalf("expected 2 cards and 12 tokens, got %d and %d", len(st.Players), st.Tokens)
	}
	if _, err := m.BuyPlayerCard(ctx, id, st.Players[1].CardID()); !errors.Is(err, economy.ErrAlreadyOwned) {
		t.Errorf("expected ErrAlreadyOwned, got %v", err)
	}

	st, err = m.SellGametape(id, st.Gametapes[1].ID)
	if err != nil {
		t.Fatalf("SellGametape: %v", err)
	}
	if st.Tokens != 13 {
		t.Errorf("expected 13 tokens, got %d", st.Tokens)
	}
	st, err = m.SellPlayerCard(id, st.Players[1].CardID())
	if err != nil {
		t.Fatalf("SellPlayerCard: %v", err)
	}
	if st.Tokens != 16 || len(st.Players) != 1 {
		t.Errorf("expected 16 tokens and 1 card, got %d and %d", st.Tokens, len(st.Players))
	}
}

func TestPlayDuelBooksResult(t *testing.T) {
	m, _ := newManager(t, nil)
	id, st := create(t, m)
	tape := st.Gametapes[0].ID

	rep, err := m.PlayDuel(context.Background(), id, tape)
	if err != nil {
		t.Fatalf("PlayDuel: %v", err)
	}
	want := 1
	if rep.Result.Outcome == game.OutcomeWin {
		want = 2
	}
	if rep.State.Tokens != want || rep.Economy.TokensEarned != want {
		t.Errorf("expected %d tokens for a %s, got %d", want, rep.Result.Outcome, rep.State.Tokens)
	}
	if rep.State.TotalWins+rep.State.TotalLosses != 1 {
		t.Error("expected one battle on the record")
	}
	if rep.Opponent.TapeID == "" || rep.BattleID == "" || len(rep.Result.Log) == 0 {
		t.Errorf("incomplete report %+v", rep)
	}

	if _, err := m.PlayDuel(context.Background(), id, "1_nope"); !errors.Is(err, economy.ErrUnknownTape) {
		t.Errorf("expected ErrUnknownTape, got %v", err)
	}
}

func TestInteractiveDuel(t *testing.T) {
	m, _ := newManager(t, nil)
	id, st := create(t, m)

	battleID, events, err := m.StartDuel(context.Background(), id, st.Gametapes[0].ID)
	if err != nil {
		t.Fatalf("StartDuel: %v", err)
	}
	if battleID == "" || len(events) == 0 || events[0].Type != "DuelCreated" {
		t.Fatalf("unexpected start events %+v", events)
	}
	if _, _, err := m.StartDuel(context.Background(), id, st.Gametapes[0].ID); !errors.Is(err, ErrDuelInProgress) {
		t.Errorf("expected ErrDuelInProgress, got %v", err)
	}
	if _, err := m.SellGametape(id, st.Gametapes[0].ID); !errors.Is(err, ErrDuelInProgress) {
		t.Errorf("expected the tape on court to be unsellable, got %v", err)
	}
	view, err := m.DuelView(id)
	if err != nil {
		t.Fatalf("DuelView: %v", err)
	}
	if view.Type != "DuelResumed" || view.Data["battleId"] != battleID {
		t.Errorf("unexpected duel view %+v", view)
	}

	var booked bool
	for i := 0; i < 2000; i++ {
		for {
			evs, done, err := m.BotTurn(id)
			if err != nil {
				t.Fatalf("BotTurn: %v", err)
			}
			booked = booked || hasEvent(evs, "EconomyUpdated")
			if done {
				break
			}
		}
		if _, live, _ := m.LiveDuel(id); !live {
			break
		}
		evs, err := m.DuelCommand(id, game.Command{Type: game.CmdDraw})
		if err != nil {
			t.Fatalf("DuelCommand: %v", err)
		}
		booked = booked || hasEvent(evs, "EconomyUpdated")
	}

	if _, live, _ := m.LiveDuel(id); live {
		t.Fatal("expected the duel to finish")
	}
	if !booked {
		t.Error("expected an EconomyUpdated event when the duel ended")
	}
	final, _ := m.State(id)
	if final.TotalWins+final.TotalLosses != 1 {
		t.Errorf("expected the duel booked once, got %d-%d", final.TotalWins, final.TotalLosses)
	}
	if _, err := m.DuelCommand(id, game.Command{Type: game.CmdDraw}); !errors.Is(err, ErrNoActiveDuel) {
		t.Errorf("expected ErrNoActiveDuel, got %v", err)
	}
}

func TestLeaveDuelForfeits(t *testing.T) {
	m, _ := newManager(t, nil)
	id, st := create(t, m)
	if _, _, err := m.StartDuel(context.Background(), id, st.Gametapes[0].ID); err != nil {
		t.Fatalf("StartDuel: %v", err)
	}
	events, err := m.LeaveDuel(id)
	if err != nil {
		t.Fatalf("LeaveDuel: %v", err)
	}
	if !hasEvent(events, "DuelForfeited") {
		t.Error("expected DuelForfeited")
	}
	final, _ := m.State(id)
	if final.TotalLosses != 1 || final.Tokens != 1 {
		t.Errorf("expected a booked loss, got %d losses and %d tokens", final.TotalLosses, final.Tokens)
	}
}

// fillRoster gives the session five cards with a tape each.
func fillRoster(t *testing.T, m *Manager, id string) []string {
	t.Helper()
	ctx := context.Background()
	grant(t, m, id, func(s *economy.State) { s.Tokens = 100 })
	st := mustState(t, m, id)
	for pid := int64(1); len(st.Players) < 5; pid++ {
		card := game.CardID(pid, "2024-25")
		if _, owned := st.Player(card); owned {
			continue
		}
		var err error
		if st, err = m.BuyPlayerCard(ctx, id, card); err != nil {
			t.Fatalf("BuyPlayerCard: %v", err)
		}
		if st, err = m.BuyGametape(ctx, id, card); err != nil {
			t.Fatalf("BuyGametape: %v", err)
		}
	}
	ids := []string{}
	for _, p := range st.Players {
		ids = append(ids, st.TapesFor(p.CardID())[0].ID)
	}
	return ids
}

func TestTeamBattle(t *testing.T) {
	m, _ := newManager(t, nil)
	ctx := context.Background()
	id, _ := create(t, m)
	lineup := fillRoster(t, m, id)
	plan := game.Strategy{Offense: game.OffenseBallMovement, Defense: game.DefenseBoxOut}

	if _, err := m.PlayTeamBattle(ctx, id, lineup, plan); !errors.Is(err, economy.ErrCoachModeLocked) {
		t.Fatalf("expected ErrCoachModeLocked, got %v", err)
	}
	grant(t, m, id, func(s *economy.State) {
		s.TotalWins = 41
		s.CoachModeUnlocked = true
	})

	if _, err := m.PlayTeamBattle(ctx, id, lineup, game.Strategy{Offense: "Iso Ball", Defense: game.DefenseBoxOut}); !errors.Is(err, game.ErrInvalidStrategy) {
		t.Errorf("expected ErrInvalidStrategy, got %v", err)
	}
	if _, err := m.PlayTeamBattle(ctx, id, lineup[:4], plan); !errors.Is(err, ErrInvalidLineup) {
		t.Errorf("expected ErrInvalidLineup for four tapes, got %v", err)
	}
	before, _ := m.State(id)

	rep, err := m.PlayTeamBattle(ctx, id, lineup, plan)
	if err != nil {
		t.Fatalf("PlayTeamBattle: %v", err)
	}
	if len(rep.Opponents) != 5 {
		t.Errorf("expected five opponents, got %d", len(rep.Opponents))
	}
	if err := rep.OpponentStrategy.Validate(); err != nil {
		t.Errorf("opponent strategy: %v", err)
	}
	earned := rep.State.Tokens - before.Tokens
	if rep.Result.Outcome == game.OutcomeWin && earned != 5 || rep.Result.Outcome == game.OutcomeLoss && earned != 1 {
		t.Errorf("unexpected reward %d for a %s", earned, rep.Result.Outcome)
	}
	for _, tid := range lineup {
		tape, _ := rep.State.Tape(tid)
		if tape.Wins+tape.Losses != 1 {
			t.Errorf("expected %s to have one battle on record", tid)
		}
	}
}

func TestExportImport(t *testing.T) {
	m, _ := newManager(t, nil)
	ctx := context.Background()
	id, _ := create(t, m)
	if _, err := m.PlayDuel(ctx, id, mustState(t, m, id).Gametapes[0].ID); err != nil {
		t.Fatal(err)
	}
	data, err := m.Export(id)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	other, _ := create(t, m)
	st, err := m.Import(ctx, other, data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !reflect.DeepEqual(st, mustState(t, m, id)) {
		t.Error("expected imported state to equal the exported one")
	}

	st, err = m.Import(ctx, other, []byte(`{"version": 1, "tokens": -5}`))
	if !errors.Is(err, savefile.ErrSaveCorrupt) {
		t.Fatalf("expected ErrSaveCorrupt, got %v", err)
	}
	if len(st.Players) != 1 || len(st.Gametapes) != 1 || st.Tokens != 0 || st.TotalWins+st.TotalLosses != 0 {
		t.Errorf("expected a fresh game after a corrupt import, got %+v", st)
	}
	if !reflect.DeepEqual(st, mustState(t, m, other)) {
		t.Error("expected the session to hold the fresh game")
	}
}

func TestSaveSlots(t *testing.T) {
	ctx := context.Background()
	off, _ := newManager(t, nil)
	oid, _ := create(t, off)
	if err := off.SaveSlot(ctx, oid, "a"); !errors.Is(err, ErrSavesDisabled) {
		t.Errorf("expected ErrSavesDisabled, got %v", err)
	}

	fs, err := savefile.NewFileStore(t.TempDir(), economy.DefaultRules())
	if err != nil {
		t.Fatal(err)
	}
	m, _ := newManager(t, fs)
	id, st := create(t, m)
	if err := m.SaveSlot(ctx, id, "career"); err != nil {
		t.Fatalf("SaveSlot: %v", err)
	}
	if _, err := m.PlayDuel(ctx, id, st.Gametapes[0].ID); err != nil {
		t.Fatal(err)
	}
	loaded, err := m.LoadSlot(ctx, id, "career")
	if err != nil {
		t.Fatalf("LoadSlot: %v", err)
	}
	if !reflect.DeepEqual(loaded, st) {
		t.Error("expected the slot to restore the saved state")
	}
	if _, err := m.LoadSlot(ctx, id, "missing"); !errors.Is(err, savefile.ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound, got %v", err)
	}
	slots, err := m.ListSlots(ctx)
	if err != nil || !reflect.DeepEqual(slots, []string{"career"}) {
		t.Errorf("unexpected slots %v (%v)", slots, err)
	}
}

func TestSweep(t *testing.T) {
	m, c := newManager(t, nil)
	old, _ := create(t, m)
	c.t = c.t.Add(90 * time.Minute)
	fresh, _ := create(t, m)

	if n := m.Sweep(time.Hour); n != 1 {
		t.Fatalf("expected 1 session swept, got %d", n)
	}
	if _, err := m.State(old); !errors.Is(err, ErrSessionNotFound) {
		t.Error("expected idle session gone")
	}
	if _, err := m.State(fresh); err != nil {
		t.Errorf("expected active session kept: %v", err)
	}
}

// slowCorruptStore hands back a corrupt save after a pause, signalling
// when a load has begun.
type slowCorruptStore struct {
	started chan struct{}
	delay   time.Duration
}

func (s *slowCorruptStore) Save(ctx context.Context, slot string, st economy.State) error {
	return nil
}

func (s *slowCorruptStore) Load(ctx context.Context, slot string) (economy.State, error) {
	close(s.started)
	time.Sleep(s.delay)
	return economy.State{}, fmt.Errorf("%w: bad", savefile.ErrSaveCorrupt)
}

func (s *slowCorruptStore) List(ctx context.Context) ([]string, error) { return nil, nil }

func (s *slowCorruptStore) Delete(ctx context.Context, slot string) error { return nil }

func TestSweepDuringCorruptLoad(t *testing.T) {
	store := &slowCorruptStore{started: make(chan struct{}), delay: 200 * time.Millisecond}
	m, _ := newManager(t, store)
	id, _ := create(t, m)

	loaded := make(chan error, 1)
	go func() {
		_, err := m.LoadSlot(context.Background(), id, "career")
		loaded <- err
	}()
	<-store.started

	swept := make(chan int, 1)
	go func() { swept <- m.Sweep(time.Hour) }()

	timeout := time.After(3 * time.Second)
	select {
	case err := <-loaded:
		if !errors.Is(err, savefile.ErrSaveCorrupt) {
			t.Errorf("expected ErrSaveCorrupt, got %v", err)
		}
	case <-timeout:
		t.Fatal("LoadSlot did not return while a sweep was running")
	}
	select {
	case n := <-swept:
		if n != 0 {
			t.Errorf("expected no session swept, got %d", n)
		}
	case <-timeout:
		t.Fatal("Sweep did not return while a load was running")
	}

	st := mustState(t, m, id)
	if len(st.Players) != 1 || len(st.Gametapes) != 1 {
		t.Errorf("expected a fresh starter game, got %d cards %d tapes", len(st.Players), len(st.Gametapes))
	}
}

func TestSetRules(t *testing.T) {
	m, _ := newManager(t, nil)
	g, e := game.DefaultRules(), economy.DefaultRules()
	e.DuelLossTokens = 0
	m.SetRules(g, e)
	_, got := m.Rules()
	if got.DuelLossTokens != 0 {
		t.Error("expected new economy rules")
	}
}

func TestSetRulesKeepsSavesValid(t *testing.T) {
	ctx := context.Background()
	fs, err := savefile.NewFileStore(t.TempDir(), economy.DefaultRules())
	if err != nil {
		t.Fatal(err)
	}
	m, _ := newManager(t, fs)
	veteran, _ := create(t, m)
	grant(t, m, veteran, func(s *economy.State) {
		s.TotalWins = 41
		s.CoachModeUnlocked = true
	})
	rookie, _ := create(t, m)

	tests := []struct {
		name string
		wins int
	}{
		{"raised threshold", 50},
		{"lowered threshold", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := economy.DefaultRules()
			e.CoachModeWins = tt.wins
			m.SetRules(game.DefaultRules(), e)
			for _, id := range []string{veteran, rookie} {
				if _, err := m.Export(id); err != nil {
					t.Errorf("Export %s: %v", id, err)
				}
				if err := m.SaveSlot(ctx, id, "after-reload"); err != nil {
					t.Errorf("SaveSlot %s: %v", id, err)
				}
			}
		})
	}
}

func mustState(t *testing.T, m *Manager, id string) economy.State {
	t.Helper()
	st, err := m.State(id)
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func hasEvent(events []game.Event, typ string) bool {
	for _, e := range events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

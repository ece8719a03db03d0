package savefile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"stat-attack/economy"
	"stat-attack/game"
)

func sampleState(t *testing.T) economy.State {
	t.Helper()
	l := economy.NewLedger(economy.DefaultRules())
	p := game.Player{ID: 201939, Name: "Stephen Curry", Season: "2015-16",
		Averages: game.SeasonAverages{GamesPlayed: 79, MIN: 34.2, PTS: 30.1, AST: 6.7, TOV: 3.3, REB: 5.4, STL: 2.1, BLK: 0.2}}
	tape := game.Gametape{
		ID:     game.TapeID(p.ID, "0021500800"),
		CardID: p.CardID(),
		Box: game.BoxScore{GameID: "0021500800", PlayerID: p.ID, GameDate: "2016-02-27", Matchup: "GSW @ OKC",
			Stats: map[game.Stat]int{"FGM": 14, "FGA": 24, "FG3M": 12, "FTM": 6, "AST": 6, "PF": 1, "MIN": 42, "PLUS_MINUS": 9}},
		Labels: []game.Label{game.LabelThreeAndD},
	}
	s, err := l.NewGame(p, tape, time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	s, _, err = l.RecordDuel(s, tape.ID, true)
	if err != nil {
		t.Fatalf("RecordDuel: %v", err)
	}
	s, _, err = l.RecordDuel(s, tape.ID, false)
	if err != nil {
		t.Fatalf("RecordDuel: %v", err)
	}
	s.HallOfFame = append(s.HallOfFame, economy.HallOfFameEntry{
		Tape:        game.Gametape{ID: "201939_0021500001", CardID: p.CardID(), Wins: 16, Labels: []game.Label{}, Box: game.BoxScore{Stats: map[game.Stat]int{"FGM": 10}}},
		PlayerName:  p.Name,
		DisplayName: "20151027_GSWvs.NOP [40P/6R/7A]",
		RetiredAt:   30,
	})
	return s
}

func TestRoundTrip(t *testing.T) {
	r := economy.DefaultRules()
	s := sampleState(t)

	data, err := Encode(s, r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data, r)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Fatalf("round trip changed the state:\nwant %+v\ngot  %+v", s, got)
	}

	again, err := Encode(got, r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(again) != string(data) {
		t.Error("expected re-encoding to be byte-identical")
	}
}

func TestDecodeCorrupt(t *testing.T) {
	r := economy.DefaultRules()
	good, err := Encode(sampleState(t), r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not json", "this is not a save"},
		{"truncated", string(good[:len(good)/2])},
		{"trailing data", string(good) + "{}"},
		{"unknown field", strings.Replace(string(good), `"tokens"`, `"coins": 1, "tokens"`, 1)},
		{"negative tokens", strings.Replace(string(good), `"tokens": 3`, `"tokens": -3`, 1)},
		{"future version", strings.Replace(string(good), `"version": 1`, `"version": 7`, 1)},
		{"wrong type", strings.Replace(string(good), `"tokens": 3`, `"tokens": "three"`, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.data == string(good) {
				t.Fatal("mutation did not apply")
			}
			if _, err := Decode([]byte(tt.data), r); !errors.Is(err, ErrSaveCorrupt) {
				t.Errorf("expected ErrSaveCorrupt, got %v", err)
			}
		})
	}
}

func TestEncodeRefusesInvalidState(t *testing.T) {
	s := sampleState(t)
	s.Tokens = -1
	if _, err := Encode(s, economy.DefaultRules()); !errors.Is(err, economy.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := NewFileStore(dir, economy.DefaultRules())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	s := sampleState(t)

	if _, err := fs.Load(ctx, "slot1"); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}
	if err := fs.Save(ctx, "../escape", s); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
	if err := fs.Save(ctx, "slot1", s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := fs.Load(ctx, "slot1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Error("expected loaded state to equal saved state")
	}

	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Load(ctx, "broken"); !errors.Is(err, ErrSaveCorrupt) {
		t.Errorf("expected ErrSaveCorrupt, got %v", err)
	}

	slots, err := fs.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(slots, []string{"broken", "slot1"}) {
		t.Errorf("unexpected slots %v", slots)
	}
	if err := fs.Delete(ctx, "slot1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := fs.Delete(ctx, "slot1"); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound, got %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("STAT_ATTACK_TEST_REDIS")
	if url == "" {
		t.Skip("STAT_ATTACK_TEST_REDIS not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()
	ctx := context.Background()

	prefix := "stat-attack-test:" + t.Name() + ":"
	rs := NewRedisStore(client, prefix, economy.DefaultRules())
	s := sampleState(t)
	defer rs.Delete(ctx, "a")

	if _, err := rs.Load(ctx, "a"); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}
	if err := rs.Save(ctx, "a", s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := rs.Load(ctx, "a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Error("expected loaded state to equal saved state")
	}
	slots, err := rs.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(slots, []string{"a"}) {
		t.Errorf("unexpected slots %v", slots)
	}
}

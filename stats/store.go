// store.go - Read-only access to the offline box-score database
package stats

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"stat-attack/game"
)

var ErrNotFound = errors.New("not found")

// Players averaging fewer minutes, and games shorter than this, are left out.
const (
	MinAverageMinutes = 8
	MinGameMinutes    = 8
)

// Card is one entry of the card pool: a player in one season.
type Card struct {
	PlayerID int64  `json:"player_id"`
	Season   string `json:"season"`
	Name     string `json:"name"`
}

func (c Card) ID() string { return game.CardID(c.PlayerID, c.Season) }

// Store is what the game needs from the box-score database.
type Store interface {
	CardPool(ctx context.Context) ([]Card, error)
	Player(ctx context.Context, playerID int64, season string) (game.Player, error)
	PlayerGames(ctx context.Context, playerID int64, season string) ([]game.BoxScore, error)
	BoxScore(ctx context.Context, playerID int64, gameID string) (game.BoxScore, error)
}

// GameLog is one row of game_logs.
type GameLog struct {
	PlayerID  int64
	Season    string
	GameID    string
	GameDate  string
	Matchup   string
	Min       float64
	PTS       int
	FGM, FGA  int
	FG3M      int
	FG3A      int
	FTM, FTA  int
	OREB      int
	DREB      int
	REB       int
	AST       int
	STL       int
	BLK       int
	TOV       int
	PF        int
	PlusMinus int
}

// DB implements Store over database/sql. Queries are written with "?"
// placeholders and rebound for drivers that number them.
type DB struct {
	db     *sql.DB
	driver string
}

func logf(format string, args ...interface{}) {
	log.Printf("[stats] "+format, args...)
}

// Open connects with the named driver ("sqlite3" or "postgres") and applies
// migrations.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case "sqlite3":
		return OpenSQLite(dsn)
	case "postgres":
		return OpenPostgres(dsn)
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

func newDB(db *sql.DB, driver string) (*DB, error) {
	d := &DB{db: db, driver: driver}
	if err := d.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

func (d *DB) rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CardPool lists every player-season with at least one game on record.
func (d *DB) CardPool(ctx context.Context) ([]Card, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT DISTINCT g.player_id, g.season_id, p.full_name
		FROM game_logs g
		JOIN players p ON g.player_id = p.id
		ORDER BY p.full_name, g.season_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("card pool: %w", err)
	}
	defer rows.Close()

	pool := []Card{}
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.PlayerID, &c.Season, &c.Name); err != nil {
			return nil, fmt.Errorf("card pool: %w", err)
		}
		pool = append(pool, c)
	}
	return pool, rows.Err()
}

// Player builds a card from season averages. Seasons under
// MinAverageMinutes per game are ErrNotFound.
func (d *DB) Player(ctx context.Context, playerID int64, season string) (game.Player, error) {
	var name string
	err := d.db.QueryRowContext(ctx, d.rebind(`SELECT full_name FROM players WHERE id = ?`), playerID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Player{}, fmt.Errorf("%w: player %d", ErrNotFound, playerID)
	}
	if err != nil {
		return game.Player{}, fmt.Errorf("player %d: %w", playerID, err)
	}

	var (
		gp  int
		avg [7]sql.NullFloat64
	)
	err = d.db.QueryRowContext(ctx, d.rebind(`
		SELECT count(*), AVG(min), AVG(pts), AVG(ast), AVG(tov), AVG(reb), AVG(stl), AVG(blk)
		FROM game_logs
		WHERE player_id = ? AND season_id = ?`), playerID, season).
		Scan(&gp, &avg[0], &avg[1], &avg[2], &avg[3], &avg[4], &avg[5], &avg[6])
	if err != nil {
		return game.Player{}, fmt.Errorf("season averages %d %s: %w", playerID, season, err)
	}
	if gp == 0 {
		return game.Player{}, fmt.Errorf("%w: no games for %d in %s", ErrNotFound, playerID, season)
	}
	if avg[0].Float64 < MinAverageMinutes {
		return game.Player{}, fmt.Errorf("%w: %d averaged %.1f minutes in %s", ErrNotFound, playerID, avg[0].Float64, season)
	}

	return game.Player{
		ID:     playerID,
		Name:   name,
		Season: season,
		Averages: game.SeasonAverages{
			GamesPlayed: gp,
			MIN:         avg[0].Float64,
			PTS:         avg[1].Float64,
			AST:         avg[2].Float64,
			TOV:         avg[3].Float64,
			REB:         avg[4].Float64,
			STL:         avg[5].Float64,
			BLK:         avg[6].Float64,
		},
	}, nil
}

const gameLogColumns = `player_id, season_id, game_id, game_date, matchup, min, pts,
	fgm, fga, fg3m, fg3a, ftm, fta, oreb, dreb, reb, ast, stl, blk, tov, pf, plus_minus`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGameLog(s scanner) (GameLog, error) {
	var g GameLog
	err := s.Scan(&g.PlayerID, &g.Season, &g.GameID, &g.GameDate, &g.Matchup, &g.Min, &g.PTS,
		&g.FGM, &g.FGA, &g.FG3M, &g.FG3A, &g.FTM, &g.FTA, &g.OREB, &g.DREB, &g.REB,
		&g.AST, &g.STL, &g.BLK, &g.TOV, &g.PF, &g.PlusMinus)
	return g, err
}

// PlayerGames returns a season's games of at least MinGameMinutes, newest
// first, without advanced stats.
func (d *DB) PlayerGames(ctx context.Context, playerID int64, season string) ([]game.BoxScore, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(`
		SELECT `+gameLogColumns+`
		FROM game_logs
		WHERE player_id = ? AND season_id = ? AND min >= ?
		ORDER BY game_date DESC, game_id DESC`), playerID, season, MinGameMinutes)
	if err != nil {
		return nil, fmt.Errorf("player games %d %s: %w", playerID, season, err)
	}
	defer rows.Close()

	games := []game.BoxScore{}
	for rows.Next() {
		g, err := scanGameLog(rows)
		if err != nil {
			return nil, fmt.Errorf("player games %d %s: %w", playerID, season, err)
		}
		games = append(games, g.BoxScore())
	}
	return games, rows.Err()
}

// BoxScore returns one game with any advanced stats box_scores holds for it.
func (d *DB) BoxScore(ctx context.Context, playerID int64, gameID string) (game.BoxScore, error) {
	row := d.db.QueryRowContext(ctx, d.rebind(`SELECT `+gameLogColumns+`
		FROM game_logs WHERE player_id = ? AND game_id = ?`), playerID, gameID)
	g, err := scanGameLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return game.BoxScore{}, fmt.Errorf("%w: game %s for player %d", ErrNotFound, gameID, playerID)
	}
	if err != nil {
		return game.BoxScore{}, fmt.Errorf("box score %s: %w", gameID, err)
	}
	box := g.BoxScore()

	var raw string
	err = d.db.QueryRowContext(ctx, d.rebind(`SELECT data_json FROM box_scores WHERE game_id = ?`), gameID).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return game.BoxScore{}, fmt.Errorf("advanced box %s: %w", gameID, err)
	default:
		adv, err := ParseAdvanced([]byte(raw), playerID)
		if err != nil {
			// labels fall back to the basic line
			logf("ignoring unreadable advanced box for game %s: %v", gameID, err)
		} else if len(adv) > 0 {
			box.Advanced = adv
		}
	}
	return box, nil
}

// BoxScore converts the row to the game's box score shape.
func (g GameLog) BoxScore() game.BoxScore {
	return game.BoxScore{
		GameID:   g.GameID,
		PlayerID: g.PlayerID,
		GameDate: g.GameDate,
		Matchup:  g.Matchup,
		Stats: map[game.Stat]int{
			game.StatMIN:       int(math.Round(g.Min)),
			game.StatPTS:       g.PTS,
			game.StatFGM:       g.FGM,
			game.StatFGA:       g.FGA,
			game.StatFG3M:      g.FG3M,
			game.StatFG3A:      g.FG3A,
			game.StatFTM:       g.FTM,
			game.StatFTA:       g.FTA,
			game.StatOREB:      g.OREB,
			game.StatDREB:      g.DREB,
			game.StatREB:       g.REB,
			game.StatAST:       g.AST,
			game.StatSTL:       g.STL,
			game.StatBLK:       g.BLK,
			game.StatTOV:       g.TOV,
			game.StatPF:        g.PF,
			game.StatPlusMinus: g.PlusMinus,
		},
	}
}

// advancedSources says which box of data_json each advanced key is read from.
var advancedSources = map[string][]string{
	"advanced": {game.AdvAstTo},
	"usage":    {game.AdvUsagePct},
	"scoring":  {game.AdvPctAst3PM},
	"hustle":   {game.AdvDeflections, game.AdvChargesDrawn, game.AdvScreenAssists},
}

// ParseAdvanced extracts one player's advanced stats from a box_scores
// data_json document. Usage is normalised to a percentage.
func ParseAdvanced(data []byte, playerID int64) (map[string]float64, error) {
	var doc map[string][]map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	want := strconv.FormatInt(playerID, 10)
	out := map[string]float64{}
	for box, keys := range advancedSources {
		row := findPlayerRow(doc[box], want)
		if row == nil {
			continue
		}
		for _, k := range keys {
			n, ok := row[k].(json.Number)
			if !ok {
				continue
			}
			if v, err := n.Float64(); err == nil {
				out[k] = v
			}
		}
	}
	if v, ok := out[game.AdvUsagePct]; ok && v < 1 {
		out[game.AdvUsagePct] = v * 100
	}
	return out, nil
}

func findPlayerRow(rows []map[string]interface{}, playerID string) map[string]interface{} {
	for _, r := range rows {
		for _, key := range []string{"PLAYER_ID", "personId"} {
			if v, ok := r[key]; ok && fmt.Sprint(v) == playerID {
				return r
			}
		}
	}
	return nil
}

// InsertPlayer, InsertGameLog and InsertBoxScore load the database. The
// game itself only reads.
func (d *DB) InsertPlayer(ctx context.Context, id int64, name string) error {
	_, err := d.db.ExecContext(ctx, d.rebind(`INSERT INTO players (id, full_name) VALUES (?, ?)`), id, name)
	if err != nil {
		return fmt.Errorf("insert player %d: %w", id, err)
	}
	return nil
}

func (d *DB) InsertGameLog(ctx context.Context, g GameLog) error {
	_, err := d.db.ExecContext(ctx, d.rebind(`INSERT INTO game_logs (`+gameLogColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		g.PlayerID, g.Season, g.GameID, g.GameDate, g.Matchup, g.Min, g.PTS,
		g.FGM, g.FGA, g.FG3M, g.FG3A, g.FTM, g.FTA, g.OREB, g.DREB, g.REB,
		g.AST, g.STL, g.BLK, g.TOV, g.PF, g.PlusMinus)
	if err != nil {
		return fmt.Errorf("insert game log %s: %w", g.GameID, err)
	}
	return nil
}

func (d *DB) InsertBoxScore(ctx context.Context, gameID string, dataJSON []byte) error {
	_, err := d.db.ExecContext(ctx, d.rebind(`INSERT INTO box_scores (game_id, data_json) VALUES (?, ?)`), gameID, string(dataJSON))
	if err != nil {
		return fmt.Errorf("insert box score %s: %w", gameID, err)
	}
	return nil
}

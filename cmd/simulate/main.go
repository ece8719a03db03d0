package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"stat-attack/config"
	"stat-attack/game"
	"stat-attack/session"
	"stat-attack/stats"
)

type labelStats struct {
	label  game.Label
	played int
	won    int
}

type tally struct {
	runs, homeWins, turns int
	reasons               map[string]int
	labels                map[game.Label]*labelStats
}

func (t *tally) label(l game.Label, won bool) {
	ls, ok := t.labels[l]
	if !ok {
		ls = &labelStats{label: l}
		t.labels[l] = ls
	}
	ls.played++
	if won {
		ls.won++
	}
}

func main() {
	var (
		driver   string
		dsn      string
		rules    string
		runs     int
		seedBase int64
		seedStep int64
	)
	flag.StringVar(&driver, "driver", "sqlite3", "box-score database driver (sqlite3 or postgres)")
	flag.StringVar(&dsn, "db", "nba_stats.db", "box-score database path or DSN")
	flag.StringVar(&rules, "rules", "", "optional rules YAML file")
	flag.IntVar(&runs, "runs", 200, "number of duels")
	flag.Int64Var(&seedBase, "seed-base", 42, "seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		os.Exit(2)
	}

	r, err := config.LoadRules(rules)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
	db, err := stats.Open(driver, dsn)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	m := session.NewManager(db, session.Options{GameRules: r.Game, EconomyRules: r.Economy})
	ctx := context.Background()

	fmt.Printf("=== Duel Simulation ===\n")
	fmt.Printf("db=%s runs=%d seed_base=%d seed_step=%d\n\n", dsn, runs, seedBase, seedStep)

	t := &tally{reasons: map[string]int{}, labels: map[game.Label]*labelStats{}}
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		if err := runDuel(ctx, m, seed, t); err != nil {
			fmt.Printf("run %d (seed %d): %v\n", i+1, seed, err)
			continue
		}
		m.Sweep(0)
	}
	printReport(t)
}

// runDuel starts a game for seed and auto-plays its starter tape once.
func runDuel(ctx context.Context, m *session.Manager, seed int64, t *tally) error {
	id, st, err := m.Create(ctx, &seed)
	if err != nil {
		return err
	}
	tape := st.Gametapes[0]
	rep, err := m.PlayDuel(ctx, id, tape.ID)
	if err != nil {
		return err
	}

	won := rep.Result.Outcome == game.OutcomeWin
	t.runs++
	t.turns += rep.Result.Turns
	t.reasons[rep.Result.Reason]++
	if won {
		t.homeWins++
	}
	for _, l := range tape.Labels {
		t.label(l, won)
	}
	for _, l := range rep.Opponent.Labels {
		t.label(l, !won)
	}
	return nil
}

func printReport(t *tally) {
	if t.runs == 0 {
		fmt.Println("no duels completed")
		return
	}
	fmt.Printf("duels=%d home_win_rate=%.1f%% avg_turns=%.1f\n\n",
		t.runs, pct(t.homeWins, t.runs), float64(t.turns)/float64(t.runs))

	fmt.Println("finish reasons:")
	reasons := make([]string, 0, len(t.reasons))
	for r := range t.reasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("  %-24s %d\n", r, t.reasons[r])
	}

	fmt.Println("\nwin rate by label:")
	labels := make([]*labelStats, 0, len(t.labels))
	for _, ls := range t.labels {
		labels = append(labels, ls)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].played != labels[j].played {
			return labels[i].played > labels[j].played
		}
		return labels[i].label < labels[j].label
	})
	for _, ls := range labels {
		fmt.Printf("  %-18s played=%-5d win_rate=%.1f%%\n", ls.label, ls.played, pct(ls.won, ls.played))
	}
}

func pct(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return 100 * float64(n) / float64(d)
}

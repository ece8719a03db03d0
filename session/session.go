// session.go - Game sessions: one player's save, shop and battles
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"stat-attack/economy"
	"stat-attack/game"
	"stat-attack/savefile"
	"stat-attack/stats"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoPlayableTape  = errors.New("no playable gametape")
	ErrDuelInProgress  = errors.New("a duel is already in progress")
	ErrNoActiveDuel    = errors.New("no duel in progress")
	ErrSavesDisabled   = errors.New("save slots are not configured")
	ErrInvalidLineup   = errors.New("invalid lineup")
)

// Session is one player's game. All access goes through Manager, which
// holds mu for the duration of each operation.
type Session struct {
	ID         string
	mu         sync.Mutex
	state      economy.State
	rng        *rand.Rand
	duel       *liveDuel
	lastActive time.Time
}

// Manager owns every session and the shared read-only services.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rules    game.Rules
	ledger   *economy.Ledger

	store stats.Store
	saves savefile.Store // nil disables save slots
	seed  int64          // 0 seeds sessions from the clock
	seq   int64
	now   func() time.Time
}

// Options configure a Manager.
type Options struct {
	GameRules    game.Rules
	EconomyRules economy.Rules
	Saves        savefile.Store
	Seed         int64
	Now          func() time.Time
}

func NewManager(store stats.Store, opts Options) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		sessions: make(map[string]*Session),
		rules:    opts.GameRules,
		ledger:   economy.NewLedger(opts.EconomyRules),
		store:    store,
		saves:    opts.Saves,
		seed:     opts.Seed,
		now:      now,
	}
}

func logf(format string, args ...interface{}) {
	log.Printf("[session] "+format, args...)
}

// Rules returns the rules new battles use.
func (m *Manager) Rules() (game.Rules, economy.Rules) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rules, m.ledger.Rules
}

// SetRules swaps the rules for battles and purchases that start afterwards.
func (m *Manager) SetRules(g game.Rules, e economy.Rules) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = g
	m.ledger = economy.NewLedger(e)
	logf("rules updated")
}

func (m *Manager) snapshot() (game.Rules, *economy.Ledger) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rules, m.ledger
}

// Create starts a new game with a random starter card and tape. A nil seed
// picks one from the manager.
func (m *Manager) Create(ctx context.Context, seed *int64) (string, economy.State, error) {
	m.mu.Lock()
	var s int64
	switch {
	case seed != nil:
		s = *seed
	case m.seed != 0:
		m.seq++
		s = m.seed + m.seq
	default:
		s = m.now().UnixNano()
	}
	m.mu.Unlock()

	sess := &Session{ID: uuid.NewString(), rng: rand.New(rand.NewSource(s))}
	rules, ledger := m.snapshot()
	st, err := m.newGame(ctx, sess.rng, rules, ledger)
	if err != nil {
		return "", economy.State{}, err
	}
	sess.state = st
	sess.lastActive = m.now()

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	logf("created %s (seed %d) with %s", sess.ID, s, st.Gametapes[0].DisplayName())
	return sess.ID, st.Clone(), nil
}

// newGame grants one card and one playable tape of it. It takes no manager
// lock, so callers holding a session lock pass the rules in.
func (m *Manager) newGame(ctx context.Context, rng *rand.Rand, rules game.Rules, ledger *economy.Ledger) (economy.State, error) {
	pool, err := m.store.CardPool(ctx)
	if err != nil {
		return economy.State{}, err
	}
	for _, i := range rng.Perm(len(pool)) {
		c := pool[i]
		p, err := m.store.Player(ctx, c.PlayerID, c.Season)
		if errors.Is(err, stats.ErrNotFound) {
			continue
		}
		if err != nil {
			return economy.State{}, err
		}
		tape, err := m.randomTape(ctx, rng, rules, p, nil)
		if errors.Is(err, ErrNoPlayableTape) {
			continue
		}
		if err != nil {
			return economy.State{}, err
		}
		return ledger.NewGame(p, tape, m.now())
	}
	return economy.State{}, fmt.Errorf("%w: no card in the pool has one", ErrNoPlayableTape)
}

// with runs fn holding the session lock.
func (m *Manager) with(id string, fn func(s *Session) error) error {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastActive = m.now()
	return fn(sess)
}

// State returns a copy of the session's economy state.
func (m *Manager) State(id string) (economy.State, error) {
	var out economy.State
	err := m.with(id, func(s *Session) error {
		out = s.state.Clone()
		return nil
	})
	return out, err
}

// Sweep drops sessions idle for longer than maxIdle and returns how many.
// The manager lock is never held while a session lock is taken.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)
	m.mu.RLock()
	all := make(map[string]*Session, len(m.sessions))
	for id, s := range m.sessions {
		all[id] = s
	}
	m.mu.RUnlock()

	var idle []string
	for id, s := range all {
		s.mu.Lock()
		if s.lastActive.Before(cutoff) {
			idle = append(idle, id)
		}
		s.mu.Unlock()
	}
	if len(idle) == 0 {
		return 0
	}

	m.mu.Lock()
	n := 0
	for _, id := range idle {
		// skip ids recreated since the scan
		if m.sessions[id] == all[id] {
			delete(m.sessions, id)
			n++
		}
	}
	m.mu.Unlock()
	if n > 0 {
		logf("swept %d idle sessions", n)
	}
	return n
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// BuyGametape buys a random unowned game of an owned card.
func (m *Manager) BuyGametape(ctx context.Context, id, cardID string) (economy.State, error) {
	rules, ledger := m.snapshot()
	var out economy.State
	err := m.with(id, func(s *Session) error {
		p, ok := s.state.Player(cardID)
		if !ok {
			return fmt.Errorf("%w: %s", economy.ErrUnknownCard, cardID)
		}
		if s.state.Tokens < ledger.Rules.GametapeCost {
			return fmt.Errorf("%w: gametape costs %d, have %d", economy.ErrInsufficientTokens, ledger.Rules.GametapeCost, s.state.Tokens)
		}
		skip := func(tapeID string) bool {
			_, owned := s.state.Tape(tapeID)
			return owned || s.state.InHallOfFame(tapeID)
		}
		tape, err := m.randomTape(ctx, s.rng, rules, p, skip)
		if err != nil {
			return err
		}
		next, err := ledger.BuyGametape(s.state, tape)
		if err != nil {
			return err
		}
		s.state = next
		out = next.Clone()
		return nil
	})
	return out, err
}

// BuyPlayerCard buys the named card, or a random unowned one when cardID
// is empty.
func (m *Manager) BuyPlayerCard(ctx context.Context, id, cardID string) (economy.State, error) {
	_, ledger := m.snapshot()
	var out economy.State
	err := m.with(id, func(s *Session) error {
		if s.state.Tokens < ledger.Rules.PlayerCardCost {
			return fmt.Errorf("%w: player card costs %d, have %d", economy.ErrInsufficientTokens, ledger.Rules.PlayerCardCost, s.state.Tokens)
		}
		var (
			p   game.Player
			err error
		)
		if cardID == "" {
			p, err = m.randomPlayer(ctx, s.rng, func(c string) bool {
				_, owned := s.state.Player(c)
				return owned
			})
		} else {
			p, err = m.player(ctx, cardID)
		}
		if err != nil {
			return err
		}
		next, err := ledger.BuyPlayerCard(s.state, p)
		if err != nil {
			return err
		}
		s.state = next
		out = next.Clone()
		return nil
	})
	return out, err
}

func (m *Manager) SellGametape(id, tapeID string) (economy.State, error) {
	_, ledger := m.snapshot()
	var out economy.State
	err := m.with(id, func(s *Session) error {
		if s.duel != nil && s.duel.tapeID == tapeID {
			return fmt.Errorf("%w: tape %s is on the court", ErrDuelInProgress, tapeID)
		}
		next, err := ledger.SellGametape(s.state, tapeID)
		if err != nil {
			return err
		}
		s.state = next
		out = next.Clone()
		return nil
	})
	return out, err
}

func (m *Manager) SellPlayerCard(id, cardID string) (economy.State, error) {
	_, ledger := m.snapshot()
	var out economy.State
	err := m.with(id, func(s *Session) error {
		if s.duel != nil && s.duel.cardID == cardID {
			return fmt.Errorf("%w: card %s is on the court", ErrDuelInProgress, cardID)
		}
		next, err := ledger.SellPlayerCard(s.state, cardID)
		if err != nil {
			return err
		}
		s.state = next
		out = next.Clone()
		return nil
	})
	return out, err
}

func (m *Manager) player(ctx context.Context, cardID string) (game.Player, error) {
	pid, season, err := game.ParseCardID(cardID)
	if err != nil {
		return game.Player{}, fmt.Errorf("%w: %v", economy.ErrUnknownCard, err)
	}
	p, err := m.store.Player(ctx, pid, season)
	if errors.Is(err, stats.ErrNotFound) {
		return game.Player{}, fmt.Errorf("%w: %s", economy.ErrUnknownCard, cardID)
	}
	return p, err
}

// randomPlayer picks a card from the pool that skip does not exclude.
func (m *Manager) randomPlayer(ctx context.Context, rng *rand.Rand, skip func(cardID string) bool) (game.Player, error) {
	pool, err := m.store.CardPool(ctx)
	if err != nil {
		return game.Player{}, err
	}
	for _, i := range rng.Perm(len(pool)) {
		c := pool[i]
		if skip != nil && skip(c.ID()) {
			continue
		}
		p, err := m.store.Player(ctx, c.PlayerID, c.Season)
		if errors.Is(err, stats.ErrNotFound) {
			continue
		}
		return p, err
	}
	return game.Player{}, fmt.Errorf("%w: no cards left in the pool", economy.ErrUnknownCard)
}

// randomTape picks a playable game of the player's season that skip does
// not exclude. Games with missing fields or too few plays are passed over.
func (m *Manager) randomTape(ctx context.Context, rng *rand.Rand, rules game.Rules, p game.Player, skip func(tapeID string) bool) (game.Gametape, error) {
	games, err := m.store.PlayerGames(ctx, p.ID, p.Season)
	if err != nil {
		return game.Gametape{}, err
	}
	for _, i := range rng.Perm(len(games)) {
		g := games[i]
		if skip != nil && skip(game.TapeID(p.ID, g.GameID)) {
			continue
		}
		box, err := m.store.BoxScore(ctx, p.ID, g.GameID)
		if err != nil {
			return game.Gametape{}, err
		}
		tape, err := game.NewGametape(p.CardID(), box, rules)
		if errors.Is(err, game.ErrInvalidTape) || errors.Is(err, game.ErrDataIncomplete) || errors.Is(err, game.ErrInconsistentBoxScore) {
			continue
		}
		if err != nil {
			return game.Gametape{}, err
		}
		return tape, nil
	}
	return game.Gametape{}, fmt.Errorf("%w for %s", ErrNoPlayableTape, p.CardID())
}

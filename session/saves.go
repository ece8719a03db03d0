// saves.go - Export, import and named save slots
package session

import (
	"context"
	"errors"
	"fmt"

	"stat-attack/economy"
	"stat-attack/game"
	"stat-attack/savefile"
)

// Export encodes the session's state in the portable save format.
func (m *Manager) Export(id string) ([]byte, error) {
	_, ledger := m.snapshot()
	var data []byte
	err := m.with(id, func(s *Session) error {
		var err error
		data, err = savefile.Encode(s.state, ledger.Rules)
		return err
	})
	return data, err
}

// Import replaces the session's state with a save. A corrupt save resets
// the session to a fresh game; the fresh state is returned together with
// the ErrSaveCorrupt error.
func (m *Manager) Import(ctx context.Context, id string, data []byte) (economy.State, error) {
	rules, ledger := m.snapshot()
	var out economy.State
	err := m.with(id, func(s *Session) error {
		st, err := savefile.Decode(data, ledger.Rules)
		return m.replace(ctx, s, rules, ledger, st, err, &out)
	})
	return out, err
}

// SaveSlot writes the session's state to a named slot.
func (m *Manager) SaveSlot(ctx context.Context, id, slot string) error {
	if m.saves == nil {
		return ErrSavesDisabled
	}
	return m.with(id, func(s *Session) error {
		return m.saves.Save(ctx, slot, s.state)
	})
}

// LoadSlot replaces the session's state with a named slot, with the same
// corrupt-save fallback as Import.
func (m *Manager) LoadSlot(ctx context.Context, id, slot string) (economy.State, error) {
	if m.saves == nil {
		return economy.State{}, ErrSavesDisabled
	}
	rules, ledger := m.snapshot()
	var out economy.State
	err := m.with(id, func(s *Session) error {
		st, err := m.saves.Load(ctx, slot)
		if err != nil && !errors.Is(err, savefile.ErrSaveCorrupt) {
			return err
		}
		return m.replace(ctx, s, rules, ledger, st, err, &out)
	})
	return out, err
}

// ListSlots names the stored saves.
func (m *Manager) ListSlots(ctx context.Context) ([]string, error) {
	if m.saves == nil {
		return nil, ErrSavesDisabled
	}
	return m.saves.List(ctx)
}

// replace installs a loaded state, or a fresh game when loading failed.
// Any live duel is dropped without being booked.
func (m *Manager) replace(ctx context.Context, s *Session, rules game.Rules, ledger *economy.Ledger, st economy.State, loadErr error, out *economy.State) error {
	s.duel = nil
	if loadErr == nil {
		s.state = st
		*out = st.Clone()
		return nil
	}
	logf("%s: save rejected, starting over: %v", s.ID, loadErr)
	fresh, err := m.newGame(ctx, s.rng, rules, ledger)
	if err != nil {
		return fmt.Errorf("%w; starting over failed: %v", loadErr, err)
	}
	s.state = fresh
	*out = fresh.Clone()
	return loadErr
}

// DeleteSlot removes a named save.
func (m *Manager) DeleteSlot(ctx context.Context, slot string) error {
	if m.saves == nil {
		return ErrSavesDisabled
	}
	return m.saves.Delete(ctx, slot)
}

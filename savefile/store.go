// store.go - Named save slots on disk
package savefile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"stat-attack/economy"
)

// Store keeps saves under named slots.
type Store interface {
	Save(ctx context.Context, slot string, s economy.State) error
	Load(ctx context.Context, slot string) (economy.State, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, slot string) error
}

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidSlot reports whether a slot name is safe to use as a file name or key.
func ValidSlot(slot string) error {
	if !slotPattern.MatchString(slot) {
		return fmt.Errorf("%w %q", ErrInvalidSlot, slot)
	}
	return nil
}

// FileStore writes one JSON file per slot.
type FileStore struct {
	Dir   string
	Rules economy.Rules
}

func NewFileStore(dir string, r economy.Rules) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &FileStore{Dir: dir, Rules: r}, nil
}

func (f *FileStore) path(slot string) string {
	return filepath.Join(f.Dir, slot+".json")
}

// Save writes to a temp file and renames it over the slot, so a crash never
// leaves a half-written save behind.
func (f *FileStore) Save(ctx context.Context, slot string, s economy.State) error {
	if err := ValidSlot(slot); err != nil {
		return err
	}
	data, err := Encode(s, f.Rules)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.Dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", slot, err)
	}
	if err := os.Rename(tmp.Name(), f.path(slot)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", slot, err)
	}
	return nil
}

func (f *FileStore) Load(ctx context.Context, slot string) (economy.State, error) {
	if err := ValidSlot(slot); err != nil {
		return economy.State{}, err
	}
	data, err := os.ReadFile(f.path(slot))
	if errors.Is(err, os.ErrNotExist) {
		return economy.State{}, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return economy.State{}, fmt.Errorf("load %s: %w", slot, err)
	}
	return Decode(data, f.Rules)
}

func (f *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	slots := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		slots = append(slots, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(slots)
	return slots, nil
}

func (f *FileStore) Delete(ctx context.Context, slot string) error {
	if err := ValidSlot(slot); err != nil {
		return err
	}
	err := os.Remove(f.path(slot))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	return err
}

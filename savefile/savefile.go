// savefile.go - Portable save format for the economy state
package savefile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"stat-attack/economy"
)

var (
	ErrSaveCorrupt  = errors.New("save corrupt")
	ErrSlotNotFound = errors.New("save slot not found")
	ErrInvalidSlot  = errors.New("invalid slot name")
)

// Encode writes the state as indented JSON. The state is validated first so
// a broken state is never written out.
func Encode(s economy.State, r economy.Rules) ([]byte, error) {
	if err := s.Validate(r); err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses and validates a save. Any failure is reported as
// ErrSaveCorrupt with the cause attached.
func Decode(data []byte, r economy.Rules) (economy.State, error) {
	var s economy.State
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return economy.State{}, corrupt(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return economy.State{}, corrupt(errors.New("trailing data after save"))
	}
	if err := s.Validate(r); err != nil {
		return economy.State{}, corrupt(err)
	}
	normalize(&s)
	return s, nil
}

// Read is Decode over a reader.
func Read(rd io.Reader, r economy.Rules) (economy.State, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return economy.State{}, fmt.Errorf("read save: %w", err)
	}
	return Decode(data, r)
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %v", ErrSaveCorrupt, err)
}

// normalize fills empty collections so a decoded state compares equal to
// the state that was encoded.
func normalize(s *economy.State) {
	if s.CardRecords == nil {
		s.CardRecords = map[string]economy.CardRecord{}
	}
	if s.HallOfFame == nil {
		s.HallOfFame = []economy.HallOfFameEntry{}
	}
}

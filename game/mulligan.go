// mulligan.go - Timeouts: a side regroups and gets part of its deck back
package game

import "math"

// callTimeout restores half (rounded up) of each kind already played.
func (u *Unit) callTimeout(r Rules, rng Rand) (Event, error) {
	if u.TimeoutsLeft <= 0 {
		return Event{}, ErrNoTimeouts
	}
	u.TimeoutsLeft--

	full := u.Full.Counts()
	left := u.Remaining.Counts()
	restored := 0
	for _, k := range AllKinds {
		used := full[k] - left[k]
		if used <= 0 {
			continue
		}
		n := int(math.Ceil(float64(used) * r.TimeoutRestore))
		tmpl := u.Full.template(k, r)
		for i := 0; i < n; i++ {
			u.Remaining = append(u.Remaining, tmpl)
		}
		restored += n
	}
	u.Remaining.Shuffle(rng)

	return Event{Type: "Timeout", Data: map[string]interface{}{
		"unit":         u.Name,
		"restored":     restored,
		"deckSize":     len(u.Remaining),
		"timeoutsLeft": u.TimeoutsLeft,
	}}, nil
}

// used counts actions played since the last deal or refill, by full-deck size.
func (u *Unit) used() int {
	n := len(u.Full) - len(u.Remaining)
	if n < 0 {
		return 0
	}
	return n
}

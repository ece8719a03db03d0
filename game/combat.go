// combat.go - Combat system: stat multipliers, damage and healing
package game

import "math"

// StackMultiplier turns a stack count into a stat multiplier with diminishing
// returns: magnitude = n*step*decay^(n-1); buffs give 1+m, debuffs 1/(1+m).
func (r Rules) StackMultiplier(stacks int) float64 {
	if stacks == 0 {
		return 1.0
	}
	n := stacks
	if n < 0 {
		n = -n
	}
	magnitude := float64(n) * r.StackStep * math.Pow(r.StackDecay, float64(n-1))
	if stacks < 0 {
		return 1.0 / (1.0 + magnitude)
	}
	return 1.0 + magnitude
}

// Damage is max(1, floor(atk²/(atk+def) * scale * typeMult)).
func (r Rules) Damage(attack, defense, typeMult float64) int {
	if attack+defense <= 0 {
		return 1
	}
	base := (attack * attack / (attack + defense)) * r.DamageScale
	dmg := int(base * typeMult)
	if dmg < 1 {
		return 1
	}
	return dmg
}

// Attack is the unit's current attack including stacks.
func (u *Unit) Attack(r Rules) float64 {
	return u.BaseAttack * r.StackMultiplier(u.AttackStacks)
}

// Defense is the unit's current defense including stacks.
func (u *Unit) Defense(r Rules) float64 {
	return u.BaseDefense * r.StackMultiplier(u.DefenseStacks)
}

// takeDamage lowers HP, never below zero, and returns the amount actually lost.
func (u *Unit) takeDamage(n int) int {
	if n > u.HP {
		n = u.HP
	}
	u.HP -= n
	return n
}

// heal raises HP by pct of max, never above max, and returns the amount healed.
func (u *Unit) heal(pct float64) int {
	n := int(math.Round(float64(u.MaxHP) * pct))
	if u.HP+n > u.MaxHP {
		n = u.MaxHP - u.HP
	}
	u.HP += n
	return n
}

// strike resolves a damaging action from attacker onto defender.
func strike(r Rules, attacker, defender *Unit, a Action) []Event {
	dmg := r.Damage(attacker.Attack(r), defender.Defense(r), a.Magnitude)

	microwave := false
	if attacker.HasLabel(LabelMicrowave) && !attacker.MicrowaveUsed {
		dmg = int(float64(dmg) * r.MicrowaveMultiplier)
		attacker.MicrowaveUsed = true
		microwave = true
	}

	dealt := defender.takeDamage(dmg)

	// a score spends the attacker's momentum and breaks the defense
	attacker.AttackStacks = 0
	defender.DefenseStacks = 0

	data := map[string]interface{}{
		"attacker": attacker.Name,
		"defender": defender.Name,
		"kind":     a.Kind,
		"damage":   dealt,
		"hp":       defender.HP,
		"maxHp":    defender.MaxHP,
	}
	if microwave {
		data["label"] = LabelMicrowave
	}
	events := []Event{{Type: "Damage", Data: data}}
	if !defender.Alive() {
		events = append(events, Event{Type: "KnockedOut", Data: map[string]interface{}{"unit": defender.Name}})
	}
	return events
}

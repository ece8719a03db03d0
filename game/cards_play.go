// cards_play.go - Resolving a played action against the board
package game

import "math"

// playAction applies one action from actor. target is the opposing unit.
func playAction(r Rules, actor, target *Unit, a Action) []Event {
	events := []Event{{
		Type: "ActionPlayed",
		Data: map[string]interface{}{
			"unit":  actor.Name,
			"kind":  a.Kind,
			"bonus": a.Bonus,
		},
	}}

	switch a.Kind {
	case KindAttack, KindStrongAttack, KindWeakAttack:
		events = append(events, strike(r, actor, target, a)...)

	case KindMiss:
		events = append(events, Event{Type: "Missed", Data: map[string]interface{}{"unit": actor.Name}})

	case KindDefenseBuff:
		actor.DefenseStacks += stacks(a)
		events = append(events, stackEvent(actor, "defense", actor.DefenseStacks))

	case KindSelfHeal:
		events = append(events, rebound(actor, actor, healPct(actor, a)))

	case KindAttackBuff:
		events = append(events, assist(r, actor, actor, a))

	case KindOppAttackDebuff:
		target.AttackStacks -= stacks(a)
		events = append(events, stackEvent(target, "attack", target.AttackStacks))

	case KindOppDefenseDebuff:
		n := stacks(a)
		if actor.HasLabel(LabelRimProtector) {
			n *= r.RimProtectorStacks
		}
		target.DefenseStacks -= n
		events = append(events, stackEvent(target, "defense", target.DefenseStacks))

	case KindSkipTurn:
		actor.SkipNext = true
		events = append(events, Event{Type: "Turnover", Data: map[string]interface{}{"unit": actor.Name}})

	case KindSelfDamage:
		dmg := int(math.Floor(float64(actor.MaxHP) * a.Magnitude))
		if dmg < 1 {
			dmg = 1
		}
		lost := actor.takeDamage(dmg)
		events = append(events, Event{Type: "Foul", Data: map[string]interface{}{
			"unit":   actor.Name,
			"damage": lost,
			"hp":     actor.HP,
		}})
		if !actor.Alive() {
			events = append(events, Event{Type: "KnockedOut", Data: map[string]interface{}{"unit": actor.Name}})
		}
	}
	return events
}

// assist gives recipient attack stacks; Floor General passes better.
func assist(r Rules, passer, recipient *Unit, a Action) Event {
	n := stacks(a)
	if passer.HasLabel(LabelFloorGeneral) {
		n *= r.FloorGeneralStacks
	}
	recipient.AttackStacks += n
	ev := stackEvent(recipient, "attack", recipient.AttackStacks)
	ev.Data["from"] = passer.Name
	return ev
}

// rebound heals recipient by pct of its max HP.
func rebound(rebounder, recipient *Unit, pct float64) Event {
	healed := recipient.heal(pct)
	return Event{Type: "Heal", Data: map[string]interface{}{
		"unit":   recipient.Name,
		"from":   rebounder.Name,
		"amount": healed,
		"hp":     recipient.HP,
	}}
}

func healPct(u *Unit, a Action) float64 {
	if u.HealPct > 0 {
		return u.HealPct
	}
	return a.Magnitude
}

func stacks(a Action) int {
	n := int(a.Magnitude)
	if n < 1 {
		n = 1
	}
	return n
}

func stackEvent(u *Unit, stat string, value int) Event {
	return Event{Type: "StackChanged", Data: map[string]interface{}{
		"unit":   u.Name,
		"stat":   stat,
		"stacks": value,
	}}
}

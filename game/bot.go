// bot.go - Simple AI opponent
package game

// BotDecide returns the command the bot plays for side this turn.
func (d *Duel) BotDecide(side Side) Command {
	me, opp := d.Units[side], d.Units[side.Other()]
	if d.Phase != PhaseInProgress || d.Turn != side {
		return Command{Type: CmdDraw}
	}

	// 1. Call a timeout when the deck is nearly gone and plenty has been used
	if me.TimeoutsLeft > 0 && len(me.Remaining) <= 3 && me.used() >= 6 {
		return Command{Type: CmdTimeout}
	}

	deck := me.Remaining

	// 2. Crash the glass when hurt
	if me.HPFraction() < 0.4 && deck.CountCategory(CatOffReb) > 0 {
		return Command{Type: CmdPlay, Category: CatOffReb}
	}

	// 3. Finish: shoot if any make would end it
	if deck.CountCategory(CatShot) > 0 {
		weakest := d.rules.Damage(me.Attack(d.rules), opp.Defense(d.rules), d.rules.WeakAttackMultiplier)
		if weakest >= opp.HP {
			return Command{Type: CmdPlay, Category: CatShot}
		}
	}

	// 4. Break down a stacked defense before shooting into it
	if opp.DefenseStacks >= 2 && deck.CountCategory(CatBlock) > 0 {
		return Command{Type: CmdPlay, Category: CatBlock}
	}

	// 5. Cash in built-up attack stacks
	if me.AttackStacks >= 2 && deck.CountCategory(CatShot) > 0 {
		return Command{Type: CmdPlay, Category: CatShot}
	}

	// 6. Otherwise play the tape as it comes
	return Command{Type: CmdDraw}
}

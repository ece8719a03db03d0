package game

// ActionKind is what a deck entry does when played.
type ActionKind string

const (
	KindAttack           ActionKind = "attack"
	KindStrongAttack     ActionKind = "strong_attack"
	KindWeakAttack       ActionKind = "weak_attack"
	KindMiss             ActionKind = "miss"
	KindDefenseBuff      ActionKind = "defense_buff"
	KindSelfHeal         ActionKind = "self_heal"
	KindAttackBuff       ActionKind = "attack_buff"
	KindOppAttackDebuff  ActionKind = "opp_attack_debuff"
	KindOppDefenseDebuff ActionKind = "opp_defense_debuff"
	KindSkipTurn         ActionKind = "skip_turn"
	KindSelfDamage       ActionKind = "self_damage"
)

// AllKinds lists every kind in deck-building order.
var AllKinds = []ActionKind{
	KindAttack, KindStrongAttack, KindWeakAttack, KindMiss,
	KindDefenseBuff, KindSelfHeal, KindAttackBuff,
	KindOppAttackDebuff, KindOppDefenseDebuff,
	KindSkipTurn, KindSelfDamage,
}

// Category groups kinds the way a coach (or a player picking a play) sees them.
// All shot outcomes share one category: you choose to shoot, not to make it.
type Category string

const (
	CatShot     Category = "shot"
	CatDefReb   Category = "defensive_rebound"
	CatOffReb   Category = "offensive_rebound"
	CatAssist   Category = "assist"
	CatSteal    Category = "steal"
	CatBlock    Category = "block"
	CatTurnover Category = "turnover"
	CatFoul     Category = "foul"
)

// AllCategories in a stable order.
var AllCategories = []Category{
	CatShot, CatDefReb, CatOffReb, CatAssist, CatSteal, CatBlock, CatTurnover, CatFoul,
}

func (k ActionKind) Category() Category {
	switch k {
	case KindAttack, KindStrongAttack, KindWeakAttack, KindMiss:
		return CatShot
	case KindDefenseBuff:
		return CatDefReb
	case KindSelfHeal:
		return CatOffReb
	case KindAttackBuff:
		return CatAssist
	case KindOppAttackDebuff:
		return CatSteal
	case KindOppDefenseDebuff:
		return CatBlock
	case KindSkipTurn:
		return CatTurnover
	default:
		return CatFoul
	}
}

// Damaging reports whether the kind deals damage to the opponent.
func (k ActionKind) Damaging() bool {
	return k == KindAttack || k == KindStrongAttack || k == KindWeakAttack
}

// ValidCategory reports whether c names a known category.
func ValidCategory(c Category) bool {
	for _, known := range AllCategories {
		if known == c {
			return true
		}
	}
	return false
}

// Action is one entry in a combat deck.
type Action struct {
	Kind      ActionKind `json:"kind"`
	Magnitude float64    `json:"magnitude"`
	Source    Stat       `json:"source,omitempty"`
	Bonus     Label      `json:"bonus,omitempty"` // set on entries added by a label
}

// Command is a move a side makes in a duel.
type Command struct {
	Type     string   `json:"type"` // "draw", "play", "timeout"
	Category Category `json:"category,omitempty"`
}

const (
	CmdDraw    = "draw"
	CmdPlay    = "play"
	CmdTimeout = "timeout"
)

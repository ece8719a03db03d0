package game

// Rules holds every battle constant. The zero value is not usable; start from
// DefaultRules and override fields (the config package does this from YAML).
type Rules struct {
	BaseHP      float64 `yaml:"base_hp"`
	BaseAttack  float64 `yaml:"base_attack"`
	BaseDefense float64 `yaml:"base_defense"`

	PPGToAttack  float64 `yaml:"ppg_to_attack"`
	APGToAttack  float64 `yaml:"apg_to_attack"`
	TOVToAttack  float64 `yaml:"tov_to_attack"`
	RPGToDefense float64 `yaml:"rpg_to_defense"`
	SPGToDefense float64 `yaml:"spg_to_defense"`
	BPGToDefense float64 `yaml:"bpg_to_defense"`
	MPGToHP      float64 `yaml:"mpg_to_hp"`
	AverageMPG   float64 `yaml:"average_mpg"`

	MinHP      float64 `yaml:"min_hp"`
	MinAttack  float64 `yaml:"min_attack"`
	MinDefense float64 `yaml:"min_defense"`

	WeakAttackMultiplier    float64 `yaml:"weak_attack_multiplier"`
	RegularAttackMultiplier float64 `yaml:"regular_attack_multiplier"`
	StrongAttackMultiplier  float64 `yaml:"strong_attack_multiplier"`
	DamageScale             float64 `yaml:"damage_scale"`

	StackStep  float64 `yaml:"stack_step"`
	StackDecay float64 `yaml:"stack_decay"`

	OffensiveReboundHealBase float64 `yaml:"offensive_rebound_heal_base"`
	OffensiveReboundHealCap  float64 `yaml:"offensive_rebound_heal_cap"`
	TeamReboundHeal          float64 `yaml:"team_rebound_heal"`
	FoulDamage               float64 `yaml:"foul_damage"`

	// label effects
	TripleDoubleDefense    float64 `yaml:"triple_double_defense"`
	BruiserBonusHP         int     `yaml:"bruiser_bonus_hp"`
	MicrowaveMultiplier    float64 `yaml:"microwave_multiplier"`
	StopperMissesAdded     int     `yaml:"stopper_misses_added"`
	ThreeAndDMissesRemoved int     `yaml:"three_and_d_misses_removed"`
	GlueGuyBonusAttacks    int     `yaml:"glue_guy_bonus_attacks"`
	FloorGeneralStacks     int     `yaml:"floor_general_stacks"`
	RimProtectorStacks     int     `yaml:"rim_protector_stacks"`

	MinMovesRequired int     `yaml:"min_moves_required"`
	RefillFraction   float64 `yaml:"refill_fraction"`
	TimeoutsPerSide  int     `yaml:"timeouts_per_side"`
	TimeoutRestore   float64 `yaml:"timeout_restore"`
	MaxDuelTurns     int     `yaml:"max_duel_turns"`

	Quarters          int `yaml:"quarters"`
	RoundsPerQuarter  int `yaml:"rounds_per_quarter"`
	TeamSize          int `yaml:"team_size"`
	BallMovementChain int `yaml:"ball_movement_chain"`
}

func DefaultRules() Rules {
	return Rules{
		BaseHP:      100,
		BaseAttack:  10,
		BaseDefense: 10,

		PPGToAttack:  0.3,
		APGToAttack:  0.2,
		TOVToAttack:  -0.15,
		RPGToDefense: 0.25,
		SPGToDefense: 1.5,
		BPGToDefense: 1.5,
		MPGToHP:      2,
		AverageMPG:   24,

		MinHP:      50,
		MinAttack:  5,
		MinDefense: 5,

		WeakAttackMultiplier:    0.5,
		RegularAttackMultiplier: 1.0,
		StrongAttackMultiplier:  1.5,
		DamageScale:             1.8,

		StackStep:  0.3,
		StackDecay: 0.9,

		OffensiveReboundHealBase: 0.15,
		OffensiveReboundHealCap:  0.25,
		TeamReboundHeal:          0.15,
		FoulDamage:               0.167,

		TripleDoubleDefense:    1.25,
		BruiserBonusHP:         30,
		MicrowaveMultiplier:    2,
		StopperMissesAdded:     2,
		ThreeAndDMissesRemoved: 2,
		GlueGuyBonusAttacks:    4,
		FloorGeneralStacks:     2,
		RimProtectorStacks:     2,

		MinMovesRequired: 10,
		RefillFraction:   0.25,
		TimeoutsPerSide:  2,
		TimeoutRestore:   0.5,
		MaxDuelTurns:     200,

		Quarters:          4,
		RoundsPerQuarter:  12,
		TeamSize:          5,
		BallMovementChain: 2,
	}
}

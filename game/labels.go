// labels.go - Performance labels earned by standout box scores
package game

import "sort"

// Label is a bonus trait a gametape earns from its box score.
type Label string

const (
	LabelTripleDouble Label = "Triple Double"
	LabelMicrowave    Label = "Microwave"
	LabelStopper      Label = "Stopper"
	LabelBruiser      Label = "Bruiser"
	LabelGlueGuy      Label = "Glue Guy"
	LabelFloorGeneral Label = "Floor General"
	LabelRimProtector Label = "Rim Protector"
	LabelThreeAndD    Label = "3-and-D"
)

// labelRule pairs a label with its trigger. Rules are evaluated uniformly;
// effects live in unit.go and combat.go, keyed by the label.
type labelRule struct {
	Label    Label
	Priority int
	Requires []Stat
	Match    func(b BoxScore) bool
}

var labelRules = []labelRule{
	{
		Label:    LabelTripleDouble,
		Priority: 1,
		Requires: []Stat{StatPTS, StatREB, StatAST, StatSTL, StatBLK},
		Match: func(b BoxScore) bool {
			doubles := 0
			for _, s := range []Stat{StatPTS, StatREB, StatAST, StatSTL, StatBLK} {
				if b.value(s) >= 10 {
					doubles++
				}
			}
			return doubles >= 3
		},
	},
	{
		Label:    LabelMicrowave,
		Priority: 2,
		Requires: []Stat{StatMIN, StatPTS, StatFGM, StatFGA},
		Match: func(b BoxScore) bool {
			if b.value(StatMIN) > 24 || b.value(StatPTS) < 15 || b.value(StatFGA) == 0 {
				return false
			}
			return float64(b.value(StatFGM))/float64(b.value(StatFGA)) > 0.48
		},
	},
	{
		Label:    LabelStopper,
		Priority: 3,
		Requires: []Stat{StatSTL, StatPF},
		Match: func(b BoxScore) bool {
			defl, ok1 := b.Adv(AdvDeflections)
			charges, ok2 := b.Adv(AdvChargesDrawn)
			if (ok1 || ok2) && (defl > 0 || charges > 0) {
				return defl >= 2 && charges >= 1
			}
			return b.value(StatSTL) >= 2 && b.value(StatPF) >= 4
		},
	},
	{
		Label:    LabelBruiser,
		Priority: 4,
		Requires: []Stat{StatOREB, StatPF},
		Match: func(b BoxScore) bool {
			if screens, ok := b.Adv(AdvScreenAssists); ok && screens > 0 {
				return screens >= 4
			}
			return b.value(StatOREB) >= 3 && b.value(StatPF) >= 4
		},
	},
	{
		Label:    LabelGlueGuy,
		Priority: 5,
		Requires: []Stat{StatPlusMinus, StatAST, StatPTS},
		Match: func(b BoxScore) bool {
			return b.value(StatPlusMinus) > 10 && b.value(StatAST) >= 3 && b.value(StatPTS) <= 15
		},
	},
	{
		Label:    LabelFloorGeneral,
		Priority: 6,
		Requires: []Stat{StatAST, StatTOV},
		Match: func(b BoxScore) bool {
			ast := b.value(StatAST)
			if ast < 6 {
				return false
			}
			return assistRatio(b) >= 3.0
		},
	},
	{
		Label:    LabelRimProtector,
		Priority: 7,
		Requires: []Stat{StatBLK, StatDREB},
		Match: func(b BoxScore) bool {
			return b.value(StatBLK) >= 2 && b.value(StatDREB) >= 8
		},
	},
	{
		Label:    LabelThreeAndD,
		Priority: 8,
		Requires: []Stat{StatFG3M},
		Match: func(b BoxScore) bool {
			pctAst, _ := b.Adv(AdvPctAst3PM)
			usage, ok := b.Adv(AdvUsagePct)
			if !ok {
				usage = 20
			}
			if usage < 1 {
				usage *= 100
			}
			return b.value(StatFG3M) >= 2 && pctAst > 0.75 && usage < 18
		},
	},
}

// assistRatio prefers the tracked AST/TO and falls back to the box line.
// With no turnovers the ratio is the assist count itself.
func assistRatio(b BoxScore) float64 {
	if v, ok := b.Adv(AdvAstTo); ok && v > 0 {
		return v
	}
	ast, tov := b.value(StatAST), b.value(StatTOV)
	if tov == 0 {
		return float64(ast)
	}
	return float64(ast) / float64(tov)
}

// EvaluateLabels returns every label the box score satisfies, in priority
// order. A label whose inputs are absent is not earned; the box score is
// incomplete only when no rule has its inputs.
func EvaluateLabels(box BoxScore) ([]Label, error) {
	labels := []Label{}
	var missing []Stat
	evaluated := 0
	for _, rule := range labelRules {
		lacking := false
		for _, s := range rule.Requires {
			if _, ok := box.Get(s); !ok {
				missing = append(missing, s)
				lacking = true
			}
		}
		if lacking {
			continue
		}
		evaluated++
		if rule.Match(box) {
			labels = append(labels, rule.Label)
		}
	}
	if evaluated == 0 {
		return nil, &MissingFieldsError{GameID: box.GameID, Fields: dedupeStats(missing)}
	}
	return labels, nil
}

// MatchLabel evaluates a single rule.
func MatchLabel(l Label, box BoxScore) (bool, error) {
	for _, rule := range labelRules {
		if rule.Label != l {
			continue
		}
		if err := box.Require(rule.Requires...); err != nil {
			return false, err
		}
		return rule.Match(box), nil
	}
	return false, nil
}

// SortLabels orders labels by priority.
func SortLabels(labels []Label) {
	prio := make(map[Label]int, len(labelRules))
	for _, r := range labelRules {
		prio[r.Label] = r.Priority
	}
	sort.SliceStable(labels, func(i, j int) bool { return prio[labels[i]] < prio[labels[j]] })
}

// KnownLabel reports whether l is one of the fixed labels.
func KnownLabel(l Label) bool {
	for _, r := range labelRules {
		if r.Label == l {
			return true
		}
	}
	return false
}

func dedupeStats(stats []Stat) []Stat {
	seen := make(map[Stat]bool)
	out := stats[:0:0]
	for _, s := range stats {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// applyLabelDecks adds and removes label entries on a per-battle copy of each deck.
// own is the labelled unit's deck, opp its opponent's.
func applyLabelDecks(labels []Label, own, opp Deck, r Rules) (Deck, Deck) {
	for _, l := range labels {
		switch l {
		case LabelThreeAndD:
			own = removeKind(own, KindMiss, r.ThreeAndDMissesRemoved)
		case LabelGlueGuy:
			weak := own.template(KindWeakAttack, r)
			weak.Source, weak.Bonus = "", LabelGlueGuy
			for i := 0; i < r.GlueGuyBonusAttacks; i++ {
				own = append(own, weak)
			}
		case LabelStopper:
			for i := 0; i < r.StopperMissesAdded; i++ {
				opp = append(opp, Action{Kind: KindMiss, Bonus: LabelStopper})
			}
		}
	}
	return own, opp
}

func removeKind(d Deck, k ActionKind, n int) Deck {
	out := make(Deck, 0, len(d))
	for _, a := range d {
		if a.Kind == k && n > 0 {
			n--
			continue
		}
		out = append(out, a)
	}
	return out
}

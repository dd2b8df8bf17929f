package prediction

import "math"

type Tier string

const (
	TierTopPick   Tier = "TOP_PICK"
	TierGoodValue Tier = "GOOD_VALUE"
	TierLean      Tier = "LEAN"
	TierRisky     Tier = "RISKY"
)

// Lower bounds, inclusive. Each tier is [bound, next bound).
const (
	TopPickMin   = 75.0
	GoodValueMin = 65.0
	LeanMin      = 55.0
)

// Tiers is the classified view of a prediction list.
type Tiers struct {
	TopPicks  []Record
	GoodValue []Record
	Leans     []Record
	Risky     []Record
}

func (t Tiers) Len() int {
	return len(t.TopPicks) + len(t.GoodValue) + len(t.Leans) + len(t.Risky)
}

func ValidConfidence(c float64) bool {
	return !math.IsNaN(c) && c >= 0 && c <= 100
}

// TierFor maps a confidence to its tier. The caller must have checked
// ValidConfidence.
func TierFor(confidence float64) Tier {
	switch {
	case confidence >= TopPickMin:
		return TierTopPick
	case confidence >= GoodValueMin:
		return TierGoodValue
	case confidence >= LeanMin:
		return TierLean
	default:
		return TierRisky
	}
}

// Classify partitions predictions into tiers, keeping input order inside
// each tier. Any confidence outside [0,100] fails the whole call.
func Classify(predictions []Record) (Tiers, error) {
	out := Tiers{
		TopPicks:  []Record{},
		GoodValue: []Record{},
		Leans:     []Record{},
		Risky:     []Record{},
	}
	for i, p := range predictions {
		if !ValidConfidence(p.Confidence) {
			return Tiers{}, &ContractViolationError{
				Index:      i,
				Player:     p.Player,
				Source:     p.Source,
				Confidence: p.Confidence,
			}
		}
	}

	for _, p := range predictions {
		switch TierFor(p.Confidence) {
		case TierTopPick:
			out.TopPicks = append(out.TopPicks, p)
		case TierGoodValue:
			out.GoodValue = append(out.GoodValue, p)
		case TierLean:
			out.Leans = append(out.Leans, p)
		default:
			out.Risky = append(out.Risky, p)
		}
	}
	return out, nil
}

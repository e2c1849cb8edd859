package model

// Tier is a ladder-score bracket used to bucket players for matchmaking
type Tier string

const (
	TierBronze Tier = "bronze" // score < 2000
	TierSilver Tier = "silver" // 2000 <= score < 3000
	TierGold   Tier = "gold"   // score >= 3000
)

// Tier boundaries
const (
	SilverMinScore = 2000
	GoldMinScore   = 3000
)

// Tiers lists every tier in ascending order
func Tiers() []Tier {
	return []Tier{TierBronze, TierSilver, TierGold}
}

// TierForScore resolves the bracket for a ladder score
func TierForScore(score int) Tier {
	switch {
	case score < SilverMinScore:
		return TierBronze
	case score < GoldMinScore:
		return TierSilver
	default:
		return TierGold
	}
}

package scoring

// Tier buckets a 0-100 score for display colouring.
type Tier int

// Score tiers.
const (
	TierPoor Tier = iota
	TierFair
	TierGood
)

// TierFor returns the display tier of a score.
func TierFor(score int) Tier {
	switch {
	case score >= 70:
		return TierGood
	case score >= 40:
		return TierFair
	default:
		return TierPoor
	}
}

// Label returns the headline shown next to an overall score.
func Label(score int) string {
	switch {
	case score >= 80:
		return "Excellent ! 🎉"
	case score >= 60:
		return "Bon début 👍"
	case score >= 40:
		return "À améliorer 💪"
	default:
		return "Big Tech dépendant 😱"
	}
}

// Package badge maps results reports to achievement badges.
package badge

import (
	"math"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

// Kind separates score bands from bonus achievements.
type Kind string

// Badge kinds.
const (
	KindScore Kind = "score"
	KindBonus Kind = "bonus"
)

// Badge ids.
const (
	BigTechAddict    = "bigtech-addict"
	DigitalDependent = "digital-dependent"
	BalancedUser     = "balanced-user"
	NIRDConscious    = "nird-conscious"
	NIRDChampion     = "nird-champion"
	NIRDMaster       = "nird-master"

	PerfectScore = "perfect-score"
	SpeedDemon   = "speed-demon"
	NIRDPurist   = "nird-purist"
	PillarMaster = "pillar-master"
)

// SpeedLimitMs is the session duration under which the speed badge is earned.
const SpeedLimitMs = 120000

// PillarMasterMin is the score every pillar must reach for pillar master.
const PillarMasterMin = 80

// Badge describes one achievement. Score badges cover [Min, Max).
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Kind        Kind   `json:"kind"`
	Min         int    `json:"min,omitempty"`
	Max         int    `json:"max,omitempty"`
}

var scoreBands = []Badge{
	{ID: BigTechAddict, Name: "Accro Big Tech", Description: "Tu ne peux pas résister aux GAFAM", Icon: "🤖", Kind: KindScore, Min: 0, Max: 30},
	{ID: DigitalDependent, Name: "Dépendant Digital", Description: "Tu fais quelques efforts, mais pas assez", Icon: "📱", Kind: KindScore, Min: 30, Max: 50},
	{ID: BalancedUser, Name: "Utilisateur Équilibré", Description: "Tu trouves un bon compromis", Icon: "⚖️", Kind: KindScore, Min: 50, Max: 70},
	{ID: NIRDConscious, Name: "Conscient NIRD", Description: "Tu fais attention à ta souveraineté numérique", Icon: "🌱", Kind: KindScore, Min: 70, Max: 85},
	{ID: NIRDChampion, Name: "Champion NIRD", Description: "Tu es un exemple de souveraineté numérique !", Icon: "🏆", Kind: KindScore, Min: 85, Max: 95},
	{ID: NIRDMaster, Name: "Maître NIRD", Description: "Tu es un véritable expert de la souveraineté numérique !", Icon: "👑", Kind: KindScore, Min: 95, Max: math.MaxInt},
}

var bonusBadges = []Badge{
	{ID: PerfectScore, Name: "Score Parfait", Description: "Tu as répondu parfaitement à toutes les questions !", Icon: "💯", Kind: KindBonus},
	{ID: SpeedDemon, Name: "Éclair", Description: "Terminé en moins de 2 minutes", Icon: "⚡", Kind: KindBonus},
	{ID: NIRDPurist, Name: "Puriste NIRD", Description: "Aucune Big Tech acceptée", Icon: "🛡️", Kind: KindBonus},
	{ID: PillarMaster, Name: "Maître des Piliers", Description: "Score supérieur à 80% sur tous les piliers", Icon: "🏛️", Kind: KindBonus},
}

// All returns every badge, score bands first.
func All() []Badge {
	out := make([]Badge, 0, len(scoreBands)+len(bonusBadges))
	out = append(out, scoreBands...)
	return append(out, bonusBadges...)
}

// Bands returns the score bands in ascending order.
func Bands() []Badge {
	out := make([]Badge, len(scoreBands))
	copy(out, scoreBands)
	return out
}

// Bonuses returns the bonus badge definitions.
func Bonuses() []Badge {
	out := make([]Badge, len(bonusBadges))
	copy(out, bonusBadges)
	return out
}

// Lookup finds a badge by id.
func Lookup(id string) (Badge, bool) {
	for _, b := range All() {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// Band returns the score band containing score. Negative scores fall in the
// lowest band.
func Band(score int) Badge {
	for _, b := range scoreBands {
		if score >= b.Min && score < b.Max {
			return b
		}
	}
	return scoreBands[0]
}

// Classify returns the score badge id for a report.
func Classify(report model.ResultsReport) string {
	return Band(report.OverallScore).ID
}

// ClassifyBonus returns the bonus badge ids earned by a single report, in
// definition order.
func ClassifyBonus(report model.ResultsReport) []string {
	var out []string
	if report.OverallScore == 100 {
		out = append(out, PerfectScore)
	}
	if report.DurationMs < SpeedLimitMs {
		out = append(out, SpeedDemon)
	}
	if report.BigTechAccepted == 0 {
		out = append(out, NIRDPurist)
	}
	if pillarMaster(report.PillarScores) {
		out = append(out, PillarMaster)
	}
	return out
}

func pillarMaster(p model.PillarScores) bool {
	return p.Inclusion >= PillarMasterMin && p.Accountability >= PillarMasterMin && p.Sustainability >= PillarMasterMin
}

// History is the badge summary over a set of past reports.
type History struct {
	BestScore int      `json:"best_score"`
	Band      string   `json:"band,omitempty"`
	Bonuses   []string `json:"bonuses"`
}

// ClassifyHistory evaluates badges over past reports: the band of the best
// overall score, plus perfect score and pillar master if any single report
// earned them. An empty history has no band.
func ClassifyHistory(reports []model.ResultsReport) History {
	h := History{Bonuses: []string{}}
	if len(reports) == 0 {
		return h
	}
	perfect, master := false, false
	h.BestScore = reports[0].OverallScore
	for _, r := range reports {
		if r.OverallScore > h.BestScore {
			h.BestScore = r.OverallScore
		}
		perfect = perfect || r.OverallScore == 100
		master = master || pillarMaster(r.PillarScores)
	}
	h.Band = Band(h.BestScore).ID
	if perfect {
		h.Bonuses = append(h.Bonuses, PerfectScore)
	}
	if master {
		h.Bonuses = append(h.Bonuses, PillarMaster)
	}
	return h
}

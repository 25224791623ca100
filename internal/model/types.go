// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Classification tells Big Tech products from sovereign (NIRD) ones.
type Classification string

// Known classifications.
const (
	BigTech   Classification = "big-tech"
	Sovereign Classification = "nird"
)

// ParseClassification accepts the catalog and backend spellings.
func ParseClassification(s string) (Classification, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "big-tech", "bigtech", "big_tech":
		return BigTech, nil
	case "nird", "sovereign":
		return Sovereign, nil
	default:
		return "", fmt.Errorf("unknown classification %q", s)
	}
}

// Pillar is one of the three evaluation dimensions.
type Pillar string

// Known pillars.
const (
	Inclusion      Pillar = "inclusion"
	Accountability Pillar = "accountability"
	Sustainability Pillar = "sustainability"
)

// Pillars lists every pillar in report order.
var Pillars = []Pillar{Inclusion, Accountability, Sustainability}

// ParsePillar accepts the English names and the backend's French ones.
func ParsePillar(s string) (Pillar, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inclusion":
		return Inclusion, nil
	case "accountability", "responsabilite", "responsabilité":
		return Accountability, nil
	case "sustainability", "durabilite", "durabilité":
		return Sustainability, nil
	default:
		return "", fmt.Errorf("unknown pillar %q", s)
	}
}

// WireName returns the pillar name used by the results backend.
func (p Pillar) WireName() string {
	switch p {
	case Accountability:
		return "responsabilite"
	case Sustainability:
		return "durabilite"
	default:
		return string(p)
	}
}

// ItemStats holds free-form display stats.
type ItemStats struct {
	Cost         string `json:"cost" toml:"cost" yaml:"cost"`
	CO2          string `json:"co2" toml:"co2" yaml:"co2"`
	DataLocation string `json:"dataLocation" toml:"data-location" yaml:"data-location"`
}

// Savings is what replacing a Big Tech product saves per year.
type Savings struct {
	Euros *float64 `json:"euros,omitempty" toml:"euros" yaml:"euros"`
	CO2Kg *float64 `json:"co2Kg,omitempty" toml:"co2-kg" yaml:"co2-kg"`
}

// EurosOrZero returns the euro savings or 0.
func (s *Savings) EurosOrZero() float64 {
	if s == nil || s.Euros == nil {
		return 0
	}
	return *s.Euros
}

// CO2OrZero returns the CO2 savings in kg or 0.
func (s *Savings) CO2OrZero() float64 {
	if s == nil || s.CO2Kg == nil {
		return 0
	}
	return *s.CO2Kg
}

// TechnologyItem is one catalog card.
type TechnologyItem struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Category       string         `json:"category"`
	Description    string         `json:"description"`
	Icon           string         `json:"icon"`
	Classification Classification `json:"classification"`
	Pillar         Pillar         `json:"pillar"`
	Stats          ItemStats      `json:"stats"`
	AlternativeID  string         `json:"alternativeId,omitempty"`
	Savings        *Savings       `json:"savings,omitempty"`
}

// Note carries the educational text shown for a wrong answer.
type Note struct {
	Explanation string `json:"explanation" toml:"explanation" yaml:"explanation"`
	Consequence string `json:"consequence" toml:"consequence" yaml:"consequence"`
}

// Choice is a single keep/replace decision, snapshotted at choice time.
type Choice struct {
	ItemID             string         `json:"itemId"`
	ItemName           string         `json:"itemName"`
	ItemClassification Classification `json:"itemClassification"`
	Accepted           bool           `json:"accepted"`
	PointsEarned       int            `json:"pointsEarned"`
	Timestamp          time.Time      `json:"timestamp"`
}

// SessionSnapshot is the persisted form of an unfinished session.
type SessionSnapshot struct {
	ID           string     `json:"id"`
	ItemIDs      []string   `json:"itemIds"`
	CurrentIndex int        `json:"currentIndex"`
	Choices      []Choice   `json:"choices"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// PillarScores holds a 0-100 score per pillar.
type PillarScores struct {
	Inclusion      int `json:"inclusion"`
	Accountability int `json:"accountability"`
	Sustainability int `json:"sustainability"`
}

// Get returns the score for a pillar.
func (p PillarScores) Get(pillar Pillar) int {
	switch pillar {
	case Inclusion:
		return p.Inclusion
	case Accountability:
		return p.Accountability
	case Sustainability:
		return p.Sustainability
	default:
		return 0
	}
}

// Set stores the score for a pillar.
func (p *PillarScores) Set(pillar Pillar, score int) {
	switch pillar {
	case Inclusion:
		p.Inclusion = score
	case Accountability:
		p.Accountability = score
	case Sustainability:
		p.Sustainability = score
	}
}

// WrongAnswerKind tells which way a choice was wrong.
type WrongAnswerKind string

// Wrong answer kinds.
const (
	KeptBigTech       WrongAnswerKind = "kept-bigtech"
	RejectedSovereign WrongAnswerKind = "rejected-sovereign"
)

// AlternativeSummary describes the NIRD replacement of a kept Big Tech item.
type AlternativeSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Savings     *Savings `json:"savings,omitempty"`
}

// WrongAnswer explains a choice the scoring rule marks as incorrect.
type WrongAnswer struct {
	ItemID         string              `json:"itemId"`
	ItemName       string              `json:"itemName"`
	Classification Classification      `json:"classification"`
	Kind           WrongAnswerKind     `json:"kind"`
	Category       string              `json:"category"`
	Icon           string              `json:"icon"`
	Explanation    string              `json:"explanation"`
	Consequence    string              `json:"consequence"`
	CorrectAction  string              `json:"correctAction"`
	Stats          ItemStats           `json:"stats"`
	Alternative    *AlternativeSummary `json:"alternative,omitempty"`
}

// Recommendation is an action item in the results report.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Icon        string `json:"icon"`
}

// ResultsReport is the scoring output for a completed session.
type ResultsReport struct {
	OverallScore      int              `json:"overallScore"`
	PillarScores      PillarScores     `json:"pillarScores"`
	BigTechAccepted   int              `json:"bigTechAcceptedCount"`
	SovereignAccepted int              `json:"sovereignAcceptedCount"`
	TotalCards        int              `json:"totalCards"`
	CorrectChoices    int              `json:"correctChoices"`
	TotalPoints       int              `json:"totalPoints"`
	TotalSavingsEuros float64          `json:"totalSavingsEuros"`
	TotalSavingsCO2   float64          `json:"totalSavingsCo2"`
	WrongAnswers      []WrongAnswer    `json:"wrongAnswers"`
	Recommendations   []Recommendation `json:"recommendations"`
	StartedAt         time.Time        `json:"startedAt"`
	CompletedAt       time.Time        `json:"completedAt"`
	DurationMs        int64            `json:"durationMs"`
}

// Config defines play settings.
type Config struct {
	Cards       int
	Seed        int64
	APIURL      string
	APITimeout  time.Duration
	APIToken    string
	Submit      bool
	CatalogPath string
	User        string
	NewGame     bool
	NoPersist   bool
}

// StatsConfig defines filters and options for history output.
type StatsConfig struct {
	User        string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// ServerConfig defines settings for the results backend.
type ServerConfig struct {
	Listen      string
	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string
}

// ResultSummary is one completed session as stored in the history.
type ResultSummary struct {
	ID                string       `json:"id"`
	User              string       `json:"user"`
	StartedAt         time.Time    `json:"startedAt"`
	CompletedAt       time.Time    `json:"completedAt"`
	OverallScore      int          `json:"nirdScore"`
	PillarScores      PillarScores `json:"pillarScores"`
	BigTechAccepted   int          `json:"bigTechAccepted"`
	SovereignAccepted int          `json:"sovereignAccepted"`
	TotalCards        int          `json:"cardsPlayed"`
	CorrectChoices    int          `json:"correctChoices"`
	TotalPoints       int          `json:"totalPoints"`
	TotalSavingsEuros float64      `json:"totalSavingsEuros"`
	TotalSavingsCO2   float64      `json:"totalSavingsCo2"`
	DurationMs        int64        `json:"durationMs"`
}

// SummaryOf projects a report onto its history row.
func SummaryOf(id, user string, r ResultsReport) ResultSummary {
	return ResultSummary{
		ID:                id,
		User:              user,
		StartedAt:         r.StartedAt,
		CompletedAt:       r.CompletedAt,
		OverallScore:      r.OverallScore,
		PillarScores:      r.PillarScores,
		BigTechAccepted:   r.BigTechAccepted,
		SovereignAccepted: r.SovereignAccepted,
		TotalCards:        r.TotalCards,
		CorrectChoices:    r.CorrectChoices,
		TotalPoints:       r.TotalPoints,
		TotalSavingsEuros: r.TotalSavingsEuros,
		TotalSavingsCO2:   r.TotalSavingsCO2,
		DurationMs:        r.DurationMs,
	}
}

// ItemAggregate counts how an item fared across stored sessions.
type ItemAggregate struct {
	ItemID         string
	ItemName       string
	Classification Classification
	Seen           int
	Wrong          int
}

// Report rebuilds the score fields of the full report from a summary.
func (s ResultSummary) Report() ResultsReport {
	return ResultsReport{
		OverallScore:      s.OverallScore,
		PillarScores:      s.PillarScores,
		BigTechAccepted:   s.BigTechAccepted,
		SovereignAccepted: s.SovereignAccepted,
		TotalCards:        s.TotalCards,
		CorrectChoices:    s.CorrectChoices,
		TotalPoints:       s.TotalPoints,
		TotalSavingsEuros: s.TotalSavingsEuros,
		TotalSavingsCO2:   s.TotalSavingsCO2,
		WrongAnswers:      []WrongAnswer{},
		Recommendations:   []Recommendation{},
		StartedAt:         s.StartedAt,
		CompletedAt:       s.CompletedAt,
		DurationMs:        s.DurationMs,
	}
}

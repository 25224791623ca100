package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

const defaultCategory = "Général"

// flexID decodes ids the backend sends either as numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// categoryRef is either a bare name or an object with a name.
type categoryRef struct {
	Name string
}

func (c *categoryRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &c.Name)
	}
	if data[0] != '{' {
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.Name = obj.Name
	return nil
}

// APICard is a card as served by the cards API.
type APICard struct {
	ID            flexID           `json:"id,omitempty"`
	CardID        string           `json:"card_id,omitempty"`
	Name          string           `json:"name"`
	CardType      string           `json:"card_type"`
	CategoryName  string           `json:"category_name,omitempty"`
	Category      *categoryRef     `json:"category,omitempty"`
	Description   string           `json:"description"`
	Icon          string           `json:"icon"`
	Pillar        string           `json:"pillar"`
	Stats         *model.ItemStats `json:"stats,omitempty"`
	Cost          string           `json:"cost,omitempty"`
	CO2           string           `json:"co2,omitempty"`
	CO2Impact     string           `json:"co2_impact,omitempty"`
	DataLocation  string           `json:"data_location,omitempty"`
	AlternativeID string           `json:"alternative_id,omitempty"`
	Alternative   flexID           `json:"alternative,omitempty"`
	Savings       *model.Savings   `json:"savings,omitempty"`
	SavingsEuros  *float64         `json:"savings_euros,omitempty"`
	SavingsCO2    *float64         `json:"savings_co2,omitempty"`
	SavingsCO2Kg  *float64         `json:"savings_co2_kg,omitempty"`
}

// MapCard converts an API card into a catalog item.
func MapCard(card APICard) (model.TechnologyItem, error) {
	id := card.CardID
	if id == "" {
		id = string(card.ID)
	}
	if id == "" {
		return model.TechnologyItem{}, fmt.Errorf("card %q has no id", card.Name)
	}
	classification, err := model.ParseClassification(card.CardType)
	if err != nil {
		return model.TechnologyItem{}, fmt.Errorf("card %s: %w", id, err)
	}
	pillar, err := model.ParsePillar(card.Pillar)
	if err != nil {
		return model.TechnologyItem{}, fmt.Errorf("card %s: %w", id, err)
	}

	category := card.CategoryName
	if category == "" && card.Category != nil {
		category = card.Category.Name
	}
	if category == "" {
		category = defaultCategory
	}

	var stats model.ItemStats
	if card.Stats != nil {
		stats = *card.Stats
	} else {
		stats = model.ItemStats{
			Cost:         firstNonEmpty(card.Cost, "N/A"),
			CO2:          firstNonEmpty(card.CO2, card.CO2Impact, "N/A"),
			DataLocation: firstNonEmpty(card.DataLocation, "N/A"),
		}
	}

	alternative := card.AlternativeID
	if alternative == "" {
		alternative = string(card.Alternative)
	}

	return model.TechnologyItem{
		ID:             id,
		Name:           card.Name,
		Category:       category,
		Description:    card.Description,
		Icon:           card.Icon,
		Classification: classification,
		Pillar:         pillar,
		Stats:          stats,
		AlternativeID:  alternative,
		Savings:        mapSavings(card),
	}, nil
}

func mapSavings(card APICard) *model.Savings {
	if card.Savings != nil {
		s := *card.Savings
		return &s
	}
	if nonZero(card.SavingsEuros) || nonZero(card.SavingsCO2) || nonZero(card.SavingsCO2Kg) {
		co2 := card.SavingsCO2
		if !nonZero(co2) {
			co2 = card.SavingsCO2Kg
		}
		return &model.Savings{Euros: card.SavingsEuros, CO2Kg: co2}
	}
	return nil
}

func nonZero(v *float64) bool {
	return v != nil && *v != 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// CardOf renders a catalog item in the API shape.
func CardOf(item model.TechnologyItem) APICard {
	stats := item.Stats
	card := APICard{
		CardID:        item.ID,
		Name:          item.Name,
		CardType:      string(item.Classification),
		CategoryName:  item.Category,
		Description:   item.Description,
		Icon:          item.Icon,
		Pillar:        item.Pillar.WireName(),
		Stats:         &stats,
		AlternativeID: item.AlternativeID,
	}
	if item.Savings != nil {
		s := *item.Savings
		card.Savings = &s
	}
	return card
}

// ChoicePayload is one choice in a submitted result.
type ChoicePayload struct {
	CardID       string `json:"card_id"`
	CardName     string `json:"card_name"`
	CardType     string `json:"card_type"`
	Accepted     bool   `json:"accepted"`
	PointsEarned int    `json:"points_earned"`
	Timestamp    string `json:"timestamp"`
}

// WrongAnswerPayload is one wrong answer in a submitted result.
type WrongAnswerPayload struct {
	CardID          string `json:"card_id"`
	CardName        string `json:"card_name"`
	CardType        string `json:"card_type"`
	AlternativeName string `json:"alternative_name"`
	Reason          string `json:"reason"`
	Recommendation  string `json:"recommendation"`
}

// ResultPayload is the body of POST /api/results/.
type ResultPayload struct {
	NIRDScore           int                  `json:"nird_score"`
	TotalPoints         int                  `json:"total_points"`
	InclusionScore      int                  `json:"inclusion_score"`
	ResponsabiliteScore int                  `json:"responsabilite_score"`
	DurabiliteScore     int                  `json:"durabilite_score"`
	TotalSavingsEuros   float64              `json:"total_savings_euros"`
	TotalSavingsCO2     float64              `json:"total_savings_co2"`
	CardsPlayed         int                  `json:"cards_played"`
	CorrectChoices      int                  `json:"correct_choices"`
	StartedAt           string               `json:"started_at"`
	Choices             []ChoicePayload      `json:"choices"`
	WrongAnswers        []WrongAnswerPayload `json:"wrong_answers"`
}

// ResultRecord is a stored result as returned by the results API.
type ResultRecord struct {
	ID string `json:"id"`
	ResultPayload
	CompletedAt string `json:"completed_at"`
}

func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// NewResultPayload builds the submission body for a report.
func NewResultPayload(report model.ResultsReport, choices []model.Choice, startedAt time.Time) ResultPayload {
	p := ResultPayload{
		NIRDScore:           report.OverallScore,
		TotalPoints:         report.TotalPoints,
		InclusionScore:      report.PillarScores.Inclusion,
		ResponsabiliteScore: report.PillarScores.Accountability,
		DurabiliteScore:     report.PillarScores.Sustainability,
		TotalSavingsEuros:   report.TotalSavingsEuros,
		TotalSavingsCO2:     report.TotalSavingsCO2,
		CardsPlayed:         report.TotalCards,
		CorrectChoices:      report.CorrectChoices,
		StartedAt:           isoTime(startedAt),
		Choices:             make([]ChoicePayload, 0, len(choices)),
		WrongAnswers:        make([]WrongAnswerPayload, 0, len(report.WrongAnswers)),
	}
	for _, c := range choices {
		p.Choices = append(p.Choices, ChoicePayload{
			CardID:       c.ItemID,
			CardName:     c.ItemName,
			CardType:     string(c.ItemClassification),
			Accepted:     c.Accepted,
			PointsEarned: c.PointsEarned,
			Timestamp:    isoTime(c.Timestamp),
		})
	}
	for _, w := range report.WrongAnswers {
		alt := ""
		if w.Alternative != nil {
			alt = w.Alternative.Name
		}
		p.WrongAnswers = append(p.WrongAnswers, WrongAnswerPayload{
			CardID:          w.ItemID,
			CardName:        w.ItemName,
			CardType:        string(w.Classification),
			AlternativeName: alt,
			Reason:          w.Explanation,
			Recommendation:  w.CorrectAction,
		})
	}
	return p
}

// Report rebuilds the score part of a report and the choices from a payload.
func (p ResultPayload) Report(completedAt time.Time) (model.ResultsReport, []model.Choice, error) {
	startedAt, err := time.Parse(time.RFC3339Nano, p.StartedAt)
	if err != nil {
		return model.ResultsReport{}, nil, fmt.Errorf("invalid started_at: %w", err)
	}
	report := model.ResultsReport{
		OverallScore: p.NIRDScore,
		PillarScores: model.PillarScores{
			Inclusion:      p.InclusionScore,
			Accountability: p.ResponsabiliteScore,
			Sustainability: p.DurabiliteScore,
		},
		TotalCards:        p.CardsPlayed,
		CorrectChoices:    p.CorrectChoices,
		TotalPoints:       p.TotalPoints,
		TotalSavingsEuros: p.TotalSavingsEuros,
		TotalSavingsCO2:   p.TotalSavingsCO2,
		WrongAnswers:      make([]model.WrongAnswer, 0, len(p.WrongAnswers)),
		Recommendations:   []model.Recommendation{},
		StartedAt:         startedAt,
		CompletedAt:       completedAt,
		DurationMs:        completedAt.Sub(startedAt).Milliseconds(),
	}
	choices := make([]model.Choice, 0, len(p.Choices))
	for i, c := range p.Choices {
		cl, err := model.ParseClassification(c.CardType)
		if err != nil {
			return model.ResultsReport{}, nil, fmt.Errorf("choice %d: %w", i, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, c.Timestamp)
		if err != nil {
			return model.ResultsReport{}, nil, fmt.Errorf("choice %d: invalid timestamp: %w", i, err)
		}
		if cl == model.BigTech && c.Accepted {
			report.BigTechAccepted++
		}
		if cl == model.Sovereign && c.Accepted {
			report.SovereignAccepted++
		}
		choices = append(choices, model.Choice{
			ItemID:             c.CardID,
			ItemName:           c.CardName,
			ItemClassification: cl,
			Accepted:           c.Accepted,
			PointsEarned:       c.PointsEarned,
			Timestamp:          ts,
		})
	}
	for i, w := range p.WrongAnswers {
		cl, err := model.ParseClassification(w.CardType)
		if err != nil {
			return model.ResultsReport{}, nil, fmt.Errorf("wrong answer %d: %w", i, err)
		}
		kind := model.RejectedSovereign
		if cl == model.BigTech {
			kind = model.KeptBigTech
		}
		wa := model.WrongAnswer{
			ItemID:         w.CardID,
			ItemName:       w.CardName,
			Classification: cl,
			Kind:           kind,
			Explanation:    w.Reason,
			CorrectAction:  w.Recommendation,
		}
		if w.AlternativeName != "" {
			wa.Alternative = &model.AlternativeSummary{Name: w.AlternativeName}
		}
		report.WrongAnswers = append(report.WrongAnswers, wa)
	}
	return report, choices, nil
}

// RecordOf renders a stored result in the API shape.
func RecordOf(id string, report model.ResultsReport, choices []model.Choice) ResultRecord {
	return ResultRecord{
		ID:            id,
		ResultPayload: NewResultPayload(report, choices, report.StartedAt),
		CompletedAt:   isoTime(report.CompletedAt),
	}
}

// ParseCount reads a count query value; empty means def.
func ParseCount(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count %q", raw)
	}
	return n, nil
}

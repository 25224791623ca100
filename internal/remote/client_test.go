package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "", srv.Client(), nil)
}

func TestMapCardNestedShape(t *testing.T) {
	raw := `{
		"id": 12, "card_id": "gmail", "name": "Gmail", "card_type": "big-tech",
		"category": {"name": "Messagerie"}, "pillar": "responsabilite",
		"stats": {"cost": "6€", "co2": "20kg", "dataLocation": "USA"},
		"alternative_id": "protonmail",
		"savings": {"euros": 2, "co2Kg": 12}
	}`
	var card APICard
	require.NoError(t, json.Unmarshal([]byte(raw), &card))
	item, err := MapCard(card)
	require.NoError(t, err)
	assert.Equal(t, "gmail", item.ID)
	assert.Equal(t, model.BigTech, item.Classification)
	assert.Equal(t, model.Accountability, item.Pillar)
	assert.Equal(t, "Messagerie", item.Category)
	assert.Equal(t, "USA", item.Stats.DataLocation)
	assert.Equal(t, "protonmail", item.AlternativeID)
	assert.Equal(t, 2.0, item.Savings.EurosOrZero())
	assert.Equal(t, 12.0, item.Savings.CO2OrZero())
}

func TestMapCardFlatShape(t *testing.T) {
	raw := `{
		"id": 7, "name": "Jitsi", "card_type": "nird", "pillar": "durabilite",
		"co2_impact": "2kg", "alternative": 3,
		"savings_euros": 4.5, "savings_co2_kg": 9
	}`
	var card APICard
	require.NoError(t, json.Unmarshal([]byte(raw), &card))
	item, err := MapCard(card)
	require.NoError(t, err)
	assert.Equal(t, "7", item.ID)
	assert.Equal(t, "3", item.AlternativeID)
	assert.Equal(t, "Général", item.Category)
	assert.Equal(t, model.ItemStats{Cost: "N/A", CO2: "2kg", DataLocation: "N/A"}, item.Stats)
	assert.Equal(t, model.Sustainability, item.Pillar)
	assert.Equal(t, 4.5, item.Savings.EurosOrZero())
	assert.Equal(t, 9.0, item.Savings.CO2OrZero())

	var bare APICard
	require.NoError(t, json.Unmarshal([]byte(`{"card_id": "x", "card_type": "nird", "pillar": "inclusion", "category_name": "Cloud"}`), &bare))
	item, err = MapCard(bare)
	require.NoError(t, err)
	assert.Nil(t, item.Savings)
	assert.Equal(t, "Cloud", item.Category)
}

func TestMapCardRejectsUnknownEnums(t *testing.T) {
	_, err := MapCard(APICard{CardID: "x", CardType: "startup", Pillar: "inclusion"})
	require.Error(t, err)
	_, err = MapCard(APICard{CardID: "x", CardType: "nird", Pillar: "speed"})
	require.Error(t, err)
	_, err = MapCard(APICard{CardType: "nird", Pillar: "inclusion"})
	require.Error(t, err)
}

func TestFetchRandom(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cards/random/", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("count"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"card_id": "a", "name": "A", "card_type": "big-tech", "pillar": "inclusion"},
			{"card_id": "b", "name": "B", "card_type": "unknown", "pillar": "inclusion"},
			{"card_id": "c", "name": "C", "card_type": "nird", "pillar": "durabilite"}
		]`))
	})
	items, err := client.FetchRandom(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "c", items[1].ID)
}

func TestFetchSurfacesServerMessage(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail": "maintenance"}`))
	})
	_, err := client.FetchAll(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "maintenance", apiErr.Error())
}

func TestSubmit(t *testing.T) {
	started := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	report := model.ResultsReport{
		OverallScore:      40,
		PillarScores:      model.PillarScores{Inclusion: 50, Accountability: 20, Sustainability: 50},
		TotalCards:        2,
		CorrectChoices:    1,
		TotalPoints:       10,
		TotalSavingsEuros: 7,
		WrongAnswers: []model.WrongAnswer{{
			ItemID: "gmail", ItemName: "Gmail", Classification: model.BigTech, Kind: model.KeptBigTech,
			Explanation: "scan", CorrectAction: "Remplacer par ProtonMail",
			Alternative: &model.AlternativeSummary{Name: "ProtonMail"},
		}},
	}
	choices := []model.Choice{
		{ItemID: "gmail", ItemName: "Gmail", ItemClassification: model.BigTech, Accepted: true, Timestamp: started.Add(time.Second)},
		{ItemID: "teams", ItemName: "Teams", ItemClassification: model.BigTech, Accepted: false, PointsEarned: 10, Timestamp: started.Add(2 * time.Second)},
	}

	var (
		mu   sync.Mutex
		got  ResultPayload
		auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		got = ResultPayload{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "r1", "nird_score": 40}`))
	}))
	t.Cleanup(srv.Close)

	anon := NewClient(srv.URL, "", srv.Client(), nil)
	rec, err := anon.Submit(context.Background(), report, choices, started, false)
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)
	mu.Lock()
	assert.Empty(t, auth)
	assert.Equal(t, 40, got.NIRDScore)
	assert.Equal(t, 20, got.ResponsabiliteScore)
	assert.Equal(t, "2024-06-01T10:00:00.000Z", got.StartedAt)
	require.Len(t, got.Choices, 2)
	assert.Equal(t, "big-tech", got.Choices[0].CardType)
	require.Len(t, got.WrongAnswers, 1)
	assert.Equal(t, WrongAnswerPayload{
		CardID: "gmail", CardName: "Gmail", CardType: "big-tech",
		AlternativeName: "ProtonMail", Reason: "scan", Recommendation: "Remplacer par ProtonMail",
	}, got.WrongAnswers[0])

	mu.Unlock()

	authed := NewClient(srv.URL, "tok", srv.Client(), nil)
	_, err = authed.Submit(context.Background(), report, choices, started, true)
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, "Bearer tok", auth)
	mu.Unlock()

	_, err = anon.Submit(context.Background(), report, choices, started, true)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestPayloadReportRoundTrip(t *testing.T) {
	started := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	report := model.ResultsReport{OverallScore: 70, PillarScores: model.PillarScores{Inclusion: 70}, TotalCards: 1, WrongAnswers: []model.WrongAnswer{}}
	choices := []model.Choice{{ItemID: "jitsi", ItemClassification: model.Sovereign, Accepted: true, PointsEarned: 15, Timestamp: started}}
	back, backChoices, err := NewResultPayload(report, choices, started).Report(started.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 70, back.OverallScore)
	assert.Equal(t, 1, back.SovereignAccepted)
	assert.Equal(t, int64(60000), back.DurationMs)
	require.Len(t, backChoices, 1)
	assert.True(t, backChoices[0].Timestamp.Equal(started))
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/verte-zerg/nirdswipe/internal/catalog"
	"github.com/verte-zerg/nirdswipe/internal/draw"
	"github.com/verte-zerg/nirdswipe/internal/model"
	"github.com/verte-zerg/nirdswipe/internal/remote"
	"github.com/verte-zerg/nirdswipe/internal/store"
)

const testSecret = "test-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2024, 6, 1, 10, 5, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	cfg := model.ServerConfig{JWTSecret: testSecret}
	srv := New(catalog.MustDefault(), st, cfg, nil,
		WithDrawer(draw.NewSeeded(1)),
		WithClock(func() time.Time { return fixedNow }))
	return srv, st
}

func get(t *testing.T, h http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeCards(t *testing.T, rec *httptest.ResponseRecorder) []model.TechnologyItem {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cards []remote.APICard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cards))
	items := make([]model.TechnologyItem, len(cards))
	for i, card := range cards {
		item, err := remote.MapCard(card)
		require.NoError(t, err)
		items[i] = item
	}
	return items
}

func TestCardEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	cat := catalog.MustDefault()

	all := decodeCards(t, get(t, h, "/api/cards/", ""))
	assert.Len(t, all, cat.Len())

	hand := decodeCards(t, get(t, h, "/api/cards/random/?count=5", ""))
	require.Len(t, hand, 5)
	bigTech := 0
	for _, item := range hand {
		if item.Classification == model.BigTech {
			bigTech++
		}
	}
	assert.Equal(t, 3, bigTech)

	assert.Len(t, decodeCards(t, get(t, h, "/api/cards/random/", "")), draw.DefaultCount)
	assert.Len(t, decodeCards(t, get(t, h, "/api/cards/random/?count=200000000", "")), cat.Len())

	for _, item := range decodeCards(t, get(t, h, "/api/cards/by_pillar/?pillar=responsabilite", "")) {
		assert.Equal(t, model.Accountability, item.Pillar)
	}

	category := cat.Categories()[0]
	byCategory := decodeCards(t, get(t, h, "/api/cards/by_category/?category="+url.QueryEscape(category), ""))
	assert.Len(t, byCategory, len(cat.ByCategory(category)))

	rec := get(t, h, "/api/cards/categories/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cats []remote.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	require.Len(t, cats, len(cat.Categories()))
	assert.Equal(t, remote.Category{ID: 1, Name: category}, cats[0])
}

func TestCardEndpointsRejectBadQueries(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	for _, path := range []string{
		"/api/cards/random/?count=many",
		"/api/cards/random/?count=-1",
		"/api/cards/by_pillar/?pillar=speed",
		"/api/cards/by_category/",
	} {
		rec := get(t, h, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), `"detail"`, path)
	}
}

func TestTokens(t *testing.T) {
	token, err := IssueToken(testSecret, "alice", time.Hour)
	require.NoError(t, err)
	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.User)

	_, err = ParseToken("other", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ParseToken("", token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		User: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	raw, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = ParseToken(testSecret, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = IssueToken("", "alice", time.Hour)
	assert.Error(t, err)
	_, err = IssueToken(testSecret, "", time.Hour)
	assert.Error(t, err)
}

func TestResultsRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := get(t, h, "/api/results/", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication credentials")

	rec = get(t, h, "/api/results/", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateResultRejectsBadPayload(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	bodies := []string{
		`not json`,
		`{"nird_score": 150, "started_at": "2024-06-01T10:00:00Z"}`,
		`{"nird_score": 50, "cards_played": 1, "correct_choices": 2, "started_at": "2024-06-01T10:00:00Z"}`,
		`{"nird_score": 50, "started_at": "yesterday"}`,
		`{"nird_score": 50, "started_at": "2024-06-01T10:00:00Z", "choices": [{"card_id": "x", "card_type": "startup", "timestamp": "2024-06-01T10:00:00Z"}]}`,
	}
	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/api/results/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/results/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func sampleResult() (model.ResultsReport, []model.Choice, time.Time) {
	started := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	report := model.ResultsReport{
		OverallScore:    67,
		PillarScores:    model.PillarScores{Inclusion: 100, Accountability: 100},
		BigTechAccepted: 0,
		TotalCards:      2,
		CorrectChoices:  2,
		TotalPoints:     25,
		WrongAnswers:    []model.WrongAnswer{},
	}
	choices := []model.Choice{
		{ItemID: "gmail", ItemName: "Gmail", ItemClassification: model.BigTech, Accepted: false, PointsEarned: 10, Timestamp: started.Add(time.Minute)},
		{ItemID: "protonmail", ItemName: "ProtonMail", ItemClassification: model.Sovereign, Accepted: true, PointsEarned: 15, Timestamp: started.Add(2 * time.Minute)},
	}
	return report, choices, started
}

func TestRoundTripThroughClient(t *testing.T) {
	srv, st := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	ctx := context.Background()

	aliceToken, err := IssueToken(testSecret, "alice", time.Hour)
	require.NoError(t, err)
	bobToken, err := IssueToken(testSecret, "bob", time.Hour)
	require.NoError(t, err)
	alice := remote.NewClient(ts.URL, aliceToken, ts.Client(), nil)
	bob := remote.NewClient(ts.URL, bobToken, ts.Client(), nil)
	anon := remote.NewClient(ts.URL, "", ts.Client(), nil)

	report, choices, started := sampleResult()
	created, err := alice.Submit(ctx, report, choices, started, true)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "2024-06-01T10:05:00.000Z", created.CompletedAt)

	_, err = anon.Submit(ctx, report, choices, started, false)
	require.NoError(t, err)

	listed, err := alice.Results(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
	assert.Equal(t, 67, listed[0].NIRDScore)
	assert.Equal(t, 25, listed[0].TotalPoints)
	require.Len(t, listed[0].Choices, 2)

	one, err := alice.Result(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, one.ID)

	_, err = bob.Result(ctx, created.ID)
	var apiErr *remote.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	stored, err := st.GetResult(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Summary.User)
	assert.Equal(t, int64(5*time.Minute/time.Millisecond), stored.Summary.DurationMs)
	assert.Equal(t, 1, stored.Report.SovereignAccepted)

	all, err := st.ListResults(ctx, model.StatsConfig{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDealerUsesServer(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	dealer := &draw.Dealer{
		Drawer:  draw.NewSeeded(2),
		Source:  remote.NewClient(ts.URL, "", ts.Client(), nil),
		Timeout: time.Second,
	}
	hand, origin := dealer.Deal(context.Background(), nil, 6)
	assert.Equal(t, draw.OriginRemote, origin)
	assert.Len(t, hand, 6)
}

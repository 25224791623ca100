// Package server serves the cards and results API over HTTP.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/nirdswipe/internal/catalog"
	"github.com/verte-zerg/nirdswipe/internal/draw"
	"github.com/verte-zerg/nirdswipe/internal/model"
	"github.com/verte-zerg/nirdswipe/internal/remote"
	"github.com/verte-zerg/nirdswipe/internal/store"
)

// Server stores client-computed results and deals cards from a catalog.
type Server struct {
	cat    *catalog.Catalog
	st     *store.Store
	secret string
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	drawer *draw.Drawer

	engine *gin.Engine
}

// Option customizes a Server.
type Option func(*Server)

// WithDrawer replaces the random drawer, for reproducible draws.
func WithDrawer(d *draw.Drawer) Option {
	return func(s *Server) { s.drawer = d }
}

// WithClock replaces the completion clock.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds the HTTP handlers over cat and st.
func New(cat *catalog.Catalog, st *store.Store, cfg model.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cat:    cat,
		st:     st,
		secret: cfg.JWTSecret,
		logger: logger,
		now:    time.Now,
		drawer: draw.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes(cfg.CORSOrigins)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), corsMiddleware(origins), s.withAuth())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	cards := api.Group("/cards")
	{
		cards.GET("/", s.listCards)
		cards.GET("/random/", s.randomCards)
		cards.GET("/by_category/", s.cardsByCategory)
		cards.GET("/by_pillar/", s.cardsByPillar)
		cards.GET("/categories/", s.categories)
	}

	results := api.Group("/results")
	{
		results.POST("/", s.createResult)
		results.GET("/", requireAuth(), s.listResults)
		results.GET("/:id/", requireAuth(), s.getResult)
	}
	return r
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func cardsOf(items []model.TechnologyItem) []remote.APICard {
	out := make([]remote.APICard, len(items))
	for i, item := range items {
		out[i] = remote.CardOf(item)
	}
	return out
}

func (s *Server) listCards(c *gin.Context) {
	c.JSON(http.StatusOK, cardsOf(s.cat.Items()))
}

func (s *Server) randomCards(c *gin.Context) {
	count, err := remote.ParseCount(c.Query("count"), draw.DefaultCount)
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	hand := s.drawer.Draw(s.cat.Items(), count)
	s.mu.Unlock()
	c.JSON(http.StatusOK, cardsOf(hand))
}

func (s *Server) cardsByCategory(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		detail(c, http.StatusBadRequest, "category parameter is required")
		return
	}
	c.JSON(http.StatusOK, cardsOf(s.cat.ByCategory(category)))
}

func (s *Server) cardsByPillar(c *gin.Context) {
	pillar, err := model.ParsePillar(c.Query("pillar"))
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, cardsOf(s.cat.ByPillar(pillar)))
}

func (s *Server) categories(c *gin.Context) {
	names := s.cat.Categories()
	out := make([]remote.Category, len(names))
	for i, name := range names {
		out[i] = remote.Category{ID: i + 1, Name: name}
	}
	c.JSON(http.StatusOK, out)
}

func validatePayload(p remote.ResultPayload) error {
	scores := map[string]int{
		"nird_score":           p.NIRDScore,
		"inclusion_score":      p.InclusionScore,
		"responsabilite_score": p.ResponsabiliteScore,
		"durabilite_score":     p.DurabiliteScore,
	}
	for name, v := range scores {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be between 0 and 100", name)
		}
	}
	if p.CorrectChoices < 0 || p.CorrectChoices > p.CardsPlayed {
		return fmt.Errorf("correct_choices must be between 0 and cards_played")
	}
	return nil
}

func (s *Server) createResult(c *gin.Context) {
	var payload remote.ResultPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		detail(c, http.StatusBadRequest, "invalid result payload")
		return
	}
	if err := validatePayload(payload); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	report, choices, err := payload.Report(s.now())
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	user := ""
	if claims, ok := claimsFrom(c); ok {
		user = claims.User
	}
	id := uuid.NewString()
	if err := s.st.InsertResult(c.Request.Context(), id, user, report, choices); err != nil {
		s.logger.Error("failed to store result", zap.String("id", id), zap.Error(err))
		detail(c, http.StatusInternalServerError, "failed to store result")
		return
	}
	c.JSON(http.StatusCreated, remote.RecordOf(id, report, choices))
}

func (s *Server) listResults(c *gin.Context) {
	claims, _ := claimsFrom(c)
	ctx := c.Request.Context()
	summaries, err := s.st.ListResults(ctx, model.StatsConfig{User: claims.User})
	if err != nil {
		s.logger.Error("failed to list results", zap.Error(err))
		detail(c, http.StatusInternalServerError, "failed to list results")
		return
	}
	out := make([]remote.ResultRecord, 0, len(summaries))
	for i := len(summaries) - 1; i >= 0; i-- {
		res, err := s.st.GetResult(ctx, summaries[i].ID)
		if err != nil {
			s.logger.Error("failed to load result", zap.String("id", summaries[i].ID), zap.Error(err))
			detail(c, http.StatusInternalServerError, "failed to list results")
			return
		}
		out = append(out, remote.RecordOf(res.Summary.ID, res.Report, res.Choices))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getResult(c *gin.Context) {
	claims, _ := claimsFrom(c)
	res, err := s.st.GetResult(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && res.Summary.User != claims.User) {
		detail(c, http.StatusNotFound, "Not found.")
		return
	}
	if err != nil {
		s.logger.Error("failed to load result", zap.Error(err))
		detail(c, http.StatusInternalServerError, "failed to load result")
		return
	}
	c.JSON(http.StatusOK, remote.RecordOf(res.Summary.ID, res.Report, res.Choices))
}

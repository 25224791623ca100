// Package remote talks to the cards and results HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

// DefaultTimeout bounds every request when the caller has no deadline.
const DefaultTimeout = 5 * time.Second

// ErrUnauthenticated is returned for calls that need a token when none is set.
var ErrUnauthenticated = errors.New("no API token configured")

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d", e.Status)
	}
	return e.Message
}

// Client calls the backend. A zero token means anonymous access.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient returns a client for baseURL. A nil httpClient gets a default
// one with DefaultTimeout.
func NewClient(baseURL, token string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
		logger:  logger,
	}
}

// Authenticated reports whether a bearer token is configured.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

func (c *Client) do(ctx context.Context, method, path string, body any, auth bool, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
		apiErr.Message = body.Detail
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
	}
	return apiErr
}

func (c *Client) fetchCards(ctx context.Context, path string) ([]model.TechnologyItem, error) {
	var cards []APICard
	if err := c.do(ctx, http.MethodGet, path, nil, false, &cards); err != nil {
		return nil, err
	}
	items := make([]model.TechnologyItem, 0, len(cards))
	for _, card := range cards {
		item, err := MapCard(card)
		if err != nil {
			c.logger.Warn("skipping malformed card", zap.String("path", path), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// FetchRandom returns count random cards drawn by the server.
func (c *Client) FetchRandom(ctx context.Context, count int) ([]model.TechnologyItem, error) {
	return c.fetchCards(ctx, "/api/cards/random/?count="+strconv.Itoa(count))
}

// FetchAll returns every card.
func (c *Client) FetchAll(ctx context.Context) ([]model.TechnologyItem, error) {
	return c.fetchCards(ctx, "/api/cards/")
}

// FetchByCategory returns the cards of one category.
func (c *Client) FetchByCategory(ctx context.Context, category string) ([]model.TechnologyItem, error) {
	return c.fetchCards(ctx, "/api/cards/by_category/?category="+url.QueryEscape(category))
}

// FetchByPillar returns the cards of one pillar.
func (c *Client) FetchByPillar(ctx context.Context, pillar model.Pillar) ([]model.TechnologyItem, error) {
	return c.fetchCards(ctx, "/api/cards/by_pillar/?pillar="+url.QueryEscape(pillar.WireName()))
}

// Category is a card category listing entry.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Categories lists card categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.do(ctx, http.MethodGet, "/api/cards/categories/", nil, false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Submit posts a completed report. The bearer token is sent only when
// authenticated is true.
func (c *Client) Submit(ctx context.Context, report model.ResultsReport, choices []model.Choice, startedAt time.Time, authenticated bool) (ResultRecord, error) {
	if authenticated && !c.Authenticated() {
		return ResultRecord{}, ErrUnauthenticated
	}
	var out ResultRecord
	payload := NewResultPayload(report, choices, startedAt)
	if err := c.do(ctx, http.MethodPost, "/api/results/", payload, authenticated, &out); err != nil {
		return ResultRecord{}, fmt.Errorf("failed to submit result: %w", err)
	}
	return out, nil
}

// Results lists the authenticated user's results.
func (c *Client) Results(ctx context.Context) ([]ResultRecord, error) {
	if !c.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var out []ResultRecord
	if err := c.do(ctx, http.MethodGet, "/api/results/", nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Result fetches one of the authenticated user's results.
func (c *Client) Result(ctx context.Context, id string) (ResultRecord, error) {
	if !c.Authenticated() {
		return ResultRecord{}, ErrUnauthenticated
	}
	var out ResultRecord
	if err := c.do(ctx, http.MethodGet, "/api/results/"+url.PathEscape(id)+"/", nil, true, &out); err != nil {
		return ResultRecord{}, err
	}
	return out, nil
}

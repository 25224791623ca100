package draw

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

// Source fetches a server-side random draw.
type Source interface {
	FetchRandom(ctx context.Context, count int) ([]model.TechnologyItem, error)
}

// Origin tells which path produced a hand.
type Origin string

// Hand origins.
const (
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
)

// Dealer draws a hand from a remote source and falls back to the local catalog.
type Dealer struct {
	Drawer  *Drawer
	Source  Source
	Timeout time.Duration
	Logger  *zap.Logger
}

// Deal asks the source for count cards within the timeout. On error, timeout
// or an empty answer it draws from items instead; there is no retry.
func (d *Dealer) Deal(ctx context.Context, items []model.TechnologyItem, count int) ([]model.TechnologyItem, Origin) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if d.Source != nil {
		fetchCtx := ctx
		if d.Timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, d.Timeout)
			defer cancel()
		}
		cards, err := d.Source.FetchRandom(fetchCtx, count)
		switch {
		case err != nil:
			logger.Warn("card fetch failed, using local catalog", zap.Error(err))
		case len(cards) == 0:
			logger.Warn("card fetch returned no cards, using local catalog")
		default:
			return cards, OriginRemote
		}
	}
	return d.Drawer.Draw(items, count), OriginLocal
}

package og

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Renderer turns card HTML into PNG bytes.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// Cache stores rendered cards by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Generator renders cards, reading through cache when one is set. Cache errors are
// logged and never fail a request.
type Generator struct {
	renderer Renderer
	cache    Cache
	logger   zerolog.Logger
}

func NewGenerator(renderer Renderer, cache Cache, logger zerolog.Logger) *Generator {
	return &Generator{renderer: renderer, cache: cache, logger: logger}
}

func (g *Generator) Generate(ctx context.Context, p Params) ([]byte, error) {
	key := p.Key()
	if g.cache != nil {
		data, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			g.logger.Warn().Err(err).Str("key", key).Msg("og cache read failed")
		} else if ok {
			return data, nil
		}
	}

	html, err := CardHTML(p)
	if err != nil {
		return nil, fmt.Errorf("render og card: %w", err)
	}
	png, err := g.renderer.Render(ctx, html)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.Put(ctx, key, png); err != nil {
			g.logger.Warn().Err(err).Str("key", key).Msg("og cache write failed")
		}
	}
	return png, nil
}

package source

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/postgres"
)

// Open builds the Source selected by cfg.Source.Kind. The returned close
// function releases any connection and is never nil.
func Open(ctx context.Context, cfg *config.Config) (Source, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Source.Kind {
	case config.SourceXML:
		m, err := LoadXMLFile(cfg.Source.Path)
		if err != nil {
			return nil, noop, err
		}
		return m, noop, nil
	case config.SourcePostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		return NewPostgres(client), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

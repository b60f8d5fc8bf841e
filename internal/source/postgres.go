package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id      TEXT PRIMARY KEY,
    content TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS document_links (
    source_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    target_id TEXT NOT NULL,
    position  INT  NOT NULL,
    PRIMARY KEY (source_id, position)
);`

const (
	linksQuery   = `SELECT target_id FROM document_links WHERE source_id = $1 ORDER BY position`
	contentQuery = `SELECT content FROM documents WHERE id = $1`
	insertDoc    = `INSERT INTO documents (id, content) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content`
	deleteLinks = `DELETE FROM document_links WHERE source_id = $1`
	insertLink  = `INSERT INTO document_links (source_id, target_id, position) VALUES ($1, $2, $3)`
)

// Postgres reads documents from the documents and document_links tables.
type Postgres struct {
	client *postgres.Client
}

func NewPostgres(client *postgres.Client) *Postgres {
	return &Postgres{client: client}
}

func (p *Postgres) Links(ctx context.Context, id string) ([]string, error) {
	rows, err := p.client.DB.QueryContext(ctx, linksQuery, id)
	if err != nil {
		return nil, fmt.Errorf("querying links of %s: %w: %v", id, apperrors.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	links := make([]string, 0)
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("scanning link of %s: %w", id, err)
		}
		links = append(links, target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating links of %s: %w: %v", id, apperrors.ErrSourceUnavailable, err)
	}
	return links, nil
}

func (p *Postgres) Content(ctx context.Context, id string) ([]string, error) {
	var body string
	err := p.client.DB.QueryRowContext(ctx, contentQuery, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying content of %s: %w: %v", id, apperrors.ErrSourceUnavailable, err)
	}
	return tokenizer.Tokenize(body), nil
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating document tables: %w", err)
	}
	return nil
}

// Put upserts a document and replaces its links in one transaction.
func (p *Postgres) Put(ctx context.Context, doc Document) error {
	return p.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertDoc, doc.ID, doc.Content); err != nil {
			return fmt.Errorf("upserting document %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx, deleteLinks, doc.ID); err != nil {
			return fmt.Errorf("clearing links of %s: %w", doc.ID, err)
		}
		for i, target := range doc.Links {
			if _, err := tx.ExecContext(ctx, insertLink, doc.ID, target, i); err != nil {
				return fmt.Errorf("inserting link %s -> %s: %w", doc.ID, target, err)
			}
		}
		return nil
	})
}

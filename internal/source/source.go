// Package source provides the document collaborators the crawler and query
// resolver read from. A document has an ordered list of outbound links and a
// body of normalized tokens. Unknown documents have neither; that is not an
// error.
package source

import (
	"context"
)

// Source is the read side of a document store. Errors signal source-level
// faults such as an unreachable database, never an unknown id.
type Source interface {
	Links(ctx context.Context, id string) ([]string, error)
	Content(ctx context.Context, id string) ([]string, error)
}

// Document is one page as it is loaded into a source.
type Document struct {
	ID      string
	Links   []string
	Content string
}

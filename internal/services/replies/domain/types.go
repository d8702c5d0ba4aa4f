// Package domain holds the replies query types and ports
package domain

import (
	"context"
	"encoding/json"
)

// Query selects the replies addressed to one author
type Query struct {
	// AuthorName is the display name the replies were addressed to
	AuthorName string

	// From is the inclusive lower timestamp bound, Unix seconds
	From int64

	// Page is 1-based
	Page int

	// PageSize caps items per page
	PageSize int
}

// RepliesPort lists stored comment payloads addressed to an author
type RepliesPort interface {
	// Replies returns the raw payloads matching q in timestamp order
	Replies(ctx context.Context, q Query) ([]json.RawMessage, error)
}

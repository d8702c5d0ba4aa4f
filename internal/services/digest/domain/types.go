// Package domain defines digest types and ports
package domain

import (
	"context"
	"encoding/json"
)

// Match is one comment due for delivery to one subscriber
type Match struct {
	CommentID int64
	TS        int64
	Payload   json.RawMessage

	SubscriptionID string
	AuthorName     string
	Email          string
}

// RunnerPort is the scheduler surface other modules see
type RunnerPort interface {
	Run(ctx context.Context) error
}

// Package domain defines ingest types and ports
package domain

import (
	"context"
	"encoding/json"
)

// StoredComment is one comment row as persisted
type StoredComment struct {
	ID        int64
	Payload   json.RawMessage
	TS        int64
	InReplyTo []string
}

// RunnerPort is the scheduler surface other modules see
type RunnerPort interface {
	Run(ctx context.Context) error
}

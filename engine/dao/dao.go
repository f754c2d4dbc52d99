// Package dao exposes task storage behind interchangeable backends.
package dao

import (
	"context"

	"github.com/graffiticode/graffiticode/engine/task"
)

// CreateRequest is one task submission.
type CreateRequest struct {
	Auth *task.Auth
	// ID is a caller-supplied identifier hint. Backends derive identifiers
	// from content and ignore it.
	ID   string
	Task *task.Task
	Mark any
}

// GetRequest addresses one or more tasks by identifier.
type GetRequest struct {
	ID   string
	Auth *task.Auth
}

// DAO is the storage port every backend implements.
type DAO interface {
	// Create stores or reuses a task and returns its identifier.
	Create(ctx context.Context, req *CreateRequest) (string, error)
	// Get returns every task id addresses, in order, or fails as a whole.
	Get(ctx context.Context, req *GetRequest) ([]*task.Task, error)
	// AppendIDs combines identifiers into one addressing all their tasks.
	AppendIDs(ctx context.Context, id string, others ...string) (string, error)
	// Ping reports whether the backend can serve requests.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

package task

import "context"

// UpsertInput carries one submission to a Repository.
type UpsertInput struct {
	// NewID is used as the document key when no task with CodeHash exists.
	NewID    string
	Lang     string
	Code     any
	CodeHash string
	Auth     *Auth
	// Mark replaces the stored mark when non-nil.
	Mark any
}

// Repository persists task records keyed by id and indexed by code hash.
//
// Upsert must resolve the code hash and write the task in one atomic step:
// on a hit it increments Count, replaces Mark when given and unions Auth into
// the ACL; on a miss it inserts a record with Count 1 and NewACL(Auth), and
// the task is written before its hash pointer.
type Repository interface {
	Upsert(ctx context.Context, in *UpsertInput) (taskID string, created bool, err error)
	// Get returns ErrNotFound when no record has taskID.
	Get(ctx context.Context, taskID string) (*Record, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

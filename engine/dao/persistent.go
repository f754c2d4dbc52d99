package dao

import (
	"context"
	"fmt"

	"github.com/graffiticode/graffiticode/engine/core"
	"github.com/graffiticode/graffiticode/engine/task"
	"github.com/graffiticode/graffiticode/engine/taskid"
	"github.com/graffiticode/graffiticode/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Persistent is the durable DAO. Identical (lang, code) submissions share one
// record through the repository's code-hash index.
type Persistent struct {
	repo      task.Repository
	newID     func() (string, error)
	loadLimit int
}

// DefaultLoadConcurrency bounds the repository reads one Get runs at once.
const DefaultLoadConcurrency = 16

// NewPersistent returns a persistent DAO over repo.
func NewPersistent(repo task.Repository) *Persistent {
	return &Persistent{repo: repo, newID: newDocumentID, loadLimit: DefaultLoadConcurrency}
}

func newDocumentID() (string, error) {
	id, err := core.NewID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Create upserts the task by code hash and returns its single-task identifier.
func (p *Persistent) Create(ctx context.Context, req *CreateRequest) (string, error) {
	if req == nil {
		return "", &task.ValidationError{Field: "request", Reason: "request is required"}
	}
	if err := task.Validate(req.Task, req.Auth); err != nil {
		return "", err
	}
	codeHash, err := task.CodeHash(req.Task.Lang, req.Task.Code)
	if err != nil {
		return "", err
	}
	newID, err := p.newID()
	if err != nil {
		return "", fmt.Errorf("mint task id: %w", err)
	}
	taskID, created, err := p.repo.Upsert(ctx, &task.UpsertInput{
		NewID:    newID,
		Lang:     req.Task.Lang,
		Code:     req.Task.Code,
		CodeHash: codeHash,
		Auth:     req.Auth,
		Mark:     req.Mark,
	})
	if err != nil {
		return "", fmt.Errorf("upsert task: %w", err)
	}
	logger.FromContext(ctx).Debug(
		"Task stored",
		"kind", KindFirestore,
		"task_id", taskID,
		"created", created,
	)
	return taskid.Encode([]string{taskID})
}

// Get loads every referenced task concurrently and returns them in identifier order.
func (p *Persistent) Get(ctx context.Context, req *GetRequest) ([]*task.Task, error) {
	if req == nil {
		return nil, taskid.NewDecodeIDError("", "identifier is empty", nil)
	}
	refs, err := taskid.Decode(req.ID)
	if err != nil {
		return nil, err
	}
	tasks := make([]*task.Task, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.loadLimit)
	for i, ref := range refs {
		g.Go(func() error {
			t, err := p.load(gctx, ref, req.Auth)
			if err != nil {
				return err
			}
			tasks[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.FromContext(ctx).Debug("Task lookup failed", "kind", KindFirestore, "refs", len(refs), "error", err)
		return nil, err
	}
	return tasks, nil
}

func (p *Persistent) load(ctx context.Context, ref string, auth *task.Auth) (*task.Task, error) {
	rec, err := p.repo.Get(ctx, ref)
	if err != nil {
		if task.IsNotFound(err) {
			return nil, &task.NotFoundError{ID: ref}
		}
		return nil, fmt.Errorf("load task %s: %w", ref, err)
	}
	if err := task.CheckAccess(rec.ACL, auth); err != nil {
		return nil, &task.NotFoundError{ID: ref}
	}
	id, err := taskid.Encode([]string{ref})
	if err != nil {
		return nil, err
	}
	return &task.Task{Lang: rec.Lang, Code: rec.Code, ID: id}, nil
}

// AppendIDs combines identifiers at the reference level.
func (p *Persistent) AppendIDs(_ context.Context, id string, others ...string) (string, error) {
	return taskid.Append(id, others...)
}

// Ping checks the repository.
func (p *Persistent) Ping(ctx context.Context) error {
	return p.repo.Ping(ctx)
}

// Close releases the repository.
func (p *Persistent) Close(ctx context.Context) error {
	return p.repo.Close(ctx)
}

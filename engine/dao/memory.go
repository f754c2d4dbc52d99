package dao

import (
	"context"
	"sync"

	"github.com/graffiticode/graffiticode/engine/content"
	"github.com/graffiticode/graffiticode/engine/task"
	"github.com/graffiticode/graffiticode/engine/taskid"
	"github.com/graffiticode/graffiticode/pkg/logger"
)

// Memory is a process-local DAO for tests and development.
// Identifiers encode chains of (lang, content handle) pairs.
type Memory struct {
	content *content.Store
	mu      sync.RWMutex
	acls    map[string]*task.ACL
	counts  map[string]int64
}

// NewMemory returns an empty memory backend with its own content store.
func NewMemory() *Memory {
	return &Memory{
		content: content.NewStore(),
		acls:    make(map[string]*task.ACL),
		counts:  make(map[string]int64),
	}
}

// Create interns the code and grants the caller access to the task identifier.
// Marks are not retained by this backend.
func (m *Memory) Create(ctx context.Context, req *CreateRequest) (string, error) {
	if req == nil {
		return "", &task.ValidationError{Field: "request", Reason: "request is required"}
	}
	if err := task.Validate(req.Task, req.Auth); err != nil {
		return "", err
	}
	h, err := m.content.Intern(req.Task.Code)
	if err != nil {
		return "", err
	}
	id, err := taskid.Encode(Refs(single(req.Task.Lang, h)))
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	if acl, ok := m.acls[id]; ok {
		acl.Grant(req.Auth)
	} else {
		m.acls[id] = task.NewACL(req.Auth)
	}
	m.counts[id]++
	count := m.counts[id]
	m.mu.Unlock()
	logger.FromContext(ctx).Debug("Task stored", "kind", KindMemory, "lang", req.Task.Lang, "handle", h, "count", count)
	return id, nil
}

// Get walks every chain in the identifier and fails on the first hidden or missing task.
func (m *Memory) Get(ctx context.Context, req *GetRequest) ([]*task.Task, error) {
	if req == nil {
		return nil, taskid.NewDecodeIDError("", "identifier is empty", nil)
	}
	refs, err := taskid.Decode(req.ID)
	if err != nil {
		return nil, err
	}
	chains, err := parseChains(req.ID, refs)
	if err != nil {
		return nil, err
	}
	var tasks []*task.Task
	err = walk(chains, func(c Cons) error {
		t, err := m.load(c, req.Auth)
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Debug("Task lookup failed", "kind", KindMemory, "refs", len(refs), "error", err)
		return nil, err
	}
	return tasks, nil
}

func (m *Memory) load(c Cons, auth *task.Auth) (*task.Task, error) {
	id := taskid.MustEncode(Refs(single(c.Lang, c.Code)))
	var code any
	if c.Code != content.NilHandle {
		v, ok := m.content.Lookup(c.Code)
		if !ok {
			return nil, &task.NotFoundError{ID: id}
		}
		code = v
	}
	m.mu.RLock()
	stored, ok := m.acls[id]
	acl := stored.Clone()
	m.mu.RUnlock()
	if !ok {
		return nil, &task.NotFoundError{ID: id}
	}
	if err := task.CheckAccess(acl, auth); err != nil {
		return nil, &task.NotFoundError{ID: id}
	}
	return &task.Task{Lang: c.Lang, Code: code, ID: id}, nil
}

// AppendIDs concatenates the chains of every identifier.
func (m *Memory) AppendIDs(_ context.Context, id string, others ...string) (string, error) {
	for _, candidate := range append([]string{id}, others...) {
		refs, err := taskid.Decode(candidate)
		if err != nil {
			return "", err
		}
		if _, err := parseChains(candidate, refs); err != nil {
			return "", err
		}
	}
	return taskid.Append(id, others...)
}

// Ping always succeeds; the backend lives in process.
func (m *Memory) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (m *Memory) Close(context.Context) error {
	return nil
}

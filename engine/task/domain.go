package task

import (
	"fmt"
	"maps"

	"github.com/graffiticode/graffiticode/engine/core"
)

// Task is a submitted program: a language identifier plus an opaque JSON payload.
type Task struct {
	Lang string `json:"lang"         validate:"required,ne=0"`
	Code any    `json:"code"`
	// ID is the single-task identifier; set on retrieval only.
	ID string `json:"id,omitempty"`
}

// Auth identifies the caller. A nil *Auth is an anonymous caller.
type Auth struct {
	UID string `json:"uid" validate:"required"`
}

// ACL records who may see a stored task.
type ACL struct {
	Public bool            `json:"public"`
	UIDs   map[string]bool `json:"uids"`
}

// NewACL returns the ACL of a first submission by auth.
func NewACL(auth *Auth) *ACL {
	acl := &ACL{Public: auth == nil, UIDs: map[string]bool{}}
	if auth != nil {
		acl.UIDs[auth.UID] = true
	}
	return acl
}

// Grant unions auth into the ACL. Anonymous grants make the task public.
func (a *ACL) Grant(auth *Auth) {
	if auth == nil {
		a.Public = true
		return
	}
	if a.UIDs == nil {
		a.UIDs = map[string]bool{}
	}
	a.UIDs[auth.UID] = true
}

// Clone returns an independent copy of the ACL.
func (a *ACL) Clone() *ACL {
	if a == nil {
		return nil
	}
	return &ACL{Public: a.Public, UIDs: maps.Clone(a.UIDs)}
}

// UIDList returns the granted uids.
func (a *ACL) UIDList() []string {
	if a == nil {
		return nil
	}
	uids := make([]string, 0, len(a.UIDs))
	for uid, ok := range a.UIDs {
		if ok {
			uids = append(uids, uid)
		}
	}
	return uids
}

// Record is the persisted form of a task.
type Record struct {
	ID       string `json:"id"`
	Lang     string `json:"lang"`
	Code     any    `json:"code"`
	CodeHash string `json:"codeHash"`
	Count    int64  `json:"count"`
	ACL      *ACL   `json:"acls,omitempty"`
	Mark     any    `json:"mark,omitempty"`
}

// Task returns the public view of the record.
func (r *Record) Task() *Task {
	return &Task{Lang: r.Lang, Code: r.Code}
}

// CodeHash returns the global dedup key of a (lang, code) pair.
func CodeHash(lang string, code any) (string, error) {
	b, err := core.CanonicalJSON(map[string]any{"lang": lang, "code": code})
	if err != nil {
		return "", fmt.Errorf("hash task code: %w", err)
	}
	return core.HashHex(b), nil
}

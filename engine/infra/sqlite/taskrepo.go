package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/graffiticode/graffiticode/engine/core"
	"github.com/graffiticode/graffiticode/engine/task"
	"github.com/graffiticode/graffiticode/pkg/logger"
)

var taskColumns = []string{"id", "lang", "code", "code_hash", "count", "acl_public", "acl_uids", "mark"}

// TaskRepo implements task.Repository on top of a SQLite *sql.DB.
type TaskRepo struct {
	db    *sql.DB
	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

var _ task.Repository = (*TaskRepo)(nil)

// NewTaskRepo creates a SQLite-backed task repository. The caller keeps ownership of db.
func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// OpenRepository opens the database, optionally migrates, and returns a
// repository that owns the handle.
func OpenRepository(ctx context.Context, cfg *Config, migrate bool) (*TaskRepo, error) {
	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := ApplyMigrations(ctx, store.DB()); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
	}
	repo := NewTaskRepo(store.DB())
	repo.ping = store.HealthCheck
	repo.close = store.Close
	return repo, nil
}

type taskRow struct {
	ID        string         `db:"id"`
	Lang      string         `db:"lang"`
	Code      string         `db:"code"`
	CodeHash  string         `db:"code_hash"`
	Count     int64          `db:"count"`
	ACLPublic bool           `db:"acl_public"`
	ACLUIDs   string         `db:"acl_uids"`
	Mark      sql.NullString `db:"mark"`
}

func (r *taskRow) toRecord() (*task.Record, error) {
	code, err := core.UnmarshalJSONValue([]byte(r.Code))
	if err != nil {
		return nil, fmt.Errorf("sqlite: decode code: %w", err)
	}
	var mark any
	if r.Mark.Valid {
		if mark, err = core.UnmarshalJSONValue([]byte(r.Mark.String)); err != nil {
			return nil, fmt.Errorf("sqlite: decode mark: %w", err)
		}
	}
	uids := map[string]bool{}
	if r.ACLUIDs != "" {
		if err := json.Unmarshal([]byte(r.ACLUIDs), &uids); err != nil {
			return nil, fmt.Errorf("sqlite: decode acl uids: %w", err)
		}
	}
	return &task.Record{
		ID:       r.ID,
		Lang:     r.Lang,
		Code:     code,
		CodeHash: r.CodeHash,
		Count:    r.Count,
		ACL:      &task.ACL{Public: r.ACLPublic, UIDs: uids},
		Mark:     mark,
	}, nil
}

// Get loads a task by document id.
func (r *TaskRepo) Get(ctx context.Context, taskID string) (*task.Record, error) {
	query, args, err := squirrel.Select(taskColumns...).From("tasks").Where(squirrel.Eq{"id": taskID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build get task: %w", err)
	}
	var row taskRow
	if err := sqlscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, task.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: get task: %w", err)
	}
	return row.toRecord()
}

// Upsert resolves the code hash and writes the task in one immediate transaction.
func (r *TaskRepo) Upsert(ctx context.Context, in *task.UpsertInput) (taskID string, created bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("sqlite: begin upsert: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.FromContext(ctx).Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()
	existing, err := lookupHash(ctx, tx, in.CodeHash)
	if err != nil {
		return "", false, err
	}
	if existing == "" {
		taskID, created = in.NewID, true
		err = insertTask(ctx, tx, in)
	} else {
		taskID = existing
		err = touchTask(ctx, tx, existing, in)
	}
	if err != nil {
		return "", false, err
	}
	if err = tx.Commit(); err != nil {
		return "", false, fmt.Errorf("sqlite: commit upsert: %w", err)
	}
	logger.FromContext(ctx).Debug("Task upserted", "store_driver", "sqlite", "task_id", taskID, "created", created)
	return taskID, created, nil
}

func lookupHash(ctx context.Context, tx *sql.Tx, codeHash string) (string, error) {
	query, args, err := squirrel.Select("task_id").From("task_hashes").Where(squirrel.Eq{"code_hash": codeHash}).ToSql()
	if err != nil {
		return "", fmt.Errorf("sqlite: build hash lookup: %w", err)
	}
	var taskID string
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("sqlite: lookup code hash: %w", err)
	}
	return taskID, nil
}

// insertTask writes the task row before the hash pointer referencing it.
func insertTask(ctx context.Context, tx *sql.Tx, in *task.UpsertInput) error {
	code, err := core.MarshalJSONValue(in.Code)
	if err != nil {
		return fmt.Errorf("sqlite: marshal code: %w", err)
	}
	mark, err := markText(in.Mark)
	if err != nil {
		return err
	}
	acl := task.NewACL(in.Auth)
	uids, err := json.Marshal(acl.UIDs)
	if err != nil {
		return fmt.Errorf("sqlite: marshal acl uids: %w", err)
	}
	query, args, err := squirrel.Insert("tasks").
		Columns(taskColumns...).
		Values(in.NewID, in.Lang, string(code), in.CodeHash, 1, acl.Public, string(uids), mark).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build task insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: insert task: %w", err)
	}
	query, args, err = squirrel.Insert("task_hashes").Columns("code_hash", "task_id").Values(in.CodeHash, in.NewID).ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build hash insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: insert code hash: %w", err)
	}
	return nil
}

// touchTask increments the counter and merges the caller into the ACL with json_patch.
func touchTask(ctx context.Context, tx *sql.Tx, taskID string, in *task.UpsertInput) error {
	grant := map[string]bool{}
	if in.Auth != nil {
		grant[in.Auth.UID] = true
	}
	uids, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("sqlite: marshal acl uids: %w", err)
	}
	ub := squirrel.Update("tasks").
		Set("count", squirrel.Expr("count + 1")).
		Set("acl_public", squirrel.Expr("(acl_public OR ?)", in.Auth == nil)).
		Set("acl_uids", squirrel.Expr("json_patch(acl_uids, ?)", string(uids))).
		Set("updated_at", squirrel.Expr("strftime('%Y-%m-%dT%H:%M:%fZ', 'now')")).
		Where(squirrel.Eq{"id": taskID})
	if in.Mark != nil {
		mark, err := markText(in.Mark)
		if err != nil {
			return err
		}
		ub = ub.Set("mark", mark)
	}
	query, args, err := ub.ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build task update: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: update task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("sqlite: code hash points at missing task %s", taskID)
	}
	return nil
}

func markText(mark any) (sql.NullString, error) {
	if mark == nil {
		return sql.NullString{}, nil
	}
	b, err := core.MarshalJSONValue(mark)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("sqlite: marshal mark: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// Ping checks that the database answers.
func (r *TaskRepo) Ping(ctx context.Context) error {
	if r.ping != nil {
		return r.ping(ctx)
	}
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close releases the database when the repository owns it.
func (r *TaskRepo) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	return r.close(ctx)
}

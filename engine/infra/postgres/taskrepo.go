package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/graffiticode/graffiticode/engine/core"
	"github.com/graffiticode/graffiticode/engine/task"
	"github.com/graffiticode/graffiticode/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var taskColumns = []string{
	"id",
	"lang",
	"code",
	"code_hash",
	"count",
	"acl_public",
	"acl_uids",
	"mark",
}

// DB is the minimal database interface TaskRepo depends on (pgxpool or pgxmock).
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// TaskRepo implements task.Repository on a pgx-compatible pool.
type TaskRepo struct {
	db    DB
	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

var _ task.Repository = (*TaskRepo)(nil)

func NewTaskRepo(db DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// OpenRepository connects to Postgres, optionally migrates, and returns a
// repository that owns the pool.
func OpenRepository(ctx context.Context, cfg *Config, migrate bool) (*TaskRepo, error) {
	if migrate {
		if err := ApplyMigrationsWithLock(ctx, DSN(cfg)); err != nil {
			return nil, fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo := NewTaskRepo(store.Pool())
	repo.ping = store.HealthCheck
	repo.close = store.Close
	return repo, nil
}

type taskRow struct {
	ID        string `db:"id"`
	Lang      string `db:"lang"`
	Code      []byte `db:"code"`
	CodeHash  string `db:"code_hash"`
	Count     int64  `db:"count"`
	ACLPublic bool   `db:"acl_public"`
	ACLUIDs   []byte `db:"acl_uids"`
	Mark      []byte `db:"mark"`
}

func (r *taskRow) toRecord() (*task.Record, error) {
	code, err := core.UnmarshalJSONValue(r.Code)
	if err != nil {
		return nil, fmt.Errorf("decoding code: %w", err)
	}
	mark, err := core.UnmarshalJSONValue(r.Mark)
	if err != nil {
		return nil, fmt.Errorf("decoding mark: %w", err)
	}
	uids := map[string]bool{}
	if len(r.ACLUIDs) > 0 {
		if err := json.Unmarshal(r.ACLUIDs, &uids); err != nil {
			return nil, fmt.Errorf("decoding acl uids: %w", err)
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
	sb := squirrel.Select(taskColumns...).
		From("tasks").
		Where(squirrel.Eq{"id": taskID}).
		PlaceholderFormat(squirrel.Dollar)
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	var row taskRow
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, task.ErrNotFound
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}
	return row.toRecord()
}

// Upsert resolves the code hash under a transaction-scoped advisory lock so
// concurrent first submissions of the same code produce one task.
func (r *TaskRepo) Upsert(ctx context.Context, in *task.UpsertInput) (string, bool, error) {
	var (
		taskID  string
		created bool
	)
	err := r.withTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", in.CodeHash); err != nil {
			return fmt.Errorf("locking code hash: %w", err)
		}
		existing, err := lookupHash(ctx, tx, in.CodeHash)
		if err != nil {
			return err
		}
		if existing == "" {
			taskID, created = in.NewID, true
			return insertTask(ctx, tx, in)
		}
		taskID = existing
		return touchTask(ctx, tx, existing, in)
	})
	if err != nil {
		return "", false, err
	}
	logger.FromContext(ctx).Debug("Task upserted", "store_driver", "postgres", "task_id", taskID, "created", created)
	return taskID, created, nil
}

func lookupHash(ctx context.Context, tx pgx.Tx, codeHash string) (string, error) {
	query, args, err := squirrel.Select("task_id").
		From("task_hashes").
		Where(squirrel.Eq{"code_hash": codeHash}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("building hash lookup: %w", err)
	}
	var taskID string
	if err := tx.QueryRow(ctx, query, args...).Scan(&taskID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("looking up code hash: %w", err)
	}
	return taskID, nil
}

// insertTask writes the task row before the hash pointer referencing it.
func insertTask(ctx context.Context, tx pgx.Tx, in *task.UpsertInput) error {
	code, err := core.MarshalJSONValue(in.Code)
	if err != nil {
		return fmt.Errorf("marshaling code: %w", err)
	}
	mark, err := markJSON(in.Mark)
	if err != nil {
		return err
	}
	acl := task.NewACL(in.Auth)
	uids, err := json.Marshal(acl.UIDs)
	if err != nil {
		return fmt.Errorf("marshaling acl uids: %w", err)
	}
	query, args, err := squirrel.Insert("tasks").
		Columns("id", "lang", "code", "code_hash", "count", "acl_public", "acl_uids", "mark").
		Values(in.NewID, in.Lang, code, in.CodeHash, 1, acl.Public, uids, mark).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building task insert: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	query, args, err = squirrel.Insert("task_hashes").
		Columns("code_hash", "task_id").
		Values(in.CodeHash, in.NewID).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building hash insert: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting code hash: %w", err)
	}
	return nil
}

// touchTask increments the counter and unions the caller into the ACL.
func touchTask(ctx context.Context, tx pgx.Tx, taskID string, in *task.UpsertInput) error {
	grant := map[string]bool{}
	if in.Auth != nil {
		grant[in.Auth.UID] = true
	}
	uids, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("marshaling acl uids: %w", err)
	}
	ub := squirrel.Update("tasks").
		Set("count", squirrel.Expr("count + 1")).
		Set("acl_public", squirrel.Expr("acl_public OR ?", in.Auth == nil)).
		Set("acl_uids", squirrel.Expr("acl_uids || ?::jsonb", uids)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": taskID}).
		PlaceholderFormat(squirrel.Dollar)
	if in.Mark != nil {
		mark, err := markJSON(in.Mark)
		if err != nil {
			return err
		}
		ub = ub.Set("mark", mark)
	}
	query, args, err := ub.ToSql()
	if err != nil {
		return fmt.Errorf("building task update: %w", err)
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("code hash points at missing task %s", taskID)
	}
	return nil
}

func markJSON(mark any) ([]byte, error) {
	if mark == nil {
		return nil, nil
	}
	b, err := core.MarshalJSONValue(mark)
	if err != nil {
		return nil, fmt.Errorf("marshaling mark: %w", err)
	}
	return b, nil
}

// withTransaction runs fn inside a transaction, rolling back on error or panic.
func (r *TaskRepo) withTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	log := logger.FromContext(ctx)
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error("Failed to rollback transaction", "error", rbErr)
			}
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error("Failed to rollback transaction", "error", rbErr)
			}
			return
		}
		if cmErr := tx.Commit(ctx); cmErr != nil {
			err = fmt.Errorf("commit transaction: %w", cmErr)
		}
	}()
	return fn(tx)
}

// Ping checks the pool, bounded by the store health check timeout when the
// repository owns the pool.
func (r *TaskRepo) Ping(ctx context.Context) error {
	if r.ping != nil {
		return r.ping(ctx)
	}
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Close releases the pool when the repository owns it.
func (r *TaskRepo) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	return r.close(ctx)
}
